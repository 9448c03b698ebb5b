// Command server runs the book catalog HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bookmanager/internal/api"
	"bookmanager/internal/app"
	"bookmanager/internal/config"
	internaldb "bookmanager/internal/db"
	"bookmanager/internal/middleware"
)

func main() {
	root := &cobra.Command{
		Use:          "server",
		Short:        "Run the book catalog HTTP API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return run(cmd.Context(), envFile)
		},
	}
	root.Flags().String("env-file", ".env", "path to an optional .env file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, envFile string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.DBPath, config.ParseIntEnv("READ_POOL_SIZE", 4))
	if err != nil {
		return err
	}
	defer func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	}()

	if err := internaldb.RunMigrations(writeDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	application := app.New(app.Deps{Cfg: cfg, WriteDB: writeDB, ReadDB: readDB, Logger: logger})

	var jwtValidator middleware.JWTValidator
	if cfg.JWTSecret != "" {
		validator, err := middleware.NewHS256Validator(cfg.JWTSecret)
		if err != nil {
			return err
		}
		jwtValidator = validator
	}
	authMW := middleware.Auth(application.Authenticator, jwtValidator, application.Principals)

	handler := api.NewRouter(
		api.NewAPIHandler(
			application.Services.Books,
			application.Services.Registration,
			application.Services.Credentials,
			logger,
		),
		authMW,
		cfg.CORSAllowedOrigins,
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Scheduled purge of long-revoked credentials.
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.PurgeSchedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := application.Services.Credentials.PurgeRevoked(jobCtx, cfg.CredentialRetention)
		if err != nil {
			logger.Error("credential purge failed", "error", err)
			return
		}
		if n > 0 {
			logger.Info("purged revoked credentials", "count", n)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", cfg.PurgeSchedule, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.ListenAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		<-scheduler.Stop().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
