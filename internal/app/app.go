// Package app provides application-level wiring and dependency injection
// for the book catalog server.
package app

import (
	"database/sql"
	"log/slog"

	"bookmanager/internal/config"
	"bookmanager/internal/db/repository"
	"bookmanager/internal/service"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, and the logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Services groups the service pointers that the API handler and router need.
type Services struct {
	Books        *service.BookService
	Registration *service.RegistrationService
	Credentials  *service.CredentialService
}

// App holds the fully-wired application. Authenticator is a read-pool
// credential service used only by the auth middleware; Principals backs the
// dev JWT path's username lookup.
type App struct {
	Services      Services
	Authenticator *service.CredentialService
	Principals    *repository.PrincipalRepo
}

// New wires all repositories and services from the provided deps. Mutating
// services run on the single-connection write pool; per-request credential
// resolution runs on the read pool.
func New(deps Deps) *App {
	principalRepo := repository.NewPrincipalRepo(deps.WriteDB)
	credentialRepo := repository.NewCredentialRepo(deps.WriteDB)
	bookRepo := repository.NewBookRepo(deps.WriteDB)

	credentialSvc := service.NewCredentialService(credentialRepo, principalRepo)

	// Read-pool pair used by the auth middleware on every request.
	readPrincipals := repository.NewPrincipalRepo(deps.ReadDB)
	authenticator := service.NewCredentialService(
		repository.NewCredentialRepo(deps.ReadDB), readPrincipals)

	return &App{
		Services: Services{
			Books:        service.NewBookService(bookRepo),
			Registration: service.NewRegistrationService(principalRepo, credentialSvc),
			Credentials:  credentialSvc,
		},
		Authenticator: authenticator,
		Principals:    readPrincipals,
	}
}
