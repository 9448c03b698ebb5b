// Package middleware provides HTTP middleware for API key and JWT
// authentication.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"bookmanager/internal/domain"
)

// APIKeyScheme is the Authorization scheme token for API key credentials.
// The recognized header shape is exactly "Api-Key <secret>".
const APIKeyScheme = "Api-Key"

// Authenticator resolves a raw API key secret to its owning principal.
// Implemented by service.CredentialService.
type Authenticator interface {
	Authenticate(ctx context.Context, rawSecret string) (*domain.Principal, error)
}

// PrincipalLookup resolves a username to a principal, used by the dev JWT
// path where the token's subject is a username.
type PrincipalLookup interface {
	GetByUsername(ctx context.Context, username string) (*domain.Principal, error)
}

// Auth returns middleware that resolves the caller's principal and attaches
// it to the request context. Resolution is terminal per request:
//
//  1. A "Bearer <token>" header is validated against the optional JWT
//     validator (nil disables the path).
//  2. An "Api-Key <secret>" header is authenticated against the credential
//     store.
//  3. Anything else (no header, unrecognized shape, unknown or revoked
//     secret) is rejected with a single uniform 401 response.
//
// A storage fault during resolution is reported as a 500, never as a
// rejection.
func Auth(auth Authenticator, jwtValidator JWTValidator, principals PrincipalLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, value, ok := splitCredential(header)
			if !ok {
				writeUnauthorized(w)
				return
			}

			switch scheme {
			case "Bearer":
				if jwtValidator == nil || principals == nil {
					break
				}
				claims, err := jwtValidator.Validate(r.Context(), value)
				if err != nil || claims.Subject == "" {
					break
				}
				p, err := principals.GetByUsername(r.Context(), claims.Subject)
				if err != nil {
					var notFound *domain.NotFoundError
					if errors.As(err, &notFound) {
						break
					}
					writeInternalError(w)
					return
				}
				serveAs(next, w, r, p)
				return

			case APIKeyScheme:
				p, err := auth.Authenticate(r.Context(), value)
				if err != nil {
					var authErr *domain.AuthenticationError
					if errors.As(err, &authErr) {
						break
					}
					writeInternalError(w)
					return
				}
				serveAs(next, w, r, p)
				return
			}

			writeUnauthorized(w)
		})
	}
}

// splitCredential parses "scheme token + single space + value". Any other
// shape is malformed.
func splitCredential(header string) (scheme, value string, ok bool) {
	if header == "" {
		return "", "", false
	}
	scheme, value, found := strings.Cut(header, " ")
	if !found || scheme == "" || value == "" || strings.Contains(value, " ") {
		return "", "", false
	}
	return scheme, value, true
}

func serveAs(next http.Handler, w http.ResponseWriter, r *http.Request, p *domain.Principal) {
	ctx := domain.WithPrincipal(r.Context(), domain.ContextPrincipal{ID: p.ID, Name: p.Username})
	next.ServeHTTP(w, r.WithContext(ctx))
}

// writeUnauthorized emits the uniform rejection. The body never varies with
// the failure cause.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": "authentication required",
	})
}

// writeInternalError reports a storage fault during credential resolution.
// A broken store must not masquerade as a rejected credential.
func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusInternalServerError,
		"message": "internal server error",
	})
}
