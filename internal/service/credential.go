// Package service orchestrates validation, authorization, and repository
// calls for the book catalog API.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"bookmanager/internal/domain"
)

// HashSecret returns the SHA-256 hex digest under which a raw API key secret
// is stored and looked up.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// CredentialService issues, authenticates, and revokes API keys.
type CredentialService struct {
	creds      domain.CredentialRepository
	principals domain.PrincipalRepository
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(creds domain.CredentialRepository, principals domain.PrincipalRepository) *CredentialService {
	return &CredentialService{creds: creds, principals: principals}
}

// Issue generates a fresh API key for the principal and returns the raw
// secret exactly once. Only the hash is stored; the secret cannot be
// retrieved again. The UNIQUE index on the stored hash guarantees no two
// active credentials share a secret.
func (s *CredentialService) Issue(ctx context.Context, principalID string) (*domain.Credential, string, error) {
	if _, err := s.principals.GetByID(ctx, principalID); err != nil {
		return nil, "", err
	}

	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return nil, "", fmt.Errorf("generate key: %w", err)
	}
	rawKey := hex.EncodeToString(rawBytes)

	cred := &domain.Credential{
		ID:          domain.NewID(),
		PrincipalID: principalID,
		KeyPrefix:   rawKey[:8],
		KeyHash:     HashSecret(rawKey),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.creds.Insert(ctx, cred); err != nil {
		return nil, "", err
	}
	return cred, rawKey, nil
}

// Authenticate resolves a raw API key secret to its owning principal.
// Every credential failure (empty, unknown, or revoked secret) returns the
// same AuthenticationError so callers cannot enumerate credentials. A storage
// fault is not a credential failure and propagates as-is so it surfaces as an
// internal error, not a rejection.
func (s *CredentialService) Authenticate(ctx context.Context, rawSecret string) (*domain.Principal, error) {
	if rawSecret == "" {
		return nil, domain.ErrNotAuthenticated()
	}
	cred, err := s.creds.GetActiveByHash(ctx, HashSecret(rawSecret))
	if err != nil {
		return nil, asAuthFailure(err, "resolve credential")
	}
	p, err := s.principals.GetByID(ctx, cred.PrincipalID)
	if err != nil {
		return nil, asAuthFailure(err, "resolve principal")
	}
	return p, nil
}

// asAuthFailure folds a missing row into the uniform rejection and wraps
// anything else (a genuine storage fault) for upstream 500 handling.
func asAuthFailure(err error, op string) error {
	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		return domain.ErrNotAuthenticated()
	}
	return fmt.Errorf("%s: %w", op, err)
}

// List returns the caller's credentials (metadata only, never secrets).
func (s *CredentialService) List(ctx context.Context, page domain.PageRequest) ([]domain.Credential, int64, error) {
	caller, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, 0, domain.ErrNotAuthenticated()
	}
	return s.creds.ListByPrincipal(ctx, caller.ID, page)
}

// Revoke marks one of the caller's credentials revoked. Idempotent; a
// credential owned by another principal is indistinguishable from a missing
// one.
func (s *CredentialService) Revoke(ctx context.Context, credentialID string) error {
	caller, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ErrNotAuthenticated()
	}
	return s.creds.RevokeOwned(ctx, caller.ID, credentialID)
}

// PurgeRevoked removes credentials revoked longer ago than retention.
// It backs the scheduled maintenance job.
func (s *CredentialService) PurgeRevoked(ctx context.Context, retention time.Duration) (int64, error) {
	return s.creds.PurgeRevoked(ctx, time.Now().UTC().Add(-retention))
}
