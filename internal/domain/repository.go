package domain

import (
	"context"
	"time"
)

// PrincipalRepository persists registered identities.
//
// Create must be an atomic check-and-insert: a duplicate username surfaces
// as ConflictError, never as a partial write, even under concurrent
// registrations.
type PrincipalRepository interface {
	Create(ctx context.Context, p *Principal) (*Principal, error)
	GetByID(ctx context.Context, id string) (*Principal, error)
	GetByUsername(ctx context.Context, username string) (*Principal, error)
	List(ctx context.Context, page PageRequest) ([]Principal, int64, error)

	// Delete removes the principal and, via the schema's cascade, its
	// credentials and books. Registration uses it to roll back a principal
	// whose first credential could not be issued.
	Delete(ctx context.Context, id string) error
}

// CredentialRepository persists issued API keys. Only hashes are stored;
// lookups are keyed by hash and restricted to active (non-revoked) rows.
type CredentialRepository interface {
	Insert(ctx context.Context, c *Credential) error
	GetActiveByHash(ctx context.Context, keyHash string) (*Credential, error)
	ListByPrincipal(ctx context.Context, principalID string, page PageRequest) ([]Credential, int64, error)

	// RevokeOwned marks the credential revoked. Idempotent: revoking an
	// already-revoked credential succeeds without changing RevokedAt.
	// A credential that does not exist or belongs to another principal
	// yields NotFoundError.
	RevokeOwned(ctx context.Context, principalID, id string) error

	// PurgeRevoked removes credentials revoked before the cutoff and
	// returns the number of rows deleted.
	PurgeRevoked(ctx context.Context, before time.Time) (int64, error)
}

// BookRepository persists books. Every operation is parameterized by the
// owning principal; no call can observe or touch another principal's rows.
// Get, update, and delete yield the identical NotFoundError whether the id
// is absent or owned by someone else.
type BookRepository interface {
	Create(ctx context.Context, ownerID string, attrs BookAttributes) (*Book, error)
	GetOwned(ctx context.Context, ownerID, id string) (*Book, error)
	ListByOwner(ctx context.Context, ownerID string, page PageRequest) ([]Book, int64, error)

	// UpdateOwned replaces the full mutable attribute set. Owner and
	// CreatedAt are untouched. The ownership check and the write are one
	// atomic statement.
	UpdateOwned(ctx context.Context, ownerID, id string, attrs BookAttributes) (*Book, error)
	DeleteOwned(ctx context.Context, ownerID, id string) error
}
