package domain

import "time"

// Credential is an issued API key bound to exactly one principal. The raw
// secret is returned once at issue time; only its hash is stored.
type Credential struct {
	ID          string
	PrincipalID string
	KeyPrefix   string // first 8 chars of the raw secret, for identification
	KeyHash     string // SHA-256 hex of the raw secret; the raw secret is never stored
	Revoked     bool
	CreatedAt   time.Time
	RevokedAt   *time.Time
}
