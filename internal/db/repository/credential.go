package repository

import (
	"context"
	"database/sql"
	"time"

	"bookmanager/internal/domain"
)

// CredentialRepo implements domain.CredentialRepository on SQLite.
type CredentialRepo struct {
	db *sql.DB
}

// NewCredentialRepo creates a new CredentialRepo.
func NewCredentialRepo(db *sql.DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Insert stores a new credential. The UNIQUE constraint on key_hash
// guarantees no two credentials ever share a secret.
func (r *CredentialRepo) Insert(ctx context.Context, c *domain.Credential) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (id, principal_id, key_prefix, key_hash, revoked, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		c.ID, c.PrincipalID, c.KeyPrefix, c.KeyHash, c.CreatedAt)
	return mapDBError(err)
}

// GetActiveByHash returns the credential with the given hash, if it exists
// and has not been revoked. Revoked and unknown hashes are indistinguishable.
func (r *CredentialRepo) GetActiveByHash(ctx context.Context, keyHash string) (*domain.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, principal_id, key_prefix, key_hash, revoked, created_at, revoked_at
		 FROM credentials WHERE key_hash = ? AND revoked = 0`, keyHash)
	return scanCredential(row)
}

func (r *CredentialRepo) ListByPrincipal(ctx context.Context, principalID string, page domain.PageRequest) ([]domain.Credential, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credentials WHERE principal_id = ?`, principalID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, principal_id, key_prefix, key_hash, revoked, created_at, revoked_at
		 FROM credentials WHERE principal_id = ? ORDER BY rowid LIMIT ? OFFSET ?`,
		principalID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var creds []domain.Credential
	for rows.Next() {
		var c domain.Credential
		var revoked int64
		var revokedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.PrincipalID, &c.KeyPrefix, &c.KeyHash, &revoked, &c.CreatedAt, &revokedAt); err != nil {
			return nil, 0, err
		}
		c.Revoked = revoked != 0
		if revokedAt.Valid {
			t := revokedAt.Time
			c.RevokedAt = &t
		}
		creds = append(creds, c)
	}
	return creds, total, rows.Err()
}

// RevokeOwned marks a credential revoked. The WHERE clause carries the owner
// so the ownership check and the write are one atomic statement; a foreign or
// absent id affects zero rows and yields NotFound. Re-revoking an already
// revoked credential matches the row again and keeps the original RevokedAt,
// so the operation is idempotent.
func (r *CredentialRepo) RevokeOwned(ctx context.Context, principalID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials
		 SET revoked = 1, revoked_at = COALESCE(revoked_at, ?)
		 WHERE id = ? AND principal_id = ?`,
		time.Now().UTC(), id, principalID)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("credential not found")
	}
	return nil
}

// PurgeRevoked deletes credentials revoked before the cutoff.
func (r *CredentialRepo) PurgeRevoked(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE revoked = 1 AND revoked_at < ?`, before)
	if err != nil {
		return 0, mapDBError(err)
	}
	return res.RowsAffected()
}

func scanCredential(row *sql.Row) (*domain.Credential, error) {
	var c domain.Credential
	var revoked int64
	var revokedAt sql.NullTime
	if err := row.Scan(&c.ID, &c.PrincipalID, &c.KeyPrefix, &c.KeyHash, &revoked, &c.CreatedAt, &revokedAt); err != nil {
		return nil, mapDBError(err)
	}
	c.Revoked = revoked != 0
	if revokedAt.Valid {
		t := revokedAt.Time
		c.RevokedAt = &t
	}
	return &c, nil
}
