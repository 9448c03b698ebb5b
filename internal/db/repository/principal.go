package repository

import (
	"context"
	"database/sql"
	"time"

	"bookmanager/internal/domain"
)

// PrincipalRepo implements domain.PrincipalRepository on SQLite.
type PrincipalRepo struct {
	db *sql.DB
}

// NewPrincipalRepo creates a new PrincipalRepo.
func NewPrincipalRepo(db *sql.DB) *PrincipalRepo {
	return &PrincipalRepo{db: db}
}

// Create inserts a new principal. The UNIQUE constraint on username makes the
// check-and-insert atomic: a concurrent duplicate registration surfaces as
// ConflictError, never as two rows.
func (r *PrincipalRepo) Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error) {
	created := &domain.Principal{
		ID:        domain.NewID(),
		Username:  p.Username,
		Email:     p.Email,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO principals (id, username, email, created_at) VALUES (?, ?, ?, ?)`,
		created.ID, created.Username, created.Email, created.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return created, nil
}

func (r *PrincipalRepo) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, created_at FROM principals WHERE id = ?`, id)
	return scanPrincipal(row)
}

func (r *PrincipalRepo) GetByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, created_at FROM principals WHERE username = ?`, username)
	return scanPrincipal(row)
}

// Delete removes the principal; credentials and books follow via ON DELETE
// CASCADE. Deleting an absent principal is a no-op.
func (r *PrincipalRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM principals WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	return nil
}

func (r *PrincipalRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.Principal, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM principals`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, email, created_at FROM principals ORDER BY rowid LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var principals []domain.Principal
	for rows.Next() {
		var p domain.Principal
		if err := rows.Scan(&p.ID, &p.Username, &p.Email, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		principals = append(principals, p)
	}
	return principals, total, rows.Err()
}

func scanPrincipal(row *sql.Row) (*domain.Principal, error) {
	var p domain.Principal
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.CreatedAt); err != nil {
		return nil, mapDBError(err)
	}
	return &p, nil
}
