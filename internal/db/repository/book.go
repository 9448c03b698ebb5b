package repository

import (
	"context"
	"database/sql"
	"time"

	"bookmanager/internal/domain"
)

// BookRepo implements domain.BookRepository on SQLite. Every statement
// carries owner_id in its WHERE clause, so ownership checks and writes are
// single atomic statements and no query can touch a foreign row.
type BookRepo struct {
	db *sql.DB
}

// NewBookRepo creates a new BookRepo.
func NewBookRepo(db *sql.DB) *BookRepo {
	return &BookRepo{db: db}
}

// Create inserts a book stamped with the given owner and a server-assigned
// id and creation timestamp. The caller never supplies either.
func (r *BookRepo) Create(ctx context.Context, ownerID string, attrs domain.BookAttributes) (*domain.Book, error) {
	book := &domain.Book{
		ID:            domain.NewID(),
		OwnerID:       ownerID,
		Title:         attrs.Title,
		Author:        attrs.Author,
		PublishedDate: attrs.PublishedDate,
		ISBN:          attrs.ISBN,
		CreatedAt:     time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, owner_id, title, author, published_date, isbn, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		book.ID, book.OwnerID, book.Title, book.Author,
		nullTime(book.PublishedDate), nullString(book.ISBN), book.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return book, nil
}

// GetOwned returns the book only when it exists and belongs to ownerID.
// Absent ids and foreign ids produce the identical NotFound.
func (r *BookRepo) GetOwned(ctx context.Context, ownerID, id string) (*domain.Book, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, author, published_date, isbn, created_at
		 FROM books WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanBook(row)
}

// ListByOwner returns the owner's books in insertion order.
func (r *BookRepo) ListByOwner(ctx context.Context, ownerID string, page domain.PageRequest) ([]domain.Book, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM books WHERE owner_id = ?`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, title, author, published_date, isbn, created_at
		 FROM books WHERE owner_id = ? ORDER BY rowid LIMIT ? OFFSET ?`,
		ownerID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		b, err := scanBookRows(rows)
		if err != nil {
			return nil, 0, err
		}
		books = append(books, *b)
	}
	return books, total, rows.Err()
}

// UpdateOwned replaces the full mutable attribute set in one statement.
// Owner and created_at are not in the SET list and can never change. Zero
// rows affected means the id is absent or foreign; both yield NotFound, and
// a delete racing this update makes exactly one of the two win.
func (r *BookRepo) UpdateOwned(ctx context.Context, ownerID, id string, attrs domain.BookAttributes) (*domain.Book, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE books SET title = ?, author = ?, published_date = ?, isbn = ?
		 WHERE id = ? AND owner_id = ?`,
		attrs.Title, attrs.Author, nullTime(attrs.PublishedDate), nullString(attrs.ISBN),
		id, ownerID)
	if err != nil {
		return nil, mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound("book not found")
	}
	return r.GetOwned(ctx, ownerID, id)
}

// DeleteOwned removes the book permanently, with the same ownership
// precondition and NotFound signal as GetOwned.
func (r *BookRepo) DeleteOwned(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM books WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("book not found")
	}
	return nil
}

func scanBook(row *sql.Row) (*domain.Book, error) {
	var b domain.Book
	var published sql.NullTime
	var isbn sql.NullString
	if err := row.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Author, &published, &isbn, &b.CreatedAt); err != nil {
		return nil, mapDBError(err)
	}
	applyNullable(&b, published, isbn)
	return &b, nil
}

func scanBookRows(rows *sql.Rows) (*domain.Book, error) {
	var b domain.Book
	var published sql.NullTime
	var isbn sql.NullString
	if err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Author, &published, &isbn, &b.CreatedAt); err != nil {
		return nil, err
	}
	applyNullable(&b, published, isbn)
	return &b, nil
}

func applyNullable(b *domain.Book, published sql.NullTime, isbn sql.NullString) {
	if published.Valid {
		t := published.Time
		b.PublishedDate = &t
	}
	if isbn.Valid {
		s := isbn.String
		b.ISBN = &s
	}
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
