package service

import (
	"context"

	"bookmanager/internal/domain"
	"bookmanager/internal/validate"
)

// BookService orchestrates validation, authorization, and repository calls
// for book CRUD. Every operation requires a resolved principal in the
// context and is scoped to that principal.
type BookService struct {
	repo domain.BookRepository
}

// NewBookService creates a new BookService.
func NewBookService(repo domain.BookRepository) *BookService {
	return &BookService{repo: repo}
}

func caller(ctx context.Context) (domain.ContextPrincipal, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ContextPrincipal{}, domain.ErrNotAuthenticated()
	}
	return p, nil
}

// Create validates the payload and stores a new book owned by the caller.
// All field failures are reported together. Any owner-like value in the
// payload is ignored; the owner is always the authenticated principal.
func (s *BookService) Create(ctx context.Context, payload domain.BookPayload) (*domain.Book, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	attrs, err := validate.BookAttributes(payload)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, p.ID, *attrs)
}

// Get returns one of the caller's books.
func (s *BookService) Get(ctx context.Context, id string) (*domain.Book, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetOwned(ctx, p.ID, id)
}

// List returns the caller's books. An empty page is a valid result, not an
// error.
func (s *BookService) List(ctx context.Context, page domain.PageRequest) ([]domain.Book, int64, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListByOwner(ctx, p.ID, page)
}

// Update validates the payload and replaces the book's full mutable
// attribute set (PUT semantics): omitting a previously-set optional field
// clears it, and omitting a required field fails validation regardless of
// any previous value. Owner and creation timestamp never change.
func (s *BookService) Update(ctx context.Context, id string, payload domain.BookPayload) (*domain.Book, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	attrs, err := validate.BookAttributes(payload)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateOwned(ctx, p.ID, id, *attrs)
}

// Delete permanently removes one of the caller's books.
func (s *BookService) Delete(ctx context.Context, id string) error {
	p, err := caller(ctx)
	if err != nil {
		return err
	}
	return s.repo.DeleteOwned(ctx, p.ID, id)
}
