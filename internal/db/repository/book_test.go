package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "bookmanager/internal/db"
	"bookmanager/internal/domain"
)

func setupBookRepo(t *testing.T) (*BookRepo, *domain.Principal, *domain.Principal) {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	principals := NewPrincipalRepo(writeDB)
	ctx := context.Background()

	alice, err := principals.Create(ctx, &domain.Principal{Username: "alice"})
	require.NoError(t, err)
	bob, err := principals.Create(ctx, &domain.Principal{Username: "bob"})
	require.NoError(t, err)

	return NewBookRepo(writeDB), alice, bob
}

func strPtr(s string) *string { return &s }

func TestBookRepo_CreateStampsOwnerAndTimestamp(t *testing.T) {
	repo, alice, _ := setupBookRepo(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	book, err := repo.Create(ctx, alice.ID, domain.BookAttributes{
		Title:  "The Trial",
		Author: "Franz Kafka",
		ISBN:   strPtr("1234567890123"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, alice.ID, book.OwnerID)
	assert.True(t, book.CreatedAt.After(before))

	found, err := repo.GetOwned(ctx, alice.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Trial", found.Title)
	require.NotNil(t, found.ISBN)
	assert.Equal(t, "1234567890123", *found.ISBN)
	assert.Nil(t, found.PublishedDate)
}

func TestBookRepo_Isolation(t *testing.T) {
	repo, alice, bob := setupBookRepo(t)
	ctx := context.Background()

	book, err := repo.Create(ctx, alice.ID, domain.BookAttributes{Title: "T", Author: "A"})
	require.NoError(t, err)

	var notFound *domain.NotFoundError

	// Bob cannot see, update, or delete Alice's book; every answer is the
	// same NotFound he would get for an id that does not exist.
	_, err = repo.GetOwned(ctx, bob.ID, book.ID)
	require.ErrorAs(t, err, &notFound)

	_, err = repo.UpdateOwned(ctx, bob.ID, book.ID, domain.BookAttributes{Title: "X", Author: "Y"})
	require.ErrorAs(t, err, &notFound)

	err = repo.DeleteOwned(ctx, bob.ID, book.ID)
	require.ErrorAs(t, err, &notFound)

	_, err = repo.GetOwned(ctx, bob.ID, domain.NewID())
	require.ErrorAs(t, err, &notFound)

	books, total, err := repo.ListByOwner(ctx, bob.ID, domain.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Zero(t, total)

	// Alice still sees it untouched.
	found, err := repo.GetOwned(ctx, alice.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", found.Title)
}

func TestBookRepo_ListInsertionOrder(t *testing.T) {
	repo, alice, _ := setupBookRepo(t)
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		_, err := repo.Create(ctx, alice.ID, domain.BookAttributes{Title: title, Author: "A"})
		require.NoError(t, err)
	}

	books, total, err := repo.ListByOwner(ctx, alice.ID, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, books, 3)
	assert.Equal(t, "first", books[0].Title)
	assert.Equal(t, "third", books[2].Title)
}

func TestBookRepo_UpdateReplacesAttributesOnly(t *testing.T) {
	repo, alice, _ := setupBookRepo(t)
	ctx := context.Background()

	published := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	book, err := repo.Create(ctx, alice.ID, domain.BookAttributes{
		Title:         "T",
		Author:        "A",
		PublishedDate: &published,
		ISBN:          strPtr("1234567890123"),
	})
	require.NoError(t, err)

	// Full replacement: the new attribute set has no ISBN and no date, so
	// the stored row loses both.
	updated, err := repo.UpdateOwned(ctx, alice.ID, book.ID, domain.BookAttributes{
		Title:  "Updated",
		Author: "B",
	})
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.Title)
	assert.Nil(t, updated.ISBN)
	assert.Nil(t, updated.PublishedDate)

	// Owner and creation timestamp survive every update.
	assert.Equal(t, book.OwnerID, updated.OwnerID)
	assert.True(t, updated.CreatedAt.Equal(book.CreatedAt))
}

func TestBookRepo_ConcurrentUpdateAndDeleteOneWins(t *testing.T) {
	repo, alice, _ := setupBookRepo(t)
	ctx := context.Background()

	var notFound *domain.NotFoundError
	for i := 0; i < 25; i++ {
		book, err := repo.Create(ctx, alice.ID, domain.BookAttributes{Title: "T", Author: "A"})
		require.NoError(t, err)

		var (
			wg      sync.WaitGroup
			updated *domain.Book
			updErr  error
			delErr  error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			updated, updErr = repo.UpdateOwned(ctx, alice.ID, book.ID, domain.BookAttributes{
				Title:  "Updated",
				Author: "B",
				ISBN:   strPtr("1234567890"),
			})
		}()
		go func() {
			defer wg.Done()
			delErr = repo.DeleteOwned(ctx, alice.ID, book.ID)
		}()
		wg.Wait()

		// The row exists when both start, so the delete always lands. The
		// update either fully completed before it or observed NotFound;
		// there is no third outcome.
		require.NoError(t, delErr)
		if updErr != nil {
			require.ErrorAs(t, updErr, &notFound)
		} else {
			assert.Equal(t, "Updated", updated.Title)
			assert.Equal(t, "B", updated.Author)
			require.NotNil(t, updated.ISBN)
			assert.Equal(t, "1234567890", *updated.ISBN)
			assert.Equal(t, alice.ID, updated.OwnerID)
			assert.True(t, updated.CreatedAt.Equal(book.CreatedAt))
		}

		_, err = repo.GetOwned(ctx, alice.ID, book.ID)
		require.ErrorAs(t, err, &notFound)
	}
}

func TestBookRepo_DeleteIsPermanent(t *testing.T) {
	repo, alice, _ := setupBookRepo(t)
	ctx := context.Background()

	book, err := repo.Create(ctx, alice.ID, domain.BookAttributes{Title: "T", Author: "A"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteOwned(ctx, alice.ID, book.ID))

	var notFound *domain.NotFoundError
	_, err = repo.GetOwned(ctx, alice.ID, book.ID)
	require.ErrorAs(t, err, &notFound)

	// Deleting again observes NotFound: after a racing delete wins, the
	// loser sees exactly this.
	err = repo.DeleteOwned(ctx, alice.ID, book.ID)
	require.ErrorAs(t, err, &notFound)

	_, err = repo.UpdateOwned(ctx, alice.ID, book.ID, domain.BookAttributes{Title: "X", Author: "Y"})
	require.ErrorAs(t, err, &notFound)
}
