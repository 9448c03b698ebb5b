package repository

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "bookmanager/internal/db"
	"bookmanager/internal/domain"
)

func setupPrincipalRepo(t *testing.T) *PrincipalRepo {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	return NewPrincipalRepo(writeDB)
}

func TestPrincipalRepo_CreateAndGet(t *testing.T) {
	repo := setupPrincipalRepo(t)
	ctx := context.Background()

	p, err := repo.Create(ctx, &domain.Principal{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "alice", p.Username)
	assert.False(t, p.CreatedAt.IsZero())

	found, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	assert.Equal(t, "alice@example.com", found.Email)

	found, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
}

func TestPrincipalRepo_DuplicateUsernameConflicts(t *testing.T) {
	repo := setupPrincipalRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.Principal{Username: "alice"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.Principal{Username: "alice", Email: "other@example.com"})
	require.Error(t, err)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestPrincipalRepo_GetMissing(t *testing.T) {
	repo := setupPrincipalRepo(t)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, domain.NewID())
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = repo.GetByUsername(ctx, "nobody")
	require.ErrorAs(t, err, &notFound)
}

func TestPrincipalRepo_List(t *testing.T) {
	repo := setupPrincipalRepo(t)
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := repo.Create(ctx, &domain.Principal{Username: name})
		require.NoError(t, err)
	}

	all, total, err := repo.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].Username)

	page, total, err := repo.List(ctx, domain.PageRequest{MaxResults: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)

	next := domain.NextPageToken(0, 2, total)
	require.NotEmpty(t, next)
	rest, _, err := repo.List(ctx, domain.PageRequest{MaxResults: 2, PageToken: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "carol", rest[0].Username)
}
