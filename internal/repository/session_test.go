package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/vidvote/internal/repository"
	"github.com/and161185/vidvote/internal/repository/file"
	"github.com/and161185/vidvote/internal/repository/memory"
	"github.com/and161185/vidvote/internal/repository/sqlite"
)

func backends(t *testing.T) map[string]repository.SessionRepository {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return map[string]repository.SessionRepository{
		"memory": memory.New(),
		"file":   file.New(t.TempDir()),
		"sqlite": db,
	}
}

func TestSessionRepository_Contract(t *testing.T) {
	t.Parallel()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := repo.Get(ctx, repository.KeyToken)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, repo.Set(ctx, repository.KeyToken, "t1"))
			require.NoError(t, repo.Set(ctx, repository.KeyUser, `{"first_name":"Ana"}`))
			v, ok, err := repo.Get(ctx, repository.KeyToken)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "t1", v)

			require.NoError(t, repo.Set(ctx, repository.KeyToken, "t2"))
			v, _, _ = repo.Get(ctx, repository.KeyToken)
			require.Equal(t, "t2", v)

			require.NoError(t, repo.Remove(ctx, repository.KeyToken))
			require.NoError(t, repo.Remove(ctx, repository.KeyToken))
			_, ok, err = repo.Get(ctx, repository.KeyToken)
			require.NoError(t, err)
			require.False(t, ok)

			v, ok, err = repo.Get(ctx, repository.KeyUser)
			require.NoError(t, err)
			require.True(t, ok)
			require.JSONEq(t, `{"first_name":"Ana"}`, v)
		})
	}
}
