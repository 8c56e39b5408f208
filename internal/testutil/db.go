package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/qcase/internal/store"
)

// NewSQLite opens a SQLite store in a temp directory and runs stmts on it.
// The store is closed when the test ends.
func NewSQLite(t testing.TB, stmts ...string) *store.Store {
	t.Helper()
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	for _, stmt := range stmts {
		_, err := s.Exec(ctx, stmt)
		require.NoError(t, err, stmt)
	}
	return s
}

// NewBlog opens a SQLite store with the blog fixture tables created and
// seeded.
func NewBlog(t testing.TB) *store.Store {
	t.Helper()
	return NewSQLite(t, append(append([]string{}, BlogDDL...), BlogSeed...)...)
}
