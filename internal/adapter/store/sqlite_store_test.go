package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uigen/internal/domain/entity"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "generations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func steppingClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * step)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	for _, p := range []string{"", "   ", "\t"} {
		s, err := OpenSQLite(context.Background(), p)
		assert.Nil(t, s)
		assert.ErrorContains(t, err, "empty database path")
	}
}

func TestOpenSQLite_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "g.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	_, err = s.CreateGeneration(ctx, entity.NewGeneration{Prompt: "p", DesignSpec: "d", Code: "c", OutputFormat: "html", Framework: "tailwind"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetRecentGenerations(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLiteStore_CreateGeneration(t *testing.T) {
	s := openTestSQLite(t)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	rec, err := s.CreateGeneration(context.Background(), entity.NewGeneration{
		Prompt:       "Create a login form with email and password fields",
		DesignSpec:   "## Overview",
		Code:         "<form></form>",
		OutputFormat: "html",
		Framework:    "tailwind",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, fixed, rec.CreatedAt)

	got, err := s.GetRecentGenerations(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, rec.Prompt, got[0].Prompt)
	assert.Equal(t, "## Overview", got[0].DesignSpec)
	assert.Equal(t, "<form></form>", got[0].Code)
	assert.Equal(t, "html", got[0].OutputFormat)
	assert.Equal(t, "tailwind", got[0].Framework)
	assert.True(t, fixed.Equal(got[0].CreatedAt))
}

func TestSQLiteStore_GetRecentGenerations_Empty(t *testing.T) {
	s := openTestSQLite(t)

	got, err := s.GetRecentGenerations(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSQLiteStore_GetRecentGenerations_NewestFirst(t *testing.T) {
	s := openTestSQLite(t)
	s.now = steppingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	ctx := context.Background()

	ids := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		rec, err := s.CreateGeneration(ctx, entity.NewGeneration{
			Prompt: fmt.Sprintf("prompt %02d", i), DesignSpec: "d", Code: "c", OutputFormat: "vue", Framework: "material",
		})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	got, err := s.GetRecentGenerations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 10)
	for i := range got {
		assert.Equal(t, ids[14-i], got[i].ID)
		if i > 0 {
			assert.True(t, got[i-1].CreatedAt.After(got[i].CreatedAt))
		}
	}
}

func TestSQLiteStore_SameTimestampKeepsInsertOrder(t *testing.T) {
	s := openTestSQLite(t)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	first, err := s.CreateGeneration(ctx, entity.NewGeneration{Prompt: "a", OutputFormat: "html", Framework: "chakra"})
	require.NoError(t, err)
	second, err := s.CreateGeneration(ctx, entity.NewGeneration{Prompt: "b", OutputFormat: "html", Framework: "chakra"})
	require.NoError(t, err)

	got, err := s.GetRecentGenerations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
}

func TestSQLiteStore_ClosedDatabase(t *testing.T) {
	s := openTestSQLite(t)
	require.NoError(t, s.Close())

	_, err := s.CreateGeneration(context.Background(), entity.NewGeneration{Prompt: "p"})
	assert.ErrorIs(t, err, entity.ErrPersistence)

	_, err = s.GetRecentGenerations(context.Background(), 10)
	assert.ErrorIs(t, err, entity.ErrPersistence)
}

func TestSQLiteStore_ConcurrentInserts(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	const writers = 64
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateGeneration(ctx, entity.NewGeneration{
				Prompt: fmt.Sprintf("concurrent prompt %02d", i), DesignSpec: "d", Code: "c", OutputFormat: "react", Framework: "shadcn",
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM generations").Scan(&n))
	assert.Equal(t, writers, n)
}

func TestOpenSQLite_PragmasOnEveryConnection(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	// Hold two connections at once so the pool cannot hand back the same one.
	c1, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer c2.Close()

	for _, c := range []interface {
		QueryRowContext(context.Context, string, ...any) *sql.Row
	}{c1, c2} {
		var timeout int
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA busy_timeout;").Scan(&timeout))
		assert.Equal(t, 5000, timeout)

		var mode string
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode))
		assert.Equal(t, "wal", mode)
	}
}
