package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SaveAndListRuns(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	runs := []*Run{
		{ID: "a", Release: "5.10.0", StartedAt: base, Duration: time.Second, Examples: 3, Failures: 1},
		{ID: "b", Release: "6.1.0", StartedAt: base.Add(time.Minute), Duration: 2 * time.Second, Examples: 3},
		{ID: "c", Release: "5.10.0", StartedAt: base.Add(2 * time.Minute), Duration: 3 * time.Second, Examples: 4,
			P50: 1500 * time.Microsecond, P95: 20 * time.Millisecond, Max: 30 * time.Millisecond},
	}
	for _, r := range runs {
		require.NoError(t, store.SaveRun(ctx, r))
	}

	all, err := store.ListRuns(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	latest := all[0]
	assert.True(t, latest.StartedAt.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, 3*time.Second, latest.Duration)
	assert.Equal(t, 1500*time.Microsecond, latest.P50)
	assert.Equal(t, 20*time.Millisecond, latest.P95)
	assert.Equal(t, 30*time.Millisecond, latest.Max)

	filtered, err := store.ListRuns(ctx, Filter{Release: "5.10.0", Limit: 1})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "c", filtered[0].ID)
}

func TestStore_DuplicateRunID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, &Run{ID: "a", Release: "5.10.0"}))
	assert.Error(t, store.SaveRun(ctx, &Run{ID: "a", Release: "5.10.0"}))
}

func TestStore_LastRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.LastRun(ctx, "5.10.0")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SaveRun(ctx, &Run{ID: "a", Release: "5.10.0", StartedAt: time.Unix(100, 0), Failures: 2}))
	require.NoError(t, store.SaveRun(ctx, &Run{ID: "b", Release: "5.10.0", StartedAt: time.Unix(200, 0)}))

	last, err := store.LastRun(ctx, "5.10.0")
	require.NoError(t, err)
	assert.Equal(t, "b", last.ID)
	assert.True(t, last.Passed())
}

func TestStore_Failures(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Failures(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SaveRun(ctx, &Run{ID: "a", Release: "5.10.0"}))
	require.NoError(t, store.SaveFailures(ctx, "a", []Failure{
		{Description: "pkg TestB", Message: "second"},
		{Description: "pkg TestA", Message: "first"},
	}))

	failures, err := store.Failures(ctx, "a")
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "pkg TestB", failures[0].Description)
	assert.Equal(t, 1, failures[1].Position)
	assert.Equal(t, "first", failures[1].Message)

	require.NoError(t, store.SaveFailures(ctx, "a", nil))
}

func TestStore_FailuresRequireRun(t *testing.T) {
	store := openStore(t)
	err := store.SaveFailures(context.Background(), "ghost", []Failure{{Description: "x"}})
	assert.Error(t, err)
}

func TestOpenReadOnly_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	_, err := OpenReadOnly(path)
	assert.ErrorIs(t, err, ErrNoHistory)

	_, statErr := os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(statErr), "directory should not be created")
}

func TestOpenReadOnly_ReadsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	rw, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, rw.SaveRun(ctx, &Run{ID: "a", Release: "5.10.0", StartedAt: time.Now()}))
	require.NoError(t, rw.Close())

	ro, err := OpenReadOnly(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ro.Close() })

	runs, err := ro.ListRuns(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "a", runs[0].ID)

	assert.Error(t, ro.SaveRun(ctx, &Run{ID: "b", Release: "5.10.0"}))
}
