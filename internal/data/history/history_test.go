package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndLoadSnapshots(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSnapshot("proj", Snapshot{
		Timestamp:    base,
		SourcePath:   "Views/Main.xaml",
		Renderer:     "structural",
		Success:      true,
		DurationMs:   12,
		WarningCount: 2,
		ElementCount: 9,
	}))
	require.NoError(t, store.SaveSnapshot("proj", Snapshot{
		Timestamp:  base.Add(time.Minute),
		SourcePath: "Views/Main.xaml",
		Renderer:   "native",
		Success:    false,
		ErrorCount: 1,
	}))

	got, err := store.LoadSnapshots("proj", time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "structural", got[0].Renderer)
	require.True(t, got[0].Success)
	require.Equal(t, 9, got[0].ElementCount)
	require.Equal(t, "native", got[1].Renderer)
	require.False(t, got[1].Success)
}

func TestLoadSnapshotsSince(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveSnapshot("proj", Snapshot{
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			SourcePath: "a.xaml",
			Renderer:   "structural",
			Success:    true,
			DurationMs: int64(i),
		}))
	}

	got, err := store.LoadSnapshots("proj", base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestUpsertSameKey(t *testing.T) {
	store := openTestStore(t)

	ts := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSnapshot("proj", Snapshot{
		Timestamp: ts, SourcePath: "a.xaml", Renderer: "structural", DurationMs: 5,
	}))
	require.NoError(t, store.SaveSnapshot("proj", Snapshot{
		Timestamp: ts, SourcePath: "a.xaml", Renderer: "native", DurationMs: 8,
	}))

	got, err := store.LoadSnapshots("proj", time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "native", got[0].Renderer)
	require.EqualValues(t, 8, got[0].DurationMs)
}

func TestLastSnapshot(t *testing.T) {
	store := openTestStore(t)

	last, err := store.LastSnapshot("proj")
	require.NoError(t, err)
	require.Nil(t, last)

	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSnapshot("proj", Snapshot{Timestamp: base, SourcePath: "a.xaml", Renderer: "structural"}))
	require.NoError(t, store.SaveSnapshot("proj", Snapshot{Timestamp: base.Add(time.Hour), SourcePath: "b.xaml", Renderer: "native"}))

	last, err = store.LastSnapshot("proj")
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, "native", last.Renderer)
}

func TestDefaultProjectKey(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SaveSnapshot("", Snapshot{SourcePath: "a.xaml", Renderer: "structural"}))
	got, err := store.LoadSnapshots("", time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "default", got[0].ProjectKey)
}
