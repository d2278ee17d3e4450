package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempHistoryPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "history.json")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := tempHistoryPath(t)

	s := New(Options{Path: path})
	s.Add(ScopeGlobal, "/a.txt", tick(0), &ViewState{Group: 0, Index: 1})
	s.Add(ScopeGlobal, "/b.txt", tick(1), nil)
	s.Add(Scope("/proj/x.project"), "/proj/main.go", tick(2), nil)

	require.NoError(t, s.Save())
	assert.False(t, s.Dirty())

	reloaded := New(Options{Path: path})
	require.NoError(t, reloaded.Load())

	assert.Equal(t, []string{"/b.txt", "/a.txt"}, paths(reloaded.List(ScopeGlobal)))
	assert.Equal(t, []string{"/proj/main.go"}, paths(reloaded.List(Scope("/proj/x.project"))))
	assert.False(t, reloaded.Dirty())

	got := reloaded.List(ScopeGlobal)
	require.NotNil(t, got[1].ViewState)
	assert.Equal(t, ViewState{Group: 0, Index: 1}, *got[1].ViewState)
	assert.Equal(t, tick(1).Unix(), got[0].LastAccess.Unix())
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	path := tempHistoryPath(t)

	s := New(Options{Path: path})
	s.Add(ScopeGlobal, "/a.txt", tick(0), nil)
	require.NoError(t, s.Save())

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSaveWithoutPathIsNoop(t *testing.T) {
	s := New(Options{})
	s.Add(ScopeGlobal, "/a.txt", tick(0), nil)
	require.NoError(t, s.Save())
	require.NoError(t, s.Load())
	assert.Equal(t, 1, s.Len(ScopeGlobal))
}

func TestLoadMissingFile(t *testing.T) {
	s := New(Options{Path: tempHistoryPath(t)})
	s.Add(ScopeGlobal, "/stale.txt", tick(0), nil)

	require.NoError(t, s.Load())
	assert.Empty(t, s.List(ScopeGlobal))
}

func TestLoadCorruptFile(t *testing.T) {
	t.Run("no backup falls back to empty and reports", func(t *testing.T) {
		path := tempHistoryPath(t)
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		s := New(Options{Path: path})
		err := s.Load()
		require.Error(t, err)
		assert.True(t, IsPersistenceError(err))
		assert.Empty(t, s.List(ScopeGlobal))
	})

	t.Run("recovers from the newest readable backup", func(t *testing.T) {
		path := tempHistoryPath(t)

		older := backupPathFor(path, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
		newer := backupPathFor(path, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC))
		require.NoError(t, os.WriteFile(older, []byte(`{"global": [{"path": "/old.txt", "last_access_time": 1}], "projects": {}}`), 0o644))
		require.NoError(t, os.WriteFile(newer, []byte(`{"global": [{"path": "/new.txt", "last_access_time": 2}], "projects": {}}`), 0o644))
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		s := New(Options{Path: path})
		require.NoError(t, s.Load())
		assert.Equal(t, []string{"/new.txt"}, paths(s.List(ScopeGlobal)))
		// Dirty so the next save repairs the main record.
		assert.True(t, s.Dirty())
	})

	t.Run("skips unreadable backups", func(t *testing.T) {
		path := tempHistoryPath(t)

		bad := backupPathFor(path, time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC))
		good := backupPathFor(path, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, os.WriteFile(bad, []byte("also broken"), 0o644))
		require.NoError(t, os.WriteFile(good, []byte(`{"global": [{"path": "/ok.txt", "last_access_time": 1}], "projects": {}}`), 0o644))
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		s := New(Options{Path: path})
		require.NoError(t, s.Load())
		assert.Equal(t, []string{"/ok.txt"}, paths(s.List(ScopeGlobal)))
	})
}

func TestLoadLegacyRecord(t *testing.T) {
	path := tempHistoryPath(t)
	legacy := `{
		"global": {
			"closed": [{"filename": "/old.txt", "group": 0, "index": 0, "timestamp": 1600000000}],
			"opened": []
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	s := New(Options{Path: path})
	require.NoError(t, s.Load())
	assert.Equal(t, []string{"/old.txt"}, paths(s.List(ScopeGlobal)))
	// Migration marks the store dirty so the new shape gets written out.
	require.True(t, s.Dirty())

	require.NoError(t, s.Save())
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	rec, migrated, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.False(t, migrated)
	assert.Equal(t, "/old.txt", rec.Global[0].Path)
}

func TestLoadTruncatesOversizedScopes(t *testing.T) {
	path := tempHistoryPath(t)
	record := `{
		"global": [
			{"path": "/1", "last_access_time": 5},
			{"path": "/2", "last_access_time": 4},
			{"path": "/3", "last_access_time": 3}
		],
		"projects": {}
	}`
	require.NoError(t, os.WriteFile(path, []byte(record), 0o644))

	s := New(Options{Path: path, GlobalMaxEntries: 2})
	require.NoError(t, s.Load())
	assert.Equal(t, []string{"/1", "/2"}, paths(s.List(ScopeGlobal)))
	assert.True(t, s.Dirty())
}

func TestBackupRotation(t *testing.T) {
	path := tempHistoryPath(t)

	s := New(Options{Path: path, MaxBackupCount: 2})
	s.Add(ScopeGlobal, "/a.txt", tick(0), nil)
	require.NoError(t, s.Save())

	// First save has nothing to snapshot.
	assert.Empty(t, backupFiles(path))

	s.Add(ScopeGlobal, "/b.txt", tick(1), nil)
	require.NoError(t, s.Save())

	backups := backupFiles(path)
	require.Len(t, backups, 1)
	assert.Equal(t, backupPathFor(path, time.Now()), backups[0])

	// The snapshot holds the state before the second save.
	data, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	rec, _, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a.txt"}, paths(rec.Global))

	// A third save the same day reuses the existing daily backup.
	s.Add(ScopeGlobal, "/c.txt", tick(2), nil)
	require.NoError(t, s.Save())
	assert.Len(t, backupFiles(path), 1)
}

func TestBackupPruning(t *testing.T) {
	path := tempHistoryPath(t)

	stale := []string{
		backupPathFor(path, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
		backupPathFor(path, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)),
		backupPathFor(path, time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC)),
	}
	for _, b := range stale {
		require.NoError(t, os.WriteFile(b, []byte("{}"), 0o644))
	}

	s := New(Options{Path: path, MaxBackupCount: 2})
	s.Add(ScopeGlobal, "/a.txt", tick(0), nil)
	require.NoError(t, s.Save()) // no snapshot yet, but pruning is skipped too
	s.Add(ScopeGlobal, "/b.txt", tick(1), nil)
	require.NoError(t, s.Save()) // snapshots today, then prunes

	backups := backupFiles(path)
	require.Len(t, backups, 2)
	assert.Equal(t, backupPathFor(path, time.Now()), backups[0])
	assert.Equal(t, stale[2], backups[1])
}

func TestDeleteBackups(t *testing.T) {
	path := tempHistoryPath(t)
	for _, day := range []time.Time{
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
	} {
		require.NoError(t, os.WriteFile(backupPathFor(path, day), []byte("{}"), 0o644))
	}

	s := New(Options{Path: path})
	assert.Equal(t, 2, s.DeleteBackups())
	assert.Empty(t, backupFiles(path))
}

func TestBackupNaming(t *testing.T) {
	day := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "/data/history_20260823.json",
		backupPathFor("/data/history.json", day))
	assert.Equal(t, "/data/history_20260823",
		backupPathFor("/data/history", day))
}
