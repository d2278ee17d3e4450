package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// existsSet fakes the filesystem: only listed paths resolve.
func existsSet(present ...string) ExistenceFunc {
	set := make(map[string]bool, len(present))
	for _, p := range present {
		set[p] = true
	}
	return func(path string) (bool, error) {
		return set[path], nil
	}
}

func TestCleanup(t *testing.T) {
	t.Run("removes entries whose paths are gone", func(t *testing.T) {
		s := New(Options{Exists: existsSet("/here.txt")})
		s.Add(ScopeGlobal, "/gone.txt", tick(0), nil)
		s.Add(ScopeGlobal, "/here.txt", tick(1), nil)
		s.Add(ScopeGlobal, "/also-gone.txt", tick(2), nil)

		removed, err := s.Cleanup(context.Background(), ScopeGlobal)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)
		assert.Equal(t, []string{"/here.txt"}, paths(s.List(ScopeGlobal)))

		// A second pass finds nothing left to remove.
		removed, err = s.Cleanup(context.Background(), ScopeGlobal)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run("empty scope is a no-op", func(t *testing.T) {
		s := New(Options{Exists: existsSet()})
		removed, err := s.Cleanup(context.Background(), ScopeGlobal)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run("transient check failure keeps the entry", func(t *testing.T) {
		flaky := func(path string) (bool, error) {
			return false, &TransientIOError{Path: path, Err: errors.New("timeout")}
		}
		s := New(Options{Exists: flaky})
		s.Add(ScopeGlobal, "/nfs/doc.txt", tick(0), nil)

		removed, err := s.Cleanup(context.Background(), ScopeGlobal)
		require.NoError(t, err)
		assert.Zero(t, removed)
		assert.Equal(t, 1, s.Len(ScopeGlobal))
	})

	t.Run("entry re-added during the check survives", func(t *testing.T) {
		var s *Store
		probe := func(path string) (bool, error) {
			// The file comes back (with a fresh access) while the
			// background check is in flight.
			s.Add(ScopeGlobal, "/flick.txt", tick(9), nil)
			return false, nil
		}
		s = New(Options{Exists: probe})
		s.Add(ScopeGlobal, "/flick.txt", tick(0), nil)

		removed, err := s.Cleanup(context.Background(), ScopeGlobal)
		require.NoError(t, err)
		assert.Zero(t, removed)

		got := s.List(ScopeGlobal)
		require.Len(t, got, 1)
		assert.Equal(t, tick(9).Unix(), got[0].LastAccess.Unix())
	})

	t.Run("reset while checking discards the result", func(t *testing.T) {
		var s *Store
		probe := func(path string) (bool, error) {
			s.Reset(ScopeGlobal)
			// Same path, same timestamp: only the generation guard
			// protects this entry.
			s.Add(ScopeGlobal, "/flick.txt", tick(0), nil)
			return false, nil
		}
		s = New(Options{Exists: probe})
		s.Add(ScopeGlobal, "/flick.txt", tick(0), nil)

		removed, err := s.Cleanup(context.Background(), ScopeGlobal)
		require.NoError(t, err)
		assert.Zero(t, removed)
		assert.Equal(t, 1, s.Len(ScopeGlobal))
	})

	t.Run("cancelled context abandons the pass", func(t *testing.T) {
		s := New(Options{Exists: existsSet()})
		s.Add(ScopeGlobal, "/gone.txt", tick(0), nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.Cleanup(ctx, ScopeGlobal)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, s.Len(ScopeGlobal))
	})
}

func TestCleanupAll(t *testing.T) {
	t.Run("cleans every scope", func(t *testing.T) {
		s := New(Options{Exists: existsSet("/keep.txt", "/proj/keep.go")})
		s.Add(ScopeGlobal, "/keep.txt", tick(0), nil)
		s.Add(ScopeGlobal, "/gone.txt", tick(1), nil)
		s.Add(Scope("cafebabe"), "/proj/keep.go", tick(0), nil)
		s.Add(Scope("cafebabe"), "/proj/gone.go", tick(1), nil)

		res, err := s.CleanupAll(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Removed)
		assert.Zero(t, res.OrphanedProjects)
		assert.Equal(t, []string{"/keep.txt"}, paths(s.List(ScopeGlobal)))
		assert.Equal(t, []string{"/proj/keep.go"}, paths(s.List(Scope("cafebabe"))))
	})

	t.Run("drops project scopes whose project file is gone", func(t *testing.T) {
		s := New(Options{Exists: existsSet("/a.txt", "/live/x.project")})
		s.Add(Scope("/dead/y.project"), "/a.txt", tick(0), nil)
		s.Add(Scope("/live/x.project"), "/a.txt", tick(0), nil)

		res, err := s.CleanupAll(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, res.OrphanedProjects)
		assert.Empty(t, s.List(Scope("/dead/y.project")))
		assert.Equal(t, []string{"/a.txt"}, paths(s.List(Scope("/live/x.project"))))
	})

	t.Run("active project scopes are never orphaned", func(t *testing.T) {
		s := New(Options{Exists: existsSet("/a.txt")})
		s.Add(Scope("/dead/y.project"), "/a.txt", tick(0), nil)

		res, err := s.CleanupAll(context.Background(), []Scope{"/dead/y.project"})
		require.NoError(t, err)
		assert.Zero(t, res.OrphanedProjects)
		assert.Equal(t, 1, s.Len(Scope("/dead/y.project")))
	})

	t.Run("hash keys cannot be orphaned", func(t *testing.T) {
		s := New(Options{Exists: existsSet("/a.txt")})
		s.Add(Scope("d41d8cd98f00b204e9800998ecf8427e"), "/a.txt", tick(0), nil)

		res, err := s.CleanupAll(context.Background(), nil)
		require.NoError(t, err)
		assert.Zero(t, res.OrphanedProjects)
		assert.Equal(t, 1, s.Len(Scope("d41d8cd98f00b204e9800998ecf8427e")))
	})
}
