package history

import (
	"context"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// cleanupConcurrency bounds parallel existence checks; paths may live on
// slow network mounts.
const cleanupConcurrency = 8

// CleanupResult summarizes a cleanup pass.
type CleanupResult struct {
	// Removed counts entries dropped because their path no longer resolves.
	Removed int
	// OrphanedProjects counts project scopes deleted outright.
	OrphanedProjects int
}

// Cleanup removes entries from the scope whose paths no longer resolve on
// disk. Existence checks run outside the store lock with bounded
// concurrency; results are swapped back in only if the store was not reset
// or reloaded meanwhile, and only for entries still carrying the snapshotted
// access time. Transient check failures keep the entry.
func (s *Store) Cleanup(ctx context.Context, scope Scope) (int, error) {
	snapshot, gen := s.snapshotScope(scope)
	if len(snapshot) == 0 {
		return 0, nil
	}

	missing, err := s.missingPaths(ctx, snapshot)
	if err != nil {
		return 0, err
	}
	if len(missing) == 0 {
		return 0, nil
	}
	return s.applyCleanup(scope, missing, gen), nil
}

// CleanupAll cleans the global scope and every project scope. Project
// scopes whose key is a filesystem path that no longer exists and is not in
// active are dropped entirely; keys that are not paths (folder-set hashes)
// are kept, since their liveness cannot be checked.
func (s *Store) CleanupAll(ctx context.Context, active []Scope) (CleanupResult, error) {
	var res CleanupResult

	activeSet := make(map[Scope]bool, len(active))
	for _, scope := range active {
		activeSet[scope] = true
	}

	scopes := append([]Scope{ScopeGlobal}, s.ProjectScopes()...)
	for _, scope := range scopes {
		if scope != ScopeGlobal && s.orphanedProject(scope, activeSet) {
			s.log.Info("removing orphaned project from history",
				zap.String("project", string(scope)))
			s.Reset(scope)
			res.OrphanedProjects++
			continue
		}

		removed, err := s.Cleanup(ctx, scope)
		if err != nil {
			return res, err
		}
		res.Removed += removed
	}
	return res, nil
}

// orphanedProject reports whether a project scope should be dropped: its
// key looks like a project file path, that path is gone, and no active
// session claims it.
func (s *Store) orphanedProject(scope Scope, active map[Scope]bool) bool {
	if active[scope] {
		return false
	}
	key := string(scope)
	if !filepath.IsAbs(key) {
		return false
	}
	ok, err := s.exists(key)
	if err != nil {
		return false
	}
	return !ok
}

func (s *Store) snapshotScope(scope Scope) ([]Entry, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.entriesLocked(scope)), s.generation
}

// missingPaths checks each snapshotted path and returns those that
// definitively do not resolve, keyed by path with the snapshotted access
// time. A check error keeps the path.
func (s *Store) missingPaths(ctx context.Context, snapshot []Entry) (map[string]Timestamp, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cleanupConcurrency)

	var mu sync.Mutex
	missing := make(map[string]Timestamp)

	for _, entry := range snapshot {
		entry := entry // per-iteration copy; go directive predates 1.22 loopvar semantics
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := s.exists(entry.Path)
			if err != nil {
				s.log.Debug("existence check failed, keeping entry",
					zap.String("path", entry.Path), zap.Error(err))
				return nil
			}
			if !ok {
				mu.Lock()
				missing[entry.Path] = entry.LastAccess
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return missing, nil
}

// applyCleanup removes the missing entries from the scope, provided the
// store generation still matches the snapshot. An entry re-added since the
// snapshot carries a newer access time and survives.
func (s *Store) applyCleanup(scope Scope, missing map[string]Timestamp, gen uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		s.log.Debug("discarding stale cleanup result",
			zap.String("scope", string(scope)))
		return 0
	}

	entries := s.entriesLocked(scope)
	kept := make([]Entry, 0, len(entries))
	removed := 0
	for _, e := range entries {
		if at, ok := missing[e.Path]; ok && e.LastAccess.Equal(at) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return 0
	}

	s.setEntriesLocked(scope, kept)
	s.dirty = true
	s.log.Debug("cleanup removed entries",
		zap.String("scope", string(scope)), zap.Int("removed", removed))
	return removed
}
