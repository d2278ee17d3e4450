// Package history maintains bounded, most-recent-first lists of accessed
// file paths, one list per scope: a single global scope plus one scope per
// project. Scopes are deduplicated by path, capped with tail eviction,
// filtered through exclude/reinclude patterns, and persisted as a single
// JSON record with rolling backups.
package history

import (
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scope identifies one history sequence: ScopeGlobal or a project key.
type Scope string

// ScopeGlobal is the cross-project history sequence.
const ScopeGlobal Scope = "global"

// Default caps, matching the shipped settings.
const (
	DefaultGlobalMaxEntries  = 100
	DefaultProjectMaxEntries = 50
	DefaultMaxBackupCount    = 3
	DefaultIndentSize        = 2
)

// ExistenceFunc answers whether a path currently resolves on disk. A
// non-nil error means the check itself failed (slow mount, permission
// blip); cleanup then keeps the entry.
type ExistenceFunc func(path string) (bool, error)

// StatExists is the default ExistenceFunc, backed by os.Stat.
func StatExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, &TransientIOError{Path: path, Err: err}
}

// Options configures a Store. Zero values fall back to defaults.
type Options struct {
	// Path is the history file location. Empty disables persistence.
	Path string

	GlobalMaxEntries  int
	ProjectMaxEntries int

	// MaxBackupCount bounds the rolling daily backups of the history
	// file; zero or negative disables backups.
	MaxBackupCount int

	PrettyPrint bool
	IndentSize  int

	// Exists overrides the existence check used by cleanup and filtered
	// listings. Defaults to StatExists.
	Exists ExistenceFunc

	Logger *zap.Logger
}

// Store holds the in-process history state. All mutations serialize through
// a single lock; background cleanup snapshots under the lock, checks
// existence outside it, and swaps results back in atomically.
type Store struct {
	mu       sync.RWMutex
	global   []Entry
	projects map[Scope][]Entry

	filter *PatternFilter
	exists ExistenceFunc

	path           string
	globalMax      int
	projectMax     int
	maxBackupCount int
	pretty         bool
	indentSize     int

	dirty bool
	// generation is bumped by Reset and Load; an in-flight cleanup whose
	// snapshot predates the current generation discards its result.
	generation uint64

	log *zap.Logger
}

// New creates an empty store. Call Load to pull in a persisted record.
func New(opts Options) *Store {
	if opts.GlobalMaxEntries <= 0 {
		opts.GlobalMaxEntries = DefaultGlobalMaxEntries
	}
	if opts.ProjectMaxEntries <= 0 {
		opts.ProjectMaxEntries = DefaultProjectMaxEntries
	}
	if opts.IndentSize <= 0 {
		opts.IndentSize = DefaultIndentSize
	}
	if opts.Exists == nil {
		opts.Exists = StatExists
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Store{
		projects:       make(map[Scope][]Entry),
		exists:         opts.Exists,
		path:           opts.Path,
		globalMax:      opts.GlobalMaxEntries,
		projectMax:     opts.ProjectMaxEntries,
		maxBackupCount: opts.MaxBackupCount,
		pretty:         opts.PrettyPrint,
		indentSize:     opts.IndentSize,
		log:            opts.Logger,
	}
}

// SetExclusionPatterns compiles and installs the exclude/reinclude pattern
// set. Malformed patterns are rejected as a whole: the previous filter stays
// active and a ConfigError names the bad pattern.
func (s *Store) SetExclusionPatterns(exclude, reinclude []string) error {
	filter, err := NewPatternFilter(exclude, reinclude)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	return nil
}

// Excluded reports whether the active pattern set suppresses path.
func (s *Store) Excluded(path string) bool {
	s.mu.RLock()
	filter := s.filter
	s.mu.RUnlock()
	return filter.Excluded(path)
}

// Add records an access of path in the given scope at the given time. An
// existing entry for the same path is moved to the front rather than
// duplicated; the tail is evicted beyond the scope's cap. Excluded and
// empty paths are ignored. Reports whether the scope changed.
func (s *Store) Add(scope Scope, path string, at time.Time, view *ViewState) bool {
	if path == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter.Excluded(path) {
		s.log.Debug("path excluded from history",
			zap.String("path", path), zap.String("scope", string(scope)))
		return false
	}

	entries := s.entriesLocked(scope)
	entries = removeByPath(entries, path)

	entry := Entry{Path: path, LastAccess: At(at)}
	if view != nil {
		vs := *view
		entry.ViewState = &vs
	}
	entries = append([]Entry{entry}, entries...)

	if limit := s.capFor(scope); len(entries) > limit {
		entries = entries[:limit]
	}

	s.setEntriesLocked(scope, entries)
	s.dirty = true
	return true
}

// Remove deletes the entry for path from the scope, if present.
func (s *Store) Remove(scope Scope, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.entriesLocked(scope)
	trimmed := removeByPath(entries, path)
	if len(trimmed) == len(entries) {
		return false
	}
	s.setEntriesLocked(scope, trimmed)
	s.dirty = true
	return true
}

// RemoveEverywhere deletes the entry for path from every scope. The
// tracker does this when a path becomes excluded or vanishes.
func (s *Store) RemoveEverywhere(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	trimmed := removeByPath(s.global, path)
	if len(trimmed) != len(s.global) {
		s.global = trimmed
		removed++
	}
	for scope, entries := range s.projects {
		trimmed := removeByPath(entries, path)
		if len(trimmed) != len(entries) {
			s.projects[scope] = trimmed
			removed++
		}
	}
	if removed > 0 {
		s.dirty = true
	}
	return removed
}

// Reset clears the given scope.
func (s *Store) Reset(scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scope == ScopeGlobal {
		s.global = nil
	} else {
		delete(s.projects, scope)
	}
	s.generation++
	s.dirty = true
}

// ResetAll clears every scope.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.global = nil
	s.projects = make(map[Scope][]Entry)
	s.generation++
	s.dirty = true
}

// List returns a copy of the scope's entries, most recent first.
func (s *Store) List(scope Scope) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.entriesLocked(scope))
}

// ListExisting returns the scope's entries, skipping paths that no longer
// resolve. Nothing is removed; a failed check counts as existing.
func (s *Store) ListExisting(scope Scope) []Entry {
	entries := s.List(scope)

	out := entries[:0]
	for _, e := range entries {
		ok, err := s.exists(e.Path)
		if err != nil {
			// Unknown is treated as present; cleanup owns removal.
			ok = true
		}
		if ok {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the number of entries in the scope.
func (s *Store) Len(scope Scope) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entriesLocked(scope))
}

// ProjectScopes returns the known project keys, sorted.
func (s *Store) ProjectScopes() []Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scopes := make([]Scope, 0, len(s.projects))
	for scope := range s.projects {
		scopes = append(scopes, scope)
	}
	sort.Slice(scopes, func(i, j int) bool { return scopes[i] < scopes[j] })
	return scopes
}

// MigrateProject renames a project scope, merging into the target when it
// already has entries (newest access per path wins). Used when a host
// upgrades an older folder-hash key to a project file path.
func (s *Store) MigrateProject(old, new Scope) bool {
	if old == new || old == ScopeGlobal || new == ScopeGlobal {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.projects[old]
	if !ok {
		return false
	}
	delete(s.projects, old)

	if existing, ok := s.projects[new]; ok {
		entries = mergeLegacyLists(entries, existing)
		if len(entries) > s.projectMax {
			entries = entries[:s.projectMax]
		}
	}
	s.projects[new] = entries
	s.dirty = true
	return true
}

// SetLimits installs new scope caps and re-truncates existing scopes.
func (s *Store) SetLimits(globalMax, projectMax int) {
	if globalMax <= 0 {
		globalMax = DefaultGlobalMaxEntries
	}
	if projectMax <= 0 {
		projectMax = DefaultProjectMaxEntries
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.globalMax = globalMax
	s.projectMax = projectMax

	if len(s.global) > globalMax {
		s.global = s.global[:globalMax]
		s.dirty = true
	}
	for scope, entries := range s.projects {
		if len(entries) > projectMax {
			s.projects[scope] = entries[:projectMax]
			s.dirty = true
		}
	}
}

// Dirty reports whether the store changed since the last successful save.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *Store) capFor(scope Scope) int {
	if scope == ScopeGlobal {
		return s.globalMax
	}
	return s.projectMax
}

func (s *Store) entriesLocked(scope Scope) []Entry {
	if scope == ScopeGlobal {
		return s.global
	}
	return s.projects[scope]
}

func (s *Store) setEntriesLocked(scope Scope, entries []Entry) {
	if scope == ScopeGlobal {
		s.global = entries
		return
	}
	if len(entries) == 0 {
		delete(s.projects, scope)
		return
	}
	s.projects[scope] = entries
}

func removeByPath(entries []Entry, path string) []Entry {
	out := entries
	for i, e := range entries {
		if e.Path == path {
			out = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	return out
}
