package history

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// FileEvent is a host notification that a file was opened or closed.
type FileEvent struct {
	// Path is the file's location as the host sees it.
	Path string
	// Project is the scope of the session the event came from; empty means
	// the event is tracked globally only.
	Project Scope
	// View carries the host's layout position for the file, if any.
	View *ViewState
	// At is the event time; zero means now.
	At time.Time
}

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	// ResolveRealPath follows symlinks before tracking, so a file reached
	// through different links lands on one history entry.
	ResolveRealPath bool
	// Autosave persists after every event, matching an editor host where
	// the process can die without a shutdown hook. Off for batch use.
	Autosave bool
	// Exists overrides the existence probe. Defaults to StatExists.
	Exists ExistenceFunc

	Logger *zap.Logger
}

// Tracker translates host file events into store mutations: an accessible
// file is recorded in its project scope and globally, an excluded or
// vanished file has its references dropped instead.
type Tracker struct {
	store    *Store
	realPath bool
	autosave bool
	exists   ExistenceFunc
	log      *zap.Logger
}

// NewTracker wires a Tracker to the store.
func NewTracker(store *Store, opts TrackerOptions) *Tracker {
	if opts.Exists == nil {
		opts.Exists = StatExists
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Tracker{
		store:    store,
		realPath: opts.ResolveRealPath,
		autosave: opts.Autosave,
		exists:   opts.Exists,
		log:      opts.Logger,
	}
}

// OnFileOpened records that the host brought a file into view.
func (t *Tracker) OnFileOpened(ev FileEvent) error {
	return t.handle("opened", ev)
}

// OnFileClosed records that the host closed a file.
func (t *Tracker) OnFileClosed(ev FileEvent) error {
	return t.handle("closed", ev)
}

func (t *Tracker) handle(kind string, ev FileEvent) error {
	if ev.Path == "" {
		return nil
	}

	path := ev.Path
	if t.realPath {
		if real, err := filepath.EvalSymlinks(path); err == nil && real != path {
			t.log.Debug("resolved path", zap.String("from", path), zap.String("to", real))
			path = real
		}
	}

	switch {
	case t.store.Excluded(path):
		// An excluded file also loses any references it gained before the
		// pattern was configured.
		t.log.Debug("exclusion pattern blocks history tracking",
			zap.String("event", kind), zap.String("path", path))
		t.removeRefs(ev.Project, path)

	case t.pathPresent(path):
		at := ev.At
		if at.IsZero() {
			at = time.Now()
		}
		if ev.Project != "" && ev.Project != ScopeGlobal {
			t.store.Add(ev.Project, path, at, ev.View)
		}
		t.store.Add(ScopeGlobal, path, at, ev.View)
		t.log.Debug("tracked file event",
			zap.String("event", kind),
			zap.String("path", path),
			zap.String("project", string(ev.Project)))

	default:
		t.removeRefs(ev.Project, path)
	}

	if t.autosave {
		return t.store.Save()
	}
	return nil
}

// pathPresent treats a failed probe as present; only a definitive miss
// drops references.
func (t *Tracker) pathPresent(path string) bool {
	ok, err := t.exists(path)
	if err != nil {
		t.log.Debug("existence probe failed, assuming present",
			zap.String("path", path), zap.Error(err))
		return true
	}
	return ok
}

func (t *Tracker) removeRefs(project Scope, path string) {
	if project != "" && project != ScopeGlobal {
		t.store.Remove(project, path)
	}
	t.store.Remove(ScopeGlobal, path)
}
