package history

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Load replaces the in-memory state with the persisted record. A missing
// file yields an empty store. A corrupt file falls back to the newest
// readable backup; only when no backup can be recovered does Load install
// an empty record and report a PersistenceError. In-flight cleanups are
// invalidated either way.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.install(&Record{}, false)
			return nil
		}
		s.install(&Record{}, false)
		return &PersistenceError{Op: "load", Path: s.path, Err: err}
	}

	rec, migrated, err := DecodeRecord(data)
	if err == nil {
		if migrated {
			s.log.Info("migrated legacy history record", zap.String("path", s.path))
		}
		s.install(rec, migrated)
		return nil
	}

	s.log.Warn("history record unreadable, trying backups",
		zap.String("path", s.path), zap.Error(err))

	if rec, backup := s.recoverFromBackup(); rec != nil {
		s.log.Warn("recovered history from backup", zap.String("backup", backup))
		// Dirty so the next save rewrites the main record.
		s.install(rec, true)
		return nil
	}

	s.install(&Record{}, false)
	return &PersistenceError{Op: "load", Path: s.path, Err: err}
}

// install swaps the decoded record in as the new state, truncating scopes
// to their caps and bumping the generation so stale cleanups are dropped.
func (s *Store) install(rec *Record, dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	global := rec.Global
	if len(global) > s.globalMax {
		global = global[:s.globalMax]
		dirty = true
	}
	projects := make(map[Scope][]Entry, len(rec.Projects))
	for key, entries := range rec.Projects {
		if len(entries) == 0 {
			continue
		}
		if len(entries) > s.projectMax {
			entries = entries[:s.projectMax]
			dirty = true
		}
		projects[Scope(key)] = entries
	}

	s.global = global
	s.projects = projects
	s.generation++
	s.dirty = dirty
}

// Save writes the current record to the history file, replacing it
// atomically via a temporary file. The previous version is kept as a
// rolling daily backup, pruned to the configured count. In-memory state is
// untouched on failure.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &Record{
		Global:   s.global,
		Projects: make(map[string][]Entry, len(s.projects)),
	}
	for scope, entries := range s.projects {
		rec.Projects[string(scope)] = entries
	}

	data, err := EncodeRecord(rec, s.pretty, s.indentSize)
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	if s.maxBackupCount > 0 {
		if err := backupDaily(s.path, time.Now(), s.maxBackupCount); err != nil {
			// Backups are best effort; the save itself proceeds.
			s.log.Warn("history backup failed", zap.Error(err))
		}
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	s.dirty = false
	return nil
}

// SaveIfDirty persists only when the store changed since the last save.
func (s *Store) SaveIfDirty() error {
	if !s.Dirty() {
		return nil
	}
	return s.Save()
}

// Path returns the history file location, empty when persistence is off.
func (s *Store) Path() string {
	return s.path
}

// writeFileAtomic writes data to a uniquely named sibling temp file and
// renames it over path, so readers never observe a partial record.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
