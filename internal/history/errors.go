package history

import (
	"errors"
	"fmt"
)

// ConfigError reports a setting that could not be applied: a malformed
// exclusion pattern or an out-of-range numeric option. Callers surface it
// once and continue on defaults.
type ConfigError struct {
	Option  string
	Value   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("config %s=%q: %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("config %s: %s", e.Option, e.Message)
}

// PersistenceError reports a failed read, write, or parse of the history
// record. The in-memory store is never touched by a failed save; a failed
// load falls back to the newest readable backup, then to an empty record.
type PersistenceError struct {
	Op   string // "load", "save", "backup"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("history %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TransientIOError marks an existence check that could not complete, for
// example a timeout on a network mount. Cleanup treats the affected entry
// as still existing rather than deleting it on bad evidence.
type TransientIOError struct {
	Path string
	Err  error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("existence check %s: %v", e.Path, e.Err)
}

func (e *TransientIOError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsPersistenceError reports whether err is (or wraps) a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
