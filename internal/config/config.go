// Package config loads the filehist settings file and maps it onto the
// history engine's options.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"filehist/internal/history"
)

// DefaultTimestampFormat renders access times in listings, in Go reference
// layout form.
const DefaultTimestampFormat = "2006-01-02 @ 15:04:05"

// Settings holds all filehist configuration.
type Settings struct {
	// Where the history record lives.
	HistoryFile string `yaml:"history_file"`

	// Per-scope caps.
	GlobalMaxEntries  int `yaml:"global_max_entries"`
	ProjectMaxEntries int `yaml:"project_max_entries"`

	// Startup behavior.
	CleanupOnStartup   bool `yaml:"cleanup_on_startup"`
	DeleteAllOnStartup bool `yaml:"delete_all_on_startup"`

	// Pattern filtering.
	PathExcludePatterns   []string `yaml:"path_exclude_patterns"`
	PathReincludePatterns []string `yaml:"path_reinclude_patterns"`

	// Persistence shape.
	MaxBackupCount     int  `yaml:"max_backup_count"`
	PrettyPrintHistory bool `yaml:"pretty_print_history"`
	IndentSize         int  `yaml:"indent_size"`

	// Follow symlinks before tracking.
	RealPath bool `yaml:"real_path"`

	// Listing and browser presentation.
	TimestampShow     bool   `yaml:"timestamp_show"`
	TimestampFormat   string `yaml:"timestamp_format"`
	TimestampRelative bool   `yaml:"timestamp_relative"`
	ShowFilePreview   bool   `yaml:"show_file_preview"`

	// Drop entries the browser discovers missing while previewing.
	RemoveNonexistentOnPreview bool `yaml:"remove_non_existent_files_on_preview"`

	Debug bool `yaml:"debug"`
}

// DefaultSettings returns the shipped defaults.
func DefaultSettings() *Settings {
	return &Settings{
		HistoryFile:       DefaultHistoryPath(),
		GlobalMaxEntries:  history.DefaultGlobalMaxEntries,
		ProjectMaxEntries: history.DefaultProjectMaxEntries,

		CleanupOnStartup:   true,
		DeleteAllOnStartup: false,

		MaxBackupCount:     history.DefaultMaxBackupCount,
		PrettyPrintHistory: false,
		IndentSize:         history.DefaultIndentSize,

		RealPath: false,

		TimestampShow:     true,
		TimestampFormat:   DefaultTimestampFormat,
		TimestampRelative: true,
		ShowFilePreview:   true,

		RemoveNonexistentOnPreview: true,
	}
}

// DefaultHistoryPath places the history record under the user config
// directory.
func DefaultHistoryPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".filehist", "history.json")
	}
	return filepath.Join(base, "filehist", "history.json")
}

// DefaultSettingsPath places the settings file next to the history record.
func DefaultSettingsPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".filehist", "settings.yaml")
	}
	return filepath.Join(base, "filehist", "settings.yaml")
}

// Load reads settings from a YAML file, starting from defaults. A missing
// file yields the defaults; a malformed file is an error. Out-of-range
// values are corrected afterwards by Normalize, not here.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.applyEnvOverrides()
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	s.applyEnvOverrides()
	return s, nil
}

// Save writes the settings to a YAML file.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (s *Settings) applyEnvOverrides() {
	if path := os.Getenv("FILEHIST_FILE"); path != "" {
		s.HistoryFile = path
	}
	if os.Getenv("FILEHIST_DEBUG") != "" {
		s.Debug = true
	}
}

// Normalize corrects out-of-range values in place, each correction falling
// back to its default, and reports what was fixed. A zero numeric value
// counts as unset, not as an error. Malformed patterns clear both pattern
// lists.
func (s *Settings) Normalize() []error {
	var issues []error

	if s.GlobalMaxEntries < 0 {
		issues = append(issues, &history.ConfigError{
			Option:  "global_max_entries",
			Value:   fmt.Sprint(s.GlobalMaxEntries),
			Message: "must be positive",
		})
	}
	if s.GlobalMaxEntries <= 0 {
		s.GlobalMaxEntries = history.DefaultGlobalMaxEntries
	}

	if s.ProjectMaxEntries < 0 {
		issues = append(issues, &history.ConfigError{
			Option:  "project_max_entries",
			Value:   fmt.Sprint(s.ProjectMaxEntries),
			Message: "must be positive",
		})
	}
	if s.ProjectMaxEntries <= 0 {
		s.ProjectMaxEntries = history.DefaultProjectMaxEntries
	}

	// Zero backups is a valid way to turn them off.
	if s.MaxBackupCount < 0 {
		issues = append(issues, &history.ConfigError{
			Option:  "max_backup_count",
			Value:   fmt.Sprint(s.MaxBackupCount),
			Message: "must not be negative",
		})
		s.MaxBackupCount = history.DefaultMaxBackupCount
	}

	if s.IndentSize < 0 {
		issues = append(issues, &history.ConfigError{
			Option:  "indent_size",
			Value:   fmt.Sprint(s.IndentSize),
			Message: "must not be negative",
		})
	}
	if s.IndentSize <= 0 {
		s.IndentSize = history.DefaultIndentSize
	}

	if s.TimestampFormat == "" {
		s.TimestampFormat = DefaultTimestampFormat
	} else if !layoutRendersTime(s.TimestampFormat) {
		issues = append(issues, &history.ConfigError{
			Option:  "timestamp_format",
			Value:   s.TimestampFormat,
			Message: "layout renders no time components",
		})
		s.TimestampFormat = DefaultTimestampFormat
	}

	if _, err := history.NewPatternFilter(s.PathExcludePatterns, s.PathReincludePatterns); err != nil {
		issues = append(issues, err)
		s.PathExcludePatterns = nil
		s.PathReincludePatterns = nil
	}

	return issues
}

// layoutRendersTime reports whether a Go reference layout contains any
// time verbs: without them every timestamp formats to the same literal.
func layoutRendersTime(layout string) bool {
	a := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	b := time.Date(2019, 8, 18, 20, 31, 42, 0, time.UTC)
	return a.Format(layout) != b.Format(layout)
}

// StoreOptions maps the settings onto history store options.
func (s *Settings) StoreOptions(logger *zap.Logger) history.Options {
	return history.Options{
		Path:              s.HistoryFile,
		GlobalMaxEntries:  s.GlobalMaxEntries,
		ProjectMaxEntries: s.ProjectMaxEntries,
		MaxBackupCount:    s.MaxBackupCount,
		PrettyPrint:       s.PrettyPrintHistory,
		IndentSize:        s.IndentSize,
		Logger:            logger,
	}
}

// TrackerOptions maps the settings onto tracker options.
func (s *Settings) TrackerOptions(logger *zap.Logger) history.TrackerOptions {
	return history.TrackerOptions{
		ResolveRealPath: s.RealPath,
		Autosave:        true,
		Logger:          logger,
	}
}
