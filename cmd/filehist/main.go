// Package main implements the filehist command line interface: a
// most-recent-first history of opened files, kept globally and per
// project, with an interactive browser as the default command.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"filehist/internal/config"
	"filehist/internal/history"
	"filehist/internal/project"
)

var (
	// Global flags
	verbose     bool
	configPath  string
	historyFile string
	projectDir  string

	// Logger
	logger   *zap.Logger
	logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "filehist",
	Short: "filehist - recently opened files, per project and globally",
	Long: `filehist keeps a most-recent-first history of the files you open,
split into one global list and one list per project.

Run without arguments to browse the history interactively. Enter prints
the selected path on stdout, so the browser composes with your editor:

  vim "$(filehist)"

Editors and scripts record accesses with 'filehist add'; a lone '-'
reads newline-separated paths from stdin.`,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runBrowse,
}

func init() {
	// Assigned here rather than in the composite literal above: the
	// closure mentions rootCmd, which the compiler rejects as an
	// initialization cycle.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// The browser owns the terminal, so it runs with a silent logger
		// unless verbose output was asked for explicitly.
		if cmd.Name() == rootCmd.Name() && !verbose {
			logger = zap.NewNop()
			return nil
		}

		if verbose {
			logLevel.SetLevel(zapcore.DebugLevel)
		}
		cfg := zap.NewProductionConfig()
		cfg.Level = logLevel
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&historyFile, "history-file", "", "History file (overrides the settings file)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "Project directory (default: current directory)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSettings resolves and loads the settings file, returning the
// settings together with the path they came from.
func loadSettings() (*config.Settings, string, error) {
	path := configPath
	if path == "" {
		path = config.DefaultSettingsPath()
	}

	settings, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	for _, issue := range settings.Normalize() {
		logger.Warn("Ignoring invalid setting", zap.Error(issue))
	}
	if settings.Debug {
		logLevel.SetLevel(zapcore.DebugLevel)
	}

	// The flag wins over both the settings file and FILEHIST_FILE.
	if historyFile != "" {
		settings.HistoryFile = historyFile
	}
	return settings, path, nil
}

// openStore builds the store from settings and loads the history record.
// An unreadable record is logged and the store starts empty; the command
// still runs.
func openStore(settings *config.Settings) *history.Store {
	st := history.New(settings.StoreOptions(logger.Named("history")))
	if err := st.SetExclusionPatterns(settings.PathExcludePatterns, settings.PathReincludePatterns); err != nil {
		logger.Warn("Invalid exclusion patterns", zap.Error(err))
	}
	if err := st.Load(); err != nil {
		logger.Warn("Could not load history, starting empty", zap.Error(err))
	}
	return st
}

// resolveProject determines the project scope for this invocation from
// the --project flag or the working directory. Entries recorded under a
// legacy key for the same project are migrated as a side effect.
func resolveProject(st *history.Store) history.Scope {
	dir := projectDir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	if dir == "" {
		return ""
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	return project.Resolve("", project.DetectRoot(abs)).Apply(st)
}

func activeScopes(scope history.Scope) []history.Scope {
	if scope == "" {
		return nil
	}
	return []history.Scope{scope}
}

func saveStore(st *history.Store) error {
	if err := st.SaveIfDirty(); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}
