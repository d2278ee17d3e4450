// This file handles the interactive history browser, the default command.
package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"filehist/internal/history"
	"filehist/internal/tui"
	"filehist/internal/watcher"
)

var browseGlobal bool

func init() {
	rootCmd.Flags().BoolVarP(&browseGlobal, "global", "g", false, "Start the browser on the global scope")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	settings, settingsPath, err := loadSettings()
	if err != nil {
		return err
	}
	st := openStore(settings)

	if settings.DeleteAllOnStartup {
		st.ResetAll()
		logger.Info("Cleared all history on startup")
	}

	projectScope := resolveProject(st)

	model := tui.NewModel(tui.Options{
		Store:             st,
		ProjectScope:      projectScope,
		StartGlobal:       browseGlobal,
		ShowPreview:       settings.ShowFilePreview,
		RemoveMissing:     settings.RemoveNonexistentOnPreview,
		TimestampShow:     settings.TimestampShow,
		TimestampRelative: settings.TimestampRelative,
		TimestampFormat:   settings.TimestampFormat,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cleanup runs in the background so the browser is usable while
	// stale entries are still being checked.
	if settings.CleanupOnStartup {
		go func() {
			result, err := st.CleanupAll(ctx, activeScopes(projectScope))
			if err != nil {
				logger.Debug("Startup cleanup aborted", zap.Error(err))
				return
			}
			if result.Removed > 0 || result.OrphanedProjects > 0 {
				p.Send(tui.RefreshMsg{})
			}
		}()
	}

	if w := startReloadWatcher(ctx, settingsPath, st, p); w != nil {
		defer w.Stop()
	}

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("browser failed: %w", err)
	}

	if err := saveStore(st); err != nil {
		return err
	}

	if m, ok := final.(tui.Model); ok && m.Selected() != "" {
		fmt.Println(m.Selected())
	}
	return nil
}

// startReloadWatcher keeps a running browser in sync with the outside
// world: a settings change re-applies limits and exclusion patterns, and
// a history file rewritten by another process is re-read. Local unsaved
// edits win over an external rewrite.
func startReloadWatcher(ctx context.Context, settingsPath string, st *history.Store, p *tea.Program) *watcher.FileWatcher {
	settingsAbs, err := filepath.Abs(settingsPath)
	if err != nil {
		return nil
	}

	paths := []string{settingsAbs}
	historyAbs := ""
	if st.Path() != "" {
		if abs, err := filepath.Abs(st.Path()); err == nil {
			historyAbs = abs
			paths = append(paths, historyAbs)
		}
	}

	w, err := watcher.New(watcher.Config{
		Paths:  paths,
		Logger: logger.Named("watcher"),
		OnChange: func(path string) {
			switch path {
			case settingsAbs:
				reloadSettings(st)
			case historyAbs:
				if st.Dirty() {
					return
				}
				if err := st.Load(); err != nil {
					logger.Warn("Could not reload history", zap.Error(err))
					return
				}
			}
			p.Send(tui.RefreshMsg{})
		},
	})
	if err != nil {
		logger.Warn("Live reload disabled", zap.Error(err))
		return nil
	}
	if err := w.Start(ctx); err != nil {
		logger.Warn("Live reload disabled", zap.Error(err))
		return nil
	}
	return w
}

func reloadSettings(st *history.Store) {
	settings, _, err := loadSettings()
	if err != nil {
		logger.Warn("Settings reload failed", zap.Error(err))
		return
	}
	st.SetLimits(settings.GlobalMaxEntries, settings.ProjectMaxEntries)
	if err := st.SetExclusionPatterns(settings.PathExcludePatterns, settings.PathReincludePatterns); err != nil {
		logger.Warn("Invalid exclusion patterns", zap.Error(err))
	}
	logger.Info("Reloaded settings")
}
