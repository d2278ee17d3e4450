// This file handles recording file accesses.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"filehist/internal/history"
)

// addCmd records file accesses
var addCmd = &cobra.Command{
	Use:   "add [path...]",
	Short: "Record file accesses",
	Long: `Records one access per path, most recent first, in both the global
history and the current project's history. Excluded and non-existent
paths are skipped.

A lone '-' reads newline-separated paths from stdin, so editors can pipe
events:

  echo "$PWD/main.go" | filehist add -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	st := openStore(settings)
	scope := resolveProject(st)

	opts := settings.TrackerOptions(logger.Named("tracker"))
	opts.Autosave = false // one save at the end covers the whole batch
	tracker := history.NewTracker(st, opts)

	paths, err := collectPaths(args)
	if err != nil {
		return err
	}

	now := time.Now()
	processed := 0
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			logger.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			continue
		}
		if err := tracker.OnFileOpened(history.FileEvent{Path: abs, Project: scope, At: now}); err != nil {
			return err
		}
		processed++
	}

	if err := saveStore(st); err != nil {
		return err
	}
	fmt.Printf("Processed %d path(s)\n", processed)
	return nil
}

// collectPaths expands a '-' argument into lines read from stdin.
func collectPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		if arg != "-" {
			paths = append(paths, arg)
			continue
		}

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				paths = append(paths, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	}
	return paths, nil
}
