// This file handles removing stale entries from the history.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"filehist/internal/history"
)

var (
	cleanupAll     bool
	cleanupTimeout time.Duration
)

// cleanupCmd drops entries whose files no longer exist
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop history entries whose files no longer exist",
	Long: `Checks every entry in the global history and the current project's
history and removes the ones whose files are gone. Entries that cannot
be checked, e.g. on an unreachable network mount, are kept.

With --all, every known project is checked as well; project lists whose
project directory itself has disappeared are dropped entirely.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "Clean every project, dropping orphaned ones")
	cleanupCmd.Flags().DurationVar(&cleanupTimeout, "timeout", 30*time.Second, "Bound the existence checks")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	st := openStore(settings)
	scope := resolveProject(st)

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if cleanupAll {
		result, err := st.CleanupAll(ctx, activeScopes(scope))
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Printf("Removed %d stale entries", result.Removed)
		if result.OrphanedProjects > 0 {
			fmt.Printf(" and %d orphaned projects", result.OrphanedProjects)
		}
		fmt.Println()
		return saveStore(st)
	}

	removed, err := st.Cleanup(ctx, history.ScopeGlobal)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	if scope != "" {
		n, err := st.Cleanup(ctx, scope)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		removed += n
	}

	fmt.Printf("Removed %d stale entries\n", removed)
	return saveStore(st)
}
