// This file handles removing individual paths from the history.
package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// removeCmd forgets paths across every scope
var removeCmd = &cobra.Command{
	Use:   "remove [path...]",
	Short: "Remove paths from every history list",
	Long: `Forgets the given paths in the global history and in every project's
history. Paths are matched exactly after being made absolute.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	st := openStore(settings)

	removed := 0
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			logger.Warn("Skipping path", zap.String("path", arg), zap.Error(err))
			continue
		}
		removed += st.RemoveEverywhere(abs)
	}

	fmt.Printf("Removed %d entries\n", removed)
	return saveStore(st)
}
