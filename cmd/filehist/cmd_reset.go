// This file handles wiping history lists and their backups.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"filehist/internal/history"
)

var (
	resetAll     bool
	resetGlobal  bool
	resetBackups bool
)

// resetCmd clears one or all history lists
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the current project's history",
	Long: `Clears the current project's history list. --global clears the global
list instead, --all clears everything, and --delete-backups also removes
the rolling daily backups of the history file.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "Clear every scope")
	resetCmd.Flags().BoolVar(&resetGlobal, "global", false, "Clear the global list instead of the project's")
	resetCmd.Flags().BoolVar(&resetBackups, "delete-backups", false, "Also delete history file backups")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	st := openStore(settings)

	switch {
	case resetAll:
		st.ResetAll()
		fmt.Println("Cleared all history")
	case resetGlobal:
		st.Reset(history.ScopeGlobal)
		fmt.Println("Cleared the global history")
	default:
		scope := resolveProject(st)
		if scope == "" {
			return fmt.Errorf("no project could be resolved; pass --project, --global or --all")
		}
		st.Reset(scope)
		fmt.Println("Cleared this project's history")
	}

	if resetBackups {
		fmt.Printf("Deleted %d backups\n", st.DeleteBackups())
	}

	return saveStore(st)
}
