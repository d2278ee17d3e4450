// This file handles upgrading old history records and merging project scopes.
package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"filehist/internal/history"
	"filehist/internal/project"
)

var (
	migrateFrom string
	migrateTo   string
)

// migrateCmd rewrites a legacy record in place
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Rewrite an old-format history record in place",
	Long: `Loads the history record, upgrading old formats (the opened/closed
split and display-string timestamps) to the current single-list shape,
and writes it back.

With --from and --to, entries recorded under one project scope are merged
into another, e.g. after a project directory moved:

  filehist migrate --from /old/home/app --to /new/home/app

Absolute paths are keyed the way project folders are; anything else is
taken as a literal scope key, as shown by 'filehist projects'.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFrom, "from", "", "Scope to merge entries out of")
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "Scope to merge entries into")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	st := openStore(settings)

	if (migrateFrom == "") != (migrateTo == "") {
		return fmt.Errorf("--from and --to must be used together")
	}
	if migrateFrom != "" {
		from := projectScopeFor(migrateFrom)
		to := projectScopeFor(migrateTo)
		if !st.MigrateProject(from, to) {
			return fmt.Errorf("no entries recorded under %s", migrateFrom)
		}
		fmt.Printf("Merged %s into %s\n", from, to)
	}

	if !st.Dirty() {
		fmt.Println("History record already in the current format.")
		return nil
	}
	if err := st.Save(); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	fmt.Println("History record rewritten.")
	return nil
}

func projectScopeFor(arg string) history.Scope {
	if filepath.IsAbs(arg) {
		return history.Scope(project.FolderKey(arg))
	}
	return history.Scope(arg)
}
