// This file handles listing history entries.
package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"filehist/internal/config"
	"filehist/internal/history"
	"filehist/internal/tui"
)

var (
	listScope        string
	listAllScopes    bool
	listJSON         bool
	listExistingOnly bool
	listLimit        int
)

// listCmd prints history entries
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List history entries, most recent first",
	Long: `Prints the history for one scope, most recent first.

The scope defaults to the global list. --scope takes 'global', 'project'
(the project resolved from --project or the working directory), or a
literal scope key as shown by 'filehist projects'.

Examples:
  filehist list
  filehist list --scope project --existing-only
  filehist list --all-scopes --json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listScope, "scope", "", "Scope to list: global, project, or a scope key")
	listCmd.Flags().BoolVar(&listAllScopes, "all-scopes", false, "List every scope")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Emit JSON instead of text")
	listCmd.Flags().BoolVar(&listExistingOnly, "existing-only", false, "Hide entries whose files are gone")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Show at most this many entries per scope (0 = all)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	st := openStore(settings)

	if listAllScopes {
		if err := listAll(st, settings); err != nil {
			return err
		}
		return saveStore(st)
	}

	scope, label, err := pickScope(st)
	if err != nil {
		return err
	}

	entries := scopeEntries(st, scope)
	if listJSON {
		if err := printJSON(entries); err != nil {
			return err
		}
	} else {
		printScope(label, entries, settings)
	}

	// Loading may have migrated an old record; persist that once.
	return saveStore(st)
}

func pickScope(st *history.Store) (history.Scope, string, error) {
	switch listScope {
	case "", "global":
		return history.ScopeGlobal, "Global history", nil
	case "project":
		scope := resolveProject(st)
		if scope == "" {
			return "", "", fmt.Errorf("no project could be resolved; pass --project")
		}
		return scope, "Project history", nil
	default:
		return history.Scope(listScope), fmt.Sprintf("History for %s", listScope), nil
	}
}

func scopeEntries(st *history.Store, scope history.Scope) []history.Entry {
	var entries []history.Entry
	if listExistingOnly {
		entries = st.ListExisting(scope)
	} else {
		entries = st.List(scope)
	}
	if listLimit > 0 && len(entries) > listLimit {
		entries = entries[:listLimit]
	}
	return entries
}

func listAll(st *history.Store, settings *config.Settings) error {
	if listJSON {
		rec := &history.Record{
			Global:   scopeEntries(st, history.ScopeGlobal),
			Projects: make(map[string][]history.Entry),
		}
		for _, scope := range st.ProjectScopes() {
			rec.Projects[string(scope)] = scopeEntries(st, scope)
		}
		data, err := history.EncodeRecord(rec, true, 4)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	printScope("Global history", scopeEntries(st, history.ScopeGlobal), settings)
	for _, scope := range st.ProjectScopes() {
		fmt.Println()
		printScope(fmt.Sprintf("Project %s", scope), scopeEntries(st, scope), settings)
	}
	return nil
}

func printScope(label string, entries []history.Entry, settings *config.Settings) {
	fmt.Printf("📁 %s (%d files)\n", label, len(entries))
	fmt.Println(strings.Repeat("─", 50))
	for _, e := range entries {
		if stamp := formatAccess(e, settings); stamp != "" {
			fmt.Printf("  %-24s %s\n", stamp, e.Path)
		} else {
			fmt.Printf("  %s\n", e.Path)
		}
	}
}

func formatAccess(e history.Entry, settings *config.Settings) string {
	if !settings.TimestampShow || e.LastAccess.IsZero() {
		return ""
	}
	if settings.TimestampRelative {
		return tui.ApproximateAge(e.LastAccess.Time, time.Now(), 2) + " ago"
	}
	return e.LastAccess.Format(settings.TimestampFormat)
}

func printJSON(entries []history.Entry) error {
	if entries == nil {
		entries = []history.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
