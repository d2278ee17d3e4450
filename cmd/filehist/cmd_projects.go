// This file handles listing the known project scopes.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// projectsCmd lists every project scope with history
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List known project scopes",
	Long: `Lists every project scope the history file knows about, with the
number of entries held for each. The scope resolved for the current
invocation is marked with '*'.`,
	RunE: runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(cmd *cobra.Command, args []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	st := openStore(settings)
	current := resolveProject(st)

	scopes := st.ProjectScopes()
	if len(scopes) == 0 {
		fmt.Println("No project history recorded yet.")
		return saveStore(st)
	}

	fmt.Printf("📁 Projects (%d)\n", len(scopes))
	fmt.Println(strings.Repeat("─", 50))
	for _, scope := range scopes {
		marker := "  "
		if scope == current {
			marker = "* "
		}
		fmt.Printf("%s%-36s %d files\n", marker, scope, st.Len(scope))
	}

	return saveStore(st)
}
