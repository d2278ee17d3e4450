// Package project derives stable history scope keys for a workspace:
// the folders a session works in and, when one exists, its project file.
package project

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"

	"filehist/internal/history"
)

// FolderKey hashes an ordered folder list into a stable scope key.
// Workspaces without a project file are identified by the folders they
// span; order matters, so callers must pass them consistently.
func FolderKey(folders ...string) string {
	h := md5.New()
	for _, folder := range folders {
		h.Write([]byte(folder))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Identity maps a workspace onto a history scope.
type Identity struct {
	Scope history.Scope
	// LegacyScope is the folder-hash key this workspace would have used
	// before it gained a project file. Non-empty when entries recorded
	// under the hash should migrate to Scope.
	LegacyScope history.Scope
}

// Resolve picks the scope for a workspace. A project file path wins over the
// folder hash; the hash is still reported so stores can migrate entries
// recorded before the project file existed.
func Resolve(projectFile string, folders ...string) Identity {
	hash := history.Scope(FolderKey(folders...))
	if projectFile == "" {
		return Identity{Scope: hash}
	}
	return Identity{Scope: history.Scope(projectFile), LegacyScope: hash}
}

// Apply resolves the identity and migrates any entries still held under
// the legacy folder-hash key.
func (id Identity) Apply(store *history.Store) history.Scope {
	if id.LegacyScope != "" {
		store.MigrateProject(id.LegacyScope, id.Scope)
	}
	return id.Scope
}

// rootMarkers are checked while walking up from a directory; the first
// directory containing one is taken as the project root.
var rootMarkers = []string{".git", "go.mod"}

// DetectRoot walks up from dir looking for a project marker, falling back
// to dir itself.
func DetectRoot(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}

	probe := abs
	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(probe, marker)); err == nil {
				return probe
			}
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return abs
		}
		probe = parent
	}
}
