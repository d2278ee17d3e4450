package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// backupPathFor returns the rolling backup name for the given day, e.g.
// history.json -> history_20260823.json.
func backupPathFor(path string, day time.Time) string {
	ext := filepath.Ext(path)
	root := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_%s%s", root, day.Format("20060102"), ext)
}

// backupFiles lists the backups for path, newest first. The datestamped
// naming makes reverse-lexicographic order chronological.
func backupFiles(path string) []string {
	ext := filepath.Ext(path)
	root := strings.TrimSuffix(path, ext)
	listing, err := filepath.Glob(fmt.Sprintf("%s_*%s", root, ext))
	if err != nil {
		return nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(listing)))
	return listing
}

// backupDaily snapshots the current record into a once-per-day backup
// before it is overwritten, then prunes backups beyond maxCount.
func backupDaily(path string, day time.Time, maxCount int) error {
	if maxCount <= 0 {
		return nil
	}

	backup := backupPathFor(path, day)
	if _, err := os.Stat(backup); err == nil {
		return pruneBackups(path, maxCount)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Nothing to snapshot yet.
			return nil
		}
		return err
	}
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return err
	}
	return pruneBackups(path, maxCount)
}

func pruneBackups(path string, maxCount int) error {
	listing := backupFiles(path)
	if len(listing) <= maxCount {
		return nil
	}
	var firstErr error
	for _, stale := range listing[maxCount:] {
		if err := os.Remove(stale); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// recoverFromBackup decodes the newest readable backup, returning nil when
// none parses.
func (s *Store) recoverFromBackup() (*Record, string) {
	for _, backup := range backupFiles(s.path) {
		data, err := os.ReadFile(backup)
		if err != nil {
			continue
		}
		rec, _, err := DecodeRecord(data)
		if err != nil {
			continue
		}
		return rec, backup
	}
	return nil, ""
}

// DeleteBackups removes every rolling backup of the history file.
func (s *Store) DeleteBackups() int {
	if s.path == "" {
		return 0
	}
	removed := 0
	for _, backup := range backupFiles(s.path) {
		if err := os.Remove(backup); err == nil {
			removed++
		}
	}
	return removed
}
