package config

import (
	"path/filepath"
	"testing"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("FILEHIST_FILE wins over the settings file", func(t *testing.T) {
		path := writeSettings(t, "history_file: /from/yaml.json\n")
		t.Setenv("FILEHIST_FILE", "/from/env.json")

		s, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if s.HistoryFile != "/from/env.json" {
			t.Errorf("HistoryFile = %q, want the env value", s.HistoryFile)
		}
	})

	t.Run("FILEHIST_FILE applies without a settings file", func(t *testing.T) {
		t.Setenv("FILEHIST_FILE", "/from/env.json")

		s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if s.HistoryFile != "/from/env.json" {
			t.Errorf("HistoryFile = %q, want the env value", s.HistoryFile)
		}
	})

	t.Run("FILEHIST_DEBUG turns on debug", func(t *testing.T) {
		t.Setenv("FILEHIST_DEBUG", "1")

		s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !s.Debug {
			t.Error("Debug should be forced on by the env var")
		}
	})
}
