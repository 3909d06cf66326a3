package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if cfg.Runtime.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Runtime.Workers, DefaultWorkers)
	}
	if cfg.Servers.Draw.Placement != PlacementMain {
		t.Errorf("draw placement = %q, want main", cfg.Servers.Draw.Placement)
	}
	if got := cfg.SyncCallTimeout(); got != 100*time.Second {
		t.Errorf("SyncCallTimeout() = %v, want 100s", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadMergesWithDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
		"name": "demo",
		"runtime": {"workers": 4},
		"servers": {"update": {"frequency": 240}},
		"log": {"level": "debug"}
	}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Name != "demo" {
		t.Errorf("Name = %q, want demo", cfg.Name)
	}
	if cfg.Runtime.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Runtime.Workers)
	}
	if cfg.Servers.Update.Frequency != 240 {
		t.Errorf("update frequency = %v, want 240", cfg.Servers.Update.Frequency)
	}
	// Untouched sections keep their defaults.
	if cfg.Inspector.Port != DefaultInspectorPort {
		t.Errorf("inspector port = %d, want default", cfg.Inspector.Port)
	}
	if cfg.Servers.Update.Placement != PlacementWorker {
		t.Errorf("update placement = %q, want worker", cfg.Servers.Update.Placement)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, want debug", cfg.LogLevel())
	}
	if cfg.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), dir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("Load() of an empty dir did not fail")
	}
	if !strings.Contains(err.Error(), "E121") {
		t.Errorf("error = %v, want code E121", err)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{not json`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("Load() of invalid JSON did not fail")
	}
	if !strings.Contains(err.Error(), "E120") {
		t.Errorf("error = %v, want code E120", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := New()
	cfg.Name = "roundtrip"
	cfg.Runtime.Workers = 3
	if err := cfg.SaveTo(filepath.Join(dir, ConfigFileName)); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Name != "roundtrip" || loaded.Runtime.Workers != 3 {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative workers", func(c *Config) { c.Runtime.Workers = -1 }},
		{"bad sync timeout", func(c *Config) { c.Runtime.SyncCallTimeout = "fast" }},
		{"negative frequency", func(c *Config) { c.Servers.Audio.Frequency = -60 }},
		{"bad placement", func(c *Config) { c.Servers.Draw.Placement = "gpu" }},
		{"bad port", func(c *Config) { c.Inspector.Port = 70000 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted an invalid config")
			}
		})
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `{}`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	found, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot() error = %v", err)
	}
	// Resolve symlinks; on some systems TempDir returns a symlinked path.
	wantResolved, _ := filepath.EvalSymlinks(root)
	gotResolved, _ := filepath.EvalSymlinks(found)
	if gotResolved != wantResolved {
		t.Errorf("FindProjectRoot() = %q, want %q", found, root)
	}
}

func TestInspectorAddress(t *testing.T) {
	cfg := New()
	cfg.Inspector.Host = "0.0.0.0"
	cfg.Inspector.Port = 9000
	if got := cfg.InspectorAddress(); got != "0.0.0.0:9000" {
		t.Errorf("InspectorAddress() = %q", got)
	}
}
