package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveCreatesParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	// Nested path that doesn't exist yet
	path := filepath.Join(tmpDir, "nested", "deep", "config.json")

	if err := Save(DefaultConfig(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Config file contains invalid JSON: %v", err)
	}

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only config.json", len(entries))
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := DefaultConfig()
	cfg.Simulation.Width = 200
	cfg.Simulation.Seed = 42
	cfg.Scenario.Predators = 0
	cfg.Observer.Enabled = true
	cfg.Observer.Addr = ":8088"
	cfg.Presets["harvest"] = "presets/harvest.json"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Simulation != cfg.Simulation {
		t.Errorf("simulation = %+v, want %+v", loaded.Simulation, cfg.Simulation)
	}
	// A zero in the file overrides a non-zero default
	if loaded.Scenario.Predators != 0 {
		t.Errorf("predators = %d, want 0", loaded.Scenario.Predators)
	}
	if loaded.Observer != cfg.Observer {
		t.Errorf("observer = %+v, want %+v", loaded.Observer, cfg.Observer)
	}
	if loaded.Presets["harvest"] != "presets/harvest.json" {
		t.Errorf("presets = %v", loaded.Presets)
	}
}

func TestSaveOverwritesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	first := DefaultConfig()
	first.Logging.Level = "debug"
	if err := Save(first, path); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	second := DefaultConfig()
	second.Logging.Level = "error"
	if err := Save(second, path); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Logging.Level != "error" {
		t.Errorf("Expected 'error', got '%s'", loaded.Logging.Level)
	}
}
