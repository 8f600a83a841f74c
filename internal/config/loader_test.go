package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name          string
		globalConfig  string
		projectConfig string
		check         func(t *testing.T, cfg *Config)
		expectError   bool
	}{
		{
			name: "No config files - returns defaults",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Simulation.TickRate != 25 || cfg.Simulation.PathCap != 12 {
					t.Errorf("simulation = %+v, want defaults", cfg.Simulation)
				}
			},
		},
		{
			name:         "Global only - overrides the fields it names",
			globalConfig: `{"simulation": {"width": 128}}`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Simulation.Width != 128 {
					t.Errorf("width = %d, want 128", cfg.Simulation.Width)
				}
				// Fields not in the file keep their defaults
				if cfg.Simulation.Height != 64 || cfg.Simulation.TickRate != 25 {
					t.Errorf("simulation = %+v, want default height and tick rate", cfg.Simulation)
				}
			},
		},
		{
			name:          "Project overrides global - project wins",
			globalConfig:  `{"logging": {"level": "debug"}, "observer": {"addr": ":9000"}}`,
			projectConfig: `{"logging": {"level": "warn"}}`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "warn" {
					t.Errorf("log level = %q, want warn", cfg.Logging.Level)
				}
				if cfg.Observer.Addr != ":9000" {
					t.Errorf("observer addr = %q, want the global value", cfg.Observer.Addr)
				}
			},
		},
		{
			name:          "Presets merge by name",
			globalConfig:  `{"presets": {"harvest": "global/harvest.json", "defend": "global/defend.json"}}`,
			projectConfig: `{"presets": {"harvest": "project/harvest.json"}}`,
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.Presets) != 2 {
					t.Errorf("presets = %v, want 2 entries", cfg.Presets)
				}
				if cfg.Presets["harvest"] != "project/harvest.json" {
					t.Errorf("harvest preset = %q, want the project path", cfg.Presets["harvest"])
				}
			},
		},
		{
			name:          "Invalid values rejected",
			projectConfig: `{"simulation": {"tick_rate": 0}}`,
			expectError:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()

			globalPath := ""
			if tt.globalConfig != "" {
				globalPath = filepath.Join(tmpDir, "global.json")
				writeFile(t, globalPath, tt.globalConfig)
			}

			projectPath := ""
			if tt.projectConfig != "" {
				projectPath = filepath.Join(tmpDir, "project.json")
				writeFile(t, projectPath, tt.projectConfig)
			}

			cfg, err := Load(globalPath, projectPath)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()

	globalPath := filepath.Join(tmpDir, "global.json")
	writeFile(t, globalPath, "{invalid json")

	_, err := Load(globalPath, "")
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
	if errors.Is(err, ErrInvalid) {
		t.Error("malformed JSON reported as a validation error")
	}
}

func TestLoad_MissingFilesNotError(t *testing.T) {
	cfg, err := Load("/nonexistent/global.json", "/nonexistent/project.json")
	if err != nil {
		t.Fatalf("expected no error for missing files, got: %v", err)
	}

	def := DefaultConfig()
	if cfg.Simulation != def.Simulation || cfg.Scenario != def.Scenario {
		t.Errorf("config = %+v, want defaults", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero width", func(c *Config) { c.Simulation.Width = 0 }, false},
		{"zero path cap", func(c *Config) { c.Simulation.PathCap = 0 }, false},
		{"unknown log level", func(c *Config) { c.Logging.Level = "chatty" }, false},
		{"upper case log level", func(c *Config) { c.Logging.Level = "DEBUG" }, true},
		{"journal level out of range", func(c *Config) { c.Journal.Level = 9 }, false},
		{"disabled journal ignores level", func(c *Config) { c.Journal.Enabled = false; c.Journal.Level = 9 }, true},
		{"observer without address", func(c *Config) { c.Observer.Enabled = true; c.Observer.Addr = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DataDir = "/var/colony"
	if got := cfg.HistoryPath(); got != filepath.Join("/var/colony", "history.db") {
		t.Errorf("HistoryPath() = %q", got)
	}
	if got := cfg.JournalPath(); got != filepath.Join("/var/colony", "journal") {
		t.Errorf("JournalPath() = %q", got)
	}
	cfg.Storage.HistoryDB = ""
	if got := cfg.HistoryPath(); got != "" {
		t.Errorf("HistoryPath() with history disabled = %q, want empty", got)
	}
}
