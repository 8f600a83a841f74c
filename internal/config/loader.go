package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalid is returned for configurations that cannot run.
var ErrInvalid = errors.New("invalid config")

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config, defaults.
// Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*Config, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads configuration from conventional paths.
// Global: ~/.colony/config.json
// Project: .colony/config.json (relative to cwd)
func LoadDefault() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	globalPath := filepath.Join(homeDir, ".colony", "config.json")
	projectPath := filepath.Join(".colony", "config.json")

	return Load(globalPath, projectPath)
}

// mergeConfigFile decodes a JSON config file over base. Fields the file
// leaves out keep their current value and preset entries merge by name.
// Missing files are silently skipped. Malformed JSON returns an error.
func mergeConfigFile(base *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := json.Unmarshal(data, base); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Simulation.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("simulation.tick_rate must be positive, got %d", c.Simulation.TickRate))
	}
	if c.Simulation.Width <= 0 || c.Simulation.Height <= 0 {
		errs = append(errs, fmt.Errorf("simulation map %dx%d must have positive size",
			c.Simulation.Width, c.Simulation.Height))
	}
	if c.Simulation.PathCap <= 0 {
		errs = append(errs, fmt.Errorf("simulation.path_cap must be positive, got %d", c.Simulation.PathCap))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if c.Journal.Enabled && (c.Journal.Level < 1 || c.Journal.Level > 4) {
		errs = append(errs, fmt.Errorf("journal.level must be 1-4, got %d", c.Journal.Level))
	}
	if c.Observer.Enabled && c.Observer.Addr == "" {
		errs = append(errs, errors.New("observer.addr is required when the observer is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// HistoryPath returns the history database path, empty when disabled.
func (c *Config) HistoryPath() string {
	if c.Storage.HistoryDB == "" {
		return ""
	}
	return filepath.Join(c.Storage.DataDir, c.Storage.HistoryDB)
}

// JournalPath returns the journal directory.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Storage.DataDir, c.Journal.Dir)
}
