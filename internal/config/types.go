package config

// SimulationConfig sizes the world and sets the tick rate.
type SimulationConfig struct {
	TickRate   int    `json:"tick_rate"`             // Ticks per second
	Width      int    `json:"width"`                 // Map width in tiles
	Height     int    `json:"height"`                // Map height in tiles
	Seed       uint64 `json:"seed"`                  // RNG seed (0 picks one at start)
	PathCap    int    `json:"path_cap"`              // Concurrent background path searches
	TuningFile string `json:"tuning_file,omitempty"` // YAML tuning overrides
	MaxTicks   int64  `json:"max_ticks,omitempty"`   // Stop after this many ticks (0 runs forever)
}

// ScenarioConfig is the starting population.
type ScenarioConfig struct {
	Colonists int `json:"colonists"` // Menial workers
	Experts   int `json:"experts"`   // Skilled workers, drafted into squads
	Wildlife  int `json:"wildlife"`  // Grazing animals
	Predators int `json:"predators"` // Animals hunting colonists
}

// StorageConfig locates persistent state.
type StorageConfig struct {
	DataDir   string `json:"data_dir"`   // Root for the history database and journal
	HistoryDB string `json:"history_db"` // SQLite file name under DataDir (empty disables history)
}

// JournalConfig controls the compressed event journal.
type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`   // Directory under DataDir
	Level   int    `json:"level"` // 1 colony log, 2 outcomes, 3 every job transition, 4 board samples
}

// ObserverConfig controls the live board stream.
type ObserverConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"` // Listen address, e.g. "127.0.0.1:7070"
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level       string `json:"level"`          // debug, info, warn or error
	Development bool   `json:"development"`    // Console encoding with caller info
	File        string `json:"file,omitempty"` // Log to this file instead of stderr
}

// Config is the top-level configuration.
type Config struct {
	Simulation SimulationConfig `json:"simulation"`
	Scenario   ScenarioConfig   `json:"scenario"`
	Storage    StorageConfig    `json:"storage"`
	Journal    JournalConfig    `json:"journal"`
	Observer   ObserverConfig   `json:"observer"`
	Logging    LoggingConfig    `json:"logging"`
	// Presets maps preset names to job preset files.
	Presets map[string]string `json:"presets"`
}
