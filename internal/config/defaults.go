package config

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TickRate: 25,
			Width:    64,
			Height:   64,
			PathCap:  12,
		},
		Scenario: ScenarioConfig{
			Colonists: 6,
			Experts:   2,
			Wildlife:  3,
			Predators: 1,
		},
		Storage: StorageConfig{
			DataDir:   ".colony",
			HistoryDB: "history.db",
		},
		Journal: JournalConfig{
			Enabled: true,
			Dir:     "journal",
			Level:   2,
		},
		Observer: ObserverConfig{
			Enabled: false,
			Addr:    "127.0.0.1:7070",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Presets: map[string]string{},
	}
}
