// Package tuning loads the simulation tuning file: need thresholds, work
// cycle lengths, retry back-off and pool sizes.
package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// UpdatesPerSecond is the nominal simulation rate.
	UpdatesPerSecond = 25
	// MonthLength is the number of updates in one calendar month.
	MonthLength = UpdatesPerSecond * 60 * 2
)

type Tuning struct {
	UpdatesPerSecond   int `yaml:"updates_per_second"`
	ThinkSpeed         int `yaml:"think_speed"`
	MoveSpeed          int `yaml:"move_speed"`
	HazardRebuildTicks int `yaml:"hazard_rebuild_ticks"`
	PathCap            int `yaml:"path_cap"`
	AttemptMax         int `yaml:"attempt_max"`
	IdleWaitMax        int `yaml:"idle_wait_max"`

	Needs   Needs   `yaml:"needs"`
	Work    Work    `yaml:"work"`
	Backoff Backoff `yaml:"backoff"`
}

type Needs struct {
	ThirstThreshold    int `yaml:"thirst_threshold"`
	HungerThreshold    int `yaml:"hunger_threshold"`
	WearinessThreshold int `yaml:"weariness_threshold"`
	StarvingHunger     int `yaml:"starving_hunger"`
	DeathHunger        int `yaml:"death_hunger"`
	// NeedChance is the 1-in-N chance per update of acting on a need.
	NeedChance int `yaml:"need_chance"`
}

type Work struct {
	DigCycles       int `yaml:"dig_cycles"`
	FireCycles      int `yaml:"fire_cycles"`
	FillDitchCycles int `yaml:"fill_ditch_cycles"`
	SleepRecovery   int `yaml:"sleep_recovery"`
	DismantleDamage int `yaml:"dismantle_damage"`
	EatPerCycle     int `yaml:"eat_per_cycle"`
	FillWater       int `yaml:"fill_water"`
	FillFilth       int `yaml:"fill_filth"`
	SightRange      int `yaml:"sight_range"`
	MoveNearRadius  int `yaml:"move_near_radius"`
	MoveNearSamples int `yaml:"move_near_samples"`
}

type Backoff struct {
	InitialTicks int     `yaml:"initial_ticks"`
	MaxTicks     int     `yaml:"max_ticks"`
	Multiplier   float64 `yaml:"multiplier"`
	Jitter       float64 `yaml:"jitter"`
}

// Default returns the stock tuning.
func Default() Tuning {
	ups := UpdatesPerSecond
	return Tuning{
		UpdatesPerSecond:   ups,
		ThinkSpeed:         ups,
		MoveSpeed:          100,
		HazardRebuildTicks: ups,
		PathCap:            12,
		AttemptMax:         5,
		IdleWaitMax:        8,
		Needs: Needs{
			ThirstThreshold:    ups * 60 * 10,
			HungerThreshold:    MonthLength * 6,
			WearinessThreshold: ups * 60 * 12,
			StarvingHunger:     48000,
			DeathHunger:        72000,
			NeedChance:         ups * 5,
		},
		Work: Work{
			DigCycles:       50,
			FireCycles:      50,
			FillDitchCycles: 50,
			SleepRecovery:   25,
			DismantleDamage: 10,
			EatPerCycle:     5000,
			FillWater:       50,
			FillFilth:       3,
			SightRange:      12,
			MoveNearRadius:  5,
			MoveNearSamples: 10,
		},
		Backoff: Backoff{
			InitialTicks: ups,
			MaxTicks:     ups * 30,
			Multiplier:   2.0,
			Jitter:       0.3,
		},
	}
}

// Load reads a YAML tuning file over the defaults. A missing file yields
// the defaults unchanged.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return t, nil
		}
		return t, fmt.Errorf("reading tuning: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Default(), fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Default(), err
	}
	return t, nil
}

// Validate rejects values the engine cannot run with.
func (t Tuning) Validate() error {
	switch {
	case t.UpdatesPerSecond <= 0:
		return fmt.Errorf("tuning: updates_per_second must be positive, got %d", t.UpdatesPerSecond)
	case t.ThinkSpeed <= 0:
		return fmt.Errorf("tuning: think_speed must be positive, got %d", t.ThinkSpeed)
	case t.PathCap <= 0:
		return fmt.Errorf("tuning: path_cap must be positive, got %d", t.PathCap)
	case t.Needs.ThirstThreshold <= 0 || t.Needs.HungerThreshold <= 0 || t.Needs.WearinessThreshold <= 0:
		return errors.New("tuning: need thresholds must be positive")
	case t.Needs.NeedChance <= 0:
		return fmt.Errorf("tuning: need_chance must be positive, got %d", t.Needs.NeedChance)
	}
	return nil
}

// Save writes t as YAML.
func Save(path string, t Tuning) error {
	raw, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding tuning: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing tuning: %w", err)
	}
	return nil
}
