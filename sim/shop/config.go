// Scenario configuration for the machine-shop demo.

package shop

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the machine-shop scenario parameters. All times are in
// virtual ticks.
type Config struct {
	Machines    int   `yaml:"machines"`    // number of machines producing parts (must be > 0)
	Technicians int   `yaml:"technicians"` // shared repair technicians (must be > 0)
	Horizon     int64 `yaml:"horizon"`     // simulated run length in ticks (must be > 0)
	Seed        int64 `yaml:"seed"`        // master RNG seed

	MeanServiceTicks  float64 `yaml:"mean_service_ticks"`   // mean per-part production time (normal)
	ServiceStdevTicks float64 `yaml:"service_stdev_ticks"`  // stdev of per-part production time
	MeanTimeToFailure float64 `yaml:"mean_time_to_failure"` // mean ticks between breakdowns (exponential)
	RepairTicks       int64   `yaml:"repair_ticks"`         // fixed repair duration once a technician is held
}

// DefaultConfig returns a runnable baseline scenario: ten machines sharing
// one technician.
func DefaultConfig() Config {
	return Config{
		Machines:          10,
		Technicians:       1,
		Horizon:           40000,
		Seed:              42,
		MeanServiceTicks:  10,
		ServiceStdevTicks: 2,
		MeanTimeToFailure: 300,
		RepairTicks:       30,
	}
}

// Validate checks the configuration for values the scenario cannot run with.
func (c Config) Validate() error {
	if c.Machines < 1 {
		return fmt.Errorf("machines must be positive, got %d", c.Machines)
	}
	if c.Technicians < 1 {
		return fmt.Errorf("technicians must be positive, got %d", c.Technicians)
	}
	if c.Horizon < 1 {
		return fmt.Errorf("horizon must be positive, got %d", c.Horizon)
	}
	if c.MeanServiceTicks <= 0 {
		return fmt.Errorf("mean_service_ticks must be positive, got %v", c.MeanServiceTicks)
	}
	if c.ServiceStdevTicks < 0 {
		return fmt.Errorf("service_stdev_ticks must not be negative, got %v", c.ServiceStdevTicks)
	}
	if c.MeanTimeToFailure <= 0 {
		return fmt.Errorf("mean_time_to_failure must be positive, got %v", c.MeanTimeToFailure)
	}
	if c.RepairTicks < 1 {
		return fmt.Errorf("repair_ticks must be positive, got %d", c.RepairTicks)
	}
	return nil
}

// LoadConfig reads a scenario config from a yaml file. Fields absent from
// the file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read scenario config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse scenario config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid scenario config %s: %w", path, err)
	}
	return cfg, nil
}
