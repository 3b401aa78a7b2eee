package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of runs. Fields a run leaves out take the
// DefaultConfig values.
type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Runs        []*Config `yaml:"-"`
}

type scenarioFile struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Runs        []yaml.Node `yaml:"runs"`
}

// LoadScenario loads a scenario from a YAML file and validates every run.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw scenarioFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	sc := &Scenario{Name: raw.Name, Description: raw.Description, Runs: make([]*Config, 0, len(raw.Runs))}
	for i := range raw.Runs {
		cfg := DefaultConfig()
		if err := raw.Runs[i].Decode(cfg); err != nil {
			return nil, fmt.Errorf("%s: run %d: %w", path, i+1, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s: run %d: %w", path, i+1, err)
		}
		sc.Runs = append(sc.Runs, cfg)
	}
	return sc, nil
}
