package strategy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TuningFile is the on-disk shape for catalogue tuning. Only named
// strategies are touched; everything else keeps its built-in defaults.
type TuningFile struct {
	Strategies []StrategyTuning `yaml:"strategies"`
}

// StrategyTuning overrides one catalogue entry's conditions or starting
// metrics.
type StrategyTuning struct {
	Name       string      `yaml:"name"`
	Conditions []Condition `yaml:"conditions,omitempty"`
	Metrics    *Metrics    `yaml:"metrics,omitempty"`
}

// LoadCatalogue builds the strategy catalogue, applying tuning from the YAML
// file at path. An empty path returns the built-in defaults.
func LoadCatalogue(path string) ([]Strategy, error) {
	catalogue := defaultCatalogue()
	if path == "" {
		return catalogue, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading strategy tuning: %w", err)
	}

	var tuning TuningFile
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return nil, fmt.Errorf("parsing strategy tuning: %w", err)
	}

	for _, t := range tuning.Strategies {
		idx := -1
		for i := range catalogue {
			if catalogue[i].Name == t.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("strategy tuning references unknown strategy %q", t.Name)
		}
		if t.Conditions != nil {
			catalogue[idx].Conditions = t.Conditions
		}
		if t.Metrics != nil {
			catalogue[idx].Metrics = *t.Metrics
		}
	}
	return catalogue, nil
}
