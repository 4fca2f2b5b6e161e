package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSATSkills is the built-in skill catalogue covering the SAT
// math and evidence-based reading/writing sections.
func DefaultSATSkills() []Skill {
	return []Skill{
		{ID: "math.algebra.linear", Name: "Linear equations and inequalities"},
		{ID: "math.algebra.systems", Name: "Systems of equations"},
		{ID: "math.advanced.quadratics", Name: "Quadratic and nonlinear functions"},
		{ID: "math.advanced.exponents", Name: "Exponents and radicals"},
		{ID: "math.data.ratios", Name: "Ratios, rates, and proportions"},
		{ID: "math.data.statistics", Name: "Data analysis and statistics"},
		{ID: "math.geometry.shapes", Name: "Geometry and trigonometry"},
		{ID: "reading.main-idea", Name: "Central ideas and themes"},
		{ID: "reading.inference", Name: "Inferences and implicit meaning"},
		{ID: "reading.evidence", Name: "Command of evidence"},
		{ID: "reading.vocabulary", Name: "Words in context"},
		{ID: "writing.grammar", Name: "Standard English conventions"},
		{ID: "writing.expression", Name: "Expression of ideas"},
		{ID: "writing.transitions", Name: "Transitions and organization"},
	}
}

// LoadSkills reads a skill catalogue from a YAML file. An empty path
// returns the built-in SAT catalogue.
func LoadSkills(path string) ([]Skill, error) {
	if path == "" {
		return DefaultSATSkills(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill catalogue: %w", err)
	}

	var file struct {
		Skills []Skill `yaml:"skills"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse skill catalogue: %w", err)
	}
	if len(file.Skills) == 0 {
		return nil, fmt.Errorf("skill catalogue %s: %w", path, ErrEmptyCatalogue)
	}

	seen := make(map[string]struct{}, len(file.Skills))
	for _, sk := range file.Skills {
		if sk.ID == "" {
			return nil, fmt.Errorf("skill catalogue %s: skill with empty id: %w", path, ErrInvalidInput)
		}
		if _, dup := seen[sk.ID]; dup {
			return nil, fmt.Errorf("skill catalogue %s: duplicate skill %q: %w", path, sk.ID, ErrInvalidInput)
		}
		seen[sk.ID] = struct{}{}
	}
	return file.Skills, nil
}
