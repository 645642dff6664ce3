// Package persona describes when and how aggressively the simulated player
// acts. Profiles are external read-only input: the engine never mutates one.
package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Persona struct {
	Name string `yaml:"name"`

	// Schedule: the day is split into as many equal windows as the check-in
	// count for the day type; each check-in opens a presence session.
	WeekdayCheckins int     `yaml:"weekday_checkins"`
	WeekendCheckins int     `yaml:"weekend_checkins"`
	SessionMinutes  int     `yaml:"session_minutes"`
	Variance        float64 `yaml:"variance"` // 0..1, jitter fraction of a window

	// Decision weights by action kind; missing kinds default to 1.
	Weights map[string]float64 `yaml:"weights,omitempty"`

	RiskTolerance float64 `yaml:"risk_tolerance"`

	// Stop conditions.
	TargetDays      int `yaml:"target_days"`
	FrustrationDays int `yaml:"frustration_days"` // consecutive stuck days before quitting
}

// Weight returns the persona multiplier for an action kind, defaulting to 1.
func (p Persona) Weight(kind string) float64 {
	if w, ok := p.Weights[kind]; ok {
		return w
	}
	return 1
}

// Checkins returns the check-in count for the given day index (day 0 is a
// Monday; days 5 and 6 of each week are the weekend).
func (p Persona) Checkins(day int) int {
	if d := day % 7; d >= 5 {
		return p.WeekendCheckins
	}
	return p.WeekdayCheckins
}

func Defaults() Persona {
	return Persona{
		Name:            "casual",
		WeekdayCheckins: 3,
		WeekendCheckins: 5,
		SessionMinutes:  10,
		Variance:        0.2,
		RiskTolerance:   0.5,
		TargetDays:      35,
		FrustrationDays: 5,
	}
}

type file struct {
	Personas []yaml.Node `yaml:"personas"`
}

// Load reads a personas.yaml file. Each entry decodes over a Defaults()
// value, so omitted fields keep their defaults while explicit zeros survive.
func Load(path string) (map[string]Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("personas.yaml: %w", err)
	}
	out := make(map[string]Persona, len(f.Personas))
	for i := range f.Personas {
		p := Defaults()
		p.Name = ""
		if err := f.Personas[i].Decode(&p); err != nil {
			return nil, fmt.Errorf("personas.yaml: entry %d: %w", i, err)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("personas.yaml: entry %d missing name", i)
		}
		out[p.Name] = p
	}
	return out, nil
}
