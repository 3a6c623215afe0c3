// Package catalog holds the static journey, badge, engagement and sequence
// definitions. A Catalog is built once at startup and never mutated.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var defaultCatalogYAML []byte

type Catalog struct {
	version string

	steps     []StepDefinition
	stepIndex map[StepKey]int

	badges     []BadgeDefinition
	badgeIndex map[string]int

	engagements     []EngagementDefinition
	engagementIndex map[string]int

	sequences []SequenceSeed
}

type file struct {
	Version     string                 `yaml:"version"`
	Journey     []stepYAML             `yaml:"journey"`
	Badges      []badgeYAML            `yaml:"badges"`
	Engagements []EngagementDefinition `yaml:"engagements"`
	Sequences   []SequenceSeed         `yaml:"sequences"`
}

// Default parses the embedded catalog. It panics on malformed data since the
// file ships with the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded data invalid: %v", err))
	}
	return c
}

func Parse(raw []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if strings.TrimSpace(f.Version) == "" {
		return nil, fmt.Errorf("catalog: missing version")
	}
	c := &Catalog{
		version:         f.Version,
		stepIndex:       make(map[StepKey]int, len(f.Journey)),
		badgeIndex:      make(map[string]int, len(f.Badges)),
		engagementIndex: make(map[string]int, len(f.Engagements)),
	}
	for _, s := range f.Journey {
		def, err := s.definition()
		if err != nil {
			return nil, err
		}
		if _, dup := c.stepIndex[def.Key()]; dup {
			return nil, fmt.Errorf("catalog: duplicate journey step %s", def.Key())
		}
		c.stepIndex[def.Key()] = len(c.steps)
		c.steps = append(c.steps, def)
	}
	if len(c.steps) == 0 {
		return nil, fmt.Errorf("catalog: journey has no steps")
	}
	for _, b := range f.Badges {
		def, err := b.definition()
		if err != nil {
			return nil, err
		}
		if _, dup := c.badgeIndex[def.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate badge id %q", def.ID)
		}
		c.badgeIndex[def.ID] = len(c.badges)
		c.badges = append(c.badges, def)
	}
	for _, e := range f.Engagements {
		if e.Type == "" || len(e.Templates) == 0 {
			return nil, fmt.Errorf("catalog: engagement %q needs a type and templates", e.Type)
		}
		if e.Hour < 0 || e.Hour > 23 {
			return nil, fmt.Errorf("catalog: engagement %q hour out of range", e.Type)
		}
		c.engagementIndex[e.Type] = len(c.engagements)
		c.engagements = append(c.engagements, e)
	}
	for _, s := range f.Sequences {
		if s.Name == "" || s.Trigger == "" {
			return nil, fmt.Errorf("catalog: sequence needs name and trigger")
		}
	}
	c.sequences = f.Sequences
	return c, nil
}

func (c *Catalog) Version() string { return c.version }
