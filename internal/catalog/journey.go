package catalog

import (
	"fmt"
	"strings"
)

type StepKind string

const (
	KindScreen      StepKind = "screen"
	KindQuiz        StepKind = "quiz"
	KindTask        StepKind = "task"
	KindReflection  StepKind = "reflection"
	KindCelebration StepKind = "celebration"
)

type StepKey struct {
	Phase string
	Step  int
}

func (k StepKey) String() string { return fmt.Sprintf("%s-%d", k.Phase, k.Step) }

type StepDefinition struct {
	Phase            string   `json:"phase"`
	Step             int      `json:"step"`
	Name             string   `json:"name"`
	Kind             StepKind `json:"kind"`
	Required         bool     `json:"required"`
	EstimatedMinutes int      `json:"estimated_minutes"`
}

func (d StepDefinition) Key() StepKey { return StepKey{Phase: d.Phase, Step: d.Step} }

type stepYAML struct {
	Phase    string `yaml:"phase"`
	Step     int    `yaml:"step"`
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Required bool   `yaml:"required"`
	Minutes  int    `yaml:"minutes"`
}

func (s stepYAML) definition() (StepDefinition, error) {
	kind := StepKind(strings.TrimSpace(s.Kind))
	switch kind {
	case KindScreen, KindQuiz, KindTask, KindReflection, KindCelebration:
	default:
		return StepDefinition{}, fmt.Errorf("catalog: step %s-%d has unknown kind %q", s.Phase, s.Step, s.Kind)
	}
	if strings.TrimSpace(s.Phase) == "" || s.Step < 1 {
		return StepDefinition{}, fmt.Errorf("catalog: step needs a phase and a positive number")
	}
	return StepDefinition{
		Phase:            s.Phase,
		Step:             s.Step,
		Name:             s.Name,
		Kind:             kind,
		Required:         s.Required,
		EstimatedMinutes: s.Minutes,
	}, nil
}

// Steps returns the journey in its total order.
func (c *Catalog) Steps() []StepDefinition {
	out := make([]StepDefinition, len(c.steps))
	copy(out, c.steps)
	return out
}

func (c *Catalog) FirstStep() StepDefinition { return c.steps[0] }

// IndexOf returns the position of (phase, step) in the total order.
func (c *Catalog) IndexOf(phase string, step int) (int, bool) {
	i, ok := c.stepIndex[StepKey{Phase: phase, Step: step}]
	return i, ok
}

func (c *Catalog) Step(phase string, step int) (StepDefinition, bool) {
	i, ok := c.IndexOf(phase, step)
	if !ok {
		return StepDefinition{}, false
	}
	return c.steps[i], true
}

// Next returns the single successor of (phase, step); ok is false at the end
// of the journey or for unknown steps.
func (c *Catalog) Next(phase string, step int) (StepDefinition, bool) {
	i, ok := c.IndexOf(phase, step)
	if !ok || i+1 >= len(c.steps) {
		return StepDefinition{}, false
	}
	return c.steps[i+1], true
}

func (c *Catalog) StepCount() int { return len(c.steps) }

// Phases returns phase names in first-appearance order.
func (c *Catalog) Phases() []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range c.steps {
		if !seen[s.Phase] {
			seen[s.Phase] = true
			out = append(out, s.Phase)
		}
	}
	return out
}
