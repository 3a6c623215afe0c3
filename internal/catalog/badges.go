package catalog

import "fmt"

type BadgeDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Category    string   `json:"category"`
	Rarity      string   `json:"rarity"`
	Points      int      `json:"points"`
	Active      bool     `json:"active"`
	Criteria    Criteria `json:"-"`
}

type badgeYAML struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Icon        string       `yaml:"icon"`
	Category    string       `yaml:"category"`
	Rarity      string       `yaml:"rarity"`
	Points      int          `yaml:"points"`
	Inactive    bool         `yaml:"inactive"`
	Criteria    criteriaYAML `yaml:"criteria"`
}

func (b badgeYAML) definition() (BadgeDefinition, error) {
	if b.ID == "" || b.Name == "" {
		return BadgeDefinition{}, fmt.Errorf("catalog: badge needs id and name")
	}
	crit, err := b.Criteria.criteria()
	if err != nil {
		return BadgeDefinition{}, fmt.Errorf("catalog: badge %q: %w", b.ID, err)
	}
	return BadgeDefinition{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Icon:        b.Icon,
		Category:    b.Category,
		Rarity:      b.Rarity,
		Points:      b.Points,
		Active:      !b.Inactive,
		Criteria:    crit,
	}, nil
}

func (c *Catalog) Badges() []BadgeDefinition {
	out := make([]BadgeDefinition, len(c.badges))
	copy(out, c.badges)
	return out
}

func (c *Catalog) ActiveBadges() []BadgeDefinition {
	out := make([]BadgeDefinition, 0, len(c.badges))
	for _, b := range c.badges {
		if b.Active {
			out = append(out, b)
		}
	}
	return out
}

func (c *Catalog) Badge(id string) (BadgeDefinition, bool) {
	i, ok := c.badgeIndex[id]
	if !ok {
		return BadgeDefinition{}, false
	}
	return c.badges[i], true
}
