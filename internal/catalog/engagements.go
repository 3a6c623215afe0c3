package catalog

const (
	CadenceDaily    = "daily"
	CadenceWeekly   = "weekly"
	CadenceOnDemand = "on_demand"
)

// EngagementDefinition describes one engagement type: its local slot hour,
// default channel and the fallback content pool.
type EngagementDefinition struct {
	Type             string   `yaml:"type" json:"type"`
	Title            string   `yaml:"title" json:"title"`
	Hour             int      `yaml:"hour" json:"hour"`
	Channel          string   `yaml:"channel" json:"channel"`
	Cadence          string   `yaml:"cadence" json:"cadence"`
	QuietHoursApply  bool     `yaml:"quiet_hours_apply" json:"quiet_hours_apply"`
	NotificationType string   `yaml:"notification_type" json:"notification_type"`
	Templates        []string `yaml:"templates" json:"-"`
}

func (c *Catalog) Engagement(t string) (EngagementDefinition, bool) {
	i, ok := c.engagementIndex[t]
	if !ok {
		return EngagementDefinition{}, false
	}
	return c.engagements[i], true
}

// EngagementsByCadence returns definitions for cadence in catalog order.
func (c *Catalog) EngagementsByCadence(cadence string) []EngagementDefinition {
	var out []EngagementDefinition
	for _, e := range c.engagements {
		if e.Cadence == cadence {
			out = append(out, e)
		}
	}
	return out
}
