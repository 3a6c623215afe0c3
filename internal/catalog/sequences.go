package catalog

// SequenceSeed is a predefined campaign installed by the seed command.
type SequenceSeed struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Trigger     string     `yaml:"trigger"`
	Steps       []StepSeed `yaml:"steps"`
}

type StepSeed struct {
	DelayDays  int    `yaml:"delay_days"`
	DelayHours int    `yaml:"delay_hours"`
	Channel    string `yaml:"channel"`
	Subject    string `yaml:"subject"`
	Content    string `yaml:"content"`
}

func (c *Catalog) SequenceSeeds() []SequenceSeed {
	out := make([]SequenceSeed, len(c.sequences))
	copy(out, c.sequences)
	return out
}
