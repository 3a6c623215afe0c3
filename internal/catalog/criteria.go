package catalog

import (
	"fmt"
	"strings"
)

type CriteriaKind string

const (
	CriteriaStreak      CriteriaKind = "streak"
	CriteriaCount       CriteriaKind = "count"
	CriteriaAchievement CriteriaKind = "achievement"
	CriteriaTimeBased   CriteriaKind = "time_based"
)

// Criteria is the rule a badge is evaluated against. Implementations are
// StreakCriteria, CountCriteria, AchievementCriteria and TimeBasedCriteria.
type Criteria interface {
	Kind() CriteriaKind
	Target() int
}

type StreakCriteria struct {
	Threshold  int
	StreakType string
}

func (StreakCriteria) Kind() CriteriaKind { return CriteriaStreak }
func (c StreakCriteria) Target() int      { return c.Threshold }

type CountSource string

const (
	CountActivity       CountSource = "activity"
	CountCompletedGoals CountSource = "completed_goals"
)

type Timeframe string

const (
	TimeframeAll     Timeframe = ""
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
)

// CountCriteria counts activity-log rows (optionally of one ActivityType) or
// completed goals, optionally only within Timeframe.
type CountCriteria struct {
	Threshold    int
	Source       CountSource
	ActivityType string
	Timeframe    Timeframe
}

func (CountCriteria) Kind() CriteriaKind { return CriteriaCount }
func (c CountCriteria) Target() int      { return c.Threshold }

type MilestoneMeasure string

const (
	MeasureOccurrences MilestoneMeasure = "occurrences"
	MeasureMaxValue    MilestoneMeasure = "max_value"
)

// AchievementCriteria checks recorded milestones: either how often it occurred
// or the highest value recorded for it.
type AchievementCriteria struct {
	Threshold int
	Milestone string
	Measure   MilestoneMeasure
}

func (AchievementCriteria) Kind() CriteriaKind { return CriteriaAchievement }
func (c AchievementCriteria) Target() int      { return c.Threshold }

// TimeBasedCriteria is satisfied once the account is Days old.
type TimeBasedCriteria struct {
	Days int
}

func (TimeBasedCriteria) Kind() CriteriaKind { return CriteriaTimeBased }
func (c TimeBasedCriteria) Target() int      { return c.Days }

type criteriaYAML struct {
	Kind         string `yaml:"kind"`
	Threshold    int    `yaml:"threshold"`
	StreakType   string `yaml:"streak_type"`
	Source       string `yaml:"source"`
	ActivityType string `yaml:"activity_type"`
	Timeframe    string `yaml:"timeframe"`
	Milestone    string `yaml:"milestone"`
	Measure      string `yaml:"measure"`
}

func (c criteriaYAML) criteria() (Criteria, error) {
	if c.Threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive")
	}
	switch CriteriaKind(strings.TrimSpace(c.Kind)) {
	case CriteriaStreak:
		st := c.StreakType
		if st == "" {
			st = "daily_engagement"
		}
		return StreakCriteria{Threshold: c.Threshold, StreakType: st}, nil
	case CriteriaCount:
		src := CountSource(c.Source)
		switch src {
		case CountActivity, CountCompletedGoals:
		default:
			return nil, fmt.Errorf("unknown count source %q", c.Source)
		}
		tf := Timeframe(c.Timeframe)
		switch tf {
		case TimeframeAll, TimeframeDaily, TimeframeWeekly, TimeframeMonthly:
		default:
			return nil, fmt.Errorf("unknown timeframe %q", c.Timeframe)
		}
		return CountCriteria{Threshold: c.Threshold, Source: src, ActivityType: c.ActivityType, Timeframe: tf}, nil
	case CriteriaAchievement:
		if c.Milestone == "" {
			return nil, fmt.Errorf("achievement needs a milestone")
		}
		m := MilestoneMeasure(c.Measure)
		if m == "" {
			m = MeasureOccurrences
		}
		if m != MeasureOccurrences && m != MeasureMaxValue {
			return nil, fmt.Errorf("unknown measure %q", c.Measure)
		}
		return AchievementCriteria{Threshold: c.Threshold, Milestone: c.Milestone, Measure: m}, nil
	case CriteriaTimeBased:
		return TimeBasedCriteria{Days: c.Threshold}, nil
	default:
		return nil, fmt.Errorf("unknown criteria kind %q", c.Kind)
	}
}
