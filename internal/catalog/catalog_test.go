package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_LoadsEmbeddedCatalog(t *testing.T) {
	c := Default()
	require.NotEmpty(t, c.Version())
	assert.Equal(t, 28, c.StepCount())
	assert.Len(t, c.Badges(), 15)

	first := c.FirstStep()
	assert.Equal(t, StepKey{Phase: "welcome", Step: 1}, first.Key())

	next, ok := c.Next("scan", 8)
	require.True(t, ok)
	assert.Equal(t, StepKey{Phase: "goals", Step: 1}, next.Key())

	_, ok = c.Next("annual", 3)
	assert.False(t, ok, "last step has no successor")

	_, ok = c.Next("nope", 1)
	assert.False(t, ok)

	assert.Equal(t, []string{"welcome", "scan", "goals", "optimization", "week1", "monthly", "tracking", "annual"}, c.Phases())
}

func TestDefault_BadgeCriteriaAreTyped(t *testing.T) {
	c := Default()

	b, ok := c.Badge("eerste_stap")
	require.True(t, ok)
	sc, ok := b.Criteria.(StreakCriteria)
	require.True(t, ok)
	assert.Equal(t, 7, sc.Threshold)
	assert.Equal(t, "daily_engagement", sc.StreakType)

	b, _ = c.Badge("communicator")
	cc, ok := b.Criteria.(CountCriteria)
	require.True(t, ok)
	assert.Equal(t, CountActivity, cc.Source)
	assert.Equal(t, "message_sent", cc.ActivityType)

	b, _ = c.Badge("profiel_pro")
	ac, ok := b.Criteria.(AchievementCriteria)
	require.True(t, ok)
	assert.Equal(t, MeasureMaxValue, ac.Measure)

	b, _ = c.Badge("dating_legende")
	assert.Equal(t, CriteriaTimeBased, b.Criteria.Kind())
	assert.Equal(t, 365, b.Criteria.Target())
}

func TestDefault_EngagementsAndSequences(t *testing.T) {
	c := Default()
	daily := c.EngagementsByCadence(CadenceDaily)
	require.Len(t, daily, 3)
	assert.Equal(t, 9, daily[0].Hour)

	evening, ok := c.Engagement("evening_checkin")
	require.True(t, ok)
	assert.True(t, evening.QuietHoursApply)
	assert.NotEmpty(t, evening.Templates)

	assert.NotEmpty(t, c.SequenceSeeds())
}

func TestParse_RejectsBadData(t *testing.T) {
	_, err := Parse([]byte("version: x\njourney:\n  - {phase: a, step: 1, kind: dance}\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("version: x\njourney:\n  - {phase: a, step: 1, kind: task}\n  - {phase: a, step: 1, kind: task}\n"))
	assert.Error(t, err, "duplicate steps")

	_, err = Parse([]byte("journey:\n  - {phase: a, step: 1, kind: task}\n"))
	assert.Error(t, err, "missing version")

	_, err = Parse([]byte(`version: x
journey:
  - {phase: a, step: 1, kind: task}
badges:
  - {id: b, name: B, criteria: {kind: count, threshold: 1, source: vibes}}
`))
	assert.Error(t, err)
}

func TestParse_LinearJourney(t *testing.T) {
	c, err := Parse([]byte(`version: test
journey:
  - {phase: A, step: 1, kind: task, required: true}
  - {phase: A, step: 2, kind: task, required: true}
  - {phase: B, step: 1, kind: task}
`))
	require.NoError(t, err)
	idx, ok := c.IndexOf("B", 1)
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	n, ok := c.Next("A", 1)
	require.True(t, ok)
	assert.Equal(t, StepKey{Phase: "A", Step: 2}, n.Key())
}
