package journey

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
)

type PhaseStats struct {
	Phase     string `json:"phase"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

type Stats struct {
	Completed        int          `json:"completed"`
	Total            int          `json:"total"`
	Percent          float64      `json:"percent"`
	Phases           []PhaseStats `json:"phases"`
	TimeSpentSeconds int          `json:"time_spent_seconds"`
	Status           string       `json:"status,omitempty"`
}

// GetStats summarizes a user's completions against the catalog. Completions
// recorded under an older catalog that no longer name a step are ignored.
func (u Usecases) GetStats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	dbc := dbctx.Of(ctx)
	rows, err := u.deps.Journey.ListCompletions(dbc, userID)
	if err != nil {
		return Stats{}, err
	}
	p, err := u.deps.Journey.GetProgress(dbc, userID)
	if err != nil {
		return Stats{}, err
	}

	perPhaseDone := map[string]int{}
	out := Stats{Total: u.deps.Catalog.StepCount()}
	for _, c := range rows {
		if _, ok := u.deps.Catalog.Step(c.Phase, c.Step); !ok {
			continue
		}
		out.Completed++
		out.TimeSpentSeconds += c.DurationSeconds
		perPhaseDone[c.Phase]++
	}
	perPhaseTotal := map[string]int{}
	for _, s := range u.deps.Catalog.Steps() {
		perPhaseTotal[s.Phase]++
	}
	for _, ph := range u.deps.Catalog.Phases() {
		out.Phases = append(out.Phases, PhaseStats{Phase: ph, Completed: perPhaseDone[ph], Total: perPhaseTotal[ph]})
	}
	if out.Total > 0 {
		out.Percent = float64(out.Completed) * 100 / float64(out.Total)
	}
	if p != nil {
		out.Status = p.Status
	}
	return out, nil
}
