package badges

import (
	"fmt"
	"time"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
)

// metric returns the user's current value for c.
func (u Usecases) metric(dbc dbctx.Context, user *types.User, c catalog.Criteria, now time.Time) (int, error) {
	switch c := c.(type) {
	case catalog.StreakCriteria:
		s, err := u.deps.Activity.GetStreak(dbc, user.ID, c.StreakType)
		if err != nil || s == nil {
			return 0, err
		}
		return max(s.CurrentStreak, s.LongestStreak), nil

	case catalog.CountCriteria:
		since := timeframeStart(c.Timeframe, now)
		var (
			n   int64
			err error
		)
		switch c.Source {
		case catalog.CountCompletedGoals:
			n, err = u.deps.Activity.CountCompletedGoals(dbc, user.ID, since)
		default:
			n, err = u.deps.Activity.CountActivities(dbc, user.ID, c.ActivityType, since)
		}
		return int(n), err

	case catalog.AchievementCriteria:
		if c.Measure == catalog.MeasureMaxValue {
			return u.deps.Activity.MaxMilestoneValue(dbc, user.ID, c.Milestone)
		}
		n, err := u.deps.Activity.CountMilestones(dbc, user.ID, c.Milestone)
		return int(n), err

	case catalog.TimeBasedCriteria:
		days := int(now.Sub(user.CreatedAt) / (24 * time.Hour))
		return max(days, 0), nil
	}
	return 0, fmt.Errorf("unsupported criteria %T", c)
}

func timeframeStart(tf catalog.Timeframe, now time.Time) *time.Time {
	var since time.Time
	switch tf {
	case catalog.TimeframeDaily:
		since = now.Add(-24 * time.Hour)
	case catalog.TimeframeWeekly:
		since = now.AddDate(0, 0, -7)
	case catalog.TimeframeMonthly:
		since = now.AddDate(0, -1, 0)
	default:
		return nil
	}
	return &since
}
