package engagement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/activity"
	"github.com/yungbote/coachflow-backend/internal/domain/events"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
)

// StreakMilestones are the daily streak lengths that raise a streak_achieved event.
var StreakMilestones = []int{7, 14, 30, 60, 100, 180, 365}

type RecordActivityInput struct {
	UserID       uuid.UUID
	ActivityType string
	Metadata     map[string]any
	// OccurredAt defaults to now.
	OccurredAt time.Time
	// DedupeKey makes a replayed activity log a no-op.
	DedupeKey string
}

// RecordActivity logs the activity and updates the user's daily streak:
// activity on the day after the last active day extends it, a gap resets it
// to one, and further activity on the same day changes nothing.
func (u Usecases) RecordActivity(ctx context.Context, in RecordActivityInput) (*types.UserStreak, error) {
	if in.UserID == uuid.Nil || in.ActivityType == "" {
		return nil, fmt.Errorf("record activity: user and type are required")
	}
	dbc := dbctx.Of(ctx)
	at := in.OccurredAt
	if at.IsZero() {
		at = u.deps.Now()
	}

	entry := &types.ActivityLog{UserID: in.UserID, ActivityType: in.ActivityType, OccurredAt: at}
	if in.DedupeKey != "" {
		key := in.DedupeKey
		entry.DedupeKey = &key
	}
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode activity metadata: %w", err)
		}
		entry.Metadata = datatypes.JSON(raw)
	}
	if err := u.deps.Activity.LogActivity(dbc, entry); err != nil {
		return nil, fmt.Errorf("log activity: %w", err)
	}

	prefs, err := u.deps.Users.GetPreferences(dbc, in.UserID)
	if err != nil {
		return nil, err
	}
	local := at.In(u.location(prefs))
	streak, err := u.deps.Activity.GetStreak(dbc, in.UserID, activity.StreakDaily)
	if err != nil {
		return nil, err
	}
	next, advanced := advanceStreak(streak, in.UserID, local)
	if !advanced {
		return next, nil
	}
	if err := u.deps.Activity.SaveStreak(dbc, next); err != nil {
		return nil, fmt.Errorf("save streak: %w", err)
	}
	if isStreakMilestone(next.CurrentStreak) && u.deps.Events != nil {
		if err := u.deps.Events.TrackEvent(ctx, in.UserID, events.StreakAchieved, map[string]any{
			"streak":      next.CurrentStreak,
			"streak_type": next.StreakType,
		}); err != nil {
			u.deps.Log.Warn("streak event dispatch failed", "user_id", in.UserID, "error", err)
		}
	}
	return next, nil
}

// advanceStreak returns the streak after activity on local's calendar day and
// whether it changed.
func advanceStreak(cur *types.UserStreak, userID uuid.UUID, local time.Time) (*types.UserStreak, bool) {
	today := local.Format(dayLayout)
	if cur == nil {
		return &types.UserStreak{
			UserID:           userID,
			StreakType:       activity.StreakDaily,
			CurrentStreak:    1,
			LongestStreak:    1,
			LastActivityDate: today,
		}, true
	}
	if cur.LastActivityDate >= today {
		return cur, false
	}
	next := *cur
	yesterday := local.AddDate(0, 0, -1).Format(dayLayout)
	if cur.LastActivityDate == yesterday {
		next.CurrentStreak = cur.CurrentStreak + 1
	} else {
		next.CurrentStreak = 1
	}
	next.LongestStreak = max(cur.LongestStreak, next.CurrentStreak)
	next.LastActivityDate = today
	return &next, true
}

func isStreakMilestone(n int) bool {
	for _, m := range StreakMilestones {
		if n == m {
			return true
		}
	}
	return false
}
