package engagement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	engtypes "github.com/yungbote/coachflow-backend/internal/domain/engagement"
	"github.com/yungbote/coachflow-backend/internal/notify"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
)

const dayLayout = "2006-01-02"

type ScheduleResult struct {
	Day       string `json:"day"`
	Scheduled int    `json:"scheduled"`
	Skipped   int    `json:"skipped"`
}

// ScheduleDaily plans every daily engagement for the user's local today.
// Slots inside quiet hours are skipped when the type honours them; rows that
// already exist for (user, type, day) are left untouched.
func (u Usecases) ScheduleDaily(ctx context.Context, userID uuid.UUID) (ScheduleResult, error) {
	return u.scheduleCadence(ctx, userID, catalog.CadenceDaily, func(local time.Time) time.Time { return local })
}

// ScheduleWeeklyReflection plans the weekly reflection for the coming Sunday
// (today when today is Sunday) in the user's timezone.
func (u Usecases) ScheduleWeeklyReflection(ctx context.Context, userID uuid.UUID) (ScheduleResult, error) {
	return u.scheduleCadence(ctx, userID, catalog.CadenceWeekly, func(local time.Time) time.Time {
		return local.AddDate(0, 0, (7-int(local.Weekday()))%7)
	})
}

func (u Usecases) scheduleCadence(ctx context.Context, userID uuid.UUID, cadence string, dayOf func(time.Time) time.Time) (ScheduleResult, error) {
	dbc := dbctx.Of(ctx)
	user, err := u.deps.Users.GetByID(dbc, userID)
	if err != nil {
		return ScheduleResult{}, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return ScheduleResult{}, fmt.Errorf("user %s: %w", userID, pkgerrors.ErrNotFound)
	}
	prefs, err := u.deps.Users.GetPreferences(dbc, userID)
	if err != nil {
		return ScheduleResult{}, fmt.Errorf("load preferences: %w", err)
	}

	loc := u.location(prefs)
	day := dayOf(u.deps.Now().In(loc))
	res := ScheduleResult{Day: day.Format(dayLayout)}

	var quiet QuietHours
	hasQuiet := false
	if prefs != nil {
		quiet, hasQuiet = ParseQuietHours(prefs.QuietStart, prefs.QuietEnd)
	}

	for _, def := range u.deps.Catalog.EngagementsByCadence(cadence) {
		at := time.Date(day.Year(), day.Month(), day.Day(), u.slotHour(def), 0, 0, 0, loc)
		if def.QuietHoursApply && hasQuiet && quiet.ContainsTime(at) {
			res.Skipped++
			continue
		}
		if !notify.Allowed(prefs, def.Channel) {
			res.Skipped++
			continue
		}
		meta, _ := json.Marshal(map[string]any{"timezone": loc.String(), "local_hour": at.Hour()})
		inserted, err := u.deps.Engagement.InsertIgnore(dbc, &types.EngagementSchedule{
			UserID:       userID,
			Type:         engtypes.Type(def.Type),
			ScheduledDay: res.Day,
			ScheduledFor: at,
			Status:       types.EngagementScheduled,
			Channel:      def.Channel,
			Title:        def.Title,
			Metadata:     datatypes.JSON(meta),
		})
		if err != nil {
			return res, fmt.Errorf("schedule %s: %w", def.Type, err)
		}
		if inserted {
			res.Scheduled++
		}
	}
	return res, nil
}

// location resolves the user's timezone, falling back to the configured default.
func (u Usecases) location(prefs *types.CommunicationPreference) *time.Location {
	if prefs != nil && prefs.Timezone != "" {
		if loc, err := time.LoadLocation(prefs.Timezone); err == nil {
			return loc
		}
		u.deps.Log.Warn("unknown user timezone, using default", "user_id", prefs.UserID, "timezone", prefs.Timezone)
	}
	loc, err := time.LoadLocation(u.deps.Config.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
