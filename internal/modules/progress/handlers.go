package progress

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/events"
	msgtypes "github.com/yungbote/coachflow-backend/internal/domain/messaging"
	"github.com/yungbote/coachflow-backend/internal/modules/engagement"
	"github.com/yungbote/coachflow-backend/internal/modules/messaging"
	"github.com/yungbote/coachflow-backend/internal/notify"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
)

const (
	MilestoneGoalCompleted     = "goal_completed"
	MilestoneProfileCompletion = "profile_completion"
)

func (u Usecases) registerDefaults() {
	u.handlers[events.GoalCompleted] = u.onGoalCompleted
	u.handlers[events.CourseStarted] = u.onCourseStarted
	u.handlers[events.CourseCompleted] = u.onCourseCompleted
	u.handlers[events.StreakAchieved] = u.onStreakAchieved
	u.handlers[events.MilestoneReached] = u.onMilestoneReached
	u.handlers[events.InactiveWarning] = u.onInactiveWarning
	u.handlers[events.ProfileUpdated] = u.onProfileUpdated
	u.handlers[events.JourneyStarted] = u.onJourneyEvent
	u.handlers[events.JourneyStepCompleted] = u.onJourneyEvent
	u.handlers[events.JourneyCompleted] = u.onJourneyEvent
}

func (u Usecases) onGoalCompleted(ctx context.Context, ev *types.ProgressEvent, p Payload) error {
	title := p.String("goal_title")
	var errs []error
	if id, err := uuid.Parse(p.String("goal_id")); err == nil {
		if _, err := u.deps.Activity.CompleteGoal(dbctx.Of(ctx), id, ev.OccurredAt); err != nil {
			errs = append(errs, fmt.Errorf("complete goal: %w", err))
		}
	}
	errs = append(errs,
		u.recordMilestone(ctx, ev, MilestoneGoalCompleted, 1),
		u.notify(ctx, ev, "🎯 Doel behaald!", fmt.Sprintf("Gefeliciteerd! Je hebt je doel '%s' behaald.", title), msgtypes.PriorityHigh),
		u.trigger(ctx, ev, "goal_achieved", map[string]any{"goalTitle": title}),
		u.followUp(ctx, ev, 72*time.Hour, msgtypes.ChannelInApp, "Wat is je volgende stap?",
			fmt.Sprintf("Een paar dagen geleden behaalde je '%s'. Tijd om een nieuw doel te stellen?", title)),
		u.recordActivity(ctx, ev),
		u.checkBadges(ctx, ev),
	)
	return errors.Join(errs...)
}

func (u Usecases) onCourseStarted(ctx context.Context, ev *types.ProgressEvent, p Payload) error {
	course := p.String("course_name")
	return errors.Join(
		u.trigger(ctx, ev, events.CourseStarted, map[string]any{"courseName": course}),
		u.followUp(ctx, ev, 24*time.Hour, msgtypes.ChannelInApp, "Hoe bevalt de cursus?",
			fmt.Sprintf("Gisteren ben je begonnen met %s. Heb je de eerste les al afgerond?", course)),
		u.recordActivity(ctx, ev),
	)
}

func (u Usecases) onCourseCompleted(ctx context.Context, ev *types.ProgressEvent, p Payload) error {
	course := p.String("course_name")
	return errors.Join(
		u.notify(ctx, ev, "📚 Cursus voltooid!", fmt.Sprintf("Je hebt %s afgerond. Goed bezig!", course), msgtypes.PriorityHigh),
		u.trigger(ctx, ev, events.CourseCompleted, map[string]any{"courseName": course}),
		u.recordActivity(ctx, ev),
		u.checkBadges(ctx, ev),
	)
}

func (u Usecases) onStreakAchieved(ctx context.Context, ev *types.ProgressEvent, p Payload) error {
	streak := p.Int("streak")
	var errs []error
	if slices.Contains(engagement.StreakMilestones, streak) && u.deps.Recorder != nil {
		if _, err := u.deps.Recorder.CelebrateStreak(ctx, ev.UserID, streak); err != nil {
			errs = append(errs, fmt.Errorf("celebrate streak: %w", err))
		}
	}
	errs = append(errs, u.checkBadges(ctx, ev))
	return errors.Join(errs...)
}

func (u Usecases) onMilestoneReached(ctx context.Context, ev *types.ProgressEvent, p Payload) error {
	key := p.String("milestone")
	if key == "" {
		return fmt.Errorf("milestone_reached without milestone key")
	}
	return errors.Join(
		u.recordMilestone(ctx, ev, key, p.Int("value")),
		u.notify(ctx, ev, "⭐ Mijlpaal bereikt!", fmt.Sprintf("Je hebt een mijlpaal bereikt: %s.", key), msgtypes.PriorityNormal),
		u.trigger(ctx, ev, events.MilestoneReached, map[string]any{"milestone": key}),
		u.checkBadges(ctx, ev),
	)
}

func (u Usecases) onInactiveWarning(ctx context.Context, ev *types.ProgressEvent, p Payload) error {
	trigger := "inactive_3_days"
	if p.Int("days_inactive") >= 7 {
		trigger = "inactive_7_days"
	}
	return errors.Join(
		u.trigger(ctx, ev, trigger, map[string]any{"daysInactive": p.Int("days_inactive")}),
		u.followUp(ctx, ev, 2*time.Hour, msgtypes.ChannelInApp, "Even een herinnering",
			"Kleine stappen tellen ook. Open vandaag je journey en kies één actie."),
	)
}

func (u Usecases) onProfileUpdated(ctx context.Context, ev *types.ProgressEvent, p Payload) error {
	var errs []error
	if pct := p.Int("completion"); pct > 0 {
		errs = append(errs, u.recordMilestone(ctx, ev, MilestoneProfileCompletion, pct))
	}
	if p.Bool("complete") {
		errs = append(errs, u.trigger(ctx, ev, "profile_completed", nil))
	}
	errs = append(errs, u.checkBadges(ctx, ev))
	return errors.Join(errs...)
}

func (u Usecases) onJourneyEvent(ctx context.Context, ev *types.ProgressEvent, p Payload) error {
	var errs []error
	errs = append(errs, u.recordActivity(ctx, ev))
	if ev.EventType == events.JourneyCompleted {
		errs = append(errs, u.notify(ctx, ev, "🎉 Journey voltooid!",
			"Je hebt alle stappen van je journey afgerond. Wat een prestatie!", msgtypes.PriorityHigh))
	}
	return errors.Join(errs...)
}

func (u Usecases) notify(ctx context.Context, ev *types.ProgressEvent, title, body, priority string) error {
	if u.deps.Notifier == nil {
		return nil
	}
	expires := ev.OccurredAt.Add(7 * 24 * time.Hour)
	_, err := u.deps.Notifier.Send(ctx, msgtypes.ChannelInApp, ev.UserID.String(), notify.Content{
		Type:      ev.EventType,
		Title:     title,
		Body:      body,
		Priority:  priority,
		Data:      map[string]any{"event_id": ev.ID.String()},
		ExpiresAt: &expires,
		DedupeKey: "event:" + ev.ID.String() + ":notify",
	})
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func (u Usecases) trigger(ctx context.Context, ev *types.ProgressEvent, name string, vars map[string]any) error {
	if u.deps.Sequences == nil {
		return nil
	}
	if _, err := u.deps.Sequences.TriggerEnrollmentRef(ctx, ev.UserID, name, "event:"+ev.ID.String(), vars); err != nil {
		return fmt.Errorf("trigger %s: %w", name, err)
	}
	return nil
}

func (u Usecases) followUp(ctx context.Context, ev *types.ProgressEvent, after time.Duration, channel, subject, content string) error {
	if u.deps.Messages == nil {
		return nil
	}
	_, err := u.deps.Messages.ScheduleMessage(ctx, messaging.ScheduleMessageInput{
		SendMessageInput: messaging.SendMessageInput{
			ClientID:  ev.UserID,
			Channel:   channel,
			Subject:   subject,
			Content:   content,
			DedupeKey: "event:" + ev.ID.String() + ":followup",
		},
		At: ev.OccurredAt.Add(after),
	})
	if err != nil {
		return fmt.Errorf("schedule follow-up: %w", err)
	}
	return nil
}

func (u Usecases) recordMilestone(ctx context.Context, ev *types.ProgressEvent, key string, value int) error {
	_, err := u.deps.Activity.RecordMilestone(dbctx.Of(ctx), &types.Milestone{
		UserID:     ev.UserID,
		Key:        key,
		Reference:  ev.ID.String(),
		Value:      value,
		OccurredAt: ev.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("record milestone %s: %w", key, err)
	}
	return nil
}

func (u Usecases) recordActivity(ctx context.Context, ev *types.ProgressEvent) error {
	if u.deps.Recorder == nil {
		return nil
	}
	_, err := u.deps.Recorder.RecordActivity(ctx, engagement.RecordActivityInput{
		UserID:       ev.UserID,
		ActivityType: ev.EventType,
		Metadata:     map[string]any{"event_id": ev.ID.String()},
		OccurredAt:   ev.OccurredAt,
		DedupeKey:    "event:" + ev.ID.String() + ":activity",
	})
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

func (u Usecases) checkBadges(ctx context.Context, ev *types.ProgressEvent) error {
	if u.deps.Badges == nil {
		return nil
	}
	if _, err := u.deps.Badges.CheckAndAward(ctx, ev.UserID); err != nil {
		return fmt.Errorf("check badges: %w", err)
	}
	return nil
}
