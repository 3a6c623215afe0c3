package domain

import (
	"github.com/yungbote/coachflow-backend/internal/domain/activity"
	"github.com/yungbote/coachflow-backend/internal/domain/badges"
	"github.com/yungbote/coachflow-backend/internal/domain/engagement"
	"github.com/yungbote/coachflow-backend/internal/domain/events"
	"github.com/yungbote/coachflow-backend/internal/domain/jobs"
	"github.com/yungbote/coachflow-backend/internal/domain/journey"
	"github.com/yungbote/coachflow-backend/internal/domain/messaging"
	"github.com/yungbote/coachflow-backend/internal/domain/sequences"
	"github.com/yungbote/coachflow-backend/internal/domain/user"
)

type User = user.User
type CommunicationPreference = user.CommunicationPreference

type JourneyProgress = journey.Progress
type JourneyStepCompletion = journey.StepCompletion

type EngagementType = engagement.Type
type EngagementSchedule = engagement.Schedule

type ActivityLog = activity.Log
type UserStreak = activity.Streak
type Goal = activity.Goal
type Milestone = activity.Milestone

type UserBadge = badges.UserBadge

type Sequence = sequences.Sequence
type SequenceStep = sequences.Step
type MessageTemplate = sequences.Template
type ClientSequenceEnrollment = sequences.Enrollment

type Message = messaging.Message
type Notification = messaging.Notification

type ProgressEvent = events.ProgressEvent

type CronRun = jobs.CronRun
type MetricSnapshot = jobs.MetricSnapshot

const (
	UserStatusActive = user.StatusActive

	JourneyStatusActive    = journey.StatusActive
	JourneyStatusCompleted = journey.StatusCompleted

	EngagementScheduled = engagement.StatusScheduled
	EngagementDelivered = engagement.StatusDelivered
	EngagementFailed    = engagement.StatusFailed

	EnrollmentActive    = sequences.EnrollmentActive
	EnrollmentCompleted = sequences.EnrollmentCompleted
	EnrollmentPaused    = sequences.EnrollmentPaused

	ChannelInApp = messaging.ChannelInApp
	ChannelEmail = messaging.ChannelEmail
	ChannelSMS   = messaging.ChannelSMS
)

// AllModels lists every persisted model in migration order.
func AllModels() []any {
	return []any{
		&User{},
		&CommunicationPreference{},
		&JourneyProgress{},
		&JourneyStepCompletion{},
		&EngagementSchedule{},
		&ActivityLog{},
		&UserStreak{},
		&Goal{},
		&Milestone{},
		&UserBadge{},
		&MessageTemplate{},
		&Sequence{},
		&SequenceStep{},
		&ClientSequenceEnrollment{},
		&Message{},
		&Notification{},
		&ProgressEvent{},
		&CronRun{},
		&MetricSnapshot{},
	}
}
