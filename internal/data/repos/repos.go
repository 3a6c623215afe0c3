package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/coachflow-backend/internal/data/repos/activity"
	"github.com/yungbote/coachflow-backend/internal/data/repos/badges"
	"github.com/yungbote/coachflow-backend/internal/data/repos/engagement"
	"github.com/yungbote/coachflow-backend/internal/data/repos/events"
	"github.com/yungbote/coachflow-backend/internal/data/repos/jobs"
	"github.com/yungbote/coachflow-backend/internal/data/repos/journey"
	"github.com/yungbote/coachflow-backend/internal/data/repos/messaging"
	"github.com/yungbote/coachflow-backend/internal/data/repos/sequences"
	"github.com/yungbote/coachflow-backend/internal/data/repos/user"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

type UserRepo = user.UserRepo

type JourneyRepo = journey.JourneyRepo

type EngagementRepo = engagement.EngagementRepo

type ActivityRepo = activity.ActivityRepo

type BadgeRepo = badges.BadgeRepo

type SequenceRepo = sequences.SequenceRepo
type EnrollmentRepo = sequences.EnrollmentRepo

type MessageRepo = messaging.MessageRepo
type NotificationRepo = messaging.NotificationRepo

type ProgressEventRepo = events.ProgressEventRepo

type CronRunRepo = jobs.CronRunRepo
type MetricSnapshotRepo = jobs.MetricSnapshotRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewJourneyRepo(db *gorm.DB, baseLog *logger.Logger) JourneyRepo {
	return journey.NewJourneyRepo(db, baseLog)
}

func NewEngagementRepo(db *gorm.DB, baseLog *logger.Logger) EngagementRepo {
	return engagement.NewEngagementRepo(db, baseLog)
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return activity.NewActivityRepo(db, baseLog)
}

func NewBadgeRepo(db *gorm.DB, baseLog *logger.Logger) BadgeRepo {
	return badges.NewBadgeRepo(db, baseLog)
}

func NewSequenceRepo(db *gorm.DB, baseLog *logger.Logger) SequenceRepo {
	return sequences.NewSequenceRepo(db, baseLog)
}
func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return sequences.NewEnrollmentRepo(db, baseLog)
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return messaging.NewMessageRepo(db, baseLog)
}
func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return messaging.NewNotificationRepo(db, baseLog)
}

func NewProgressEventRepo(db *gorm.DB, baseLog *logger.Logger) ProgressEventRepo {
	return events.NewProgressEventRepo(db, baseLog)
}

func NewCronRunRepo(db *gorm.DB, baseLog *logger.Logger) CronRunRepo {
	return jobs.NewCronRunRepo(db, baseLog)
}
func NewMetricSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) MetricSnapshotRepo {
	return jobs.NewMetricSnapshotRepo(db, baseLog)
}
