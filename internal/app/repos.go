package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coachflow-backend/internal/data/repos"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

type Repos struct {
	Users         repos.UserRepo
	Journeys      repos.JourneyRepo
	Engagements   repos.EngagementRepo
	Activity      repos.ActivityRepo
	Badges        repos.BadgeRepo
	Sequences     repos.SequenceRepo
	Enrollments   repos.EnrollmentRepo
	Messages      repos.MessageRepo
	Notifications repos.NotificationRepo
	Events        repos.ProgressEventRepo
	CronRuns      repos.CronRunRepo
	Snapshots     repos.MetricSnapshotRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Users:         repos.NewUserRepo(db, log),
		Journeys:      repos.NewJourneyRepo(db, log),
		Engagements:   repos.NewEngagementRepo(db, log),
		Activity:      repos.NewActivityRepo(db, log),
		Badges:        repos.NewBadgeRepo(db, log),
		Sequences:     repos.NewSequenceRepo(db, log),
		Enrollments:   repos.NewEnrollmentRepo(db, log),
		Messages:      repos.NewMessageRepo(db, log),
		Notifications: repos.NewNotificationRepo(db, log),
		Events:        repos.NewProgressEventRepo(db, log),
		CronRuns:      repos.NewCronRunRepo(db, log),
		Snapshots:     repos.NewMetricSnapshotRepo(db, log),
	}
}
