package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apihttp "github.com/yungbote/coachflow-backend/internal/http"
	httpH "github.com/yungbote/coachflow-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coachflow-backend/internal/http/middleware"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Journey    *httpH.JourneyHandler
	Engagement *httpH.EngagementHandler
	Badge      *httpH.BadgeHandler
	Event      *httpH.EventHandler
	Sequence   *httpH.SequenceHandler
	Cron       *httpH.CronHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(dbPinger(db)),
		Journey:    httpH.NewJourneyHandler(s.Journey),
		Engagement: httpH.NewEngagementHandler(s.Engagement),
		Badge:      httpH.NewBadgeHandler(s.Badges),
		Event:      httpH.NewEventHandler(s.Progress),
		Sequence:   httpH.NewSequenceHandler(s.Sequences),
		Cron:       httpH.NewCronHandler(s.Orchestrator),
	}
}

func wireRouter(log *logger.Logger, cfg Config, h Handlers) *gin.Engine {
	return apihttp.NewRouter(apihttp.RouterConfig{
		Log:               log,
		ServiceName:       cfg.ServiceName,
		CronAuth:          httpMW.NewCronAuth(log, cfg.CronSecret),
		HealthHandler:     h.Health,
		JourneyHandler:    h.Journey,
		EngagementHandler: h.Engagement,
		BadgeHandler:      h.Badge,
		EventHandler:      h.Event,
		SequenceHandler:   h.Sequence,
		CronHandler:       h.Cron,
	})
}

func dbPinger(db *gorm.DB) httpH.Pinger {
	if db == nil {
		return nil
	}
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
