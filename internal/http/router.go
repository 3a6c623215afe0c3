package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/coachflow-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coachflow-backend/internal/http/middleware"
	"github.com/yungbote/coachflow-backend/internal/observability"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string

	CronAuth *httpMW.CronAuth

	HealthHandler     *httpH.HealthHandler
	JourneyHandler    *httpH.JourneyHandler
	EngagementHandler *httpH.EngagementHandler
	BadgeHandler      *httpH.BadgeHandler
	EventHandler      *httpH.EventHandler
	SequenceHandler   *httpH.SequenceHandler
	CronHandler       *httpH.CronHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachRequestID())
	r.Use(httpMW.RequestLogger(cfg.Log))
	if observability.Enabled() {
		r.Use(httpMW.Metrics())
	}
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if observability.Enabled() {
		r.GET("/metrics", gin.WrapH(observability.Handler()))
	}

	api := r.Group("/api")

	users := api.Group("/users/:id")
	{
		if h := cfg.JourneyHandler; h != nil {
			users.POST("/journey/init", h.Initialize)
			users.POST("/journey/steps/complete", h.CompleteStep)
			users.GET("/journey", h.GetProgress)
			users.GET("/journey/available", h.AvailableSteps)
			users.GET("/journey/stats", h.Stats)
			users.POST("/journey/reset", h.Reset)
		}

		if h := cfg.EngagementHandler; h != nil {
			users.POST("/engagements/schedule", h.Schedule)
			users.POST("/activity", h.RecordActivity)
		}

		if h := cfg.BadgeHandler; h != nil {
			users.GET("/badges", h.List)
			users.GET("/badges/progress", h.Progress)
			users.POST("/badges/check", h.Check)
		}

		if h := cfg.EventHandler; h != nil {
			users.GET("/events", h.List)
		}
	}

	if h := cfg.EventHandler; h != nil {
		api.POST("/events", h.Track)
	}

	if h := cfg.SequenceHandler; h != nil {
		api.POST("/clients/:id/sequences/trigger", h.Trigger)
		api.GET("/clients/:id/enrollments", h.ListEnrollments)
		api.POST("/enrollments/:id/pause", h.Pause)
		api.POST("/enrollments/:id/resume", h.Resume)
		api.POST("/enrollments/:id/unenroll", h.Unenroll)
	}

	if h := cfg.CronHandler; h != nil {
		cron := api.Group("/cron")
		cron.GET("/summary", h.Summary)
		cron.GET("/history", h.History)
		guard := []gin.HandlerFunc{}
		if cfg.CronAuth != nil {
			guard = append(guard, cfg.CronAuth.Require())
		}
		cron.POST("/:cadence", append(guard, h.Trigger)...)
	}

	return r
}
