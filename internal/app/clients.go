package app

import (
	"github.com/yungbote/coachflow-backend/internal/clients/openai"
	"github.com/yungbote/coachflow-backend/internal/clients/redis"
	"github.com/yungbote/coachflow-backend/internal/clients/sendgrid"
	"github.com/yungbote/coachflow-backend/internal/clients/twilio"
	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

// Clients holds the outbound adapters. Each one is optional; a nil adapter
// leaves its channel unavailable.
type Clients struct {
	Bus    redis.NotificationBus
	Email  sendgrid.Client
	SMS    twilio.Client
	OpenAI openai.Client
}

func wireClients(log *logger.Logger) Clients {
	log.Info("Wiring clients...")
	var out Clients

	if envutil.String("REDIS_ADDR", "") != "" {
		bus, err := redis.NewNotificationBusFromEnv(log)
		if err != nil {
			log.Warn("Redis notification bus disabled", "error", err)
		} else {
			out.Bus = bus
		}
	}
	if envutil.String("SENDGRID_API_KEY", "") != "" {
		c, err := sendgrid.NewFromEnv(log)
		if err != nil {
			log.Warn("SendGrid disabled", "error", err)
		} else {
			out.Email = c
		}
	}
	if envutil.String("TWILIO_ACCOUNT_SID", "") != "" {
		c, err := twilio.NewFromEnv(log)
		if err != nil {
			log.Warn("Twilio disabled", "error", err)
		} else {
			out.SMS = c
		}
	}
	if envutil.String("OPENAI_API_KEY", "") != "" {
		c, err := openai.NewFromEnv(log)
		if err != nil {
			log.Warn("OpenAI disabled; engagement content uses templates", "error", err)
		} else {
			out.OpenAI = c
		}
	}
	return out
}
