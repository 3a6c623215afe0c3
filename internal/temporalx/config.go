package temporalx

import (
	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	// ScheduleTimezone is the IANA zone Temporal evaluates cadence specs in.
	ScheduleTimezone string
	// SchedulePrefix namespaces the schedule ids so several environments can share a namespace.
	SchedulePrefix string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string
}

func LoadConfig() Config {
	return Config{
		Address:          envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace:        envutil.String("TEMPORAL_NAMESPACE", "coachflow"),
		TaskQueue:        envutil.String("TEMPORAL_TASK_QUEUE", "coachflow-cron"),
		ScheduleTimezone: envutil.String("TEMPORAL_SCHEDULE_TZ", "UTC"),
		SchedulePrefix:   envutil.String("TEMPORAL_SCHEDULE_PREFIX", "coachflow"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),
	}
}

func (c Config) mTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
