package app

import (
	"fmt"
	"os"
	"time"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

type Config struct {
	LogMode     string
	Port        string
	ServiceName string
	Environment string
	Version     string

	// CatalogPath replaces the embedded catalog when set.
	CatalogPath string

	CronEnabled  bool
	CronSecret   string
	CronTimezone string
}

func LoadConfig() Config {
	return Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		Port:        envutil.String("PORT", "8080"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "coachflow"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		CatalogPath: envutil.String("CATALOG_PATH", ""),

		CronEnabled:  envutil.Bool("CRON_ENABLED", false),
		CronSecret:   envutil.String("CRON_SECRET", ""),
		CronTimezone: envutil.String("CRON_TZ", "UTC"),
	}
}

func (c Config) CronLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.CronTimezone)
	if err != nil {
		return nil, fmt.Errorf("CRON_TZ %q: %w", c.CronTimezone, err)
	}
	return loc, nil
}

func loadCatalog(log *logger.Logger, path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := catalog.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	log.Info("Loaded catalog", "path", path)
	return c, nil
}
