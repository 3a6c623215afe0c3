package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

// Open connects using DATABASE_DRIVER (postgres by default, or sqlite with SQLITE_PATH).
func Open(log *logger.Logger) (*gorm.DB, error) {
	switch strings.ToLower(envutil.String("DATABASE_DRIVER", "postgres")) {
	case "postgres", "postgresql":
		pg, err := NewPostgresService(log)
		if err != nil {
			return nil, err
		}
		return pg.DB(), nil
	case "sqlite":
		path := envutil.String("SQLITE_PATH", "coachflow.db")
		log.Info("Opening SQLite database", "path", path)
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", envutil.String("DATABASE_DRIVER", ""))
	}
}

// Migrate runs AutoMigrate for every model and creates the raw indexes.
func Migrate(db *gorm.DB) error {
	if err := AutoMigrateAll(db); err != nil {
		return err
	}
	return EnsureIndexes(db)
}
