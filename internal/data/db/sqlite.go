package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// OpenSQLite opens a SQLite database at dsn. A single connection is used so
// writers serialize instead of failing with SQLITE_BUSY.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	cfg := gormConfig()
	cfg.Logger = gormLogger.Default.LogMode(gormLogger.Silent)
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
