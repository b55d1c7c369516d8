package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"shortlink/config"
	"shortlink/models"
)

const (
	connectRetries = 5
	retryDelay     = 3 * time.Second
)

// Connect opens the configured database. Postgres connections are retried a
// few times so the service survives a database that comes up slower than it
// does. The sqlite driver is for development and tests; its schema is kept
// current with AutoMigrate instead of the SQL migrations.
func Connect(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	}

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.Database.SQLitePath), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := db.AutoMigrate(&models.User{}, &models.Link{}); err != nil {
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return db, nil

	case "postgres":
		var db *gorm.DB
		var err error
		for attempt := 1; attempt <= connectRetries; attempt++ {
			db, err = gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
			if err == nil {
				return db, nil
			}
			logger.Warn("database connect failed",
				"attempt", attempt, "retries", connectRetries, "error", err)
			time.Sleep(retryDelay)
		}
		return nil, fmt.Errorf("connect postgres after %d attempts: %w", connectRetries, err)

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
