// Package database opens the postgres connection and owns the schema.
package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/config"
	"taskboard/internal/model"
)

const slowQueryThreshold = 200 * time.Millisecond

// Open connects to postgres with the pool and lock settings from cfg.
func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: NewGormLogger(logger.Warn, slowQueryThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns / 2)

	if err := setupJoinTables(db); err != nil {
		return nil, err
	}

	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("✅ Connected to database")
	return db, nil
}

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Project{},
		&model.Membership{},
		&model.Board{},
		&model.Column{},
		&model.Label{},
		&model.Task{},
		&model.TaskLabel{},
		&model.Comment{},
	}
}

// AutoMigrate builds the schema from the models. Tests use it on sqlite;
// production schemas come from the SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	if err := setupJoinTables(db); err != nil {
		return err
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func setupJoinTables(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.Task{}, "Labels", &model.TaskLabel{}); err != nil {
		return fmt.Errorf("setup task_labels: %w", err)
	}
	return nil
}
