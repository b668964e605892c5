package db

import (
	"fmt"
	"time"

	"vm-rental/internal/config"
	"vm-rental/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to PostgreSQL, tunes the connection pool and migrates the
// schema. The returned handle is created once in main and injected into
// every service.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=America/Sao_Paulo",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
	)

	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("get generic database object: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(database); err != nil {
		return nil, err
	}

	return database, nil
}

// Migrate creates or updates the tables for every entity. Shared with the
// test harness, which runs it against SQLite.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Account{},
		&models.VMRecord{},
		&models.QueueEntry{},
		&models.UserPlan{},
		&models.UserDisk{},
		&models.DiskVM{},
		&models.DiskSession{},
	); err != nil {
		return fmt.Errorf("migrate database schema: %w", err)
	}
	return nil
}
