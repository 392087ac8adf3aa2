package database

import (
	"github.com/applypilot/applypilot/internal/config"
	"github.com/applypilot/applypilot/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres pool, tunes it, and runs migrations.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Info("database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("migrations applied")
	return db, nil
}

// Migrate creates/updates the schema for every entity.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Job{},
		&models.QueueJob{},
		&models.Application{},
		&models.CustomizedResume{},
		&models.StructuredResume{},
		&models.InterviewSession{},
		&models.InterviewQuestion{},
		&models.JobNotification{},
		&models.ApplicationReview{},
		&models.PasswordResetToken{},
		&models.UsageRecord{},
	)
}
