package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Eursukkul/carpark-service/internal/logging"
	"github.com/Eursukkul/carpark-service/internal/models"
	"github.com/cenkalti/backoff/v5"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const connectAttempts = 6

// NewPostgresDB opens the pool, retrying while the server comes up, and
// installs the tracing plugin.
func NewPostgresDB(ctx context.Context, dsn string, isDevelopment bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if isDevelopment {
		logLevel = logger.Info
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	db, err := backoff.Retry(ctx, func() (*gorm.DB, error) {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logLevel),
			TranslateError: true,
		})
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(connectAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			logging.Warn(ctx).Err(err).Dur("retry_in", next).Msg("database not ready")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("failed to setup otel plugin: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate creates the tables plus the partial unique index that stops one
// registration from holding two spaces at once.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.ParkingSpace{}, &models.ParkingActivity{}); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_parking_spaces_occupied_reg
		ON parking_spaces (vehicle_reg)
		WHERE is_occupied
	`).Error; err != nil {
		return fmt.Errorf("failed to create occupied registration index: %w", err)
	}

	return nil
}

// SeedSpaces inserts spaces 1..total. Existing rows are left alone so the
// ledger survives restarts.
func SeedSpaces(ctx context.Context, db *gorm.DB, total int) error {
	if total <= 0 {
		return nil
	}

	spaces := make([]models.ParkingSpace, total)
	for i := range spaces {
		spaces[i] = models.ParkingSpace{SpaceNumber: i + 1}
	}

	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "space_number"}},
			DoNothing: true,
		}).
		Create(&spaces)
	if result.Error != nil {
		return fmt.Errorf("failed to seed parking spaces: %w", result.Error)
	}

	logging.Info(ctx).
		Int("total", total).
		Int64("inserted", result.RowsAffected).
		Msg("parking spaces seeded")
	return nil
}

func CheckHealth(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
