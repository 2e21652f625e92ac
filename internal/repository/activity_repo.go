package repository

import (
	"context"

	"github.com/Eursukkul/carpark-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultActivityLimit = 50

type ActivityRepository interface {
	Record(ctx context.Context, activity *models.ParkingActivity) error
	ListRecent(ctx context.Context, reg string, limit int) ([]models.ParkingActivity, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// Record is idempotent on EventID so redelivered messages are harmless.
func (r *activityRepository) Record(ctx context.Context, activity *models.ParkingActivity) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(activity).Error
}

// ListRecent returns the newest activity first, optionally for one registration.
func (r *activityRepository) ListRecent(ctx context.Context, reg string, limit int) ([]models.ParkingActivity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}

	var activities []models.ParkingActivity
	q := r.db.WithContext(ctx)
	if reg != "" {
		q = q.Where("vehicle_reg = ?", reg)
	}
	if err := q.Order("occurred_at DESC, id DESC").Limit(limit).Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}
