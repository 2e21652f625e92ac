package repository

import (
	"context"
	"errors"

	"github.com/Eursukkul/carpark-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSpaceNotFound    = errors.New("parking space not found")
	ErrDuplicateVehicle = errors.New("vehicle registration already occupies a space")
)

type SpaceRepository interface {
	FindFreeSpace(ctx context.Context) (*models.ParkingSpace, error)
	FindOccupiedByReg(ctx context.Context, reg string) (*models.ParkingSpace, error)
	IsRegParked(ctx context.Context, reg string) (bool, error)
	CountByOccupancy(ctx context.Context) (free, occupied int64, err error)
	ListSpaces(ctx context.Context) ([]models.ParkingSpace, error)
	Save(ctx context.Context, space *models.ParkingSpace) error
	Transaction(ctx context.Context, fn func(repo SpaceRepository) error) error
}

type spaceRepository struct {
	db *gorm.DB
}

func NewSpaceRepository(db *gorm.DB) SpaceRepository {
	return &spaceRepository{db: db}
}

// FindFreeSpace locks the lowest numbered free row. SKIP LOCKED lets a
// concurrent park move on to the next free space instead of queueing.
func (r *spaceRepository) FindFreeSpace(ctx context.Context) (*models.ParkingSpace, error) {
	var space models.ParkingSpace
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("is_occupied = ?", false).
		Order("space_number ASC").
		First(&space).Error
	if err != nil {
		return nil, translate(err)
	}
	return &space, nil
}

func (r *spaceRepository) FindOccupiedByReg(ctx context.Context, reg string) (*models.ParkingSpace, error) {
	var space models.ParkingSpace
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vehicle_reg = ? AND is_occupied = ?", reg, true).
		First(&space).Error
	if err != nil {
		return nil, translate(err)
	}
	return &space, nil
}

func (r *spaceRepository) IsRegParked(ctx context.Context, reg string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ParkingSpace{}).
		Where("vehicle_reg = ? AND is_occupied = ?", reg, true).
		Count(&count).Error
	return count > 0, err
}

// CountByOccupancy reads both counts in one statement so they always describe
// the same snapshot of the ledger.
func (r *spaceRepository) CountByOccupancy(ctx context.Context) (int64, int64, error) {
	var counts struct {
		Free     int64
		Occupied int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.ParkingSpace{}).
		Select("count(*) FILTER (WHERE NOT is_occupied) AS free, count(*) FILTER (WHERE is_occupied) AS occupied").
		Scan(&counts).Error
	if err != nil {
		return 0, 0, err
	}
	return counts.Free, counts.Occupied, nil
}

func (r *spaceRepository) ListSpaces(ctx context.Context) ([]models.ParkingSpace, error) {
	var spaces []models.ParkingSpace
	if err := r.db.WithContext(ctx).Order("space_number ASC").Find(&spaces).Error; err != nil {
		return nil, err
	}
	return spaces, nil
}

// Save writes every column of the row, including the ones being cleared to NULL.
func (r *spaceRepository) Save(ctx context.Context, space *models.ParkingSpace) error {
	return translate(r.db.WithContext(ctx).Save(space).Error)
}

func (r *spaceRepository) Transaction(ctx context.Context, fn func(repo SpaceRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&spaceRepository{db: tx})
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrSpaceNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateVehicle
	}
	return err
}
