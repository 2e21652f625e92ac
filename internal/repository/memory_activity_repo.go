package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/Eursukkul/carpark-service/internal/models"
)

// MemoryActivityRepository is the activity log used with in-memory storage.
type MemoryActivityRepository struct {
	mu         sync.RWMutex
	activities []models.ParkingActivity
	seen       map[string]struct{}
	nextID     uint
}

func NewMemoryActivityRepository() *MemoryActivityRepository {
	return &MemoryActivityRepository{seen: make(map[string]struct{})}
}

func (r *MemoryActivityRepository) Record(ctx context.Context, activity *models.ParkingActivity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.seen[activity.EventID]; dup {
		return nil
	}
	r.nextID++
	stored := *activity
	stored.ID = r.nextID
	if activity.TimeOut != nil {
		out := *activity.TimeOut
		stored.TimeOut = &out
	}
	r.activities = append(r.activities, stored)
	r.seen[activity.EventID] = struct{}{}
	return nil
}

func (r *MemoryActivityRepository) ListRecent(ctx context.Context, reg string, limit int) ([]models.ParkingActivity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}

	r.mu.RLock()
	matched := make([]models.ParkingActivity, 0, len(r.activities))
	for _, a := range r.activities {
		if reg == "" || a.VehicleReg == reg {
			matched = append(matched, a)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].OccurredAt.After(matched[j].OccurredAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
