package consumer

import (
	"context"
	"fmt"

	"github.com/Eursukkul/carpark-service/internal/models"
	"github.com/Eursukkul/carpark-service/internal/repository"
)

// LocalRecorder stands in for the broker when none is configured and writes
// activity straight to the log.
type LocalRecorder struct {
	repo repository.ActivityRepository
}

func NewLocalRecorder(repo repository.ActivityRepository) *LocalRecorder {
	return &LocalRecorder{repo: repo}
}

func (r *LocalRecorder) Publish(ctx context.Context, routingKey string, payload any) error {
	activity, ok := payload.(*models.ParkingActivity)
	if !ok {
		return fmt.Errorf("local recorder: unexpected payload %T for %s", payload, routingKey)
	}
	return r.repo.Record(ctx, activity)
}
