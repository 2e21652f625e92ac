package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Eursukkul/carpark-service/internal/logging"
	"github.com/Eursukkul/carpark-service/internal/models"
	"github.com/Eursukkul/carpark-service/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
)

var errMalformedActivity = errors.New("malformed parking activity")

type ActivityConsumer struct {
	repo repository.ActivityRepository
	done chan struct{}
}

func NewActivityConsumer(repo repository.ActivityRepository) *ActivityConsumer {
	return &ActivityConsumer{repo: repo, done: make(chan struct{})}
}

// Start stores each delivery in the activity log until msgs is closed.
func (ac *ActivityConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) {
	go func() {
		defer close(ac.done)
		for msg := range msgs {
			ac.handleMessage(ctx, msg)
		}
		logging.Info(ctx).Msg("activity channel closed, stopping consumer")
	}()
}

// Done is closed once the delivery channel has been drained.
func (ac *ActivityConsumer) Done() <-chan struct{} {
	return ac.done
}

func (ac *ActivityConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	activity, err := decodeActivity(msg.Body)
	if err != nil {
		logging.Warn(ctx).Err(err).Str("message_id", msg.MessageId).Msg("dropping activity message")
		nack(ctx, msg, false)
		return
	}

	if err := ac.repo.Record(ctx, activity); err != nil {
		logging.Error(ctx).Err(err).Str("event_id", activity.EventID).Msg("failed to record activity")
		nack(ctx, msg, true)
		return
	}

	logging.Debug(ctx).
		Str("event_id", activity.EventID).
		Str("kind", string(activity.Kind)).
		Str("vehicle_reg", activity.VehicleReg).
		Msg("recorded parking activity")
	if err := msg.Ack(false); err != nil {
		logging.Warn(ctx).Err(err).Uint64("delivery_tag", msg.DeliveryTag).Msg("failed to ack activity message")
	}
}

func nack(ctx context.Context, msg amqp.Delivery, requeue bool) {
	if err := msg.Nack(false, requeue); err != nil {
		logging.Warn(ctx).
			Err(err).
			Uint64("delivery_tag", msg.DeliveryTag).
			Bool("requeue", requeue).
			Msg("failed to nack activity message")
	}
}

func decodeActivity(body []byte) (*models.ParkingActivity, error) {
	var activity models.ParkingActivity
	if err := json.Unmarshal(body, &activity); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedActivity, err)
	}
	if activity.EventID == "" {
		return nil, fmt.Errorf("%w: missing event_id", errMalformedActivity)
	}
	if activity.Kind != models.ActivityParked && activity.Kind != models.ActivityExited {
		return nil, fmt.Errorf("%w: unknown kind %q", errMalformedActivity, activity.Kind)
	}
	if !activity.VehicleType.Valid() {
		return nil, fmt.Errorf("%w: unknown vehicle type %q", errMalformedActivity, activity.VehicleType)
	}
	activity.ID = 0
	return &activity, nil
}
