package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/Eursukkul/carpark-service/internal/logging"
	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "carpark"
	ExchangeKind = "topic"
	QueueName    = "carpark.activity"
	BindingKey   = "vehicle.*"

	dialAttempts = 5
)

// dial connects with exponential backoff and opens a channel on which the
// exchange has been declared.
func dial(ctx context.Context, url string) (*amqp.Connection, *amqp.Channel, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	conn, err := backoff.Retry(ctx, func() (*amqp.Connection, error) {
		return amqp.Dial(url)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(dialAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			logging.Warn(ctx).Err(err).Dur("retry_in", next).Msg("rabbitmq dial failed")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return conn, ch, nil
}

func closeAll(ch *amqp.Channel, conn *amqp.Connection) {
	if ch != nil {
		ch.Close()
	}
	if conn != nil {
		conn.Close()
	}
}
