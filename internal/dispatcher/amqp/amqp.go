package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aniladanir/bulk-messenger-service/internal/dispatcher"
	"github.com/streadway/amqp"
)

// Dispatcher publishes batches to a durable queue consumed by the delivery agent.
type Dispatcher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	mtx    sync.Mutex
	logger *slog.Logger
}

func New(url, queue string, logger *slog.Logger) (*Dispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &Dispatcher{
		conn:   conn,
		ch:     ch,
		queue:  queue,
		logger: logger,
	}, nil
}

// Dispatch publishes the batch. A failed publish never reached the broker and
// is reported as dispatcher.ErrRejected.
func (d *Dispatcher) Dispatch(ctx context.Context, req dispatcher.Request) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", dispatcher.ErrRejected, err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: %w", dispatcher.ErrRejected, err)
	}

	d.mtx.Lock()
	defer d.mtx.Unlock()

	err = d.ch.Publish(
		"",
		d.queue,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    req.BatchID,
			Type:         req.Channel,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: failed to publish batch: %w", dispatcher.ErrRejected, err)
	}

	d.logger.Info("batch published", "batchId", req.BatchID, "queue", d.queue, "messages", len(req.Messages))
	return nil
}

func (d *Dispatcher) Close() error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if err := d.ch.Close(); err != nil {
		d.logger.Error("failed to close channel", "error", err.Error())
	}
	return d.conn.Close()
}
