package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aniladanir/bulk-messenger-service/internal/dispatcher"
	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	"github.com/streadway/amqp"
)

// Reconciler consumes delivery reports.
type Reconciler interface {
	Reconcile(ctx context.Context, report domain.DeliveryReport) (*domain.ReconciledBatch, error)
}

type settlement int

const (
	ack settlement = iota
	requeue
	reject
)

// ReportConsumer reads delivery reports from a durable queue and reconciles them.
// Deliveries are acknowledged manually once their outcome is known.
type ReportConsumer struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queue      string
	reconciler Reconciler
	logger     *slog.Logger
}

func NewReportConsumer(url, queue string, reconciler Reconciler, logger *slog.Logger) (*ReportConsumer, error) {
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

	return &ReportConsumer{
		conn:       conn,
		ch:         ch,
		queue:      queue,
		reconciler: reconciler,
		logger:     logger,
	}, nil
}

// Run consumes until ctx is done or the broker closes the channel.
func (rc *ReportConsumer) Run(ctx context.Context) error {
	deliveries, err := rc.ch.Consume(
		rc.queue,
		"",
		false, // autoAck
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	rc.logger.Info("consuming delivery reports", "queue", rc.queue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed by broker")
			}
			rc.settle(d, rc.handle(ctx, d.Body))
		}
	}
}

func (rc *ReportConsumer) handle(ctx context.Context, body []byte) settlement {
	report, err := dispatcher.DecodeReport(body)
	if err != nil {
		rc.logger.Error("dropping malformed delivery report", "error", err.Error())
		return ack
	}

	_, err = rc.reconciler.Reconcile(ctx, report)
	switch {
	case err == nil:
		return ack
	case errors.Is(err, domain.ErrNoMatchingBatch):
		// reconciled already or never dispatched by this instance
		return ack
	case errors.Is(err, domain.ErrStorageUnavailable):
		rc.logger.Warn("requeueing delivery report", "batchId", report.BatchID, "error", err.Error())
		return requeue
	default:
		rc.logger.Error("rejecting delivery report", "batchId", report.BatchID, "error", err.Error())
		return reject
	}
}

func (rc *ReportConsumer) settle(d amqp.Delivery, s settlement) {
	var err error
	switch s {
	case ack:
		err = d.Ack(false)
	case requeue:
		err = d.Nack(false, true)
	case reject:
		err = d.Nack(false, false)
	}
	if err != nil {
		rc.logger.Error("failed to settle delivery", "deliveryTag", d.DeliveryTag, "error", err.Error())
	}
}

func (rc *ReportConsumer) Close() error {
	if err := rc.ch.Close(); err != nil {
		rc.logger.Error("failed to close channel", "error", err.Error())
	}
	return rc.conn.Close()
}
