// Package dispatcher defines the hand-off point between the engine and the
// external mechanism that actually delivers messages.
package dispatcher

import (
	"context"
	"errors"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
)

// ErrRejected marks a dispatch error after which the batch is known not to
// have been accepted. Any other dispatch error leaves the outcome unknown.
var ErrRejected = errors.New("dispatch rejected")

// Message is a single personalized message for one recipient.
type Message struct {
	Phone     string   `json:"phone"`
	Name      string   `json:"name"`
	Fragments []string `json:"message"`
}

// Request is a batch handed to the external dispatcher.
type Request struct {
	BatchID  string    `json:"batch_id"`
	Channel  string    `json:"channel"`
	Messages []Message `json:"messages"`
}

// Dispatcher hands a batch off for delivery. It returns once the batch is
// accepted; delivery outcomes arrive later as a delivery report.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

func NewRequest(b *domain.SendBatch) Request {
	msgs := make([]Message, 0, len(b.Items))
	for _, it := range b.Items {
		msgs = append(msgs, Message{Phone: it.Phone, Name: it.Name, Fragments: it.Fragments})
	}
	return Request{BatchID: b.ID, Channel: b.Channel, Messages: msgs}
}
