// Package queue implements the durable hit-event pipeline between the
// redirect hot path and the hit worker: a Strategy interface with a
// Redis Streams backend (consumer groups, at-least-once delivery,
// explicit ack) and an in-memory backend for local development and
// tests.
package queue

import (
	"context"
	"time"
)

// Message is an opaque envelope around a HitEvent. ID is backend
// assigned and must be passed back unchanged to Ack.
type Message struct {
	ID    string
	Event HitEvent
}

// HitEvent mirrors model.HitEvent on the wire. It is duplicated here
// (rather than importing internal/model) so the queue package has no
// dependency on the domain model package, matching the Strategy
// pattern's original intent of a narrow, storage-agnostic contract.
type HitEvent struct {
	ShortCode  string
	Timestamp  time.Time
	IPAddress  *string
	UserAgent  *string
	Referer    *string
	Country    *string
	DeviceType *string
	Browser    *string
}

// Strategy is a durable, at-least-once FIFO queue of hit events.
type Strategy interface {
	Publish(ctx context.Context, event HitEvent) error
	// Consume returns up to max pending messages, blocking up to
	// block for at least one to become available.
	Consume(ctx context.Context, max int, block time.Duration) ([]Message, error)
	Ack(ctx context.Context, ids []string) error
	Length(ctx context.Context) (int64, error)
}
