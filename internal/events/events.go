// Package events publishes ingestion notifications to a message stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubjectIngestCompleted is published after every successful ingestion cycle.
const SubjectIngestCompleted = "ingest.completed"

// Publisher publishes messages to a stream.
type Publisher interface {
	// Publish sends a message to the specified subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Close releases resources.
	Close() error
}

// IngestCompleted describes one finished ingestion cycle.
type IngestCompleted struct {
	ID         string    `json:"id"`
	Imported   int       `json:"imported"`
	Fetched    int       `json:"fetched"`
	LowerBound string    `json:"lowerBound,omitempty"`
	Watermark  *int64    `json:"watermark,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
}

// Emitter encodes domain events and hands them to a Publisher.
type Emitter struct {
	pub Publisher
}

// NewEmitter creates an Emitter. A nil publisher discards every event.
func NewEmitter(pub Publisher) *Emitter {
	if pub == nil {
		pub = NoopPublisher{}
	}
	return &Emitter{pub: pub}
}

// IngestCompleted publishes ev, assigning an id if it has none.
func (e *Emitter) IngestCompleted(ctx context.Context, ev IngestCompleted) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return e.pub.Publish(ctx, SubjectIngestCompleted, data)
}

// Close closes the underlying publisher.
func (e *Emitter) Close() error {
	return e.pub.Close()
}

// NoopPublisher drops every message.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte) error { return nil }

func (NoopPublisher) Close() error { return nil }
