// Package eventstest provides an in-memory events.Publisher for tests.
package eventstest

import (
	"context"
	"sync"
)

// PublishedMessage represents a message that was published.
type PublishedMessage struct {
	Subject string
	Data    []byte
}

// Recorder keeps every published message in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []PublishedMessage
	err      error
	closed   bool
}

// NewRecorder creates a new Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records the message, or returns the configured error.
func (r *Recorder) Publish(ctx context.Context, subject string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, PublishedMessage{
		Subject: subject,
		Data:    append([]byte(nil), data...),
	})
	return nil
}

// Close marks the recorder as closed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// SetError makes subsequent Publish calls fail with err.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Messages returns all published messages.
func (r *Recorder) Messages() []PublishedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PublishedMessage(nil), r.messages...)
}

// IsClosed reports whether Close was called.
func (r *Recorder) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
