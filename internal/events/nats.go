package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStream is the subset of jetstream.JetStream used for publishing.
type JetStream interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// OnPublishFunc is called after each publish attempt.
type OnPublishFunc func(subject string, err error, latency time.Duration)

// jetStreamPublisher implements Publisher using NATS JetStream.
type jetStreamPublisher struct {
	js        JetStream
	cfg       Config
	onPublish OnPublishFunc
}

// NewJetStreamPublisher ensures the configured stream exists and returns a
// Publisher writing to it.
func NewJetStreamPublisher(ctx context.Context, js JetStream, cfg Config, onPublish OnPublishFunc) (Publisher, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream cannot be nil")
	}

	subjects := []string{cfg.StreamName + ".>"}
	if cfg.SubjectPrefix != "" && cfg.SubjectPrefix != cfg.StreamName {
		subjects = []string{cfg.SubjectPrefix + ".>"}
	}

	storage := jetstream.MemoryStorage
	if cfg.Storage == StorageFile {
		storage = jetstream.FileStorage
	}

	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: subjects,
		Storage:  storage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	return &jetStreamPublisher{js: js, cfg: cfg, onPublish: onPublish}, nil
}

func (p *jetStreamPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	start := time.Now()

	fullSubject := subject
	if p.cfg.SubjectPrefix != "" {
		fullSubject = p.cfg.SubjectPrefix + "." + subject
	}

	var opts []jetstream.PublishOpt
	if p.cfg.RetryAttempts > 0 {
		opts = append(opts, jetstream.WithRetryAttempts(p.cfg.RetryAttempts))
	}

	_, err := p.js.Publish(ctx, fullSubject, data, opts...)

	if p.onPublish != nil {
		p.onPublish(fullSubject, err, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", fullSubject, err)
	}
	return nil
}

func (p *jetStreamPublisher) Close() error {
	// JetStream doesn't need explicit close
	return nil
}

// Provider owns the NATS connection that publishers are created from.
type Provider struct {
	url  string
	nc   *nats.Conn
	js   JetStream
	dial func(url string) (*nats.Conn, error)
}

// NewProvider creates a Provider for the given server URL. Call Connect
// before creating publishers.
func NewProvider(url string) *Provider {
	return &Provider{
		url: url,
		dial: func(url string) (*nats.Conn, error) {
			return nats.Connect(url, nats.Name("storyfeed"))
		},
	}
}

// Connect dials NATS and initializes JetStream.
func (p *Provider) Connect(ctx context.Context) error {
	nc, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", p.url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JetStream: %w", err)
	}
	p.nc = nc
	p.js = js

	slog.Info("Connected to NATS", "url", p.url)
	return nil
}

// NewPublisher creates a JetStream publisher on the connected server.
func (p *Provider) NewPublisher(ctx context.Context, cfg Config, onPublish OnPublishFunc) (Publisher, error) {
	if p.js == nil {
		return nil, fmt.Errorf("NATS not connected, call Connect first")
	}
	return NewJetStreamPublisher(ctx, p.js, cfg, onPublish)
}

// Close closes the NATS connection.
func (p *Provider) Close() error {
	if p.nc != nil {
		slog.Info("Closing NATS connection...")
		p.nc.Close()
		p.nc = nil
		p.js = nil
	}
	return nil
}
