package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/storyfeed/storyfeed/internal/events/eventstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockJetStream struct {
	mock.Mock
}

func (m *MockJetStream) CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(jetstream.Stream), args.Error(1)
}

func (m *MockJetStream) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	args := m.Called(ctx, subject, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jetstream.PubAck), args.Error(1)
}

func TestNewJetStreamPublisher_EnsuresStream(t *testing.T) {
	js := new(MockJetStream)
	js.On("CreateOrUpdateStream", mock.Anything, mock.MatchedBy(func(cfg jetstream.StreamConfig) bool {
		return cfg.Name == "STORYFEED" &&
			len(cfg.Subjects) == 1 && cfg.Subjects[0] == "STORYFEED.>" &&
			cfg.Storage == jetstream.FileStorage
	})).Return(nil, nil)

	cfg := DefaultConfig()
	cfg.Storage = StorageFile
	pub, err := NewJetStreamPublisher(context.Background(), js, cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, pub)
	js.AssertExpectations(t)
}

func TestNewJetStreamPublisher_Errors(t *testing.T) {
	_, err := NewJetStreamPublisher(context.Background(), nil, DefaultConfig(), nil)
	assert.Error(t, err)

	js := new(MockJetStream)
	js.On("CreateOrUpdateStream", mock.Anything, mock.Anything).Return(nil, errors.New("stream error"))
	_, err = NewJetStreamPublisher(context.Background(), js, DefaultConfig(), nil)
	assert.ErrorContains(t, err, "stream error")
}

func TestJetStreamPublisher_Publish(t *testing.T) {
	js := new(MockJetStream)
	js.On("CreateOrUpdateStream", mock.Anything, mock.Anything).Return(nil, nil)
	js.On("Publish", mock.Anything, "STORYFEED.ingest.completed", []byte("hello")).Return(&jetstream.PubAck{}, nil).Once()
	js.On("Publish", mock.Anything, "STORYFEED.ingest.completed", []byte("fail")).Return(nil, errors.New("no responders")).Once()

	var calls []string
	pub, err := NewJetStreamPublisher(context.Background(), js, DefaultConfig(), func(subject string, err error, _ time.Duration) {
		calls = append(calls, subject)
	})
	require.NoError(t, err)

	require.NoError(t, pub.Publish(context.Background(), SubjectIngestCompleted, []byte("hello")))
	err = pub.Publish(context.Background(), SubjectIngestCompleted, []byte("fail"))
	assert.ErrorContains(t, err, "no responders")
	assert.Equal(t, []string{"STORYFEED.ingest.completed", "STORYFEED.ingest.completed"}, calls)
	assert.NoError(t, pub.Close())
	js.AssertExpectations(t)
}

func TestProvider_NotConnected(t *testing.T) {
	p := NewProvider("nats://127.0.0.1:1")
	_, err := p.NewPublisher(context.Background(), DefaultConfig(), nil)
	assert.ErrorContains(t, err, "not connected")
	assert.NoError(t, p.Close())
}

func TestEmitter_IngestCompleted(t *testing.T) {
	rec := eventstest.NewRecorder()
	e := NewEmitter(rec)

	wm := int64(123456789)
	require.NoError(t, e.IngestCompleted(context.Background(), IngestCompleted{
		Imported:   3,
		Fetched:    3,
		LowerBound: "created_at_i>123456789",
		Watermark:  &wm,
	}))

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, SubjectIngestCompleted, msgs[0].Subject)

	var ev IngestCompleted
	require.NoError(t, json.Unmarshal(msgs[0].Data, &ev))
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, 3, ev.Imported)
	assert.Equal(t, "created_at_i>123456789", ev.LowerBound)

	require.NoError(t, e.Close())
	assert.True(t, rec.IsClosed())
}

func TestEmitter_NilPublisher(t *testing.T) {
	e := NewEmitter(nil)
	assert.NoError(t, e.IngestCompleted(context.Background(), IngestCompleted{}))
	assert.NoError(t, e.Close())
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate(), "disabled config is valid")

	cfg.URL = "nats://localhost:4222"
	assert.NoError(t, cfg.Validate())

	cfg.Storage = "disk"
	assert.Error(t, cfg.Validate())

	t.Setenv("NATS_URL", "nats://nats:4222")
	var c Config
	c.ApplyDefaults()
	c.ApplyEnvOverrides()
	assert.True(t, c.Enabled())
	assert.Equal(t, "nats://nats:4222", c.URL)
}
