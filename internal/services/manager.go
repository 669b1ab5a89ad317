// Package services wires the storyfeed components together and owns their
// lifecycle.
package services

import (
	"log/slog"
	"sync"

	"github.com/storyfeed/storyfeed/internal/config"
	"github.com/storyfeed/storyfeed/internal/events"
	"github.com/storyfeed/storyfeed/internal/identity"
	"github.com/storyfeed/storyfeed/internal/ingest"
	"github.com/storyfeed/storyfeed/internal/query"
	"github.com/storyfeed/storyfeed/internal/server"
	"github.com/storyfeed/storyfeed/internal/source"
	"github.com/storyfeed/storyfeed/internal/storage/types"
)

type Options struct {
	// RunAPI serves the REST API.
	RunAPI bool
	// RunScheduler starts periodic ingestion when ingest.enabled is set.
	RunScheduler bool
}

type Manager struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	store     types.ItemStore
	engine    *query.Engine
	fetcher   source.Fetcher
	provider  *events.Provider
	emitter   *events.Emitter
	cursor    *ingest.Cursor
	scheduler *ingest.Scheduler
	auth      *identity.Service
	server    server.Service

	errCh chan error
	wg    sync.WaitGroup
}

func NewManager(cfg *config.Config, opts Options) *Manager {
	return &Manager{
		cfg:    cfg,
		opts:   opts,
		logger: slog.Default(),
		errCh:  make(chan error, 1),
	}
}

// Engine returns the query engine. Valid after Init.
func (m *Manager) Engine() *query.Engine { return m.engine }

// Cursor returns the ingestion cursor. Valid after Init.
func (m *Manager) Cursor() *ingest.Cursor { return m.cursor }

// Errors delivers fatal errors from background services.
func (m *Manager) Errors() <-chan error { return m.errCh }

func (m *Manager) reportError(err error) {
	select {
	case m.errCh <- err:
	default:
	}
}
