package services

import (
	"context"
	"fmt"

	"github.com/storyfeed/storyfeed/internal/events"
	"github.com/storyfeed/storyfeed/internal/gateway/rest"
	"github.com/storyfeed/storyfeed/internal/identity"
	"github.com/storyfeed/storyfeed/internal/ingest"
	"github.com/storyfeed/storyfeed/internal/metrics"
	"github.com/storyfeed/storyfeed/internal/query"
	"github.com/storyfeed/storyfeed/internal/server"
	"github.com/storyfeed/storyfeed/internal/source"
	"github.com/storyfeed/storyfeed/internal/storage"
)

func (m *Manager) Init(ctx context.Context) error {
	if err := m.initStore(ctx); err != nil {
		return err
	}

	if err := m.initEvents(ctx); err != nil {
		return err
	}

	if err := m.initIngest(); err != nil {
		return err
	}

	if m.opts.RunAPI {
		if err := m.initAPI(); err != nil {
			return err
		}
	}

	return nil
}

func (m *Manager) initStore(ctx context.Context) error {
	store, err := storage.NewItemStore(ctx, m.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create item store: %w", err)
	}
	m.store = store
	m.engine = query.NewEngine(store)
	m.logger.Info("Item store ready", "backend", m.cfg.Storage.Backend)
	return nil
}

func (m *Manager) initEvents(ctx context.Context) error {
	if !m.cfg.Events.Enabled() {
		m.emitter = events.NewEmitter(nil)
		return nil
	}

	provider := events.NewProvider(m.cfg.Events.URL)
	if err := provider.Connect(ctx); err != nil {
		return err
	}
	pub, err := provider.NewPublisher(ctx, m.cfg.Events, metrics.ObservePublish)
	if err != nil {
		_ = provider.Close()
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	m.provider = provider
	m.emitter = events.NewEmitter(pub)
	return nil
}

func (m *Manager) initIngest() error {
	admit, err := ingest.NewAdmission(m.cfg.Ingest.Admission, m.logger)
	if err != nil {
		return fmt.Errorf("failed to compile admission rule: %w", err)
	}

	if m.fetcher == nil {
		m.fetcher = source.NewClient(m.cfg.Source)
	}
	m.cursor = ingest.NewCursor(m.store, m.fetcher, m.emitter, admit, m.logger)

	if m.opts.RunScheduler && m.cfg.Ingest.Enabled {
		interval := m.cfg.Ingest.EffectiveInterval(m.cfg.Environment.IsProduction())
		m.scheduler = ingest.NewScheduler(m.cursor, interval, m.cfg.Ingest.RunOnStart, m.logger)
	}
	return nil
}

func (m *Manager) initAPI() error {
	auth, err := identity.NewService(m.cfg.Identity)
	if err != nil {
		return fmt.Errorf("failed to create identity service: %w", err)
	}
	m.auth = auth

	m.server = server.New(m.cfg.Server, m.logger)
	rest.NewHandler(m.engine, auth).RegisterRoutes(m.server.HTTPMux())
	m.server.RegisterHTTPHandler("GET /metrics", metrics.Handler())
	return nil
}
