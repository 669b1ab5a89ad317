package services

import (
	"context"
	"errors"
	"fmt"
)

// Shutdown stops the scheduler first so no cycle writes after the store is
// closed, then drains the server and releases connections.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down services...")
	var errs []error

	if m.scheduler != nil {
		if err := m.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("scheduler: %w", err))
		}
	}

	if m.server != nil {
		if err := m.server.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server: %w", err))
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Timeout waiting for background services to stop")
	}

	if m.emitter != nil {
		if err := m.emitter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}
	if m.provider != nil {
		_ = m.provider.Close()
	}

	if m.store != nil {
		if err := m.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	m.logger.Info("Shutdown complete")
	return errors.Join(errs...)
}
