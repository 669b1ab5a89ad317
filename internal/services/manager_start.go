package services

import (
	"context"
	"fmt"
)

// Start launches the HTTP server and the ingestion scheduler. It returns once
// they are running; fatal server errors arrive on Errors.
func (m *Manager) Start(bgCtx context.Context) error {
	if m.server != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.server.Start(bgCtx); err != nil {
				m.logger.Error("HTTP server failed", "error", err)
				m.reportError(fmt.Errorf("http server: %w", err))
			}
		}()
	}

	if m.scheduler != nil {
		if err := m.scheduler.Start(bgCtx); err != nil {
			return fmt.Errorf("failed to start ingestion scheduler: %w", err)
		}
	}

	return nil
}
