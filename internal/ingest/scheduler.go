package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is the work a Scheduler runs on every tick.
type Job interface {
	Tick(ctx context.Context)
}

// Scheduler runs a Job periodically. Each tick runs in its own goroutine so a
// slow cycle does not delay the clock; the Job decides what to do about
// overlap.
type Scheduler struct {
	job        Job
	interval   time.Duration
	runOnStart bool
	logger     *slog.Logger

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	triggerCh chan struct{}
}

// NewScheduler creates a Scheduler.
func NewScheduler(job Job, interval time.Duration, runOnStart bool, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		job:        job,
		interval:   interval,
		runOnStart: runOnStart,
		logger:     logger.With("component", "scheduler"),
		triggerCh:  make(chan struct{}, 1),
	}
}

// Start starts the scheduling loop. Ticks stop when ctx is canceled or Stop
// is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.interval)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(runCtx)

	s.logger.Info("Scheduler started", "interval", s.interval, "run_on_start", s.runOnStart)
	return nil
}

// Stop cancels in-flight ticks and waits for them to return, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger requests an immediate tick.
func (s *Scheduler) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
		// Already triggered
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.dispatch(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(ctx)
		case <-s.triggerCh:
			s.dispatch(ctx)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.job.Tick(ctx)
	}()
}
