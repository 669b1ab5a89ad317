package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/storyfeed/storyfeed/internal/events"
	"github.com/storyfeed/storyfeed/internal/metrics"
	"github.com/storyfeed/storyfeed/internal/source"
	"github.com/storyfeed/storyfeed/internal/storage/types"
	"github.com/storyfeed/storyfeed/pkg/model"
)

var newestFirst = model.Order{Field: model.FieldCreatedAtI, Direction: "desc"}

// CycleResult summarizes one ingestion cycle.
type CycleResult struct {
	Watermark  *int64
	LowerBound string
	Fetched    int
	Rejected   int
	Imported   int
	Duration   time.Duration
}

// Cursor runs ingestion cycles: read the watermark, fetch newer items and
// insert them. It assumes it is the only writer of new items.
type Cursor struct {
	store   types.ItemStore
	source  source.Fetcher
	emitter *events.Emitter
	admit   AdmitFunc
	logger  *slog.Logger

	running atomic.Bool
}

// NewCursor creates a Cursor. emitter and admit may be nil.
func NewCursor(store types.ItemStore, src source.Fetcher, emitter *events.Emitter, admit AdmitFunc, logger *slog.Logger) *Cursor {
	if logger == nil {
		logger = slog.Default()
	}
	if emitter == nil {
		emitter = events.NewEmitter(nil)
	}
	return &Cursor{
		store:   store,
		source:  src,
		emitter: emitter,
		admit:   admit,
		logger:  logger.With("component", "ingest"),
	}
}

// RunCycle performs one ingestion cycle and returns what it did.
//
// A failed insert leaves no item of the batch in the store, so the watermark
// is unchanged and the next cycle asks the source for the same window.
func (c *Cursor) RunCycle(ctx context.Context) (res CycleResult, err error) {
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		metrics.IngestLatency.Observe(res.Duration.Seconds())
		if err != nil {
			metrics.IngestCycles.WithLabelValues(metrics.OutcomeFailure).Inc()
			return
		}
		metrics.IngestCycles.WithLabelValues(metrics.OutcomeSuccess).Inc()
	}()

	c.logger.Info("Running ingestion cycle")

	latest, err := c.store.FindFirst(ctx, newestFirst)
	switch {
	case err == nil:
		wm := latest.CreatedAtI
		res.Watermark = &wm
		metrics.Watermark.Set(float64(wm))
	case errors.Is(err, model.ErrNotFound):
		// Empty store: fetch without a bound.
	default:
		return res, fmt.Errorf("%w: read watermark: %w", model.ErrStoreFailed, err)
	}

	res.LowerBound = LowerBound(res.Watermark)

	fetchStart := time.Now()
	fetched, err := c.source.Fetch(ctx, res.LowerBound)
	metrics.SourceFetchLatency.Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		return res, err
	}
	res.Fetched = len(fetched)

	batch := Select(fetched, c.admit)
	res.Rejected = res.Fetched - len(batch)
	if res.Rejected > 0 {
		metrics.ItemsRejected.Add(float64(res.Rejected))
	}

	if err := c.store.InsertMany(ctx, batch); err != nil {
		return res, fmt.Errorf("%w: insert batch of %d: %w", model.ErrStoreFailed, len(batch), err)
	}
	res.Imported = len(batch)
	metrics.ItemsImported.Add(float64(res.Imported))

	c.logger.Info(fmt.Sprintf("Imported %d items", res.Imported),
		"lower_bound", res.LowerBound,
		"fetched", res.Fetched,
		"rejected", res.Rejected,
	)

	if err := c.emitter.IngestCompleted(ctx, events.IngestCompleted{
		Imported:   res.Imported,
		Fetched:    res.Fetched,
		LowerBound: res.LowerBound,
		Watermark:  res.Watermark,
		StartedAt:  start,
		DurationMs: time.Since(start).Milliseconds(),
	}); err != nil {
		c.logger.Warn("Failed to publish ingest event", "error", err)
	}

	return res, nil
}

// Tick runs one cycle unless a previous one is still in flight. Errors are
// logged and not returned; the next tick retries from the same watermark.
func (c *Cursor) Tick(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		c.logger.Warn("Skipping ingestion cycle, previous cycle still running")
		metrics.IngestCycles.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return
	}
	defer c.running.Store(false)

	if _, err := c.RunCycle(ctx); err != nil {
		if model.IsCanceled(err) && ctx.Err() != nil {
			c.logger.Info("Ingestion cycle canceled")
			return
		}
		c.logger.Error("Ingestion cycle failed", "error", err)
	}
}
