// Package query serves filtered, paginated reads and single-item operations
// over the item store.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/storyfeed/storyfeed/internal/storage/types"
	"github.com/storyfeed/storyfeed/pkg/model"
	"golang.org/x/sync/errgroup"
)

var newestFirst = model.Order{Field: model.FieldCreatedAtI, Direction: "desc"}

// Engine executes searches and item operations against an ItemStore.
type Engine struct {
	store    types.ItemStore
	now      func() time.Time
	location *time.Location
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the clock used to resolve month bounds.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the time zone month bounds are computed in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.location = loc }
}

// NewEngine creates a new Engine.
func NewEngine(store types.ItemStore, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns one page of items matching spec, newest first.
//
// The count and the page fetch run concurrently over the same predicates.
// If either fails the whole call fails with ErrQueryFailed.
func (e *Engine) Search(ctx context.Context, spec FilterSpec) (*SearchResult, error) {
	page := spec.Page
	if page < 0 {
		return nil, fmt.Errorf("%w: page must be >= 1, got %d", model.ErrInvalidArgument, page)
	}
	if page == 0 {
		page = 1
	}

	filters, err := BuildFilters(spec, e.now().In(e.location))
	if err != nil {
		return nil, err
	}

	q := model.Query{
		Filters: filters,
		OrderBy: []model.Order{newestFirst},
		Skip:    (page - 1) * PageSize,
		Limit:   PageSize,
	}

	var (
		total int64
		hits  []*model.Item
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := e.store.Count(gctx, filters)
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		items, err := e.store.Find(gctx, q)
		if err != nil {
			return fmt.Errorf("find: %w", err)
		}
		hits = items
		return nil
	})
	if err := g.Wait(); err != nil {
		if model.IsCanceled(err) && ctx.Err() != nil {
			return nil, model.ErrCanceled
		}
		return nil, fmt.Errorf("%w: %w", model.ErrQueryFailed, err)
	}

	if hits == nil {
		hits = []*model.Item{}
	}
	return &SearchResult{
		Hits:    hits,
		NbHits:  total,
		Page:    page,
		NbPages: totalPages(total),
	}, nil
}

// Get returns a single item by external id.
func (e *Engine) Get(ctx context.Context, objectID string) (*model.Item, error) {
	it, err := e.store.FindByKey(ctx, objectID)
	if err != nil {
		return nil, storeError("get", err)
	}
	return it, nil
}

// Delete removes a single item by external id and returns it.
func (e *Engine) Delete(ctx context.Context, objectID string) (*model.Item, error) {
	it, err := e.store.DeleteByKey(ctx, objectID)
	if err != nil {
		return nil, storeError("delete", err)
	}
	return it, nil
}

// DeleteAll removes every item and returns how many were removed.
func (e *Engine) DeleteAll(ctx context.Context) (int64, error) {
	n, err := e.store.DeleteAll(ctx)
	if err != nil {
		return 0, storeError("delete all", err)
	}
	return n, nil
}

// Latest returns the item with the greatest created_at_i.
func (e *Engine) Latest(ctx context.Context) (*model.Item, error) {
	it, err := e.store.FindFirst(ctx, newestFirst)
	if err != nil {
		return nil, storeError("latest", err)
	}
	return it, nil
}

// storeError keeps ErrNotFound and cancellation distinguishable and folds
// everything else into ErrStoreFailed.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return model.ErrNotFound
	case model.IsCanceled(err):
		return model.ErrCanceled
	default:
		return fmt.Errorf("%w: %s: %w", model.ErrStoreFailed, op, err)
	}
}
