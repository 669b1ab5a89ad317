// Package types defines the record store capability consumed by the query
// engine and the ingestion cursor.
package types

import (
	"context"

	"github.com/storyfeed/storyfeed/pkg/model"
)

// ItemStore is typed access to the persisted item collection.
//
// Lookups that find nothing return model.ErrNotFound. Every other failure is
// returned as-is and classified by the caller.
type ItemStore interface {
	// FindByKey returns the item with the given external id.
	FindByKey(ctx context.Context, objectID string) (*model.Item, error)

	// FindFirst returns the first item under the given ordering, e.g. the item
	// with the maximum created_at_i for a descending order. Ties are broken
	// arbitrarily.
	FindFirst(ctx context.Context, order model.Order) (*model.Item, error)

	// Find returns the items matching q.Filters, ordered and windowed by q.
	Find(ctx context.Context, q model.Query) ([]*model.Item, error)

	// Count returns the number of items matching all filters.
	Count(ctx context.Context, filters model.Filters) (int64, error)

	// InsertMany stores the batch. On error no item of the batch remains stored.
	InsertMany(ctx context.Context, items []*model.Item) error

	// DeleteByKey removes one item with the given external id and returns it.
	DeleteByKey(ctx context.Context, objectID string) (*model.Item, error)

	// DeleteAll removes every item and returns how many were removed.
	DeleteAll(ctx context.Context) (int64, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
