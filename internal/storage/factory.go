// Package storage selects and constructs the item store backend.
package storage

import (
	"context"
	"fmt"

	"github.com/storyfeed/storyfeed/internal/storage/config"
	"github.com/storyfeed/storyfeed/internal/storage/memory"
	"github.com/storyfeed/storyfeed/internal/storage/mongo"
	"github.com/storyfeed/storyfeed/internal/storage/types"
)

// NewItemStore opens the backend named in cfg.
func NewItemStore(ctx context.Context, cfg config.Config) (types.ItemStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendMongo, "":
		store, err := mongo.NewItemStore(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("failed to open mongo item store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
