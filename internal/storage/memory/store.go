// Package memory provides an in-process ItemStore for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/btree"
	"github.com/storyfeed/storyfeed/internal/storage/types"
	"github.com/storyfeed/storyfeed/pkg/model"
)

type entry struct {
	seq    uint64
	item   model.Item
	fields map[string]interface{}
}

// byCreatedAt orders entries oldest first. seq breaks ties so that items
// sharing a timestamp, or re-ingested under the same objectID, stay distinct.
func byCreatedAt(a, b *entry) bool {
	if a.item.CreatedAtI != b.item.CreatedAtI {
		return a.item.CreatedAtI < b.item.CreatedAtI
	}
	return a.seq < b.seq
}

// Store keeps items in a B-tree ordered by created_at_i behind a single lock.
type Store struct {
	mu      sync.RWMutex
	tree    *btree.BTreeG[*entry]
	nextSeq uint64
}

var _ types.ItemStore = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{tree: btree.NewG[*entry](16, byCreatedAt)}
}

func (s *Store) FindByKey(ctx context.Context, objectID string) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e := s.lookup(objectID); e != nil {
		return copyItem(&e.item), nil
	}
	return nil, model.ErrNotFound
}

func (s *Store) FindFirst(ctx context.Context, order model.Order) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.tree.Len() == 0 {
		return nil, model.ErrNotFound
	}

	if order.Field == model.FieldCreatedAtI {
		e, _ := s.tree.Min()
		if order.Descending() {
			e, _ = s.tree.Max()
		}
		return copyItem(&e.item), nil
	}

	all, _ := s.filter(nil)
	sortEntries(all, []model.Order{order})
	return copyItem(&all[0].item), nil
}

func (s *Store) Find(ctx context.Context, q model.Query) ([]*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched, err := s.filter(q.Filters)
	if err != nil {
		return nil, err
	}
	sortEntries(matched, q.OrderBy)

	if q.Skip > 0 {
		if q.Skip >= len(matched) {
			return []*model.Item{}, nil
		}
		matched = matched[q.Skip:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	items := make([]*model.Item, len(matched))
	for i, e := range matched {
		items[i] = copyItem(&e.item)
	}
	return items, nil
}

func (s *Store) Count(ctx context.Context, filters model.Filters) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched, err := s.filter(filters)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// InsertMany appends the whole batch under one lock, so it is never
// partially visible.
func (s *Store) InsertMany(ctx context.Context, items []*model.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range items {
		cp := copyItem(it)
		s.nextSeq++
		s.tree.ReplaceOrInsert(&entry{
			seq:    s.nextSeq,
			item:   *cp,
			fields: cp.Fields(),
		})
	}
	return nil
}

func (s *Store) DeleteByKey(ctx context.Context, objectID string) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(objectID)
	if e == nil {
		return nil, model.ErrNotFound
	}
	s.tree.Delete(e)
	return &e.item, nil
}

func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(s.tree.Len())
	s.tree.Clear(false)
	return n, nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// lookup returns the oldest entry with the given objectID. Callers hold mu.
func (s *Store) lookup(objectID string) *entry {
	var found *entry
	s.tree.Ascend(func(e *entry) bool {
		if e.item.ObjectID == objectID {
			found = e
			return false
		}
		return true
	})
	return found
}

// filter returns the matching entries oldest first. Callers hold mu.
func (s *Store) filter(filters model.Filters) ([]*entry, error) {
	var (
		out []*entry
		err error
	)
	s.tree.Ascend(func(e *entry) bool {
		var ok bool
		ok, err = matches(e.fields, filters)
		if err != nil {
			return false
		}
		if ok {
			out = append(out, e)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func copyItem(it *model.Item) *model.Item {
	cp := *it
	cp.Tags = append([]string{}, it.Tags...)
	return &cp
}
