package query

import (
	"context"

	"github.com/storyfeed/storyfeed/pkg/model"
	"github.com/stretchr/testify/mock"
)

// MockItemStore is a mock implementation of types.ItemStore
type MockItemStore struct {
	mock.Mock
}

func (m *MockItemStore) FindByKey(ctx context.Context, objectID string) (*model.Item, error) {
	args := m.Called(ctx, objectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockItemStore) FindFirst(ctx context.Context, order model.Order) (*model.Item, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockItemStore) Find(ctx context.Context, q model.Query) ([]*model.Item, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Item), args.Error(1)
}

func (m *MockItemStore) Count(ctx context.Context, filters model.Filters) (int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockItemStore) InsertMany(ctx context.Context, items []*model.Item) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockItemStore) DeleteByKey(ctx context.Context, objectID string) (*model.Item, error) {
	args := m.Called(ctx, objectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockItemStore) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockItemStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
