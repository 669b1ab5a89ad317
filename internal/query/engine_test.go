package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/storyfeed/storyfeed/internal/storage/memory"
	"github.com/storyfeed/storyfeed/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	march1st2023  = int64(1677628800)
	mayItemSecond = int64(1682952335)
	mayItemStamp  = "2023-05-01T14:45:35.000Z"
)

func fixedClock() time.Time {
	return time.Date(2023, time.July, 15, 12, 0, 0, 0, time.UTC)
}

// fixture returns 20 items from 2023: 19 spread over March and early April,
// and a single one on May 1st.
func fixture() []*model.Item {
	items := make([]*model.Item, 0, 20)
	for i := 0; i < 19; i++ {
		ts := march1st2023 + int64(i)*2*86400
		items = append(items, &model.Item{
			ObjectID:   fmt.Sprintf("%d", 35000000+i),
			CreatedAt:  time.Unix(ts, 0).UTC().Format("2006-01-02T15:04:05.000Z"),
			CreatedAtI: ts,
			Author:     fmt.Sprintf("user%d", i),
			Tags:       []string{"story"},
			Title:      fmt.Sprintf("Story number %d", i),
		})
	}
	items[3].Author = "Gluber"
	items[3].Tags = []string{"story", "author_Gluber"}
	items[7].Author = "Gluber"
	items[7].Tags = []string{"comment", "author_Gluber"}
	items[11].Title = "Ask HN: Data Management for AI Training"

	items = append(items, &model.Item{
		ObjectID:   "35776542",
		CreatedAt:  mayItemStamp,
		CreatedAtI: mayItemSecond,
		Author:     "dang",
		Tags:       []string{"story"},
		Title:      "Show HN: A tiny scheduler",
	})
	return items
}

func newTestEngine(t *testing.T, items []*model.Item) *Engine {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.InsertMany(context.Background(), items))
	return NewEngine(store, WithClock(fixedClock), WithLocation(time.UTC))
}

func TestEngine_Search_EmptyStore(t *testing.T) {
	e := newTestEngine(t, nil)

	res, err := e.Search(context.Background(), FilterSpec{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, &SearchResult{Hits: []*model.Item{}, NbHits: 0, Page: 1, NbPages: 0}, res)
}

func TestEngine_Search_FirstPage(t *testing.T) {
	e := newTestEngine(t, fixture())

	res, err := e.Search(context.Background(), FilterSpec{})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 5)
	assert.Equal(t, int64(20), res.NbHits)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, int64(4), res.NbPages)
	assert.Equal(t, mayItemSecond, res.Hits[0].CreatedAtI)
}

func TestEngine_Search_AuthorAndTags(t *testing.T) {
	e := newTestEngine(t, fixture())

	res, err := e.Search(context.Background(), FilterSpec{Author: "Gluber", Tags: []string{"story"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.NbHits)
	assert.Equal(t, "Gluber", res.Hits[0].Author)
	assert.Contains(t, res.Hits[0].Tags, "story")

	res, err = e.Search(context.Background(), FilterSpec{Author: "Gluber"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.NbHits)

	res, err = e.Search(context.Background(), FilterSpec{Tags: []string{"comment", "poll"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.NbHits)
}

func TestEngine_Search_Title(t *testing.T) {
	e := newTestEngine(t, fixture())

	res, err := e.Search(context.Background(), FilterSpec{Title: "data MANAGEMENT for ai"})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.NbHits)
	assert.Equal(t, "Ask HN: Data Management for AI Training", res.Hits[0].Title)

	// Regex metacharacters are matched literally.
	res, err = e.Search(context.Background(), FilterSpec{Title: "Story.*"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.NbHits)
}

func TestEngine_Search_Month(t *testing.T) {
	e := newTestEngine(t, fixture())

	res, err := e.Search(context.Background(), FilterSpec{Month: "may"})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.NbHits)
	assert.Equal(t, mayItemStamp, res.Hits[0].CreatedAt)

	// No upper bound: April matches April onward, May included.
	res, err = e.Search(context.Background(), FilterSpec{Month: "April"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.NbHits)

	res, err = e.Search(context.Background(), FilterSpec{Month: "MARCH"})
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.NbHits)

	res, err = e.Search(context.Background(), FilterSpec{Month: "june"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.NbHits)
	assert.Empty(t, res.Hits)
}

func TestEngine_Search_InvalidArguments(t *testing.T) {
	e := newTestEngine(t, fixture())

	_, err := e.Search(context.Background(), FilterSpec{Month: "Mai"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = e.Search(context.Background(), FilterSpec{Page: -1})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestEngine_Search_PaginationInvariants(t *testing.T) {
	e := newTestEngine(t, fixture())

	specs := []FilterSpec{
		{},
		{Author: "Gluber"},
		{Tags: []string{"story"}},
		{Month: "april"},
		{Title: "story number 1"},
		{Author: "nobody"},
	}
	for _, spec := range specs {
		var firstTotal int64 = -1
		for page := 1; page <= 6; page++ {
			spec.Page = page
			res, err := e.Search(context.Background(), spec)
			require.NoError(t, err)

			assert.LessOrEqual(t, len(res.Hits), PageSize)
			assert.Equal(t, (res.NbHits+PageSize-1)/PageSize, res.NbPages)
			assert.Equal(t, page, res.Page)
			if firstTotal < 0 {
				firstTotal = res.NbHits
			}
			assert.Equal(t, firstTotal, res.NbHits, "total must not depend on page")
		}
	}
}

func TestEngine_Search_BeyondLastPage(t *testing.T) {
	e := newTestEngine(t, fixture())

	res, err := e.Search(context.Background(), FilterSpec{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.NotNil(t, res.Hits)
	assert.Equal(t, int64(20), res.NbHits)
	assert.Equal(t, int64(4), res.NbPages)
}

func TestEngine_Search_CountAndFindShareFilters(t *testing.T) {
	store := new(MockItemStore)
	e := NewEngine(store, WithClock(fixedClock), WithLocation(time.UTC))

	spec := FilterSpec{Author: "Gluber", Tags: []string{"story"}, Title: "hn", Month: "may", Page: 3}
	want, err := BuildFilters(spec, fixedClock())
	require.NoError(t, err)

	store.On("Count", mock.Anything, want).Return(int64(11), nil).Once()
	store.On("Find", mock.Anything, model.Query{
		Filters: want,
		OrderBy: []model.Order{{Field: model.FieldCreatedAtI, Direction: "desc"}},
		Skip:    10,
		Limit:   PageSize,
	}).Return([]*model.Item{{ObjectID: "1"}}, nil).Once()

	res, err := e.Search(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, int64(11), res.NbHits)
	assert.Equal(t, int64(3), res.NbPages)
	assert.Len(t, res.Hits, 1)
	store.AssertExpectations(t)
}

func TestEngine_Search_StoreFailure(t *testing.T) {
	cause := errors.New("connection reset")

	t.Run("count fails", func(t *testing.T) {
		store := new(MockItemStore)
		store.On("Count", mock.Anything, mock.Anything).Return(int64(0), cause)
		store.On("Find", mock.Anything, mock.Anything).Return([]*model.Item{}, nil).Maybe()

		_, err := NewEngine(store).Search(context.Background(), FilterSpec{})
		assert.ErrorIs(t, err, model.ErrQueryFailed)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("find fails", func(t *testing.T) {
		store := new(MockItemStore)
		store.On("Count", mock.Anything, mock.Anything).Return(int64(3), nil).Maybe()
		store.On("Find", mock.Anything, mock.Anything).Return(nil, cause)

		res, err := NewEngine(store).Search(context.Background(), FilterSpec{})
		assert.Nil(t, res)
		assert.ErrorIs(t, err, model.ErrQueryFailed)
	})

	t.Run("caller canceled", func(t *testing.T) {
		store := new(MockItemStore)
		store.On("Count", mock.Anything, mock.Anything).Return(int64(0), context.Canceled)
		store.On("Find", mock.Anything, mock.Anything).Return(nil, context.Canceled)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewEngine(store).Search(ctx, FilterSpec{})
		assert.ErrorIs(t, err, model.ErrCanceled)
	})
}

func TestEngine_ItemOperations(t *testing.T) {
	e := newTestEngine(t, fixture())
	ctx := context.Background()

	it, err := e.Get(ctx, "35776542")
	require.NoError(t, err)
	assert.Equal(t, "dang", it.Author)

	_, err = e.Get(ctx, "does-not-exist")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NotErrorIs(t, err, model.ErrStoreFailed)

	latest, err := e.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, mayItemSecond, latest.CreatedAtI)

	deleted, err := e.Delete(ctx, "35776542")
	require.NoError(t, err)
	assert.Equal(t, "35776542", deleted.ObjectID)

	_, err = e.Delete(ctx, "35776542")
	assert.ErrorIs(t, err, model.ErrNotFound)

	n, err := e.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(19), n)

	_, err = e.Latest(ctx)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEngine_ItemOperations_StoreFailure(t *testing.T) {
	cause := errors.New("disk full")
	store := new(MockItemStore)
	store.On("FindByKey", mock.Anything, "1").Return(nil, cause)
	store.On("DeleteByKey", mock.Anything, "1").Return(nil, cause)
	store.On("DeleteAll", mock.Anything).Return(int64(0), cause)
	store.On("FindFirst", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)

	e := NewEngine(store)
	ctx := context.Background()

	_, err := e.Get(ctx, "1")
	assert.ErrorIs(t, err, model.ErrStoreFailed)
	assert.ErrorIs(t, err, cause)

	_, err = e.Delete(ctx, "1")
	assert.ErrorIs(t, err, model.ErrStoreFailed)

	_, err = e.DeleteAll(ctx)
	assert.ErrorIs(t, err, model.ErrStoreFailed)

	_, err = e.Latest(ctx)
	assert.ErrorIs(t, err, model.ErrCanceled)
}
