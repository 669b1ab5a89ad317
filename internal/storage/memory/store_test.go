package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/storyfeed/storyfeed/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var newestFirst = model.Order{Field: model.FieldCreatedAtI, Direction: "desc"}

func item(id string, createdAt int64, author string, tags ...string) *model.Item {
	return &model.Item{
		ObjectID:   id,
		CreatedAtI: createdAt,
		Author:     author,
		Tags:       tags,
		Title:      "Story " + id,
	}
}

func TestStore_FindByKeyAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InsertMany(ctx, []*model.Item{item("1", 10, "a"), item("2", 20, "b")}))

	got, err := s.FindByKey(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Author)

	// Returned items are copies.
	got.Author = "changed"
	again, _ := s.FindByKey(ctx, "2")
	assert.Equal(t, "b", again.Author)

	_, err = s.FindByKey(ctx, "3")
	assert.ErrorIs(t, err, model.ErrNotFound)

	deleted, err := s.DeleteByKey(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", deleted.ObjectID)
	assert.Equal(t, 1, s.Len())

	_, err = s.DeleteByKey(ctx, "1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_FindFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.FindFirst(ctx, newestFirst)
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.InsertMany(ctx, []*model.Item{item("1", 10, "a"), item("2", 30, "b"), item("3", 20, "c")}))
	got, err := s.FindFirst(ctx, newestFirst)
	require.NoError(t, err)
	assert.Equal(t, "2", got.ObjectID)

	got, err = s.FindFirst(ctx, model.Order{Field: model.FieldCreatedAtI, Direction: "asc"})
	require.NoError(t, err)
	assert.Equal(t, "1", got.ObjectID)
}

func TestStore_FindAndCount(t *testing.T) {
	s := New()
	ctx := context.Background()

	var batch []*model.Item
	for i := 0; i < 12; i++ {
		author := "alice"
		if i%3 == 0 {
			author = "bob"
		}
		batch = append(batch, item(fmt.Sprintf("%d", i), int64(1000+i), author, "story"))
	}
	batch[4].Title = "Ask HN: Data Management for AI Training"
	batch[5].Tags = []string{"comment"}
	require.NoError(t, s.InsertMany(ctx, batch))

	tests := []struct {
		name    string
		filters model.Filters
		want    int64
	}{
		{"no filters", nil, 12},
		{"author", model.Filters{{Field: model.FieldAuthor, Op: model.OpEq, Value: "alice"}}, 8},
		{"author not", model.Filters{{Field: model.FieldAuthor, Op: model.OpNe, Value: "alice"}}, 4},
		{"title substring", model.Filters{{Field: model.FieldTitle, Op: model.OpMatch, Value: "DATA management"}}, 1},
		{"title literal", model.Filters{{Field: model.FieldTitle, Op: model.OpMatch, Value: "Story .*"}}, 0},
		{"tags any of", model.Filters{{Field: model.FieldTags, Op: model.OpIn, Value: []string{"comment", "poll"}}}, 1},
		{"tags eq element", model.Filters{{Field: model.FieldTags, Op: model.OpEq, Value: "story"}}, 11},
		{"created gte", model.Filters{{Field: model.FieldCreatedAtI, Op: model.OpGte, Value: int64(1010)}}, 2},
		{"created range", model.Filters{
			{Field: model.FieldCreatedAtI, Op: model.OpGt, Value: int64(1002)},
			{Field: model.FieldCreatedAtI, Op: model.OpLt, Value: 1005},
		}, 2},
		{"missing field", model.Filters{{Field: model.FieldPoints, Op: model.OpGt, Value: 0}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Count(ctx, tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	page, err := s.Find(ctx, model.Query{
		Filters: model.Filters{{Field: model.FieldAuthor, Op: model.OpEq, Value: "alice"}},
		OrderBy: []model.Order{newestFirst},
		Skip:    5,
		Limit:   5,
	})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, int64(1004), page[0].CreatedAtI)
	assert.Equal(t, int64(1001), page[2].CreatedAtI)

	page, err = s.Find(ctx, model.Query{Skip: 50, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestStore_InvalidFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InsertMany(ctx, []*model.Item{item("1", 10, "a")}))

	_, err := s.Count(ctx, model.Filters{{Field: model.FieldAuthor, Op: "like", Value: "a"}})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = s.Find(ctx, model.Query{Filters: model.Filters{{Field: model.FieldTitle, Op: model.OpMatch, Value: 1}}})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestStore_DeleteAllAndCanceled(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InsertMany(ctx, []*model.Item{item("1", 10, "a"), item("2", 20, "b")}))
	require.NoError(t, s.InsertMany(ctx, nil))

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 0, s.Len())

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, s.InsertMany(canceled, []*model.Item{item("3", 30, "c")}), context.Canceled)
	assert.Equal(t, 0, s.Len())
}

func TestStore_DuplicatesAndTies(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Same objectID ingested twice, plus a different item at the same second.
	require.NoError(t, s.InsertMany(ctx, []*model.Item{item("7", 50, "a"), item("8", 50, "b")}))
	require.NoError(t, s.InsertMany(ctx, []*model.Item{item("7", 50, "a2")}))
	assert.Equal(t, 3, s.Len())

	got, err := s.FindByKey(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Author)

	items, err := s.Find(ctx, model.Query{OrderBy: []model.Order{newestFirst}})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"a", "b", "a2"}, []string{items[0].Author, items[1].Author, items[2].Author})

	deleted, err := s.DeleteByKey(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "a", deleted.Author)

	got, err = s.FindByKey(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "a2", got.Author)
}

func TestStore_MissingTagsServedAsEmptyList(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InsertMany(ctx, []*model.Item{item("1", 10, "a")}))

	got, err := s.FindByKey(ctx, "1")
	require.NoError(t, err)
	assert.NotNil(t, got.Tags)
	assert.Empty(t, got.Tags)

	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"_tags":[]`)
}
