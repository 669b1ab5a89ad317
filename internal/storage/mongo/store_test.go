package mongo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/storyfeed/storyfeed/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	globalTestClient     *mongo.Client
	globalTestClientOnce sync.Once
)

func getGlobalTestClient(t *testing.T) *mongo.Client {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	globalTestClientOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		require.NoError(t, err)
		require.NoError(t, client.Ping(ctx, nil))
		globalTestClient = client
	})
	return globalTestClient
}

func setupTestStore(t *testing.T) *itemStore {
	client := getGlobalTestClient(t)

	safeName := strings.ReplaceAll(t.Name(), "/", "_")
	if len(safeName) > 20 {
		safeName = safeName[len(safeName)-20:]
	}
	dbName := fmt.Sprintf("test_items_%s_%d", safeName, time.Now().UnixNano()%100000)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Database(dbName).Drop(ctx)
	})

	s := newItemStore(client, client.Database(dbName).Collection("articles"))
	require.NoError(t, s.EnsureIndexes(context.Background()))
	return s
}

func item(id string, createdAt int64, author string, tags ...string) *model.Item {
	return &model.Item{
		ObjectID:   id,
		CreatedAt:  time.Unix(createdAt, 0).UTC().Format(time.RFC3339),
		CreatedAtI: createdAt,
		Author:     author,
		Tags:       tags,
		Title:      "Story " + id,
	}
}

func TestItemStore_CRUD(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertMany(ctx, []*model.Item{
		item("1", 100, "alice", "story"),
		item("2", 300, "bob", "story", "ask_hn"),
		item("3", 200, "alice", "comment"),
	}))

	got, err := s.FindByKey(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Author)
	assert.Equal(t, []string{"story", "ask_hn"}, got.Tags)

	_, err = s.FindByKey(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	latest, err := s.FindFirst(ctx, model.Order{Field: model.FieldCreatedAtI, Direction: "desc"})
	require.NoError(t, err)
	assert.Equal(t, int64(300), latest.CreatedAtI)

	deleted, err := s.DeleteByKey(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", deleted.ObjectID)

	_, err = s.DeleteByKey(ctx, "1")
	assert.ErrorIs(t, err, model.ErrNotFound)

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.FindFirst(ctx, model.Order{Field: model.FieldCreatedAtI, Direction: "desc"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestItemStore_FindAndCount(t *testing.T) {
	s := setupTestStore(t)
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
	require.NoError(t, s.InsertMany(ctx, batch))

	filters := model.Filters{{Field: model.FieldAuthor, Op: model.OpEq, Value: "alice"}}
	n, err := s.Count(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	page, err := s.Find(ctx, model.Query{
		Filters: filters,
		OrderBy: []model.Order{{Field: model.FieldCreatedAtI, Direction: "desc"}},
		Skip:    5,
		Limit:   5,
	})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, int64(1004), page[0].CreatedAtI)

	n, err = s.Count(ctx, model.Filters{{Field: model.FieldTitle, Op: model.OpMatch, Value: "data management"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Count(ctx, model.Filters{{Field: model.FieldTags, Op: model.OpIn, Value: []string{"comment", "story"}}})
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	n, err = s.Count(ctx, model.Filters{{Field: model.FieldCreatedAtI, Op: model.OpGte, Value: int64(1010)}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestItemStore_InsertManyEmpty(t *testing.T) {
	s := setupTestStore(t)
	assert.NoError(t, s.InsertMany(context.Background(), nil))
}

func TestItemStore_InsertManyRollsBackOnFailure(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertMany(ctx, []*model.Item{item("seed", 50, "alice")}))

	// A unique index makes the second element of the batch fail after the
	// first one was written.
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "title", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	require.NoError(t, err)

	first := item("a", 500, "bob")
	dup := item("b", 600, "bob")
	dup.Title = first.Title

	err = s.InsertMany(ctx, []*model.Item{first, dup})
	require.Error(t, err)

	n, err := s.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	latest, err := s.FindFirst(ctx, model.Order{Field: model.FieldCreatedAtI, Direction: "desc"})
	require.NoError(t, err)
	assert.Equal(t, int64(50), latest.CreatedAtI)
}

func TestItemDoc_MissingTags(t *testing.T) {
	doc := newItemDoc(primitive.NewObjectID(), &model.Item{ObjectID: "1", CreatedAtI: 10})
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, bson.TypeArray, bson.Raw(raw).Lookup(model.FieldTags).Type)

	var decoded itemDoc
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{}, decoded.toItem().Tags)

	// Older documents may hold null.
	legacy := itemDoc{ID: primitive.NewObjectID(), Item: model.Item{ObjectID: "2"}}
	raw, err = bson.Marshal(legacy)
	require.NoError(t, err)
	assert.Equal(t, bson.TypeNull, bson.Raw(raw).Lookup(model.FieldTags).Type)

	decoded = itemDoc{}
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{}, decoded.toItem().Tags)
}
