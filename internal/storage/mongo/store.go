package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/storyfeed/storyfeed/internal/storage/config"
	"github.com/storyfeed/storyfeed/internal/storage/types"
	"github.com/storyfeed/storyfeed/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const rollbackTimeout = 10 * time.Second

// itemDoc is the stored shape of an item: the wire fields plus a primary key
// that never leaves this package.
type itemDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	model.Item `bson:",inline"`
}

// newItemDoc stores absent tags as an empty array rather than null.
func newItemDoc(id primitive.ObjectID, it *model.Item) itemDoc {
	doc := itemDoc{ID: id, Item: *it}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	return doc
}

// toItem returns the decoded item. Documents written without tags read
// back with an empty list.
func (d *itemDoc) toItem() *model.Item {
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return &d.Item
}

type itemStore struct {
	client     *mongo.Client
	coll       *mongo.Collection
	ownsClient bool
	logger     *slog.Logger
}

// NewItemStore connects to MongoDB, verifies the connection and ensures the
// collection indexes exist.
func NewItemStore(ctx context.Context, cfg config.MongoConfig) (types.ItemStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := newItemStore(client, client.Database(cfg.DatabaseName).Collection(cfg.Collection))
	s.ownsClient = true

	if err := s.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	return s, nil
}

func newItemStore(client *mongo.Client, coll *mongo.Collection) *itemStore {
	return &itemStore{
		client: client,
		coll:   coll,
		logger: slog.Default().With("component", "storage.mongo"),
	}
}

func (s *itemStore) FindByKey(ctx context.Context, objectID string) (*model.Item, error) {
	var doc itemDoc
	err := s.coll.FindOne(ctx, bson.M{model.FieldObjectID: objectID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return doc.toItem(), nil
}

func (s *itemStore) FindFirst(ctx context.Context, order model.Order) (*model.Item, error) {
	opts := options.FindOne().SetSort(makeSortBSON([]model.Order{order}))

	var doc itemDoc
	err := s.coll.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return doc.toItem(), nil
}

func (s *itemStore) Find(ctx context.Context, q model.Query) ([]*model.Item, error) {
	filter, err := makeFilterBSON(q.Filters)
	if err != nil {
		return nil, err
	}

	findOptions := options.Find().SetSort(makeSortBSON(q.OrderBy))
	if q.Skip > 0 {
		findOptions.SetSkip(int64(q.Skip))
	}
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}

	cursor, err := s.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []itemDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	items := make([]*model.Item, len(docs))
	for i := range docs {
		items[i] = docs[i].toItem()
	}
	return items, nil
}

func (s *itemStore) Count(ctx context.Context, filters model.Filters) (int64, error) {
	filter, err := makeFilterBSON(filters)
	if err != nil {
		return 0, err
	}
	return s.coll.CountDocuments(ctx, filter)
}

// InsertMany assigns primary keys up front so that a partially applied batch
// can be removed again. A failed call therefore never moves the watermark.
func (s *itemStore) InsertMany(ctx context.Context, items []*model.Item) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, len(items))
	docs := make([]interface{}, len(items))
	for i, it := range items {
		ids[i] = primitive.NewObjectID()
		docs[i] = newItemDoc(ids[i], it)
	}

	_, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err == nil {
		return nil
	}

	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if _, rbErr := s.coll.DeleteMany(rbCtx, bson.M{"_id": bson.M{"$in": ids}}); rbErr != nil {
		s.logger.Error("Failed to roll back partial batch", "batch_size", len(items), "error", rbErr)
		return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
	}
	return err
}

func (s *itemStore) DeleteByKey(ctx context.Context, objectID string) (*model.Item, error) {
	var doc itemDoc
	err := s.coll.FindOneAndDelete(ctx, bson.M{model.FieldObjectID: objectID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return doc.toItem(), nil
}

func (s *itemStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates the indexes used by the watermark lookup, single-item
// access and the search filters. objectID is deliberately not unique: the
// ingestion cursor does not deduplicate, and a unique index would turn every
// re-fetched item into a failed cycle.
func (s *itemStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: model.FieldCreatedAtI, Value: -1}}},
		{Keys: bson.D{{Key: model.FieldObjectID, Value: 1}}},
		{Keys: bson.D{{Key: model.FieldAuthor, Value: 1}}},
		{Keys: bson.D{{Key: model.FieldTags, Value: 1}}},
	})
	return err
}

func (s *itemStore) Close(ctx context.Context) error {
	if s.ownsClient && s.client != nil {
		return s.client.Disconnect(ctx)
	}
	return nil
}
