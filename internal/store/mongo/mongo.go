// Package mongo adapts a MongoDB database to the document store ports.
// Documents keep their ObjectID in _id; callers see it as a hex "id".
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"subtrack/internal/store"
)

const connectTimeout = 10 * time.Second

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to uri and selects database.
func New(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	slog.Info("MongoDB document store ready", "database", database)
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Collection(name string) store.Collection {
	return &collection{coll: s.db.Collection(name)}
}

func (s *Store) ValidateID(id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %q", store.ErrInvalidID, id)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes the whole database. Used by integration tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

type collection struct {
	coll *mongo.Collection
}

func toFilter(filter store.Filter) (bson.M, error) {
	if err := store.CheckFields(filter); err != nil {
		return nil, err
	}
	out := bson.M{}
	for k, v := range filter {
		if k == store.IDField {
			hex, _ := v.(string)
			oid, err := primitive.ObjectIDFromHex(hex)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", store.ErrInvalidID, v)
			}
			out["_id"] = oid
			continue
		}
		out[k] = v
	}
	return out, nil
}

func toBSON(doc store.Document) (bson.M, error) {
	if err := store.CheckFields(doc); err != nil {
		return nil, err
	}
	out := bson.M{}
	for k, v := range doc {
		if k == store.IDField {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// fromBSON maps driver values back to plain Go values.
func fromBSON(m bson.M) store.Document {
	doc := make(store.Document, len(m))
	for k, v := range m {
		if k == "_id" {
			if oid, ok := v.(primitive.ObjectID); ok {
				doc[store.IDField] = oid.Hex()
			}
			continue
		}
		doc[k] = plain(v)
	}
	return doc
}

func plain(v any) any {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.ObjectID:
		return x.Hex()
	case int32:
		return int64(x)
	case primitive.A:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plain(item)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = plain(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = plain(e.Value)
		}
		return out
	default:
		return v
	}
}

func (c *collection) Find(ctx context.Context, filter store.Filter, opts store.FindOptions) ([]store.Document, error) {
	f, err := toFilter(filter)
	if err != nil {
		return nil, err
	}
	fo := options.Find()
	if opts.SortField != "" {
		if !store.ValidField(opts.SortField) {
			return nil, fmt.Errorf("%w: %q", store.ErrInvalidField, opts.SortField)
		}
		dir := 1
		if opts.SortDesc {
			dir = -1
		}
		fo.SetSort(bson.D{{Key: opts.SortField, Value: dir}, {Key: "_id", Value: 1}})
	} else {
		fo.SetSort(bson.D{{Key: "_id", Value: 1}})
	}
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}

	cur, err := c.coll.Find(ctx, f, fo)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.coll.Name(), err)
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.coll.Name(), err)
	}
	docs := make([]store.Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, fromBSON(m))
	}
	return docs, nil
}

func (c *collection) FindOne(ctx context.Context, filter store.Filter) (store.Document, error) {
	f, err := toFilter(filter)
	if err != nil {
		return nil, err
	}
	var m bson.M
	err = c.coll.FindOne(ctx, f).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("find one %s: %w", c.coll.Name(), err)
	}
	return fromBSON(m), nil
}

func (c *collection) InsertOne(ctx context.Context, doc store.Document) (string, error) {
	m, err := toBSON(doc)
	if err != nil {
		return "", err
	}
	oid := primitive.NewObjectID()
	m["_id"] = oid
	if _, err := c.coll.InsertOne(ctx, m); err != nil {
		return "", fmt.Errorf("insert %s: %w", c.coll.Name(), err)
	}
	return oid.Hex(), nil
}

func (c *collection) InsertMany(ctx context.Context, docs []store.Document) ([]string, error) {
	ids := make([]string, 0, len(docs))
	batch := make([]any, 0, len(docs))
	for _, doc := range docs {
		m, err := toBSON(doc)
		if err != nil {
			return nil, err
		}
		oid := primitive.NewObjectID()
		m["_id"] = oid
		batch = append(batch, m)
		ids = append(ids, oid.Hex())
	}
	if len(batch) == 0 {
		return ids, nil
	}
	if _, err := c.coll.InsertMany(ctx, batch); err != nil {
		return nil, fmt.Errorf("insert many %s: %w", c.coll.Name(), err)
	}
	return ids, nil
}

func (c *collection) UpdateOne(ctx context.Context, filter store.Filter, set store.Document) (int64, error) {
	if _, ok := set[store.IDField]; ok {
		return 0, fmt.Errorf("%w: id is immutable", store.ErrInvalidField)
	}
	f, err := toFilter(filter)
	if err != nil {
		return 0, err
	}
	m, err := toBSON(set)
	if err != nil {
		return 0, err
	}
	res, err := c.coll.UpdateOne(ctx, f, bson.M{"$set": m})
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", c.coll.Name(), err)
	}
	return res.MatchedCount, nil
}

func (c *collection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	f, err := toFilter(filter)
	if err != nil {
		return 0, err
	}
	res, err := c.coll.DeleteOne(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", c.coll.Name(), err)
	}
	return res.DeletedCount, nil
}

func (c *collection) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	f, err := toFilter(filter)
	if err != nil {
		return 0, err
	}
	res, err := c.coll.DeleteMany(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("delete many %s: %w", c.coll.Name(), err)
	}
	return res.DeletedCount, nil
}
