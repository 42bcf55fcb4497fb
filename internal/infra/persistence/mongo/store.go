// Package mongo persists the in-memory store state to a MongoDB collection,
// one document per bucket, after every committed transaction.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"programhub/internal/infra/persistence/memory"
	"programhub/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// Defaults applied when Config leaves fields empty.
const (
	DefaultURI        = "mongodb://localhost:27017"
	DefaultDatabase   = "programhub"
	DefaultCollection = "state"
)

// Config selects the deployment, database and collection.
type Config struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// Collection is the subset of *mongo.Collection used by the store.
type Collection interface {
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

type bucketDocument struct {
	Bucket    string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store reuses the in-memory transactional store and mirrors its buckets to MongoDB.
type Store struct {
	*memory.Store
	coll   Collection
	client *mongo.Client
}

// Open connects to MongoDB and hydrates a store from the configured collection.
func Open(ctx context.Context, cfg Config, engine *domain.RulesEngine, opts ...memory.Option) (*Store, error) {
	if cfg.URI == "" {
		cfg.URI = DefaultURI
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		clientOpts.SetConnectTimeout(cfg.Timeout).SetServerSelectionTimeout(cfg.Timeout)
	}
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	store, err := NewStore(ctx, client.Database(cfg.Database).Collection(cfg.Collection), engine, opts...)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	store.client = client
	return store, nil
}

// NewStore builds a store over an existing collection and loads any saved snapshot.
func NewStore(ctx context.Context, coll Collection, engine *domain.RulesEngine, opts ...memory.Option) (*Store, error) {
	mem := memory.NewStore(engine, opts...)
	s := &Store{Store: mem, coll: coll}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	cursor, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("find state: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()
	var snapshot memory.Snapshot
	var loaded bool
	for cursor.Next(ctx) {
		var doc bucketDocument
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("decode state document: %w", err)
		}
		if err := snapshot.UnmarshalBucket(doc.Bucket, doc.Payload); err != nil {
			return err
		}
		loaded = true
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if loaded {
		s.ImportState(snapshot)
	}
	return nil
}

// RunInTransaction applies fn in memory and upserts every bucket document
// before the new state becomes visible.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	return s.Store.RunInTransactionWithCommit(ctx, fn, s.persist)
}

func (s *Store) persist(ctx context.Context, snapshot memory.Snapshot) error {
	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(memory.Buckets))
	for _, bucket := range memory.Buckets {
		data, err := snapshot.MarshalBucket(bucket)
		if err != nil {
			return err
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: bucket}}).
			SetReplacement(bucketDocument{Bucket: bucket, Payload: data, UpdatedAt: now}).
			SetUpsert(true))
	}
	if _, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Close disconnects the client when the store owns it.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
