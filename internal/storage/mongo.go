package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/MapGoat/internal/types"
)

// MongoStore writes results to a MongoDB collection, one document per place.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	seq        atomic.Int64
	count      atomic.Int64
	logger     *slog.Logger
}

type mongoRecord struct {
	Seq          int64 `bson:"seq"`
	types.Record `bson:",inline"`
}

// OpenMongo connects to MongoDB and returns a store on database.collection.
func OpenMongo(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Op: "ping", Err: err}
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "task_id", Value: 1}, {Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Op: "create index", Err: err}
	}

	s := &MongoStore{
		client:     client,
		collection: coll,
		logger:     logger.With("component", "mongo_storage"),
	}
	s.seq.Store(time.Now().UnixNano())
	return s, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) Save(ctx context.Context, taskID string, p *types.Place) error {
	doc := mongoRecord{
		Seq: s.seq.Add(1),
		Record: types.Record{
			TaskID:    taskID,
			Place:     *p,
			Timestamp: time.Now().UTC(),
		},
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return &types.StorageError{Backend: "mongodb", Op: "insert", Err: err}
	}
	total := s.count.Add(1)
	s.logger.Debug("place stored in mongodb", "task_id", taskID, "total", total)
	return nil
}

func (s *MongoStore) Recent(ctx context.Context, limit int) ([]types.Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "seq", Value: -1}}).
		SetLimit(int64(limit))
	return s.find(ctx, "recent", bson.M{}, opts)
}

func (s *MongoStore) ByTask(ctx context.Context, taskID string) ([]types.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	return s.find(ctx, "by task", bson.M{"task_id": taskID}, opts)
}

func (s *MongoStore) find(ctx context.Context, op string, filter bson.M, opts *options.FindOptions) ([]types.Record, error) {
	cur, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: op, Err: err}
	}
	defer cur.Close(ctx)

	var docs []mongoRecord
	if err := cur.All(ctx, &docs); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: op, Err: fmt.Errorf("decode: %w", err)}
	}

	records := make([]types.Record, len(docs))
	for i, d := range docs {
		records[i] = d.Record
		records[i].ID = int64(i + 1)
	}
	return records, nil
}

func (s *MongoStore) Close() error {
	s.logger.Info("mongodb storage closing", "total_places", s.count.Load())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
