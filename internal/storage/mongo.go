package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// MongoStorage writes each result as one document.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoStorage connects and pings the server.
func NewMongoStorage(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoStorage, error) {
	if uri == "" {
		return nil, &types.ConfigurationError{Field: "storage.mongo_uri", Message: "required for mongodb storage"}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoStorage{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

// Store inserts the result and returns the new document id.
func (s *MongoStorage) Store(ctx context.Context, res *types.ScrapeResult) (string, error) {
	doc, err := Document(res)
	if err != nil {
		return "", &types.StorageError{Backend: "mongodb", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("insert: %w", err)}
	}

	id := fmt.Sprint(out.InsertedID)
	if oid, ok := out.InsertedID.(primitive.ObjectID); ok {
		id = oid.Hex()
	}
	s.logger.Debug("result stored in mongodb", "id", id, "reviews", len(res.Reviews))
	return fmt.Sprintf("mongodb://%s/%s/%s", s.collection.Database().Name(), s.collection.Name(), id), nil
}

func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Document converts a result to BSON through its JSON form, so dates are
// stored as YYYY-MM-DD strings. The natural key fields are added on top.
func Document(res *types.ScrapeResult) (bson.M, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	var doc bson.M
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("convert result: %w", err)
	}
	doc["key"] = BaseName(res)
	return doc, nil
}
