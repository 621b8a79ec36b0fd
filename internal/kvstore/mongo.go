package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoEntry struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps values in the kv_entries collection of the namespace database.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and pings it.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	if database == "" {
		database = "planner"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection("kv_entries"),
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, key string) (string, error) {
	var e mongoEntry
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return e.Value, nil
}

func (s *MongoStore) Set(ctx context.Context, key, value string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *MongoStore) Remove(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Update is a compare-and-swap loop on the stored value. A lost race shows up
// as zero matched documents or a duplicate insert, and the loop rereads.
func (s *MongoStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	for i := 0; i < maxUpdateRetries; i++ {
		var e mongoEntry
		found := true
		err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
		if errors.Is(err, mongo.ErrNoDocuments) {
			found = false
		} else if err != nil {
			return fmt.Errorf("failed to get %s: %w", key, err)
		}

		next, keep, err := fn(e.Value, found)
		if err != nil {
			return err
		}

		switch {
		case !found && !keep:
			return nil
		case !found:
			_, err = s.coll.InsertOne(ctx, mongoEntry{Key: key, Value: next, UpdatedAt: time.Now().UTC()})
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to update %s: %w", key, err)
			}
			return nil
		case !keep:
			res, err := s.coll.DeleteOne(ctx, bson.M{"_id": key, "value": e.Value})
			if err != nil {
				return fmt.Errorf("failed to update %s: %w", key, err)
			}
			if res.DeletedCount == 1 {
				return nil
			}
		default:
			res, err := s.coll.UpdateOne(ctx,
				bson.M{"_id": key, "value": e.Value},
				bson.M{"$set": bson.M{"value": next, "updated_at": time.Now().UTC()}},
			)
			if err != nil {
				return fmt.Errorf("failed to update %s: %w", key, err)
			}
			if res.MatchedCount == 1 {
				return nil
			}
		}
	}
	return fmt.Errorf("failed to update %s: too much contention", key)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
