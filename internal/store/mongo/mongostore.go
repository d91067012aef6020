// Package mongo implements the TODO document store on MongoDB.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	listsCollection = "todo_lists"
	itemsCollection = "todo_items"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to MongoDB and verifies the connection with a ping.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies the connection, used by readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// EnsureIndexes creates the unique document ids and the per-list item
// lookup index. Safe to call on every startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.lists().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "list_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("index todo_lists: %w", err)
	}
	_, err = s.items().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "list_id", Value: 1}, {Key: "item_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "list_id", Value: 1}, {Key: "due_date", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("index todo_items: %w", err)
	}
	return nil
}

func (s *Store) lists() *mongo.Collection { return s.db.Collection(listsCollection) }
func (s *Store) items() *mongo.Collection { return s.db.Collection(itemsCollection) }
