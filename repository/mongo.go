package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on. The unique
// (user, brand) index keeps at most one cart item per brand for a user.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	byCollection := map[string][]mongo.IndexModel{
		CartItemsCollection: {{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "brand", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("user_brand_unique"),
		}},
		OrdersCollection: {{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("user_created_desc"),
		}},
		UsersCollection: {{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		}},
	}
	for collection, indexes := range byCollection {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

// MongoTransactor runs fn inside a multi-document transaction. It needs a
// replica set or sharded cluster; standalone servers reject transactions.
type MongoTransactor struct {
	Client *mongo.Client
}

func (t MongoTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.Client.UseSession(ctx, func(sc mongo.SessionContext) error {
		_, err := sc.WithTransaction(sc, func(txCtx mongo.SessionContext) (interface{}, error) {
			return nil, fn(txCtx)
		})
		return err
	})
}
