package repository

import (
	"context"
	"fmt"
	"time"

	"go-cartshop/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CartItemsCollection = "cartitems"
	OrdersCollection    = "orders"
	UsersCollection     = "users"
)

// MongoCartRepo stores one document per (user, brand) in the cartitems collection.
type MongoCartRepo struct {
	Collection *mongo.Collection
	timeout    time.Duration
	now        func() time.Time
}

func NewMongoCartRepo(db *mongo.Database, timeout time.Duration) *MongoCartRepo {
	return &MongoCartRepo{
		Collection: db.Collection(CartItemsCollection),
		timeout:    timeout,
		now:        time.Now,
	}
}

func (r *MongoCartRepo) AddOrIncrement(ctx context.Context, owner primitive.ObjectID, brand string, price float64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	now := r.now().UTC()
	filter := bson.M{"user": owner, "brand": brand}
	update := bson.M{
		"$inc":         bson.M{"quantity": 1},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"price": price, "createdAt": now},
	}
	res, err := r.Collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("upsert cart item: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (r *MongoCartRepo) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.CartItem, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cursor, err := r.Collection.Find(ctx, bson.M{"user": owner})
	if err != nil {
		return nil, fmt.Errorf("find cart items: %w", err)
	}
	defer cursor.Close(ctx)

	items := []models.CartItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	return items, nil
}

func (r *MongoCartRepo) SetQuantity(ctx context.Context, owner, id primitive.ObjectID, quantity int) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id, "user": owner}, bson.M{
		"$set": bson.M{"quantity": quantity, "updatedAt": r.now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoCartRepo) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id, "user": owner})
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoCartRepo) DeleteByOwner(ctx context.Context, owner primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.Collection.DeleteMany(ctx, bson.M{"user": owner}); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
