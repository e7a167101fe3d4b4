package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"go-cartshop/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// testDatabase connects to MONGO_TEST_URI and returns a throwaway database.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("cartshop_test_" + primitive.NewObjectID().Hex())
	require.NoError(t, EnsureIndexes(ctx, db))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestMongoCartRepo(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	carts := NewMongoCartRepo(db, 5*time.Second)
	owner := primitive.NewObjectID()

	created, err := carts.AddOrIncrement(ctx, owner, "Nike", 2000)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = carts.AddOrIncrement(ctx, owner, "Nike", 9999)
	require.NoError(t, err)
	assert.False(t, created)

	items, err := carts.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 2000.0, items[0].Price)

	other := primitive.NewObjectID()
	assert.ErrorIs(t, carts.SetQuantity(ctx, other, items[0].ID, 5), ErrNotFound)
	require.NoError(t, carts.SetQuantity(ctx, owner, items[0].ID, 5))

	require.NoError(t, carts.Delete(ctx, owner, items[0].ID))
	assert.ErrorIs(t, carts.Delete(ctx, owner, items[0].ID), ErrNotFound)

	_, err = carts.AddOrIncrement(ctx, owner, "Puma", 1500)
	require.NoError(t, err)
	require.NoError(t, carts.DeleteByOwner(ctx, owner))
	items, err = carts.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMongoOrderAndUserRepos(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	orders := NewMongoOrderRepo(db, 5*time.Second)
	users := NewMongoUserRepo(db, 5*time.Second)
	owner := primitive.NewObjectID()
	base := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, orders.Insert(ctx, &models.Order{User: owner, Total: 1, CreatedAt: base}))
	require.NoError(t, orders.Insert(ctx, &models.Order{User: owner, Total: 2, CreatedAt: base.Add(time.Minute)}))
	got, err := orders.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Total)

	require.NoError(t, users.Insert(ctx, &models.User{Name: "A", Email: "a@example.com", Password: "x"}))
	assert.ErrorIs(t, users.Insert(ctx, &models.User{Name: "B", Email: "a@example.com"}), ErrDuplicate)
	_, err = users.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
