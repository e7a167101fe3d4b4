package services

import (
	"context"
	"errors"
	"testing"

	"go-cartshop/apperrors"
	"go-cartshop/models"
	"go-cartshop/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func price(v float64) *float64 { return &v }
func qty(v int) *int           { return &v }

func newOwner() models.Identity {
	return models.Identity{UserID: primitive.NewObjectID(), Email: "buyer@example.com"}
}

func newCartService() *CartService {
	return NewCartService(repository.NewMemoryStore().Carts(), nil)
}

func TestAddSameBrandTwiceMerges(t *testing.T) {
	ctx := context.Background()
	svc := newCartService()
	owner := newOwner()

	_, created, err := svc.Add(ctx, owner, AddItemInput{Brand: "Nike", Price: price(2000)})
	require.NoError(t, err)
	assert.True(t, created)

	summary, created, err := svc.Add(ctx, owner, AddItemInput{Brand: "Nike", Price: price(2000)})
	require.NoError(t, err)
	assert.False(t, created)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, "Nike", summary.Items[0].Brand)
	assert.Equal(t, 2000.0, summary.Items[0].Price)
	assert.Equal(t, 2, summary.Items[0].Quantity)
	assert.Equal(t, 2, summary.TotalCount)
}

func TestAddKeepsOriginalPrice(t *testing.T) {
	ctx := context.Background()
	svc := newCartService()
	owner := newOwner()

	_, _, err := svc.Add(ctx, owner, AddItemInput{Brand: "Nike", Price: price(2000)})
	require.NoError(t, err)
	summary, _, err := svc.Add(ctx, owner, AddItemInput{Brand: "Nike", Price: price(2500)})
	require.NoError(t, err)

	assert.Equal(t, 2000.0, summary.Items[0].Price)
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	svc := newCartService()

	_, _, err := svc.Add(ctx, newOwner(), AddItemInput{Brand: "", Price: price(10)})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, _, err = svc.Add(ctx, newOwner(), AddItemInput{Brand: "Nike"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestCartsAreIsolatedPerOwner(t *testing.T) {
	ctx := context.Background()
	svc := newCartService()
	alice, bob := newOwner(), newOwner()

	_, _, err := svc.Add(ctx, alice, AddItemInput{Brand: "Nike", Price: price(2000)})
	require.NoError(t, err)
	_, _, err = svc.Add(ctx, bob, AddItemInput{Brand: "Nike", Price: price(2000)})
	require.NoError(t, err)

	items, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestSetQuantityIsAbsolute(t *testing.T) {
	ctx := context.Background()
	svc := newCartService()
	owner := newOwner()

	summary, _, err := svc.Add(ctx, owner, AddItemInput{Brand: "Puma", Price: price(1500)})
	require.NoError(t, err)
	id := summary.Items[0].ID.Hex()

	summary, err = svc.SetQuantity(ctx, owner, id, SetQuantityInput{Quantity: qty(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Items[0].Quantity)

	summary, err = svc.SetQuantity(ctx, owner, id, SetQuantityInput{Quantity: qty(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Items[0].Quantity)
	assert.Equal(t, 3, summary.TotalCount)
}

func TestSetQuantityZeroOrLessRemoves(t *testing.T) {
	for _, q := range []int{0, -4} {
		ctx := context.Background()
		svc := newCartService()
		owner := newOwner()

		summary, _, err := svc.Add(ctx, owner, AddItemInput{Brand: "Puma", Price: price(1500)})
		require.NoError(t, err)

		summary, err = svc.SetQuantity(ctx, owner, summary.Items[0].ID.Hex(), SetQuantityInput{Quantity: qty(q)})
		require.NoError(t, err)
		assert.Empty(t, summary.Items)
		assert.Zero(t, summary.TotalCount)
	}
}

func TestSetQuantityErrors(t *testing.T) {
	ctx := context.Background()
	svc := newCartService()
	owner := newOwner()
	summary, _, err := svc.Add(ctx, owner, AddItemInput{Brand: "Puma", Price: price(1500)})
	require.NoError(t, err)
	id := summary.Items[0].ID.Hex()

	_, err = svc.SetQuantity(ctx, owner, "xyz", SetQuantityInput{Quantity: qty(1)})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = svc.SetQuantity(ctx, owner, id, SetQuantityInput{})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = svc.SetQuantity(ctx, newOwner(), id, SetQuantityInput{Quantity: qty(2)})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = svc.SetQuantity(ctx, newOwner(), id, SetQuantityInput{Quantity: qty(0)})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc := newCartService()
	owner := newOwner()

	_, _, err := svc.Add(ctx, owner, AddItemInput{Brand: "Nike", Price: price(2000)})
	require.NoError(t, err)
	summary, _, err := svc.Add(ctx, owner, AddItemInput{Brand: "Puma", Price: price(1500)})
	require.NoError(t, err)

	var pumaID string
	for _, item := range summary.Items {
		if item.Brand == "Puma" {
			pumaID = item.ID.Hex()
		}
	}

	_, err = svc.Remove(ctx, owner, "not-hex")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = svc.Remove(ctx, newOwner(), pumaID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	summary, err = svc.Remove(ctx, owner, pumaID)
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, "Nike", summary.Items[0].Brand)
	assert.Equal(t, 1, summary.TotalCount)

	_, err = svc.Remove(ctx, owner, pumaID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newCartService()
	owner := newOwner()

	require.NoError(t, svc.Clear(ctx, owner))

	for _, brand := range []string{"Nike", "Puma", "Nike"} {
		_, _, err := svc.Add(ctx, owner, AddItemInput{Brand: brand, Price: price(100)})
		require.NoError(t, err)
	}
	require.NoError(t, svc.Clear(ctx, owner))
	require.NoError(t, svc.Clear(ctx, owner))

	items, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStorageFailuresAreWrapped(t *testing.T) {
	svc := NewCartService(failingCarts{err: errors.New("socket closed")}, nil)

	_, err := svc.List(context.Background(), newOwner())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeStorage))
	assert.Equal(t, "Server error", apperrors.As(err).PublicMessage())
}

type failingCarts struct {
	repository.CartRepository
	err error
}

func (f failingCarts) ListByOwner(context.Context, primitive.ObjectID) ([]models.CartItem, error) {
	return nil, f.err
}
