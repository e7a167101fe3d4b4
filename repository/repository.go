package repository

import (
	"context"
	"errors"

	"go-cartshop/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// CartRepository stores cart items keyed by owner. Every lookup by id is also
// scoped by owner, so an id belonging to another user reads as ErrNotFound.
type CartRepository interface {
	// AddOrIncrement bumps the quantity of the (owner, brand) item by one, or
	// creates it with quantity 1 and the given price. created reports which.
	AddOrIncrement(ctx context.Context, owner primitive.ObjectID, brand string, price float64) (created bool, err error)
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.CartItem, error)
	SetQuantity(ctx context.Context, owner, id primitive.ObjectID, quantity int) error
	Delete(ctx context.Context, owner, id primitive.ObjectID) error
	DeleteByOwner(ctx context.Context, owner primitive.ObjectID) error
}

type OrderRepository interface {
	Insert(ctx context.Context, order *models.Order) error
	// ListByOwner returns orders newest first.
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Order, error)
}

type UserRepository interface {
	Insert(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Transactor runs fn so that every store call made with the ctx it receives
// commits or aborts together, when the backing store supports it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoTransaction runs fn directly; each store call commits on its own.
type NoTransaction struct{}

func (NoTransaction) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
