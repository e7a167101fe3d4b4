package services

import (
	"context"
	"errors"

	"go-cartshop/apperrors"
	"go-cartshop/logger"
	"go-cartshop/models"
	"go-cartshop/repository"
	"go-cartshop/validators"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddItemInput is the body of POST /cart.
type AddItemInput struct {
	Brand string   `json:"brand" validate:"required"`
	Price *float64 `json:"price" validate:"required"`
}

// SetQuantityInput is the body of PATCH /cart/{id}.
type SetQuantityInput struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CartSummary is the cart state returned after every mutation.
type CartSummary struct {
	Items      []models.CartItem
	TotalCount int
}

// CartService owns the (user, brand) -> quantity mapping.
type CartService struct {
	repo repository.CartRepository
	log  *logger.Logger
}

func NewCartService(repo repository.CartRepository, log *logger.Logger) *CartService {
	if log == nil {
		log = logger.Nop()
	}
	return &CartService{repo: repo, log: log}
}

// Add increments the owner's item for the brand or creates it with quantity 1.
// The stored price of an existing item is left as it was.
func (s *CartService) Add(ctx context.Context, owner models.Identity, in AddItemInput) (CartSummary, bool, error) {
	if err := validators.Struct(in); err != nil {
		return CartSummary{}, false, err
	}
	created, err := s.repo.AddOrIncrement(ctx, owner.UserID, in.Brand, *in.Price)
	if err != nil {
		return CartSummary{}, false, apperrors.Storage(err, "add to cart")
	}
	summary, err := s.summary(ctx, owner)
	return summary, created, err
}

func (s *CartService) List(ctx context.Context, owner models.Identity) ([]models.CartItem, error) {
	items, err := s.repo.ListByOwner(ctx, owner.UserID)
	if err != nil {
		return nil, apperrors.Storage(err, "list cart")
	}
	return items, nil
}

func (s *CartService) Remove(ctx context.Context, owner models.Identity, itemID string) (CartSummary, error) {
	id, err := parseID(itemID)
	if err != nil {
		return CartSummary{}, err
	}
	if err := s.repo.Delete(ctx, owner.UserID, id); err != nil {
		return CartSummary{}, mapRepoErr(err, "remove cart item")
	}
	return s.summary(ctx, owner)
}

// SetQuantity sets an absolute quantity. Zero or less removes the item.
func (s *CartService) SetQuantity(ctx context.Context, owner models.Identity, itemID string, in SetQuantityInput) (CartSummary, error) {
	id, err := parseID(itemID)
	if err != nil {
		return CartSummary{}, err
	}
	if err := validators.Struct(in); err != nil {
		return CartSummary{}, err
	}

	if *in.Quantity <= 0 {
		err = s.repo.Delete(ctx, owner.UserID, id)
	} else {
		err = s.repo.SetQuantity(ctx, owner.UserID, id, *in.Quantity)
	}
	if err != nil {
		return CartSummary{}, mapRepoErr(err, "update cart item")
	}
	return s.summary(ctx, owner)
}

// Clear deletes every item the owner has. An empty cart is not an error.
func (s *CartService) Clear(ctx context.Context, owner models.Identity) error {
	if err := s.repo.DeleteByOwner(ctx, owner.UserID); err != nil {
		return apperrors.Storage(err, "clear cart")
	}
	return nil
}

// summary re-reads the cart after a mutation. The read is not atomic with
// the write, so a concurrent change may show up in the count.
func (s *CartService) summary(ctx context.Context, owner models.Identity) (CartSummary, error) {
	items, err := s.List(ctx, owner)
	if err != nil {
		return CartSummary{}, err
	}
	return CartSummary{Items: items, TotalCount: models.TotalCount(items)}, nil
}

func parseID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation("Invalid id")
	}
	return id, nil
}

func mapRepoErr(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("Not found")
	}
	return apperrors.Storage(err, op)
}
