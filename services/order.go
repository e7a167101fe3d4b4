package services

import (
	"context"
	"errors"
	"time"

	"go-cartshop/apperrors"
	"go-cartshop/logger"
	"go-cartshop/models"
	"go-cartshop/repository"
	"go-cartshop/validators"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrCartNotCleared is returned together with a stored order when the cart
// could not be emptied afterwards. The order stands.
var ErrCartNotCleared = errors.New("order stored but cart not cleared")

// PlaceOrderInput is the body of POST /orders.
type PlaceOrderInput struct {
	Address string `json:"address" validate:"required"`
	Mobile  string `json:"mobile" validate:"required"`
}

// OrderNotifier is told about every placed order.
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, recipient string, order *models.Order) error
}

type orderRecorder interface {
	OrderPlaced(total float64)
}

type OrderService struct {
	orders   repository.OrderRepository
	carts    repository.CartRepository
	tx       repository.Transactor
	notifier OrderNotifier
	recorder orderRecorder
	log      *logger.Logger
	now      func() time.Time
}

type OrderOption func(*OrderService)

func WithNotifier(n OrderNotifier) OrderOption {
	return func(s *OrderService) { s.notifier = n }
}

func WithOrderRecorder(r orderRecorder) OrderOption {
	return func(s *OrderService) { s.recorder = r }
}

func WithClock(now func() time.Time) OrderOption {
	return func(s *OrderService) { s.now = now }
}

func NewOrderService(orders repository.OrderRepository, carts repository.CartRepository, tx repository.Transactor, log *logger.Logger, opts ...OrderOption) *OrderService {
	if tx == nil {
		tx = repository.NoTransaction{}
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &OrderService{
		orders: orders,
		carts:  carts,
		tx:     tx,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder snapshots the owner's cart into an order and empties the cart.
// Without a transactional Transactor the two writes are independent: if the
// clear fails the stored order is returned along with ErrCartNotCleared.
func (s *OrderService) PlaceOrder(ctx context.Context, owner models.Identity, in PlaceOrderInput) (*models.Order, error) {
	if err := validators.Struct(in); err != nil {
		return nil, err
	}

	var (
		order       *models.Order
		clearFailed error
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// Reset on retry; a transaction body may run more than once.
		order, clearFailed = nil, nil

		items, err := s.carts.ListByOwner(ctx, owner.UserID)
		if err != nil {
			return apperrors.Storage(err, "load cart")
		}
		if len(items) == 0 {
			return apperrors.Validation("Cart is empty")
		}

		lines := Snapshot(items)
		placed := &models.Order{
			ID:        primitive.NewObjectID(),
			User:      owner.UserID,
			Items:     lines,
			Total:     OrderTotal(lines),
			Address:   in.Address,
			Mobile:    in.Mobile,
			CreatedAt: s.now().UTC(),
		}
		if err := s.orders.Insert(ctx, placed); err != nil {
			return apperrors.Storage(err, "insert order")
		}
		order = placed

		if err := s.carts.DeleteByOwner(ctx, owner.UserID); err != nil {
			if _, ok := s.tx.(repository.NoTransaction); ok {
				clearFailed = err
				return nil
			}
			return apperrors.Storage(err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.OrderPlaced(order.Total)
	}
	s.notify(ctx, owner, order)

	if clearFailed != nil {
		s.log.Warn(s.log.WithField(ctx, "order_id", order.ID.Hex()), "order.cart_not_cleared", clearFailed)
		return order, ErrCartNotCleared
	}
	return order, nil
}

func (s *OrderService) ListMyOrders(ctx context.Context, owner models.Identity) ([]models.Order, error) {
	orders, err := s.orders.ListByOwner(ctx, owner.UserID)
	if err != nil {
		return nil, apperrors.Storage(err, "list orders")
	}
	return orders, nil
}

// notify sends the confirmation in the background; failures are only logged.
func (s *OrderService) notify(ctx context.Context, owner models.Identity, order *models.Order) {
	if s.notifier == nil || owner.Email == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.notifier.OrderPlaced(ctx, owner.Email, order); err != nil {
			s.log.Warn(ctx, "order.notify_failed", err)
		}
	}()
}

// Snapshot copies cart items into order line items.
func Snapshot(items []models.CartItem) []models.LineItem {
	lines := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.LineItem{
			Brand:    item.Brand,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	return lines
}

// OrderTotal sums price x quantity; a zero quantity counts as 1.
func OrderTotal(lines []models.LineItem) float64 {
	total := decimal.Zero
	for _, line := range lines {
		qty := line.Quantity
		if qty == 0 {
			qty = 1
		}
		total = total.Add(decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(int64(qty))))
	}
	f, _ := total.Float64()
	return f
}
