package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go-cartshop/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps carts, orders and users in process memory. It backs
// DB_DRIVER=memory and the tests; it does not support transactions.
type MemoryStore struct {
	mu     sync.Mutex
	items  map[primitive.ObjectID]models.CartItem
	orders []models.Order
	users  map[primitive.ObjectID]models.User
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: map[primitive.ObjectID]models.CartItem{},
		users: map[primitive.ObjectID]models.User{},
		now:   time.Now,
	}
}

// SetClock replaces the store's time source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Carts exposes the store as a CartRepository.
func (s *MemoryStore) Carts() CartRepository { return memoryCarts{s} }

// Orders exposes the store as an OrderRepository.
func (s *MemoryStore) Orders() OrderRepository { return memoryOrders{s} }

// Users exposes the store as a UserRepository.
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

type memoryCarts struct{ s *MemoryStore }

func (m memoryCarts) AddOrIncrement(ctx context.Context, owner primitive.ObjectID, brand string, price float64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for id, item := range s.items {
		if item.User == owner && item.Brand == brand {
			item.Quantity++
			item.UpdatedAt = now
			s.items[id] = item
			return false, nil
		}
	}
	id := primitive.NewObjectID()
	s.items[id] = models.CartItem{
		ID:        id,
		User:      owner,
		Brand:     brand,
		Price:     price,
		Quantity:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return true, nil
}

func (m memoryCarts) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.CartItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	items := []models.CartItem{}
	for _, item := range s.items {
		if item.User == owner {
			items = append(items, item)
		}
	}
	// ObjectIDs from one process sort in creation order.
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID.Hex() < items[j].ID.Hex()
	})
	return items, nil
}

func (m memoryCarts) SetQuantity(ctx context.Context, owner, id primitive.ObjectID, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || item.User != owner {
		return ErrNotFound
	}
	item.Quantity = quantity
	item.UpdatedAt = s.now().UTC()
	s.items[id] = item
	return nil
}

func (m memoryCarts) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || item.User != owner {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (m memoryCarts) DeleteByOwner(ctx context.Context, owner primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, item := range s.items {
		if item.User == owner {
			delete(s.items, id)
		}
	}
	return nil
}

type memoryOrders struct{ s *MemoryStore }

func (m memoryOrders) Insert(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	stored := *order
	stored.Items = append([]models.LineItem(nil), order.Items...)
	s.orders = append(s.orders, stored)
	return nil
}

func (m memoryOrders) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := []models.Order{}
	for _, order := range s.orders {
		if order.User == owner {
			order.Items = append([]models.LineItem(nil), order.Items...)
			orders = append(orders, order)
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) Insert(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = *user
	return nil
}

func (m memoryUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			found := user
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m memoryUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}
