package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go-cartshop/apperrors"
	"go-cartshop/logger"
	"go-cartshop/models"

	"github.com/shopspring/decimal"
)

// State is the mirror lifecycle position.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return "uninitialized"
}

// Source says where Load found the cart.
type Source int

const (
	SourceEmpty Source = iota
	SourceServer
	SourceLocal
)

// ErrEmptyCart is returned by PlaceOrder when there is nothing to order.
var ErrEmptyCart = errors.New("cart is empty")

// Entry is one mirrored cart line. ID is set only for entries copied from
// the server; entries without it are local-only.
type Entry struct {
	ID       string  `json:"id,omitempty"`
	Brand    string  `json:"brand"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

func (e Entry) quantity() int {
	if e.Quantity == 0 {
		return 1
	}
	return e.Quantity
}

// snapshot is the value stored under CartKey.
type snapshot struct {
	Cart  []Entry  `json:"cart"`
	Total *float64 `json:"total,omitempty"`
}

// OrderSummary describes a placed order. OrderID is empty for orders placed
// without a server session.
type OrderSummary struct {
	OrderID    string
	Items      []Entry
	TotalItems int
	Total      decimal.Decimal
	Message    string
}

// Mirror is a client-side copy of one cart. With a stored credential every
// mutation goes to the server and the mirror is replaced by the server's
// answer; without one the mirror is the cart and is persisted locally.
// Operations on one Mirror are serialized.
type Mirror struct {
	mu     sync.Mutex
	api    *APIClient
	store  Storage
	notice Notifier
	log    *logger.Logger

	state State
	items []Entry
	total decimal.Decimal
}

type MirrorOption func(*Mirror)

func WithNotifier(n Notifier) MirrorOption {
	return func(m *Mirror) { m.notice = n }
}

func WithLogger(log *logger.Logger) MirrorOption {
	return func(m *Mirror) { m.log = log }
}

func NewMirror(api *APIClient, store Storage, opts ...MirrorOption) *Mirror {
	m := &Mirror{api: api, store: store, log: logger.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	if m.notice == nil {
		m.notice = LogNotifier{Log: m.log}
	}
	return m
}

// Load fills the mirror from the server when a credential is stored, falling
// back to the local snapshot on any failure and to an empty cart without one.
func (m *Mirror) Load(ctx context.Context) Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

func (m *Mirror) load(ctx context.Context) Source {
	m.state = Loading
	defer func() { m.state = Ready }()

	if token := m.token(); token != "" {
		items, err := m.api.GetCart(ctx, token)
		if err == nil {
			m.replace(items)
			return SourceServer
		}
		m.log.Warn(ctx, "cart.load_server_failed", err)
	}

	raw, ok, err := m.store.Get(CartKey)
	if err != nil {
		m.log.Warn(ctx, "cart.load_local_failed", err)
	}
	if err != nil || !ok {
		m.set(nil)
		return SourceEmpty
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		m.log.Warn(ctx, "cart.load_local_failed", err)
		m.set(nil)
		return SourceEmpty
	}
	m.set(snap.Cart)
	if snap.Total != nil {
		m.total = decimal.NewFromFloat(*snap.Total)
	}
	return SourceLocal
}

// Add puts one unit of brand in the cart.
func (m *Mirror) Add(ctx context.Context, brand string, price float64) error {
	if strings.TrimSpace(brand) == "" {
		return apperrors.Validation("brand is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)

	if token := m.token(); token != "" {
		items, err := m.api.AddItem(ctx, token, brand, price)
		if err != nil {
			m.alert(err, "Failed to add to cart")
			return err
		}
		m.replace(items)
		m.notice.Notify("Added to server cart")
		return nil
	}

	if idx := m.localIndex(brand); idx >= 0 {
		m.items[idx].Quantity = m.items[idx].quantity() + 1
	} else {
		m.items = append(m.items, Entry{Brand: brand, Price: price, Quantity: 1})
	}
	return m.persist(ctx)
}

// ChangeQuantity moves the quantity of brand by delta. A result of zero or
// less removes the line. When brand is not in the cart a positive delta adds
// one unit at price and anything else does nothing.
func (m *Mirror) ChangeQuantity(ctx context.Context, brand string, delta int, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)

	if token := m.token(); token != "" {
		if err := m.changeRemote(ctx, token, brand, delta, price); err != nil {
			m.log.Warn(m.log.WithField(ctx, "brand", brand), "cart.change_failed", err)
			m.notice.Notify("Could not update cart")
			return err
		}
		m.notice.Notify("Cart updated")
		return nil
	}

	idx := m.localIndex(brand)
	switch {
	case idx < 0 && delta > 0:
		m.items = append(m.items, Entry{Brand: brand, Price: price, Quantity: 1})
	case idx < 0:
		return nil
	default:
		qty := m.items[idx].quantity() + delta
		if qty <= 0 {
			m.items = append(m.items[:idx], m.items[idx+1:]...)
		} else {
			m.items[idx].Quantity = qty
		}
	}
	return m.persist(ctx)
}

// changeRemote is a read-modify-write against the server with no locking
// there; a concurrent session may interleave.
func (m *Mirror) changeRemote(ctx context.Context, token, brand string, delta int, price float64) error {
	current, err := m.api.GetCart(ctx, token)
	if err != nil {
		return fmt.Errorf("fetch server cart: %w", err)
	}
	var found *models.CartItem
	for i := range current {
		if current[i].Brand == brand {
			found = &current[i]
			break
		}
	}

	if found == nil {
		if delta <= 0 {
			return nil
		}
		items, err := m.api.AddItem(ctx, token, brand, price)
		if err != nil {
			return err
		}
		m.replace(items)
		return nil
	}

	qty := found.Quantity
	if qty == 0 {
		qty = 1
	}
	qty += delta
	if qty <= 0 {
		_, err = m.api.DeleteItem(ctx, token, found.ID.Hex())
	} else {
		_, err = m.api.SetQuantity(ctx, token, found.ID.Hex(), qty)
	}
	if err != nil {
		return err
	}

	items, err := m.api.GetCart(ctx, token)
	if err != nil {
		return fmt.Errorf("resync server cart: %w", err)
	}
	m.replace(items)
	return nil
}

// Remove drops the line at position idx. Out of range is a no-op.
func (m *Mirror) Remove(ctx context.Context, idx int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)

	if idx < 0 || idx >= len(m.items) {
		return nil
	}
	if token := m.token(); token != "" && m.items[idx].ID != "" {
		items, err := m.api.DeleteItem(ctx, token, m.items[idx].ID)
		if err != nil {
			m.alert(err, "Server error")
			return err
		}
		m.replace(items)
		m.notice.Notify("Item removed")
		return nil
	}

	m.items = append(m.items[:idx], m.items[idx+1:]...)
	return m.persist(ctx)
}

// Clear empties the cart on the server when signed in, then locally.
func (m *Mirror) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)

	if token := m.token(); token != "" {
		if err := m.api.ClearCart(ctx, token); err != nil {
			m.alert(err, "Failed to clear cart")
			return err
		}
	}
	m.set(nil)
	return m.persist(ctx)
}

// PlaceOrder turns the cart into an order. Signed in, the server stores the
// order and the mirror is resynced; otherwise the summary is built locally
// and the local cart is emptied.
func (m *Mirror) PlaceOrder(ctx context.Context, address, mobile string) (*OrderSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)

	if len(m.items) == 0 {
		m.notice.Alert("Your cart is empty!")
		return nil, ErrEmptyCart
	}

	if token := m.token(); token != "" {
		order, msg, err := m.api.PlaceOrder(ctx, token, address, mobile)
		if err != nil {
			m.alert(err, "Failed to place order")
			return nil, err
		}
		summary := summarizeOrder(order, msg)
		if items, err := m.api.GetCart(ctx, token); err != nil {
			m.log.Warn(ctx, "cart.resync_failed", err)
			m.set(nil)
		} else {
			m.replace(items)
		}
		m.notice.Alert(orderAlert(summary))
		return summary, nil
	}

	if strings.TrimSpace(address) == "" || strings.TrimSpace(mobile) == "" {
		err := apperrors.Validation("address and mobile are required")
		m.notice.Alert(err.Message())
		return nil, err
	}
	summary := &OrderSummary{
		Items:      append([]Entry(nil), m.items...),
		TotalItems: m.count(),
		Total:      m.total,
		Message:    "Order placed",
	}
	m.set(nil)
	if err := m.persist(ctx); err != nil {
		return summary, err
	}
	m.notice.Alert(orderAlert(summary))
	return summary, nil
}

// Login stores the credential and reloads the cart from the server.
func (m *Mirror) Login(ctx context.Context, email, password string) (*models.User, error) {
	token, user, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.alert(err, "Login failed")
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Set(TokenKey, token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	if user != nil {
		if raw, err := json.Marshal(user); err == nil {
			_ = m.store.Set(UserKey, string(raw))
		}
	}
	m.load(ctx)
	return user, nil
}

// Register creates an account. It does not sign in.
func (m *Mirror) Register(ctx context.Context, name, email, password string) error {
	msg, err := m.api.Register(ctx, name, email, password)
	if err != nil {
		m.alert(err, "Registration failed")
		return err
	}
	if msg == "" {
		msg = "You have successfully registered"
	}
	m.notice.Alert(msg)
	return nil
}

// Logout forgets the credential and reloads from the local snapshot.
func (m *Mirror) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(TokenKey); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	_ = m.store.Delete(UserKey)
	m.load(ctx)
	return nil
}

func (m *Mirror) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Items returns a copy of the mirrored lines.
func (m *Mirror) Items() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.items...)
}

func (m *Mirror) Total() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// Count is the number of units in the cart.
func (m *Mirror) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count()
}

// CountByBrand returns units per brand.
func (m *Mirror) CountByBrand() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int, len(m.items))
	for _, item := range m.items {
		counts[item.Brand] += item.quantity()
	}
	return counts
}

func (m *Mirror) count() int {
	n := 0
	for _, item := range m.items {
		n += item.quantity()
	}
	return n
}

func (m *Mirror) ensureLoaded(ctx context.Context) {
	if m.state == Uninitialized {
		m.load(ctx)
	}
}

func (m *Mirror) token() string {
	token, ok, err := m.store.Get(TokenKey)
	if err != nil || !ok {
		return ""
	}
	return token
}

// localIndex finds the local-only entry for brand.
func (m *Mirror) localIndex(brand string) int {
	for i, item := range m.items {
		if item.Brand == brand && item.ID == "" {
			return i
		}
	}
	return -1
}

// replace overwrites the mirror with the server's items.
func (m *Mirror) replace(items []models.CartItem) {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, Entry{
			ID:       item.ID.Hex(),
			Brand:    item.Brand,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	m.set(entries)
}

func (m *Mirror) set(entries []Entry) {
	m.items = entries
	m.total = totalOf(entries)
}

func (m *Mirror) persist(ctx context.Context) error {
	m.total = totalOf(m.items)
	total, _ := m.total.Float64()
	cart := m.items
	if cart == nil {
		cart = []Entry{}
	}
	raw, err := json.Marshal(snapshot{Cart: cart, Total: &total})
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := m.store.Set(CartKey, string(raw)); err != nil {
		m.log.Warn(ctx, "cart.persist_failed", err)
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

func (m *Mirror) alert(err error, fallback string) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		m.notice.Alert(apiErr.Message)
	case errors.As(err, &apiErr):
		m.notice.Alert(fallback)
	default:
		m.notice.Alert("Unable to reach server")
	}
}

func totalOf(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, item := range entries {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.quantity())))
		total = total.Add(line)
	}
	return total
}

func summarizeOrder(order *models.Order, msg string) *OrderSummary {
	summary := &OrderSummary{
		OrderID: order.ID.Hex(),
		Total:   decimal.NewFromFloat(order.Total),
		Message: msg,
	}
	for _, line := range order.Items {
		entry := Entry{Brand: line.Brand, Price: line.Price, Quantity: line.Quantity}
		summary.Items = append(summary.Items, entry)
		summary.TotalItems += entry.quantity()
	}
	return summary
}

func orderAlert(s *OrderSummary) string {
	return fmt.Sprintf("Order placed successfully. Total items: %d. Total amount: %s", s.TotalItems, s.Total.String())
}
