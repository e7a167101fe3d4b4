package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-cartshop/controllers"
	"go-cartshop/logger"
	"go-cartshop/metrics"
	"go-cartshop/middleware"
	"go-cartshop/repository"
	"go-cartshop/services"
	"go-cartshop/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type clearFailingCarts struct {
	repository.CartRepository
}

func (clearFailingCarts) DeleteByOwner(context.Context, primitive.ObjectID) error {
	return errors.New("write concern timeout")
}

type apiHarness struct {
	t       *testing.T
	handler http.Handler
}

func newHarness(t *testing.T) *apiHarness {
	t.Helper()
	return newHarnessWith(t, func(c repository.CartRepository) repository.CartRepository { return c })
}

func newHarnessWith(t *testing.T, wrapCarts func(repository.CartRepository) repository.CartRepository) *apiHarness {
	t.Helper()
	store := repository.NewMemoryStore()
	carts := wrapCarts(store.Carts())
	tokens := utils.NewTokenManager("test-secret", time.Hour)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logg := logger.Nop()

	users := services.NewUserService(store.Users(), tokens, services.WithPasswordCost(bcrypt.MinCost))

	handler := NewHandler(Controllers{
		User:  controllers.NewUserController(users, logg),
		Cart:  controllers.NewCartController(services.NewCartService(carts, logg), logg),
		Order: controllers.NewOrderController(services.NewOrderService(store.Orders(), carts, nil, logg, services.WithOrderRecorder(m)), logg),
	}, middleware.NewAuthGuard(tokens, logg), HandlerOptions{
		Logger:   logg,
		Metrics:  m,
		Gatherer: reg,
	})
	return &apiHarness{t: t, handler: handler}
}

func (h *apiHarness) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (h *apiHarness) signup(email string) string {
	h.t.Helper()
	rec, _ := h.do("POST", "/api/auth/register", "", map[string]any{
		"name": "Ada", "email": email, "password": "secret1",
	})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body := h.do("POST", "/api/auth/login", "", map[string]any{
		"email": email, "password": "secret1",
	})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := body["token"].(string)
	require.NotEmpty(h.t, token)
	return token
}

func itemsOf(body map[string]any) []map[string]any {
	raw, _ := body["items"].([]any)
	items := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		items = append(items, r.(map[string]any))
	}
	return items
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec, body := h.do("GET", "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Backend is running", body["message"])
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestCartRequiresToken(t *testing.T) {
	h := newHarness(t)
	rec, body := h.do("GET", "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token provided", body["message"])

	rec, body = h.do("GET", "/api/cart", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", body["message"])
}

func TestAddMergesByBrand(t *testing.T) {
	h := newHarness(t)
	token := h.signup("ada@example.com")

	rec, body := h.do("POST", "/api/cart", token, map[string]any{"brand": "Nike", "price": 2000})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Added to cart", body["message"])
	assert.EqualValues(t, 1, body["totalCount"])

	rec, body = h.do("POST", "/api/carts", token, map[string]any{"brand": "Nike", "price": 2500})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["totalCount"])

	items := itemsOf(body)
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0]["quantity"])
	assert.EqualValues(t, 2000, items[0]["price"])
}

func TestAddValidation(t *testing.T) {
	h := newHarness(t)
	token := h.signup("ada@example.com")

	rec, body := h.do("POST", "/api/cart", token, map[string]any{"price": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "brand is required", body["message"])

	rec, body = h.do("POST", "/api/cart", token, map[string]any{"brand": "Nike"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "price is required", body["message"])
}

func TestUpdateRemoveAndClear(t *testing.T) {
	h := newHarness(t)
	token := h.signup("ada@example.com")

	_, body := h.do("POST", "/api/cart", token, map[string]any{"brand": "Nike", "price": 2000})
	nikeID := itemsOf(body)[0]["_id"].(string)
	h.do("POST", "/api/cart", token, map[string]any{"brand": "Puma", "price": 1500})

	rec, body := h.do("PATCH", "/api/cart/"+nikeID, token, map[string]any{"quantity": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Updated", body["message"])
	assert.EqualValues(t, 6, body["totalCount"])

	rec, body = h.do("PATCH", "/api/cart/"+nikeID, token, map[string]any{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["totalCount"])

	rec, body = h.do("DELETE", "/api/cart/"+nikeID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", body["message"])

	rec, body = h.do("DELETE", "/api/cart/not-an-id", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id", body["message"])

	rec, body = h.do("POST", "/api/cart/clear", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cleared", body["message"])

	_, body = h.do("GET", "/api/cart", token, nil)
	assert.Empty(t, itemsOf(body))
}

func TestCartsAreScopedToOwner(t *testing.T) {
	h := newHarness(t)
	ada := h.signup("ada@example.com")
	bob := h.signup("bob@example.com")

	_, body := h.do("POST", "/api/cart", ada, map[string]any{"brand": "Nike", "price": 2000})
	adaItem := itemsOf(body)[0]["_id"].(string)

	rec, _ := h.do("DELETE", "/api/cart/"+adaItem, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, body = h.do("GET", "/api/cart", bob, nil)
	assert.Empty(t, itemsOf(body))
	_, body = h.do("GET", "/api/cart", ada, nil)
	assert.Len(t, itemsOf(body), 1)
}

func TestPlaceOrder(t *testing.T) {
	h := newHarness(t)
	token := h.signup("ada@example.com")

	rec, body := h.do("POST", "/api/orders", token, map[string]any{"address": "1 Main St", "mobile": "555"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cart is empty", body["message"])

	h.do("POST", "/api/cart", token, map[string]any{"brand": "Nike", "price": 2000})
	h.do("POST", "/api/cart", token, map[string]any{"brand": "Nike", "price": 2000})
	h.do("POST", "/api/cart", token, map[string]any{"brand": "Puma", "price": 1500.5})

	rec, body = h.do("POST", "/api/orders", token, map[string]any{"address": "1 Main St"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "mobile is required", body["message"])

	rec, body = h.do("POST", "/api/orders", token, map[string]any{"address": "1 Main St", "mobile": "555"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Order placed", body["message"])
	order := body["order"].(map[string]any)
	assert.EqualValues(t, 5500.5, order["total"])
	assert.Len(t, order["items"], 2)

	_, body = h.do("GET", "/api/cart", token, nil)
	assert.Empty(t, itemsOf(body))

	rec, body = h.do("GET", "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["orders"], 1)
}

func TestPlaceOrderCartNotCleared(t *testing.T) {
	h := newHarnessWith(t, func(c repository.CartRepository) repository.CartRepository {
		return clearFailingCarts{c}
	})
	token := h.signup("ada@example.com")
	h.do("POST", "/api/cart", token, map[string]any{"brand": "Nike", "price": 2000})

	rec, body := h.do("POST", "/api/orders", token, map[string]any{"address": "1 Main St", "mobile": "555"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Order placed; cart could not be cleared", body["message"])

	_, body = h.do("GET", "/api/cart", token, nil)
	assert.Len(t, itemsOf(body), 1)
	_, body = h.do("GET", "/api/orders", token, nil)
	assert.Len(t, body["orders"], 1)
}

func TestRegisterAndProfile(t *testing.T) {
	h := newHarness(t)
	token := h.signup("Ada@Example.com")

	rec, body := h.do("POST", "/api/auth/register", "", map[string]any{
		"name": "Ada", "email": "ada@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User already exists", body["message"])

	rec, body = h.do("POST", "/api/auth/login", "", map[string]any{
		"email": "ada@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", body["message"])

	rec, body = h.do("GET", "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada@example.com", body["email"])
	assert.NotContains(t, body, "password")
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do("GET", "/", "", nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestPreflight(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest("OPTIONS", "/api/cart", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Less(t, rec.Code, 300)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
