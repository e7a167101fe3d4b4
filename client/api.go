package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-cartshop/models"
)

// APIError is a non-2xx answer from the server. Message is the server's
// {"message"} text when it sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// APIClient talks to the cart, order and auth endpoints under /api.
type APIClient struct {
	baseURL string
	http    *http.Client
}

// NewAPIClient returns a client for the server at baseURL. A nil httpClient
// gets a 10 second timeout.
func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type cartBody struct {
	Message    string            `json:"message"`
	TotalCount int               `json:"totalCount"`
	Items      []models.CartItem `json:"items"`
}

type orderBody struct {
	Message string        `json:"message"`
	Order   *models.Order `json:"order"`
}

type loginBody struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type messageBody struct {
	Message string `json:"message"`
}

func (c *APIClient) GetCart(ctx context.Context, token string) ([]models.CartItem, error) {
	var out cartBody
	if err := c.do(ctx, http.MethodGet, "/api/cart", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *APIClient) AddItem(ctx context.Context, token, brand string, price float64) ([]models.CartItem, error) {
	var out cartBody
	body := map[string]any{"brand": brand, "price": price}
	if err := c.do(ctx, http.MethodPost, "/api/cart", token, body, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *APIClient) SetQuantity(ctx context.Context, token, itemID string, quantity int) ([]models.CartItem, error) {
	var out cartBody
	body := map[string]any{"quantity": quantity}
	if err := c.do(ctx, http.MethodPatch, "/api/cart/"+url.PathEscape(itemID), token, body, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *APIClient) DeleteItem(ctx context.Context, token, itemID string) ([]models.CartItem, error) {
	var out cartBody
	if err := c.do(ctx, http.MethodDelete, "/api/cart/"+url.PathEscape(itemID), token, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *APIClient) ClearCart(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/cart/clear", token, nil, nil)
}

// PlaceOrder returns the stored order and the server's message, which
// differs from "Order placed" when the server cart was left non-empty.
func (c *APIClient) PlaceOrder(ctx context.Context, token, address, mobile string) (*models.Order, string, error) {
	var out orderBody
	body := map[string]any{"address": address, "mobile": mobile}
	if err := c.do(ctx, http.MethodPost, "/api/orders", token, body, &out); err != nil {
		return nil, "", err
	}
	if out.Order == nil {
		return nil, "", errors.New("order missing from response")
	}
	return out.Order, out.Message, nil
}

func (c *APIClient) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var out loginBody
	body := map[string]any{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", body, &out); err != nil {
		return "", nil, err
	}
	if out.Token == "" {
		return "", nil, errors.New("token missing from response")
	}
	return out.Token, out.User, nil
}

func (c *APIClient) Register(ctx context.Context, name, email, password string) (string, error) {
	var out messageBody
	body := map[string]any{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *APIClient) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageBody
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
