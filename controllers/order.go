// controllers/order.go
package controllers

import (
	"errors"
	"net/http"

	"go-cartshop/logger"
	"go-cartshop/models"
	"go-cartshop/responses"
	"go-cartshop/services"
	"go-cartshop/validators"
)

// OrderController handles order-related requests
type OrderController struct {
	Service *services.OrderService
	Log     *logger.Logger
}

// NewOrderController creates a new OrderController
func NewOrderController(service *services.OrderService, log *logger.Logger) *OrderController {
	return &OrderController{Service: service, Log: log}
}

type orderResponse struct {
	Message string        `json:"message"`
	Order   *models.Order `json:"order"`
}

type ordersResponse struct {
	Orders []models.Order `json:"orders"`
}

// CreateOrder creates a new order from the user's cart
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, oc.Log)
	if !ok {
		return
	}

	var input services.PlaceOrderInput
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), oc.Log, w, err)
		return
	}

	order, err := oc.Service.PlaceOrder(r.Context(), who, input)
	switch {
	case errors.Is(err, services.ErrCartNotCleared):
		responses.WriteJSON(w, http.StatusCreated, orderResponse{
			Message: "Order placed; cart could not be cleared",
			Order:   order,
		})
	case err != nil:
		responses.WriteError(r.Context(), oc.Log, w, err)
	default:
		responses.WriteJSON(w, http.StatusCreated, orderResponse{Message: "Order placed", Order: order})
	}
}

// GetOrders retrieves all orders for the authenticated user, newest first
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, oc.Log)
	if !ok {
		return
	}

	orders, err := oc.Service.ListMyOrders(r.Context(), who)
	if err != nil {
		responses.WriteError(r.Context(), oc.Log, w, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	responses.WriteJSON(w, http.StatusOK, ordersResponse{Orders: orders})
}
