package controllers

import (
	"net/http"

	"go-cartshop/logger"
	"go-cartshop/models"
	"go-cartshop/responses"
	"go-cartshop/services"
	"go-cartshop/validators"

	"github.com/gorilla/mux"
)

// CartController handles cart-related requests
type CartController struct {
	Service *services.CartService
	Log     *logger.Logger
}

// NewCartController creates a new CartController
func NewCartController(service *services.CartService, log *logger.Logger) *CartController {
	return &CartController{Service: service, Log: log}
}

type cartMutationResponse struct {
	Message    string            `json:"message"`
	TotalCount int               `json:"totalCount"`
	Items      []models.CartItem `json:"items"`
}

type cartResponse struct {
	Items []models.CartItem `json:"items"`
}

// AddToCart adds one unit of a brand to the user's cart
func (cc *CartController) AddToCart(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, cc.Log)
	if !ok {
		return
	}

	var input services.AddItemInput
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), cc.Log, w, err)
		return
	}

	summary, created, err := cc.Service.Add(r.Context(), who, input)
	if err != nil {
		responses.WriteError(r.Context(), cc.Log, w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeMutation(w, status, "Added to cart", summary)
}

// GetCart retrieves the user's cart
func (cc *CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, cc.Log)
	if !ok {
		return
	}

	items, err := cc.Service.List(r.Context(), who)
	if err != nil {
		responses.WriteError(r.Context(), cc.Log, w, err)
		return
	}
	responses.WriteJSON(w, http.StatusOK, cartResponse{Items: items})
}

// RemoveFromCart removes one item from the user's cart
func (cc *CartController) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, cc.Log)
	if !ok {
		return
	}

	summary, err := cc.Service.Remove(r.Context(), who, mux.Vars(r)["id"])
	if err != nil {
		responses.WriteError(r.Context(), cc.Log, w, err)
		return
	}
	writeMutation(w, http.StatusOK, "Removed", summary)
}

// UpdateQuantity sets the quantity of one item; zero or less removes it
func (cc *CartController) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, cc.Log)
	if !ok {
		return
	}

	var input services.SetQuantityInput
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), cc.Log, w, err)
		return
	}

	summary, err := cc.Service.SetQuantity(r.Context(), who, mux.Vars(r)["id"], input)
	if err != nil {
		responses.WriteError(r.Context(), cc.Log, w, err)
		return
	}
	writeMutation(w, http.StatusOK, "Updated", summary)
}

// ClearCart empties the user's cart
func (cc *CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, cc.Log)
	if !ok {
		return
	}

	if err := cc.Service.Clear(r.Context(), who); err != nil {
		responses.WriteError(r.Context(), cc.Log, w, err)
		return
	}
	responses.WriteMessage(w, http.StatusOK, "Cleared")
}

func writeMutation(w http.ResponseWriter, status int, msg string, summary services.CartSummary) {
	items := summary.Items
	if items == nil {
		items = []models.CartItem{}
	}
	responses.WriteJSON(w, status, cartMutationResponse{
		Message:    msg,
		TotalCount: summary.TotalCount,
		Items:      items,
	})
}
