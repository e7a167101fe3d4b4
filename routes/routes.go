// routes/routes.go
package routes

import (
	"net/http"

	"go-cartshop/controllers"
	"go-cartshop/logger"
	"go-cartshop/metrics"
	"go-cartshop/middleware"
	"go-cartshop/responses"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Controllers bundles the handlers mounted by RegisterRoutes.
type Controllers struct {
	User  *controllers.UserController
	Cart  *controllers.CartController
	Order *controllers.OrderController
}

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, c Controllers, guard *middleware.AuthGuard) {
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		responses.WriteMessage(w, http.StatusOK, "Backend is running")
	}).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", c.User.Register).Methods("POST")
	api.HandleFunc("/auth/login", c.User.Login).Methods("POST")

	// Protected routes
	profile := api.PathPrefix("/auth").Subrouter()
	profile.Use(guard.Middleware)
	profile.HandleFunc("/profile", c.User.GetProfile).Methods("GET")

	// Cart routes, also reachable as /carts
	for _, prefix := range []string{"/cart", "/carts"} {
		cart := api.PathPrefix(prefix).Subrouter()
		cart.Use(guard.Middleware)
		cart.HandleFunc("", c.Cart.AddToCart).Methods("POST")
		cart.HandleFunc("", c.Cart.GetCart).Methods("GET")
		cart.HandleFunc("/clear", c.Cart.ClearCart).Methods("POST")
		cart.HandleFunc("/{id}", c.Cart.RemoveFromCart).Methods("DELETE")
		cart.HandleFunc("/{id}", c.Cart.UpdateQuantity).Methods("PATCH")
	}

	// Order routes
	orders := api.PathPrefix("/orders").Subrouter()
	orders.Use(guard.Middleware)
	orders.HandleFunc("", c.Order.CreateOrder).Methods("POST")
	orders.HandleFunc("", c.Order.GetOrders).Methods("GET")
}

// HandlerOptions configures NewHandler.
type HandlerOptions struct {
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

// NewHandler builds the full HTTP handler: routes, /metrics and the
// middleware chain. CORS wraps the router so preflight requests are
// answered before route matching.
func NewHandler(c Controllers, guard *middleware.AuthGuard, opts HandlerOptions) http.Handler {
	router := mux.NewRouter()
	router.Use(
		middleware.RequestID(opts.Logger),
		middleware.Recoverer(opts.Logger),
		middleware.Logging(opts.Logger, opts.Metrics),
	)

	RegisterRoutes(router, c, guard)

	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteMessage(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return middleware.CORS(opts.CORSOrigins)(router)
}
