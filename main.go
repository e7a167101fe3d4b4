// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-cartshop/config"
	"go-cartshop/controllers"
	"go-cartshop/logger"
	"go-cartshop/metrics"
	"go-cartshop/middleware"
	"go-cartshop/repository"
	"go-cartshop/routes"
	"go-cartshop/services"
	"go-cartshop/utils"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type stores struct {
	carts  repository.CartRepository
	orders repository.OrderRepository
	users  repository.UserRepository
	tx     repository.Transactor
	close  func(context.Context) error
}

func run() error {
	// Load environment variables from .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logg := logger.New(logger.Options{
		ServiceName: "cartshop-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if envErr != nil {
		logg.Debug(ctx, "No .env file found. Proceeding with environment variables.")
	}

	st, err := openStores(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			logg.Error(ctx, "storage.close_failed", err)
		}
	}()

	m := metrics.New(prometheus.DefaultRegisterer)
	tokens := utils.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL)

	orderOpts := []services.OrderOption{services.WithOrderRecorder(m)}
	if cfg.Email.EmailEnabled() {
		orderOpts = append(orderOpts, services.WithNotifier(utils.NewEmailService(cfg.Email.PostmarkToken, cfg.Email.Sender)))
	} else {
		logg.Info(ctx, "email.disabled")
	}

	cartService := services.NewCartService(st.carts, logg)
	orderService := services.NewOrderService(st.orders, st.carts, st.tx, logg, orderOpts...)
	userService := services.NewUserService(st.users, tokens)

	handler := routes.NewHandler(routes.Controllers{
		User:  controllers.NewUserController(userService, logg),
		Cart:  controllers.NewCartController(cartService, logg),
		Order: controllers.NewOrderController(orderService, logg),
	}, middleware.NewAuthGuard(tokens, logg), routes.HandlerOptions{
		Logger:      logg,
		Metrics:     m,
		Gatherer:    prometheus.DefaultGatherer,
		CORSOrigins: cfg.App.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "port", cfg.App.Port), "server.start")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*stores, error) {
	if cfg.DB.Driver == config.DriverMemory {
		logg.Warn(ctx, "storage.memory", errors.New("data is lost on restart"))
		mem := repository.NewMemoryStore()
		return &stores{
			carts:  mem.Carts(),
			orders: mem.Orders(),
			users:  mem.Users(),
			tx:     repository.NoTransaction{},
			close:  func(context.Context) error { return nil },
		}, nil
	}

	// Connect to MongoDB
	client, err := utils.ConnectDB(ctx, cfg.DB.URI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.DB.Name)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	var tx repository.Transactor = repository.NoTransaction{}
	if cfg.DB.Transactions {
		tx = repository.MongoTransactor{Client: client}
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"db":           cfg.DB.Name,
		"transactions": cfg.DB.Transactions,
	}), "storage.mongo_connected")

	timeout := cfg.App.RequestTimeout
	return &stores{
		carts:  repository.NewMongoCartRepo(db, timeout),
		orders: repository.NewMongoOrderRepo(db, timeout),
		users:  repository.NewMongoUserRepo(db, timeout),
		tx:     tx,
		close:  client.Disconnect,
	}, nil
}
