package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/nhminh/microshop/internal/broker"
	"github.com/nhminh/microshop/internal/config"
	"github.com/nhminh/microshop/internal/database"
	"github.com/nhminh/microshop/internal/logger"
	"github.com/nhminh/microshop/internal/models"
)

// orderStore is the slice of the order model the handlers and the consumer
// touch; tests substitute a fake.
type orderStore interface {
	Insert(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByCorrelation(ctx context.Context, correlationID string) (*models.Order, error)
	GetAllForUser(ctx context.Context, username string) ([]*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
}

type publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

type application struct {
	cfg       config.Order
	orders    orderStore
	publisher publisher
	status    func() broker.Status
	logger    *slog.Logger
}

func main() {
	var dev bool
	flag.BoolVar(&dev, "dev", false, "Enable godotenv")
	flag.Parse()

	logger := logger.New()

	if dev {
		if err := godotenv.Load(); err != nil {
			logger.Error("Error loading .env file", "error", err)
			os.Exit(1)
		}
	}

	cfg, err := config.LoadOrder()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := database.NewConnection(ctx, cfg.MongoURI)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)
	logger.Info("MongoDB connected")

	appModels := models.NewModels(client.Database("order_db"))

	b := broker.New(broker.Config{
		URI:    cfg.RabbitMQURI,
		Queues: []string{broker.OrderIntakeQueue, broker.FulfillmentQueue},
	}, logger)
	b.Connect(ctx)
	defer b.Close()

	app := &application{
		cfg:       cfg,
		orders:    appModels.Order,
		publisher: b,
		status:    b.Status,
		logger:    logger,
	}

	c := &consumer{
		orders:    appModels.Order,
		publisher: b,
		logger:    logger,
	}
	go c.run(ctx, b)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: app.routes(),
	}

	go func() {
		logger.Info("Order service starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server stopped", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	cancel()
	srv.Shutdown(context.Background())
	logger.Info("Order service shutdown complete")
}
