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
	"github.com/nhminh/microshop/internal/cache"
	"github.com/nhminh/microshop/internal/config"
	"github.com/nhminh/microshop/internal/database"
	"github.com/nhminh/microshop/internal/logger"
	"github.com/nhminh/microshop/internal/models"
)

type productStore interface {
	Insert(ctx context.Context, product *models.Product) error
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetAll(ctx context.Context) ([]*models.Product, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

type application struct {
	cfg       config.Product
	products  productStore
	publisher publisher
	cache     *cache.Cache
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

	cfg, err := config.LoadProduct()
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

	appModels := models.NewModels(client.Database("product_db"))

	rdb := cache.New(cfg.RedisAddr)
	if err := rdb.Ping(ctx); err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	b := broker.New(broker.Config{
		URI:    cfg.RabbitMQURI,
		Queues: []string{broker.OrderIntakeQueue, broker.FulfillmentQueue},
	}, logger)

	settlement := &settlementListener{logger: logger}
	b.Subscribe(ctx, broker.FulfillmentQueue, settlement.HandleMessage)
	b.Connect(ctx)
	defer b.Close()

	app := &application{
		cfg:       cfg,
		products:  appModels.Product,
		publisher: b,
		cache:     rdb,
		status:    b.Status,
		logger:    logger,
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: app.routes(),
	}

	go func() {
		logger.Info("Product service starting", "port", cfg.Port)
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
	logger.Info("Product service shutdown complete")
}
