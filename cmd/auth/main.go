package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/nhminh/microshop/internal/config"
	"github.com/nhminh/microshop/internal/database"
	"github.com/nhminh/microshop/internal/logger"
	"github.com/nhminh/microshop/internal/models"
)

// userStore is the slice of the user model the handlers touch; tests
// substitute a fake.
type userStore interface {
	Insert(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type application struct {
	cfg    config.Auth
	users  userStore
	logger *slog.Logger
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

	cfg, err := config.LoadAuth()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	client, err := database.NewConnection(ctx, cfg.MongoURI)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)
	logger.Info("MongoDB connected")

	app := &application{
		cfg:    cfg,
		users:  models.NewModels(client.Database("auth_db")).User,
		logger: logger,
	}

	logger.Info("Auth service starting", "port", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), app.routes()); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
