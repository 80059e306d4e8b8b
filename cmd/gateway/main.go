package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/nhminh/microshop/internal/config"
	"github.com/nhminh/microshop/internal/gateway"
	"github.com/nhminh/microshop/internal/logger"
)

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

	cfg, err := config.LoadGateway()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// The backends expose their resources under /api/<name>; the gateway
	// accepts the short public prefix and rewrites it.
	routes := []gateway.Route{
		{Prefix: "/auth", Target: cfg.AuthServiceURL, StripPrefix: true, Timeout: gateway.DefaultTimeout},
		{Prefix: "/products", Target: cfg.ProductServiceURL + "/api/products", StripPrefix: true, Timeout: gateway.DefaultTimeout},
		{Prefix: "/orders", Target: cfg.OrderServiceURL + "/api/orders", StripPrefix: true, Timeout: gateway.DefaultTimeout},
	}

	router := gateway.New(routes, logger)

	logger.Info("API Gateway starting", "port", cfg.Port)
	for _, r := range routes {
		logger.Info("Route configured", "prefix", r.Prefix, "target", r.Target)
	}

	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), router); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
