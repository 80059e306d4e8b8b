// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
)

// Gateway holds the gateway's port and backend targets.
type Gateway struct {
	Port              string
	AuthServiceURL    string
	ProductServiceURL string
	OrderServiceURL   string
}

// Auth holds the auth service configuration.
type Auth struct {
	Port      string
	MongoURI  string
	JWTSecret string
}

// Product holds the product service configuration.
type Product struct {
	Port        string
	MongoURI    string
	RabbitMQURI string
	RedisAddr   string
	JWTSecret   string
}

// Order holds the order service configuration.
type Order struct {
	Port        string
	MongoURI    string
	RabbitMQURI string
	JWTSecret   string
}

func LoadGateway() (Gateway, error) {
	cfg := Gateway{
		Port:              getenv("API_GATEWAY_PORT", "3003"),
		AuthServiceURL:    getenv("AUTH_SERVICE_URL", "http://localhost:3000"),
		ProductServiceURL: getenv("PRODUCT_SERVICE_URL", "http://localhost:3001"),
		OrderServiceURL:   getenv("ORDER_SERVICE_URL", "http://localhost:3002"),
	}
	return cfg, nil
}

func LoadAuth() (Auth, error) {
	cfg := Auth{
		Port:      getenv("AUTH_SERVICE_PORT", "3000"),
		MongoURI:  getenv("MONGODB_AUTH_URI", "mongodb://localhost:27017/auth_db"),
		JWTSecret: os.Getenv("JWT_SECRET"),
	}
	if err := require(map[string]string{"JWT_SECRET": cfg.JWTSecret}); err != nil {
		return Auth{}, err
	}
	return cfg, nil
}

func LoadProduct() (Product, error) {
	cfg := Product{
		Port:        getenv("PRODUCT_SERVICE_PORT", "3001"),
		MongoURI:    getenv("MONGODB_PRODUCT_URI", "mongodb://localhost:27017/product_db"),
		RabbitMQURI: getenv("RABBITMQ_URI", "amqp://localhost"),
		RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}
	if err := require(map[string]string{"JWT_SECRET": cfg.JWTSecret}); err != nil {
		return Product{}, err
	}
	return cfg, nil
}

func LoadOrder() (Order, error) {
	cfg := Order{
		Port:        getenv("ORDER_SERVICE_PORT", "3002"),
		MongoURI:    getenv("MONGODB_ORDER_URI", "mongodb://localhost:27017/order_db"),
		RabbitMQURI: getenv("RABBITMQ_URI", "amqp://localhost"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}
	if err := require(map[string]string{"JWT_SECRET": cfg.JWTSecret}); err != nil {
		return Order{}, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func require(envVars map[string]string) error {
	for key, value := range envVars {
		if value == "" {
			return fmt.Errorf("%s environment variable not set", key)
		}
	}
	return nil
}
