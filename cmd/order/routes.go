package main

import (
	"net/http"

	"github.com/nhminh/microshop/internal/token"
	"github.com/nhminh/microshop/internal/web"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", web.HealthHandler("Order service is running", func() web.Envelope {
		return web.Envelope{"broker": app.status()}
	}))

	secret := app.cfg.JWTSecret
	mux.HandleFunc("GET /api/orders", token.Middleware(secret, app.listOrdersHandler))
	mux.HandleFunc("GET /api/orders/{id}", token.Middleware(secret, app.getOrderHandler))
	mux.HandleFunc("POST /api/orders", token.Middleware(secret, app.createOrderHandler))
	mux.HandleFunc("PUT /api/orders/{id}", token.Middleware(secret, app.updateOrderHandler))

	return web.CORS(mux)
}
