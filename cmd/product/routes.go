package main

import (
	"net/http"

	"github.com/nhminh/microshop/internal/token"
	"github.com/nhminh/microshop/internal/web"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", web.HealthHandler("Product service is running", func() web.Envelope {
		return web.Envelope{"broker": app.status()}
	}))

	secret := app.cfg.JWTSecret
	mux.HandleFunc("GET /api/products", app.listProductsHandler)
	mux.HandleFunc("GET /api/products/{id}", app.getProductHandler)
	mux.HandleFunc("POST /api/products", token.Middleware(secret, app.createProductHandler))
	mux.HandleFunc("DELETE /api/products/{id}", token.Middleware(secret, app.deleteProductHandler))
	mux.HandleFunc("POST /api/products/buy", token.Middleware(secret, app.buyProductsHandler))

	return web.CORS(mux)
}
