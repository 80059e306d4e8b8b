package main

import (
	"net/http"

	"github.com/nhminh/microshop/internal/token"
	"github.com/nhminh/microshop/internal/web"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", web.HealthHandler("Auth service is running", nil))
	mux.HandleFunc("POST /register", app.registerHandler)
	mux.HandleFunc("POST /login", app.loginHandler)
	mux.HandleFunc("GET /dashboard", token.Middleware(app.cfg.JWTSecret, app.dashboardHandler))
	mux.HandleFunc("GET /verify", token.Middleware(app.cfg.JWTSecret, app.verifyHandler))

	return web.CORS(mux)
}
