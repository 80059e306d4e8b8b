// Package gateway implements the reverse-proxy router that fronts all
// services. It maps path prefixes to backend targets, isolates backend
// failures from clients, and answers CORS preflight directly.
package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nhminh/microshop/internal/web"
)

const DefaultTimeout = 5 * time.Second

// Route maps a path prefix to a backend target. Routes are fixed at startup;
// the first matching prefix wins.
type Route struct {
	Prefix      string
	Target      string
	StripPrefix bool
	Timeout     time.Duration
}

// Router is the gateway's http.Handler.
type Router struct {
	routes []Route
	client *http.Client
	logger *slog.Logger
}

func New(routes []Route, logger *slog.Logger) *Router {
	return &Router{
		routes: routes,
		// Timeouts are enforced per request from the matched route, so the
		// client itself carries none.
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.URL.Path == "/health" {
		web.HealthHandler("API Gateway is running", nil)(w, r)
		return
	}

	route, ok := rt.match(r.URL.Path)
	if !ok {
		web.WriteJSON(w, http.StatusNotFound, web.Envelope{
			"error":   "Route not found",
			"details": r.URL.Path,
			"service": serviceName(r.URL.Path),
		}, nil)
		return
	}

	rt.forward(w, r, route)
}

func (rt *Router) match(path string) (Route, bool) {
	for _, route := range rt.routes {
		if path == route.Prefix || strings.HasPrefix(path, route.Prefix+"/") {
			return route, true
		}
	}
	return Route{}, false
}

func (rt *Router) forward(w http.ResponseWriter, r *http.Request, route Route) {
	target, err := url.Parse(route.Target)
	if err != nil {
		rt.badGateway(w, r, err)
		return
	}

	suffix := r.URL.Path
	if route.StripPrefix {
		suffix = strings.TrimPrefix(suffix, route.Prefix)
	}

	outURL := *target
	switch {
	case suffix == "" && target.Path != "":
		// exact prefix hit, nothing to append
	case suffix == "":
		outURL.Path = "/"
	default:
		outURL.Path = singleJoin(target.Path, suffix)
	}
	outURL.RawQuery = r.URL.RawQuery

	timeout := route.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	out, err := http.NewRequestWithContext(ctx, r.Method, outURL.String(), r.Body)
	if err != nil {
		rt.badGateway(w, r, err)
		return
	}
	out.Header = r.Header.Clone()
	// changeOrigin: present the backend's own host to the backend.
	out.Host = target.Host
	out.Header.Set("X-Forwarded-Host", r.Host)

	resp, err := rt.client.Do(out)
	if err != nil {
		rt.badGateway(w, r, err)
		return
	}
	defer resp.Body.Close()

	for key, value := range resp.Header {
		w.Header()[key] = value
	}
	w.WriteHeader(resp.StatusCode)
	// A failure past this point cannot be reported to the client; the status
	// line is already on the wire.
	io.Copy(w, resp.Body)

	rt.logger.Info("Proxied request",
		"method", r.Method,
		"path", r.URL.Path,
		"target", outURL.String(),
		"status", resp.StatusCode,
	)
}

// badGateway reports an unreachable or timed-out backend. It runs strictly
// before any response bytes have been written, so the 502 is the only write.
func (rt *Router) badGateway(w http.ResponseWriter, r *http.Request, err error) {
	rt.logger.Error("Proxy error",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	web.WriteJSON(w, http.StatusBadGateway, web.Envelope{
		"error":   "Service temporarily unavailable",
		"details": err.Error(),
		"service": serviceName(r.URL.Path),
	}, nil)
}

// serviceName derives the stable service label from the first path segment.
func serviceName(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)
	return parts[0]
}

func singleJoin(a, b string) string {
	aSlash := strings.HasSuffix(a, "/")
	bSlash := strings.HasPrefix(b, "/")
	switch {
	case aSlash && bSlash:
		return a + b[1:]
	case !aSlash && !bSlash:
		return a + "/" + b
	}
	return a + b
}
