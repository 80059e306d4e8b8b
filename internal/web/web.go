// Package web holds the JSON response helpers and middleware shared by every
// HTTP surface.
package web

import (
	"encoding/json"
	"net/http"
	"time"
)

type Envelope map[string]any

// WriteJSON takes the destination http.ResponseWriter, the HTTP status code to
// send, the data to encode to JSON, and a header map containing any additional
// HTTP headers we want to include in the response.
func WriteJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	if err != nil {
		return err
	}
	return nil
}

// ErrorResponse is a generic helper for sending JSON-formatted error messages
// to the client with a given status code.
func ErrorResponse(w http.ResponseWriter, status int, message any) {
	env := Envelope{"error": message}
	if err := WriteJSON(w, status, env, nil); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// CORS adds the permissive CORS headers every service answers with and
// short-circuits OPTIONS preflight requests with a bare 200.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HealthHandler reports service liveness. The extra map lets a service attach
// additional fields such as its broker status.
func HealthHandler(status string, extra func() Envelope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := Envelope{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if extra != nil {
			for k, v := range extra() {
				env[k] = v
			}
		}
		WriteJSON(w, http.StatusOK, env, nil)
	}
}
