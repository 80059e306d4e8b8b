// Package token issues and verifies the bearer tokens shared by all services.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTTL = 24 * time.Hour

var (
	// ErrNoToken means the Authorization header is missing or malformed.
	ErrNoToken = errors.New("no token provided")
	// ErrInvalidToken means the token failed signature or expiry checks.
	ErrInvalidToken = errors.New("token is not valid")
)

// Claims are the decoded contents of a verified token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Sign issues a token for a username, valid for 24 hours.
func Sign(secret, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(defaultTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verify checks a raw token's signature and expiry against the shared secret.
func Verify(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// FromRequest extracts the bearer token from the Authorization header and
// verifies it.
func FromRequest(secret string, r *http.Request) (*Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, ErrNoToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return nil, ErrNoToken
	}

	return Verify(secret, parts[1])
}

type contextKey struct{}

// ClaimsFromContext returns the claims attached by Middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}

// Middleware guards a handler with bearer-token verification. A missing token
// is a 401, an invalid or expired one a 400, matching the auth service's
// error contract.
func Middleware(secret string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := FromRequest(secret, r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			if errors.Is(err, ErrNoToken) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"message": "No token, authorization denied"}`))
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message": "Token is not valid"}`))
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
	}
}
