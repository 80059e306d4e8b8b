package token

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestSignVerifyRoundTrip(t *testing.T) {
	raw, err := Sign(secret, "alice")
	require.NoError(t, err)

	claims, err := Verify(secret, raw)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice", claims.Subject)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := Sign(secret, "alice")
	require.NoError(t, err)

	_, err = Verify("other-secret", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	claims := Claims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = Verify(secret, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// Any single-bit mutation of a valid token must fail verification.
func TestVerifyRejectsMutatedToken(t *testing.T) {
	raw, err := Sign(secret, "alice")
	require.NoError(t, err)

	for i := 0; i < len(raw); i += 7 {
		mutated := []byte(raw)
		mutated[i] ^= 0x01
		if string(mutated) == raw {
			continue
		}
		_, err := Verify(secret, string(mutated))
		assert.ErrorIsf(t, err, ErrInvalidToken, "flipping a bit at offset %d must invalidate the token", i)
	}
}

func TestFromRequest(t *testing.T) {
	raw, err := Sign(secret, "alice")
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"valid", "Bearer " + raw, nil},
		{"missing header", "", ErrNoToken},
		{"no bearer prefix", raw, ErrNoToken},
		{"wrong scheme", "Basic " + raw, ErrNoToken},
		{"empty token", "Bearer ", ErrNoToken},
		{"garbage token", "Bearer not.a.token", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			claims, err := FromRequest(secret, r)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", claims.Username)
		})
	}
}

func TestMiddlewareErrorContract(t *testing.T) {
	next := func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(claims.Username))
	}
	handler := Middleware(secret, next)

	t.Run("missing token is a 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "No token, authorization denied", body["message"])
	})

	t.Run("invalid token is a 400", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer bogus")
		w := httptest.NewRecorder()
		handler(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Token is not valid", body["message"])
	})

	t.Run("valid token reaches the handler with claims", func(t *testing.T) {
		raw, err := Sign(secret, "alice")
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+raw)
		w := httptest.NewRecorder()
		handler(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice", w.Body.String())
	})
}
