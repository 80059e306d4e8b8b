package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhminh/microshop/internal/config"
	"github.com/nhminh/microshop/internal/models"
	"github.com/nhminh/microshop/internal/token"
)

const testSecret = "test-secret"

type fakeUsers struct {
	byUsername map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byUsername: make(map[string]*models.User)}
}

func (s *fakeUsers) Insert(ctx context.Context, user *models.User) error {
	if _, ok := s.byUsername[user.Username]; ok {
		return models.ErrDuplicateUsername
	}
	copied := *user
	s.byUsername[user.Username] = &copied
	return nil
}

func (s *fakeUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, ok := s.byUsername[username]
	if !ok {
		return nil, models.ErrNotFound
	}
	return user, nil
}

func newTestApp() *application {
	return &application{
		cfg:    config.Auth{JWTSecret: testSecret},
		users:  newFakeUsers(),
		logger: slog.New(slog.DiscardHandler),
	}
}

func postJSON(app *application, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	app.routes().ServeHTTP(w, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
	return w
}

func TestRegisterThenLogin(t *testing.T) {
	app := newTestApp()

	w := postJSON(app, "/register", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(app, "/login", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])

	claims, err := token.Verify(testSecret, resp["token"])
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name string
		body string
	}{
		{"missing username", `{"password":"secret1"}`},
		{"missing password", `{"username":"alice"}`},
		{"short password", `{"username":"alice","password":"abc"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(app, "/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	app := newTestApp()

	w := postJSON(app, "/register", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(app, "/register", `{"username":"alice","password":"other12"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app := newTestApp()

	w := postJSON(app, "/register", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("wrong password", func(t *testing.T) {
		w := postJSON(app, "/login", `{"username":"alice","password":"wrong99"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		w := postJSON(app, "/login", `{"username":"nobody","password":"secret1"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestVerifyEndpoint(t *testing.T) {
	app := newTestApp()

	raw, err := token.Sign(testSecret, "alice")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/verify", nil)
	r.Header.Set("Authorization", "Bearer "+raw)
	w := httptest.NewRecorder()
	app.routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Message string `json:"message"`
		User    struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Token is valid", resp.Message)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestVerifyWithoutToken(t *testing.T) {
	app := newTestApp()

	w := httptest.NewRecorder()
	app.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/verify", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "No token, authorization denied", resp["message"])
}
