package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nhminh/microshop/internal/models"
	"github.com/nhminh/microshop/internal/token"
	"github.com/nhminh/microshop/internal/validator"
	"github.com/nhminh/microshop/internal/web"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (app *application) registerHandler(w http.ResponseWriter, r *http.Request) {
	var input credentials
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		web.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	models.ValidateCredentials(v, input.Username, input.Password)
	if !v.Valid() {
		web.ErrorResponse(w, http.StatusBadRequest, v.Errors)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     input.Username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := app.users.Insert(r.Context(), user); err != nil {
		if errors.Is(err, models.ErrDuplicateUsername) {
			web.ErrorResponse(w, http.StatusBadRequest, "Username already taken")
			return
		}
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	app.logger.Info("User registered", "username", user.Username)
	web.WriteJSON(w, http.StatusCreated, web.Envelope{"message": "User registered successfully"}, nil)
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var input credentials
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		web.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := app.users.GetByUsername(r.Context(), input.Username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			web.ErrorResponse(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(input.Password)); err != nil {
		web.ErrorResponse(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	signed, err := token.Sign(app.cfg.JWTSecret, user.Username)
	if err != nil {
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	app.logger.Info("User logged in", "username", user.Username)
	web.WriteJSON(w, http.StatusOK, web.Envelope{"token": signed}, nil)
}

func (app *application) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	web.WriteJSON(w, http.StatusOK, web.Envelope{"message": "Welcome to dashboard"}, nil)
}

func (app *application) verifyHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := token.ClaimsFromContext(r.Context())
	web.WriteJSON(w, http.StatusOK, web.Envelope{
		"user":    claims,
		"message": "Token is valid",
	}, nil)
}
