package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nhminh/microshop/internal/models"
	"github.com/nhminh/microshop/internal/token"
	"github.com/nhminh/microshop/internal/validator"
	"github.com/nhminh/microshop/internal/web"
)

func (app *application) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := token.ClaimsFromContext(r.Context())

	orders, err := app.orders.GetAllForUser(r.Context(), claims.Username)
	if err != nil {
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	web.WriteJSON(w, http.StatusOK, orders, nil)
}

func (app *application) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		web.ErrorResponse(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := app.orders.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			web.ErrorResponse(w, http.StatusNotFound, "Order not found")
			return
		}
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	web.WriteJSON(w, http.StatusOK, order, nil)
}

func (app *application) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Products        []models.OrderLine `json:"products"`
		TotalPrice      float64            `json:"totalPrice"`
		ShippingAddress string             `json:"shipping_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		web.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, _ := token.ClaimsFromContext(r.Context())

	order := &models.Order{
		ID:              uuid.New(),
		Username:        claims.Username,
		Products:        input.Products,
		TotalPrice:      input.TotalPrice,
		Status:          models.StatusPending,
		ShippingAddress: input.ShippingAddress,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	v := validator.New()
	models.ValidateOrder(v, order)
	if !v.Valid() {
		web.ErrorResponse(w, http.StatusBadRequest, v.Errors)
		return
	}

	if err := app.orders.Insert(r.Context(), order); err != nil {
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	app.logger.Info("Order created", "order_id", order.ID, "username", order.Username)
	web.WriteJSON(w, http.StatusCreated, web.Envelope{
		"success": true,
		"order":   order,
		"message": "Order created successfully",
	}, nil)
}

func (app *application) updateOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		web.ErrorResponse(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := app.orders.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			web.ErrorResponse(w, http.StatusNotFound, "Order not found")
			return
		}
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	var input struct {
		Status          *string `json:"status"`
		ShippingAddress *string `json:"shipping_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		web.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if input.Status != nil {
		order.Status = *input.Status
	}
	if input.ShippingAddress != nil {
		order.ShippingAddress = *input.ShippingAddress
	}

	v := validator.New()
	models.ValidateOrder(v, order)
	if !v.Valid() {
		web.ErrorResponse(w, http.StatusBadRequest, v.Errors)
		return
	}

	if err := app.orders.Update(r.Context(), order); err != nil {
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	app.logger.Info("Order updated", "order_id", order.ID, "order_status", order.Status)
	web.WriteJSON(w, http.StatusOK, web.Envelope{
		"success": true,
		"order":   order,
		"message": "Order updated successfully",
	}, nil)
}
