package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nhminh/microshop/internal/broker"
	"github.com/nhminh/microshop/internal/cache"
	"github.com/nhminh/microshop/internal/contracts"
	"github.com/nhminh/microshop/internal/models"
	"github.com/nhminh/microshop/internal/token"
	"github.com/nhminh/microshop/internal/validator"
	"github.com/nhminh/microshop/internal/web"
)

const (
	productListCacheKey = "products:all"
	productCacheTTL     = 1 * time.Minute
)

func (app *application) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	if app.cache != nil {
		if cached, err := app.cache.Get(r.Context(), productListCacheKey); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(cached))
			return
		} else if !cache.IsMiss(err) {
			app.logger.Error("Cache read failed", "error", err)
		}
	}

	products, err := app.products.GetAll(r.Context())
	if err != nil {
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	js, err := json.Marshal(products)
	if err != nil {
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	if app.cache != nil {
		if err := app.cache.Set(r.Context(), productListCacheKey, js, productCacheTTL); err != nil {
			app.logger.Error("Cache write failed", "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}

func (app *application) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		web.ErrorResponse(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := app.products.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			web.ErrorResponse(w, http.StatusNotFound, "Product not found")
			return
		}
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	web.WriteJSON(w, http.StatusOK, product, nil)
}

func (app *application) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string  `json:"name"`
		Price       float64 `json:"price"`
		Description string  `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		web.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	product := &models.Product{
		ID:          uuid.New(),
		Name:        input.Name,
		Price:       input.Price,
		Description: input.Description,
		CreatedAt:   time.Now(),
	}

	v := validator.New()
	models.ValidateProduct(v, product)
	if !v.Valid() {
		web.ErrorResponse(w, http.StatusBadRequest, v.Errors)
		return
	}

	if err := app.products.Insert(r.Context(), product); err != nil {
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	app.invalidateListCache(r)
	app.logger.Info("Product created", "product_id", product.ID, "name", product.Name)
	web.WriteJSON(w, http.StatusCreated, product, nil)
}

func (app *application) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		web.ErrorResponse(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := app.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			web.ErrorResponse(w, http.StatusNotFound, "Product not found")
			return
		}
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	app.invalidateListCache(r)
	web.WriteJSON(w, http.StatusOK, web.Envelope{"message": "Product deleted"}, nil)
}

// buyProductsHandler is the purchase trigger: it enqueues an order-intake
// message for the order service instead of calling it synchronously. The
// response carries the correlation id the client can poll the order by.
func (app *application) buyProductsHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		web.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(input.IDs) == 0 {
		web.ErrorResponse(w, http.StatusBadRequest, "Product ids are required")
		return
	}

	products, err := app.products.GetMany(r.Context(), input.IDs)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			web.ErrorResponse(w, http.StatusNotFound, "One or more products not found")
			return
		}
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	claims, _ := token.ClaimsFromContext(r.Context())

	lines := make([]contracts.LineItem, 0, len(products))
	for _, p := range products {
		lines = append(lines, contracts.LineItem{
			ProductID: p.ID.String(),
			Price:     p.Price,
			Quantity:  1,
		})
	}

	orderID := uuid.New().String()
	body, err := contracts.EncodeOrderIntake(
		contracts.NewOrderIntake(orderID, claims.Username, lines),
	)
	if err != nil {
		web.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := app.publisher.Publish(r.Context(), broker.OrderIntakeQueue, body); err != nil {
		app.logger.Error("Error publishing order intake", "error", err)
		web.ErrorResponse(w, http.StatusServiceUnavailable, "Order queue unavailable, try again later")
		return
	}

	app.logger.Info("Order intake published", "order_id", orderID, "username", claims.Username)
	web.WriteJSON(w, http.StatusCreated, web.Envelope{
		"orderId": orderID,
		"status":  models.StatusPending,
		"message": "Order placed and queued for processing",
	}, nil)
}

func (app *application) invalidateListCache(r *http.Request) {
	if app.cache == nil {
		return
	}
	if err := app.cache.Delete(r.Context(), productListCacheKey); err != nil {
		app.logger.Error("Cache invalidation failed", "error", err)
	}
}
