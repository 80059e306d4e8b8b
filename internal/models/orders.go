package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nhminh/microshop/internal/validator"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

type OrderLine struct {
	ProductID string  `bson:"productId" json:"productId"`
	Price     float64 `bson:"price" json:"price"`
	Quantity  int     `bson:"quantity" json:"quantity"`
}

type Order struct {
	ID uuid.UUID `bson:"_id" json:"id"`
	// CorrelationID is the intake message's orderId. The consumer uses it to
	// recognize a redelivered intake and avoid inserting a duplicate order.
	CorrelationID   string      `bson:"correlationId,omitempty" json:"correlation_id,omitempty"`
	Username        string      `bson:"username" json:"username"`
	Products        []OrderLine `bson:"products" json:"products"`
	TotalPrice      float64     `bson:"totalPrice" json:"totalPrice"`
	Status          string      `bson:"status" json:"status"`
	ShippingAddress string      `bson:"shippingAddress,omitempty" json:"shipping_address,omitempty"`
	CreatedAt       time.Time   `bson:"createdAt" json:"created_at"`
	UpdatedAt       time.Time   `bson:"updatedAt" json:"updated_at"`
}

func ValidateOrder(v *validator.Validator, order *Order) {
	v.Check(len(order.Products) > 0, "products", "must contain at least one product")
	v.Check(order.TotalPrice > 0, "totalPrice", "must be greater than zero")
	v.Check(validator.PermittedValue(order.Status,
		StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled),
		"status", "must be a valid order status")

	for i, line := range order.Products {
		v.Check(line.ProductID != "", fmt.Sprintf("products[%d].productId", i), "must be provided")
		v.Check(line.Price >= 0, fmt.Sprintf("products[%d].price", i), "must be zero or positive")
		v.Check(line.Quantity > 0, fmt.Sprintf("products[%d].quantity", i), "must be greater than zero")
	}
}

// OrderModel is a wrapper for the orders collection.
type OrderModel struct {
	Coll *mongo.Collection
}

func (m OrderModel) Insert(ctx context.Context, order *Order) error {
	_, err := m.Coll.InsertOne(ctx, order)
	return err
}

func (m OrderModel) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	err := m.Coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetByCorrelation looks an order up by the intake correlation id.
func (m OrderModel) GetByCorrelation(ctx context.Context, correlationID string) (*Order, error) {
	var order Order
	err := m.Coll.FindOne(ctx, bson.M{"correlationId": correlationID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetAllForUser lists orders scoped to a username, newest first.
func (m OrderModel) GetAllForUser(ctx context.Context, username string) ([]*Order, error) {
	cursor, err := m.Coll.Find(ctx, bson.M{"username": username})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := []*Order{}
	for cursor.Next(ctx) {
		var order Order
		if err := cursor.Decode(&order); err != nil {
			return nil, err
		}
		orders = append(orders, &order)
	}
	return orders, cursor.Err()
}

// Update persists status and shipping address changes.
func (m OrderModel) Update(ctx context.Context, order *Order) error {
	res, err := m.Coll.UpdateOne(ctx,
		bson.M{"_id": order.ID},
		bson.M{"$set": bson.M{
			"status":          order.Status,
			"shippingAddress": order.ShippingAddress,
			"updatedAt":       time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
