// Package contracts defines the wire shapes carried on the broker queues.
//
// Every message is tagged with a kind and a version so that producer and
// consumer can evolve independently and a shape mismatch is caught at decode
// time instead of failing silently downstream.
package contracts

import (
	"encoding/json"
	"fmt"
)

const (
	KindOrderIntake = "order.intake"
	KindFulfillment = "order.fulfillment"

	Version = 1
)

// LineItem is one product line inside an intake or fulfillment message.
type LineItem struct {
	ProductID string  `json:"productId"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// OrderIntake is carried on the "orders" queue. It is produced by whatever
// triggers a purchase (the product service buy endpoint) and consumed by the
// order service. OrderID is a correlation id chosen by the producer; the
// consumer uses it to deduplicate redeliveries.
type OrderIntake struct {
	Kind     string     `json:"kind"`
	Version  int        `json:"version"`
	OrderID  string     `json:"orderId,omitempty"`
	Username string     `json:"username"`
	Products []LineItem `json:"products"`
}

// Fulfillment is carried on the "products" queue after the order service has
// persisted the order.
type Fulfillment struct {
	Kind       string     `json:"kind"`
	Version    int        `json:"version"`
	OrderID    string     `json:"orderId"`
	User       string     `json:"user"`
	Products   []LineItem `json:"products"`
	TotalPrice float64    `json:"totalPrice"`
}

func NewOrderIntake(orderID, username string, products []LineItem) OrderIntake {
	return OrderIntake{
		Kind:     KindOrderIntake,
		Version:  Version,
		OrderID:  orderID,
		Username: username,
		Products: products,
	}
}

func NewFulfillment(orderID, user string, products []LineItem, totalPrice float64) Fulfillment {
	return Fulfillment{
		Kind:       KindFulfillment,
		Version:    Version,
		OrderID:    orderID,
		User:       user,
		Products:   products,
		TotalPrice: totalPrice,
	}
}

// EncodeOrderIntake serializes an intake message for publishing.
func EncodeOrderIntake(m OrderIntake) ([]byte, error) {
	return json.Marshal(m)
}

// EncodeFulfillment serializes a fulfillment message for publishing.
func EncodeFulfillment(m Fulfillment) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeOrderIntake parses and shape-checks an intake message body.
func DecodeOrderIntake(body []byte) (OrderIntake, error) {
	var m OrderIntake
	if err := json.Unmarshal(body, &m); err != nil {
		return OrderIntake{}, fmt.Errorf("decoding order intake: %w", err)
	}
	if err := checkTag(m.Kind, KindOrderIntake, m.Version); err != nil {
		return OrderIntake{}, err
	}
	if m.Username == "" {
		return OrderIntake{}, fmt.Errorf("order intake: username missing")
	}
	if len(m.Products) == 0 {
		return OrderIntake{}, fmt.Errorf("order intake: products missing")
	}
	return m, nil
}

// DecodeFulfillment parses and shape-checks a fulfillment message body.
func DecodeFulfillment(body []byte) (Fulfillment, error) {
	var m Fulfillment
	if err := json.Unmarshal(body, &m); err != nil {
		return Fulfillment{}, fmt.Errorf("decoding fulfillment: %w", err)
	}
	if err := checkTag(m.Kind, KindFulfillment, m.Version); err != nil {
		return Fulfillment{}, err
	}
	if m.OrderID == "" {
		return Fulfillment{}, fmt.Errorf("fulfillment: orderId missing")
	}
	if len(m.Products) == 0 {
		return Fulfillment{}, fmt.Errorf("fulfillment: products missing")
	}
	return m, nil
}

func checkTag(kind, want string, version int) error {
	if kind != want {
		return fmt.Errorf("unexpected message kind %q, want %q", kind, want)
	}
	if version != Version {
		return fmt.Errorf("unsupported %s version %d", want, version)
	}
	return nil
}
