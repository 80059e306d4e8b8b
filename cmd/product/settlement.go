package main

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nhminh/microshop/internal/contracts"
)

// settlementListener consumes fulfillment messages emitted by the order
// service once an order is persisted. Inventory reconciliation happens in
// external tooling; the listener's job is to validate the contract shape and
// record the settlement.
type settlementListener struct {
	logger *slog.Logger
}

func (l *settlementListener) HandleMessage(ctx context.Context, msg amqp.Delivery) error {
	fulfillment, err := contracts.DecodeFulfillment(msg.Body)
	if err != nil {
		return err
	}

	l.logger.Info("Order fulfilled",
		"order_id", fulfillment.OrderID,
		"user", fulfillment.User,
		"items", len(fulfillment.Products),
		"total_price", fulfillment.TotalPrice,
	)
	return nil
}
