package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nhminh/microshop/internal/broker"
	"github.com/nhminh/microshop/internal/contracts"
	"github.com/nhminh/microshop/internal/models"
)

// consumer drains the order-intake queue. For each delivery: decode, persist
// the order as pending, acknowledge, then publish the fulfillment message —
// strictly in that order, so a crash before the ack causes redelivery rather
// than a lost order.
type consumer struct {
	orders    orderStore
	publisher publisher
	logger    *slog.Logger
}

// run keeps a consumer registered on the intake queue. The delivery channel
// closes when the broker connection drops; the loop waits and re-registers.
// It uses a raw consume loop instead of broker.Subscribe because the ack has
// to land between the persist and the publish.
func (c *consumer) run(ctx context.Context, b *broker.Broker) {
	for {
		msgs, err := b.Consume(broker.OrderIntakeQueue)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		c.logger.Info("Order intake consumer started", "queue", broker.OrderIntakeQueue)

		if !c.drain(ctx, msgs) {
			return
		}
		c.logger.Info("Delivery channel closed, waiting for reconnect")
	}
}

// drain processes deliveries until the channel closes. It returns false when
// the context was cancelled and the consumer should shut down for good.
func (c *consumer) drain(ctx context.Context, msgs <-chan amqp.Delivery) bool {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Shutting down consumer...")
			return false
		case msg, ok := <-msgs:
			if !ok {
				return true
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *consumer) handle(ctx context.Context, msg amqp.Delivery) {
	if broker.RetryCount(msg.Headers) >= broker.MaxRetries {
		c.logger.Error("Dropping intake that exceeded retry budget")
		msg.Ack(false)
		return
	}

	intake, err := contracts.DecodeOrderIntake(msg.Body)
	if err != nil {
		c.logger.Error("Rejecting malformed intake message", "error", err)
		msg.Nack(false, false)
		return
	}

	order, err := c.persist(ctx, intake)
	if err != nil {
		c.logger.Error("Error persisting order", "error", err)
		msg.Nack(false, false)
		return
	}

	msg.Ack(false)
	c.logger.Info("Order saved and intake acknowledged",
		"order_id", order.ID, "total_price", order.TotalPrice)

	if err := c.publishFulfillment(ctx, intake, order); err != nil {
		// The intake is already acknowledged; all we can do is log.
		c.logger.Error("Error publishing fulfillment", "order_id", order.ID, "error", err)
	}
}

// persist stores the order for an intake message, recomputing the total from
// the per-line prices. The intake's orderId is the correlation id: if an order
// for it already exists this is a redelivery, and the existing record is
// returned instead of inserting a duplicate.
func (c *consumer) persist(ctx context.Context, intake contracts.OrderIntake) (*models.Order, error) {
	if intake.OrderID != "" {
		existing, err := c.orders.GetByCorrelation(ctx, intake.OrderID)
		if err == nil {
			c.logger.Info("Duplicate intake, reusing persisted order",
				"correlation_id", intake.OrderID, "order_id", existing.ID)
			return existing, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
	}

	lines := make([]models.OrderLine, 0, len(intake.Products))
	var total float64
	for _, p := range intake.Products {
		qty := p.Quantity
		if qty <= 0 {
			qty = 1
		}
		lines = append(lines, models.OrderLine{
			ProductID: p.ProductID,
			Price:     p.Price,
			Quantity:  qty,
		})
		total += p.Price * float64(qty)
	}

	order := &models.Order{
		ID:            uuid.New(),
		CorrelationID: intake.OrderID,
		Username:      intake.Username,
		Products:      lines,
		TotalPrice:    total,
		Status:        models.StatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := c.orders.Insert(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (c *consumer) publishFulfillment(ctx context.Context, intake contracts.OrderIntake, order *models.Order) error {
	orderID := intake.OrderID
	if orderID == "" {
		orderID = order.ID.String()
	}

	lines := make([]contracts.LineItem, 0, len(order.Products))
	for _, p := range order.Products {
		lines = append(lines, contracts.LineItem{
			ProductID: p.ProductID,
			Price:     p.Price,
			Quantity:  p.Quantity,
		})
	}

	body, err := contracts.EncodeFulfillment(
		contracts.NewFulfillment(orderID, order.Username, lines, order.TotalPrice),
	)
	if err != nil {
		return err
	}

	return c.publisher.Publish(ctx, broker.FulfillmentQueue, body)
}
