package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhminh/microshop/internal/broker"
	"github.com/nhminh/microshop/internal/contracts"
	"github.com/nhminh/microshop/internal/models"
)

type fakeStore struct {
	byID    map[uuid.UUID]*models.Order
	inserts int

	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[uuid.UUID]*models.Order)}
}

func (s *fakeStore) Insert(ctx context.Context, order *models.Order) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserts++
	copied := *order
	s.byID[order.ID] = &copied
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return order, nil
}

func (s *fakeStore) GetByCorrelation(ctx context.Context, correlationID string) (*models.Order, error) {
	for _, order := range s.byID {
		if order.CorrelationID == correlationID {
			return order, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *fakeStore) GetAllForUser(ctx context.Context, username string) ([]*models.Order, error) {
	orders := []*models.Order{}
	for _, order := range s.byID {
		if order.Username == username {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (s *fakeStore) Update(ctx context.Context, order *models.Order) error {
	if _, ok := s.byID[order.ID]; !ok {
		return models.ErrNotFound
	}
	copied := *order
	s.byID[order.ID] = &copied
	return nil
}

type published struct {
	queue string
	body  []byte
}

type fakePublisher struct {
	messages []published
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, queue string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{queue: queue, body: body})
	return nil
}

type fakeAcker struct {
	acks  int
	nacks int
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error { a.acks++; return nil }
func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.nacks++
	return nil
}
func (a *fakeAcker) Reject(tag uint64, requeue bool) error { a.nacks++; return nil }

func newTestConsumer() (*consumer, *fakeStore, *fakePublisher) {
	store := newFakeStore()
	pub := &fakePublisher{}
	c := &consumer{
		orders:    store,
		publisher: pub,
		logger:    slog.New(slog.DiscardHandler),
	}
	return c, store, pub
}

func intakeDelivery(t *testing.T, acker *fakeAcker, intake contracts.OrderIntake) amqp.Delivery {
	t.Helper()
	body, err := contracts.EncodeOrderIntake(intake)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: acker, Body: body}
}

func TestConsumerPersistsAcksAndPublishes(t *testing.T) {
	c, store, pub := newTestConsumer()
	acker := &fakeAcker{}

	intake := contracts.NewOrderIntake("corr-1", "alice", []contracts.LineItem{
		{ProductID: "p1", Price: 100},
		{ProductID: "p2", Price: 50},
	})
	c.handle(context.Background(), intakeDelivery(t, acker, intake))

	require.Equal(t, 1, store.inserts)
	assert.Equal(t, 1, acker.acks)
	assert.Zero(t, acker.nacks)

	var order *models.Order
	for _, o := range store.byID {
		order = o
	}
	require.NotNil(t, order)
	assert.Equal(t, "alice", order.Username)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, 150.0, order.TotalPrice)
	assert.Equal(t, "corr-1", order.CorrelationID)

	require.Len(t, pub.messages, 1)
	assert.Equal(t, broker.FulfillmentQueue, pub.messages[0].queue)

	fulfillment, err := contracts.DecodeFulfillment(pub.messages[0].body)
	require.NoError(t, err)
	assert.Equal(t, "corr-1", fulfillment.OrderID)
	assert.Equal(t, "alice", fulfillment.User)
	assert.Equal(t, 150.0, fulfillment.TotalPrice)
	require.Len(t, fulfillment.Products, 2)
	assert.Equal(t, 100.0, fulfillment.Products[0].Price)
	assert.Equal(t, 50.0, fulfillment.Products[1].Price)
}

func TestConsumerRecomputesTotalWithQuantities(t *testing.T) {
	c, store, _ := newTestConsumer()
	acker := &fakeAcker{}

	intake := contracts.NewOrderIntake("corr-q", "bob", []contracts.LineItem{
		{ProductID: "p1", Price: 10, Quantity: 3},
		{ProductID: "p2", Price: 5, Quantity: 2},
	})
	c.handle(context.Background(), intakeDelivery(t, acker, intake))

	order, err := store.GetByCorrelation(context.Background(), "corr-q")
	require.NoError(t, err)
	assert.Equal(t, 40.0, order.TotalPrice)
}

// A redelivered intake (crash after persist, before ack) must not produce a
// second order record, but the fulfillment message is re-published.
func TestConsumerRedeliveryDedup(t *testing.T) {
	c, store, pub := newTestConsumer()
	acker := &fakeAcker{}

	intake := contracts.NewOrderIntake("corr-dup", "alice", []contracts.LineItem{
		{ProductID: "p1", Price: 100},
	})

	c.handle(context.Background(), intakeDelivery(t, acker, intake))
	c.handle(context.Background(), intakeDelivery(t, acker, intake))

	assert.Equal(t, 1, store.inserts)
	assert.Len(t, store.byID, 1)
	assert.Equal(t, 2, acker.acks)
	assert.Len(t, pub.messages, 2)
}

func TestConsumerNacksMalformedMessage(t *testing.T) {
	c, store, pub := newTestConsumer()
	acker := &fakeAcker{}

	c.handle(context.Background(), amqp.Delivery{
		Acknowledger: acker,
		Body:         []byte(`{"kind":"something.else","version":1}`),
	})

	assert.Zero(t, store.inserts)
	assert.Empty(t, pub.messages)
	assert.Zero(t, acker.acks)
	assert.Equal(t, 1, acker.nacks)
}

func TestConsumerNacksOnPersistenceError(t *testing.T) {
	c, store, pub := newTestConsumer()
	store.insertErr = assert.AnError
	acker := &fakeAcker{}

	intake := contracts.NewOrderIntake("corr-err", "alice", []contracts.LineItem{
		{ProductID: "p1", Price: 100},
	})
	c.handle(context.Background(), intakeDelivery(t, acker, intake))

	assert.Zero(t, acker.acks)
	assert.Equal(t, 1, acker.nacks)
	assert.Empty(t, pub.messages)
}

func TestConsumerDropsAfterRetryBudget(t *testing.T) {
	c, store, pub := newTestConsumer()
	acker := &fakeAcker{}

	intake := contracts.NewOrderIntake("corr-retry", "alice", []contracts.LineItem{
		{ProductID: "p1", Price: 100},
	})
	msg := intakeDelivery(t, acker, intake)
	msg.Headers = amqp.Table{
		"x-death": []any{amqp.Table{"count": int64(broker.MaxRetries)}},
	}
	c.handle(context.Background(), msg)

	// Dropped: acknowledged so the broker stops redelivering, nothing stored.
	assert.Equal(t, 1, acker.acks)
	assert.Zero(t, store.inserts)
	assert.Empty(t, pub.messages)
}
