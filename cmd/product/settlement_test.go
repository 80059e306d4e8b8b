package main

import (
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhminh/microshop/internal/contracts"
)

func TestSettlementListenerAcceptsFulfillment(t *testing.T) {
	l := &settlementListener{logger: slog.New(slog.DiscardHandler)}

	body, err := contracts.EncodeFulfillment(contracts.NewFulfillment(
		"corr-1", "alice",
		[]contracts.LineItem{{ProductID: "p1", Price: 100, Quantity: 1}},
		100,
	))
	require.NoError(t, err)

	err = l.HandleMessage(t.Context(), amqp.Delivery{Body: body})
	assert.NoError(t, err)
}

// A shape-invalid delivery must be reported as an error so the broker loop
// routes it to the retry queue instead of acknowledging it.
func TestSettlementListenerRejectsBadShape(t *testing.T) {
	l := &settlementListener{logger: slog.New(slog.DiscardHandler)}

	tests := []struct {
		name string
		body string
	}{
		{"not json", `nope`},
		{"wrong kind", `{"kind":"order.intake","version":1,"username":"a","products":[{"productId":"p"}]}`},
		{"missing order id", `{"kind":"order.fulfillment","version":1,"user":"a","products":[{"productId":"p"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.HandleMessage(t.Context(), amqp.Delivery{Body: []byte(tt.body)})
			assert.Error(t, err)
		})
	}
}
