// Package broker provides a wrapper around the amqp client.
//
// Each service owns exactly one Broker, constructed at startup and passed into
// the HTTP layer and the consumers. The Broker holds one connection and one
// channel, declares the durable queues the service depends on, and reconnects
// with exponential backoff when the connection drops. The broker may start
// after the service, so a failed connect is never fatal.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConnected is returned by Publish and Consume when no channel is live.
// Publish is best-effort relative to the request that triggered it, so callers
// report this error instead of blocking on the connection.
var ErrNotConnected = errors.New("broker: not connected")

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MarshalText renders the state as its name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a point-in-time snapshot of the connection, exposed on /health so
// a stuck reconnect loop is visible to operators.
type Status struct {
	State     State  `json:"state"`
	Attempt   int    `json:"attempt"`
	LastError string `json:"last_error,omitempty"`
}

// Config configures a Broker.
type Config struct {
	URI    string
	Queues []string // work queues to declare; each gets a retry companion

	RetryDelay  time.Duration // base reconnect delay, default 5s
	MaxDelay    time.Duration // backoff cap, default 1m
	MaxAttempts int           // reconnect attempt budget, 0 means unbounded
}

// Handler processes one delivery. A nil return acknowledges the delivery; an
// error nacks it onto the retry queue.
type Handler func(ctx context.Context, msg amqp.Delivery) error

type subscription struct {
	queue   string
	handler Handler
}

// Broker is a wrapper around the amqp client.
type Broker struct {
	cfg    Config
	logger *slog.Logger

	mu           sync.Mutex
	conn         *amqp.Connection
	ch           *amqp.Channel
	state        State
	attempt      int
	lastErr      error
	reconnecting bool
	subs         []subscription
}

func New(cfg Config, logger *slog.Logger) *Broker {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	return &Broker{
		cfg:    cfg,
		logger: logger,
		state:  Disconnected,
	}
}

// Connect establishes the connection, channel, and queue topology. On failure
// it schedules a background retry instead of returning an error: the broker
// may simply not be up yet.
func (b *Broker) Connect(ctx context.Context) {
	if err := b.dial(ctx); err != nil {
		b.logger.Error("Failed to connect to RabbitMQ", "error", err)
		b.scheduleReconnect(ctx)
	}
}

func (b *Broker) dial(ctx context.Context) error {
	b.mu.Lock()
	b.state = Connecting
	b.mu.Unlock()

	conn, err := amqp.Dial(b.cfg.URI)
	if err != nil {
		b.fail(err)
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		b.fail(err)
		return err
	}

	for _, q := range b.cfg.Queues {
		if err := declareWorkQueue(ch, q); err != nil {
			conn.Close()
			b.fail(err)
			return err
		}
	}

	b.mu.Lock()
	b.conn = conn
	b.ch = ch
	b.state = Connected
	b.attempt = 0
	b.lastErr = nil
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	b.logger.Info("RabbitMQ connected and queues declared", "queues", b.cfg.Queues)

	go b.watch(ctx, conn)
	for _, s := range subs {
		b.startConsumer(ctx, s)
	}
	return nil
}

func (b *Broker) fail(err error) {
	b.mu.Lock()
	b.state = Disconnected
	b.lastErr = err
	b.mu.Unlock()
}

// watch waits for the connection to die and triggers a fresh reconnect.
func (b *Broker) watch(ctx context.Context, conn *amqp.Connection) {
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		return
	case err, ok := <-closed:
		b.mu.Lock()
		b.state = Disconnected
		b.conn = nil
		b.ch = nil
		if ok && err != nil {
			b.lastErr = err
		}
		b.mu.Unlock()
		b.logger.Error("RabbitMQ connection lost", "error", err)
		b.scheduleReconnect(ctx)
	}
}

// scheduleReconnect starts the retry loop, ensuring at most one is in flight.
func (b *Broker) scheduleReconnect(ctx context.Context) {
	b.mu.Lock()
	if b.reconnecting {
		b.mu.Unlock()
		return
	}
	b.reconnecting = true
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			b.reconnecting = false
			b.mu.Unlock()
		}()

		for {
			b.mu.Lock()
			b.attempt++
			attempt := b.attempt
			b.mu.Unlock()

			if b.cfg.MaxAttempts > 0 && attempt > b.cfg.MaxAttempts {
				b.logger.Error("RabbitMQ reconnect budget exhausted", "attempts", b.cfg.MaxAttempts)
				return
			}

			delay := nextDelay(b.cfg.RetryDelay, b.cfg.MaxDelay, attempt)
			b.logger.Info("Retrying RabbitMQ connection", "attempt", attempt, "delay", delay)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			if err := b.dial(ctx); err == nil {
				return
			}
		}
	}()
}

// nextDelay doubles the base delay per attempt, capped at max.
func nextDelay(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// Publish enqueues a message on a queue via the default exchange.
func (b *Broker) Publish(ctx context.Context, queue string, body []byte) error {
	b.mu.Lock()
	ch := b.ch
	b.mu.Unlock()

	if ch == nil {
		return ErrNotConnected
	}

	return ch.PublishWithContext(ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Consume registers a raw consumer on a queue. The returned channel closes
// when the connection drops; callers are expected to call Consume again.
func (b *Broker) Consume(queue string) (<-chan amqp.Delivery, error) {
	b.mu.Lock()
	ch := b.ch
	b.mu.Unlock()

	if ch == nil {
		return nil, ErrNotConnected
	}

	msgs, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register a consumer: %w", err)
	}
	return msgs, nil
}

// Subscribe registers a handler for a queue. Deliveries are processed serially
// and acknowledged only after the handler returns nil; an error nacks the
// delivery onto the retry queue, and a delivery that has exhausted its retry
// budget is acknowledged and dropped. The consumer is (re)started whenever the
// connection is (re)established.
func (b *Broker) Subscribe(ctx context.Context, queue string, handler Handler) {
	sub := subscription{queue: queue, handler: handler}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	connected := b.state == Connected
	b.mu.Unlock()

	if connected {
		b.startConsumer(ctx, sub)
	}
}

func (b *Broker) startConsumer(ctx context.Context, sub subscription) {
	msgs, err := b.Consume(sub.queue)
	if err != nil {
		b.logger.Error("Failed to start consumer", "queue", sub.queue, "error", err)
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				if RetryCount(msg.Headers) >= MaxRetries {
					b.logger.Error("Dropping delivery that exceeded retry budget", "queue", sub.queue)
					msg.Ack(false)
					continue
				}

				if err := sub.handler(ctx, msg); err != nil {
					b.logger.Error("Error handling message", "queue", sub.queue, "error", err)
					msg.Nack(false, false)
					continue
				}

				msg.Ack(false)
			}
		}
	}()
}

// Status returns a snapshot of the connection state.
func (b *Broker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Status{State: b.state, Attempt: b.attempt}
	if b.lastErr != nil {
		s.LastError = b.lastErr.Error()
	}
	return s
}

// Close tears down the connection. Intended for process shutdown.
func (b *Broker) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.ch = nil
	b.state = Disconnected
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// declareWorkQueue declares a durable work queue plus its retry companion.
// Nacked deliveries dead-letter to the retry queue, sit out the TTL, and are
// routed back to the work queue with an incremented x-death count.
func declareWorkQueue(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": RetryQueue(queue),
		}, // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", queue, err)
	}

	_, err = ch.QueueDeclare(
		RetryQueue(queue), // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		amqp.Table{
			"x-message-ttl":             int32(retryTTLMilliseconds),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": queue,
		}, // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", RetryQueue(queue), err)
	}

	return nil
}

// RetryCount reads the delivery count from the 'x-death' header.
func RetryCount(headers amqp.Table) int64 {
	if headers == nil {
		return 0
	}

	xDeath, ok := headers["x-death"]
	if !ok {
		return 0
	}

	xDeathSlice, ok := xDeath.([]any)
	if !ok {
		return 0
	}

	for _, h := range xDeathSlice {
		table, ok := h.(amqp.Table)
		if !ok {
			continue
		}

		count, ok := table["count"].(int64)
		if !ok {
			return 0
		}
		return count
	}

	return 0
}
