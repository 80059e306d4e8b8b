package broker

import "time"

const (
	// Product service publishes to and order service reads from:
	OrderIntakeQueue = "orders"

	// Order service publishes to and product service reads from:
	FulfillmentQueue = "products"

	// MaxRetries is how many trips through the retry queue a delivery gets
	// before it is dropped.
	MaxRetries = 3

	retryTTLMilliseconds = 10000

	defaultRetryDelay = 5 * time.Second
	defaultMaxDelay   = 1 * time.Minute
)

// RetryQueue returns the name of the TTL dead-letter companion for a work
// queue. Deliveries nacked off the work queue park here and are routed back
// after the TTL expires.
func RetryQueue(queue string) string {
	return queue + ".retry"
}
