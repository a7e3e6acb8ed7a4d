package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stockpulse/lib-core/backoff"
	"github.com/stockpulse/lib-core/errgroup"
	"github.com/stockpulse/lib-core/eventstore"
	"github.com/stockpulse/lib-core/log"
)

// AllEvents subscribes to every event type regardless of its name.
const AllEvents = ""

const (
	defaultMaxAttempts = 3
	defaultRetryBase   = 50 * time.Millisecond
)

var (
	// ErrLoggerRequired is returned by NewPublisher when no logger is provided.
	ErrLoggerRequired = errors.New("eventbus: logger is required")

	// ErrSubscriberRequired is returned by Subscribe when the subscriber is nil.
	ErrSubscriberRequired = errors.New("eventbus: subscriber is required")

	// ErrRecordRequired is returned by Publish when the record is nil.
	ErrRecordRequired = errors.New("eventbus: record is required")
)

// Subscriber consumes persisted event records. A non-nil error marks the
// delivery attempt as failed and triggers a retry; implementations must be
// idempotent because delivery is at-least-once.
type Subscriber interface {
	HandleEvent(ctx context.Context, record *eventstore.Record) error
}

// SubscriberFunc adapts a plain function to the Subscriber interface.
type SubscriberFunc func(ctx context.Context, record *eventstore.Record) error

// HandleEvent implements Subscriber.
func (fn SubscriberFunc) HandleEvent(ctx context.Context, record *eventstore.Record) error {
	return fn(ctx, record)
}

// Publisher fans persisted records out to registered subscribers.
// Subscriptions are expected to be registered at process start; Publish is
// safe for concurrent use once wiring is done.
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[string][]Subscriber
	logger      log.Logger
	serialized  bool
	maxAttempts int
	retryBase   time.Duration
}

// PublisherOption customizes a Publisher.
type PublisherOption func(*Publisher)

// WithSerializedDelivery makes Publish run subscribers one at a time, in
// registration order, instead of concurrently. This is the only mode in
// which subscribers observe a consistent relative order of events.
func WithSerializedDelivery() PublisherOption {
	return func(pub *Publisher) {
		pub.serialized = true
	}
}

// WithMaxAttempts sets how many times a failing subscriber is tried per
// record. Values below 1 are treated as 1.
func WithMaxAttempts(attempts int) PublisherOption {
	return func(pub *Publisher) {
		if attempts < 1 {
			attempts = 1
		}

		pub.maxAttempts = attempts
	}
}

// WithRetryBase sets the base delay for the jittered exponential backoff
// between delivery attempts.
func WithRetryBase(base time.Duration) PublisherOption {
	return func(pub *Publisher) {
		if base > 0 {
			pub.retryBase = base
		}
	}
}

// NewPublisher creates a Publisher with no subscriptions.
func NewPublisher(logger log.Logger, opts ...PublisherOption) (*Publisher, error) {
	if logger == nil {
		return nil, ErrLoggerRequired
	}

	pub := &Publisher{
		subscribers: make(map[string][]Subscriber),
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
	}

	for _, opt := range opts {
		opt(pub)
	}

	return pub, nil
}

// Subscribe registers a subscriber for records of the given event type.
// Pass AllEvents to receive every record. Subscribers registered for both a
// concrete type and AllEvents receive matching records twice.
func (pub *Publisher) Subscribe(eventType string, subscriber Subscriber) error {
	if subscriber == nil {
		return ErrSubscriberRequired
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()

	pub.subscribers[eventType] = append(pub.subscribers[eventType], subscriber)

	return nil
}

// Publish delivers the record to every subscriber registered for its event
// type plus the AllEvents wildcard. Each subscriber gets its own retry
// budget; the returned error is the first subscriber failure after retries
// are exhausted, with remaining subscribers still attempted.
func (pub *Publisher) Publish(ctx context.Context, record *eventstore.Record) error {
	if record == nil {
		return ErrRecordRequired
	}

	targets := pub.targetsFor(record.EventType)
	if len(targets) == 0 {
		return nil
	}

	if pub.serialized {
		var firstErr error

		for _, subscriber := range targets {
			if err := pub.deliver(ctx, subscriber, record); err != nil && firstErr == nil {
				firstErr = err
			}
		}

		return firstErr
	}

	// Deliveries run on the parent context rather than the group context so
	// one subscriber exhausting its retries does not cancel its siblings.
	group, _ := errgroup.WithContext(ctx)
	group.SetLogger(pub.logger)

	for _, subscriber := range targets {
		subscriber := subscriber

		group.Go(func() error {
			return pub.deliver(ctx, subscriber, record)
		})
	}

	return group.Wait()
}

func (pub *Publisher) targetsFor(eventType string) []Subscriber {
	pub.mu.RLock()
	defer pub.mu.RUnlock()

	typed := pub.subscribers[eventType]
	wildcard := pub.subscribers[AllEvents]

	if eventType == AllEvents {
		wildcard = nil
	}

	targets := make([]Subscriber, 0, len(typed)+len(wildcard))
	targets = append(targets, typed...)
	targets = append(targets, wildcard...)

	return targets
}

func (pub *Publisher) deliver(ctx context.Context, subscriber Subscriber, record *eventstore.Record) error {
	var lastErr error

	for attempt := 0; attempt < pub.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoff.ExponentialWithJitter(pub.retryBase, attempt-1)
			if err := backoff.SleepWithContext(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = subscriber.HandleEvent(ctx, record)
		if lastErr == nil {
			return nil
		}

		pub.logger.Warnf("eventbus: delivery attempt %d/%d failed for event %s aggregate %s: %v",
			attempt+1, pub.maxAttempts, record.EventType, record.AggregateID, lastErr)
	}

	return fmt.Errorf("eventbus: delivery failed after %d attempts for event %s: %w",
		pub.maxAttempts, record.EventType, lastErr)
}
