package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/stockpulse/lib-core/log"
)

// ErrLoggerRequired indicates that a nil logger was passed to NewManager.
var ErrLoggerRequired = errors.New("circuitbreaker: logger is required")

// Manager owns the process-wide registry of breakers. Breakers are created
// lazily on first reference to a name and live for the process lifetime.
//
//go:generate mockgen --destination=manager_mock.go --package=circuitbreaker . Manager
type Manager interface {
	// GetOrCreate returns the breaker registered under name, creating it
	// with the given config when absent. The config of an existing breaker
	// is never changed.
	GetOrCreate(name string, cfg Config) *Breaker

	// Get returns the breaker registered under name, if any.
	Get(name string) (*Breaker, bool)

	// GetState returns the current state of the named breaker, or
	// StateUnknown when no such breaker exists.
	GetState(name string) State

	// AllStatus snapshots every registered breaker, keyed by name.
	AllStatus() map[string]Status

	// Reset forces the named breaker closed with zeroed counters. Unknown
	// names are ignored.
	Reset(name string)

	// RegisterStateChangeListener registers a listener notified on every
	// breaker transition.
	RegisterStateChangeListener(listener StateChangeListener)
}

type manager struct {
	breakers  map[string]*Breaker
	listeners []StateChangeListener
	mu        sync.RWMutex
	logger    log.Logger
	now       func() time.Time
	metrics   managerMetrics
}

// ManagerOption customizes a Manager.
type ManagerOption func(m *manager)

// WithMeterProvider enables OpenTelemetry metrics for breaker transitions and
// fast-fail rejections. A nil provider leaves metrics disabled.
func WithMeterProvider(provider metric.MeterProvider) ManagerOption {
	return func(m *manager) {
		m.metrics = newManagerMetrics(provider)
	}
}

// WithManagerClock overrides the time source used by breakers this manager
// creates. Intended for tests.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a breaker registry.
//
//nolint:ireturn
func NewManager(logger log.Logger, opts ...ManagerOption) (Manager, error) {
	if logger == nil {
		return nil, ErrLoggerRequired
	}

	mgr := &manager{
		breakers: make(map[string]*Breaker),
		logger:   logger,
		now:      time.Now,
		metrics:  newManagerMetrics(nil),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(mgr)
		}
	}

	return mgr, nil
}

func (m *manager) GetOrCreate(name string, cfg Config) *Breaker {
	m.mu.RLock()
	breaker, exists := m.breakers[name]
	m.mu.RUnlock()

	if exists {
		return breaker
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock.
	if breaker, exists = m.breakers[name]; exists {
		return breaker
	}

	breaker = NewBreaker(name, cfg,
		WithClock(m.now),
		WithStateChangeFunc(m.handleStateChange),
		WithRejectFunc(m.metrics.recordRejection),
	)
	m.breakers[name] = breaker

	m.logger.Infof("Created circuit breaker for operation: %s", name)

	return breaker
}

func (m *manager) Get(name string) (*Breaker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	breaker, exists := m.breakers[name]

	return breaker, exists
}

func (m *manager) GetState(name string) State {
	breaker, exists := m.Get(name)
	if !exists {
		return StateUnknown
	}

	return breaker.Status().State
}

func (m *manager) AllStatus() map[string]Status {
	m.mu.RLock()
	breakers := make([]*Breaker, 0, len(m.breakers))

	for _, breaker := range m.breakers {
		breakers = append(breakers, breaker)
	}
	m.mu.RUnlock()

	// Snapshot outside the registry lock; each breaker takes its own.
	statuses := make(map[string]Status, len(breakers))
	for _, breaker := range breakers {
		statuses[breaker.Name()] = breaker.Status()
	}

	return statuses
}

func (m *manager) Reset(name string) {
	breaker, exists := m.Get(name)
	if !exists {
		m.logger.Warnf("Reset requested for unknown circuit breaker: %s", name)
		return
	}

	m.logger.Infof("Resetting circuit breaker for operation: %s", name)
	breaker.Reset()
}

func (m *manager) RegisterStateChangeListener(listener StateChangeListener) {
	if listener == nil {
		m.logger.Warnf("Attempted to register a nil state change listener")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, listener)
	m.logger.Debugf("Registered state change listener (total: %d)", len(m.listeners))
}

// handleStateChange logs the transition and fans it out to listeners. It runs
// under the breaker mutex, so listener delivery happens on fresh goroutines
// and never blocks breaker operations.
func (m *manager) handleStateChange(name string, from, to State) {
	m.logger.Warnf("Circuit breaker [%s] state changed: %s -> %s", name, from, to)

	switch to {
	case StateOpen:
		m.logger.Errorf("Circuit breaker [%s] OPENED - requests will fast-fail", name)
	case StateHalfOpen:
		m.logger.Infof("Circuit breaker [%s] HALF-OPEN - probing recovery", name)
	case StateClosed:
		m.logger.Infof("Circuit breaker [%s] CLOSED - operation is healthy", name)
	}

	m.metrics.recordTransition(name, from, to)

	m.mu.RLock()
	listeners := make([]StateChangeListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, listener := range listeners {
		go func(l StateChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Errorf("State change listener panic for breaker %s: %v", name, r)
				}
			}()

			l.OnStateChange(name, from, to)
		}(listener)
	}
}
