package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/searchlab/termindex/pkg/logger"
)

// ErrCircuitOpen is returned by Breaker.Do while calls are being rejected.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls when the breaker trips and how it recovers.
type BreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
}

func (cfg BreakerConfig) withDefaults() BreakerConfig {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return cfg
}

// Breaker opens after FailureThreshold consecutive failures and then rejects
// calls with ErrCircuitOpen until ResetTimeout has passed. It then lets up to
// HalfOpenMaxRequests trial calls through; one success closes it again and
// one failure reopens it.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	now    func() time.Time
	logger *slog.Logger

	mu               sync.Mutex
	state            State
	failures         int
	openedAt         time.Time
	halfOpenInFlight int
	onStateChange    func(from, to State)
}

type BreakerOption func(*Breaker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) { b.now = now }
}

// WithStateChange calls fn on every transition, under the breaker's lock.
func WithStateChange(fn func(from, to State)) BreakerOption {
	return func(b *Breaker) { b.onStateChange = fn }
}

func NewBreaker(name string, cfg BreakerConfig, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:   name,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		state:  StateClosed,
		logger: logger.WithComponent("circuit-breaker").With("name", name),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Do runs fn unless the breaker is rejecting calls. The error of fn is
// returned unchanged and counts as a failure when non-nil.
func (b *Breaker) Do(fn func() error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn()
	b.release(err)
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		wait := b.cfg.ResetTimeout - b.now().Sub(b.openedAt)
		if wait > 0 {
			return fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, b.name, wait)
		}
		b.transition(StateHalfOpen)
		b.halfOpenInFlight = 1
	case StateHalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxRequests {
			return fmt.Errorf("%w: %s (trial limit reached)", ErrCircuitOpen, b.name)
		}
		b.halfOpenInFlight++
	}
	return nil
}

func (b *Breaker) release(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen {
		b.halfOpenInFlight--
	}
	if err == nil {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.transition(StateClosed)
		}
		return
	}
	b.failures++
	switch b.state {
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.open()
		}
	case StateHalfOpen:
		b.open()
	}
}

func (b *Breaker) open() {
	b.openedAt = b.now()
	b.halfOpenInFlight = 0
	b.transition(StateOpen)
	b.logger.Warn("circuit opened",
		"consecutive_failures", b.failures,
		"reset_timeout", b.cfg.ResetTimeout,
	)
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if to != StateOpen {
		b.logger.Info("circuit state changed", "from", from.String(), "to", to.String())
	}
	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}
