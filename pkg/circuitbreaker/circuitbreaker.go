// Package circuitbreaker stops a failing external dependency from being
// hammered: after a run of failures the circuit opens and calls fail fast
// until a quiet period has passed and a probe call succeeds.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the circuit position.
type State int

const (
	// StateClosed lets calls through.
	StateClosed State = iota

	// StateOpen fails calls fast.
	StateOpen

	// StateHalfOpen lets a bounded number of probe calls through.
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

var (
	// ErrCircuitOpen is returned while the circuit is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyProbes is returned when the half-open probe budget is spent.
	ErrTooManyProbes = errors.New("too many probe requests while half-open")
)

// Settings tunes a CircuitBreaker. The zero value gets defaults from New.
type Settings struct {
	// Name identifies the breaker in callbacks and logs.
	Name string

	// FailureThreshold is the consecutive-failure count that opens the
	// circuit.
	FailureThreshold int

	// SuccessThreshold is the consecutive-success count while half-open
	// that closes it again.
	SuccessThreshold int

	// CoolDown is how long the circuit stays open before probing.
	CoolDown time.Duration

	// MaxProbes bounds concurrent-ish calls while half-open.
	MaxProbes int

	// OnStateChange is invoked on every transition.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker guards calls to one external dependency.
type CircuitBreaker struct {
	settings Settings

	mu           sync.Mutex
	state        State
	failures     int
	successes    int
	probes       int
	lastFailedAt time.Time
}

// New creates a CircuitBreaker. Unset numeric settings default to 5 failures
// to open, 2 successes to close, 30s cool-down, one probe at a time.
func New(s Settings) *CircuitBreaker {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = 2
	}
	if s.CoolDown <= 0 {
		s.CoolDown = 30 * time.Second
	}
	if s.MaxProbes <= 0 {
		s.MaxProbes = 1
	}
	return &CircuitBreaker{settings: s, state: StateClosed}
}

// MailBreaker guards the SMTP relay: three failures open the circuit, then a
// minute of quiet before a single test delivery.
func MailBreaker(onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(Settings{
		Name:             "mail-relay",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		CoolDown:         60 * time.Second,
		MaxProbes:        1,
		OnStateChange:    onStateChange,
	})
}

// Execute runs fn if the circuit allows it and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.allow(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.record(err == nil)
	return err
}

// State returns the current circuit position.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the circuit closed and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.failures = 0
	cb.successes = 0
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(cb.lastFailedAt) < cb.settings.CoolDown {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.probes = 1
		return nil

	default: // StateHalfOpen
		if cb.probes >= cb.settings.MaxProbes {
			return ErrTooManyProbes
		}
		cb.probes++
		return nil
	}
}

func (cb *CircuitBreaker) record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// A finished probe frees its slot for the next one.
	if cb.state == StateHalfOpen && cb.probes > 0 {
		cb.probes--
	}

	if success {
		cb.successes++
		cb.failures = 0
		if cb.state == StateHalfOpen && cb.successes >= cb.settings.SuccessThreshold {
			cb.transition(StateClosed)
		}
		return
	}

	cb.failures++
	cb.successes = 0
	cb.lastFailedAt = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.settings.FailureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		// A failed probe reopens immediately.
		cb.transition(StateOpen)
	}
}

// transition must be called with the lock held.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.probes = 0
	cb.successes = 0
	cb.failures = 0

	if cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(cb.settings.Name, from, to)
	}
}
