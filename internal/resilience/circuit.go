package resilience

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks failures.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen allows a probe request to determine recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker implements a simple failure-ratio circuit breaker.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	successes    int
	minRequests  int
	failureRatio float64
	openedAt     time.Time
	openFor      time.Duration
	target       string
	logger       *zerolog.Logger
}

// NewBreaker constructs a breaker that opens when the rolling failure ratio
// exceeds the configured threshold once the minimum number of requests is
// observed.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 {
		failureRatio = 0.5
	}
	if failureRatio > 1 {
		failureRatio = 1
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		state:        Closed,
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
	}
}

// WithTarget attaches a target label used in state-transition logs.
func (b *Breaker) WithTarget(target string, logger *zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = target
	b.logger = logger
	return b
}

// Allow reports whether a request is permitted in the current state. When the
// breaker is open it only permits a request after the cool-off period and
// moves into half-open to sample the downstream dependency.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Since(b.openedAt) >= b.openFor {
			b.changeStateLocked(HalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

// Report records the outcome of a request and advances the state machine.
func (b *Breaker) Report(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		if success {
			b.resetLocked()
			b.changeStateLocked(Closed)
		} else {
			b.openedAt = time.Now()
			b.changeStateLocked(Open)
		}
		return
	case Open:
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.successes + b.failures
	if total < b.minRequests {
		return
	}
	ratio := float64(b.failures) / float64(total)
	if ratio >= b.failureRatio {
		b.openedAt = time.Now()
		b.resetLocked()
		b.changeStateLocked(Open)
	}
	// keep the rolling window from growing without bound
	if total >= 2*b.minRequests {
		b.successes /= 2
		b.failures /= 2
	}
}

// CurrentState returns the breaker state at the time of the call.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) resetLocked() {
	b.failures = 0
	b.successes = 0
}

func (b *Breaker) changeStateLocked(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	if b.logger != nil {
		b.logger.Warn().
			Str("target", b.target).
			Str("from", prev.String()).
			Str("to", next.String()).
			Msg("circuit_state_change")
	}
}

// Backoff computes an exponential backoff with optional jitter for the given attempt.
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if attempt < 1 {
		attempt = 1
	}
	d := float64(base) * math.Pow(2, float64(attempt-1))
	if jitter > 0 {
		delta := d * jitter
		d = d - delta + rand.Float64()*2*delta
	}
	if d < 0 {
		d = float64(base)
	}
	return time.Duration(d)
}
