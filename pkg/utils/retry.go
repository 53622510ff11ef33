package utils

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// IsRetriable treats everything except caller cancellation as transient.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// RetryWithBackoff calls fn up to attempts times, sleeping base*2^n plus
// jitter between calls. A nil retriable means IsRetriable.
func RetryWithBackoff[T any](
	ctx context.Context,
	attempts int,
	base time.Duration,
	retriable func(error) bool,
	fn func() (T, error),
) (T, error) {
	var zero T
	if attempts <= 0 {
		return zero, fmt.Errorf("attempts must be > 0, got %d", attempts)
	}
	if retriable == nil {
		retriable = IsRetriable
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		var result T
		if result, err = fn(); err == nil {
			return result, nil
		}
		if !retriable(err) {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(backoff(attempt, base))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, err)
}

func backoff(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int63n(int64(base))) //nolint:gosec // jitter doesn't need crypto rand
	return base<<attempt + jitter
}

type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

type CircuitBreaker struct {
	mu               sync.Mutex
	state            CircuitState
	failureCount     int
	failureThreshold int
	resetTimeout     time.Duration
	lastFailureTime  time.Time
	now              func() time.Time
}

func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs fn unless the breaker is open. Only retriable failures count
// towards tripping it; a failure while half-open reopens it immediately.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}

	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return true
	}
	if cb.now().Sub(cb.lastFailureTime) <= cb.resetTimeout {
		return false
	}
	cb.state = StateHalfOpen
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case err == nil:
		cb.failureCount = 0
		cb.state = StateClosed
	case IsRetriable(err):
		cb.failureCount++
		cb.lastFailureTime = cb.now()
		if cb.state == StateHalfOpen || cb.failureCount >= cb.failureThreshold {
			cb.state = StateOpen
		}
	}
}
