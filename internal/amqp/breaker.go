package amqp

import (
	"errors"
	"sync"
	"time"
)

var errBreakerOpen = errors.New("circuit breaker is open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// breaker stops publishing after maxFailures consecutive failures. Once
// openTimeout has passed it lets one attempt through; a failure then reopens
// it immediately.
type breaker struct {
	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	now      func() time.Time
}

func (b *breaker) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}

// allow reports whether a publish may be attempted.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != breakerOpen {
		return true
	}
	if b.clock().Sub(b.openedAt) > openTimeout {
		b.state = breakerHalfOpen
		return true
	}
	return false
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.failures = 0
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= maxFailures || b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = b.clock()
	}
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
