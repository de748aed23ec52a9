// Package breaker stops calls to an upstream that keeps failing and lets a
// few trial calls through once a cooldown has passed.
package breaker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	ErrOpen            = errors.New("circuit breaker open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Breaker trips after threshold consecutive failures and stays open for cooldown.
type Breaker struct {
	name string

	mu         sync.Mutex
	state      State
	failures   int
	successes  int
	inFlight   int
	openedAt   time.Time
	rejections int64

	threshold      int
	cooldown       time.Duration
	trialLimit     int
	successToClose int

	now func() time.Time
}

func New(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		name:           name,
		state:          StateClosed,
		threshold:      threshold,
		cooldown:       cooldown,
		trialLimit:     1,
		successToClose: 2,
		now:            time.Now,
	}
}

// Do runs fn unless the breaker is open. Errors from fn count as failures,
// except when ctx has already ended: that is the caller giving up, not the
// upstream failing.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn(ctx)
	b.after(err, err != nil && ctx.Err() != nil)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			b.rejections++
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		b.successes = 0
	case StateHalfOpen:
		if b.inFlight >= b.trialLimit {
			b.rejections++
			return ErrTooManyRequests
		}
	}
	b.inFlight++
	return nil
}

func (b *Breaker) after(err error, abandoned bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inFlight--
	if abandoned {
		return
	}
	if err != nil {
		b.failures++
		b.successes = 0
		if b.state == StateHalfOpen || b.failures >= b.threshold {
			b.openedAt = b.now()
			b.transition(StateOpen)
		}
		return
	}
	b.failures = 0
	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.successToClose {
			b.transition(StateClosed)
		}
	}
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	log.Printf("[Breaker] %s: %s → %s", b.name, b.state, to)
	b.state = to
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Rejections counts calls refused while open or saturated.
func (b *Breaker) Rejections() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rejections
}
