package budget

import (
	"context"
	"math/rand"
	"time"
)

// State tracks where a retry loop is in its lifecycle
type State int

// Backoff states in order of progression
const (
	StateIdle State = iota
	StateWaiting
	StateRetrying
	StateExhausted
)

// String returns the lowercase state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateRetrying:
		return "retrying"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// BackoffConfig tunes the retry machine
type BackoffConfig struct {
	Base        time.Duration // first delay; <=0 -> 500ms
	Cap         time.Duration // largest delay before jitter; <=0 -> 30s
	MaxAttempts int           // total tries per operation; <=0 -> 5
}

// Backoff is an explicit retry state machine: Idle, Waiting(until),
// Retrying, Exhausted. The delay doubles per consecutive failure, capped
// and perturbed by half-range jitter; a server-supplied delay wins when
// longer. Not safe for concurrent use, each retry loop owns one
type Backoff struct {
	cfg     BackoffConfig
	state   State
	attempt int
	until   time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	rand  func(n int64) int64
}

// NewBackoff constructs an idle machine
func NewBackoff(cfg BackoffConfig) *Backoff {
	if cfg.Base <= 0 {
		cfg.Base = 500 * time.Millisecond
	}
	if cfg.Cap <= 0 {
		cfg.Cap = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Backoff{
		cfg:   cfg,
		now:   time.Now,
		sleep: sleepCtx,
		rand:  rand.Int63n,
	}
}

// Fail records a failed attempt. It arms a wait and reports true while
// tries remain; on the final failure it moves to Exhausted and reports
// false. serverDelay is honored when it exceeds the computed delay
func (b *Backoff) Fail(serverDelay time.Duration) bool {
	b.attempt++
	if b.attempt >= b.cfg.MaxAttempts {
		b.state = StateExhausted
		return false
	}
	d := b.jitter(min(b.cfg.Base<<(b.attempt-1), b.cfg.Cap))
	if serverDelay > d {
		d = serverDelay
	}
	b.until = b.now().Add(d)
	b.state = StateWaiting
	return true
}

// Wait suspends until the armed deadline passes, then moves to Retrying.
// Cancellation returns the context error and leaves the machine Waiting.
// Waiting was never armed: returns immediately
func (b *Backoff) Wait(ctx context.Context) error {
	if b.state != StateWaiting {
		return nil
	}
	if d := b.until.Sub(b.now()); d > 0 {
		if err := b.sleep(ctx, d); err != nil {
			return err
		}
	}
	b.state = StateRetrying
	return nil
}

// Succeed resets the machine after a successful attempt
func (b *Backoff) Succeed() {
	b.attempt = 0
	b.until = time.Time{}
	b.state = StateIdle
}

// State reports the current state
func (b *Backoff) State() State { return b.state }

// Attempt reports consecutive failures so far
func (b *Backoff) Attempt() int { return b.attempt }

// Until reports when the armed wait elapses, zero when not Waiting
func (b *Backoff) Until() time.Time { return b.until }

func (b *Backoff) jitter(d time.Duration) time.Duration {
	if d <= 1 {
		return d
	}
	return d/2 + time.Duration(b.rand(int64(d/2)))
}
