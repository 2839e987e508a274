// Package ratelimit enforces per-actor and per-room request budgets with
// sliding-log windows.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Window is a request budget over a rolling period.
type Window struct {
	Name   string
	Limit  int
	Period time.Duration
	// CountDenied records rejected attempts too, so clients that keep
	// retrying stay throttled.
	CountDenied bool
}

// Policy windows. These are part of the engine's contract and are not
// configurable.
var (
	Burst     = Window{Name: "burst", Limit: 10, Period: time.Minute, CountDenied: true}
	Sustained = Window{Name: "sustained", Limit: 100, Period: time.Hour}
	PerRoom   = Window{Name: "per_room", Limit: 20, Period: time.Minute}
	Feedback  = Window{Name: "feedback", Limit: 5, Period: time.Minute}
)

// Check applies a Window to one counter key.
type Check struct {
	Key    string
	Window Window
}

// Decision is the outcome of an admission attempt.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration // shortest wait among violated windows
	Violated   []string
}

// Store evaluates and records a set of checks atomically.
type Store interface {
	Admit(ctx context.Context, now time.Time, checks []Check) (Decision, error)
}

// Limiter admits requests against the policy windows.
type Limiter struct {
	store Store
	now   func() time.Time
}

// New returns a Limiter. A nil clock means time.Now.
func New(store Store, now func() time.Time) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("ratelimit: store must not be nil")
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{store: store, now: now}, nil
}

// AdmitMessage applies the burst, sustained and per-room windows.
func (l *Limiter) AdmitMessage(ctx context.Context, actorID, roomID string) (Decision, error) {
	return l.admit(ctx, []Check{
		{Key: key(actorID, Burst.Name), Window: Burst},
		{Key: key(actorID, Sustained.Name), Window: Sustained},
		{Key: key(actorID, PerRoom.Name, roomID), Window: PerRoom},
	})
}

// AdmitFeedback applies the feedback window.
func (l *Limiter) AdmitFeedback(ctx context.Context, actorID string) (Decision, error) {
	return l.admit(ctx, []Check{{Key: key(actorID, Feedback.Name), Window: Feedback}})
}

func (l *Limiter) admit(ctx context.Context, checks []Check) (Decision, error) {
	d, err := l.store.Admit(ctx, l.now(), checks)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: admit: %w", err)
	}
	return d, nil
}

// key builds "rl:{actor}:name[:extra]". The braces keep every key of one actor
// in the same Redis Cluster hash slot.
func key(actorID, name string, extra ...string) string {
	k := "rl:{" + actorID + "}:" + name
	for _, e := range extra {
		k += ":" + e
	}
	return k
}
