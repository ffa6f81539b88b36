// Package ratelimit implements per-endpoint fixed-window request quotas.
//
// A Limiter maps an endpoint class and a client identifier onto a counter held
// by a Store. Windows are fixed, not sliding: a client can burst up to twice the
// nominal rate across a window boundary.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Class names a category of operation with its own quota.
type Class string

const (
	ClassUpload     Class = "upload"
	ClassGenerate   Class = "generate"
	ClassRegenerate Class = "regenerate"
	ClassValidate   Class = "validate"
)

// Policy is the quota of one class.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultPolicies returns the quotas applied to the editing endpoints.
func DefaultPolicies() map[Class]Policy {
	return map[Class]Policy{
		ClassUpload:     {MaxRequests: 10, Window: time.Minute},
		ClassGenerate:   {MaxRequests: 5, Window: time.Minute},
		ClassRegenerate: {MaxRequests: 10, Window: time.Minute},
		ClassValidate:   {MaxRequests: 20, Window: time.Minute},
	}
}

// ErrUnknownClass is returned for a class without a policy.
var ErrUnknownClass = errors.New("ratelimit: unknown endpoint class")

// Decision is the outcome of a single admission check.
type Decision struct {
	Success   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Store keeps the counters. Hit must be atomic per key.
type Store interface {
	// Hit records one request against key. When the key has no live window a
	// new one starting now is opened with count 1. It returns the count within
	// the window, including this request, and the instant the window resets.
	Hit(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
	Close() error
}

// Limiter decides admission for endpoint classes.
type Limiter struct {
	store    Store
	policies map[Class]Policy
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithPolicy overrides the policy of one class.
func WithPolicy(class Class, p Policy) Option {
	return func(l *Limiter) {
		l.policies[class] = p
	}
}

// New builds a Limiter over store using DefaultPolicies.
func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{store: store, policies: DefaultPolicies()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the quota configured for class.
func (l *Limiter) Policy(class Class) (Policy, bool) {
	p, ok := l.policies[class]
	return p, ok
}

// Allow counts one request of class from identifier and reports whether it is admitted.
func (l *Limiter) Allow(ctx context.Context, class Class, identifier string) (Decision, error) {
	policy, ok := l.policies[class]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	count, resetAt, err := l.store.Hit(ctx, Key(class, identifier), policy.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: hit %s: %w", class, err)
	}
	if count > policy.MaxRequests {
		return Decision{Success: false, Limit: policy.MaxRequests, Remaining: 0, Reset: resetAt}, nil
	}
	return Decision{
		Success:   true,
		Limit:     policy.MaxRequests,
		Remaining: policy.MaxRequests - count,
		Reset:     resetAt,
	}, nil
}

// Close releases the store.
func (l *Limiter) Close() error {
	if l == nil || l.store == nil {
		return nil
	}
	return l.store.Close()
}

// Key builds the counter key for class and identifier.
func Key(class Class, identifier string) string {
	return string(class) + ":" + identifier
}
