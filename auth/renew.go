package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultWindow is how close to expiry a token must be before it is renewed.
const DefaultWindow = 2 * time.Minute

// Outcome describes what a call to [Renewer.Renew] did.
type Outcome int

const (
	// Skipped means no renewal was needed or possible.
	Skipped Outcome = iota
	// Fresh means the refresher returned the token already held.
	Fresh
	// Refreshed means a new token and expiry were stored.
	Refreshed
	// Failed means the refresh or the store write failed.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Fresh:
		return "fresh"
	case Refreshed:
		return "refreshed"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// Renewer refreshes the stored bearer token when it is about to expire.
type Renewer struct {
	store     Store
	refresher Refresher
	window    time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// RenewerOption configures a [Renewer].
type RenewerOption func(*Renewer)

// WithWindow overrides [DefaultWindow].
func WithWindow(d time.Duration) RenewerOption {
	return func(r *Renewer) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RenewerOption {
	return func(r *Renewer) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) RenewerOption {
	return func(r *Renewer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRenewer returns a Renewer over store using refresher.
func NewRenewer(store Store, refresher Refresher, opts ...RenewerOption) *Renewer {
	r := Renewer{
		store:     store,
		refresher: refresher,
		window:    DefaultWindow,
		now:       time.Now,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(&r)
	}

	return &r
}

// Due reports whether the stored expiry falls within the renewal window.
// A store without an expiry is never due.
func (r *Renewer) Due() bool {
	exp, ok := r.store.Expiry()
	if !ok {
		return false
	}

	return exp.Sub(r.now()) <= r.window
}

// Renew refreshes the token when it is due. The returned error is
// informational: callers treat renewal as best effort.
func (r *Renewer) Renew(ctx context.Context) (Outcome, error) {
	if !r.Due() {
		return Skipped, nil
	}

	state, ok := r.store.AuthState()
	if !ok {
		r.logger.Debug("token renewal skipped", "reason", ErrNoAuthState)
		return Skipped, nil
	}

	current, _ := r.store.BearerToken()

	token, err := r.refresher.Refresh(ctx, state)
	if err != nil {
		r.logger.Error("error fetching fresh tokens", "error", err)
		return Failed, fmt.Errorf("refreshing token: %w", err)
	}
	if token == "" {
		r.logger.Error("error getting access token", "error", "empty token")
		return Failed, errors.New("refresher returned an empty token")
	}

	if token == current {
		r.logger.Info("access token was fresh and not updated")
		return Fresh, nil
	}

	if err := r.store.SetBearerToken(token); err != nil {
		r.logger.Error("failed to store bearer token", "error", err)
		return Failed, fmt.Errorf("storing bearer token: %w", err)
	}

	exp, err := ExpiryFromToken(token)
	if err != nil {
		r.logger.Warn("refreshed token has no readable expiry", "error", err)
		return Refreshed, nil
	}
	if err := r.store.SetExpiry(exp); err != nil {
		r.logger.Error("failed to store token expiry", "error", err)
		return Failed, fmt.Errorf("storing expiry: %w", err)
	}

	r.logger.Info("access token was refreshed", "expires", exp)

	return Refreshed, nil
}
