package throttle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Config defines the limiter's requests per second and burst size.
type Config struct {
	RPS   int `yaml:"rps" validate:"gte=0"`
	Burst int `yaml:"burst" validate:"required_with=RPS,gte=0"`
}

// Enabled reports whether c describes a usable limit.
func (c Config) Enabled() bool { return c.RPS > 0 && c.Burst > 0 }

// Limiter wraps a token bucket. logFn lazily resolves the logger at wait
// time, making option ordering irrelevant for callers that configure the
// logger after the limiter. A nil-returning logFn disables exhaustion logs.
type Limiter struct {
	limiter *rate.Limiter
	rps     int
	burst   int
	logFn   func() *slog.Logger
}

// New returns a Limiter allowing rps events per second with the given burst.
func New(rps, burst int, logFn func() *slog.Logger) (*Limiter, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	l := Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		logFn:   logFn,
	}

	return &l, nil
}

// Wait blocks until a token is available for subject or ctx ends.
// A wait that cannot finish before the ctx deadline fails immediately.
func (l *Limiter) Wait(ctx context.Context, subject string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	res := l.limiter.Reserve()
	if !res.OK() {
		return fmt.Errorf("%w: burst[%d] exceeded", ErrWaitingFailed, l.burst)
	}

	delay := res.Delay()
	if delay == 0 {
		return nil
	}

	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
		res.Cancel()
		return fmt.Errorf("%w: %w", ErrWaitingFailed, context.DeadlineExceeded)
	}

	if logger := l.logFn(); logger != nil {
		logger.Info("throttle tokens exhausted", "rate", l.rps, "burst", l.burst, "subject", subject, "delay", delay.String())
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		res.Cancel()
		return fmt.Errorf("%w: %w", ErrWaitingFailed, ctx.Err())
	}

	if err := ctx.Err(); err != nil { // Check context hasn't expired again.
		return fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return nil
}

// roundTripper is an http.RoundTripper waiting on a Limiter before
// handing the request to next.
type roundTripper struct {
	limiter *Limiter
	next    http.RoundTripper
}

// NewRoundTripper returns an http.RoundTripper that throttles outbound
// requests through l. A nil l passes requests straight through.
func NewRoundTripper(l *Limiter, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}

	return &roundTripper{limiter: l, next: next}
}

func (t *roundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if t.limiter == nil {
		return t.next.RoundTrip(r)
	}

	if err := t.limiter.Wait(r.Context(), r.URL.Path); err != nil {
		return nil, err
	}

	return t.next.RoundTrip(r)
}
