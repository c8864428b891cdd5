package ws

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/megaganjotsingh/GSWebServiceHelper/auth"
	"github.com/megaganjotsingh/GSWebServiceHelper/client/throttle"
	"github.com/megaganjotsingh/GSWebServiceHelper/metrics"
)

// DefaultCloseTimeout bounds how long Disconnect waits for the peer's
// close frame before dropping the socket.
const DefaultCloseTimeout = 5 * time.Second

// Option is a functional option for configuring a [Connection] via [New].
type Option func(*options) error
type options struct {
	delegate     Delegate
	dialer       Dialer
	header       http.Header
	creds        auth.Store
	logger       *slog.Logger
	metrics      *metrics.Recorder
	send         *throttle.Config
	limiter      *throttle.Limiter
	closeTimeout time.Duration
}

// WithDelegate sets the initial delegate.
func WithDelegate(d Delegate) Option {
	return func(o *options) error {
		o.delegate = d
		return nil
	}
}

// WithDialer replaces the gorilla dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) error {
		if d == nil {
			return errors.New("dialer must not be nil")
		}
		o.dialer = d
		return nil
	}
}

// WithHeader adds a header to the upgrade request.
func WithHeader(key, value string) Option {
	return func(o *options) error {
		if o.header == nil {
			o.header = make(http.Header)
		}
		o.header.Add(key, value)
		return nil
	}
}

// WithHeaders adds headers to the upgrade request.
func WithHeaders(h http.Header) Option {
	return func(o *options) error {
		if o.header == nil {
			o.header = make(http.Header, len(h))
		}
		maps.Copy(o.header, h.Clone())
		return nil
	}
}

// WithCredentials sends the stored bearer token with the upgrade request.
func WithCredentials(store auth.Store) Option {
	return func(o *options) error {
		o.creds = store
		return nil
	}
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithMetrics records frames and errors on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(o *options) error {
		o.metrics = rec
		return nil
	}
}

// WithSendLimit rate limits outgoing frames.
func WithSendLimit(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		o.send = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithSendLimiter rate limits outgoing frames with an existing limiter.
func WithSendLimiter(l *throttle.Limiter) Option {
	return func(o *options) error {
		if l == nil {
			return errors.New("limiter must not be nil")
		}
		o.limiter = l
		return nil
	}
}

// WithCloseTimeout overrides [DefaultCloseTimeout].
func WithCloseTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("close timeout must be positive")
		}
		o.closeTimeout = d
		return nil
	}
}
