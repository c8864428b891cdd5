package client

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/megaganjotsingh/GSWebServiceHelper/auth"
	"github.com/megaganjotsingh/GSWebServiceHelper/client/dispatch"
	"github.com/megaganjotsingh/GSWebServiceHelper/client/throttle"
	"github.com/megaganjotsingh/GSWebServiceHelper/metrics"
	"github.com/megaganjotsingh/GSWebServiceHelper/reach"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         string
	throttle          *throttle.Config
	limiter           *throttle.Limiter
	noFollowRedirects bool
	logger            *slog.Logger
	reach             reach.Checker
	indicator         Indicator
	queue             *dispatch.Queue
	creds             auth.Store
	renewer           *auth.Renewer
	metrics           *metrics.Recorder
	tracer            trace.Tracer
	propagator        propagation.TextMapPropagator
	commonParams      map[string]any
}

// WithClient replaces the default [http.Client] used by the [Client].
// The Client works on a copy, so hc is never modified.
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(c *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		c.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithLimiter rate limits requests with an existing limiter, so the
// budget can be shared with other clients or connections.
func WithLimiter(l *throttle.Limiter) Option {
	return func(c *options) error {
		if l == nil {
			return errors.New("limiter must not be nil")
		}
		c.limiter = l
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(c *options) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithReachability sets the connectivity checker consulted before every
// load. Without it the network is assumed to be reachable.
func WithReachability(checker reach.Checker) Option {
	return func(c *options) error {
		if checker == nil {
			return errors.New("reachability checker must not be nil")
		}
		c.reach = checker
		return nil
	}
}

// WithIndicator sets the loading indicator driven by [WithLoading].
func WithIndicator(ind Indicator) Option {
	return func(c *options) error {
		c.indicator = ind
		return nil
	}
}

// WithDispatcher delivers completions on q instead of [dispatch.Main].
func WithDispatcher(q *dispatch.Queue) Option {
	return func(c *options) error {
		if q == nil {
			return errors.New("dispatcher must not be nil")
		}
		c.queue = q
		return nil
	}
}

// WithCredentials attaches the bearer token held by store to every
// request that does not set its own Authorization header.
func WithCredentials(store auth.Store) Option {
	return func(c *options) error {
		c.creds = store
		return nil
	}
}

// WithRenewer runs r once when the client is built. Use
// [Client.RefreshDone] to wait for it.
func WithRenewer(r *auth.Renewer) Option {
	return func(c *options) error {
		c.renewer = r
		return nil
	}
}

// WithMetrics records load counts and latencies on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(c *options) error {
		c.metrics = rec
		return nil
	}
}

// WithTracer replaces the tracer taken from the global otel provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		c.tracer = tracer
		return nil
	}
}

// WithPropagator replaces the global otel propagator used to inject the
// trace context into request headers.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *options) error {
		if p == nil {
			return errors.New("propagator must not be nil")
		}
		c.propagator = p
		return nil
	}
}

// WithCommonParams seeds the parameters merged into every load.
func WithCommonParams(params map[string]any) Option {
	return func(c *options) error {
		c.commonParams = maps.Clone(params)
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}

// ResourceOption is a functional option for [NewResource] and [NewJSONResource].
type ResourceOption func(options *resourceOpts)

type resourceOpts struct {
	method                Method
	headers               map[string]string
	params                map[string]any
	noDefaultHeaders      bool
	useJSONNum            bool
	disallowUnknownFields bool
}

// WithMethod sets the HTTP method.
func WithMethod(m Method) ResourceOption {
	return func(opts *resourceOpts) {
		opts.method = m
	}
}

// WithParams replaces the request parameters.
func WithParams(params map[string]any) ResourceOption {
	return func(opts *resourceOpts) {
		opts.params = maps.Clone(params)
	}
}

// WithParam sets a single request parameter.
func WithParam(key string, value any) ResourceOption {
	return func(opts *resourceOpts) {
		if opts.params == nil {
			opts.params = make(map[string]any)
		}
		opts.params[key] = value
	}
}

// WithHeaders adds custom headers to the outgoing request.
func WithHeaders(headers map[string]string) ResourceOption {
	return func(opts *resourceOpts) {
		if opts.headers == nil {
			opts.headers = make(map[string]string, len(headers))
		}
		maps.Copy(opts.headers, headers)
	}
}

// WithHeader sets a single header.
func WithHeader(key, value string) ResourceOption {
	return func(opts *resourceOpts) {
		if opts.headers == nil {
			opts.headers = make(map[string]string)
		}
		opts.headers[key] = value
	}
}

// WithoutDefaultHeaders stops [NewJSONResource] from setting Accept and
// Content-Type.
func WithoutDefaultHeaders() ResourceOption {
	return func(opts *resourceOpts) {
		opts.noDefaultHeaders = true
	}
}

// WithJSONNumber tells the JSON decoder to use [json.Decoder.UseNumber],
// preserving number precision as [json.Number] instead of float64.
func WithJSONNumber() ResourceOption {
	return func(opts *resourceOpts) {
		opts.useJSONNum = true
	}
}

// WithDisallowUnknownFields makes the JSON decoder reject bodies with
// fields the target type does not declare.
func WithDisallowUnknownFields() ResourceOption {
	return func(opts *resourceOpts) {
		opts.disallowUnknownFields = true
	}
}

// LoadOption is a functional option for [Load] and [Fetch].
type LoadOption func(options *loadOpts)

type loadOpts struct {
	queryParams bool
	loading     bool
	hint        any
}

// WithQueryParams sends no body. GET and DELETE still carry their
// parameters in the query string.
func WithQueryParams() LoadOption {
	return func(opts *loadOpts) {
		opts.queryParams = true
	}
}

// WithLoading shows the configured [Indicator] with hint for the
// duration of the load. A nil hint shows nothing.
func WithLoading(hint any) LoadOption {
	return func(opts *loadOpts) {
		opts.loading = true
		opts.hint = hint
	}
}
