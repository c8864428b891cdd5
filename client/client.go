package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/megaganjotsingh/GSWebServiceHelper/auth"
	"github.com/megaganjotsingh/GSWebServiceHelper/client/dispatch"
	"github.com/megaganjotsingh/GSWebServiceHelper/client/throttle"
	"github.com/megaganjotsingh/GSWebServiceHelper/metrics"
	"github.com/megaganjotsingh/GSWebServiceHelper/reach"
)

// Client loads [Resource] values against a base address.
// It sets a default *http.Client and *http.Transport, which
// can be customized via optional funcs. A Client is cheap to build
// and safe for concurrent use.
type Client struct {
	baseURL    string
	c          *http.Client
	logger     *slog.Logger
	reach      reach.Checker
	indicator  Indicator
	queue      *dispatch.Queue
	creds      auth.Store
	metrics    *metrics.Recorder
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator

	refreshDone chan struct{}

	mu           sync.RWMutex
	commonParams map[string]any
}

// Build returns a Client for baseURL.
func Build(baseURL string, optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	client := &Client{
		baseURL:      baseURL,
		c:            &http.Client{},
		logger:       slog.Default(),
		reach:        reach.Static(reach.WiFi),
		indicator:    opts.indicator,
		queue:        dispatch.Main(),
		creds:        opts.creds,
		metrics:      opts.metrics,
		tracer:       otel.Tracer(tracerName),
		propagator:   otel.GetTextMapPropagator(),
		refreshDone:  make(chan struct{}),
		commonParams: opts.commonParams,
	}

	if opts.client != nil {
		cpy := *opts.client
		client.c = &cpy
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.reach != nil {
		client.reach = opts.reach
	}

	if opts.queue != nil {
		client.queue = opts.queue
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	if opts.propagator != nil {
		client.propagator = opts.propagator
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}

	limiter := opts.limiter
	if limiter == nil && opts.throttle != nil {
		l, err := throttle.New(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return client.logger })
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		limiter = l
	}
	if limiter != nil {
		transport = throttle.NewRoundTripper(limiter, transport)
	}
	client.c.Transport = transport

	if opts.renewer == nil {
		close(client.refreshDone)
	} else {
		go client.renew(opts.renewer)
	}

	return client, nil
}

// renew brings the stored token up to date once, at startup.
func (c *Client) renew(r *auth.Renewer) {
	defer close(c.refreshDone)

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	outcome, err := r.Renew(ctx)
	if err != nil {
		c.logger.Error("failed to refresh bearer token", "error", err)
		return
	}

	c.logger.Debug("token renewal finished", "outcome", outcome.String())
}

// RefreshDone is closed once the startup token renewal finished, or
// immediately when no renewer was configured.
func (c *Client) RefreshDone() <-chan struct{} { return c.refreshDone }

// BaseURL returns the address resources are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// SetCommonParam sets a parameter merged into every subsequent load.
func (c *Client) SetCommonParam(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.commonParams == nil {
		c.commonParams = make(map[string]any)
	}
	c.commonParams[key] = value
}

// SetCommonParams replaces all common parameters.
func (c *Client) SetCommonParams(params map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.commonParams = maps.Clone(params)
}

// DeleteCommonParam removes a common parameter.
func (c *Client) DeleteCommonParam(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.commonParams, key)
}

// CommonParams returns a snapshot of the common parameters.
func (c *Client) CommonParams() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.commonParams)
}

// Load dispatches res and calls completion exactly once with the outcome,
// on the client's dispatcher. Parameters set with [Client.SetCommonParam]
// are merged into the request, the resource's own keys winning.
//
// When the network is unreachable no request is made: completion receives
// a [KindNoInternetConnection] failure and Load returns a nil Task.
func Load[S, E any](ctx context.Context, c *Client, res Resource[S, E], completion func(Response[S, E]), optFns ...LoadOption) *Task {
	var opts loadOpts
	for _, opt := range optFns {
		opt(&opts)
	}

	if status := c.reach.Status(); !status.Online() {
		c.logger.Info("skipping load", "reason", "no internet connection", "status", status.String(), "path", res.path.Absolute())
		c.metrics.RecordLoad(string(res.method), KindNoInternetConnection.String(), 0)
		c.deliver(func() { completion(Failure[S](NoInternetConnection[E]())) })
		return nil
	}

	res = res.MergeParams(c.CommonParams())

	var (
		handle any
		shown  bool
	)
	if opts.loading && opts.hint != nil && c.indicator != nil {
		handle = c.indicator.Show(opts.hint)
		shown = true
	}

	ctx, cancel := context.WithCancel(ctx)
	task := newTask(uuid.NewString(), cancel)

	ctx, span := c.tracer.Start(ctx, "gsweb.load",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", string(res.method)),
			attribute.String("url.path", res.path.Absolute()),
			attribute.String("gsweb.request_id", task.id),
		),
	)

	c.metrics.LoadStarted()
	start := time.Now()

	go func() {
		defer span.End()

		resp, status := roundTrip(ctx, c, res, opts.queryParams, task.id)

		outcome := "success"
		if err := resp.Err(); err != nil {
			outcome = err.Kind.String()
			span.SetStatus(codes.Error, err.Error())
		}
		if status != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}

		c.metrics.LoadFinished()
		c.metrics.RecordLoad(string(res.method), outcome, time.Since(start).Seconds())

		c.deliver(func() {
			if shown {
				c.indicator.Hide(handle)
			}
			task.deliver(func() { completion(resp) })
		})
	}()

	return task
}

// Fetch is the blocking form of [Load]. It must not be called from the
// client's dispatcher, which has to be free to deliver the result.
// If ctx ends first the load is cancelled and a [KindOther] failure
// returned.
func Fetch[S, E any](ctx context.Context, c *Client, res Resource[S, E], optFns ...LoadOption) Response[S, E] {
	ch := make(chan Response[S, E], 1)

	task := Load(ctx, c, res, func(r Response[S, E]) { ch <- r }, optFns...)
	if task == nil {
		return <-ch
	}

	select {
	case r := <-ch:
		return r
	case <-ctx.Done():
		if task.Cancel() {
			return Failure[S](Other[E]())
		}
		return <-ch
	}
}

// RequestData fetches the raw body of the base address and hands it to
// completion on the client's dispatcher.
func (c *Client) RequestData(ctx context.Context, completion func([]byte, error)) {
	go func() {
		b, err := c.requestData(ctx)
		if err != nil {
			c.logger.Error("failed to request data", "error", err, "url", c.baseURL)
		}
		c.deliver(func() { completion(b, err) })
	}()
}

func (c *Client) requestData(ctx context.Context) ([]byte, error) {
	if status := c.reach.Status(); !status.Online() {
		return nil, ErrNoInternetConnection
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}
	req.Header.Set(headerRequestID, uuid.NewString())
	c.authorize(req)

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exec http do: %w", err)
	}
	defer c.closeBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if err != nil {
			b = []byte("unable to read body")
		}

		return nil, &UnexpectedStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(b),
			Err:        ErrUnexpectedStatusCode,
		}
	}

	return readBody(resp.Body)
}

// roundTrip builds, sends and classifies one request. The returned
// status is 0 when no response was received.
func roundTrip[S, E any](ctx context.Context, c *Client, res Resource[S, E], queryParams bool, requestID string) (Response[S, E], int) {
	req, err := BuildRequest(ctx, c.baseURL, res, queryParams)
	if err != nil {
		c.logger.Error("failed to build request", "error", err, "path", res.path.Absolute())
		return Failure[S](Other[E]()), 0
	}

	req.Header.Set(headerRequestID, requestID)
	c.authorize(req)
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.c.Do(req)
	if err != nil {
		c.logger.Error("exec http do", "error", err, "request_id", requestID)
		return Failure[S](Other[E]()), 0
	}
	defer c.closeBody(resp)

	b, err := readBody(resp.Body)
	if err != nil {
		c.logger.Error("failed to read response body", "error", err, "request_id", requestID, "status", resp.StatusCode)
		return Failure[S](Other[E]()), resp.StatusCode
	}

	c.logger.Debug("response received", "request_id", requestID, "status", resp.StatusCode, "bytes", len(b))

	return classify(res, resp.StatusCode, b), resp.StatusCode
}

// classify maps a received status and body to the load outcome.
func classify[S, E any](res Resource[S, E], status int, body []byte) Response[S, E] {
	switch {
	case status >= 200 && status <= 299:
		if v, ok := res.DecodeSuccess(body); ok {
			return Success[S, E](v)
		}
		return Failure[S](Other[E]())

	case status == http.StatusUnauthorized:
		return Failure[S](Unauthorized[E]())

	default:
		if v, ok := res.DecodeError(body); ok {
			return Failure[S](Custom(v))
		}
		return Failure[S](Other[E]())
	}
}

// errBodyTooLarge reports a body over maxBodySize.
var errBodyTooLarge = errors.New("response body exceeds " + strconv.Itoa(maxBodySize) + " bytes")

func readBody(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(b) > maxBodySize {
		return nil, errBodyTooLarge
	}

	return b, nil
}

// authorize sets the stored bearer token unless the request already
// carries an Authorization header.
func (c *Client) authorize(req *http.Request) {
	if c.creds == nil || req.Header.Get(headerAuthorization) != "" {
		return
	}

	if token, ok := c.creds.BearerToken(); ok && token != "" {
		req.Header.Set(headerAuthorization, auth.AuthorizationValue(token))
	}
}

func (c *Client) closeBody(resp *http.Response) {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		c.logger.Error("failed to discard unused body", "error", err)
	}
	if err := resp.Body.Close(); err != nil {
		c.logger.Error("failed to close response body", "error", err)
	}
}

// deliver runs fn on the dispatcher, or inline if it no longer accepts work.
func (c *Client) deliver(fn func()) {
	if err := c.queue.Dispatch(fn); err != nil {
		c.logger.Warn("dispatcher unavailable, running completion inline", "error", err)
		fn()
	}
}
