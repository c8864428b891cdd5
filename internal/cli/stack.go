package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/megaganjotsingh/GSWebServiceHelper/auth"
	"github.com/megaganjotsingh/GSWebServiceHelper/client"
	"github.com/megaganjotsingh/GSWebServiceHelper/config"
	"github.com/megaganjotsingh/GSWebServiceHelper/metrics"
	"github.com/megaganjotsingh/GSWebServiceHelper/reach"
	"github.com/megaganjotsingh/GSWebServiceHelper/ws"
)

// stack is everything a command needs, assembled from the configuration.
type stack struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    auth.Store
	registry *prometheus.Registry
	metrics  *metrics.Recorder
}

func newStack(cfg *config.Config, logger *slog.Logger) (*stack, error) {
	s := stack{
		cfg:    cfg,
		logger: logger,
		store:  auth.NewMemoryStore(),
	}

	if cfg.Credentials.File != "" {
		fs, err := auth.OpenFileStore(cfg.Credentials.File, logger)
		if err != nil {
			return nil, fmt.Errorf("opening credentials: %w", err)
		}
		s.store = fs
	}

	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		rec, err := metrics.New(s.registry)
		if err != nil {
			return nil, fmt.Errorf("creating metrics: %w", err)
		}
		s.metrics = rec
	}

	return &s, nil
}

func loadStack(flags *rootFlags, logger *slog.Logger) (*stack, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return newStack(cfg, logger)
}

func (s *stack) renewer() *auth.Renewer {
	return auth.NewRenewer(s.store, auth.NewTokenRefresher(&http.Client{Timeout: s.cfg.Timeout}, s.store), auth.WithLogger(s.logger))
}

func (s *stack) client(opts ...client.Option) (*client.Client, error) {
	base := []client.Option{
		client.WithLogger(s.logger),
		client.WithTimeout(s.cfg.Timeout),
		client.WithCredentials(s.store),
		client.WithRenewer(s.renewer()),
		client.WithMetrics(s.metrics),
	}

	if s.cfg.UserAgent != "" {
		base = append(base, client.WithUserAgent(s.cfg.UserAgent))
	}
	if s.cfg.Throttle.Enabled() {
		base = append(base, client.WithThrottle(s.cfg.Throttle.RPS, s.cfg.Throttle.Burst))
	}
	if s.cfg.Reach.ProbeAddr != "" {
		base = append(base, client.WithReachability(reach.NewProbe(s.cfg.Reach.ProbeAddr, s.cfg.Reach.Timeout, 0)))
	}

	return client.Build(s.cfg.BaseURL, append(base, opts...)...)
}

func (s *stack) connection(d ws.Delegate) (*ws.Connection, error) {
	if s.cfg.Websocket.URL == "" {
		return nil, errors.New("websocket.url is not configured")
	}

	opts := []ws.Option{
		ws.WithDelegate(d),
		ws.WithCredentials(s.store),
		ws.WithLogger(s.logger),
		ws.WithMetrics(s.metrics),
	}

	if s.cfg.Websocket.CloseTimeout > 0 {
		opts = append(opts, ws.WithCloseTimeout(s.cfg.Websocket.CloseTimeout))
	}
	if s.cfg.Websocket.SendRPS > 0 && s.cfg.Websocket.SendBurst > 0 {
		opts = append(opts, ws.WithSendLimit(s.cfg.Websocket.SendRPS, s.cfg.Websocket.SendBurst))
	}

	return ws.New(s.cfg.Websocket.URL, opts...)
}

// serveMetrics exposes the registry on metrics.addr until ctx ends.
func (s *stack) serveMetrics(ctx context.Context) {
	if s.registry == nil || s.cfg.Metrics.Addr == "" {
		return
	}

	srv := &http.Server{
		Addr:              s.cfg.Metrics.Addr,
		Handler:           promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("failed to serve metrics", "error", err, "addr", srv.Addr)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("failed to stop metrics server", "error", err)
		}
	}()
}
