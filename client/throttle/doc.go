// Package throttle rate-limits outbound traffic using a token-bucket
// algorithm from [golang.org/x/time/rate].
//
// A single [Limiter] can be shared between HTTP round trips and websocket
// frame writes so that both count against the same budget:
//
//	l, err := throttle.New(10, 5, func() *slog.Logger { return slog.Default() })
//	httpClient := &http.Client{Transport: throttle.NewRoundTripper(l, http.DefaultTransport)}
//
// When the budget is exhausted, callers block until a token becomes
// available or their context is cancelled.
package throttle
