package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// maxErrBodySize caps the amount of response body kept in a RefreshError.
const maxErrBodySize = 4 << 10 // 4KB

var (
	// ErrNoAuthState is returned when no persisted auth state exists.
	ErrNoAuthState = errors.New("no persisted auth state")
	// ErrRefreshRejected is wrapped by [RefreshError].
	ErrRefreshRejected = errors.New("token refresh rejected")
)

// Refresher obtains a fresh access token from a persisted auth state.
type Refresher interface {
	Refresh(ctx context.Context, state []byte) (string, error)
}

// RefresherFunc adapts a function into a Refresher.
type RefresherFunc func(ctx context.Context, state []byte) (string, error)

func (f RefresherFunc) Refresh(ctx context.Context, state []byte) (string, error) {
	return f(ctx, state)
}

// State is the auth state understood by [TokenRefresher].
type State struct {
	TokenURL     string `json:"token_url"`
	ClientID     string `json:"client_id,omitempty"`
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token,omitempty"`
}

// RefreshError is returned when the token endpoint answers with a non-2xx status.
type RefreshError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// TokenRefresher performs an OAuth2 refresh_token grant against the token
// endpoint named in the auth state. When store is non-nil, rotated refresh
// tokens and the new access token are written back into the auth state.
type TokenRefresher struct {
	hc    *http.Client
	store Store
}

// NewTokenRefresher returns a TokenRefresher. A nil hc uses http.DefaultClient.
func NewTokenRefresher(hc *http.Client, store Store) *TokenRefresher {
	if hc == nil {
		hc = http.DefaultClient
	}

	return &TokenRefresher{hc: hc, store: store}
}

// Refresh exchanges the refresh token held in state for a new access token.
func (r *TokenRefresher) Refresh(ctx context.Context, state []byte) (string, error) {
	if len(state) == 0 {
		return "", ErrNoAuthState
	}

	var st State
	if err := json.Unmarshal(state, &st); err != nil {
		return "", fmt.Errorf("decoding auth state: %w", err)
	}
	if st.TokenURL == "" || st.RefreshToken == "" {
		return "", errors.New("auth state: token_url and refresh_token are required")
	}

	conf := oauth2.Config{
		ClientID: st.ClientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  st.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.hc)
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: st.RefreshToken}).Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			body := rerr.Body
			if len(body) > maxErrBodySize {
				body = body[:maxErrBodySize]
			}

			return "", &RefreshError{
				StatusCode: rerr.Response.StatusCode,
				Body:       string(body),
				Err:        ErrRefreshRejected,
			}
		}

		return "", fmt.Errorf("retrieving token: %w", err)
	}

	if r.store != nil {
		st.AccessToken = tok.AccessToken
		if tok.RefreshToken != "" {
			st.RefreshToken = tok.RefreshToken
		}

		b, err := json.Marshal(st)
		if err != nil {
			return "", fmt.Errorf("encoding auth state: %w", err)
		}
		if err := r.store.SetAuthState(b); err != nil {
			return "", fmt.Errorf("persisting auth state: %w", err)
		}
	}

	return tok.AccessToken, nil
}
