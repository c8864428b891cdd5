package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}

	return s
}

func TestStores(t *testing.T) {
	fs, err := OpenFileStore(filepath.Join(t.TempDir(), "creds.json"), nil)
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			if _, ok := s.BearerToken(); ok {
				t.Error("expected no bearer token")
			}
			if _, ok := s.Expiry(); ok {
				t.Error("expected no expiry")
			}
			if _, ok := s.AuthState(); ok {
				t.Error("expected no auth state")
			}

			exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			if err := s.SetBearerToken("tok"); err != nil {
				t.Fatalf("set token: %v", err)
			}
			if err := s.SetExpiry(exp); err != nil {
				t.Fatalf("set expiry: %v", err)
			}
			if err := s.SetAuthState([]byte(`{"a":1}`)); err != nil {
				t.Fatalf("set state: %v", err)
			}

			if got, _ := s.BearerToken(); got != "tok" {
				t.Errorf("exp token %q, got %q", "tok", got)
			}
			if got, _ := s.Expiry(); !got.Equal(exp) {
				t.Errorf("exp expiry %v, got %v", exp, got)
			}
			got, _ := s.AuthState()
			if diff := cmp.Diff(`{"a":1}`, string(got)); diff != "" {
				t.Errorf("auth state mismatch (-want +got):\n%s", diff)
			}

			got[0] = 'X' // returned state must be a copy
			again, _ := s.AuthState()
			if again[0] != '{' {
				t.Error("auth state aliased the caller's slice")
			}
		})
	}
}

func TestFileStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")

	s, err := OpenFileStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SetBearerToken("persisted"); err != nil {
		t.Fatalf("set token: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("exp mode 0600, got %v", perm)
	}

	reopened, err := OpenFileStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got, _ := reopened.BearerToken(); got != "persisted" {
		t.Errorf("exp token %q, got %q", "persisted", got)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".gsweb-creds-*"))
	if len(matches) != 0 {
		t.Errorf("expected temp files cleaned up, found %v", matches)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := OpenFileStore(path, nil); err == nil {
		t.Fatal("expected error for corrupt credentials file")
	}
}

func TestFileStore_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")

	watched, err := OpenFileStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	watchErr := make(chan error, 1)
	go func() { watchErr <- watched.Watch(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	writer, err := OpenFileStore(path, nil)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	if err := writer.SetBearerToken("from-other-process"); err != nil {
		t.Fatalf("set token: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if got, _ := watched.BearerToken(); got == "from-other-process" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("watched store never observed the rewrite")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	if err := <-watchErr; err != nil {
		t.Errorf("watch returned error: %v", err)
	}
}

func TestExpiryFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signedToken(t, exp)

	testCases := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "raw token", token: tok},
		{name: "bearer prefixed", token: "Bearer " + tok},
		{name: "not a jwt", token: "opaque-token", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExpiryFromToken(tc.token)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(exp) {
				t.Errorf("exp %v, got %v", exp, got)
			}
		})
	}

	t.Run("no exp claim", func(t *testing.T) {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"}).SignedString([]byte("k"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := ExpiryFromToken(s); !errors.Is(err, ErrNoExpiry) {
			t.Errorf("exp ErrNoExpiry, got %v", err)
		}
	})
}

func TestAuthorizationValue(t *testing.T) {
	if got := AuthorizationValue("abc"); got != "Bearer abc" {
		t.Errorf("got %q", got)
	}
	if got := AuthorizationValue("Bearer abc"); got != "Bearer abc" {
		t.Errorf("got %q", got)
	}
}

func TestTokenRefresher(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("grant_type") != "refresh_token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if r.PostForm.Get("client_id") != "app" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		switch r.PostForm.Get("refresh_token") {
		case "stable":
			w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
			_, _ = w.Write([]byte("access_token=form-access&token_type=bearer"))
		case "empty":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
		case "good":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{
				"access_token":  "new-access",
				"refresh_token": "rotated",
				"token_type":    "Bearer",
			})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		}
	}))
	defer ts.Close()

	stateFor := func(refresh string) []byte {
		b, _ := json.Marshal(State{TokenURL: ts.URL, ClientID: "app", RefreshToken: refresh})
		return b
	}

	t.Run("success rotates refresh token", func(t *testing.T) {
		store := NewMemoryStore()
		r := NewTokenRefresher(ts.Client(), store)

		tok, err := r.Refresh(t.Context(), stateFor("good"))
		if err != nil {
			t.Fatalf("refresh: %v", err)
		}
		if tok != "new-access" {
			t.Errorf("exp token %q, got %q", "new-access", tok)
		}

		raw, ok := store.AuthState()
		if !ok {
			t.Fatal("expected persisted auth state")
		}
		var st State
		if err := json.Unmarshal(raw, &st); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		exp := State{TokenURL: ts.URL, ClientID: "app", RefreshToken: "rotated", AccessToken: "new-access"}
		if diff := cmp.Diff(exp, st); diff != "" {
			t.Errorf("state mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("refresh token kept without rotation", func(t *testing.T) {
		store := NewMemoryStore()
		r := NewTokenRefresher(ts.Client(), store)

		tok, err := r.Refresh(t.Context(), stateFor("stable"))
		if err != nil {
			t.Fatalf("refresh: %v", err)
		}
		if tok != "form-access" {
			t.Errorf("exp token %q, got %q", "form-access", tok)
		}

		raw, _ := store.AuthState()
		var st State
		if err := json.Unmarshal(raw, &st); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if st.RefreshToken != "stable" {
			t.Errorf("exp refresh token %q, got %q", "stable", st.RefreshToken)
		}
	})

	t.Run("missing access token", func(t *testing.T) {
		store := NewMemoryStore()
		r := NewTokenRefresher(ts.Client(), store)

		if _, err := r.Refresh(t.Context(), stateFor("empty")); err == nil {
			t.Fatal("expected an error")
		}
		if _, ok := store.AuthState(); ok {
			t.Error("auth state must not be written on failure")
		}
	})

	t.Run("rejected", func(t *testing.T) {
		r := NewTokenRefresher(ts.Client(), nil)

		_, err := r.Refresh(t.Context(), stateFor("bad"))
		var rerr *RefreshError
		if !errors.As(err, &rerr) {
			t.Fatalf("exp *RefreshError, got %T: %v", err, err)
		}
		if rerr.StatusCode != http.StatusUnauthorized {
			t.Errorf("exp status 401, got %d", rerr.StatusCode)
		}
		if !errors.Is(err, ErrRefreshRejected) {
			t.Errorf("exp ErrRefreshRejected, got %v", err)
		}
	})

	t.Run("missing state", func(t *testing.T) {
		r := NewTokenRefresher(nil, nil)
		if _, err := r.Refresh(t.Context(), nil); !errors.Is(err, ErrNoAuthState) {
			t.Errorf("exp ErrNoAuthState, got %v", err)
		}
	})
}

func TestRenewer_Renew(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	newExp := now.Add(time.Hour).Truncate(time.Second)

	testCases := []struct {
		name       string
		expiry     time.Time
		state      []byte
		current    string
		refreshed  func(t *testing.T) string
		refreshErr error
		exp        Outcome
		wantCalls  int
		wantToken  string
		wantExpiry time.Time
	}{
		{
			name:      "no expiry stored",
			exp:       Skipped,
			wantToken: "",
		},
		{
			name:       "expiry far away",
			expiry:     now.Add(10 * time.Minute),
			state:      []byte("s"),
			current:    "old",
			exp:        Skipped,
			wantToken:  "old",
			wantExpiry: now.Add(10 * time.Minute),
		},
		{
			name:       "due without auth state",
			expiry:     now.Add(time.Minute),
			current:    "old",
			exp:        Skipped,
			wantToken:  "old",
			wantExpiry: now.Add(time.Minute),
		},
		{
			name:       "refresh fails",
			expiry:     now.Add(2 * time.Minute),
			state:      []byte("s"),
			current:    "old",
			refreshErr: errors.New("network down"),
			exp:        Failed,
			wantCalls:  1,
			wantToken:  "old",
			wantExpiry: now.Add(2 * time.Minute),
		},
		{
			name:       "same token",
			expiry:     now.Add(-time.Minute),
			state:      []byte("s"),
			current:    "old",
			refreshed:  func(*testing.T) string { return "old" },
			exp:        Fresh,
			wantCalls:  1,
			wantToken:  "old",
			wantExpiry: now.Add(-time.Minute),
		},
		{
			name:       "new token",
			expiry:     now.Add(90 * time.Second),
			state:      []byte("s"),
			current:    "old",
			refreshed:  func(t *testing.T) string { return signedToken(t, newExp) },
			exp:        Refreshed,
			wantCalls:  1,
			wantExpiry: newExp,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewMemoryStore()
			if !tc.expiry.IsZero() {
				_ = store.SetExpiry(tc.expiry)
			}
			if tc.state != nil {
				_ = store.SetAuthState(tc.state)
			}
			if tc.current != "" {
				_ = store.SetBearerToken(tc.current)
			}

			var calls int
			var issued string
			refresher := RefresherFunc(func(ctx context.Context, state []byte) (string, error) {
				calls++
				if tc.refreshErr != nil {
					return "", tc.refreshErr
				}
				issued = tc.refreshed(t)
				return issued, nil
			})

			r := NewRenewer(store, refresher, WithClock(func() time.Time { return now }))

			got, err := r.Renew(t.Context())
			if got != tc.exp {
				t.Errorf("exp outcome %v, got %v (err: %v)", tc.exp, got, err)
			}
			if tc.exp == Failed && err == nil {
				t.Error("expected informational error")
			}
			if calls != tc.wantCalls {
				t.Errorf("exp %d refresh calls, got %d", tc.wantCalls, calls)
			}

			wantToken := tc.wantToken
			if tc.exp == Refreshed {
				wantToken = issued
			}
			if tok, _ := store.BearerToken(); tok != wantToken {
				t.Errorf("exp token %q, got %q", wantToken, tok)
			}
			if exp, _ := store.Expiry(); !exp.Equal(tc.wantExpiry) {
				t.Errorf("exp expiry %v, got %v", tc.wantExpiry, exp)
			}
		})
	}
}
