package auth

import (
	"bytes"
	"sync"
	"time"
)

// Store persists credentials. Implementations must be safe for
// concurrent use; all clients sharing a Store observe the same state.
type Store interface {
	BearerToken() (string, bool)
	SetBearerToken(token string) error
	Expiry() (time.Time, bool)
	SetExpiry(exp time.Time) error
	AuthState() ([]byte, bool)
	SetAuthState(state []byte) error
}

// credentials is the value held by the stores in this package.
type credentials struct {
	BearerToken string    `json:"bearer_token,omitempty"`
	Expiry      time.Time `json:"expiry,omitzero"`
	AuthState   []byte    `json:"auth_state,omitempty"`
}

func (c credentials) equal(o credentials) bool {
	return c.BearerToken == o.BearerToken && c.Expiry.Equal(o.Expiry) && bytes.Equal(c.AuthState, o.AuthState)
}

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	creds credentials
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) BearerToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.BearerToken, s.creds.BearerToken != ""
}

func (s *MemoryStore) SetBearerToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.BearerToken = token
	return nil
}

func (s *MemoryStore) Expiry() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Expiry, !s.creds.Expiry.IsZero()
}

func (s *MemoryStore) SetExpiry(exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.Expiry = exp
	return nil
}

func (s *MemoryStore) AuthState() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.creds.AuthState) == 0 {
		return nil, false
	}
	return bytes.Clone(s.creds.AuthState), true
}

func (s *MemoryStore) SetAuthState(state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.AuthState = bytes.Clone(state)
	return nil
}
