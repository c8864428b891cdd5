package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileStore persists credentials as a JSON document. Every write goes to a
// temp file in the same directory which is then renamed over path, so
// readers never observe a partial document.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	creds credentials
}

// OpenFileStore loads path, treating a missing file as empty credentials.
func OpenFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("credentials path must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := FileStore{
		path:   path,
		logger: logger,
	}

	creds, err := s.read()
	if err != nil {
		return nil, err
	}
	s.creds = creds

	return &s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) BearerToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.BearerToken, s.creds.BearerToken != ""
}

func (s *FileStore) SetBearerToken(token string) error {
	return s.update(func(c *credentials) { c.BearerToken = token })
}

func (s *FileStore) Expiry() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Expiry, !s.creds.Expiry.IsZero()
}

func (s *FileStore) SetExpiry(exp time.Time) error {
	return s.update(func(c *credentials) { c.Expiry = exp })
}

func (s *FileStore) AuthState() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.creds.AuthState) == 0 {
		return nil, false
	}
	return bytes.Clone(s.creds.AuthState), true
}

func (s *FileStore) SetAuthState(state []byte) error {
	return s.update(func(c *credentials) { c.AuthState = bytes.Clone(state) })
}

// Reload re-reads the backing file.
func (s *FileStore) Reload() error {
	creds, err := s.read()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()

	return nil
}

// Watch reloads the store whenever another process rewrites the file and
// blocks until ctx is done.
func (s *FileStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			s.logger.Error("failed to close credentials watcher", "error", err)
		}
	}()

	// The directory is watched because renames replace the file's inode.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(s.path), err)
	}

	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Error("failed to reload credentials", "path", s.path, "error", err)
				continue
			}
			s.logger.Debug("credentials reloaded", "path", s.path)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("credentials watcher", "error", err)
		}
	}
}

func (s *FileStore) read() (credentials, error) {
	var creds credentials

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return creds, nil
	}
	if err != nil {
		return creds, fmt.Errorf("reading credentials: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return creds, nil
	}

	if err := json.Unmarshal(b, &creds); err != nil {
		return creds, fmt.Errorf("decoding credentials: %w", err)
	}

	return creds, nil
}

// update applies fn and persists the result. The in-memory value only
// changes once the file has been replaced.
func (s *FileStore) update(fn func(*credentials)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.creds
	fn(&next)
	if next.equal(s.creds) {
		return nil
	}

	if err := s.write(next); err != nil {
		return err
	}
	s.creds = next

	return nil
}

func (s *FileStore) write(creds credentials) error {
	b, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	file, err := os.CreateTemp(filepath.Dir(s.path), ".gsweb-creds-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	var successful bool
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			s.logger.Error("defer closing temp file", "error", err)
		}
		if !successful {
			if err := os.Remove(file.Name()); err != nil {
				s.logger.Error("failed to remove temp file", "error", err)
			}
		}
	}()

	if err := file.Chmod(0o600); err != nil {
		return fmt.Errorf("restricting temp file: %w", err)
	}
	if _, err := file.Write(b); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(file.Name(), s.path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	successful = true

	return nil
}
