package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Storage persists the session token and the notification list between runs
// in a single JSON file.
type Storage struct {
	path string
	now  func() time.Time

	mu   sync.Mutex
	data storedState
}

type storedState struct {
	Token         string         `json:"token,omitempty"`
	Notifications []Notification `json:"notifications"`
}

// OpenStorage loads path, starting empty when the file does not exist.
func OpenStorage(path string) (*Storage, error) {
	s := &Storage{path: path, now: time.Now}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read storage: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("decode storage %s: %w", path, err)
	}
	return s, nil
}

// DefaultStoragePath is the file used when none is configured.
func DefaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "facility-monitor", "dashboard.json")
}

// Token returns the stored token unless it has expired.
func (s *Storage) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Token == "" || tokenExpired(s.data.Token, s.now()) {
		return ""
	}
	return s.data.Token
}

func (s *Storage) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Token = token
	return s.save()
}

func (s *Storage) ClearToken() error {
	return s.SetToken("")
}

func (s *Storage) AddNotification(n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Notifications = append([]Notification{n}, s.data.Notifications...)
	return s.save()
}

// Notifications returns the list newest first.
func (s *Storage) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.data.Notifications...)
}

func (s *Storage) ClearNotifications() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Notifications = nil
	return s.save()
}

func (s *Storage) save() error {
	if s.data.Notifications == nil {
		s.data.Notifications = []Notification{}
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write storage: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// tokenExpired reads exp without verifying the signature; the server still
// verifies every request.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}
