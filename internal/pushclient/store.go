package pushclient

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// CachedToken is the durable on-disk record of the last acquired token.
// InstallationID is generated once per install and survives token
// refreshes.
type CachedToken struct {
	InstallationID string    `json:"installation_id"`
	Token          string    `json:"token"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TokenStore persists the cached token as a JSON file.
type TokenStore struct {
	dir string
}

// NewTokenStore creates a store rooted at the given directory.
func NewTokenStore(dir string) *TokenStore {
	return &TokenStore{dir: dir}
}

// Load reads the cached token from disk. Returns (nil, nil) if no cache exists.
func (s *TokenStore) Load() (*CachedToken, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // no cache is not an error
		}
		return nil, err
	}

	var cached CachedToken
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

// Save writes the cached token to disk, creating directories as needed.
func (s *TokenStore) Save(cached *CachedToken) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path(), data, 0644)
}

// Invalidate removes the cache file.
func (s *TokenStore) Invalidate() error {
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *TokenStore) path() string {
	return filepath.Join(s.dir, "push_token.json")
}
