// Package settings stores per-user localesync credentials.
//
// API keys are kept in the XDG data directory:
//
//	$XDG_DATA_HOME/localesync/auth.json  (default: ~/.local/share/localesync/)
//
// The file is a JSON object keyed by provider ID:
//
//	{"siliconflow": {"key": "sk-…"}, "my-gateway": {"key": "…", "baseUrl": "http://…"}}
//
// File permissions are 0600 (owner read/write only).
//
// Lookup order for API keys:
//  1. --api-key flag (highest priority)
//  2. LOCALESYNC_API_KEY environment variable (or .env)
//  3. api_key in .localesync.yaml
//  4. This credential store
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"
)

const (
	appName  = "localesync"
	authFile = "auth.json"
)

// Info is the entry stored per provider.
type Info struct {
	Key string `json:"key"`
	// BaseURL is remembered for custom endpoints.
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds all provider credentials, keyed by provider ID.
type Store map[string]*Info

// Key returns the API key stored for id, or "".
func (s Store) Key(id string) string {
	if info := s[id]; info != nil {
		return info.Key
	}
	return ""
}

// BaseURL returns the endpoint stored for id, or "".
func (s Store) BaseURL(id string) string {
	if info := s[id]; info != nil {
		return info.BaseURL
	}
	return ""
}

// IDs returns the provider IDs with stored credentials, sorted.
func (s Store) IDs() []string {
	ids := make([]string, 0, len(s))
	for id, info := range s {
		if info != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ---------------------------------------------------------------------------
// Location
// ---------------------------------------------------------------------------

// DataDir returns $XDG_DATA_HOME/localesync, falling back to
// ~/.local/share/localesync.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

func authPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, authFile), nil
}

// FilePath returns the auth.json path for display, or "" when no home
// directory can be found.
func FilePath() string {
	p, _ := authPath()
	return p
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

// Load reads the store. A missing or unreadable file is an empty store.
func Load() Store {
	store := make(Store)
	path, err := authPath()
	if err != nil {
		return store
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return store
	}
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save replaces auth.json with store through a temp file, keeping mode
// 0600.
func Save(store Store) error {
	path, err := authPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

// SetAPIKey stores key, and baseURL when not empty, for a provider.
func SetAPIKey(providerID, key, baseURL string) error {
	store := Load()
	store[providerID] = &Info{Key: key, BaseURL: baseURL}
	return Save(store)
}

// GetAPIKey returns the stored key for a provider, or "".
func GetAPIKey(providerID string) string {
	return Load().Key(providerID)
}

// GetBaseURL returns the stored endpoint for a provider, or "".
func GetBaseURL(providerID string) string {
	return Load().BaseURL(providerID)
}

// Remove forgets one provider. Unknown IDs are not an error.
func Remove(providerID string) error {
	store := Load()
	if _, ok := store[providerID]; !ok {
		return nil
	}
	delete(store, providerID)
	return Save(store)
}

// RemoveAll deletes auth.json.
func RemoveAll() error {
	path, err := authPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// MaskKey shows the first and last four characters of key.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
