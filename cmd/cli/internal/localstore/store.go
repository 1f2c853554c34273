// Package localstore keeps the CLI's session between invocations the way a
// browser keeps it in local storage: string values under string keys.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/parking/internal/guard"
)

const fileName = "storage.json"

// document is the on-disk format.
type document struct {
	Version   int               `json:"version"`
	Items     map[string]string `json:"items"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Store is a file-backed key/value store.
type Store struct {
	baseDir string
	mu      sync.Mutex
}

// NewStore creates a new store rooted at baseDir.
// If baseDir is empty, uses ~/.parking/storage/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".parking", "storage")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("local storage initialized")

	return &Store{baseDir: baseDir}, nil
}

// Path returns the storage file location.
func (s *Store) Path() string {
	return filepath.Join(s.baseDir, fileName)
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", false, err
	}

	value, ok := doc.Items[key]
	return value, ok, nil
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	return s.update(func(items map[string]string) {
		items[key] = value
	})
}

// SetAll stores several values in one write.
func (s *Store) SetAll(values map[string]string) error {
	return s.update(func(items map[string]string) {
		maps.Copy(items, values)
	})
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(keys ...string) error {
	return s.update(func(items map[string]string) {
		for _, key := range keys {
			delete(items, key)
		}
	})
}

// Clear deletes every key.
func (s *Store) Clear() error {
	return s.update(func(items map[string]string) {
		clear(items)
	})
}

// Session reads the token and user keys into a guard session. It never
// fails on malformed stored data, only on an unreadable file.
func (s *Store) Session() (guard.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return guard.Session{}, err
	}

	return guard.ParseSession(doc.Items[guard.TokenKey], doc.Items[guard.UserKey]), nil
}

func (s *Store) update(fn func(items map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	fn(doc.Items)
	doc.UpdatedAt = time.Now().UTC()

	return s.save(doc)
}

// load reads the storage file, a missing file is an empty store.
func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &document{Version: 1, Items: make(map[string]string)}, nil
		}
		return nil, fmt.Errorf("failed to read storage: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse storage: %w", err)
	}

	// Ensure items map is initialized
	if doc.Items == nil {
		doc.Items = make(map[string]string)
	}

	return &doc, nil
}

// save writes the storage file atomically.
func (s *Store) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	// Write to temp file first
	path := s.Path()
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save storage: %w", err)
	}

	return nil
}
