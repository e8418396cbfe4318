// Package store persists named state blobs across process restarts.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned when a named blob has never been saved.
var ErrNotFound = errors.New("blob not found")

// Store loads and saves named state blobs.
type Store interface {
	Load(name string) ([]byte, error)
	Save(name string, data []byte) error
}

// DefaultDir returns the default state directory.
func DefaultDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	return filepath.Join(configDir, "groupcheck")
}

// FileStore persists blobs as files in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load reads a named blob, returning ErrNotFound when it does not exist.
func (s *FileStore) Load(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read state blob %q: %w", name, err)
	}
	return data, nil
}

// Save writes a named blob via temp file and rename so a crash mid-write
// never leaves a truncated state file.
func (s *FileStore) Save(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()          //nolint:errcheck,gosec // best effort on error path
		os.Remove(tmpName)   //nolint:errcheck,gosec // best effort on error path
		return fmt.Errorf("write state blob %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec // best effort on error path
		return fmt.Errorf("close state blob %q: %w", name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec // best effort on error path
		return fmt.Errorf("rename state blob %q: %w", name, err)
	}
	return nil
}

// MemStore keeps blobs in memory. Used in tests and for ephemeral runs.
type MemStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

// Load returns a copy of the named blob or ErrNotFound.
func (s *MemStore) Load(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Save stores a copy of the blob.
func (s *MemStore) Save(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[name] = cp
	return nil
}

// Fallback reads from primary first, then secondary; writes go to both,
// and a write succeeds if either layer accepts it.
type Fallback struct {
	Primary   Store
	Secondary Store
}

// Load tries the primary store, then the secondary.
func (f *Fallback) Load(name string) ([]byte, error) {
	data, err := f.Primary.Load(name)
	if err == nil {
		return data, nil
	}
	return f.Secondary.Load(name)
}

// Save writes to both layers.
func (f *Fallback) Save(name string, data []byte) error {
	errPrimary := f.Primary.Save(name, data)
	errSecondary := f.Secondary.Save(name, data)
	if errPrimary != nil && errSecondary != nil {
		return fmt.Errorf("save to both stores failed: %w", errors.Join(errPrimary, errSecondary))
	}
	return nil
}
