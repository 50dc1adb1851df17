// Package store provides implementations of the persistent state
// collaborator: a durable JSON-file store and an in-memory store for tests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// ErrNotFound is returned by Load when a collection has never been saved.
var ErrNotFound = errors.New("collection not found")

var collectionNameRe = regexp.MustCompile(`^[a-z0-9_-]+$`)

// FileStore persists each collection as one JSON document under a base
// directory. Writes go through a temp file and rename so a crash mid-write
// never leaves a truncated collection behind. A per-collection mutex
// serializes the read-modify-write sequences the engine performs.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates the base directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Load reads a collection document into v. A collection that was never
// saved yields ErrNotFound so callers can start from an empty state.
func (s *FileStore) Load(ctx context.Context, collection string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(collection)
	if err != nil {
		return err
	}
	lock := s.lock(collection)
	lock.Lock()
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, collection)
		}
		return fmt.Errorf("read collection %s: %w", collection, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode collection %s: %w", collection, err)
	}
	return nil
}

// Save overwrites the whole collection document.
func (s *FileStore) Save(ctx context.Context, collection string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(collection)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", collection, err)
	}

	lock := s.lock(collection)
	lock.Lock()
	defer lock.Unlock()

	tmp, err := os.CreateTemp(s.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write collection %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace collection %s: %w", collection, err)
	}
	return nil
}

func (s *FileStore) path(collection string) (string, error) {
	if !collectionNameRe.MatchString(collection) {
		return "", fmt.Errorf("invalid collection name %q", collection)
	}
	return filepath.Join(s.dir, collection+".json"), nil
}

func (s *FileStore) lock(collection string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		s.locks[collection] = l
	}
	return l
}
