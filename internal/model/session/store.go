package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store is the single source of truth for the current session. The in-memory
// copy is a cache of durable state, hydrated once when the store is opened;
// Set and Clear write through.
type Store interface {
	Current() (*Session, bool)
	Set(s *Session) error
	Clear() error
}

// FileStore persists the session as one JSON document on disk. Absence of the
// file means signed-out.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	current *Session
}

// Open hydrates a FileStore from path. A missing file is not an error; a
// corrupt file is discarded so a stale install cannot wedge sign-in.
func Open(path string) (*FileStore, error) {
	st := &FileStore{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil || !s.Valid() {
		_ = os.Remove(path)
		return st, nil
	}

	st.current = &s
	return st, nil
}

// Current returns the cached session without touching disk.
func (st *FileStore) Current() (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if !st.current.Valid() {
		return nil, false
	}
	s := *st.current
	return &s, true
}

// Set replaces the session and persists it as a side effect.
func (st *FileStore) Set(s *Session) error {
	if !s.Valid() {
		return errors.New("refusing to store a session without a token")
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if dir := filepath.Dir(st.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	if err := os.WriteFile(st.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}

	copied := *s
	st.current = &copied
	return nil
}

// Clear drops the session from memory and disk. Clearing an already empty
// store succeeds.
func (st *FileStore) Clear() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.current = nil
	if err := os.Remove(st.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
