package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// FileStore keeps values in a TOML table on disk, readable only by the owner.
// Every call re-reads the file so edits from another process are visible.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(_ context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[name]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	values[name] = value
	return s.write(values)
}

func (s *FileStore) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := values[name]; !ok {
		return nil
	}
	delete(values, name)
	return s.write(values)
}

func (s *FileStore) read() (map[string]string, error) {
	values := make(map[string]string)
	bytes, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if err := toml.Unmarshal(bytes, &values); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return values, nil
}

func (s *FileStore) write(values map[string]string) error {
	if err := ensureDir(s.path); err != nil {
		return err
	}
	bytes, err := toml.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.WriteFile(s.path, bytes, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}
