// Package credential stores the decode service API key behind a small
// get/set/remove contract so the storage medium can be swapped freely.
package credential

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// APIKeyName is the name the API key is stored under.
const APIKeyName = "vininsight_apikey"

// Store is the contract the rest of the application relies on. Get reports
// ok=false when the name has never been set or was removed.
type Store interface {
	Get(ctx context.Context, name string) (value string, ok bool, err error)
	Set(ctx context.Context, name, value string) error
	Remove(ctx context.Context, name string) error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendSealed = "sealed"
	BackendMemory = "memory"
)

// Options select and configure a backend.
type Options struct {
	Backend string
	Path    string
	// Passphrase is consulted only by the sealed backend.
	Passphrase func() ([]byte, error)
}

// Open builds the configured backend. Callers should Close the returned
// store when it implements io.Closer.
func Open(ctx context.Context, opts Options) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendFile
	}
	if backend != BackendMemory && strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("%s credential backend requires a path", backend)
	}

	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(opts.Path), nil
	case BackendSQLite:
		return OpenSQLite(ctx, opts.Path)
	case BackendSealed:
		if opts.Passphrase == nil {
			return nil, fmt.Errorf("sealed credential backend requires a passphrase")
		}
		pass, err := opts.Passphrase()
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		defer wipe(pass)
		return OpenSealed(opts.Path, pass)
	default:
		return nil, fmt.Errorf("unknown credential backend %q", opts.Backend)
	}
}

// Close releases the store if it holds resources.
func Close(store Store) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	return nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
