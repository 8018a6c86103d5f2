package credential

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	sqlite, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	sealed, err := OpenSealed(filepath.Join(dir, "sealed.toml"), []byte("hunter2"))
	require.NoError(t, err)

	return map[string]Store{
		BackendMemory: NewMemoryStore(),
		BackendFile:   NewFileStore(filepath.Join(dir, "nested", "credentials.toml")),
		BackendSQLite: sqlite,
		BackendSealed: sealed,
	}
}

func TestStores_Contract(t *testing.T) {
	for name, store := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := store.Get(ctx, APIKeyName)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Set(ctx, APIKeyName, "first"))
			require.NoError(t, store.Set(ctx, APIKeyName, "second"))

			v, ok, err := store.Get(ctx, APIKeyName)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "second", v)

			require.NoError(t, store.Set(ctx, "other", ""))
			v, ok, err = store.Get(ctx, "other")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Empty(t, v)

			require.NoError(t, store.Remove(ctx, APIKeyName))
			require.NoError(t, store.Remove(ctx, APIKeyName))
			_, ok, err = store.Get(ctx, APIKeyName)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestFileStore_PersistsWithOwnerOnlyMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.toml")
	ctx := context.Background()
	require.NoError(t, NewFileStore(path).Set(ctx, APIKeyName, "abc"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	v, ok, err := NewFileStore(path).Get(ctx, APIKeyName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.toml")
	require.NoError(t, os.WriteFile(path, []byte("= broken"), 0o600))

	_, _, err := NewFileStore(path).Get(context.Background(), APIKeyName)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse credentials")
}

func TestSealedStore_ReopenAndWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sealed.toml")
	ctx := context.Background()

	s, err := OpenSealed(path, []byte("correct horse"))
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, APIKeyName, "secret-key"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-key")

	reopened, err := OpenSealed(path, []byte("correct horse"))
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, APIKeyName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "secret-key", v)

	_, err = OpenSealed(path, []byte("wrong"))
	assert.ErrorIs(t, err, ErrBadPassphrase)

	_, err = OpenSealed(path, nil)
	assert.Error(t, err)
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "credentials.sqlite")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, APIKeyName, "k1"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	v, ok, err := s.Get(ctx, APIKeyName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "k1", v)
}

func TestOpen_SelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	assert.NoError(t, Close(s))

	s, err = Open(ctx, Options{Path: filepath.Join(dir, "c.toml")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, Options{Backend: "SQLite", Path: filepath.Join(dir, "c.sqlite")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	assert.NoError(t, Close(s))

	s, err = Open(ctx, Options{
		Backend:    "sealed",
		Path:       filepath.Join(dir, "c.sealed"),
		Passphrase: func() ([]byte, error) { return []byte("pw"), nil },
	})
	require.NoError(t, err)
	assert.IsType(t, &SealedStore{}, s)

	_, err = Open(ctx, Options{Backend: "sealed", Path: filepath.Join(dir, "x")})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: "keychain", Path: filepath.Join(dir, "x")})
	assert.ErrorContains(t, err, "unknown credential backend")

	_, err = Open(ctx, Options{Backend: "file"})
	assert.ErrorContains(t, err, "requires a path")
}
