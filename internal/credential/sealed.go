package credential

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrBadPassphrase is returned when a sealed file cannot be opened with the
// supplied passphrase.
var ErrBadPassphrase = errors.New("credential passphrase does not match")

const (
	saltSize   = 16
	checkValue = "vininsight"
	checkLabel = "check"

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// SealedStore keeps values encrypted with XChaCha20-Poly1305 under a key
// derived from a passphrase with Argon2id. The key is derived once at open.
type SealedStore struct {
	mu   sync.Mutex
	path string
	aead cipher.AEAD
	file sealedFile
}

type sealedFile struct {
	Salt    string            `toml:"salt"`
	Check   string            `toml:"check"`
	Entries map[string]string `toml:"entries"`
}

// OpenSealed opens the sealed file at path, creating a fresh salt when the
// file does not exist yet.
func OpenSealed(path string, passphrase []byte) (*SealedStore, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("sealed credential backend requires a non-empty passphrase")
	}

	var file sealedFile
	bytes, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read sealed credentials: %w", err)
	default:
		if err := toml.Unmarshal(bytes, &file); err != nil {
			return nil, fmt.Errorf("parse sealed credentials: %w", err)
		}
	}
	if file.Entries == nil {
		file.Entries = make(map[string]string)
	}

	fresh := file.Salt == ""
	var salt []byte
	if fresh {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		file.Salt = base64.StdEncoding.EncodeToString(salt)
	} else {
		salt, err = base64.StdEncoding.DecodeString(file.Salt)
		if err != nil {
			return nil, fmt.Errorf("decode salt: %w", err)
		}
	}

	key := argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	s := &SealedStore{path: path, aead: aead, file: file}
	if fresh || file.Check == "" {
		if s.file.Check, err = s.seal(checkLabel, checkValue); err != nil {
			return nil, err
		}
		return s, nil
	}
	got, err := s.open(checkLabel, file.Check)
	if err != nil || got != checkValue {
		return nil, ErrBadPassphrase
	}
	return s, nil
}

func (s *SealedStore) Get(_ context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, ok := s.file.Entries[name]
	if !ok {
		return "", false, nil
	}
	value, err := s.open(name, sealed)
	if err != nil {
		return "", false, fmt.Errorf("unseal credential[%s]: %w", name, err)
	}
	return value, true, nil
}

func (s *SealedStore) Set(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := s.seal(name, value)
	if err != nil {
		return err
	}
	s.file.Entries[name] = sealed
	return s.flush()
}

func (s *SealedStore) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.file.Entries[name]; !ok {
		return nil
	}
	delete(s.file.Entries, name)
	return s.flush()
}

// seal binds the ciphertext to name so entries cannot be swapped.
func (s *SealedStore) seal(name, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(name))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *SealedStore) open(name, sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) < s.aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ct, []byte(name))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (s *SealedStore) flush() error {
	if err := ensureDir(s.path); err != nil {
		return err
	}
	bytes, err := toml.Marshal(s.file)
	if err != nil {
		return fmt.Errorf("marshal sealed credentials: %w", err)
	}
	if err := os.WriteFile(s.path, bytes, 0o600); err != nil {
		return fmt.Errorf("write sealed credentials: %w", err)
	}
	return nil
}
