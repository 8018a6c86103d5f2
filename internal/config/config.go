package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything vininsight reads from config.toml.
type Config struct {
	DecodeURL         string
	Feed              string
	RefreshInterval   time.Duration
	MaxDepth          int
	CredentialBackend string
	CredentialPath    string
	LogLevel          string
	LogFormat         string
	LogFile           string
	MetricsAddr       string
}

const (
	defaultConfigPath     = "~/.config/vininsight/config.toml"
	defaultDecodeURL      = "https://api.auto.dev"
	defaultFeed           = "~/.config/vininsight/fleet.json"
	defaultRefreshSeconds = 30
	defaultMaxDepth       = 64
	defaultBackend        = "file"
	defaultLogLevel       = "info"
	defaultLogFormat      = "console"
	defaultLogFile        = "~/.local/state/vininsight/vininsight.log"
)

var defaultCredentialPaths = map[string]string{
	"file":   "~/.config/vininsight/credentials.toml",
	"sqlite": "~/.local/share/vininsight/credentials.db",
	"sealed": "~/.config/vininsight/credentials.sealed",
	"memory": "",
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		DecodeURL:         defaultDecodeURL,
		Feed:              mustExpand(defaultFeed),
		RefreshInterval:   defaultRefreshSeconds * time.Second,
		MaxDepth:          defaultMaxDepth,
		CredentialBackend: defaultBackend,
		CredentialPath:    mustExpand(defaultCredentialPaths[defaultBackend]),
		LogLevel:          defaultLogLevel,
		LogFormat:         defaultLogFormat,
		LogFile:           mustExpand(defaultLogFile),
	}
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		DecodeURL         string `toml:"decode_url"`
		Feed              string `toml:"feed"`
		RefreshSeconds    int    `toml:"refresh_seconds"`
		MaxDepth          int    `toml:"max_depth"`
		CredentialBackend string `toml:"credential_backend"`
		CredentialPath    string `toml:"credential_path"`
		LogLevel          string `toml:"log_level"`
		LogFormat         string `toml:"log_format"`
		LogFile           string `toml:"log_file"`
		MetricsAddr       string `toml:"metrics_addr"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if v := strings.TrimSpace(raw.DecodeURL); v != "" {
		cfg.DecodeURL = v
	}
	if v := strings.TrimSpace(raw.Feed); v != "" {
		cfg.Feed = ExpandLocation(v)
	}
	if raw.RefreshSeconds > 0 {
		cfg.RefreshInterval = time.Duration(raw.RefreshSeconds) * time.Second
	}
	if raw.MaxDepth > 0 {
		cfg.MaxDepth = raw.MaxDepth
	}

	if v := strings.ToLower(strings.TrimSpace(raw.CredentialBackend)); v != "" {
		if _, ok := defaultCredentialPaths[v]; !ok {
			return Config{}, fmt.Errorf("parse config: unknown credential_backend %q", raw.CredentialBackend)
		}
		cfg.CredentialBackend = v
		cfg.CredentialPath = mustExpand(defaultCredentialPaths[v])
	}
	if v := strings.TrimSpace(raw.CredentialPath); v != "" {
		cfg.CredentialPath = mustExpand(v)
	}

	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.LogFormat); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	return cfg, nil
}

// ExpandLocation expands a feed path; URLs are returned untouched.
func ExpandLocation(location string) string {
	trimmed := strings.TrimSpace(location)
	if strings.Contains(trimmed, "://") {
		return trimmed
	}
	return mustExpand(trimmed)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	if path == "" {
		return ""
	}
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
