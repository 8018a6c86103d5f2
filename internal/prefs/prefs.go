// Package prefs persists the UI choices that survive a restart: the colour
// theme and the panel that was open last. They live in
// ~/.config/vininsight/prefs.toml unless another path is given.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/vininsight/internal/config"
	"github.com/five82/vininsight/internal/view"
)

// Prefs holds user preferences.
type Prefs struct {
	Theme string     `toml:"theme"`
	Panel view.Panel `toml:"panel"`
}

const (
	defaultPrefsPath = "~/.config/vininsight/prefs.toml"
	defaultTheme     = "Dracula"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Defaults returns the preferences used before anything was saved.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme, Panel: view.PanelOverview}
}

// Load reads preferences from path. It always returns usable preferences:
// a missing file yields Defaults and a nil error, while an unreadable or
// malformed file yields Defaults together with the error for logging.
func Load(path string) (Prefs, error) {
	data, err := os.ReadFile(resolve(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return Defaults(), fmt.Errorf("read prefs: %w", err)
	}

	p := Defaults()
	if err := toml.Unmarshal(data, &p); err != nil {
		return Defaults(), fmt.Errorf("parse prefs: %w", err)
	}
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	return p, nil
}

// Save writes p to path through a temporary file, so a crash mid-write never
// leaves a truncated prefs file behind.
func Save(path string, p Prefs) error {
	resolved := resolve(path)
	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("create temp prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

func resolve(path string) string {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	return config.ExpandLocation(path)
}
