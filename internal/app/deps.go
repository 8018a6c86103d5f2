package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/five82/vininsight/internal/autodev"
	"github.com/five82/vininsight/internal/config"
	"github.com/five82/vininsight/internal/credential"
	"github.com/five82/vininsight/internal/fleet"
	"github.com/five82/vininsight/internal/logging"
	"github.com/five82/vininsight/internal/metrics"
	"github.com/five82/vininsight/internal/prefs"
	"github.com/five82/vininsight/internal/state"
)

// Options configure the VIN Insight application.
type Options struct {
	ConfigPath   string
	PrefsPath    string        // empty uses default ~/.config/vininsight/prefs.toml
	Feed         string        // overrides the configured feed location
	RefreshEvery time.Duration // zero uses the configured interval
	// Logging overrides the configured log options when non-nil.
	Logging *logging.Options
	// Passphrase unlocks the sealed credential backend.
	Passphrase func() ([]byte, error)
}

// Deps holds everything the TUI and the CLI subcommands share.
type Deps struct {
	Config      config.Config
	Prefs       prefs.Prefs
	PrefsPath   string
	Log         logging.Logger
	Metrics     *metrics.Metrics
	Client      *autodev.Client
	Credentials credential.Store
	Loader      fleet.Loader
	Store       *state.Store
}

// Build loads configuration and constructs the shared dependencies. The
// caller must Close the result.
func Build(ctx context.Context, opts Options) (*Deps, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Feed != "" {
		cfg.Feed = config.ExpandLocation(opts.Feed)
	}
	if opts.RefreshEvery > 0 {
		cfg.RefreshInterval = opts.RefreshEvery
	}

	userPrefs, prefsErr := prefs.Load(opts.PrefsPath)

	logOpts := opts.Logging
	if logOpts == nil {
		logOpts = &logging.Options{
			Level:       cfg.LogLevel,
			Format:      cfg.LogFormat,
			OutputPaths: []string{cfg.LogFile},
		}
	}
	logOpts.Name = "vininsight"
	log, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if prefsErr != nil {
		log.Warn("using default preferences", prefsErr)
	}

	m := metrics.New()
	client, err := autodev.NewClient(cfg.DecodeURL, autodev.WithObserver(m.ObserveDecode))
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("init decode client: %w", err)
	}

	creds, err := credential.Open(ctx, credential.Options{
		Backend:    cfg.CredentialBackend,
		Path:       cfg.CredentialPath,
		Passphrase: opts.Passphrase,
	})
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	source, err := fleet.NewSource(cfg.Feed)
	if err != nil {
		_ = credential.Close(creds)
		_ = log.Sync()
		return nil, fmt.Errorf("init vehicle feed: %w", err)
	}

	log.Info("dependencies ready",
		"feed", source.String(),
		"decode_url", cfg.DecodeURL,
		"credential_backend", cfg.CredentialBackend,
		"refresh", cfg.RefreshInterval,
	)

	return &Deps{
		Config:      cfg,
		Prefs:       userPrefs,
		PrefsPath:   opts.PrefsPath,
		Log:         log,
		Metrics:     m,
		Client:      client,
		Credentials: creds,
		Loader:      fleet.Loader{Source: source, MaxDepth: cfg.MaxDepth},
		Store:       &state.Store{},
	}, nil
}

// Close releases the credential store and flushes the logger.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if err := credential.Close(d.Credentials); err != nil {
		errs = append(errs, fmt.Errorf("close credential store: %w", err))
	}
	if d.Log != nil {
		// Sync on stderr returns EINVAL on some platforms; nothing to act on.
		_ = d.Log.Sync()
	}
	return errors.Join(errs...)
}

// Poller returns a poller feeding d.Store from d.Loader.
func (d *Deps) Poller() *Poller {
	return &Poller{
		Loader:   d.Loader,
		Store:    d.Store,
		Metrics:  d.Metrics,
		Log:      d.Log.WithName("poller"),
		Interval: d.Config.RefreshInterval,
	}
}
