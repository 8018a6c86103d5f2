package app

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/five82/vininsight/internal/fleet"
	"github.com/five82/vininsight/internal/ui"
)

// Run boots the VIN Insight TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	deps, err := Build(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close() }()

	poller := deps.Poller()

	// Populate the store before the UI draws its first frame.
	_ = poller.Refresh(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return poller.Run(gctx) })

	if fs, ok := deps.Loader.Source.(*fleet.FileSource); ok {
		log := deps.Log.WithName("watch")
		g.Go(func() error {
			err := fleet.Watch(gctx, fs.Path, func() {
				log.Debug("feed changed", "path", fs.Path)
				_ = poller.Refresh(gctx)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error(err, "feed watch stopped", "path", fs.Path)
			}
			return nil
		})
	}

	if addr := deps.Config.MetricsAddr; addr != "" {
		log := deps.Log.WithName("metrics")
		g.Go(func() error {
			if err := deps.Metrics.Serve(gctx, addr, log); err != nil {
				log.Error(err, "metrics server stopped", "addr", addr)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		return ui.Run(ui.Options{
			Context:     gctx,
			Decoder:     deps.Client,
			Credentials: deps.Credentials,
			Backend:     deps.Config.CredentialBackend,
			Store:       deps.Store,
			Refresh:     poller.Refresh,
			ThemeName:   deps.Prefs.Theme,
			Panel:       deps.Prefs.Panel,
			PrefsPath:   deps.PrefsPath,
			LogPath:     deps.Config.LogFile,
			Logger:      deps.Log,
		})
	})

	return g.Wait()
}
