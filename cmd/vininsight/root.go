package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/five82/vininsight/internal/app"
	"github.com/five82/vininsight/internal/logging"
)

// readPassword is swapped out in tests so they never touch the terminal.
var readPassword = term.ReadPassword

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	configPath string
	prefsPath  string
	feed       string
	refresh    time.Duration
	log        *logging.Options
}

// NewRootCommand builds the vininsight command tree. Without a subcommand it
// starts the terminal UI.
func NewRootCommand(ctx context.Context) *cobra.Command {
	opts := &rootOptions{log: logging.NewOptions()}

	cmd := &cobra.Command{
		Use:   "vininsight",
		Short: "Browse a vehicle fleet and decode VINs",
		Long: `VIN Insight shows a vehicle feed in a terminal UI and decodes the selected
vehicle's VIN through the auto.dev API.

Run without arguments to start the UI. The subcommands work without a terminal
and share the same configuration and credential store.

Examples:
  vininsight                                  # Start the UI
  vininsight --feed https://fleet.example/v   # Use an HTTP feed
  vininsight decode 1GCHK23224F000000         # Decode one VIN
  vininsight key set                          # Store the API key`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appOpts := opts.appOptions(cmd, false)
			return app.Run(ctx, appOpts)
		},
	}
	cmd.SetContext(ctx)

	fs := cmd.PersistentFlags()
	fs.StringVar(&opts.configPath, "config", "", "Path to config.toml (default ~/.config/vininsight/config.toml).")
	fs.StringVar(&opts.prefsPath, "prefs", "", "Path to prefs.toml (default ~/.config/vininsight/prefs.toml).")
	fs.StringVar(&opts.feed, "feed", "", "Vehicle feed file path or http(s) URL, overriding the config.")
	fs.DurationVar(&opts.refresh, "refresh", 0, "Feed refresh interval, overriding the config.")
	opts.log.AddFlags(fs)

	cmd.AddCommand(
		newDecodeCommand(opts),
		newTestConnectionCommand(opts),
		newKeyCommand(opts),
		newVehiclesCommand(opts),
	)
	return cmd
}

// appOptions translates flags into app.Options. Log flags override the
// configured logger only when set explicitly; one-shot commands default to
// warnings on stderr so their output stays clean.
func (o *rootOptions) appOptions(cmd *cobra.Command, oneShot bool) app.Options {
	appOpts := app.Options{
		ConfigPath:   o.configPath,
		PrefsPath:    o.prefsPath,
		Feed:         o.feed,
		RefreshEvery: o.refresh,
		Passphrase:   promptPassphrase(cmd.ErrOrStderr()),
	}

	flags := cmd.Flags()
	switch {
	case flags.Changed("log-level") || flags.Changed("log-format") || flags.Changed("log-output") || flags.Changed("log-disable-caller"):
		appOpts.Logging = o.log
	case oneShot:
		appOpts.Logging = &logging.Options{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}}
	}
	return appOpts
}

// build constructs the shared dependencies for a one-shot command.
func (o *rootOptions) build(cmd *cobra.Command) (*app.Deps, error) {
	return app.Build(cmd.Context(), o.appOptions(cmd, true))
}

func promptPassphrase(w io.Writer) func() ([]byte, error) {
	return func() ([]byte, error) {
		if _, err := fmt.Fprint(w, "Credential passphrase: "); err != nil {
			return nil, err
		}
		pass, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return nil, err
		}
		return pass, nil
	}
}
