// Package app is the composition root for VIN Insight.
//
// Build loads the TOML configuration and user preferences, sets up the
// zap-backed logger, the metrics registry, the auto.dev decode client, the
// credential store and the vehicle feed loader. The CLI subcommands use the
// resulting Deps directly; Run additionally starts the background pieces and
// blocks on the TUI:
//
//	Run()
//	 ├─> Build()               config, prefs, logger, client, credentials, feed
//	 ├─> Poller.Refresh()      initial load into state.Store
//	 └─> errgroup
//	      ├─> Poller.Run()     periodic reload with backoff
//	      ├─> fleet.Watch()    reload on file change (file feeds only)
//	      ├─> Metrics.Serve()  when metrics_addr is set
//	      └─> ui.Run()         blocks; cancels the group on exit
//
// Feed, watch and metrics failures are logged and never stop the TUI. Only
// configuration, logger, client and credential store failures are fatal.
package app
