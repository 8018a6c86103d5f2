// Package config loads vininsight's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/vininsight/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # TOML Format
//
//	decode_url         = "https://api.auto.dev"
//	feed               = "~/.config/vininsight/fleet.json" # or an http(s) URL
//	refresh_seconds    = 30
//	max_depth          = 64
//	credential_backend = "file"  # file, sqlite, sealed, memory
//	credential_path    = ""      # defaults per backend
//	log_level          = "info"
//	log_format         = "console"
//	log_file           = "~/.local/state/vininsight/vininsight.log"
//	metrics_addr       = ""      # e.g. "127.0.0.1:9464"; empty disables
//
// Tilde expansion is applied to every path. Choosing a credential_backend
// without a credential_path selects that backend's default location.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than
// os.ErrNotExist, TOML parse errors and unknown credential backends.
package config
