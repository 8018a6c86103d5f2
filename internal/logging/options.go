package logging

import "github.com/spf13/pflag"

// Options configure New.
type Options struct {
	Name          string
	Level         string
	Format        string
	DisableCaller bool
	// OutputPaths accepts "stdout", "stderr" or file paths.
	OutputPaths []string
}

// NewOptions returns console output at info level on stderr.
func NewOptions() *Options {
	return &Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{"stderr"},
	}
}

// AddFlags binds the options to fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Level, "log-level", o.Level, "Minimum log level (debug, info, warn, error).")
	fs.StringVar(&o.Format, "log-format", o.Format, "Log encoding ('console' or 'json').")
	fs.BoolVar(&o.DisableCaller, "log-disable-caller", o.DisableCaller, "Omit the caller field from log entries.")
	fs.StringSliceVar(&o.OutputPaths, "log-output", o.OutputPaths, "Log destinations ('stdout', 'stderr' or file paths).")
}
