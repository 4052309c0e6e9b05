package app

// Config carries the command-line level options for bootstrapping the
// application. The full runtime configuration is loaded during bootstrap;
// these fields only steer how that load happens.
type Config struct {
	// ConfigPath is the configuration directory. Empty means the default
	// user config directory.
	ConfigPath string

	// Debug forces debug-level logging regardless of the configured level.
	Debug bool

	// Silent suppresses all log output. Used by commands that render their
	// own output.
	Silent bool

	// Watch enables hot-reloading of the configuration file.
	Watch bool
}

// NewConfig creates the bootstrap configuration.
func NewConfig(configPath string, debug, silent, watch bool) *Config {
	return &Config{
		ConfigPath: configPath,
		Debug:      debug,
		Silent:     silent,
		Watch:      watch,
	}
}
