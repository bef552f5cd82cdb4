package config

// Watcher enables live configuration updates
type Watcher interface {
	// Watch starts watching the configuration file for changes.
	// The callback receives the rebuilt configuration after every change.
	Watch(callback func(*Config)) error
	// Close stops watching.
	Close() error
}

// Option defines a configuration option that can be passed to NewLoader
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
	args       []string
	argsSet    bool
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "CLICKCTL"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		o.envPrefix = prefix
		return nil
	}
}

// WithArgs replaces os.Args[1:] as the command line to parse.
func WithArgs(args []string) Option {
	return func(o *options) error {
		o.args = args
		o.argsSet = true
		return nil
	}
}

// Mode names accepted in the configuration.
const (
	ModeHold   = "hold"
	ModeToggle = "toggle"
)
