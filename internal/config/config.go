package config

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/clickctl/internal/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName       = "clickctl"
	configType       = "toml"
	defaultEnvPrefix = "CLICKCTL"

	defaultRefreshHz      = 8
	defaultBatchSize      = 30
	defaultFlushInterval  = 10 * time.Second
	defaultSampleInterval = time.Second
)

type Config struct {
	Mode        string
	StartPaused bool
	Timing      Timing
	UI          UIConfig
	Hotkeys     HotkeyConfig
	Metrics     MetricsConfig
	Log         LogConfig
	Debug       bool
	Verbose     bool
	Watch       bool

	// File is the configuration file that was read, empty if none.
	File string
	// Warnings lists every value that was replaced by its default or clamped.
	Warnings []string
}

type UIConfig struct {
	Enabled   bool
	RefreshHz int
}

// Interval is the status refresh period.
func (u UIConfig) Interval() time.Duration {
	return time.Second / time.Duration(max(1, u.RefreshHz))
}

type HotkeyConfig struct {
	ToggleLeft  string
	ToggleRight string
	SwitchMode  string
	PauseResume string
	Quit        string
}

type MetricsConfig struct {
	Enabled        bool
	DBPath         string
	BatchSize      int
	FlushInterval  time.Duration
	SampleInterval time.Duration
}

type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Default returns the configuration used when no file, flag or environment
// variable overrides a value.
func Default() *Config {
	return &Config{
		Mode:   ModeHold,
		Timing: DefaultTiming(),
		UI: UIConfig{
			Enabled:   true,
			RefreshHz: defaultRefreshHz,
		},
		Hotkeys: HotkeyConfig{
			ToggleLeft:  "f6",
			ToggleRight: "f7",
			SwitchMode:  "f8",
			PauseResume: "f9",
			Quit:        "esc",
		},
		Metrics: MetricsConfig{
			DBPath:         defaultMetricsPath(),
			BatchSize:      defaultBatchSize,
			FlushInterval:  defaultFlushInterval,
			SampleInterval: defaultSampleInterval,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

var _ Watcher = (*Loader)(nil)

// Loader reads configuration from file, environment and flags. It can be
// asked to reload, which is how settings are re-applied at runtime.
type Loader struct {
	mu    sync.Mutex
	v     *viper.Viper
	flags *pflag.FlagSet
	opts  options

	watcher   *fsnotify.Watcher
	watchDone chan struct{}
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"mode":       "mode",
	"min-cps":    "min_cps",
	"max-cps":    "max_cps",
	"paused":     "start_paused",
	"debug":      "debug",
	"verbose":    "verbose",
	"watch":      "watch",
	"metrics":    "metrics.enabled",
	"metrics-db": "metrics.db_path",
	"log-file":   "log.file",
}

// NewLoader parses the command line and prepares the configuration sources.
// Only command line errors are returned; everything else is recovered when
// the configuration is built.
func NewLoader(opts ...Option) (*Loader, error) {
	errFactory := errors.New()

	o := options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
		}
	}
	if !o.argsSet {
		o.args = os.Args[1:]
	}

	flags := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	configFlag := flags.StringP("config", "c", "", "Path to configuration file")
	flags.String("mode", ModeHold, "Initial mode: hold or toggle")
	flags.Float64("min-cps", 0, "Minimum clicks per second")
	flags.Float64("max-cps", 0, "Maximum clicks per second")
	flags.Bool("paused", false, "Start paused")
	flags.Bool("no-ui", false, "Disable the status line")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.Bool("watch", false, "Re-apply settings when the configuration file changes")
	flags.Bool("metrics", false, "Record session metrics")
	flags.String("metrics-db", "", "Path to the metrics database")
	flags.String("log-file", "", "Also write logs to this file")

	if err := flags.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
	}

	if *configFlag != "" {
		o.configPath = *configFlag
	}
	if o.configPath == "" {
		o.configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	v := viper.New()
	v.SetConfigType(configType)
	if o.configPath != "" {
		v.SetConfigFile(o.configPath)
	} else {
		v.SetConfigName(configName)
		for _, dir := range searchPaths() {
			v.AddConfigPath(dir)
		}
	}
	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, flags: flags, opts: o}, nil
}

// Load is a shorthand for NewLoader followed by Loader.Load.
func Load(opts ...Option) (*Config, error) {
	l, err := NewLoader(opts...)
	if err != nil {
		return nil, err
	}

	return l.Load(), nil
}

// Load (re)reads the configuration file and builds a normalized Config.
// Missing or malformed input is replaced by defaults and reported in
// Config.Warnings.
func (l *Loader) Load() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()

	var warnings []string
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			readErr := errors.New().Wrap(errors.ErrReadConfig, err)
			warnings = append(warnings, readErr.Error()+"; using defaults")
		}
	}

	l.applyFlags()

	cfg := l.build()
	cfg.Warnings = append(warnings, cfg.Warnings...)

	return cfg
}

// Watch re-applies the configuration whenever the file in use changes. Every
// reread goes through Load, so it is serialized with explicit reloads.
// Close stops watching.
func (l *Loader) Watch(callback func(*Config)) error {
	errFactory := errors.New()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher != nil {
		return errFactory.WithMessage(errors.ErrWatchConfig, "already watching")
	}
	file := l.v.ConfigFileUsed()
	if file == "" {
		return errFactory.WithMessage(errors.ErrWatchConfig, "no configuration file in use")
	}
	if _, err := os.Stat(file); err != nil {
		return errFactory.Wrap(errors.ErrWatchConfig, err)
	}
	file, err := filepath.Abs(file)
	if err != nil {
		return errFactory.Wrap(errors.ErrWatchConfig, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errFactory.Wrap(errors.ErrWatchConfig, err)
	}
	// Watch the directory so editors that replace the file are noticed.
	if err := w.Add(filepath.Dir(file)); err != nil {
		w.Close()
		return errFactory.Wrap(errors.ErrWatchConfig, err)
	}

	l.watcher = w
	l.watchDone = make(chan struct{})
	go l.watch(w, file, callback, l.watchDone)

	return nil
}

func (l *Loader) watch(w *fsnotify.Watcher, file string, callback func(*Config), done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != file {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			callback(l.Load())
		case _, ok := <-w.Errors:
			// Dropped events are picked up by the next change or SIGHUP.
			if !ok {
				return
			}
		}
	}
}

// Close stops a running Watch. It is a no-op when not watching.
func (l *Loader) Close() error {
	l.mu.Lock()
	w, done := l.watcher, l.watchDone
	l.watcher, l.watchDone = nil, nil
	l.mu.Unlock()

	if w == nil {
		return nil
	}

	err := w.Close()
	<-done
	if err != nil {
		return errors.New().Wrap(errors.ErrWatchConfig, err)
	}

	return nil
}

// applyFlags copies explicitly set flags over file and environment values.
func (l *Loader) applyFlags() {
	l.flags.Visit(func(f *pflag.Flag) {
		if f.Name == "no-ui" {
			if f.Value.String() == "true" {
				l.v.Set("ui.enabled", false)
			}
			return
		}
		if key, ok := flagKeys[f.Name]; ok {
			l.v.Set(key, f.Value.String())
		}
	})
}

func (l *Loader) build() *Config {
	def := Default()
	r := &reader{v: l.v}

	cfg := &Config{
		Mode:        r.mode("mode", def.Mode),
		StartPaused: r.boolean("start_paused", def.StartPaused),
		Timing: Timing{
			MinRate:          r.float("min_cps", def.Timing.MinRate),
			MaxRate:          r.float("max_cps", def.Timing.MaxRate),
			MicroPauseEvery:  r.integer("micro_pause_every", def.Timing.MicroPauseEvery),
			MicroPauseMinMs:  r.integer("micro_pause_ms_min", def.Timing.MicroPauseMinMs),
			MicroPauseMaxMs:  r.integer("micro_pause_ms_max", def.Timing.MicroPauseMaxMs),
			ExtraJitterMinMs: r.integer("extra_jitter_ms_min", def.Timing.ExtraJitterMinMs),
			ExtraJitterMaxMs: r.integer("extra_jitter_ms_max", def.Timing.ExtraJitterMaxMs),
		},
		UI: UIConfig{
			Enabled:   r.boolean("ui.enabled", def.UI.Enabled),
			RefreshHz: r.integer("ui.refresh_hz", def.UI.RefreshHz),
		},
		Hotkeys: HotkeyConfig{
			ToggleLeft:  r.key("hotkeys.toggle_left", def.Hotkeys.ToggleLeft),
			ToggleRight: r.key("hotkeys.toggle_right", def.Hotkeys.ToggleRight),
			SwitchMode:  r.key("hotkeys.switch_mode", def.Hotkeys.SwitchMode),
			PauseResume: r.key("hotkeys.pause_resume", def.Hotkeys.PauseResume),
			Quit:        r.key("hotkeys.quit", def.Hotkeys.Quit),
		},
		Metrics: MetricsConfig{
			Enabled:        r.boolean("metrics.enabled", def.Metrics.Enabled),
			DBPath:         r.str("metrics.db_path", def.Metrics.DBPath),
			BatchSize:      r.integer("metrics.batch_size", def.Metrics.BatchSize),
			FlushInterval:  r.seconds("metrics.flush_interval", def.Metrics.FlushInterval),
			SampleInterval: r.seconds("metrics.sample_interval", def.Metrics.SampleInterval),
		},
		Log: LogConfig{
			File:       r.str("log.file", def.Log.File),
			MaxSizeMB:  r.integer("log.max_size", def.Log.MaxSizeMB),
			MaxBackups: r.integer("log.max_backups", def.Log.MaxBackups),
			MaxAgeDays: r.integer("log.max_age", def.Log.MaxAgeDays),
		},
		Debug:   r.boolean("debug", false),
		Verbose: r.boolean("verbose", false),
		Watch:   r.boolean("watch", false),
		File:    l.v.ConfigFileUsed(),
	}

	cfg.Timing = cfg.Timing.Normalize()

	if cfg.UI.RefreshHz < 1 {
		r.warnf("ui.refresh_hz", cfg.UI.RefreshHz, "must be at least 1")
		cfg.UI.RefreshHz = 1
	}
	if cfg.Metrics.BatchSize < 1 {
		r.warnf("metrics.batch_size", cfg.Metrics.BatchSize, "must be at least 1")
		cfg.Metrics.BatchSize = def.Metrics.BatchSize
	}
	if cfg.Metrics.SampleInterval <= 0 {
		cfg.Metrics.SampleInterval = def.Metrics.SampleInterval
	}
	if cfg.Metrics.FlushInterval <= 0 {
		cfg.Metrics.FlushInterval = def.Metrics.FlushInterval
	}

	cfg.Warnings = r.warnings

	return cfg
}

// reader converts raw values and falls back to defaults per field.
type reader struct {
	v        *viper.Viper
	warnings []string
}

func (r *reader) warnf(key string, value any, reason string) {
	err := errors.New().WithData(errors.ErrInvalidValue, fmt.Sprintf("%s=%v (%s)", key, value, reason))
	r.warnings = append(r.warnings, err.Error())
}

func (r *reader) float(key string, def float64) float64 {
	if !r.v.IsSet(key) {
		return def
	}
	raw := r.v.Get(key)
	val, err := cast.ToFloat64E(raw)
	if err != nil {
		r.warnf(key, raw, "not a number")
		return def
	}
	if math.IsNaN(val) || math.IsInf(val, 0) {
		r.warnf(key, raw, "not a finite number")
		return def
	}

	return val
}

func (r *reader) integer(key string, def int) int {
	if !r.v.IsSet(key) {
		return def
	}
	raw := r.v.Get(key)
	val, err := cast.ToFloat64E(raw)
	if err != nil {
		r.warnf(key, raw, "not a number")
		return def
	}
	if math.IsNaN(val) || val < math.MinInt32 || val > math.MaxInt32 {
		r.warnf(key, raw, "out of range")
		return def
	}

	return int(val)
}

func (r *reader) boolean(key string, def bool) bool {
	if !r.v.IsSet(key) {
		return def
	}
	raw := r.v.Get(key)
	val, err := cast.ToBoolE(raw)
	if err != nil {
		r.warnf(key, raw, "not a boolean")
		return def
	}

	return val
}

func (r *reader) str(key, def string) string {
	if !r.v.IsSet(key) {
		return def
	}
	raw := r.v.Get(key)
	val, err := cast.ToStringE(raw)
	if err != nil {
		r.warnf(key, raw, "not a string")
		return def
	}

	return strings.TrimSpace(val)
}

func (r *reader) key(key, def string) string {
	val := strings.ToLower(r.str(key, def))
	if val == "" {
		r.warnf(key, val, "empty key name")
		return def
	}

	return val
}

func (r *reader) mode(key, def string) string {
	val := strings.ToLower(r.str(key, def))
	switch val {
	case ModeHold, ModeToggle:
		return val
	default:
		r.warnf(key, val, "expected hold or toggle")
		return def
	}
}

func (r *reader) seconds(key string, def time.Duration) time.Duration {
	val := r.float(key, def.Seconds())

	return time.Duration(val * float64(time.Second))
}

func searchPaths() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, configName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", configName))
	}

	return append(dirs, "/etc")
}

func defaultMetricsPath() string {
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, configName, "metrics.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", configName, "metrics.db")
	}

	return filepath.Join(os.TempDir(), configName, "metrics.db")
}
