package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/clickctl/internal/config"
	"codeberg.org/mutker/clickctl/internal/controller"
	"codeberg.org/mutker/clickctl/internal/errors"
	"codeberg.org/mutker/clickctl/internal/hotkey"
	"codeberg.org/mutker/clickctl/internal/input"
	"codeberg.org/mutker/clickctl/internal/input/native"
	"codeberg.org/mutker/clickctl/internal/logger"
	"codeberg.org/mutker/clickctl/internal/metrics"
	"codeberg.org/mutker/clickctl/internal/pid"
	"codeberg.org/mutker/clickctl/internal/state"
	"codeberg.org/mutker/clickctl/internal/status"
	"github.com/spf13/pflag"
)

var (
	loader *config.Loader
	cfg    *config.Config
)

// bannerOrder lists hotkey events in the order they are shown at startup.
var bannerOrder = []struct {
	event  hotkey.Event
	action string
}{
	{hotkey.ToggleLeft, "toggle left"},
	{hotkey.ToggleRight, "toggle right"},
	{hotkey.SwitchMode, "switch mode"},
	{hotkey.PauseResume, "pause/resume"},
	{hotkey.Quit, "quit"},
}

func init() {
	var err error
	loader, err = config.NewLoader()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "failed to parse arguments: %v\n", err)
		os.Exit(2)
	}
	cfg = loader.Load()

	logger.Init(logger.Options{
		Debug:      cfg.Debug,
		Verbose:    cfg.Verbose,
		IsService:  logger.IsService(),
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	for _, w := range cfg.Warnings {
		logger.Warn().Msg(w)
	}
	logger.Debug().Str("file", cfg.File).Msg("Config loaded")
}

func main() {
	if err := input.Available(); err != nil {
		logger.Fatal().Err(err).Msg("Global input is not available")
	}

	pidPath := pid.DefaultPath()
	if err := pid.Write(pidPath); err != nil {
		logger.Fatal().Err(err).Msg("Failed to write PID file")
	}

	err := run()

	if err := pid.Remove(pidPath); err != nil {
		logger.Warn().Err(err).Msg("Failed to remove PID file")
	}
	if err != nil {
		logger.Error().Err(err).Msg("Session ended with error")
		os.Exit(1)
	}
	logger.Info().Msg("Exiting...")
}

func run() error {
	log := logger.Default()

	mode, err := state.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	st := state.New(state.WithMode(mode), state.WithPaused(cfg.StartPaused))
	store := config.NewStore(cfg.Timing)

	keys := hotkey.NewManager(native.LookupKey, log)
	if err := hotkey.BindSession(keys, cfg.Hotkeys, st, log); err != nil {
		return err
	}

	echo := input.NewEchoFilter(nil)
	router := input.NewRouter(native.NewHook(echo), st, keys, log)
	tasks := []controller.Task{router.Run}

	collector, recording := metrics.Open(metrics.Config{
		DBPath:        cfg.Metrics.DBPath,
		BatchSize:     cfg.Metrics.BatchSize,
		FlushInterval: cfg.Metrics.FlushInterval,
		Enabled:       cfg.Metrics.Enabled,
	}, log)
	defer func() {
		if err := collector.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close metrics")
		}
	}()
	if recording {
		sampler := metrics.NewSampler(collector, st, cfg.Metrics.SampleInterval, log)
		log.Info().Str("session_id", sampler.SessionID()).Msg("Recording session metrics")
		tasks = append(tasks, sampler.Run)
	}

	reporter := status.New(st, os.Stdout, cfg.UI.Interval())
	fmt.Fprintln(os.Stdout, reporter.Banner(banner(keys.Chords())))
	if cfg.UI.Enabled {
		tasks = append(tasks, reporter.Run)
	}

	if cfg.Watch {
		if err := loader.Watch(func(c *config.Config) { apply(store, c) }); err != nil {
			log.Warn().Err(err).Msg("Not watching configuration")
		}
		defer func() {
			if err := loader.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to stop configuration watch")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(ctx, st, store)

	controllers := controller.ForChannels(st, store, native.NewInjector(echo), nil, controller.WithLogger(log))

	return controller.NewSession(st, controllers, tasks...).Run(ctx)
}

func handleSignals(ctx context.Context, st *state.ActionState, store *config.Store) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				logger.Info().Msg("Reloading configuration")
				apply(store, loader.Load())
				continue
			}
			logger.Info().Str("signal", sig.String()).Msg("Received termination signal")
			st.Stop()
			return
		}
	}
}

// apply pushes reloaded timing to the running generators.
func apply(store *config.Store, c *config.Config) {
	for _, w := range c.Warnings {
		logger.Warn().Msg(w)
	}
	t := store.Apply(c.Timing)
	logger.Info().
		Float64("min_cps", t.MinRate).
		Float64("max_cps", t.MaxRate).
		Int("micro_pause_every", t.MicroPauseEvery).
		Msg("Settings applied")
}

func banner(chords map[hotkey.Event]string) status.Banner {
	b := status.Banner{
		Mode:    cfg.Mode,
		MinRate: cfg.Timing.MinRate,
		MaxRate: cfg.Timing.MaxRate,
		Paused:  cfg.StartPaused,
	}
	for _, e := range bannerOrder {
		b.Hotkeys = append(b.Hotkeys, status.Hotkey{Action: e.action, Chord: chords[e.event]})
	}

	return b
}
