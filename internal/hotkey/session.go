package hotkey

import (
	"codeberg.org/mutker/clickctl/internal/config"
	"codeberg.org/mutker/clickctl/internal/errors"
	"codeberg.org/mutker/clickctl/internal/logger"
	"codeberg.org/mutker/clickctl/internal/state"
)

// BindSession wires the configured hotkeys to st. A chord naming an unknown
// key is replaced by the default chord for that event.
func BindSession(m *Manager, keys config.HotkeyConfig, st *state.ActionState, log logger.Logger) error {
	toggle := func(ch state.Channel) func() {
		return func() {
			on := st.ToggleChannel(ch)
			log.Info().Str("channel", ch.String()).Bool("on", on).Msg("Channel toggled")
		}
	}

	def := config.Default().Hotkeys

	bindings := []struct {
		event    Event
		chord    string
		fallback string
		callback func()
	}{
		{SwitchMode, keys.SwitchMode, def.SwitchMode, func() {
			log.Info().Str("mode", st.SwitchMode().String()).Msg("Mode switched")
		}},
		{PauseResume, keys.PauseResume, def.PauseResume, func() {
			log.Info().Bool("paused", st.TogglePause()).Msg("Pause toggled")
		}},
		{ToggleLeft, keys.ToggleLeft, def.ToggleLeft, toggle(state.Left)},
		{ToggleRight, keys.ToggleRight, def.ToggleRight, toggle(state.Right)},
		{Quit, keys.Quit, def.Quit, func() {
			log.Info().Msg("Quit requested")
			st.Stop()
		}},
	}

	for _, b := range bindings {
		err := m.Bind(b.event, b.chord, b.callback)
		if errors.HasCode(err, errors.ErrUnknownKey) && b.chord != b.fallback {
			log.Warn().Err(err).
				Str("event", string(b.event)).
				Str("fallback", b.fallback).
				Msg("Unknown hotkey, using default")
			err = m.Bind(b.event, b.fallback, b.callback)
		}
		if err != nil {
			return err
		}
	}

	return nil
}
