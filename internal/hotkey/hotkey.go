// Package hotkey matches key chords against registered session events.
package hotkey

import (
	"strings"
	"sync"

	"codeberg.org/mutker/clickctl/internal/errors"
	"codeberg.org/mutker/clickctl/internal/logger"
)

// Event names a discrete action a hotkey can trigger.
type Event string

const (
	SwitchMode  Event = "switch_mode"
	PauseResume Event = "pause_resume"
	ToggleLeft  Event = "toggle_left"
	ToggleRight Event = "toggle_right"
	Quit        Event = "quit"
)

// KeyLookup resolves a key name such as "f6" or "ctrl" to a key code.
type KeyLookup func(name string) (uint16, bool)

// Manager handles hotkey registration and matching. Exactly one handler can
// be bound per event.
type Manager struct {
	lookup KeyLookup
	log    logger.Logger

	mu       sync.Mutex
	bindings []*binding
	pressed  map[uint16]bool
}

type binding struct {
	event    Event
	chord    string
	codes    []uint16
	callback func()
	// active is set while the chord is held so auto-repeat fires once.
	active bool
}

func NewManager(lookup KeyLookup, log logger.Logger) *Manager {
	return &Manager{
		lookup:  lookup,
		log:     log,
		pressed: make(map[uint16]bool),
	}
}

// Bind registers chord (e.g. "f6", "ctrl+shift+p") for event.
func (m *Manager) Bind(event Event, chord string, callback func()) error {
	errFactory := errors.New()

	codes, err := m.parse(chord)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.bindings {
		if b.event == event {
			return errFactory.WithData(errors.ErrDuplicateBinding, string(event))
		}
	}

	m.bindings = append(m.bindings, &binding{
		event:    event,
		chord:    strings.ToLower(chord),
		codes:    codes,
		callback: callback,
	})

	return nil
}

func (m *Manager) parse(chord string) ([]uint16, error) {
	errFactory := errors.New()

	parts := strings.Split(strings.ToLower(chord), "+")
	codes := make([]uint16, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		code, ok := m.lookup(p)
		if p == "" || !ok {
			return nil, errFactory.WithData(errors.ErrUnknownKey, chord)
		}
		codes = append(codes, code)
	}

	return codes, nil
}

// Chords returns the bound chord per event.
func (m *Manager) Chords() map[Event]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[Event]string, len(m.bindings))
	for _, b := range m.bindings {
		out[b.event] = b.chord
	}

	return out
}

// KeyDown records a press and fires every binding it completes.
func (m *Manager) KeyDown(code uint16) {
	m.mu.Lock()
	if m.pressed[code] {
		m.mu.Unlock()
		return
	}
	m.pressed[code] = true

	var fire []*binding
	for _, b := range m.bindings {
		if b.active || !b.contains(code) || !m.allPressed(b.codes) {
			continue
		}
		b.active = true
		fire = append(fire, b)
	}
	m.mu.Unlock()

	for _, b := range fire {
		m.log.Debug().Str("event", string(b.event)).Str("chord", b.chord).Msg("Hotkey triggered")
		b.callback()
	}
}

// KeyUp records a release.
func (m *Manager) KeyUp(code uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pressed, code)
	for _, b := range m.bindings {
		if b.contains(code) {
			b.active = false
		}
	}
}

func (m *Manager) allPressed(codes []uint16) bool {
	for _, c := range codes {
		if !m.pressed[c] {
			return false
		}
	}

	return true
}

func (b *binding) contains(code uint16) bool {
	for _, c := range b.codes {
		if c == code {
			return true
		}
	}

	return false
}
