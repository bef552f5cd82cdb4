// Package state holds the shared session state that decides whether each
// channel should currently act.
//
// All fields live in one aggregate guarded by a read/write mutex. The running
// flag is kept separately in an atomic so loops can poll it without taking
// the lock, and Done exposes it as a channel for interruptible waits.
package state

import (
	"sync"
	"sync/atomic"
	"time"
)

// rateWindow is the number of instantaneous rate samples averaged.
const rateWindow = 25

type channelState struct {
	held      bool
	toggledOn bool
}

type Option func(*ActionState)

// WithClock replaces time.Now for action timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *ActionState) {
		s.now = now
	}
}

// WithMode sets the initial mode.
func WithMode(m Mode) Option {
	return func(s *ActionState) {
		s.mode = m
	}
}

// WithPaused sets the initial pause flag.
func WithPaused(paused bool) Option {
	return func(s *ActionState) {
		s.paused = paused
	}
}

// ActionState is the single source of truth for a session. It is safe for
// concurrent use. A stopped ActionState cannot be restarted.
type ActionState struct {
	now func() time.Time

	running  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once

	mu         sync.RWMutex
	mode       Mode
	paused     bool
	channels   [channelCount]channelState
	rates      []float64
	lastAction time.Time
	actions    uint64
}

func New(opts ...Option) *ActionState {
	s := &ActionState{
		now:  time.Now,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.running.Store(true)

	return s
}

// ShouldAct reports whether ch should perform an action now. It does not
// consider Running; loops check that themselves.
func (s *ActionState) ShouldAct(ch Channel) bool {
	if !ch.valid() {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.paused {
		return false
	}

	return s.engaged(ch)
}

// engaged must be called with mu held.
func (s *ActionState) engaged(ch Channel) bool {
	if s.mode == Toggle {
		return s.channels[ch].toggledOn
	}

	return s.channels[ch].held
}

// RecordAction notes a completed action and feeds the rate estimator.
func (s *ActionState) RecordAction() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.actions++
	if !s.lastAction.IsZero() {
		if delta := now.Sub(s.lastAction).Seconds(); delta > 0 {
			s.rates = append(s.rates, 1/delta)
			if len(s.rates) > rateWindow {
				s.rates = s.rates[1:]
			}
		}
	}
	s.lastAction = now
}

// AverageRate returns the mean of the recent rate samples in actions per
// second, or 0 before two actions have been recorded.
func (s *ActionState) AverageRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.averageRate()
}

func (s *ActionState) averageRate() float64 {
	if len(s.rates) == 0 {
		return 0
	}

	sum := 0.0
	for _, r := range s.rates {
		sum += r
	}

	return sum / float64(len(s.rates))
}

func (s *ActionState) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.mode
}

// SetMode switches the mode. Entering Hold clears every toggle flag; entering
// Toggle leaves held flags as reported by input.
func (s *ActionState) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setMode(m)
}

func (s *ActionState) setMode(m Mode) {
	if m == Hold {
		for i := range s.channels {
			s.channels[i].toggledOn = false
		}
	}
	s.mode = m
}

// SwitchMode flips between Hold and Toggle and returns the new mode.
func (s *ActionState) SwitchMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Toggle
	if s.mode == Toggle {
		next = Hold
	}
	s.setMode(next)

	return next
}

// ToggleChannel flips the toggle flag of ch. It is ignored outside Toggle
// mode. The returned value is the flag after the call.
func (s *ActionState) ToggleChannel(ch Channel) bool {
	if !ch.valid() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != Toggle {
		return s.channels[ch].toggledOn
	}
	s.channels[ch].toggledOn = !s.channels[ch].toggledOn

	return s.channels[ch].toggledOn
}

// SetHeld records the physical press state of ch.
func (s *ActionState) SetHeld(ch Channel, held bool) {
	if !ch.valid() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.channels[ch].held = held
}

// TogglePause flips the pause flag and returns its new value.
func (s *ActionState) TogglePause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = !s.paused

	return s.paused
}

func (s *ActionState) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.paused
}

// Stop ends the session. It is idempotent and irreversible. Engagement flags
// are left untouched.
func (s *ActionState) Stop() {
	s.stopOnce.Do(func() {
		s.running.Store(false)
		close(s.done)
	})
}

// Running reports whether Stop has not been called yet.
func (s *ActionState) Running() bool {
	return s.running.Load()
}

// Done is closed by Stop.
func (s *ActionState) Done() <-chan struct{} {
	return s.done
}

// Snapshot returns a consistent copy for display and metrics.
func (s *ActionState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Mode:        s.mode,
		Paused:      s.paused,
		Running:     s.running.Load(),
		AverageRate: s.averageRate(),
		Actions:     s.actions,
	}
	for _, ch := range Channels {
		snap.Channels[ch] = ChannelSnapshot{
			Held:      s.channels[ch].held,
			ToggledOn: s.channels[ch].toggledOn,
			Engaged:   s.engaged(ch),
		}
	}

	return snap
}
