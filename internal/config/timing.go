package config

import (
	"math"
	"sync/atomic"
)

const (
	minRateLimit      = 1.0
	maxRateLimit      = 50.0
	minMicroPauseNext = 5
)

// Timing holds the values that drive delay computation. It is the part of the
// configuration that can be re-applied while a session is running.
type Timing struct {
	MinRate          float64 // actions per second
	MaxRate          float64
	MicroPauseEvery  int // actions between micro-pauses, before jitter
	MicroPauseMinMs  int
	MicroPauseMaxMs  int
	ExtraJitterMinMs int // may be negative
	ExtraJitterMaxMs int
}

func DefaultTiming() Timing {
	return Timing{
		MinRate:          10,
		MaxRate:          15,
		MicroPauseEvery:  45,
		MicroPauseMinMs:  60,
		MicroPauseMaxMs:  140,
		ExtraJitterMinMs: -6,
		ExtraJitterMaxMs: 9,
	}
}

// Normalize swaps inverted min/max pairs and clamps values into their valid
// ranges. A NaN rate becomes the lower limit. It never fails.
func (t Timing) Normalize() Timing {
	if math.IsNaN(t.MinRate) {
		t.MinRate = minRateLimit
	}
	if math.IsNaN(t.MaxRate) {
		t.MaxRate = minRateLimit
	}
	if t.MinRate > t.MaxRate {
		t.MinRate, t.MaxRate = t.MaxRate, t.MinRate
	}
	t.MinRate = clampFloat(t.MinRate, minRateLimit, maxRateLimit)
	t.MaxRate = clampFloat(t.MaxRate, minRateLimit, maxRateLimit)

	t.MicroPauseEvery = max(minMicroPauseNext, t.MicroPauseEvery)

	t.MicroPauseMinMs = max(0, t.MicroPauseMinMs)
	t.MicroPauseMaxMs = max(0, t.MicroPauseMaxMs)
	if t.MicroPauseMinMs > t.MicroPauseMaxMs {
		t.MicroPauseMinMs, t.MicroPauseMaxMs = t.MicroPauseMaxMs, t.MicroPauseMinMs
	}

	if t.ExtraJitterMinMs > t.ExtraJitterMaxMs {
		t.ExtraJitterMinMs, t.ExtraJitterMaxMs = t.ExtraJitterMaxMs, t.ExtraJitterMinMs
	}

	return t
}

// Store publishes the current Timing to concurrent readers. Readers always see
// a complete, normalized value.
type Store struct {
	current atomic.Pointer[Timing]
}

func NewStore(t Timing) *Store {
	s := &Store{}
	s.Apply(t)

	return s
}

// Timing returns the most recently applied value.
func (s *Store) Timing() Timing {
	return *s.current.Load()
}

// Apply normalizes t, publishes it and returns what was stored. It takes
// effect on the next delay computation of every reader.
func (s *Store) Apply(t Timing) Timing {
	n := t.Normalize()
	s.current.Store(&n)

	return n
}

func clampFloat(value, minValue, maxValue float64) float64 {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}

	return value
}
