// Package jitter computes human-like delays between automated actions.
//
// Each Generator draws a rate from the configured range, converts it to an
// interval and adds timing noise. Every so often it returns a longer
// micro-pause instead. The number of actions between micro-pauses is itself
// redrawn after each pause, so two generators drift apart over time.
package jitter

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"codeberg.org/mutker/clickctl/internal/config"
)

const (
	minMicroPauseTarget = 5
	cadenceSpread       = 0.3
)

// Rand is the random source used for every draw. Float64 must return a value
// in [0, 1). *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
}

// TimingSource supplies the timing settings read on every delay computation.
// *config.Store satisfies it.
type TimingSource interface {
	Timing() config.Timing
}

type Option func(*Generator)

// WithRand replaces the default random source.
func WithRand(r Rand) Option {
	return func(g *Generator) {
		g.rng = r
	}
}

// Generator produces delays for a single channel. It must not be shared
// between channels.
type Generator struct {
	src TimingSource
	rng Rand

	mu         sync.Mutex
	sincePause int
	target     int
}

func New(src TimingSource, opts ...Option) *Generator {
	g := &Generator{
		src: src,
		rng: globalRand{},
	}
	for _, opt := range opts {
		opt(g)
	}

	g.target = g.drawTarget(src.Timing().MicroPauseEvery)

	return g
}

// NextDelay returns how long to wait after an action before the next one.
func (g *Generator) NextDelay() time.Duration {
	t := g.src.Timing()

	g.mu.Lock()
	defer g.mu.Unlock()

	rate := g.uniform(t.MinRate, t.MaxRate)
	intervalMs := 1000.0 / rate
	intervalMs += g.uniform(float64(t.ExtraJitterMinMs), float64(t.ExtraJitterMaxMs))
	intervalMs = math.Max(0, intervalMs)

	g.sincePause++
	if g.sincePause >= g.target {
		g.sincePause = 0
		g.target = g.drawTarget(t.MicroPauseEvery)

		return millis(g.uniform(float64(t.MicroPauseMinMs), float64(t.MicroPauseMaxMs)))
	}

	return millis(intervalMs)
}

// Target returns the number of actions that ends the current cycle.
func (g *Generator) Target() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.target
}

// SincePause returns the number of actions since the last micro-pause.
func (g *Generator) SincePause() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.sincePause
}

func (g *Generator) drawTarget(cadence int) int {
	base := float64(cadence)
	target := math.Round(base + base*g.uniform(-cadenceSpread, cadenceSpread))

	return max(minMicroPauseTarget, int(target))
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.rng.Float64()
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// Fixed returns a TimingSource that always yields t, normalized.
func Fixed(t config.Timing) TimingSource {
	return fixed(t.Normalize())
}

type fixed config.Timing

func (f fixed) Timing() config.Timing {
	return config.Timing(f)
}

type globalRand struct{}

func (globalRand) Float64() float64 {
	return rand.Float64()
}
