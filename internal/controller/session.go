package controller

import (
	"context"

	"codeberg.org/mutker/clickctl/internal/jitter"
	"codeberg.org/mutker/clickctl/internal/state"
	"golang.org/x/sync/errgroup"
)

// Task is a long-running session component, such as the input router or the
// status reporter. It must return once ctx is canceled or the state stops.
type Task func(ctx context.Context) error

// Session runs the channel controllers and their supporting tasks as one unit.
type Session struct {
	state       *state.ActionState
	controllers []*Controller
	tasks       []Task
}

func NewSession(st *state.ActionState, controllers []*Controller, tasks ...Task) *Session {
	return &Session{
		state:       st,
		controllers: controllers,
		tasks:       tasks,
	}
}

// GeneratorOptions returns the generator options for one channel. Each call
// must return fresh values; a random source is never shared between channels.
type GeneratorOptions func(ch state.Channel) []jitter.Option

// ForChannels builds one controller per channel, each with its own
// generator reading src. genOpts may be nil.
func ForChannels(st *state.ActionState, src jitter.TimingSource, clicker Clicker, genOpts GeneratorOptions, opts ...Option) []*Controller {
	controllers := make([]*Controller, 0, len(state.Channels))
	for _, ch := range state.Channels {
		var gopts []jitter.Option
		if genOpts != nil {
			gopts = genOpts(ch)
		}
		controllers = append(controllers, New(ch, st, jitter.New(src, gopts...), clicker, opts...))
	}

	return controllers
}

// Run blocks until every controller and task has returned. Canceling ctx or
// a failing task stops the state so the rest wind down.
func (s *Session) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-ctx.Done():
			s.state.Stop()
		case <-s.state.Done():
		}
		return nil
	})

	for _, c := range s.controllers {
		g.Go(func() error {
			return c.Run(ctx)
		})
	}

	for _, task := range s.tasks {
		g.Go(func() error {
			return task(ctx)
		})
	}

	return g.Wait()
}
