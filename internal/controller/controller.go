// Package controller drives the per-channel action loops.
package controller

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/clickctl/internal/errors"
	"codeberg.org/mutker/clickctl/internal/logger"
	"codeberg.org/mutker/clickctl/internal/state"
)

const defaultIdleInterval = 2 * time.Millisecond

// Clicker performs one action for a channel.
type Clicker interface {
	Click(ch state.Channel) error
}

// Delayer yields the wait before the next action.
type Delayer interface {
	NextDelay() time.Duration
}

type Option func(*Controller)

// WithIdleInterval sets how often a disengaged channel re-checks the state.
func WithIdleInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.idle = d
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// Controller repeatedly performs actions for one channel while the channel
// is engaged.
type Controller struct {
	ch      state.Channel
	state   *state.ActionState
	delayer Delayer
	clicker Clicker
	idle    time.Duration
	log     logger.Logger

	actions  atomic.Uint64
	failures atomic.Uint64
}

func New(ch state.Channel, st *state.ActionState, delayer Delayer, clicker Clicker, opts ...Option) *Controller {
	c := &Controller{
		ch:      ch,
		state:   st,
		delayer: delayer,
		clicker: clicker,
		idle:    defaultIdleInterval,
		log:     logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Channel returns the channel this controller acts for.
func (c *Controller) Channel() state.Channel {
	return c.ch
}

// Actions returns the number of successful actions.
func (c *Controller) Actions() uint64 {
	return c.actions.Load()
}

// Failures returns the number of failed action attempts.
func (c *Controller) Failures() uint64 {
	return c.failures.Load()
}

// Run loops until the state stops or ctx is canceled. Action failures are
// logged and skipped; they never end the loop.
func (c *Controller) Run(ctx context.Context) error {
	c.log.Debug().Str("channel", c.ch.String()).Msg("Controller started")
	defer func() {
		c.log.Debug().Str("channel", c.ch.String()).Msg("Controller stopped")
	}()

	for c.state.Running() {
		if !c.state.ShouldAct(c.ch) {
			if !c.wait(ctx, c.idle) {
				return nil
			}
			continue
		}

		if err := c.act(); err != nil {
			c.failures.Add(1)
			c.log.Debug().Err(err).Str("channel", c.ch.String()).Msg("Action skipped")
		} else {
			c.actions.Add(1)
			c.state.RecordAction()
		}

		if !c.wait(ctx, c.delayer.NextDelay()) {
			return nil
		}
	}

	return nil
}

func (c *Controller) act() (err error) {
	errFactory := errors.New()

	// Injection backends may panic when the display goes away.
	defer func() {
		if r := recover(); r != nil {
			err = errFactory.WithData(errors.ErrActionFailed, r)
		}
	}()

	if err := c.clicker.Click(c.ch); err != nil {
		return errFactory.Wrap(errors.ErrActionFailed, err)
	}

	return nil
}

// wait sleeps for d and reports whether the loop should continue.
func (c *Controller) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		case <-c.state.Done():
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-c.state.Done():
		return false
	case <-timer.C:
		return true
	}
}
