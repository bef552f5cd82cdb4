// Package input routes global mouse and keyboard events into the session.
package input

import (
	"context"

	"codeberg.org/mutker/clickctl/internal/logger"
	"codeberg.org/mutker/clickctl/internal/state"
)

type Kind uint8

const (
	ButtonPress Kind = iota + 1
	ButtonRelease
	KeyPress
	KeyRelease
)

// Event is a platform-neutral input event.
type Event struct {
	Kind    Kind
	Channel state.Channel
	Keycode uint16
}

// Source produces input events until it is stopped.
type Source interface {
	Start() (<-chan Event, error)
	Stop()
}

// KeyHandler receives keyboard edges, typically a hotkey.Manager.
type KeyHandler interface {
	KeyDown(code uint16)
	KeyUp(code uint16)
}

// Router applies button events to the session state and forwards key events
// to the hotkey matcher.
type Router struct {
	source Source
	state  *state.ActionState
	keys   KeyHandler
	log    logger.Logger
}

func NewRouter(source Source, st *state.ActionState, keys KeyHandler, log logger.Logger) *Router {
	return &Router{
		source: source,
		state:  st,
		keys:   keys,
		log:    log,
	}
}

// Run starts the source and dispatches its events until ctx is canceled, the
// state stops or the source closes its channel.
func (r *Router) Run(ctx context.Context) error {
	events, err := r.source.Start()
	if err != nil {
		return err
	}
	defer r.source.Stop()

	r.log.Debug().Msg("Input hook started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.state.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				r.log.Warn().Msg("Input hook closed")
				return nil
			}
			r.Dispatch(ev)
		}
	}
}

// Dispatch applies a single event.
func (r *Router) Dispatch(ev Event) {
	switch ev.Kind {
	case ButtonPress:
		r.state.SetHeld(ev.Channel, true)
	case ButtonRelease:
		r.state.SetHeld(ev.Channel, false)
	case KeyPress:
		r.keys.KeyDown(ev.Keycode)
	case KeyRelease:
		r.keys.KeyUp(ev.Keycode)
	}
}
