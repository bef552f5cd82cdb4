// Package native binds the input package to the host's global hook and
// click injection.
package native

import (
	"sync"

	"codeberg.org/mutker/clickctl/internal/errors"
	"codeberg.org/mutker/clickctl/internal/input"
	"codeberg.org/mutker/clickctl/internal/state"
	"github.com/go-vgo/robotgo"
	hook "github.com/robotn/gohook"
)

const eventBuffer = 64

// Hook button numbers as reported in hook.Event.Button.
const (
	buttonLeft  uint16 = 1
	buttonRight uint16 = 2
)

// LookupKey resolves a key name to a hook key code.
func LookupKey(name string) (uint16, bool) {
	code, ok := hook.Keycode[name]
	return code, ok
}

// Injector clicks through robotgo.
type Injector struct {
	echo *input.EchoFilter
}

func NewInjector(echo *input.EchoFilter) *Injector {
	return &Injector{echo: echo}
}

func (i *Injector) Click(ch state.Channel) error {
	button, ok := buttonName(ch)
	if !ok {
		return errors.New().WithData(errors.ErrInvalidArgument, ch.String())
	}

	if i.echo != nil {
		i.echo.Expect(ch)
	}
	robotgo.Click(button)

	return nil
}

// Hook is an input.Source backed by gohook. Only one hook can run per process.
type Hook struct {
	echo *input.EchoFilter

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewHook(echo *input.EchoFilter) *Hook {
	return &Hook{echo: echo}
}

func (h *Hook) Start() (<-chan input.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil, errors.New().WithMessage(errors.ErrInitFailed, "input hook already started")
	}

	raw := hook.Start()
	out := make(chan input.Event, eventBuffer)
	h.done = make(chan struct{})
	h.running = true

	go h.forward(raw, out, h.done)

	return out, nil
}

func (h *Hook) forward(raw chan hook.Event, out chan<- input.Event, done <-chan struct{}) {
	defer close(out)

	for {
		select {
		case <-done:
			return
		case rev, ok := <-raw:
			if !ok {
				return
			}
			ev, ok := Translate(rev)
			if !ok || (h.echo != nil && h.echo.Drop(ev)) {
				continue
			}
			select {
			case out <- ev:
			case <-done:
				return
			}
		}
	}
}

func (h *Hook) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return
	}
	h.running = false
	close(h.done)
	hook.End()
}

// Translate maps a gohook event to an input event. gohook names the pressed
// edge "hold" and the released mouse edge "down".
func Translate(ev hook.Event) (input.Event, bool) {
	switch ev.Kind {
	case hook.MouseHold:
		ch, ok := buttonChannel(ev.Button)
		return input.Event{Kind: input.ButtonPress, Channel: ch}, ok
	case hook.MouseDown:
		ch, ok := buttonChannel(ev.Button)
		return input.Event{Kind: input.ButtonRelease, Channel: ch}, ok
	case hook.KeyHold:
		return input.Event{Kind: input.KeyPress, Keycode: ev.Keycode}, true
	case hook.KeyUp:
		return input.Event{Kind: input.KeyRelease, Keycode: ev.Keycode}, true
	default:
		return input.Event{}, false
	}
}

func buttonChannel(button uint16) (state.Channel, bool) {
	switch button {
	case buttonLeft:
		return state.Left, true
	case buttonRight:
		return state.Right, true
	default:
		return 0, false
	}
}

func buttonName(ch state.Channel) (string, bool) {
	switch ch {
	case state.Left:
		return "left", true
	case state.Right:
		return "right", true
	default:
		return "", false
	}
}
