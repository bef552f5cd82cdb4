package input

import (
	"sync"
	"time"

	"codeberg.org/mutker/clickctl/internal/state"
)

// echoWindow bounds how long an injected action may take to come back
// through the global hook.
const echoWindow = 100 * time.Millisecond

// echoStage is how far an injected click has come back through the hook.
type echoStage uint8

const (
	echoNone echoStage = iota
	echoPress
	echoRelease
)

// EchoFilter drops the button events produced by our own injected clicks so
// they do not change the held state of a channel. At most one press and the
// release that follows it are dropped per injected click; a release is only
// treated as an echo once the matching press was seen.
type EchoFilter struct {
	now func() time.Time

	mu    sync.Mutex
	stage [2]echoStage
	last  [2]time.Time
}

func NewEchoFilter(now func() time.Time) *EchoFilter {
	if now == nil {
		now = time.Now
	}
	return &EchoFilter{now: now}
}

// Expect registers that an injected press and release are on their way.
func (f *EchoFilter) Expect(ch state.Channel) {
	if int(ch) >= len(f.stage) {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.stage[ch] = echoPress
	f.last[ch] = f.now()
}

// Drop reports whether ev is an echo and consumes it.
func (f *EchoFilter) Drop(ev Event) bool {
	if int(ev.Channel) >= len(f.stage) {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ch := ev.Channel
	if f.stage[ch] != echoNone && f.now().Sub(f.last[ch]) > echoWindow {
		f.stage[ch] = echoNone
	}

	switch {
	case ev.Kind == ButtonPress && f.stage[ch] == echoPress:
		f.stage[ch] = echoRelease
		return true
	case ev.Kind == ButtonRelease && f.stage[ch] == echoRelease:
		f.stage[ch] = echoNone
		return true
	default:
		return false
	}
}
