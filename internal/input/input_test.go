package input_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/clickctl/internal/errors"
	"codeberg.org/mutker/clickctl/internal/input"
	"codeberg.org/mutker/clickctl/internal/logger"
	"codeberg.org/mutker/clickctl/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	events   chan input.Event
	startErr error
	mu       sync.Mutex
	stopped  bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan input.Event)}
}

func (f *fakeSource) Start() (<-chan input.Event, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.events, nil
}

func (f *fakeSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeSource) wasStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type recordingKeys struct {
	down, up []uint16
}

func (k *recordingKeys) KeyDown(code uint16) { k.down = append(k.down, code) }
func (k *recordingKeys) KeyUp(code uint16)   { k.up = append(k.up, code) }

func TestDispatchButtons(t *testing.T) {
	st := state.New()
	r := input.NewRouter(newFakeSource(), st, &recordingKeys{}, logger.Nop())

	r.Dispatch(input.Event{Kind: input.ButtonPress, Channel: state.Right})
	assert.True(t, st.ShouldAct(state.Right))
	assert.False(t, st.ShouldAct(state.Left))

	r.Dispatch(input.Event{Kind: input.ButtonRelease, Channel: state.Right})
	assert.False(t, st.ShouldAct(state.Right))
}

func TestDispatchKeys(t *testing.T) {
	keys := &recordingKeys{}
	r := input.NewRouter(newFakeSource(), state.New(), keys, logger.Nop())

	r.Dispatch(input.Event{Kind: input.KeyPress, Keycode: 64})
	r.Dispatch(input.Event{Kind: input.KeyRelease, Keycode: 64})

	assert.Equal(t, []uint16{64}, keys.down)
	assert.Equal(t, []uint16{64}, keys.up)
}

func TestRunStopsWithState(t *testing.T) {
	st := state.New()
	src := newFakeSource()
	r := input.NewRouter(src, st, &recordingKeys{}, logger.Nop())

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(context.Background()) }()

	src.events <- input.Event{Kind: input.ButtonPress, Channel: state.Left}
	require.Eventually(t, func() bool { return st.ShouldAct(state.Left) }, time.Second, time.Millisecond)

	st.Stop()
	require.NoError(t, <-errCh)
	assert.True(t, src.wasStopped())
}

func TestRunEndsWhenSourceCloses(t *testing.T) {
	src := newFakeSource()
	r := input.NewRouter(src, state.New(), &recordingKeys{}, logger.Nop())

	close(src.events)
	assert.NoError(t, r.Run(context.Background()))
}

func TestRunReportsStartFailure(t *testing.T) {
	src := newFakeSource()
	src.startErr = stderrors.New("no hook")
	r := input.NewRouter(src, state.New(), &recordingKeys{}, logger.Nop())

	assert.ErrorIs(t, r.Run(context.Background()), src.startErr)
}

func TestAvailable(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	assert.NoError(t, input.CheckAvailable("linux", env(map[string]string{"DISPLAY": ":0"})))
	assert.NoError(t, input.CheckAvailable("windows", env(nil)))
	assert.NoError(t, input.CheckAvailable("darwin", env(nil)))

	err := input.CheckAvailable("linux", env(nil))
	assert.True(t, errors.HasCode(err, errors.ErrInputUnavailable))

	err = input.CheckAvailable("linux", env(map[string]string{"WAYLAND_DISPLAY": "wayland-0"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Wayland")

	assert.True(t, errors.HasCode(input.CheckAvailable("plan9", env(nil)), errors.ErrInputUnavailable))
}
