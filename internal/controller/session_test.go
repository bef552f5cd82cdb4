package controller_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"codeberg.org/mutker/clickctl/internal/config"
	"codeberg.org/mutker/clickctl/internal/controller"
	"codeberg.org/mutker/clickctl/internal/jitter"
	"codeberg.org/mutker/clickctl/internal/logger"
	"codeberg.org/mutker/clickctl/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastTiming() jitter.TimingSource {
	t := config.DefaultTiming()
	t.MinRate, t.MaxRate = 50, 50
	t.ExtraJitterMinMs, t.ExtraJitterMaxMs = 0, 0
	t.MicroPauseMinMs, t.MicroPauseMaxMs = 0, 0
	return jitter.Fixed(t)
}

func TestForChannelsBuildsOnePerChannel(t *testing.T) {
	st := state.New()
	controllers := controller.ForChannels(st, fastTiming(), newFakeClicker(), nil)

	require.Len(t, controllers, 2)
	assert.Equal(t, state.Left, controllers[0].Channel())
	assert.Equal(t, state.Right, controllers[1].Channel())
}

type countingRand struct {
	calls int
}

func (r *countingRand) Float64() float64 {
	r.calls++
	return 0.5
}

func TestForChannelsGivesEachChannelItsOwnOptions(t *testing.T) {
	st := state.New()
	rands := map[state.Channel]*countingRand{}
	perChannel := func(ch state.Channel) []jitter.Option {
		r := &countingRand{}
		rands[ch] = r
		return []jitter.Option{jitter.WithRand(r)}
	}

	controllers := controller.ForChannels(st, fastTiming(), newFakeClicker(), perChannel)

	require.Len(t, controllers, 2)
	require.Len(t, rands, 2)
	assert.NotSame(t, rands[state.Left], rands[state.Right])
	// Each generator drew its initial micro-pause target from its own source.
	assert.Equal(t, 1, rands[state.Left].calls)
	assert.Equal(t, 1, rands[state.Right].calls)
}

func TestSessionChannelsAreIndependent(t *testing.T) {
	st := state.New(state.WithMode(state.Toggle))
	clicker := newFakeClicker()
	controllers := controller.ForChannels(st, fastTiming(), clicker, nil, controller.WithLogger(logger.Nop()))
	session := controller.NewSession(st, controllers)

	errCh := make(chan error, 1)
	go func() { errCh <- session.Run(context.Background()) }()

	st.ToggleChannel(state.Left)
	st.ToggleChannel(state.Right)
	require.Eventually(t, func() bool {
		return clicker.count(state.Left) >= 3 && clicker.count(state.Right) >= 3
	}, 2*time.Second, time.Millisecond)

	st.ToggleChannel(state.Right)
	time.Sleep(50 * time.Millisecond)
	right := clicker.count(state.Right)
	left := clicker.count(state.Left)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, right, clicker.count(state.Right))
	assert.Greater(t, clicker.count(state.Left), left)

	st.Stop()
	require.NoError(t, <-errCh)
}

func TestSessionStopsOnContextCancel(t *testing.T) {
	st := state.New()
	taskDone := make(chan struct{})
	task := func(ctx context.Context) error {
		defer close(taskDone)
		<-ctx.Done()
		return nil
	}
	session := controller.NewSession(st, controller.ForChannels(st, fastTiming(), newFakeClicker(), nil), task)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- session.Run(ctx) }()

	cancel()
	require.NoError(t, <-errCh)
	assert.False(t, st.Running())
	<-taskDone
}

func TestSessionTaskFailureStopsState(t *testing.T) {
	st := state.New()
	boom := stderrors.New("hook failed")
	task := func(context.Context) error { return boom }
	session := controller.NewSession(st, controller.ForChannels(st, fastTiming(), newFakeClicker(), nil), task)

	err := session.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.False(t, st.Running())
}
