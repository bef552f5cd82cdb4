package hotkey_test

import (
	"testing"

	"codeberg.org/mutker/clickctl/internal/config"
	"codeberg.org/mutker/clickctl/internal/errors"
	"codeberg.org/mutker/clickctl/internal/hotkey"
	"codeberg.org/mutker/clickctl/internal/logger"
	"codeberg.org/mutker/clickctl/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = map[string]uint16{
	"f6": 64, "f7": 65, "f8": 66, "f9": 67, "esc": 1, "ctrl": 29, "shift": 42, "p": 25,
}

func lookup(name string) (uint16, bool) {
	code, ok := keys[name]
	return code, ok
}

func newManager() *hotkey.Manager {
	return hotkey.NewManager(lookup, logger.Nop())
}

func TestSingleKeyFiresOncePerPress(t *testing.T) {
	m := newManager()
	count := 0
	require.NoError(t, m.Bind(hotkey.PauseResume, "F9", func() { count++ }))

	m.KeyDown(keys["f9"])
	m.KeyDown(keys["f9"]) // auto-repeat
	assert.Equal(t, 1, count)

	m.KeyUp(keys["f9"])
	m.KeyDown(keys["f9"])
	assert.Equal(t, 2, count)
}

func TestChordRequiresAllKeys(t *testing.T) {
	m := newManager()
	count := 0
	require.NoError(t, m.Bind(hotkey.Quit, "ctrl+shift+p", func() { count++ }))

	m.KeyDown(keys["p"])
	assert.Zero(t, count)
	m.KeyUp(keys["p"])

	m.KeyDown(keys["ctrl"])
	m.KeyDown(keys["shift"])
	assert.Zero(t, count)
	m.KeyDown(keys["p"])
	assert.Equal(t, 1, count)
}

func TestUnrelatedKeyDoesNotRefire(t *testing.T) {
	m := newManager()
	count := 0
	require.NoError(t, m.Bind(hotkey.ToggleLeft, "f6", func() { count++ }))

	m.KeyDown(keys["f6"])
	m.KeyDown(keys["p"])
	assert.Equal(t, 1, count)
}

func TestOneHandlerPerEvent(t *testing.T) {
	m := newManager()
	require.NoError(t, m.Bind(hotkey.Quit, "esc", func() {}))

	err := m.Bind(hotkey.Quit, "f9", func() {})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrDuplicateBinding))
}

func TestUnknownKey(t *testing.T) {
	m := newManager()

	err := m.Bind(hotkey.Quit, "hyper+q", func() {})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrUnknownKey))

	err = m.Bind(hotkey.Quit, "ctrl+", func() {})
	assert.True(t, errors.HasCode(err, errors.ErrUnknownKey))
}

func TestBindSession(t *testing.T) {
	m := newManager()
	st := state.New()
	require.NoError(t, hotkey.BindSession(m, config.Default().Hotkeys, st, logger.Nop()))

	press := func(name string) {
		m.KeyDown(keys[name])
		m.KeyUp(keys[name])
	}

	press("f6")
	assert.False(t, st.Snapshot().Channels[state.Left].ToggledOn, "toggle ignored in hold")

	press("f8")
	assert.Equal(t, state.Toggle, st.Mode())

	press("f6")
	press("f7")
	assert.True(t, st.ShouldAct(state.Left))
	assert.True(t, st.ShouldAct(state.Right))

	press("f9")
	assert.True(t, st.Paused())
	assert.False(t, st.ShouldAct(state.Left))
	press("f9")

	press("f8")
	assert.Equal(t, state.Hold, st.Mode())
	assert.False(t, st.Snapshot().Channels[state.Left].ToggledOn)

	press("esc")
	assert.False(t, st.Running())

	assert.Equal(t, "f6", m.Chords()[hotkey.ToggleLeft])
	assert.Len(t, m.Chords(), 5)
}

func TestBindSessionUnknownKeyFallsBackToDefault(t *testing.T) {
	m := newManager()
	st := state.New()
	keysCfg := config.Default().Hotkeys
	keysCfg.Quit = "escape"
	keysCfg.ToggleLeft = "ctrl+nope"

	require.NoError(t, hotkey.BindSession(m, keysCfg, st, logger.Nop()))

	chords := m.Chords()
	assert.Equal(t, "esc", chords[hotkey.Quit])
	assert.Equal(t, "f6", chords[hotkey.ToggleLeft])

	m.KeyDown(keys["esc"])
	assert.False(t, st.Running())
}

func TestBindSessionUnknownDefaultKey(t *testing.T) {
	m := hotkey.NewManager(func(name string) (uint16, bool) {
		if name == "esc" {
			return 0, false
		}
		return lookup(name)
	}, logger.Nop())

	err := hotkey.BindSession(m, config.Default().Hotkeys, state.New(), logger.Nop())
	assert.True(t, errors.HasCode(err, errors.ErrUnknownKey))
}
