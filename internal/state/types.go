package state

import (
	"strings"

	"codeberg.org/mutker/clickctl/internal/errors"
)

// Channel identifies one of the two independently driven action sources.
type Channel uint8

const (
	Left Channel = iota
	Right

	channelCount = 2
)

// Channels lists every channel in index order.
var Channels = [channelCount]Channel{Left, Right}

func (c Channel) String() string {
	switch c {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

func (c Channel) valid() bool {
	return c < channelCount
}

// Mode selects which engagement signal drives the channels.
type Mode uint8

const (
	// Hold mirrors the physical press state of each channel.
	Hold Mode = iota
	// Toggle uses a logical on/off flag flipped by hotkeys.
	Toggle
)

func (m Mode) String() string {
	if m == Toggle {
		return "toggle"
	}

	return "hold"
}

// ParseMode accepts "hold" or "toggle" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hold":
		return Hold, nil
	case "toggle":
		return Toggle, nil
	default:
		return Hold, errors.New().WithData(errors.ErrInvalidArgument, "mode "+s)
	}
}

// ChannelSnapshot is the observable state of one channel.
type ChannelSnapshot struct {
	Held      bool
	ToggledOn bool
	// Engaged is the flag that matters in the current mode, ignoring pause.
	Engaged bool
}

// Snapshot is a consistent, read-only copy of the session state.
type Snapshot struct {
	Mode        Mode
	Paused      bool
	Running     bool
	Channels    [channelCount]ChannelSnapshot
	AverageRate float64
	Actions     uint64
}
