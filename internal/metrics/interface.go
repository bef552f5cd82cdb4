package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/clickctl/internal/state"
)

// Collector records session samples.
type Collector interface {
	Record(ctx context.Context, sample *Sample) error
	Close() error
}

// Repository defines the interface for sample storage
type Repository interface {
	Record(sample *Sample) error
	Close() error
}

// Sample is one point-in-time observation of a session.
type Sample struct {
	Timestamp    time.Time
	SessionID    string
	Mode         string
	Paused       bool
	LeftEngaged  bool
	RightEngaged bool
	AverageRate  float64
	Actions      uint64
}

// NewSample converts a state snapshot into a sample.
func NewSample(sessionID string, at time.Time, s state.Snapshot) *Sample {
	return &Sample{
		Timestamp:    at,
		SessionID:    sessionID,
		Mode:         s.Mode.String(),
		Paused:       s.Paused,
		LeftEngaged:  s.Channels[state.Left].Engaged,
		RightEngaged: s.Channels[state.Right].Engaged,
		AverageRate:  s.AverageRate,
		Actions:      s.Actions,
	}
}
