package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/clickctl/internal/errors"
	"codeberg.org/mutker/clickctl/internal/logger"
	"codeberg.org/mutker/clickctl/internal/state"
	"github.com/google/uuid"
)

// SnapshotSource reports session state and when the session ends.
type SnapshotSource interface {
	Snapshot() state.Snapshot
	Done() <-chan struct{}
}

// Sampler periodically records the session state into a Collector.
type Sampler struct {
	collector Collector
	src       SnapshotSource
	interval  time.Duration
	sessionID string
	now       func() time.Time
	log       logger.Logger
}

func NewSampler(collector Collector, src SnapshotSource, interval time.Duration, log logger.Logger) *Sampler {
	if interval <= 0 {
		interval = time.Second
	}

	return &Sampler{
		collector: collector,
		src:       src,
		interval:  interval,
		sessionID: uuid.NewString(),
		now:       time.Now,
		log:       log,
	}
}

// SessionID identifies the samples written by this sampler.
func (s *Sampler) SessionID() string {
	return s.sessionID
}

// Run samples until ctx is canceled or the session stops, recording one last
// sample on the way out. Storage failures are logged, not returned.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.sample(context.Background())
			return nil
		case <-s.src.Done():
			s.sample(ctx)
			return nil
		case <-ticker.C:
			s.sample(ctx)
		}
	}
}

func (s *Sampler) sample(ctx context.Context) {
	sample := NewSample(s.sessionID, s.now(), s.src.Snapshot())
	if err := s.collector.Record(ctx, sample); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			s.log.ErrorWithCode(appErr).Msg("Failed to record sample")
			return
		}
		s.log.Error().Err(err).Msg("Failed to record sample")
	}
}
