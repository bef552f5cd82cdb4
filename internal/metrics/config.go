package metrics

import (
	"time"

	"codeberg.org/mutker/clickctl/internal/errors"
)

const (
	// File system permissions
	defaultDirPerm = 0o755

	defaultBatchSize     = 10
	defaultFlushInterval = 30 * time.Second
)

type Config struct {
	DBPath        string
	BatchSize     int
	FlushInterval time.Duration
	Enabled       bool
}

func DefaultConfig() Config {
	return Config{
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
		Enabled:       false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if metrics is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 {
		return errFactory.WithData(ErrInvalidConfig, "batch_size")
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
