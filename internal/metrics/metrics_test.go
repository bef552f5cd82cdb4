package metrics_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/clickctl/internal/errors"
	"codeberg.org/mutker/clickctl/internal/logger"
	"codeberg.org/mutker/clickctl/internal/metrics"
	"codeberg.org/mutker/clickctl/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dbConfig(t *testing.T, batch int) metrics.Config {
	t.Helper()
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "state", "metrics.db")
	cfg.BatchSize = batch
	return cfg
}

func countSamples(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM samples").Scan(&n))
	return n
}

func TestDisabledIsNoop(t *testing.T) {
	c, err := metrics.NewService(metrics.DefaultConfig(), logger.Nop())
	require.NoError(t, err)

	assert.NoError(t, c.Record(context.Background(), &metrics.Sample{}))
	assert.NoError(t, c.Close())
}

func TestEnabledRequiresPath(t *testing.T) {
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true

	_, err := metrics.NewService(cfg, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidDBPath))
}

func TestRecordBatchesAndFlushesOnClose(t *testing.T) {
	cfg := dbConfig(t, 3)
	c, err := metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)

	st := state.New()
	for i := 0; i < 4; i++ {
		require.NoError(t, c.Record(context.Background(), metrics.NewSample("s1", time.Now(), st.Snapshot())))
	}
	assert.Equal(t, 3, countSamples(t, cfg.DBPath), "first batch written")

	require.NoError(t, c.Close())
	assert.Equal(t, 4, countSamples(t, cfg.DBPath), "remainder flushed on close")
}

func TestRecordNilSample(t *testing.T) {
	c, err := metrics.NewService(dbConfig(t, 1), logger.Nop())
	require.NoError(t, err)
	defer c.Close()

	err = c.Record(context.Background(), nil)
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidMetrics))
}

func TestRecordCanceledContext(t *testing.T) {
	c, err := metrics.NewService(dbConfig(t, 1), logger.Nop())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = c.Record(ctx, &metrics.Sample{Mode: "hold"})
	assert.True(t, errors.HasCode(err, metrics.ErrOperationTimeout))
}

func TestReopenKeepsSchema(t *testing.T) {
	cfg := dbConfig(t, 1)

	c, err := metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Record(context.Background(), &metrics.Sample{SessionID: "a", Mode: "toggle", Timestamp: time.Now()}))
	require.NoError(t, c.Close())

	c, err = metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	assert.Equal(t, 1, countSamples(t, cfg.DBPath))
}

func TestOutdatedSchemaIsBackedUpAndRecreated(t *testing.T) {
	cfg := dbConfig(t, 1)

	c, err := metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec("DELETE FROM schema_versions")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO schema_versions (version, applied_at) VALUES (99, datetime('now'))")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c, err = metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	backups, err := filepath.Glob(filepath.Join(filepath.Dir(cfg.DBPath), "backups", "metrics_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestNewSample(t *testing.T) {
	st := state.New(state.WithMode(state.Toggle), state.WithPaused(true))
	st.ToggleChannel(state.Right)
	at := time.Unix(100, 0)

	s := metrics.NewSample("id", at, st.Snapshot())

	assert.Equal(t, "toggle", s.Mode)
	assert.True(t, s.Paused)
	assert.False(t, s.LeftEngaged)
	assert.True(t, s.RightEngaged)
	assert.Equal(t, at, s.Timestamp)
	assert.Equal(t, "id", s.SessionID)
}

type memCollector struct {
	mu      sync.Mutex
	samples []*metrics.Sample
}

func (m *memCollector) Record(_ context.Context, s *metrics.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, s)
	return nil
}

func (*memCollector) Close() error { return nil }

func (m *memCollector) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples)
}

func TestSamplerRecordsUntilStopped(t *testing.T) {
	st := state.New()
	mem := &memCollector{}
	s := metrics.NewSampler(mem, st, 5*time.Millisecond, logger.Nop())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()

	require.Eventually(t, func() bool { return mem.len() >= 2 }, time.Second, time.Millisecond)
	st.Stop()
	require.NoError(t, <-errCh)

	n := mem.len()
	assert.NotEmpty(t, s.SessionID())
	mem.mu.Lock()
	defer mem.mu.Unlock()
	assert.Equal(t, s.SessionID(), mem.samples[n-1].SessionID)
	assert.False(t, mem.samples[n-1].Paused)
}

func TestOpenFallsBackToNoop(t *testing.T) {
	// A regular file where a directory is needed makes the store unopenable.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(blocker, "metrics.db")

	c, enabled := metrics.Open(cfg, logger.Nop())
	require.NotNil(t, c)
	assert.False(t, enabled)
	assert.NoError(t, c.Record(context.Background(), &metrics.Sample{}))
	assert.NoError(t, c.Close())
}

func TestOpenEnabled(t *testing.T) {
	c, enabled := metrics.Open(dbConfig(t, 1), logger.Nop())
	assert.True(t, enabled)
	assert.NoError(t, c.Close())

	c, enabled = metrics.Open(metrics.DefaultConfig(), logger.Nop())
	assert.False(t, enabled)
	assert.NoError(t, c.Close())
}
