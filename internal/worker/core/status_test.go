package core_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"github.com/robalyx/followbot/internal/worker/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTest(t *testing.T) (*miniredis.Miniredis, rueidis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return mr, client
}

func TestMonitorRoundTrip(t *testing.T) {
	t.Parallel()

	mr, client := setupTest(t)
	monitor := core.NewMonitor(client, zap.NewNop())
	ctx := t.Context()

	require.NoError(t, monitor.ReportStatus(ctx, core.Status{
		WorkerID: "b", WorkerType: "stats", CurrentTask: "Idle", IsHealthy: true,
	}))
	require.NoError(t, monitor.ReportStatus(ctx, core.Status{
		WorkerID: "a", WorkerType: "cycle", CurrentTask: "Following", Progress: 40,
	}))

	// Heartbeats expire
	assert.Equal(t, core.HeartbeatTTL, mr.TTL("followbot:worker:cycle:a"))

	statuses, err := monitor.GetAllStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.Equal(t, "cycle", statuses[0].WorkerType)
	assert.Equal(t, "Following", statuses[0].CurrentTask)
	assert.Equal(t, 40, statuses[0].Progress)
	assert.False(t, statuses[0].IsHealthy)
	assert.Equal(t, "stats", statuses[1].WorkerType)
	assert.False(t, statuses[1].IsStale(time.Now()))
}

func TestMonitorSkipsMalformedStatus(t *testing.T) {
	t.Parallel()

	mr, client := setupTest(t)
	monitor := core.NewMonitor(client, zap.NewNop())

	require.NoError(t, mr.Set("followbot:worker:cycle:broken", "{not json"))

	statuses, err := monitor.GetAllStatuses(t.Context())
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

func TestStatusReporterWithoutRedis(t *testing.T) {
	t.Parallel()

	reporter := core.NewStatusReporter(nil, "cycle", zap.NewNop())
	reporter.Start(t.Context())
	defer reporter.Stop()

	reporter.UpdateStatus("Sweeping", 80)
	reporter.SetHealthy(false)

	status := reporter.Snapshot()
	assert.Equal(t, "Sweeping", status.CurrentTask)
	assert.Equal(t, 80, status.Progress)
	assert.False(t, status.IsHealthy)
	assert.NotEmpty(t, reporter.GetWorkerID())
}

func TestStatusReporterPublishes(t *testing.T) {
	t.Parallel()

	_, client := setupTest(t)
	reporter := core.NewStatusReporter(client, "cycle", zap.NewNop())
	reporter.UpdateStatus("Admitting", 10)
	reporter.Start(t.Context())
	defer reporter.Stop()

	monitor := core.NewMonitor(client, zap.NewNop())
	assert.Eventually(t, func() bool {
		statuses, err := monitor.GetAllStatuses(t.Context())
		return err == nil && len(statuses) == 1 && statuses[0].CurrentTask == "Admitting"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestLiveWorkers(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		statuses  map[string]core.Status
		expectIDs []string
	}{
		{
			name:     "no heartbeats",
			statuses: map[string]core.Status{},
		},
		{
			name: "fresh cycle heartbeat",
			statuses: map[string]core.Status{
				"followbot:worker:cycle:a": {WorkerID: "a", WorkerType: "cycle", LastSeen: now.Add(-10 * time.Second)},
			},
			expectIDs: []string{"a"},
		},
		{
			name: "stale cycle heartbeat",
			statuses: map[string]core.Status{
				"followbot:worker:cycle:a": {WorkerID: "a", WorkerType: "cycle", LastSeen: now.Add(-2 * time.Minute)},
			},
		},
		{
			name: "other worker types are ignored",
			statuses: map[string]core.Status{
				"followbot:worker:stats:b": {WorkerID: "b", WorkerType: "stats", LastSeen: now},
				"followbot:worker:cycle:c": {WorkerID: "c", WorkerType: "cycle", LastSeen: now},
			},
			expectIDs: []string{"c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mr, client := setupTest(t)
			for key, status := range tt.statuses {
				data, err := sonic.Marshal(status)
				require.NoError(t, err)
				require.NoError(t, mr.Set(key, string(data)))
			}

			live, err := core.NewMonitor(client, zap.NewNop()).LiveWorkers(t.Context(), "cycle", now)
			require.NoError(t, err)

			var ids []string
			for _, status := range live {
				ids = append(ids, status.WorkerID)
			}
			assert.Equal(t, tt.expectIDs, ids)
		})
	}
}
