package stats_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/followbot/internal/notify"
	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/memory"
	"github.com/robalyx/followbot/internal/store/types"
	"github.com/robalyx/followbot/internal/store/types/enum"
	"github.com/robalyx/followbot/internal/worker/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu       sync.Mutex
	payloads []notify.Payload
	kinds    []notify.Kind
}

func (n *recordingNotifier) Notify(_ context.Context, kind notify.Kind, payload notify.Payload) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.kinds = append(n.kinds, kind)
	n.payloads = append(n.payloads, payload)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, rueidis.Client) {
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

func seedStore(t *testing.T) *store.Store {
	t.Helper()

	st := store.New(memory.New())
	ctx := t.Context()

	require.NoError(t, st.WithLock(func(c *store.Collections) error {
		for id := uint64(1); id <= 3; id++ {
			user := types.User{ID: id, Login: "queued"}
			if err := c.FollowQueue.Upsert(ctx, id, types.FollowQueueEntry{User: user, FetchedAt: now}); err != nil {
				return err
			}
		}
		if err := c.Pending.Upsert(ctx, 10, types.PendingEntry{FollowedOn: daysAgo(0.5)}); err != nil {
			return err
		}
		if err := c.Pending.Upsert(ctx, 11, types.PendingEntry{FollowedOn: daysAgo(3)}); err != nil {
			return err
		}
		if err := c.UnfollowQueue.Upsert(ctx, 20, types.UnfollowEntry{FollowedOn: daysAgo(8)}); err != nil {
			return err
		}
		for _, id := range []uint64{10, 11, 20, 30} {
			if err := c.Followed.Upsert(ctx, id, types.FollowedRecord{UserID: id}); err != nil {
				return err
			}
		}
		if err := c.PastActions.Upsert(ctx, 30, types.PastAction{
			FollowedOn:     daysAgo(4),
			UnfollowedOn:   daysAgo(0.5),
			UnfollowReason: enum.UnfollowReasonFollowedBack,
		}); err != nil {
			return err
		}
		return c.Followers.Upsert(ctx, 30, types.Follower{SeenAt: now})
	}))

	return st
}

func TestRunOnceStoresAndNotifies(t *testing.T) {
	t.Parallel()

	mr, client := setupRedis(t)
	notifier := &recordingNotifier{}
	worker := stats.New(seedStore(t), client, notifier, zap.NewNop(),
		stats.WithClock(func() time.Time { return now }))

	report, err := worker.RunOnce(t.Context())
	require.NoError(t, err)

	assert.Equal(t, types.GeneralCounts{
		FollowQueue:       3,
		PendingFollowBack: 2,
		UnfollowQueue:     1,
		UsersFollowed:     4,
		CurrentFollowers:  1,
		PastActions:       1,
	}, report.General)
	assert.Equal(t, types.PeriodCounts{LastDay: 1, LastWeek: 3, LastMonth: 3}, report.Follows)
	assert.Equal(t, types.PeriodCounts{LastDay: 1, LastWeek: 1, LastMonth: 1}, report.UnfollowedFollowBack)

	// Stored for the day with a retention window
	assert.True(t, mr.Exists("followbot:metrics:2025-03-14"))
	assert.Positive(t, mr.TTL("followbot:metrics:2025-03-14"))

	require.Len(t, notifier.kinds, 1)
	assert.Equal(t, notify.KindDailyMetrics, notifier.kinds[0])
	assert.Same(t, report, notifier.payloads[0].Metrics)

	loaded, err := worker.Load(t.Context(), now)
	require.NoError(t, err)
	assert.True(t, loaded.Date.Equal(report.Date))
	assert.Equal(t, report.General, loaded.General)
	assert.Equal(t, report.Follows, loaded.Follows)
	assert.Equal(t, report.UnfollowedFollowBack, loaded.UnfollowedFollowBack)
}

func TestLoadMissingReport(t *testing.T) {
	t.Parallel()

	_, client := setupRedis(t)

	tests := []struct {
		name   string
		client rueidis.Client
	}{
		{name: "nothing stored", client: client},
		{name: "no redis", client: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			worker := stats.New(store.New(memory.New()), tt.client, notify.Nop{}, zap.NewNop())
			_, err := worker.Load(t.Context(), now)
			require.ErrorIs(t, err, stats.ErrReportNotFound)
		})
	}
}

func TestRunOnceWithoutRedis(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	worker := stats.New(seedStore(t), nil, notifier, zap.NewNop(),
		stats.WithClock(func() time.Time { return now }))

	report, err := worker.RunOnce(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, report.General.FollowQueue)
	assert.Len(t, notifier.kinds, 1)

	// The metrics log serves the report without Redis
	loaded, err := worker.Load(t.Context(), now)
	require.NoError(t, err)
	assert.True(t, loaded.Date.Equal(report.Date))
	assert.Equal(t, report.General, loaded.General)

	_, err = worker.Load(t.Context(), now.AddDate(0, 0, -1))
	require.ErrorIs(t, err, stats.ErrReportNotFound)
}

func TestMetricsLogRetention(t *testing.T) {
	t.Parallel()

	st := seedStore(t)
	ctx := t.Context()

	current := now
	worker := stats.New(st, nil, notify.Nop{}, zap.NewNop(),
		stats.WithClock(func() time.Time { return current }))

	days := []int{0, 30, 89, 91}
	for _, day := range days {
		current = now.AddDate(0, 0, day)
		_, err := worker.RunOnce(ctx)
		require.NoError(t, err)
	}

	var ids []uint64
	require.NoError(t, st.WithLock(func(c *store.Collections) error {
		reports, err := c.MetricsLog.GetAll(ctx)
		if err != nil {
			return err
		}
		ids = reports.IDs()
		return nil
	}))

	// The first report fell out of the window when the last one was saved
	assert.Equal(t, []uint64{20250413, 20250611, 20250613}, ids)

	_, err := worker.Load(ctx, now)
	require.ErrorIs(t, err, stats.ErrReportNotFound)

	loaded, err := worker.Load(ctx, now.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.True(t, loaded.Date.Equal(now.AddDate(0, 0, 30)))
}

func TestLoadFallsBackToRedis(t *testing.T) {
	t.Parallel()

	mr, client := setupRedis(t)
	worker := stats.New(store.New(memory.New()), client, notify.Nop{}, zap.NewNop())

	require.NoError(t, mr.Set("followbot:metrics:2025-03-14",
		`{"date":"2025-03-14T00:00:00Z","general":{"total_follow_queue":7}}`))

	loaded, err := worker.Load(t.Context(), now)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.General.FollowQueue)
}

// failingLoadBackend fails the first Load of one collection.
type failingLoadBackend struct {
	store.Backend

	mu         sync.Mutex
	collection string
	failed     bool
}

func (f *failingLoadBackend) Load(ctx context.Context, collection string) ([]store.RawEntry, error) {
	f.mu.Lock()
	fail := collection == f.collection && !f.failed
	if fail {
		f.failed = true
	}
	f.mu.Unlock()

	if fail {
		return nil, errors.New("store unavailable")
	}
	return f.Backend.Load(ctx, collection)
}

func TestStartRetriesFailedReport(t *testing.T) {
	t.Parallel()

	backend := &failingLoadBackend{Backend: memory.New(), collection: store.PendingName}
	notifier := &recordingNotifier{}
	worker := stats.New(store.New(backend), nil, notifier, zap.NewNop(),
		stats.WithRetryDelay(time.Millisecond))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	// The report is published after the retry instead of at midnight
	assert.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.kinds) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.True(t, backend.failed)
}

func TestStartStopsOnCancel(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	worker := stats.New(seedStore(t), nil, notifier, zap.NewNop())

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.kinds) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
