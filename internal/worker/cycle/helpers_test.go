package cycle_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/robalyx/followbot/internal/notify"
	"github.com/robalyx/followbot/internal/setup/config"
	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/memory"
	"github.com/robalyx/followbot/internal/store/types"
	"github.com/robalyx/followbot/internal/worker/cycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const account = "me"

type fakeClient struct {
	mu            sync.Mutex
	following     int
	followErrs    map[uint64]error
	unfollowErrs  map[uint64]error
	listErrs      map[string]error
	pages         map[string][][]types.User
	followCalls   []uint64
	unfollowCalls []uint64
	listCalls     []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		followErrs:   make(map[uint64]error),
		unfollowErrs: make(map[uint64]error),
		listErrs:     make(map[string]error),
		pages:        make(map[string][][]types.User),
	}
}

func (f *fakeClient) Follow(_ context.Context, user types.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.followCalls = append(f.followCalls, user.ID)
	if err := f.followErrs[user.ID]; err != nil {
		return err
	}
	f.following++
	return nil
}

func (f *fakeClient) Unfollow(_ context.Context, user types.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unfollowCalls = append(f.unfollowCalls, user.ID)
	if err := f.unfollowErrs[user.ID]; err != nil {
		return err
	}
	f.following--
	return nil
}

func (f *fakeClient) ListFollowers(_ context.Context, login string, page int) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls = append(f.listCalls, fmt.Sprintf("%s:%d", login, page))
	if err := f.listErrs[login]; err != nil {
		return nil, err
	}

	pages := f.pages[login]
	if page < 1 || page > len(pages) {
		return nil, nil
	}
	return pages[page-1], nil
}

func (f *fakeClient) TotalFollowingCount(context.Context, string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.following, nil
}

func (f *fakeClient) setFollowers(login string, pages ...[]types.User) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pages[login] = pages
}

type fakeWaiter struct {
	mu          sync.Mutex
	calls       int
	cancelAfter int
	cancel      context.CancelFunc
}

func (f *fakeWaiter) Wait(ctx context.Context, _, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.cancel != nil && f.calls >= f.cancelAfter {
		f.cancel()
	}
	return ctx.Err()
}

type sentNotification struct {
	kind    notify.Kind
	payload notify.Payload
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Notify(_ context.Context, kind notify.Kind, payload notify.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, sentNotification{kind: kind, payload: payload})
}

func (f *fakeNotifier) kinds() []notify.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()

	var kinds []notify.Kind
	for _, n := range f.sent {
		kinds = append(kinds, n.kind)
	}
	return kinds
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	worker   *cycle.Worker
	store    *store.Store
	backend  *memory.Backend
	client   *fakeClient
	waiter   *fakeWaiter
	notifier *fakeNotifier
	clock    *clock
}

func baseLifecycle() config.Lifecycle {
	return config.Lifecycle{
		Account:                       account,
		MaxQueueSize:                  0,
		MaxTotalFollowing:             1000,
		PendingFollowBackWaitTimeDays: 5,
	}
}

func newHarness(t *testing.T, lc config.Lifecycle) *harness {
	t.Helper()

	backend := memory.New()
	return newHarnessWithBackend(t, lc, backend, backend)
}

// newHarnessWithBackend builds a harness whose store writes through wrapped,
// which must persist into backend.
func newHarnessWithBackend(t *testing.T, lc config.Lifecycle, backend *memory.Backend, wrapped store.Backend) *harness {
	t.Helper()

	st := store.New(wrapped)
	t.Cleanup(func() { _ = st.Close() })

	h := &harness{
		store:    st,
		backend:  backend,
		client:   newFakeClient(),
		waiter:   &fakeWaiter{},
		notifier: &fakeNotifier{},
		clock:    &clock{now: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)},
	}

	h.worker = cycle.New(st, h.client, h.notifier, config.Static(lc), h.waiter, zap.NewNop(),
		cycle.WithClock(h.clock.Now),
		cycle.WithRand(rand.New(rand.NewPCG(1, 2))),
	)

	return h
}

// flakyBackend fails the first Put into one collection.
type flakyBackend struct {
	store.Backend

	mu         sync.Mutex
	collection string
	failed     bool
}

var errInterruptedWrite = errors.New("interrupted write")

func (f *flakyBackend) Put(ctx context.Context, collection string, entry store.RawEntry) error {
	f.mu.Lock()
	fail := collection == f.collection && !f.failed
	if fail {
		f.failed = true
	}
	f.mu.Unlock()

	if fail {
		return errInterruptedWrite
	}
	return f.Backend.Put(ctx, collection, entry)
}

func user(id uint64) types.User {
	return types.User{ID: id, Login: fmt.Sprintf("user%d", id)}
}

func (h *harness) seed(t *testing.T, fn func(c *store.Collections) error) {
	t.Helper()
	require.NoError(t, h.store.WithLock(fn))
}

type collections struct {
	followQueue   *types.Ordered[types.FollowQueueEntry]
	pending       *types.Ordered[types.PendingEntry]
	unfollowQueue *types.Ordered[types.UnfollowEntry]
	followed      *types.Ordered[types.FollowedRecord]
	pastActions   *types.Ordered[types.PastAction]
	followers     *types.Ordered[types.Follower]
}

func (h *harness) snapshot(t *testing.T) collections {
	t.Helper()

	var s collections
	ctx := t.Context()
	h.seed(t, func(c *store.Collections) error {
		var err error
		if s.followQueue, err = c.FollowQueue.GetAll(ctx); err != nil {
			return err
		}
		if s.pending, err = c.Pending.GetAll(ctx); err != nil {
			return err
		}
		if s.unfollowQueue, err = c.UnfollowQueue.GetAll(ctx); err != nil {
			return err
		}
		if s.followed, err = c.Followed.GetAll(ctx); err != nil {
			return err
		}
		if s.pastActions, err = c.PastActions.GetAll(ctx); err != nil {
			return err
		}
		s.followers, err = c.Followers.GetAll(ctx)
		return err
	})
	return s
}

// assertExclusive checks that no user is tracked by more than one active collection
// and that no followed user is waiting in the follow queue.
func assertExclusive(t *testing.T, s collections) {
	t.Helper()

	seen := make(map[uint64]string)
	check := func(name string, ids []uint64) {
		for _, id := range ids {
			if other, ok := seen[id]; ok {
				assert.Failf(t, "user in two collections", "user %d is in %s and %s", id, other, name)
			}
			seen[id] = name
		}
	}
	check("follow queue", s.followQueue.IDs())
	check("pending", s.pending.IDs())
	check("unfollow queue", s.unfollowQueue.IDs())

	for _, id := range s.followQueue.IDs() {
		assert.False(t, s.followed.Has(id), "followed user %d re-entered the follow queue", id)
	}
}
