package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/robalyx/followbot/internal/store/types"
	"github.com/robalyx/followbot/internal/store/types/enum"
	"github.com/robalyx/followbot/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu       sync.Mutex
	embeds   []discord.Embed
	failures int
}

func (f *fakeSender) CreateEmbeds(embeds []discord.Embed, _ ...rest.RequestOpt) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failures > 0 {
		f.failures--
		return nil, errors.New("webhook unavailable")
	}
	f.embeds = append(f.embeds, embeds...)
	return &discord.Message{}, nil
}

func newTestDiscord(sender *fakeSender) *Discord {
	return &Discord{
		sender: sender,
		retryOptions: utils.RetryOptions{
			MaxElapsedTime:  time.Second,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
			MaxRetries:      2,
		},
		logger: zap.NewNop(),
	}
}

func TestDiscordNotify(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{failures: 1}
	notifier := newTestDiscord(sender)

	user := types.User{ID: 42, Login: "octocat", AvatarURL: "https://avatars/42"}
	notifier.Notify(t.Context(), KindFollowed, Payload{User: user, FollowedOn: time.Unix(1700000000, 0)})

	require.Len(t, sender.embeds, 1)
	embed := sender.embeds[0]
	assert.Equal(t, "Successfully followed octocat (42)", embed.Title)
	require.NotNil(t, embed.Thumbnail)
	assert.Equal(t, "https://avatars/42", embed.Thumbnail.URL)
	assert.Contains(t, embed.Description, "https://github.com/octocat?tab=repositories")
	assert.NotNil(t, embed.Timestamp)
}

func TestDiscordNotifySwallowsFailures(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{failures: 10}
	notifier := newTestDiscord(sender)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	assert.NotPanics(t, func() {
		notifier.Notify(ctx, KindOnline, Payload{})
	})
	assert.Empty(t, sender.embeds)
}

func TestBuildEmbed(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	user := types.User{ID: 7, Login: "carol", ProfileURL: "https://github.com/carol"}

	tests := []struct {
		name          string
		kind          Kind
		payload       Payload
		expectTitle   string
		expectColor   int
		expectContain string
	}{
		{
			name:          "online",
			kind:          KindOnline,
			payload:       Payload{At: at},
			expectTitle:   "Application online",
			expectColor:   onlineColor,
			expectContain: "online",
		},
		{
			name: "unfollowed",
			kind: KindUnfollowed,
			payload: Payload{
				User: user, Reason: enum.UnfollowReasonExpired, At: at,
			},
			expectTitle:   "Successfully unfollowed carol (7)",
			expectColor:   unfollowColor,
			expectContain: "https://github.com/carol",
		},
		{
			name:          "queued unfollow",
			kind:          KindQueuedUnfollow,
			payload:       Payload{User: user, Reason: enum.UnfollowReasonFollowedBack, At: at},
			expectTitle:   "Added user to unfollow queue",
			expectColor:   queuedColor,
			expectContain: "**ID:** 7",
		},
		{
			name: "daily metrics",
			kind: KindDailyMetrics,
			payload: Payload{
				At: at,
				Metrics: &types.MetricsReport{
					Follows: types.PeriodCounts{LastDay: 3},
					General: types.GeneralCounts{CurrentFollowers: 11},
				},
			},
			expectTitle:   "Daily Metrics - 2025-03-14",
			expectColor:   metricsColor,
			expectContain: "**Total Followers:** 11",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			embed := BuildEmbed(tt.kind, tt.payload)
			assert.Equal(t, tt.expectTitle, embed.Title)
			assert.Equal(t, tt.expectColor, embed.Color)
			assert.Contains(t, embed.Description, tt.expectContain)
			require.NotNil(t, embed.Footer)
			assert.Equal(t, footerText, embed.Footer.Text)
		})
	}
}

func TestUnfollowedFieldsShowUnknownTimes(t *testing.T) {
	t.Parallel()

	embed := BuildEmbed(KindUnfollowed, Payload{User: types.User{ID: 1, Login: "a"}})

	require.NotEmpty(t, embed.Fields)
	assert.Equal(t, "Followed On", embed.Fields[0].Name)
	assert.Equal(t, "N/A", embed.Fields[0].Value)
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "followed", KindFollowed.String())
	assert.Equal(t, "daily_metrics", KindDailyMetrics.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
	assert.Equal(t, "queued_unfollow", KindQueuedUnfollow.String())

	kind, err := KindString("daily_metrics")
	require.NoError(t, err)
	assert.Equal(t, KindDailyMetrics, kind)
	assert.Len(t, KindValues(), 5)
}
