package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"
	"github.com/robalyx/followbot/internal/store/types"
	"github.com/robalyx/followbot/pkg/utils"
	"go.uber.org/zap"
)

const (
	followedColor = 0x55FF55
	unfollowColor = 0xFF5555
	queuedColor   = 0xFFFF55
	metricsColor  = 0x55FF55
	onlineColor   = 0x5865F2
	footerText    = "followbot"
)

// sender is the subset of the disgo webhook client used for delivery.
type sender interface {
	CreateEmbeds(embeds []discord.Embed, opts ...rest.RequestOpt) (*discord.Message, error)
}

// Discord posts notifications as embeds to a Discord webhook.
type Discord struct {
	sender       sender
	client       webhook.Client
	retryOptions utils.RetryOptions
	logger       *zap.Logger
}

// NewDiscord creates a notifier for the given webhook URL.
func NewDiscord(webhookURL string, logger *zap.Logger) (*Discord, error) {
	client, err := webhook.NewWithURL(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord webhook client: %w", err)
	}

	return &Discord{
		sender:       client,
		client:       client,
		retryOptions: utils.GetNotifyRetryOptions(),
		logger:       logger.Named("notify"),
	}, nil
}

// Notify implements Notifier.
func (d *Discord) Notify(ctx context.Context, kind Kind, payload Payload) {
	if payload.At.IsZero() {
		payload.At = time.Now()
	}

	embed := BuildEmbed(kind, payload)

	_, err := utils.WithRetry(ctx, func() (*discord.Message, error) {
		return d.sender.CreateEmbeds([]discord.Embed{embed}, rest.WithCtx(ctx))
	}, d.retryOptions, func(error) bool { return ctx.Err() == nil })
	if err != nil {
		d.logger.Error("Failed to send Discord notification",
			zap.String("kind", kind.String()),
			zap.Uint64("userID", payload.User.ID),
			zap.Error(err))
		return
	}

	d.logger.Debug("Sent Discord notification", zap.String("kind", kind.String()))
}

// Close releases the webhook client.
func (d *Discord) Close(ctx context.Context) {
	if d.client != nil {
		d.client.Close(ctx)
	}
}

// BuildEmbed renders a notification as a Discord embed.
func BuildEmbed(kind Kind, payload Payload) discord.Embed {
	embed := discord.NewEmbedBuilder().
		SetFooterText(footerText).
		SetTimestamp(payload.At)

	switch kind {
	case KindOnline:
		message := payload.Message
		if message == "" {
			message = "Application is online."
		}
		embed.SetTitle("Application online").
			SetDescription(message).
			SetColor(onlineColor)

	case KindFollowed:
		embed.SetTitle(fmt.Sprintf("Successfully followed %s (%d)", payload.User.Login, payload.User.ID)).
			SetDescription(profileLinks(payload.User)).
			SetThumbnail(payload.User.AvatarURL).
			SetColor(followedColor).
			AddField("Username", payload.User.Login, true).
			AddField("User ID", strconv.FormatUint(payload.User.ID, 10), true).
			AddField("Followed On", formatTime(payload.FollowedOn), true)

	case KindUnfollowed:
		embed.SetTitle(fmt.Sprintf("Successfully unfollowed %s (%d)", payload.User.Login, payload.User.ID)).
			SetDescription(profileLinks(payload.User)).
			SetThumbnail(payload.User.AvatarURL).
			SetColor(unfollowColor).
			AddField("Followed On", formatTime(payload.FollowedOn), true).
			AddField("Queued On", formatTime(payload.AddedToQueueOn), true).
			AddField("Unfollowed On", formatTime(payload.UnfollowedOn), true).
			AddField("Reason", payload.Reason.Description(), false)

	case KindQueuedUnfollow:
		embed.SetTitle("Added user to unfollow queue").
			SetDescription(fmt.Sprintf("**User:** [%s](%s)\n**ID:** %d\n\n%s",
				payload.User.Login, profileURL(payload.User), payload.User.ID, profileLinks(payload.User))).
			SetThumbnail(payload.User.AvatarURL).
			SetColor(queuedColor).
			AddField("Followed On", formatTime(payload.FollowedOn), true).
			AddField("Moved to Queue", formatTime(payload.AddedToQueueOn), true).
			AddField("Reason", payload.Reason.Description(), false)

	case KindDailyMetrics:
		embed.SetTitle("Daily Metrics - " + payload.At.Format(time.DateOnly)).
			SetColor(metricsColor)
		if payload.Metrics != nil {
			embed.SetDescription(metricsDescription(payload.Metrics))
		}

	default:
		embed.SetTitle("Notification").SetDescription(payload.Message)
	}

	return embed.Build()
}

// profileURL returns the profile link of the user.
func profileURL(user types.User) string {
	if user.ProfileURL != "" {
		return user.ProfileURL
	}
	return "https://github.com/" + user.Login
}

// profileLinks renders the profile, repositories and stars links.
func profileLinks(user types.User) string {
	return fmt.Sprintf("[[Profile]](%s) [[Repositories]](https://github.com/%s?tab=repositories) "+
		"[[Starred Repos]](https://github.com/%s?tab=stars)",
		profileURL(user), user.Login, user.Login)
}

// formatTime renders a Discord timestamp, or N/A for unknown times.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return fmt.Sprintf("<t:%d:f>", t.Unix())
}

func metricsDescription(m *types.MetricsReport) string {
	return fmt.Sprintf(`**Total Follows (24 Hours):** %d
**Total Follows (Week):** %d
**Total Follows (Month):** %d

**Total Unfollows (24 Hours):** %d
**Unfollows - Followed Back (24 Hours):** %d
**Unfollows - Expired (24 Hours):** %d

**Total Unfollows (Week):** %d
**Unfollows - Followed Back (Week):** %d
**Unfollows - Expired (Week):** %d

**Total Unfollows (Month):** %d
**Unfollows - Followed Back (Month):** %d
**Unfollows - Expired (Month):** %d

**Total in Unfollow Queue:** %d
**Total in Follow Queue:** %d
**Total Pending Follow Back:** %d
**Total Users Followed:** %d
**Total Followers:** %d`,
		m.Follows.LastDay, m.Follows.LastWeek, m.Follows.LastMonth,
		m.Unfollows.LastDay, m.UnfollowedFollowBack.LastDay, m.UnfollowedExpired.LastDay,
		m.Unfollows.LastWeek, m.UnfollowedFollowBack.LastWeek, m.UnfollowedExpired.LastWeek,
		m.Unfollows.LastMonth, m.UnfollowedFollowBack.LastMonth, m.UnfollowedExpired.LastMonth,
		m.General.UnfollowQueue, m.General.FollowQueue, m.General.PendingFollowBack,
		m.General.UsersFollowed, m.General.CurrentFollowers,
	)
}
