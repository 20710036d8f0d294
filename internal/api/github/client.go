// Package github implements the platform client on top of the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/robalyx/followbot/internal/api"
	"github.com/robalyx/followbot/internal/setup/config"
	"github.com/robalyx/followbot/internal/store/types"
	"github.com/robalyx/followbot/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FollowersPerPage is the page size used when listing followers.
const FollowersPerPage = 100

// Client talks to the GitHub REST API for the operating account.
type Client struct {
	gh           *github.Client
	limiter      *rate.Limiter
	retryOptions utils.RetryOptions
	logger       *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetryOptions overrides the backoff used for read-only listing calls.
func WithRetryOptions(opts utils.RetryOptions) Option {
	return func(c *Client) {
		c.retryOptions = opts
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client, token string) Option {
	return func(c *Client) {
		c.gh = github.NewClient(httpClient).WithAuthToken(token)
	}
}

// New creates a client from the GitHub configuration.
func New(cfg *config.GitHub, logger *zap.Logger, opts ...Option) (*Client, error) {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.RequestTimeout) * time.Millisecond,
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		gh:           github.NewClient(httpClient).WithAuthToken(cfg.Token),
		limiter:      rate.NewLimiter(limit, max(cfg.Burst, 1)),
		retryOptions: utils.GetAPIRetryOptions(),
		logger:       logger.Named("github"),
	}

	for _, opt := range opts {
		opt(c)
	}

	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}

		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", cfg.BaseURL, err)
		}
		c.gh.BaseURL = parsed
	}

	return c, nil
}

// Follow implements api.Client.
func (c *Client) Follow(ctx context.Context, user types.User) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", api.ErrTransient, err)
	}

	if _, err := c.gh.Users.Follow(ctx, user.Login); err != nil {
		return fmt.Errorf("failed to follow %s: %w", user.Login, classifyError(err))
	}
	return nil
}

// Unfollow implements api.Client.
func (c *Client) Unfollow(ctx context.Context, user types.User) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", api.ErrTransient, err)
	}

	if _, err := c.gh.Users.Unfollow(ctx, user.Login); err != nil {
		return fmt.Errorf("failed to unfollow %s: %w", user.Login, classifyError(err))
	}
	return nil
}

// ListFollowers implements api.Client.
// Transient failures are retried with backoff since the call has no side effects.
func (c *Client) ListFollowers(ctx context.Context, account string, page int) ([]types.User, error) {
	users, err := utils.WithRetry(ctx, func() ([]*github.User, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", api.ErrTransient, err)
		}

		users, _, err := c.gh.Users.ListFollowers(ctx, account, &github.ListOptions{
			Page:    page,
			PerPage: FollowersPerPage,
		})
		if err != nil {
			c.logger.Debug("Failed to list followers",
				zap.String("account", account),
				zap.Int("page", page),
				zap.Error(err))
			return nil, classifyError(err)
		}
		return users, nil
	}, c.retryOptions, isRetryable(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list followers of %s (page %d): %w", account, page, err)
	}

	result := make([]types.User, 0, len(users))
	for _, u := range users {
		result = append(result, convertUser(u))
	}
	return result, nil
}

// TotalFollowingCount implements api.Client.
func (c *Client) TotalFollowingCount(ctx context.Context, account string) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: rate limiter: %w", api.ErrTransient, err)
	}

	user, _, err := c.gh.Users.Get(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("failed to get profile of %s: %w", account, classifyError(err))
	}
	return user.GetFollowing(), nil
}

// isRetryable stops retries on permanent errors and once the context is done.
func isRetryable(ctx context.Context) func(error) bool {
	return func(err error) bool {
		return ctx.Err() == nil && errors.Is(err, api.ErrTransient)
	}
}

// convertUser maps a GitHub user to a user snapshot.
func convertUser(u *github.User) types.User {
	return types.User{
		ID:         uint64(u.GetID()), //nolint:gosec // GitHub ids are positive
		Login:      u.GetLogin(),
		ProfileURL: u.GetHTMLURL(),
		AvatarURL:  u.GetAvatarURL(),
	}
}

// classifyError wraps a GitHub error with api.ErrTransient or api.ErrPermanent.
func classifyError(err error) error {
	var (
		rateLimitErr  *github.RateLimitError
		abuseErr      *github.AbuseRateLimitError
		responseErr   *github.ErrorResponse
		acceptedError *github.AcceptedError
	)

	switch {
	case errors.As(err, &rateLimitErr), errors.As(err, &abuseErr), errors.As(err, &acceptedError):
		return fmt.Errorf("%w: %w", api.ErrTransient, err)
	case errors.As(err, &responseErr) && responseErr.Response != nil:
		return fmt.Errorf("%w: %w", classifyStatus(responseErr.Response.StatusCode), err)
	default:
		// Network failures and timeouts
		return fmt.Errorf("%w: %w", api.ErrTransient, err)
	}
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusTooManyRequests:
		return api.ErrTransient
	case status >= http.StatusInternalServerError:
		return api.ErrTransient
	case status >= http.StatusBadRequest:
		return api.ErrPermanent
	default:
		return api.ErrTransient
	}
}
