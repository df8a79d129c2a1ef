package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

var (
	// ErrUnauthorized is returned when a request is still rejected after
	// one refresh and replay.
	ErrUnauthorized = errors.New("unauthorized after token refresh")
	// ErrSessionExpired is returned when the refresh endpoint rejects the
	// refresh cookie.
	ErrSessionExpired = errors.New("session expired")
)

const defaultRefreshTimeout = 10 * time.Second

// Sender performs one attempt of a request with the given access token.
// It is called again for the replay, so it must rebuild the request body.
type Sender func(ctx context.Context, accessToken string) (*http.Response, error)

// RefreshFunc exchanges the refresh cookie for a new access token.
type RefreshFunc func(ctx context.Context) (string, error)

type refreshResult struct {
	token string
	err   error
}

// RefreshCoordinator attaches the access token to requests and, on a 401,
// runs at most one refresh at a time. Requests that fail while a refresh is
// in flight wait for its outcome and are replayed once.
type RefreshCoordinator struct {
	tokens    *TokenStore
	refresh   RefreshFunc
	timeout   time.Duration
	onExpired func(error)
	logger    *slog.Logger

	mu         sync.Mutex
	refreshing bool
	queue      []chan refreshResult
}

type CoordinatorOption func(*RefreshCoordinator)

// WithRefreshTimeout bounds the refresh round-trip.
func WithRefreshTimeout(d time.Duration) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSessionExpired registers a callback fired once per failed refresh,
// after the stored token has been cleared.
func WithSessionExpired(fn func(error)) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		c.onExpired = fn
	}
}

func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewRefreshCoordinator(tokens *TokenStore, refresh RefreshFunc, opts ...CoordinatorOption) *RefreshCoordinator {
	c := &RefreshCoordinator{
		tokens:  tokens,
		refresh: refresh,
		timeout: defaultRefreshTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends the request and, on 401, refreshes (or joins a running refresh)
// and replays it once. A replay that also gets 401 fails with
// ErrUnauthorized. Other statuses are returned to the caller untouched.
func (c *RefreshCoordinator) Do(ctx context.Context, send Sender) (*http.Response, error) {
	used := c.tokens.Get()
	resp, err := send(ctx, used)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	discard(resp)

	token, err := c.awaitToken(ctx, used)
	if err != nil {
		return nil, err
	}

	resp, err = send(ctx, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		discard(resp)
		return nil, ErrUnauthorized
	}
	return resp, nil
}

// Reset drops the session's access token, e.g. after logout.
func (c *RefreshCoordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens.Clear()
}

// Refreshing reports whether a refresh is in flight.
func (c *RefreshCoordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// awaitToken returns a token to replay with. used is the token the failed
// attempt carried.
func (c *RefreshCoordinator) awaitToken(ctx context.Context, used string) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan refreshResult, 1)
		c.queue = append(c.queue, ch)
		c.mu.Unlock()

		select {
		case res := <-ch:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// a refresh finished after this request was sent
	if current := c.tokens.Get(); current != "" && current != used {
		c.mu.Unlock()
		return current, nil
	}

	c.refreshing = true
	c.mu.Unlock()

	token, err := c.runRefresh(ctx)

	// The queue is detached and the token stored under the same lock that
	// clears refreshing. Waiters are signalled after it; a 401 arriving in
	// between sees the rotated token and replays without a second refresh.
	c.mu.Lock()
	waiters := c.queue
	c.queue = nil
	if err != nil {
		c.tokens.Clear()
	} else {
		c.tokens.Set(token)
	}
	c.refreshing = false
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- refreshResult{token: token, err: err}
	}

	if err != nil {
		c.logger.Warn("token refresh failed", "waiters", len(waiters), "error", err)
		if c.onExpired != nil {
			c.onExpired(err)
		}
		return "", err
	}
	c.logger.Debug("token refreshed", "waiters", len(waiters))
	return token, nil
}

// runRefresh detaches from the caller's cancellation, since queued requests
// depend on the outcome, and applies the refresh timeout.
func (c *RefreshCoordinator) runRefresh(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	token, err := c.refresh(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrSessionExpired
	}
	return token, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
