package codeforces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Common errors
var (
	// ErrInvalidHandle marks a sync target that can never succeed: an empty
	// handle or one the remote service does not know. Callers must not retry.
	ErrInvalidHandle = errors.New("invalid codeforces handle")

	// ErrRemoteUnavailable marks a transient remote failure (timeout, 5xx,
	// rate limit, malformed payload). The sync run records it and the next
	// scheduled run tries again.
	ErrRemoteUnavailable = errors.New("codeforces unavailable")
)

// Options configures a Client.
type Options struct {
	BaseURL            string
	MinRequestInterval time.Duration
	RequestTimeout     time.Duration
	MaxAttempts        int
	PageSize           int
	HTTPClient         *http.Client
}

// Client fetches profile, rating and submission data from the Codeforces
// API. A single Client instance is shared by all sync workers so the
// inter-request spacing holds in aggregate, not just per worker.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter
	requestTimeout time.Duration
	maxAttempts    int
	pageSize       int
}

// NewClient creates a Codeforces API client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://codeforces.com/api"
	}
	if opts.MinRequestInterval <= 0 {
		opts.MinRequestInterval = 500 * time.Millisecond
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 4
	}
	if opts.PageSize < 1 {
		opts.PageSize = 1000
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		httpClient:     httpClient,
		limiter:        rate.NewLimiter(rate.Every(opts.MinRequestInterval), 1),
		requestTimeout: opts.RequestTimeout,
		maxAttempts:    opts.MaxAttempts,
		pageSize:       opts.PageSize,
	}
}

// FetchUserInfo returns the profile summary for a handle.
func (c *Client) FetchUserInfo(ctx context.Context, handle string) (*UserInfo, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}

	var users []UserInfo
	params := url.Values{"handles": {handle}}
	if err := c.getResult(ctx, "user.info", params, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: user.info returned no users for %q", ErrRemoteUnavailable, handle)
	}
	return &users[0], nil
}

// FetchRatingHistory returns all rated contest participations for a handle,
// in the order the API supplies them (oldest first).
func (c *Client) FetchRatingHistory(ctx context.Context, handle string) ([]RatingChange, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}

	var changes []RatingChange
	params := url.Values{"handle": {handle}}
	if err := c.getResult(ctx, "user.rating", params, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// FetchSubmissions returns the full submission history for a handle, fetched
// in pages of the configured size until a short page signals the end.
func (c *Client) FetchSubmissions(ctx context.Context, handle string) ([]Submission, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}

	var all []Submission
	from := 1
	for {
		params := url.Values{
			"handle": {handle},
			"from":   {strconv.Itoa(from)},
			"count":  {strconv.Itoa(c.pageSize)},
		}

		var page []Submission
		if err := c.getResult(ctx, "user.status", params, &page); err != nil {
			return nil, err
		}

		all = append(all, page...)
		if len(page) < c.pageSize {
			return all, nil
		}
		from += c.pageSize
	}
}

func validateHandle(handle string) error {
	if strings.TrimSpace(handle) == "" {
		return fmt.Errorf("%w: empty handle", ErrInvalidHandle)
	}
	return nil
}

// apiEnvelope is the outer wrapper of every Codeforces API response.
type apiEnvelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

// getResult performs one logical API call: rate-limited, retried with
// exponential backoff on transient failures, each attempt under its own
// timeout. Invalid-handle responses abort the retry loop immediately.
func (c *Client) getResult(ctx context.Context, method string, params url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, method, params.Encode())

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		return c.attempt(ctx, endpoint, out)
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxAttempts-1)),
		ctx,
	)

	if err := backoff.Retry(operation, bo); err != nil {
		return err
	}
	return nil
}

// attempt performs a single HTTP request. Errors it returns are either
// wrapped in ErrRemoteUnavailable (retryable) or marked permanent.
func (c *Client) attempt(ctx context.Context, endpoint string, out interface{}) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection failures are transient. A cancelled
		// parent context is not worth retrying against.
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrRemoteUnavailable, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", ErrRemoteUnavailable, err)
	}

	if env.Status != "OK" {
		if isUnknownHandleComment(env.Comment) {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrInvalidHandle, env.Comment))
		}
		return fmt.Errorf("%w: api status %q: %s", ErrRemoteUnavailable, env.Status, env.Comment)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: malformed result: %v", ErrRemoteUnavailable, err)
	}

	return nil
}

// isUnknownHandleComment matches the comment Codeforces attaches to a FAILED
// response for an unknown user, e.g. "handles: User with handle x not found".
func isUnknownHandleComment(comment string) bool {
	lower := strings.ToLower(comment)
	return strings.Contains(lower, "not found") ||
		strings.Contains(lower, "incorrect handle")
}
