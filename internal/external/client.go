// Package external provides the anti-corruption layer between the weather,
// geocoding and push domains and the vendor APIs behind them (Open-Meteo,
// BigDataCloud, Firebase Cloud Messaging, the token directory). Every
// outbound call goes through a BaseClient, so all vendors share one retry
// and circuit-breaking policy and surface failures as types.AppError.
package external

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"vaichover/internal/types"
)

// HeaderRequestID carries the caller's request ID to the upstream.
const HeaderRequestID = "X-Request-ID"

// RetryPolicy bounds the attempts made for one request. The wait before
// retry n is drawn from [MinWait, MinWait*2^n], capped at MaxWait, unless the
// upstream sent Retry-After.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy suits the keyless weather APIs.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// statusError marks a response the breaker counts as a failure.
type statusError struct {
	code int
}

func (e statusError) Error() string { return fmt.Sprintf("upstream returned %d", e.code) }

// retryableStatus reports whether a response status is worth another attempt.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// BaseClient sends requests through a circuit breaker with bounded retries.
// Responses other than 429 and 5xx are returned to the vendor client, which
// owns their interpretation.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	policy    RetryPolicy
	userAgent string
	wait      func(ctx context.Context, d time.Duration) error
}

// BaseClientOption configures a BaseClient.
type BaseClientOption func(*BaseClient)

// WithWaitFunc replaces the pause between attempts. Tests pass a no-op.
func WithWaitFunc(fn func(ctx context.Context, d time.Duration) error) BaseClientOption {
	return func(c *BaseClient) {
		c.wait = fn
	}
}

// breakerSettings opens the breaker after five consecutive failed attempts
// and probes again after 30 seconds.
func breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// NewBaseClient creates a BaseClient with its own breaker named breakerName.
func NewBaseClient(
	httpClient *http.Client,
	breakerName string,
	policy RetryPolicy,
	userAgent string,
	opts ...BaseClientOption,
) *BaseClient {
	breaker := gobreaker.NewCircuitBreaker[*http.Response](breakerSettings(breakerName))
	return NewBaseClientWithBreaker(httpClient, breaker, policy, userAgent, opts...)
}

// NewBaseClientWithBreaker creates a BaseClient around an existing breaker,
// so several clients can trip together.
func NewBaseClientWithBreaker(
	httpClient *http.Client,
	breaker *gobreaker.CircuitBreaker[*http.Response],
	policy RetryPolicy,
	userAgent string,
	opts ...BaseClientOption,
) *BaseClient {
	c := &BaseClient{
		client:    httpClient,
		breaker:   breaker,
		policy:    policy,
		userAgent: userAgent,
		wait:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req, retrying 429 and 5xx responses and transport errors. The
// caller closes the returned body. When attempts run out, the breaker is
// open or the context ends, Do returns an upstream AppError and no response.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if id := types.GetRequestID(ctx); id != "" {
		req.Header.Set(HeaderRequestID, id)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	body, err := snapshotBody(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to buffer request body", err)
	}

	var (
		last    *http.Response
		lastErr error
	)
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			req.ContentLength = int64(len(body))
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, err := c.client.Do(req)
			if err != nil {
				return nil, err
			}
			if retryableStatus(r.StatusCode) {
				return r, statusError{code: r.StatusCode}
			}
			return r, nil
		})
		if err == nil {
			discard(last)
			return resp, nil
		}

		discard(last)
		last, lastErr = resp, err

		if breakerRejected(err) || ctx.Err() != nil || attempt == c.policy.MaxRetries {
			break
		}
		if werr := c.wait(ctx, c.delay(attempt, resp)); werr != nil {
			lastErr = werr
			break
		}
	}

	discard(last)
	return nil, upstreamError(lastErr)
}

// delay picks the pause before the retry following attempt.
func (c *BaseClient) delay(attempt int, resp *http.Response) time.Duration {
	if d, ok := retryAfter(resp, time.Now()); ok {
		return min(max(d, c.policy.MinWait), c.policy.MaxWait)
	}

	ceiling := c.policy.MinWait << attempt
	if ceiling <= 0 || ceiling > c.policy.MaxWait {
		ceiling = c.policy.MaxWait
	}
	if ceiling <= c.policy.MinWait {
		return c.policy.MinWait
	}
	return c.policy.MinWait + rand.N(ceiling-c.policy.MinWait)
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP date.
func retryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		return t.Sub(now), true
	}
	return 0, false
}

// upstreamError maps the final attempt's failure to an AppError.
func upstreamError(err error) *types.AppError {
	if breakerRejected(err) {
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "circuit breaker is open; upstream service unavailable", err)
	}
	var se statusError
	if errors.As(err, &se) {
		if se.code == http.StatusTooManyRequests {
			return types.NewAppError(types.ErrCodeUpstreamRateLimited, "upstream rate limit exceeded", err)
		}
		return types.NewAppError(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("upstream returned %d after retries", se.code), err)
	}
	return types.NewAppError(types.ErrCodeUpstreamUnavailable, "upstream request failed", err)
}

func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// snapshotBody reads and closes req.Body so each attempt can replay it.
func snapshotBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

func discard(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
