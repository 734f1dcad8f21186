// Package transport issues GET requests with bounded retries against flaky
// HTTP endpoints such as the local instance metadata service.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/younsl/ec2utils/internal/logger"
)

// ErrConnection is matched by every error returned once retries are exhausted
var ErrConnection = errors.New("connection error")

// Options configures a Client
type Options struct {
	Retries       int
	BackoffFactor float64
	// StatusForcelist lists response codes that are retried like connection failures
	StatusForcelist []int
	Timeout         time.Duration
	MaxBackoff      time.Duration
	Logger          *zap.Logger
}

// DefaultOptions returns 5 retries, backoff factor 0.3, retry on 500/502/504
// and a 5 second request timeout
func DefaultOptions() Options {
	return Options{
		Retries:         5,
		BackoffFactor:   0.3,
		StatusForcelist: []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout},
		Timeout:         5 * time.Second,
		MaxBackoff:      120 * time.Second,
	}
}

// Response is the raw result of a GET
type Response struct {
	StatusCode int
	Body       string
}

// ConnectionError reports a request that could not be completed within the retry budget
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrConnection) hold for every ConnectionError
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// Client is a pooled HTTP client with retry
type Client struct {
	client *retryablehttp.Client
}

// New creates a Client from opts
func New(opts Options) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = opts.Timeout

	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.RetryMax = opts.Retries
	rc.Logger = logger.NewLeveledLogger(opts.Logger)
	rc.Backoff = backoff(opts.BackoffFactor, opts.MaxBackoff)
	rc.CheckRetry = checkRetry(opts.StatusForcelist)

	return &Client{client: rc}
}

// Get fetches url and returns the body as text. Non-retryable status codes
// are returned as-is, callers decide what a 404 means.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ConnectionError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{URL: url, Err: err}
	}

	return &Response{StatusCode: resp.StatusCode, Body: string(body)}, nil
}

// backoff sleeps factor * 2^n seconds before retry n, capped at max
func backoff(factor float64, max time.Duration) retryablehttp.Backoff {
	return func(_, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
		wait := time.Duration(factor * math.Pow(2, float64(attemptNum)) * float64(time.Second))
		if max > 0 && wait > max {
			return max
		}
		return wait
	}
}

func checkRetry(statuses []int) retryablehttp.CheckRetry {
	forced := make(map[int]bool, len(statuses))
	for _, s := range statuses {
		forced[s] = true
	}

	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		return forced[resp.StatusCode], nil
	}
}
