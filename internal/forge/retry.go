package forge

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/google/go-github/v63/github"
)

// RetryConfig controls how transient GitHub API failures are retried.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// JitterPercent spreads delays by up to this fraction either way.
	JitterPercent float64
}

// DefaultRetryConfig retries three times starting at half a second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		JitterPercent: 0.1,
	}
}

// do runs fn until it succeeds, fails permanently or retries run out.
// onRetry, when set, is called before each wait.
func (c RetryConfig) do(ctx context.Context, fn func() error, onRetry func(attempt int, err error)) error {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil || attempt == c.MaxRetries || !isRetryable(lastErr) {
			return lastErr
		}
		if onRetry != nil {
			onRetry(attempt+1, lastErr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.delay(attempt)):
		}
	}
	return lastErr
}

func (c RetryConfig) delay(attempt int) time.Duration {
	delay := float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt))
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if c.JitterPercent > 0 {
		delay += delay * c.JitterPercent * (rand.Float64()*2 - 1)
	}
	if delay < 0 {
		delay = float64(c.InitialDelay)
	}
	return time.Duration(delay)
}

// isRetryable accepts server errors, secondary rate limits and network
// timeouts. Primary rate limits reset too far out to wait for.
func isRetryable(err error) bool {
	var abuse *github.AbuseRateLimitError
	if stderrors.As(err, &abuse) {
		return true
	}
	var rate *github.RateLimitError
	if stderrors.As(err, &rate) {
		return false
	}
	var errResp *github.ErrorResponse
	if stderrors.As(err, &errResp) && errResp.Response != nil {
		switch errResp.Response.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
