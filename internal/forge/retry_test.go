package forge

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangazineu/ghcollect/internal/forge/forgetest"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func newFlakyServer(t *testing.T) *forgetest.Server {
	t.Helper()
	server := forgetest.NewServer()
	t.Cleanup(server.Close)
	server.AddRepository(forgetest.Repository{
		Name:     "lib",
		FullName: "acme/lib",
		Owner:    forgetest.Owner{Login: "acme"},
	})
	return server
}

func TestRepositoryRetries(t *testing.T) {
	testCases := []struct {
		name         string
		failures     int
		status       int
		wantErr      bool
		wantRequests int
	}{
		{name: "recovers from bad gateway", failures: 2, status: http.StatusBadGateway, wantRequests: 3},
		{name: "gives up after max retries", failures: 3, status: http.StatusServiceUnavailable, wantErr: true, wantRequests: 3},
		{name: "client errors are not retried", failures: 1, status: http.StatusUnprocessableEntity, wantErr: true, wantRequests: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := newFlakyServer(t)
			server.FailNext(tc.failures, tc.status)

			client, err := NewClient("", server.URL)
			require.NoError(t, err)
			client.WithRetry(fastRetry())

			repo, err := client.Repository(context.Background(), "acme/lib")
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "acme/lib", repo.FullName)
			}
			assert.Equal(t, tc.wantRequests, server.Requests())
		})
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := RetryConfig{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, BackoffFactor: 1}
	err := cfg.do(ctx, func() error {
		calls++
		return &timeoutError{}
	}, func(int, error) { cancel() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryDelay(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}
	assert.Equal(t, 100*time.Millisecond, cfg.delay(0))
	assert.Equal(t, 400*time.Millisecond, cfg.delay(2))
	assert.Equal(t, time.Second, cfg.delay(10))

	cfg.JitterPercent = 0.1
	for i := 0; i < 20; i++ {
		d := cfg.delay(0)
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&timeoutError{}))
	assert.False(t, isRetryable(stderrors.New("boom")))
	assert.False(t, isRetryable(ErrNotFound))
}

type timeoutError struct{}

func (*timeoutError) Error() string   { return "i/o timeout" }
func (*timeoutError) Timeout() bool   { return true }
func (*timeoutError) Temporary() bool { return true }
