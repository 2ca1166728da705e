// Package forge looks up repository metadata on GitHub.
package forge

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v63/github"
	"github.com/rs/zerolog"
)

// Repository is the metadata recorded for a collected repository.
type Repository struct {
	FullName string
	Owner    string
	Name     string
	Stars    int
	Language string
	Size     int
	CloneURL string
}

// Client wraps the GitHub REST API.
type Client struct {
	gh     *github.Client
	retry  RetryConfig
	logger zerolog.Logger
}

// NewClient creates a client. An empty token makes unauthenticated requests;
// a non-empty baseURL points the client at another API root.
func NewClient(token, baseURL string) (*Client, error) {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
		}
		gh.BaseURL = u
	}
	return &Client{gh: gh, retry: DefaultRetryConfig(), logger: zerolog.Nop()}, nil
}

// WithRetry replaces the retry policy of metadata lookups.
func (c *Client) WithRetry(cfg RetryConfig) *Client {
	c.retry = cfg
	return c
}

// WithLogger sets the logger used to report retries.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	c.logger = logger
	return c
}

// ParseFullName splits "owner/repo".
func ParseFullName(fullName string) (owner, name string, err error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository must be in the format owner/repo, got %q", fullName)
	}
	return parts[0], parts[1], nil
}

// ErrNotFound is returned when the repository does not exist.
var ErrNotFound = stderrors.New("repository not found")

// Repository fetches metadata for "owner/repo".
func (c *Client) Repository(ctx context.Context, fullName string) (*Repository, error) {
	owner, name, err := ParseFullName(fullName)
	if err != nil {
		return nil, err
	}

	var repo *github.Repository
	err = c.retry.do(ctx, func() error {
		var err error
		repo, _, err = c.gh.Repositories.Get(ctx, owner, name)
		return err
	}, func(attempt int, err error) {
		c.logger.Warn().Err(err).Str("repo", fullName).Int("attempt", attempt).Msg("retrying repository lookup")
	})
	if err != nil {
		var errResp *github.ErrorResponse
		if stderrors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", fullName, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get repository %s: %w", fullName, err)
	}

	return &Repository{
		FullName: repo.GetFullName(),
		Owner:    repo.GetOwner().GetLogin(),
		Name:     repo.GetName(),
		Stars:    repo.GetStargazersCount(),
		Language: strings.ToLower(strings.TrimSpace(repo.GetLanguage())),
		Size:     repo.GetSize(),
		CloneURL: repo.GetCloneURL(),
	}, nil
}
