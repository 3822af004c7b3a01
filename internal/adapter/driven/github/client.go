// Package github implements the SecretStore port on top of GitHub Actions
// repository secrets using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecretStore = (*Client)(nil)

// Client writes repository secrets for one repository.
type Client struct {
	gh         *gh.Client
	repository string // owner/repo
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching of the public key)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
//
// An empty token or repository yields a client whose Put returns
// driven.ErrSecretStoreNotConfigured.
func NewClient(token, repository string) *Client {
	if token == "" || repository == "" {
		return &Client{repository: repository}
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{gh: client, repository: repository}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, repository string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client, repository: repository}, nil
}

// Put seals value with the repository's public key and stores it as the
// Actions secret name, replacing any previous value.
func (c *Client) Put(ctx context.Context, name, value string) error {
	if c.gh == nil || c.repository == "" {
		return driven.ErrSecretStoreNotConfigured
	}

	owner, repo, err := splitRepo(c.repository)
	if err != nil {
		return err
	}

	key, resp, err := c.gh.Actions.GetRepoPublicKey(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("fetching public key for %s: %w", c.repository, err)
	}
	logRateLimit(resp, "actions/secrets/public-key")

	sealed, err := sealSecret(key.GetKey(), value)
	if err != nil {
		return fmt.Errorf("sealing secret %s: %w", name, err)
	}

	resp, err = c.gh.Actions.CreateOrUpdateRepoSecret(ctx, owner, repo, &gh.EncryptedSecret{
		Name:           name,
		KeyID:          key.GetKeyID(),
		EncryptedValue: sealed,
	})
	if err != nil {
		return fmt.Errorf("writing secret %s to %s: %w", name, c.repository, err)
	}
	logRateLimit(resp, "actions/secrets/"+name)

	slog.Info("repository secret updated", "repository", c.repository, "secret", name)
	return nil
}

func logRateLimit(resp *gh.Response, endpoint string) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 10 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
