package github

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/go-github/v57/github"
	"github.com/rohankatakam/prhelper/internal/errors"
	"github.com/rohankatakam/prhelper/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultAPIURL is the public GitHub REST endpoint
	DefaultAPIURL = "https://api.github.com/"

	defaultPerPage       = 100
	defaultRateLimit     = 10 // requests per second
	defaultRetryAttempts = 3
	initialRetryDelay    = 500 * time.Millisecond
	maxRetryDelay        = 10 * time.Second
)

// ClientConfig is everything the client needs, passed explicitly at construction
type ClientConfig struct {
	Token         string        // empty means unauthenticated, with lower rate limits
	BaseURL       string        // API root, defaults to DefaultAPIURL
	PerPage       int           // page size for list calls (1..100)
	RateLimit     float64       // requests per second
	RetryAttempts uint          // total attempts per call, 1 disables retries
	RetryDelay    time.Duration // initial backoff delay
	ProxyURL      string        // overrides HTTP(S)_PROXY when set
	Timeout       time.Duration // per-request HTTP timeout, 0 means none
	UserAgent     string
}

// Client wraps the GitHub API client with rate limiting and retries.
// It is read-only: it only lists pull requests and their files.
type Client struct {
	client      *github.Client
	rateLimiter *rate.Limiter
	perPage     int
	attempts    uint
	retryDelay  time.Duration
	logger      *logrus.Logger
}

// NewClient creates a GitHub client from cfg
func NewClient(cfg ClientConfig, logger *logrus.Logger) (*Client, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyFromEnvironment
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, errors.ValidationErrorf("invalid proxy URL %q: %v", cfg.ProxyURL, err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	client := github.NewClient(&http.Client{Transport: transport, Timeout: cfg.Timeout})
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultAPIURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, errors.ValidationErrorf("invalid API URL %q: %v", cfg.BaseURL, err)
	}
	client.BaseURL = baseURL
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}

	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = defaultRetryAttempts
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = initialRetryDelay
	}

	return &Client{
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Limit(limit), 1),
		perPage:     perPage,
		attempts:    attempts,
		retryDelay:  delay,
		logger:      logger,
	}, nil
}

// ListOpenPullRequests retrieves every open pull request of owner/name
func (c *Client) ListOpenPullRequests(ctx context.Context, owner, name string) ([]models.PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State: "open",
		ListOptions: github.ListOptions{
			PerPage: c.perPage,
		},
	}

	var allPRs []models.PullRequest

	for {
		var (
			prs  []*github.PullRequest
			resp *github.Response
		)
		err := c.call(ctx, "list pull requests", func() error {
			var err error
			prs, resp, err = c.client.PullRequests.List(ctx, owner, name, opts)
			return err
		})
		if err != nil {
			return nil, fetchError(err, resp, fmt.Sprintf("failed to retrieve PRs for %s/%s", owner, name))
		}

		for _, pr := range prs {
			allPRs = append(allPRs, models.PullRequest{
				Number:    pr.GetNumber(),
				Title:     pr.GetTitle(),
				URL:       pr.GetURL(),
				HTMLURL:   pr.GetHTMLURL(),
				Author:    pr.GetUser().GetLogin(),
				State:     pr.GetState(),
				CreatedAt: pr.GetCreatedAt().Time,
				UpdatedAt: pr.GetUpdatedAt().Time,
			})
		}

		c.logRateLimit(resp)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.logger.WithFields(logrus.Fields{
		"repo":  owner + "/" + name,
		"count": len(allPRs),
	}).Debug("Fetched open pull requests")

	if allPRs == nil {
		allPRs = []models.PullRequest{}
	}
	return allPRs, nil
}

// Repo binds the client to one repository so it can serve as a file fetcher
func (c *Client) Repo(owner, name string) *RepoFetcher {
	return &RepoFetcher{client: c, owner: owner, name: name}
}

// RepoFetcher fetches changed files of pull requests in a single repository
type RepoFetcher struct {
	client *Client
	owner  string
	name   string
}

// GetChangedFiles lists every file touched by pr, following pagination.
// A pulls API URL on pr wins over the bound repository, so cached PRs
// are always scored against the repository they came from.
func (f *RepoFetcher) GetChangedFiles(ctx context.Context, pr models.PullRequest) ([]models.ChangedFile, error) {
	if ref, err := ParsePullURL(pr.URL); err == nil {
		if ref.Owner != f.owner || ref.Repo != f.name {
			f.client.logger.WithFields(logrus.Fields{
				"pr":    ref.Number,
				"repo":  ref.Owner + "/" + ref.Repo,
				"bound": f.owner + "/" + f.name,
			}).Debug("PR belongs to another repository, following its URL")
		}
		return f.client.ListFiles(ctx, ref.Owner, ref.Repo, ref.Number)
	}

	number := pr.Number
	if number <= 0 {
		n, err := numberFromURL(pr.URL)
		if err != nil {
			return nil, errors.InvalidInput("cannot resolve pull request reference %q: %v", pr.URL, err)
		}
		number = n
	}
	return f.client.ListFiles(ctx, f.owner, f.name, number)
}

// ListFiles retrieves the changed-file records of one pull request
func (c *Client) ListFiles(ctx context.Context, owner, name string, number int) ([]models.ChangedFile, error) {
	opts := &github.ListOptions{PerPage: c.perPage}
	files := []models.ChangedFile{}

	for {
		var (
			page []*github.CommitFile
			resp *github.Response
		)
		err := c.call(ctx, "list pull request files", func() error {
			var err error
			page, resp, err = c.client.PullRequests.ListFiles(ctx, owner, name, number, opts)
			return err
		})
		if err != nil {
			return nil, fetchError(err, resp, fmt.Sprintf("failed to retrieve files for PR #%d", number)).
				WithContext("pr", number)
		}

		for _, f := range page {
			files = append(files, models.ChangedFile{
				Filename:  f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Changes:   f.GetChanges(),
			})
		}

		c.logRateLimit(resp)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// call runs fn behind the rate limiter with bounded exponential backoff
func (c *Client) call(ctx context.Context, operation string, fn func() error) error {
	return retry.Do(
		func() error {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
			return fn()
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WithFields(logrus.Fields{
				"operation": operation,
				"attempt":   n + 1,
				"max":       c.attempts,
			}).WithError(err).Warn("GitHub API call failed, retrying")
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
}

// isRetryable retries network failures, rate limiting and server errors.
// A 403 is only retried when the rate headers show the limit is used up;
// other 4xx responses fail immediately.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch e := err.(type) {
	case *github.RateLimitError, *github.AbuseRateLimitError:
		return true
	case *github.ErrorResponse:
		if e.Response == nil {
			return true
		}
		switch code := e.Response.StatusCode; {
		case code == http.StatusForbidden:
			return rateExhausted(e.Response.Header)
		case code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
			return true
		}
		return false
	}
	return true
}

func rateExhausted(h http.Header) bool {
	return h.Get("X-RateLimit-Remaining") == "0" || h.Get("Retry-After") != ""
}

// fetchError converts an API failure into a FetchError carrying the HTTP status
func fetchError(err error, resp *github.Response, message string) *errors.Error {
	fe := errors.FetchError(err, message)
	if resp != nil && resp.Response != nil {
		fe.WithStatus(resp.StatusCode)
	}
	return fe
}

func (c *Client) logRateLimit(resp *github.Response) {
	if resp == nil {
		return
	}
	c.logger.WithFields(logrus.Fields{
		"remaining": resp.Rate.Remaining,
		"limit":     resp.Rate.Limit,
	}).Debug("GitHub rate limit")
}
