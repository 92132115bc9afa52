package github

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/rohankatakam/prhelper/internal/errors"
	"github.com/rohankatakam/prhelper/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, cfg ClientConfig) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1000
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	logger, _ := test.NewNullLogger()
	client, err := NewClient(cfg, logger)
	require.NoError(t, err)
	return client
}

func TestListOpenPullRequests_Pagination(t *testing.T) {
	mux := http.NewServeMux()
	var baseURL string
	mux.HandleFunc("/repos/octo/hello/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/octo/hello/pulls?page=2>; rel="next"`, baseURL))
			fmt.Fprint(w, `[{"number":1,"title":"First","url":"u1","html_url":"h1","user":{"login":"alice"},"state":"open"},
				{"number":2,"title":"Second","url":"u2","html_url":"h2","state":"open"}]`)
		case "2":
			fmt.Fprint(w, `[{"number":3,"title":"Third","url":"u3","html_url":"h3","state":"open"}]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	baseURL = server.URL

	logger, _ := test.NewNullLogger()
	client, err := NewClient(ClientConfig{Token: "secret", BaseURL: server.URL, PerPage: 2, RateLimit: 1000}, logger)
	require.NoError(t, err)

	prs, err := client.ListOpenPullRequests(context.Background(), "octo", "hello")
	require.NoError(t, err)
	require.Len(t, prs, 3)
	assert.Equal(t, models.PullRequest{Number: 1, Title: "First", URL: "u1", HTMLURL: "h1", Author: "alice", State: "open"}, prs[0])
	assert.Equal(t, 3, prs[2].Number)
}

func TestListOpenPullRequests_NoToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, `[]`)
	}), ClientConfig{})

	prs, err := client.ListOpenPullRequests(context.Background(), "o", "r")
	require.NoError(t, err)
	assert.NotNil(t, prs)
	assert.Empty(t, prs)
}

func TestListFiles(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/o/r/pulls/7/files", r.URL.Path)
		fmt.Fprint(w, `[{"filename":"a.py","status":"modified","additions":3,"deletions":2,"changes":5},
			{"filename":"docs/B.md","status":"added","additions":1,"deletions":0,"changes":1}]`)
	}), ClientConfig{})

	files, err := client.Repo("o", "r").GetChangedFiles(context.Background(), models.PullRequest{Number: 7})
	require.NoError(t, err)
	assert.Equal(t, []models.ChangedFile{
		{Filename: "a.py", Status: "modified", Additions: 3, Deletions: 2, Changes: 5},
		{Filename: "docs/B.md", Status: "added", Additions: 1, Deletions: 0, Changes: 1},
	}, files)
}

func TestGetChangedFiles_NumberFromURL(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/o/r/pulls/12/files", r.URL.Path)
		fmt.Fprint(w, `[]`)
	}), ClientConfig{})

	files, err := client.Repo("o", "r").GetChangedFiles(context.Background(),
		models.PullRequest{URL: "https://api.github.com/repos/o/r/pulls/12"})
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = client.Repo("o", "r").GetChangedFiles(context.Background(), models.PullRequest{URL: "https://x/y"})
	assert.True(t, errors.IsInvalidInput(err))
}

func TestListFiles_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"message":"bad gateway"}`)
			return
		}
		fmt.Fprint(w, `[{"filename":"a","changes":1}]`)
	}), ClientConfig{RetryAttempts: 3})

	files, err := client.ListFiles(context.Background(), "o", "r", 1)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestListFiles_NotFoundIsFatalWithoutRetry(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}), ClientConfig{RetryAttempts: 5})

	_, err := client.ListFiles(context.Background(), "o", "r", 99)
	require.Error(t, err)
	assert.True(t, errors.IsFetchError(err))
	assert.Equal(t, http.StatusNotFound, errors.HTTPStatus(err))
	assert.Contains(t, err.Error(), "PR #99")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestListOpenPullRequests_ExhaustedRetries(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), ClientConfig{RetryAttempts: 2})

	_, err := client.ListOpenPullRequests(context.Background(), "o", "r")
	require.Error(t, err)
	assert.True(t, errors.IsFetchError(err))
	assert.Equal(t, http.StatusInternalServerError, errors.HTTPStatus(err))
}

func TestNewClient_InvalidProxy(t *testing.T) {
	_, err := NewClient(ClientConfig{ProxyURL: "://bad"}, logrus.New())
	assert.True(t, errors.IsInvalidInput(err))
}

func TestGetChangedFiles_FollowsPRRepository(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		fmt.Fprint(w, `[{"filename":"a","changes":1}]`)
	}), ClientConfig{})

	fetcher := client.Repo("beta", "two")
	_, err := fetcher.GetChangedFiles(context.Background(),
		models.PullRequest{Number: 5, URL: "https://api.github.com/repos/alpha/one/pulls/5"})
	require.NoError(t, err)

	// PRs without a pulls API URL use the bound repository
	_, err = fetcher.GetChangedFiles(context.Background(), models.PullRequest{Number: 6, URL: "u6"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/repos/alpha/one/pulls/5/files", "/repos/beta/two/pulls/6/files"}, paths)
}

func TestListFiles_ForbiddenIsFatalWithoutRetry(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"Resource not accessible by integration"}`)
	}), ClientConfig{RetryAttempts: 4})

	_, err := client.ListFiles(context.Background(), "o", "r", 1)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, errors.HTTPStatus(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIsRetryable(t *testing.T) {
	response := func(code int, header http.Header) *github.ErrorResponse {
		if header == nil {
			header = http.Header{}
		}
		return &github.ErrorResponse{Response: &http.Response{StatusCode: code, Header: header}}
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", stderrors.New("connection reset"), true},
		{"canceled", context.Canceled, false},
		{"rate limit", &github.RateLimitError{}, true},
		{"secondary rate limit", &github.AbuseRateLimitError{}, true},
		{"forbidden", response(http.StatusForbidden, nil), false},
		{"forbidden rate exhausted", response(http.StatusForbidden, http.Header{"X-Ratelimit-Remaining": {"0"}}), true},
		{"forbidden retry after", response(http.StatusForbidden, http.Header{"Retry-After": {"30"}}), true},
		{"not found", response(http.StatusNotFound, nil), false},
		{"too many requests", response(http.StatusTooManyRequests, nil), true},
		{"server error", response(http.StatusServiceUnavailable, nil), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}
