package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePullsURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    PullsEndpoint
		wantErr bool
	}{
		{
			name: "public API with search query",
			raw:  "https://api.github.com/repos/Significant-Gravitas/Auto-GPT/pulls?q=is%3Apr+is%3Aopen+-is%3Aconflict",
			want: PullsEndpoint{BaseURL: "https://api.github.com/", Owner: "Significant-Gravitas", Repo: "Auto-GPT"},
		},
		{
			name: "enterprise root",
			raw:  "https://ghe.example.com/api/v3/repos/team/svc/pulls",
			want: PullsEndpoint{BaseURL: "https://ghe.example.com/api/v3/", Owner: "team", Repo: "svc"},
		},
		{
			name: "trailing slash",
			raw:  "http://localhost:8080/repos/o/r/pulls/",
			want: PullsEndpoint{BaseURL: "http://localhost:8080/", Owner: "o", Repo: "r"},
		},
		{name: "relative", raw: "/repos/o/r/pulls", wantErr: true},
		{name: "not a pulls URL", raw: "https://api.github.com/repos/o/r/issues", wantErr: true},
		{name: "missing repo", raw: "https://api.github.com/repos/o/pulls", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePullsURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestNumberFromURL(t *testing.T) {
	n, err := numberFromURL("https://api.github.com/repos/o/r/pulls/4521")
	require.NoError(t, err)
	assert.Equal(t, 4521, n)

	_, err = numberFromURL("https://api.github.com/repos/o/r/pulls/abc")
	assert.Error(t, err)

	_, err = numberFromURL("https://api.github.com/repos/o/r/pulls/0")
	assert.Error(t, err)
}

func TestParsePullURL(t *testing.T) {
	ref, err := ParsePullURL("https://ghe.example.com/api/v3/repos/team/svc/pulls/17")
	require.NoError(t, err)
	assert.Equal(t, PullRef{Owner: "team", Repo: "svc", Number: 17}, *ref)

	for _, raw := range []string{"", "u1", "https://api.github.com/pulls/3", "https://api.github.com/repos/o/r/issues/3"} {
		_, err := ParsePullURL(raw)
		assert.Error(t, err, raw)
	}
}
