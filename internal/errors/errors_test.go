package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchError_Message(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := FetchError(cause, "failed to retrieve PRs").WithStatus(502)

	assert.Equal(t, "failed to retrieve PRs (status code 502): connection reset", err.Error())
	assert.True(t, IsFetchError(err))
	assert.True(t, IsFatal(err))
	assert.Equal(t, 502, HTTPStatus(err))
	assert.ErrorIs(t, err, cause)
}

func TestClassifiers_Wrapped(t *testing.T) {
	inner := InvalidInput("pull request at index %d has no reference", 3)
	wrapped := fmt.Errorf("rank: %w", inner)

	assert.True(t, IsInvalidInput(wrapped))
	assert.False(t, IsFetchError(wrapped))
	assert.Equal(t, ErrorTypeValidation, GetType(wrapped))
	assert.Equal(t, 0, HTTPStatus(wrapped))
}

func TestConfigWarning_NotFatal(t *testing.T) {
	err := ConfigWarning("no GitHub token found")
	assert.False(t, IsFatal(err))
	assert.Equal(t, SeverityLow, GetSeverity(err))
}

func TestGetSeverity(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Severity
	}{
		{"nil", nil, SeverityLow},
		{"plain error", stderrors.New("boom"), SeverityMedium},
		{"filesystem", FileSystemError(stderrors.New("denied"), "write cache"), SeverityHigh},
		{"internal", InternalError("bad state"), SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetSeverity(tt.err))
		})
	}
}

func TestDetailedString(t *testing.T) {
	err := FetchError(stderrors.New("timeout"), "list files").
		WithStatus(504).
		WithContext("pr", 42)

	out := err.DetailedString()
	assert.Contains(t, out, "[CRITICAL] [NETWORK] list files")
	assert.Contains(t, out, "Status: 504")
	assert.Contains(t, out, "pr: 42")
}

func TestIs_MatchesByType(t *testing.T) {
	err := FetchError(stderrors.New("x"), "a")
	assert.True(t, stderrors.Is(err, &Error{Type: ErrorTypeNetwork}))
	assert.False(t, stderrors.Is(err, &Error{Type: ErrorTypeConfig}))
}
