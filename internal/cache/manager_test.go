package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohankatakam/prhelper/internal/errors"
	"github.com/rohankatakam/prhelper/internal/models"
	"github.com/rohankatakam/prhelper/internal/storage"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, ttl time.Duration) (*Manager, storage.Store, *time.Time) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := storage.NewJSONStore(t.TempDir(), logger)
	m := NewManager(store, "proj", ttl, logger)

	clock := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, store, &clock
}

func prs() []models.PullRequest {
	return []models.PullRequest{
		{Number: 10, Title: "Refactor", URL: "u10", HTMLURL: "https://github.com/o/r/pull/10"},
		{Number: 11, Title: "Docs", URL: "u11"},
	}
}

func TestManager_MissWhenEmpty(t *testing.T) {
	m, _, _ := newTestManager(t, time.Hour)

	got, ok, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestManager_FreshnessWindow(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		hit  bool
	}{
		{"just written", 0, true},
		{"inside window", 59 * time.Minute, true},
		{"exactly at window", time.Hour, true},
		{"past window", time.Hour + time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, clock := newTestManager(t, time.Hour)
			ctx := context.Background()
			require.NoError(t, m.Store(ctx, prs()))

			*clock = clock.Add(tt.age)
			got, ok, err := m.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.hit, ok)
			if tt.hit {
				assert.Equal(t, prs(), got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestManager_VersionMismatchIsMiss(t *testing.T) {
	m, store, clock := newTestManager(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "proj", &models.CachedPRs{
		Meta: models.CacheMetadata{Version: CurrentVersion + 1, Size: 2, Timestamp: *clock},
		PRs:  prs(),
	}))

	_, ok, err := m.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Present)
	assert.False(t, status.Fresh)
	assert.Equal(t, CurrentVersion+1, status.Version)
}

func TestManager_OtherRepositoryIsMiss(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := storage.NewJSONStore(t.TempDir(), logger)
	ctx := context.Background()

	alpha := NewManager(store, "proj", time.Hour, logger).ForRepository("alpha/one")
	require.NoError(t, alpha.Store(ctx, prs()))

	got, ok, err := alpha.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, got, 2)

	// Same project id, different repository
	beta := NewManager(store, "proj", time.Hour, logger).ForRepository("beta/two")
	_, ok, err = beta.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	status, err := beta.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alpha/one", status.Repository)

	// Entries without a repository only match an unbound manager
	require.NoError(t, store.Write(ctx, "proj", &models.CachedPRs{
		Meta: models.CacheMetadata{Version: CurrentVersion, Size: 2, Timestamp: time.Now().UTC()},
		PRs:  prs(),
	}))
	_, ok, _ = beta.Load(ctx)
	assert.False(t, ok)
	_, ok, _ = NewManager(store, "proj", time.Hour, logger).Load(ctx)
	assert.True(t, ok)
}

func TestManager_CorruptCacheIsMiss(t *testing.T) {
	m, store, _ := newTestManager(t, time.Hour)
	path := store.Location("proj")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	_, ok, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_ZeroTTLOnlyServesSameInstant(t *testing.T) {
	m, _, clock := newTestManager(t, 0)
	ctx := context.Background()
	require.NoError(t, m.Store(ctx, prs()))

	_, ok, _ := m.Load(ctx)
	assert.True(t, ok)

	*clock = clock.Add(time.Nanosecond)
	_, ok, _ = m.Load(ctx)
	assert.False(t, ok)
}

func TestManager_StatusAndClear(t *testing.T) {
	m, _, clock := newTestManager(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, m.Store(ctx, prs()))
	*clock = clock.Add(10 * time.Minute)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Present)
	assert.True(t, status.Fresh)
	assert.Equal(t, 2, status.Size)
	assert.Equal(t, 10*time.Minute, status.Age)

	require.NoError(t, m.Clear(ctx))
	status, err = m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Present)
}

func TestManager_Lookup(t *testing.T) {
	m, _, clock := newTestManager(t, time.Minute)
	ctx := context.Background()

	_, err := m.Lookup(ctx, 10)
	assert.True(t, errors.IsInvalidInput(err))

	require.NoError(t, m.Store(ctx, prs()))
	*clock = clock.Add(24 * time.Hour) // stale data is still fine for lookups

	pr, err := m.Lookup(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/o/r/pull/10", pr.HTMLURL)

	_, err = m.Lookup(ctx, 99)
	assert.True(t, errors.IsInvalidInput(err))
}
