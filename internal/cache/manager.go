package cache

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/rohankatakam/prhelper/internal/errors"
	"github.com/rohankatakam/prhelper/internal/models"
	"github.com/rohankatakam/prhelper/internal/storage"
	"github.com/sirupsen/logrus"
)

// CurrentVersion is the format version of the stored PR list.
// Entries written with any other version are treated as a miss.
const CurrentVersion = 1

// Manager decides whether the cached PR list of a project may be served
type Manager struct {
	store      storage.Store
	projectID  string
	repository string
	ttl        time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

// NewManager creates a cache manager for projectID with the given freshness window
func NewManager(store storage.Store, projectID string, ttl time.Duration, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		store:     store,
		projectID: projectID,
		ttl:       ttl,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ForRepository binds the manager to the OWNER/REPO its PR list comes from.
// Entries saved for any other repository are then a miss.
func (m *Manager) ForRepository(repository string) *Manager {
	m.repository = repository
	return m
}

// Status describes the stored entry
type Status struct {
	Present  bool
	Fresh    bool
	Version  int
	Size     int
	Age      time.Duration
	Saved      time.Time
	Location   string
	Repository string
}

// Load returns the cached PR list when it is present, of the current version
// and no older than the freshness window. Anything else is a miss, reported
// as ok=false with a nil error; stale data is never served.
func (m *Manager) Load(ctx context.Context) ([]models.PullRequest, bool, error) {
	cached, err := m.store.Read(ctx, m.projectID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			m.logger.WithField("project", m.projectID).Debug("No cached PR data")
			return nil, false, nil
		}
		m.logger.WithError(err).WithField("location", m.store.Location(m.projectID)).
			Warn("Ignoring unreadable PR cache")
		return nil, false, nil
	}

	fields := logrus.Fields{
		"project": m.projectID,
		"version": cached.Meta.Version,
		"age":     m.now().Sub(cached.Meta.Timestamp).Round(time.Second).String(),
	}
	if !m.sameRepository(cached.Meta) {
		fields["repository"] = cached.Meta.Repository
		m.logger.WithFields(fields).Info("Cached PR data belongs to another repository")
		return nil, false, nil
	}
	if !m.isFresh(cached.Meta) {
		m.logger.WithFields(fields).Debug("Cached PR data is stale or from another version")
		return nil, false, nil
	}

	m.logger.WithFields(fields).Debug("Using cached PR data")
	prs := cached.PRs
	if prs == nil {
		prs = []models.PullRequest{}
	}
	return prs, true, nil
}

// Store persists prs with the current timestamp and version, overwriting prior content
func (m *Manager) Store(ctx context.Context, prs []models.PullRequest) error {
	data := &models.CachedPRs{
		Meta: models.CacheMetadata{
			Version:    CurrentVersion,
			Size:       len(prs),
			Timestamp:  m.now(),
			Repository: m.repository,
		},
		PRs: prs,
	}
	if err := m.store.Write(ctx, m.projectID, data); err != nil {
		return errors.FileSystemErrorf(err, "failed to save PR cache for %s", m.projectID)
	}
	return nil
}

// Lookup returns one PR from the cache regardless of freshness
func (m *Manager) Lookup(ctx context.Context, number int) (*models.PullRequest, error) {
	cached, err := m.store.Read(ctx, m.projectID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.ValidationErrorf("no cached PR data for %s, run a ranking first", m.projectID)
		}
		return nil, errors.FileSystemError(err, "failed to read PR cache")
	}
	for i := range cached.PRs {
		if cached.PRs[i].Number == number {
			return &cached.PRs[i], nil
		}
	}
	return nil, errors.ValidationErrorf("PR #%d is not in the cached data for %s", number, m.projectID)
}

// Status reports what is stored without deciding to use it
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	status := &Status{Location: m.store.Location(m.projectID)}
	cached, err := m.store.Read(ctx, m.projectID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return status, nil
		}
		return nil, errors.FileSystemError(err, "failed to read PR cache")
	}

	status.Present = true
	status.Version = cached.Meta.Version
	status.Size = len(cached.PRs)
	status.Saved = cached.Meta.Timestamp
	status.Age = m.now().Sub(cached.Meta.Timestamp)
	status.Repository = cached.Meta.Repository
	status.Fresh = m.isFresh(cached.Meta)
	return status, nil
}

// Clear removes the project's cached entry
func (m *Manager) Clear(ctx context.Context) error {
	m.logger.WithField("project", m.projectID).Info("Clearing PR cache")
	if err := m.store.Delete(ctx, m.projectID); err != nil {
		return errors.FileSystemError(err, "failed to clear PR cache")
	}
	return nil
}

// Location describes where the entry lives, for messages
func (m *Manager) Location() string {
	return m.store.Location(m.projectID)
}

func (m *Manager) sameRepository(meta models.CacheMetadata) bool {
	return m.repository == "" || meta.Repository == m.repository
}

func (m *Manager) isFresh(meta models.CacheMetadata) bool {
	return meta.Version == CurrentVersion && m.now().Sub(meta.Timestamp) <= m.ttl
}
