package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rohankatakam/prhelper/internal/models"
	"github.com/sirupsen/logrus"
)

// JSONStore keeps each project's PR list in a flat "<project-id>.json" file
type JSONStore struct {
	dir    string
	mu     sync.RWMutex
	logger *logrus.Logger
}

// NewJSONStore creates a file store rooted at dir
func NewJSONStore(dir string, logger *logrus.Logger) *JSONStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &JSONStore{dir: dir, logger: logger}
}

// Location returns the cache file path for projectID
func (s *JSONStore) Location(projectID string) string {
	return filepath.Join(s.dir, projectID+".json")
}

func (s *JSONStore) Read(ctx context.Context, projectID string) (*models.CachedPRs, error) {
	if err := validateProject(projectID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Location(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	var cached models.CachedPRs
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("parse cache file: %w", err)
	}
	return &cached, nil
}

// Write stores data via a temp file and rename so readers never see a partial file
func (s *JSONStore) Write(ctx context.Context, projectID string, data *models.CachedPRs) error {
	if err := validateProject(projectID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	path := s.Location(projectID)
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, payload, 0644); err != nil {
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("rename cache file: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"path": path, "prs": len(data.PRs)}).Debug("Saved PR cache")
	return nil
}

func (s *JSONStore) Delete(ctx context.Context, projectID string) error {
	if err := validateProject(projectID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Location(projectID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}
