package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rohankatakam/prhelper/internal/models"
	"github.com/sirupsen/logrus"
)

// Common errors
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidProject = errors.New("invalid project id")
)

// Backend names
const (
	BackendJSON   = "json"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// Store persists one cached PR list per project id
type Store interface {
	// Read returns ErrNotFound when nothing is stored for projectID
	Read(ctx context.Context, projectID string) (*models.CachedPRs, error)
	// Write replaces whatever is stored for projectID
	Write(ctx context.Context, projectID string, data *models.CachedPRs) error
	// Delete removes the entry; deleting a missing entry is not an error
	Delete(ctx context.Context, projectID string) error
	// Location describes where the data lives, for status output
	Location(projectID string) string
	Close() error
}

// Open creates the store for backend rooted at dir
func Open(backend, dir string, logger *logrus.Logger) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONStore(dir, logger), nil
	case BackendBolt:
		return NewBoltStore(filepath.Join(dir, "prhelper.db"), logger)
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dir, "prhelper.sqlite"), logger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want json, bolt or sqlite)", backend)
	}
}

// validateProject rejects ids that cannot be used as a single file name
func validateProject(projectID string) error {
	if projectID == "" || projectID == "." || projectID == ".." || strings.ContainsAny(projectID, `/\`) {
		return fmt.Errorf("%w %q: must be a plain name without path separators", ErrInvalidProject, projectID)
	}
	return nil
}
