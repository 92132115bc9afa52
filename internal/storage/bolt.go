package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rohankatakam/prhelper/internal/models"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const prBucket = "pr_cache"

// BoltStore keeps PR lists in a single bbolt file, keyed by project id
type BoltStore struct {
	db     *bolt.DB
	path   string
	logger *logrus.Logger
}

// NewBoltStore opens (creating if needed) the bbolt database at path
func NewBoltStore(path string, logger *logrus.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(prBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{db: db, path: path, logger: logger}, nil
}

// Location returns the database path and key
func (s *BoltStore) Location(projectID string) string {
	return fmt.Sprintf("%s#%s", s.path, projectID)
}

func (s *BoltStore) Read(ctx context.Context, projectID string) (*models.CachedPRs, error) {
	var cached models.CachedPRs
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(prBucket)).Get([]byte(projectID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &cached)
	})
	if err != nil {
		return nil, err
	}
	return &cached, nil
}

func (s *BoltStore) Write(ctx context.Context, projectID string, data *models.CachedPRs) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(prBucket)).Put([]byte(projectID), payload)
	})
	if err != nil {
		return fmt.Errorf("write bolt cache: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"path": s.path, "project": projectID}).Debug("Saved PR cache")
	return nil
}

func (s *BoltStore) Delete(ctx context.Context, projectID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(prBucket)).Delete([]byte(projectID))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
