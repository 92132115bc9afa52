package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rohankatakam/prhelper/internal/models"
	"github.com/sirupsen/logrus"
)

// SQLiteStore implements the PR cache on SQLite
type SQLiteStore struct {
	db     *sqlx.DB
	path   string
	logger *logrus.Logger
}

// cacheRow mirrors the pr_cache table
type cacheRow struct {
	ProjectID  string    `db:"project_id"`
	Version    int       `db:"version"`
	Size       int       `db:"size"`
	Timestamp  time.Time `db:"timestamp"`
	Repository string    `db:"repository"`
	Payload    []byte    `db:"payload"`
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{
		db:     db,
		path:   path,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pr_cache (
		project_id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		size INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		repository TEXT NOT NULL DEFAULT '',
		payload BLOB NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Location returns the database path and key
func (s *SQLiteStore) Location(projectID string) string {
	return fmt.Sprintf("%s#%s", s.path, projectID)
}

func (s *SQLiteStore) Read(ctx context.Context, projectID string) (*models.CachedPRs, error) {
	var row cacheRow
	query := `SELECT project_id, version, size, timestamp, repository, payload FROM pr_cache WHERE project_id = ?`

	if err := s.db.GetContext(ctx, &row, query, projectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query pr_cache: %w", err)
	}

	var prs []models.PullRequest
	if err := json.Unmarshal(row.Payload, &prs); err != nil {
		return nil, fmt.Errorf("parse cached PRs: %w", err)
	}

	return &models.CachedPRs{
		Meta: models.CacheMetadata{
			Version:    row.Version,
			Size:       row.Size,
			Timestamp:  row.Timestamp.UTC(),
			Repository: row.Repository,
		},
		PRs: prs,
	}, nil
}

func (s *SQLiteStore) Write(ctx context.Context, projectID string, data *models.CachedPRs) error {
	payload, err := json.Marshal(data.PRs)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO pr_cache (project_id, version, size, timestamp, repository, payload)
		VALUES (:project_id, :version, :size, :timestamp, :repository, :payload)
	`
	_, err = s.db.NamedExecContext(ctx, query, cacheRow{
		ProjectID:  projectID,
		Version:    data.Meta.Version,
		Size:       data.Meta.Size,
		Timestamp:  data.Meta.Timestamp.UTC(),
		Repository: data.Meta.Repository,
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("write pr_cache: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"path": s.path, "project": projectID}).Debug("Saved PR cache")
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, projectID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pr_cache WHERE project_id = ?`, projectID)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
