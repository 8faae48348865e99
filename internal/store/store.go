// Package store persists analysis run history in a SQLite database
// under the project's .vulnmap directory.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"vulnmap/internal/analyzer"
	"vulnmap/internal/errors"
	"vulnmap/internal/logging"
)

// Store is a handle on the run history database.
type Store struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// RunMeta is the summary row kept per run, without the full result
// payload.
type RunMeta struct {
	ID        string    `json:"id"`
	Repo      string    `json:"repo"`
	CreatedAt time.Time `json:"createdAt"`
	Status    string    `json:"status"`
	Modules   int       `json:"modules"`
	Edges     int       `json:"edges"`
	Findings  int       `json:"findings"`
	Critical  int       `json:"critical"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	repo       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	status     TEXT NOT NULL,
	modules    INTEGER NOT NULL DEFAULT 0,
	edges      INTEGER NOT NULL DEFAULT 0,
	findings   INTEGER NOT NULL DEFAULT 0,
	critical   INTEGER NOT NULL DEFAULT 0,
	result     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_repo_created ON runs(repo, created_at);
`

// Open opens or creates the run database at <root>/.vulnmap/vulnmap.db.
func Open(root string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewSilent()
	}

	dir := filepath.Join(root, ".vulnmap")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .vulnmap directory: %w", err)
	}
	dbPath := filepath.Join(dir, "vulnmap.db")

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.New(errors.StorageError, "failed to open run database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, errors.New(errors.StorageError, "failed to set pragma", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, errors.New(errors.StorageError, "failed to initialize schema", err)
	}

	logger.Debug("Run database ready", map[string]interface{}{"path": dbPath})

	return &Store{conn: conn, logger: logger, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// SaveRun stores a completed analysis result and returns the new run
// identifier.
func (s *Store) SaveRun(ctx context.Context, repo string, result *analyzer.Result) (string, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return "", errors.New(errors.StorageError, "failed to encode result", err)
	}

	id := uuid.NewString()
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO runs (id, repo, created_at, status, modules, edges, findings, critical, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, repo, time.Now().UTC().Format(time.RFC3339), "completed",
		result.Summary.Modules, result.Summary.Edges,
		result.Summary.TotalFindings, result.Summary.CriticalCount,
		string(payload))
	if err != nil {
		return "", errors.New(errors.StorageError, "failed to save run", err)
	}

	s.logger.Info("Saved analysis run", map[string]interface{}{
		"id":   id,
		"repo": repo,
	})

	return id, nil
}

// ListRuns returns run summaries newest first. repo filters to one
// repository when non-empty; limit caps the rows when positive.
func (s *Store) ListRuns(ctx context.Context, repo string, limit int) ([]RunMeta, error) {
	query := `SELECT id, repo, created_at, status, modules, edges, findings, critical
	          FROM runs`
	var args []interface{}
	if repo != "" {
		query += " WHERE repo = ?"
		args = append(args, repo)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.New(errors.StorageError, "failed to list runs", err)
	}
	defer rows.Close()

	var runs []RunMeta
	for rows.Next() {
		meta, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.StorageError, "failed to read runs", err)
	}

	return runs, nil
}

// GetRun loads one run with its full result payload.
func (s *Store) GetRun(ctx context.Context, id string) (RunMeta, *analyzer.Result, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, repo, created_at, status, modules, edges, findings, critical, result
		 FROM runs WHERE id = ?`, id)

	var meta RunMeta
	var createdAt, payload string
	err := row.Scan(&meta.ID, &meta.Repo, &createdAt, &meta.Status,
		&meta.Modules, &meta.Edges, &meta.Findings, &meta.Critical, &payload)
	if err == sql.ErrNoRows {
		return RunMeta{}, nil, errors.New(errors.RunNotFound, fmt.Sprintf("run %s not found", id), nil)
	}
	if err != nil {
		return RunMeta{}, nil, errors.New(errors.StorageError, "failed to load run", err)
	}
	meta.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	var result analyzer.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return RunMeta{}, nil, errors.New(errors.StorageError, "failed to decode stored result", err)
	}

	return meta, &result, nil
}

// DeleteRun removes one run from history.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return errors.New(errors.StorageError, "failed to delete run", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.RunNotFound, fmt.Sprintf("run %s not found", id), nil)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMeta(row rowScanner) (RunMeta, error) {
	var meta RunMeta
	var createdAt string
	err := row.Scan(&meta.ID, &meta.Repo, &createdAt, &meta.Status,
		&meta.Modules, &meta.Edges, &meta.Findings, &meta.Critical)
	if err != nil {
		return RunMeta{}, errors.New(errors.StorageError, "failed to read run row", err)
	}
	meta.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return meta, nil
}
