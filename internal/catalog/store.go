package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/config"
)

// Store persists materialization entries.
type Store struct {
	db   *sql.DB
	path string
}

// Entry describes one materialized dataset directory.
type Entry struct {
	ID          int64
	Fingerprint string
	Corpora     string
	Mode        string
	Fold        int
	Multilabel  bool
	RemoveDeuce bool
	Path        string
	BuildID     string
	Rows        int
	PartialRows int
	Shards      int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const entryColumns = "id, fingerprint, corpora, mode, fold, multilabel, remove_deuce, path, build_id, row_count, partial_rows, shards, created_at, updated_at"

// Open connects to the catalog database under the processed directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.CatalogPath())
}

// OpenPath connects to the catalog database at path, creating it when absent.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// Concurrent preprocess runs register into the same file.
	for _, pragma := range connectionPragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("catalog pragma %q: %w", pragma, err)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Register inserts entry or replaces the row holding the same fingerprint.
// CreatedAt survives replacement.
func (s *Store) Register(ctx context.Context, entry Entry) (*Entry, error) {
	if strings.TrimSpace(entry.Fingerprint) == "" {
		return nil, errors.New("catalog: fingerprint is required")
	}
	if strings.TrimSpace(entry.Path) == "" {
		return nil, errors.New("catalog: path is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO materializations (fingerprint, corpora, mode, fold, multilabel, remove_deuce, path, build_id, row_count, partial_rows, shards, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(fingerprint) DO UPDATE SET
    corpora = excluded.corpora,
    mode = excluded.mode,
    fold = excluded.fold,
    multilabel = excluded.multilabel,
    remove_deuce = excluded.remove_deuce,
    path = excluded.path,
    build_id = excluded.build_id,
    row_count = excluded.row_count,
    partial_rows = excluded.partial_rows,
    shards = excluded.shards,
    updated_at = excluded.updated_at`,
			entry.Fingerprint, entry.Corpora, entry.Mode, entry.Fold, boolToInt(entry.Multilabel), boolToInt(entry.RemoveDeuce),
			entry.Path, entry.BuildID, entry.Rows, entry.PartialRows, entry.Shards, now, now,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", entry.Fingerprint, err)
	}
	return s.Lookup(ctx, entry.Fingerprint)
}

// Lookup returns the entry for fingerprint, or nil when none is recorded.
func (s *Store) Lookup(ctx context.Context, fingerprint string) (*Entry, error) {
	var (
		entry *Entry
		err   error
	)
	retryErr := withRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM materializations WHERE fingerprint = ?", fingerprint)
		entry, err = scanEntry(row)
		if errors.Is(err, sql.ErrNoRows) {
			entry, err = nil, nil
		}
		return err
	})
	if retryErr != nil {
		return nil, fmt.Errorf("lookup %s: %w", fingerprint, retryErr)
	}
	return entry, nil
}

// List returns every entry ordered by fingerprint.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := withRetry(ctx, func() error {
		entries = entries[:0]
		rows, err := s.db.QueryContext(ctx, "SELECT "+entryColumns+" FROM materializations ORDER BY fingerprint")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, *entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list materializations: %w", err)
	}
	return entries, nil
}

// Remove deletes the entry for fingerprint and reports whether one existed.
func (s *Store) Remove(ctx context.Context, fingerprint string) (bool, error) {
	var affected int64
	err := withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM materializations WHERE fingerprint = ?", fingerprint)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", fingerprint, err)
	}
	return affected > 0, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry       Entry
		multilabel  int
		removeDeuce int
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.Fingerprint,
		&entry.Corpora,
		&entry.Mode,
		&entry.Fold,
		&multilabel,
		&removeDeuce,
		&entry.Path,
		&entry.BuildID,
		&entry.Rows,
		&entry.PartialRows,
		&entry.Shards,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	entry.Multilabel = multilabel != 0
	entry.RemoveDeuce = removeDeuce != 0
	entry.CreatedAt = parseTime(createdRaw)
	entry.UpdatedAt = parseTime(updatedRaw)
	return &entry, nil
}

func parseTime(raw string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
