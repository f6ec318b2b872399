// Package catalog keeps the compilation ledger in SQLite.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jvlcode/screen-recorder/internal/domain"
	"github.com/jvlcode/screen-recorder/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS compilations (
	dir         TEXT    NOT NULL,
	number      INTEGER NOT NULL,
	status      TEXT    NOT NULL,
	path        TEXT    NOT NULL DEFAULT '',
	archive_dir TEXT    NOT NULL DEFAULT '',
	segments    TEXT    NOT NULL DEFAULT '[]',
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (dir, number)
)`

const (
	statusReserved = "reserved"
	statusDone     = "done"
)

// Store implements ports.CompilationCatalog.
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	// A single connection serializes reservations within the process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ClearStale removes reservations left behind by a process that died mid-concat.
func (s *Store) ClearStale(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM compilations WHERE status = ?`, statusReserved)
	if err != nil {
		return 0, fmt.Errorf("clear reservations: %w", err)
	}
	return res.RowsAffected()
}

// Reserve picks max(floor, highest reservation in dir) + 1 and records it.
// Finished rows are not consulted; the caller's directory scan is the
// authority for those.
func (s *Store) Reserve(ctx context.Context, dir string, floor int) (int, error) {
	dir = filepath.Clean(dir)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reserve: %w", err)
	}
	defer tx.Rollback()

	var highest int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(number), 0) FROM compilations WHERE dir = ? AND status = ?`,
		dir, statusReserved,
	).Scan(&highest); err != nil {
		return 0, fmt.Errorf("query highest: %w", err)
	}
	if floor > highest {
		highest = floor
	}
	n := highest + 1

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO compilations (dir, number, status, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(dir, number) DO UPDATE SET status = excluded.status, created_at = excluded.created_at`,
		dir, n, statusReserved, time.Now().UnixMilli(),
	); err != nil {
		return 0, fmt.Errorf("insert reservation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reserve: %w", err)
	}
	return n, nil
}

// Release deletes an unfinished reservation.
func (s *Store) Release(ctx context.Context, dir string, number int) error {
	dir = filepath.Clean(dir)
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM compilations WHERE dir = ? AND number = ? AND status = ?`, dir, number, statusReserved,
	); err != nil {
		return fmt.Errorf("release %d: %w", number, err)
	}
	return nil
}

// Commit records a finished compilation under the directory of c.Path,
// replacing an older row with the same number.
func (s *Store) Commit(ctx context.Context, c domain.Compilation) error {
	segs, err := json.Marshal(c.Segments)
	if err != nil {
		return err
	}
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO compilations (dir, number, status, path, archive_dir, segments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dir, number) DO UPDATE SET
			status = excluded.status,
			path = excluded.path,
			archive_dir = excluded.archive_dir,
			segments = excluded.segments,
			created_at = excluded.created_at
	`, filepath.Dir(c.Path), c.Number, statusDone, c.Path, c.ArchiveDir, string(segs), created.UnixMilli()); err != nil {
		return fmt.Errorf("commit %d: %w", c.Number, err)
	}
	return nil
}

// List returns finished compilations, newest first.
func (s *Store) List(ctx context.Context) ([]domain.Compilation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, path, archive_dir, segments, created_at
		FROM compilations
		WHERE status = ?
		ORDER BY created_at DESC, number DESC
	`, statusDone)
	if err != nil {
		return nil, fmt.Errorf("query compilations: %w", err)
	}
	defer rows.Close()

	var out []domain.Compilation
	for rows.Next() {
		var c domain.Compilation
		var segs string
		var created int64
		if err := rows.Scan(&c.Number, &c.Path, &c.ArchiveDir, &segs, &created); err != nil {
			return nil, fmt.Errorf("scan compilation: %w", err)
		}
		if err := json.Unmarshal([]byte(segs), &c.Segments); err != nil {
			return nil, fmt.Errorf("decode segments of %d: %w", c.Number, err)
		}
		c.CreatedAt = time.UnixMilli(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ ports.CompilationCatalog = (*Store)(nil)
