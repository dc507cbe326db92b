package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/kirillkom/openplag/internal/core/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS archive_entries (
	id TEXT PRIMARY KEY,
	submitter TEXT NOT NULL,
	filename TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	fingerprint TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archive_entries_created_at ON archive_entries(created_at);
`

// ArchiveRepository implements ports.ArchiveStore on a local SQLite file.
type ArchiveRepository struct {
	db *sql.DB
}

// Open creates the parent directory when needed and opens path in WAL mode.
func Open(path string) (*ArchiveRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between concurrent archive calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &ArchiveRepository{db: db}, nil
}

func (r *ArchiveRepository) Close() error {
	return r.db.Close()
}

func (r *ArchiveRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	return nil
}

func (r *ArchiveRepository) Insert(ctx context.Context, entry *domain.ArchiveEntry) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO archive_entries (id, submitter, filename, content, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`, entry.ID, entry.Submitter, entry.Filename, entry.Content, entry.Fingerprint, entry.CreatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("insert archive entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("archive insert rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *ArchiveRepository) ListAll(ctx context.Context) ([]domain.ArchiveEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, submitter, filename, content, fingerprint, created_at
		FROM archive_entries
		ORDER BY created_at, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("query archive entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.ArchiveEntry, 0)
	for rows.Next() {
		var e domain.ArchiveEntry
		if err := rows.Scan(&e.ID, &e.Submitter, &e.Filename, &e.Content, &e.Fingerprint, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan archive entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive entries: %w", err)
	}
	return entries, nil
}

func (r *ArchiveRepository) GetByID(ctx context.Context, id string) (*domain.ArchiveEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, submitter, filename, content, fingerprint, created_at
		FROM archive_entries WHERE id = ?
	`, id)

	var e domain.ArchiveEntry
	if err := row.Scan(&e.ID, &e.Submitter, &e.Filename, &e.Content, &e.Fingerprint, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get archive entry", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan archive entry: %w", err)
	}
	return &e, nil
}

func (r *ArchiveRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archive_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count archive entries: %w", err)
	}
	return n, nil
}

func (r *ArchiveRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM archive_entries`); err != nil {
		return fmt.Errorf("delete archive entries: %w", err)
	}
	return nil
}
