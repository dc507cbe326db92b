package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/openplag/internal/core/domain"
)

// ArchiveRepository implements ports.ArchiveStore on PostgreSQL.
type ArchiveRepository struct {
	db *sql.DB
}

func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ArchiveRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS archive_entries (
	id TEXT PRIMARY KEY,
	submitter TEXT NOT NULL,
	filename TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	fingerprint TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archive_entries_created_at ON archive_entries(created_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ArchiveRepository) Insert(ctx context.Context, entry *domain.ArchiveEntry) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO archive_entries (id, submitter, filename, content, fingerprint, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (fingerprint) DO NOTHING
`,
		entry.ID, entry.Submitter, entry.Filename, entry.Content, entry.Fingerprint, entry.CreatedAt,
	)
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
ORDER BY created_at, id
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
FROM archive_entries
WHERE id = $1
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
