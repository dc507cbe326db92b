package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirillkom/openplag/internal/core/domain"
)

func openTestRepo(t *testing.T) *ArchiveRepository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "data", "archive.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return repo
}

func entry(id, submitter, content string, at time.Time) *domain.ArchiveEntry {
	return &domain.ArchiveEntry{
		ID:          id,
		Submitter:   submitter,
		Filename:    submitter + ".txt",
		Content:     content,
		Fingerprint: domain.Fingerprint(content),
		CreatedAt:   at,
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

	for _, e := range []*domain.ArchiveEntry{
		entry("b", "bob", "second essay", base.Add(time.Hour)),
		entry("a", "alice", "first essay", base),
	} {
		inserted, err := repo.Insert(ctx, e)
		if err != nil || !inserted {
			t.Fatalf("Insert(%s): inserted=%v err=%v", e.ID, inserted, err)
		}
	}

	entries, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "a" || entries[1].ID != "b" {
		t.Fatalf("expected entries ordered by creation, got %+v", entries)
	}
	if !entries[0].CreatedAt.Equal(base) {
		t.Fatalf("expected created_at %v, got %v", base, entries[0].CreatedAt)
	}

	got, err := repo.GetByID(ctx, "b")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Content != "second essay" || got.Filename != "bob.txt" {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestArchiveDuplicateFingerprint(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := repo.Insert(ctx, entry("a", "alice", "same text", now)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	inserted, err := repo.Insert(ctx, entry("b", "bob", "same text", now))
	if err != nil {
		t.Fatalf("duplicate Insert() error = %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate to be skipped")
	}
	n, err := repo.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 entry, got %d (%v)", n, err)
	}
}

func TestArchiveGetMissingAndClear(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Insert(ctx, entry("a", "alice", "text", time.Now())); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := repo.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	entries, err := repo.ListAll(ctx)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty archive, got %d (%v)", len(entries), err)
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	repo := openTestRepo(t)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema() error = %v", err)
	}
}
