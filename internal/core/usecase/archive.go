package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/core/ports"
)

// ArchiveUseCase stores submissions for later local comparison. Storage and
// events are optional; without them only the metadata store is written.
type ArchiveUseCase struct {
	store   ports.ArchiveStore
	storage ports.ObjectStorage
	events  ports.ArchiveEvents
}

func NewArchiveUseCase(
	store ports.ArchiveStore,
	storage ports.ObjectStorage,
	events ports.ArchiveEvents,
) *ArchiveUseCase {
	return &ArchiveUseCase{
		store:   store,
		storage: storage,
		events:  events,
	}
}

func (uc *ArchiveUseCase) Archive(ctx context.Context, req ports.ArchiveRequest) (ports.ArchiveResult, error) {
	submitter := strings.TrimSpace(req.Submitter)
	if submitter == "" {
		return ports.ArchiveResult{}, domain.WrapError(domain.ErrInvalidInput, "archive document", errors.New("submitter is required"))
	}
	if strings.TrimSpace(req.Content) == "" {
		return ports.ArchiveResult{}, domain.WrapError(domain.ErrInvalidInput, "archive document", errors.New("content is empty"))
	}

	entry := &domain.ArchiveEntry{
		ID:          uuid.NewString(),
		Submitter:   submitter,
		Filename:    strings.TrimSpace(req.Filename),
		Content:     req.Content,
		Fingerprint: domain.Fingerprint(req.Content),
		CreatedAt:   time.Now().UTC(),
	}

	inserted, err := uc.store.Insert(ctx, entry)
	if err != nil {
		return ports.ArchiveResult{}, fmt.Errorf("insert archive entry: %w", err)
	}
	if !inserted {
		slog.Info("archive_entry_exists", "fingerprint", entry.Fingerprint, "submitter", submitter)
		return ports.ArchiveResult{AlreadyExists: true}, nil
	}

	uc.retainRaw(ctx, entry, req.Raw)
	uc.publish(ctx, entry.ID)

	slog.Info("archive_entry_created", "entry_id", entry.ID, "submitter", submitter, "filename", entry.Filename)
	return ports.ArchiveResult{Entry: entry, Inserted: true}, nil
}

func (uc *ArchiveUseCase) retainRaw(ctx context.Context, entry *domain.ArchiveEntry, raw []byte) {
	if uc.storage == nil || len(raw) == 0 {
		return
	}
	key := RawStorageKey(entry.Fingerprint, entry.Filename)
	if err := uc.storage.Save(ctx, key, bytes.NewReader(raw)); err != nil {
		slog.Warn("archive_raw_save_failed", "entry_id", entry.ID, "key", key, "error", err)
	}
}

func (uc *ArchiveUseCase) publish(ctx context.Context, entryID string) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishEntryArchived(ctx, entryID); err != nil {
		slog.Warn("archive_event_publish_failed", "entry_id", entryID, "error", err)
	}
}

func (uc *ArchiveUseCase) List(ctx context.Context) ([]domain.ArchiveEntry, error) {
	entries, err := uc.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list archive entries: %w", err)
	}
	return entries, nil
}

func (uc *ArchiveUseCase) Get(ctx context.Context, id string) (*domain.ArchiveEntry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get archive entry", errors.New("id is required"))
	}
	return uc.store.GetByID(ctx, id)
}

func (uc *ArchiveUseCase) Stats(ctx context.Context) (domain.ArchiveStats, error) {
	n, err := uc.store.Count(ctx)
	if err != nil {
		return domain.ArchiveStats{}, fmt.Errorf("count archive entries: %w", err)
	}
	return domain.ArchiveStats{Entries: n}, nil
}

func (uc *ArchiveUseCase) Clear(ctx context.Context) error {
	if err := uc.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear archive: %w", err)
	}
	slog.Info("archive_cleared")
	return nil
}

// RawStorageKey names the retained upload of an archive entry.
func RawStorageKey(fingerprint, filename string) string {
	return fmt.Sprintf("%s_%s", fingerprint, sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	if base == "." || base == "/" {
		base = ""
	}
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
