package ports

import (
	"context"
	"io"

	"github.com/kirillkom/openplag/internal/core/domain"
)

// ProgressFunc receives a strictly increasing done count out of total.
type ProgressFunc func(done, total int)

// ArchiveStore persists archived submissions. Insert reports false without an
// error when an entry with the same fingerprint already exists.
type ArchiveStore interface {
	Insert(ctx context.Context, entry *domain.ArchiveEntry) (bool, error)
	ListAll(ctx context.Context) ([]domain.ArchiveEntry, error)
	GetByID(ctx context.Context, id string) (*domain.ArchiveEntry, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// SearchProvider runs a web text search. Callers treat errors as an empty result.
type SearchProvider interface {
	TextSearch(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error)
}

// PageFetcher downloads a page and extracts a bounded plain-text excerpt.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) domain.FetchResult
}

// Embedder maps text onto a fixed-length dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TextExtractor turns uploaded bytes into plain text by file type.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// ObjectStorage retains raw uploads of archived documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
}

// ArchiveEvents publishes/consumes archive lifecycle events.
type ArchiveEvents interface {
	PublishEntryArchived(ctx context.Context, entryID string) error
	SubscribeEntryArchived(ctx context.Context, handler func(context.Context, string) error) error
}
