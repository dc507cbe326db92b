package ports

import (
	"context"

	"github.com/kirillkom/openplag/internal/core/domain"
)

// AnalyzeOptions tunes a single analysis run.
type AnalyzeOptions struct {
	SkipWeb  bool
	Progress ProgressFunc
}

// DocumentAnalyzer is the inbound contract for running an overlap analysis on plain text.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, text string, opts AnalyzeOptions) (*domain.AnalysisReport, error)
}

// SubmissionChecker extracts text from an upload and analyzes it.
type SubmissionChecker interface {
	Extract(ctx context.Context, sub domain.Submission) (string, error)
	Check(ctx context.Context, sub domain.Submission, opts AnalyzeOptions) (string, *domain.AnalysisReport, error)
}

type ArchiveRequest struct {
	Submitter string
	Filename  string
	Content   string
	Raw       []byte
}

type ArchiveResult struct {
	Entry         *domain.ArchiveEntry `json:"entry,omitempty"`
	Inserted      bool                 `json:"inserted"`
	AlreadyExists bool                 `json:"already_exists"`
}

// DocumentArchiver is the inbound contract for the explicit, caller-triggered archive step.
type DocumentArchiver interface {
	Archive(ctx context.Context, req ArchiveRequest) (ArchiveResult, error)
	List(ctx context.Context) ([]domain.ArchiveEntry, error)
	Get(ctx context.Context, id string) (*domain.ArchiveEntry, error)
	Stats(ctx context.Context) (domain.ArchiveStats, error)
	Clear(ctx context.Context) error
}

// CacheWarmer precomputes embeddings for archived entries.
type CacheWarmer interface {
	WarmEntry(ctx context.Context, entryID string) error
}
