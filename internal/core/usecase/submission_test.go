package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/core/ports"
)

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, string, []byte) (string, error) {
	return f.text, f.err
}

type analyzerFake struct {
	calls int
	text  string
	err   error
}

func (f *analyzerFake) Analyze(_ context.Context, text string, _ ports.AnalyzeOptions) (*domain.AnalysisReport, error) {
	f.calls++
	f.text = text
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AnalysisReport{Severity: domain.SeverityClean}, nil
}

func TestSubmissionCheckExtractsThenAnalyzes(t *testing.T) {
	analyzer := &analyzerFake{}
	uc := NewSubmissionUseCase(&extractorFake{text: "  extracted text \n"}, analyzer)

	text, report, err := uc.Check(context.Background(), domain.Submission{Filename: "a.txt", Data: []byte("x")}, ports.AnalyzeOptions{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if text != "extracted text" || analyzer.text != "extracted text" {
		t.Fatalf("expected trimmed text passed through, got %q / %q", text, analyzer.text)
	}
	if report == nil || report.Severity != domain.SeverityClean {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestSubmissionExtractionFailureSkipsAnalysis(t *testing.T) {
	analyzer := &analyzerFake{}
	uc := NewSubmissionUseCase(&extractorFake{err: domain.WrapError(domain.ErrUnsupportedFormat, "extract", errors.New(".odt"))}, analyzer)

	_, _, err := uc.Check(context.Background(), domain.Submission{Filename: "a.odt", Data: []byte("x")}, ports.AnalyzeOptions{})
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if analyzer.calls != 0 {
		t.Fatalf("expected no analysis, got %d calls", analyzer.calls)
	}
}

func TestSubmissionRejectsEmptyUploadAndEmptyText(t *testing.T) {
	uc := NewSubmissionUseCase(&extractorFake{text: "   "}, &analyzerFake{})

	if _, err := uc.Extract(context.Background(), domain.Submission{Filename: "a.txt"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty upload, got %v", err)
	}
	if _, err := uc.Extract(context.Background(), domain.Submission{Filename: "a.txt", Data: []byte("x")}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank text, got %v", err)
	}
}

func TestSubmissionShortTextNeverReachesEmbedder(t *testing.T) {
	embedder := &mapEmbedder{}
	analyzer := NewAnalyzeUseCase(&archiveStoreFake{}, nil, NewSimilarityScorer(embedder), domain.DefaultPolicy(), 1)
	uc := NewSubmissionUseCase(&extractorFake{text: "tiny"}, analyzer)

	text, _, err := uc.Check(context.Background(), domain.Submission{Filename: "a.txt", Data: []byte("tiny")}, ports.AnalyzeOptions{})
	if !errors.Is(err, domain.ErrTextTooShort) {
		t.Fatalf("expected ErrTextTooShort, got %v", err)
	}
	if text != "tiny" {
		t.Fatalf("expected extracted text returned, got %q", text)
	}
	if embedder.callCount() != 0 {
		t.Fatalf("expected no embed calls, got %d", embedder.callCount())
	}
}
