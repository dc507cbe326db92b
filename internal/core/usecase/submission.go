package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/core/ports"
)

// SubmissionUseCase turns an uploaded file into text and hands it to the analyzer.
type SubmissionUseCase struct {
	extractor ports.TextExtractor
	analyzer  ports.DocumentAnalyzer
}

func NewSubmissionUseCase(extractor ports.TextExtractor, analyzer ports.DocumentAnalyzer) *SubmissionUseCase {
	return &SubmissionUseCase{extractor: extractor, analyzer: analyzer}
}

func (uc *SubmissionUseCase) Extract(ctx context.Context, sub domain.Submission) (string, error) {
	if len(sub.Data) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract submission", errors.New("empty upload"))
	}
	text, err := uc.extractor.Extract(ctx, sub.Filename, sub.Data)
	if err != nil {
		return "", fmt.Errorf("extract submission %q: %w", sub.Filename, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract submission", errors.New("no text found in upload"))
	}
	return text, nil
}

// Check returns the extracted text with the report so callers can archive it afterwards.
func (uc *SubmissionUseCase) Check(ctx context.Context, sub domain.Submission, opts ports.AnalyzeOptions) (string, *domain.AnalysisReport, error) {
	text, err := uc.Extract(ctx, sub)
	if err != nil {
		return "", nil, err
	}
	report, err := uc.analyzer.Analyze(ctx, text, opts)
	if err != nil {
		return text, nil, err
	}
	return text, report, nil
}
