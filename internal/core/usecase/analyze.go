package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/core/ports"
)

const DefaultScoreConcurrency = 4

// AnalyzeUseCase scores a document against the local archive and the web and
// builds the ranked report.
type AnalyzeUseCase struct {
	store            ports.ArchiveStore
	collector        *WebEvidenceCollector
	scorer           *SimilarityScorer
	policy           domain.Policy
	scoreConcurrency int
}

// NewAnalyzeUseCase builds the aggregator. A nil collector disables the web pool.
func NewAnalyzeUseCase(
	store ports.ArchiveStore,
	collector *WebEvidenceCollector,
	scorer *SimilarityScorer,
	policy domain.Policy,
	scoreConcurrency int,
) *AnalyzeUseCase {
	if scoreConcurrency <= 0 {
		scoreConcurrency = DefaultScoreConcurrency
	}
	return &AnalyzeUseCase{
		store:            store,
		collector:        collector,
		scorer:           scorer,
		policy:           policy,
		scoreConcurrency: scoreConcurrency,
	}
}

// ValidateText rejects documents too short for analysis.
func (uc *AnalyzeUseCase) ValidateText(text string) error {
	if utf8.RuneCountInString(text) < uc.policy.MinTextLength {
		return domain.ErrTextTooShort
	}
	return nil
}

// Analyze trims surrounding whitespace before the length check.
func (uc *AnalyzeUseCase) Analyze(ctx context.Context, text string, opts ports.AnalyzeOptions) (*domain.AnalysisReport, error) {
	text = strings.TrimSpace(text)
	if err := uc.ValidateText(text); err != nil {
		return nil, err
	}
	archive, err := uc.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load archive: %w", err)
	}
	return uc.Aggregate(ctx, text, archive, opts)
}

type poolResult struct {
	matches  []domain.ScoredMatch
	scored   int
	failures int
}

// Aggregate runs both evidence pools concurrently. The submission is embedded
// once; a failure there fails the run, a failure on one evidence item skips it.
func (uc *AnalyzeUseCase) Aggregate(
	ctx context.Context,
	text string,
	archive []domain.ArchiveEntry,
	opts ports.AnalyzeOptions,
) (*domain.AnalysisReport, error) {
	text = strings.TrimSpace(text)
	if err := uc.ValidateText(text); err != nil {
		return nil, err
	}
	started := time.Now()

	reference, err := uc.scorer.Embed(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.WrapError(domain.ErrTemporary, "embed submission", err)
	}

	skipWeb := opts.SkipWeb || uc.collector == nil
	var (
		local, web poolResult
		evidence   domain.WebEvidence
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		local, err = uc.scorePool(gctx, reference, archiveItems(archive))
		return err
	})
	if !skipWeb {
		g.Go(func() error {
			var err error
			evidence, err = uc.collector.Collect(gctx, text, opts.Progress)
			if err != nil {
				return err
			}
			web, err = uc.scorePool(gctx, reference, evidence.Items)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	coverage := domain.Coverage{
		ArchiveEntries: len(archive),
		ArchiveScored:  local.scored,
		Queries:        evidence.Stats.Queries,
		SearchCalls:    evidence.Stats.SearchCalls,
		SearchFailures: evidence.Stats.SearchFailures,
		URLs:           evidence.Stats.URLs,
		PagesFetched:   evidence.Stats.PagesFetched,
		FetchFailures:  evidence.Stats.FetchFailures,
		ScoreFailures:  local.failures + web.failures,
		WebSkipped:     skipWeb,
	}

	report := uc.buildReport(append(local.matches, web.matches...), coverage)
	slog.Info("analysis_completed",
		"severity", report.Severity,
		"status", report.Status,
		"max_score", report.MaxScore,
		"matches", report.TotalMatches,
		"archive_entries", coverage.ArchiveEntries,
		"pages_fetched", coverage.PagesFetched,
		"degraded", report.Degraded,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return report, nil
}

func (uc *AnalyzeUseCase) buildReport(matches []domain.ScoredMatch, coverage domain.Coverage) *domain.AnalysisReport {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	total := len(matches)
	if len(matches) > uc.policy.TopK {
		matches = matches[:uc.policy.TopK]
	}
	if matches == nil {
		matches = []domain.ScoredMatch{}
	}

	var maxScore float64
	if len(matches) > 0 {
		maxScore = matches[0].Score
	}
	severity := uc.policy.Classify(maxScore)

	status := domain.StatusConfirmed
	reasons := coverage.DegradationReasons()
	if severity == domain.SeverityClean && len(reasons) > 0 {
		status = domain.StatusInconclusive
	}

	return &domain.AnalysisReport{
		Matches:      matches,
		TotalMatches: total,
		MaxScore:     maxScore,
		Severity:     severity,
		Status:       status,
		Degraded:     reasons,
		Coverage:     coverage,
	}
}

// scorePool keeps items whose score strictly exceeds the threshold of their origin.
// It returns an error only when ctx is done.
func (uc *AnalyzeUseCase) scorePool(ctx context.Context, reference []float32, items []domain.EvidenceItem) (poolResult, error) {
	scores := make([]float64, len(items))
	scored := make([]bool, len(items))
	failed := make([]bool, len(items))

	var g errgroup.Group
	g.SetLimit(uc.scoreConcurrency)
	for i, item := range items {
		if item.Content == "" {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			score, err := uc.scorer.ScoreAgainst(ctx, reference, item.Content)
			if err != nil {
				failed[i] = true
				slog.Warn("evidence_score_failed", "source", item.Source, "origin", item.Origin, "error", err)
				return nil
			}
			scores[i] = score
			scored[i] = true
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return poolResult{}, err
	}

	var res poolResult
	for i, item := range items {
		if failed[i] {
			res.failures++
			continue
		}
		if !scored[i] {
			continue
		}
		res.scored++
		if scores[i] > uc.policy.Threshold(item.Origin) {
			res.matches = append(res.matches, domain.ScoredMatch{
				Source: item.Source,
				Score:  scores[i],
				Origin: item.Origin,
			})
		}
	}
	return res, nil
}

func archiveItems(entries []domain.ArchiveEntry) []domain.EvidenceItem {
	items := make([]domain.EvidenceItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, domain.EvidenceItem{
			Source:  entry.Label(),
			Content: entry.Content,
			Origin:  domain.OriginLocal,
		})
	}
	return items
}
