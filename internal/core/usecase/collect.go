package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/core/ports"
)

type CollectorConfig struct {
	MaxQueries       int
	ResultsPerQuery  int
	SearchTimeout    time.Duration
	SearchInterval   time.Duration
	FetchConcurrency int
}

func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		MaxQueries:       DefaultMaxQueries,
		ResultsPerQuery:  2,
		SearchTimeout:    10 * time.Second,
		SearchInterval:   500 * time.Millisecond,
		FetchConcurrency: 4,
	}
}

func (c CollectorConfig) normalize() CollectorConfig {
	def := DefaultCollectorConfig()
	if c.MaxQueries <= 0 {
		c.MaxQueries = def.MaxQueries
	}
	if c.ResultsPerQuery <= 0 {
		c.ResultsPerQuery = def.ResultsPerQuery
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = def.SearchTimeout
	}
	if c.SearchInterval < 0 {
		c.SearchInterval = 0
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = def.FetchConcurrency
	}
	return c
}

// WebEvidenceCollector turns a document into scraped web pages that may share its text.
// Individual search or fetch failures are counted and logged, never returned.
type WebEvidenceCollector struct {
	search  ports.SearchProvider
	fetcher ports.PageFetcher
	cfg     CollectorConfig
	pacer   *rate.Limiter
}

func NewWebEvidenceCollector(search ports.SearchProvider, fetcher ports.PageFetcher, cfg CollectorConfig) *WebEvidenceCollector {
	cfg = cfg.normalize()
	limit := rate.Inf
	if cfg.SearchInterval > 0 {
		limit = rate.Every(cfg.SearchInterval)
	}
	return &WebEvidenceCollector{
		search:  search,
		fetcher: fetcher,
		cfg:     cfg,
		pacer:   rate.NewLimiter(limit, 1),
	}
}

// Collect returns an error only when ctx is done or its deadline cannot be met;
// partial evidence is discarded then.
func (c *WebEvidenceCollector) Collect(ctx context.Context, text string, progress ports.ProgressFunc) (domain.WebEvidence, error) {
	var stats domain.CollectionStats

	queries := DeriveQueries(text, c.cfg.MaxQueries)
	stats.Queries = len(queries)

	var raw []string
	for _, query := range queries {
		if err := c.pacer.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.WebEvidence{}, ctxErr
			}
			// The limiter fails early when the next slot lies past the deadline.
			return domain.WebEvidence{}, fmt.Errorf("pace search provider: %w: %v", context.DeadlineExceeded, err)
		}
		stats.SearchCalls++

		results, err := c.searchOne(ctx, query)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.WebEvidence{}, ctxErr
			}
			stats.SearchFailures++
			slog.Warn("search_query_failed", "query", string(query), "error", err)
			continue
		}
		if len(results) > c.cfg.ResultsPerQuery {
			results = results[:c.cfg.ResultsPerQuery]
		}
		for _, res := range results {
			if res.URL != "" {
				raw = append(raw, res.URL)
			}
		}
	}
	stats.RawResults = len(raw)

	urls := dedupeURLs(raw)
	stats.URLs = len(urls)
	if len(urls) == 0 {
		return domain.WebEvidence{Stats: stats}, nil
	}

	fetched := c.fetchAll(ctx, urls, progress)
	if err := ctx.Err(); err != nil {
		return domain.WebEvidence{}, err
	}

	items := make([]domain.EvidenceItem, 0, len(fetched))
	for _, res := range fetched {
		if res.Err != nil {
			stats.FetchFailures++
			slog.Warn("page_fetch_failed", "url", res.URL, "error", res.Err)
			continue
		}
		if !res.OK() {
			continue
		}
		stats.PagesFetched++
		items = append(items, domain.EvidenceItem{
			Source:  res.URL,
			Content: res.Text,
			Origin:  domain.OriginWeb,
		})
	}

	return domain.WebEvidence{Items: items, Stats: stats}, nil
}

func (c *WebEvidenceCollector) searchOne(ctx context.Context, query domain.Query) ([]domain.SearchResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.SearchTimeout)
	defer cancel()
	return c.search.TextSearch(callCtx, string(query), c.cfg.ResultsPerQuery)
}

func (c *WebEvidenceCollector) fetchAll(ctx context.Context, urls []string, progress ports.ProgressFunc) []domain.FetchResult {
	out := make([]domain.FetchResult, len(urls))
	tracker := newProgressTracker(len(urls), progress)

	var g errgroup.Group
	g.SetLimit(c.cfg.FetchConcurrency)
	for i, url := range urls {
		g.Go(func() error {
			defer tracker.tick()
			if err := ctx.Err(); err != nil {
				out[i] = domain.FetchResult{URL: url, Err: err}
				return nil
			}
			out[i] = c.fetcher.Fetch(ctx, url)
			out[i].URL = url
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// dedupeURLs keeps the first occurrence of each URL by exact equality.
func dedupeURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

type progressTracker struct {
	mu    sync.Mutex
	done  int
	total int
	fn    ports.ProgressFunc
}

func newProgressTracker(total int, fn ports.ProgressFunc) *progressTracker {
	return &progressTracker{total: total, fn: fn}
}

func (p *progressTracker) tick() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.fn(p.done, p.total)
}
