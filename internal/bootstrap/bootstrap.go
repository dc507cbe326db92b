package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/openplag/internal/config"
	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/core/ports"
	"github.com/kirillkom/openplag/internal/core/usecase"
	"github.com/kirillkom/openplag/internal/infrastructure/embedding/cache"
	"github.com/kirillkom/openplag/internal/infrastructure/embedding/openai"
	"github.com/kirillkom/openplag/internal/infrastructure/extractor"
	"github.com/kirillkom/openplag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/openplag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/openplag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/openplag/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/openplag/internal/infrastructure/resilience"
	"github.com/kirillkom/openplag/internal/infrastructure/scraper"
	"github.com/kirillkom/openplag/internal/infrastructure/search/duckduckgo"
	"github.com/kirillkom/openplag/internal/infrastructure/search/searxng"
	"github.com/kirillkom/openplag/internal/infrastructure/storage/localfs"
)

type Options struct {
	// CacheCounter receives embedding cache hit/miss counts; may be nil.
	CacheCounter *prometheus.CounterVec
}

type App struct {
	Config config.Config
	Policy domain.Policy

	Store    ports.ArchiveStore
	Embedder ports.Embedder
	// Events is nil when NATS_URL is empty.
	Events *nats.Events

	AnalyzeUC    *usecase.AnalyzeUseCase
	SubmissionUC *usecase.SubmissionUseCase
	ArchiveUC    *usecase.ArchiveUseCase
	WarmUC       ports.CacheWarmer

	closers []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}
	if err := app.init(ctx, cfg, opts); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// init fills app in place; on error the caller closes whatever was opened.
func (a *App) init(ctx context.Context, cfg config.Config, opts Options) error {
	var err error
	a.Policy, err = config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	executor := resilience.NewExecutor(cfg.Resilience())

	a.Store, err = a.openArchive(ctx, cfg)
	if err != nil {
		return err
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	// Keep the interface nil when events are disabled.
	var events ports.ArchiveEvents
	if cfg.NATSURL != "" {
		a.Events, err = nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			return fmt.Errorf("init archive events: %w", err)
		}
		a.closers = append(a.closers, a.Events.Close)
		events = a.Events
	}

	a.Embedder, err = a.newEmbedder(cfg, executor, opts.CacheCounter)
	if err != nil {
		return err
	}

	search, err := newSearchProvider(cfg, executor)
	if err != nil {
		return err
	}
	fetcher := scraper.New(scraper.Config{
		Timeout:         cfg.FetchTimeout(),
		MaxChars:        cfg.FetchMaxChars,
		MaxConnsPerHost: cfg.FetchMaxConnsPerHost,
	})
	collector := usecase.NewWebEvidenceCollector(search, fetcher, usecase.CollectorConfig{
		MaxQueries:       cfg.MaxQueries,
		ResultsPerQuery:  cfg.SearchResultsPerQuery,
		SearchTimeout:    cfg.SearchTimeout(),
		SearchInterval:   cfg.SearchInterval(),
		FetchConcurrency: cfg.FetchConcurrency,
	})
	scorer := usecase.NewSimilarityScorer(a.Embedder)

	a.AnalyzeUC = usecase.NewAnalyzeUseCase(a.Store, collector, scorer, a.Policy, cfg.ScoreConcurrency)
	a.SubmissionUC = usecase.NewSubmissionUseCase(extractor.NewRegistry(), a.AnalyzeUC)
	a.ArchiveUC = usecase.NewArchiveUseCase(a.Store, storage, events)
	a.WarmUC = usecase.NewWarmCacheUseCase(a.Store, a.Embedder)

	slog.Info("app_initialized",
		"archive_driver", cfg.ArchiveDriver,
		"embedding_provider", cfg.EmbeddingProvider,
		"search_provider", cfg.SearchProvider,
		"embedding_cache", cfg.RedisAddr != "",
		"events", cfg.NATSURL != "",
	)
	return nil
}

func (a *App) openArchive(ctx context.Context, cfg config.Config) (ports.ArchiveStore, error) {
	switch strings.ToLower(cfg.ArchiveDriver) {
	case "", "sqlite":
		repo, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite archive: %w", err)
		}
		a.closers = append(a.closers, func() { _ = repo.Close() })
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, nil
	case "postgres":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		repo := postgres.NewArchiveRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown ARCHIVE_DRIVER %q", cfg.ArchiveDriver)
	}
}

type namedEmbedder interface {
	ports.Embedder
	Model() string
}

func (a *App) newEmbedder(cfg config.Config, executor *resilience.Executor, counter *prometheus.CounterVec) (ports.Embedder, error) {
	var inner namedEmbedder
	switch strings.ToLower(cfg.EmbeddingProvider) {
	case "", "ollama":
		inner = ollama.NewEmbedder(ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, ollama.Options{Executor: executor}))
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for EMBEDDING_PROVIDER=openai")
		}
		inner = openai.NewEmbedder(openai.Config{
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OpenAIBaseURL,
			Model:    cfg.OpenAIEmbedModel,
			Executor: executor,
		})
	default:
		return nil, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", cfg.EmbeddingProvider)
	}

	if cfg.RedisAddr == "" {
		return inner, nil
	}
	client, err := cache.NewClient(cfg.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	return cache.New(inner, client, inner.Model(), cfg.EmbedCacheTTL(), counter), nil
}

func newSearchProvider(cfg config.Config, executor *resilience.Executor) (ports.SearchProvider, error) {
	switch strings.ToLower(cfg.SearchProvider) {
	case "", "duckduckgo":
		return duckduckgo.New(duckduckgo.Options{
			BaseURL:  cfg.DuckDuckGoURL,
			Timeout:  cfg.SearchTimeout(),
			Executor: executor,
		}), nil
	case "searxng":
		provider, err := searxng.New(cfg.SearXNGURL, searxng.Options{
			Timeout:  cfg.SearchTimeout(),
			Executor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init searxng: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown SEARCH_PROVIDER %q", cfg.SearchProvider)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
