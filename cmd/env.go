package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sagyolink/leadscout/internal/analyze"
	"github.com/sagyolink/leadscout/internal/fetch"
	"github.com/sagyolink/leadscout/internal/metadata"
	"github.com/sagyolink/leadscout/internal/pipeline"
	"github.com/sagyolink/leadscout/internal/propose"
	"github.com/sagyolink/leadscout/internal/selector"
	"github.com/sagyolink/leadscout/internal/store"
	"github.com/sagyolink/leadscout/internal/triage"
	anthropicpkg "github.com/sagyolink/leadscout/pkg/anthropic"
	"github.com/sagyolink/leadscout/pkg/firecrawl"
	"github.com/sagyolink/leadscout/pkg/jina"
	"github.com/sagyolink/leadscout/pkg/places"
)

// appEnv bundles the wired store and pipeline for one command invocation.
type appEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

func (e *appEnv) Close() {
	_ = e.Store.Close()
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadscout.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv validates config for the given mode, opens and migrates the store,
// and wires the full pipeline.
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	placesClient := places.NewClient(cfg.Places.Key,
		places.WithBaseURL(cfg.Places.BaseURL),
		places.WithLanguage(cfg.Places.Language),
		places.WithRateLimit(cfg.Places.RateLimitRPS),
	)
	firecrawlClient := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	jinaClient := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	chain := fetch.NewChain(cfg.Scrape.MaxPages,
		fetch.NewJinaScraper(jinaClient),
		fetch.NewFirecrawlScraper(firecrawlClient),
	)

	p := pipeline.New(
		pipeline.Config{
			MaxPages:               cfg.Scrape.MaxPages,
			MaxContentChars:        cfg.Scrape.MaxContentChars,
			MaxConcurrentCompanies: cfg.Batch.MaxConcurrentCompanies,
		},
		st,
		placesClient,
		metadata.NewBatchFetcher(firecrawlClient),
		triage.NewLLMScorer(anthropicClient, cfg.Anthropic.HaikuModel),
		selector.NewPageSelector(firecrawlClient, cfg.Scrape.MaxPages, cfg.Scrape.SearchRetries),
		chain,
		analyze.NewLLMAnalyzer(anthropicClient, cfg.Anthropic.SonnetModel),
		propose.NewLLMDrafter(anthropicClient, cfg.Anthropic.SonnetModel),
	)

	return &appEnv{Store: st, Pipeline: p}, nil
}
