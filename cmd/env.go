package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/ai"
	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/leads"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/scoring"
	"github.com/sells-group/prospect-cli/internal/scrape"
	"github.com/sells-group/prospect-cli/internal/search"
	"github.com/sells-group/prospect-cli/internal/source"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/internal/task"
	anthropicpkg "github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/duckduckgo"
	"github.com/sells-group/prospect-cli/pkg/firecrawl"
	"github.com/sells-group/prospect-cli/pkg/jina"
	"github.com/sells-group/prospect-cli/pkg/perplexity"
	"github.com/sells-group/prospect-cli/pkg/rapidapi"
)

// appEnv holds everything the insert and serve commands need.
type appEnv struct {
	Store    store.Store
	Registry task.Registry
	Service  *leads.Service
	Sources  *source.Registry
	Metrics  http.Handler // nil when metrics are disabled
	closers  []func() error
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close resource", zap.Error(err))
		}
	}
}

// initStore opens the configured store backend.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "prospect.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, c.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

// openStore opens and migrates the store.
func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initRegistry builds the task registry. The close func is nil for the
// in-memory registry.
func initRegistry(ctx context.Context, c *config.Config) (task.Registry, func() error, error) {
	switch c.Registry.Driver {
	case "", "memory":
		return task.NewMemory(), nil, nil
	case "redis":
		r, err := task.NewRedis(ctx, task.RedisConfig{
			Addr:      c.Registry.RedisAddr,
			Password:  c.Registry.Password,
			DB:        c.Registry.RedisDB,
			KeyPrefix: c.Registry.KeyPrefix,
			TTL:       time.Duration(c.Registry.TTLMinutes) * time.Minute,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	default:
		return nil, nil, eris.Errorf("unsupported registry driver: %s", c.Registry.Driver)
	}
}

// initSources registers every lead source. RapidAPI sources are skipped when
// no key is configured.
func initSources(c *config.Config, retry resilience.Policy) (*source.Registry, error) {
	reg := source.NewRegistry()
	reg.Register("file", source.NewFile(c.Sources.FilePath))

	if c.Sources.RapidAPIKey == "" {
		zap.L().Debug("PROSPECT_SOURCES_RAPIDAPI_KEY not set, jsearch and active_jobs_db disabled")
		return reg, nil
	}

	js, err := rapidapi.NewJSearch(c.Sources.RapidAPIKey, c.Sources.JSearchURL, rapidapi.WithRetryPolicy(retry))
	if err != nil {
		return nil, err
	}
	reg.Register("jsearch", source.NewJSearch(js))

	aj, err := rapidapi.NewActiveJobsDB(c.Sources.RapidAPIKey, c.Sources.ActiveJobsDBURL, rapidapi.WithRetryPolicy(retry))
	if err != nil {
		return nil, err
	}
	reg.Register("active_jobs_db", source.NewActiveJobs(aj))
	return reg, nil
}

// initEnv sets up the store, registry, external clients and the leads
// service. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	env.Store = st
	env.closers = append(env.closers, st.Close)

	registry, closeRegistry, err := initRegistry(ctx, cfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Registry = registry
	if closeRegistry != nil {
		env.closers = append(env.closers, closeRegistry)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		env.Metrics = promhttp.Handler()
	}

	retry := resilience.PolicyFromConfig(cfg.Resilience.MaxAttempts, cfg.Resilience.InitialBackoffMs, cfg.Resilience.MaxBackoffMs)
	breakers := resilience.NewBreakers(resilience.BreakerConfigFrom(cfg.Resilience.FailureThreshold, cfg.Resilience.ResetTimeoutSecs))

	sources, err := initSources(cfg, retry)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Sources = sources

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	jinaOpts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL), jina.WithRetryPolicy(retry)}
	if cfg.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(cfg.Jina.Key, jinaOpts...)

	// Scrape chain: Jina reader, then Firecrawl when keyed, then a local fetch.
	scrapers := []scrape.Scraper{scrape.NewJinaAdapter(jinaClient)}
	if cfg.Firecrawl.Key != "" {
		fc := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL), firecrawl.WithRetryPolicy(retry))
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(fc))
	}
	scrapers = append(scrapers, scrape.NewLocalScraper())
	crawler := scrape.NewChain(nil, scrapers...).UseBreakers(breakers)

	// Search chain: Jina search, then DuckDuckGo HTML results.
	ddg := duckduckgo.NewClient(
		duckduckgo.WithBaseURL(cfg.Search.DuckDuckGoURL),
		duckduckgo.WithRegion(cfg.Search.Region),
		duckduckgo.WithRate(cfg.Search.RequestsPerSecond),
		duckduckgo.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Search.TimeoutSecs) * time.Second}),
		duckduckgo.WithRetryPolicy(retry),
	)
	searcher := search.NewChain(
		search.NewJinaProvider(jinaClient, regionCountry(cfg.Search.Region)),
		search.NewDuckDuckGoProvider(ddg),
	).UseBreakers(breakers)

	var research perplexity.Client
	if cfg.Perplexity.Key != "" {
		research = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
			perplexity.WithRetryPolicy(retry),
		)
	}

	models := ai.Models{
		Decision: cfg.Enrich.DecisionModel,
		Extract:  cfg.Enrich.ExtractModel,
		Score:    cfg.Scoring.Model,
	}
	capability := ai.NewCapability(anthropicClient, research, models)
	coordinator := scoring.NewCoordinator(ai.NewScorer(anthropicClient, models.Score), cfg.Scoring.MaxConcurrent, scoring.WithMetrics(m))

	templates := enrich.DefaultTemplates().Override(
		cfg.Enrich.RegistryQueries, cfg.Enrich.RegistryResults,
		cfg.Enrich.ContactQuery, cfg.Enrich.ContactResults,
	)
	orchestrator := enrich.New(capability, searcher, crawler,
		enrich.WithTemplates(templates),
		enrich.WithMaxConcurrent(cfg.Enrich.MaxConcurrent),
		enrich.WithMetrics(m),
	)

	env.Service = leads.NewService(st, registry, coordinator, orchestrator, leads.WithMetrics(m))

	zap.L().Info("environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("registry", cfg.Registry.Driver),
		zap.Strings("sources", sources.Names()),
		zap.Int("scrapers", len(scrapers)),
	)
	return env, nil
}

// regionCountry maps a DuckDuckGo region such as "fr-fr" to the country code
// used by Jina search.
func regionCountry(region string) string {
	if len(region) < 2 {
		return ""
	}
	return region[:2]
}
