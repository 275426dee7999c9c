package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Registry   RegistryConfig   `yaml:"registry" mapstructure:"registry"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RegistryConfig selects the task registry implementation.
type RegistryConfig struct {
	Driver     string `yaml:"driver" mapstructure:"driver" validate:"oneof=memory redis"`
	RedisAddr  string `yaml:"redis_addr" mapstructure:"redis_addr" validate:"required_if=Driver redis"`
	RedisDB    int    `yaml:"redis_db" mapstructure:"redis_db" validate:"gte=0"`
	Password   string `yaml:"redis_password" mapstructure:"redis_password"`
	KeyPrefix  string `yaml:"key_prefix" mapstructure:"key_prefix"`
	TTLMinutes int    `yaml:"ttl_minutes" mapstructure:"ttl_minutes" validate:"gte=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port" validate:"gt=0,lte=65535"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ScoringConfig bounds calls to the compatibility scorer. MaxConcurrent is
// read once at startup.
type ScoringConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=1"`
	Model         string `yaml:"model" mapstructure:"model"`
}

// EnrichConfig configures the enrichment orchestrator.
type EnrichConfig struct {
	MaxConcurrent   int      `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=1"`
	DecisionModel   string   `yaml:"decision_model" mapstructure:"decision_model"`
	ExtractModel    string   `yaml:"extract_model" mapstructure:"extract_model"`
	RegistryQueries []string `yaml:"registry_queries" mapstructure:"registry_queries"`
	RegistryResults int      `yaml:"registry_results" mapstructure:"registry_results" validate:"gte=1"`
	ContactQuery    string   `yaml:"contact_query" mapstructure:"contact_query"`
	ContactResults  int      `yaml:"contact_results" mapstructure:"contact_results" validate:"gte=1"`
}

// AnthropicConfig holds Anthropic API credentials.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// JinaConfig holds Jina AI API credentials.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API credentials.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API credentials.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// SearchConfig configures the web search chain.
type SearchConfig struct {
	DuckDuckGoURL     string  `yaml:"duckduckgo_url" mapstructure:"duckduckgo_url"`
	Region            string  `yaml:"region" mapstructure:"region"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gte=1"`
}

// SourcesConfig holds credentials for lead sources.
type SourcesConfig struct {
	RapidAPIKey     string `yaml:"rapidapi_key" mapstructure:"rapidapi_key"`
	JSearchURL      string `yaml:"jsearch_url" mapstructure:"jsearch_url"`
	ActiveJobsDBURL string `yaml:"active_jobs_db_url" mapstructure:"active_jobs_db_url"`
	FilePath        string `yaml:"file_path" mapstructure:"file_path"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// ResilienceConfig tunes retries and circuit breakers around external calls.
type ResilienceConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// Load reads configuration from file and environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("registry.driver", "memory")
	v.SetDefault("registry.redis_addr", "")
	v.SetDefault("registry.redis_db", 0)
	v.SetDefault("registry.redis_password", "")
	v.SetDefault("registry.key_prefix", "prospect:task:")
	v.SetDefault("registry.ttl_minutes", 0)
	v.SetDefault("server.port", 7002)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("scoring.max_concurrent", 5)
	v.SetDefault("scoring.model", "claude-haiku-4-5-20251001")
	v.SetDefault("enrich.max_concurrent", 5)
	v.SetDefault("enrich.decision_model", "claude-haiku-4-5-20251001")
	v.SetDefault("enrich.extract_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("enrich.registry_queries", []string{})
	v.SetDefault("enrich.registry_results", 2)
	v.SetDefault("enrich.contact_query", "")
	v.SetDefault("enrich.contact_results", 10)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("search.duckduckgo_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("search.region", "fr-fr")
	v.SetDefault("search.requests_per_second", 1.0)
	v.SetDefault("search.timeout_secs", 15)
	v.SetDefault("sources.rapidapi_key", "")
	v.SetDefault("sources.jsearch_url", "https://jsearch.p.rapidapi.com")
	v.SetDefault("sources.active_jobs_db_url", "https://active-jobs-db.p.rapidapi.com")
	v.SetDefault("sources.file_path", "leads.json")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 500)
	v.SetDefault("resilience.max_backoff_ms", 10000)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks struct constraints and the credentials a command mode
// needs. Modes: "insert", "serve", "store".
func (c *Config) Validate(mode string) error {
	if err := validator.New().Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}

	var missing []string
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		missing = append(missing, "store.database_url is required for postgres")
	}

	switch mode {
	case "store":
	case "insert", "serve":
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger sets up the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
