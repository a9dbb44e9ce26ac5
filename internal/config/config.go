package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	Clearbit  ClearbitConfig  `yaml:"clearbit" mapstructure:"clearbit"`
	Hunter    HunterConfig    `yaml:"hunter" mapstructure:"hunter"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Collector CollectorConfig `yaml:"collector" mapstructure:"collector"`
	Contacts  ContactsConfig  `yaml:"contacts" mapstructure:"contacts"`
	Tasks     TasksConfig     `yaml:"tasks" mapstructure:"tasks"`
	Temporal  TemporalConfig  `yaml:"temporal" mapstructure:"temporal"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Circuit   CircuitConfig   `yaml:"circuit" mapstructure:"circuit"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CacheConfig selects the cache backend and default expiry.
type CacheConfig struct {
	Backend        string `yaml:"backend" mapstructure:"backend"`
	DefaultTTLSecs int    `yaml:"default_ttl_secs" mapstructure:"default_ttl_secs"`
}

// RedisConfig holds connection settings for the Redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// ClearbitConfig holds firmographic provider credentials.
type ClearbitConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// HunterConfig holds contact discovery provider credentials.
type HunterConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	SearchLimit int     `yaml:"search_limit" mapstructure:"search_limit"`
}

// GoogleConfig holds Places API credentials for company discovery.
type GoogleConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// AnthropicConfig holds LLM credentials and model selection.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ScoringConfig holds lead score weights and the company-size band.
type ScoringConfig struct {
	CompletenessWeight float64  `yaml:"completeness_weight" mapstructure:"completeness_weight"`
	SizeFitWeight      float64  `yaml:"size_fit_weight" mapstructure:"size_fit_weight"`
	FundingWeight      float64  `yaml:"funding_weight" mapstructure:"funding_weight"`
	TechStackWeight    float64  `yaml:"tech_stack_weight" mapstructure:"tech_stack_weight"`
	ContactsWeight     float64  `yaml:"contacts_weight" mapstructure:"contacts_weight"`
	SweetSpotMin       int      `yaml:"sweet_spot_min" mapstructure:"sweet_spot_min"`
	SweetSpotMax       int      `yaml:"sweet_spot_max" mapstructure:"sweet_spot_max"`
	SizeFloor          float64  `yaml:"size_floor" mapstructure:"size_floor"`
	DecayMultiple      float64  `yaml:"decay_multiple" mapstructure:"decay_multiple"`
	TechPerItem        int      `yaml:"tech_per_item" mapstructure:"tech_per_item"`
	RecognizedTech     []string `yaml:"recognized_tech" mapstructure:"recognized_tech"`
	OverridesFile      string   `yaml:"overrides_file" mapstructure:"overrides_file"`
}

// CollectorConfig tunes the data collector.
type CollectorConfig struct {
	Precedence        []string `yaml:"precedence" mapstructure:"precedence"`
	MaxContacts       int      `yaml:"max_contacts" mapstructure:"max_contacts"`
	DirectoryFallback bool     `yaml:"directory_fallback" mapstructure:"directory_fallback"`
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxSearchResults  int      `yaml:"max_companies_per_search" mapstructure:"max_companies_per_search"`
}

// ContactsConfig toggles optional contact enrichment.
type ContactsConfig struct {
	GenerateMissingEmails bool `yaml:"generate_missing_emails" mapstructure:"generate_missing_emails"`
	FindMissingEmails     bool `yaml:"find_missing_emails" mapstructure:"find_missing_emails"`
	MinVerifyScore        int  `yaml:"min_verify_score" mapstructure:"min_verify_score"`
}

// TasksConfig configures the background task manager.
type TasksConfig struct {
	Backend        string `yaml:"backend" mapstructure:"backend"`
	Workers        int    `yaml:"workers" mapstructure:"workers"`
	QueueSize      int    `yaml:"queue_size" mapstructure:"queue_size"`
	RetentionHours int    `yaml:"retention_hours" mapstructure:"retention_hours"`
}

// TemporalConfig holds Temporal connection settings for the temporal task backend.
type TemporalConfig struct {
	HostPort           string `yaml:"host_port" mapstructure:"host_port"`
	Namespace          string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue          string `yaml:"task_queue" mapstructure:"task_queue"`
	ActivityTimeoutMin int    `yaml:"activity_timeout_min" mapstructure:"activity_timeout_min"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// RetryConfig configures retries for provider calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig configures per-provider circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks settings required by the given command mode
// ("serve", "profile", "worker"). Enum-like settings are always checked.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres", "none":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite, postgres or none", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres")
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("cache.backend %q must be memory or redis", c.Cache.Backend))
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		errs = append(errs, "redis.addr is required for the redis cache backend")
	}

	switch c.Tasks.Backend {
	case "pool", "temporal":
	default:
		errs = append(errs, fmt.Sprintf("tasks.backend %q must be pool or temporal", c.Tasks.Backend))
	}
	if c.Tasks.Workers <= 0 {
		errs = append(errs, "tasks.workers must be > 0")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
		}
	case "worker":
		if c.Tasks.Backend != "temporal" {
			errs = append(errs, "worker mode requires tasks.backend=temporal")
		}
	case "profile", "":
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", mode))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Empty defaults let credentials come from the environment alone.
	v.SetDefault("clearbit.key", "")
	v.SetDefault("hunter.key", "")
	v.SetDefault("google.key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("redis.password", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospect.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.default_ttl_secs", 604800)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("clearbit.base_url", "https://company.clearbit.com/v2")
	v.SetDefault("clearbit.rate_limit", 5.0)
	v.SetDefault("hunter.base_url", "https://api.hunter.io/v2")
	v.SetDefault("hunter.rate_limit", 10.0)
	v.SetDefault("hunter.search_limit", 20)
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.rate_limit", 10.0)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("scoring.completeness_weight", 30.0)
	v.SetDefault("scoring.size_fit_weight", 20.0)
	v.SetDefault("scoring.funding_weight", 20.0)
	v.SetDefault("scoring.tech_stack_weight", 15.0)
	v.SetDefault("scoring.contacts_weight", 15.0)
	v.SetDefault("scoring.sweet_spot_min", 50)
	v.SetDefault("scoring.sweet_spot_max", 500)
	v.SetDefault("scoring.size_floor", 0.25)
	v.SetDefault("scoring.decay_multiple", 10.0)
	v.SetDefault("scoring.tech_per_item", 3)
	v.SetDefault("scoring.overrides_file", "")
	v.SetDefault("collector.precedence", []string{"firmographic", "discovery", "contacts", "directory"})
	v.SetDefault("collector.max_contacts", 20)
	v.SetDefault("collector.directory_fallback", false)
	v.SetDefault("collector.timeout_secs", 60)
	v.SetDefault("collector.max_companies_per_search", 10)
	v.SetDefault("contacts.generate_missing_emails", false)
	v.SetDefault("contacts.find_missing_emails", false)
	v.SetDefault("contacts.min_verify_score", 70)
	v.SetDefault("tasks.backend", "pool")
	v.SetDefault("tasks.workers", 4)
	v.SetDefault("tasks.queue_size", 100)
	v.SetDefault("tasks.retention_hours", 24)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "prospect-tasks")
	v.SetDefault("temporal.activity_timeout_min", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// InitLogger configures the global zap logger.
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
