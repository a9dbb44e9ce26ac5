package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/cache"
	"github.com/sells-group/prospect-cli/internal/collector"
	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/contact"
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/insight"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/scorer"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/internal/task"
	anthropicpkg "github.com/sells-group/prospect-cli/pkg/anthropic"
)

// pipelineEnv holds the cache, store, adapters and task registry shared by
// the profile, score, discover, serve and worker commands.
type pipelineEnv struct {
	Cache     cache.Cache
	Store     store.Store // may be nil
	Collector *collector.Collector
	Discovery *enrich.Discovery
	Analyzer  *insight.Analyzer
	Tasks     *task.Registry

	closers []func() error
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	for i := len(pe.closers) - 1; i >= 0; i-- {
		if err := pe.closers[i](); err != nil {
			zap.L().Warn("close pipeline resource", zap.Error(err))
		}
	}
	pe.closers = nil
}

// initPipeline validates cfg for mode and builds every collaborator.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	scoring, err := loadScoring(cfg.Scoring)
	if err != nil {
		return nil, err
	}

	env := &pipelineEnv{}
	c, err := initCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	env.Cache = c
	if closer, ok := c.(interface{ Close() error }); ok {
		env.closers = append(env.closers, closer.Close)
	}

	st, err := initStore(ctx)
	if err != nil {
		env.Close()
		return nil, err
	}
	if st != nil {
		env.Store = st
		env.closers = append(env.closers, st.Close)
	}

	ttl := time.Duration(cfg.Cache.DefaultTTLSecs) * time.Second
	deps := enrich.Deps{
		Cache:    c,
		TTL:      ttl,
		Breakers: resilience.NewServiceBreakers(resilience.NewCircuitBreakerConfig(cfg.Circuit)),
		Retry:    resilience.NewRetryConfig(cfg.Retry),
	}

	contacts := enrich.NewContacts(cfg.Hunter, deps)
	env.Discovery = enrich.NewDiscovery(cfg.Google, cfg.Collector.MaxSearchResults, deps)

	adapters := enrich.NewRegistry()
	adapters.Register(enrich.NewFirmographic(cfg.Clearbit, deps))
	adapters.Register(env.Discovery)
	adapters.Register(contacts)
	adapters.Register(enrich.NewDirectory(cfg.Collector.DirectoryFallback, deps))
	for _, a := range adapters.List() {
		zap.L().Debug("adapter registered", zap.String("source", string(a.Name())), zap.Bool("available", a.Available()))
	}

	opts := collector.OptionsFromConfig(cfg)
	if cfg.Contacts.FindMissingEmails && contacts.Available() {
		opts.Enricher = contact.NewEnricher(contacts.Client(), cfg.Contacts.MinVerifyScore)
	}
	env.Collector = collector.New(adapters, c, scoring, opts)

	var gen insight.Generator
	if cfg.Anthropic.Key != "" {
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		gen = anthropicpkg.NewGenerator(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, insight.SystemPrompt)
	} else {
		zap.L().Debug("PROSPECT_ANTHROPIC_KEY not set, insight analysis disabled")
	}
	env.Analyzer = insight.NewAnalyzer(gen)

	var searcher task.Searcher
	if env.Discovery.Available() {
		searcher = env.Discovery
	}

	env.Tasks = task.NewRegistry()
	task.RegisterDefaults(env.Tasks, task.Deps{
		Collector: env.Collector,
		Analyzer:  env.Analyzer,
		Searcher:  searcher,
		Store:     env.Store,
	})
	return env, nil
}

// loadScoring applies the optional overrides file and validates the result.
func loadScoring(base config.ScoringConfig) (config.ScoringConfig, error) {
	if base.OverridesFile != "" {
		return scorer.LoadOverrides(base.OverridesFile, base)
	}
	if len(base.RecognizedTech) == 0 {
		base.RecognizedTech = append([]string(nil), scorer.DefaultRecognizedTech...)
	}
	if err := scorer.Validate(base); err != nil {
		return base, err
	}
	return base, nil
}

// initCache builds the configured cache backend. Redis is pinged so a bad
// address fails at startup.
func initCache(ctx context.Context, c *config.Config) (cache.Cache, error) {
	ttl := time.Duration(c.Cache.DefaultTTLSecs) * time.Second
	switch c.Cache.Backend {
	case "redis":
		r := cache.NewRedis(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		}, ttl)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, eris.Wrap(err, "init cache")
		}
		zap.L().Info("redis cache enabled", zap.String("addr", c.Redis.Addr))
		return r, nil
	case "memory", "":
		return cache.NewMemory(ttl), nil
	default:
		return nil, eris.Errorf("init cache: unsupported backend %q", c.Cache.Backend)
	}
}

// initStore opens and migrates the configured store. The "none" driver
// returns a nil store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if st == nil {
		return nil, nil
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initManager builds the task manager for the configured backend and
// returns a shutdown func that drains or disconnects it.
func initManager(env *pipelineEnv) (task.Manager, func(context.Context) error, error) {
	switch cfg.Tasks.Backend {
	case "temporal":
		c, err := task.Dial(cfg.Temporal)
		if err != nil {
			return nil, nil, err
		}
		zap.L().Info("temporal task backend enabled",
			zap.String("host_port", cfg.Temporal.HostPort),
			zap.String("task_queue", cfg.Temporal.TaskQueue),
		)
		return task.NewTemporalManager(c, env.Tasks, cfg.Temporal), func(context.Context) error {
			c.Close()
			return nil
		}, nil
	default:
		pool := task.NewPool(env.Tasks, task.PoolOptionsFromConfig(cfg.Tasks))
		return pool, pool.Shutdown, nil
	}
}
