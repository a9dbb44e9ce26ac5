// Package enrich defines the company data adapters the collector fans out to.
package enrich

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/cache"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

// Adapter fetches one source's partial view of a company.
type Adapter interface {
	// Name returns the source the adapter reports as.
	Name() model.Source
	// Available reports whether the adapter is configured to make calls.
	Available() bool
	// Fetch returns the source's record for id. The returned record is
	// never mutated afterwards.
	Fetch(ctx context.Context, id model.Identity) (*model.PartialRecord, error)
}

// Deps are the shared collaborators every adapter is built with.
type Deps struct {
	Cache    cache.Cache
	TTL      time.Duration
	Breakers *resilience.ServiceBreakers
	Retry    resilience.RetryConfig
}

type refreshKey struct{}

// WithRefresh marks ctx so adapters skip the cache read but still overwrite
// the cached entry with the fresh result.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshKey{}, true)
}

func refreshRequested(ctx context.Context) bool {
	v, _ := ctx.Value(refreshKey{}).(bool)
	return v
}

// base carries the cache, limiter, breaker and retry policy shared by the
// provider-backed adapters.
type base struct {
	source  model.Source
	cache   cache.Cache
	ttl     time.Duration
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	log     *zap.Logger
}

func newBase(source model.Source, rps float64, d Deps) base {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	breakers := d.Breakers
	if breakers == nil {
		breakers = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	}
	c := d.Cache
	if c == nil {
		c = cache.NewMemory(d.TTL)
	}
	rc := d.Retry
	rc.OnRetry = resilience.RetryLogger(string(source), "fetch")
	return base{
		source:  source,
		cache:   c,
		ttl:     d.TTL,
		limiter: rate.NewLimiter(limit, 1),
		breaker: breakers.Get(string(source)),
		retry:   rc,
		log:     zap.L().With(zap.String("source", string(source))),
	}
}

// fetch runs call through the limiter, breaker and retry loop, memoized in
// the adapter's cache namespace under key.
func (b *base) fetch(ctx context.Context, key string, call func(ctx context.Context) (*model.PartialRecord, error)) (*model.PartialRecord, error) {
	compute := func(ctx context.Context) (model.PartialRecord, error) {
		rec, err := resilience.Call(ctx, b.breaker, b.retry, func(ctx context.Context) (*model.PartialRecord, error) {
			if err := b.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			return call(ctx)
		})
		if err != nil {
			return model.PartialRecord{}, err
		}
		rec.Source = b.source
		if rec.FetchedAt.IsZero() {
			rec.FetchedAt = time.Now().UTC()
		}
		return *rec, nil
	}

	var (
		rec model.PartialRecord
		err error
	)
	if refreshRequested(ctx) {
		rec, err = cache.Refresh(ctx, b.cache, string(b.source), key, b.ttl, compute)
	} else {
		rec, err = cache.GetOrCompute(ctx, b.cache, string(b.source), key, b.ttl, compute)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Registry holds adapters by source name.
type Registry struct {
	mu       sync.RWMutex
	adapters map[model.Source]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[model.Source]Adapter),
	}
}

// Register adds or replaces an adapter.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the adapter for source, or nil if none is registered.
func (r *Registry) Get(source model.Source) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[source]
}

// List returns all registered adapters sorted by name.
func (r *Registry) List() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
