// Package collector builds a scored company profile by fanning out to every
// enrichment adapter and merging what comes back.
package collector

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/cache"
	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/contact"
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/scorer"
)

// ProfileNamespace is the cache namespace for finished results.
const ProfileNamespace = "profile"

const defaultMaxContacts = 20

// ErrInvalidIdentity is returned when neither a name nor a domain is given.
var ErrInvalidIdentity = eris.New("collector: company name or domain is required")

// ProgressFunc receives a completion percentage in [0,100].
type ProgressFunc func(pct int)

// Request describes one profile collection.
type Request struct {
	Name            string       `json:"name"`
	Domain          string       `json:"domain"`
	IncludeContacts bool         `json:"include_contacts"`
	UseCache        bool         `json:"use_cache"`
	Progress        ProgressFunc `json:"-"`
}

// Result is a merged profile with its contacts and score.
type Result struct {
	Profile     model.CompanyProfile     `json:"profile"`
	Contacts    []model.CanonicalContact `json:"contacts,omitempty"`
	Score       model.LeadScore          `json:"score"`
	CollectedAt time.Time                `json:"collected_at"`
}

// Options tunes a Collector.
type Options struct {
	Precedence            []model.Source
	MaxContacts           int
	GenerateMissingEmails bool
	// Enricher, when set, looks up emails for decision makers that have none.
	Enricher *contact.Enricher
	// Timeout bounds the adapter fan-out. Zero means no extra bound.
	Timeout time.Duration
	TTL     time.Duration
}

// OptionsFromConfig maps application config onto collector options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Precedence:            ParsePrecedence(cfg.Collector.Precedence),
		MaxContacts:           cfg.Collector.MaxContacts,
		GenerateMissingEmails: cfg.Contacts.GenerateMissingEmails,
		Timeout:               time.Duration(cfg.Collector.TimeoutSecs) * time.Second,
		TTL:                   time.Duration(cfg.Cache.DefaultTTLSecs) * time.Second,
	}
}

// Collector runs the collection pipeline. It is safe for concurrent use;
// the cache is the only state shared between runs.
type Collector struct {
	registry *enrich.Registry
	cache    cache.Cache
	scoring  config.ScoringConfig
	opts     Options
}

// New creates a Collector over the adapters in registry.
func New(registry *enrich.Registry, c cache.Cache, scoring config.ScoringConfig, opts Options) *Collector {
	if len(opts.Precedence) == 0 {
		opts.Precedence = append([]model.Source(nil), DefaultPrecedence...)
	}
	if opts.MaxContacts <= 0 {
		opts.MaxContacts = defaultMaxContacts
	}
	if c == nil {
		c = cache.NewMemory(opts.TTL)
	}
	return &Collector{registry: registry, cache: c, scoring: scoring, opts: opts}
}

// Precedence returns the source order used for merging.
func (c *Collector) Precedence() []model.Source {
	return append([]model.Source(nil), c.opts.Precedence...)
}

// CollectFullProfile gathers, merges and scores everything known about the
// requested company. Adapter failures never fail the call: the profile is
// built from whatever sources answered. Only an invalid identity or a
// cancelled context is returned as an error.
func (c *Collector) CollectFullProfile(ctx context.Context, req Request) (*Result, error) {
	id := model.NewIdentity(req.Name, req.Domain)
	if !id.Valid() {
		return nil, ErrInvalidIdentity
	}
	report := newProgress(req.Progress)
	report.set(10)

	log := zap.L().With(zap.String("name", id.Name), zap.String("domain", id.Domain))
	key := profileKey(id, req.IncludeContacts)

	if req.UseCache && key != "" {
		raw, err := c.cache.Get(ctx, ProfileNamespace, key)
		if err == nil {
			var cached Result
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				log.Debug("collector: profile cache hit")
				report.set(100)
				return &cached, nil
			}
		} else if !cache.IsMiss(err) {
			log.Warn("collector: profile cache read failed", zap.Error(err))
		}
	}

	records, err := c.fanOut(ctx, id, req.UseCache, report, log)
	if err != nil {
		return nil, err
	}

	profile := Merge(records, id, c.opts.Precedence)
	report.set(90)

	var contacts []model.CanonicalContact
	if req.IncludeContacts {
		contacts = c.contacts(ctx, records, profile)
	}

	res := &Result{
		Profile:     profile,
		Contacts:    contacts,
		Score:       scorer.Score(profile, profile.ContactsFound, c.scoring),
		CollectedAt: time.Now().UTC(),
	}

	if key != "" {
		if raw, err := json.Marshal(res); err != nil {
			log.Warn("collector: encode profile for cache", zap.Error(err))
		} else if err := c.cache.Set(ctx, ProfileNamespace, key, raw, c.opts.TTL); err != nil {
			log.Warn("collector: profile cache write failed", zap.Error(err))
		}
	}

	log.Info("collector: profile collected",
		zap.Strings("sources_used", sourceNames(profile.SourcesUsed)),
		zap.Int("contacts", len(contacts)),
		zap.Float64("score", res.Score.Total),
	)
	report.set(100)
	return res, nil
}

// fanOut calls every registered adapter concurrently and waits for all of
// them. Failed adapters contribute nothing.
func (c *Collector) fanOut(ctx context.Context, id model.Identity, useCache bool, report *progress, log *zap.Logger) ([]*model.PartialRecord, error) {
	adapters := c.registry.List()
	records := make([]*model.PartialRecord, len(adapters))

	fctx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	if !useCache {
		fctx = enrich.WithRefresh(fctx)
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		done int
	)
	for i, a := range adapters {
		g.Go(func() error {
			defer func() {
				mu.Lock()
				done++
				pct := 10 + 80*done/len(adapters)
				mu.Unlock()
				report.set(pct)
			}()

			if fctx.Err() != nil {
				return nil
			}
			rec, err := a.Fetch(fctx, id)
			if err != nil {
				log.Warn("collector: adapter failed",
					zap.String("source", string(a.Name())),
					zap.Bool("unavailable", enrich.IsUnavailable(err)),
					zap.Error(err),
				)
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "collector: cancelled")
	}
	return records, nil
}

func (c *Collector) contacts(ctx context.Context, records []*model.PartialRecord, profile model.CompanyProfile) []model.CanonicalContact {
	raw := rawContacts(records, c.opts.Precedence)
	if c.opts.GenerateMissingEmails {
		raw = contact.FillFromPattern(raw, profile.EmailPattern, profile.Domain)
	}
	if c.opts.Enricher != nil {
		raw = c.opts.Enricher.FindMissing(ctx, raw, profile.Domain)
	}
	merged := contact.Deduplicate(raw, c.opts.Precedence)
	if len(merged) > c.opts.MaxContacts {
		merged = merged[:c.opts.MaxContacts]
	}
	return merged
}

// profileKey is the cache key for a finished result. Name-only identities
// are not cached.
func profileKey(id model.Identity, includeContacts bool) string {
	if id.Domain == "" {
		return ""
	}
	if includeContacts {
		return id.Domain
	}
	return id.Domain + ":basic"
}

func sourceNames(sources []model.Source) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = string(s)
	}
	return out
}

// progress serializes progress callbacks and never reports a lower value
// than one already reported.
type progress struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last int
}

func newProgress(fn ProgressFunc) *progress {
	return &progress{fn: fn}
}

func (p *progress) set(pct int) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if pct <= p.last {
		return
	}
	p.last = pct
	p.fn(pct)
}
