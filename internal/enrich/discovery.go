package enrich

import (
	"context"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/google"
)

const defaultSearchLimit = 10

// Discovery finds companies through Google Places text search.
type Discovery struct {
	base
	client      google.Client
	searchLimit int
}

// NewDiscovery builds the Places adapter. maxResults caps Search; zero
// selects the default of 10.
func NewDiscovery(cfg config.GoogleConfig, maxResults int, d Deps) *Discovery {
	var client google.Client
	if cfg.Key != "" {
		var opts []google.Option
		if cfg.BaseURL != "" {
			opts = append(opts, google.WithBaseURL(cfg.BaseURL))
		}
		client = google.NewClient(cfg.Key, opts...)
	}
	return newDiscovery(client, cfg.RateLimit, maxResults, d)
}

func newDiscovery(client google.Client, rps float64, maxResults int, d Deps) *Discovery {
	if maxResults <= 0 {
		maxResults = defaultSearchLimit
	}
	return &Discovery{
		base:        newBase(model.SourceDiscovery, rps, d),
		client:      client,
		searchLimit: maxResults,
	}
}

func (a *Discovery) Name() model.Source { return model.SourceDiscovery }

func (a *Discovery) Available() bool { return a.client != nil }

// Fetch searches by name (or domain when no name is given) and returns the
// best matching place. A place whose website matches the identity's domain
// wins over search rank.
func (a *Discovery) Fetch(ctx context.Context, id model.Identity) (*model.PartialRecord, error) {
	if !a.Available() {
		return nil, eris.Wrap(ErrSourceUnavailable, "discovery: no api key configured")
	}
	query := id.Name
	if query == "" {
		query = id.Domain
	}

	return a.fetch(ctx, id.CacheKey(), func(ctx context.Context) (*model.PartialRecord, error) {
		places, err := a.search(ctx, query, 5)
		if err != nil {
			return nil, err
		}
		if len(places) == 0 {
			return &model.PartialRecord{}, nil
		}
		if id.Domain == "" {
			return placeRecord(places[0]), nil
		}
		for _, p := range places {
			if model.NormalizeDomain(p.WebsiteURI) == id.Domain {
				return placeRecord(p), nil
			}
		}
		// No website match: keep the top hit but never contradict the
		// caller's domain.
		rec := placeRecord(places[0])
		rec.Domain = ""
		return rec, nil
	})
}

// Search returns up to limit candidate companies for a free-text query.
// Results are not cached.
func (a *Discovery) Search(ctx context.Context, query string, limit int) ([]model.PartialRecord, error) {
	if !a.Available() {
		return nil, eris.Wrap(ErrSourceUnavailable, "discovery: no api key configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, eris.New("discovery: empty query")
	}
	if limit <= 0 || limit > a.searchLimit {
		limit = a.searchLimit
	}

	places, err := resilience.Call(ctx, a.breaker, a.retry, func(ctx context.Context) ([]google.Place, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return a.search(ctx, query, limit)
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.PartialRecord, 0, len(places))
	for _, p := range places {
		rec := placeRecord(p)
		if rec.Name == "" {
			continue
		}
		rec.Source = model.SourceDiscovery
		out = append(out, *rec)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *Discovery) search(ctx context.Context, query string, limit int) ([]google.Place, error) {
	resp, err := a.client.TextSearch(ctx, google.TextSearchRequest{TextQuery: query, MaxResultCount: limit})
	if err != nil {
		var apiErr *google.APIError
		if errors.As(err, &apiErr) {
			return nil, classifyStatus(err, apiErr.StatusCode, apiErr.RateLimited())
		}
		if err = classifyDecode(err); errors.Is(err, ErrMalformedUpstream) {
			a.log.Warn("discovery: malformed response", zap.String("query", query), zap.Error(err))
		}
		return nil, err
	}
	return resp.Places, nil
}

func placeRecord(p google.Place) *model.PartialRecord {
	rec := &model.PartialRecord{}
	rec.Name = strings.TrimSpace(p.DisplayName.Text)
	rec.Domain = model.NormalizeDomain(p.WebsiteURI)
	rec.Industry = firstNonEmpty(p.PrimaryTypeDisplayName.Text, humanizeType(p.PrimaryType))
	rec.Location = strings.TrimSpace(p.FormattedAddress)
	rec.Description = strings.TrimSpace(p.EditorialSummary.Text)
	rec.EmployeeRange = sizeBucket(p.UserRatingCount)
	return rec
}

// humanizeType turns a Places type id like "software_company" into
// "Software Company".
func humanizeType(t string) string {
	words := strings.Fields(strings.ReplaceAll(t, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// sizeBucket approximates a head-count range from public review volume.
// Places has no size field, so this only ever fills employee_range.
func sizeBucket(reviews int) string {
	switch {
	case reviews <= 0:
		return ""
	case reviews < 25:
		return "1-10"
	case reviews < 100:
		return "11-50"
	case reviews < 500:
		return "51-200"
	case reviews < 2000:
		return "201-500"
	default:
		return "501+"
	}
}
