package enrich

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/hunter"
)

const defaultDomainSearchLimit = 10

// Contacts discovers people and the email pattern for a domain via Hunter.
type Contacts struct {
	base
	client hunter.Client
	limit  int
}

// NewContacts builds the Hunter adapter. An empty key yields an adapter
// that reports itself unavailable.
func NewContacts(cfg config.HunterConfig, d Deps) *Contacts {
	var client hunter.Client
	if cfg.Key != "" {
		var opts []hunter.Option
		if cfg.BaseURL != "" {
			opts = append(opts, hunter.WithBaseURL(cfg.BaseURL))
		}
		client = hunter.NewClient(cfg.Key, opts...)
	}
	limit := cfg.SearchLimit
	if limit <= 0 {
		limit = defaultDomainSearchLimit
	}
	return &Contacts{base: newBase(model.SourceContacts, cfg.RateLimit, d), client: client, limit: limit}
}

// Client exposes the underlying Hunter client for email lookups, or nil
// when the adapter is unavailable.
func (a *Contacts) Client() hunter.Client { return a.client }

func (a *Contacts) Name() model.Source { return model.SourceContacts }

func (a *Contacts) Available() bool { return a.client != nil }

func (a *Contacts) Fetch(ctx context.Context, id model.Identity) (*model.PartialRecord, error) {
	if !a.Available() {
		return nil, eris.Wrap(ErrSourceUnavailable, "contacts: no api key configured")
	}
	if id.Domain == "" {
		return &model.PartialRecord{Source: model.SourceContacts}, nil
	}

	return a.fetch(ctx, id.CacheKey(), func(ctx context.Context) (*model.PartialRecord, error) {
		res, err := a.client.DomainSearch(ctx, id.Domain, a.limit)
		if errors.Is(err, hunter.ErrNotFound) {
			return &model.PartialRecord{}, nil
		}
		if err != nil {
			var apiErr *hunter.APIError
			if errors.As(err, &apiErr) {
				return nil, classifyStatus(err, apiErr.StatusCode, apiErr.RateLimited())
			}
			if err = classifyDecode(err); errors.Is(err, ErrMalformedUpstream) {
				a.log.Warn("contacts: malformed response", zap.String("domain", id.Domain), zap.Error(err))
			}
			return nil, err
		}
		return domainSearchRecord(res), nil
	})
}

func domainSearchRecord(res *hunter.DomainSearchResult) *model.PartialRecord {
	rec := &model.PartialRecord{}
	rec.Name = strings.TrimSpace(res.Organization)
	rec.Domain = model.NormalizeDomain(res.Domain)
	rec.EmailPattern = strings.TrimSpace(res.Pattern)
	rec.ContactsFound = res.Total

	for _, e := range res.Emails {
		if e.Value == "" && e.FirstName == "" && e.LastName == "" {
			continue
		}
		c := model.RawContact{
			FirstName:  strings.TrimSpace(e.FirstName),
			LastName:   strings.TrimSpace(e.LastName),
			Title:      strings.TrimSpace(e.Position),
			Email:      strings.TrimSpace(e.Value),
			Phone:      e.PhoneNumber,
			LinkedIn:   e.LinkedIn,
			Twitter:    e.Twitter,
			Department: e.Department,
			Seniority:  e.Seniority,
			Source:     model.SourceContacts,
		}
		if e.Confidence > 0 {
			conf := e.Confidence
			c.Confidence = &conf
		}
		rec.Contacts = append(rec.Contacts, c)
	}
	return rec
}
