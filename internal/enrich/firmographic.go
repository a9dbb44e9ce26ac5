package enrich

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/clearbit"
)

// Firmographic enriches a company from Clearbit.
type Firmographic struct {
	base
	client clearbit.Client
}

// NewFirmographic builds the Clearbit adapter. An empty key yields an
// adapter that reports itself unavailable.
func NewFirmographic(cfg config.ClearbitConfig, d Deps) *Firmographic {
	var client clearbit.Client
	if cfg.Key != "" {
		var opts []clearbit.Option
		if cfg.BaseURL != "" {
			opts = append(opts, clearbit.WithBaseURL(cfg.BaseURL))
		}
		client = clearbit.NewClient(cfg.Key, opts...)
	}
	return &Firmographic{base: newBase(model.SourceFirmographic, cfg.RateLimit, d), client: client}
}

func (f *Firmographic) Name() model.Source { return model.SourceFirmographic }

func (f *Firmographic) Available() bool { return f.client != nil }

func (f *Firmographic) Fetch(ctx context.Context, id model.Identity) (*model.PartialRecord, error) {
	if !f.Available() {
		return nil, eris.Wrap(ErrSourceUnavailable, "firmographic: no api key configured")
	}
	// Clearbit looks companies up by domain only.
	if id.Domain == "" {
		return &model.PartialRecord{Source: model.SourceFirmographic}, nil
	}

	return f.fetch(ctx, id.CacheKey(), func(ctx context.Context) (*model.PartialRecord, error) {
		company, err := f.client.FindCompany(ctx, id.Domain)
		if errors.Is(err, clearbit.ErrNotFound) {
			return &model.PartialRecord{}, nil
		}
		if err != nil {
			var apiErr *clearbit.APIError
			if errors.As(err, &apiErr) {
				return nil, classifyStatus(err, apiErr.StatusCode, apiErr.RateLimited())
			}
			if err = classifyDecode(err); errors.Is(err, ErrMalformedUpstream) {
				f.log.Warn("firmographic: malformed response", zap.String("domain", id.Domain), zap.Error(err))
			}
			return nil, err
		}
		return companyRecord(company), nil
	})
}

func companyRecord(c *clearbit.Company) *model.PartialRecord {
	rec := &model.PartialRecord{}
	rec.Name = strings.TrimSpace(c.Name)
	rec.Domain = model.NormalizeDomain(c.Domain)
	rec.Industry = firstNonEmpty(c.Category.Industry, c.Category.Sector)
	if c.Metrics.Employees != nil && *c.Metrics.Employees > 0 {
		rec.EmployeeCount = *c.Metrics.Employees
	}
	rec.EmployeeRange = c.Metrics.EmployeesRange
	rec.Location = firstNonEmpty(c.Location, joinNonEmpty(", ", c.Geo.City, c.Geo.State, c.Geo.Country))
	rec.Description = strings.TrimSpace(c.Description)
	rec.FoundedYear = c.FoundedYear
	if len(c.Tech) > 0 {
		rec.TechStack = append([]string(nil), c.Tech...)
	}
	if c.Metrics.Raised != nil {
		rec.Funding.TotalRaised = *c.Metrics.Raised
	}
	if c.Metrics.AnnualRevenue != nil && *c.Metrics.AnnualRevenue > 0 {
		rec.Funding.AnnualRevenue = *c.Metrics.AnnualRevenue
	} else {
		rec.Funding.AnnualRevenue = parseRevenueRange(c.Metrics.EstimatedAnnualRevenue)
	}

	handles := map[string]string{}
	for name, h := range map[string]string{
		"twitter":    c.Twitter.Handle,
		"linkedin":   c.LinkedIn.Handle,
		"facebook":   c.Facebook.Handle,
		"crunchbase": c.Crunchbase.Handle,
	} {
		if h != "" {
			handles[name] = h
		}
	}
	if len(handles) > 0 {
		rec.SocialHandles = handles
	}
	return rec
}

// parseRevenueRange returns the lower bound of an estimate like "$10M-$50M"
// or "$1B+" in dollars. Unparseable input yields 0.
func parseRevenueRange(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	low := strings.SplitN(s, "-", 2)[0]
	low = strings.TrimSuffix(strings.TrimSpace(low), "+")
	low = strings.TrimPrefix(low, "$")
	low = strings.ReplaceAll(low, ",", "")

	mult := 1.0
	switch {
	case strings.HasSuffix(low, "K"), strings.HasSuffix(low, "k"):
		mult = 1e3
	case strings.HasSuffix(low, "M"), strings.HasSuffix(low, "m"):
		mult = 1e6
	case strings.HasSuffix(low, "B"), strings.HasSuffix(low, "b"):
		mult = 1e9
	}
	if mult > 1 {
		low = low[:len(low)-1]
	}
	v, err := strconv.ParseFloat(low, 64)
	if err != nil || v < 0 {
		return 0
	}
	return int64(v * mult)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
