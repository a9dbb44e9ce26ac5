package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/cache"
	"github.com/sells-group/prospect-cli/internal/model"
)

// directoryTitles are the roles the sample directory reports for every company.
var directoryTitles = []string{
	"Chief Executive Officer",
	"Chief Technology Officer",
	"VP of Engineering",
	"VP of Sales",
	"Head of Marketing",
	"Engineering Manager",
	"Senior Software Engineer",
	"Product Manager",
	"Sales Director",
	"Customer Success Manager",
}

// Directory is a deterministic offline source used when no professional
// network provider is configured. It is disabled unless explicitly enabled.
type Directory struct {
	enabled bool
	cache   cache.Cache
	ttl     time.Duration
}

// NewDirectory builds the sample directory adapter.
func NewDirectory(enabled bool, d Deps) *Directory {
	c := d.Cache
	if c == nil {
		c = cache.NewMemory(d.TTL)
	}
	return &Directory{enabled: enabled, cache: c, ttl: d.TTL}
}

func (a *Directory) Name() model.Source { return model.SourceDirectory }

func (a *Directory) Available() bool { return a.enabled }

func (a *Directory) Fetch(ctx context.Context, id model.Identity) (*model.PartialRecord, error) {
	if !a.enabled {
		return nil, eris.Wrap(ErrSourceUnavailable, "directory: fallback disabled")
	}
	compute := func(context.Context) (model.PartialRecord, error) {
		return directoryRecord(id), nil
	}
	var (
		rec model.PartialRecord
		err error
	)
	if refreshRequested(ctx) {
		rec, err = cache.Refresh(ctx, a.cache, string(model.SourceDirectory), id.CacheKey(), a.ttl, compute)
	} else {
		rec, err = cache.GetOrCompute(ctx, a.cache, string(model.SourceDirectory), id.CacheKey(), a.ttl, compute)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func directoryRecord(id model.Identity) model.PartialRecord {
	name := id.Name
	if name == "" {
		name = nameFromDomain(id.Domain)
	}
	slug := strings.ReplaceAll(strings.ToLower(name), " ", "-")

	rec := model.PartialRecord{Source: model.SourceDirectory, FetchedAt: time.Now().UTC()}
	rec.Name = name
	rec.Industry = "Technology"
	rec.EmployeeCount = 150
	rec.EmployeeRange = "50-200 employees"
	rec.Location = "San Francisco, CA"
	rec.Description = name + " is a leading company in its industry."
	rec.FoundedYear = 2020
	rec.SocialHandles = map[string]string{"linkedin": "company/" + slug}

	for i, title := range directoryTitles {
		n := i + 1
		rec.Contacts = append(rec.Contacts, model.RawContact{
			FirstName: "Person",
			LastName:  fmt.Sprint(n),
			FullName:  fmt.Sprintf("Person %d", n),
			Title:     title,
			LinkedIn:  fmt.Sprintf("https://www.linkedin.com/in/person-%d-%s", n, slug),
			Source:    model.SourceDirectory,
		})
	}
	return rec
}

// nameFromDomain turns "acme-labs.com" into "Acme Labs".
func nameFromDomain(domain string) string {
	label := strings.SplitN(domain, ".", 2)[0]
	return humanizeType(strings.ReplaceAll(label, "-", "_"))
}
