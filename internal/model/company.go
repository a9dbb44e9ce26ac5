package model

import (
	"net/url"
	"strings"
	"time"
)

// Source identifies where a piece of company data came from.
type Source string

const (
	// SourceFirmographic is the structured firmographic provider (Clearbit).
	SourceFirmographic Source = "firmographic"
	// SourceDiscovery is the search-based company directory (Google Places).
	SourceDiscovery Source = "discovery"
	// SourceContacts is the contact and email discovery provider (Hunter).
	SourceContacts Source = "contacts"
	// SourceDirectory is the built-in sample directory used as a fallback.
	SourceDirectory Source = "directory"
	// SourceInput marks values supplied by the caller.
	SourceInput Source = "input"
)

// Identity is the caller-supplied handle for a company.
type Identity struct {
	Name   string `json:"name,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// NewIdentity trims the name and normalizes the domain.
func NewIdentity(name, domain string) Identity {
	return Identity{
		Name:   strings.TrimSpace(name),
		Domain: NormalizeDomain(domain),
	}
}

// Valid reports whether the identity carries a usable name or domain.
func (id Identity) Valid() bool {
	return id.Name != "" || id.Domain != ""
}

// CacheKey returns the key adapters use for per-company cache entries.
// The domain is preferred; name-only identities fall back to the lower-cased name.
func (id Identity) CacheKey() string {
	if id.Domain != "" {
		return id.Domain
	}
	return "name:" + strings.ToLower(id.Name)
}

// NormalizeDomain reduces a URL or host to a bare lower-case domain.
// "https://www.Acme.com/about" becomes "acme.com".
func NormalizeDomain(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.TrimSuffix(u.Hostname(), ".")
	return strings.TrimPrefix(host, "www.")
}

// Field names a company attribute that can carry provenance.
type Field string

const (
	FieldName          Field = "name"
	FieldDomain        Field = "domain"
	FieldIndustry      Field = "industry"
	FieldEmployeeCount Field = "employee_count"
	FieldEmployeeRange Field = "employee_range"
	FieldLocation      Field = "location"
	FieldDescription   Field = "description"
	FieldFoundedYear   Field = "founded_year"
	FieldTechStack     Field = "tech_stack"
	FieldFunding       Field = "funding"
	FieldSocialHandles Field = "social_handles"
	FieldEmailPattern  Field = "email_pattern"
)

// AllFields lists every mergeable field in a stable order.
var AllFields = []Field{
	FieldName,
	FieldDomain,
	FieldIndustry,
	FieldEmployeeCount,
	FieldEmployeeRange,
	FieldLocation,
	FieldDescription,
	FieldFoundedYear,
	FieldTechStack,
	FieldFunding,
	FieldSocialHandles,
	FieldEmailPattern,
}

// Funding holds monetary signals in USD. Zero means unknown.
type Funding struct {
	TotalRaised   int64 `json:"total_raised,omitempty"`
	AnnualRevenue int64 `json:"annual_revenue,omitempty"`
}

// IsZero reports whether no funding or revenue signal is present.
func (f Funding) IsZero() bool {
	return f.TotalRaised <= 0 && f.AnnualRevenue <= 0
}

// CompanyFacts is the sparse field set shared by partial records and
// merged profiles. A zero value means the field is absent.
type CompanyFacts struct {
	Name          string            `json:"name,omitempty"`
	Domain        string            `json:"domain,omitempty"`
	Industry      string            `json:"industry,omitempty"`
	EmployeeCount int               `json:"employee_count,omitempty"`
	EmployeeRange string            `json:"employee_range,omitempty"`
	Location      string            `json:"location,omitempty"`
	Description   string            `json:"description,omitempty"`
	FoundedYear   int               `json:"founded_year,omitempty"`
	TechStack     []string          `json:"tech_stack,omitempty"`
	Funding       Funding           `json:"funding,omitzero"`
	SocialHandles map[string]string `json:"social_handles,omitempty"`
	EmailPattern  string            `json:"email_pattern,omitempty"`
}

// Has reports whether the given field carries a value.
func (c CompanyFacts) Has(f Field) bool {
	switch f {
	case FieldName:
		return c.Name != ""
	case FieldDomain:
		return c.Domain != ""
	case FieldIndustry:
		return c.Industry != ""
	case FieldEmployeeCount:
		return c.EmployeeCount > 0
	case FieldEmployeeRange:
		return c.EmployeeRange != ""
	case FieldLocation:
		return c.Location != ""
	case FieldDescription:
		return c.Description != ""
	case FieldFoundedYear:
		return c.FoundedYear > 0
	case FieldTechStack:
		return len(c.TechStack) > 0
	case FieldFunding:
		return !c.Funding.IsZero()
	case FieldSocialHandles:
		return len(c.SocialHandles) > 0
	case FieldEmailPattern:
		return c.EmailPattern != ""
	default:
		return false
	}
}

// CopyField copies a single field from src into c. Slices and maps are
// cloned so the destination never aliases the source record.
func (c *CompanyFacts) CopyField(src CompanyFacts, f Field) {
	switch f {
	case FieldName:
		c.Name = src.Name
	case FieldDomain:
		c.Domain = src.Domain
	case FieldIndustry:
		c.Industry = src.Industry
	case FieldEmployeeCount:
		c.EmployeeCount = src.EmployeeCount
	case FieldEmployeeRange:
		c.EmployeeRange = src.EmployeeRange
	case FieldLocation:
		c.Location = src.Location
	case FieldDescription:
		c.Description = src.Description
	case FieldFoundedYear:
		c.FoundedYear = src.FoundedYear
	case FieldTechStack:
		c.TechStack = append([]string(nil), src.TechStack...)
	case FieldFunding:
		c.Funding = src.Funding
	case FieldSocialHandles:
		c.SocialHandles = make(map[string]string, len(src.SocialHandles))
		for k, v := range src.SocialHandles {
			c.SocialHandles[k] = v
		}
	case FieldEmailPattern:
		c.EmailPattern = src.EmailPattern
	}
}

// PartialRecord is one adapter's view of a company.
type PartialRecord struct {
	CompanyFacts
	Contacts      []RawContact `json:"contacts,omitempty"`
	ContactsFound int          `json:"contacts_found,omitempty"`
	Source        Source       `json:"source"`
	FetchedAt     time.Time    `json:"fetched_at"`
}

// CompanyProfile is the merged, canonical company record.
type CompanyProfile struct {
	CompanyFacts
	Provenance    map[Field]Source `json:"provenance"`
	SourcesUsed   []Source         `json:"sources_used"`
	ContactsFound int              `json:"contacts_found,omitempty"`
}

// SourceOf returns the source that supplied the given field, if any.
func (p CompanyProfile) SourceOf(f Field) (Source, bool) {
	s, ok := p.Provenance[f]
	return s, ok
}
