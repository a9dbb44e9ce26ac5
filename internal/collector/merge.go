package collector

import (
	"sort"

	"github.com/sells-group/prospect-cli/internal/contact"
	"github.com/sells-group/prospect-cli/internal/model"
)

// DefaultPrecedence orders sources from most to least trusted.
var DefaultPrecedence = []model.Source{
	model.SourceFirmographic,
	model.SourceDiscovery,
	model.SourceContacts,
	model.SourceDirectory,
}

// ParsePrecedence converts configured source names, dropping unknown and
// duplicate entries. An empty result falls back to DefaultPrecedence.
func ParsePrecedence(names []string) []model.Source {
	known := map[model.Source]bool{}
	for _, s := range DefaultPrecedence {
		known[s] = true
	}
	seen := map[model.Source]bool{}
	var out []model.Source
	for _, n := range names {
		s := model.Source(n)
		if !known[s] || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return append([]model.Source(nil), DefaultPrecedence...)
	}
	return out
}

// orderRecords returns records sorted by their source's rank in precedence.
// Sources missing from precedence sort last by name so the result never
// depends on completion order.
func orderRecords(records []*model.PartialRecord, precedence []model.Source) []*model.PartialRecord {
	rank := make(map[model.Source]int, len(precedence))
	for i, s := range precedence {
		rank[s] = i
	}
	out := make([]*model.PartialRecord, 0, len(records))
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i].Source]
		rj, jok := rank[out[j].Source]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i].Source < out[j].Source
		}
	})
	return out
}

// Merge combines partial records into a profile. Each field takes the value
// of the highest-precedence record that defines it; caller-supplied name and
// domain fill in only when no record did.
func Merge(records []*model.PartialRecord, id model.Identity, precedence []model.Source) model.CompanyProfile {
	ordered := orderRecords(records, precedence)
	p := model.CompanyProfile{Provenance: map[model.Field]model.Source{}}

	used := map[model.Source]bool{}
	for _, field := range model.AllFields {
		for _, r := range ordered {
			if r.Has(field) {
				p.CopyField(r.CompanyFacts, field)
				p.Provenance[field] = r.Source
				used[r.Source] = true
				break
			}
		}
	}

	for _, r := range ordered {
		if r.ContactsFound > 0 || len(r.Contacts) > 0 {
			used[r.Source] = true
		}
		if p.ContactsFound == 0 && r.ContactsFound > 0 {
			p.ContactsFound = r.ContactsFound
		}
	}
	// Sources that list people without reporting a total still count.
	if n := len(contact.Deduplicate(rawContacts(records, precedence), precedence)); n > p.ContactsFound {
		p.ContactsFound = n
	}

	if !p.Has(model.FieldName) && id.Name != "" {
		p.Name = id.Name
		p.Provenance[model.FieldName] = model.SourceInput
	}
	if !p.Has(model.FieldDomain) && id.Domain != "" {
		p.Domain = id.Domain
		p.Provenance[model.FieldDomain] = model.SourceInput
	}

	p.SourcesUsed = make([]model.Source, 0, len(used))
	for s := range used {
		p.SourcesUsed = append(p.SourcesUsed, s)
	}
	sort.Slice(p.SourcesUsed, func(i, j int) bool { return p.SourcesUsed[i] < p.SourcesUsed[j] })
	return p
}

// rawContacts concatenates contacts from every record in precedence order.
func rawContacts(records []*model.PartialRecord, precedence []model.Source) []model.RawContact {
	var out []model.RawContact
	for _, r := range orderRecords(records, precedence) {
		for _, c := range r.Contacts {
			if c.Source == "" {
				c.Source = r.Source
			}
			out = append(out, c)
		}
	}
	return out
}
