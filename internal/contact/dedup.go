// Package contact merges contact records from several sources into
// canonical people and fills in missing email addresses.
package contact

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/prospect-cli/internal/model"
)

var decisionMakerRe = regexp.MustCompile(`(?i)\b(chief|ceo|cto|cfo|coo|cmo|cio|cro|cpo|co-?founder|founder|president|vice president|svp|evp|vp|director|head of)\b`)

// IsDecisionMaker reports whether a job title denotes a C-level, founder,
// VP, director or head-of role. Matching is case-insensitive on word
// boundaries, so "Directory Admin" does not match.
func IsDecisionMaker(title string) bool {
	return title != "" && decisionMakerRe.MatchString(title)
}

// Key returns the identity key for a raw contact: the lower-cased email
// when present, otherwise the normalized first and last name. It returns ""
// for contacts with neither.
func Key(c model.RawContact) string {
	if email := strings.ToLower(strings.TrimSpace(c.Email)); email != "" {
		return "email:" + email
	}
	first, last := c.FirstName, c.LastName
	if strings.TrimSpace(first) == "" && strings.TrimSpace(last) == "" {
		first, last = SplitName(c.FullName)
	}
	first, last = NormalizeName(first), NormalizeName(last)
	if first == "" && last == "" {
		return ""
	}
	return "name:" + first + "|" + last
}

// SplitName splits a full name into first name and the remainder.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// NormalizeName lower-cases s, strips accents and punctuation and
// collapses whitespace: "  José  O'Brien " becomes "jose obrien".
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Deduplicate groups raw contacts by Key and merges each group. Within a
// group, records are ordered by their source's position in precedence
// (unknown sources last, input order kept for ties) and every field takes
// the first non-empty value. Groups are returned in first-seen order.
func Deduplicate(raw []model.RawContact, precedence []model.Source) []model.CanonicalContact {
	rank := make(map[model.Source]int, len(precedence))
	for i, s := range precedence {
		if _, ok := rank[s]; !ok {
			rank[s] = i
		}
	}
	rankOf := func(s model.Source) int {
		if r, ok := rank[s]; ok {
			return r
		}
		return len(precedence)
	}

	var order []string
	groups := make(map[string][]model.RawContact)
	for _, c := range raw {
		k := Key(c)
		if k == "" {
			continue
		}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c)
	}

	out := make([]model.CanonicalContact, 0, len(order))
	for _, k := range order {
		g := groups[k]
		sort.SliceStable(g, func(i, j int) bool { return rankOf(g[i].Source) < rankOf(g[j].Source) })
		out = append(out, merge(k, g))
	}
	return out
}

func merge(key string, group []model.RawContact) model.CanonicalContact {
	cc := model.CanonicalContact{Key: key}
	for _, c := range group {
		fill(&cc.FirstName, c.FirstName)
		fill(&cc.LastName, c.LastName)
		fill(&cc.FullName, c.FullName)
		fill(&cc.Title, c.Title)
		fill(&cc.Email, c.Email)
		fill(&cc.Phone, c.Phone)
		fill(&cc.LinkedIn, c.LinkedIn)
		fill(&cc.Twitter, c.Twitter)
		fill(&cc.Department, c.Department)
		fill(&cc.Seniority, c.Seniority)
		if cc.Confidence == nil && c.Confidence != nil {
			v := *c.Confidence
			cc.Confidence = &v
		}
		if c.Source != "" && !containsSource(cc.Sources, c.Source) {
			cc.Sources = append(cc.Sources, c.Source)
		}
	}
	if cc.FullName == "" {
		cc.FullName = strings.TrimSpace(cc.FirstName + " " + cc.LastName)
	}
	cc.IsDecisionMaker = IsDecisionMaker(cc.Title)
	return cc
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = strings.TrimSpace(v)
	}
}

func containsSource(list []model.Source, s model.Source) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
