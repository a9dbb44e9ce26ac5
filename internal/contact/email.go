package contact

import (
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
)

// GenerateEmail expands a Hunter-style pattern such as "{first}.{last}" or
// "{f}{last}" for a person at domain. It returns "" when the pattern or
// domain is empty, or when the pattern needs a name part that is missing.
func GenerateEmail(pattern, first, last, domain string) string {
	pattern = strings.TrimSpace(pattern)
	domain = strings.TrimSpace(domain)
	if pattern == "" || domain == "" {
		return ""
	}
	first = strings.ReplaceAll(NormalizeName(first), " ", "")
	last = strings.ReplaceAll(NormalizeName(last), " ", "")

	needs := func(tokens ...string) bool {
		for _, t := range tokens {
			if strings.Contains(pattern, t) {
				return true
			}
		}
		return false
	}
	if (needs("{first}", "{f}") && first == "") || (needs("{last}", "{l}") && last == "") {
		return ""
	}

	r := strings.NewReplacer(
		"{first}", first,
		"{last}", last,
		"{f}", initial(first),
		"{l}", initial(last),
	)
	local := r.Replace(pattern)
	if local == "" || strings.ContainsAny(local, "{}") {
		return ""
	}
	if at := strings.Index(local, "@"); at >= 0 {
		local = local[:at]
	}
	return local + "@" + domain
}

func initial(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

// FillFromPattern returns a copy of raw in which named contacts without an
// email get one generated from pattern. Generated addresses carry no
// confidence score.
func FillFromPattern(raw []model.RawContact, pattern, domain string) []model.RawContact {
	out := make([]model.RawContact, len(raw))
	copy(out, raw)
	if pattern == "" || domain == "" {
		return out
	}
	for i := range out {
		c := &out[i]
		if c.Email != "" {
			continue
		}
		first, last := c.FirstName, c.LastName
		if first == "" && last == "" {
			first, last = SplitName(c.FullName)
		}
		if email := GenerateEmail(pattern, first, last, domain); email != "" {
			c.Email = email
			c.Confidence = nil
		}
	}
	return out
}
