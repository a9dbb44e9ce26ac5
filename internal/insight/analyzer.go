// Package insight turns a collected company profile into sales insight
// through a text generation model.
package insight

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/collector"
	"github.com/sells-group/prospect-cli/internal/model"
)

// ErrNotConfigured is returned when analysis is requested without a generator.
var ErrNotConfigured = eris.New("insight: no language model configured")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SystemPrompt is the system instruction sent with every analysis.
const SystemPrompt = "You are a B2B sales research analyst. Be specific to the company, concise, and never invent facts that contradict the profile."

const maxItems = 5

// Analyzer builds an analysis prompt from a profile and parses the reply.
type Analyzer struct {
	gen Generator
}

// NewAnalyzer returns an Analyzer backed by gen. A nil gen yields an
// Analyzer whose Analyze always returns ErrNotConfigured.
func NewAnalyzer(gen Generator) *Analyzer {
	return &Analyzer{gen: gen}
}

// Available reports whether a generator is configured.
func (a *Analyzer) Available() bool { return a != nil && a.gen != nil }

// Analyze generates pain points, priorities and a summary for res.
func (a *Analyzer) Analyze(ctx context.Context, res *collector.Result) (model.Insight, error) {
	if !a.Available() {
		return model.Insight{}, ErrNotConfigured
	}
	if res == nil {
		return model.Insight{}, eris.New("insight: nil profile")
	}

	text, err := a.gen.Generate(ctx, BuildPrompt(res))
	if err != nil {
		return model.Insight{}, eris.Wrap(err, "insight: generate")
	}

	ins := Parse(text)
	ins.GeneratedAt = time.Now().UTC()
	if m, ok := a.gen.(interface{ Model() string }); ok {
		ins.Model = m.Model()
	}
	zap.L().Debug("insight: analysis parsed",
		zap.String("company", res.Profile.Name),
		zap.Int("pain_points", len(ins.PainPoints)),
		zap.Int("priorities", len(ins.Priorities)),
	)
	return ins, nil
}

// BuildPrompt renders the analysis request for a profile.
func BuildPrompt(res *collector.Result) string {
	p := res.Profile
	orUnknown := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "Unknown"
		}
		return s
	}
	size := "Unknown"
	switch {
	case p.EmployeeCount > 0:
		size = fmt.Sprintf("%d employees", p.EmployeeCount)
	case p.EmployeeRange != "":
		size = p.EmployeeRange + " employees"
	}
	founded := "Unknown"
	if p.FoundedYear > 0 {
		founded = fmt.Sprint(p.FoundedYear)
	}
	tech := p.TechStack
	if len(tech) > 5 {
		tech = tech[:5]
	}
	decisionMakers := 0
	for _, c := range res.Contacts {
		if c.IsDecisionMaker {
			decisionMakers++
		}
	}

	var b strings.Builder
	b.WriteString("Analyze this company as a sales prospect.\n\n")
	fmt.Fprintf(&b, "Company: %s\n", orUnknown(p.Name))
	fmt.Fprintf(&b, "Domain: %s\n", orUnknown(p.Domain))
	fmt.Fprintf(&b, "Industry: %s\n", orUnknown(p.Industry))
	fmt.Fprintf(&b, "Size: %s\n", size)
	fmt.Fprintf(&b, "Location: %s\n", orUnknown(p.Location))
	fmt.Fprintf(&b, "Founded: %s\n", founded)
	fmt.Fprintf(&b, "Description: %s\n", orUnknown(p.Description))
	fmt.Fprintf(&b, "Tech Stack: %s\n", orUnknown(strings.Join(tech, ", ")))
	fmt.Fprintf(&b, "Lead Score: %.0f/100\n", res.Score.Total)
	fmt.Fprintf(&b, "Decision Makers Known: %d\n\n", decisionMakers)
	b.WriteString("Respond in exactly this format:\n")
	b.WriteString("SUMMARY:\n<two or three sentences on why this is or is not a good prospect>\n")
	b.WriteString("PAIN POINTS:\n- <3 to 5 likely business challenges, one per line>\n")
	b.WriteString("PRIORITIES:\n- <3 to 5 likely business priorities, one per line>\n")
	return b.String()
}

var (
	headerRe = regexp.MustCompile(`(?i)^\s*(?:#+\s*)?\**\s*(summary|pain\s*points|priorities|business\s+priorities)\s*\**\s*:?\s*\**\s*(.*)$`)
	bulletRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
)

// Parse extracts the summary and bullet lists from a model reply. Text
// before any section header is treated as summary. Each list keeps at most
// five items.
func Parse(text string) model.Insight {
	var (
		ins     model.Insight
		section = "summary"
		summary []string
	)
	for _, line := range strings.Split(text, "\n") {
		if m := headerRe.FindStringSubmatch(line); m != nil && isHeader(line, m[2]) {
			section = sectionName(m[1])
			if rest := strings.TrimSpace(m[2]); rest != "" && section == "summary" {
				summary = append(summary, rest)
			}
			continue
		}
		item := ""
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			item = strings.TrimSpace(strings.Trim(m[1], "*"))
		}
		switch section {
		case "pain":
			if item != "" && len(ins.PainPoints) < maxItems {
				ins.PainPoints = append(ins.PainPoints, item)
			}
		case "priorities":
			if item != "" && len(ins.Priorities) < maxItems {
				ins.Priorities = append(ins.Priorities, item)
			}
		default:
			if l := strings.TrimSpace(line); l != "" {
				summary = append(summary, l)
			}
		}
	}
	ins.Summary = strings.Join(summary, " ")
	if ins.PainPoints == nil {
		ins.PainPoints = []string{}
	}
	if ins.Priorities == nil {
		ins.Priorities = []string{}
	}
	return ins
}

// isHeader rejects prose that merely starts with a section word.
func isHeader(line, rest string) bool {
	t := strings.TrimSpace(line)
	return rest == "" || strings.HasPrefix(t, "#") || strings.Contains(t, ":")
}

func sectionName(header string) string {
	h := strings.ToLower(header)
	switch {
	case strings.HasPrefix(h, "pain"):
		return "pain"
	case strings.Contains(h, "priorit"):
		return "priorities"
	default:
		return "summary"
	}
}
