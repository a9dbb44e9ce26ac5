package insight

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/collector"
	"github.com/sells-group/prospect-cli/internal/model"
)

type fakeGen struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeGen) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func (f *fakeGen) Model() string { return "test-model" }

func sampleResult() *collector.Result {
	res := &collector.Result{}
	res.Profile.Name = "Acme"
	res.Profile.Domain = "acme.test"
	res.Profile.Industry = "Software"
	res.Profile.EmployeeCount = 120
	res.Profile.TechStack = []string{"go", "postgres", "redis", "kafka", "aws", "gcp"}
	res.Score.Total = 72.4
	res.Contacts = []model.CanonicalContact{{FullName: "Jane Doe", IsDecisionMaker: true}, {FullName: "Bob"}}
	return res
}

func TestAnalyzer_NotConfigured(t *testing.T) {
	_, err := NewAnalyzer(nil).Analyze(context.Background(), sampleResult())
	assert.ErrorIs(t, err, ErrNotConfigured)

	var a *Analyzer
	assert.False(t, a.Available())
}

func TestAnalyzer_Analyze(t *testing.T) {
	gen := &fakeGen{reply: `SUMMARY:
Acme is a growing software firm with a strong fit.

PAIN POINTS:
- Scaling engineering hiring
- Rising cloud costs

PRIORITIES:
1. Expand into enterprise
2) Improve retention
`}
	ins, err := NewAnalyzer(gen).Analyze(context.Background(), sampleResult())
	require.NoError(t, err)

	assert.Equal(t, "Acme is a growing software firm with a strong fit.", ins.Summary)
	assert.Equal(t, []string{"Scaling engineering hiring", "Rising cloud costs"}, ins.PainPoints)
	assert.Equal(t, []string{"Expand into enterprise", "Improve retention"}, ins.Priorities)
	assert.Equal(t, "test-model", ins.Model)
	assert.False(t, ins.GeneratedAt.IsZero())

	assert.Contains(t, gen.prompt, "Company: Acme")
	assert.Contains(t, gen.prompt, "Size: 120 employees")
	assert.Contains(t, gen.prompt, "Tech Stack: go, postgres, redis, kafka, aws\n")
	assert.Contains(t, gen.prompt, "Lead Score: 72/100")
	assert.Contains(t, gen.prompt, "Decision Makers Known: 1")
	assert.Contains(t, gen.prompt, "Founded: Unknown")
}

func TestAnalyzer_GenerateError(t *testing.T) {
	gen := &fakeGen{err: errors.New("rate limited")}
	_, err := NewAnalyzer(gen).Analyze(context.Background(), sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insight: generate")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		summary    string
		pain       []string
		priorities []string
	}{
		{
			name:       "markdown headings",
			in:         "## Summary\nGood fit.\n## Pain Points\n* **Legacy tooling**\n## Business Priorities\n- Growth",
			summary:    "Good fit.",
			pain:       []string{"Legacy tooling"},
			priorities: []string{"Growth"},
		},
		{
			name:       "inline summary and no lists",
			in:         "Summary: Weak fit overall.",
			summary:    "Weak fit overall.",
			pain:       []string{},
			priorities: []string{},
		},
		{
			name:       "prose before headers",
			in:         "Priorities shift quickly here.\nPAIN POINTS:\n- a\n- b\n- c\n- d\n- e\n- f",
			summary:    "Priorities shift quickly here.",
			pain:       []string{"a", "b", "c", "d", "e"},
			priorities: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := Parse(tt.in)
			assert.Equal(t, tt.summary, ins.Summary)
			assert.Equal(t, tt.pain, ins.PainPoints)
			assert.Equal(t, tt.priorities, ins.Priorities)
		})
	}
}
