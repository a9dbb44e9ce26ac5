package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/prospect-cli/internal/model"
)

func fullProfile() model.CompanyProfile {
	var p model.CompanyProfile
	p.Name = "Acme"
	p.Domain = "acme.test"
	p.Industry = "Manufacturing"
	p.EmployeeCount = 120
	p.Location = "Austin, TX"
	p.Description = "Anvils"
	p.TechStack = []string{"AWS", "Salesforce", "react", "HubSpot", "Stripe", "segment"}
	p.Funding = model.Funding{TotalRaised: 5_000_000}
	p.EmailPattern = "{first}.{last}"
	return p
}

func TestScore_FullProfileIsPerfect(t *testing.T) {
	s := Score(fullProfile(), 4, DefaultConfig())
	assert.Equal(t, 100.0, s.Total)
	assert.Equal(t, model.ScoreBreakdown{Completeness: 30, SizeFit: 20, Funding: 20, TechStack: 15, Contacts: 15}, s.Breakdown)
}

func TestScore_EmptyProfile(t *testing.T) {
	s := Score(model.CompanyProfile{}, 0, DefaultConfig())
	assert.Equal(t, 0.0, s.Total)
}

func TestScore_CallerIdentityOnlyStaysLow(t *testing.T) {
	var p model.CompanyProfile
	p.Name = "Acme"
	p.Domain = "acme.test"
	s := Score(p, 0, DefaultConfig())
	assert.Equal(t, 10.0, s.Total)
	assert.LessOrEqual(t, s.Total, 30.0)
}

func TestScore_Deterministic(t *testing.T) {
	p := fullProfile()
	p.EmployeeCount = 777
	a := Score(p, 1, DefaultConfig())
	b := Score(p, 1, DefaultConfig())
	assert.Equal(t, a, b)
}

func TestScore_BoundedForAnyInput(t *testing.T) {
	cfg := DefaultConfig()
	for _, n := range []int{-5, 0, 1, 49, 50, 500, 501, 4999, 5000, 1_000_000} {
		p := fullProfile()
		p.EmployeeCount = n
		s := Score(p, n, cfg)
		assert.GreaterOrEqual(t, s.Total, 0.0)
		assert.LessOrEqual(t, s.Total, 100.0)
		assert.InDelta(t, s.Breakdown.Sum(), s.Total, 0.011)
	}
}

func TestScoreSizeFit(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name  string
		count int
		want  float64
	}{
		{"unknown", 0, 0},
		{"tiny", 5, 0.25},
		{"half of min", 25, 0.5},
		{"at min", 50, 1},
		{"inside", 120, 1},
		{"at max", 500, 1},
		{"just above", 950, 0.9},
		{"far above", 5000, 0.25},
		{"way beyond", 100_000, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, scoreSizeFit(tt.count, cfg), 0.001)
		})
	}
}

func TestScore_SizeFitPoints(t *testing.T) {
	cfg := DefaultConfig()
	p := model.CompanyProfile{}
	p.EmployeeCount = 5000
	assert.Equal(t, 5.0, Score(p, 0, cfg).Breakdown.SizeFit)
	p.EmployeeCount = 120
	assert.Equal(t, 20.0, Score(p, 0, cfg).Breakdown.SizeFit)
}

func TestScoreTechStack(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name  string
		stack []string
		want  float64
	}{
		{"none", nil, 0},
		{"unrecognized", []string{"cobol", "fortran"}, 0},
		{"two distinct", []string{"AWS", "aws", " Slack "}, 6},
		{"capped", []string{"aws", "azure", "docker", "slack", "stripe", "shopify", "react"}, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, scoreTechStack(tt.stack, cfg), 0.001)
		})
	}

	custom := cfg
	custom.RecognizedTech = []string{"cobol"}
	custom.TechPerItem = 0
	assert.InDelta(t, 3.0, scoreTechStack([]string{"COBOL"}, custom), 0.001)

	empty := cfg
	empty.RecognizedTech = nil
	assert.InDelta(t, 3.0, scoreTechStack([]string{"aws"}, empty), 0.001, "falls back to the default list")
}

func TestScoreContactsAndFunding(t *testing.T) {
	assert.Equal(t, 0.0, scoreContacts("", 0))
	assert.Equal(t, 0.5, scoreContacts("{first}", 0))
	assert.Equal(t, 0.5, scoreContacts("", 3))
	assert.Equal(t, 1.0, scoreContacts("{f}{last}", 1))

	assert.Equal(t, 0.0, scoreFunding(model.Funding{}))
	assert.Equal(t, 1.0, scoreFunding(model.Funding{AnnualRevenue: 1}))
	assert.Equal(t, 0.0, scoreFunding(model.Funding{TotalRaised: -3}))
}

func TestScore_RoundsToTwoDecimals(t *testing.T) {
	cfg := DefaultConfig()
	var p model.CompanyProfile
	p.Name = "Acme"
	s := Score(p, 0, cfg)
	assert.Equal(t, 5.0, s.Breakdown.Completeness)

	cfg.CompletenessWeight = 10
	s = Score(p, 0, cfg)
	assert.Equal(t, 1.67, s.Breakdown.Completeness)
	assert.Equal(t, 1.67, s.Total)
}
