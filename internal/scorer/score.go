package scorer

import (
	"math"
	"strings"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
)

// completenessFields are the profile fields counted by the completeness factor.
var completenessFields = []model.Field{
	model.FieldName,
	model.FieldDomain,
	model.FieldIndustry,
	model.FieldEmployeeCount,
	model.FieldLocation,
	model.FieldDescription,
}

// Score computes the lead score for a profile. It is pure: the same inputs
// always produce the same score. contactsFound is the number of contacts
// or emails known for the company.
func Score(p model.CompanyProfile, contactsFound int, cfg config.ScoringConfig) model.LeadScore {
	b := model.ScoreBreakdown{
		Completeness: cfg.CompletenessWeight * scoreCompleteness(p.CompanyFacts),
		SizeFit:      cfg.SizeFitWeight * scoreSizeFit(p.EmployeeCount, cfg),
		Funding:      cfg.FundingWeight * scoreFunding(p.Funding),
		TechStack:    scoreTechStack(p.TechStack, cfg),
		Contacts:     cfg.ContactsWeight * scoreContacts(p.EmailPattern, contactsFound),
	}
	b.Completeness = round2(b.Completeness)
	b.SizeFit = round2(b.SizeFit)
	b.Funding = round2(b.Funding)
	b.TechStack = round2(b.TechStack)
	b.Contacts = round2(b.Contacts)

	total := math.Max(0, math.Min(100, b.Sum()))
	return model.LeadScore{Total: round2(total), Breakdown: b}
}

// scoreCompleteness returns the filled fraction of the key profile fields.
func scoreCompleteness(f model.CompanyFacts) float64 {
	filled := 0
	for _, field := range completenessFields {
		if f.Has(field) {
			filled++
		}
	}
	return float64(filled) / float64(len(completenessFields))
}

// scoreSizeFit returns 1 inside [SweetSpotMin, SweetSpotMax]. Below the band
// credit falls linearly toward zero; above it credit falls linearly to the
// floor at DecayMultiple times the max. Neither side drops under SizeFloor.
// Unknown head count scores 0.
func scoreSizeFit(count int, cfg config.ScoringConfig) float64 {
	if count <= 0 {
		return 0
	}
	lo, hi := cfg.SweetSpotMin, cfg.SweetSpotMax
	if count >= lo && (hi <= 0 || count <= hi) {
		return 1
	}
	if count < lo {
		return math.Max(cfg.SizeFloor, float64(count)/float64(lo))
	}
	decay := cfg.DecayMultiple
	if decay <= 1 {
		decay = 10
	}
	over := float64(count-hi) / (float64(hi) * (decay - 1))
	return math.Max(cfg.SizeFloor, 1-over)
}

// scoreFunding returns 1 when any funding or revenue signal is present.
func scoreFunding(f model.Funding) float64 {
	if f.IsZero() {
		return 0
	}
	return 1
}

// scoreTechStack awards points per distinct recognized technology, capped
// at the factor weight.
func scoreTechStack(stack []string, cfg config.ScoringConfig) float64 {
	if len(stack) == 0 || cfg.TechStackWeight <= 0 {
		return 0
	}
	known := cfg.RecognizedTech
	if len(known) == 0 {
		known = DefaultRecognizedTech
	}
	recognized := make(map[string]bool, len(known))
	for _, k := range known {
		recognized[strings.ToLower(strings.TrimSpace(k))] = true
	}

	matched := make(map[string]bool)
	for _, t := range stack {
		t = strings.ToLower(strings.TrimSpace(t))
		if recognized[t] {
			matched[t] = true
		}
	}

	perItem := float64(cfg.TechPerItem)
	if perItem <= 0 {
		perItem = cfg.TechStackWeight / 5
	}
	return math.Min(cfg.TechStackWeight, float64(len(matched))*perItem)
}

// scoreContacts gives half credit for a known email pattern and half for at
// least one contact.
func scoreContacts(emailPattern string, contactsFound int) float64 {
	s := 0.0
	if strings.TrimSpace(emailPattern) != "" {
		s += 0.5
	}
	if contactsFound >= 1 {
		s += 0.5
	}
	return s
}
