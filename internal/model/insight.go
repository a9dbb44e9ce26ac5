package model

import "time"

// Insight is the LLM-generated analysis of a company profile.
type Insight struct {
	Summary     string    `json:"summary"`
	PainPoints  []string  `json:"pain_points"`
	Priorities  []string  `json:"priorities"`
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// StoredProfile is a persisted profile together with its score and contacts.
type StoredProfile struct {
	ID        string             `json:"id"`
	Profile   CompanyProfile     `json:"profile"`
	Score     LeadScore          `json:"score"`
	Contacts  []CanonicalContact `json:"contacts"`
	CreatedAt time.Time          `json:"created_at"`
}
