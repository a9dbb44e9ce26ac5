package model

// ScoreBreakdown records the points each factor contributed to a LeadScore.
type ScoreBreakdown struct {
	Completeness float64 `json:"completeness"`
	SizeFit      float64 `json:"size_fit"`
	Funding      float64 `json:"funding"`
	TechStack    float64 `json:"tech_stack"`
	Contacts     float64 `json:"contacts"`
}

// Sum adds the factor scores.
func (b ScoreBreakdown) Sum() float64 {
	return b.Completeness + b.SizeFit + b.Funding + b.TechStack + b.Contacts
}

// LeadScore is a bounded fit score in [0,100] with its factor breakdown.
type LeadScore struct {
	Total     float64        `json:"total"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}
