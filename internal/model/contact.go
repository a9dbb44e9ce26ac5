package model

import "strings"

// RawContact is one contact record as reported by a single source.
type RawContact struct {
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	FullName   string `json:"full_name,omitempty"`
	Title      string `json:"title,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	LinkedIn   string `json:"linkedin,omitempty"`
	Twitter    string `json:"twitter,omitempty"`
	Department string `json:"department,omitempty"`
	Seniority  string `json:"seniority,omitempty"`
	Confidence *int   `json:"confidence,omitempty"`
	Source     Source `json:"source"`
}

// DisplayName returns the full name, assembling it from parts when needed.
func (c RawContact) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// CanonicalContact is a deduplicated contact identity merged from one or
// more raw records.
type CanonicalContact struct {
	Key             string   `json:"key"`
	FirstName       string   `json:"first_name,omitempty"`
	LastName        string   `json:"last_name,omitempty"`
	FullName        string   `json:"full_name,omitempty"`
	Title           string   `json:"title,omitempty"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	LinkedIn        string   `json:"linkedin,omitempty"`
	Twitter         string   `json:"twitter,omitempty"`
	Department      string   `json:"department,omitempty"`
	Seniority       string   `json:"seniority,omitempty"`
	Confidence      *int     `json:"confidence,omitempty"`
	IsDecisionMaker bool     `json:"is_decision_maker"`
	Sources         []Source `json:"sources"`
}
