// Package scorer computes a bounded lead-fit score for a merged company profile.
package scorer

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prospect-cli/internal/config"
)

// DefaultRecognizedTech is the technology list used when the config has none.
var DefaultRecognizedTech = []string{
	"aws", "google cloud", "azure", "kubernetes", "docker",
	"salesforce", "hubspot", "marketo", "segment", "snowflake",
	"stripe", "shopify", "zendesk", "intercom", "slack",
	"datadog", "github", "react", "postgresql", "mongodb",
}

// DefaultConfig returns a config.ScoringConfig with the standard weights.
// Weights sum to 100.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		// Weights (sum = 100).
		CompletenessWeight: 30,
		SizeFitWeight:      20,
		FundingWeight:      20,
		TechStackWeight:    15,
		ContactsWeight:     15,

		// Head-count sweet spot.
		SweetSpotMin:  50,
		SweetSpotMax:  500,
		SizeFloor:     0.25,
		DecayMultiple: 10,

		TechPerItem:    3,
		RecognizedTech: append([]string(nil), DefaultRecognizedTech...),
	}
}

// WeightSum returns the sum of all factor weights.
func WeightSum(c config.ScoringConfig) float64 {
	return c.CompletenessWeight + c.SizeFitWeight + c.FundingWeight +
		c.TechStackWeight + c.ContactsWeight
}

// Validate checks that a ScoringConfig is internally consistent and reports
// every violation at once.
func Validate(c config.ScoringConfig) error {
	var errs []string

	weights := []struct {
		name string
		w    float64
	}{
		{"completeness_weight", c.CompletenessWeight},
		{"size_fit_weight", c.SizeFitWeight},
		{"funding_weight", c.FundingWeight},
		{"tech_stack_weight", c.TechStackWeight},
		{"contacts_weight", c.ContactsWeight},
	}
	for _, w := range weights {
		if w.w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", w.name))
		}
	}

	sum := WeightSum(c)
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}
	// Allow tolerance for floating-point.
	if sum > 100+1e-9 {
		errs = append(errs, fmt.Sprintf("weights must sum to at most 100, got %.1f", sum))
	}

	if c.SweetSpotMin < 0 {
		errs = append(errs, "sweet_spot_min must be >= 0")
	}
	if c.SweetSpotMax > 0 && c.SweetSpotMax < c.SweetSpotMin {
		errs = append(errs, "sweet_spot_max must be >= sweet_spot_min")
	}
	if c.SizeFloor < 0 || c.SizeFloor > 1 {
		errs = append(errs, "size_floor must be between 0 and 1")
	}
	if c.DecayMultiple != 0 && c.DecayMultiple <= 1 {
		errs = append(errs, "decay_multiple must be > 1")
	}
	if c.TechPerItem < 0 {
		errs = append(errs, "tech_per_item must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadOverrides reads a YAML file of scoring keys and applies them on top of
// base. Keys absent from the file keep base's values.
func LoadOverrides(path string, base config.ScoringConfig) (config.ScoringConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, eris.Wrapf(err, "scorer: read overrides %s", path)
	}
	out := base
	out.RecognizedTech = append([]string(nil), base.RecognizedTech...)
	if err := yaml.Unmarshal(data, &out); err != nil {
		return base, eris.Wrapf(err, "scorer: parse overrides %s", path)
	}
	if err := Validate(out); err != nil {
		return base, err
	}
	return out, nil
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
