package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/prospect-cli/internal/model"
)

func TestGenerateEmail(t *testing.T) {
	tests := []struct {
		name                         string
		pattern, first, last, domain string
		want                         string
	}{
		{"first.last", "{first}.{last}", "Jane", "Doe", "acme.test", "jane.doe@acme.test"},
		{"initial+last", "{f}{last}", "Jane", "Doe", "acme.test", "jdoe@acme.test"},
		{"first+initial", "{first}{l}", "Jane", "Doe", "acme.test", "janed@acme.test"},
		{"first only", "{first}", "Jane", "", "acme.test", "jane@acme.test"},
		{"accents stripped", "{first}.{last}", "José", "Núñez", "acme.test", "jose.nunez@acme.test"},
		{"multi-word last", "{first}_{last}", "Ana", "de la Cruz", "acme.test", "ana_delacruz@acme.test"},
		{"missing last", "{first}.{last}", "Jane", "", "acme.test", ""},
		{"empty pattern", "", "Jane", "Doe", "acme.test", ""},
		{"empty domain", "{first}", "Jane", "Doe", "", ""},
		{"unknown token", "{first}.{middle}", "Jane", "Doe", "acme.test", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateEmail(tt.pattern, tt.first, tt.last, tt.domain))
		})
	}
}

func TestFillFromPattern(t *testing.T) {
	conf := 80
	raw := []model.RawContact{
		{FullName: "Person 1", Title: "CEO", Source: model.SourceDirectory},
		{FirstName: "Jane", LastName: "Doe", Email: "jd@acme.test", Confidence: &conf},
		{Title: "Anonymous"},
	}

	got := FillFromPattern(raw, "{first}.{last}", "acme.test")
	assert.Equal(t, "person.1@acme.test", got[0].Email)
	assert.Nil(t, got[0].Confidence)
	assert.Equal(t, "jd@acme.test", got[1].Email)
	assert.Equal(t, &conf, got[1].Confidence)
	assert.Empty(t, got[2].Email)
	assert.Empty(t, raw[0].Email, "input must not be modified")

	same := FillFromPattern(raw, "", "acme.test")
	assert.Empty(t, same[0].Email)
}
