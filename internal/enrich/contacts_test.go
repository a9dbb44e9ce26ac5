package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/cache"
	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
)

func TestContacts_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/domain-search", r.URL.Path)
		assert.Equal(t, "acme.test", r.URL.Query().Get("domain"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{
			"data": {
				"domain": "acme.test",
				"organization": "Acme",
				"pattern": "{first}.{last}",
				"emails": [
					{"value": "jane.doe@acme.test", "confidence": 94, "first_name": "Jane", "last_name": "Doe", "position": "CEO", "seniority": "executive"},
					{"value": "", "first_name": "", "last_name": ""},
					{"value": "ops@acme.test", "confidence": 0}
				]
			},
			"meta": {"results": 12}
		}`))
	}))
	defer srv.Close()

	a := NewContacts(config.HunterConfig{Key: "k", BaseURL: srv.URL, SearchLimit: 25}, testDeps(cache.NewMemory(time.Hour)))
	require.True(t, a.Available())
	require.NotNil(t, a.Client())

	rec, err := a.Fetch(context.Background(), model.NewIdentity("Acme", "acme.test"))
	require.NoError(t, err)

	assert.Equal(t, model.SourceContacts, rec.Source)
	assert.Equal(t, "{first}.{last}", rec.EmailPattern)
	assert.Equal(t, 12, rec.ContactsFound)
	require.Len(t, rec.Contacts, 2)

	jane := rec.Contacts[0]
	assert.Equal(t, "Jane", jane.FirstName)
	assert.Equal(t, "CEO", jane.Title)
	assert.Equal(t, model.SourceContacts, jane.Source)
	require.NotNil(t, jane.Confidence)
	assert.Equal(t, 94, *jane.Confidence)
	assert.Nil(t, rec.Contacts[1].Confidence)
}

func TestContacts_Unavailable(t *testing.T) {
	a := NewContacts(config.HunterConfig{}, testDeps(nil))
	assert.False(t, a.Available())
	assert.Nil(t, a.Client())
	_, err := a.Fetch(context.Background(), model.NewIdentity("", "acme.test"))
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestContacts_RateLimited(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := NewContacts(config.HunterConfig{Key: "k", BaseURL: srv.URL}, testDeps(cache.NewMemory(time.Hour)))
	_, err := a.Fetch(context.Background(), model.NewIdentity("", "acme.test"))
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 1, hits)
}

func TestContacts_NameOnlySkipsCall(t *testing.T) {
	a := NewContacts(config.HunterConfig{Key: "k", BaseURL: "http://127.0.0.1:1"}, testDeps(nil))
	rec, err := a.Fetch(context.Background(), model.NewIdentity("Acme", ""))
	require.NoError(t, err)
	assert.Empty(t, rec.Contacts)
}
