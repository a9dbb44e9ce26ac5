package contact

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/hunter"
	"github.com/sells-group/prospect-cli/pkg/hunter/mocks"
)

func TestEnricher_FindMissing(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("FindEmail", mock.Anything, "acme.test", "Jane", "Doe").
		Return(&hunter.EmailFinderResult{Email: "jane.doe@acme.test", Score: 91}, nil).Once()
	client.On("VerifyEmail", mock.Anything, "jane.doe@acme.test").
		Return(&hunter.VerificationResult{Status: "valid", Score: 95}, nil).Once()
	client.On("FindEmail", mock.Anything, "acme.test", "Bob", "Ray").
		Return(&hunter.EmailFinderResult{Email: "bob@acme.test", Score: 20}, nil).Once()
	client.On("FindEmail", mock.Anything, "acme.test", "Al", "Lee").
		Return(nil, errors.New("boom")).Once()

	in := []model.RawContact{
		{FirstName: "Jane", LastName: "Doe", Title: "CEO", Source: model.SourceDirectory},
		{FullName: "Bob Ray", Title: "VP Sales", Source: model.SourceDirectory},
		{FirstName: "Al", LastName: "Lee", Title: "Founder"},
		{FirstName: "Sam", Title: "Director of Ops"},
		{FirstName: "Eve", LastName: "Ng", Title: "Engineer"},
		{Email: "x@acme.test", Title: "CTO"},
	}

	got := NewEnricher(client, 50).FindMissing(context.Background(), in, "acme.test")
	require.Len(t, got, len(in))

	assert.Equal(t, "jane.doe@acme.test", got[0].Email)
	require.NotNil(t, got[0].Confidence)
	assert.Equal(t, 91, *got[0].Confidence)
	assert.Equal(t, model.SourceDirectory, got[0].Source, "source is kept")
	assert.Empty(t, in[0].Email, "input not modified")

	assert.Empty(t, got[1].Email, "low finder score is discarded")
	assert.Empty(t, got[2].Email)
	assert.Empty(t, got[3].Email, "no last name, no lookup")
	assert.Empty(t, got[4].Email, "non decision makers are skipped")
	assert.Equal(t, "x@acme.test", got[5].Email)
}

func TestEnricher_LooksUpEachPersonOnce(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("FindEmail", mock.Anything, "acme.test", "Jane", "Doe").
		Return(&hunter.EmailFinderResult{Email: "jane@acme.test", Score: 80}, nil).Once()
	client.On("VerifyEmail", mock.Anything, "jane@acme.test").
		Return(&hunter.VerificationResult{Result: "deliverable"}, nil).Once()

	in := []model.RawContact{
		{FirstName: "Jane", LastName: "Doe", Title: "CEO", Source: model.SourceDirectory},
		{FullName: "Jane Doe", Title: "Chief Executive Officer", Source: model.SourceFirmographic},
	}
	got := NewEnricher(client, 0).FindMissing(context.Background(), in, "acme.test")
	assert.Equal(t, "jane@acme.test", got[0].Email)
	assert.Equal(t, "jane@acme.test", got[1].Email)
}

func TestEnricher_FoundEmailMergesWithExistingContact(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("FindEmail", mock.Anything, "acme.test", "Jane", "Doe").
		Return(&hunter.EmailFinderResult{Email: "jane@acme.test", Score: 90}, nil).Once()
	client.On("VerifyEmail", mock.Anything, "jane@acme.test").
		Return(&hunter.VerificationResult{Status: "valid"}, nil).Once()

	raw := []model.RawContact{
		{Email: "jane@acme.test", Source: model.SourceContacts},
		{FullName: "Jane Doe", Title: "CEO", Source: model.SourceDirectory},
	}
	precedence := []model.Source{model.SourceContacts, model.SourceDirectory}
	merged := Deduplicate(NewEnricher(client, 0).FindMissing(context.Background(), raw, "acme.test"), precedence)

	require.Len(t, merged, 1)
	assert.Equal(t, "email:jane@acme.test", merged[0].Key)
	assert.Equal(t, "CEO", merged[0].Title)
	assert.Equal(t, []model.Source{model.SourceContacts, model.SourceDirectory}, merged[0].Sources)
	assert.True(t, merged[0].IsDecisionMaker)
}

func TestEnricher_UndeliverableSkipped(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("FindEmail", mock.Anything, "acme.test", "Jane", "Doe").
		Return(&hunter.EmailFinderResult{Email: "jane@acme.test", Score: 99}, nil).Once()
	client.On("VerifyEmail", mock.Anything, "jane@acme.test").
		Return(&hunter.VerificationResult{Status: "invalid", Result: "undeliverable"}, nil).Once()

	in := []model.RawContact{{FirstName: "Jane", LastName: "Doe", Title: "CEO"}}
	got := NewEnricher(client, 0).FindMissing(context.Background(), in, "acme.test")
	assert.Empty(t, got[0].Email)
}

func TestEnricher_NilClientOrDomain(t *testing.T) {
	in := []model.RawContact{{FirstName: "Jane", LastName: "Doe", Title: "CEO"}}
	assert.Equal(t, in, NewEnricher(nil, 0).FindMissing(context.Background(), in, "acme.test"))

	client := mocks.NewMockClient(t)
	assert.Equal(t, in, NewEnricher(client, 0).FindMissing(context.Background(), in, ""))
}
