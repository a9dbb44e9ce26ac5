package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/task"
)

func TestScoreCandidates_SortsAndRecordsFailures(t *testing.T) {
	scores := map[string]float64{"Low": 12, "High": 88, "Mid": 50}
	r := task.NewRegistry()
	r.Register(task.KindScoreProfile, func(_ context.Context, raw json.RawMessage, _ task.ProgressFunc) (any, error) {
		in, err := task.Decode[task.ProfileInput](raw)
		if err != nil {
			return nil, err
		}
		s, ok := scores[in.Name]
		if !ok {
			return nil, errors.New("no data")
		}
		return &task.ScoreOutput{Name: in.Name, Score: model.LeadScore{Total: s}}, nil
	})

	results := []scoredCandidate{
		{Candidate: task.Candidate{Name: "Low"}},
		{Candidate: task.Candidate{Name: "Broken"}},
		{Candidate: task.Candidate{Name: "High"}},
		{Candidate: task.Candidate{Name: "Mid"}},
	}
	require.NoError(t, scoreCandidates(context.Background(), r, results, 2))

	names := make([]string, len(results))
	for i, c := range results {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"High", "Mid", "Low", "Broken"}, names)
	assert.Nil(t, results[3].Score)
	assert.Equal(t, "no data", results[3].Error)
	require.NotNil(t, results[0].Score)
	assert.InDelta(t, 88.0, *results[0].Score, 0.001)
}

func TestScoreCandidates_Cancelled(t *testing.T) {
	r := task.NewRegistry()
	r.Register(task.KindScoreProfile, func(ctx context.Context, _ json.RawMessage, _ task.ProgressFunc) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := scoreCandidates(ctx, r, []scoredCandidate{{Candidate: task.Candidate{Name: "Acme"}}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
