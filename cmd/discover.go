package main

import (
	"context"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/task"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find companies matching a query and optionally score them",
	Long: `Searches the discovery provider for companies matching a free-text
query. With --score every candidate is profiled concurrently and the list is
sorted by lead score.

Examples:
  discover --query "logistics software austin"
  discover --query "dental labs" --limit 5 --score --concurrency 3`,
	RunE: runDiscover,
}

func init() {
	f := discoverCmd.Flags()
	f.String("query", "", "free-text search query (required)")
	f.Int("limit", 0, "maximum companies to return (0 = config default)")
	f.Bool("score", false, "collect and score every candidate")
	f.Int("concurrency", 4, "candidates scored in parallel")
	f.String("format", "json", "output format: json or yaml")
	_ = discoverCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(discoverCmd)
}

// scoredCandidate is a discovered company with its lead score, when scored.
type scoredCandidate struct {
	task.Candidate
	Score *float64 `json:"score,omitempty"`
	Error string   `json:"error,omitempty"`
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query, _ := cmd.Flags().GetString("query")
	limit, _ := cmd.Flags().GetInt("limit")
	score, _ := cmd.Flags().GetBool("score")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	format, _ := cmd.Flags().GetString("format")

	env, err := initPipeline(ctx, "profile")
	if err != nil {
		return err
	}
	defer env.Close()

	out, err := env.Tasks.Run(ctx, task.KindDiscoverCompanies, task.DiscoverInput{Query: query, Limit: limit})
	if err != nil {
		return eris.Wrap(err, "discover")
	}
	found, ok := out.(*task.DiscoverOutput)
	if !ok {
		return eris.Errorf("discover: unexpected result %T", out)
	}

	results := make([]scoredCandidate, len(found.Companies))
	for i, c := range found.Companies {
		results[i] = scoredCandidate{Candidate: c}
	}
	if score {
		if err := scoreCandidates(ctx, env.Tasks, results, concurrency); err != nil {
			return err
		}
	}
	return writeOutput(cmd.OutOrStdout(), results, format)
}

// scoreCandidates fills in a score for every candidate, at most concurrency
// at a time, then sorts by score descending. Per-candidate failures are
// recorded on the candidate; only cancellation aborts the batch.
func scoreCandidates(ctx context.Context, tasks *task.Registry, results []scoredCandidate, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range results {
		g.Go(func() error {
			c := &results[i]
			out, err := tasks.Run(gctx, task.KindScoreProfile, task.ProfileInput{Name: c.Name, Domain: c.Domain, UseCache: true})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				zap.L().Warn("discover: scoring failed", zap.String("company", c.Name), zap.Error(err))
				c.Error = err.Error()
				return nil
			}
			if s, ok := out.(*task.ScoreOutput); ok {
				total := s.Score.Total
				c.Score = &total
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "discover: score candidates")
	}

	sort.SliceStable(results, func(i, j int) bool {
		return scoreOf(results[i]) > scoreOf(results[j])
	})
	return nil
}

func scoreOf(c scoredCandidate) float64 {
	if c.Score == nil {
		return -1
	}
	return *c.Score
}
