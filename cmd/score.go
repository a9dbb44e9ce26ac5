package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/task"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score lead fit for one company",
	Long: `Collects a company profile without contacts and prints its lead score
with the per-factor breakdown (completeness, size fit, funding, tech stack,
contacts). Weights come from the scoring section of the config.

Examples:
  score --domain acme.com
  score --name "Acme Corp" --format json`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("name", "", "company name")
	f.String("domain", "", "company domain")
	f.Bool("refresh", false, "bypass cached results and refetch every source")
	f.String("format", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in, err := profileInputFromFlags(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")

	env, err := initPipeline(ctx, "profile")
	if err != nil {
		return err
	}
	defer env.Close()

	out, err := env.Tasks.Run(ctx, task.KindScoreProfile, in)
	if err != nil {
		return eris.Wrap(err, "score")
	}
	res, ok := out.(*task.ScoreOutput)
	if !ok {
		return eris.Errorf("score: unexpected result %T", out)
	}
	if format == "table" {
		printScore(cmd.OutOrStdout(), res)
		return nil
	}
	return writeOutput(cmd.OutOrStdout(), res, format)
}

func printScore(w io.Writer, s *task.ScoreOutput) {
	b := s.Score.Breakdown
	fmt.Fprintf(w, "Company:       %s\n", s.Name)
	fmt.Fprintf(w, "Domain:        %s\n", s.Domain)
	fmt.Fprintf(w, "Score:         %.2f\n", s.Score.Total)
	fmt.Fprintf(w, "  Completeness %6.2f\n", b.Completeness)
	fmt.Fprintf(w, "  Size fit     %6.2f\n", b.SizeFit)
	fmt.Fprintf(w, "  Funding      %6.2f\n", b.Funding)
	fmt.Fprintf(w, "  Tech stack   %6.2f\n", b.TechStack)
	fmt.Fprintf(w, "  Contacts     %6.2f\n", b.Contacts)
}
