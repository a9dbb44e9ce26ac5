package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/task"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Collect, merge and score one company",
	Long: `Runs the collection pipeline inline for one company and prints the
merged profile, its contacts and its lead score.

Examples:
  profile --domain acme.com
  profile --name "Acme Corp" --contacts --format yaml
  profile --domain acme.com --refresh`,
	RunE: runProfile,
}

func init() {
	f := profileCmd.Flags()
	f.String("name", "", "company name")
	f.String("domain", "", "company domain")
	f.Bool("contacts", true, "include deduplicated contacts")
	f.Bool("refresh", false, "bypass cached results and refetch every source")
	f.Bool("analyze", false, "also generate pain points and priorities with the LLM")
	f.String("format", "json", "output format: json or yaml")
	rootCmd.AddCommand(profileCmd)
}

// profileInputFromFlags reads the identity flags shared by profile and score.
func profileInputFromFlags(cmd *cobra.Command) (task.ProfileInput, error) {
	name, _ := cmd.Flags().GetString("name")
	domain, _ := cmd.Flags().GetString("domain")
	if name == "" && domain == "" {
		return task.ProfileInput{}, eris.New("one of --name or --domain is required")
	}
	refresh, _ := cmd.Flags().GetBool("refresh")
	in := task.ProfileInput{Name: name, Domain: domain, UseCache: !refresh}
	if cmd.Flags().Lookup("contacts") != nil {
		in.IncludeContacts, _ = cmd.Flags().GetBool("contacts")
	}
	return in, nil
}

func runProfile(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in, err := profileInputFromFlags(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	analyze, _ := cmd.Flags().GetBool("analyze")

	env, err := initPipeline(ctx, "profile")
	if err != nil {
		return err
	}
	defer env.Close()

	kind := task.KindBuildProfile
	if analyze {
		kind = task.KindAnalyzeCompany
	}
	out, err := env.Tasks.Run(ctx, kind, in)
	if err != nil {
		return eris.Wrap(err, "profile")
	}
	return writeOutput(cmd.OutOrStdout(), out, format)
}
