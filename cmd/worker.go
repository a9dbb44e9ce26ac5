package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/task"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a Temporal worker that executes queued tasks",
	Long: `Polls the configured Temporal task queue and executes task workflows
with the same handlers the HTTP API runs inline. Requires
tasks.backend=temporal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cmd.Context(), "worker")
		if err != nil {
			return err
		}
		defer env.Close()

		c, err := task.Dial(cfg.Temporal)
		if err != nil {
			return err
		}
		defer c.Close()

		w := task.NewWorker(c, cfg.Temporal.TaskQueue, env.Tasks)
		zap.L().Info("starting temporal worker",
			zap.String("host_port", cfg.Temporal.HostPort),
			zap.String("namespace", cfg.Temporal.Namespace),
			zap.String("task_queue", cfg.Temporal.TaskQueue),
			zap.Strings("kinds", env.Tasks.Kinds()),
		)
		if err := w.Run(worker.InterruptCh()); err != nil {
			return eris.Wrap(err, "worker: run")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
