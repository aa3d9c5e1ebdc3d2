package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyward-data/flightwx-cli/internal/plan"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run collection stages",
}

var (
	collectPlanFile string
	collectLoop     bool
	collectOnce     bool
)

var collectRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full collection pipeline",
	Long:  "Collects flight snapshots and weather bulletins for the planned airports, associates them, and propagates the session into the warehouse. With --loop the pipeline re-runs on the configured schedule until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pl, err := loadPlan()
		if err != nil {
			return err
		}

		env, err := initCollectEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close(cmd.Context())

		if collectLoop {
			zap.L().Info("collect: loop mode",
				zap.Int("minute", cfg.Schedule.Minute),
				zap.Int("interval_minutes", cfg.Schedule.IntervalMinutes),
			)
			return env.Pipeline.RunLoop(ctx, pl, cfg.Schedule)
		}

		session, summary, err := env.Pipeline.Run(ctx, pl)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", session.ID, summary)
		return nil
	},
}

// loadPlan resolves the collection plan from --plan or the configured
// airport list.
func loadPlan() (*plan.Plan, error) {
	if collectPlanFile != "" {
		return plan.Load(collectPlanFile)
	}
	return plan.FromConfig(cfg.Collect), nil
}

func init() {
	collectRunCmd.Flags().StringVar(&collectPlanFile, "plan", "", "collection plan YAML (defaults to configured airports)")
	collectRunCmd.Flags().BoolVar(&collectLoop, "loop", false, "run on the configured schedule until interrupted")
	collectRunCmd.Flags().BoolVar(&collectOnce, "once", false, "run a single session (the default)")
	collectRunCmd.MarkFlagsMutuallyExclusive("loop", "once")

	collectCmd.AddCommand(collectRunCmd)
	rootCmd.AddCommand(collectCmd)
}
