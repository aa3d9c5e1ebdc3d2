package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skyward-data/flightwx-cli/internal/warehouse"
)

var (
	propagateSession      string
	propagateBackfillOnly bool
)

var collectPropagateCmd = &cobra.Command{
	Use:   "propagate",
	Short: "Copy a session's associated documents into the warehouse",
	Long:  "Reads the associated flight, METAR, and TAF documents of a collection session from the document store and inserts them into the warehouse. With --backfill-only, only the weather foreign keys of already-propagated flights are filled in.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCollectEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		if err := warehouse.Migrate(ctx, env.Pool); err != nil {
			return err
		}

		if propagateBackfillOnly {
			metarFKs, tafFKs, err := env.Warehouse.BackfillForeignKeys(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("backfilled %d metar and %d taf references\n", metarFKs, tafFKs)
			return nil
		}

		res, err := env.Warehouse.Propagate(ctx, env.Docs, propagateSession)
		if err != nil {
			return err
		}
		fmt.Printf("propagated %d flights, %d metars, %d tafs (%d skipped)\n",
			res.Flights, res.Metars, res.Tafs, res.Skipped)
		return nil
	},
}

func init() {
	collectPropagateCmd.Flags().StringVar(&propagateSession, "session", "", "collection session id (required unless --backfill-only)")
	collectPropagateCmd.Flags().BoolVar(&propagateBackfillOnly, "backfill-only", false, "only backfill weather foreign keys")

	collectCmd.AddCommand(collectPropagateCmd)
}
