package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reconcileSession string

var collectReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Update warehouse flights with final past-collection data",
	Long:  "Applies the final departure time, arrival time, and status from a session's past-window documents to flights already in the warehouse. Flights never seen by a realtime pass are left alone.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCollectEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		res, err := env.Warehouse.Reconcile(ctx, env.Docs, reconcileSession)
		if err != nil {
			return err
		}
		fmt.Printf("reconciled %d flights (%d skipped)\n", res.Updated, res.Skipped)
		return nil
	},
}

func init() {
	collectReconcileCmd.Flags().StringVar(&reconcileSession, "session", "", "collection session id (required)")
	_ = collectReconcileCmd.MarkFlagRequired("session")

	collectCmd.AddCommand(collectReconcileCmd)
}
