package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skyward-data/flightwx-cli/internal/docstore"
	"github.com/skyward-data/flightwx-cli/internal/warehouse"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and indexes",
	Long:  "Applies warehouse migrations, creates the session-store schema, and ensures document-store indexes. Safe to re-run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, _, err := initWarehouse(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := warehouse.Migrate(ctx, pool); err != nil {
			return err
		}
		fmt.Println("warehouse migrated")

		sessions, err := initSessions(ctx)
		if err != nil {
			return err
		}
		defer sessions.Close() //nolint:errcheck
		fmt.Println("session store migrated")

		docs, err := docstore.Connect(ctx, docstore.Options{
			URI:       cfg.Docstore.URI,
			Database:  cfg.Docstore.Database,
			BatchSize: cfg.Docstore.BatchSize,
			Timeout:   time.Duration(cfg.Docstore.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return err
		}
		defer docs.Close(ctx) //nolint:errcheck

		if err := docs.EnsureIndexes(ctx); err != nil {
			return err
		}
		fmt.Println("docstore indexes ensured")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
