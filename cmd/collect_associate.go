package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/skyward-data/flightwx-cli/internal/correlate"
)

var (
	associateSession string
	associateKind    string
)

var collectAssociateCmd = &cobra.Command{
	Use:   "associate",
	Short: "Re-run weather association for a session",
	Long:  "Associates each flight of a collection session with its closest METAR and TAF bulletins. Useful to re-link a session after a partial run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if associateKind != "metar" && associateKind != "taf" && associateKind != "both" {
			return eris.Errorf("collect: unknown association kind %q", associateKind)
		}

		env, err := initCollectEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		now := time.Now().UTC()

		if associateKind == "metar" || associateKind == "both" {
			res, err := env.Metar.Associate(ctx, associateSession, now)
			if err != nil {
				return err
			}
			printAssociation("metar", res)
		}
		if associateKind == "taf" || associateKind == "both" {
			res, err := env.Taf.Associate(ctx, associateSession, now)
			if err != nil {
				return err
			}
			printAssociation("taf", res)
		}
		return nil
	},
}

func printAssociation(kind string, res correlate.Result) {
	fmt.Printf("%s: %d associated, %d skipped, %d failed\n",
		kind, res.Associated, res.Skipped, res.Failed)
}

func init() {
	collectAssociateCmd.Flags().StringVar(&associateSession, "session", "", "collection session id (required)")
	collectAssociateCmd.Flags().StringVar(&associateKind, "kind", "both", "bulletin kind: metar, taf, or both")
	_ = collectAssociateCmd.MarkFlagRequired("session")

	collectCmd.AddCommand(collectAssociateCmd)
}
