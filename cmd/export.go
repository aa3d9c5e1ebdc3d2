package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/skyward-data/flightwx-cli/internal/export"
)

var (
	exportOut     string
	exportSession string
	exportFormat  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export warehouse data to a workbook or CSV",
	Long:  "Exports flights with their associated METAR and TAF rows from the warehouse. The xlsx format writes one sheet per dataset; csv writes flights only. With --session, only that session's rows are exported.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if exportFormat != "xlsx" && exportFormat != "csv" {
			return eris.Errorf("export: unknown format %q", exportFormat)
		}

		pool, wh, err := initWarehouse(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		flights, err := wh.ExportFlights(ctx, exportSession)
		if err != nil {
			return err
		}

		if exportFormat == "csv" {
			if err := export.WriteFlightsCSV(flights, exportOut); err != nil {
				return err
			}
			fmt.Printf("wrote %d flights to %s\n", len(flights), exportOut)
			return nil
		}

		metars, err := wh.ExportMetars(ctx, exportSession)
		if err != nil {
			return err
		}
		tafs, err := wh.ExportTafs(ctx, exportSession)
		if err != nil {
			return err
		}

		ds := export.Dataset{Flights: flights, Metars: metars, Tafs: tafs}
		if err := export.WriteWorkbook(ds, exportOut); err != nil {
			return err
		}
		fmt.Printf("wrote %d flights, %d metars, %d tafs to %s\n",
			len(flights), len(metars), len(tafs), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "flightwx_export.xlsx", "output file path")
	exportCmd.Flags().StringVar(&exportSession, "session", "", "restrict to one collection session")
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "output format: xlsx or csv")

	rootCmd.AddCommand(exportCmd)
}
