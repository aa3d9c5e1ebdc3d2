package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the raw-snapshot FTP archive",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived snapshot files",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Archive.Enabled {
			return eris.New("archive: not enabled in configuration")
		}

		ftp := archiveFTP(cfg.Archive)
		entries, err := ftp.List(cmd.Context(), cfg.Archive.URL, cfg.Archive.Pattern)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s\t%d\t%s\n", e.Name, e.Size, e.Modified.UTC().Format(time.RFC3339))
		}
		return nil
	},
}

var archiveCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete archived snapshots past the retention age",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Archive.Enabled {
			return eris.New("archive: not enabled in configuration")
		}

		maxAge := time.Duration(cfg.Archive.MaxAgeHours) * time.Hour
		ftp := archiveFTP(cfg.Archive)
		deleted, err := ftp.Cleanup(cmd.Context(), cfg.Archive.URL, cfg.Archive.Pattern, maxAge, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d archived snapshots\n", deleted)
		return nil
	},
}

func init() {
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveCleanupCmd)
	rootCmd.AddCommand(archiveCmd)
}
