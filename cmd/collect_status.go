package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/skyward-data/flightwx-cli/internal/model"
	"github.com/skyward-data/flightwx-cli/internal/store"
)

var (
	statusSession string
	statusFilter  string
	statusLimit   int
)

var collectStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection session history",
	Long:  "Lists recent collection sessions with their outcome. With --session, shows the per-stage breakdown of one session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sessions, err := initSessions(ctx)
		if err != nil {
			return err
		}
		defer sessions.Close() //nolint:errcheck

		if statusSession != "" {
			sess, err := sessions.GetSession(ctx, statusSession)
			if err != nil {
				return err
			}
			printSession(sess)
			return nil
		}

		list, err := sessions.ListSessions(ctx, store.SessionFilter{
			Status: model.SessionStatus(statusFilter),
			Limit:  statusLimit,
		})
		if err != nil {
			return err
		}
		printSessionList(list)
		return nil
	},
}

func printSessionList(list []store.Session) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTATUS\tSTARTED\tFINISHED\tSUMMARY")
	for _, s := range list {
		finished := "-"
		if s.FinishedAt != nil {
			finished = s.FinishedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			s.Status,
			s.StartedAt.UTC().Format(time.RFC3339),
			finished,
			s.Summary,
		)
	}
	w.Flush() //nolint:errcheck
}

func printSession(s *store.Session) {
	fmt.Printf("session %s\nstatus: %s\nstarted: %s\n",
		s.ID, s.Status, s.StartedAt.UTC().Format(time.RFC3339))
	if s.FinishedAt != nil {
		fmt.Printf("finished: %s\n", s.FinishedAt.UTC().Format(time.RFC3339))
	}
	if s.Summary != "" {
		fmt.Printf("summary: %s\n", s.Summary)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nSTAGE\tSTATUS\tCOLLECTED\tINSERTED\tUPDATED\tASSOCIATED\tSKIPPED\tERRORS")
	for _, st := range s.Stages {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			st.Name, st.Status,
			st.Collected, st.Inserted, st.Updated, st.Associated, st.Skipped,
			strings.Join(st.Errors, "; "),
		)
	}
	w.Flush() //nolint:errcheck
}

func init() {
	collectStatusCmd.Flags().StringVar(&statusSession, "session", "", "show one session in detail")
	collectStatusCmd.Flags().StringVar(&statusFilter, "status", "", "filter by status (running, success, partial, failed)")
	collectStatusCmd.Flags().IntVar(&statusLimit, "limit", 20, "maximum sessions to list")

	collectCmd.AddCommand(collectStatusCmd)
}
