package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/finprofile/internal/model"
	"github.com/sells-group/finprofile/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent import runs",
	Long:  "Displays the import run audit log, newest first.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, store.RunFilter{Status: model.RunStatus(status), Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs")
		}

		if len(runs) == 0 {
			zap.L().Info("no import runs found, run 'finprofile import' first")
			return nil
		}

		formatRuns(os.Stdout, runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().String("status", "", "filter by status (running, completed, failed)")
	runsCmd.Flags().Int("limit", 20, "max runs to show")
	rootCmd.AddCommand(runsCmd)
}

// formatRuns writes a tabular representation of import runs to out.
func formatRuns(out io.Writer, runs []model.ImportRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tDURATION\tCOMPANIES\tPROCESSED\tFACTS\tPROFILES\tSKIPPED\tFAILED\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t-------\t--------\t---------\t---------\t-----\t--------\t-------\t------\t-----")

	for _, r := range runs {
		dur := "-"
		if r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}

		errMsg := ""
		if r.Error != nil {
			errMsg = truncate(*r.Error, 60)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			shortID(r.ID),
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			r.CompaniesInDirectory,
			r.CompaniesProcessed,
			r.FactsInserted,
			r.ProfilesWritten,
			r.EntriesSkipped,
			r.EntriesFailed,
			errMsg,
		)
	}
	_ = w.Flush()
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
