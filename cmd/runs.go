package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/andes-group/invest-cli/internal/model"
	"github.com/andes-group/invest-cli/internal/store"
)

var (
	runsStatus string
	runsURL    string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored report runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List report runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:     model.RunStatus(runsStatus),
			ListingURL: runsURL,
			Limit:      runsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list runs")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tORIGIN\tCONFIDENCE\tURL\tCREATED")
		for _, r := range runs {
			origin, confidence := "-", "-"
			if r.Report != nil {
				origin = string(r.Report.Meta.AnalysisOrigin)
				confidence = fmt.Sprintf("%.0f%%", r.Report.Meta.ConfidencePct)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Status, origin, confidence, r.Request.ListingURL,
				r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a single run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func init() {
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (queued, running, complete, failed)")
	runsListCmd.Flags().StringVar(&runsURL, "url", "", "filter by listing URL")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 50, "maximum rows")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
