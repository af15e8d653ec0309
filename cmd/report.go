package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andes-group/invest-cli/internal/model"
)

var (
	reportURL         string
	reportPrincipalUF float64
	reportRentCLP     float64
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate an investment report for a single listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.ReportRequest{
			ListingURL:  reportURL,
			PrincipalUF: reportPrincipalUF,
			RentCLP:     reportRentCLP,
		}

		run, err := env.store.CreateRun(ctx, req)
		if err != nil {
			return eris.Wrap(err, "create run")
		}
		if err := env.store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
			return eris.Wrap(err, "mark run running")
		}

		rep, err := env.orchestrator.Generate(ctx, req)
		if err != nil {
			if ferr := env.store.FailRun(ctx, run.ID, err.Error()); ferr != nil {
				zap.L().Error("fail run", zap.Error(ferr))
			}
			return eris.Wrap(err, "generate report")
		}

		if err := env.store.CompleteRun(ctx, run.ID, rep); err != nil {
			zap.L().Error("persist report", zap.Error(err))
		}

		zap.L().Info("report complete",
			zap.String("run_id", run.ID),
			zap.String("origin", string(rep.Meta.AnalysisOrigin)),
			zap.Float64("confidence_pct", rep.Meta.ConfidencePct),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportURL, "url", "", "listing URL (required)")
	reportCmd.Flags().Float64Var(&reportPrincipalUF, "principal-uf", 0, "loan principal in UF (required)")
	reportCmd.Flags().Float64Var(&reportRentCLP, "rent-clp", 0, "expected monthly rent in CLP (optional, estimated from comparables when omitted)")
	_ = reportCmd.MarkFlagRequired("url")
	_ = reportCmd.MarkFlagRequired("principal-uf")
	rootCmd.AddCommand(reportCmd)
}
