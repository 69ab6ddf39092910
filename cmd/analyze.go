package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sagyolink/leadscout/internal/model"
	"github.com/sagyolink/leadscout/internal/store"
)

var analyzeAll bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [id]",
	Short: "Scrape and score one company, or all pending companies with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !analyzeAll && len(args) == 0 {
			return eris.New("a company ID or --all is required")
		}

		env, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if !analyzeAll {
			outcome, err := env.Pipeline.AnalyzeCompany(ctx, args[0])
			if err != nil {
				return err
			}
			return enc.Encode(outcome)
		}

		pending, err := env.Store.ListCompanies(ctx, store.CompanyFilter{Status: model.StatusPending})
		if err != nil {
			return err
		}
		ids := make([]string, len(pending))
		for i, c := range pending {
			ids[i] = c.ID
		}

		outcomes := env.Pipeline.AnalyzeAll(ctx, ids)

		succeeded := 0
		for _, o := range outcomes {
			if o.Err == nil {
				succeeded++
			} else {
				zap.L().Warn("analysis failed",
					zap.String("company_id", o.CompanyID),
					zap.Error(o.Err),
				)
			}
		}
		zap.L().Info("batch analysis complete",
			zap.Int("companies", len(ids)),
			zap.Int("succeeded", succeeded),
		)

		return enc.Encode(outcomes)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeAll, "all", false, "analyze every pending company")
	rootCmd.AddCommand(analyzeCmd)
}
