package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sagyolink/leadscout/internal/model"
)

var (
	searchKeyword      string
	searchLocation     string
	searchBusinessType string
	searchSave         bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search businesses and triage them for manual-work potential",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.SearchPreview(ctx, searchKeyword, searchLocation, model.BusinessType(searchBusinessType))
		if err != nil {
			return eris.Wrap(err, "search preview")
		}

		zap.L().Info("search complete",
			zap.Int("total_found", result.TotalFound),
			zap.Int("candidates", len(result.Candidates)),
			zap.Int("excluded_no_site", result.ExcludedNoSite),
		)

		if searchSave {
			var selected []model.Candidate
			for _, c := range result.Candidates {
				if c.Selected {
					selected = append(selected, c)
				}
			}
			outcomes := env.Pipeline.SaveCandidates(ctx, selected)
			saved := 0
			for _, o := range outcomes {
				if o.Err == nil {
					saved++
				}
			}
			zap.L().Info("candidates saved",
				zap.Int("selected", len(selected)),
				zap.Int("saved", saved),
			)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchKeyword, "keyword", "", "search keyword, e.g. 物流 (required)")
	searchCmd.Flags().StringVar(&searchLocation, "location", "", "search area, e.g. 大阪 (required)")
	searchCmd.Flags().StringVar(&searchBusinessType, "business-type", "", "business type hint (logistics|manufacturing|retail|food|printing|other)")
	searchCmd.Flags().BoolVar(&searchSave, "save", false, "persist pre-selected (score 3) candidates")
	_ = searchCmd.MarkFlagRequired("keyword")
	_ = searchCmd.MarkFlagRequired("location")
	rootCmd.AddCommand(searchCmd)
}
