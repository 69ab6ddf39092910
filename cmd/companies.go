package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagyolink/leadscout/internal/model"
	"github.com/sagyolink/leadscout/internal/store"
)

var (
	companiesStatus string
	companiesType   string
	companiesLimit  int
	companiesOffset int
)

var companiesCmd = &cobra.Command{
	Use:   "companies [id]",
	Short: "List saved companies, or show one by ID",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if len(args) == 1 {
			company, err := st.GetCompany(ctx, args[0])
			if err != nil {
				return err
			}
			return enc.Encode(company)
		}

		companies, err := st.ListCompanies(ctx, store.CompanyFilter{
			Status:       model.Status(companiesStatus),
			BusinessType: model.BusinessType(companiesType),
			Limit:        companiesLimit,
			Offset:       companiesOffset,
		})
		if err != nil {
			return err
		}
		return enc.Encode(companies)
	},
}

func init() {
	companiesCmd.Flags().StringVar(&companiesStatus, "status", "", "filter by status (pending|scraped|emailed)")
	companiesCmd.Flags().StringVar(&companiesType, "business-type", "", "filter by business type")
	companiesCmd.Flags().IntVar(&companiesLimit, "limit", 100, "max companies to list")
	companiesCmd.Flags().IntVar(&companiesOffset, "offset", 0, "list offset")
	rootCmd.AddCommand(companiesCmd)
}
