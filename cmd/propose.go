package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var proposeForce bool

var proposeCmd = &cobra.Command{
	Use:   "propose <id>",
	Short: "Draft an outreach email for a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		proposal, err := env.Pipeline.DraftProposal(ctx, args[0], proposeForce)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(proposal)
	},
}

func init() {
	proposeCmd.Flags().BoolVar(&proposeForce, "force", false, "overwrite a manually edited proposal")
	rootCmd.AddCommand(proposeCmd)
}
