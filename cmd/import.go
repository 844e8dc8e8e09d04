package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var importOwner string

var importCmd = &cobra.Command{
	Use:   "import <campaign-id> <csv-file>",
	Short: "Import leads from a CSV file into a campaign",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		campaign, err := env.Store.GetCampaign(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		f, err := os.Open(args[1])
		if err != nil {
			return eris.Wrap(err, "open csv file")
		}
		defer f.Close()

		owner := importOwner
		if owner == "" {
			owner = campaign.OwnerID
		}

		result, err := env.Importer.ImportCSV(cmd.Context(), f, campaign.CampaignID, owner)
		if err != nil {
			return err
		}
		fmt.Printf("imported=%d skipped=%d\n", result.Imported, result.Skipped)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importOwner, "owner", "", "owner id for imported leads (default campaign owner)")
	rootCmd.AddCommand(importCmd)
}
