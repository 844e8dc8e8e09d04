package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats [campaign-id]",
	Short: "Show campaign performance statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		var out any
		if len(args) == 1 {
			campaign, err := env.Store.GetCampaign(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err = env.Analytics.CampaignStats(cmd.Context(), campaign)
			if err != nil {
				return err
			}
		} else {
			out, err = env.Analytics.AllCampaignStats(cmd.Context())
			if err != nil {
				return err
			}
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal stats")
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
