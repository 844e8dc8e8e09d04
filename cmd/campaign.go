package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/outreach-cli/internal/model"
)

var campaignFile string

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Manage acquisition campaigns",
}

var campaignCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a campaign from a YAML definition",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(campaignFile)
		if err != nil {
			return eris.Wrap(err, "read campaign file")
		}

		var campaign model.Campaign
		if err := yaml.Unmarshal(data, &campaign); err != nil {
			return eris.Wrap(err, "parse campaign file")
		}
		if err := campaign.Validate(); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.SaveCampaign(cmd.Context(), &campaign); err != nil {
			return err
		}
		fmt.Printf("campaign created: %s (%s)\n", campaign.Name, campaign.CampaignID)
		return nil
	},
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		campaigns, err := env.Store.ListCampaigns(cmd.Context())
		if err != nil {
			return err
		}
		for _, c := range campaigns {
			fmt.Printf("%s  %-30s %s  channels=%v\n", c.CampaignID, c.Name, c.Status, c.ChannelsEnabled)
		}
		return nil
	},
}

var campaignShowCmd = &cobra.Command{
	Use:   "show <campaign-id>",
	Short: "Show a campaign definition",
	Args:  cobra.ExactArgs(1),
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
		out, err := json.MarshalIndent(campaign, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal campaign")
		}
		fmt.Println(string(out))
		return nil
	},
}

var campaignDeleteCmd = &cobra.Command{
	Use:   "delete <campaign-id>",
	Short: "Delete a campaign and all of its leads and messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.DeleteCampaign(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("campaign deleted: %s\n", args[0])
		return nil
	},
}

func init() {
	campaignCreateCmd.Flags().StringVar(&campaignFile, "file", "", "path to campaign YAML definition")
	_ = campaignCreateCmd.MarkFlagRequired("file")

	campaignCmd.AddCommand(campaignCreateCmd, campaignListCmd, campaignShowCmd, campaignDeleteCmd)
	rootCmd.AddCommand(campaignCmd)
}
