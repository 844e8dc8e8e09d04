package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/scorer"
	"github.com/sells-group/outreach-cli/internal/store"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <campaign-id>",
	Short: "Run directory discovery for a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Discovery.Discover(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("searches=%d found=%d duplicates=%d filtered=%d saved=%d\n",
			result.Searches, result.Found, result.Duplicates, result.Filtered, result.Saved)
		return nil
	},
}

var rescoreCmd = &cobra.Command{
	Use:   "rescore <campaign-id>",
	Short: "Recompute qualification scores for a campaign's leads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		campaign, err := env.Store.GetCampaign(ctx, args[0])
		if err != nil {
			return err
		}
		leads, err := env.Store.ListLeads(ctx, store.LeadFilter{CampaignID: args[0]})
		if err != nil {
			return err
		}

		criteria := scorer.Criteria{
			IdealIndustries: campaign.IdealIndustries,
			SearchLocations: campaign.SearchLocations,
		}
		changed := 0
		for i := range leads {
			lead := &leads[i]
			score := scorer.Score(lead.AsCandidate(), criteria)
			if score == lead.QualificationScore {
				continue
			}
			lead.QualificationScore = score
			if err := env.Store.UpdateLead(ctx, lead); err != nil {
				return err
			}
			changed++
		}
		fmt.Printf("rescored %d of %d leads\n", changed, len(leads))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd, rescoreCmd)
}
