package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

var (
	leadsStatus string
	leadsLimit  int
)

var leadsCmd = &cobra.Command{
	Use:   "leads <campaign-id>",
	Short: "List a campaign's leads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		leads, err := env.Store.ListLeads(cmd.Context(), store.LeadFilter{
			CampaignID: args[0],
			Status:     model.LeadStatus(leadsStatus),
			Limit:      leadsLimit,
		})
		if err != nil {
			return err
		}

		for _, l := range leads {
			call := string(l.CallStatus)
			if call == "" {
				call = "-"
			}
			fmt.Printf("%s  %-25s score=%-3d %-8s call=%-12s attempts=%d\n",
				l.LeadID, l.Name, l.QualificationScore, l.Status, call, l.ContactAttempts)
		}
		fmt.Printf("%d leads\n", len(leads))
		return nil
	},
}

func init() {
	leadsCmd.Flags().StringVar(&leadsStatus, "status", "", "filter by status (pending, hot, maybe, cold, dead)")
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 0, "max leads to list")
	rootCmd.AddCommand(leadsCmd)
}
