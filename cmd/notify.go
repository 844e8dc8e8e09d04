package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/model"
)

var (
	notifyEmail    string
	notifyPhone    string
	notifyWhatsApp string
	notifyFacebook string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Manage operator alert settings",
}

var notifySetCmd = &cobra.Command{
	Use:   "set <owner-id>",
	Short: "Set alert channels for an owner",
	Long:  "Enables each alert channel a flag is provided for. Channels without a flag are disabled.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if notifyEmail == "" && notifyPhone == "" && notifyWhatsApp == "" && notifyFacebook == "" {
			return eris.New("at least one alert channel flag is required")
		}

		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		settings := &model.NotificationSettings{
			OwnerID:         args[0],
			EmailEnabled:    notifyEmail != "",
			EmailAddress:    notifyEmail,
			SMSEnabled:      notifyPhone != "",
			PhoneNumber:     notifyPhone,
			WhatsAppEnabled: notifyWhatsApp != "",
			WhatsAppNumber:  notifyWhatsApp,
			FacebookEnabled: notifyFacebook != "",
			FacebookPSID:    notifyFacebook,
		}
		if err := env.Store.UpsertNotificationSettings(cmd.Context(), settings); err != nil {
			return err
		}
		fmt.Printf("alert settings saved for %s\n", args[0])
		return nil
	},
}

var notifyShowCmd = &cobra.Command{
	Use:   "show <owner-id>",
	Short: "Show an owner's alert settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		settings, err := env.Store.GetNotificationSettings(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal settings")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	notifySetCmd.Flags().StringVar(&notifyEmail, "email", "", "alert email address")
	notifySetCmd.Flags().StringVar(&notifyPhone, "sms", "", "alert SMS number")
	notifySetCmd.Flags().StringVar(&notifyWhatsApp, "whatsapp", "", "alert WhatsApp number")
	notifySetCmd.Flags().StringVar(&notifyFacebook, "facebook", "", "alert Messenger PSID")

	notifyCmd.AddCommand(notifySetCmd, notifyShowCmd)
	rootCmd.AddCommand(notifyCmd)
}
