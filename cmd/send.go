package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/model"
)

var (
	sendChannel  string
	sendLimit    int
	sendSimulate bool
)

var sendCmd = &cobra.Command{
	Use:   "send <campaign-id>",
	Short: "Send campaign messages to pending leads on one channel",
	Long:  "Sends the campaign template to every pending lead reachable on the channel. The call channel queues leads for the background caller instead of sending directly.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel := model.Channel(sendChannel)
		if !model.IsSupportedChannel(channel) {
			return eris.Errorf("unsupported channel %q", sendChannel)
		}

		env, err := initEnv(cmd.Context(), sendSimulate)
		if err != nil {
			return err
		}
		defer env.Close()

		if channel == model.ChannelCall {
			queued, err := env.Caller.QueueCalls(cmd.Context(), args[0], sendLimit)
			if err != nil {
				return err
			}
			fmt.Printf("queued %d leads for calling\n", queued)
			return nil
		}

		limit := sendLimit
		if limit <= 0 {
			limit = cfg.Dispatch.BatchLimit
		}
		result, err := env.Dispatcher.SendBatch(cmd.Context(), args[0], channel, limit)
		if err != nil {
			return err
		}
		fmt.Printf("attempted=%d sent=%d failed=%d skipped=%d\n",
			result.Attempted, result.Sent, result.Failed, result.Skipped)
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendChannel, "channel", "", "channel to send on (email, whatsapp, facebook, call)")
	sendCmd.Flags().IntVar(&sendLimit, "limit", 0, "max leads to process (default from config)")
	sendCmd.Flags().BoolVar(&sendSimulate, "simulate", false, "render and record messages without sending")
	_ = sendCmd.MarkFlagRequired("channel")
	rootCmd.AddCommand(sendCmd)
}
