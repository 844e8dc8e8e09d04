package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

// With no provider credentials at all, the environment still registers every
// dispatch channel and a batch send completes with simulated records instead
// of transport errors.
func TestInitEnv_NoCredentialsSimulatesSends(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "outreach.db"),
		},
		Dispatch: config.DispatchConfig{
			MinSendDelay: time.Millisecond,
			MaxSendDelay: time.Millisecond,
		},
	}

	ctx := context.Background()
	env, err := initEnv(ctx, true)
	require.NoError(t, err)
	defer env.Close()

	campaign := &model.Campaign{
		CampaignID:       "camp-1",
		OwnerID:          "owner-1",
		Name:             "Plumbers Q3",
		ChannelsEnabled:  []model.Channel{model.ChannelWhatsApp},
		WhatsAppTemplate: "Hi [Name] from [Company]",
	}
	require.NoError(t, env.Store.SaveCampaign(ctx, campaign))
	require.NoError(t, env.Store.SaveLeads(ctx, []model.Lead{{
		LeadID:     "lead-1",
		CampaignID: "camp-1",
		Name:       "Jane Doe",
		Company:    "Acme Plumbing",
		Phone:      "+15551234567",
		Status:     model.LeadStatusPending,
	}}))

	result, err := env.Dispatcher.SendBatch(ctx, "camp-1", model.ChannelWhatsApp, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempted)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, result.Skipped)

	messages, err := env.Store.ListMessages(ctx, store.MessageFilter{CampaignID: "camp-1"})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, model.MessageStatusSent, messages[0].Status)
	assert.True(t, messages[0].Simulated)
}
