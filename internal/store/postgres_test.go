package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_GetCampaign_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT config FROM campaigns WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCampaign(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCampaign_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	campaign := model.Campaign{CampaignID: "camp-1", Name: "Plumbers Q3"}
	configJSON, err := json.Marshal(campaign)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT config FROM campaigns WHERE id = \$1`).
		WithArgs("camp-1").
		WillReturnRows(pgxmock.NewRows([]string{"config"}).AddRow(configJSON))

	got, err := s.GetCampaign(context.Background(), "camp-1")
	require.NoError(t, err)
	assert.Equal(t, "Plumbers Q3", got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveCampaign_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs(pgxmock.AnyArg(), "owner-1", "Plumbers Q3", "active", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	c := &model.Campaign{OwnerID: "owner-1", Name: "Plumbers Q3"}
	require.NoError(t, s.SaveCampaign(context.Background(), c))
	assert.NotEmpty(t, c.CampaignID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateLead_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE leads SET`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	lead := &model.Lead{LeadID: "ghost", UpdatedAt: time.Now().UTC()}
	assert.ErrorIs(t, s.UpdateLead(context.Background(), lead), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindLeadByProviderCallID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	lead := model.Lead{LeadID: "l1", ProviderCallID: "call-9"}
	dataJSON, err := json.Marshal(lead)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT data FROM leads WHERE provider_call_id = \$1`).
		WithArgs("call-9").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(dataJSON))

	got, err := s.FindLeadByProviderCallID(context.Background(), "call-9")
	require.NoError(t, err)
	assert.Equal(t, "l1", got.LeadID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteCampaign_Cascades(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM messages WHERE campaign_id = \$1`).
		WithArgs("camp-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`DELETE FROM leads WHERE campaign_id = \$1`).
		WithArgs("camp-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM campaigns WHERE id = \$1`).
		WithArgs("camp-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteCampaign(context.Background(), "camp-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateMessageStatus_SetsRepliedAt(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE messages SET status = \$1, replied_at = \$2 WHERE id = \$3`).
		WithArgs("replied", pgxmock.AnyArg(), "m1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateMessageStatus(context.Background(), "m1", model.MessageStatusReplied))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotificationSettings_Default(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM notification_settings WHERE owner_id = \$1`).
		WithArgs("owner-1").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetNotificationSettings(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.False(t, got.EmailEnabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
