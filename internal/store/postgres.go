package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	owner_id   TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active',
	config     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leads (
	id               TEXT PRIMARY KEY,
	campaign_id      TEXT NOT NULL REFERENCES campaigns(id),
	status           TEXT NOT NULL DEFAULT 'pending',
	call_status      TEXT NOT NULL DEFAULT '',
	place_id         TEXT NOT NULL DEFAULT '',
	provider_call_id TEXT NOT NULL DEFAULT '',
	score            INTEGER NOT NULL DEFAULT 0,
	data             JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	id            TEXT PRIMARY KEY,
	lead_id       TEXT NOT NULL REFERENCES leads(id),
	campaign_id   TEXT NOT NULL,
	owner_id      TEXT NOT NULL DEFAULT '',
	channel       TEXT NOT NULL,
	content       TEXT NOT NULL,
	status        TEXT NOT NULL,
	simulated     BOOLEAN NOT NULL DEFAULT false,
	error_message TEXT NOT NULL DEFAULT '',
	sent_at       TIMESTAMPTZ NOT NULL,
	read_at       TIMESTAMPTZ,
	replied_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS notification_settings (
	owner_id TEXT PRIMARY KEY,
	data     JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_campaign_id ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_call_status ON leads(call_status);
CREATE INDEX IF NOT EXISTS idx_leads_provider_call_id ON leads(provider_call_id);
CREATE INDEX IF NOT EXISTS idx_messages_campaign_id ON messages(campaign_id);
CREATE INDEX IF NOT EXISTS idx_messages_lead_id ON messages(lead_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveCampaign(ctx context.Context, c *model.Campaign) error {
	if c.CampaignID == "" {
		c.CampaignID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = "active"
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	configJSON, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal campaign")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO campaigns (id, owner_id, name, status, config, created_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET owner_id = EXCLUDED.owner_id, name = EXCLUDED.name,
		 status = EXCLUDED.status, config = EXCLUDED.config`,
		c.CampaignID, c.OwnerID, c.Name, c.Status, configJSON, c.CreatedAt,
	)
	return eris.Wrap(err, "postgres: save campaign")
}

func (s *PostgresStore) GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error) {
	var configJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT config FROM campaigns WHERE id = $1`, campaignID,
	).Scan(&configJSON)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get campaign %s", campaignID)
	}

	var c model.Campaign
	if err := json.Unmarshal(configJSON, &c); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal campaign")
	}
	return &c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.pool.Query(ctx, `SELECT config FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		var configJSON []byte
		if err := rows.Scan(&configJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan campaign")
		}
		var c model.Campaign
		if err := json.Unmarshal(configJSON, &c); err != nil {
			continue
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, eris.Wrap(rows.Err(), "postgres: list campaigns iterate")
}

func (s *PostgresStore) DeleteCampaign(ctx context.Context, campaignID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin delete campaign")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE campaign_id = $1`, campaignID); err != nil {
		return eris.Wrap(err, "postgres: delete campaign messages")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM leads WHERE campaign_id = $1`, campaignID); err != nil {
		return eris.Wrap(err, "postgres: delete campaign leads")
	}
	tag, err := tx.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, campaignID)
	if err != nil {
		return eris.Wrap(err, "postgres: delete campaign")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "campaign %s", campaignID)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit delete campaign")
}

func (s *PostgresStore) SaveLeads(ctx context.Context, leads []model.Lead) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save leads")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i := range leads {
		lead := &leads[i]
		dataJSON, err := json.Marshal(lead)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal lead")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO leads (id, campaign_id, status, call_status, place_id, provider_call_id, score, data, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, call_status = EXCLUDED.call_status,
			 place_id = EXCLUDED.place_id, provider_call_id = EXCLUDED.provider_call_id,
			 score = EXCLUDED.score, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
			lead.LeadID, lead.CampaignID, string(lead.Status), string(lead.CallStatus),
			lead.PlaceID, lead.ProviderCallID, lead.QualificationScore, dataJSON,
			lead.CreatedAt, lead.UpdatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: save lead %s", lead.LeadID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit save leads")
}

func (s *PostgresStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	return s.leadQuery(ctx, `SELECT data FROM leads WHERE id = $1`, leadID)
}

func (s *PostgresStore) ListLeads(ctx context.Context, f LeadFilter) ([]model.Lead, error) {
	query := `SELECT data FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if f.CampaignID != "" {
		query += fmt.Sprintf(` AND campaign_id = $%d`, argIdx)
		args = append(args, f.CampaignID)
		argIdx++
	}
	if f.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(f.Status))
		argIdx++
	}
	if f.CallStatus != "" {
		query += fmt.Sprintf(` AND call_status = $%d`, argIdx)
		args = append(args, string(f.CallStatus))
		argIdx++
	}
	switch f.HasContactFor {
	case model.ChannelEmail:
		query += ` AND COALESCE(data->>'email', '') != ''`
	case model.ChannelWhatsApp, model.ChannelSMS, model.ChannelCall:
		query += ` AND COALESCE(data->>'phone', '') != ''`
	case model.ChannelFacebook:
		query += ` AND (COALESCE(data->>'facebook_id', '') != '' OR COALESCE(data->>'facebook_url', '') != '')`
	}
	query += ` ORDER BY created_at ASC`

	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var dataJSON []byte
		if err := rows.Scan(&dataJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		var lead model.Lead
		if err := json.Unmarshal(dataJSON, &lead); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal lead")
		}
		leads = append(leads, lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) UpdateLead(ctx context.Context, lead *model.Lead) error {
	dataJSON, err := json.Marshal(lead)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal lead")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET status = $1, call_status = $2, place_id = $3, provider_call_id = $4,
		 score = $5, data = $6, updated_at = $7 WHERE id = $8`,
		string(lead.Status), string(lead.CallStatus), lead.PlaceID, lead.ProviderCallID,
		lead.QualificationScore, dataJSON, lead.UpdatedAt, lead.LeadID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %s", lead.LeadID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "lead %s", lead.LeadID)
	}
	return nil
}

func (s *PostgresStore) LeadPlaceIDs(ctx context.Context, campaignID string) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT place_id FROM leads WHERE campaign_id = $1 AND place_id != ''`, campaignID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lead place ids")
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan place id")
		}
		ids[id] = true
	}
	return ids, eris.Wrap(rows.Err(), "postgres: lead place ids iterate")
}

func (s *PostgresStore) FindLeadByProviderCallID(ctx context.Context, providerCallID string) (*model.Lead, error) {
	return s.leadQuery(ctx, `SELECT data FROM leads WHERE provider_call_id = $1`, providerCallID)
}

func (s *PostgresStore) leadQuery(ctx context.Context, query string, arg any) (*model.Lead, error) {
	var dataJSON []byte
	err := s.pool.QueryRow(ctx, query, arg).Scan(&dataJSON)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get lead")
	}

	var lead model.Lead
	if err := json.Unmarshal(dataJSON, &lead); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal lead")
	}
	return &lead, nil
}

func (s *PostgresStore) SaveMessage(ctx context.Context, m *model.MessageRecord) error {
	if m.MessageID == "" {
		m.MessageID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, lead_id, campaign_id, owner_id, channel, content, status, simulated, error_message, sent_at, read_at, replied_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.MessageID, m.LeadID, m.CampaignID, m.OwnerID, string(m.Channel), m.Content,
		string(m.Status), m.Simulated, m.ErrorMessage, m.SentAt, m.ReadAt, m.RepliedAt,
	)
	return eris.Wrap(err, "postgres: save message")
}

func (s *PostgresStore) ListMessages(ctx context.Context, f MessageFilter) ([]model.MessageRecord, error) {
	query := `SELECT id, lead_id, campaign_id, owner_id, channel, content, status, simulated, error_message, sent_at, read_at, replied_at
	 FROM messages WHERE true`
	args := []any{}
	argIdx := 1

	if f.CampaignID != "" {
		query += fmt.Sprintf(` AND campaign_id = $%d`, argIdx)
		args = append(args, f.CampaignID)
		argIdx++
	}
	if f.LeadID != "" {
		query += fmt.Sprintf(` AND lead_id = $%d`, argIdx)
		args = append(args, f.LeadID)
		argIdx++
	}
	if f.Channel != "" {
		query += fmt.Sprintf(` AND channel = $%d`, argIdx)
		args = append(args, string(f.Channel))
		argIdx++
	}
	query += ` ORDER BY sent_at DESC`

	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list messages")
	}
	defer rows.Close()

	var messages []model.MessageRecord
	for rows.Next() {
		var m model.MessageRecord
		err := rows.Scan(&m.MessageID, &m.LeadID, &m.CampaignID, &m.OwnerID, &m.Channel,
			&m.Content, &m.Status, &m.Simulated, &m.ErrorMessage, &m.SentAt, &m.ReadAt, &m.RepliedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan message")
		}
		messages = append(messages, m)
	}
	return messages, eris.Wrap(rows.Err(), "postgres: list messages iterate")
}

func (s *PostgresStore) UpdateMessageStatus(ctx context.Context, messageID string, status model.MessageStatus) error {
	query := `UPDATE messages SET status = $1`
	args := []any{string(status)}
	argIdx := 2

	now := time.Now().UTC()
	switch status {
	case model.MessageStatusRead:
		query += fmt.Sprintf(`, read_at = $%d`, argIdx)
		args = append(args, now)
		argIdx++
	case model.MessageStatusReplied:
		query += fmt.Sprintf(`, replied_at = $%d`, argIdx)
		args = append(args, now)
		argIdx++
	}
	query += fmt.Sprintf(` WHERE id = $%d`, argIdx)
	args = append(args, messageID)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update message status %s", messageID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "message %s", messageID)
	}
	return nil
}

func (s *PostgresStore) GetNotificationSettings(ctx context.Context, ownerID string) (*model.NotificationSettings, error) {
	var dataJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM notification_settings WHERE owner_id = $1`, ownerID,
	).Scan(&dataJSON)
	if err == pgx.ErrNoRows {
		return &model.NotificationSettings{OwnerID: ownerID}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get notification settings")
	}

	var settings model.NotificationSettings
	if err := json.Unmarshal(dataJSON, &settings); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal notification settings")
	}
	return &settings, nil
}

func (s *PostgresStore) UpsertNotificationSettings(ctx context.Context, settings *model.NotificationSettings) error {
	dataJSON, err := json.Marshal(settings)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal notification settings")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO notification_settings (owner_id, data) VALUES ($1, $2)
		 ON CONFLICT (owner_id) DO UPDATE SET data = EXCLUDED.data`,
		settings.OwnerID, dataJSON,
	)
	return eris.Wrap(err, "postgres: upsert notification settings")
}
