package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active',
	config     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS leads (
	id               TEXT PRIMARY KEY,
	campaign_id      TEXT NOT NULL REFERENCES campaigns(id),
	status           TEXT NOT NULL DEFAULT 'pending',
	call_status      TEXT NOT NULL DEFAULT '',
	place_id         TEXT NOT NULL DEFAULT '',
	provider_call_id TEXT NOT NULL DEFAULT '',
	score            INTEGER NOT NULL DEFAULT 0,
	data             TEXT NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS messages (
	id            TEXT PRIMARY KEY,
	lead_id       TEXT NOT NULL REFERENCES leads(id),
	campaign_id   TEXT NOT NULL,
	owner_id      TEXT NOT NULL DEFAULT '',
	channel       TEXT NOT NULL,
	content       TEXT NOT NULL,
	status        TEXT NOT NULL,
	simulated     INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	sent_at       DATETIME NOT NULL,
	read_at       DATETIME,
	replied_at    DATETIME
);

CREATE TABLE IF NOT EXISTS notification_settings (
	owner_id TEXT PRIMARY KEY,
	data     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_campaign_id ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_call_status ON leads(call_status);
CREATE INDEX IF NOT EXISTS idx_leads_provider_call_id ON leads(provider_call_id);
CREATE INDEX IF NOT EXISTS idx_messages_campaign_id ON messages(campaign_id);
CREATE INDEX IF NOT EXISTS idx_messages_lead_id ON messages(lead_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveCampaign(ctx context.Context, c *model.Campaign) error {
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
		return eris.Wrap(err, "sqlite: marshal campaign")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO campaigns (id, owner_id, name, status, config, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id, name = excluded.name,
		 status = excluded.status, config = excluded.config`,
		c.CampaignID, c.OwnerID, c.Name, c.Status, string(configJSON), c.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: save campaign")
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error) {
	row := s.db.QueryRowContext(ctx, `SELECT config FROM campaigns WHERE id = ?`, campaignID)

	var configJSON string
	err := row.Scan(&configJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get campaign")
	}

	var c model.Campaign
	if err := json.Unmarshal([]byte(configJSON), &c); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal campaign")
	}
	return &c, nil
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT config FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		var configJSON string
		if err := rows.Scan(&configJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan campaign")
		}
		var c model.Campaign
		if err := json.Unmarshal([]byte(configJSON), &c); err != nil {
			// Rows with unreadable config are skipped, not fatal.
			continue
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, eris.Wrap(rows.Err(), "sqlite: list campaigns iterate")
}

func (s *SQLiteStore) DeleteCampaign(ctx context.Context, campaignID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delete campaign")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE campaign_id = ?`, campaignID); err != nil {
		return eris.Wrap(err, "sqlite: delete campaign messages")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM leads WHERE campaign_id = ?`, campaignID); err != nil {
		return eris.Wrap(err, "sqlite: delete campaign leads")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, campaignID)
	if err != nil {
		return eris.Wrap(err, "sqlite: delete campaign")
	}
	if err := checkRowsAffected(res, "campaign", campaignID); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete campaign")
}

func (s *SQLiteStore) SaveLeads(ctx context.Context, leads []model.Lead) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save leads")
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range leads {
		lead := &leads[i]
		dataJSON, err := json.Marshal(lead)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal lead")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO leads (id, campaign_id, status, call_status, place_id, provider_call_id, score, data, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET status = excluded.status, call_status = excluded.call_status,
			 place_id = excluded.place_id, provider_call_id = excluded.provider_call_id,
			 score = excluded.score, data = excluded.data, updated_at = excluded.updated_at`,
			lead.LeadID, lead.CampaignID, string(lead.Status), string(lead.CallStatus),
			lead.PlaceID, lead.ProviderCallID, lead.QualificationScore, string(dataJSON),
			lead.CreatedAt, lead.UpdatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: save lead %s", lead.LeadID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save leads")
}

func (s *SQLiteStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM leads WHERE id = ?`, leadID)
	return scanLead(row)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, f LeadFilter) ([]model.Lead, error) {
	query := `SELECT data FROM leads WHERE 1=1`
	var args []any

	if f.CampaignID != "" {
		query += ` AND campaign_id = ?`
		args = append(args, f.CampaignID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.CallStatus != "" {
		query += ` AND call_status = ?`
		args = append(args, string(f.CallStatus))
	}
	switch f.HasContactFor {
	case model.ChannelEmail:
		query += ` AND json_extract(data, '$.email') IS NOT NULL AND json_extract(data, '$.email') != ''`
	case model.ChannelWhatsApp, model.ChannelSMS, model.ChannelCall:
		query += ` AND json_extract(data, '$.phone') IS NOT NULL AND json_extract(data, '$.phone') != ''`
	case model.ChannelFacebook:
		query += ` AND (json_extract(data, '$.facebook_id') != '' OR json_extract(data, '$.facebook_url') != '')`
	}
	query += ` ORDER BY created_at ASC`

	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, lead *model.Lead) error {
	dataJSON, err := json.Marshal(lead)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal lead")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = ?, call_status = ?, place_id = ?, provider_call_id = ?,
		 score = ?, data = ?, updated_at = ? WHERE id = ?`,
		string(lead.Status), string(lead.CallStatus), lead.PlaceID, lead.ProviderCallID,
		lead.QualificationScore, string(dataJSON), lead.UpdatedAt, lead.LeadID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %s", lead.LeadID)
	}
	return checkRowsAffected(res, "lead", lead.LeadID)
}

func (s *SQLiteStore) LeadPlaceIDs(ctx context.Context, campaignID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT place_id FROM leads WHERE campaign_id = ? AND place_id != ''`, campaignID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lead place ids")
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan place id")
		}
		ids[id] = true
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: lead place ids iterate")
}

func (s *SQLiteStore) FindLeadByProviderCallID(ctx context.Context, providerCallID string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM leads WHERE provider_call_id = ?`, providerCallID)
	return scanLead(row)
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, m *model.MessageRecord) error {
	if m.MessageID == "" {
		m.MessageID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, lead_id, campaign_id, owner_id, channel, content, status, simulated, error_message, sent_at, read_at, replied_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MessageID, m.LeadID, m.CampaignID, m.OwnerID, string(m.Channel), m.Content,
		string(m.Status), m.Simulated, m.ErrorMessage, m.SentAt, m.ReadAt, m.RepliedAt,
	)
	return eris.Wrap(err, "sqlite: save message")
}

func (s *SQLiteStore) ListMessages(ctx context.Context, f MessageFilter) ([]model.MessageRecord, error) {
	query := `SELECT id, lead_id, campaign_id, owner_id, channel, content, status, simulated, error_message, sent_at, read_at, replied_at
	 FROM messages WHERE 1=1`
	var args []any

	if f.CampaignID != "" {
		query += ` AND campaign_id = ?`
		args = append(args, f.CampaignID)
	}
	if f.LeadID != "" {
		query += ` AND lead_id = ?`
		args = append(args, f.LeadID)
	}
	if f.Channel != "" {
		query += ` AND channel = ?`
		args = append(args, string(f.Channel))
	}
	query += ` ORDER BY sent_at DESC`

	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list messages")
	}
	defer rows.Close()

	var messages []model.MessageRecord
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, eris.Wrap(rows.Err(), "sqlite: list messages iterate")
}

func (s *SQLiteStore) UpdateMessageStatus(ctx context.Context, messageID string, status model.MessageStatus) error {
	query := `UPDATE messages SET status = ?`
	args := []any{string(status)}

	now := time.Now().UTC()
	switch status {
	case model.MessageStatusRead:
		query += `, read_at = ?`
		args = append(args, now)
	case model.MessageStatusReplied:
		query += `, replied_at = ?`
		args = append(args, now)
	}
	query += ` WHERE id = ?`
	args = append(args, messageID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update message status %s", messageID)
	}
	return checkRowsAffected(res, "message", messageID)
}

func (s *SQLiteStore) GetNotificationSettings(ctx context.Context, ownerID string) (*model.NotificationSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM notification_settings WHERE owner_id = ?`, ownerID)

	var dataJSON string
	err := row.Scan(&dataJSON)
	if err == sql.ErrNoRows {
		// Owners without saved preferences get everything disabled.
		return &model.NotificationSettings{OwnerID: ownerID}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get notification settings")
	}

	var settings model.NotificationSettings
	if err := json.Unmarshal([]byte(dataJSON), &settings); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal notification settings")
	}
	return &settings, nil
}

func (s *SQLiteStore) UpsertNotificationSettings(ctx context.Context, settings *model.NotificationSettings) error {
	dataJSON, err := json.Marshal(settings)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal notification settings")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notification_settings (owner_id, data) VALUES (?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET data = excluded.data`,
		settings.OwnerID, string(dataJSON),
	)
	return eris.Wrap(err, "sqlite: upsert notification settings")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var dataJSON string
	err := row.Scan(&dataJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}

	var lead model.Lead
	if err := json.Unmarshal([]byte(dataJSON), &lead); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal lead")
	}
	return &lead, nil
}

func scanMessage(row scannable) (*model.MessageRecord, error) {
	var m model.MessageRecord
	var readAt, repliedAt sql.NullTime

	err := row.Scan(&m.MessageID, &m.LeadID, &m.CampaignID, &m.OwnerID, &m.Channel,
		&m.Content, &m.Status, &m.Simulated, &m.ErrorMessage, &m.SentAt, &readAt, &repliedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan message")
	}

	if readAt.Valid {
		m.ReadAt = &readAt.Time
	}
	if repliedAt.Valid {
		m.RepliedAt = &repliedAt.Time
	}
	return &m, nil
}
