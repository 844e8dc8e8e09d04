// Package leadio imports leads from operator-supplied CSV files.
package leadio

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Store persists imported leads.
type Store interface {
	SaveLeads(ctx context.Context, leads []model.Lead) error
}

// headerAliases maps accepted column names to canonical field keys. Headers
// are matched case-insensitively with surrounding whitespace ignored.
var headerAliases = map[string]string{
	"name":          "name",
	"full name":     "name",
	"contact":       "name",
	"company":       "company",
	"business":      "company",
	"organization":  "company",
	"email":         "email",
	"email address": "email",
	"phone":         "phone",
	"phone number":  "phone",
	"mobile":        "phone",
	"facebook":      "facebook",
	"facebook url":  "facebook",
	"website":       "website",
	"url":           "website",
	"industry":      "industry",
	"location":      "location",
	"city":          "location",
	"address":       "location",
	"country":       "country",
	"notes":         "notes",
}

// ImportResult summarizes one import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Importer reads CSV lead lists.
type Importer struct {
	store  Store
	logger *zap.Logger
}

// NewImporter creates a CSV importer.
func NewImporter(st Store) *Importer {
	return &Importer{
		store:  st,
		logger: zap.L().With(zap.String("component", "leadio")),
	}
}

// ImportCSV reads leads from r and saves them under the campaign. The first
// row is the header; column order is free and unknown columns are ignored.
// Rows without a name and rows without any contact field are skipped.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader, campaignID, ownerID string) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "leadio: read header")
	}

	columns := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if canonical, ok := headerAliases[key]; ok {
			if _, exists := columns[canonical]; !exists {
				columns[canonical] = i
			}
		}
	}
	if _, ok := columns["name"]; !ok {
		return nil, eris.New("leadio: csv has no name column")
	}

	result := &ImportResult{}
	now := time.Now().UTC()
	var leads []model.Lead

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			im.logger.Warn("skipping malformed row", zap.Int("line", line), zap.Error(err))
			result.Skipped++
			continue
		}

		get := func(key string) string {
			i, ok := columns[key]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		name := get("name")
		phone := cleanPhone(get("phone"))
		email := get("email")
		facebook := get("facebook")
		if name == "" || (phone == "" && email == "" && facebook == "") {
			result.Skipped++
			continue
		}

		company := get("company")
		if company == "" {
			company = name
		}

		leads = append(leads, model.Lead{
			LeadID:      uuid.New().String(),
			CampaignID:  campaignID,
			OwnerID:     ownerID,
			Name:        name,
			Company:     company,
			Email:       email,
			Phone:       phone,
			FacebookURL: facebook,
			Website:     get("website"),
			Industry:    get("industry"),
			Location:    get("location"),
			Country:     get("country"),
			Notes:       get("notes"),
			Source:      model.SourceCSV,
			Status:      model.LeadStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if len(leads) > 0 {
		if err := im.store.SaveLeads(ctx, leads); err != nil {
			return nil, eris.Wrap(err, "leadio: save leads")
		}
	}
	result.Imported = len(leads)

	im.logger.Info("csv import complete",
		zap.String("campaign_id", campaignID),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// cleanPhone strips formatting, keeping digits and a leading plus.
func cleanPhone(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' || r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
