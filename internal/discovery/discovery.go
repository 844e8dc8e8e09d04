// Package discovery finds new business leads for a campaign through a
// directory adapter, deduplicates them, scores them, and persists them.
package discovery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/directory"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/scorer"
)

// maxQueries and maxLocations bound the search cross product per run.
const (
	maxQueries   = 3
	maxLocations = 3
)

// Store is the persistence surface discovery needs.
type Store interface {
	GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error)
	LeadPlaceIDs(ctx context.Context, campaignID string) (map[string]bool, error)
	SaveLeads(ctx context.Context, leads []model.Lead) error
}

// Result summarizes one discovery run.
type Result struct {
	Searches   int `json:"searches"`
	Found      int `json:"found"`
	Duplicates int `json:"duplicates"`
	Filtered   int `json:"filtered"`
	Saved      int `json:"saved"`
}

// Engine runs discovery for campaigns.
type Engine struct {
	adapter directory.Adapter
	store   Store
	limiter *rate.Limiter
	pageCap int
	logger  *zap.Logger
}

// NewEngine creates a discovery engine. adapter may be nil when no directory
// provider is configured; runs then complete successfully with zero results.
// interCallDelay paces directory API calls, pageCap is the provider's hard
// per-search result ceiling.
func NewEngine(adapter directory.Adapter, store Store, interCallDelay time.Duration, pageCap int) *Engine {
	if interCallDelay <= 0 {
		interCallDelay = time.Second
	}
	if pageCap <= 0 {
		pageCap = 20
	}
	return &Engine{
		adapter: adapter,
		store:   store,
		limiter: rate.NewLimiter(rate.Every(interCallDelay), 1),
		pageCap: pageCap,
		logger:  zap.L().With(zap.String("component", "discovery")),
	}
}

// Discover runs the campaign's search cross product, deduplicates candidates
// by directory id, scores survivors, and saves them as pending leads.
func (e *Engine) Discover(ctx context.Context, campaignID string) (*Result, error) {
	campaign, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: load campaign")
	}

	result := &Result{}
	if e.adapter == nil {
		e.logger.Warn("no directory provider configured, skipping discovery",
			zap.String("campaign_id", campaignID))
		return result, nil
	}

	queries := campaign.SearchQueries
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	locations := campaign.SearchLocations
	if len(locations) > maxLocations {
		locations = locations[:maxLocations]
	}
	if len(queries) == 0 {
		e.logger.Warn("campaign has no search queries", zap.String("campaign_id", campaignID))
		return result, nil
	}
	if len(locations) == 0 {
		locations = []string{""}
	}

	seen, err := e.store.LeadPlaceIDs(ctx, campaignID)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: load existing lead ids")
	}

	perSearch := campaign.MaxResultsPerSearch
	if perSearch <= 0 || perSearch > e.pageCap {
		perSearch = e.pageCap
	}

	criteria := scorer.Criteria{
		IdealIndustries: campaign.IdealIndustries,
		SearchLocations: campaign.SearchLocations,
	}

	now := time.Now().UTC()
	var leads []model.Lead

search:
	for _, query := range queries {
		for _, location := range locations {
			pageSize := perSearch
			if campaign.MaxResults > 0 {
				remaining := campaign.MaxResults - len(leads)
				if remaining <= 0 {
					break search
				}
				if remaining < pageSize {
					pageSize = remaining
				}
			}

			if err := e.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "discovery: rate limit wait")
			}

			result.Searches++
			candidates, err := e.adapter.Search(ctx, query, location, pageSize)
			if err != nil {
				e.logger.Warn("search failed, continuing",
					zap.String("query", query),
					zap.String("location", location),
					zap.Error(err))
				continue
			}
			result.Found += len(candidates)

			for i := range candidates {
				c := &candidates[i]
				if c.PlaceID != "" && seen[c.PlaceID] {
					result.Duplicates++
					continue
				}
				if campaign.MinRating > 0 && c.Rating < campaign.MinRating {
					result.Filtered++
					continue
				}
				if c.PlaceID != "" {
					seen[c.PlaceID] = true
				}
				leads = append(leads, e.buildLead(campaign, c, criteria, now))
				if campaign.MaxResults > 0 && len(leads) >= campaign.MaxResults {
					break
				}
			}
		}
	}

	if len(leads) > 0 {
		if err := e.store.SaveLeads(ctx, leads); err != nil {
			return nil, eris.Wrap(err, "discovery: save leads")
		}
	}
	result.Saved = len(leads)

	e.logger.Info("discovery run complete",
		zap.String("campaign_id", campaignID),
		zap.Int("searches", result.Searches),
		zap.Int("found", result.Found),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("saved", result.Saved))
	return result, nil
}

func (e *Engine) buildLead(campaign *model.Campaign, c *model.Candidate, criteria scorer.Criteria, now time.Time) model.Lead {
	return model.Lead{
		LeadID:             uuid.New().String(),
		CampaignID:         campaign.CampaignID,
		OwnerID:            campaign.OwnerID,
		Name:               c.Name,
		Company:            c.Company,
		Email:              c.Email,
		Phone:              c.Phone,
		FacebookURL:        c.FacebookURL,
		Website:            c.Website,
		Industry:           c.Industry,
		Location:           c.Location,
		Country:            c.Country,
		Source:             model.SourcePlaces,
		PlaceID:            c.PlaceID,
		Rating:             c.Rating,
		TotalRatings:       c.TotalRatings,
		BusinessStatus:     c.BusinessStatus,
		Categories:         c.Categories,
		Status:             model.LeadStatusPending,
		QualificationScore: scorer.Score(c, criteria),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
