package directory

import (
	"context"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/places"
)

// genericTypes are provider categories too broad to describe an industry.
var genericTypes = map[string]bool{
	"establishment":     true,
	"point_of_interest": true,
	"food":              true,
	"store":             true,
}

// PlacesAdapter searches the Google Places directory.
type PlacesAdapter struct {
	client places.Client
	region string
	logger *zap.Logger
}

// NewPlacesAdapter creates a Places-backed adapter. region is the ISO country
// code assumed for phone numbers without an international prefix.
func NewPlacesAdapter(client places.Client, region string) *PlacesAdapter {
	return &PlacesAdapter{
		client: client,
		region: region,
		logger: zap.L().With(zap.String("component", "directory.places")),
	}
}

// Name implements Adapter.
func (a *PlacesAdapter) Name() string { return "places" }

// Search implements Adapter. Each summary hit is enriched with a details
// lookup; hits whose details fail are skipped, not fatal.
func (a *PlacesAdapter) Search(ctx context.Context, query, location string, pageSize int) ([]model.Candidate, error) {
	resp, err := a.client.TextSearch(ctx, query, location, pageSize)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.Candidate, 0, len(resp.Results))
	for _, hit := range resp.Results {
		details, err := a.client.Details(ctx, hit.PlaceID)
		if err != nil {
			a.logger.Warn("details lookup failed, skipping place",
				zap.String("place_id", hit.PlaceID),
				zap.Error(err))
			continue
		}
		candidates = append(candidates, a.normalize(hit.PlaceID, &details.Result))
	}
	return candidates, nil
}

func (a *PlacesAdapter) normalize(placeID string, d *places.Detail) model.Candidate {
	c := model.Candidate{
		Provider:       a.Name(),
		PlaceID:        placeID,
		Name:           d.Name,
		Company:        d.Name,
		Phone:          a.normalizePhone(d.FormattedPhone),
		Website:        d.Website,
		Industry:       primaryIndustry(d.Types),
		Location:       d.FormattedAddress,
		Country:        countryFrom(d.FormattedAddress),
		Rating:         d.Rating,
		TotalRatings:   d.UserRatingsTotal,
		BusinessStatus: d.BusinessStatus,
		Categories:     strings.Join(d.Types, ","),
	}
	if isFacebookURL(d.Website) {
		c.FacebookURL = d.Website
	}
	return c
}

// normalizePhone converts a provider-formatted number to E.164. Numbers that
// fail parsing are kept as a bare digit string rather than dropped.
func (a *PlacesAdapter) normalizePhone(raw string) string {
	if raw == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, a.region)
	if err == nil && phonenumbers.IsValidNumber(num) {
		return phonenumbers.Format(num, phonenumbers.E164)
	}

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' || r == '+' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}

// primaryIndustry picks the first provider category specific enough to mean
// something, with underscores replaced for readability.
func primaryIndustry(types []string) string {
	for _, t := range types {
		if !genericTypes[t] {
			return strings.ReplaceAll(t, "_", " ")
		}
	}
	return ""
}

// countryFrom takes the last comma-separated segment of a formatted address.
func countryFrom(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-1])
}

func isFacebookURL(u string) bool {
	return strings.Contains(u, "facebook.com/")
}
