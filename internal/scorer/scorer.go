// Package scorer computes deterministic qualification scores for candidates.
package scorer

import (
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Criteria are the campaign-level preferences a candidate is scored against.
type Criteria struct {
	IdealIndustries []string
	SearchLocations []string
}

// Score rates a candidate from 0 to 100. Scoring is additive and pure: the
// same candidate and criteria always produce the same score.
//
//	industry match          +30
//	location match          +20
//	rating >= 4.5           +25  (>= 4.0 +15, >= 3.5 +10)
//	has email               +20
//	has phone               +15
//	has facebook            +10
//	has website             +10
//	operational status      +10
func Score(c *model.Candidate, crit Criteria) int {
	score := 0

	industry := strings.ToLower(c.Industry)
	for _, ideal := range crit.IdealIndustries {
		ideal = strings.ToLower(ideal)
		if ideal != "" && strings.Contains(industry, ideal) {
			score += 30
			break
		}
	}

	location := strings.ToLower(c.Location)
	for _, loc := range crit.SearchLocations {
		if loc != "" && strings.Contains(location, strings.ToLower(loc)) {
			score += 20
			break
		}
	}

	switch {
	case c.Rating >= 4.5:
		score += 25
	case c.Rating >= 4.0:
		score += 15
	case c.Rating >= 3.5:
		score += 10
	}

	if c.Email != "" {
		score += 20
	}
	if c.Phone != "" {
		score += 15
	}
	if c.FacebookURL != "" {
		score += 10
	}
	if c.Website != "" {
		score += 10
	}
	if c.BusinessStatus == "OPERATIONAL" {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}
