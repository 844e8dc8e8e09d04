package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/outreach-cli/internal/model"
)

func TestScore_WorkedExample(t *testing.T) {
	// industry 30 + location 20 + rating>=4.0 15 + phone 15 = 80, with no
	// email, facebook, website, or operational status points.
	c := &model.Candidate{
		Industry: "plumber",
		Location: "123 Main St, Springfield, IL, USA",
		Rating:   4.2,
		Phone:    "+15551234567",
	}
	crit := Criteria{
		IdealIndustries: []string{"Plumber"},
		SearchLocations: []string{"Springfield"},
	}
	assert.Equal(t, 80, Score(c, crit))
}

func TestScore_HighRatingWithEmail(t *testing.T) {
	// industry 30 + rating>=4.5 25 + email 20 = 75.
	c := &model.Candidate{
		Industry: "bakery",
		Rating:   4.6,
		Email:    "a@b.com",
	}
	crit := Criteria{IdealIndustries: []string{"bakery"}}
	assert.Equal(t, 75, Score(c, crit))
}

func TestScore_ClampsAt100(t *testing.T) {
	c := &model.Candidate{
		Industry:       "dentist",
		Location:       "Chicago, IL",
		Rating:         4.9,
		Email:          "info@example.com",
		Phone:          "+15550001111",
		FacebookURL:    "https://facebook.com/example",
		Website:        "https://example.com",
		BusinessStatus: "OPERATIONAL",
	}
	crit := Criteria{
		IdealIndustries: []string{"dentist"},
		SearchLocations: []string{"Chicago"},
	}
	// Raw sum is 30+20+25+20+15+10+10+10 = 140.
	assert.Equal(t, 100, Score(c, crit))
}

func TestScore_EmptyCandidate(t *testing.T) {
	assert.Equal(t, 0, Score(&model.Candidate{}, Criteria{}))
}

func TestScore_RatingBands(t *testing.T) {
	tests := []struct {
		name   string
		rating float64
		want   int
	}{
		{"top band", 4.5, 25},
		{"middle band", 4.0, 15},
		{"low band", 3.5, 10},
		{"below bands", 3.4, 0},
		{"unrated", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &model.Candidate{Rating: tt.rating}
			assert.Equal(t, tt.want, Score(c, Criteria{}))
		})
	}
}

func TestScore_IndustryMatchKeywordInIndustry(t *testing.T) {
	crit := Criteria{IdealIndustries: []string{"plumbing"}}

	assert.Equal(t, 30, Score(&model.Candidate{Industry: "plumbing contractor"}, crit))
	// The whole keyword must appear in the candidate's industry; a candidate
	// industry that is merely a prefix of the keyword does not match.
	assert.Equal(t, 0, Score(&model.Candidate{Industry: "plumb"}, crit))
	assert.Equal(t, 0, Score(&model.Candidate{Industry: "electrician"}, crit))
	assert.Equal(t, 0, Score(&model.Candidate{Industry: ""}, crit))
}

func TestScore_Deterministic(t *testing.T) {
	c := &model.Candidate{
		Industry: "roofing",
		Rating:   4.7,
		Phone:    "+15552223333",
		Website:  "https://roof.example",
	}
	crit := Criteria{IdealIndustries: []string{"roofing"}}

	first := Score(c, crit)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(c, crit))
	}
}
