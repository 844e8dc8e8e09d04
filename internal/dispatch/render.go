package dispatch

import (
	"strconv"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Fields are the substitution values available to message templates.
type Fields struct {
	Name     string
	Company  string
	Industry string
	Location string
	Rating   float64
}

// Render substitutes the bracketed placeholders [Name], [Company], [Industry],
// [Location] and [Rating] in a template. Unknown placeholders pass through
// untouched. A zero rating renders as the empty string.
func Render(template string, f Fields) string {
	rating := ""
	if f.Rating > 0 {
		rating = strconv.FormatFloat(f.Rating, 'f', 1, 64)
	}
	r := strings.NewReplacer(
		"[Name]", f.Name,
		"[Company]", f.Company,
		"[Industry]", f.Industry,
		"[Location]", f.Location,
		"[Rating]", rating,
	)
	return r.Replace(template)
}

// fieldsFor builds substitution values from a lead. Chat channels address the
// lead by first name only.
func fieldsFor(lead *model.Lead, firstNameOnly bool) Fields {
	name := lead.Name
	if firstNameOnly {
		name = lead.FirstName()
	}
	return Fields{
		Name:     name,
		Company:  lead.Company,
		Industry: lead.Industry,
		Location: lead.Location,
		Rating:   lead.Rating,
	}
}
