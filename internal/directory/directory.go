// Package directory adapts external business directories to a provider-neutral
// search interface. Each adapter normalizes provider records into candidates.
package directory

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Adapter searches one external directory and returns normalized candidates.
type Adapter interface {
	// Name identifies the provider, recorded on every candidate it produces.
	Name() string
	// Search runs one directory query scoped to a location. pageSize caps the
	// number of results; the provider may return fewer.
	Search(ctx context.Context, query, location string, pageSize int) ([]model.Candidate, error)
}
