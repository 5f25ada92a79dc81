package directory

import (
	"context"

	"github.com/jackiedee967/episoda-sub002/internal/models"
)

// DirectoryInterface defines the identity and follow-graph lookups the
// editor and resolver depend on.
type DirectoryInterface interface {
	// Following returns the ids of every user the viewer follows. Used for
	// suggestion ranking only, never for access control.
	Following(ctx context.Context, viewerID string) ([]string, error)

	// SearchCandidates returns ranked autocomplete candidates for a mention
	// search term: followed users first, then username order, viewer
	// excluded, capped. It degrades rather than fails; the worst case is an
	// empty list.
	SearchCandidates(ctx context.Context, term, viewerID string, following []string) ([]models.CandidateUser, error)

	// ResolveUsernames maps usernames to user ids, returning only the ones
	// that exist.
	ResolveUsernames(ctx context.Context, usernames []string) (map[string]string, error)
}
