package server

import (
	"time"

	"github.com/pulsecraft/reviewpulse/internal/domain"
)

// snapshotPayload renders a snapshot with the wire-stable field names:
// timestamp (RFC3339 UTC), status, errors, and one "<source>_reviews" array
// per source.
func snapshotPayload(snap *domain.Snapshot) map[string]any {
	payload := map[string]any{
		"timestamp": snap.Timestamp.UTC().Format(time.RFC3339),
		"status":    string(snap.Status),
		"errors":    snap.Errors,
	}
	for source, reviews := range snap.Results {
		if reviews == nil {
			reviews = []domain.Review{}
		}
		payload[source+"_reviews"] = reviews
	}
	return payload
}
