package domain

import (
	"context"
	"time"
)

// --- Model types ---

// Review is one review record as returned by a source scraper. The shape is
// owned by the scraper that produced it; the orchestration core treats it as
// an opaque payload and only ever moves whole slices of them around.
type Review struct {
	Author string         `json:"author,omitempty"`
	Rating float64        `json:"rating,omitempty"`
	Text   string         `json:"text"`
	Date   string         `json:"date,omitempty"`
	URL    string         `json:"url,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// Target names one source and the identifier to scrape from it.
type Target struct {
	Source     string
	Identifier string
}

// ScrapeRequest is an ordered list of scrape targets. Order is preserved so
// that per-source errors come out in a deterministic order.
type ScrapeRequest struct {
	Targets []Target
}

// Identifier returns the identifier requested for the given source, or
// ("", false) when that source was not requested.
func (r ScrapeRequest) Identifier(source string) (string, bool) {
	for _, t := range r.Targets {
		if t.Source == source {
			return t.Identifier, true
		}
	}
	return "", false
}

// Empty reports whether no targets were requested.
func (r ScrapeRequest) Empty() bool {
	return len(r.Targets) == 0
}

// --- Interfaces ---

// SourceScraper fetches reviews for one external source. Implementations make
// a single attempt per call and must return a descriptive error on any
// network or parse problem rather than swallowing it.
type SourceScraper interface {
	Name() string
	FetchReviews(ctx context.Context, identifier string) ([]Review, error)
}

// Orchestrator is the operation surface the HTTP layer drives. Implemented by
// scrape.Poller.
type Orchestrator interface {
	// RunOnce supersedes any active poll job, runs one aggregation cycle
	// synchronously and returns its snapshot.
	RunOnce(ctx context.Context, req ScrapeRequest) (*Snapshot, error)

	// StartPolling supersedes any active poll job, runs the first cycle
	// synchronously, then keeps repeating it on the given interval until
	// stopped or superseded. Returns the first cycle's snapshot.
	StartPolling(ctx context.Context, req ScrapeRequest, interval time.Duration) (*Snapshot, error)

	// StopPolling cancels the active poll job if any. Idempotent; reports
	// whether a job was actually stopped.
	StopPolling() bool

	// Latest returns the most recently completed snapshot, or the NoData
	// snapshot if no cycle has run yet.
	Latest() *Snapshot
}
