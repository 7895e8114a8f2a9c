package domain

import "time"

// Status classifies the outcome of one aggregation cycle. The string values
// are wire-stable and must not change.
type Status string

const (
	// StatusNoData means no source was requested this cycle (or no cycle
	// has run yet).
	StatusNoData Status = "no_data"
	// StatusSuccess means every requested source returned cleanly.
	StatusSuccess Status = "success"
	// StatusPartialSuccess means at least one source failed while another
	// produced records.
	StatusPartialSuccess Status = "partial_success"
	// StatusFailed means every requested source failed and no records were
	// collected.
	StatusFailed Status = "failed"
)

// SourceOutcome is the result of one fetch attempt for one source. Exactly
// one of Reviews or Err is meaningful.
type SourceOutcome struct {
	Source  string
	Reviews []Review
	Err     error
}

// Failed reports whether this outcome is an error outcome.
func (o SourceOutcome) Failed() bool {
	return o.Err != nil
}

// Snapshot is the immutable merged result of one aggregation cycle. The
// store only ever replaces the current snapshot, never mutates one in place.
type Snapshot struct {
	Timestamp time.Time
	Results   map[string][]Review
	Status    Status
	Errors    []string
}

// NewNoDataSnapshot returns the snapshot served before any cycle has run.
// Every known source gets an empty (non-nil) review list so serialization is
// stable.
func NewNoDataSnapshot(sources []string, now time.Time) *Snapshot {
	results := make(map[string][]Review, len(sources))
	for _, s := range sources {
		results[s] = []Review{}
	}
	return &Snapshot{
		Timestamp: now.UTC(),
		Results:   results,
		Status:    StatusNoData,
		Errors:    []string{},
	}
}

// NewFailedSnapshot returns a snapshot for a cycle that blew up before any
// per-source outcome could be collected. Every source gets an empty list and
// the generic message becomes the single error entry.
func NewFailedSnapshot(sources []string, now time.Time, message string) *Snapshot {
	results := make(map[string][]Review, len(sources))
	for _, s := range sources {
		results[s] = []Review{}
	}
	return &Snapshot{
		Timestamp: now.UTC(),
		Results:   results,
		Status:    StatusFailed,
		Errors:    []string{message},
	}
}
