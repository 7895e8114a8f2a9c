// Package scrape is the orchestration core: the result aggregator that turns
// per-source fetch attempts into one classified snapshot, the synchronized
// store holding the current snapshot, and the poller that owns the single
// background polling job.
package scrape
