// Package server is the thin HTTP layer: it translates query parameters into
// orchestrator calls and snapshots into JSON. No scraping logic lives here.
package server
