package scrape

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/pulsecraft/reviewpulse/internal/domain"
)

// Aggregator runs one fetch per requested source and merges the outcomes
// into a single snapshot. It holds no mutable state: everything it produces
// is in the returned value.
//
// The scraper order given at construction is the canonical source order; the
// Errors slice of every snapshot follows it regardless of which fetch
// finished first.
type Aggregator struct {
	scrapers []domain.SourceScraper
	clock    clockwork.Clock
}

// NewAggregator creates an aggregator over the given scrapers. Scraper order
// fixes the error ordering of every snapshot it produces.
func NewAggregator(clock clockwork.Clock, scrapers ...domain.SourceScraper) *Aggregator {
	return &Aggregator{scrapers: scrapers, clock: clock}
}

// Sources returns the registered source names in declaration order.
func (a *Aggregator) Sources() []string {
	names := make([]string, len(a.scrapers))
	for i, s := range a.scrapers {
		names[i] = s.Name()
	}
	return names
}

// Knows reports whether a scraper is registered for the given source.
func (a *Aggregator) Knows(source string) bool {
	for _, s := range a.scrapers {
		if s.Name() == source {
			return true
		}
	}
	return false
}

// Aggregate performs one cycle: each requested source is fetched exactly
// once, failures are isolated per source, and the outcomes are classified
// into a snapshot. Sources are fetched concurrently but collected in
// declaration order.
func (a *Aggregator) Aggregate(ctx context.Context, req domain.ScrapeRequest) *domain.Snapshot {
	outcomes := make([]*domain.SourceOutcome, len(a.scrapers))

	g, gctx := errgroup.WithContext(ctx)
	for i, sc := range a.scrapers {
		i, sc := i, sc
		identifier, requested := req.Identifier(sc.Name())
		if !requested {
			continue
		}
		g.Go(func() error {
			outcomes[i] = a.fetchOne(gctx, sc, identifier)
			return nil
		})
	}
	// Fetch errors travel as data inside the outcomes, never as goroutine
	// errors, so Wait only synchronizes.
	_ = g.Wait()

	return a.classify(ctx, outcomes)
}

// fetchOne runs a single fetch attempt. A panicking scraper is contained
// here so it cannot take the other source, or the cycle, down with it.
func (a *Aggregator) fetchOne(ctx context.Context, sc domain.SourceScraper, identifier string) (out *domain.SourceOutcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Scraper panicked", "source", sc.Name(), "panic", r)
			out = &domain.SourceOutcome{Source: sc.Name(), Err: fmt.Errorf("%s scraper panicked: %v", sc.Name(), r)}
		}
	}()

	reviews, err := sc.FetchReviews(ctx, identifier)
	if err != nil {
		slog.WarnContext(ctx, "Source fetch failed", "source", sc.Name(), "error", err)
		return &domain.SourceOutcome{Source: sc.Name(), Err: err}
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return &domain.SourceOutcome{Source: sc.Name(), Reviews: reviews}
}

// classify applies the four-way status rules to the collected outcomes.
func (a *Aggregator) classify(ctx context.Context, outcomes []*domain.SourceOutcome) *domain.Snapshot {
	results := make(map[string][]domain.Review, len(a.scrapers))
	for _, sc := range a.scrapers {
		results[sc.Name()] = []domain.Review{}
	}

	var (
		requested    int
		errs         = []string{}
		totalReviews int
	)
	for _, out := range outcomes {
		if out == nil {
			continue
		}
		requested++
		if out.Failed() {
			errs = append(errs, fmt.Sprintf("%s scraping failed: %v", out.Source, out.Err))
			continue
		}
		results[out.Source] = out.Reviews
		totalReviews += len(out.Reviews)
	}

	status := domain.StatusSuccess
	switch {
	case requested == 0:
		status = domain.StatusNoData
	case len(errs) > 0 && totalReviews == 0:
		status = domain.StatusFailed
	case len(errs) > 0:
		status = domain.StatusPartialSuccess
	}

	snap := &domain.Snapshot{
		Timestamp: a.clock.Now().UTC(),
		Results:   results,
		Status:    status,
		Errors:    errs,
	}
	slog.DebugContext(ctx, "Classified cycle", "requested", requested, "reviews", totalReviews, "status", status)
	return snap
}
