package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecraft/reviewpulse/internal/domain"
)

type mockScraper struct {
	name    string
	fetchFn func(ctx context.Context, identifier string) ([]domain.Review, error)
}

func (m *mockScraper) Name() string { return m.name }

func (m *mockScraper) FetchReviews(ctx context.Context, identifier string) ([]domain.Review, error) {
	return m.fetchFn(ctx, identifier)
}

func staticScraper(name string, reviews []domain.Review, err error) *mockScraper {
	return &mockScraper{
		name: name,
		fetchFn: func(context.Context, string) ([]domain.Review, error) {
			return reviews, err
		},
	}
}

func someReviews(n int) []domain.Review {
	reviews := make([]domain.Review, n)
	for i := range reviews {
		reviews[i] = domain.Review{Author: "a", Text: "t"}
	}
	return reviews
}

func requestFor(sources ...string) domain.ScrapeRequest {
	req := domain.ScrapeRequest{}
	for _, s := range sources {
		req.Targets = append(req.Targets, domain.Target{Source: s, Identifier: "id-" + s})
	}
	return req
}

func TestAggregate_NoTargetsIsNoData(t *testing.T) {
	agg := NewAggregator(clockwork.NewFakeClock(),
		staticScraper("siteA", someReviews(1), nil),
		staticScraper("siteB", someReviews(1), nil),
	)

	snap := agg.Aggregate(context.Background(), domain.ScrapeRequest{})

	assert.Equal(t, domain.StatusNoData, snap.Status)
	assert.Empty(t, snap.Errors)
	assert.Empty(t, snap.Results["siteA"])
	assert.Empty(t, snap.Results["siteB"])
}

func TestAggregate_SingleSourceSuccess(t *testing.T) {
	agg := NewAggregator(clockwork.NewFakeClock(),
		staticScraper("siteA", someReviews(3), nil),
		staticScraper("siteB", nil, errors.New("should not be called")),
	)

	snap := agg.Aggregate(context.Background(), requestFor("siteA"))

	assert.Equal(t, domain.StatusSuccess, snap.Status)
	assert.Len(t, snap.Results["siteA"], 3)
	assert.Empty(t, snap.Results["siteB"], "absent source stays empty")
	assert.Empty(t, snap.Errors)
}

func TestAggregate_SuccessWithZeroRecordsIsStillSuccess(t *testing.T) {
	agg := NewAggregator(clockwork.NewFakeClock(),
		staticScraper("siteA", []domain.Review{}, nil),
		staticScraper("siteB", someReviews(2), nil),
	)

	snap := agg.Aggregate(context.Background(), requestFor("siteA", "siteB"))

	assert.Equal(t, domain.StatusSuccess, snap.Status)
	assert.Empty(t, snap.Errors)
}

func TestAggregate_PartialSuccess(t *testing.T) {
	agg := NewAggregator(clockwork.NewFakeClock(),
		staticScraper("siteA", someReviews(3), nil),
		staticScraper("siteB", nil, errors.New("connection refused")),
	)

	snap := agg.Aggregate(context.Background(), requestFor("siteA", "siteB"))

	assert.Equal(t, domain.StatusPartialSuccess, snap.Status)
	assert.Len(t, snap.Results["siteA"], 3)
	assert.Empty(t, snap.Results["siteB"])
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "siteB scraping failed: connection refused", snap.Errors[0])
}

func TestAggregate_AllFailed(t *testing.T) {
	agg := NewAggregator(clockwork.NewFakeClock(),
		staticScraper("siteA", nil, errors.New("boom A")),
		staticScraper("siteB", nil, errors.New("boom B")),
	)

	snap := agg.Aggregate(context.Background(), requestFor("siteA", "siteB"))

	assert.Equal(t, domain.StatusFailed, snap.Status)
	assert.Empty(t, snap.Results["siteA"])
	assert.Empty(t, snap.Results["siteB"])
	require.Len(t, snap.Errors, 2)
	// Declaration order, not completion order.
	assert.Equal(t, "siteA scraping failed: boom A", snap.Errors[0])
	assert.Equal(t, "siteB scraping failed: boom B", snap.Errors[1])
}

func TestAggregate_ErrorWithOnlyEmptySuccessIsFailed(t *testing.T) {
	agg := NewAggregator(clockwork.NewFakeClock(),
		staticScraper("siteA", []domain.Review{}, nil),
		staticScraper("siteB", nil, errors.New("boom")),
	)

	snap := agg.Aggregate(context.Background(), requestFor("siteA", "siteB"))

	// No records were collected at all, so the cycle counts as failed.
	assert.Equal(t, domain.StatusFailed, snap.Status)
	require.Len(t, snap.Errors, 1)
}

func TestAggregate_PanicIsIsolatedPerSource(t *testing.T) {
	panicky := &mockScraper{
		name: "siteA",
		fetchFn: func(context.Context, string) ([]domain.Review, error) {
			panic("unexpected nil dereference")
		},
	}
	agg := NewAggregator(clockwork.NewFakeClock(),
		panicky,
		staticScraper("siteB", someReviews(2), nil),
	)

	snap := agg.Aggregate(context.Background(), requestFor("siteA", "siteB"))

	assert.Equal(t, domain.StatusPartialSuccess, snap.Status)
	assert.Len(t, snap.Results["siteB"], 2, "panic in one source must not prevent the other")
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "siteA scraper panicked")
}

func TestAggregate_ErrorOrderDeterministicUnderConcurrency(t *testing.T) {
	// siteA is slow, siteB fails immediately; siteA's error must still come
	// first.
	slow := &mockScraper{
		name: "siteA",
		fetchFn: func(context.Context, string) ([]domain.Review, error) {
			time.Sleep(30 * time.Millisecond)
			return nil, errors.New("slow failure")
		},
	}
	agg := NewAggregator(clockwork.NewFakeClock(),
		slow,
		staticScraper("siteB", nil, errors.New("fast failure")),
	)

	snap := agg.Aggregate(context.Background(), requestFor("siteA", "siteB"))

	require.Len(t, snap.Errors, 2)
	assert.Equal(t, "siteA scraping failed: slow failure", snap.Errors[0])
	assert.Equal(t, "siteB scraping failed: fast failure", snap.Errors[1])
}

func TestAggregate_TimestampComesFromClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	agg := NewAggregator(clock, staticScraper("siteA", someReviews(1), nil))

	snap := agg.Aggregate(context.Background(), requestFor("siteA"))

	assert.Equal(t, clock.Now().UTC(), snap.Timestamp)
}
