package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pulsecraft/reviewpulse/internal/correlation"
	"github.com/pulsecraft/reviewpulse/internal/domain"
	"github.com/pulsecraft/reviewpulse/internal/metrics"
)

// DefaultStopGrace bounds how long a stop waits for the running job to
// acknowledge cancellation before proceeding anyway.
const DefaultStopGrace = 5 * time.Second

// Poller owns the lifecycle of at most one background polling job. All
// starts and stops are serialized under one mutex, and the poller is the only
// writer into the snapshot store.
type Poller struct {
	agg   *Aggregator
	store *Store
	clock clockwork.Clock
	grace time.Duration

	mu  sync.Mutex
	job *pollJob
}

// pollJob carries one polling generation. Each job owns its own cancel
// function and done channel, so a superseded job can never misread a newer
// job's cancellation state.
type pollJob struct {
	id       string
	req      domain.ScrapeRequest
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPoller creates a poller over the given aggregator and store. A zero or
// negative grace falls back to DefaultStopGrace.
func NewPoller(agg *Aggregator, store *Store, clock clockwork.Clock, grace time.Duration) *Poller {
	if grace <= 0 {
		grace = DefaultStopGrace
	}
	return &Poller{agg: agg, store: store, clock: clock, grace: grace}
}

// RunOnce supersedes any active poll job, runs one aggregation cycle
// synchronously, publishes the result and returns it.
func (p *Poller) RunOnce(ctx context.Context, req domain.ScrapeRequest) (*domain.Snapshot, error) {
	if err := p.validate(req); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked(true)

	ctx = correlation.Ensure(ctx)
	snap := p.runCycle(ctx, req)
	p.store.Set(snap)
	return snap, nil
}

// StartPolling supersedes any active poll job, runs the first cycle
// synchronously, then launches a background job repeating it on the given
// interval. It returns the first cycle's snapshot.
func (p *Poller) StartPolling(ctx context.Context, req domain.ScrapeRequest, interval time.Duration) (*domain.Snapshot, error) {
	if err := p.validate(req); err != nil {
		return nil, err
	}
	if interval <= 0 {
		return nil, domain.ErrIntervalNotPositive
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked(true)

	ctx = correlation.Ensure(ctx)
	first := p.runCycle(ctx, req)
	p.store.Set(first)

	// The job outlives the request that started it, so its context derives
	// from Background, not from ctx.
	jobCtx, cancel := context.WithCancel(context.Background())
	job := &pollJob{
		id:       uuid.NewString(),
		req:      req,
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	p.job = job
	metrics.PollJobActive.Set(1)
	go p.loop(jobCtx, job)

	slog.InfoContext(ctx, "Poll job started", "job_id", job.id, "interval", interval.String())
	return first, nil
}

// StopPolling cancels the active poll job if any. It is idempotent and
// reports whether a job was actually stopped.
func (p *Poller) StopPolling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked(false)
}

// Latest returns the most recently completed snapshot.
func (p *Poller) Latest() *domain.Snapshot {
	return p.store.Get()
}

func (p *Poller) validate(req domain.ScrapeRequest) error {
	if req.Empty() {
		return domain.ErrNoTargets
	}
	for _, t := range req.Targets {
		if !p.agg.Knows(t.Source) {
			return fmt.Errorf("%w: %s", domain.ErrUnknownSource, t.Source)
		}
	}
	return nil
}

// stopLocked cancels the current job and waits for it to acknowledge,
// bounded by the grace timeout. Callers must hold p.mu.
func (p *Poller) stopLocked(superseding bool) bool {
	if p.job == nil {
		return false
	}
	job := p.job
	p.job = nil

	job.cancel()
	select {
	case <-job.done:
		slog.Info("Poll job stopped", "job_id", job.id)
	case <-p.clock.After(p.grace):
		// Do not deadlock the caller on a stuck fetch; the job's own
		// context check keeps it from publishing a stale snapshot later.
		metrics.PollJobStopTimeouts.Inc()
		slog.Warn("Poll job did not acknowledge stop within grace period, proceeding",
			"job_id", job.id, "grace", p.grace.String())
	}
	if superseding {
		metrics.PollJobSupersessions.Inc()
	}
	metrics.PollJobActive.Set(0)
	return true
}

// loop is the polling state machine: wait for the interval or cancellation,
// whichever comes first, and run one cycle per tick. Only explicit
// cancellation ends it; a bad cycle never does.
func (p *Poller) loop(ctx context.Context, job *pollJob) {
	defer close(job.done)

	ticker := p.clock.NewTicker(job.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			cycleCtx := correlation.WithID(ctx, correlation.NewID())
			snap := p.runCycle(cycleCtx, job.req)
			if ctx.Err() != nil {
				// Superseded mid-cycle: drop the partial result instead
				// of racing the next generation's writes.
				slog.InfoContext(cycleCtx, "Poll job cancelled mid-cycle, discarding result", "job_id", job.id)
				return
			}
			p.store.Set(snap)
		}
	}
}

// runCycle executes one aggregation cycle. Anything that escapes the
// aggregator as a panic is caught here and converted into a Failed snapshot
// so the loop survives and GetLatest always has something coherent.
func (p *Poller) runCycle(ctx context.Context, req domain.ScrapeRequest) (snap *domain.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Aggregation cycle panicked", "panic", r)
			snap = domain.NewFailedSnapshot(p.agg.Sources(), p.clock.Now(), fmt.Sprintf("unexpected scraping error: %v", r))
		}
		metrics.ScrapeCyclesTotal.WithLabelValues(string(snap.Status)).Inc()
	}()

	snap = p.agg.Aggregate(ctx, req)
	slog.InfoContext(ctx, "Aggregation cycle completed", "status", snap.Status, "errors", len(snap.Errors))
	return snap
}
