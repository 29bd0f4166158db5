package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"unifimon/internal/api"
	"unifimon/internal/extract"
	"unifimon/internal/metrics"
	"unifimon/internal/model"
)

// ErrPollInProgress is returned when Poll is called while another poll is in
// flight. The call is dropped, not queued.
var ErrPollInProgress = errors.New("poll already in progress")

// Fetcher returns the raw aggregated-dashboard document for a site.
type Fetcher interface {
	AggregatedDashboard(ctx context.Context, site string) ([]byte, error)
}

// Reporter receives the outcome of every completed poll. Cancelled and
// dropped polls are not reported.
type Reporter interface {
	PollFailed(kind model.FailureKind, err error)
	PollSucceeded(snap model.Snapshot)
}

// Config selects what to poll.
type Config struct {
	Site     string
	WANIndex int
}

// Poller runs one poll cycle per call and publishes the resulting snapshot.
type Poller struct {
	fetcher  Fetcher
	cfg      Config
	reporter Reporter
	now      func() time.Time

	busy atomic.Bool
	snap atomic.Pointer[model.Snapshot]

	mu          sync.Mutex
	subscribers []func(model.Snapshot)
}

// New constructs a poller. The published snapshot starts as
// model.EmptySnapshot.
func New(fetcher Fetcher, cfg Config, reporter Reporter) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		cfg:      cfg,
		reporter: reporter,
		now:      time.Now,
	}
	empty := model.EmptySnapshot()
	p.snap.Store(&empty)
	return p
}

// Snapshot returns the most recently published snapshot.
func (p *Poller) Snapshot() model.Snapshot {
	return *p.snap.Load()
}

// Subscribe registers fn to be called with every newly published snapshot.
// fn runs on the polling goroutine and should not block.
func (p *Poller) Subscribe(fn func(model.Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

// Poll performs one round trip to the gateway. On any failure the previously
// published snapshot is kept.
func (p *Poller) Poll(ctx context.Context) error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrPollInProgress
	}
	defer p.busy.Store(false)

	body, err := p.fetcher.AggregatedDashboard(ctx, p.cfg.Site)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.fail(err)
		return err
	}

	sample, err := extract.Parse(body, p.cfg.WANIndex)
	if err != nil {
		p.fail(err)
		return err
	}

	// A poll cancelled during shutdown must not publish.
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := metrics.Derive(sample, p.now())
	p.snap.Store(&snap)

	if p.reporter != nil {
		p.reporter.PollSucceeded(snap)
	}
	p.mu.Lock()
	subs := append([]func(model.Snapshot){}, p.subscribers...)
	p.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
	return nil
}

func (p *Poller) fail(err error) {
	if p.reporter == nil {
		return
	}
	p.reporter.PollFailed(Classify(err), err)
}

// Classify maps a poll error to its failure kind. Unknown errors count as
// network failures.
func Classify(err error) model.FailureKind {
	var statusErr *api.StatusError
	var decodeErr *extract.DecodeError
	switch {
	case errors.As(err, &statusErr):
		return model.FailureHTTPStatus
	case errors.As(err, &decodeErr):
		return model.FailureDecode
	default:
		return model.FailureNetwork
	}
}
