package tasks

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytpod/internal/cache"
	"github.com/desertthunder/ytpod/internal/shared"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 3 * time.Second

// PollState is the state of a [Poller].
type PollState int

const (
	PollIdle PollState = iota
	PollFetching
	PollScheduled
)

func (s PollState) String() string {
	switch s {
	case PollIdle:
		return "idle"
	case PollFetching:
		return "fetching"
	case PollScheduled:
		return "scheduled"
	default:
		return ""
	}
}

// NextDelay decides whether records need another fetch. It returns interval and true while any
// record satisfies pending, and false for an empty collection or one that has fully settled.
func NextDelay[T any](records []T, pending func(T) bool, interval time.Duration) (time.Duration, bool) {
	for _, r := range records {
		if pending(r) {
			return interval, true
		}
	}
	return 0, false
}

// PollerOpts configures a [Poller].
type PollerOpts[T any] struct {
	Key      cache.Key
	Store    *cache.Store // optional; when set, fetches go through the cache and invalidations wake the poller
	Fetch    func(ctx context.Context) ([]T, error)
	Pending  func(T) bool
	Interval time.Duration
	Errors   *ErrorHandler
	OnUpdate func([]T)
	Progress chan<- ProgressUpdate
	Phase    Phase
	Logger   *log.Logger
}

// Poller refetches a collection while any of its records is still in progress.
//
// Each cycle fetches once and decides from the latest payload whether to schedule another fetch.
// Fetches never overlap. Once idle, the poller sleeps until the cache key is invalidated.
type Poller[T any] struct {
	opts PollerOpts[T]

	mu        sync.Mutex
	state     PollState
	records   []T
	succeeded bool
	polling   bool
}

// NewPoller creates a poller. Run starts it.
func NewPoller[T any](opts PollerOpts[T]) *Poller[T] {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	return &Poller[T]{opts: opts}
}

func (p *Poller[T]) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Records returns the latest successful payload.
func (p *Poller[T]) Records() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.records
}

func (p *Poller[T]) setState(s PollState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.opts.Logger.Debug("poller state", "key", p.opts.Key.String(), "state", s)
}

func (p *Poller[T]) fetch(ctx context.Context) ([]T, error) {
	if p.opts.Store == nil {
		return p.opts.Fetch(ctx)
	}
	return cache.Refresh(ctx, p.opts.Store, p.opts.Key, p.opts.Fetch)
}

// Step performs one fetch and returns whether another fetch should be scheduled.
func (p *Poller[T]) Step(ctx context.Context) bool {
	p.setState(PollFetching)
	records, err := p.fetch(ctx)

	p.mu.Lock()
	if err != nil {
		if !p.succeeded {
			p.polling = true
		}
		poll := p.polling
		p.mu.Unlock()

		if ctx.Err() == nil {
			p.opts.Errors.Handle(err)
			if poll && !IsExpectedCancellation(err) {
				sendProgress(p.opts.Progress, pollRetryUpdate(p.opts.Phase, err))
			}
		}
		return poll
	}

	_, poll := NextDelay(records, p.opts.Pending, p.opts.Interval)
	p.records = records
	p.succeeded = true
	p.polling = poll
	p.mu.Unlock()

	done := 0
	for _, r := range records {
		if !p.opts.Pending(r) {
			done++
		}
	}
	if p.opts.OnUpdate != nil {
		p.opts.OnUpdate(records)
	}
	sendProgress(p.opts.Progress, pollUpdate(p.opts.Phase, done, len(records), records))
	return poll
}

// Run polls until ctx is done. It returns nil on cancellation.
func (p *Poller[T]) Run(ctx context.Context) error {
	var wake <-chan struct{}
	if p.opts.Store != nil {
		ch, unsubscribe := p.opts.Store.Subscribe(p.opts.Key)
		defer unsubscribe()
		wake = ch
	}
	defer p.setState(PollIdle)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if p.Step(ctx) {
			p.setState(PollScheduled)
			timer := time.NewTimer(p.opts.Interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-wake:
				timer.Stop()
			case <-timer.C:
			}
			continue
		}

		p.setState(PollIdle)
		select {
		case <-ctx.Done():
			return nil
		case <-wake:
		}
	}
}
