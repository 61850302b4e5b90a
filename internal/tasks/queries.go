package tasks

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytpod/internal/cache"
	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/services"
	"github.com/desertthunder/ytpod/internal/shared"
)

// Queries are cached reads of backend resources.
type Queries struct {
	svc    services.Service
	store  *cache.Store
	now    func() time.Time
	logger *log.Logger
}

// NewQueries creates queries over svc sharing store with the [Mutations] that invalidate it.
func NewQueries(svc services.Service, store *cache.Store, logger *log.Logger) *Queries {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Queries{svc: svc, store: store, now: time.Now, logger: logger}
}

func (q *Queries) Store() *cache.Store       { return q.store }
func (q *Queries) Service() services.Service { return q.svc }

func (q *Queries) Usage(ctx context.Context) (*models.Usage, error) {
	return cache.Fetch(ctx, q.store, cache.Usage(), q.fetchUsage)
}

func (q *Queries) fetchUsage(ctx context.Context) (*models.Usage, error) {
	return q.svc.Usage(ctx, q.now())
}

func (q *Queries) Jobs(ctx context.Context) ([]models.Job, error) {
	return cache.Fetch(ctx, q.store, cache.Jobs(), q.svc.Jobs)
}

func (q *Queries) Items(ctx context.Context, podcastID string) ([]models.Item, error) {
	return cache.Fetch(ctx, q.store, cache.Items(podcastID), q.fetchItems(podcastID))
}

func (q *Queries) fetchItems(podcastID string) func(context.Context) ([]models.Item, error) {
	return func(ctx context.Context) ([]models.Item, error) {
		return q.svc.Items(ctx, podcastID)
	}
}

func (q *Queries) Podcasts(ctx context.Context) ([]models.Podcast, error) {
	return cache.Fetch(ctx, q.store, cache.Podcasts(), q.svc.Podcasts)
}

func (q *Queries) Podcast(ctx context.Context, id string) (*models.Podcast, error) {
	return cache.Fetch(ctx, q.store, cache.Podcast(id), func(ctx context.Context) (*models.Podcast, error) {
		return q.svc.Podcast(ctx, id)
	})
}

func (q *Queries) APIKeys(ctx context.Context) ([]models.APIKey, error) {
	return cache.Fetch(ctx, q.store, cache.APIKeys(), q.svc.APIKeys)
}

func (q *Queries) Webhook(ctx context.Context) (*models.Webhook, error) {
	return cache.Fetch(ctx, q.store, cache.Webhook(), q.svc.Webhook)
}

func (q *Queries) WebhookEvents(ctx context.Context) ([]models.WebhookEvent, error) {
	return cache.Fetch(ctx, q.store, cache.WebhookEvents(), q.svc.WebhookEvents)
}

// WatchOpts are the shared settings of the Watch* pollers.
type WatchOpts struct {
	Interval time.Duration
	Errors   *ErrorHandler
	Progress chan<- ProgressUpdate
}

// WatchJobs polls the jobs list while any job is still converting.
func (q *Queries) WatchJobs(opts WatchOpts, onUpdate func([]models.Job)) *Poller[models.Job] {
	return NewPoller(PollerOpts[models.Job]{
		Key:      cache.Jobs(),
		Store:    q.store,
		Fetch:    q.svc.Jobs,
		Pending:  models.NonTerminal[models.Job],
		Interval: opts.Interval,
		Errors:   opts.Errors,
		OnUpdate: onUpdate,
		Progress: opts.Progress,
		Phase:    PollJobs,
		Logger:   shared.WithLogger(q.logger, "poller", "jobs"),
	})
}

// WatchItems polls a podcast's episodes while any is still processing.
func (q *Queries) WatchItems(podcastID string, opts WatchOpts, onUpdate func([]models.Item)) *Poller[models.Item] {
	return NewPoller(PollerOpts[models.Item]{
		Key:      cache.Items(podcastID),
		Store:    q.store,
		Fetch:    q.fetchItems(podcastID),
		Pending:  models.NonTerminal[models.Item],
		Interval: opts.Interval,
		Errors:   opts.Errors,
		OnUpdate: onUpdate,
		Progress: opts.Progress,
		Phase:    PollItems,
		Logger:   shared.WithLogger(q.logger, "poller", "items", "podcast", podcastID),
	})
}

// WatchWebhookEvents polls webhook deliveries while any is still active.
func (q *Queries) WatchWebhookEvents(opts WatchOpts, onUpdate func([]models.WebhookEvent)) *Poller[models.WebhookEvent] {
	return NewPoller(PollerOpts[models.WebhookEvent]{
		Key:      cache.WebhookEvents(),
		Store:    q.store,
		Fetch:    q.svc.WebhookEvents,
		Pending:  models.NonTerminal[models.WebhookEvent],
		Interval: opts.Interval,
		Errors:   opts.Errors,
		OnUpdate: onUpdate,
		Progress: opts.Progress,
		Phase:    PollWebhookEvents,
		Logger:   shared.WithLogger(q.logger, "poller", "webhook_events"),
	})
}
