package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytpod/internal/cache"
	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/services"
)

// SessionWriter is the part of the local session a mutation updates.
type SessionWriter interface {
	SetName(name string) error
	End(ctx context.Context) error
}

// Mutations are backend writes. A failure goes through the [ErrorHandler]; a success
// invalidates the cache keys whose data it changed. Nothing is patched optimistically.
type Mutations struct {
	svc     services.Service
	store   *cache.Store
	errors  *ErrorHandler
	session SessionWriter
}

// NewMutations creates mutations. session may be nil when no account mutation is used.
func NewMutations(svc services.Service, store *cache.Store, errors *ErrorHandler, session SessionWriter) *Mutations {
	return &Mutations{svc: svc, store: store, errors: errors, session: session}
}

func (m *Mutations) fail(err error) error {
	return m.errors.Handle(err)
}

func (m *Mutations) AddYoutubeURLs(ctx context.Context, podcastID string, urls []string) error {
	if err := m.svc.AddYoutubeURLs(ctx, podcastID, urls); err != nil {
		return m.fail(err)
	}
	m.store.Invalidate(cache.AllItems(), cache.Usage())
	return nil
}

func (m *Mutations) AddAudioFiles(ctx context.Context, podcastID string, files []models.AudioFile) error {
	if err := m.svc.AddAudioFiles(ctx, podcastID, files); err != nil {
		return m.fail(err)
	}
	m.store.Invalidate(cache.AllItems(), cache.Usage())
	return nil
}

func (m *Mutations) DeleteItem(ctx context.Context, id string) error {
	if err := m.svc.DeleteItem(ctx, id); err != nil {
		return m.fail(err)
	}
	m.store.Invalidate(cache.AllItems())
	return nil
}

func (m *Mutations) CreatePodcast(ctx context.Context, in models.PodcastInput) (*models.Podcast, error) {
	p, err := m.svc.CreatePodcast(ctx, in)
	if err != nil {
		return nil, m.fail(err)
	}
	m.store.Invalidate(cache.Podcasts())
	return p, nil
}

func (m *Mutations) UpdatePodcast(ctx context.Context, id string, in models.PodcastInput) (*models.Podcast, error) {
	p, err := m.svc.UpdatePodcast(ctx, id, in)
	if err != nil {
		return nil, m.fail(err)
	}
	m.store.Invalidate(cache.Podcast(id), cache.Podcasts())
	return p, nil
}

func (m *Mutations) DeletePodcast(ctx context.Context, id string) error {
	if err := m.svc.DeletePodcast(ctx, id); err != nil {
		return m.fail(err)
	}
	m.store.Invalidate(cache.Podcasts())
	return nil
}

func (m *Mutations) SetShareURL(ctx context.Context, podcastID string, platform models.Platform, url string) error {
	if err := m.svc.SetShareURL(ctx, podcastID, platform, url); err != nil {
		return m.fail(err)
	}
	m.store.Invalidate(cache.Podcast(podcastID), cache.Podcasts())
	return nil
}

func (m *Mutations) CreateJobs(ctx context.Context, urls []string) ([]models.Job, error) {
	jobs, err := m.svc.CreateJobs(ctx, urls)
	if err != nil {
		return nil, m.fail(err)
	}
	m.store.Invalidate(cache.Jobs(), cache.Usage())
	return jobs, nil
}

func (m *Mutations) GenerateAPIKey(ctx context.Context, title string) (*models.APIKey, error) {
	key, err := m.svc.GenerateAPIKey(ctx, title)
	if err != nil {
		return nil, m.fail(err)
	}
	m.store.Invalidate(cache.APIKeys())
	return key, nil
}

func (m *Mutations) RevokeAPIKey(ctx context.Context, id string) error {
	if err := m.svc.RevokeAPIKey(ctx, id); err != nil {
		return m.fail(err)
	}
	m.store.Invalidate(cache.APIKeys())
	return nil
}

func (m *Mutations) CreateWebhook(ctx context.Context, in models.WebhookInput) (*models.Webhook, error) {
	hook, err := m.svc.CreateWebhook(ctx, in)
	if err != nil {
		return nil, m.fail(err)
	}
	m.store.Invalidate(cache.Webhook(), cache.WebhookEvents())
	return hook, nil
}

func (m *Mutations) UpdateWebhook(ctx context.Context, id string, in models.WebhookInput) (*models.Webhook, error) {
	hook, err := m.svc.UpdateWebhook(ctx, id, in)
	if err != nil {
		return nil, m.fail(err)
	}
	m.store.Invalidate(cache.Webhook(), cache.WebhookEvents())
	return hook, nil
}

func (m *Mutations) DeleteWebhook(ctx context.Context, id string) error {
	if err := m.svc.DeleteWebhook(ctx, id); err != nil {
		return m.fail(err)
	}
	m.store.Invalidate(cache.Webhook(), cache.WebhookEvents())
	return nil
}

// UpdateUsername renames the account and updates the stored session name.
func (m *Mutations) UpdateUsername(ctx context.Context, name string) (*models.User, error) {
	user, err := m.svc.UpdateUsername(ctx, name)
	if err != nil {
		return nil, m.fail(err)
	}
	if m.session != nil {
		if err := m.session.SetName(user.Name); err != nil {
			return user, m.fail(fmt.Errorf("renamed account but failed to update session: %w", err))
		}
	}
	return user, nil
}

// DeleteAccount deletes the account and ends the local session.
func (m *Mutations) DeleteAccount(ctx context.Context) error {
	if err := m.svc.DeleteAccount(ctx); err != nil {
		return m.fail(err)
	}
	if m.session != nil {
		if err := m.session.End(ctx); err != nil {
			return m.fail(fmt.Errorf("deleted account but failed to end session: %w", err))
		}
	}
	return nil
}

func (m *Mutations) CreateIssue(ctx context.Context, content string, screenshots []models.Attachment) error {
	if err := m.svc.CreateIssue(ctx, content, screenshots); err != nil {
		return m.fail(err)
	}
	return nil
}

// Checkout returns the checkout URL for plan.
func (m *Mutations) Checkout(ctx context.Context, plan models.Plan) (string, error) {
	url, err := m.svc.CheckoutSession(ctx, plan)
	if err != nil {
		return "", m.fail(err)
	}
	return url, nil
}

// Portal returns the billing portal URL.
func (m *Mutations) Portal(ctx context.Context) (string, error) {
	url, err := m.svc.PortalSession(ctx)
	if err != nil {
		return "", m.fail(err)
	}
	return url, nil
}
