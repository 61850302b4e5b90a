// package services defines interface Service for the podcast backend and its PocketBase implementation
package services

import (
	"context"
	"io"
	"time"

	"github.com/desertthunder/ytpod/internal/models"
)

// Service defines the typed operations of the podcast backend used by the commands and the TUI.
type Service interface {
	// Podcasts returns the user's podcasts, newest first.
	Podcasts(ctx context.Context) ([]models.Podcast, error)
	Podcast(ctx context.Context, id string) (*models.Podcast, error)
	CreatePodcast(ctx context.Context, in models.PodcastInput) (*models.Podcast, error)
	UpdatePodcast(ctx context.Context, id string, in models.PodcastInput) (*models.Podcast, error)
	DeletePodcast(ctx context.Context, id string) error

	// ShareURL asks the backend for a directory link. An empty string means the user must submit the feed manually.
	ShareURL(ctx context.Context, podcastID string, platform models.Platform) (string, error)
	// SetShareURL stores a manually obtained directory link on the podcast.
	SetShareURL(ctx context.Context, podcastID string, platform models.Platform, url string) error

	// Items returns a podcast's episodes, newest first.
	Items(ctx context.Context, podcastID string) ([]models.Item, error)
	AddYoutubeURLs(ctx context.Context, podcastID string, urls []string) error
	AddAudioFiles(ctx context.Context, podcastID string, files []models.AudioFile) error
	DeleteItem(ctx context.Context, id string) error

	Jobs(ctx context.Context) ([]models.Job, error)
	// CreateJobs creates one job per URL sharing a freshly generated batch id.
	CreateJobs(ctx context.Context, urls []string) ([]models.Job, error)

	// Usage returns the usage record whose billing cycle has not ended at now.
	Usage(ctx context.Context, now time.Time) (*models.Usage, error)
	Tiers(ctx context.Context) ([]models.SubscriptionTier, error)

	// Webhook returns the user's webhook or nil when there is none.
	Webhook(ctx context.Context) (*models.Webhook, error)
	CreateWebhook(ctx context.Context, in models.WebhookInput) (*models.Webhook, error)
	UpdateWebhook(ctx context.Context, id string, in models.WebhookInput) (*models.Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
	WebhookEvents(ctx context.Context) ([]models.WebhookEvent, error)

	APIKeys(ctx context.Context) ([]models.APIKey, error)
	// GenerateAPIKey returns the created key with its plaintext value, which is never readable again.
	GenerateAPIKey(ctx context.Context, title string) (*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error

	CheckoutSession(ctx context.Context, plan models.Plan) (string, error)
	PortalSession(ctx context.Context) (string, error)

	UpdateUsername(ctx context.Context, name string) (*models.User, error)
	DeleteAccount(ctx context.Context) error
	CreateIssue(ctx context.Context, content string, screenshots []models.Attachment) error

	// FeedURL returns the public RSS URL of p, or "" before the feed file exists.
	FeedURL(p *models.Podcast) string
	FileURL(ref models.FileRef, download bool) string
	DownloadFile(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Identity supplies the id of the signed-in user for owned records.
type Identity interface {
	UserID() (string, error)
}
