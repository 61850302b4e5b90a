package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/shared"
)

// Collection names.
const (
	CollectionPodcasts      = "podcasts"
	CollectionItems         = "items"
	CollectionUploads       = "uploads"
	CollectionJobs          = "jobs"
	CollectionUsage         = "monthly_usage"
	CollectionTiers         = "subscription_tiers"
	CollectionWebhooks      = "webhooks"
	CollectionWebhookEvents = "webhook_events"
	CollectionAPIKeys       = "api_keys"
	CollectionIssues        = "issues"
	CollectionUsers         = usersCollection
)

// PodcastService implements [Service] on top of a [PocketBase] client.
type PodcastService struct {
	pb       *PocketBase
	identity Identity
}

// NewPodcastService creates the typed backend API. identity resolves the owner of created records.
func NewPodcastService(pb *PocketBase, identity Identity) *PodcastService {
	return &PodcastService{pb: pb, identity: identity}
}

// Client returns the underlying record client.
func (s *PodcastService) Client() *PocketBase {
	return s.pb
}

func (s *PodcastService) userID() (string, error) {
	if s.identity == nil {
		return "", shared.ErrNotAuthenticated
	}
	return s.identity.UserID()
}

// quote renders s as a PocketBase filter string literal.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func (s *PodcastService) Podcasts(ctx context.Context) ([]models.Podcast, error) {
	return ListAs[models.Podcast](ctx, s.pb, CollectionPodcasts, ListOptions{Sort: "-created"})
}

func (s *PodcastService) Podcast(ctx context.Context, id string) (*models.Podcast, error) {
	var p models.Podcast
	if err := s.pb.GetOne(ctx, CollectionPodcasts, id, "", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func coverFiles(img *models.Attachment) []File {
	if img == nil {
		return nil
	}
	return []File{{Field: "image", Name: img.Name, Reader: bytes.NewReader(img.Data)}}
}

func (s *PodcastService) CreatePodcast(ctx context.Context, in models.PodcastInput) (*models.Podcast, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, err
	}

	body := in.Fields(false)
	body["user"] = uid

	var p models.Podcast
	if err := s.pb.Create(ctx, CollectionPodcasts, body, coverFiles(in.Image), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PodcastService) UpdatePodcast(ctx context.Context, id string, in models.PodcastInput) (*models.Podcast, error) {
	var p models.Podcast
	if err := s.pb.Update(ctx, CollectionPodcasts, id, in.Fields(true), coverFiles(in.Image), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PodcastService) DeletePodcast(ctx context.Context, id string) error {
	return s.pb.Delete(ctx, CollectionPodcasts, id)
}

func (s *PodcastService) ShareURL(ctx context.Context, podcastID string, platform models.Platform) (string, error) {
	var res struct {
		URL string `json:"url"`
	}
	path := fmt.Sprintf("/api/share_url/%s/%s", url.PathEscape(podcastID), url.PathEscape(string(platform)))
	if err := s.pb.Send(ctx, http.MethodGet, path, nil, nil, &res); err != nil {
		return "", err
	}
	return res.URL, nil
}

func (s *PodcastService) SetShareURL(ctx context.Context, podcastID string, platform models.Platform, link string) error {
	field := platform.ShareField()
	if field == "" {
		return fmt.Errorf("%w: %s links are generated by the server", shared.ErrInvalidArgument, platform)
	}
	return s.pb.Update(ctx, CollectionPodcasts, podcastID, map[string]any{field: link}, nil, nil)
}

func (s *PodcastService) Items(ctx context.Context, podcastID string) ([]models.Item, error) {
	raw, err := s.pb.List(ctx, CollectionItems, ListOptions{
		Filter: "podcast = " + quote(podcastID),
		Sort:   "-created",
		Expand: "download,upload",
	})
	if err != nil {
		return nil, err
	}
	return models.DecodeItems(raw)
}

func (s *PodcastService) AddYoutubeURLs(ctx context.Context, podcastID string, urls []string) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}

	reqs := make([]BatchRequest, 0, len(urls))
	for _, u := range urls {
		reqs = append(reqs, BatchCreate(CollectionItems, map[string]any{
			"url":     u,
			"user":    uid,
			"podcast": podcastID,
			"type":    models.ItemTypeURL,
		}))
	}

	_, err = s.pb.Batch(ctx, reqs)
	return err
}

func (s *PodcastService) AddAudioFiles(ctx context.Context, podcastID string, files []models.AudioFile) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}

	reqs := make([]BatchRequest, 0, len(files))
	for _, f := range files {
		reqs = append(reqs, BatchCreate(CollectionUploads, map[string]any{
			"user":     uid,
			"podcast":  podcastID,
			"title":    f.Title,
			"size":     f.Size,
			"duration": f.Duration,
		}, File{Field: "file", Name: f.Name, Reader: f.Reader}))
	}

	_, err = s.pb.Batch(ctx, reqs)
	return err
}

func (s *PodcastService) DeleteItem(ctx context.Context, id string) error {
	return s.pb.Delete(ctx, CollectionItems, id)
}

func (s *PodcastService) Jobs(ctx context.Context) ([]models.Job, error) {
	return ListAs[models.Job](ctx, s.pb, CollectionJobs, ListOptions{Sort: "-created", Expand: "download"})
}

func (s *PodcastService) CreateJobs(ctx context.Context, urls []string) ([]models.Job, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, err
	}

	var res struct {
		BatchID string `json:"batchId"`
	}
	if err := s.pb.Send(ctx, http.MethodGet, "/api/generate-batch-id", nil, nil, &res); err != nil {
		return nil, fmt.Errorf("failed to generate batch id: %w", err)
	}

	reqs := make([]BatchRequest, 0, len(urls))
	for _, u := range urls {
		reqs = append(reqs, BatchCreate(CollectionJobs, map[string]any{
			"user":     uid,
			"status":   models.JobCreated,
			"url":      u,
			"batch_id": res.BatchID,
		}))
	}

	results, err := s.pb.Batch(ctx, reqs)
	if err != nil {
		return nil, err
	}

	jobs := make([]models.Job, 0, len(results))
	for _, r := range results {
		var j models.Job
		if err := json.Unmarshal(r.Body, &j); err != nil {
			return nil, fmt.Errorf("failed to decode job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func (s *PodcastService) Usage(ctx context.Context, now time.Time) (*models.Usage, error) {
	return FirstAs[models.Usage](ctx, s.pb, CollectionUsage, ListOptions{
		Filter: "billing_cycle_end >= " + quote(models.FormatFilterTime(now)),
		Expand: "tier",
	})
}

func (s *PodcastService) Tiers(ctx context.Context) ([]models.SubscriptionTier, error) {
	return ListAs[models.SubscriptionTier](ctx, s.pb, CollectionTiers, ListOptions{Sort: "price"})
}

// Webhook swallows lookup errors: a missing webhook and an unreadable one both render as "not configured".
func (s *PodcastService) Webhook(ctx context.Context) (*models.Webhook, error) {
	w, err := FirstAs[models.Webhook](ctx, s.pb, CollectionWebhooks, ListOptions{})
	if err != nil {
		s.pb.logger.Debug("webhook lookup failed", "error", err)
		return nil, nil
	}
	return w, nil
}

func (s *PodcastService) CreateWebhook(ctx context.Context, in models.WebhookInput) (*models.Webhook, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, err
	}

	body := in.Fields()
	body["user"] = uid
	body["enabled"] = true

	var w models.Webhook
	if err := s.pb.Create(ctx, CollectionWebhooks, body, nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *PodcastService) UpdateWebhook(ctx context.Context, id string, in models.WebhookInput) (*models.Webhook, error) {
	var w models.Webhook
	if err := s.pb.Update(ctx, CollectionWebhooks, id, in.Fields(), nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *PodcastService) DeleteWebhook(ctx context.Context, id string) error {
	return s.pb.Delete(ctx, CollectionWebhooks, id)
}

func (s *PodcastService) WebhookEvents(ctx context.Context) ([]models.WebhookEvent, error) {
	return ListAs[models.WebhookEvent](ctx, s.pb, CollectionWebhookEvents, ListOptions{Sort: "-created"})
}

func (s *PodcastService) APIKeys(ctx context.Context) ([]models.APIKey, error) {
	return ListAs[models.APIKey](ctx, s.pb, CollectionAPIKeys, ListOptions{Sort: "-created"})
}

func (s *PodcastService) GenerateAPIKey(ctx context.Context, title string) (*models.APIKey, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, err
	}

	var k models.APIKey
	if err := s.pb.Create(ctx, CollectionAPIKeys, map[string]any{"user": uid, "title": title}, nil, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *PodcastService) RevokeAPIKey(ctx context.Context, id string) error {
	return s.pb.Delete(ctx, CollectionAPIKeys, id)
}

type redirectResponse struct {
	URL string `json:"url"`
}

func (s *PodcastService) CheckoutSession(ctx context.Context, plan models.Plan) (string, error) {
	var res redirectResponse
	q := url.Values{"subscriptionType": {string(plan)}}
	if err := s.pb.Send(ctx, http.MethodGet, "/api/stripe/create-checkout-session", q, nil, &res); err != nil {
		return "", err
	}
	if res.URL == "" {
		return "", fmt.Errorf("%w: checkout session has no url", shared.ErrAPIRequest)
	}
	return res.URL, nil
}

func (s *PodcastService) PortalSession(ctx context.Context) (string, error) {
	var res redirectResponse
	if err := s.pb.Send(ctx, http.MethodGet, "/api/stripe/create-portal-session", nil, nil, &res); err != nil {
		return "", err
	}
	if res.URL == "" {
		return "", fmt.Errorf("%w: portal session has no url", shared.ErrAPIRequest)
	}
	return res.URL, nil
}

func (s *PodcastService) UpdateUsername(ctx context.Context, name string) (*models.User, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, err
	}

	var u models.User
	if err := s.pb.Update(ctx, CollectionUsers, uid, map[string]any{"name": name}, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PodcastService) DeleteAccount(ctx context.Context) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}
	return s.pb.Delete(ctx, CollectionUsers, uid)
}

func (s *PodcastService) CreateIssue(ctx context.Context, content string, screenshots []models.Attachment) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}

	files := make([]File, 0, len(screenshots))
	for _, sc := range screenshots {
		files = append(files, File{Field: "screenshots", Name: sc.Name, Reader: bytes.NewReader(sc.Data)})
	}

	return s.pb.Create(ctx, CollectionIssues, map[string]any{"content": content, "user": uid}, files, nil)
}

func (s *PodcastService) FeedURL(p *models.Podcast) string {
	if p == nil || p.File == "" {
		return ""
	}
	return s.pb.FileURL(p.Ref(p.File), FileURLOptions{})
}

func (s *PodcastService) FileURL(ref models.FileRef, download bool) string {
	return s.pb.FileURL(ref, FileURLOptions{Download: download})
}

func (s *PodcastService) DownloadFile(ctx context.Context, fileURL string, w io.Writer) (int64, error) {
	return s.pb.Download(ctx, fileURL, w)
}

var _ Service = (*PodcastService)(nil)
