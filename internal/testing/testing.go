// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytpod/internal/models"
)

// MockService is an in-memory test double for [services.Service].
//
// Reads return the configured fields. The *Func hooks, when set, replace the field lookup so tests can script a
// sequence of responses. Err, when set, is returned by every method.
type MockService struct {
	mu sync.Mutex

	PodcastList []models.Podcast
	ItemList    map[string][]models.Item
	JobList     []models.Job
	UsageRecord *models.Usage
	TierList    []models.SubscriptionTier
	Hook        *models.Webhook
	EventList   []models.WebhookEvent
	KeyList     []models.APIKey
	User        models.User
	Links       map[string]string
	Files       map[string][]byte

	JobsFunc          func(ctx context.Context) ([]models.Job, error)
	ItemsFunc         func(ctx context.Context, podcastID string) ([]models.Item, error)
	WebhookEventsFunc func(ctx context.Context) ([]models.WebhookEvent, error)
	UsageFunc         func(ctx context.Context, now time.Time) (*models.Usage, error)

	Err   error
	calls map[string]int
	args  map[string][]any
}

func (m *MockService) record(name string, args ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
		m.args = map[string][]any{}
	}
	m.calls[name]++
	m.args[name] = args
	return m.Err
}

// Calls returns how many times the named method was invoked.
func (m *MockService) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// LastArgs returns the arguments of the most recent call to the named method.
func (m *MockService) LastArgs(name string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.args[name]
}

func (m *MockService) Podcasts(ctx context.Context) ([]models.Podcast, error) {
	if err := m.record("Podcasts"); err != nil {
		return nil, err
	}
	return m.PodcastList, nil
}

func (m *MockService) Podcast(ctx context.Context, id string) (*models.Podcast, error) {
	if err := m.record("Podcast", id); err != nil {
		return nil, err
	}
	for i := range m.PodcastList {
		if m.PodcastList[i].ID == id {
			p := m.PodcastList[i]
			return &p, nil
		}
	}
	return nil, ErrMockNotFound
}

func (m *MockService) CreatePodcast(ctx context.Context, in models.PodcastInput) (*models.Podcast, error) {
	if err := m.record("CreatePodcast", in); err != nil {
		return nil, err
	}
	p := models.Podcast{Record: models.Record{ID: "pod_new"}, Title: in.Title, Description: in.Description, Website: in.Website}
	m.PodcastList = append([]models.Podcast{p}, m.PodcastList...)
	return &p, nil
}

func (m *MockService) UpdatePodcast(ctx context.Context, id string, in models.PodcastInput) (*models.Podcast, error) {
	if err := m.record("UpdatePodcast", id, in); err != nil {
		return nil, err
	}
	return &models.Podcast{Record: models.Record{ID: id}, Title: in.Title, Description: in.Description}, nil
}

func (m *MockService) DeletePodcast(ctx context.Context, id string) error {
	return m.record("DeletePodcast", id)
}

func (m *MockService) ShareURL(ctx context.Context, podcastID string, platform models.Platform) (string, error) {
	if err := m.record("ShareURL", podcastID, platform); err != nil {
		return "", err
	}
	return m.Links[string(platform)], nil
}

func (m *MockService) SetShareURL(ctx context.Context, podcastID string, platform models.Platform, url string) error {
	return m.record("SetShareURL", podcastID, platform, url)
}

func (m *MockService) Items(ctx context.Context, podcastID string) ([]models.Item, error) {
	if err := m.record("Items", podcastID); err != nil {
		return nil, err
	}
	if m.ItemsFunc != nil {
		return m.ItemsFunc(ctx, podcastID)
	}
	return m.ItemList[podcastID], nil
}

func (m *MockService) AddYoutubeURLs(ctx context.Context, podcastID string, urls []string) error {
	return m.record("AddYoutubeURLs", podcastID, urls)
}

func (m *MockService) AddAudioFiles(ctx context.Context, podcastID string, files []models.AudioFile) error {
	return m.record("AddAudioFiles", podcastID, files)
}

func (m *MockService) DeleteItem(ctx context.Context, id string) error {
	return m.record("DeleteItem", id)
}

func (m *MockService) Jobs(ctx context.Context) ([]models.Job, error) {
	if err := m.record("Jobs"); err != nil {
		return nil, err
	}
	if m.JobsFunc != nil {
		return m.JobsFunc(ctx)
	}
	return m.JobList, nil
}

func (m *MockService) CreateJobs(ctx context.Context, urls []string) ([]models.Job, error) {
	if err := m.record("CreateJobs", urls); err != nil {
		return nil, err
	}
	jobs := make([]models.Job, 0, len(urls))
	for _, u := range urls {
		jobs = append(jobs, models.Job{URL: u, Status: models.JobCreated, BatchID: "batch"})
	}
	return jobs, nil
}

func (m *MockService) Usage(ctx context.Context, now time.Time) (*models.Usage, error) {
	if err := m.record("Usage", now); err != nil {
		return nil, err
	}
	if m.UsageFunc != nil {
		return m.UsageFunc(ctx, now)
	}
	return m.UsageRecord, nil
}

func (m *MockService) Tiers(ctx context.Context) ([]models.SubscriptionTier, error) {
	if err := m.record("Tiers"); err != nil {
		return nil, err
	}
	return m.TierList, nil
}

func (m *MockService) Webhook(ctx context.Context) (*models.Webhook, error) {
	if err := m.record("Webhook"); err != nil {
		return nil, err
	}
	return m.Hook, nil
}

func (m *MockService) CreateWebhook(ctx context.Context, in models.WebhookInput) (*models.Webhook, error) {
	if err := m.record("CreateWebhook", in); err != nil {
		return nil, err
	}
	m.Hook = &models.Webhook{Record: models.Record{ID: "hook"}, URL: in.URL, Events: in.Events, Enabled: true}
	return m.Hook, nil
}

func (m *MockService) UpdateWebhook(ctx context.Context, id string, in models.WebhookInput) (*models.Webhook, error) {
	if err := m.record("UpdateWebhook", id, in); err != nil {
		return nil, err
	}
	hook := &models.Webhook{Record: models.Record{ID: id}, URL: in.URL, Events: in.Events}
	if in.Enabled != nil {
		hook.Enabled = *in.Enabled
	}
	m.Hook = hook
	return hook, nil
}

func (m *MockService) DeleteWebhook(ctx context.Context, id string) error {
	return m.record("DeleteWebhook", id)
}

func (m *MockService) WebhookEvents(ctx context.Context) ([]models.WebhookEvent, error) {
	if err := m.record("WebhookEvents"); err != nil {
		return nil, err
	}
	if m.WebhookEventsFunc != nil {
		return m.WebhookEventsFunc(ctx)
	}
	return m.EventList, nil
}

func (m *MockService) APIKeys(ctx context.Context) ([]models.APIKey, error) {
	if err := m.record("APIKeys"); err != nil {
		return nil, err
	}
	return m.KeyList, nil
}

func (m *MockService) GenerateAPIKey(ctx context.Context, title string) (*models.APIKey, error) {
	if err := m.record("GenerateAPIKey", title); err != nil {
		return nil, err
	}
	return &models.APIKey{Record: models.Record{ID: "key"}, Title: title, Key: "plaintext"}, nil
}

func (m *MockService) RevokeAPIKey(ctx context.Context, id string) error {
	return m.record("RevokeAPIKey", id)
}

func (m *MockService) CheckoutSession(ctx context.Context, plan models.Plan) (string, error) {
	if err := m.record("CheckoutSession", plan); err != nil {
		return "", err
	}
	return "https://checkout.test/" + string(plan), nil
}

func (m *MockService) PortalSession(ctx context.Context) (string, error) {
	if err := m.record("PortalSession"); err != nil {
		return "", err
	}
	return "https://portal.test", nil
}

func (m *MockService) UpdateUsername(ctx context.Context, name string) (*models.User, error) {
	if err := m.record("UpdateUsername", name); err != nil {
		return nil, err
	}
	m.User.Name = name
	u := m.User
	return &u, nil
}

func (m *MockService) DeleteAccount(ctx context.Context) error {
	return m.record("DeleteAccount")
}

func (m *MockService) CreateIssue(ctx context.Context, content string, screenshots []models.Attachment) error {
	return m.record("CreateIssue", content, screenshots)
}

func (m *MockService) FeedURL(p *models.Podcast) string {
	if p == nil || p.File == "" {
		return ""
	}
	return "https://files.test/" + p.ID + "/" + p.File
}

func (m *MockService) FileURL(ref models.FileRef, download bool) string {
	return "https://files.test/" + ref.RecordID + "/" + ref.Filename
}

func (m *MockService) DownloadFile(ctx context.Context, url string, w io.Writer) (int64, error) {
	if err := m.record("DownloadFile", url); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, ok := m.Files[url]
	if !ok {
		return 0, ErrMockNotFound
	}
	return io.Copy(w, bytes.NewReader(data))
}

// ErrMockNotFound is returned by [MockService] lookups that miss.
var ErrMockNotFound = errors.New("mock: not found")

// Notification is a toast captured by [RecordingNotifier].
type Notification struct {
	Title       string
	Description string
}

// RecordingNotifier collects notifications for assertions.
type RecordingNotifier struct {
	mu            sync.Mutex
	Notifications []Notification
}

func (r *RecordingNotifier) Notify(title, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notifications = append(r.Notifications, Notification{Title: title, Description: description})
}

// Count returns the number of notifications received so far.
func (r *RecordingNotifier) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Notifications)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
