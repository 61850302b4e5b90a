package models

import "strings"

// Podcast is a user-owned feed. File holds the generated RSS document.
type Podcast struct {
	Record          `yaml:",inline"`
	Title           string `json:"title" yaml:"title"`
	Description     string `json:"description" yaml:"description,omitempty"`
	Image           string `json:"image" yaml:"image,omitempty"`
	File            string `json:"file" yaml:"file,omitempty"`
	Website         string `json:"website" yaml:"website,omitempty"`
	AppleURL        string `json:"apple_url" yaml:"apple_url,omitempty"`
	SpotifyURL      string `json:"spotify_url" yaml:"spotify_url,omitempty"`
	YouTubeURL      string `json:"youtube_url" yaml:"youtube_url,omitempty"`
	PocketCastsURL  string `json:"pocketcasts_url" yaml:"pocketcasts_url,omitempty"`
	AppleShareURL   string `json:"apple_share_url" yaml:"apple_share_url,omitempty"`
	SpotifyShareURL string `json:"spotify_share_url" yaml:"spotify_share_url,omitempty"`
	YouTubeShareURL string `json:"youtube_share_url" yaml:"youtube_share_url,omitempty"`
	User            string `json:"user" yaml:"-"`
}

// Platform is a podcast directory a feed can be shared to.
type Platform string

const (
	PlatformPocketCasts Platform = "pocketcasts"
	PlatformApple       Platform = "apple"
	PlatformSpotify     Platform = "spotify"
	PlatformYouTube     Platform = "youtube"
)

// Platforms lists share targets in display order.
var Platforms = []Platform{PlatformPocketCasts, PlatformApple, PlatformSpotify, PlatformYouTube}

// ParsePlatform matches s case-insensitively against [Platforms].
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Platforms {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// ShareField returns the podcast field that stores a manually entered share link,
// or "" when the platform has none.
func (p Platform) ShareField() string {
	switch p {
	case PlatformApple, PlatformSpotify, PlatformYouTube:
		return string(p) + "_share_url"
	default:
		return ""
	}
}

// Download is the converted audio for a YouTube video.
type Download struct {
	Record      `yaml:",inline"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description,omitempty"`
	Channel     string  `json:"channel" yaml:"channel,omitempty"`
	Duration    float64 `json:"duration" yaml:"duration"`
	Size        int64   `json:"size" yaml:"size"`
	File        string  `json:"file" yaml:"file"`
	VideoID     string  `json:"video_id" yaml:"video_id"`
}

// Upload is an audio file uploaded directly to a podcast.
type Upload struct {
	Record   `yaml:",inline"`
	Title    string  `json:"title" yaml:"title"`
	File     string  `json:"file" yaml:"file"`
	Size     int64   `json:"size" yaml:"size"`
	Duration float64 `json:"duration" yaml:"duration"`
	Podcast  string  `json:"podcast" yaml:"podcast"`
	Item     string  `json:"item" yaml:"item,omitempty"`
	User     string  `json:"user" yaml:"-"`
}

// Job is a standalone conversion request created through the dashboard or API.
type Job struct {
	Record  `yaml:",inline"`
	URL     string    `json:"url" yaml:"url"`
	Title   string    `json:"title" yaml:"title,omitempty"`
	Status  JobStatus `json:"status" yaml:"status"`
	Error   string    `json:"error" yaml:"error,omitempty"`
	BatchID string    `json:"batch_id" yaml:"batch_id,omitempty"`
	APIKey  string    `json:"api_key" yaml:"api_key,omitempty"`
	User    string    `json:"user" yaml:"-"`

	DownloadID string `json:"download" yaml:"-"`
	Expand     struct {
		Download *Download `json:"download,omitempty" yaml:"download,omitempty"`
	} `json:"expand" yaml:"expand,omitempty"`
}

func (j Job) Terminal() bool { return j.Status.Terminal() }

// Download returns the expanded download record, if the job finished.
func (j Job) Download() *Download { return j.Expand.Download }

// Webhook receives job lifecycle events. A user has at most one.
type Webhook struct {
	Record  `yaml:",inline"`
	URL     string      `json:"url" yaml:"url"`
	Events  []EventType `json:"events" yaml:"events"`
	Enabled bool        `json:"enabled" yaml:"enabled"`
	User    string      `json:"user" yaml:"-"`
}

// WebhookEvent is a single delivery of an event to a [Webhook].
type WebhookEvent struct {
	Record   `yaml:",inline"`
	Event    EventType          `json:"event" yaml:"event"`
	Status   WebhookEventStatus `json:"status" yaml:"status"`
	Attempts int                `json:"attempts" yaml:"attempts"`
	Job      string             `json:"job" yaml:"job"`
	Webhook  string             `json:"webhook" yaml:"webhook"`
	APIKey   string             `json:"api_key" yaml:"api_key,omitempty"`
}

func (e WebhookEvent) Terminal() bool { return e.Status.Terminal() }

// APIKey is a named key for the public conversion API. Key is only set on creation.
type APIKey struct {
	Record `yaml:",inline"`
	Title  string `json:"title" yaml:"title"`
	User   string `json:"user" yaml:"-"`
	Key    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// User is the auth record of the signed-in account.
type User struct {
	Record   `yaml:",inline"`
	Email    string `json:"email" yaml:"email"`
	Name     string `json:"name" yaml:"name"`
	Tier     string `json:"tier" yaml:"tier,omitempty"`
	Verified bool   `json:"verified" yaml:"verified"`
}

// Issue is a bug report with optional screenshots.
type Issue struct {
	Record      `yaml:",inline"`
	Content     string   `json:"content" yaml:"content"`
	Screenshots []string `json:"screenshots" yaml:"screenshots,omitempty"`
	User        string   `json:"user" yaml:"-"`
}

// SubscriptionTier describes a plan's quotas.
type SubscriptionTier struct {
	Record            `yaml:",inline"`
	Title             string  `json:"title" yaml:"title"`
	LookupKey         string  `json:"lookup_key" yaml:"lookup_key"`
	MonthlyUsageLimit int     `json:"monthly_usage_limit" yaml:"monthly_usage_limit"`
	UploadLimit       int     `json:"upload_limit" yaml:"upload_limit"`
	Price             float64 `json:"price" yaml:"price"`
	Interval          string  `json:"interval" yaml:"interval"`
}

// Usage is the usage record for the current billing cycle.
type Usage struct {
	Record            `yaml:",inline"`
	Usage             int      `json:"usage" yaml:"usage"`
	Limit             int      `json:"limit" yaml:"limit"`
	Uploads           int      `json:"uploads" yaml:"uploads"`
	BillingCycleStart DateTime `json:"billing_cycle_start" yaml:"billing_cycle_start"`
	BillingCycleEnd   DateTime `json:"billing_cycle_end" yaml:"billing_cycle_end"`
	TierID            string   `json:"tier" yaml:"-"`
	User              string   `json:"user" yaml:"-"`
	Expand            struct {
		Tier *SubscriptionTier `json:"tier,omitempty" yaml:"tier,omitempty"`
	} `json:"expand" yaml:"expand,omitempty"`
}

// TierKey returns the lookup key of the expanded tier, or "" when it was not expanded.
func (u *Usage) TierKey() string {
	if u == nil || u.Expand.Tier == nil {
		return ""
	}
	return u.Expand.Tier.LookupKey
}
