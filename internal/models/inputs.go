package models

import (
	"io"
	"strings"
)

// Attachment is an in-memory file sent with a record write.
type Attachment struct {
	Name string
	Data []byte
}

// AudioFile is a local audio file queued for upload to a podcast.
type AudioFile struct {
	Title    string
	Name     string
	Size     int64
	Duration float64
	Reader   io.Reader
}

// PodcastInput holds writable podcast fields. Empty strings are omitted on update.
type PodcastInput struct {
	Title       string
	Description string
	Website     string
	Image       *Attachment
}

// Fields returns the JSON body for a write. When partial is set, empty values are left out.
func (in PodcastInput) Fields(partial bool) map[string]any {
	body := map[string]any{}
	set := func(k, v string) {
		if v != "" || !partial {
			body[k] = v
		}
	}
	set("title", in.Title)
	set("description", in.Description)
	set("website", in.Website)
	return body
}

// WebhookInput holds writable webhook fields.
type WebhookInput struct {
	URL     string
	Events  []EventType
	Enabled *bool
}

// Fields returns the JSON body for a write, skipping unset values.
func (in WebhookInput) Fields() map[string]any {
	body := map[string]any{}
	if in.URL != "" {
		body["url"] = in.URL
	}
	if in.Events != nil {
		body["events"] = in.Events
	}
	if in.Enabled != nil {
		body["enabled"] = *in.Enabled
	}
	return body
}

// Plan is a purchasable subscription, as accepted by the checkout endpoint.
type Plan string

const (
	PlanBasicMonthly        Plan = "basicMonthly"
	PlanBasicYearly         Plan = "basicYearly"
	PlanPowerUserMonthly    Plan = "powerUserMonthly"
	PlanPowerUserYearly     Plan = "powerUserYearly"
	PlanProfessionalMonthly Plan = "professionalMonthly"
	PlanProfessionalYearly  Plan = "professionalYearly"
)

// Plans lists checkout plans from cheapest to most expensive.
var Plans = []Plan{
	PlanBasicMonthly, PlanBasicYearly,
	PlanPowerUserMonthly, PlanPowerUserYearly,
	PlanProfessionalMonthly, PlanProfessionalYearly,
}

// ParsePlan accepts either the checkout name (basicMonthly) or the tier lookup key (basic_monthly).
func ParsePlan(s string) (Plan, bool) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for _, p := range Plans {
		if strings.ToLower(string(p)) == norm {
			return p, true
		}
	}
	return "", false
}

// LookupKey returns the subscription tier lookup key for p, e.g. power_user_yearly.
func (p Plan) LookupKey() string {
	var b strings.Builder
	for i, r := range string(p) {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
