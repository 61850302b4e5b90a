package forms

import (
	"net/url"
	"strings"

	"github.com/desertthunder/ytpod/internal/models"
)

// WebhookForm holds a webhook URL and its subscribed events.
type WebhookForm struct {
	URL     string
	Events  []string
	Enabled *bool
}

// ParseEvents accepts event names in any case, dropping duplicates.
func ParseEvents(names []string) ([]models.EventType, error) {
	seen := map[models.EventType]bool{}
	var events []models.EventType
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			e := models.EventType(strings.ToUpper(strings.TrimSpace(part)))
			if e == "" {
				continue
			}
			if !e.Valid() {
				return nil, &FieldError{Field: "events", Row: -1, Value: part, Err: ErrUnknownEvent}
			}
			if !seen[e] {
				seen[e] = true
				events = append(events, e)
			}
		}
	}
	return events, nil
}

// ValidateWebhookURL requires an absolute http or https URL.
func ValidateWebhookURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fieldErr("url", ErrWebhookURL)
	}
	return nil
}

// Input validates the form. A partial update may omit the URL or the events.
func (f WebhookForm) Input(partial bool) (models.WebhookInput, error) {
	in := models.WebhookInput{URL: strings.TrimSpace(f.URL), Enabled: f.Enabled}

	if !(partial && in.URL == "") {
		if err := ValidateWebhookURL(in.URL); err != nil {
			return models.WebhookInput{}, err
		}
	}

	events, err := ParseEvents(f.Events)
	if err != nil {
		return models.WebhookInput{}, err
	}
	if len(events) == 0 && !partial {
		return models.WebhookInput{}, fieldErr("events", ErrNoEvents)
	}
	in.Events = events
	return in, nil
}
