// package cache holds fetched backend resources under typed keys.
//
// Reads go through [Store.Get] or [Store.Refetch]; only mutations call [Store.Invalidate], which
// marks matching entries stale and wakes pollers subscribed to them.
package cache

// Kind names a family of cached resources.
type Kind string

const (
	KindUsage         Kind = "usage"
	KindJobs          Kind = "jobs"
	KindItems         Kind = "items"
	KindPodcast       Kind = "podcast"
	KindPodcasts      Kind = "podcasts"
	KindAPIKeys       Kind = "apiKeys"
	KindWebhook       Kind = "webhook"
	KindWebhookEvents Kind = "webhookEvents"
)

// Key identifies a cached resource. An empty Scope used as an invalidation pattern matches every scope of the kind.
type Key struct {
	Kind  Kind
	Scope string
}

func Usage() Key                 { return Key{Kind: KindUsage} }
func Jobs() Key                  { return Key{Kind: KindJobs} }
func Items(podcastID string) Key { return Key{Kind: KindItems, Scope: podcastID} }
func AllItems() Key              { return Key{Kind: KindItems} }
func Podcast(id string) Key      { return Key{Kind: KindPodcast, Scope: id} }
func Podcasts() Key              { return Key{Kind: KindPodcasts} }
func APIKeys() Key               { return Key{Kind: KindAPIKeys} }
func Webhook() Key               { return Key{Kind: KindWebhook} }
func WebhookEvents() Key         { return Key{Kind: KindWebhookEvents} }

func (k Key) String() string {
	if k.Scope == "" {
		return string(k.Kind)
	}
	return string(k.Kind) + ":" + k.Scope
}

// Matches reports whether k, used as a pattern, covers other.
func (k Key) Matches(other Key) bool {
	return k.Kind == other.Kind && (k.Scope == "" || k.Scope == other.Scope)
}
