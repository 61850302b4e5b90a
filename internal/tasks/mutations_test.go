package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/ytpod/internal/cache"
	"github.com/desertthunder/ytpod/internal/models"
	th "github.com/desertthunder/ytpod/internal/testing"
)

type fakeSession struct {
	name  string
	ended bool
}

func (f *fakeSession) SetName(name string) error     { f.name = name; return nil }
func (f *fakeSession) End(ctx context.Context) error { f.ended = true; return nil }

var watchedKeys = []cache.Key{
	cache.Usage(),
	cache.Jobs(),
	cache.Items("p1"),
	cache.Podcasts(),
	cache.Podcast("p1"),
	cache.APIKeys(),
	cache.Webhook(),
	cache.WebhookEvents(),
}

// signalled returns the watched keys that received an invalidation signal.
func signalled(subs map[cache.Key]<-chan struct{}) map[cache.Key]bool {
	got := map[cache.Key]bool{}
	for k, ch := range subs {
		select {
		case <-ch:
			got[k] = true
		default:
		}
	}
	return got
}

func TestMutationsInvalidate(t *testing.T) {
	ctx := context.Background()

	tc := []struct {
		name string
		run  func(m *Mutations) error
		want []cache.Key
	}{
		{"AddYoutubeURLs", func(m *Mutations) error {
			return m.AddYoutubeURLs(ctx, "p1", []string{"https://youtu.be/AAAAAAAAAAA"})
		}, []cache.Key{cache.Items("p1"), cache.Usage()}},
		{"AddAudioFiles", func(m *Mutations) error {
			return m.AddAudioFiles(ctx, "p2", []models.AudioFile{{Title: "ep", Name: "ep.mp3"}})
		}, []cache.Key{cache.Items("p1"), cache.Usage()}},
		{"DeleteItem", func(m *Mutations) error {
			return m.DeleteItem(ctx, "i1")
		}, []cache.Key{cache.Items("p1")}},
		{"CreatePodcast", func(m *Mutations) error {
			_, err := m.CreatePodcast(ctx, models.PodcastInput{Title: "Show"})
			return err
		}, []cache.Key{cache.Podcasts()}},
		{"UpdatePodcast", func(m *Mutations) error {
			_, err := m.UpdatePodcast(ctx, "p1", models.PodcastInput{Title: "Show"})
			return err
		}, []cache.Key{cache.Podcast("p1"), cache.Podcasts()}},
		{"DeletePodcast", func(m *Mutations) error {
			return m.DeletePodcast(ctx, "p1")
		}, []cache.Key{cache.Podcasts()}},
		{"SetShareURL", func(m *Mutations) error {
			return m.SetShareURL(ctx, "p1", models.PlatformApple, "https://podcasts.apple.com/x")
		}, []cache.Key{cache.Podcast("p1"), cache.Podcasts()}},
		{"CreateJobs", func(m *Mutations) error {
			_, err := m.CreateJobs(ctx, []string{"https://youtu.be/AAAAAAAAAAA"})
			return err
		}, []cache.Key{cache.Jobs(), cache.Usage()}},
		{"GenerateAPIKey", func(m *Mutations) error {
			_, err := m.GenerateAPIKey(ctx, "ci")
			return err
		}, []cache.Key{cache.APIKeys()}},
		{"RevokeAPIKey", func(m *Mutations) error {
			return m.RevokeAPIKey(ctx, "k1")
		}, []cache.Key{cache.APIKeys()}},
		{"CreateWebhook", func(m *Mutations) error {
			_, err := m.CreateWebhook(ctx, models.WebhookInput{URL: "https://example.com"})
			return err
		}, []cache.Key{cache.Webhook(), cache.WebhookEvents()}},
		{"UpdateWebhook", func(m *Mutations) error {
			_, err := m.UpdateWebhook(ctx, "w1", models.WebhookInput{URL: "https://example.com"})
			return err
		}, []cache.Key{cache.Webhook(), cache.WebhookEvents()}},
		{"DeleteWebhook", func(m *Mutations) error {
			return m.DeleteWebhook(ctx, "w1")
		}, []cache.Key{cache.Webhook(), cache.WebhookEvents()}},
		{"UpdateUsername", func(m *Mutations) error {
			_, err := m.UpdateUsername(ctx, "new name")
			return err
		}, nil},
		{"CreateIssue", func(m *Mutations) error {
			return m.CreateIssue(ctx, "broken", nil)
		}, nil},
		{"Checkout", func(m *Mutations) error {
			_, err := m.Checkout(ctx, models.PlanBasicMonthly)
			return err
		}, nil},
		{"Portal", func(m *Mutations) error {
			_, err := m.Portal(ctx)
			return err
		}, nil},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			store := cache.NewStore(nil)
			subs := map[cache.Key]<-chan struct{}{}
			for _, k := range watchedKeys {
				ch, unsubscribe := store.Subscribe(k)
				defer unsubscribe()
				subs[k] = ch
			}

			m := NewMutations(&th.MockService{}, store, NewErrorHandler(nil, nil), &fakeSession{})
			if err := tt.run(m); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			got := signalled(subs)
			if len(got) != len(tt.want) {
				t.Errorf("expected %d invalidated keys, got %v", len(tt.want), got)
			}
			for _, k := range tt.want {
				if !got[k] {
					t.Errorf("expected %s invalidated", k)
				}
			}
		})
	}

	t.Run("Failure Reports And Skips Invalidation", func(t *testing.T) {
		store := cache.NewStore(nil)
		ch, unsubscribe := store.Subscribe(cache.Jobs())
		defer unsubscribe()

		notifier := &th.RecordingNotifier{}
		boom := errors.New("boom")
		m := NewMutations(&th.MockService{Err: boom}, store, NewErrorHandler(notifier, nil), nil)

		if _, err := m.CreateJobs(ctx, []string{"x"}); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if notifier.Count() != 1 {
			t.Errorf("expected 1 notification, got %d", notifier.Count())
		}
		select {
		case <-ch:
			t.Error("expected no invalidation on failure")
		default:
		}
	})
}

func TestAccountMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("UpdateUsername Updates Session", func(t *testing.T) {
		sess := &fakeSession{}
		m := NewMutations(&th.MockService{}, cache.NewStore(nil), nil, sess)
		user, err := m.UpdateUsername(ctx, "Ada")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.Name != "Ada" || sess.name != "Ada" {
			t.Errorf("expected session renamed, got %q %q", user.Name, sess.name)
		}
	})

	t.Run("DeleteAccount Ends Session", func(t *testing.T) {
		sess := &fakeSession{}
		m := NewMutations(&th.MockService{}, cache.NewStore(nil), nil, sess)
		if err := m.DeleteAccount(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !sess.ended {
			t.Error("expected session ended")
		}
	})

	t.Run("Failed Delete Keeps Session", func(t *testing.T) {
		sess := &fakeSession{}
		m := NewMutations(&th.MockService{Err: errors.New("nope")}, cache.NewStore(nil), nil, sess)
		if err := m.DeleteAccount(ctx); err == nil {
			t.Fatal("expected error")
		}
		if sess.ended {
			t.Error("expected session kept")
		}
	})
}

func TestQueries(t *testing.T) {
	ctx := context.Background()

	t.Run("Reads Are Cached Until Invalidated", func(t *testing.T) {
		store := cache.NewStore(nil)
		svc := &th.MockService{PodcastList: []models.Podcast{{Record: models.Record{ID: "p1"}, Title: "Show"}}}
		q := NewQueries(svc, store, nil)

		for range 2 {
			if _, err := q.Podcasts(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
		if got := svc.Calls("Podcasts"); got != 1 {
			t.Errorf("expected 1 fetch, got %d", got)
		}

		store.Invalidate(cache.Podcasts())
		q.Podcasts(ctx)
		if got := svc.Calls("Podcasts"); got != 2 {
			t.Errorf("expected refetch after invalidation, got %d", got)
		}
	})

	t.Run("Items Are Scoped By Podcast", func(t *testing.T) {
		svc := &th.MockService{ItemList: map[string][]models.Item{
			"p1": {&models.UrlItem{ItemBase: models.ItemBase{Record: models.Record{ID: "i1"}}}},
		}}
		q := NewQueries(svc, cache.NewStore(nil), nil)

		items, _ := q.Items(ctx, "p1")
		other, _ := q.Items(ctx, "p2")
		if len(items) != 1 || len(other) != 0 {
			t.Errorf("expected scoped items, got %d and %d", len(items), len(other))
		}
	})

	t.Run("Podcast Not Found", func(t *testing.T) {
		q := NewQueries(&th.MockService{}, cache.NewStore(nil), nil)
		if _, err := q.Podcast(ctx, "missing"); !errors.Is(err, th.ErrMockNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}
