package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/ytpod/internal/cache"
	"github.com/desertthunder/ytpod/internal/models"
	th "github.com/desertthunder/ytpod/internal/testing"
)

func job(id string, status models.JobStatus) models.Job {
	return models.Job{Record: models.Record{ID: id}, Status: status}
}

func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestNextDelay(t *testing.T) {
	interval := 3 * time.Second
	pending := models.NonTerminal[models.Job]

	t.Run("Empty Collection Does Not Poll", func(t *testing.T) {
		if d, ok := NextDelay(nil, pending, interval); ok || d != 0 {
			t.Errorf("expected no polling, got %v %v", d, ok)
		}
	})

	t.Run("All Terminal Does Not Poll", func(t *testing.T) {
		jobs := []models.Job{job("a", models.JobSuccess), job("b", models.JobError)}
		if _, ok := NextDelay(jobs, pending, interval); ok {
			t.Error("expected no polling for settled jobs")
		}
	})

	t.Run("Any Pending Polls At Interval", func(t *testing.T) {
		for _, status := range []models.JobStatus{models.JobCreated, models.JobStarted, models.JobProcessing, "QUEUED"} {
			jobs := []models.Job{job("a", models.JobSuccess), job("b", status)}
			d, ok := NextDelay(jobs, pending, interval)
			if !ok || d != interval {
				t.Errorf("status %s: expected %v, got %v %v", status, interval, d, ok)
			}
		}
	})

	t.Run("Items", func(t *testing.T) {
		items := []models.Item{
			&models.UrlItem{ItemBase: models.ItemBase{Status: models.ItemSuccess}},
			&models.UploadItem{ItemBase: models.ItemBase{Status: models.ItemCreated}},
		}
		if _, ok := NextDelay(items, models.NonTerminal[models.Item], interval); !ok {
			t.Error("expected polling while an upload is processing")
		}
		if _, ok := NextDelay(items[:1], models.NonTerminal[models.Item], interval); ok {
			t.Error("expected no polling once items settled")
		}
	})
}

func TestPollerStep(t *testing.T) {
	ctx := context.Background()

	newStepPoller := func(responses ...any) (*Poller[models.Job], *th.RecordingNotifier) {
		var mu sync.Mutex
		notifier := &th.RecordingNotifier{}
		return NewPoller(PollerOpts[models.Job]{
			Key: cache.Jobs(),
			Fetch: func(ctx context.Context) ([]models.Job, error) {
				mu.Lock()
				defer mu.Unlock()
				next := responses[0]
				if len(responses) > 1 {
					responses = responses[1:]
				}
				if err, ok := next.(error); ok {
					return nil, err
				}
				return next.([]models.Job), nil
			},
			Pending:  models.NonTerminal[models.Job],
			Interval: time.Millisecond,
			Errors:   NewErrorHandler(notifier, nil),
		}), notifier
	}

	pending := []models.Job{job("a", models.JobProcessing)}
	settled := []models.Job{job("a", models.JobSuccess)}
	boom := errors.New("boom")

	t.Run("Failure Before First Success Retries", func(t *testing.T) {
		p, notifier := newStepPoller(boom, settled)
		if !p.Step(ctx) {
			t.Error("expected retry after initial failure")
		}
		if notifier.Count() != 1 {
			t.Errorf("expected 1 notification, got %d", notifier.Count())
		}
		if p.Step(ctx) {
			t.Error("expected no polling after settled payload")
		}
	})

	t.Run("Failure After Success Keeps Polling Decision", func(t *testing.T) {
		p, _ := newStepPoller(pending, boom)
		if !p.Step(ctx) {
			t.Fatal("expected polling for pending job")
		}
		if !p.Step(ctx) {
			t.Error("expected failure to keep polling")
		}
		if len(p.Records()) != 1 {
			t.Errorf("expected previous records kept, got %v", p.Records())
		}
	})

	t.Run("Failure After Success Keeps Idle Decision", func(t *testing.T) {
		p, _ := newStepPoller(settled, boom)
		if p.Step(ctx) {
			t.Fatal("expected no polling for settled job")
		}
		if p.Step(ctx) {
			t.Error("expected failure to keep idle decision")
		}
	})

	t.Run("Decision Uses Latest Payload", func(t *testing.T) {
		p, _ := newStepPoller(pending, settled, pending)
		got := []bool{p.Step(ctx), p.Step(ctx), p.Step(ctx)}
		want := []bool{true, false, true}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("step %d: expected %v, got %v", i, want[i], got[i])
			}
		}
	})

	t.Run("Delivers Updates", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 1)
		var delivered []models.Job
		p := NewPoller(PollerOpts[models.Job]{
			Fetch: func(ctx context.Context) ([]models.Job, error) {
				return []models.Job{job("a", models.JobSuccess), job("b", models.JobStarted)}, nil
			},
			Pending:  models.NonTerminal[models.Job],
			OnUpdate: func(jobs []models.Job) { delivered = jobs },
			Progress: progress,
			Phase:    PollJobs,
		})
		p.Step(ctx)

		if len(delivered) != 2 {
			t.Errorf("expected 2 delivered jobs, got %d", len(delivered))
		}
		update := <-progress
		if update.Phase != PollJobs || update.Step != 1 || update.Total != 2 {
			t.Errorf("unexpected update %+v", update)
		}
		if update.Message != "1 of 2 finished" {
			t.Errorf("unexpected message %q", update.Message)
		}
	})

	t.Run("Superseded Fetch Is Silent", func(t *testing.T) {
		p, notifier := newStepPoller(errors.New("request autocancelled"))
		p.Step(ctx)
		if notifier.Count() != 0 {
			t.Errorf("expected no notification, got %d", notifier.Count())
		}
	})
}

func TestPollerRun(t *testing.T) {
	t.Run("Stops Polling Once Settled", func(t *testing.T) {
		var calls atomic.Int32
		svc := &th.MockService{
			JobsFunc: func(ctx context.Context) ([]models.Job, error) {
				if calls.Add(1) < 3 {
					return []models.Job{job("a", models.JobProcessing)}, nil
				}
				return []models.Job{job("a", models.JobSuccess)}, nil
			},
		}
		q := NewQueries(svc, cache.NewStore(nil), nil)
		p := q.WatchJobs(WatchOpts{Interval: 5 * time.Millisecond}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- p.Run(ctx) }()

		waitFor(t, "three fetches", func() bool { return calls.Load() == 3 })
		waitFor(t, "idle poller", func() bool { return p.State() == PollIdle })
		time.Sleep(30 * time.Millisecond)
		if got := calls.Load(); got != 3 {
			t.Errorf("expected polling to stop after 3 fetches, got %d", got)
		}

		cancel()
		if err := <-done; err != nil {
			t.Errorf("expected nil on cancel, got %v", err)
		}
	})

	t.Run("Empty Collection Fetches Once", func(t *testing.T) {
		svc := &th.MockService{}
		q := NewQueries(svc, cache.NewStore(nil), nil)
		p := q.WatchJobs(WatchOpts{Interval: time.Millisecond}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		waitFor(t, "first fetch", func() bool { return svc.Calls("Jobs") == 1 })
		time.Sleep(20 * time.Millisecond)
		if got := svc.Calls("Jobs"); got != 1 {
			t.Errorf("expected 1 fetch, got %d", got)
		}
	})

	t.Run("Invalidation Wakes Idle Poller", func(t *testing.T) {
		store := cache.NewStore(nil)
		svc := &th.MockService{JobList: []models.Job{job("a", models.JobSuccess)}}
		q := NewQueries(svc, store, nil)
		p := q.WatchJobs(WatchOpts{Interval: time.Millisecond}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		waitFor(t, "first fetch", func() bool { return svc.Calls("Jobs") == 1 })
		waitFor(t, "idle poller", func() bool { return p.State() == PollIdle })

		m := NewMutations(svc, store, NewErrorHandler(nil, nil), nil)
		if _, err := m.CreateJobs(ctx, []string{"https://youtu.be/AAAAAAAAAAA"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		waitFor(t, "refetch after invalidation", func() bool { return svc.Calls("Jobs") == 2 })
	})

	t.Run("Fetches Never Overlap", func(t *testing.T) {
		var inflight, maxInflight atomic.Int32
		store := cache.NewStore(nil)
		svc := &th.MockService{
			JobsFunc: func(ctx context.Context) ([]models.Job, error) {
				n := inflight.Add(1)
				defer inflight.Add(-1)
				if n > maxInflight.Load() {
					maxInflight.Store(n)
				}
				time.Sleep(3 * time.Millisecond)
				return []models.Job{job("a", models.JobProcessing)}, nil
			},
		}
		p := NewQueries(svc, store, nil).WatchJobs(WatchOpts{Interval: time.Millisecond}, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
		defer cancel()
		go func() {
			for ctx.Err() == nil {
				store.Invalidate(cache.Jobs())
				time.Sleep(time.Millisecond)
			}
		}()
		p.Run(ctx)

		if got := maxInflight.Load(); got != 1 {
			t.Errorf("expected at most 1 in-flight fetch, got %d", got)
		}
		if svc.Calls("Jobs") < 2 {
			t.Errorf("expected repeated fetches, got %d", svc.Calls("Jobs"))
		}
	})

	t.Run("Failure Is Retried At Interval", func(t *testing.T) {
		notifier := &th.RecordingNotifier{}
		var calls atomic.Int32
		svc := &th.MockService{
			WebhookEventsFunc: func(ctx context.Context) ([]models.WebhookEvent, error) {
				if calls.Add(1) == 1 {
					return nil, errors.New("backend down")
				}
				return nil, nil
			},
		}
		q := NewQueries(svc, cache.NewStore(nil), nil)
		p := q.WatchWebhookEvents(WatchOpts{Interval: 5 * time.Millisecond, Errors: NewErrorHandler(notifier, nil)}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		waitFor(t, "retry", func() bool { return calls.Load() == 2 })
		if notifier.Count() != 1 {
			t.Errorf("expected 1 notification, got %d", notifier.Count())
		}
	})
}

func TestPollState(t *testing.T) {
	tc := map[PollState]string{PollIdle: "idle", PollFetching: "fetching", PollScheduled: "scheduled", PollState(9): ""}
	for state, want := range tc {
		if got := state.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
