package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/ytpod/internal/forms"
	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/services"
	"github.com/desertthunder/ytpod/internal/session"
	"github.com/desertthunder/ytpod/internal/shared"
	tu "github.com/desertthunder/ytpod/internal/testing"
	"github.com/urfave/cli/v3"
)

const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type testEnv struct {
	runner *Runner
	svc    *tu.MockService
	out    *bytes.Buffer
	errOut *bytes.Buffer
	logs   *bytes.Buffer
	opened []string
	input  string
}

func newTestEnv(t *testing.T, svc *tu.MockService) *testEnv {
	t.Helper()
	env := &testEnv{svc: svc, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}, logs: &bytes.Buffer{}}

	config := shared.DefaultConfig()
	config.Polling.IntervalMS = 1

	env.runner = NewRunner(RunnerOpts{
		Config:    config,
		Service:   svc,
		Logger:    shared.NewLogger(env.logs),
		Output:    env.out,
		ErrOutput: env.errOut,
		OpenURL: func(u string) error {
			env.opened = append(env.opened, u)
			return nil
		},
	})
	return env
}

func (e *testEnv) run(args ...string) error {
	app := &cli.Command{
		Name:      "ytpod",
		Commands:  e.runner.register(),
		Reader:    strings.NewReader(e.input),
		Writer:    e.out,
		ErrWriter: e.errOut,
	}
	return app.Run(context.Background(), append([]string{"ytpod"}, args...))
}

func tierUsage(tier string) *models.Usage {
	u := &models.Usage{Usage: 10, Limit: 100}
	u.Expand.Tier = &models.SubscriptionTier{Title: tier, LookupKey: tier}
	return u
}

func TestPodcastCommands(t *testing.T) {
	t.Run("list as JSON", func(t *testing.T) {
		svc := &tu.MockService{PodcastList: []models.Podcast{
			{Record: models.Record{ID: "p1"}, Title: "Weekly"},
			{Record: models.Record{ID: "p2"}, Title: "Daily"},
		}}
		env := newTestEnv(t, svc)

		if err := env.run("podcasts", "list", "--format", "json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var got []models.Podcast
		if err := json.Unmarshal(env.out.Bytes(), &got); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", env.out.String(), err)
		}
		if len(got) != 2 || got[0].Title != "Weekly" {
			t.Errorf("expected both podcasts, got %+v", got)
		}
	})

	t.Run("list empty table", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockService{})

		if err := env.run("podcasts", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.out.String(), "No podcasts yet") {
			t.Errorf("expected empty message, got %q", env.out.String())
		}
	})

	t.Run("create validates the title", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)

		err := env.run("podcasts", "create", "--title", "A")
		if !errors.Is(err, forms.ErrTitleTooShort) {
			t.Errorf("expected ErrTitleTooShort, got %v", err)
		}
		if svc.Calls("CreatePodcast") != 0 {
			t.Error("expected no backend call for an invalid title")
		}
	})

	t.Run("create", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)

		if err := env.run("podcasts", "create", "--title", "Weekly", "--description", "News"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if svc.Calls("CreatePodcast") != 1 {
			t.Fatalf("expected 1 CreatePodcast call, got %d", svc.Calls("CreatePodcast"))
		}
		if !strings.Contains(env.out.String(), "Created podcast Weekly (pod_new)") {
			t.Errorf("expected confirmation, got %q", env.out.String())
		}
	})

	t.Run("update without fields", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockService{})

		err := env.run("podcasts", "update", "p1")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("delete asks for confirmation", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)
		env.input = "n\n"

		if err := env.run("podcasts", "delete", "p1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if svc.Calls("DeletePodcast") != 0 {
			t.Error("expected delete to be cancelled")
		}
		if !strings.Contains(env.out.String(), "Cancelled") {
			t.Errorf("expected cancellation message, got %q", env.out.String())
		}
	})

	t.Run("delete with yes", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)

		if err := env.run("podcasts", "delete", "--yes", "p1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if svc.Calls("DeletePodcast") != 1 {
			t.Errorf("expected 1 DeletePodcast call, got %d", svc.Calls("DeletePodcast"))
		}
	})

	t.Run("share prints a generated link", func(t *testing.T) {
		svc := &tu.MockService{Links: map[string]string{"pocketcasts": "https://pca.st/abc"}}
		env := newTestEnv(t, svc)

		if err := env.run("podcasts", "share", "p1", "pocketcasts"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.TrimSpace(env.out.String()) != "https://pca.st/abc" {
			t.Errorf("expected link, got %q", env.out.String())
		}
	})

	t.Run("share without a link prints submission steps", func(t *testing.T) {
		svc := &tu.MockService{PodcastList: []models.Podcast{
			{Record: models.Record{ID: "p1"}, Title: "Weekly", File: "feed.xml"},
		}}
		env := newTestEnv(t, svc)

		if err := env.run("podcasts", "share", "p1", "apple"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := env.out.String()
		if !strings.Contains(out, "podcastsconnect.apple.com") {
			t.Errorf("expected submission page, got %q", out)
		}
		if !strings.Contains(out, "https://files.test/p1/feed.xml") {
			t.Errorf("expected feed URL, got %q", out)
		}
	})

	t.Run("share saves a link", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)

		if err := env.run("podcasts", "share", "--url", "https://open.spotify.com/show/1", "p1", "spotify"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		args := svc.LastArgs("SetShareURL")
		if len(args) != 3 || args[2] != "https://open.spotify.com/show/1" {
			t.Errorf("expected SetShareURL with the link, got %v", args)
		}
	})

	t.Run("share rejects unknown platforms", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockService{})

		err := env.run("podcasts", "share", "p1", "myspace")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestJobCommands(t *testing.T) {
	t.Run("create is gated on lower tiers", func(t *testing.T) {
		svc := &tu.MockService{UsageRecord: tierUsage("free")}
		env := newTestEnv(t, svc)

		err := env.run("jobs", "create", videoURL)
		if !errors.Is(err, shared.ErrGated) {
			t.Fatalf("expected ErrGated, got %v", err)
		}
		if !strings.Contains(err.Error(), "billing checkout powerUserMonthly") {
			t.Errorf("expected upgrade hint, got %v", err)
		}
		if svc.Calls("CreateJobs") != 0 {
			t.Error("expected no jobs to be created")
		}
	})

	t.Run("create over quota on a paid plan points at the portal", func(t *testing.T) {
		usage := tierUsage("power_user_monthly")
		usage.Usage = usage.Limit
		env := newTestEnv(t, &tu.MockService{UsageRecord: usage})

		err := env.run("jobs", "create", videoURL)
		if !errors.Is(err, shared.ErrGated) {
			t.Fatalf("expected ErrGated, got %v", err)
		}
		if !strings.Contains(err.Error(), "'ytpod billing portal'") || strings.Contains(err.Error(), "checkout") {
			t.Errorf("expected portal hint, got %v", err)
		}
	})

	t.Run("create", func(t *testing.T) {
		svc := &tu.MockService{UsageRecord: tierUsage("power_user_monthly")}
		env := newTestEnv(t, svc)

		if err := env.run("jobs", "create", videoURL, "https://youtu.be/dQw4w9WgXcQ"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		urls, _ := svc.LastArgs("CreateJobs")[0].([]string)
		if len(urls) != 2 {
			t.Errorf("expected 2 URLs, got %v", urls)
		}
		if !strings.Contains(env.out.String(), "Created 2 job(s) in batch batch") {
			t.Errorf("expected batch summary, got %q", env.out.String())
		}
	})

	t.Run("create reads URLs from a file", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)

		path := filepath.Join(t.TempDir(), "urls.txt")
		content := "# queued\n" + videoURL + "\n\nhttps://youtu.be/dQw4w9WgXcQ\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write URL file: %v", err)
		}

		if err := env.run("jobs", "create", "--file", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		urls, _ := svc.LastArgs("CreateJobs")[0].([]string)
		if len(urls) != 2 {
			t.Errorf("expected 2 URLs from file, got %v", urls)
		}
	})

	t.Run("create drops URLs past the row limit", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)
		env.runner.config.Forms.MaxRows = 2

		if err := env.run("jobs", "create", videoURL, "https://youtu.be/dQw4w9WgXcQ", "https://youtu.be/9bZkp7q19f0"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		urls, _ := svc.LastArgs("CreateJobs")[0].([]string)
		if len(urls) != 2 || urls[1] != "https://youtu.be/dQw4w9WgXcQ" {
			t.Errorf("expected the first 2 URLs, got %v", urls)
		}
		if !strings.Contains(env.logs.String(), "1 dropped") {
			t.Errorf("expected a dropped URL warning, got %q", env.logs.String())
		}
	})

	t.Run("create rejects malformed URLs", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)

		err := env.run("jobs", "create", "https://example.com/video")
		if !errors.Is(err, forms.ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL, got %v", err)
		}
		if svc.Calls("CreateJobs") != 0 {
			t.Error("expected no jobs to be created")
		}
	})

	t.Run("create without URLs", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockService{})

		err := env.run("jobs", "create")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("watch stops once every job settles", func(t *testing.T) {
		var fetches atomic.Int32
		svc := &tu.MockService{JobsFunc: func(ctx context.Context) ([]models.Job, error) {
			status := models.JobProcessing
			if fetches.Add(1) > 1 {
				status = models.JobSuccess
			}
			return []models.Job{{Record: models.Record{ID: "j1"}, Title: "Talk", Status: status}}, nil
		}}
		env := newTestEnv(t, svc)

		if err := env.run("jobs", "watch"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := env.out.String()
		if !strings.Contains(out, "PROCESSING") || !strings.Contains(out, "SUCCESS") {
			t.Errorf("expected both status transitions, got %q", out)
		}
		if !strings.Contains(out, "All 1 job(s) finished, 0 failed") {
			t.Errorf("expected summary, got %q", out)
		}
	})
}

func TestItemCommands(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)

		if err := env.run("items", "add", "p1", videoURL); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		args := svc.LastArgs("AddYoutubeURLs")
		if len(args) != 2 || args[0] != "p1" {
			t.Fatalf("expected AddYoutubeURLs for p1, got %v", args)
		}
		if !strings.Contains(env.out.String(), "Added 1 episode(s)") {
			t.Errorf("expected confirmation, got %q", env.out.String())
		}
	})

	t.Run("add is gated once usage is used up", func(t *testing.T) {
		usage := tierUsage("basic_monthly")
		usage.Usage = usage.Limit
		svc := &tu.MockService{UsageRecord: usage}
		env := newTestEnv(t, svc)

		err := env.run("items", "add", "p1", videoURL)
		if !errors.Is(err, shared.ErrGated) {
			t.Errorf("expected ErrGated, got %v", err)
		}
	})

	t.Run("upload", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)

		path := filepath.Join(t.TempDir(), "interview.mp3")
		if err := os.WriteFile(path, []byte("ID3"), 0644); err != nil {
			t.Fatalf("failed to write audio file: %v", err)
		}

		if err := env.run("items", "upload", "--title", "The Interview", "p1", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		args := svc.LastArgs("AddAudioFiles")
		if len(args) != 2 {
			t.Fatalf("expected AddAudioFiles call, got %v", args)
		}
		files, _ := args[1].([]models.AudioFile)
		if len(files) != 1 || files[0].Title != "The Interview" {
			t.Errorf("expected titled upload, got %+v", files)
		}
	})

	t.Run("upload rejects unsupported files", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)

		path := filepath.Join(t.TempDir(), "notes.txt")
		if err := os.WriteFile(path, []byte("notes"), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		err := env.run("items", "upload", "p1", path)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if svc.Calls("AddAudioFiles") != 0 {
			t.Error("expected nothing to be uploaded")
		}
	})
}

func TestWebhookCommands(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)

		if err := env.run("webhook", "create", "--url", "https://example.com/hook", "--events", "success,error"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		in, _ := svc.LastArgs("CreateWebhook")[0].(models.WebhookInput)
		if len(in.Events) != 2 || in.Events[0] != models.EventSuccess {
			t.Errorf("expected parsed events, got %v", in.Events)
		}
	})

	t.Run("create refuses a second webhook", func(t *testing.T) {
		svc := &tu.MockService{Hook: &models.Webhook{Record: models.Record{ID: "h1"}, URL: "https://example.com/old"}}
		env := newTestEnv(t, svc)

		err := env.run("webhook", "create", "--url", "https://example.com/hook", "--events", "success")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if svc.Calls("CreateWebhook") != 0 {
			t.Error("expected no webhook to be created")
		}
	})

	t.Run("create rejects a bad URL", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockService{})

		err := env.run("webhook", "create", "--url", "ftp://example.com", "--events", "success")
		if !errors.Is(err, forms.ErrWebhookURL) {
			t.Errorf("expected ErrWebhookURL, got %v", err)
		}
	})

	t.Run("update disables deliveries", func(t *testing.T) {
		svc := &tu.MockService{Hook: &models.Webhook{Record: models.Record{ID: "h1"}, URL: "https://example.com/hook", Enabled: true}}
		env := newTestEnv(t, svc)

		if err := env.run("webhook", "update", "--disable"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		args := svc.LastArgs("UpdateWebhook")
		if len(args) != 2 || args[0] != "h1" {
			t.Fatalf("expected update of h1, got %v", args)
		}
		in := args[1].(models.WebhookInput)
		if in.Enabled == nil || *in.Enabled {
			t.Errorf("expected Enabled=false, got %v", in.Enabled)
		}
	})

	t.Run("update with both enable and disable", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockService{})

		err := env.run("webhook", "update", "--enable", "--disable")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("show without a webhook", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockService{})

		err := env.run("webhook", "show")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAccountCommands(t *testing.T) {
	t.Run("keys generate prints the key once", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)

		if err := env.run("keys", "generate", "ci"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.out.String(), "plaintext") {
			t.Errorf("expected key value in output, got %q", env.out.String())
		}
	})

	t.Run("keys generate is gated on basic plans", func(t *testing.T) {
		svc := &tu.MockService{UsageRecord: tierUsage("basic_yearly")}
		env := newTestEnv(t, svc)

		err := env.run("keys", "generate", "ci")
		if !errors.Is(err, shared.ErrGated) {
			t.Errorf("expected ErrGated, got %v", err)
		}
		if svc.Calls("GenerateAPIKey") != 0 {
			t.Error("expected no key to be generated")
		}
	})

	t.Run("billing checkout opens the browser", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockService{})

		if err := env.run("billing", "checkout", "powerUserYearly"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(env.opened) != 1 || env.opened[0] != "https://checkout.test/powerUserYearly" {
			t.Errorf("expected checkout URL to be opened, got %v", env.opened)
		}
	})

	t.Run("billing checkout rejects unknown plans", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockService{})

		err := env.run("billing", "checkout", "platinum")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("usage shows gated actions", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockService{UsageRecord: tierUsage("free")})

		if err := env.run("usage"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := env.out.String()
		if !strings.Contains(out, "Power User plan") {
			t.Errorf("expected tier reason, got %q", out)
		}
		if !strings.Contains(out, "ytpod billing checkout") {
			t.Errorf("expected upgrade hint, got %q", out)
		}
	})

	t.Run("rename", func(t *testing.T) {
		svc := &tu.MockService{}
		env := newTestEnv(t, svc)

		if err := env.run("account", "rename", "Ada"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if args := svc.LastArgs("UpdateUsername"); len(args) != 1 || args[0] != "Ada" {
			t.Errorf("expected rename to Ada, got %v", args)
		}
	})
}

type fakeAuth struct {
	email, password string
}

func (f *fakeAuth) AuthMethods(ctx context.Context) (*services.AuthMethods, error) {
	return &services.AuthMethods{}, nil
}

func (f *fakeAuth) AuthWithOAuth2(ctx context.Context, provider, code, codeVerifier, redirectURL string) (*services.AuthResponse, error) {
	return nil, shared.ErrAuthFailed
}

func (f *fakeAuth) AuthWithPassword(ctx context.Context, identity, password string) (*services.AuthResponse, error) {
	f.email, f.password = identity, password
	res := &services.AuthResponse{Token: "token"}
	res.Record.ID = "u1"
	res.Record.Email = identity
	return res, nil
}

func TestAuthCommands(t *testing.T) {
	t.Run("login with password", func(t *testing.T) {
		auth := &fakeAuth{}
		out := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Service:  &tu.MockService{},
			Auth:     auth,
			Sessions: session.NewManager(session.ManagerOpts{}),
			Logger:   shared.NewLogger(&bytes.Buffer{}),
			Output:   out,
		})
		app := &cli.Command{Name: "ytpod", Commands: runner.register()}

		err := app.Run(context.Background(), []string{"ytpod", "auth", "login", "--email", "a@example.com", "--password", "secret"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if auth.email != "a@example.com" || auth.password != "secret" {
			t.Errorf("expected credentials to be forwarded, got %q/%q", auth.email, auth.password)
		}
		if !strings.Contains(out.String(), "Signed in as a@example.com") {
			t.Errorf("expected sign-in message, got %q", out.String())
		}
	})

	t.Run("login without a backend", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(&bytes.Buffer{})})
		app := &cli.Command{Name: "ytpod", Commands: runner.register()}

		err := app.Run(context.Background(), []string{"ytpod", "auth", "login", "--email", "a@example.com", "--password", "secret"})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestErrorReporting(t *testing.T) {
	t.Run("backend failures are notified once", func(t *testing.T) {
		svc := &tu.MockService{Err: errors.New("connection refused")}
		env := newTestEnv(t, svc)

		err := env.run("podcasts", "list")
		if err == nil {
			t.Fatal("expected error from failing service")
		}
		if !env.runner.Notified() {
			t.Error("expected the failure to be marked as notified")
		}
		if !strings.Contains(env.errOut.String(), "connection refused") {
			t.Errorf("expected failure on error output, got %q", env.errOut.String())
		}
	})

	t.Run("validation failures are left to the caller", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockService{})

		if err := env.run("jobs", "create", "not a url"); err == nil {
			t.Fatal("expected validation error")
		}
		if env.runner.Notified() {
			t.Error("expected validation errors not to be notified")
		}
	})
}
