package forms

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytpod/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestAudioUploadList(t *testing.T) {
	ctx := context.Background()

	t.Run("Add Filters Extensions", func(t *testing.T) {
		dir := t.TempDir()
		var l AudioUploadList
		rejected, err := l.Add(
			writeFile(t, dir, "Episode One.mp3", "abc"),
			writeFile(t, dir, "two.WAV", "de"),
			writeFile(t, dir, "notes.txt", "x"),
		)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if l.Len() != 2 || len(rejected) != 1 {
			t.Errorf("expected 2 entries and 1 rejected, got %d and %v", l.Len(), rejected)
		}
		e := l.Entries()[0]
		if e.Title != "Episode One" || e.Size != 3 || e.Name != "Episode One.mp3" {
			t.Errorf("unexpected entry %+v", e)
		}
	})

	t.Run("Add Caps At Max", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "a.aac", "x")
		var l AudioUploadList
		for i := 0; i < 55; i++ {
			l.Add(path)
		}
		if l.Len() != MaxAudioFiles {
			t.Errorf("expected %d entries, got %d", MaxAudioFiles, l.Len())
		}
	})

	t.Run("Single Character Title Is Invalid", func(t *testing.T) {
		var l AudioUploadList
		l.Add(writeFile(t, t.TempDir(), "a.mp3", "x"))
		if len(l.Errors()) != 1 {
			t.Fatalf("expected default title 'a' to be invalid")
		}
		_, err := l.Submit(ctx, "p1", func(context.Context, string, []models.AudioFile) error {
			t.Error("expected no call")
			return nil
		})
		if !errors.Is(err, ErrTitleTooShort) {
			t.Errorf("expected ErrTitleTooShort, got %v", err)
		}

		l.SetTitle(0, "ab")
		if len(l.Errors()) != 0 {
			t.Error("expected valid title")
		}
	})

	t.Run("Blank Title Reverts To File Name", func(t *testing.T) {
		var l AudioUploadList
		l.Add(writeFile(t, t.TempDir(), "intro.mp3", "x"))
		l.SetTitle(0, "   ")
		if got := l.Entries()[0].Title; got != "intro" {
			t.Errorf("expected intro, got %q", got)
		}
	})

	t.Run("Submit Opens Files", func(t *testing.T) {
		var l AudioUploadList
		l.Add(writeFile(t, t.TempDir(), "intro.mp3", "audio-bytes"))
		l.SetTitle(0, "The Intro")

		n, err := l.Submit(ctx, "p1", func(ctx context.Context, id string, files []models.AudioFile) error {
			if id != "p1" || len(files) != 1 {
				t.Errorf("unexpected call %s %v", id, files)
			}
			data, _ := io.ReadAll(files[0].Reader)
			if string(data) != "audio-bytes" || files[0].Title != "The Intro" {
				t.Errorf("unexpected file %q %q", data, files[0].Title)
			}
			return nil
		})
		if err != nil || n != 1 {
			t.Errorf("expected 1 upload, got %d %v", n, err)
		}
		if l.Len() != 0 {
			t.Error("expected list cleared after upload")
		}
	})

	t.Run("Submit Sends Duration", func(t *testing.T) {
		dir := t.TempDir()
		var l AudioUploadList
		l.Add(writeWAV(t, dir, "interview.wav", 3), writeFile(t, dir, "notes.aac", "aac-bytes"))

		if d := l.Entries()[0].Duration; d < 3*time.Second {
			t.Errorf("expected entry duration of about 3s, got %v", d)
		}
		_, err := l.Submit(ctx, "p1", func(ctx context.Context, id string, files []models.AudioFile) error {
			if got := files[0].Duration; got < 3 || got > 3.01 {
				t.Errorf("expected about 3 seconds, got %v", got)
			}
			if got := files[1].Duration; got != 0 {
				t.Errorf("expected unknown duration to be 0, got %v", got)
			}
			return nil
		})
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Empty Submit Is A No-op", func(t *testing.T) {
		var l AudioUploadList
		if n, err := l.Submit(ctx, "p1", nil); n != 0 || err != nil {
			t.Errorf("expected no-op, got %d %v", n, err)
		}
	})
}

func TestPodcastForm(t *testing.T) {
	t.Run("Title Bounds", func(t *testing.T) {
		tc := map[string]error{
			"a":                      ErrTitleTooShort,
			"  a  ":                  ErrTitleTooShort,
			"ab":                     nil,
			strings.Repeat("x", 100): nil,
			strings.Repeat("x", 101): ErrTitleTooLong,
		}
		for title, want := range tc {
			err := ValidateTitle(title)
			if want == nil && err != nil || want != nil && !errors.Is(err, want) {
				t.Errorf("ValidateTitle(%d chars): expected %v, got %v", len(title), want, err)
			}
		}
	})

	t.Run("Description Limit", func(t *testing.T) {
		f := PodcastForm{Title: "Show", Description: strings.Repeat("d", 501)}
		if err := f.Validate(false); !errors.Is(err, ErrDescriptionLength) {
			t.Errorf("expected ErrDescriptionLength, got %v", err)
		}
	})

	t.Run("Partial Update Allows Empty Title", func(t *testing.T) {
		in, err := PodcastForm{Description: "new"}.Input(true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if in.Title != "" || in.Description != "new" {
			t.Errorf("unexpected input %+v", in)
		}
	})

	t.Run("Bad Cover", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "cover.png", "nope")
		if _, err := (PodcastForm{Title: "Show", CoverPath: path}).Input(false); err == nil {
			t.Error("expected cover error")
		}
	})
}

func TestWebhookForm(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		in, err := WebhookForm{URL: " https://example.com/hook ", Events: []string{"created,success", "SUCCESS"}}.Input(false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if in.URL != "https://example.com/hook" {
			t.Errorf("unexpected url %q", in.URL)
		}
		if len(in.Events) != 2 || in.Events[0] != models.EventCreated || in.Events[1] != models.EventSuccess {
			t.Errorf("unexpected events %v", in.Events)
		}
	})

	t.Run("URL Must Be HTTP", func(t *testing.T) {
		for _, u := range []string{"", "example.com", "ftp://example.com", "https://"} {
			if _, err := (WebhookForm{URL: u, Events: []string{"ERROR"}}).Input(false); !errors.Is(err, ErrWebhookURL) {
				t.Errorf("%q: expected ErrWebhookURL, got %v", u, err)
			}
		}
	})

	t.Run("Events Required", func(t *testing.T) {
		if _, err := (WebhookForm{URL: "https://example.com"}).Input(false); !errors.Is(err, ErrNoEvents) {
			t.Errorf("expected ErrNoEvents, got %v", err)
		}
		if _, err := (WebhookForm{URL: "https://example.com", Events: []string{"DELETED"}}).Input(false); !errors.Is(err, ErrUnknownEvent) {
			t.Errorf("expected ErrUnknownEvent, got %v", err)
		}
	})

	t.Run("Partial Update", func(t *testing.T) {
		enabled := false
		in, err := WebhookForm{Enabled: &enabled}.Input(true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(in.Fields()) != 1 {
			t.Errorf("expected only enabled to be sent, got %v", in.Fields())
		}
	})
}

func TestRequired(t *testing.T) {
	if _, err := Required("content", "   "); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if got, err := Required("name", "  Ada "); err != nil || got != "Ada" {
		t.Errorf("expected Ada, got %q %v", got, err)
	}
}
