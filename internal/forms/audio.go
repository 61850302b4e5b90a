package forms

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/ytpod/internal/models"
)

// MaxAudioFiles caps an [AudioUploadList].
const MaxAudioFiles = 50

// AudioExtensions are the accepted upload extensions.
var AudioExtensions = []string{".mp3", ".wav", ".aac"}

// SupportedAudio reports whether name has an accepted extension.
func SupportedAudio(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range AudioExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DefaultTitle is the file name without its extension.
func DefaultTitle(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// AudioEntry is a selected file and the episode title it will be uploaded with.
type AudioEntry struct {
	Path     string
	Name     string
	Size     int64
	Duration time.Duration
	Title    string
}

// AudioUploadList is the set of local audio files queued for a podcast.
type AudioUploadList struct {
	entries []AudioEntry
}

func (l *AudioUploadList) Len() int { return len(l.entries) }

func (l *AudioUploadList) Entries() []AudioEntry {
	return append([]AudioEntry(nil), l.entries...)
}

// Add queues files and returns those rejected for an unsupported extension.
// Files past [MaxAudioFiles] are dropped silently.
func (l *AudioUploadList) Add(paths ...string) (rejected []string, err error) {
	for _, p := range paths {
		if !SupportedAudio(p) {
			rejected = append(rejected, p)
			continue
		}
		if len(l.entries) >= MaxAudioFiles {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return rejected, fmt.Errorf("failed to read %s: %w", p, err)
		}
		if info.IsDir() {
			rejected = append(rejected, p)
			continue
		}
		// Files without a readable length are still uploaded, with a zero duration.
		duration, _ := AudioDuration(p)
		l.entries = append(l.entries, AudioEntry{
			Path:     p,
			Name:     filepath.Base(p),
			Size:     info.Size(),
			Duration: duration,
			Title:    DefaultTitle(p),
		})
	}
	return rejected, nil
}

// SetTitle changes the title of entry i. A blank title reverts to the file name.
func (l *AudioUploadList) SetTitle(i int, title string) {
	if i < 0 || i >= len(l.entries) {
		return
	}
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle(l.entries[i].Name)
	}
	l.entries[i].Title = title
}

func (l *AudioUploadList) Remove(i int) {
	if i < 0 || i >= len(l.entries) {
		return
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
}

// Errors flags entries whose title is a single character.
func (l *AudioUploadList) Errors() []error {
	var errs []error
	for i, e := range l.entries {
		if n := utf8.RuneCountInString(strings.TrimSpace(e.Title)); n > 0 && n < 2 {
			errs = append(errs, &FieldError{Field: "title", Row: i, Value: e.Title, Err: ErrTitleTooShort})
		}
	}
	return errs
}

// AudioSubmitFunc uploads opened files to a podcast.
type AudioSubmitFunc func(ctx context.Context, podcastID string, files []models.AudioFile) error

// Submit opens every queued file and passes them to fn. Blank titles fall back to the file name.
// Nothing is sent for an empty list.
func (l *AudioUploadList) Submit(ctx context.Context, podcastID string, fn AudioSubmitFunc) (int, error) {
	if errs := l.Errors(); len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	if len(l.entries) == 0 {
		return 0, nil
	}

	files := make([]models.AudioFile, 0, len(l.entries))
	var opened []*os.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, e := range l.entries {
		f, err := os.Open(e.Path)
		if err != nil {
			return 0, fmt.Errorf("failed to open %s: %w", e.Path, err)
		}
		opened = append(opened, f)

		title := strings.TrimSpace(e.Title)
		if title == "" {
			title = e.Name
		}
		files = append(files, models.AudioFile{
			Title:    title,
			Name:     e.Name,
			Size:     e.Size,
			Duration: e.Duration.Seconds(),
			Reader:   f,
		})
	}

	if err := fn(ctx, podcastID, files); err != nil {
		return 0, err
	}
	count := len(files)
	l.entries = nil
	return count, nil
}
