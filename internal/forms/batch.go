package forms

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// MaxRows is the default row ceiling of a [BatchForm].
const MaxRows = 50

var youtubeURL = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/)[\w-]{11}([&?].*)?$`)

// ValidYoutubeURL reports whether s is a YouTube watch or short link.
func ValidYoutubeURL(s string) bool {
	return youtubeURL.MatchString(s)
}

// SubmitFunc receives the cleaned URLs of a [BatchForm] for a target such as a podcast id.
type SubmitFunc func(ctx context.Context, target string, urls []string) error

// BatchForm is an ordered list of URL rows that grows by one empty row whenever the last row
// becomes a valid URL. It always has at least one row and never more than its max.
type BatchForm struct {
	rows []string
	max  int
}

// NewBatchForm returns a form with one empty row. maxRows <= 0 uses [MaxRows].
func NewBatchForm(maxRows int) *BatchForm {
	if maxRows <= 0 {
		maxRows = MaxRows
	}
	return &BatchForm{rows: []string{""}, max: maxRows}
}

func (f *BatchForm) Len() int { return len(f.rows) }
func (f *BatchForm) Max() int { return f.max }

// Rows returns a copy of the row values.
func (f *BatchForm) Rows() []string {
	return append([]string(nil), f.rows...)
}

func (f *BatchForm) Row(i int) string {
	if i < 0 || i >= len(f.rows) {
		return ""
	}
	return f.rows[i]
}

// SetRow stores v in row i and reports whether a new row was appended.
// Only an edit of the last row that makes it a valid URL grows the form.
func (f *BatchForm) SetRow(i int, v string) bool {
	if i < 0 || i >= len(f.rows) {
		return false
	}
	f.rows[i] = v

	if i == len(f.rows)-1 && v != "" && ValidYoutubeURL(v) && len(f.rows) < f.max {
		f.rows = append(f.rows, "")
		return true
	}
	return false
}

// AddRow appends an empty row unless the form is full.
func (f *BatchForm) AddRow() bool {
	if len(f.rows) >= f.max {
		return false
	}
	f.rows = append(f.rows, "")
	return true
}

// RemoveRow deletes row i. The first row cannot be removed.
func (f *BatchForm) RemoveRow(i int) bool {
	if i <= 0 || i >= len(f.rows) {
		return false
	}
	f.rows = append(f.rows[:i], f.rows[i+1:]...)
	return true
}

// SetRows replaces every row, as when pasting a list. Values past the max are dropped.
func (f *BatchForm) SetRows(values []string) {
	if len(values) > f.max {
		values = values[:f.max]
	}
	if len(values) == 0 {
		values = []string{""}
	}
	f.rows = append([]string(nil), values...)
}

// Paste splits text on newlines and whitespace into rows.
func (f *BatchForm) Paste(text string) {
	f.SetRows(strings.Fields(text))
}

// Reset returns the form to a single empty row.
func (f *BatchForm) Reset() {
	f.rows = []string{""}
}

// Errors returns one error per non-empty malformed row. Empty rows are never errors.
func (f *BatchForm) Errors() []error {
	var errs []error
	for i, v := range f.rows {
		t := strings.TrimSpace(v)
		if t != "" && !ValidYoutubeURL(t) {
			errs = append(errs, &FieldError{Field: "url", Row: i, Value: v, Err: ErrInvalidURL})
		}
	}
	return errs
}

func (f *BatchForm) Valid() bool { return len(f.Errors()) == 0 }

// URLs returns the trimmed non-empty rows, or the row errors if any row is malformed.
func (f *BatchForm) URLs() ([]string, error) {
	if errs := f.Errors(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	urls := make([]string, 0, len(f.rows))
	for _, v := range f.rows {
		if t := strings.TrimSpace(v); t != "" {
			urls = append(urls, t)
		}
	}
	return urls, nil
}

// Submit sends the cleaned URLs to fn and returns how many were sent.
// Nothing is sent when every row is empty.
func (f *BatchForm) Submit(ctx context.Context, target string, fn SubmitFunc) (int, error) {
	urls, err := f.URLs()
	if err != nil {
		return 0, err
	}
	if len(urls) == 0 {
		return 0, nil
	}
	if err := fn(ctx, target, urls); err != nil {
		return 0, err
	}
	return len(urls), nil
}
