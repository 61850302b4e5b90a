package forms

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidURL        = errors.New("please enter a valid YouTube video URL")
	ErrTitleTooShort     = errors.New("title must be at least 2 characters")
	ErrTitleTooLong      = errors.New("title must be at most 100 characters")
	ErrDescriptionLength = errors.New("description must be at most 500 characters")
	ErrUnsupportedAudio  = errors.New("unsupported audio file, expected .mp3, .wav or .aac")
	ErrTooManyFiles      = errors.New("maximum 50 files allowed")
	ErrWebhookURL        = errors.New("webhook URL must start with http:// or https://")
	ErrNoEvents          = errors.New("select at least one event")
	ErrUnknownEvent      = errors.New("unknown event")
	ErrEmpty             = errors.New("value is required")
)

// FieldError ties a validation error to a row or field.
type FieldError struct {
	Field string
	Row   int // -1 when the error is not row based
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("%s %d: %v (%q)", e.Field, e.Row+1, e.Err, e.Value)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldErr(field string, err error) *FieldError {
	return &FieldError{Field: field, Row: -1, Err: err}
}
