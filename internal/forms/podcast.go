package forms

import (
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/ytpod/internal/media"
	"github.com/desertthunder/ytpod/internal/models"
)

const (
	MinTitleLength       = 2
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// PodcastForm holds the fields of the create and edit podcast dialogs.
type PodcastForm struct {
	Title       string
	Description string
	Website     string
	CoverPath   string
}

// ValidateTitle checks the 2 to 100 character rule.
func ValidateTitle(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	switch {
	case n < MinTitleLength:
		return fieldErr("title", ErrTitleTooShort)
	case n > MaxTitleLength:
		return fieldErr("title", ErrTitleTooLong)
	}
	return nil
}

// Validate checks every field. In a partial update an empty title is left unchanged.
func (f PodcastForm) Validate(partial bool) error {
	if !(partial && f.Title == "") {
		if err := ValidateTitle(f.Title); err != nil {
			return err
		}
	}
	if utf8.RuneCountInString(f.Description) > MaxDescriptionLength {
		return fieldErr("description", ErrDescriptionLength)
	}
	return nil
}

// Input validates the form and prepares the cover image, if any.
func (f PodcastForm) Input(partial bool) (models.PodcastInput, error) {
	if err := f.Validate(partial); err != nil {
		return models.PodcastInput{}, err
	}

	in := models.PodcastInput{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Website:     strings.TrimSpace(f.Website),
	}
	if f.CoverPath != "" {
		cover, err := media.PrepareCover(f.CoverPath)
		if err != nil {
			return models.PodcastInput{}, fieldErr("cover", err)
		}
		in.Image = cover
	}
	return in, nil
}
