package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/ytpod/internal/formatter"
	"github.com/desertthunder/ytpod/internal/models"
)

var (
	_ list.Item = podcastItem{}
)

// podcastItem wraps [models.Podcast] to implement [list.Item].
type podcastItem struct {
	podcast models.Podcast
}

func (i podcastItem) FilterValue() string { return i.podcast.Title }
func (i podcastItem) Title() string       { return i.podcast.Title }
func (i podcastItem) Description() string {
	desc := fmt.Sprintf("updated %s", formatter.FormatAge(i.podcast.Updated.Time))
	if i.podcast.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, formatter.Truncate(i.podcast.Description, 60))
	}
	return desc
}
