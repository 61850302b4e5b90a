package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytpod/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgUsageFetched MsgKind = iota
	MsgPodcastsFetched
	MsgJobsUpdated
	MsgItemsUpdated
	MsgJobsCreated
	MsgToast
	MsgToastExpired
)

// usageFetchedMsg is the constructor for [MsgUsageFetched]
func usageFetchedMsg(usage *models.Usage, err error) Msg {
	return Msg{
		kind: MsgUsageFetched,
		data: struct {
			usage *models.Usage
			err   error
		}{usage, err},
	}
}

// podcastsFetchedMsg is the constructor for [MsgPodcastsFetched]
func podcastsFetchedMsg(podcasts []models.Podcast, err error) Msg {
	return Msg{
		kind: MsgPodcastsFetched,
		data: struct {
			podcasts []models.Podcast
			err      error
		}{podcasts, err},
	}
}

// jobsUpdatedMsg is the constructor for [MsgJobsUpdated]
func jobsUpdatedMsg(jobs []models.Job) Msg {
	return Msg{kind: MsgJobsUpdated, data: jobs}
}

// itemsUpdatedMsg is the constructor for [MsgItemsUpdated]. Updates for a podcast
// other than the open one are dropped by the model.
func itemsUpdatedMsg(podcastID string, items []models.Item) Msg {
	return Msg{
		kind: MsgItemsUpdated,
		data: struct {
			podcastID string
			items     []models.Item
		}{podcastID, items},
	}
}

// jobsCreatedMsg is the constructor for [MsgJobsCreated]
func jobsCreatedMsg(count int, err error) Msg {
	return Msg{
		kind: MsgJobsCreated,
		data: struct {
			count int
			err   error
		}{count, err},
	}
}

// toast is a transient notice shown under the current view.
type toast struct {
	id          int
	title       string
	description string
}

// toastMsg is the constructor for [MsgToast]
func toastMsg(title, description string) Msg {
	return Msg{kind: MsgToast, data: toast{title: title, description: description}}
}

// toastExpiredMsg is the constructor for [MsgToastExpired]
func toastExpiredMsg(id int) Msg {
	return Msg{kind: MsgToastExpired, data: id}
}
