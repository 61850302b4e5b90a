// Package ui implements an interactive terminal dashboard using bubbletea's Elm architecture.
//
// The TUI has four views:
//  1. [JobsView] : Conversion jobs, refreshed live while any job is still converting
//  2. [NewJobsView] : A form of YouTube URL rows submitted as one batch of jobs
//  3. [PodcastsView] : Browse the user's podcasts
//  4. [EpisodesView] : Episodes of the selected podcast, refreshed live while processing
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Pollers from the tasks package run in goroutines and deliver their snapshots through a channel,
// which the model drains one message at a time. Failed operations surface as a toast under the current view.
//
// The usage header reads the same usage record the gate package uses to disable job creation.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, tab, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
