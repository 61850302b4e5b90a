package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PollJobs Phase = iota
	PollItems
	PollWebhookEvents
	PollRetry
	FetchEpisodes
	DownloadEpisode
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case PollJobs:
		return "poll_jobs"
	case PollItems:
		return "poll_items"
	case PollWebhookEvents:
		return "poll_webhook_events"
	case PollRetry:
		return "poll_retry"
	case FetchEpisodes:
		return "fetch_episodes"
	case DownloadEpisode:
		return "download_episode"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}

func pollUpdate(phase Phase, done, total int, records any) ProgressUpdate {
	msg := fmt.Sprintf("%d of %d finished", done, total)
	if done == total {
		msg = fmt.Sprintf("All %d finished", total)
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    done,
		Total:   total,
		Message: msg,
		Data:    records,
	}
}

func pollRetryUpdate(phase Phase, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PollRetry,
		Message: fmt.Sprintf("%s failed, retrying: %v", phase, err),
	}
}

func fetchEpisodesUpdate(podcastID string, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchEpisodes,
		Total:   total,
		Message: fmt.Sprintf("Found %d downloadable episodes in %s", total, podcastID),
	}
}

func downloadCompletedUpdate(step, total int, res EpisodeDownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadEpisode,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, res.Title),
		Data:    res,
	}
}

func downloadFailedUpdate(step, total int, res EpisodeDownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadEpisode,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Title, res.Error),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Manifest written to %s", path),
	}
}
