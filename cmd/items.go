package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/ytpod/internal/formatter"
	"github.com/desertthunder/ytpod/internal/forms"
	"github.com/desertthunder/ytpod/internal/gate"
	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/shared"
	"github.com/desertthunder/ytpod/internal/tasks"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// ItemsList lists a podcast's episodes, newest first.
func (r *Runner) ItemsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	podcastID, err := forms.Required("podcast", cmd.StringArg("podcast"))
	if err != nil {
		return err
	}

	items, err := r.queries.Items(ctx, podcastID)
	if err != nil {
		return r.errors.Handle(err)
	}

	episodes := make([]formatter.Episode, 0, len(items))
	for _, item := range items {
		episodes = append(episodes, formatter.NewEpisode(item, r.audioURL))
	}

	return r.render(cmd, episodes, func() error {
		if len(episodes) == 0 {
			return r.writePlain("No episodes yet. Add some with 'ytpod items add %s <url>...'\n", podcastID)
		}
		rows := make([][]string, 0, len(episodes))
		for _, ep := range episodes {
			status := string(ep.Status)
			if ep.Error != "" {
				status += ": " + formatter.Truncate(ep.Error, 30)
			}
			rows = append(rows, []string{
				ep.ID,
				formatter.Truncate(ep.Title, 45),
				string(ep.Type),
				status,
				formatter.FormatDuration(ep.Duration),
				formatter.FormatFileSize(ep.Size),
				formatter.FormatAge(ep.Created),
			})
		}
		return r.writeTable(
			[]string{"ID", "Title", "Type", "Status", "Duration", "Size", "Added"},
			rows,
			[]formatter.Align{
				formatter.AlignLeft, formatter.AlignLeft, formatter.AlignLeft, formatter.AlignLeft,
				formatter.AlignRight, formatter.AlignRight, formatter.AlignRight,
			},
		)
	})
}

// ItemsAdd adds YouTube videos to a podcast.
func (r *Runner) ItemsAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: podcast id is required", shared.ErrMissingArgument)
	}
	podcastID := args[0]

	form, err := r.batchForm(cmd, args[1:])
	if err != nil {
		return err
	}
	if err := r.checkGate(ctx, gate.AddURLItems); err != nil {
		return err
	}

	n, err := form.Submit(ctx, podcastID, r.mutations.AddYoutubeURLs)
	if err != nil {
		return err
	}
	r.writePlain("✓ Added %d episode(s)\n", n)
	return r.writePlain("Follow their progress with: ytpod items watch %s\n", podcastID)
}

// ItemsUpload uploads local audio files as episodes. --title values apply to files in order.
func (r *Runner) ItemsUpload(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("%w: podcast id and at least one audio file are required", shared.ErrMissingArgument)
	}
	podcastID := args[0]

	var list forms.AudioUploadList
	rejected, err := list.Add(args[1:]...)
	if err != nil {
		return err
	}
	if len(rejected) > 0 {
		return fmt.Errorf("%w: unsupported file(s) %s, accepted: %s",
			shared.ErrInvalidArgument, strings.Join(rejected, ", "), strings.Join(forms.AudioExtensions, ", "))
	}
	if list.Len() < len(args)-1 {
		r.logger.Warnf("only the first %d files are uploaded", forms.MaxAudioFiles)
	}

	for i, title := range cmd.StringSlice("title") {
		list.SetTitle(i, title)
	}

	if err := r.checkGate(ctx, gate.UploadAudio); err != nil {
		return err
	}

	var total int64
	for _, e := range list.Entries() {
		total += e.Size
	}
	r.writePlain("→ Uploading %d file(s), %s...\n", list.Len(), formatter.FormatFileSize(total))

	n, err := list.Submit(ctx, podcastID, r.mutations.AddAudioFiles)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Uploaded %d episode(s)\n", n)
}

// ItemsDelete deletes an episode after confirmation.
func (r *Runner) ItemsDelete(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	id, err := forms.Required("id", cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if !r.confirm(cmd, fmt.Sprintf("Delete episode %s?", id)) {
		return r.writePlain("Cancelled\n")
	}
	if err := r.mutations.DeleteItem(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted episode %s\n", id)
}

// ItemsWatch follows a podcast's episodes until none is processing.
func (r *Runner) ItemsWatch(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	podcastID, err := forms.Required("podcast", cmd.StringArg("podcast"))
	if err != nil {
		return err
	}

	tracker := newStatusTracker(r)
	interval := r.config.Polling.Interval()
	poller := r.queries.WatchItems(podcastID, tasks.WatchOpts{Interval: interval, Errors: r.errors}, func(items []models.Item) {
		for i := len(items) - 1; i >= 0; i-- {
			base := items[i].Base()
			tracker.observe(base.ID, items[i].DisplayTitle(), string(base.Status), base.Error)
		}
	})

	r.writePlain("→ Watching episodes of %s (Ctrl+C to stop)...\n", podcastID)
	watchUntilSettled(ctx, poller, interval)
	if ctx.Err() != nil {
		return nil
	}
	return r.writePlain("✓ All %d episode(s) finished processing\n", len(poller.Records()))
}

// ItemsDownload downloads every finished episode with a progress bar and writes a manifest.
func (r *Runner) ItemsDownload(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	podcastID, err := forms.Required("podcast", cmd.StringArg("podcast"))
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})

	go func() {
		defer close(done)
		var bar *progressbar.ProgressBar
		for update := range progress {
			switch update.Phase {
			case tasks.FetchEpisodes:
				r.writePlain("→ %s\n", update.Message)
				bar = progressbar.NewOptions(update.Total,
					progressbar.OptionSetWriter(r.errOutput),
					progressbar.OptionSetDescription("Downloading"),
					progressbar.OptionShowCount(),
					progressbar.OptionSetPredictTime(true),
				)
			case tasks.DownloadEpisode:
				if bar != nil {
					bar.Describe(formatter.Truncate(update.Message, 40))
					bar.Add(1)
				}
			case tasks.WriteManifest:
				if bar != nil {
					bar.Finish()
				}
				r.logger.Info(update.Message)
			}
		}
	}()

	result, err := r.queries.BulkDownload(ctx, progress, podcastID, tasks.BulkDownloadOpts{
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float64("rate"),
	})
	close(progress)
	<-done

	if err != nil && result == nil {
		return r.errors.Handle(err)
	}

	r.writePlainln("%s", formatter.SectionHeader("Download summary", formatter.ShouldColorize(r.output)))
	r.writePlain("Downloaded: %d\n", result.Downloaded)
	r.writePlain("Failed:     %d\n", result.Failed)
	r.writePlain("Skipped:    %d (not finished or no audio)\n", result.Skipped)
	r.writePlain("Directory:  %s\n", result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest:   %s\n", result.ManifestPath)
	}
	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ %s: %v\n", res.Title, res.Error)
		}
	}
	return err
}
