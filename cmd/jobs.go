package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/ytpod/internal/formatter"
	"github.com/desertthunder/ytpod/internal/forms"
	"github.com/desertthunder/ytpod/internal/gate"
	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/shared"
	"github.com/desertthunder/ytpod/internal/tasks"
	"github.com/urfave/cli/v3"
)

// batchForm fills a form with the URLs given as arguments and read from --file.
func (r *Runner) batchForm(cmd *cli.Command, args []string) (*forms.BatchForm, error) {
	values := append([]string(nil), args...)

	if path := cmd.String("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			values = append(values, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	form := forms.NewBatchForm(r.config.Forms.MaxRows)
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: at least one YouTube URL is required", shared.ErrMissingArgument)
	}
	if len(values) > form.Max() {
		r.logger.Warnf("only the first %d URLs are added, %d dropped", form.Max(), len(values)-form.Max())
	}
	form.SetRows(values)
	return form, nil
}

// checkGate fails when the current usage record disables a.
func (r *Runner) checkGate(ctx context.Context, a gate.Action) error {
	usage, err := r.queries.Usage(ctx)
	if err != nil {
		r.logger.Warn("could not load usage, skipping limit check", "error", err)
		return nil
	}

	d := gate.Evaluate(usage).Decorate(a)
	if !d.Disabled {
		return nil
	}
	return fmt.Errorf("%w: cannot %s. %s Upgrade with '%s'", shared.ErrGated, a, d.Reason, d.Upgrade)
}

// watchUntilSettled steps p until every record has settled or ctx is done.
func watchUntilSettled[T any](ctx context.Context, p *tasks.Poller[T], interval time.Duration) {
	for p.Step(ctx) {
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// statusTracker prints a line each time a record's status changes.
type statusTracker struct {
	r    *Runner
	seen map[string]string
}

func newStatusTracker(r *Runner) *statusTracker {
	return &statusTracker{r: r, seen: map[string]string{}}
}

func (t *statusTracker) observe(id, title, status, errMsg string) {
	if t.seen[id] == status {
		return
	}
	t.seen[id] = status

	kind := formatter.StatusInfo
	switch status {
	case string(models.JobSuccess):
		kind = formatter.StatusOK
	case string(models.JobError), string(models.WebhookEventFailed):
		kind = formatter.StatusError
	}
	msg := status
	if errMsg != "" {
		msg += ": " + errMsg
	}
	t.r.writePlain("%s\n", formatter.StatusLine(formatter.Truncate(title, 40), kind, msg, formatter.ShouldColorize(t.r.output)))
}

func jobTitle(j models.Job) string {
	if j.Title != "" {
		return j.Title
	}
	if d := j.Download(); d != nil && d.Title != "" {
		return d.Title
	}
	return j.URL
}

// JobsList lists conversion jobs, newest first.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	jobs, err := r.queries.Jobs(ctx)
	if err != nil {
		return r.errors.Handle(err)
	}

	return r.render(cmd, jobs, func() error {
		if len(jobs) == 0 {
			return r.writePlain("No jobs yet. Create some with 'ytpod jobs create <url>...'\n")
		}
		rows := make([][]string, 0, len(jobs))
		for _, j := range jobs {
			duration, size := "", ""
			if d := j.Download(); d != nil {
				duration = formatter.FormatDuration(d.Duration)
				size = formatter.FormatFileSize(d.Size)
			}
			rows = append(rows, []string{
				j.ID,
				formatter.Truncate(jobTitle(j), 45),
				string(j.Status),
				duration,
				size,
				formatter.FormatAge(j.Created.Time),
			})
		}
		return r.writeTable(
			[]string{"ID", "Title", "Status", "Duration", "Size", "Created"},
			rows,
			[]formatter.Align{
				formatter.AlignLeft, formatter.AlignLeft, formatter.AlignLeft,
				formatter.AlignRight, formatter.AlignRight, formatter.AlignRight,
			},
		)
	})
}

// JobsCreate creates one job per URL under a shared batch id.
func (r *Runner) JobsCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	form, err := r.batchForm(cmd, cmd.Args().Slice())
	if err != nil {
		return err
	}
	if err := r.checkGate(ctx, gate.CreateJobs); err != nil {
		return err
	}

	var created []models.Job
	n, err := form.Submit(ctx, "", func(ctx context.Context, _ string, urls []string) error {
		jobs, err := r.mutations.CreateJobs(ctx, urls)
		created = jobs
		return err
	})
	if err != nil {
		return err
	}

	batch := ""
	if len(created) > 0 {
		batch = created[0].BatchID
	}
	r.logger.Info("jobs created", "count", n, "batch", batch)
	r.writePlain("✓ Created %d job(s)", n)
	if batch != "" {
		r.writePlain(" in batch %s", batch)
	}
	r.writePlain("\n")

	if !cmd.Bool("watch") {
		return nil
	}
	return r.watchJobs(ctx)
}

// JobsWatch follows jobs until every one has finished.
func (r *Runner) JobsWatch(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	return r.watchJobs(ctx)
}

func (r *Runner) watchJobs(ctx context.Context) error {
	tracker := newStatusTracker(r)
	interval := r.config.Polling.Interval()

	poller := r.queries.WatchJobs(tasks.WatchOpts{Interval: interval, Errors: r.errors}, func(jobs []models.Job) {
		for i := len(jobs) - 1; i >= 0; i-- {
			j := jobs[i]
			tracker.observe(j.ID, jobTitle(j), string(j.Status), j.Error)
		}
	})

	r.writePlain("→ Watching jobs (Ctrl+C to stop)...\n")
	watchUntilSettled(ctx, poller, interval)
	if ctx.Err() != nil {
		return nil
	}

	jobs := poller.Records()
	failed := 0
	for _, j := range jobs {
		if j.Status == models.JobError {
			failed++
		}
	}
	return r.writePlain("✓ All %d job(s) finished, %d failed\n", len(jobs), failed)
}

// JobsURL prints the download URL of a finished job.
func (r *Runner) JobsURL(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	id, err := forms.Required("id", cmd.StringArg("id"))
	if err != nil {
		return err
	}

	jobs, err := r.queries.Jobs(ctx)
	if err != nil {
		return r.errors.Handle(err)
	}
	for _, j := range jobs {
		if j.ID != id {
			continue
		}
		d := j.Download()
		if d == nil || d.File == "" {
			return fmt.Errorf("%w: job %s has no audio yet (status %s)", shared.ErrNotFound, id, j.Status)
		}
		return r.writePlain("%s\n", r.svc.FileURL(d.Ref(d.File), true))
	}
	return fmt.Errorf("%w: job %s", shared.ErrNotFound, id)
}
