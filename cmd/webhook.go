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
	"github.com/urfave/cli/v3"
)

func eventList(events []models.EventType) string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}

// currentWebhook returns the user's webhook or ErrNotFound.
func (r *Runner) currentWebhook(ctx context.Context) (*models.Webhook, error) {
	w, err := r.queries.Webhook(ctx)
	if err != nil {
		return nil, r.errors.Handle(err)
	}
	if w == nil {
		return nil, fmt.Errorf("%w: no webhook configured, create one with 'ytpod webhook create'", shared.ErrNotFound)
	}
	return w, nil
}

// WebhookShow shows the webhook.
func (r *Runner) WebhookShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	w, err := r.currentWebhook(ctx)
	if err != nil {
		return err
	}

	return r.render(cmd, w, func() error {
		colorize := formatter.ShouldColorize(r.output)
		r.writePlain("%s\n", formatter.SectionHeader("Webhook", colorize))
		r.writePlain("ID:     %s\n", w.ID)
		r.writePlain("URL:    %s\n", w.URL)
		r.writePlain("Events: %s\n", eventList(w.Events))
		if w.Enabled {
			return r.writePlain("%s\n", formatter.StatusLine("Deliveries", formatter.StatusOK, "enabled", colorize))
		}
		return r.writePlain("%s\n", formatter.StatusLine("Deliveries", formatter.StatusWarn, "paused", colorize))
	})
}

// WebhookCreate creates the webhook. A user has at most one.
func (r *Runner) WebhookCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	in, err := forms.WebhookForm{URL: cmd.String("url"), Events: cmd.StringSlice("events")}.Input(false)
	if err != nil {
		return err
	}
	if err := r.checkGate(ctx, gate.CreateWebhook); err != nil {
		return err
	}

	if existing, err := r.queries.Webhook(ctx); err == nil && existing != nil {
		return fmt.Errorf("%w: a webhook already exists (%s), use 'ytpod webhook update'", shared.ErrInvalidInput, existing.URL)
	}

	w, err := r.mutations.CreateWebhook(ctx, in)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Webhook created for %s (%s)\n", w.URL, eventList(w.Events))
}

// WebhookUpdate changes the URL, the events or the enabled flag.
func (r *Runner) WebhookUpdate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	form := forms.WebhookForm{URL: cmd.String("url"), Events: cmd.StringSlice("events")}
	switch {
	case cmd.Bool("enable") && cmd.Bool("disable"):
		return fmt.Errorf("%w: --enable and --disable are mutually exclusive", shared.ErrInvalidFlag)
	case cmd.Bool("enable"):
		enabled := true
		form.Enabled = &enabled
	case cmd.Bool("disable"):
		enabled := false
		form.Enabled = &enabled
	}
	if form.URL == "" && len(form.Events) == 0 && form.Enabled == nil {
		return fmt.Errorf("%w: nothing to update, pass --url, --events, --enable or --disable", shared.ErrMissingArgument)
	}

	in, err := form.Input(true)
	if err != nil {
		return err
	}

	current, err := r.currentWebhook(ctx)
	if err != nil {
		return err
	}

	w, err := r.mutations.UpdateWebhook(ctx, current.ID, in)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Webhook updated: %s (%s)\n", w.URL, eventList(w.Events))
}

// WebhookDelete deletes the webhook after confirmation.
func (r *Runner) WebhookDelete(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	w, err := r.currentWebhook(ctx)
	if err != nil {
		return err
	}

	if !r.confirm(cmd, fmt.Sprintf("Delete the webhook for %s?", w.URL)) {
		return r.writePlain("Cancelled\n")
	}
	if err := r.mutations.DeleteWebhook(ctx, w.ID); err != nil {
		return err
	}
	return r.writePlain("✓ Webhook deleted\n")
}

// WebhookEvents lists deliveries, or follows them with --watch until none is active.
func (r *Runner) WebhookEvents(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	if cmd.Bool("watch") {
		interval := r.config.Polling.Interval()
		tracker := newStatusTracker(r)
		poller := r.queries.WatchWebhookEvents(tasks.WatchOpts{Interval: interval, Errors: r.errors}, func(events []models.WebhookEvent) {
			for i := len(events) - 1; i >= 0; i-- {
				e := events[i]
				tracker.observe(e.ID, fmt.Sprintf("%s job %s", e.Event, e.Job), string(e.Status), "")
			}
		})
		r.writePlain("→ Watching webhook deliveries (Ctrl+C to stop)...\n")
		watchUntilSettled(ctx, poller, interval)
		return nil
	}

	events, err := r.queries.WebhookEvents(ctx)
	if err != nil {
		return r.errors.Handle(err)
	}

	return r.render(cmd, events, func() error {
		if len(events) == 0 {
			return r.writePlain("No deliveries yet\n")
		}
		rows := make([][]string, 0, len(events))
		for _, e := range events {
			rows = append(rows, []string{
				e.ID,
				string(e.Event),
				string(e.Status),
				fmt.Sprint(e.Attempts),
				e.Job,
				formatter.FormatAge(e.Created.Time),
			})
		}
		return r.writeTable(
			[]string{"ID", "Event", "Status", "Attempts", "Job", "Created"},
			rows,
			[]formatter.Align{
				formatter.AlignLeft, formatter.AlignLeft, formatter.AlignLeft,
				formatter.AlignRight, formatter.AlignLeft, formatter.AlignRight,
			},
		)
	})
}
