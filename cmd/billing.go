package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/ytpod/internal/formatter"
	"github.com/desertthunder/ytpod/internal/forms"
	"github.com/desertthunder/ytpod/internal/gate"
	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/shared"
	"github.com/urfave/cli/v3"
)

// gatedActions are listed by the usage command in this order.
var gatedActions = []gate.Action{gate.CreateJobs, gate.AddURLItems, gate.UploadAudio, gate.CreateWebhook, gate.GenerateAPIKey}

// Usage shows the current billing cycle and which actions it allows.
func (r *Runner) Usage(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	usage, err := r.queries.Usage(ctx)
	if err != nil {
		return r.errors.Handle(err)
	}
	if usage == nil {
		return fmt.Errorf("%w: no active billing cycle", shared.ErrNotFound)
	}

	return r.render(cmd, usage, func() error {
		colorize := formatter.ShouldColorize(r.output)
		g := gate.Evaluate(usage)

		tier := "unknown"
		if t := usage.Expand.Tier; t != nil {
			tier = fmt.Sprintf("%s (%s)", t.Title, t.LookupKey)
		}

		r.writePlain("%s\n", formatter.SectionHeader("Usage", colorize))
		r.writePlain("Plan:    %s\n", tier)
		r.writePlain("Cycle:   %s to %s\n",
			usage.BillingCycleStart.Local().Format("Jan 2, 2006"),
			usage.BillingCycleEnd.Local().Format("Jan 2, 2006"))

		used := formatter.FormatFileSize(int64(usage.Usage))
		if usage.Limit > 0 {
			used = fmt.Sprintf("%s of %s", used, formatter.FormatFileSize(int64(usage.Limit)))
		}
		r.writePlain("Usage:   %s\n", used)
		r.writePlain("Uploads: %s\n\n", formatter.FormatUsage(usage.Uploads, g.UploadCap))

		upgrade := ""
		for _, a := range gatedActions {
			d := g.Decorate(a)
			if !d.Disabled {
				r.writePlain("%s\n", formatter.StatusLine(a.String(), formatter.StatusOK, "", colorize))
				continue
			}
			if upgrade == "" {
				upgrade = d.Upgrade
			}
			r.writePlain("%s\n", formatter.StatusLine(a.String(), formatter.StatusWarn, d.Reason, colorize))
		}

		if upgrade != "" {
			r.writePlainln("Upgrade with: %s", upgrade)
		}
		return nil
	})
}

// BillingPlans lists subscription tiers from cheapest to most expensive.
func (r *Runner) BillingPlans(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	tiers, err := r.svc.Tiers(ctx)
	if err != nil {
		return r.errors.Handle(err)
	}

	return r.render(cmd, tiers, func() error {
		rows := make([][]string, 0, len(tiers))
		for _, t := range tiers {
			price := "free"
			if t.Price > 0 {
				price = fmt.Sprintf("$%.2f/%s", t.Price, t.Interval)
			}
			uploads := "unlimited"
			if n, ok := gate.UploadCeiling(t.LookupKey); ok {
				uploads = formatter.FormatCount(n)
			}
			rows = append(rows, []string{
				t.Title,
				t.LookupKey,
				price,
				formatter.FormatFileSize(int64(t.MonthlyUsageLimit)),
				uploads,
			})
		}
		return r.writeTable(
			[]string{"Plan", "Key", "Price", "Monthly usage", "Uploads"},
			rows,
			[]formatter.Align{
				formatter.AlignLeft, formatter.AlignLeft, formatter.AlignRight, formatter.AlignRight, formatter.AlignRight,
			},
		)
	})
}

// BillingCheckout opens the checkout page for a plan.
func (r *Runner) BillingCheckout(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	plan, ok := models.ParsePlan(cmd.StringArg("plan"))
	if !ok {
		return fmt.Errorf("%w: plan must be one of %s", shared.ErrInvalidArgument, planNames())
	}

	link, err := r.mutations.Checkout(ctx, plan)
	if err != nil {
		return err
	}
	return r.openLink("checkout", link)
}

// BillingPortal opens the billing portal.
func (r *Runner) BillingPortal(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	link, err := r.mutations.Portal(ctx)
	if err != nil {
		return err
	}
	return r.openLink("billing portal", link)
}

func (r *Runner) openLink(name, link string) error {
	if link == "" {
		return fmt.Errorf("%w: no %s URL returned", shared.ErrAPIRequest, name)
	}
	r.writePlain("→ Opening %s...\n", name)
	if err := r.openURL(link); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlain("Please open this URL in your browser:\n%s\n", link)
	}
	return nil
}

// Issue reports a problem with optional screenshots.
func (r *Runner) Issue(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	content, err := forms.Required("description", strings.Join(cmd.Args().Slice(), " "))
	if err != nil {
		return err
	}

	var screenshots []models.Attachment
	for _, path := range cmd.StringSlice("screenshot") {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read screenshot %s: %w", path, err)
		}
		screenshots = append(screenshots, models.Attachment{Name: filepath.Base(path), Data: data})
	}

	if err := r.mutations.CreateIssue(ctx, content, screenshots); err != nil {
		return err
	}
	return r.writePlain("✓ Thanks, your report was sent\n")
}
