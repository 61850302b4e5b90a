package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/ytpod/internal/formatter"
	"github.com/desertthunder/ytpod/internal/forms"
	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/shared"
	"github.com/urfave/cli/v3"
)

// submitPages are where a feed is submitted by hand for platforms whose link is not generated.
var submitPages = map[models.Platform]string{
	models.PlatformApple:   "https://podcastsconnect.apple.com",
	models.PlatformSpotify: "https://creators.spotify.com/dash/submit",
	models.PlatformYouTube: "https://music.youtube.com/library/podcasts",
}

// PodcastsList lists the user's podcasts.
func (r *Runner) PodcastsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	podcasts, err := r.queries.Podcasts(ctx)
	if err != nil {
		return r.errors.Handle(err)
	}

	return r.render(cmd, podcasts, func() error {
		if len(podcasts) == 0 {
			return r.writePlain("No podcasts yet. Create one with 'ytpod podcasts create --title ...'\n")
		}
		rows := make([][]string, 0, len(podcasts))
		for _, p := range podcasts {
			rows = append(rows, []string{
				p.ID,
				formatter.Truncate(p.Title, 40),
				formatter.Truncate(p.Description, 50),
				formatter.FormatAge(p.Updated.Time),
			})
		}
		return r.writeTable(
			[]string{"ID", "Title", "Description", "Updated"},
			rows,
			[]formatter.Align{formatter.AlignLeft, formatter.AlignLeft, formatter.AlignLeft, formatter.AlignRight},
		)
	})
}

type podcastDetail struct {
	models.Podcast `yaml:",inline"`
	FeedURL        string `json:"feed_url,omitempty" yaml:"feed_url,omitempty"`
	Episodes       int    `json:"episodes" yaml:"episodes"`
}

// PodcastsShow shows a podcast with its feed URL and directory links.
func (r *Runner) PodcastsShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	id, err := forms.Required("id", cmd.StringArg("id"))
	if err != nil {
		return err
	}

	p, err := r.queries.Podcast(ctx, id)
	if err != nil {
		return r.errors.Handle(err)
	}
	items, err := r.queries.Items(ctx, id)
	if err != nil {
		return r.errors.Handle(err)
	}

	detail := podcastDetail{Podcast: *p, FeedURL: r.svc.FeedURL(p), Episodes: len(items)}

	return r.render(cmd, detail, func() error {
		colorize := formatter.ShouldColorize(r.output)
		r.writePlain("%s\n", formatter.SectionHeader(p.Title, colorize))
		if p.Description != "" {
			r.writePlain("%s\n\n", p.Description)
		}
		r.writePlain("ID:       %s\n", p.ID)
		r.writePlain("Episodes: %s\n", formatter.FormatCount(len(items)))
		if p.Website != "" {
			r.writePlain("Website:  %s\n", p.Website)
		}
		if detail.FeedURL != "" {
			r.writePlain("Feed:     %s\n", detail.FeedURL)
		} else {
			r.writePlain("%s\n", formatter.StatusLine("Feed", formatter.StatusWarn, "generated after the first episode finishes", colorize))
		}

		r.writePlainln("Directories:")
		for _, platform := range models.Platforms {
			link := storedShareURL(p, platform)
			if link == "" {
				r.writePlain("%s\n", formatter.StatusLine(string(platform), formatter.StatusInfo, "not shared", colorize))
				continue
			}
			r.writePlain("%s\n", formatter.StatusLine(string(platform), formatter.StatusOK, link, colorize))
		}
		return nil
	})
}

// storedShareURL returns the directory link saved on the podcast, preferring the manually entered one.
func storedShareURL(p *models.Podcast, platform models.Platform) string {
	switch platform {
	case models.PlatformApple:
		return firstNonEmpty(p.AppleShareURL, p.AppleURL)
	case models.PlatformSpotify:
		return firstNonEmpty(p.SpotifyShareURL, p.SpotifyURL)
	case models.PlatformYouTube:
		return firstNonEmpty(p.YouTubeShareURL, p.YouTubeURL)
	case models.PlatformPocketCasts:
		return p.PocketCastsURL
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func podcastForm(cmd *cli.Command) forms.PodcastForm {
	return forms.PodcastForm{
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		Website:     cmd.String("website"),
		CoverPath:   cmd.String("cover"),
	}
}

// PodcastsCreate creates a podcast.
func (r *Runner) PodcastsCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	in, err := podcastForm(cmd).Input(false)
	if err != nil {
		return err
	}

	p, err := r.mutations.CreatePodcast(ctx, in)
	if err != nil {
		return err
	}
	r.writePlain("✓ Created podcast %s (%s)\n", p.Title, p.ID)
	return r.writePlain("Add episodes with: ytpod items add %s <youtube-url>...\n", p.ID)
}

// PodcastsUpdate updates the fields given as flags. Omitted fields are left unchanged.
func (r *Runner) PodcastsUpdate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	id, err := forms.Required("id", cmd.StringArg("id"))
	if err != nil {
		return err
	}

	form := podcastForm(cmd)
	if form == (forms.PodcastForm{}) {
		return fmt.Errorf("%w: nothing to update, pass --title, --description, --website or --cover", shared.ErrMissingArgument)
	}

	in, err := form.Input(true)
	if err != nil {
		return err
	}

	p, err := r.mutations.UpdatePodcast(ctx, id, in)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Updated podcast %s\n", p.Title)
}

// PodcastsDelete deletes a podcast after confirmation.
func (r *Runner) PodcastsDelete(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	id, err := forms.Required("id", cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if !r.confirm(cmd, fmt.Sprintf("Delete podcast %s and all of its episodes?", id)) {
		return r.writePlain("Cancelled\n")
	}
	if err := r.mutations.DeletePodcast(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted podcast %s\n", id)
}

// PodcastsShare prints the directory link for a platform. Without a generated link it prints
// the steps for submitting the feed by hand; --url saves the link obtained that way.
func (r *Runner) PodcastsShare(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	id, err := forms.Required("id", cmd.StringArg("id"))
	if err != nil {
		return err
	}
	platform, ok := models.ParsePlatform(cmd.StringArg("platform"))
	if !ok {
		return fmt.Errorf("%w: platform must be one of %v", shared.ErrInvalidArgument, models.Platforms)
	}

	if link := strings.TrimSpace(cmd.String("url")); link != "" {
		if err := r.mutations.SetShareURL(ctx, id, platform, link); err != nil {
			return err
		}
		return r.writePlain("✓ Saved %s link\n", platform)
	}

	link, err := r.svc.ShareURL(ctx, id, platform)
	if err != nil {
		return r.errors.Handle(err)
	}
	if link != "" {
		return r.writePlain("%s\n", link)
	}

	p, err := r.queries.Podcast(ctx, id)
	if err != nil {
		return r.errors.Handle(err)
	}
	return r.writeShareInstructions(p, platform)
}

func (r *Runner) writeShareInstructions(p *models.Podcast, platform models.Platform) error {
	feed := r.svc.FeedURL(p)
	if feed == "" {
		return r.writePlain("The feed for %s is generated after its first episode finishes. Try again later.\n", p.Title)
	}

	page, ok := submitPages[platform]
	if !ok {
		return r.writePlain("No %s link yet. Your RSS feed URL is:\n%s\n", platform, feed)
	}

	r.writePlainHeader(fmt.Sprintf("Share %s on %s", p.Title, platform))
	r.writePlain("1. Open %s\n", page)
	r.writePlain("2. Submit your RSS feed URL:\n   %s\n", feed)
	if platform == models.PlatformApple {
		r.writePlain("   Update frequency: No Set Schedule. This show does not contain third-party content.\n")
	}
	r.writePlain("3. Follow the instructions to verify ownership of the podcast\n")
	return r.writePlain("4. Save the link with: ytpod podcasts share %s %s --url <link>\n", p.ID, platform)
}

// PodcastsFeed prints the RSS feed URL.
func (r *Runner) PodcastsFeed(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	id, err := forms.Required("id", cmd.StringArg("id"))
	if err != nil {
		return err
	}

	p, err := r.queries.Podcast(ctx, id)
	if err != nil {
		return r.errors.Handle(err)
	}
	feed := r.svc.FeedURL(p)
	if feed == "" {
		return fmt.Errorf("%w: %s has no feed yet", shared.ErrNotFound, p.Title)
	}
	return r.writePlain("%s\n", feed)
}

// PodcastsExport writes the podcast and its episodes to --output in the --as format.
func (r *Runner) PodcastsExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	id, err := forms.Required("id", cmd.StringArg("id"))
	if err != nil {
		return err
	}

	p, err := r.queries.Podcast(ctx, id)
	if err != nil {
		return r.errors.Handle(err)
	}
	items, err := r.queries.Items(ctx, id)
	if err != nil {
		return r.errors.Handle(err)
	}

	export := formatter.NewEpisodeExport(*p, r.svc.FeedURL(p), items, r.audioURL)

	imageURL := ""
	if p.Image != "" {
		imageURL = r.svc.FileURL(p.Ref(p.Image), false)
	}

	files, err := formatter.WriteExport(export, strings.ToLower(cmd.String("as")), cmd.String("output"), imageURL)
	if err != nil {
		return err
	}

	r.logger.Info("export complete", "podcast", p.ID, "episodes", len(export.Episodes))
	r.writePlain("✓ Exported %d episode(s) of %s\n", len(export.Episodes), p.Title)
	for _, f := range files {
		r.writePlain("  %s\n", f)
	}
	return nil
}

func (r *Runner) audioURL(ref models.FileRef) string {
	return r.svc.FileURL(ref, false)
}
