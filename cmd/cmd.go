// submodule cmd contains command definitions
package main

import (
	"fmt"
	"strings"

	"github.com/desertthunder/ytpod/internal/models"
	"github.com/urfave/cli/v3"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: table, json or yaml",
		Value:   formatTable,
	}
}

func yesFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip the confirmation prompt",
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func idArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "id"}}
}

func eventNames() string {
	names := make([]string, len(models.EventTypes))
	for i, e := range models.EventTypes {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}

func planNames() string {
	names := make([]string, len(models.Plans))
	for i, p := range models.Plans {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

// setupCommand creates the config file and the local session database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize the session database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles sign in and sign out
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in through an OAuth2 provider, or with --email and a password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "provider",
						Usage: "OAuth2 provider name as configured on the backend",
						Value: "google",
					},
					&cli.StringFlag{
						Name:  "email",
						Usage: "Sign in with email and password instead of OAuth2",
					},
					&cli.StringFlag{
						Name:    "password",
						Usage:   "Password for --email",
						Sources: cli.EnvVars("YTPOD_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and remove the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:   "whoami",
				Usage:  "Show the signed-in user",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.AuthWhoami,
			},
		},
	}
}

// accountCommand handles account settings
func accountCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Manage your account",
		Commands: []*cli.Command{
			{
				Name:      "rename",
				Usage:     "Change your display name",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Action:    r.AccountRename,
			},
			{
				Name:   "delete",
				Usage:  "Permanently delete your account and sign out",
				Flags:  []cli.Flag{yesFlag()},
				Action: r.AccountDelete,
			},
		},
	}
}

// podcastsCommand handles podcast management
func podcastsCommand(r *Runner) *cli.Command {
	podcastFlags := func(required bool) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Podcast title (2-100 characters)", Required: required},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Podcast description (up to 500 characters)"},
			&cli.StringFlag{Name: "website", Usage: "Podcast website"},
			&cli.StringFlag{Name: "cover", Usage: "Cover image (jpeg, png or gif), cropped square and resized"},
		}
	}

	return &cli.Command{
		Name:    "podcasts",
		Aliases: []string{"podcast", "pod"},
		Usage:   "Manage podcasts",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your podcasts",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.PodcastsList,
			},
			{
				Name:      "show",
				Usage:     "Show a podcast with its feed and directory links",
				Arguments: idArg(),
				Flags:     []cli.Flag{formatFlag()},
				Action:    r.PodcastsShow,
			},
			{
				Name:   "create",
				Usage:  "Create a podcast",
				Flags:  podcastFlags(true),
				Action: r.PodcastsCreate,
			},
			{
				Name:      "update",
				Usage:     "Update a podcast's details",
				Arguments: idArg(),
				Flags:     podcastFlags(false),
				Action:    r.PodcastsUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a podcast and its episodes",
				Arguments: idArg(),
				Flags:     []cli.Flag{yesFlag()},
				Action:    r.PodcastsDelete,
			},
			{
				Name:      "share",
				Usage:     "Get a directory link, or save one with --url",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}, &cli.StringArg{Name: "platform"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "Directory link obtained by submitting the feed manually"},
				},
				Action: r.PodcastsShare,
			},
			{
				Name:      "feed",
				Usage:     "Print the RSS feed URL",
				Arguments: idArg(),
				Action:    r.PodcastsFeed,
			},
			{
				Name:      "export",
				Usage:     "Export a podcast's episode list",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "as",
						Usage: "Export format: csv, markdown, txt, yaml or json",
						Value: "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
						Value:   ".",
					},
				},
				Action: r.PodcastsExport,
			},
		},
	}
}

// itemsCommand handles episodes of a podcast
func itemsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "items",
		Aliases: []string{"episodes"},
		Usage:   "Manage podcast episodes",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List a podcast's episodes",
				Arguments: []cli.Argument{&cli.StringArg{Name: "podcast"}},
				Flags:     []cli.Flag{formatFlag()},
				Action:    r.ItemsList,
			},
			{
				Name:      "add",
				Usage:     "Add YouTube videos to a podcast",
				ArgsUsage: "<podcast> <url>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "Read URLs from a file, one per line"},
				},
				Action: r.ItemsAdd,
			},
			{
				Name:      "upload",
				Usage:     "Upload audio files (.mp3, .wav, .aac) to a podcast",
				ArgsUsage: "<podcast> <file>...",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "title", Usage: "Episode title, in file order (defaults to the file name)"},
				},
				Action: r.ItemsUpload,
			},
			{
				Name:      "delete",
				Usage:     "Delete an episode",
				Arguments: idArg(),
				Flags:     []cli.Flag{yesFlag()},
				Action:    r.ItemsDelete,
			},
			{
				Name:      "watch",
				Usage:     "Follow a podcast's episodes until every one has finished processing",
				Arguments: []cli.Argument{&cli.StringArg{Name: "podcast"}},
				Action:    r.ItemsWatch,
			},
			{
				Name:      "download",
				Usage:     "Download every finished episode of a podcast",
				Arguments: []cli.Argument{&cli.StringArg{Name: "podcast"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory", Value: "downloads"},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent downloads (1-10)", Value: 3},
					&cli.Float64Flag{Name: "rate", Usage: "Maximum downloads started per second", Value: 2},
				},
				Action: r.ItemsDownload,
			},
		},
	}
}

// jobsCommand handles standalone conversion jobs
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Convert YouTube videos to audio without a podcast",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List conversion jobs",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.JobsList,
			},
			{
				Name:      "create",
				Usage:     "Create one job per YouTube URL, sharing a batch id",
				ArgsUsage: "<url>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "Read URLs from a file, one per line"},
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Follow the jobs until they finish"},
				},
				Action: r.JobsCreate,
			},
			{
				Name:   "watch",
				Usage:  "Follow jobs until every one has finished",
				Action: r.JobsWatch,
			},
			{
				Name:      "url",
				Usage:     "Print the download URL of a finished job",
				Arguments: idArg(),
				Action:    r.JobsURL,
			},
		},
	}
}

// webhookCommand handles the job event webhook
func webhookCommand(r *Runner) *cli.Command {
	webhookFlags := func(required bool) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Endpoint receiving job events", Required: required},
			&cli.StringSliceFlag{Name: "events", Usage: fmt.Sprintf("Subscribed events (%s)", eventNames()), Required: required},
		}
	}

	return &cli.Command{
		Name:    "webhook",
		Aliases: []string{"webhooks"},
		Usage:   "Manage the job event webhook",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the webhook",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.WebhookShow,
			},
			{
				Name:   "create",
				Usage:  "Create the webhook",
				Flags:  webhookFlags(true),
				Action: r.WebhookCreate,
			},
			{
				Name:  "update",
				Usage: "Update the webhook",
				Flags: append(webhookFlags(false),
					&cli.BoolFlag{Name: "enable", Usage: "Enable deliveries"},
					&cli.BoolFlag{Name: "disable", Usage: "Pause deliveries"},
				),
				Action: r.WebhookUpdate,
			},
			{
				Name:   "delete",
				Usage:  "Delete the webhook",
				Flags:  []cli.Flag{yesFlag()},
				Action: r.WebhookDelete,
			},
			{
				Name:  "events",
				Usage: "List webhook deliveries",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Follow deliveries until none is active"},
				},
				Action: r.WebhookEvents,
			},
		},
	}
}

// keysCommand handles API keys
func keysCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "keys",
		Aliases: []string{"key"},
		Usage:   "Manage API keys",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List API keys",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.KeysList,
			},
			{
				Name:      "generate",
				Usage:     "Generate an API key. The key is shown once",
				Arguments: []cli.Argument{&cli.StringArg{Name: "title"}},
				Action:    r.KeysGenerate,
			},
			{
				Name:      "revoke",
				Usage:     "Revoke an API key",
				Arguments: idArg(),
				Flags:     []cli.Flag{yesFlag()},
				Action:    r.KeysRevoke,
			},
		},
	}
}

// usageCommand shows the current billing cycle
func usageCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "usage",
		Usage:  "Show usage for the current billing cycle",
		Flags:  []cli.Flag{formatFlag()},
		Action: r.Usage,
	}
}

// billingCommand handles subscriptions
func billingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "billing",
		Usage: "Manage your subscription",
		Commands: []*cli.Command{
			{
				Name:   "plans",
				Usage:  "List subscription tiers",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.BillingPlans,
			},
			{
				Name:      "checkout",
				Usage:     fmt.Sprintf("Open the checkout page for a plan (%s)", planNames()),
				Arguments: []cli.Argument{&cli.StringArg{Name: "plan"}},
				Action:    r.BillingCheckout,
			},
			{
				Name:   "portal",
				Usage:  "Open the billing portal",
				Action: r.BillingPortal,
			},
		},
	}
}

// issueCommand reports a problem
func issueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "issue",
		Usage:     "Report a problem",
		ArgsUsage: "<description>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "screenshot", Aliases: []string{"s"}, Usage: "Attach a screenshot"},
		},
		Action: r.Issue,
	}
}

// apiCommand handles raw backend requests
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Raw backend requests for debugging",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET a backend path and print the response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "POST a JSON body to a backend path",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive jobs and podcasts dashboard",
		Action:  r.TUI,
	}
}
