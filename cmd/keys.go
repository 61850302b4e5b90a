package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytpod/internal/formatter"
	"github.com/desertthunder/ytpod/internal/forms"
	"github.com/desertthunder/ytpod/internal/gate"
	"github.com/urfave/cli/v3"
)

// KeysList lists API keys. Key values are never shown after creation.
func (r *Runner) KeysList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	keys, err := r.queries.APIKeys(ctx)
	if err != nil {
		return r.errors.Handle(err)
	}

	return r.render(cmd, keys, func() error {
		if len(keys) == 0 {
			return r.writePlain("No API keys. Generate one with 'ytpod keys generate <title>'\n")
		}
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k.ID, k.Title, formatter.FormatAge(k.Created.Time)})
		}
		return r.writeTable(
			[]string{"ID", "Title", "Created"},
			rows,
			[]formatter.Align{formatter.AlignLeft, formatter.AlignLeft, formatter.AlignRight},
		)
	})
}

// KeysGenerate creates a key and prints its value once.
func (r *Runner) KeysGenerate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	title, err := forms.Required("title", cmd.StringArg("title"))
	if err != nil {
		return err
	}
	if err := r.checkGate(ctx, gate.GenerateAPIKey); err != nil {
		return err
	}

	key, err := r.mutations.GenerateAPIKey(ctx, title)
	if err != nil {
		return err
	}

	r.writePlain("✓ Generated API key %q (%s)\n\n", key.Title, key.ID)
	r.writePlain("  %s\n\n", key.Key)
	return r.writePlain("Copy it now. It will not be shown again.\n")
}

// KeysRevoke revokes a key after confirmation.
func (r *Runner) KeysRevoke(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}
	id, err := forms.Required("id", cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if !r.confirm(cmd, fmt.Sprintf("Revoke API key %s? Clients using it will stop working", id)) {
		return r.writePlain("Cancelled\n")
	}
	if err := r.mutations.RevokeAPIKey(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Revoked API key %s\n", id)
}
