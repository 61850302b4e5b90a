package main

import (
	"context"

	"github.com/desertthunder/ytpod/internal/forms"
	"github.com/urfave/cli/v3"
)

// AccountRename changes the display name of the signed-in user.
func (r *Runner) AccountRename(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	name, err := forms.Required("name", cmd.StringArg("name"))
	if err != nil {
		return err
	}

	user, err := r.mutations.UpdateUsername(ctx, name)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Name changed to %s\n", user.Name)
}

// AccountDelete deletes the account after confirmation and signs out.
func (r *Runner) AccountDelete(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	if !r.confirm(cmd, "Delete your account, podcasts and episodes? This cannot be undone") {
		return r.writePlain("Cancelled\n")
	}

	if err := r.mutations.DeleteAccount(ctx); err != nil {
		return err
	}
	r.store.Clear()
	return r.writePlain("✓ Account deleted\n")
}
