package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/spec-kit/account-service/internal/app"
)

func passwordExpiryCommand() *cobra.Command {
	var seconds int
	cmd := &cobra.Command{
		Use:   "password-expiry USERNAME...",
		Short: "Set a per-user password expiry; 0 means never",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerFrom(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("expire") {
				seconds = c.Config.Account.PasswordExpirySeconds
			}
			return setPasswordExpiry(cmd.Context(), c, cmd.OutOrStderr(), args, seconds)
		},
	}
	cmd.Flags().IntVar(&seconds, "expire", 0, "Expiry in seconds (default ACCOUNT_PASSWORD_EXPIRY_SECONDS)")
	return cmd
}

func setPasswordExpiry(ctx context.Context, c *app.Container, w io.Writer, usernames []string, seconds int) error {
	users := c.Store.Repositories().Users
	for _, username := range usernames {
		u, err := users.GetByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("user %s: %w", username, err)
		}
		if err := c.Services.Policy.SetExpiry(ctx, u.ID, seconds); err != nil {
			return fmt.Errorf("user %s: %w", username, err)
		}
		if seconds == 0 {
			fmt.Fprintf(w, "Password for %s never expires\n", username)
			continue
		}
		now := time.Now()
		fmt.Fprintf(w, "Password for %s expires %s after each change\n",
			username, humanize.RelTime(now, now.Add(time.Duration(seconds)*time.Second), "", ""))
	}
	return nil
}

func passwordHistoryCommand() *cobra.Command {
	var (
		days  int
		force bool
	)
	cmd := &cobra.Command{
		Use:   "password-history",
		Short: "Backfill password history entries for existing users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := containerFrom(cmd.Context())
			if err != nil {
				return err
			}
			age := time.Duration(days) * 24 * time.Hour
			n, err := c.Services.Policy.Backfill(cmd.Context(), age, force)
			cmd.Printf("Recorded %s password history %s dated %s\n",
				humanize.Comma(int64(n)), plural(n, "entry", "entries"), humanize.Time(time.Now().Add(-age)))
			return err
		},
	}
	cmd.Flags().IntVar(&days, "days", 10, "Age of the backfilled entries in days")
	cmd.Flags().BoolVar(&force, "force", false, "Add an entry for every user, not only those without history")
	return cmd
}
