package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func expungeCommand() *cobra.Command {
	var hours int
	cmd := &cobra.Command{
		Use:   "expunge-deleted",
		Short: "Purge accounts whose deletion grace period has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := containerFrom(cmd.Context())
			if err != nil {
				return err
			}
			n, err := c.Services.Deletions.Expunge(cmd.Context(), hours)
			cmd.Printf("Expunged %s %s\n", humanize.Comma(int64(n)), plural(n, "account", "accounts"))
			return err
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 0, "Grace period in hours (defaults to ACCOUNT_DELETION_EXPUNGE_HOURS)")
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
