package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/spec-kit/account-service/internal/persistence"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := containerFrom(cmd.Context())
			if err != nil {
				return err
			}
			if !c.Postgres.Enabled() {
				return errors.New("POSTGRES_DSN is required to migrate")
			}
			if err := persistence.RunMigrations(cmd.Context(), c.Postgres, c.Logger); err != nil {
				return err
			}
			cmd.Println("Migrations applied")
			return nil
		},
	}
}
