// Command accountctl runs account maintenance tasks against the configured
// backends.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/spec-kit/account-service/internal/app"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/observability"
)

type containerKey struct{}

var errNoContainer = errors.New("account service not initialised")

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:                "accountctl",
		Short:              "Account service maintenance",
		SilenceUsage:       true,
		PersistentPreRunE:  initContainer,
		PersistentPostRunE: closeContainer,
	}
	root.AddCommand(
		migrateCommand(),
		expungeCommand(),
		createSignupsCommand(),
		passwordExpiryCommand(),
		passwordHistoryCommand(),
	)
	return root
}

func initContainer(cmd *cobra.Command, _ []string) error {
	if _, err := containerFrom(cmd.Context()); err == nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	cmd.SetContext(context.WithValue(ctx, containerKey{}, c))
	return nil
}

func closeContainer(cmd *cobra.Command, _ []string) error {
	c, err := containerFrom(cmd.Context())
	if err != nil {
		return nil
	}
	c.Close()
	_ = c.Logger.Sync()
	return nil
}

func containerFrom(ctx context.Context) (*app.Container, error) {
	if c, ok := ctx.Value(containerKey{}).(*app.Container); ok {
		return c, nil
	}
	return nil, errNoContainer
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
