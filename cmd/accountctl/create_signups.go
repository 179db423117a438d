package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/spec-kit/account-service/internal/service"
)

func createSignupsCommand() *cobra.Command {
	var expiryHours int
	cmd := &cobra.Command{
		Use:   "create-signups COUNT FILE",
		Short: "Create single-use signup codes and write their signup URLs to FILE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil || count <= 0 {
				return fmt.Errorf("COUNT must be a positive number, got %q", args[0])
			}
			c, err := containerFrom(cmd.Context())
			if err != nil {
				return err
			}

			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			w := bufio.NewWriter(f)

			ctx := cmd.Context()
			for i := 0; i < count; i++ {
				sc, err := c.Services.SignupCodes.Create(ctx, service.CreateSignupCodeParams{
					MaxUses:         1,
					ExpiryHours:     expiryHours,
					SkipExistsCheck: true,
				})
				if err != nil {
					return fmt.Errorf("create code %d: %w", i+1, err)
				}
				if _, err := fmt.Fprintln(w, c.Services.SignupCodes.SignupURL(sc.Code)); err != nil {
					return err
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			expires := time.Now().Add(time.Duration(expiryHours) * time.Hour)
			cmd.Printf("Wrote %s signup %s to %s (expire %s)\n",
				humanize.Comma(int64(count)), plural(count, "code", "codes"), args[1], humanize.Time(expires))
			return nil
		},
	}
	cmd.Flags().IntVar(&expiryHours, "expiry-hours", 768, "Hours until each code expires")
	return cmd
}
