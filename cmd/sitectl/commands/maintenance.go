package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPurgeTokensCmd(connect Connector) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete verification records past their retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, connect, func(ctx context.Context, a *App) error {
				n, err := a.Tokens.Purge(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d verification record(s)\n", n)
				return nil
			})
		},
	}
}

func newPresignCmd(connect Connector) *cobra.Command {
	var expires time.Duration
	cmd := &cobra.Command{
		Use:   "presign KEY",
		Short: "Print a temporary download URL for an uploaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, connect, func(ctx context.Context, a *App) error {
				if a.Presigner == nil {
					return errNoPresign
				}
				u, err := a.Presigner(ctx, args[0], expires)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), u)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&expires, "expires", 15*time.Minute, "URL lifetime")
	return cmd
}
