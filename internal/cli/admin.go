package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/coachflow-backend/internal/app"
	httpMW "github.com/yungbote/coachflow-backend/internal/http/middleware"
	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				if err := a.Migrate(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the predefined nurture sequences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				res, err := a.Seed(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sequences created=%d updated=%d\n", res.Created, res.Updated)
				return nil
			})
		},
	}
}

func NewCronTokenCommand(opts *RootOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "cron-token",
		Short: "Print a bearer token for POST /api/cron/:cadence",
		Long:  "Sign a short-lived token with CRON_SECRET for external schedulers.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := httpMW.SignCronToken(envutil.String("CRON_SECRET", ""), ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 10*time.Minute, "token lifetime")
	return cmd
}
