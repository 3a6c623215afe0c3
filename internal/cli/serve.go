package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/coachflow-backend/internal/app"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API on $PORT. With CRON_ENABLED=true the cadences also
fire in-process on the CRON_SPEC_* schedules.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}
}

func NewWorkerCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal cron worker",
		Long:  "Register one Temporal schedule per cadence and poll the cron task queue.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.RunWorker(ctx)
			})
		},
	}
}
