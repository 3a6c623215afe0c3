package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/coachflow-backend/internal/app"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"

	// Open builds the application; tests swap it out.
	Open func(ctx context.Context) (*app.App, error)
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Open: app.New}

	cmd := &cobra.Command{
		Use:   "coachflow",
		Short: "CoachFlow engagement and progression backend",
		Long: `CoachFlow runs the client journey, daily engagements, badges, nurture
sequences and the progress event bus, plus the hourly, daily, weekly and
monthly cron cadences that drive them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewWorkerCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewCronTokenCommand(opts))
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()
	a, err := opts.Open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
