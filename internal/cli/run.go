package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/coachflow-backend/internal/app"
	"github.com/yungbote/coachflow-backend/internal/jobs/orchestrator"
)

func NewRunCommand(opts *RootOptions) *cobra.Command {
	var names []string
	for _, c := range orchestrator.Cadences {
		names = append(names, string(c))
	}
	return &cobra.Command{
		Use:   "run <" + strings.Join(names, "|") + ">",
		Short: "Run one cadence now",
		Long: `Run every sub-task of one cadence synchronously and print the result.
The command fails when the run did not succeed.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			cadence, err := orchestrator.ParseCadence(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				res, err := a.Services.Orchestrator.Run(ctx, cadence, orchestrator.TriggerManual)
				if err != nil {
					return err
				}
				if err := writeResult(cmd.OutOrStdout(), opts.Format, res); err != nil {
					return err
				}
				if !res.Success {
					return fmt.Errorf("cadence %s finished with %d errors", res.Name, res.Errors)
				}
				return nil
			})
		},
	}
}

func writeResult(w io.Writer, format string, res orchestrator.JobResult) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(w, "%s (%s) success=%t processed=%d errors=%d %dms\n",
		res.Name, res.Trigger, res.Success, res.Processed, res.Errors, res.DurationMs)
	for _, t := range res.Tasks {
		status := "ok"
		switch {
		case t.Skipped:
			status = "skipped"
		case !t.Success:
			status = "failed"
		}
		fmt.Fprintf(w, "  %-28s %-8s processed=%d errors=%d %dms", t.Name, status, t.Processed, t.Errors, t.DurationMs)
		if t.Error != "" {
			fmt.Fprintf(w, " error=%q", t.Error)
		}
		fmt.Fprintln(w)
	}
	return nil
}
