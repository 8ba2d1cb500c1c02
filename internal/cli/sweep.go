package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/app"
	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
)

func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "sweep",
		Short:        "Run one lifecycle sweep and exit",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), app.ModeCommand)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Services.Sweeper.Sweep(cmd.Context(), types.SweepTriggerCLI)
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, res)
			}
			_, err = fmt.Fprintf(out, "run %s: scanned=%d activated=%d expired=%d released_twice=%d (%s)\n",
				res.RunID, res.Scanned, res.Activated, res.Expired, res.ReleasedTwice,
				res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
			return err
		},
	}
}
