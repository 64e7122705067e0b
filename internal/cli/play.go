package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stepgrid/pkg/document"
	"github.com/matzehuels/stepgrid/pkg/pipeline"
)

// playCommand creates the interactive step player.
func (c *CLI) playCommand() *cobra.Command {
	var (
		noCache bool
		step    int
	)

	cmd := &cobra.Command{
		Use:   "play <doc.json>",
		Short: "Step through the timeline in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := document.Import(args[0])
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			spinner := newSpinner(ctx, cmd.ErrOrStderr(), "Resolving timeline...")
			spinner.Start()
			result, err := runner.Resolve(ctx, d, pipeline.Options{Binding: c.resolver(d), Logger: loggerFromContext(ctx)})
			if err != nil {
				spinner.StopWithError("Resolution failed")
				return err
			}
			spinner.Stop()

			start := d.CurrentStep
			if step > 0 {
				start = step - 1
			}
			if start >= len(result.Plans) {
				return fmt.Errorf("--step %d outside timeline of %d steps", step, len(result.Plans))
			}

			p := tea.NewProgram(NewPlayModel(result.Plans, d.Timeline(), start),
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().IntVar(&step, "step", 0, "step to start at, 1-indexed (default: the document's current step)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the plan cache")
	return cmd
}
