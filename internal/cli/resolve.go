package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stepgrid/pkg/cache"
	"github.com/matzehuels/stepgrid/pkg/document"
	"github.com/matzehuels/stepgrid/pkg/pipeline"
	"github.com/matzehuels/stepgrid/pkg/scene"
)

// resolveOpts holds the command-line flags for the resolve command.
type resolveOpts struct {
	step    int    // 1-indexed; 0 means the document's current step
	all     bool   // every step of the timeline
	formats string // comma-separated output formats
	output  string // output file, or base path when several formats are written
	noCache bool
	refresh bool
}

// resolveCommand creates the command that resolves a document to plans.
func (c *CLI) resolveCommand() *cobra.Command {
	var opts resolveOpts

	cmd := &cobra.Command{
		Use:   "resolve <doc.json>",
		Short: "Resolve a document to the grid plan of one or all steps",
		Long: `Resolve evaluates every binding of the document at a timeline step and
prints where each object lands, which cells it covers and why it is invalid
if it cannot be placed.

Plans are cached by document content, step and board size.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.step, "step", 0, "step to resolve, 1-indexed (default: the document's current step)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "resolve every step")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output formats: text, json (comma-separated)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the plan cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached plans")

	return cmd
}

func (c *CLI) runResolve(cmd *cobra.Command, path string, opts resolveOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	d, err := document.Import(path)
	if err != nil {
		return err
	}
	steps, err := selectSteps(d, opts.step, opts.all)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()
	runner.Keyer = cache.NewScopedKeyer(nil, "doc:"+d.ID+":")

	prog := newProgress(logger)
	result, err := runner.Execute(ctx, d, pipeline.Options{
		Steps:   steps,
		Formats: parseFormats(opts.formats),
		Refresh: opts.refresh,
		Binding: c.resolver(d),
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Resolved %d steps", result.Stats.Steps))

	if err := writeArtifacts(cmd, result.Artifacts, opts.output); err != nil {
		return err
	}
	if opts.output != "" {
		printStats(result.Stats, result.CacheInfo)
	}
	return nil
}

// selectSteps turns the 1-indexed --step flag into 0-indexed pipeline steps.
// nil means every step.
func selectSteps(d *document.Document, step int, all bool) ([]int, error) {
	if all {
		return nil, nil
	}
	n := max(d.Timeline().Len(), 1)
	if step == 0 {
		return []int{d.CurrentStep}, nil
	}
	if step < 1 || step > n {
		return nil, fmt.Errorf("--step %d outside timeline of %d steps", step, n)
	}
	return []int{step - 1}, nil
}

// writeArtifacts writes each artifact to stdout or to output. With several
// formats and a file output, each gets output's base name and its format as
// extension.
func writeArtifacts(cmd *cobra.Command, artifacts map[string][]byte, output string) error {
	formats := make([]string, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	slices.Sort(formats)

	if output == "" {
		for _, f := range formats {
			if _, err := cmd.OutOrStdout().Write(artifacts[f]); err != nil {
				return err
			}
		}
		return nil
	}

	base := strings.TrimSuffix(output, filepath.Ext(output))
	for _, f := range formats {
		path := output
		if len(formats) > 1 {
			path = base + "." + extension(f)
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}

func extension(format string) string {
	if format == pipeline.FormatText {
		return "txt"
	}
	return format
}

// =============================================================================
// validate
// =============================================================================

// validateCommand creates the command that checks bindings at every step.
func (c *CLI) validateCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "validate <doc.json>",
		Short: "Report objects whose bindings break at some step",
		Long: `Validate evaluates every position and size binding at every step of the
timeline and reports the first problem found for each object: a missing
variable, a formula error or a value that is not a whole number.

The command fails when any object has a problem.`,
		Args: cobra.ExactArgs(1),
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

			issues, err := runner.Issues(ctx, d, pipeline.Options{Binding: c.resolver(d)})
			if err != nil {
				return err
			}
			if len(issues) == 0 {
				printSuccess("All %d objects are valid at every step", len(d.Entities))
				return nil
			}

			ids := make([]scene.ID, 0, len(issues))
			for id := range issues {
				ids = append(ids, id)
			}
			slices.SortFunc(ids, func(a, b scene.ID) int {
				return scene.IDNumber(a) - scene.IDNumber(b)
			})
			for _, id := range ids {
				printWarning("%s: %s", id, issues[id])
			}
			return fmt.Errorf("%d of %d objects have timeline issues", len(issues), len(d.Entities))
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")
	return cmd
}
