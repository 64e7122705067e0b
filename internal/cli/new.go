package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/document"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

// newOpts holds the flags of the new command.
type newOpts struct {
	trace   string // tracer output to import
	code    string // program source stored with the document
	rows    int
	cols    int
	maxSize int
	force   bool
}

// newCommand creates the command that starts a document.
func (c *CLI) newCommand() *cobra.Command {
	var opts newOpts

	cmd := &cobra.Command{
		Use:   "new <doc.json>",
		Short: "Create a document, optionally from tracer output",
		Long: `Create a new document file.

With --trace the document's timeline is imported from the tracer's JSON
output. The board size defaults to the [board] section of the config.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runNew(args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.trace, "trace", "", "tracer output (JSON) to import")
	cmd.Flags().StringVar(&opts.code, "code", "", "program source file to store with the document")
	cmd.Flags().IntVar(&opts.rows, "rows", 0, "board rows (default from config)")
	cmd.Flags().IntVar(&opts.cols, "cols", 0, "board columns (default from config)")
	cmd.Flags().IntVar(&opts.maxSize, "max-size", 0, "largest width or height (default from config)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing document")

	return cmd
}

func (c *CLI) runNew(path string, opts newOpts) error {
	if _, err := os.Stat(path); err == nil && !opts.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	var code string
	if opts.code != "" {
		data, err := os.ReadFile(opts.code)
		if err != nil {
			return fmt.Errorf("read code: %w", err)
		}
		code = string(data)
	}

	d := document.New()
	if opts.trace != "" {
		tr, err := variable.ImportTrace(opts.trace)
		if err != nil {
			return err
		}
		d = document.FromTrace(code, tr)
	}
	d.Code = code
	d.Board = binding.Bounds{
		Rows:    firstPositive(opts.rows, c.Config.Board.Rows),
		Cols:    firstPositive(opts.cols, c.Config.Board.Cols),
		MaxSize: firstPositive(opts.maxSize, c.Config.Board.MaxSize),
	}.WithDefaults()

	if err := document.Export(d, path); err != nil {
		return err
	}

	printSuccess("Created %s", d)
	printFile(path)
	printNextStep("Place an object", fmt.Sprintf("%s place shape %s --at 0,0", appName, path))
	return nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
