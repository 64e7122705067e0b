package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/stepgrid/pkg/editor"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/scene"
)

// placeOpts holds the flags of the place subcommands.
type placeOpts struct {
	editFlags
	at     string
	shape  string
	text   string
	name   string
	value  string
	title  string
	dir    string
	width  int
	height int
	length int
}

// placeCommand creates the place command and its per-kind subcommands.
func (c *CLI) placeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place an object on the board",
		Long: `Place an object with its top-left cell at --at.

Objects placed inside a panel become its children with panel-relative
positions. Whatever the new object covers is removed, except panels.`,
	}

	cmd.AddCommand(c.placeSubcommand("shape", "Place a 1x1 shape", func(s *session, cell layout.Cell, o placeOpts) (string, error) {
		return s.ed.PlaceShape(s.ctx(), cell, scene.ShapeType(o.shape))
	}, func(cmd *cobra.Command, o *placeOpts) {
		cmd.Flags().StringVar(&o.shape, "type", string(scene.ShapeRect), "shape type: rect, circle, arrow, diamond")
	}))

	cmd.AddCommand(c.placeSubcommand("label", "Place a text label; {expr} is replaced by its value", func(s *session, cell layout.Cell, o placeOpts) (string, error) {
		return s.ed.PlaceLabel(s.ctx(), cell, o.text, o.width, o.height)
	}, func(cmd *cobra.Command, o *placeOpts) {
		cmd.Flags().StringVar(&o.text, "text", "", "label text")
		cmd.Flags().IntVar(&o.width, "width", 1, "label width in cells")
		cmd.Flags().IntVar(&o.height, "height", 1, "label height in cells")
	}))

	cmd.AddCommand(c.placeSubcommand("scalar", "Place a display of a variable", func(s *session, cell layout.Cell, o placeOpts) (string, error) {
		return s.ed.PlaceScalar(s.ctx(), cell, o.name, o.value)
	}, func(cmd *cobra.Command, o *placeOpts) {
		cmd.Flags().StringVar(&o.name, "var", "", "variable name")
		cmd.Flags().StringVar(&o.value, "value", "", "value shown until the variable exists")
	}))

	cmd.AddCommand(c.placeSubcommand("panel", "Place a panel that groups objects", func(s *session, cell layout.Cell, o placeOpts) (string, error) {
		return s.ed.PlacePanel(s.ctx(), cell, o.width, o.height, o.title)
	}, func(cmd *cobra.Command, o *placeOpts) {
		cmd.Flags().IntVar(&o.width, "width", editor.DefaultPanelSize, "panel width in cells")
		cmd.Flags().IntVar(&o.height, "height", editor.DefaultPanelSize, "panel height in cells")
		cmd.Flags().StringVar(&o.title, "title", "", "panel title")
	}))

	cmd.AddCommand(c.placeSubcommand("array", "Place an array of static cells", func(s *session, cell layout.Cell, o placeOpts) (string, error) {
		return s.ed.PlaceArray(s.ctx(), cell, o.length, layout.Direction(o.dir))
	}, func(cmd *cobra.Command, o *placeOpts) {
		cmd.Flags().IntVar(&o.length, "length", editor.DefaultArrayLength, "number of cells")
		cmd.Flags().StringVar(&o.dir, "dir", string(layout.Right), "layout direction: right, down, left, up")
	}))

	cmd.AddCommand(c.placeSubcommand("array-var", "Place an array bound to an array variable", func(s *session, cell layout.Cell, o placeOpts) (string, error) {
		return s.ed.PlaceArrayVariable(s.ctx(), cell, o.name, nil, layout.Direction(o.dir))
	}, func(cmd *cobra.Command, o *placeOpts) {
		cmd.Flags().StringVar(&o.name, "var", "", "array variable name")
		cmd.Flags().StringVar(&o.dir, "dir", string(layout.Right), "layout direction: right, down, left, up")
	}))

	return cmd
}

// placeSubcommand builds one "place <kind> <doc>" command.
func (c *CLI) placeSubcommand(
	kind, short string,
	place func(*session, layout.Cell, placeOpts) (string, error),
	flags func(*cobra.Command, *placeOpts),
) *cobra.Command {
	var opts placeOpts

	cmd := &cobra.Command{
		Use:   kind + " <doc.json>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cell, err := parseCellFlag("at", opts.at)
			if err != nil {
				return err
			}
			s, err := c.openSession(cmd, args[0], opts.editFlags)
			if err != nil {
				return err
			}

			id, err := place(s, cell, opts)
			if err != nil {
				return err
			}
			if err := s.save(); err != nil {
				return err
			}
			printSuccess("Placed %s at %s", id, cell)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.at, "at", "", "top-left cell as row,col")
	opts.editFlags.register(cmd)
	flags(cmd, &opts)
	return cmd
}
