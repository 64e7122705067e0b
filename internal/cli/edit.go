package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/editor"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/scene"
)

// moveCommand creates the command that drags an object to another cell.
func (c *CLI) moveCommand() *cobra.Command {
	var (
		flags    editFlags
		from, to string
	)

	cmd := &cobra.Command{
		Use:   "move <doc.json>",
		Short: "Move the object at one cell so that cell lands on another",
		Long: `Move the object at --from so that the same cell of it lands on --to.

Arrays move whole and panels carry their children. Formula positions are
shifted so they keep their shape. Moving a panel child outside its panel
grows the panel, which asks first unless --yes is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := parseCellFlag("from", from)
			if err != nil {
				return err
			}
			dst, err := parseCellFlag("to", to)
			if err != nil {
				return err
			}
			s, err := c.openSession(cmd, args[0], flags)
			if err != nil {
				return err
			}
			if err := s.ed.Move(s.ctx(), src, dst); err != nil {
				return err
			}
			if err := s.save(); err != nil {
				return err
			}
			printSuccess("Moved %s %s %s", src, iconArrow, dst)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "cell of the object to move, as row,col")
	cmd.Flags().StringVar(&to, "to", "", "target cell, as row,col")
	flags.register(cmd)
	return cmd
}

// clearCommand creates the command that deletes the object at a cell.
func (c *CLI) clearCommand() *cobra.Command {
	var (
		flags    editFlags
		cell     string
		children string
	)

	cmd := &cobra.Command{
		Use:   "clear <doc.json>",
		Short: "Delete the object at a cell",
		Long: `Delete the topmost object at --cell, or the panel there when nothing
else covers it. Array cells delete their whole array.

When a panel with children is deleted, --children decides what happens to
them: "ask" (default), "delete" or "keep".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseCellFlag("cell", cell)
			if err != nil {
				return err
			}
			cascade, err := parseCascade(children, flags.yes)
			if err != nil {
				return err
			}
			s, err := c.openSession(cmd, args[0], flags)
			if err != nil {
				return err
			}
			id, err := s.ed.ClearCell(s.ctx(), at, cascade)
			if err != nil {
				return err
			}
			if err := s.save(); err != nil {
				return err
			}
			printSuccess("Deleted %s", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&cell, "cell", "", "cell to clear, as row,col")
	cmd.Flags().StringVar(&children, "children", "ask", "panel children: ask, delete or keep")
	flags.register(cmd)
	return cmd
}

func parseCascade(s string, yes bool) (editor.Cascade, error) {
	switch s {
	case "", "ask":
		if yes {
			return editor.CascadeDelete, nil
		}
		return editor.CascadeAsk, nil
	case "delete":
		return editor.CascadeDelete, nil
	case "keep":
		return editor.CascadeReanchor, nil
	}
	return 0, fmt.Errorf("--children %q (must be one of: ask, delete, keep)", s)
}

// =============================================================================
// set
// =============================================================================

// setOpts holds the flags of the set command. Only flags given on the
// command line are applied.
type setOpts struct {
	editFlags
	cell   string
	row    string
	col    string
	width  string
	height string
	dir    string
	panel  string
	text   string
	value  string
	color  string
	alpha  float64
	hidden bool
}

// setCommand creates the command that changes properties of an object.
func (c *CLI) setCommand() *cobra.Command {
	var opts setOpts

	cmd := &cobra.Command{
		Use:   "set <doc.json>",
		Short: "Change the bindings or style of the object at a cell",
		Long: `Change properties of the object at --cell.

--row, --col, --width and --height take an integer or a formula over the
program's variables, e.g. --col "i + 1". Formulas must give whole numbers
at every step of the timeline. For panel children positions are relative
to the panel. --panel moves the object into a panel ("none" takes it out)
without moving it on the board.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseCellFlag("cell", opts.cell)
			if err != nil {
				return err
			}
			s, err := c.openSession(cmd, args[0], opts.editFlags)
			if err != nil {
				return err
			}
			changed, err := applySet(cmd, s, at, opts)
			if err != nil {
				return err
			}
			if changed == 0 {
				return fmt.Errorf("nothing to change")
			}
			if err := s.save(); err != nil {
				return err
			}
			printSuccess("Updated object at %s", at)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.cell, "cell", "", "cell of the object, as row,col")
	f.StringVar(&opts.row, "row", "", "row binding")
	f.StringVar(&opts.col, "col", "", "column binding")
	f.StringVar(&opts.width, "width", "", "width binding")
	f.StringVar(&opts.height, "height", "", "height binding")
	f.StringVar(&opts.dir, "dir", "", "array direction: right, down, left, up")
	f.StringVar(&opts.panel, "panel", "", `panel ID to join, or "none"`)
	f.StringVar(&opts.text, "text", "", "label text")
	f.StringVar(&opts.value, "value", "", "static value of an array cell")
	f.StringVar(&opts.color, "color", "", "color as #rrggbb")
	f.Float64Var(&opts.alpha, "alpha", 1, "opacity in [0, 1]")
	f.BoolVar(&opts.hidden, "hidden", false, "hide the object")
	opts.editFlags.register(cmd)
	return cmd
}

// applySet applies the changed flags in a fixed order: position, size,
// direction, panel, text, value, style. The cell tracks the object when
// its position changes.
func applySet(cmd *cobra.Command, s *session, at layout.Cell, o setOpts) (int, error) {
	changed := cmd.Flags().Changed
	ctx := s.ctx()
	n := 0

	if changed("row") || changed("col") {
		ent, err := entityAt(s, at)
		if err != nil {
			return n, err
		}
		pos := ent.Position
		if changed("row") {
			if pos.Row, err = binding.Parse(o.row); err != nil {
				return n, fmt.Errorf("--row: %w", err)
			}
		}
		if changed("col") {
			if pos.Col, err = binding.Parse(o.col); err != nil {
				return n, fmt.Errorf("--col: %w", err)
			}
		}
		if err := s.ed.UpdatePositionBinding(ctx, at, pos); err != nil {
			return n, err
		}
		n++
		p := s.ed.Plan(ctx)
		if rect, ok := p.Footprint(ent.ID); ok {
			at = rect.Anchor()
		} else if info, ok := p.Panel(ent.ID); ok {
			at = info.Rect.Anchor()
		}
	}

	if changed("width") || changed("height") {
		w, h, err := currentSize(s, at)
		if err != nil {
			return n, err
		}
		if changed("width") {
			if w, err = binding.Parse(o.width); err != nil {
				return n, fmt.Errorf("--width: %w", err)
			}
		}
		if changed("height") {
			if h, err = binding.Parse(o.height); err != nil {
				return n, fmt.Errorf("--height: %w", err)
			}
		}
		if err := s.ed.UpdateShapeSize(ctx, at, w, h); err != nil {
			return n, err
		}
		n++
	}

	if changed("dir") {
		if err := s.ed.UpdateArrayDirection(ctx, at, layout.Direction(o.dir)); err != nil {
			return n, err
		}
		n++
	}
	if changed("panel") {
		id := o.panel
		if id == "none" {
			id = ""
		}
		if err := s.ed.SetPanelAssociation(ctx, at, id); err != nil {
			return n, err
		}
		n++
	}
	if changed("text") {
		if err := s.ed.UpdateLabelText(ctx, at, o.text); err != nil {
			return n, err
		}
		n++
	}
	if changed("value") {
		if err := s.ed.UpdateArrayValue(ctx, at, o.value); err != nil {
			return n, err
		}
		n++
	}
	if changed("color") || changed("alpha") || changed("hidden") {
		style := scene.Style{Color: o.color, Alpha: o.alpha, Visible: !o.hidden}
		if err := s.ed.UpdateStyle(ctx, at, style); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// entityAt returns the entity an edit at c applies to.
func entityAt(s *session, c layout.Cell) (scene.Entity, error) {
	p := s.ed.Plan(s.ctx())
	id := ""
	if occ, ok := p.Topmost(c); ok {
		id = occ.EntityID
	} else if hit, ok := s.ed.Panels().PointInPanel(s.ed.Store(), s.ed.Snapshot(), c); ok {
		id = hit.ID
	}
	ent, ok := s.ed.Store().Get(id)
	if !ok {
		return scene.Entity{}, fmt.Errorf("nothing at cell %s", c)
	}
	return ent, nil
}

func currentSize(s *session, c layout.Cell) (w, h binding.Numeric, err error) {
	ent, err := entityAt(s, c)
	if err != nil {
		return w, h, err
	}
	switch p := ent.Payload.(type) {
	case *scene.Shape:
		return p.Width, p.Height, nil
	case *scene.Label:
		return p.Width, p.Height, nil
	case *scene.Panel:
		return p.Width, p.Height, nil
	case *scene.ArrayCell:
		if p.Cell != nil {
			return p.Cell.Width, p.Cell.Height, nil
		}
	}
	return binding.Fixed(1), binding.Fixed(1), nil
}
