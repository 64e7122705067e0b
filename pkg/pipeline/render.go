package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matzehuels/stepgrid/pkg/resolve"
	"github.com/matzehuels/stepgrid/pkg/scene"
)

// Render renders plans in each requested format.
func Render(plans []resolve.PlanJSON, formats []string) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(formats))
	for _, format := range formats {
		var data []byte
		var err error
		switch format {
		case FormatJSON:
			data, err = RenderJSON(plans)
		case FormatText:
			data = RenderText(plans)
		default:
			err = ValidateFormat(format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// RenderJSON encodes a single plan as an object and several as an array.
func RenderJSON(plans []resolve.PlanJSON) ([]byte, error) {
	var v any = plans
	if len(plans) == 1 {
		v = plans[0]
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RenderText draws each plan as a character grid followed by its entries.
func RenderText(plans []resolve.PlanJSON) []byte {
	var b strings.Builder
	for i, p := range plans {
		if i > 0 {
			b.WriteByte('\n')
		}
		writePlan(&b, p)
	}
	return []byte(b.String())
}

func writePlan(b *strings.Builder, p resolve.PlanJSON) {
	fmt.Fprintf(b, "step %d", p.Step+1)
	if p.Line > 0 {
		fmt.Fprintf(b, " (line %d)", p.Line)
	}
	fmt.Fprintf(b, ": %d entries, %d panels\n", len(p.Cells)+len(p.Overlay), len(p.Panels))

	if g := NewGrid(p); len(g.Rows) > 0 {
		b.WriteString("    ")
		for col := g.Left; col < g.Left+len(g.Rows[0]); col++ {
			fmt.Fprintf(b, "%d", col%10)
		}
		b.WriteByte('\n')
		for i, row := range g.Rows {
			fmt.Fprintf(b, "%3d %s\n", g.Top+i, string(row))
		}
	}

	for _, pn := range p.Panels {
		fmt.Fprintf(b, "  %-10s %-7s %d,%d %dx%d %q\n", pn.ID, scene.KindPanel, pn.Row, pn.Col, pn.Width, pn.Height, pn.Title)
		writeIssues(b, pn.InvalidReason, pn.TimelineIssue)
	}
	for _, c := range p.Cells {
		writeCell(b, c, "")
	}
	for _, c := range p.Overlay {
		writeCell(b, c, " overlay")
	}
}

func writeCell(b *strings.Builder, c resolve.CellJSON, suffix string) {
	fmt.Fprintf(b, "  %-10s %-7s %d,%d %dx%d", c.ID, c.Kind, c.Row, c.Col, c.Width, c.Height)
	if c.Text != "" {
		fmt.Fprintf(b, " %q", c.Text)
	}
	b.WriteString(suffix)
	b.WriteByte('\n')
	writeIssues(b, c.InvalidReason, c.TimelineIssue)
}

func writeIssues(b *strings.Builder, invalid, timeline string) {
	if invalid != "" {
		fmt.Fprintf(b, "    ! %s\n", invalid)
	}
	if timeline != "" {
		fmt.Fprintf(b, "    ~ %s\n", timeline)
	}
}

// =============================================================================
// Grid
// =============================================================================

// Grid is the occupied region of a plan drawn one rune per cell. Empty
// cells are spaces.
type Grid struct {
	Top, Left int
	Rows      [][]rune
	Kinds     [][]scene.Kind // Kind of the topmost occupant, "" when empty
}

// NewGrid draws the bounding box of every occupied cell of p. Text wraps
// across the cells its content covers; panels show as dots.
func NewGrid(p resolve.PlanJSON) Grid {
	if len(p.Occupancy) == 0 {
		return Grid{}
	}
	content := make(map[string]resolve.CellJSON, len(p.Cells)+len(p.Overlay))
	for _, c := range append(p.Overlay, p.Cells...) {
		content[c.ID] = c
	}

	top, left := p.Occupancy[0].Row, p.Occupancy[0].Col
	bottom, right := top, left
	for _, o := range p.Occupancy {
		top, bottom = min(top, o.Row), max(bottom, o.Row)
		left, right = min(left, o.Col), max(right, o.Col)
	}

	g := Grid{Top: top, Left: left}
	g.Rows = make([][]rune, bottom-top+1)
	g.Kinds = make([][]scene.Kind, bottom-top+1)
	for i := range g.Rows {
		g.Rows[i] = []rune(strings.Repeat(" ", right-left+1))
		g.Kinds[i] = make([]scene.Kind, right-left+1)
	}

	for _, o := range p.Occupancy {
		top := o.IDs[len(o.IDs)-1]
		r, c := o.Row-g.Top, o.Col-g.Left
		cell, ok := content[top]
		if !ok {
			g.Rows[r][c], g.Kinds[r][c] = '.', scene.KindPanel
			continue
		}
		g.Rows[r][c], g.Kinds[r][c] = glyphAt(cell, o.Row, o.Col), cell.Kind
	}
	return g
}

// glyphAt returns the rune drawn for c at a covered cell.
func glyphAt(c resolve.CellJSON, row, col int) rune {
	if text := []rune(strings.TrimSpace(c.Text)); len(text) > 0 {
		if i := (row-c.Row)*c.Width + (col - c.Col); i < len(text) {
			return text[i]
		}
		return ' '
	}
	return Glyph(c)
}

// Glyph is the symbol for content without text.
func Glyph(c resolve.CellJSON) rune {
	switch c.Kind {
	case scene.KindShape:
		switch c.Shape {
		case scene.ShapeCircle:
			return 'o'
		case scene.ShapeArrow:
			return '>'
		case scene.ShapeDiamond:
			return '*'
		}
		return '#'
	case scene.KindArray:
		return '_'
	case scene.KindScalar:
		return '='
	case scene.KindLabel:
		return 'T'
	}
	return '?'
}
