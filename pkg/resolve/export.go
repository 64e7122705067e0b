package resolve

import (
	"cmp"
	"encoding/json"
	"slices"

	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/scene"
)

// =============================================================================
// Wire Types
// =============================================================================

// PlanJSON is the deterministic serialized form of a Plan. Cells, overlay
// entries and occupancy are sorted row-major so equal plans encode to equal
// bytes.
type PlanJSON struct {
	Step      int             `json:"step"`
	Line      int             `json:"line,omitempty"`
	Board     binding.Bounds  `json:"board"`
	Cells     []CellJSON      `json:"cells"`
	Overlay   []CellJSON      `json:"overlay,omitempty"`
	Occupancy []OccupancyJSON `json:"occupancy"`
	Panels    []PanelJSON     `json:"panels,omitempty"`
}

// CellJSON is one content entry anchored at a cell.
type CellJSON struct {
	Row           int              `json:"row"`
	Col           int              `json:"col"`
	ID            string           `json:"id"`
	Kind          scene.Kind       `json:"kind"`
	Z             int              `json:"zOrder"`
	Width         int              `json:"width"`
	Height        int              `json:"height"`
	PanelID       string           `json:"panelId,omitempty"`
	Text          string           `json:"text,omitempty"`
	Shape         scene.ShapeType  `json:"shape,omitempty"`
	Style         scene.Style      `json:"style"`
	Rotation      int              `json:"rotation,omitempty"`
	Orientation   layout.Direction `json:"orientation,omitempty"`
	ArrayID       string           `json:"arrayId,omitempty"`
	Index         *int             `json:"index,omitempty"`
	InvalidReason string           `json:"invalidReason,omitempty"`
	TimelineIssue string           `json:"timelineIssue,omitempty"`
}

// OccupancyJSON lists the entity IDs covering a cell, bottom to top.
type OccupancyJSON struct {
	Row int      `json:"row"`
	Col int      `json:"col"`
	IDs []string `json:"ids"`
}

// PanelJSON is a resolved panel rectangle.
type PanelJSON struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Row           int         `json:"row"`
	Col           int         `json:"col"`
	Width         int         `json:"width"`
	Height        int         `json:"height"`
	Z             int         `json:"zOrder"`
	Style         scene.Style `json:"style"`
	Children      int         `json:"children"`
	InvalidReason string      `json:"invalidReason,omitempty"`
	TimelineIssue string      `json:"timelineIssue,omitempty"`
}

// =============================================================================
// Export
// =============================================================================

// Export converts a plan to its wire form.
func Export(p *Plan) PlanJSON {
	out := PlanJSON{
		Step:  p.Step,
		Line:  p.Line,
		Board: p.Bounds,
		Cells: []CellJSON{},
	}

	for _, cell := range sortedCells(p.Cells) {
		out.Cells = append(out.Cells, exportContent(p.Cells[cell]))
	}
	for _, cell := range sortedCells(p.Overlay) {
		for _, c := range p.Overlay[cell] {
			out.Overlay = append(out.Overlay, exportContent(c))
		}
	}

	out.Occupancy = make([]OccupancyJSON, 0, len(p.Occupancy))
	for _, cell := range sortedCells(p.Occupancy) {
		occ := p.Occupancy[cell]
		ids := make([]string, len(occ))
		for i, o := range occ {
			ids[i] = o.EntityID
		}
		out.Occupancy = append(out.Occupancy, OccupancyJSON{Row: cell.Row, Col: cell.Col, IDs: ids})
	}

	for _, info := range p.Panels {
		out.Panels = append(out.Panels, PanelJSON{
			ID:            info.ID,
			Title:         info.Title,
			Row:           info.Rect.Row,
			Col:           info.Rect.Col,
			Width:         info.Rect.Width,
			Height:        info.Rect.Height,
			Z:             info.Z,
			Style:         info.Style,
			Children:      info.Children,
			InvalidReason: info.InvalidReason,
			TimelineIssue: info.TimelineIssue,
		})
	}
	return out
}

// MarshalJSON implements json.Marshaler via Export.
func (p *Plan) MarshalJSON() ([]byte, error) {
	return json.Marshal(Export(p))
}

func exportContent(c Content) CellJSON {
	out := CellJSON{
		Row:           c.Rect.Row,
		Col:           c.Rect.Col,
		ID:            c.EntityID,
		Kind:          c.Kind,
		Z:             c.Z,
		Width:         c.Rect.Width,
		Height:        c.Rect.Height,
		PanelID:       c.PanelID,
		Text:          c.Text,
		Shape:         c.Shape,
		Style:         c.Style,
		Rotation:      c.Rotation,
		Orientation:   c.Orientation,
		ArrayID:       c.ArrayID,
		InvalidReason: c.InvalidReason,
		TimelineIssue: c.TimelineIssue,
	}
	if c.Kind == scene.KindArray {
		idx := c.Index
		out.Index = &idx
	}
	return out
}

func sortedCells[V any](m map[layout.Cell]V) []layout.Cell {
	cells := make([]layout.Cell, 0, len(m))
	for c := range m {
		cells = append(cells, c)
	}
	slices.SortFunc(cells, func(a, b layout.Cell) int {
		if c := cmp.Compare(a.Row, b.Row); c != 0 {
			return c
		}
		return cmp.Compare(a.Col, b.Col)
	})
	return cells
}
