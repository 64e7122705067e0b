package resolve

import (
	"cmp"
	"slices"

	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/scene"
)

// Content is one entity (or array member) projected onto the board for a
// single step.
type Content struct {
	EntityID scene.ID
	Kind     scene.Kind
	Z        int
	Rect     layout.Rect // Resolved footprint, clipped to the board
	PanelID  scene.ID

	Text  string // Array value, scalar display, interpolated label
	Shape scene.ShapeType
	Style scene.Style

	Rotation    int
	Orientation layout.Direction

	ArrayID string
	Index   int

	InvalidReason string // Resolution failure at this step, "" if valid
	TimelineIssue string // Failure at some other step, "" if none
}

// Anchor returns the top-left cell of the content.
func (c Content) Anchor() layout.Cell { return c.Rect.Anchor() }

// Valid reports whether the content resolved cleanly at this step.
func (c Content) Valid() bool { return c.InvalidReason == "" }

// Occupant is one entry of the occupancy index.
type Occupant struct {
	EntityID scene.ID
	Kind     scene.Kind
	Z        int
	Panel    bool // Panel occupancy, lowest priority
}

// PanelInfo is a resolved panel rectangle.
type PanelInfo struct {
	ID            scene.ID
	Title         string
	Rect          layout.Rect
	Z             int
	Style         scene.Style
	Children      int
	InvalidReason string
	TimelineIssue string
}

// Plan is the resolved projection of a store at one step. It owns no state
// and is never mutated after resolution.
type Plan struct {
	Step   int
	Line   int
	Bounds binding.Bounds

	// Cells maps a cell to the content anchored there that won the cell.
	Cells map[layout.Cell]Content
	// Overlay holds contents displaced from their anchor cell.
	Overlay map[layout.Cell][]Content
	// Occupancy lists every entity covering a cell: panels first, then
	// ascending z (last is topmost).
	Occupancy map[layout.Cell][]Occupant
	// Panels lists resolved panels in ascending z.
	Panels []PanelInfo

	contents map[scene.ID]Content
}

// At returns the winning content anchored at c.
func (p *Plan) At(c layout.Cell) (Content, bool) {
	content, ok := p.Cells[c]
	return content, ok
}

// Occupants returns the occupancy list of c.
func (p *Plan) Occupants(c layout.Cell) []Occupant { return p.Occupancy[c] }

// Topmost returns the highest non-panel occupant of c.
func (p *Plan) Topmost(c layout.Cell) (Occupant, bool) {
	occ := p.Occupancy[c]
	for i := len(occ) - 1; i >= 0; i-- {
		if !occ[i].Panel {
			return occ[i], true
		}
	}
	return Occupant{}, false
}

// Content returns the projection of a non-panel entity.
func (p *Plan) Content(id scene.ID) (Content, bool) {
	c, ok := p.contents[id]
	return c, ok
}

// Contents returns every non-panel projection in ascending z, ties broken
// by array index and ID.
func (p *Plan) Contents() []Content {
	out := make([]Content, 0, len(p.contents))
	for _, c := range p.contents {
		out = append(out, c)
	}
	slices.SortFunc(out, compareContent)
	return out
}

// Footprint returns the resolved rect of any entity, panels included.
func (p *Plan) Footprint(id scene.ID) (layout.Rect, bool) {
	if c, ok := p.contents[id]; ok {
		return c.Rect, true
	}
	if info, ok := p.Panel(id); ok {
		return info.Rect, true
	}
	return layout.Rect{}, false
}

// Panel returns a resolved panel.
func (p *Plan) Panel(id scene.ID) (PanelInfo, bool) {
	for _, info := range p.Panels {
		if info.ID == id {
			return info, true
		}
	}
	return PanelInfo{}, false
}

// Invalid returns the contents and panels with an InvalidReason, by ID.
func (p *Plan) Invalid() map[scene.ID]string {
	out := map[scene.ID]string{}
	for id, c := range p.contents {
		if c.InvalidReason != "" {
			out[id] = c.InvalidReason
		}
	}
	for _, info := range p.Panels {
		if info.InvalidReason != "" {
			out[info.ID] = info.InvalidReason
		}
	}
	return out
}

func compareContent(a, b Content) int {
	if c := cmp.Compare(a.Z, b.Z); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Index, b.Index); c != 0 {
		return c
	}
	if c := cmp.Compare(scene.IDNumber(a.EntityID), scene.IDNumber(b.EntityID)); c != 0 {
		return c
	}
	return cmp.Compare(a.EntityID, b.EntityID)
}

func compareOccupant(a, b Occupant) int {
	if a.Panel != b.Panel {
		if a.Panel {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.Z, b.Z); c != 0 {
		return c
	}
	if c := cmp.Compare(scene.IDNumber(a.EntityID), scene.IDNumber(b.EntityID)); c != 0 {
		return c
	}
	return cmp.Compare(a.EntityID, b.EntityID)
}
