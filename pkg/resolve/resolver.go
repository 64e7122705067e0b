package resolve

import (
	"errors"
	"slices"

	"github.com/matzehuels/stepgrid/pkg/binding"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

// Resolver turns a store and a snapshot into a Plan. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	bind *binding.Resolver
}

// NewResolver returns a resolver evaluating through b. A nil b uses the
// default board.
func NewResolver(b *binding.Resolver) *Resolver {
	if b == nil {
		b = binding.Default()
	}
	return &Resolver{bind: b}
}

// Binding returns the underlying binding resolver.
func (r *Resolver) Binding() *binding.Resolver { return r.bind }

// Bounds returns the board bounds.
func (r *Resolver) Bounds() binding.Bounds { return r.bind.Bounds }

type panelAnchor struct {
	cell layout.Cell
	err  error
}

// Resolve projects s at snap. issues carries per-entity timeline validation
// messages (see validate.Validator.Report) and may be nil.
//
// Resolution runs in passes so arrays are never shadowed:
//
//  1. Panels resolve first and occupy their cells at the lowest priority.
//  2. Arrays claim cells; the first writer of a cell wins, later array members
//     go to the overlay.
//  3. Every other entity resolves in ascending z. A cell held by an array
//     member sends it to the overlay; between two other entities the higher
//     z keeps the cell and the displaced one moves to the overlay.
//
// A bad binding never fails resolution; it degrades that one entity.
func (r *Resolver) Resolve(s *scene.Store, snap variable.Snapshot, issues map[scene.ID]string) *Plan {
	bounds := r.bind.Bounds
	p := &Plan{
		Bounds:    bounds,
		Cells:     map[layout.Cell]Content{},
		Overlay:   map[layout.Cell][]Content{},
		Occupancy: map[layout.Cell][]Occupant{},
		contents:  map[scene.ID]Content{},
	}

	anchors := r.resolvePanels(p, s, snap, issues)
	r.resolveArrays(p, s, snap, issues, anchors)
	r.resolveOthers(p, s, snap, issues, anchors)

	for cell, occ := range p.Occupancy {
		slices.SortStableFunc(occ, compareOccupant)
		p.Occupancy[cell] = occ
	}
	return p
}

// =============================================================================
// Passes
// =============================================================================

func (r *Resolver) resolvePanels(p *Plan, s *scene.Store, snap variable.Snapshot, issues map[scene.ID]string) map[scene.ID]panelAnchor {
	bounds := r.bind.Bounds
	anchors := map[scene.ID]panelAnchor{}

	for _, e := range s.Panels() {
		panel := e.Payload.(*scene.Panel)
		cell, posErr := r.bind.Position(e.Position, snap)
		ext, sizeErr := r.bind.Extent(panel.Width, panel.Height, snap)
		rect := layout.NewRect(cell, ext).Clip(bounds.Rows, bounds.Cols)
		anchors[e.ID] = panelAnchor{cell: cell, err: posErr}

		p.Panels = append(p.Panels, PanelInfo{
			ID:            e.ID,
			Title:         panel.Title,
			Rect:          rect,
			Z:             e.Z,
			Style:         panel.Style,
			Children:      len(s.Children(e.ID)),
			InvalidReason: errs.Reason(errors.Join(posErr, sizeErr)),
			TimelineIssue: issues[e.ID],
		})
		for _, c := range rect.Cells() {
			p.Occupancy[c] = append(p.Occupancy[c], Occupant{EntityID: e.ID, Kind: scene.KindPanel, Z: e.Z, Panel: true})
		}
	}
	return anchors
}

func (r *Resolver) resolveArrays(p *Plan, s *scene.Store, snap variable.Snapshot, issues map[scene.ID]string, anchors map[scene.ID]panelAnchor) {
	bounds := r.bind.Bounds

	for _, arrayID := range s.ArrayIDs() {
		members := s.Array(arrayID)
		head := members[0]
		anchor, anchorErr := r.anchor(head, snap, anchors)
		dir := arrayDirection(head)

		extents := make([]layout.Extent, len(members))
		sizeErrs := make([]error, len(members))
		for i, m := range members {
			if a, _ := m.Array(); a.Cell == nil {
				extents[i], sizeErrs[i] = layout.Unit, nil
			} else {
				extents[i], sizeErrs[i] = r.bind.Extent(a.Cell.Width, a.Cell.Height, snap)
			}
		}
		offsets := layout.Offsets(dir, extents)

		for i, m := range members {
			a, _ := m.Array()
			cell := bounds.ClampCell(anchor.Add(offsets[i]))
			text, valueErr := arrayValue(a, snap)

			c := Content{
				EntityID:      m.ID,
				Kind:          scene.KindArray,
				Z:             m.Z,
				Rect:          layout.NewRect(cell, extents[i]).Clip(bounds.Rows, bounds.Cols),
				PanelID:       m.PanelID,
				Text:          text,
				Style:         scene.StyleOf(a),
				ArrayID:       a.ArrayID,
				Index:         a.Index,
				InvalidReason: errs.Reason(errors.Join(anchorErr, sizeErrs[i], valueErr)),
				TimelineIssue: issues[m.ID],
			}
			if a.Cell != nil {
				c.Shape = a.Cell.Type
				c.Rotation = a.Cell.Rotation
				c.Orientation = a.Cell.Orientation
			}

			if _, taken := p.Cells[cell]; taken {
				p.Overlay[cell] = append(p.Overlay[cell], c)
			} else {
				p.Cells[cell] = c
			}
			p.place(c)
		}
	}
}

func (r *Resolver) resolveOthers(p *Plan, s *scene.Store, snap variable.Snapshot, issues map[scene.ID]string, anchors map[scene.ID]panelAnchor) {
	bounds := r.bind.Bounds

	for _, e := range s.Entities() {
		if e.IsPanel() {
			continue
		}
		if _, isArray := e.Array(); isArray {
			continue
		}

		anchor, anchorErr := r.anchor(e, snap, anchors)
		cell := bounds.ClampCell(anchor)
		w, h := scene.Size(e.Payload)
		ext, sizeErr := r.bind.Extent(w, h, snap)
		text, textErr := r.text(e.Payload, snap)

		c := Content{
			EntityID:      e.ID,
			Kind:          e.Kind(),
			Z:             e.Z,
			Rect:          layout.NewRect(cell, ext).Clip(bounds.Rows, bounds.Cols),
			PanelID:       e.PanelID,
			Text:          text,
			Style:         scene.StyleOf(e.Payload),
			InvalidReason: errs.Reason(errors.Join(anchorErr, sizeErr, textErr)),
			TimelineIssue: issues[e.ID],
		}
		if shape, ok := e.Payload.(*scene.Shape); ok {
			c.Shape = shape.Type
			c.Rotation = shape.Rotation
			c.Orientation = shape.Orientation
		}

		if held, taken := p.Cells[cell]; taken {
			if held.Kind == scene.KindArray || held.Z > c.Z {
				p.Overlay[cell] = append(p.Overlay[cell], c)
			} else {
				p.Overlay[cell] = append(p.Overlay[cell], held)
				p.Cells[cell] = c
			}
		} else {
			p.Cells[cell] = c
		}
		p.place(c)
	}
}

// place records c in the content index and the occupancy of every covered cell.
func (p *Plan) place(c Content) {
	p.contents[c.EntityID] = c
	for _, cell := range c.Rect.Cells() {
		p.Occupancy[cell] = append(p.Occupancy[cell], Occupant{EntityID: c.EntityID, Kind: c.Kind, Z: c.Z})
	}
}

// anchor resolves an entity's unclamped board anchor, adding its parent
// panel's anchor when PanelID is set. A panel's own position error is
// propagated to its children. A dangling PanelID is reported and the
// position is treated as absolute.
func (r *Resolver) anchor(e scene.Entity, snap variable.Snapshot, anchors map[scene.ID]panelAnchor) (layout.Cell, error) {
	if e.PanelID == "" {
		return r.bind.Position(e.Position, snap)
	}

	offset, err := r.bind.Offset(e.Position, snap)
	parent, ok := anchors[e.PanelID]
	if !ok {
		refErr := errs.New(errs.ErrCodePanelReference, "panel %q does not exist", e.PanelID)
		return r.bind.Bounds.ClampCell(offset), errors.Join(refErr, err)
	}
	if parent.err != nil {
		err = errors.Join(errs.Wrap(errs.GetCode(parent.err), parent.err, "panel %s", e.PanelID), err)
	}
	return parent.cell.Add(offset), err
}

func arrayDirection(e scene.Entity) layout.Direction {
	if a, ok := e.Array(); ok && a.Direction != "" {
		return a.Direction
	}
	return layout.Right
}

// arrayValue returns the text of an array member: the live element of its
// source variable, or its static value.
func arrayValue(a *scene.ArrayCell, snap variable.Snapshot) (string, error) {
	if a.VarName == "" {
		return a.Value, nil
	}
	v, ok := snap.Lookup(a.VarName)
	if !ok {
		return a.Value, errs.New(errs.ErrCodeBindingUnavailable, "variable %q unavailable", a.VarName)
	}
	if !v.IsArray() {
		return a.Value, errs.New(errs.ErrCodeBindingUnavailable, "variable %q is %s, not an array", a.VarName, v.Type())
	}
	text, ok := v.Element(a.Index)
	if !ok {
		return "", errs.New(errs.ErrCodeBindingUnavailable, "index %d out of bounds for %q (length %d)", a.Index, a.VarName, v.Len())
	}
	return text, nil
}
