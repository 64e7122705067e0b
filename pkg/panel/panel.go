package panel

import (
	"fmt"
	"sync"

	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/resolve"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

// Hit is a panel containing a queried cell.
type Hit struct {
	ID   scene.ID
	Rect layout.Rect
	Z    int
}

// Manager answers containment and sizing questions about panels. Minimum
// sizes depend on the whole timeline and are computed once per store.
//
// A Manager is safe for concurrent use.
type Manager struct {
	bind     *binding.Resolver
	timeline variable.Timeline

	mu      sync.Mutex
	store   *scene.Store
	extents map[scene.ID]layout.Extent
}

// NewManager returns a manager resolving through b over tl. A nil b uses the
// default board.
func NewManager(b *binding.Resolver, tl variable.Timeline) *Manager {
	if b == nil {
		b = binding.Default()
	}
	return &Manager{bind: b, timeline: tl}
}

// Rect resolves a panel's rectangle at snap, clipped to the board.
func (m *Manager) Rect(e scene.Entity, snap variable.Snapshot) (layout.Rect, error) {
	p, ok := e.Payload.(*scene.Panel)
	if !ok {
		return layout.Rect{}, fmt.Errorf("%w: %s is not a panel", scene.ErrNotFound, e.ID)
	}
	anchor, posErr := m.bind.Position(e.Position, snap)
	ext, sizeErr := m.bind.Extent(p.Width, p.Height, snap)
	bounds := m.bind.Bounds
	rect := layout.NewRect(anchor, ext).Clip(bounds.Rows, bounds.Cols)
	if posErr != nil {
		return rect, posErr
	}
	return rect, sizeErr
}

// PointInPanel returns the innermost panel whose rectangle contains c at
// snap: the smallest by area, then the highest z.
func (m *Manager) PointInPanel(s *scene.Store, snap variable.Snapshot, c layout.Cell) (Hit, bool) {
	var hits []Hit
	for _, e := range s.Panels() {
		rect, _ := m.Rect(e, snap)
		hits = append(hits, Hit{ID: e.ID, Rect: rect, Z: e.Z})
	}
	return innermost(hits, c)
}

// InPlan is PointInPanel over an already resolved plan.
func InPlan(p *resolve.Plan, c layout.Cell) (Hit, bool) {
	hits := make([]Hit, len(p.Panels))
	for i, info := range p.Panels {
		hits[i] = Hit{ID: info.ID, Rect: info.Rect, Z: info.Z}
	}
	return innermost(hits, c)
}

func innermost(hits []Hit, c layout.Cell) (Hit, bool) {
	var (
		best  Hit
		found bool
	)
	for _, h := range hits {
		if !h.Rect.Contains(c) {
			continue
		}
		if !found || h.Rect.Area() < best.Rect.Area() ||
			(h.Rect.Area() == best.Rect.Area() && h.Z > best.Z) {
			best, found = h, true
		}
	}
	return best, found
}

// =============================================================================
// Extension
// =============================================================================

// Extension describes growing a panel to cover a target cell.
type Extension struct {
	From  layout.Rect // Current rectangle
	To    layout.Rect // Grown rectangle
	Delta layout.Cell // Shift applied to every child binding, never negative
}

// Needed reports whether the target lies outside the current rectangle.
func (x Extension) Needed() bool { return x.From != x.To }

// AnchorMoved reports whether the panel grew up or left.
func (x Extension) AnchorMoved() bool { return x.Delta != layout.Cell{} }

// Extend computes the extension of rect that covers target. When target lies
// above or left of rect, the anchor moves and children must shift by Delta
// to stay on the same board cells.
func Extend(rect layout.Rect, target layout.Cell) Extension {
	grown := rect.Grow(target)
	return Extension{
		From:  rect,
		To:    grown,
		Delta: rect.Anchor().Sub(grown.Anchor()),
	}
}

// Cover computes the extension of rect that covers every cell of target.
func Cover(rect layout.Rect, target layout.Rect) Extension {
	if target.Empty() {
		return Extension{From: rect, To: rect}
	}
	far := layout.Cell{Row: target.Row + target.Height - 1, Col: target.Col + target.Width - 1}
	grown := rect.Grow(target.Anchor()).Grow(far)
	return Extension{
		From:  rect,
		To:    grown,
		Delta: rect.Anchor().Sub(grown.Anchor()),
	}
}

// Question is the confirmation prompt for an extension.
func Question(panelID scene.ID, x Extension) string {
	return fmt.Sprintf("Extend %s from %dx%d to %dx%d?",
		panelID, x.From.Width, x.From.Height, x.To.Width, x.To.Height)
}

// ShiftChildren rewrites the position of every child of panelID by delta so
// that each keeps its board cell after the panel anchor moves. Formula
// bindings are shifted algebraically and remain correct at every step.
func ShiftChildren(tx *scene.Tx, s *scene.Store, panelID scene.ID, delta layout.Cell) error {
	if delta == (layout.Cell{}) {
		return nil
	}
	for _, child := range s.Children(panelID) {
		e, ok := tx.Get(child.ID)
		if !ok {
			continue
		}
		e.Position = e.Position.Shift(delta.Row, delta.Col)
		if err := tx.Replace(e); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Minimum size
// =============================================================================

// MinimumSize returns the smallest extent panelID can take without cutting
// off a child at any step of the timeline.
func (m *Manager) MinimumSize(s *scene.Store, panelID scene.ID) layout.Extent {
	ext, ok := m.Extents(s)[panelID]
	if !ok {
		return layout.Unit
	}
	return ext
}

// Extents returns the minimum size of every panel in s. The result is
// computed on first use and reused until a different store is passed.
func (m *Manager) Extents(s *scene.Store) map[scene.ID]layout.Extent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == s && m.extents != nil {
		return m.extents
	}
	m.store = s
	m.extents = m.computeExtents(s)
	return m.extents
}

func (m *Manager) computeExtents(s *scene.Store) map[scene.ID]layout.Extent {
	snaps := m.snapshots()
	out := map[scene.ID]layout.Extent{}

	for _, p := range s.Panels() {
		need := layout.Unit
		seen := map[string]bool{}
		for _, child := range s.Children(p.ID) {
			if a, ok := child.Array(); ok {
				if seen[a.ArrayID] {
					continue
				}
				seen[a.ArrayID] = true
			}
			steps := snaps
			if isFixed(child) {
				steps = snaps[:1]
			}
			for _, snap := range steps {
				ext := m.childExtent(s, child, snap)
				need.Width = max(need.Width, ext.Width)
				need.Height = max(need.Height, ext.Height)
			}
		}
		out[p.ID] = need
	}
	return out
}

// childExtent is the panel-relative bottom-right corner of a child's
// footprint: offset plus size. Arrays use their full span.
func (m *Manager) childExtent(s *scene.Store, e scene.Entity, snap variable.Snapshot) layout.Extent {
	offset, _ := m.bind.Offset(e.Position, snap)

	var rect layout.Rect
	if a, ok := e.Array(); ok {
		members := s.Array(a.ArrayID)
		extents := make([]layout.Extent, len(members))
		for i, mem := range members {
			w, h := scene.Size(mem.Payload)
			extents[i], _ = m.bind.Extent(w, h, snap)
		}
		rect = layout.Span(offset, a.Direction, extents)
	} else {
		w, h := scene.Size(e.Payload)
		ext, _ := m.bind.Extent(w, h, snap)
		rect = layout.NewRect(offset, ext)
	}
	return layout.Extent{
		Width:  max(rect.Col+rect.Width, 1),
		Height: max(rect.Row+rect.Height, 1),
	}
}

// snapshots returns one snapshot per distinct timeline entry, or a single
// empty snapshot for an empty timeline.
func (m *Manager) snapshots() []variable.Snapshot {
	if m.timeline.IsEmpty() {
		return []variable.Snapshot{{}}
	}
	return m.timeline.Snapshots
}

func isFixed(e scene.Entity) bool {
	if !e.Position.IsFixed() {
		return false
	}
	w, h := scene.Size(e.Payload)
	if a, ok := e.Array(); ok && a.Cell == nil {
		return true
	}
	return w.IsFixed() && h.IsFixed()
}
