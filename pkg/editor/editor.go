package editor

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stepgrid/pkg/binding"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/observability"
	"github.com/matzehuels/stepgrid/pkg/panel"
	"github.com/matzehuels/stepgrid/pkg/resolve"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/validate"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

// ErrExtensionDeclined is returned when an edit needs a panel to grow and
// the confirmer said no. The store is left unchanged.
var ErrExtensionDeclined = errors.New("panel extension declined")

// Confirmer answers yes/no questions on behalf of the user.
type Confirmer interface {
	Confirm(ctx context.Context, question string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, question string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, question string) bool { return f(ctx, question) }

// Always and Never are fixed confirmers.
var (
	Always Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })
	Never  Confirmer = ConfirmFunc(func(context.Context, string) bool { return false })
)

// Options configures an Editor.
type Options struct {
	Binding   *binding.Resolver // nil uses the default board
	Step      int               // Current timeline step
	Confirmer Confirmer         // nil declines every question
	Logger    *log.Logger       // nil discards output
}

// Editor applies edits to a scene store. Each successful edit commits a new
// store; a failed or declined edit leaves the current store untouched.
//
// An Editor is the single writer of its store and is not safe for
// concurrent use. Stores it returns may be shared freely.
type Editor struct {
	store    *scene.Store
	timeline variable.Timeline
	step     int

	bind      *binding.Resolver
	engine    *resolve.Engine
	validator *validate.Validator
	panels    *panel.Manager
	confirm   Confirmer
	logger    *log.Logger
}

// New returns an editor over s. A nil s starts from an empty store.
func New(s *scene.Store, tl variable.Timeline, opts Options) *Editor {
	if s == nil {
		s = scene.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	confirm := opts.Confirmer
	if confirm == nil {
		confirm = Never
	}
	bind := opts.Binding
	if bind == nil {
		bind = binding.Default()
	}
	r := resolve.NewResolver(bind)
	return &Editor{
		store:     s,
		timeline:  tl,
		step:      opts.Step,
		bind:      bind,
		engine:    resolve.NewEngine(r, tl, logger),
		validator: validate.New(bind),
		panels:    panel.NewManager(bind, tl),
		confirm:   confirm,
		logger:    logger,
	}
}

// Store returns the current store.
func (e *Editor) Store() *scene.Store { return e.store }

// Step returns the current timeline step.
func (e *Editor) Step() int { return e.step }

// SetStep selects the step that placements and lookups resolve against.
func (e *Editor) SetStep(step int) { e.step = step }

// Snapshot returns the variables at the current step.
func (e *Editor) Snapshot() variable.Snapshot { return e.timeline.SnapshotAt(e.step) }

// Plan returns the resolved plan of the current store at the current step.
func (e *Editor) Plan(ctx context.Context) *resolve.Plan {
	return e.engine.Plan(ctx, e.store, e.step)
}

// Engine returns the resolve engine shared with the editor.
func (e *Editor) Engine() *resolve.Engine { return e.engine }

// Panels returns the panel geometry manager.
func (e *Editor) Panels() *panel.Manager { return e.panels }

// =============================================================================
// Internals
// =============================================================================

// edit runs fn against a transaction and commits it on success.
func (e *Editor) edit(ctx context.Context, op string, fn func(tx *scene.Tx) error) error {
	start := time.Now()
	tx := e.store.Begin()
	err := fn(tx)
	if err == nil {
		next := tx.Commit()
		if verr := next.Validate(); verr != nil {
			err = errs.Wrap(errs.ErrCodeInternal, verr, "%s left the store inconsistent", op)
		} else {
			e.store = next
		}
	}
	observability.Edit().OnEdit(ctx, op, err)
	if err != nil {
		e.logger.Debug("edit rejected", "op", op, "error", err)
		return err
	}
	e.logger.Debug("edit applied", "op", op, "version", e.store.Version(), "duration", time.Since(start))
	return nil
}

// ask forwards a question to the confirmer.
func (e *Editor) ask(ctx context.Context, question string) bool {
	ok := e.confirm.Confirm(ctx, question)
	observability.Edit().OnConfirm(ctx, question, ok)
	return ok
}

func (e *Editor) checkCell(c layout.Cell) error {
	if !e.bind.Bounds.Contains(c) {
		return errs.New(errs.ErrCodeInvalidInput, "cell %s is outside the %dx%d board", c, e.bind.Bounds.Rows, e.bind.Bounds.Cols)
	}
	return nil
}

// target is the entity an edit at a cell applies to: the topmost non-panel
// occupant, or else the innermost panel.
func (e *Editor) target(ctx context.Context, c layout.Cell) (scene.Entity, error) {
	p := e.Plan(ctx)
	if occ, ok := p.Topmost(c); ok {
		if ent, ok := e.store.Get(occ.EntityID); ok {
			return ent, nil
		}
	}
	if hit, ok := panel.InPlan(p, c); ok {
		if ent, ok := e.store.Get(hit.ID); ok {
			return ent, nil
		}
	}
	return scene.Entity{}, errs.New(errs.ErrCodeEntityNotFound, "nothing at cell %s", c)
}

// siblings returns the IDs an edit on ent applies to: every member of its
// array, or ent alone.
func (e *Editor) siblings(ent scene.Entity) []scene.ID {
	a, ok := ent.Array()
	if !ok {
		return []scene.ID{ent.ID}
	}
	members := e.store.Array(a.ArrayID)
	ids := make([]scene.ID, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}

// modify applies fn to every listed entity in tx.
func modify(tx *scene.Tx, ids []scene.ID, fn func(*scene.Entity) error) error {
	for _, id := range ids {
		ent, ok := tx.Get(id)
		if !ok {
			return errs.New(errs.ErrCodeEntityNotFound, "entity %s not found", id)
		}
		ent = ent.Clone()
		if err := fn(&ent); err != nil {
			return err
		}
		if err := tx.Replace(ent); err != nil {
			return err
		}
	}
	return nil
}

// evict removes every non-panel entity whose footprint intersects rect,
// whole arrays at a time. IDs in keep are spared.
func (e *Editor) evict(tx *scene.Tx, p *resolve.Plan, rect layout.Rect, keep map[scene.ID]bool) []scene.ID {
	var evicted []scene.ID
	arrays := map[string]bool{}
	for _, c := range p.Contents() {
		if keep[c.EntityID] || !c.Rect.Intersects(rect) {
			continue
		}
		if c.ArrayID != "" {
			if arrays[c.ArrayID] {
				continue
			}
			arrays[c.ArrayID] = true
			tx.DeleteArray(c.ArrayID)
			evicted = append(evicted, c.ArrayID)
			continue
		}
		tx.Delete(c.EntityID)
		evicted = append(evicted, c.EntityID)
	}
	if len(evicted) > 0 {
		e.logger.Debug("evicted", "rect", rect.String(), "ids", evicted)
	}
	return evicted
}

// projected returns the rect ent will cover on the board once its head (the
// first member for arrays) resolves to the unclamped cell anchor. Cells are
// clamped onto the board the way resolution clamps them, so a panel grown
// to cover the result moves by exactly the delta its children will see.
func (e *Editor) projected(ent scene.Entity, anchor layout.Cell) layout.Rect {
	b := e.bind.Bounds
	snap := e.Snapshot()
	a, ok := ent.Array()
	if !ok {
		w, h := scene.Size(ent.Payload)
		ext, _ := e.bind.Extent(w, h, snap)
		return layout.NewRect(b.ClampCell(anchor), ext).Clip(b.Rows, b.Cols)
	}

	members := e.store.Array(a.ArrayID)
	if len(members) == 0 {
		return layout.NewRect(b.ClampCell(anchor), layout.Unit)
	}
	dir := layout.Right
	if head, _ := members[0].Array(); head.Direction != "" {
		dir = head.Direction
	}
	extents := make([]layout.Extent, len(members))
	for i, m := range members {
		w, h := scene.Size(m.Payload)
		extents[i], _ = e.bind.Extent(w, h, snap)
	}

	var rect layout.Rect
	for i, off := range layout.Offsets(dir, extents) {
		r := layout.NewRect(b.ClampCell(anchor.Add(off)), extents[i]).Clip(b.Rows, b.Cols)
		if i == 0 {
			rect = r
			continue
		}
		rect = rect.Grow(r.Anchor()).Grow(layout.Cell{Row: r.Row + r.Height - 1, Col: r.Col + r.Width - 1})
	}
	return rect
}

// headAnchor is the resolved anchor of ent, or of its first member for
// arrays.
func (e *Editor) headAnchor(p *resolve.Plan, ent scene.Entity) layout.Cell {
	id := ent.ID
	if a, ok := ent.Array(); ok {
		if members := e.store.Array(a.ArrayID); len(members) > 0 {
			id = members[0].ID
		}
	}
	r, _ := p.Footprint(id)
	return r.Anchor()
}

// extendFor grows panelID so that it covers rect, asking first. The panel
// anchor and every child binding shift when it grows up or left. Size
// bindings grow by the same amount, so formula sizes keep their shape.
func (e *Editor) extendFor(ctx context.Context, tx *scene.Tx, p *resolve.Plan, panelID scene.ID, rect layout.Rect) error {
	info, ok := p.Panel(panelID)
	if !ok {
		return errs.New(errs.ErrCodePanelReference, "panel %q does not exist", panelID)
	}
	x := panel.Cover(info.Rect, rect)
	if !x.Needed() {
		return nil
	}
	if !e.ask(ctx, panel.Question(panelID, x)) {
		return errs.Wrap(errs.ErrCodeNeedsConfirmation, ErrExtensionDeclined, "%s must grow to %s", panelID, x.To)
	}

	pe, _ := tx.Get(panelID)
	pe = pe.Clone()
	pp := pe.Payload.(*scene.Panel)
	pp.Width = binding.Shift(pp.Width, x.To.Width-x.From.Width)
	pp.Height = binding.Shift(pp.Height, x.To.Height-x.From.Height)
	if x.AnchorMoved() {
		pe.Position = pe.Position.Shift(-x.Delta.Row, -x.Delta.Col)
	}
	if err := tx.Replace(pe); err != nil {
		return err
	}
	return panel.ShiftChildren(tx, e.store, panelID, x.Delta)
}

// relative converts a board cell into a position inside the innermost panel
// containing it, if any.
func (e *Editor) relative(p *resolve.Plan, c layout.Cell) (binding.Position, scene.ID) {
	if hit, ok := panel.InPlan(p, c); ok {
		off := c.Sub(hit.Rect.Anchor())
		return binding.At(off.Row, off.Col), hit.ID
	}
	return binding.At(c.Row, c.Col), ""
}
