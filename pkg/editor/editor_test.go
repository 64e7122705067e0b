package editor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matzehuels/stepgrid/pkg/binding"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/observability"
	"github.com/matzehuels/stepgrid/pkg/resolve"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

func cell(r, c int) layout.Cell { return layout.Cell{Row: r, Col: c} }

func counter(values ...int64) variable.Timeline {
	var tl variable.Timeline
	for _, v := range values {
		tl.Snapshots = append(tl.Snapshots, variable.Snapshot{"i": variable.Int(v)})
	}
	return tl
}

func must[T any](t *testing.T) func(T, error) T {
	return func(v T, err error) T {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		return v
	}
}

func TestPlaceArray(t *testing.T) {
	ctx := context.Background()
	ed := New(nil, variable.Timeline{}, Options{})
	arrayID := must[string](t)(ed.PlaceArray(ctx, cell(0, 0), 5, layout.Right))

	members := ed.Store().Array(arrayID)
	if len(members) != 5 {
		t.Fatalf("members = %d, want 5", len(members))
	}
	p := ed.Plan(ctx)
	for i := range 5 {
		c, ok := p.At(cell(0, i))
		if !ok || c.ArrayID != arrayID || c.Index != i {
			t.Errorf("cell (0,%d) = %+v", i, c)
		}
	}
	z := members[0].Z
	for _, m := range members {
		if m.Z != z {
			t.Error("array members must share one z-order")
		}
	}
}

func TestPlaceEvictsWholeArray(t *testing.T) {
	ctx := context.Background()
	ed := New(nil, variable.Timeline{}, Options{})
	arrayID := must[string](t)(ed.PlaceArray(ctx, cell(0, 0), 5, layout.Right))
	other := must[scene.ID](t)(ed.PlaceShape(ctx, cell(4, 4), scene.ShapeCircle))

	id := must[scene.ID](t)(ed.PlaceShape(ctx, cell(0, 3), scene.ShapeRect))

	if n := len(ed.Store().Array(arrayID)); n != 0 {
		t.Errorf("%d array members survived, want the whole array evicted", n)
	}
	if _, ok := ed.Store().Get(other); !ok {
		t.Error("unrelated shape was evicted")
	}
	if ent, _ := ed.Store().Get(id); ent.Z <= 1 {
		t.Errorf("new shape z = %d, want above earlier placements", ent.Z)
	}
}

func TestPlaceLabelEvictsCoveredCells(t *testing.T) {
	ctx := context.Background()
	ed := New(nil, variable.Timeline{}, Options{})
	a := must[scene.ID](t)(ed.PlaceShape(ctx, cell(2, 3), scene.ShapeRect))
	b := must[scene.ID](t)(ed.PlaceShape(ctx, cell(2, 6), scene.ShapeRect))

	must[scene.ID](t)(ed.PlaceLabel(ctx, cell(2, 2), "hello", 3, 1))

	if _, ok := ed.Store().Get(a); ok {
		t.Error("shape under the label should be evicted")
	}
	if _, ok := ed.Store().Get(b); !ok {
		t.Error("shape beside the label should survive")
	}
}

func TestPanelsAreNeverEvicted(t *testing.T) {
	ctx := context.Background()
	ed := New(nil, variable.Timeline{}, Options{})
	shapeID := must[scene.ID](t)(ed.PlaceShape(ctx, cell(3, 3), scene.ShapeRect))
	pid := must[scene.ID](t)(ed.PlacePanel(ctx, cell(2, 2), 4, 4, "P"))

	if _, ok := ed.Store().Get(shapeID); !ok {
		t.Error("placing a panel must not evict")
	}

	child := must[scene.ID](t)(ed.PlaceShape(ctx, cell(4, 5), scene.ShapeRect))
	if _, ok := ed.Store().Get(pid); !ok {
		t.Error("placing a child must not evict its panel")
	}
	ent, _ := ed.Store().Get(child)
	if ent.PanelID != pid || ent.Position != binding.At(2, 3) {
		t.Errorf("child panel=%q position=%s, want %s (2, 3)", ent.PanelID, ent.Position, pid)
	}
}

func TestPlaceRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	ed := New(nil, variable.Timeline{}, Options{})
	before := ed.Store()

	tests := []struct {
		name string
		run  func() error
		code errs.Code
	}{
		{"off board", func() error { _, err := ed.PlaceShape(ctx, cell(50, 0), ""); return err }, errs.ErrCodeInvalidInput},
		{"zero size", func() error { _, err := ed.PlaceLabel(ctx, cell(0, 0), "x", 0, 1); return err }, errs.ErrCodeInvalidInput},
		{"too big", func() error { _, err := ed.PlacePanel(ctx, cell(0, 0), 51, 1, ""); return err }, errs.ErrCodeInvalidInput},
		{"bad direction", func() error { _, err := ed.PlaceArray(ctx, cell(0, 0), 3, "sideways"); return err }, errs.ErrCodeInvalidDirection},
		{"missing array variable", func() error { _, err := ed.PlaceArrayVariable(ctx, cell(0, 0), "xs", nil, ""); return err }, errs.ErrCodeBindingUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errs.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
			if ed.Store() != before {
				t.Error("rejected placement changed the store")
			}
		})
	}
}

func TestPlaceArrayVariable(t *testing.T) {
	ctx := context.Background()
	tl := variable.Timeline{Snapshots: []variable.Snapshot{{"xs": variable.IntArray([]int64{3, 1, 4})}}}
	ed := New(nil, tl, Options{})
	arrayID := must[string](t)(ed.PlaceArrayVariable(ctx, cell(1, 1), "xs", nil, layout.Down))

	members := ed.Store().Array(arrayID)
	if len(members) != 3 {
		t.Fatalf("members = %d, want 3", len(members))
	}
	p := ed.Plan(ctx)
	if c, _ := p.At(cell(3, 1)); c.Text != "4" {
		t.Errorf("text at (3,1) = %q, want 4", c.Text)
	}
}

// panelScene builds a 4x4 panel at (5,5) holding a formula child at
// (0, i) and a fixed child at (1, 1).
func panelScene(t *testing.T, confirm Confirmer) (ed *Editor, pid, formula, fixed scene.ID) {
	t.Helper()
	ctx := context.Background()
	ed = New(nil, counter(0, 1, 2), Options{Confirmer: confirm})
	pid = must[scene.ID](t)(ed.PlacePanel(ctx, cell(5, 5), 4, 4, "P"))
	formula = must[scene.ID](t)(ed.PlaceShape(ctx, cell(5, 5), scene.ShapeRect))
	fixed = must[scene.ID](t)(ed.PlaceShape(ctx, cell(6, 6), scene.ShapeCircle))
	if err := ed.UpdatePositionBinding(ctx, cell(5, 5), binding.Position{Row: binding.Fixed(0), Col: binding.Formula("i")}); err != nil {
		t.Fatal(err)
	}
	return ed, pid, formula, fixed
}

func TestMoveOutsidePanelDeclined(t *testing.T) {
	ctx := context.Background()
	var asked string
	ed, _, _, _ := panelScene(t, ConfirmFunc(func(_ context.Context, q string) bool {
		asked = q
		return false
	}))
	before := ed.Store()

	err := ed.Move(ctx, cell(6, 6), cell(3, 2))
	if !errors.Is(err, ErrExtensionDeclined) || !errs.Is(err, errs.ErrCodeNeedsConfirmation) {
		t.Fatalf("err = %v, want a declined extension", err)
	}
	if ed.Store() != before {
		t.Error("declined move changed the store")
	}
	if !strings.Contains(asked, "4x4 to 7x6") {
		t.Errorf("question = %q", asked)
	}
}

func TestMoveOutsidePanelExtends(t *testing.T) {
	ctx := context.Background()
	ed, pid, formula, fixed := panelScene(t, Always)
	tl := counter(0, 1, 2)
	r := resolve.NewResolver(nil)

	before := ed.Store()
	if err := ed.Move(ctx, cell(6, 6), cell(3, 2)); err != nil {
		t.Fatal(err)
	}
	after := ed.Store()

	pe, _ := after.Get(pid)
	pp := pe.Payload.(*scene.Panel)
	if pe.Position != binding.At(3, 2) || pp.Width != binding.Fixed(7) || pp.Height != binding.Fixed(6) {
		t.Errorf("panel = %s %sx%s, want (3, 2) 7x6", pe.Position, pp.Width, pp.Height)
	}

	for step := range tl.Len() {
		snap := tl.SnapshotAt(step)
		pb, pa := r.Resolve(before, snap, nil), r.Resolve(after, snap, nil)

		cb, _ := pb.Content(formula)
		ca, _ := pa.Content(formula)
		if cb.Anchor() != ca.Anchor() {
			t.Errorf("step %d: formula child moved from %s to %s", step, cb.Anchor(), ca.Anchor())
		}
		if c, _ := pa.Content(fixed); c.Anchor() != cell(3, 2) {
			t.Errorf("step %d: moved child at %s, want 3,2", step, c.Anchor())
		}
	}
}

func TestExtensionKeepsSiblingsOnTheirCells(t *testing.T) {
	tests := []struct {
		name  string
		setup func(ctx context.Context, ed *Editor) (sibling scene.ID)
		edit  func(ctx context.Context, ed *Editor) error
		moved layout.Cell
	}{
		{
			name: "rebind above the board",
			setup: func(ctx context.Context, ed *Editor) scene.ID {
				must[scene.ID](t)(ed.PlacePanel(ctx, cell(2, 2), 3, 3, "P"))
				must[scene.ID](t)(ed.PlaceShape(ctx, cell(2, 2), scene.ShapeRect))
				return must[scene.ID](t)(ed.PlaceShape(ctx, cell(3, 3), scene.ShapeCircle))
			},
			edit: func(ctx context.Context, ed *Editor) error {
				return ed.UpdatePositionBinding(ctx, cell(2, 2), binding.At(-5, 0))
			},
			moved: cell(0, 2),
		},
		{
			name: "move by a cell right of the anchor",
			setup: func(ctx context.Context, ed *Editor) scene.ID {
				must[scene.ID](t)(ed.PlacePanel(ctx, cell(2, 2), 4, 4, "P"))
				must[scene.ID](t)(ed.PlaceLabel(ctx, cell(3, 2), "abc", 3, 1))
				return must[scene.ID](t)(ed.PlaceShape(ctx, cell(5, 5), scene.ShapeCircle))
			},
			edit: func(ctx context.Context, ed *Editor) error {
				return ed.Move(ctx, cell(3, 4), cell(3, 0))
			},
			moved: cell(3, 0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ed := New(nil, variable.Timeline{}, Options{Confirmer: Always})
			sibling := tt.setup(ctx, ed)
			before, _ := ed.Plan(ctx).Footprint(sibling)

			if err := tt.edit(ctx, ed); err != nil {
				t.Fatal(err)
			}
			p := ed.Plan(ctx)
			if after, _ := p.Footprint(sibling); after != before {
				t.Errorf("sibling moved from %s to %s", before, after)
			}
			occ, ok := p.Topmost(tt.moved)
			if !ok || occ.EntityID == sibling {
				t.Fatalf("nothing moved to %s", tt.moved)
			}
			ent, _ := ed.Store().Get(occ.EntityID)
			info, _ := p.Panel(ent.PanelID)
			if !info.Rect.Contains(tt.moved) {
				t.Errorf("panel %s does not cover the moved entity at %s", info.Rect, tt.moved)
			}
		})
	}
}

func TestExtensionKeepsSizeFormulas(t *testing.T) {
	tl := variable.Timeline{Snapshots: []variable.Snapshot{
		{"w": variable.Int(3)},
		{"w": variable.Int(6)},
	}}
	tests := []struct {
		name      string
		to        layout.Cell
		wantWidth binding.Numeric
		width     int // at step 2
		height    int
	}{
		{"grow down keeps the width formula", cell(6, 3), binding.Formula("w"), 6, 5},
		{"grow right shifts the width formula", cell(3, 6), binding.Formula("(w) + 2"), 8, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ed := New(nil, tl, Options{Confirmer: Always})
			pid := must[scene.ID](t)(ed.PlacePanel(ctx, cell(2, 2), 3, 3, "P"))
			if err := ed.UpdateShapeSize(ctx, cell(2, 2), binding.Formula("w"), binding.Fixed(3)); err != nil {
				t.Fatal(err)
			}
			must[scene.ID](t)(ed.PlaceShape(ctx, cell(3, 3), scene.ShapeRect))

			if err := ed.Move(ctx, cell(3, 3), tt.to); err != nil {
				t.Fatal(err)
			}
			pe, _ := ed.Store().Get(pid)
			if pp := pe.Payload.(*scene.Panel); pp.Width != tt.wantWidth {
				t.Errorf("width binding = %s, want %s", pp.Width, tt.wantWidth)
			}
			ed.SetStep(1)
			info, _ := ed.Plan(ctx).Panel(pid)
			if info.Rect.Width != tt.width || info.Rect.Height != tt.height {
				t.Errorf("panel at step 2 = %s, want %dx%d", info.Rect, tt.width, tt.height)
			}
		})
	}
}

func TestRebindReversedArrayAsksToExtend(t *testing.T) {
	ctx := context.Background()
	asked := 0
	confirm := ConfirmFunc(func(context.Context, string) bool {
		asked++
		return asked > 1
	})
	ed := New(nil, variable.Timeline{}, Options{Confirmer: confirm})
	pid := must[scene.ID](t)(ed.PlacePanel(ctx, cell(5, 5), 4, 4, "P"))
	arrayID := must[string](t)(ed.PlaceArray(ctx, cell(5, 8), 3, layout.Left))
	before := ed.Store()

	err := ed.UpdatePositionBinding(ctx, cell(5, 8), binding.At(0, 0))
	if !errors.Is(err, ErrExtensionDeclined) {
		t.Fatalf("err = %v, want a declined extension", err)
	}
	if asked != 1 || ed.Store() != before {
		t.Fatalf("asked %d times, store changed: %v", asked, ed.Store() != before)
	}

	if err := ed.UpdatePositionBinding(ctx, cell(5, 8), binding.At(0, 0)); err != nil {
		t.Fatal(err)
	}
	p := ed.Plan(ctx)
	info, _ := p.Panel(pid)
	for _, m := range ed.Store().Array(arrayID) {
		r, _ := p.Footprint(m.ID)
		if !info.Rect.Contains(r.Anchor()) {
			t.Errorf("member %s at %s lies outside panel %s", m.ID, r.Anchor(), info.Rect)
		}
	}
}

func TestMoveEvictsAtTarget(t *testing.T) {
	ctx := context.Background()
	ed := New(nil, variable.Timeline{}, Options{})
	a := must[scene.ID](t)(ed.PlaceShape(ctx, cell(0, 0), scene.ShapeRect))
	b := must[scene.ID](t)(ed.PlaceShape(ctx, cell(3, 3), scene.ShapeRect))

	if err := ed.Move(ctx, cell(0, 0), cell(3, 3)); err != nil {
		t.Fatal(err)
	}
	if _, ok := ed.Store().Get(b); ok {
		t.Error("shape at the target should be evicted")
	}
	ent, _ := ed.Store().Get(a)
	if ent.Position != binding.At(3, 3) {
		t.Errorf("moved position = %s", ent.Position)
	}
}

func TestUpdatePositionRejectsFractions(t *testing.T) {
	ctx := context.Background()
	ed := New(nil, counter(0, 1, 2), Options{})
	must[scene.ID](t)(ed.PlaceShape(ctx, cell(0, 0), scene.ShapeRect))
	before := ed.Store()

	err := ed.UpdatePositionBinding(ctx, cell(0, 0), binding.Position{Row: binding.Formula("i/2"), Col: binding.Fixed(0)})
	if !errs.Is(err, errs.ErrCodeTimelineIntegrity) {
		t.Fatalf("err = %v, want TIMELINE_INTEGRITY", err)
	}
	if msg := errs.UserMessage(err); !strings.Contains(msg, "0.5 at step 2") {
		t.Errorf("message = %q", msg)
	}
	if ed.Store() != before {
		t.Error("rejected binding changed the store")
	}
}

func TestUpdatesApplyToArraySiblings(t *testing.T) {
	ctx := context.Background()
	ed := New(nil, variable.Timeline{}, Options{})
	arrayID := must[string](t)(ed.PlaceArray(ctx, cell(0, 0), 3, layout.Right))

	style := scene.Style{Color: "#ff0000", Alpha: 0.5, Visible: true}
	if err := ed.UpdateStyle(ctx, cell(0, 2), style); err != nil {
		t.Fatal(err)
	}
	if err := ed.UpdateArrayDirection(ctx, cell(0, 1), layout.Down); err != nil {
		t.Fatal(err)
	}
	for _, m := range ed.Store().Array(arrayID) {
		a, _ := m.Array()
		if a.Cell == nil || a.Cell.Style != style {
			t.Errorf("member %d style not updated", a.Index)
		}
		if a.Direction != layout.Down {
			t.Errorf("member %d direction = %s", a.Index, a.Direction)
		}
	}
	if c, _ := ed.Plan(ctx).At(cell(2, 0)); c.ArrayID != arrayID || c.Index != 2 {
		t.Errorf("after turning down, (2,0) = %+v", c)
	}

	if err := ed.UpdateArrayValue(ctx, cell(1, 0), "42"); err != nil {
		t.Fatal(err)
	}
	if c, _ := ed.Plan(ctx).At(cell(1, 0)); c.Text != "42" {
		t.Errorf("value = %q, want 42", c.Text)
	}
	if c, _ := ed.Plan(ctx).At(cell(0, 0)); c.Text != "0" {
		t.Errorf("sibling value = %q, want unchanged 0", c.Text)
	}
}

func TestUpdateShapeSizeRespectsPanelMinimum(t *testing.T) {
	ctx := context.Background()
	ed, _, _, _ := panelScene(t, Never)

	// The formula child reaches column 2 at i=2, so the panel needs 3 columns.
	err := ed.UpdateShapeSize(ctx, cell(8, 8), binding.Fixed(2), binding.Fixed(4))
	if !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
	if err := ed.UpdateShapeSize(ctx, cell(8, 8), binding.Fixed(3), binding.Fixed(2)); err != nil {
		t.Fatalf("shrinking to the minimum should succeed: %v", err)
	}
}

func TestSetPanelAssociationKeepsCell(t *testing.T) {
	ctx := context.Background()
	ed := New(nil, variable.Timeline{}, Options{})
	pid := must[scene.ID](t)(ed.PlacePanel(ctx, cell(10, 10), 5, 5, "P"))
	id := must[scene.ID](t)(ed.PlaceShape(ctx, cell(2, 3), scene.ShapeRect))

	if err := ed.SetPanelAssociation(ctx, cell(2, 3), pid); err != nil {
		t.Fatal(err)
	}
	ent, _ := ed.Store().Get(id)
	if ent.PanelID != pid || ent.Position != binding.At(-8, -7) {
		t.Errorf("attached = %q %s", ent.PanelID, ent.Position)
	}
	if c, _ := ed.Plan(ctx).Content(id); c.Anchor() != cell(2, 3) {
		t.Errorf("anchor = %s, want 2,3", c.Anchor())
	}

	if err := ed.SetPanelAssociation(ctx, cell(2, 3), ""); err != nil {
		t.Fatal(err)
	}
	ent, _ = ed.Store().Get(id)
	if ent.PanelID != "" || ent.Position != binding.At(2, 3) {
		t.Errorf("detached = %q %s", ent.PanelID, ent.Position)
	}

	err := ed.SetPanelAssociation(ctx, cell(2, 3), "panel-99")
	if !errs.Is(err, errs.ErrCodePanelReference) {
		t.Errorf("err = %v, want PANEL_REFERENCE", err)
	}
}

func TestDeletePanelCascade(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cascade Cascade
		confirm Confirmer
		keep    bool
	}{
		{"delete", CascadeDelete, nil, false},
		{"reanchor", CascadeReanchor, nil, true},
		{"ask yes", CascadeAsk, Always, false},
		{"ask no", CascadeAsk, Never, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed := New(nil, variable.Timeline{}, Options{Confirmer: tt.confirm})
			pid := must[scene.ID](t)(ed.PlacePanel(ctx, cell(4, 4), 5, 5, "P"))
			child := must[scene.ID](t)(ed.PlaceShape(ctx, cell(5, 6), scene.ShapeRect))

			if err := ed.Delete(ctx, pid, tt.cascade); err != nil {
				t.Fatal(err)
			}
			if _, ok := ed.Store().Get(pid); ok {
				t.Fatal("panel survived")
			}
			ent, ok := ed.Store().Get(child)
			if ok != tt.keep {
				t.Fatalf("child present = %v, want %v", ok, tt.keep)
			}
			if ok && (ent.PanelID != "" || ent.Position != binding.At(5, 6)) {
				t.Errorf("re-anchored child = %q %s, want absolute (5, 6)", ent.PanelID, ent.Position)
			}
		})
	}
}

func TestClearCell(t *testing.T) {
	ctx := context.Background()
	ed := New(nil, variable.Timeline{}, Options{})
	pid := must[scene.ID](t)(ed.PlacePanel(ctx, cell(0, 0), 5, 5, "P"))
	arrayID := must[string](t)(ed.PlaceArray(ctx, cell(1, 0), 3, layout.Right))

	got := must[scene.ID](t)(ed.ClearCell(ctx, cell(1, 2), CascadeDelete))
	if got != arrayID || len(ed.Store().Array(arrayID)) != 0 {
		t.Errorf("cleared %s, want whole array %s", got, arrayID)
	}
	got = must[scene.ID](t)(ed.ClearCell(ctx, cell(1, 2), CascadeDelete))
	if got != pid {
		t.Errorf("cleared %s, want panel %s", got, pid)
	}
	if _, err := ed.ClearCell(ctx, cell(1, 2), CascadeDelete); !errs.Is(err, errs.ErrCodeEntityNotFound) {
		t.Errorf("err = %v, want ENTITY_NOT_FOUND", err)
	}
}

type editRecorder struct {
	observability.NoopEditHooks
	ops       []string
	failed    int
	questions int
}

func (r *editRecorder) OnEdit(_ context.Context, op string, err error) {
	r.ops = append(r.ops, op)
	if err != nil {
		r.failed++
	}
}

func (r *editRecorder) OnConfirm(context.Context, string, bool) { r.questions++ }

func TestEditHooks(t *testing.T) {
	rec := &editRecorder{}
	observability.SetEditHooks(rec)
	defer observability.Reset()

	ed, _, _, _ := panelScene(t, Never)
	_ = ed.Move(context.Background(), cell(6, 6), cell(3, 2))

	want := []string{"place-panel", "place-shape", "place-shape", "update-position", "move"}
	if strings.Join(rec.ops, ",") != strings.Join(want, ",") {
		t.Errorf("ops = %v, want %v", rec.ops, want)
	}
	if rec.failed != 1 || rec.questions != 1 {
		t.Errorf("failed=%d questions=%d, want 1 and 1", rec.failed, rec.questions)
	}
}
