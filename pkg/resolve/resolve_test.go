package resolve

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

func cell(r, c int) layout.Cell { return layout.Cell{Row: r, Col: c} }

func shape(tx *scene.Tx, pos binding.Position, z int) scene.ID {
	id := tx.NewID("shape")
	if err := tx.Insert(scene.Entity{ID: id, Position: pos, Z: z, Payload: scene.NewShape(scene.ShapeRect)}); err != nil {
		panic(err)
	}
	return id
}

func array(tx *scene.Tx, n int, pos binding.Position, dir layout.Direction, varName string) string {
	arrayID := tx.NewID("array")
	z := tx.NewZ()
	for i := 0; i < n; i++ {
		tx.Insert(scene.Entity{
			ID:       tx.NewID("cell"),
			Position: pos,
			Z:        z,
			Payload:  &scene.ArrayCell{ArrayID: arrayID, Index: i, Direction: dir, Value: "0", VarName: varName},
		})
	}
	return arrayID
}

func panel(tx *scene.Tx, pos binding.Position, w, h int) scene.ID {
	id := tx.NewID("panel")
	tx.Insert(scene.Entity{
		ID:       id,
		Position: pos,
		Z:        tx.NewZ(),
		Payload:  &scene.Panel{Title: "P", Width: binding.Fixed(w), Height: binding.Fixed(h), Style: scene.DefaultStyle()},
	})
	return id
}

func resolve(s *scene.Store, snap variable.Snapshot) *Plan {
	return NewResolver(nil).Resolve(s, snap, nil)
}

func TestArrayLayout(t *testing.T) {
	tests := []struct {
		name string
		dir  layout.Direction
		at   binding.Position
		want []layout.Cell
	}{
		{"right", layout.Right, binding.At(0, 0), []layout.Cell{cell(0, 0), cell(0, 1), cell(0, 2), cell(0, 3), cell(0, 4)}},
		{"down", layout.Down, binding.At(1, 1), []layout.Cell{cell(1, 1), cell(2, 1), cell(3, 1), cell(4, 1), cell(5, 1)}},
		{"left", layout.Left, binding.At(0, 10), []layout.Cell{cell(0, 10), cell(0, 9), cell(0, 8), cell(0, 7), cell(0, 6)}},
		{"up", layout.Up, binding.At(10, 0), []layout.Cell{cell(10, 0), cell(9, 0), cell(8, 0), cell(7, 0), cell(6, 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := scene.New().Begin()
			array(tx, 5, tt.at, tt.dir, "")
			p := resolve(tx.Commit(), nil)

			for i, c := range tt.want {
				got, ok := p.At(c)
				if !ok {
					t.Fatalf("no content at %s", c)
				}
				if got.Kind != scene.KindArray || got.Index != i {
					t.Errorf("%s: kind=%s index=%d, want array index %d", c, got.Kind, got.Index, i)
				}
			}
			if len(p.Cells) != 5 {
				t.Errorf("len(Cells) = %d, want 5", len(p.Cells))
			}
		})
	}
}

func TestArrayMembersClampOntoBoard(t *testing.T) {
	tx := scene.New().Begin()
	array(tx, 3, binding.At(0, 48), layout.Right, "")
	p := resolve(tx.Commit(), nil)

	// Members 1 and 2 both clamp to column 49; the first writer keeps it.
	got, _ := p.At(cell(0, 49))
	if got.Index != 1 {
		t.Errorf("index at (0,49) = %d, want 1", got.Index)
	}
	if n := len(p.Overlay[cell(0, 49)]); n != 1 {
		t.Errorf("overlay at (0,49) has %d entries, want 1", n)
	}
}

func TestOccupancyAscendingZ(t *testing.T) {
	tx := scene.New().Begin()
	low := shape(tx, binding.At(2, 2), 1)
	high := shape(tx, binding.At(2, 2), 5)
	p := resolve(tx.Commit(), nil)

	occ := p.Occupants(cell(2, 2))
	if len(occ) != 2 || occ[0].EntityID != low || occ[1].EntityID != high {
		t.Fatalf("occupancy = %+v, want [%s %s]", occ, low, high)
	}
	if top, _ := p.Topmost(cell(2, 2)); top.EntityID != high {
		t.Errorf("topmost = %s, want %s", top.EntityID, high)
	}
	if got, _ := p.At(cell(2, 2)); got.EntityID != high {
		t.Errorf("winner = %s, want %s", got.EntityID, high)
	}
	if ov := p.Overlay[cell(2, 2)]; len(ov) != 1 || ov[0].EntityID != low {
		t.Errorf("overlay = %+v, want [%s]", ov, low)
	}
}

func TestArrayKeepsCellAgainstHigherZ(t *testing.T) {
	tx := scene.New().Begin()
	arrayID := array(tx, 3, binding.At(0, 0), layout.Right, "")
	over := shape(tx, binding.At(0, 1), 99)
	p := resolve(tx.Commit(), nil)

	got, _ := p.At(cell(0, 1))
	if got.ArrayID != arrayID {
		t.Errorf("cell (0,1) held by %s, want array %s", got.EntityID, arrayID)
	}
	ov := p.Overlay[cell(0, 1)]
	if len(ov) != 1 || ov[0].EntityID != over {
		t.Errorf("overlay = %+v, want [%s]", ov, over)
	}
	// The shape still occupies the cell.
	if top, _ := p.Topmost(cell(0, 1)); top.EntityID != over {
		t.Errorf("topmost = %s, want %s", top.EntityID, over)
	}
}

func TestOccupancyCoversFootprint(t *testing.T) {
	tx := scene.New().Begin()
	id := tx.NewID("shape")
	sh := scene.NewShape(scene.ShapeRect)
	sh.Width, sh.Height = binding.Formula("w"), binding.Fixed(2)
	tx.Insert(scene.Entity{ID: id, Position: binding.At(1, 1), Z: 1, Payload: sh})
	p := resolve(tx.Commit(), variable.Snapshot{"w": variable.Int(3)})

	rect, ok := p.Footprint(id)
	if !ok || rect != layout.NewRect(cell(1, 1), layout.Extent{Width: 3, Height: 2}) {
		t.Fatalf("footprint = %v", rect)
	}
	for _, c := range rect.Cells() {
		if len(p.Occupants(c)) != 1 {
			t.Errorf("cell %s not occupied", c)
		}
	}
	// Content is written at the anchor only.
	if _, ok := p.At(cell(2, 3)); ok {
		t.Error("content must only be anchored at the top-left cell")
	}
}

func TestPanelChildren(t *testing.T) {
	tx := scene.New().Begin()
	pid := panel(tx, binding.At(3, 3), 5, 5)
	child := tx.NewID("shape")
	tx.Insert(scene.Entity{ID: child, Position: binding.At(1, 2), Z: tx.NewZ(), PanelID: pid, Payload: scene.NewShape(scene.ShapeCircle)})
	p := resolve(tx.Commit(), nil)

	c, ok := p.Content(child)
	if !ok {
		t.Fatal("child not resolved")
	}
	if c.Anchor() != cell(4, 5) {
		t.Errorf("child anchor = %s, want 4,5", c.Anchor())
	}
	if !c.Valid() {
		t.Errorf("child invalid: %s", c.InvalidReason)
	}

	info, _ := p.Panel(pid)
	if info.Children != 1 || info.Rect.Area() != 25 {
		t.Errorf("panel info = %+v", info)
	}
	occ := p.Occupants(cell(4, 5))
	if len(occ) != 2 || !occ[0].Panel || occ[1].EntityID != child {
		t.Errorf("occupancy = %+v, want panel first then child", occ)
	}
}

func TestPanelErrorPropagates(t *testing.T) {
	tx := scene.New().Begin()
	pid := panel(tx, binding.Position{Row: binding.Formula("x"), Col: binding.Fixed(3)}, 4, 4)
	child := tx.NewID("shape")
	tx.Insert(scene.Entity{ID: child, Position: binding.At(1, 1), Z: tx.NewZ(), PanelID: pid, Payload: scene.NewShape(scene.ShapeRect)})
	p := resolve(tx.Commit(), nil)

	info, _ := p.Panel(pid)
	if !strings.Contains(info.InvalidReason, `unknown variable "x"`) {
		t.Errorf("panel reason = %q", info.InvalidReason)
	}
	c, _ := p.Content(child)
	want := `panel ` + pid + `: row: unknown variable "x"`
	if c.InvalidReason != want {
		t.Errorf("child reason = %q, want %q", c.InvalidReason, want)
	}
	// The panel row fell back to 0.
	if c.Anchor() != cell(1, 4) {
		t.Errorf("child anchor = %s, want 1,4", c.Anchor())
	}
}

func TestDanglingPanelReference(t *testing.T) {
	tx := scene.New().Begin()
	id := tx.NewID("shape")
	tx.Insert(scene.Entity{ID: id, Position: binding.At(2, 7), Z: 1, PanelID: "panel-9", Payload: scene.NewShape(scene.ShapeRect)})
	p := resolve(tx.Commit(), nil)

	c, _ := p.Content(id)
	if !strings.Contains(c.InvalidReason, `panel "panel-9" does not exist`) {
		t.Errorf("reason = %q", c.InvalidReason)
	}
	if c.Anchor() != cell(2, 7) {
		t.Errorf("anchor = %s, want absolute 2,7", c.Anchor())
	}
	if _, invalid := p.Invalid()[id]; !invalid {
		t.Error("Invalid() should list the dangling child")
	}
}

func TestVariableArrayShrinks(t *testing.T) {
	tx := scene.New().Begin()
	arrayID := array(tx, 5, binding.At(0, 0), layout.Right, "a")
	s := tx.Commit()

	p := resolve(s, variable.Snapshot{"a": variable.IntArray([]int64{7, 8, 9})})
	for _, m := range s.Array(arrayID) {
		c, _ := p.Content(m.ID)
		a, _ := m.Array()
		switch {
		case a.Index < 3 && !c.Valid():
			t.Errorf("index %d invalid: %s", a.Index, c.InvalidReason)
		case a.Index >= 3 && !strings.Contains(c.InvalidReason, "out of bounds"):
			t.Errorf("index %d reason = %q, want out of bounds", a.Index, c.InvalidReason)
		}
	}
	if got, _ := p.At(cell(0, 2)); got.Text != "9" {
		t.Errorf("text at index 2 = %q, want 9", got.Text)
	}

	// Unbound arrays fall back to their stored value.
	p = resolve(s, nil)
	if got, _ := p.At(cell(0, 0)); got.Text != "0" || !strings.Contains(got.InvalidReason, "unavailable") {
		t.Errorf("missing variable content = %+v", got)
	}
}

func TestInterpolate(t *testing.T) {
	snap := variable.Snapshot{
		"i":    variable.Int(3),
		"name": variable.String("bob"),
		"xs":   variable.IntArray([]int64{1, 2}),
	}
	r := NewResolver(nil)

	tests := []struct {
		tmpl    string
		want    string
		wantErr bool
	}{
		{"plain", "plain", false},
		{"i = {i}", "i = 3", false},
		{"next {i + 1}, half {i / 2}", "next 4, half 1.5", false},
		{"hi {name}", "hi bob", false},
		{"xs = {xs}", "xs = [1, 2]", false},
		{"{{literal}}", "{literal}", false},
		{"missing {j}!", "missing {j}!", true},
		{"unclosed {i", "unclosed {i", false},
	}

	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			got, err := r.Interpolate(tt.tmpl, snap)
			if got != tt.want {
				t.Errorf("Interpolate(%q) = %q, want %q", tt.tmpl, got, tt.want)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScalarDisplay(t *testing.T) {
	tx := scene.New().Begin()
	id := tx.NewID("scalar")
	tx.Insert(scene.Entity{ID: id, Position: binding.At(0, 0), Z: 1, Payload: &scene.Scalar{VarName: "i", Mode: scene.DisplayNameValue, Value: "0"}})
	p := resolve(tx.Commit(), variable.Snapshot{"i": variable.Int(3)})

	if c, _ := p.Content(id); c.Text != "i = 3" {
		t.Errorf("text = %q, want %q", c.Text, "i = 3")
	}
}

func TestFormulaPositionClamps(t *testing.T) {
	tx := scene.New().Begin()
	id := shape(tx, binding.Position{Row: binding.Formula("i * 100"), Col: binding.Formula("-i")}, 1)
	p := resolve(tx.Commit(), variable.Snapshot{"i": variable.Int(2)})

	c, _ := p.Content(id)
	if c.Anchor() != cell(49, 0) {
		t.Errorf("anchor = %s, want 49,0", c.Anchor())
	}
	if !c.Valid() {
		t.Errorf("clamping is not an error: %s", c.InvalidReason)
	}
}

func buildScene() *scene.Store {
	tx := scene.New().Begin()
	pid := panel(tx, binding.At(10, 10), 6, 6)
	array(tx, 4, binding.Position{Row: binding.Fixed(0), Col: binding.Formula("i")}, layout.Right, "xs")
	shape(tx, binding.At(2, 2), tx.NewZ())
	shape(tx, binding.At(2, 2), tx.NewZ())
	child := tx.NewID("label")
	tx.Insert(scene.Entity{
		ID: child, Position: binding.At(1, 1), Z: tx.NewZ(), PanelID: pid,
		Payload: &scene.Label{Text: "i={i}", Width: binding.Fixed(2), Height: binding.Fixed(1), Style: scene.DefaultStyle()},
	})
	return tx.Commit()
}

func TestExportDeterministic(t *testing.T) {
	s := buildScene()
	snap := variable.Snapshot{"i": variable.Int(1), "xs": variable.IntArray([]int64{4, 5, 6, 7})}

	var first []byte
	for range 5 {
		data, err := json.Marshal(resolve(s, snap))
		if err != nil {
			t.Fatal(err)
		}
		if first == nil {
			first = data
			continue
		}
		if string(data) != string(first) {
			t.Fatal("export differs between runs")
		}
	}

	var out PlanJSON
	if err := json.Unmarshal(first, &out); err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(out.Cells); i++ {
		a, b := out.Cells[i-1], out.Cells[i]
		if a.Row > b.Row || (a.Row == b.Row && a.Col >= b.Col) {
			t.Errorf("cells not row-major at %d", i)
		}
	}
	if len(out.Panels) != 1 || len(out.Overlay) != 1 {
		t.Errorf("panels=%d overlay=%d, want 1 and 1", len(out.Panels), len(out.Overlay))
	}
}

func TestEngineMemoizes(t *testing.T) {
	ctx := context.Background()
	tl := variable.Timeline{Snapshots: []variable.Snapshot{
		{"i": variable.Int(0)},
		{"i": variable.Int(1)},
	}}
	tx := scene.New().Begin()
	id := shape(tx, binding.Position{Row: binding.Formula("i/2"), Col: binding.Fixed(0)}, 1)
	s := tx.Commit()

	e := NewEngine(nil, tl, nil)
	if e.Steps() != 2 {
		t.Fatalf("Steps = %d", e.Steps())
	}
	p0 := e.Plan(ctx, s, 0)
	if p0 != e.Plan(ctx, s, 0) {
		t.Error("plan for the same store and step should be memoized")
	}
	c, _ := p0.Content(id)
	if !strings.Contains(c.TimelineIssue, "step 2") {
		t.Errorf("timeline issue = %q", c.TimelineIssue)
	}
	if !c.Valid() {
		t.Errorf("step 0 resolves cleanly, got %q", c.InvalidReason)
	}

	s2 := s.Begin().Commit()
	if e.Plan(ctx, s2, 0) == p0 {
		t.Error("a new store must invalidate the memo")
	}
}

func TestEngineConcurrent(t *testing.T) {
	ctx := context.Background()
	var tl variable.Timeline
	for i := range 10 {
		tl.Snapshots = append(tl.Snapshots, variable.Snapshot{"i": variable.Int(int64(i)), "xs": variable.IntArray([]int64{1, 2, 3, 4})})
	}
	s := buildScene()
	e := NewEngine(nil, tl, nil)

	var wg sync.WaitGroup
	for step := range tl.Len() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := e.Plan(ctx, s, step)
			if p.Step != step {
				t.Errorf("plan step = %d, want %d", p.Step, step)
			}
		}()
	}
	wg.Wait()
}

func TestEngineEmptyTimeline(t *testing.T) {
	e := NewEngine(nil, variable.Timeline{}, nil)
	if e.Steps() != 1 {
		t.Errorf("Steps = %d, want 1", e.Steps())
	}
	tx := scene.New().Begin()
	id := shape(tx, binding.Position{Row: binding.Formula("i"), Col: binding.Fixed(0)}, 1)
	p := e.Plan(context.Background(), tx.Commit(), 0)
	c, _ := p.Content(id)
	if c.Valid() {
		t.Error("formula over an empty snapshot should be invalid")
	}
	if c.TimelineIssue != "" {
		t.Errorf("empty timeline only checks syntax, got %q", c.TimelineIssue)
	}
}
