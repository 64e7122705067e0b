package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/editor"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/resolve"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

func sampleTimeline() variable.Timeline {
	var tl variable.Timeline
	for i := range 4 {
		tl.Snapshots = append(tl.Snapshots, variable.Snapshot{
			"i":  variable.Int(int64(i)),
			"xs": variable.IntArray([]int64{int64(i), 1, 2}),
		})
		tl.Steps = append(tl.Steps, variable.Step{Line: i + 1, SnapshotIndex: i})
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

// sampleStore builds a panel with a formula-bound child, a variable array,
// a label and a scalar.
func sampleStore(t *testing.T, tl variable.Timeline) *scene.Store {
	t.Helper()
	ctx := context.Background()
	id := must[scene.ID](t)
	ed := editor.New(nil, tl, editor.Options{})

	id(ed.PlacePanel(ctx, layout.Cell{Row: 10, Col: 10}, 6, 6, "Loop"))
	id(ed.PlaceShape(ctx, layout.Cell{Row: 11, Col: 11}, scene.ShapeArrow))
	pos := binding.Position{Row: binding.Fixed(1), Col: binding.Formula("i + 1")}
	if err := ed.UpdatePositionBinding(ctx, layout.Cell{Row: 11, Col: 11}, pos); err != nil {
		t.Fatal(err)
	}
	id(ed.PlaceArrayVariable(ctx, layout.Cell{Row: 0, Col: 0}, "xs", nil, layout.Right))
	id(ed.PlaceLabel(ctx, layout.Cell{Row: 5, Col: 0}, "i = {i}", 3, 1))
	id(ed.PlaceScalar(ctx, layout.Cell{Row: 6, Col: 0}, "i", ""))
	return ed.Store()
}

func plans(t *testing.T, s *scene.Store, tl variable.Timeline) []string {
	t.Helper()
	e := resolve.NewEngine(nil, tl, nil)
	var out []string
	for step := range e.Steps() {
		data, err := json.Marshal(e.Plan(context.Background(), s, step))
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, string(data))
	}
	return out
}

func TestRoundTripReproducesPlans(t *testing.T) {
	tl := sampleTimeline()
	s := sampleStore(t, tl)

	d := New()
	d.Snapshots, d.Steps = tl.Snapshots, tl.Steps
	d.CurrentStep = 2
	d.SetStore(s)

	var buf bytes.Buffer
	if err := WriteJSON(d, &buf); err != nil {
		t.Fatal(err)
	}
	loaded, err := ReadJSON(&buf)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := loaded.Store()
	if err != nil {
		t.Fatal(err)
	}

	before, after := plans(t, s, tl), plans(t, s2, loaded.Timeline())
	if len(before) != 4 || len(after) != 4 {
		t.Fatalf("plans: %d before, %d after", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("step %d differs after round trip", i)
		}
	}
	if loaded.ID != d.ID || loaded.CurrentStep != 2 || loaded.SavedAt.IsZero() {
		t.Errorf("metadata not preserved: %+v", loaded)
	}
}

func TestCountersRestored(t *testing.T) {
	tl := sampleTimeline()
	s := sampleStore(t, tl)
	d := New()
	d.SetStore(s)

	path := filepath.Join(t.TempDir(), "doc.json")
	if err := Export(d, path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Import(path)
	if err != nil {
		t.Fatal(err)
	}
	s2, _ := loaded.Store()

	maxID, maxZ := 0, 0
	for _, e := range s2.Entities() {
		maxID = max(maxID, scene.IDNumber(e.ID))
		if a, ok := e.Array(); ok {
			maxID = max(maxID, scene.IDNumber(a.ArrayID))
		}
		maxZ = max(maxZ, e.Z)
	}
	if s2.NextIDNumber() <= maxID || s2.NextZ() <= maxZ {
		t.Errorf("counters next=%d/%d, max present %d/%d", s2.NextIDNumber(), s2.NextZ(), maxID, maxZ)
	}

	ed := editor.New(s2, tl, editor.Options{})
	id, err := ed.PlaceShape(context.Background(), layout.Cell{Row: 40, Col: 40}, scene.ShapeRect)
	if err != nil {
		t.Fatal(err)
	}
	if scene.IDNumber(id) <= maxID || ed.Store().Len() != s2.Len()+1 {
		t.Errorf("placed %s into a store of %d entities", id, ed.Store().Len())
	}
}

func TestReadJSONRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"malformed", `{"version": `, "decode"},
		{"future version", `{"version": 99, "entities": []}`, "version 99"},
		{"bad step", `{"version": 1, "timeline": [{}], "currentStep": 3}`, "current step 3"},
		{"dangling snapshot", `{"version": 1, "timeline": [{}], "steps": [{"line": 1, "snapshotIndex": 4}]}`, "missing snapshot 4"},
		{"duplicate entity", `{"entities": [
			{"id": "shape-1", "type": "shape", "position": {"row": 0, "col": 0}, "zOrder": 1, "payload": {}},
			{"id": "shape-1", "type": "shape", "position": {"row": 1, "col": 0}, "zOrder": 2, "payload": {}}]}`, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.doc))
			if !errs.Is(err, errs.ErrCodeInvalidDocument) {
				t.Fatalf("err = %v, want INVALID_DOCUMENT", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}

	_, err := ReadJSON(strings.NewReader(`{"version": 2}`))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestReadJSONDefaults(t *testing.T) {
	d, err := ReadJSON(strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if d.Version != CurrentVersion || d.ID == "" || d.Board != binding.DefaultBounds() {
		t.Errorf("defaults not applied: %+v", d)
	}
	s, _ := d.Store()
	if s.Len() != 0 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestImportMissing(t *testing.T) {
	_, err := Import(filepath.Join(t.TempDir(), "nope.json"))
	if !errs.Is(err, errs.ErrCodeDocumentNotFound) {
		t.Errorf("err = %v, want DOCUMENT_NOT_FOUND", err)
	}
}

func TestFromTrace(t *testing.T) {
	tr, err := variable.ReadTrace(strings.NewReader(`{
		"steps": [
			{"line": 1, "variables": {"i": {"type": "int", "value": 0}}},
			{"line": 2, "variables": {"i": {"type": "int", "value": 1}}}
		],
		"output": "done\n"
	}`))
	if err != nil {
		t.Fatal(err)
	}
	d := FromTrace("i = 0\ni += 1", tr)
	if d.Timeline().Len() != 2 || d.Output != "done\n" || d.Steps[1].Line != 2 {
		t.Errorf("FromTrace = %s", d)
	}
}
