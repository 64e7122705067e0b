package variable

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestVariableAccessors(t *testing.T) {
	tests := []struct {
		name      string
		v         Variable
		wantNum   bool
		wantArray bool
		wantLen   int
		wantStr   string
	}{
		{"int", Int(3), true, false, 0, "3"},
		{"float", Float(2.5), true, false, 0, "2.5"},
		{"whole float", Float(2), true, false, 0, "2.0"},
		{"string", String("hi"), false, false, 0, "hi"},
		{"int array", IntArray([]int64{5, 1, 4}), false, true, 3, "[5, 1, 4]"},
		{"string array", StringArray([]string{"a", "b"}), false, true, 2, "[a, b]"},
		{"int grid", IntGrid([][]int64{{1, 2}, {3, 4}}), false, true, 2, "[[1, 2], [3, 4]]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := tt.v.Number(); ok != tt.wantNum {
				t.Errorf("Number() ok = %v, want %v", ok, tt.wantNum)
			}
			if got := tt.v.IsArray(); got != tt.wantArray {
				t.Errorf("IsArray() = %v, want %v", got, tt.wantArray)
			}
			if got := tt.v.Len(); got != tt.wantLen {
				t.Errorf("Len() = %d, want %d", got, tt.wantLen)
			}
			if got := tt.v.String(); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestNumbersOnlyForOneDimensionalNumericArrays(t *testing.T) {
	if _, ok := IntArray([]int64{1}).Numbers(); !ok {
		t.Error("arr[int] should expose Numbers")
	}
	if _, ok := FloatArray([]float64{1.5}).Numbers(); !ok {
		t.Error("arr[float] should expose Numbers")
	}
	if _, ok := StringArray([]string{"a"}).Numbers(); ok {
		t.Error("arr[str] should not expose Numbers")
	}
	if _, ok := IntGrid([][]int64{{1}}).Numbers(); ok {
		t.Error("arr2d[int] should not expose Numbers")
	}
}

func TestElementOutOfRange(t *testing.T) {
	v := IntArray([]int64{7, 8})
	if s, ok := v.Element(1); !ok || s != "8" {
		t.Errorf("Element(1) = %q, %v", s, ok)
	}
	if _, ok := v.Element(2); ok {
		t.Error("Element(2) should be out of range")
	}
	if _, ok := v.Element(-1); ok {
		t.Error("Element(-1) should be out of range")
	}
}

func TestVariableJSONRoundTrip(t *testing.T) {
	snap := Snapshot{
		"i":    Int(4),
		"x":    Float(0.5),
		"name": String("bob"),
		"arr":  IntArray([]int64{3, 1, 2}),
		"fs":   FloatArray([]float64{0.25}),
		"ws":   StringArray([]string{"a"}),
		"g":    IntGrid([][]int64{{1, 0}, {0, 1}}),
		"sg":   StringGrid([][]string{{"x"}}),
		"fg":   FloatGrid([][]float64{{1.5}}),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Snapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for name, want := range snap {
		if !got[name].Equal(want) {
			t.Errorf("%s = %v (%s), want %v (%s)", name, got[name], got[name].Type(), want, want.Type())
		}
	}
}

func TestVariableUnmarshalTracerFormat(t *testing.T) {
	input := `{"type": "arr[int]", "value": [5, 1, 4, 2, 8]}`
	var v Variable
	if err := json.Unmarshal([]byte(input), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	nums, ok := v.Numbers()
	if !ok || len(nums) != 5 || nums[4] != 8 {
		t.Errorf("Numbers() = %v, %v", nums, ok)
	}
}

func TestVariableUnmarshalUnknownType(t *testing.T) {
	var v Variable
	err := json.Unmarshal([]byte(`{"type": "dict", "value": {}}`), &v)
	if err == nil || !strings.Contains(err.Error(), "unknown variable type") {
		t.Errorf("err = %v, want unknown variable type", err)
	}
}

func TestTimelineStepAddressing(t *testing.T) {
	snaps := []Snapshot{{"i": Int(0)}, {"i": Int(1)}}

	t.Run("direct", func(t *testing.T) {
		tl := Timeline{Snapshots: snaps}
		if tl.Len() != 2 {
			t.Errorf("Len() = %d, want 2", tl.Len())
		}
		if n, _ := tl.SnapshotAt(1)["i"].Number(); n != 1 {
			t.Errorf("SnapshotAt(1).i = %v, want 1", n)
		}
	})

	t.Run("via steps", func(t *testing.T) {
		tl := Timeline{
			Snapshots: snaps,
			Steps: []Step{
				{Line: 1, SnapshotIndex: 0},
				{Line: 2, SnapshotIndex: 0},
				{Line: 3, SnapshotIndex: 1},
			},
		}
		if tl.Len() != 3 {
			t.Errorf("Len() = %d, want 3", tl.Len())
		}
		if n, _ := tl.SnapshotAt(1)["i"].Number(); n != 0 {
			t.Errorf("SnapshotAt(1).i = %v, want 0", n)
		}
		if tl.Line(2) != 3 {
			t.Errorf("Line(2) = %d, want 3", tl.Line(2))
		}
	})

	t.Run("out of range", func(t *testing.T) {
		tl := Timeline{Snapshots: snaps}
		if len(tl.SnapshotAt(5)) != 0 {
			t.Error("out-of-range step should yield an empty snapshot")
		}
		if len((Timeline{}).SnapshotAt(0)) != 0 {
			t.Error("empty timeline should yield an empty snapshot")
		}
	})
}

func TestTimelineFingerprint(t *testing.T) {
	a := Timeline{Snapshots: []Snapshot{{"i": Int(0), "j": Int(1)}}}
	b := Timeline{Snapshots: []Snapshot{{"j": Int(1), "i": Int(0)}}}
	c := Timeline{Snapshots: []Snapshot{{"i": Int(2)}}}

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("fingerprint should not depend on map order")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different timelines should have different fingerprints")
	}
	if len(a.Fingerprint()) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(a.Fingerprint()))
	}
}

func TestReadTrace(t *testing.T) {
	input := `{
		"steps": [
			{"line": 1, "variables": {}, "scope": [["_main_", 1]]},
			{"line": 2, "variables": {"i": {"type": "int", "value": 0}}, "scope": [["_main_", 2], ["helper", 7]]}
		],
		"output": "hello\n"
	}`

	tr, err := ReadTrace(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTrace: %v", err)
	}
	if tr.Output != "hello\n" {
		t.Errorf("Output = %q", tr.Output)
	}

	tl := tr.Timeline()
	if tl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tl.Len())
	}
	if got := tl.Steps[1].Scope; len(got) != 2 || got[1].Function != "helper" || got[1].Line != 7 {
		t.Errorf("Scope = %+v", got)
	}
	if n, ok := tl.SnapshotAt(1)["i"].Number(); !ok || n != 0 {
		t.Errorf("step 1 i = %v, %v", n, ok)
	}
}
