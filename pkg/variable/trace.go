package variable

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Trace is the raw output of the upstream tracer: one variable capture per
// executed line, plus captured console output.
type Trace struct {
	Steps  []TraceStep `json:"steps"`
	Output string      `json:"output"`
}

// TraceStep is one traced line with its variable capture.
type TraceStep struct {
	Line      int        `json:"line"`
	Variables Snapshot   `json:"variables"`
	Scope     []rawFrame `json:"scope,omitempty"`
}

// rawFrame accepts both the tracer's [function, line] pairs and
// {"function": ..., "line": ...} objects.
type rawFrame Frame

func (f *rawFrame) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("scope frame: want [function, line], got %d elements", len(pair))
		}
		if err := json.Unmarshal(pair[0], &f.Function); err != nil {
			return fmt.Errorf("scope frame function: %w", err)
		}
		if err := json.Unmarshal(pair[1], &f.Line); err != nil {
			return fmt.Errorf("scope frame line: %w", err)
		}
		return nil
	}
	var obj Frame
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("scope frame: %w", err)
	}
	*f = rawFrame(obj)
	return nil
}

// Timeline converts the trace into a timeline with one snapshot per step.
func (t Trace) Timeline() Timeline {
	tl := Timeline{
		Snapshots: make([]Snapshot, len(t.Steps)),
		Steps:     make([]Step, len(t.Steps)),
	}
	for i, s := range t.Steps {
		snap := s.Variables
		if snap == nil {
			snap = Snapshot{}
		}
		tl.Snapshots[i] = snap

		var scope []Frame
		for _, f := range s.Scope {
			scope = append(scope, Frame(f))
		}
		tl.Steps[i] = Step{Line: s.Line, SnapshotIndex: i, Scope: scope}
	}
	return tl
}

// ReadTrace decodes tracer output from r.
func ReadTrace(r io.Reader) (Trace, error) {
	var t Trace
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return Trace{}, fmt.Errorf("decode trace: %w", err)
	}
	return t, nil
}

// ImportTrace reads tracer output from the file at path.
func ImportTrace(path string) (Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return Trace{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTrace(f)
}
