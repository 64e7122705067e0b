package variable

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Snapshot maps variable names to the values visible at one timeline step.
type Snapshot map[string]Variable

// Lookup returns the named variable.
func (s Snapshot) Lookup(name string) (Variable, bool) {
	v, ok := s[name]
	return v, ok
}

// Names returns the variable names in sorted order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Frame is one entry of the call stack captured with an execution step.
type Frame struct {
	Function string `json:"function"`
	Line     int    `json:"line"`
}

// Step is one execution step reported by the tracer.
type Step struct {
	Line          int     `json:"line"`
	SnapshotIndex int     `json:"snapshotIndex"`
	Scope         []Frame `json:"scope,omitempty"`
}

// Timeline is the ordered sequence of snapshots together with the execution
// steps that address them. Both may be empty before any code has run.
type Timeline struct {
	Snapshots []Snapshot `json:"snapshots"`
	Steps     []Step     `json:"steps,omitempty"`
}

// Len returns the number of addressable steps. When no execution steps were
// recorded, every snapshot is its own step.
func (t Timeline) Len() int {
	if len(t.Steps) > 0 {
		return len(t.Steps)
	}
	return len(t.Snapshots)
}

// IsEmpty reports whether the timeline has no snapshots.
func (t Timeline) IsEmpty() bool { return len(t.Snapshots) == 0 }

// SnapshotIndex maps a step index to a snapshot index, or -1 if the step does
// not address a snapshot.
func (t Timeline) SnapshotIndex(step int) int {
	idx := step
	if len(t.Steps) > 0 {
		if step < 0 || step >= len(t.Steps) {
			return -1
		}
		idx = t.Steps[step].SnapshotIndex
	}
	if idx < 0 || idx >= len(t.Snapshots) {
		return -1
	}
	return idx
}

// SnapshotAt returns the snapshot visible at step. Out-of-range steps and
// empty timelines yield an empty snapshot.
func (t Timeline) SnapshotAt(step int) Snapshot {
	idx := t.SnapshotIndex(step)
	if idx < 0 {
		return Snapshot{}
	}
	return t.Snapshots[idx]
}

// Line returns the source line of step, or 0 if unknown.
func (t Timeline) Line(step int) int {
	if step < 0 || step >= len(t.Steps) {
		return 0
	}
	return t.Steps[step].Line
}

// Fingerprint returns a SHA-256 hex digest of the timeline's canonical JSON.
// It is stable across processes and suitable for cache keys.
func (t Timeline) Fingerprint() string {
	data, _ := json.Marshal(t)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
