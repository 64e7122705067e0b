// Package variable defines the timeline data consumed by the grid engine.
//
// A [Timeline] is produced by an external tracer that executes user code and
// records, for every executed line, the variables visible at that point. The
// engine never runs code itself; it only reads these captures.
//
// # Core Types
//
//   - [Variable]: a tagged scalar (int, float, str) or array (1-D or 2-D)
//   - [Snapshot]: variable name → [Variable] at one step
//   - [Timeline]: ordered snapshots plus execution [Step] records
//   - [Trace]: raw tracer output, converted with [Trace.Timeline]
//
// # Wire Format
//
// Variables use the tracer's tagged encoding:
//
//	{"type": "int", "value": 3}
//	{"type": "arr[int]", "value": [5, 1, 4]}
//	{"type": "arr2d[str]", "value": [["a", "b"], ["c", "d"]]}
//
// # Step Addressing
//
// A step index addresses the execution step list; each step names the snapshot
// it observed. Timelines without execution steps address snapshots directly.
// Use [Timeline.SnapshotAt] to select the snapshot for a step.
package variable
