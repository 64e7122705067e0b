// Package document reads and writes saved sessions.
//
// A document carries everything needed to reproduce the board at every
// step: the traced source code, the timeline with its execution steps, the
// selected step, captured console output, the board bounds and the entity
// list:
//
//	{
//	  "version": 1,
//	  "id": "6f1c...",
//	  "savedAt": "2026-01-02T15:04:05Z",
//	  "code": "for i in range(3): ...",
//	  "timeline": [{"i": {"type": "int", "value": 0}}, ...],
//	  "steps": [{"line": 1, "snapshotIndex": 0}, ...],
//	  "currentStep": 0,
//	  "board": {"rows": 50, "cols": 50, "max_size": 50},
//	  "entities": [{"id": "shape-1", "type": "shape", "position": {...}, "zOrder": 1, "payload": {...}}]
//	}
//
// Loading a document and resolving it yields the same plan for every step
// as before it was saved. ID and z-order counters resume strictly above
// every value present.
package document
