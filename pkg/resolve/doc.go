// Package resolve projects a scene store onto the board at one timeline step.
//
// The result is a [Plan]: which content wins each anchor cell, which contents
// were displaced into the overlay, every entity covering each cell
// (occupancy), and the resolved panel rectangles. A binding that cannot be
// evaluated never aborts resolution; the affected content carries an
// InvalidReason and is still placed, clamped onto the board.
//
// # Ordering
//
// Panels are resolved first and occupy their cells at the lowest priority.
// Arrays claim cells next, so a later shape never hides an array element.
// Everything else follows in ascending z-order:
//
//	panels -> arrays (first writer wins) -> others (higher z wins)
//
// # Memoization
//
// [Engine] caches plans per (store, step). Stores are immutable, so a new
// *scene.Store pointer invalidates the memo; the engine also computes the
// cross-timeline validation report once per store and attaches it to every
// plan as TimelineIssue.
//
// # Export
//
// [Export] converts a plan to [PlanJSON], a deterministic wire form with all
// maps flattened into row-major lists.
package resolve
