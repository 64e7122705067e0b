// Package binding defines position and size bindings and resolves them to
// concrete board coordinates.
//
// A [Numeric] binding is either a literal ([Fixed]) or a formula ([Formula])
// evaluated against the variables of the current step. Entities bind their
// anchor with a [Position] and their extent with two Numeric sizes.
//
// # Resolution
//
// A [Resolver] floors every value and clamps it to the board [Bounds]: rows and
// columns to [0, Rows-1] and [0, Cols-1], sizes to [1, MaxSize]. Resolution
// never fails hard. A component that cannot be evaluated falls back to 0 (or 1
// for sizes) and the error is returned alongside the clamped result, so the
// caller can attach it to the entity and keep going.
//
// # Shifting
//
// [Shift] moves a binding by a constant in a way that remains correct at every
// step: a literal is adjusted, a formula is wrapped as "(f) + delta". Panel
// extension uses it to keep children in place when a panel grows up or left.
package binding
