// Package panel answers geometry questions about panels: which panel
// contains a cell, how a panel must grow to cover a cell outside it, and how
// small it may shrink without cutting off a child at any step.
//
// Growing a panel up or left moves its anchor. Children are positioned
// relative to that anchor, so [ShiftChildren] rewrites every child binding
// by the same delta; formulas become "(f) + d" and stay correct at every
// timeline step.
package panel
