// Package editor applies user edits to a scene store.
//
// Every operation is transactional: it stages changes on a copy of the
// current store and commits a new immutable store only on success. A
// rejected edit (bad input, a binding that breaks at some timeline step, a
// declined panel extension) leaves [Editor.Store] exactly as it was.
//
// # Placement
//
// Place operations anchor a new entity at a board cell with a fixed
// position, relative to the innermost panel containing the cell. They first
// evict every non-panel entity whose footprint at the current step
// intersects the new footprint; an array is evicted as a whole. Panels are
// never evicted and placing a panel evicts nothing.
//
// # Lookup
//
// Edits addressed by cell apply to the topmost non-panel occupant of that
// cell, falling back to the innermost panel. Edits on an array member apply
// to every member of the array.
//
// # Confirmation
//
// Moving or rebinding a panel child outside its panel asks the [Confirmer]
// whether the panel may grow. Deleting a panel with [CascadeAsk] asks whether
// its children go with it.
package editor
