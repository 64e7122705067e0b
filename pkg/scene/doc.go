// Package scene holds the declarative object model: entities anchored to the
// grid and the copy-on-write store that owns them.
//
// # Entities
//
// An [Entity] carries a stable ID, a position [binding.Position], a stacking
// order and exactly one [Payload] variant:
//
//   - [Shape]: rect, circle, arrow or diamond with a bound width and height
//   - [ArrayCell]: one member of an array; members share an ArrayID
//   - [Scalar]: a variable display
//   - [Label]: template text, {expr} segments evaluated per step
//   - [Panel]: a container; children point at it through Entity.PanelID
//
// Cross-entity references (ArrayID, PanelID) are plain IDs looked up in the
// store, never pointers, so deleting a panel cannot leave a dangling pointer.
//
// # Store
//
// A [Store] is immutable. Edits go through a [Tx]:
//
//	tx := store.Begin()
//	id := tx.NewID("shape")
//	tx.Insert(scene.Entity{ID: id, Z: tx.NewZ(), Payload: scene.NewShape(scene.ShapeRect)})
//	store = tx.Commit()
//
// [FromEntities] rebuilds a store from a serialized entity list and restores
// its ID and z-order counters above every loaded value.
package scene
