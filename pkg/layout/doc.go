// Package layout provides grid geometry: cells, rectangular footprints, and
// the array layout calculator.
//
// An array is a run of cells laid out from an anchor in one of four
// [Direction]s. [Offsets] computes where each cell lands relative to the
// anchor, accounting for cells that embed a shape larger than 1×1:
//
//	offsets := layout.Offsets(layout.Right, []layout.Extent{{1, 1}, {2, 1}, {1, 1}})
//	// (0,0) (0,1) (0,3)
package layout
