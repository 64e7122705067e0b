// Package pkg holds the libraries behind stepgrid, a grid board whose
// objects are positioned by formulas over the variables of a traced program.
//
// # Overview
//
// A document pairs a board of entities with a timeline of variable
// snapshots. Each entity binds its row, column and size either to a fixed
// integer or to an arithmetic formula; stepping through the timeline moves
// the board. The pkg directory is organized into three areas:
//
//  1. Model: [scene], [variable], [binding], [expr], [layout], [panel]
//  2. Resolution: [resolve], [validate], [pipeline]
//  3. Infrastructure: [document], [docstore], [cache], [config], [api]
//
// # Data Flow
//
//	trace JSON ──▶ [variable] Timeline
//	                    │
//	document ──▶ [scene] Store ──▶ [resolve] Plan per step ──▶ JSON / text grid
//	                    │
//	               [validate] timeline issues
//
// [editor] applies placement, move and delete commands to a store and keeps
// panels consistent. [pipeline] runs resolution for many steps at once and
// caches plans and renderings in a [cache.Cache].
//
// # Quick Start
//
//	d, _ := document.Import("board.json")
//	s, _ := d.Store()
//	bind := binding.NewResolver(d.Bounds(), expr.NewCache(expr.Options{}))
//	eng := resolve.NewEngine(resolve.NewResolver(bind), d.Timeline(), nil)
//	plan := eng.Plan(ctx, s, 0)
//	fmt.Println(plan.Topmost(layout.Cell{Row: 0, Col: 0}))
//
// Errors across packages carry the codes in [errors]; hooks in
// [observability] report resolution and cache activity.
package pkg
