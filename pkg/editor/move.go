package editor

import (
	"context"
	"fmt"

	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/scene"
)

// Cascade selects what happens to a panel's children when it is deleted.
type Cascade int

const (
	// CascadeAsk asks the confirmer; yes deletes, no re-anchors.
	CascadeAsk Cascade = iota
	// CascadeDelete deletes the children with the panel.
	CascadeDelete
	// CascadeReanchor keeps the children on their current cells with
	// absolute positions.
	CascadeReanchor
)

// Move moves the entity at from so that the clicked cell lands on to.
// Arrays move as a whole and panels carry their children. Bindings are
// shifted algebraically, so formula positions keep their shape. A panel
// child moved outside its panel needs the panel to grow; if the confirmer
// declines, ErrExtensionDeclined is returned and nothing changes.
func (e *Editor) Move(ctx context.Context, from, to layout.Cell) error {
	if err := e.checkCell(to); err != nil {
		return err
	}
	ent, err := e.target(ctx, from)
	if err != nil {
		return err
	}
	delta := to.Sub(from)
	if delta == (layout.Cell{}) {
		return nil
	}

	p := e.Plan(ctx)
	moved := e.projected(ent, e.headAnchor(p, ent).Add(delta))
	ids := e.siblings(ent)

	return e.edit(ctx, "move", func(tx *scene.Tx) error {
		if ent.PanelID != "" {
			if _, ok := p.Panel(ent.PanelID); ok {
				if err := e.extendFor(ctx, tx, p, ent.PanelID, moved); err != nil {
					return err
				}
			}
		}
		if err := modify(tx, ids, func(m *scene.Entity) error {
			m.Position = m.Position.Shift(delta.Row, delta.Col)
			return nil
		}); err != nil {
			return err
		}
		if !ent.IsPanel() {
			keep := map[scene.ID]bool{}
			for _, id := range ids {
				keep[id] = true
			}
			e.evict(tx, p, moved, keep)
		}
		return nil
	})
}

// ClearCell deletes the topmost entity at c, or the innermost panel when the
// cell holds nothing else. Array members delete their whole array.
func (e *Editor) ClearCell(ctx context.Context, c layout.Cell, cascade Cascade) (scene.ID, error) {
	ent, err := e.target(ctx, c)
	if err != nil {
		return "", err
	}
	if err := e.Delete(ctx, ent.ID, cascade); err != nil {
		return "", err
	}
	if a, ok := ent.Array(); ok {
		return a.ArrayID, nil
	}
	return ent.ID, nil
}

// Delete removes an entity by ID. Array members remove their whole array.
// Deleting a panel handles its children per cascade.
func (e *Editor) Delete(ctx context.Context, id scene.ID, cascade Cascade) error {
	ent, ok := e.store.Get(id)
	if !ok {
		return errs.New(errs.ErrCodeEntityNotFound, "entity %s not found", id)
	}

	if a, ok := ent.Array(); ok {
		return e.edit(ctx, "delete", func(tx *scene.Tx) error {
			tx.DeleteArray(a.ArrayID)
			return nil
		})
	}
	if !ent.IsPanel() {
		return e.edit(ctx, "delete", func(tx *scene.Tx) error {
			tx.Delete(id)
			return nil
		})
	}

	children := e.store.Children(id)
	if len(children) > 0 && cascade == CascadeAsk {
		q := fmt.Sprintf("Delete the %d children of %s too? (no keeps them in place)", len(children), id)
		if e.ask(ctx, q) {
			cascade = CascadeDelete
		} else {
			cascade = CascadeReanchor
		}
	}

	var anchor layout.Cell
	if info, ok := e.Plan(ctx).Panel(id); ok {
		anchor = info.Rect.Anchor()
	}
	return e.edit(ctx, "delete-panel", func(tx *scene.Tx) error {
		tx.Delete(id)
		for _, child := range children {
			if cascade == CascadeDelete {
				tx.Delete(child.ID)
				continue
			}
			m, _ := tx.Get(child.ID)
			m.PanelID = ""
			m.Position = m.Position.Shift(anchor.Row, anchor.Col)
			if err := tx.Replace(m); err != nil {
				return err
			}
		}
		return nil
	})
}
