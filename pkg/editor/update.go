package editor

import (
	"context"

	"github.com/matzehuels/stepgrid/pkg/binding"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/validate"
)

// UpdateStyle sets the style of the entity at c. For array members the
// style applies to every sibling's cell shape.
func (e *Editor) UpdateStyle(ctx context.Context, c layout.Cell, style scene.Style) error {
	ent, err := e.target(ctx, c)
	if err != nil {
		return err
	}
	if style.Alpha < 0 || style.Alpha > 1 {
		return errs.New(errs.ErrCodeInvalidInput, "alpha %g is outside [0, 1]", style.Alpha)
	}
	return e.edit(ctx, "update-style", func(tx *scene.Tx) error {
		return modify(tx, e.siblings(ent), func(m *scene.Entity) error {
			switch p := m.Payload.(type) {
			case *scene.Shape:
				p.Style = style
			case *scene.Label:
				p.Style = style
			case *scene.Panel:
				p.Style = style
			case *scene.ArrayCell:
				if p.Cell == nil {
					p.Cell = scene.NewShape(scene.ShapeRect)
				}
				p.Cell.Style = style
			default:
				return errs.New(errs.ErrCodeUnsupported, "%s has no style", m.Kind())
			}
			return nil
		})
	})
}

// UpdateShapeSize sets the width and height bindings of the entity at c.
// Formula sizes must be whole numbers at every step. A panel cannot shrink
// below the space its children need at any step.
func (e *Editor) UpdateShapeSize(ctx context.Context, c layout.Cell, w, h binding.Numeric) error {
	ent, err := e.target(ctx, c)
	if err != nil {
		return err
	}
	if err := e.validator.Proposed(validate.SizeFields(w, h), e.timeline); err != nil {
		return err
	}
	if ent.IsPanel() {
		if err := e.checkPanelSize(ent.ID, w, h); err != nil {
			return err
		}
	}

	return e.edit(ctx, "update-size", func(tx *scene.Tx) error {
		return modify(tx, e.siblings(ent), func(m *scene.Entity) error {
			switch p := m.Payload.(type) {
			case *scene.Shape:
				p.Width, p.Height = w, h
			case *scene.Label:
				p.Width, p.Height = w, h
			case *scene.Panel:
				p.Width, p.Height = w, h
			case *scene.ArrayCell:
				if p.Cell == nil {
					p.Cell = scene.NewShape(scene.ShapeRect)
				}
				p.Cell.Width, p.Cell.Height = w, h
			default:
				return errs.New(errs.ErrCodeUnsupported, "%s cannot be resized", m.Kind())
			}
			return nil
		})
	})
}

// checkPanelSize rejects sizes that fall below the panel's minimum at any
// step.
func (e *Editor) checkPanelSize(panelID scene.ID, w, h binding.Numeric) error {
	need := e.panels.MinimumSize(e.store, panelID)
	snaps := e.timeline.Snapshots
	if len(snaps) == 0 {
		snaps = append(snaps, e.Snapshot())
	}
	for i, snap := range snaps {
		ext, _ := e.bind.Extent(w, h, snap)
		if ext.Width < need.Width || ext.Height < need.Height {
			return errs.New(errs.ErrCodeInvalidInput,
				"%s would be %dx%d at step %d but its children need %dx%d",
				panelID, ext.Width, ext.Height, i+1, need.Width, need.Height)
		}
	}
	return nil
}

// UpdatePositionBinding rebinds the position of the entity at c. For panel
// children pos is panel-relative; if the child would leave the panel at the
// current step the panel must be extended first, which asks for
// confirmation.
func (e *Editor) UpdatePositionBinding(ctx context.Context, c layout.Cell, pos binding.Position) error {
	ent, err := e.target(ctx, c)
	if err != nil {
		return err
	}
	if err := e.validator.Proposed(validate.PositionFields(pos), e.timeline); err != nil {
		return err
	}

	p := e.Plan(ctx)
	return e.edit(ctx, "update-position", func(tx *scene.Tx) error {
		if err := modify(tx, e.siblings(ent), func(m *scene.Entity) error {
			m.Position = pos
			return nil
		}); err != nil {
			return err
		}
		if ent.PanelID == "" {
			return nil
		}

		info, ok := p.Panel(ent.PanelID)
		if !ok {
			return nil
		}
		offset, _ := e.bind.Offset(pos, e.Snapshot())
		moved := e.projected(ent, info.Rect.Anchor().Add(offset))
		return e.extendFor(ctx, tx, p, ent.PanelID, moved)
	})
}

// UpdateArrayDirection changes the layout direction of the array at c.
func (e *Editor) UpdateArrayDirection(ctx context.Context, c layout.Cell, dir layout.Direction) error {
	d, err := layout.ParseDirection(string(dir))
	if err != nil {
		return errs.Wrap(errs.ErrCodeInvalidDirection, err, "update direction")
	}
	ent, err := e.target(ctx, c)
	if err != nil {
		return err
	}
	if _, ok := ent.Array(); !ok {
		return errs.New(errs.ErrCodeUnsupported, "%s is not an array", ent.ID)
	}
	return e.edit(ctx, "update-direction", func(tx *scene.Tx) error {
		return modify(tx, e.siblings(ent), func(m *scene.Entity) error {
			a, _ := m.Array()
			a.Direction = d
			return nil
		})
	})
}

// SetPanelAssociation moves the entity at c into panelID, or out of its
// panel when panelID is empty. Positions are rewritten so the entity stays
// on the same cells at the current step.
func (e *Editor) SetPanelAssociation(ctx context.Context, c layout.Cell, panelID scene.ID) error {
	ent, err := e.target(ctx, c)
	if err != nil {
		return err
	}
	if ent.IsPanel() {
		return errs.New(errs.ErrCodeUnsupported, "panels cannot be nested")
	}
	if ent.PanelID == panelID {
		return nil
	}

	p := e.Plan(ctx)
	var from, to layout.Cell
	if ent.PanelID != "" {
		if info, ok := p.Panel(ent.PanelID); ok {
			from = info.Rect.Anchor()
		}
	}
	if panelID != "" {
		info, ok := p.Panel(panelID)
		if !ok {
			return errs.New(errs.ErrCodePanelReference, "panel %q does not exist", panelID)
		}
		to = info.Rect.Anchor()
	}
	delta := from.Sub(to)

	return e.edit(ctx, "set-panel", func(tx *scene.Tx) error {
		return modify(tx, e.siblings(ent), func(m *scene.Entity) error {
			m.PanelID = panelID
			m.Position = m.Position.Shift(delta.Row, delta.Col)
			return nil
		})
	})
}

// UpdateLabelText replaces the template text of the label at c.
func (e *Editor) UpdateLabelText(ctx context.Context, c layout.Cell, text string) error {
	ent, err := e.target(ctx, c)
	if err != nil {
		return err
	}
	if _, ok := ent.Payload.(*scene.Label); !ok {
		return errs.New(errs.ErrCodeUnsupported, "%s is not a label", ent.ID)
	}
	return e.edit(ctx, "update-label", func(tx *scene.Tx) error {
		return modify(tx, []scene.ID{ent.ID}, func(m *scene.Entity) error {
			m.Payload.(*scene.Label).Text = text
			return nil
		})
	})
}

// UpdateArrayValue sets the static value of the array member at c.
func (e *Editor) UpdateArrayValue(ctx context.Context, c layout.Cell, value string) error {
	ent, err := e.target(ctx, c)
	if err != nil {
		return err
	}
	if _, ok := ent.Array(); !ok {
		return errs.New(errs.ErrCodeUnsupported, "%s is not an array member", ent.ID)
	}
	return e.edit(ctx, "update-value", func(tx *scene.Tx) error {
		return modify(tx, []scene.ID{ent.ID}, func(m *scene.Entity) error {
			a, _ := m.Array()
			a.Value = value
			return nil
		})
	})
}
