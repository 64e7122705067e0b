package editor

import (
	"context"

	"github.com/matzehuels/stepgrid/pkg/binding"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/scene"
)

// Default placement sizes.
const (
	DefaultArrayLength = 5
	DefaultPanelSize   = 5
)

// PlaceShape places a 1×1 shape at c, evicting whatever it covers.
func (e *Editor) PlaceShape(ctx context.Context, c layout.Cell, t scene.ShapeType) (scene.ID, error) {
	if t == "" {
		t = scene.ShapeRect
	}
	return e.placeOne(ctx, "place-shape", "shape", c, layout.Unit, scene.NewShape(t))
}

// PlaceLabel places a w×h label with template text at c.
func (e *Editor) PlaceLabel(ctx context.Context, c layout.Cell, text string, w, h int) (scene.ID, error) {
	ext, err := e.extent(w, h)
	if err != nil {
		return "", err
	}
	label := &scene.Label{
		Text:     text,
		Width:    binding.Fixed(ext.Width),
		Height:   binding.Fixed(ext.Height),
		FontSize: scene.DefaultFontSize,
		Style:    scene.DefaultStyle(),
	}
	return e.placeOne(ctx, "place-label", "label", c, ext, label)
}

// PlaceScalar places a display of variable name at c. value is shown until
// the variable is available.
func (e *Editor) PlaceScalar(ctx context.Context, c layout.Cell, name, value string) (scene.ID, error) {
	if name == "" {
		return "", errs.New(errs.ErrCodeInvalidInput, "scalar needs a variable name")
	}
	if value == "" {
		if v, ok := e.Snapshot().Lookup(name); ok {
			value = v.String()
		}
	}
	scalar := &scene.Scalar{VarName: name, Mode: scene.DisplayNameValue, Value: value}
	return e.placeOne(ctx, "place-scalar", "scalar", c, layout.Unit, scalar)
}

// PlacePanel places a w×h panel at c. Panels evict nothing and are always
// top level.
func (e *Editor) PlacePanel(ctx context.Context, c layout.Cell, w, h int, title string) (scene.ID, error) {
	if err := e.checkCell(c); err != nil {
		return "", err
	}
	ext, err := e.extent(w, h)
	if err != nil {
		return "", err
	}
	if title == "" {
		title = "Panel"
	}

	var id scene.ID
	err = e.edit(ctx, "place-panel", func(tx *scene.Tx) error {
		id = tx.NewID("panel")
		return tx.Insert(scene.Entity{
			ID:       id,
			Position: binding.At(c.Row, c.Col),
			Z:        tx.NewZ(),
			Payload: &scene.Panel{
				Title:  title,
				Width:  binding.Fixed(ext.Width),
				Height: binding.Fixed(ext.Height),
				Style:  scene.DefaultStyle(),
			},
		})
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// PlaceArray places an array of length static cells at c, laid out in dir.
func (e *Editor) PlaceArray(ctx context.Context, c layout.Cell, length int, dir layout.Direction) (string, error) {
	if length <= 0 {
		length = DefaultArrayLength
	}
	values := make([]string, length)
	for i := range values {
		values[i] = "0"
	}
	return e.placeArray(ctx, "place-array", c, dir, "", values)
}

// PlaceArrayVariable places an array bound to the array variable name. When
// values is nil the variable's current elements are used.
func (e *Editor) PlaceArrayVariable(ctx context.Context, c layout.Cell, name string, values []string, dir layout.Direction) (string, error) {
	if name == "" {
		return "", errs.New(errs.ErrCodeInvalidInput, "array needs a variable name")
	}
	if values == nil {
		v, ok := e.Snapshot().Lookup(name)
		if !ok || !v.IsArray() {
			return "", errs.New(errs.ErrCodeBindingUnavailable, "%q is not an array at step %d", name, e.step+1)
		}
		values = make([]string, v.Len())
		for i := range values {
			values[i], _ = v.Element(i)
		}
	}
	if len(values) == 0 {
		return "", errs.New(errs.ErrCodeInvalidInput, "array %q is empty", name)
	}
	return e.placeArray(ctx, "place-array-variable", c, dir, name, values)
}

func (e *Editor) placeArray(ctx context.Context, op string, c layout.Cell, dir layout.Direction, name string, values []string) (string, error) {
	if err := e.checkCell(c); err != nil {
		return "", err
	}
	if dir == "" {
		dir = layout.Right
	}
	if _, err := layout.ParseDirection(string(dir)); err != nil {
		return "", errs.Wrap(errs.ErrCodeInvalidDirection, err, "place array")
	}

	extents := make([]layout.Extent, len(values))
	for i := range extents {
		extents[i] = layout.Unit
	}
	bounds := e.bind.Bounds
	rect := layout.Span(c, dir, extents).Clip(bounds.Rows, bounds.Cols)

	p := e.Plan(ctx)
	pos, panelID := e.relative(p, c)

	var arrayID string
	err := e.edit(ctx, op, func(tx *scene.Tx) error {
		e.evict(tx, p, rect, nil)
		arrayID = tx.NewID("array")
		z := tx.NewZ()
		for i, v := range values {
			err := tx.Insert(scene.Entity{
				ID:       tx.NewID("cell"),
				Position: pos,
				Z:        z,
				PanelID:  panelID,
				Payload:  &scene.ArrayCell{ArrayID: arrayID, Index: i, Direction: dir, Value: v, VarName: name},
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return arrayID, nil
}

// placeOne inserts a single non-panel entity anchored at c.
func (e *Editor) placeOne(ctx context.Context, op, prefix string, c layout.Cell, ext layout.Extent, payload scene.Payload) (scene.ID, error) {
	if err := e.checkCell(c); err != nil {
		return "", err
	}
	bounds := e.bind.Bounds
	rect := layout.NewRect(c, ext).Clip(bounds.Rows, bounds.Cols)

	p := e.Plan(ctx)
	pos, panelID := e.relative(p, c)

	var id scene.ID
	err := e.edit(ctx, op, func(tx *scene.Tx) error {
		e.evict(tx, p, rect, nil)
		id = tx.NewID(prefix)
		return tx.Insert(scene.Entity{ID: id, Position: pos, Z: tx.NewZ(), PanelID: panelID, Payload: payload})
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (e *Editor) extent(w, h int) (layout.Extent, error) {
	if w < 1 || h < 1 {
		return layout.Extent{}, errs.New(errs.ErrCodeInvalidInput, "size %dx%d must be at least 1x1", w, h)
	}
	if limit := e.bind.Bounds.MaxSize; w > limit || h > limit {
		return layout.Extent{}, errs.New(errs.ErrCodeInvalidInput, "size %dx%d exceeds the maximum of %d", w, h, limit)
	}
	return layout.Extent{Width: w, Height: h}, nil
}
