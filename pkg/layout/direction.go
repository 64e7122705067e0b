package layout

import (
	"errors"
	"fmt"
)

// ErrInvalidDirection is returned by ParseDirection for unknown directions.
var ErrInvalidDirection = errors.New("invalid direction")

// Direction is the axis and sense along which array cells are laid out.
type Direction string

const (
	Right Direction = "right"
	Left  Direction = "left"
	Down  Direction = "down"
	Up    Direction = "up"
)

// Directions lists every valid direction.
var Directions = []Direction{Right, Left, Down, Up}

// ParseDirection validates s. The empty string means Right.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Right, Left, Down, Up:
		return d, nil
	case "":
		return Right, nil
	}
	return "", fmt.Errorf("%w: %q (want right, left, down or up)", ErrInvalidDirection, s)
}

// Horizontal reports whether the primary axis is the column axis.
func (d Direction) Horizontal() bool { return d != Down && d != Up }

// Sign is -1 for Left and Up, +1 otherwise.
func (d Direction) Sign() int {
	if d == Left || d == Up {
		return -1
	}
	return 1
}

// Unit returns the offset of one step along the direction.
func (d Direction) Unit() Cell {
	if d.Horizontal() {
		return Cell{Col: d.Sign()}
	}
	return Cell{Row: d.Sign()}
}

// Offsets returns the anchor-relative offset of every array cell.
//
// The offset of cell i is the sum of the primary-axis extents (width for
// Right and Left, height for Down and Up) of cells 0..i-1, negated for Left
// and Up. When every extent is 1×1 the closed form i*sign is used.
func Offsets(d Direction, extents []Extent) []Cell {
	if uniform(extents) {
		return UniformOffsets(d, len(extents))
	}
	return accumulate(d, extents)
}

func accumulate(d Direction, extents []Extent) []Cell {
	offsets := make([]Cell, len(extents))
	sign, horizontal := d.Sign(), d.Horizontal()
	acc := 0
	for i, e := range extents {
		if horizontal {
			offsets[i] = Cell{Col: acc * sign}
			acc += max(e.Width, 1)
		} else {
			offsets[i] = Cell{Row: acc * sign}
			acc += max(e.Height, 1)
		}
	}
	return offsets
}

// UniformOffsets is the 1×1 fast path of Offsets.
func UniformOffsets(d Direction, n int) []Cell {
	offsets := make([]Cell, n)
	unit := d.Unit()
	for i := range offsets {
		offsets[i] = Cell{Row: unit.Row * i, Col: unit.Col * i}
	}
	return offsets
}

// Span returns the bounding rect of an array with the given per-cell extents
// anchored at a, in board coordinates (possibly negative for Left and Up).
func Span(a Cell, d Direction, extents []Extent) Rect {
	if len(extents) == 0 {
		return Rect{Row: a.Row, Col: a.Col}
	}
	offsets := Offsets(d, extents)
	r := NewRect(a.Add(offsets[0]), clampExtent(extents[0]))
	for i := 1; i < len(extents); i++ {
		cell := NewRect(a.Add(offsets[i]), clampExtent(extents[i]))
		r = r.Grow(cell.Anchor()).Grow(Cell{Row: cell.Row + cell.Height - 1, Col: cell.Col + cell.Width - 1})
	}
	return r
}

func uniform(extents []Extent) bool {
	for _, e := range extents {
		if e.Width > 1 || e.Height > 1 {
			return false
		}
	}
	return true
}

func clampExtent(e Extent) Extent {
	return Extent{Width: max(e.Width, 1), Height: max(e.Height, 1)}
}
