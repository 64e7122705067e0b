package layout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCell is returned by ParseCell for malformed input.
var ErrInvalidCell = errors.New("invalid cell")

// =============================================================================
// Cell
// =============================================================================

// Cell is a grid coordinate. Row grows downward, Col grows rightward.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Add returns c translated by d.
func (c Cell) Add(d Cell) Cell { return Cell{Row: c.Row + d.Row, Col: c.Col + d.Col} }

// Sub returns the offset from d to c.
func (c Cell) Sub(d Cell) Cell { return Cell{Row: c.Row - d.Row, Col: c.Col - d.Col} }

// String formats the cell as "row,col".
func (c Cell) String() string { return strconv.Itoa(c.Row) + "," + strconv.Itoa(c.Col) }

// Less orders cells row-major.
func (c Cell) Less(d Cell) bool {
	if c.Row != d.Row {
		return c.Row < d.Row
	}
	return c.Col < d.Col
}

// ParseCell parses "row,col".
func ParseCell(s string) (Cell, error) {
	r, c, ok := strings.Cut(s, ",")
	if !ok {
		return Cell{}, fmt.Errorf("%w: %q (want row,col)", ErrInvalidCell, s)
	}
	row, err := strconv.Atoi(strings.TrimSpace(r))
	if err != nil {
		return Cell{}, fmt.Errorf("%w: row %q", ErrInvalidCell, r)
	}
	col, err := strconv.Atoi(strings.TrimSpace(c))
	if err != nil {
		return Cell{}, fmt.Errorf("%w: col %q", ErrInvalidCell, c)
	}
	if row < 0 || col < 0 {
		return Cell{}, fmt.Errorf("%w: %q is negative", ErrInvalidCell, s)
	}
	return Cell{Row: row, Col: col}, nil
}

// =============================================================================
// Rect
// =============================================================================

// Extent is a footprint size in cells.
type Extent struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Unit is the 1×1 extent.
var Unit = Extent{Width: 1, Height: 1}

// Rect is the block of cells covered by a footprint: Width columns starting at
// Col and Height rows starting at Row.
type Rect struct {
	Row    int `json:"row"`
	Col    int `json:"col"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRect returns the rect anchored at c with extent e.
func NewRect(c Cell, e Extent) Rect {
	return Rect{Row: c.Row, Col: c.Col, Width: e.Width, Height: e.Height}
}

// Anchor returns the top-left cell.
func (r Rect) Anchor() Cell { return Cell{Row: r.Row, Col: r.Col} }

// Extent returns the rect's size.
func (r Rect) Extent() Extent { return Extent{Width: r.Width, Height: r.Height} }

// Area returns the number of covered cells.
func (r Rect) Area() int { return r.Width * r.Height }

// Empty reports whether the rect covers no cells.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether c lies inside r.
func (r Rect) Contains(c Cell) bool {
	return c.Row >= r.Row && c.Row < r.Row+r.Height &&
		c.Col >= r.Col && c.Col < r.Col+r.Width
}

// Intersects reports whether r and o share at least one cell.
func (r Rect) Intersects(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.Row < o.Row+o.Height && o.Row < r.Row+r.Height &&
		r.Col < o.Col+o.Width && o.Col < r.Col+r.Width
}

// Cells returns every covered cell in row-major order.
func (r Rect) Cells() []Cell {
	if r.Empty() {
		return nil
	}
	cells := make([]Cell, 0, r.Area())
	for row := r.Row; row < r.Row+r.Height; row++ {
		for col := r.Col; col < r.Col+r.Width; col++ {
			cells = append(cells, Cell{Row: row, Col: col})
		}
	}
	return cells
}

// Grow returns the smallest rect covering both r and c.
func (r Rect) Grow(c Cell) Rect {
	top, left := min(r.Row, c.Row), min(r.Col, c.Col)
	bottom := max(r.Row+r.Height, c.Row+1)
	right := max(r.Col+r.Width, c.Col+1)
	return Rect{Row: top, Col: left, Width: right - left, Height: bottom - top}
}

// Clip returns r truncated to the board [0, rows) × [0, cols).
func (r Rect) Clip(rows, cols int) Rect {
	top, left := max(r.Row, 0), max(r.Col, 0)
	bottom := min(r.Row+r.Height, rows)
	right := min(r.Col+r.Width, cols)
	if bottom <= top || right <= left {
		return Rect{Row: top, Col: left}
	}
	return Rect{Row: top, Col: left, Width: right - left, Height: bottom - top}
}

// String formats the rect as "row,col widthxheight".
func (r Rect) String() string {
	return fmt.Sprintf("%d,%d %dx%d", r.Row, r.Col, r.Width, r.Height)
}
