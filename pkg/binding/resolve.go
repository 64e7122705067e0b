package binding

import (
	"errors"
	"fmt"
	"math"

	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/expr"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

// Default board bounds.
const (
	DefaultRows    = 50
	DefaultCols    = 50
	DefaultMaxSize = 50
)

// Bounds is the fixed board size. Resolved rows lie in [0, Rows-1], columns
// in [0, Cols-1] and sizes in [1, MaxSize].
type Bounds struct {
	Rows    int `json:"rows" toml:"rows"`
	Cols    int `json:"cols" toml:"cols"`
	MaxSize int `json:"max_size" toml:"max_size"`
}

// DefaultBounds returns the 50×50 board.
func DefaultBounds() Bounds {
	return Bounds{Rows: DefaultRows, Cols: DefaultCols, MaxSize: DefaultMaxSize}
}

// WithDefaults fills zero fields from DefaultBounds.
func (b Bounds) WithDefaults() Bounds {
	if b.Rows <= 0 {
		b.Rows = DefaultRows
	}
	if b.Cols <= 0 {
		b.Cols = DefaultCols
	}
	if b.MaxSize <= 0 {
		b.MaxSize = DefaultMaxSize
	}
	return b
}

// ClampCell clamps c onto the board.
func (b Bounds) ClampCell(c layout.Cell) layout.Cell {
	return layout.Cell{Row: clamp(c.Row, 0, b.Rows-1), Col: clamp(c.Col, 0, b.Cols-1)}
}

// ClampSize clamps v to [1, MaxSize].
func (b Bounds) ClampSize(v int) int { return clamp(v, 1, b.MaxSize) }

// Contains reports whether c is on the board.
func (b Bounds) Contains(c layout.Cell) bool {
	return c.Row >= 0 && c.Row < b.Rows && c.Col >= 0 && c.Col < b.Cols
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// =============================================================================
// Resolver
// =============================================================================

// Resolver turns bindings into concrete cells and sizes for one snapshot.
// It is safe for concurrent use.
type Resolver struct {
	Bounds Bounds
	exprs  *expr.Cache
}

// NewResolver returns a resolver for the given bounds. A nil cache uses a
// fresh one.
func NewResolver(b Bounds, cache *expr.Cache) *Resolver {
	if cache == nil {
		cache = expr.NewCache(expr.Options{})
	}
	return &Resolver{Bounds: b.WithDefaults(), exprs: cache}
}

var defaultResolver = NewResolver(DefaultBounds(), nil)

// Default returns the resolver for the default board.
func Default() *Resolver { return defaultResolver }

// Eval returns the raw, unfloored and unclamped value of n at snap. Errors
// carry ErrCodeExpression or ErrCodeBindingUnavailable.
func (r *Resolver) Eval(n Numeric, snap variable.Snapshot) (float64, error) {
	switch n.Kind() {
	case KindFixed:
		return float64(n.value), nil
	case KindVariable:
		v, ok := snap.Lookup(n.text)
		if !ok {
			return 0, errs.New(errs.ErrCodeBindingUnavailable, "unknown variable %q", n.text)
		}
		f, ok := v.Number()
		if !ok {
			return 0, errs.New(errs.ErrCodeBindingUnavailable, "variable %q is %s, not a number", n.text, v.Type())
		}
		return f, nil
	}

	f, err := r.exprs.Evaluate(n.text, snap)
	if err != nil {
		return 0, classify(err)
	}
	return f, nil
}

// classify tags expression failures with the taxonomy code.
func classify(err error) error {
	var e *expr.Error
	if errors.As(err, &e) && e.Kind.IsBinding() {
		return errs.New(errs.ErrCodeBindingUnavailable, "%s", e.Msg)
	}
	return errs.New(errs.ErrCodeExpression, "%s", err.Error())
}

// Int resolves n to a floored integer without clamping.
func (r *Resolver) Int(n Numeric, snap variable.Snapshot) (int, error) {
	f, err := r.Eval(n, snap)
	if err != nil {
		return 0, err
	}
	return toInt(f), nil
}

// Position resolves both components independently, floors them and clamps
// the result onto the board. A failing component resolves to 0; the error
// names the failing component(s).
func (r *Resolver) Position(p Position, snap variable.Snapshot) (layout.Cell, error) {
	c, err := r.Offset(p, snap)
	return r.Bounds.ClampCell(c), err
}

// Offset resolves p without clamping. Panel children use it for their
// panel-relative offset, clamped only after the panel anchor is added.
func (r *Resolver) Offset(p Position, snap variable.Snapshot) (layout.Cell, error) {
	row, rowErr := r.Int(p.Row, snap)
	col, colErr := r.Int(p.Col, snap)
	if rowErr != nil {
		row = 0
	}
	if colErr != nil {
		col = 0
	}
	return layout.Cell{Row: row, Col: col}, errors.Join(component("row", rowErr), component("col", colErr))
}

// Size resolves a size, floored and clamped to [1, MaxSize]. Failures
// resolve to 1.
func (r *Resolver) Size(n Numeric, snap variable.Snapshot) (int, error) {
	v, err := r.Int(n, snap)
	if err != nil {
		return 1, err
	}
	return r.Bounds.ClampSize(v), nil
}

// Extent resolves a width/height pair.
func (r *Resolver) Extent(w, h Numeric, snap variable.Snapshot) (layout.Extent, error) {
	width, wErr := r.Size(w, snap)
	height, hErr := r.Size(h, snap)
	return layout.Extent{Width: width, Height: height}, errors.Join(component("width", wErr), component("height", hErr))
}

// component prefixes a field name, keeping the failure code.
func component(field string, err error) error {
	if err == nil {
		return nil
	}
	return errs.Wrap(errs.GetCode(err), err, "%s", field)
}

// ResolvePosition resolves p on the default board.
func ResolvePosition(p Position, snap variable.Snapshot) (layout.Cell, error) {
	return defaultResolver.Position(p, snap)
}

// ResolveSize resolves n on the default board.
func ResolveSize(n Numeric, snap variable.Snapshot) (int, error) {
	return defaultResolver.Size(n, snap)
}

// toInt floors f, saturating values outside the int range.
func toInt(f float64) int {
	f = math.Floor(f)
	switch {
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

// IsInteger reports whether f is a whole number.
func IsInteger(f float64) bool { return f == math.Trunc(f) }

// FormatValue renders a resolved value for messages: integers without a
// decimal point, fractions in shortest form.
func FormatValue(f float64) string {
	if IsInteger(f) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
