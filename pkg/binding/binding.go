package binding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/stepgrid/pkg/expr"
)

// Kind identifies how a Numeric binding obtains its value.
type Kind string

const (
	// KindFixed is a literal integer.
	KindFixed Kind = "fixed"
	// KindFormula is an expression over the step's variables. A bare variable
	// name is a one-token formula.
	KindFormula Kind = "formula"
	// KindVariable looks a numeric scalar up by name. It resolves exactly like
	// the one-token formula and is normalized to one when decoded.
	KindVariable Kind = "variable"
)

// Numeric is the source of one position or size component.
type Numeric struct {
	kind  Kind
	value int
	text  string
}

// Fixed returns a literal binding.
func Fixed(v int) Numeric { return Numeric{kind: KindFixed, value: v} }

// Formula returns an expression binding.
func Formula(src string) Numeric { return Numeric{kind: KindFormula, text: strings.TrimSpace(src)} }

// Variable returns a direct variable-reference binding.
func Variable(name string) Numeric { return Numeric{kind: KindVariable, text: name} }

// Kind returns the binding kind. The zero Numeric is Fixed(0).
func (n Numeric) Kind() Kind {
	if n.kind == "" {
		return KindFixed
	}
	return n.kind
}

// IsFixed reports whether n is a literal.
func (n Numeric) IsFixed() bool { return n.Kind() == KindFixed }

// Value returns the literal of a Fixed binding.
func (n Numeric) Value() int { return n.value }

// Text returns the formula source or variable name, "" for Fixed.
func (n Numeric) Text() string { return n.text }

// Source returns the binding as formula text: the literal for Fixed, the
// formula or name otherwise.
func (n Numeric) Source() string {
	if n.IsFixed() {
		return strconv.Itoa(n.value)
	}
	return n.text
}

// String implements fmt.Stringer.
func (n Numeric) String() string {
	switch n.Kind() {
	case KindFormula:
		return "=" + n.text
	case KindVariable:
		return "$" + n.text
	}
	return strconv.Itoa(n.value)
}

// Parse interprets user input: an integer literal becomes Fixed, anything
// else is a Formula checked for syntax.
func Parse(s string) (Numeric, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return Fixed(v), nil
	}
	if err := expr.Validate(s); err != nil {
		return Numeric{}, err
	}
	return Formula(s), nil
}

// Shift returns n moved by delta in a way that stays correct at every step:
// Fixed(v) becomes Fixed(v+delta), a formula f becomes "(f) + delta".
func Shift(n Numeric, delta int) Numeric {
	if delta == 0 {
		return n
	}
	if n.IsFixed() {
		return Fixed(n.value + delta)
	}
	op, d := "+", delta
	if d < 0 {
		op, d = "-", -d
	}
	return Formula(fmt.Sprintf("(%s) %s %d", n.text, op, d))
}

// =============================================================================
// JSON
// =============================================================================

// MarshalJSON encodes Fixed as a bare number and formulas as
// {"formula": "..."}. Variable references encode as {"variable": "..."}.
func (n Numeric) MarshalJSON() ([]byte, error) {
	switch n.Kind() {
	case KindFormula:
		return json.Marshal(map[string]string{"formula": n.text})
	case KindVariable:
		return json.Marshal(map[string]string{"variable": n.text})
	}
	return json.Marshal(n.value)
}

// UnmarshalJSON accepts a bare number, {"fixed": n}, {"formula": "..."}, a
// bare string (formula), and the legacy {"variable": "name"} and
// {"type": "variable", "name": "..."} encodings. Variable references are
// normalized to formulas.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*n = Fixed(0)
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := Parse(s)
		if err != nil {
			// Keep the broken formula so it can be reported, not lost.
			parsed = Formula(s)
		}
		*n = parsed
		return nil
	case '{':
		var raw struct {
			Type     string   `json:"type"`
			Fixed    *float64 `json:"fixed"`
			Value    *float64 `json:"value"`
			Formula  *string  `json:"formula"`
			Expr     *string  `json:"expr"`
			Variable *string  `json:"variable"`
			Name     *string  `json:"name"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		switch {
		case raw.Formula != nil:
			*n = Formula(*raw.Formula)
		case raw.Expr != nil:
			*n = Formula(*raw.Expr)
		case raw.Variable != nil:
			*n = Formula(*raw.Variable)
		case raw.Type == "variable" && raw.Name != nil:
			*n = Formula(*raw.Name)
		case raw.Fixed != nil:
			return n.setNumber(*raw.Fixed)
		case raw.Value != nil:
			return n.setNumber(*raw.Value)
		default:
			return fmt.Errorf("binding: unrecognized encoding %s", data)
		}
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("binding: %w", err)
	}
	return n.setNumber(f)
}

// setNumber decodes a numeric literal. Whole numbers become Fixed. A
// fraction is kept as a literal formula so the timeline validator reports
// it instead of the load silently truncating it.
func (n *Numeric) setNumber(f float64) error {
	if math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return fmt.Errorf("binding: %v is out of range", f)
	}
	if !IsInteger(f) {
		*n = Formula(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	*n = Fixed(int(f))
	return nil
}

// =============================================================================
// Position
// =============================================================================

// Position binds an anchor cell.
type Position struct {
	Row Numeric `json:"row"`
	Col Numeric `json:"col"`
}

// At returns a fixed position.
func At(row, col int) Position { return Position{Row: Fixed(row), Col: Fixed(col)} }

// IsFixed reports whether both components are literals.
func (p Position) IsFixed() bool { return p.Row.IsFixed() && p.Col.IsFixed() }

// Shift moves both components.
func (p Position) Shift(dRow, dCol int) Position {
	return Position{Row: Shift(p.Row, dRow), Col: Shift(p.Col, dCol)}
}

// String formats the position as "(row, col)".
func (p Position) String() string { return "(" + p.Row.String() + ", " + p.Col.String() + ")" }
