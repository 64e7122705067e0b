package expr

import (
	"math"
	"strconv"

	"github.com/matzehuels/stepgrid/pkg/variable"
)

// =============================================================================
// Nodes
// =============================================================================

type node interface {
	eval(snap variable.Snapshot) (float64, error)
	String() string
}

type numberNode struct {
	val float64
	at  int
}

type identNode struct {
	name string
	at   int
}

type indexNode struct {
	name  string
	index node
	at    int
}

type callNode struct {
	name string
	fn   function
	args []node
	at   int
}

type unaryNode struct {
	op tokenKind
	x  node
	at int
}

type binaryNode struct {
	op   tokenKind
	l, r node
	at   int
}

func (n *numberNode) String() string { return strconv.FormatFloat(n.val, 'g', -1, 64) }
func (n *identNode) String() string  { return n.name }
func (n *indexNode) String() string  { return n.name + "[" + n.index.String() + "]" }

func (n *callNode) String() string {
	s := n.name + "("
	for i, a := range n.args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}

func (n *unaryNode) String() string {
	return "(" + opText(n.op) + n.x.String() + ")"
}

func (n *binaryNode) String() string {
	return "(" + n.l.String() + " " + opText(n.op) + " " + n.r.String() + ")"
}

func opText(op tokenKind) string {
	switch op {
	case tokPlus:
		return "+"
	case tokMinus:
		return "-"
	case tokStar:
		return "*"
	case tokSlash:
		return "/"
	case tokFloorDiv:
		return "//"
	case tokPercent:
		return "%"
	case tokPower:
		return "^"
	}
	return "?"
}

// =============================================================================
// Evaluation
// =============================================================================

// Eval evaluates the expression against snap. Identifiers must name numeric
// scalars; name[i] must name a 1-D numeric array. The result is always finite.
func (e *Expr) Eval(snap variable.Snapshot) (float64, error) {
	v, err := e.root.eval(snap)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errorf(KindNotFinite, -1, "expression %q does not evaluate to a finite number", e.src)
	}
	return v, nil
}

func (n *numberNode) eval(variable.Snapshot) (float64, error) { return n.val, nil }

func (n *identNode) eval(snap variable.Snapshot) (float64, error) {
	v, ok := snap[n.name]
	if !ok {
		return 0, errorf(KindUnknownIdentifier, n.at, "unknown variable %q", n.name)
	}
	f, ok := v.Number()
	if !ok {
		return 0, errorf(KindNotNumeric, n.at, "variable %q is %s, not a number", n.name, v.Type())
	}
	return f, nil
}

func (n *indexNode) eval(snap variable.Snapshot) (float64, error) {
	v, ok := snap[n.name]
	if !ok {
		return 0, errorf(KindUnknownIdentifier, n.at, "unknown variable %q", n.name)
	}
	nums, ok := v.Numbers()
	if !ok {
		return 0, errorf(KindNotNumeric, n.at, "variable %q is %s, not a numeric array", n.name, v.Type())
	}
	raw, err := n.index.eval(snap)
	if err != nil {
		return 0, err
	}
	if math.IsInf(raw, 0) || math.IsNaN(raw) {
		return 0, errorf(KindNotFinite, n.at, "index into %q is not finite", n.name)
	}
	i := math.Floor(raw)
	if i < 0 || i >= float64(len(nums)) {
		return 0, errorf(KindIndexOutOfRange, n.at, "index %g out of range for %q (length %d)", i, n.name, len(nums))
	}
	return nums[int(i)], nil
}

func (n *callNode) eval(snap variable.Snapshot) (float64, error) {
	args := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(snap)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	return n.fn.apply(args), nil
}

func (n *unaryNode) eval(snap variable.Snapshot) (float64, error) {
	v, err := n.x.eval(snap)
	if err != nil {
		return 0, err
	}
	if n.op == tokMinus {
		return -v, nil
	}
	return v, nil
}

func (n *binaryNode) eval(snap variable.Snapshot) (float64, error) {
	l, err := n.l.eval(snap)
	if err != nil {
		return 0, err
	}
	r, err := n.r.eval(snap)
	if err != nil {
		return 0, err
	}

	switch n.op {
	case tokPlus:
		return l + r, nil
	case tokMinus:
		return l - r, nil
	case tokStar:
		return l * r, nil
	case tokPower:
		return math.Pow(l, r), nil
	}

	if r == 0 {
		return 0, errorf(KindDivisionByZero, n.at, "division by zero")
	}
	switch n.op {
	case tokSlash:
		return l / r, nil
	case tokFloorDiv:
		return math.Floor(l / r), nil
	case tokPercent:
		return l - r*math.Floor(l/r), nil
	}
	return 0, errorf(KindSyntax, n.at, "unsupported operator %s", opText(n.op))
}

// =============================================================================
// Functions
// =============================================================================

type function struct {
	minArgs int
	maxArgs int // -1 for variadic
	apply   func([]float64) float64
}

var functions = map[string]function{
	"abs":   {1, 1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"floor": {1, 1, func(a []float64) float64 { return math.Floor(a[0]) }},
	"ceil":  {1, 1, func(a []float64) float64 { return math.Ceil(a[0]) }},
	// math.Round rounds half away from zero: round(2.5) = 3, round(-2.5) = -3.
	"round": {1, 1, func(a []float64) float64 { return math.Round(a[0]) }},
	"min": {2, -1, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m
	}},
	"max": {2, -1, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m
	}},
}

// Functions returns the names of the supported functions.
func Functions() []string {
	return []string{"abs", "ceil", "floor", "max", "min", "round"}
}

func (f function) checkArity(name string, n, pos int) error {
	if n < f.minArgs || (f.maxArgs >= 0 && n > f.maxArgs) {
		want := strconv.Itoa(f.minArgs)
		if f.maxArgs < 0 {
			want = "at least " + want
		}
		return errorf(KindArity, pos, "%s() takes %s argument(s), got %d", name, want, n)
	}
	return nil
}
