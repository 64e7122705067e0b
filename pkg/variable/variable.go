package variable

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type is the wire tag of a captured variable.
type Type string

// Variable types, named as the tracer emits them.
const (
	TypeInt         Type = "int"
	TypeFloat       Type = "float"
	TypeString      Type = "str"
	TypeIntArray    Type = "arr[int]"
	TypeFloatArray  Type = "arr[float]"
	TypeStringArray Type = "arr[str]"
	TypeIntGrid     Type = "arr2d[int]"
	TypeFloatGrid   Type = "arr2d[float]"
	TypeStringGrid  Type = "arr2d[str]"
)

// Variable is a read-only tagged value captured at one timeline step.
// The zero value is an empty string scalar.
type Variable struct {
	typ     Type
	num     float64
	str     string
	nums    []float64
	strs    []string
	numGrid [][]float64
	strGrid [][]string
}

// Int returns an integer scalar.
func Int(n int64) Variable { return Variable{typ: TypeInt, num: float64(n)} }

// Float returns a floating-point scalar.
func Float(f float64) Variable { return Variable{typ: TypeFloat, num: f} }

// String returns a string scalar.
func String(s string) Variable { return Variable{typ: TypeString, str: s} }

// IntArray returns a 1-D integer array.
func IntArray(xs []int64) Variable {
	nums := make([]float64, len(xs))
	for i, x := range xs {
		nums[i] = float64(x)
	}
	return Variable{typ: TypeIntArray, nums: nums}
}

// FloatArray returns a 1-D float array.
func FloatArray(xs []float64) Variable {
	return Variable{typ: TypeFloatArray, nums: append([]float64(nil), xs...)}
}

// StringArray returns a 1-D string array.
func StringArray(xs []string) Variable {
	return Variable{typ: TypeStringArray, strs: append([]string(nil), xs...)}
}

// IntGrid returns a 2-D integer array.
func IntGrid(rows [][]int64) Variable {
	grid := make([][]float64, len(rows))
	for i, row := range rows {
		grid[i] = make([]float64, len(row))
		for j, x := range row {
			grid[i][j] = float64(x)
		}
	}
	return Variable{typ: TypeIntGrid, numGrid: grid}
}

// FloatGrid returns a 2-D float array.
func FloatGrid(rows [][]float64) Variable {
	grid := make([][]float64, len(rows))
	for i, row := range rows {
		grid[i] = append([]float64(nil), row...)
	}
	return Variable{typ: TypeFloatGrid, numGrid: grid}
}

// StringGrid returns a 2-D string array.
func StringGrid(rows [][]string) Variable {
	grid := make([][]string, len(rows))
	for i, row := range rows {
		grid[i] = append([]string(nil), row...)
	}
	return Variable{typ: TypeStringGrid, strGrid: grid}
}

// Type returns the variable's wire tag.
func (v Variable) Type() Type {
	if v.typ == "" {
		return TypeString
	}
	return v.typ
}

// IsArray reports whether the variable is a 1-D or 2-D array.
func (v Variable) IsArray() bool {
	switch v.typ {
	case TypeIntArray, TypeFloatArray, TypeStringArray, TypeIntGrid, TypeFloatGrid, TypeStringGrid:
		return true
	}
	return false
}

// IsGrid reports whether the variable is a 2-D array.
func (v Variable) IsGrid() bool {
	return v.typ == TypeIntGrid || v.typ == TypeFloatGrid || v.typ == TypeStringGrid
}

// Number returns the value of a numeric scalar.
func (v Variable) Number() (float64, bool) {
	if v.typ == TypeInt || v.typ == TypeFloat {
		return v.num, true
	}
	return 0, false
}

// Numbers returns the elements of a 1-D numeric array. The slice must not be
// modified.
func (v Variable) Numbers() ([]float64, bool) {
	if v.typ == TypeIntArray || v.typ == TypeFloatArray {
		return v.nums, true
	}
	return nil, false
}

// Len returns the number of elements of a 1-D array or the number of rows of a
// 2-D array. Scalars have length 0.
func (v Variable) Len() int {
	switch v.typ {
	case TypeIntArray, TypeFloatArray:
		return len(v.nums)
	case TypeStringArray:
		return len(v.strs)
	case TypeIntGrid, TypeFloatGrid:
		return len(v.numGrid)
	case TypeStringGrid:
		return len(v.strGrid)
	}
	return 0
}

// Element returns the display string of element i. For 2-D arrays the element
// is a whole row.
func (v Variable) Element(i int) (string, bool) {
	if i < 0 || i >= v.Len() {
		return "", false
	}
	switch v.typ {
	case TypeIntArray:
		return formatInt(v.nums[i]), true
	case TypeFloatArray:
		return formatFloat(v.nums[i]), true
	case TypeStringArray:
		return v.strs[i], true
	case TypeIntGrid:
		return formatRow(v.numGrid[i], formatInt), true
	case TypeFloatGrid:
		return formatRow(v.numGrid[i], formatFloat), true
	case TypeStringGrid:
		return "[" + strings.Join(v.strGrid[i], ", ") + "]", true
	}
	return "", false
}

// String returns the display form of the value.
func (v Variable) String() string {
	switch v.typ {
	case TypeInt:
		return formatInt(v.num)
	case TypeFloat:
		return formatFloat(v.num)
	case TypeString, "":
		return v.str
	}
	parts := make([]string, v.Len())
	for i := range parts {
		parts[i], _ = v.Element(i)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Equal reports whether two variables have the same type and contents.
func (v Variable) Equal(o Variable) bool {
	if v.Type() != o.Type() {
		return false
	}
	a, _ := json.Marshal(v)
	b, _ := json.Marshal(o)
	return string(a) == string(b)
}

func formatInt(f float64) string { return strconv.FormatInt(int64(f), 10) }

func formatFloat(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatRow(row []float64, format func(float64) string) string {
	parts := make([]string, len(row))
	for i, x := range row {
		parts[i] = format(x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// =============================================================================
// JSON
// =============================================================================

type wireVariable struct {
	Type  Type            `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the variable as {"type": ..., "value": ...}.
func (v Variable) MarshalJSON() ([]byte, error) {
	var value any
	switch v.Type() {
	case TypeInt:
		value = int64(v.num)
	case TypeFloat:
		value = v.num
	case TypeString:
		value = v.str
	case TypeIntArray:
		ints := make([]int64, len(v.nums))
		for i, x := range v.nums {
			ints[i] = int64(x)
		}
		value = ints
	case TypeFloatArray:
		value = v.nums
	case TypeStringArray:
		value = v.strs
	case TypeIntGrid:
		rows := make([][]int64, len(v.numGrid))
		for i, row := range v.numGrid {
			rows[i] = make([]int64, len(row))
			for j, x := range row {
				rows[i][j] = int64(x)
			}
		}
		value = rows
	case TypeFloatGrid:
		value = v.numGrid
	case TypeStringGrid:
		value = v.strGrid
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireVariable{Type: v.Type(), Value: raw})
}

// UnmarshalJSON decodes the {"type": ..., "value": ...} form.
func (v *Variable) UnmarshalJSON(data []byte) error {
	var w wireVariable
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var err error
	switch w.Type {
	case TypeInt:
		var f float64
		err = json.Unmarshal(w.Value, &f)
		*v = Int(int64(f))
	case TypeFloat:
		var f float64
		err = json.Unmarshal(w.Value, &f)
		*v = Float(f)
	case TypeString:
		var s string
		err = json.Unmarshal(w.Value, &s)
		*v = String(s)
	case TypeIntArray:
		var xs []float64
		err = json.Unmarshal(w.Value, &xs)
		*v = Variable{typ: TypeIntArray, nums: truncAll(xs)}
	case TypeFloatArray:
		var xs []float64
		err = json.Unmarshal(w.Value, &xs)
		*v = FloatArray(xs)
	case TypeStringArray:
		var xs []string
		err = json.Unmarshal(w.Value, &xs)
		*v = StringArray(xs)
	case TypeIntGrid:
		var rows [][]float64
		err = json.Unmarshal(w.Value, &rows)
		for i := range rows {
			rows[i] = truncAll(rows[i])
		}
		*v = Variable{typ: TypeIntGrid, numGrid: rows}
	case TypeFloatGrid:
		var rows [][]float64
		err = json.Unmarshal(w.Value, &rows)
		*v = FloatGrid(rows)
	case TypeStringGrid:
		var rows [][]string
		err = json.Unmarshal(w.Value, &rows)
		*v = StringGrid(rows)
	default:
		return fmt.Errorf("unknown variable type %q", w.Type)
	}
	if err != nil {
		return fmt.Errorf("decode %s value: %w", w.Type, err)
	}
	return nil
}

func truncAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Trunc(x)
	}
	return out
}
