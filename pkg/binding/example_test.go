package binding_test

import (
	"fmt"

	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

func ExampleResolver_Position() {
	r := binding.NewResolver(binding.Bounds{Rows: 10, Cols: 10, MaxSize: 5}, nil)
	pos := binding.Position{Row: binding.Formula("i / 2"), Col: binding.Formula("i * 4")}

	// Row 1.5 floors to 1; column 12 clamps to the last column.
	c, err := r.Position(pos, variable.Snapshot{"i": variable.Int(3)})
	fmt.Println(c, err)
	// Output: 1,9 <nil>
}

func ExampleShift() {
	fmt.Println(binding.Shift(binding.Fixed(4), 2))
	fmt.Println(binding.Shift(binding.Formula("i * 2"), -3))
	// Output:
	// 6
	// =(i * 2) - 3
}

func ExampleParse() {
	for _, in := range []string{"12", "len + 1"} {
		n, err := binding.Parse(in)
		fmt.Println(n.Kind(), n, err)
	}
	// Output:
	// fixed 12 <nil>
	// formula =len + 1 <nil>
}
