package extension

import (
	"fmt"

	"github.com/blocklang/blocklang/pkg/object"
)

// Basic returns println and str, the only natives the original
// implementation's extension/basic.rs registered. println matches on the
// value's variant exactly as println_impl did there (invalid is fatal,
// everything else has a display form); str exposes the same rendering as
// a pure function so scripts can build strings instead of only printing
// them.
func Basic() Group {
	return Group{
		Name: "basic",
		Functions: []Func{
			{Name: "println", Arity: 1, Fn: println_},
			{Name: "str", Arity: 1, Fn: str},
		},
	}
}

func println_(args []object.Value) (object.Value, error) {
	fmt.Println(args[0].Display())
	return object.Null(), nil
}

func str(args []object.Value) (object.Value, error) {
	return object.Str(args[0].Display()), nil
}
