package symtab

import (
	"fmt"
)

func Example() {
	bodies := [][]byte{
		[]byte("<n><vblex><adj><n><vblex>"),
		[]byte("<vblex><adv><n>"),
	}
	tbl := Train(bodies)
	for _, body := range bodies {
		fmt.Println(string(tbl.DecodeAll(tbl.EncodeAll(body))))
	}
	// Output:
	// <n><vblex><adj><n><vblex>
	// <vblex><adv><n>
}
