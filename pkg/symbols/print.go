package symbols

import (
	"fmt"
	"io"
)

// Fprint writes a readable dump of the binding result: the global table,
// each function's local table and the string pool.
func Fprint(w io.Writer, binds *Bindings) {
	fmt.Fprintln(w, "== global symbols ==")
	for _, sym := range binds.Globals.Symbols {
		fmt.Fprintf(w, "%3d: %-12s %s\n", sym.Seq, sym.Kind, sym.Name)
	}
	for _, sym := range binds.Globals.Symbols {
		if sym.Kind != Function {
			continue
		}
		fmt.Fprintf(w, "== locals of %s ==\n", sym.Name)
		for _, local := range sym.Locals.Symbols {
			fmt.Fprintf(w, "%3d: %-12s %s\n", local.Seq, local.Kind, local.Name)
		}
	}
	fmt.Fprintln(w, "== strings ==")
	for i, s := range binds.Strings.Strings {
		fmt.Fprintf(w, "%3d: %q\n", i, s)
	}
}
