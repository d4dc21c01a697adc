package irgen

import (
	"fmt"
	"strings"

	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/ast"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/symtab"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/types"
)

// lvalueAddr walks the symbol's type along the index list, emitting
// one address instruction per index, and returns the source holding
// the final address together with the not-yet-indexed remainder of
// the type. Pointer steps (decayed array parameters) first load the
// pointer out of its slot and advance with getptr; array steps use
// getelemptr directly.
func (g *Generator) lvalueAddr(lv *ast.LValue, b *strings.Builder) (string, types.Type, error) {
	sym, ok := g.syms.Lookup(lv.Name)
	if !ok {
		return "", nil, fmt.Errorf("use of undeclared name %q", lv.Name)
	}

	var internalName string
	var current types.Type
	switch sym := sym.(type) {
	case *symtab.Variable:
		internalName, current = sym.InternalName, sym.Type
	case *symtab.Const:
		internalName, current = sym.InternalName, sym.Type
	default:
		return "", nil, fmt.Errorf("%q is not addressable", lv.Name)
	}

	source := "@" + internalName
	for _, index := range lv.Indices {
		inst := "getelemptr"
		if _, isPointer := current.(types.Pointer); isPointer {
			inst = "getptr"
			id := g.newTemp()
			fmt.Fprintf(b, "    %%%d = load %s\n", id, source)
			source = fmt.Sprintf("%%%d", id)
		}
		operand, err := g.operand(index, b)
		if err != nil {
			return "", nil, err
		}
		id := g.newTemp()
		fmt.Fprintf(b, "    %%%d = %s %s, %s\n", id, inst, source, operand)
		source = fmt.Sprintf("%%%d", id)
		current = current.Base()
	}
	return source, current, nil
}

// lowerLValueLoad produces the value of an lvalue expression. A fully
// indexed lvalue loads the scalar; a partially indexed array or an
// unindexed array decays to a pointer to its first element; a pointer
// slot passes the stored pointer through.
func (g *Generator) lowerLValueLoad(lv *ast.LValue, b *strings.Builder) (int, error) {
	source, remaining, err := g.lvalueAddr(lv, b)
	if err != nil {
		return 0, err
	}
	id := g.newTemp()
	if remaining.Base() != nil {
		if _, isArray := remaining.(types.Array); isArray {
			fmt.Fprintf(b, "    %%%d = getelemptr %s, 0\n", id, source)
		} else {
			fmt.Fprintf(b, "    %%%d = load %s\n", id, source)
		}
	} else {
		fmt.Fprintf(b, "    %%%d = load %s\n", id, source)
	}
	return id, nil
}
