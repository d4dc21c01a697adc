package irgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/ast"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/symtab"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/types"
)

func (g *Generator) lowerConstDecl(d *ast.ConstDecl, b *strings.Builder) error {
	for _, def := range d.Defs {
		if err := g.lowerConstDef(def, b); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) lowerVarDecl(d *ast.VarDecl, b *strings.Builder) error {
	for _, def := range d.Defs {
		if err := g.lowerVarDef(def, b); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) lowerConstDef(def ast.Def, b *strings.Builder) error {
	if len(def.Shape) == 0 {
		// A scalar const never reaches the IR: its folded value lives
		// in the symbol table and inlines at every use.
		init, ok := def.Init.(*ast.ExprInit)
		if !ok {
			return fmt.Errorf("constant %q initialized with a brace list", def.Name)
		}
		value, ok, err := g.foldExpr(init.Expr)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("initializer of constant %q is not a constant expression", def.Name)
		}
		g.syms.Insert(def.Name, &symtab.Const{Type: types.Int(), Value: value})
		return nil
	}

	shape, err := g.foldShape(def)
	if err != nil {
		return err
	}
	flat, err := g.flattenConstInit(def.Init, shape, def.Name)
	if err != nil {
		return err
	}

	typ := types.MakeArray(types.Int(), shape...)
	sym := &symtab.Const{Type: typ}
	g.syms.Insert(def.Name, sym)

	aggregate := aggregateString(flat, shape)
	if g.syms.IsGlobal(def.Name) {
		fmt.Fprintf(b, "global @%s = alloc %s, %s\n\n", sym.InternalName, typ.Koopa(), aggregate)
	} else {
		fmt.Fprintf(b, "    @%s = alloc %s\n", sym.InternalName, typ.Koopa())
		fmt.Fprintf(b, "    store %s, @%s\n", aggregate, sym.InternalName)
	}
	return nil
}

func (g *Generator) lowerVarDef(def ast.Def, b *strings.Builder) error {
	if len(def.Shape) == 0 {
		return g.lowerScalarVarDef(def, b)
	}

	shape, err := g.foldShape(def)
	if err != nil {
		return err
	}
	typ := types.MakeArray(types.Int(), shape...)
	sym := &symtab.Variable{Type: typ}
	g.syms.Insert(def.Name, sym)

	if g.syms.IsGlobal(def.Name) {
		// Global array initializers must fold completely.
		aggregate := "zeroinit"
		if def.Init != nil {
			flat, err := g.flattenConstInit(def.Init, shape, def.Name)
			if err != nil {
				return err
			}
			aggregate = aggregateString(flat, shape)
		}
		fmt.Fprintf(b, "global @%s = alloc %s, %s\n\n", sym.InternalName, typ.Koopa(), aggregate)
		return nil
	}

	fmt.Fprintf(b, "    @%s = alloc %s\n", sym.InternalName, typ.Koopa())
	if def.Init == nil {
		return nil
	}
	base := 0
	return g.lowerLocalArrayInit(sym.InternalName, def.Init, shape, shape, &base, def.Name, b)
}

func (g *Generator) lowerScalarVarDef(def ast.Def, b *strings.Builder) error {
	sym := &symtab.Variable{Type: types.Int()}
	g.syms.Insert(def.Name, sym)

	if g.syms.IsGlobal(def.Name) {
		if def.Init == nil {
			fmt.Fprintf(b, "global @%s = alloc i32, zeroinit\n\n", sym.InternalName)
			return nil
		}
		init, ok := def.Init.(*ast.ExprInit)
		if !ok {
			return fmt.Errorf("scalar %q initialized with a brace list", def.Name)
		}
		value, ok, err := g.foldExpr(init.Expr)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("initializer of global %q is not a constant expression", def.Name)
		}
		fmt.Fprintf(b, "global @%s = alloc i32, %d\n\n", sym.InternalName, value)
		return nil
	}

	fmt.Fprintf(b, "    @%s = alloc i32\n", sym.InternalName)
	if def.Init == nil {
		return nil
	}
	init, ok := def.Init.(*ast.ExprInit)
	if !ok {
		return fmt.Errorf("scalar %q initialized with a brace list", def.Name)
	}
	operand, err := g.operand(init.Expr, b)
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "    store %s, @%s\n", operand, sym.InternalName)
	return nil
}

func (g *Generator) foldShape(def ast.Def) ([]int, error) {
	shape := make([]int, len(def.Shape))
	for i, dim := range def.Shape {
		n, err := g.foldPositive(dim, def.Name)
		if err != nil {
			return nil, err
		}
		shape[i] = n
	}
	return shape, nil
}

// flattenConstInit normalizes a brace initializer into a flat vector
// of folded values. A nested brace list must start on a sub-array
// boundary; it then initializes the largest sub-array aligned there.
// The remainder is zero-filled.
func (g *Generator) flattenConstInit(init ast.InitVal, shape []int, name string) ([]int32, error) {
	list, ok := init.(*ast.ListInit)
	if !ok {
		return nil, fmt.Errorf("array %q initialized with a scalar", name)
	}

	whole := 1
	for _, n := range shape {
		whole *= n
	}

	var flat []int32
	for _, item := range list.Items {
		switch item := item.(type) {
		case *ast.ExprInit:
			value, ok, err := g.foldExpr(item.Expr)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("initializer of %q is not a constant expression", name)
			}
			flat = append(flat, value)

		case *ast.ListInit:
			cut, err := alignCut(len(flat), shape, name)
			if err != nil {
				return nil, err
			}
			part, err := g.flattenConstInit(item, shape[cut:], name)
			if err != nil {
				return nil, err
			}
			flat = append(flat, part...)
		}
	}

	if len(flat) > whole {
		return nil, fmt.Errorf("too many initializers for %q", name)
	}
	for len(flat) < whole {
		flat = append(flat, 0)
	}
	return flat, nil
}

// alignCut finds which sub-array a nested brace list at flat position
// pos initializes: the longest dimension suffix whose boundary pos
// sits on. A position not aligned to the innermost dimension is a
// misaligned initializer.
func alignCut(pos int, shape []int, name string) (int, error) {
	if len(shape) == 0 || pos%shape[len(shape)-1] != 0 {
		return 0, fmt.Errorf("misaligned initializer list for %q", name)
	}
	whole := 1
	for _, n := range shape {
		whole *= n
	}
	cut := 1
	partSize := whole / shape[0]
	for cut < len(shape) && pos%partSize != 0 {
		partSize /= shape[cut]
		cut++
	}
	if cut >= len(shape) {
		return 0, fmt.Errorf("initializer list for %q nested too deeply", name)
	}
	return cut, nil
}

// aggregateString renders a flat vector as a Koopa aggregate,
// collapsing all-zero (sub-)arrays to zeroinit
func aggregateString(flat []int32, shape []int) string {
	allZero := true
	for _, v := range flat {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return "zeroinit"
	}

	var parts []string
	if len(shape) == 1 {
		for _, v := range flat {
			parts = append(parts, strconv.FormatInt(int64(v), 10))
		}
	} else {
		partSize := 1
		for _, n := range shape[1:] {
			partSize *= n
		}
		for i := 0; i < shape[0]; i++ {
			parts = append(parts, aggregateString(flat[i*partSize:(i+1)*partSize], shape[1:]))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// lowerLocalArrayInit emits element-by-element stores for a local
// array initializer. base tracks the flat position inside the whole
// array so that every element store addresses through the full
// getelemptr chain; fullShape stays the declared shape while shape
// narrows in recursion.
func (g *Generator) lowerLocalArrayInit(internalName string, init ast.InitVal, shape, fullShape []int, base *int, name string, b *strings.Builder) error {
	list, ok := init.(*ast.ListInit)
	if !ok {
		return fmt.Errorf("array %q initialized with a scalar", name)
	}

	whole := 1
	for _, n := range shape {
		whole *= n
	}

	count := 0
	for _, item := range list.Items {
		switch item := item.(type) {
		case *ast.ExprInit:
			operand, err := g.operand(item.Expr, b)
			if err != nil {
				return err
			}
			g.emitElementStore(internalName, operand, *base, fullShape, b)
			*base++
			count++

		case *ast.ListInit:
			cut, err := alignCut(count, shape, name)
			if err != nil {
				return err
			}
			if err := g.lowerLocalArrayInit(internalName, item, shape[cut:], fullShape, base, name, b); err != nil {
				return err
			}
			partSize := 1
			for _, n := range shape[cut:] {
				partSize *= n
			}
			count += partSize
		}
	}

	if count > whole {
		return fmt.Errorf("too many initializers for %q", name)
	}
	for count < whole {
		g.emitElementStore(internalName, "0", *base, fullShape, b)
		*base++
		count++
	}
	return nil
}

// emitElementStore addresses element flatIndex of the named array via
// a getelemptr chain and stores value there
func (g *Generator) emitElementStore(internalName, value string, flatIndex int, shape []int, b *strings.Builder) {
	source := "@" + internalName
	for _, index := range flattenToIndices(flatIndex, shape) {
		id := g.newTemp()
		fmt.Fprintf(b, "    %%%d = getelemptr %s, %d\n", id, source, index)
		source = fmt.Sprintf("%%%d", id)
	}
	fmt.Fprintf(b, "    store %s, %s\n", value, source)
}

// flattenToIndices converts a flat element position into one index
// per dimension
func flattenToIndices(flat int, shape []int) []int {
	indices := make([]int, 0, len(shape))
	partSize := 1
	for _, n := range shape[1:] {
		partSize *= n
	}
	for i := 1; i < len(shape); i++ {
		indices = append(indices, flat/partSize)
		flat %= partSize
		partSize /= shape[i]
	}
	return append(indices, flat)
}
