// Package irgen lowers the SysY AST to Koopa IR text.
//
// A Generator carries the symbol table and the monotone counters for
// temporaries and labels. Statement lowering threads a small loopLabels
// context downwards instead of mutating AST nodes; constant folding is
// a single Generator method that type-switches over the expression tree
// (fold.go), not a method on the nodes.
package irgen

import (
	"fmt"
	"strings"

	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/ast"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/symtab"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/types"
)

// Generator holds the lowering state for one translation unit
type Generator struct {
	syms *symtab.Table

	temp    int // %N temporaries
	seq     int // seq_k labels
	ifID    int // if_k / else_k labels
	landID  int // land_k / land_sc_k labels
	lorID   int // lor_k / lor_sc_k labels
	whileID int // while_k / while_body_k labels
}

// loopLabels carries the branch targets of the innermost enclosing
// loop down the statement walk
type loopLabels struct {
	breakTarget    string
	continueTarget string
}

// New creates a Generator with a fresh symbol table
func New() *Generator {
	return &Generator{syms: symtab.New()}
}

func (g *Generator) newTemp() int {
	g.temp++
	return g.temp
}

func (g *Generator) newSeq() string {
	g.seq++
	return fmt.Sprintf("seq_%d", g.seq)
}

func (g *Generator) newIf() (ifLabel, elseLabel string) {
	g.ifID++
	return fmt.Sprintf("if_%d", g.ifID), fmt.Sprintf("else_%d", g.ifID)
}

func (g *Generator) newLand() (evalLabel, shortLabel string) {
	g.landID++
	return fmt.Sprintf("land_%d", g.landID), fmt.Sprintf("land_sc_%d", g.landID)
}

func (g *Generator) newLor() (evalLabel, shortLabel string) {
	g.lorID++
	return fmt.Sprintf("lor_%d", g.lorID), fmt.Sprintf("lor_sc_%d", g.lorID)
}

func (g *Generator) newWhile() (headerLabel, bodyLabel string) {
	g.whileID++
	return fmt.Sprintf("while_%d", g.whileID), fmt.Sprintf("while_body_%d", g.whileID)
}

// libraryFunction describes one entry of the fixed SysY runtime
type libraryFunction struct {
	name string
	typ  types.Function
}

var libraryFunctions = []libraryFunction{
	{"getint", types.Function{Return: types.Int()}},
	{"getch", types.Function{Return: types.Int()}},
	{"getarray", types.Function{Return: types.Int(), Params: []types.Type{types.Pointer{Elem: types.Int()}}}},
	{"putint", types.Function{Return: types.Void(), Params: []types.Type{types.Int()}}},
	{"putch", types.Function{Return: types.Void(), Params: []types.Type{types.Int()}}},
	{"putarray", types.Function{Return: types.Void(), Params: []types.Type{types.Int(), types.Pointer{Elem: types.Int()}}}},
	{"starttime", types.Function{Return: types.Void()}},
	{"stoptime", types.Function{Return: types.Void()}},
}

// Generate lowers a program to Koopa IR text
func Generate(prog *ast.Program) (string, error) {
	g := New()
	var b strings.Builder

	// Library functions live at global scope and are declared up front.
	for _, lib := range libraryFunctions {
		g.syms.Insert(lib.name, &symtab.Function{Type: lib.typ})
		fmt.Fprintf(&b, "decl @%s%s\n", lib.name, lib.typ.Koopa())
	}
	b.WriteString("\n")

	for _, item := range prog.Items {
		var err error
		switch item := item.(type) {
		case *ast.ConstDecl:
			err = g.lowerConstDecl(item, &b)
		case *ast.VarDecl:
			err = g.lowerVarDecl(item, &b)
		case *ast.FuncDef:
			err = g.lowerFunction(item, &b)
		default:
			err = fmt.Errorf("unexpected top-level item %T", item)
		}
		if err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func (g *Generator) lowerFunction(fn *ast.FuncDef, b *strings.Builder) error {
	fnType := types.Function{Return: types.Void()}
	if fn.ReturnType == "int" {
		fnType.Return = types.Int()
	}
	paramTypes := make([]types.Type, len(fn.Params))
	for i, param := range fn.Params {
		typ, err := g.paramType(param)
		if err != nil {
			return err
		}
		paramTypes[i] = typ
	}
	fnType.Params = paramTypes
	g.syms.Insert(fn.Name, &symtab.Function{Type: fnType})

	g.syms.Push()
	defer g.syms.Pop()

	var params strings.Builder
	for i, param := range fn.Params {
		if i > 0 {
			params.WriteString(", ")
		}
		fmt.Fprintf(&params, "@%s: %s", param.Name, paramTypes[i].Koopa())
	}
	retSuffix := ""
	if ret := fnType.Return.Koopa(); ret != "" {
		retSuffix = ": " + ret
	}
	fmt.Fprintf(b, "fun @%s(%s)%s {\n", fn.Name, params.String(), retSuffix)
	fmt.Fprintf(b, "%%%s_entry:\n", fn.Name)

	// Every parameter gets a local slot so it can be addressed like an
	// ordinary variable.
	for i, param := range fn.Params {
		sym := &symtab.Variable{Type: paramTypes[i]}
		g.syms.Insert(param.Name, sym)
		fmt.Fprintf(b, "    @%s = alloc %s\n", sym.InternalName, paramTypes[i].Koopa())
		fmt.Fprintf(b, "    store @%s, @%s\n", param.Name, sym.InternalName)
	}

	if err := g.lowerStmt(fn.Body, loopLabels{}, b); err != nil {
		return err
	}

	// Guarantee every control-flow exit reaches a ret.
	if types.IsVoid(fnType.Return) {
		b.WriteString("    ret\n")
	} else {
		b.WriteString("    ret 0\n")
	}
	b.WriteString("}\n\n")
	return nil
}

// paramType resolves a formal parameter's type; array parameters decay
// to a pointer to their element type
func (g *Generator) paramType(param ast.Param) (types.Type, error) {
	if !param.IsArray {
		return types.Int(), nil
	}
	lens := make([]int, len(param.ArrayShape))
	for i, dim := range param.ArrayShape {
		n, err := g.foldPositive(dim, param.Name)
		if err != nil {
			return nil, err
		}
		lens[i] = n
	}
	return types.Pointer{Elem: types.MakeArray(types.Int(), lens...)}, nil
}

// foldPositive folds an array-shape expression to a positive integer
func (g *Generator) foldPositive(e ast.Expr, name string) (int, error) {
	v, ok, err := g.foldExpr(e)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("array dimension of %q is not a constant expression", name)
	}
	if v <= 0 {
		return 0, fmt.Errorf("array dimension of %q must be positive, got %d", name, v)
	}
	return int(v), nil
}
