package irgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/ast"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/symtab"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/types"
)

// operand lowers e to an operand string: the folded value inline when
// e is a constant expression, otherwise the %N temporary computed by
// emitted code
func (g *Generator) operand(e ast.Expr, b *strings.Builder) (string, error) {
	v, ok, err := g.foldExpr(e)
	if err != nil {
		return "", err
	}
	if ok {
		return strconv.FormatInt(int64(v), 10), nil
	}
	id, err := g.lowerExpr(e, b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%%%d", id), nil
}

var binaryOpNames = map[string]string{
	"*":  "mul",
	"/":  "div",
	"%":  "mod",
	"+":  "add",
	"-":  "sub",
	"<":  "lt",
	">":  "gt",
	"<=": "le",
	">=": "ge",
	"==": "eq",
	"!=": "ne",
}

// lowerExpr emits code computing e and returns the id of the
// temporary holding the result
func (g *Generator) lowerExpr(e ast.Expr, b *strings.Builder) (int, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		// Normally folded away by operand; keep a lowering anyway.
		id := g.newTemp()
		fmt.Fprintf(b, "    %%%d = add 0, %d\n", id, e.Value)
		return id, nil

	case *ast.LValue:
		return g.lowerLValueLoad(e, b)

	case *ast.UnaryExpr:
		// Unary ops reuse the binary forms with a zero left operand:
		// +x = add 0, x; -x = sub 0, x; !x = eq 0, x.
		operand, err := g.operand(e.Operand, b)
		if err != nil {
			return 0, err
		}
		var opName string
		switch e.Op {
		case "+":
			opName = "add"
		case "-":
			opName = "sub"
		case "!":
			opName = "eq"
		default:
			return 0, fmt.Errorf("unknown unary operator %q", e.Op)
		}
		id := g.newTemp()
		fmt.Fprintf(b, "    %%%d = %s 0, %s\n", id, opName, operand)
		return id, nil

	case *ast.BinaryExpr:
		lhs, err := g.operand(e.LHS, b)
		if err != nil {
			return 0, err
		}
		rhs, err := g.operand(e.RHS, b)
		if err != nil {
			return 0, err
		}
		opName, ok := binaryOpNames[e.Op]
		if !ok {
			return 0, fmt.Errorf("unknown binary operator %q", e.Op)
		}
		id := g.newTemp()
		fmt.Fprintf(b, "    %%%d = %s %s, %s\n", id, opName, lhs, rhs)
		return id, nil

	case *ast.AndExpr:
		return g.lowerShortCircuit(e.LHS, e.RHS, true, b)

	case *ast.OrExpr:
		return g.lowerShortCircuit(e.LHS, e.RHS, false, b)

	case *ast.CallExpr:
		return g.lowerCall(e, b)

	case *ast.AssignExpr:
		operand, err := g.operand(e.Expr, b)
		if err != nil {
			return 0, err
		}
		target, _, err := g.lvalueAddr(e.Target, b)
		if err != nil {
			return 0, err
		}
		fmt.Fprintf(b, "    store %s, %s\n", operand, target)
		// The value of an assignment is the stored value.
		id := g.newTemp()
		fmt.Fprintf(b, "    %%%d = add 0, %s\n", id, operand)
		return id, nil
	}
	return 0, fmt.Errorf("unexpected expression %T", e)
}

// lowerShortCircuit materializes a && b or a || b through a stack
// slot: the slot is seeded with 1 for && and 0 for ||, each branch then
// stores its own result into it, the right side only runs on the branch
// where it matters, and both operands are normalized with ne before the
// bitwise combine.
func (g *Generator) lowerShortCircuit(lhs, rhs ast.Expr, isAnd bool, b *strings.Builder) (int, error) {
	var evalLabel, shortLabel string
	if isAnd {
		evalLabel, shortLabel = g.newLand()
	} else {
		evalLabel, shortLabel = g.newLor()
	}
	next := g.newSeq()

	slot := g.newTemp()
	fmt.Fprintf(b, "    %%%d = alloc i32\n", slot)
	if isAnd {
		fmt.Fprintf(b, "    store 1, %%%d\n", slot)
	} else {
		fmt.Fprintf(b, "    store 0, %%%d\n", slot)
	}

	left, err := g.operand(lhs, b)
	if err != nil {
		return 0, err
	}
	if isAnd {
		// A false left side skips the right side entirely.
		fmt.Fprintf(b, "    br %s, %%%s, %%%s\n", left, evalLabel, shortLabel)
	} else {
		// A true left side skips the right side entirely.
		fmt.Fprintf(b, "    br %s, %%%s, %%%s\n", left, shortLabel, evalLabel)
	}

	fmt.Fprintf(b, "%%%s:\n", evalLabel)
	right, err := g.operand(rhs, b)
	if err != nil {
		return 0, err
	}
	leftBool := g.newTemp()
	fmt.Fprintf(b, "    %%%d = ne %s, 0\n", leftBool, left)
	rightBool := g.newTemp()
	fmt.Fprintf(b, "    %%%d = ne %s, 0\n", rightBool, right)
	combined := g.newTemp()
	if isAnd {
		fmt.Fprintf(b, "    %%%d = and %%%d, %%%d\n", combined, leftBool, rightBool)
	} else {
		fmt.Fprintf(b, "    %%%d = or %%%d, %%%d\n", combined, leftBool, rightBool)
	}
	fmt.Fprintf(b, "    store %%%d, %%%d\n", combined, slot)
	fmt.Fprintf(b, "    jump %%%s\n", next)

	fmt.Fprintf(b, "%%%s:\n", shortLabel)
	if isAnd {
		fmt.Fprintf(b, "    store 0, %%%d\n", slot)
	} else {
		fmt.Fprintf(b, "    store 1, %%%d\n", slot)
	}
	fmt.Fprintf(b, "    jump %%%s\n", next)

	fmt.Fprintf(b, "%%%s:\n", next)
	result := g.newTemp()
	fmt.Fprintf(b, "    %%%d = load %%%d\n", result, slot)
	return result, nil
}

func (g *Generator) lowerCall(e *ast.CallExpr, b *strings.Builder) (int, error) {
	sym, ok := g.syms.Lookup(e.Name)
	if !ok {
		return 0, fmt.Errorf("call of undeclared function %q", e.Name)
	}
	fn, ok := sym.(*symtab.Function)
	if !ok {
		return 0, fmt.Errorf("%q is not a function", e.Name)
	}

	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		operand, err := g.operand(arg, b)
		if err != nil {
			return 0, err
		}
		args[i] = operand
	}

	if types.IsVoid(fn.Type.Return) {
		fmt.Fprintf(b, "    call @%s(%s)\n", fn.InternalName, strings.Join(args, ", "))
		return 0, nil
	}
	id := g.newTemp()
	fmt.Fprintf(b, "    %%%d = call @%s(%s)\n", id, fn.InternalName, strings.Join(args, ", "))
	return id, nil
}
