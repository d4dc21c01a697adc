package irgen

import (
	"fmt"

	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/ast"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/symtab"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/types"
)

// foldExpr evaluates e at compile time if possible. Arithmetic follows
// C on 32-bit signed operands; overflow wraps. Division or modulo by a
// folded zero is an error, not a miss.
func (g *Generator) foldExpr(e ast.Expr) (int32, bool, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		return e.Value, true, nil

	case *ast.LValue:
		// Only a scalar const folds; array accesses and variables are
		// runtime values.
		if len(e.Indices) > 0 {
			return 0, false, nil
		}
		sym, ok := g.syms.Lookup(e.Name)
		if !ok {
			return 0, false, nil
		}
		c, ok := sym.(*symtab.Const)
		if !ok {
			return 0, false, nil
		}
		if _, isPrimary := c.Type.(types.Primary); !isPrimary {
			return 0, false, nil
		}
		return c.Value, true, nil

	case *ast.UnaryExpr:
		v, ok, err := g.foldExpr(e.Operand)
		if err != nil || !ok {
			return 0, ok, err
		}
		switch e.Op {
		case "+":
			return v, true, nil
		case "-":
			return -v, true, nil
		case "!":
			return boolToInt(v == 0), true, nil
		}
		return 0, false, nil

	case *ast.BinaryExpr:
		lhs, ok, err := g.foldExpr(e.LHS)
		if err != nil || !ok {
			return 0, ok, err
		}
		rhs, ok, err := g.foldExpr(e.RHS)
		if err != nil || !ok {
			return 0, ok, err
		}
		switch e.Op {
		case "*":
			return lhs * rhs, true, nil
		case "/":
			if rhs == 0 {
				return 0, false, fmt.Errorf("constant expression divides by zero")
			}
			return lhs / rhs, true, nil
		case "%":
			if rhs == 0 {
				return 0, false, fmt.Errorf("constant expression takes modulo by zero")
			}
			return lhs % rhs, true, nil
		case "+":
			return lhs + rhs, true, nil
		case "-":
			return lhs - rhs, true, nil
		case "<":
			return boolToInt(lhs < rhs), true, nil
		case ">":
			return boolToInt(lhs > rhs), true, nil
		case "<=":
			return boolToInt(lhs <= rhs), true, nil
		case ">=":
			return boolToInt(lhs >= rhs), true, nil
		case "==":
			return boolToInt(lhs == rhs), true, nil
		case "!=":
			return boolToInt(lhs != rhs), true, nil
		}
		return 0, false, nil

	case *ast.AndExpr:
		lhs, ok, err := g.foldExpr(e.LHS)
		if err != nil || !ok {
			return 0, ok, err
		}
		if lhs == 0 {
			return 0, true, nil // short circuit
		}
		rhs, ok, err := g.foldExpr(e.RHS)
		if err != nil || !ok {
			return 0, ok, err
		}
		return boolToInt(rhs != 0), true, nil

	case *ast.OrExpr:
		lhs, ok, err := g.foldExpr(e.LHS)
		if err != nil || !ok {
			return 0, ok, err
		}
		if lhs != 0 {
			return 1, true, nil // short circuit
		}
		rhs, ok, err := g.foldExpr(e.RHS)
		if err != nil || !ok {
			return 0, ok, err
		}
		return boolToInt(rhs != 0), true, nil
	}

	// Calls never fold.
	return 0, false, nil
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
