package irgen

import (
	"fmt"
	"strings"

	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/ast"
)

func (g *Generator) lowerStmt(s ast.Stmt, loop loopLabels, b *strings.Builder) error {
	switch s := s.(type) {
	case *ast.ConstDecl:
		return g.lowerConstDecl(s, b)

	case *ast.VarDecl:
		return g.lowerVarDecl(s, b)

	case *ast.Block:
		g.syms.Push()
		defer g.syms.Pop()
		for _, item := range s.Items {
			if err := g.lowerStmt(item, loop, b); err != nil {
				return err
			}
		}
		return nil

	case *ast.ReturnStmt:
		if s.Expr != nil {
			operand, err := g.operand(s.Expr, b)
			if err != nil {
				return err
			}
			fmt.Fprintf(b, "    ret %s\n", operand)
		} else {
			b.WriteString("    ret\n")
		}
		// Keep subsequent code well-labeled: open a fresh
		// (unreachable) block after the terminator.
		fmt.Fprintf(b, "%%%s:\n", g.newSeq())
		return nil

	case *ast.AssignStmt:
		operand, err := g.operand(s.Expr, b)
		if err != nil {
			return err
		}
		target, _, err := g.lvalueAddr(s.Target, b)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "    store %s, %s\n", operand, target)
		return nil

	case *ast.ExprStmt:
		if s.Expr == nil {
			return nil
		}
		// A foldable expression has no side effects; skip it.
		if _, ok, err := g.foldExpr(s.Expr); err != nil {
			return err
		} else if ok {
			return nil
		}
		_, err := g.lowerExpr(s.Expr, b)
		return err

	case *ast.IfStmt:
		ifLabel, elseLabel := g.newIf()
		next := g.newSeq()

		cond, err := g.operand(s.Cond, b)
		if err != nil {
			return err
		}
		falseTarget := next
		if s.Else != nil {
			falseTarget = elseLabel
		}
		fmt.Fprintf(b, "    br %s, %%%s, %%%s\n", cond, ifLabel, falseTarget)
		fmt.Fprintf(b, "%%%s:\n", ifLabel)
		if err := g.lowerStmt(s.Then, loop, b); err != nil {
			return err
		}
		fmt.Fprintf(b, "    jump %%%s\n", next)
		if s.Else != nil {
			fmt.Fprintf(b, "%%%s:\n", elseLabel)
			if err := g.lowerStmt(s.Else, loop, b); err != nil {
				return err
			}
			fmt.Fprintf(b, "    jump %%%s\n", next)
		}
		fmt.Fprintf(b, "%%%s:\n", next)
		return nil

	case *ast.WhileStmt:
		header, body := g.newWhile()
		next := g.newSeq()

		fmt.Fprintf(b, "    jump %%%s\n", header)
		fmt.Fprintf(b, "%%%s:\n", header)
		cond, err := g.operand(s.Cond, b)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "    br %s, %%%s, %%%s\n", cond, body, next)

		fmt.Fprintf(b, "%%%s:\n", body)
		inner := loopLabels{breakTarget: next, continueTarget: header}
		if err := g.lowerStmt(s.Body, inner, b); err != nil {
			return err
		}
		fmt.Fprintf(b, "    jump %%%s\n", header)

		fmt.Fprintf(b, "%%%s:\n", next)
		return nil

	case *ast.BreakStmt:
		if loop.breakTarget == "" {
			return fmt.Errorf("break statement outside of a loop")
		}
		fmt.Fprintf(b, "    jump %%%s\n", loop.breakTarget)
		fmt.Fprintf(b, "%%%s:\n", g.newSeq())
		return nil

	case *ast.ContinueStmt:
		if loop.continueTarget == "" {
			return fmt.Errorf("continue statement outside of a loop")
		}
		fmt.Fprintf(b, "    jump %%%s\n", loop.continueTarget)
		fmt.Fprintf(b, "%%%s:\n", g.newSeq())
		return nil
	}
	return fmt.Errorf("unexpected statement %T", s)
}
