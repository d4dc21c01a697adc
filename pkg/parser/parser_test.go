package parser

import (
	"testing"

	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/ast"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/lexer"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parser errors: %v", p.Errors())
	}
	return program
}

func TestParseEmptyMain(t *testing.T) {
	program := parse(t, "int main() { return 0; }")
	if len(program.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(program.Items))
	}
	fn, ok := program.Items[0].(*ast.FuncDef)
	if !ok {
		t.Fatalf("expected *ast.FuncDef, got %T", program.Items[0])
	}
	if fn.Name != "main" || fn.ReturnType != "int" {
		t.Errorf("unexpected function %s %s", fn.ReturnType, fn.Name)
	}
	if len(fn.Body.Items) != 1 {
		t.Fatalf("expected 1 body item, got %d", len(fn.Body.Items))
	}
	ret, ok := fn.Body.Items[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("expected *ast.ReturnStmt, got %T", fn.Body.Items[0])
	}
	lit, ok := ret.Expr.(*ast.IntLit)
	if !ok {
		t.Fatalf("expected *ast.IntLit, got %T", ret.Expr)
	}
	if lit.Value != 0 {
		t.Errorf("expected 0, got %d", lit.Value)
	}
}

func TestParsePrecedence(t *testing.T) {
	program := parse(t, "int main() { return 1 + 2 * 3; }")
	fn := program.Items[0].(*ast.FuncDef)
	ret := fn.Body.Items[0].(*ast.ReturnStmt)

	add, ok := ret.Expr.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected *ast.BinaryExpr, got %T", ret.Expr)
	}
	if add.Op != "+" {
		t.Fatalf("expected top-level +, got %q", add.Op)
	}
	mul, ok := add.RHS.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected RHS *ast.BinaryExpr, got %T", add.RHS)
	}
	if mul.Op != "*" {
		t.Errorf("expected *, got %q", mul.Op)
	}
}

func TestParseLogicalOperators(t *testing.T) {
	program := parse(t, "int main() { return 1 || 2 && 3; }")
	fn := program.Items[0].(*ast.FuncDef)
	ret := fn.Body.Items[0].(*ast.ReturnStmt)

	// && binds tighter than ||.
	or, ok := ret.Expr.(*ast.OrExpr)
	if !ok {
		t.Fatalf("expected *ast.OrExpr, got %T", ret.Expr)
	}
	if _, ok := or.RHS.(*ast.AndExpr); !ok {
		t.Fatalf("expected RHS *ast.AndExpr, got %T", or.RHS)
	}
}

func TestParseUnaryChain(t *testing.T) {
	program := parse(t, "int main() { return !-+1; }")
	fn := program.Items[0].(*ast.FuncDef)
	ret := fn.Body.Items[0].(*ast.ReturnStmt)

	not, ok := ret.Expr.(*ast.UnaryExpr)
	if !ok || not.Op != "!" {
		t.Fatalf("expected !, got %T", ret.Expr)
	}
	neg, ok := not.Operand.(*ast.UnaryExpr)
	if !ok || neg.Op != "-" {
		t.Fatalf("expected -, got %T", not.Operand)
	}
	pos, ok := neg.Operand.(*ast.UnaryExpr)
	if !ok || pos.Op != "+" {
		t.Fatalf("expected +, got %T", neg.Operand)
	}
}

func TestParseIntLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  int32
	}{
		{"42", 42},
		{"0", 0},
		{"0x2a", 42},
		{"0X2A", 42},
		{"052", 42},
		{"2147483647", 2147483647},
	}
	for _, tt := range tests {
		program := parse(t, "int main() { return "+tt.input+"; }")
		fn := program.Items[0].(*ast.FuncDef)
		ret := fn.Body.Items[0].(*ast.ReturnStmt)
		lit, ok := ret.Expr.(*ast.IntLit)
		if !ok {
			t.Fatalf("%s: expected *ast.IntLit, got %T", tt.input, ret.Expr)
		}
		if lit.Value != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.input, tt.want, lit.Value)
		}
	}
}

func TestParseAssignment(t *testing.T) {
	program := parse(t, "int main() { int x; x = 5; a[1][2] = 3; return 0; }")
	fn := program.Items[0].(*ast.FuncDef)

	assign, ok := fn.Body.Items[1].(*ast.AssignStmt)
	if !ok {
		t.Fatalf("expected *ast.AssignStmt, got %T", fn.Body.Items[1])
	}
	if assign.Target.Name != "x" {
		t.Errorf("expected target x, got %q", assign.Target.Name)
	}

	assign, ok = fn.Body.Items[2].(*ast.AssignStmt)
	if !ok {
		t.Fatalf("expected *ast.AssignStmt, got %T", fn.Body.Items[2])
	}
	if assign.Target.Name != "a" || len(assign.Target.Indices) != 2 {
		t.Errorf("expected a with 2 indices, got %q with %d",
			assign.Target.Name, len(assign.Target.Indices))
	}
}

func TestParseAssignmentExpression(t *testing.T) {
	program := parse(t, "int main() { int x = 0; if (1 && (x = 5)) {} return x; }")
	fn := program.Items[0].(*ast.FuncDef)
	ifStmt, ok := fn.Body.Items[1].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected *ast.IfStmt, got %T", fn.Body.Items[1])
	}
	and, ok := ifStmt.Cond.(*ast.AndExpr)
	if !ok {
		t.Fatalf("expected *ast.AndExpr, got %T", ifStmt.Cond)
	}
	assign, ok := and.RHS.(*ast.AssignExpr)
	if !ok {
		t.Fatalf("expected *ast.AssignExpr, got %T", and.RHS)
	}
	if assign.Target.Name != "x" {
		t.Errorf("expected target x, got %q", assign.Target.Name)
	}
}

func TestParseControlFlow(t *testing.T) {
	program := parse(t, `int main() {
    while (1) {
        if (0) break; else continue;
    }
    return 0;
}`)
	fn := program.Items[0].(*ast.FuncDef)
	while, ok := fn.Body.Items[0].(*ast.WhileStmt)
	if !ok {
		t.Fatalf("expected *ast.WhileStmt, got %T", fn.Body.Items[0])
	}
	body, ok := while.Body.(*ast.Block)
	if !ok {
		t.Fatalf("expected *ast.Block, got %T", while.Body)
	}
	ifStmt, ok := body.Items[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected *ast.IfStmt, got %T", body.Items[0])
	}
	if _, ok := ifStmt.Then.(*ast.BreakStmt); !ok {
		t.Errorf("expected *ast.BreakStmt, got %T", ifStmt.Then)
	}
	if _, ok := ifStmt.Else.(*ast.ContinueStmt); !ok {
		t.Errorf("expected *ast.ContinueStmt, got %T", ifStmt.Else)
	}
}

func TestParseDanglingElse(t *testing.T) {
	program := parse(t, "int main() { if (1) if (2) return 1; else return 2; return 0; }")
	fn := program.Items[0].(*ast.FuncDef)
	outer := fn.Body.Items[0].(*ast.IfStmt)
	if outer.Else != nil {
		t.Fatal("expected else to bind to the inner if")
	}
	inner, ok := outer.Then.(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected inner *ast.IfStmt, got %T", outer.Then)
	}
	if inner.Else == nil {
		t.Fatal("expected inner if to own the else branch")
	}
}

func TestParseDeclarations(t *testing.T) {
	program := parse(t, `const int N = 5, M = 6;
int g = 1, h;
int a[2][3] = {{1, 2, 3}, {4, 5, 6}};
int main() { return 0; }`)

	constDecl, ok := program.Items[0].(*ast.ConstDecl)
	if !ok {
		t.Fatalf("expected *ast.ConstDecl, got %T", program.Items[0])
	}
	if len(constDecl.Defs) != 2 {
		t.Fatalf("expected 2 const defs, got %d", len(constDecl.Defs))
	}
	if constDecl.Defs[0].Name != "N" || constDecl.Defs[1].Name != "M" {
		t.Errorf("unexpected const names %q, %q",
			constDecl.Defs[0].Name, constDecl.Defs[1].Name)
	}

	varDecl, ok := program.Items[1].(*ast.VarDecl)
	if !ok {
		t.Fatalf("expected *ast.VarDecl, got %T", program.Items[1])
	}
	if len(varDecl.Defs) != 2 {
		t.Fatalf("expected 2 var defs, got %d", len(varDecl.Defs))
	}
	if varDecl.Defs[1].Init != nil {
		t.Error("expected h to have no initializer")
	}

	arrDecl := program.Items[2].(*ast.VarDecl)
	def := arrDecl.Defs[0]
	if len(def.Shape) != 2 {
		t.Fatalf("expected 2 dimensions, got %d", len(def.Shape))
	}
	list, ok := def.Init.(*ast.ListInit)
	if !ok {
		t.Fatalf("expected *ast.ListInit, got %T", def.Init)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 sub-lists, got %d", len(list.Items))
	}
	if _, ok := list.Items[0].(*ast.ListInit); !ok {
		t.Errorf("expected nested *ast.ListInit, got %T", list.Items[0])
	}
}

func TestParseFunctionParams(t *testing.T) {
	program := parse(t, "int sum(int n, int p[], int q[][5]) { return 0; }")
	fn := program.Items[0].(*ast.FuncDef)
	if len(fn.Params) != 3 {
		t.Fatalf("expected 3 params, got %d", len(fn.Params))
	}
	if fn.Params[0].IsArray {
		t.Error("expected n to be scalar")
	}
	if !fn.Params[1].IsArray || len(fn.Params[1].ArrayShape) != 0 {
		t.Error("expected p to be a one-dimensional array parameter")
	}
	if !fn.Params[2].IsArray || len(fn.Params[2].ArrayShape) != 1 {
		t.Error("expected q to carry one extra dimension")
	}
}

func TestParseCall(t *testing.T) {
	program := parse(t, "int main() { putint(getint() + 1); return 0; }")
	fn := program.Items[0].(*ast.FuncDef)
	stmt, ok := fn.Body.Items[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected *ast.ExprStmt, got %T", fn.Body.Items[0])
	}
	call, ok := stmt.Expr.(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected *ast.CallExpr, got %T", stmt.Expr)
	}
	if call.Name != "putint" || len(call.Args) != 1 {
		t.Fatalf("unexpected call %q with %d args", call.Name, len(call.Args))
	}
	add, ok := call.Args[0].(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected *ast.BinaryExpr, got %T", call.Args[0])
	}
	if _, ok := add.LHS.(*ast.CallExpr); !ok {
		t.Errorf("expected nested call, got %T", add.LHS)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"int main() { return 0 }",  // missing semicolon
		"int main() { if 1 {} }",   // missing parentheses
		"const int C;",             // const without initializer
		"void x;",                  // void variable
	}
	for _, input := range tests {
		p := New(lexer.New(input))
		p.ParseProgram()
		if len(p.Errors()) == 0 {
			t.Errorf("%q: expected a parse error", input)
		}
	}
}
