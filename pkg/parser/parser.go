// Package parser implements a recursive descent parser for SysY
package parser

import (
	"fmt"
	"strconv"

	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/ast"
	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/lexer"
)

// Parser parses SysY source code into an AST
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s",
		p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

// expect consumes the current token if it has the wanted type, and
// records an error otherwise
func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("expected %s, got %s", t, p.curToken.Type))
	return false
}

// ParseProgram parses a complete compilation unit
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	for !p.curTokenIs(lexer.TokenEOF) {
		item := p.parseTopLevel()
		if item == nil {
			// Do not loop forever on a token we cannot start from.
			p.nextToken()
			continue
		}
		program.Items = append(program.Items, item)
	}
	return program
}

func (p *Parser) parseTopLevel() ast.Item {
	switch p.curToken.Type {
	case lexer.TokenConst:
		return p.parseConstDecl()
	case lexer.TokenInt_, lexer.TokenVoid:
		btype := p.curToken.Literal
		p.nextToken()
		if !p.curTokenIs(lexer.TokenIdent) {
			p.addError(fmt.Sprintf("expected identifier, got %s", p.curToken.Type))
			return nil
		}
		name := p.curToken.Literal
		p.nextToken()
		if p.curTokenIs(lexer.TokenLParen) {
			return p.parseFuncDef(btype, name)
		}
		if btype == "void" {
			p.addError("variables cannot have type void")
			return nil
		}
		return p.parseVarDeclRest(name)
	}
	p.addError(fmt.Sprintf("expected declaration or function, got %s", p.curToken.Type))
	return nil
}

// parseFuncDef parses from the opening parenthesis of the parameter
// list onwards
func (p *Parser) parseFuncDef(returnType, name string) ast.Item {
	fn := &ast.FuncDef{ReturnType: returnType, Name: name}

	p.nextToken() // consume '('
	for !p.curTokenIs(lexer.TokenRParen) && !p.curTokenIs(lexer.TokenEOF) {
		param, ok := p.parseParam()
		if !ok {
			return nil
		}
		fn.Params = append(fn.Params, param)
		if p.curTokenIs(lexer.TokenComma) {
			p.nextToken()
		}
	}
	if !p.expect(lexer.TokenRParen) {
		return nil
	}

	if !p.curTokenIs(lexer.TokenLBrace) {
		p.addError(fmt.Sprintf("expected '{', got %s", p.curToken.Type))
		return nil
	}
	fn.Body = p.parseBlock()
	return fn
}

// parseParam parses "int name" optionally followed by "[]" and more
// bracketed constant dimensions
func (p *Parser) parseParam() (ast.Param, bool) {
	var param ast.Param
	if !p.expect(lexer.TokenInt_) {
		return param, false
	}
	if !p.curTokenIs(lexer.TokenIdent) {
		p.addError(fmt.Sprintf("expected parameter name, got %s", p.curToken.Type))
		return param, false
	}
	param.Name = p.curToken.Literal
	p.nextToken()

	if p.curTokenIs(lexer.TokenLBracket) {
		// First dimension is written empty: "int a[]"
		p.nextToken()
		if !p.expect(lexer.TokenRBracket) {
			return param, false
		}
		param.IsArray = true
		for p.curTokenIs(lexer.TokenLBracket) {
			p.nextToken()
			dim := p.parseExpr()
			param.ArrayShape = append(param.ArrayShape, dim)
			if !p.expect(lexer.TokenRBracket) {
				return param, false
			}
		}
	}
	return param, true
}

func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{}

	p.nextToken() // consume '{'
	for !p.curTokenIs(lexer.TokenRBrace) && !p.curTokenIs(lexer.TokenEOF) {
		var stmt ast.Stmt
		switch p.curToken.Type {
		case lexer.TokenConst:
			stmt = p.parseConstDecl()
		case lexer.TokenInt_:
			p.nextToken()
			if !p.curTokenIs(lexer.TokenIdent) {
				p.addError(fmt.Sprintf("expected identifier, got %s", p.curToken.Type))
				p.nextToken()
				continue
			}
			name := p.curToken.Literal
			p.nextToken()
			stmt = p.parseVarDeclRest(name)
		default:
			stmt = p.parseStatement()
		}
		if stmt != nil {
			block.Items = append(block.Items, stmt)
		}
	}
	p.nextToken() // consume '}'

	return block
}

// parseConstDecl parses "const int" and a definition list
func (p *Parser) parseConstDecl() *ast.ConstDecl {
	p.nextToken() // consume 'const'
	if !p.expect(lexer.TokenInt_) {
		return nil
	}
	decl := &ast.ConstDecl{}
	for {
		def, ok := p.parseDef(true)
		if !ok {
			return nil
		}
		decl.Defs = append(decl.Defs, def)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	if !p.expect(lexer.TokenSemicolon) {
		return nil
	}
	return decl
}

// parseVarDeclRest parses a variable declaration whose base type and
// first name have already been consumed
func (p *Parser) parseVarDeclRest(firstName string) *ast.VarDecl {
	decl := &ast.VarDecl{}
	def, ok := p.parseDefRest(firstName, false)
	if !ok {
		return nil
	}
	decl.Defs = append(decl.Defs, def)
	for p.curTokenIs(lexer.TokenComma) {
		p.nextToken()
		def, ok := p.parseDef(false)
		if !ok {
			return nil
		}
		decl.Defs = append(decl.Defs, def)
	}
	if !p.expect(lexer.TokenSemicolon) {
		return nil
	}
	return decl
}

func (p *Parser) parseDef(requireInit bool) (ast.Def, bool) {
	if !p.curTokenIs(lexer.TokenIdent) {
		p.addError(fmt.Sprintf("expected identifier, got %s", p.curToken.Type))
		return ast.Def{}, false
	}
	name := p.curToken.Literal
	p.nextToken()
	return p.parseDefRest(name, requireInit)
}

// parseDefRest parses the shape and initializer of a definition whose
// name has already been consumed
func (p *Parser) parseDefRest(name string, requireInit bool) (ast.Def, bool) {
	def := ast.Def{Name: name}
	for p.curTokenIs(lexer.TokenLBracket) {
		p.nextToken()
		dim := p.parseExpr()
		def.Shape = append(def.Shape, dim)
		if !p.expect(lexer.TokenRBracket) {
			return def, false
		}
	}
	if p.curTokenIs(lexer.TokenAssign) {
		p.nextToken()
		init, ok := p.parseInitVal()
		if !ok {
			return def, false
		}
		def.Init = init
	} else if requireInit {
		p.addError(fmt.Sprintf("constant %s must have an initializer", name))
		return def, false
	}
	return def, true
}

func (p *Parser) parseInitVal() (ast.InitVal, bool) {
	if !p.curTokenIs(lexer.TokenLBrace) {
		return &ast.ExprInit{Expr: p.parseExpr()}, true
	}
	p.nextToken() // consume '{'
	list := &ast.ListInit{}
	for !p.curTokenIs(lexer.TokenRBrace) && !p.curTokenIs(lexer.TokenEOF) {
		item, ok := p.parseInitVal()
		if !ok {
			return nil, false
		}
		list.Items = append(list.Items, item)
		if p.curTokenIs(lexer.TokenComma) {
			p.nextToken()
		}
	}
	if !p.expect(lexer.TokenRBrace) {
		return nil, false
	}
	return list, true
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.curToken.Type {
	case lexer.TokenReturn:
		p.nextToken()
		stmt := &ast.ReturnStmt{}
		if !p.curTokenIs(lexer.TokenSemicolon) {
			stmt.Expr = p.parseExpr()
		}
		p.expect(lexer.TokenSemicolon)
		return stmt

	case lexer.TokenLBrace:
		return p.parseBlock()

	case lexer.TokenIf:
		p.nextToken()
		if !p.expect(lexer.TokenLParen) {
			return nil
		}
		stmt := &ast.IfStmt{Cond: p.parseExpr()}
		if !p.expect(lexer.TokenRParen) {
			return nil
		}
		stmt.Then = p.parseStatement()
		if p.curTokenIs(lexer.TokenElse) {
			p.nextToken()
			stmt.Else = p.parseStatement()
		}
		return stmt

	case lexer.TokenWhile:
		p.nextToken()
		if !p.expect(lexer.TokenLParen) {
			return nil
		}
		stmt := &ast.WhileStmt{Cond: p.parseExpr()}
		if !p.expect(lexer.TokenRParen) {
			return nil
		}
		stmt.Body = p.parseStatement()
		return stmt

	case lexer.TokenBreak:
		p.nextToken()
		p.expect(lexer.TokenSemicolon)
		return &ast.BreakStmt{}

	case lexer.TokenContinue:
		p.nextToken()
		p.expect(lexer.TokenSemicolon)
		return &ast.ContinueStmt{}

	case lexer.TokenSemicolon:
		p.nextToken()
		return &ast.ExprStmt{}

	default:
		// Either "LVal = Exp ;" or "Exp ;". parseExpr recognizes the
		// assignment form; rewrap it as a statement here.
		expr := p.parseExpr()
		if assign, ok := expr.(*ast.AssignExpr); ok {
			p.expect(lexer.TokenSemicolon)
			return &ast.AssignStmt{Target: assign.Target, Expr: assign.Expr}
		}
		p.expect(lexer.TokenSemicolon)
		return &ast.ExprStmt{Expr: expr}
	}
}

// parseExpr parses a full expression. An lvalue followed by "=" is an
// assignment expression; otherwise precedence starts at logical OR.
func (p *Parser) parseExpr() ast.Expr {
	expr := p.parseLOr()
	if lv, ok := expr.(*ast.LValue); ok && p.curTokenIs(lexer.TokenAssign) {
		p.nextToken()
		return &ast.AssignExpr{Target: lv, Expr: p.parseExpr()}
	}
	return expr
}

func (p *Parser) parseLOr() ast.Expr {
	left := p.parseLAnd()
	for p.curTokenIs(lexer.TokenOr) {
		p.nextToken()
		left = &ast.OrExpr{LHS: left, RHS: p.parseLAnd()}
	}
	return left
}

func (p *Parser) parseLAnd() ast.Expr {
	left := p.parseEq()
	for p.curTokenIs(lexer.TokenAnd) {
		p.nextToken()
		left = &ast.AndExpr{LHS: left, RHS: p.parseEq()}
	}
	return left
}

func (p *Parser) parseEq() ast.Expr {
	left := p.parseRel()
	for p.curTokenIs(lexer.TokenEq) || p.curTokenIs(lexer.TokenNe) {
		op := p.curToken.Literal
		p.nextToken()
		left = &ast.BinaryExpr{Op: op, LHS: left, RHS: p.parseRel()}
	}
	return left
}

func (p *Parser) parseRel() ast.Expr {
	left := p.parseAdd()
	for p.curTokenIs(lexer.TokenLt) || p.curTokenIs(lexer.TokenGt) ||
		p.curTokenIs(lexer.TokenLe) || p.curTokenIs(lexer.TokenGe) {
		op := p.curToken.Literal
		p.nextToken()
		left = &ast.BinaryExpr{Op: op, LHS: left, RHS: p.parseAdd()}
	}
	return left
}

func (p *Parser) parseAdd() ast.Expr {
	left := p.parseMul()
	for p.curTokenIs(lexer.TokenPlus) || p.curTokenIs(lexer.TokenMinus) {
		op := p.curToken.Literal
		p.nextToken()
		left = &ast.BinaryExpr{Op: op, LHS: left, RHS: p.parseMul()}
	}
	return left
}

func (p *Parser) parseMul() ast.Expr {
	left := p.parseUnary()
	for p.curTokenIs(lexer.TokenStar) || p.curTokenIs(lexer.TokenSlash) ||
		p.curTokenIs(lexer.TokenPercent) {
		op := p.curToken.Literal
		p.nextToken()
		left = &ast.BinaryExpr{Op: op, LHS: left, RHS: p.parseUnary()}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.curToken.Type {
	case lexer.TokenPlus, lexer.TokenMinus, lexer.TokenNot:
		op := p.curToken.Literal
		p.nextToken()
		return &ast.UnaryExpr{Op: op, Operand: p.parseUnary()}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.curToken.Type {
	case lexer.TokenLParen:
		p.nextToken()
		expr := p.parseExpr()
		p.expect(lexer.TokenRParen)
		return expr

	case lexer.TokenInt:
		value := p.parseIntLiteral(p.curToken.Literal)
		p.nextToken()
		return &ast.IntLit{Value: value}

	case lexer.TokenIdent:
		name := p.curToken.Literal
		if p.peekTokenIs(lexer.TokenLParen) {
			p.nextToken() // now on '('
			p.nextToken() // consume '('
			call := &ast.CallExpr{Name: name}
			for !p.curTokenIs(lexer.TokenRParen) && !p.curTokenIs(lexer.TokenEOF) {
				call.Args = append(call.Args, p.parseExpr())
				if p.curTokenIs(lexer.TokenComma) {
					p.nextToken()
				}
			}
			p.expect(lexer.TokenRParen)
			return call
		}
		p.nextToken()
		lv := &ast.LValue{Name: name}
		for p.curTokenIs(lexer.TokenLBracket) {
			p.nextToken()
			lv.Indices = append(lv.Indices, p.parseExpr())
			if !p.expect(lexer.TokenRBracket) {
				break
			}
		}
		return lv

	default:
		p.addError(fmt.Sprintf("expected expression, got %s", p.curToken.Type))
		p.nextToken()
		return &ast.IntLit{}
	}
}

// parseIntLiteral converts a decimal, octal (leading 0) or hex (0x)
// literal, wrapping on overflow like C
func (p *Parser) parseIntLiteral(lit string) int32 {
	value, err := strconv.ParseUint(lit, 0, 64)
	if err != nil {
		p.addError(fmt.Sprintf("invalid integer literal %q", lit))
		return 0
	}
	return int32(uint32(value))
}
