package koopa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/types"
)

// Parse loads Koopa IR text into a raw program. Malformed input
// returns an error with the offending line number.
func Parse(text string) (*Program, error) {
	p := &parser{
		prog:    &Program{},
		funcs:   make(map[string]*Function),
		globals: make(map[string]*Value),
	}
	for i, line := range strings.Split(text, "\n") {
		if err := p.parseLine(strings.TrimSpace(line)); err != nil {
			return nil, fmt.Errorf("koopa: line %d: %w", i+1, err)
		}
	}
	if p.fn != nil {
		return nil, fmt.Errorf("koopa: unterminated function %s", p.fn.Name)
	}
	return p.prog, nil
}

type parser struct {
	prog    *Program
	funcs   map[string]*Function
	globals map[string]*Value

	// State of the function currently being parsed.
	fn       *Function
	values   map[string]*Value
	blocks   map[string]*BasicBlock
	emitted  map[string]bool
	cur      *BasicBlock
}

func (p *parser) parseLine(line string) error {
	switch {
	case line == "":
		return nil
	case strings.HasPrefix(line, "decl "):
		return p.parseDecl(line)
	case strings.HasPrefix(line, "global "):
		return p.parseGlobal(line)
	case strings.HasPrefix(line, "fun "):
		return p.parseFunHeader(line)
	case line == "}":
		if p.fn == nil {
			return fmt.Errorf("unexpected %q outside a function", line)
		}
		p.fn = nil
		p.cur = nil
		return nil
	case strings.HasSuffix(line, ":") && strings.HasPrefix(line, "%"):
		if p.fn == nil {
			return fmt.Errorf("label %q outside a function", line)
		}
		block := p.getBlock(line[:len(line)-1])
		if !p.emitted[block.Name] {
			p.fn.Blocks = append(p.fn.Blocks, block)
			p.emitted[block.Name] = true
		}
		p.cur = block
		return nil
	default:
		if p.fn == nil || p.cur == nil {
			return fmt.Errorf("unexpected instruction %q", line)
		}
		return p.parseInst(line)
	}
}

func (p *parser) parseDecl(line string) error {
	sc := newScanner(strings.TrimPrefix(line, "decl "))
	name, err := sc.name()
	if err != nil {
		return err
	}
	fn := &Function{Name: name, Return: types.Void()}
	if err := sc.expect("("); err != nil {
		return err
	}
	for !sc.consume(")") {
		if _, err := sc.parseType(); err != nil {
			return err
		}
		sc.consume(",")
	}
	if sc.consume(":") {
		ret, err := sc.parseType()
		if err != nil {
			return err
		}
		fn.Return = ret
	}
	p.funcs[name] = fn
	p.prog.Funcs = append(p.prog.Funcs, fn)
	return nil
}

func (p *parser) parseGlobal(line string) error {
	sc := newScanner(strings.TrimPrefix(line, "global "))
	name, err := sc.name()
	if err != nil {
		return err
	}
	if err := sc.expect("="); err != nil {
		return err
	}
	if err := sc.expect("alloc"); err != nil {
		return err
	}
	typ, err := sc.parseType()
	if err != nil {
		return err
	}
	if err := sc.expect(","); err != nil {
		return err
	}
	init, err := sc.parseInit()
	if err != nil {
		return err
	}
	assignInitTypes(init, typ)

	value := &Value{
		Kind:      KindGlobalAlloc,
		Type:      types.Pointer{Elem: typ},
		Name:      name,
		AllocType: typ,
		Init:      init,
	}
	p.globals[name] = value
	p.prog.Globals = append(p.prog.Globals, value)
	return nil
}

func (p *parser) parseFunHeader(line string) error {
	if p.fn != nil {
		return fmt.Errorf("nested function definition")
	}
	sc := newScanner(strings.TrimPrefix(line, "fun "))
	name, err := sc.name()
	if err != nil {
		return err
	}
	fn := &Function{Name: name, Return: types.Void()}
	p.values = make(map[string]*Value)
	p.blocks = make(map[string]*BasicBlock)
	p.emitted = make(map[string]bool)

	if err := sc.expect("("); err != nil {
		return err
	}
	for !sc.consume(")") {
		paramName, err := sc.name()
		if err != nil {
			return err
		}
		if err := sc.expect(":"); err != nil {
			return err
		}
		typ, err := sc.parseType()
		if err != nil {
			return err
		}
		param := &Value{Kind: KindFuncArg, Type: typ, Name: paramName, ArgIndex: len(fn.Params)}
		fn.Params = append(fn.Params, param)
		p.values[paramName] = param
		sc.consume(",")
	}
	if sc.consume(":") {
		ret, err := sc.parseType()
		if err != nil {
			return err
		}
		fn.Return = ret
	}
	if err := sc.expect("{"); err != nil {
		return err
	}
	p.funcs[name] = fn
	p.prog.Funcs = append(p.prog.Funcs, fn)
	p.fn = fn
	return nil
}

func (p *parser) getBlock(name string) *BasicBlock {
	if block, ok := p.blocks[name]; ok {
		return block
	}
	block := &BasicBlock{Name: name}
	p.blocks[name] = block
	return block
}

func (p *parser) parseInst(line string) error {
	sc := newScanner(line)

	// Instructions producing a value start with "%N = " or "@x = ".
	var resultName string
	if mark := strings.Index(line, " = "); mark >= 0 && (line[0] == '%' || line[0] == '@') {
		name, err := sc.name()
		if err != nil {
			return err
		}
		resultName = name
		if err := sc.expect("="); err != nil {
			return err
		}
	}

	value, err := p.parseInstBody(sc, resultName)
	if err != nil {
		return err
	}
	if !sc.atEnd() {
		return fmt.Errorf("trailing input %q", sc.rest())
	}
	value.Name = resultName
	if resultName != "" {
		if _, exists := p.values[resultName]; exists {
			return fmt.Errorf("value %s defined twice", resultName)
		}
		p.values[resultName] = value
	}
	p.cur.Insts = append(p.cur.Insts, value)
	return nil
}

func (p *parser) parseInstBody(sc *scanner, resultName string) (*Value, error) {
	op, err := sc.word()
	if err != nil {
		return nil, err
	}
	switch op {
	case "alloc":
		typ, err := sc.parseType()
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindAlloc, Type: types.Pointer{Elem: typ}, AllocType: typ}, nil

	case "load":
		src, err := p.operand(sc)
		if err != nil {
			return nil, err
		}
		ptr, ok := src.Type.(types.Pointer)
		if !ok {
			return nil, fmt.Errorf("load source %s is not a pointer", src.Name)
		}
		return &Value{Kind: KindLoad, Type: ptr.Elem, Src: src}, nil

	case "store":
		value, err := p.storedValue(sc)
		if err != nil {
			return nil, err
		}
		if err := sc.expect(","); err != nil {
			return nil, err
		}
		dst, err := p.operand(sc)
		if err != nil {
			return nil, err
		}
		if value.Kind == KindAggregate || value.Kind == KindZeroInit {
			ptr, ok := dst.Type.(types.Pointer)
			if !ok {
				return nil, fmt.Errorf("store destination %s is not a pointer", dst.Name)
			}
			assignInitTypes(value, ptr.Elem)
		}
		return &Value{Kind: KindStore, Val: value, Dst: dst}, nil

	case "getelemptr", "getptr":
		src, err := p.operand(sc)
		if err != nil {
			return nil, err
		}
		if err := sc.expect(","); err != nil {
			return nil, err
		}
		index, err := p.operand(sc)
		if err != nil {
			return nil, err
		}
		ptr, ok := src.Type.(types.Pointer)
		if !ok {
			return nil, fmt.Errorf("%s source %s is not a pointer", op, src.Name)
		}
		if op == "getptr" {
			return &Value{Kind: KindGetPtr, Type: src.Type, Src: src, Index: index}, nil
		}
		array, ok := ptr.Elem.(types.Array)
		if !ok {
			return nil, fmt.Errorf("getelemptr source %s is not a pointer to array", src.Name)
		}
		return &Value{Kind: KindGetElemPtr, Type: types.Pointer{Elem: array.Elem}, Src: src, Index: index}, nil

	case "br":
		cond, err := p.operand(sc)
		if err != nil {
			return nil, err
		}
		if err := sc.expect(","); err != nil {
			return nil, err
		}
		trueName, err := sc.name()
		if err != nil {
			return nil, err
		}
		if err := sc.expect(","); err != nil {
			return nil, err
		}
		falseName, err := sc.name()
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindBranch, Cond: cond, TrueBB: p.getBlock(trueName), FalseBB: p.getBlock(falseName)}, nil

	case "jump":
		target, err := sc.name()
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindJump, Target: p.getBlock(target)}, nil

	case "ret":
		if sc.atEnd() {
			return &Value{Kind: KindReturn}, nil
		}
		ret, err := p.operand(sc)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindReturn, Ret: ret}, nil

	case "call":
		return p.parseCall(sc)

	default:
		binOp, ok := binaryOpNames[op]
		if !ok {
			return nil, fmt.Errorf("unknown instruction %q", op)
		}
		if resultName == "" {
			return nil, fmt.Errorf("binary instruction without a result name")
		}
		lhs, err := p.operand(sc)
		if err != nil {
			return nil, err
		}
		if err := sc.expect(","); err != nil {
			return nil, err
		}
		rhs, err := p.operand(sc)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindBinary, Type: types.Int(), Op: binOp, LHS: lhs, RHS: rhs}, nil
	}
}

func (p *parser) parseCall(sc *scanner) (*Value, error) {
	calleeName, err := sc.name()
	if err != nil {
		return nil, err
	}
	callee, ok := p.funcs[calleeName]
	if !ok {
		return nil, fmt.Errorf("call of unknown function %s", calleeName)
	}
	if err := sc.expect("("); err != nil {
		return nil, err
	}
	call := &Value{Kind: KindCall, Callee: callee}
	for !sc.consume(")") {
		arg, err := p.operand(sc)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		sc.consume(",")
	}
	if !types.IsVoid(callee.Return) {
		call.Type = callee.Return
	}
	return call, nil
}

// operand parses an integer literal or a reference to a named value
func (p *parser) operand(sc *scanner) (*Value, error) {
	sc.skipSpace()
	if sc.atEnd() {
		return nil, fmt.Errorf("missing operand")
	}
	if ch := sc.peek(); ch == '@' || ch == '%' {
		name, err := sc.name()
		if err != nil {
			return nil, err
		}
		if value, ok := p.values[name]; ok {
			return value, nil
		}
		if value, ok := p.globals[name]; ok {
			return value, nil
		}
		return nil, fmt.Errorf("unresolved name %s", name)
	}
	n, err := sc.int()
	if err != nil {
		return nil, err
	}
	return &Value{Kind: KindInteger, Type: types.Int(), Int: n}, nil
}

// storedValue parses a store's value operand, which may also be an
// aggregate or zeroinit (local constant arrays are initialized with a
// single aggregate store)
func (p *parser) storedValue(sc *scanner) (*Value, error) {
	sc.skipSpace()
	if !sc.atEnd() && sc.peek() == '{' {
		return sc.parseInit()
	}
	if sc.hasWord("zeroinit") {
		return sc.parseInit()
	}
	return p.operand(sc)
}

// assignInitTypes fills in the types of an initializer tree from the
// allocated type, descending one array level per aggregate nesting
func assignInitTypes(init *Value, typ types.Type) {
	init.Type = typ
	if init.Kind != KindAggregate {
		return
	}
	if array, ok := typ.(types.Array); ok {
		for _, elem := range init.Elems {
			assignInitTypes(elem, array.Elem)
		}
	}
}

// scanner is a cursor over one line of IR text
type scanner struct {
	s string
	i int
}

func newScanner(s string) *scanner {
	return &scanner{s: s}
}

func (sc *scanner) skipSpace() {
	for sc.i < len(sc.s) && (sc.s[sc.i] == ' ' || sc.s[sc.i] == '\t') {
		sc.i++
	}
}

func (sc *scanner) atEnd() bool {
	sc.skipSpace()
	return sc.i >= len(sc.s)
}

func (sc *scanner) peek() byte {
	return sc.s[sc.i]
}

func (sc *scanner) rest() string {
	return sc.s[sc.i:]
}

// consume advances over the literal text if present
func (sc *scanner) consume(text string) bool {
	sc.skipSpace()
	if strings.HasPrefix(sc.s[sc.i:], text) {
		sc.i += len(text)
		return true
	}
	return false
}

func (sc *scanner) expect(text string) error {
	if !sc.consume(text) {
		return fmt.Errorf("expected %q at %q", text, sc.rest())
	}
	return nil
}

// hasWord reports whether the next word is exactly w, without
// consuming anything when it is not
func (sc *scanner) hasWord(w string) bool {
	sc.skipSpace()
	if !strings.HasPrefix(sc.s[sc.i:], w) {
		return false
	}
	end := sc.i + len(w)
	if end < len(sc.s) && isWordByte(sc.s[end]) {
		return false
	}
	return true
}

// word consumes the next identifier-like word
func (sc *scanner) word() (string, error) {
	sc.skipSpace()
	start := sc.i
	for sc.i < len(sc.s) && isWordByte(sc.s[sc.i]) {
		sc.i++
	}
	if sc.i == start {
		return "", fmt.Errorf("expected word at %q", sc.rest())
	}
	return sc.s[start:sc.i], nil
}

// name consumes a sigil-prefixed name (@x or %1) and returns it with
// its sigil
func (sc *scanner) name() (string, error) {
	sc.skipSpace()
	if sc.i >= len(sc.s) || (sc.s[sc.i] != '@' && sc.s[sc.i] != '%') {
		return "", fmt.Errorf("expected name at %q", sc.rest())
	}
	start := sc.i
	sc.i++
	for sc.i < len(sc.s) && isWordByte(sc.s[sc.i]) {
		sc.i++
	}
	if sc.i == start+1 {
		return "", fmt.Errorf("empty name at %q", sc.s[start:])
	}
	return sc.s[start:sc.i], nil
}

func (sc *scanner) int() (int32, error) {
	sc.skipSpace()
	start := sc.i
	if sc.i < len(sc.s) && sc.s[sc.i] == '-' {
		sc.i++
	}
	for sc.i < len(sc.s) && sc.s[sc.i] >= '0' && sc.s[sc.i] <= '9' {
		sc.i++
	}
	if sc.i == start || (sc.s[start] == '-' && sc.i == start+1) {
		return 0, fmt.Errorf("expected integer at %q", sc.s[start:])
	}
	n, err := strconv.ParseInt(sc.s[start:sc.i], 10, 64)
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}

// parseType parses i32, *T, or [T, N]
func (sc *scanner) parseType() (types.Type, error) {
	sc.skipSpace()
	if sc.atEnd() {
		return nil, fmt.Errorf("expected type")
	}
	switch sc.peek() {
	case '*':
		sc.i++
		elem, err := sc.parseType()
		if err != nil {
			return nil, err
		}
		return types.Pointer{Elem: elem}, nil
	case '[':
		sc.i++
		elem, err := sc.parseType()
		if err != nil {
			return nil, err
		}
		if err := sc.expect(","); err != nil {
			return nil, err
		}
		n, err := sc.int()
		if err != nil {
			return nil, err
		}
		if err := sc.expect("]"); err != nil {
			return nil, err
		}
		return types.Array{Elem: elem, Len: int(n)}, nil
	default:
		word, err := sc.word()
		if err != nil {
			return nil, err
		}
		if word != "i32" {
			return nil, fmt.Errorf("unknown type %q", word)
		}
		return types.Int(), nil
	}
}

// parseInit parses a global or aggregate initializer: an integer,
// zeroinit, or a brace aggregate. Types are assigned afterwards by
// assignInitTypes.
func (sc *scanner) parseInit() (*Value, error) {
	sc.skipSpace()
	if sc.atEnd() {
		return nil, fmt.Errorf("expected initializer")
	}
	if sc.peek() == '{' {
		sc.i++
		aggregate := &Value{Kind: KindAggregate}
		for !sc.consume("}") {
			elem, err := sc.parseInit()
			if err != nil {
				return nil, err
			}
			aggregate.Elems = append(aggregate.Elems, elem)
			sc.consume(",")
		}
		return aggregate, nil
	}
	if sc.hasWord("zeroinit") {
		sc.consume("zeroinit")
		return &Value{Kind: KindZeroInit}, nil
	}
	n, err := sc.int()
	if err != nil {
		return nil, err
	}
	return &Value{Kind: KindInteger, Type: types.Int(), Int: n}, nil
}

func isWordByte(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}
