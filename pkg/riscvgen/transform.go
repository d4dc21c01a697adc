// Package riscvgen lowers a loaded Koopa raw program to RV32IM
// assembly text.
//
// The model is deliberately simple: every value-producing instruction
// spills to its own stack slot, and each emitter works inside the
// fixed scratch registers from regs.go. Unknown IR kinds are
// programmer errors and panic.
package riscvgen

import (
	"fmt"
	"strings"

	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/koopa"
)

type generator struct {
	b       strings.Builder
	frame   *frameManager
	globals *globalTable
	fn      *koopa.Function
}

// Generate emits RV32IM assembly for a whole program
func Generate(prog *koopa.Program) string {
	g := &generator{
		frame:   newFrameManager(),
		globals: newGlobalTable(),
	}
	for _, global := range prog.Globals {
		g.emitGlobal(global)
	}
	for _, fn := range prog.Funcs {
		g.emitFunction(fn)
	}
	return g.b.String()
}

func (g *generator) emitf(format string, args ...any) {
	fmt.Fprintf(&g.b, format, args...)
}

// label strips the IR sigil from a symbol or block name
func label(name string) string {
	return name[1:]
}

func (g *generator) emitGlobal(v *koopa.Value) {
	name := label(v.Name)
	g.globals.alloc(v, name)

	g.emitf("    .data\n")
	g.emitf("    .globl %s\n", name)
	g.emitf("%s:\n", name)
	g.emitGlobalInit(v.Init)
	g.emitf("\n")
}

func (g *generator) emitGlobalInit(init *koopa.Value) {
	switch init.Kind {
	case koopa.KindZeroInit:
		g.emitf("    .zero %d\n", init.Type.Size())
	case koopa.KindInteger:
		g.emitf("    .word %d\n", init.Int)
	case koopa.KindAggregate:
		for _, elem := range init.Elems {
			g.emitGlobalInit(elem)
		}
	default:
		panic(fmt.Sprintf("riscvgen: unexpected global initializer kind %s", init.Kind))
	}
}

func (g *generator) emitFunction(fn *koopa.Function) {
	// Declarations have no body and emit nothing.
	if len(fn.Blocks) == 0 {
		return
	}
	g.fn = fn

	g.emitf("    .text\n")
	g.emitf("    .globl %s\n", label(fn.Name))
	g.emitf("%s:\n", label(fn.Name))

	// Scan every instruction once to lay out the frame before any
	// code is emitted.
	g.frame.reset()
	g.frame.allocUpper(4) // always save the return address
	maxArgs := 0
	for _, block := range fn.Blocks {
		for _, inst := range block.Insts {
			if inst.Kind == koopa.KindCall && len(inst.Args) > maxArgs {
				maxArgs = len(inst.Args)
			}
			if inst.Kind == koopa.KindAlloc {
				g.frame.alloc(inst, inst.AllocType.Size())
			} else if inst.Type != nil && inst.Type.Size() > 0 {
				g.frame.alloc(inst, inst.Type.Size())
			}
		}
	}
	if maxArgs > 8 {
		g.frame.allocLower((maxArgs - 8) * 4)
	}

	// Prologue.
	frameSize := g.frame.roundedSize()
	if frameSize <= 2048 {
		g.emitf("    addi sp, sp, -%d\n", frameSize)
	} else {
		g.emitf("    li %s, -%d\n", regY, frameSize)
		g.emitf("    add sp, sp, %s\n", regY)
	}
	g.storeWord("ra", regX, g.frame.offsetUpper())

	for _, block := range fn.Blocks {
		g.emitf("%s:\n", label(block.Name))
		for _, inst := range block.Insts {
			g.emitInst(inst)
		}
	}
	g.emitf("\n")
}

func (g *generator) emitInst(v *koopa.Value) {
	switch v.Kind {
	case koopa.KindAlloc:
		// The slot was reserved during the scan; nothing to emit.
	case koopa.KindLoad:
		g.emitLoad(v)
	case koopa.KindStore:
		g.emitStore(v)
	case koopa.KindBinary:
		g.emitBinary(v)
	case koopa.KindJump:
		g.emitf("    j %s\n", label(v.Target.Name))
	case koopa.KindBranch:
		g.emitBranch(v)
	case koopa.KindCall:
		g.emitCall(v)
	case koopa.KindReturn:
		g.emitReturn(v)
	case koopa.KindGetElemPtr, koopa.KindGetPtr:
		g.emitAddress(v)
	default:
		panic(fmt.Sprintf("riscvgen: unexpected instruction kind %s", v.Kind))
	}
}

// loadWord loads the word at sp+offset into target. Offsets outside
// the 12-bit immediate range are materialized with li, moving sp
// temporarily and restoring it afterwards.
func (g *generator) loadWord(target, scratch string, offset int) {
	if -2048 <= offset && offset < 2048 {
		g.emitf("    lw %s, %d(sp)\n", target, offset)
	} else {
		g.emitf("    li %s, %d\n", scratch, offset)
		g.emitf("    add sp, sp, %s\n", scratch)
		g.emitf("    lw %s, 0(sp)\n", target)
		g.emitf("    sub sp, sp, %s\n", scratch)
	}
}

// storeWord stores source to the word at sp+offset, mirroring
// loadWord's large-offset handling
func (g *generator) storeWord(source, scratch string, offset int) {
	if -2048 <= offset && offset < 2048 {
		g.emitf("    sw %s, %d(sp)\n", source, offset)
	} else {
		g.emitf("    li %s, %d\n", scratch, offset)
		g.emitf("    add sp, sp, %s\n", scratch)
		g.emitf("    sw %s, 0(sp)\n", source)
		g.emitf("    sub sp, sp, %s\n", scratch)
	}
}

// loadValue resolves a value into target: integer literals with li,
// first parameter reads from the argument registers or the caller's
// frame, globals through their symbol, and everything else from its
// stack slot.
func (g *generator) loadValue(target, scratch string, v *koopa.Value) {
	switch {
	case v.Kind == koopa.KindInteger:
		g.emitf("    li %s, %d\n", target, v.Int)
	case v.Kind == koopa.KindFuncArg:
		if v.ArgIndex < 8 {
			g.emitf("    mv %s, a%d\n", target, v.ArgIndex)
		} else {
			// Caller's stack-argument region sits above our frame.
			g.loadWord(target, scratch, g.frame.roundedSize()+4*(v.ArgIndex-8))
		}
	case g.globals.has(v):
		g.emitf("    la %s, %s\n", target, g.globals.name(v))
		g.emitf("    lw %s, 0(%s)\n", target, target)
	default:
		g.loadWord(target, scratch, g.frame.offset(v))
	}
}

// storeResult saves the word in source into the instruction's slot
func (g *generator) storeResult(source, scratch string, v *koopa.Value) {
	g.storeWord(source, scratch, g.frame.offset(v))
}

// loadAddr materializes the address a value refers to: globals with
// la, alloc slots as sp-relative addresses, and pointer-valued
// temporaries by reading the pointer out of their slot.
func (g *generator) loadAddr(target, scratch string, v *koopa.Value) {
	switch {
	case g.globals.has(v):
		g.emitf("    la %s, %s\n", target, g.globals.name(v))
	case v.Kind == koopa.KindAlloc:
		offset := g.frame.offset(v)
		if -2048 <= offset && offset < 2048 {
			g.emitf("    addi %s, sp, %d\n", target, offset)
		} else {
			g.emitf("    li %s, %d\n", scratch, offset)
			g.emitf("    add %s, sp, %s\n", target, scratch)
		}
	default:
		g.loadWord(target, scratch, g.frame.offset(v))
	}
}

func (g *generator) emitLoad(v *koopa.Value) {
	src := v.Src
	switch {
	case g.globals.has(src):
		g.emitf("    la %s, %s\n", regX, g.globals.name(src))
		g.emitf("    lw %s, 0(%s)\n", regX, regX)
	case src.Kind == koopa.KindAlloc:
		g.loadWord(regX, regY, g.frame.offset(src))
	default:
		// The source slot holds a computed address; dereference it.
		g.loadWord(regX, regY, g.frame.offset(src))
		g.emitf("    lw %s, 0(%s)\n", regX, regX)
	}
	g.storeResult(regX, regY, v)
}

func (g *generator) emitStore(v *koopa.Value) {
	if v.Val.Kind == koopa.KindAggregate || v.Val.Kind == koopa.KindZeroInit {
		g.emitAggregateStore(v)
		return
	}

	g.loadValue(regX, regY, v.Val)
	dst := v.Dst
	switch {
	case g.globals.has(dst):
		g.emitf("    la %s, %s\n", regY, g.globals.name(dst))
		g.emitf("    sw %s, 0(%s)\n", regX, regY)
	case dst.Kind == koopa.KindAlloc:
		g.storeWord(regX, regY, g.frame.offset(dst))
	default:
		// The destination slot holds a computed address.
		g.loadWord(regY, regZ, g.frame.offset(dst))
		g.emitf("    sw %s, 0(%s)\n", regX, regY)
	}
}

// emitAggregateStore initializes a whole array slot from an inline
// aggregate, one word at a time
func (g *generator) emitAggregateStore(v *koopa.Value) {
	g.loadAddr(regY, regZ, v.Dst)
	for i, word := range flattenWords(v.Val) {
		g.emitf("    li %s, %d\n", regX, word)
		offset := 4 * i
		if -2048 <= offset && offset < 2048 {
			g.emitf("    sw %s, %d(%s)\n", regX, offset, regY)
		} else {
			g.emitf("    li %s, %d\n", regZ, offset)
			g.emitf("    add %s, %s, %s\n", regZ, regY, regZ)
			g.emitf("    sw %s, 0(%s)\n", regX, regZ)
		}
	}
}

// flattenWords expands an initializer tree to its word values
func flattenWords(init *koopa.Value) []int32 {
	switch init.Kind {
	case koopa.KindInteger:
		return []int32{init.Int}
	case koopa.KindZeroInit:
		return make([]int32, init.Type.Size()/4)
	case koopa.KindAggregate:
		var words []int32
		for _, elem := range init.Elems {
			words = append(words, flattenWords(elem)...)
		}
		return words
	}
	panic(fmt.Sprintf("riscvgen: unexpected initializer kind %s", init.Kind))
}

func (g *generator) emitBinary(v *koopa.Value) {
	g.loadValue(regY, regX, v.LHS)
	g.loadValue(regZ, regX, v.RHS)

	switch v.Op {
	case koopa.OpAdd:
		g.emitf("    add %s, %s, %s\n", regX, regY, regZ)
	case koopa.OpSub:
		g.emitf("    sub %s, %s, %s\n", regX, regY, regZ)
	case koopa.OpMul:
		g.emitf("    mul %s, %s, %s\n", regX, regY, regZ)
	case koopa.OpDiv:
		g.emitf("    div %s, %s, %s\n", regX, regY, regZ)
	case koopa.OpMod:
		g.emitf("    rem %s, %s, %s\n", regX, regY, regZ)
	case koopa.OpLt:
		g.emitf("    slt %s, %s, %s\n", regX, regY, regZ)
	case koopa.OpGt:
		g.emitf("    sgt %s, %s, %s\n", regX, regY, regZ)
	case koopa.OpLe:
		g.emitf("    sgt %s, %s, %s\n", regX, regY, regZ)
		g.emitf("    seqz %s, %s\n", regX, regX)
	case koopa.OpGe:
		g.emitf("    slt %s, %s, %s\n", regX, regY, regZ)
		g.emitf("    seqz %s, %s\n", regX, regX)
	case koopa.OpEq:
		g.emitf("    xor %s, %s, %s\n", regX, regY, regZ)
		g.emitf("    seqz %s, %s\n", regX, regX)
	case koopa.OpNe:
		g.emitf("    xor %s, %s, %s\n", regX, regY, regZ)
		g.emitf("    snez %s, %s\n", regX, regX)
	case koopa.OpAnd:
		g.emitf("    and %s, %s, %s\n", regX, regY, regZ)
	case koopa.OpOr:
		g.emitf("    or %s, %s, %s\n", regX, regY, regZ)
	case koopa.OpXor:
		g.emitf("    xor %s, %s, %s\n", regX, regY, regZ)
	default:
		panic(fmt.Sprintf("riscvgen: unexpected binary operator %d", v.Op))
	}

	g.storeResult(regX, regY, v)
}

func (g *generator) emitBranch(v *koopa.Value) {
	// A constant condition folds to an unconditional jump.
	if v.Cond.Kind == koopa.KindInteger {
		if v.Cond.Int != 0 {
			g.emitf("    j %s\n", label(v.TrueBB.Name))
		} else {
			g.emitf("    j %s\n", label(v.FalseBB.Name))
		}
		return
	}
	g.loadValue(regX, regY, v.Cond)
	g.emitf("    bnez %s, %s\n", regX, label(v.TrueBB.Name))
	g.emitf("    j %s\n", label(v.FalseBB.Name))
}

func (g *generator) emitCall(v *koopa.Value) {
	// The first eight arguments travel in a0..a7.
	for i := 0; i < len(v.Args) && i < 8; i++ {
		g.loadValue(fmt.Sprintf("a%d", i), regY, v.Args[i])
	}
	// The rest go to the reserved region at the bottom of our frame.
	for i := 8; i < len(v.Args); i++ {
		g.loadValue(regX, regY, v.Args[i])
		g.storeWord(regX, regY, g.frame.offsetLower()+(i-8)*4)
	}

	g.emitf("    call %s\n", label(v.Callee.Name))

	if v.Type != nil {
		g.storeResult(regRet, regX, v)
	}
}

func (g *generator) emitReturn(v *koopa.Value) {
	if v.Ret != nil {
		g.loadValue(regRet, regX, v.Ret)
	}

	// Epilogue: restore the return address and pop the frame.
	g.loadWord("ra", regX, g.frame.offsetUpper())
	frameSize := g.frame.roundedSize()
	if frameSize < 2048 {
		g.emitf("    addi sp, sp, %d\n", frameSize)
	} else {
		g.emitf("    li %s, %d\n", regY, frameSize)
		g.emitf("    add sp, sp, %s\n", regY)
	}
	g.emitf("    ret\n")
}

// emitAddress lowers getelemptr and getptr: materialize the base
// address, scale the index by the element size, add, and spill the
// resulting address. getptr sources always hold a pointer value, so
// they take the slot-read path of loadAddr.
func (g *generator) emitAddress(v *koopa.Value) {
	g.loadAddr(regX, regZ, v.Src)
	g.loadValue(regY, regZ, v.Index)
	g.emitf("    li %s, %d\n", regZ, v.Type.Base().Size())
	g.emitf("    mul %s, %s, %s\n", regY, regY, regZ)
	g.emitf("    add %s, %s, %s\n", regX, regX, regY)
	g.storeResult(regX, regZ, v)
}
