package riscvgen

import "github.com/UnnamedOrange/Compiler-Term-Project/pkg/koopa"

// frameManager plans one function's stack frame. The frame has three
// regions, low address first: space for outgoing call arguments past
// the eighth, one slot per value-producing instruction in first-seen
// order, and the saved return address on top. The total is rounded up
// to 16 bytes.
type frameManager struct {
	lower   int // outgoing stack arguments
	upper   int // saved return address
	offsets []int
	index   map[*koopa.Value]int
}

func newFrameManager() *frameManager {
	f := &frameManager{}
	f.reset()
	return f
}

// reset clears the manager; call at every function entry
func (f *frameManager) reset() {
	f.offsets = f.offsets[:0]
	f.offsets = append(f.offsets, 0)
	f.index = make(map[*koopa.Value]int)
	f.lower = 0
	f.upper = 0
}

// alloc reserves size bytes for an instruction's slot. Repeated calls
// for the same value are ignored.
func (f *frameManager) alloc(v *koopa.Value, size int) {
	if _, ok := f.index[v]; ok {
		return
	}
	f.index[v] = len(f.offsets) - 1
	f.offsets = append(f.offsets, f.offsets[len(f.offsets)-1]+size)
}

// allocLower reserves the outgoing-argument region
func (f *frameManager) allocLower(size int) { f.lower = size }

// allocUpper reserves the return-address word
func (f *frameManager) allocUpper(size int) { f.upper = size }

// has reports whether v owns a slot
func (f *frameManager) has(v *koopa.Value) bool {
	_, ok := f.index[v]
	return ok
}

// offset returns v's slot offset from sp after the prologue
func (f *frameManager) offset(v *koopa.Value) int {
	return f.lower + f.offsets[f.index[v]]
}

// offsetLower returns the offset of the outgoing-argument region
func (f *frameManager) offsetLower() int { return 0 }

// offsetUpper returns the offset of the saved return address
func (f *frameManager) offsetUpper() int {
	return f.lower + f.offsets[len(f.offsets)-1]
}

// size returns the raw frame size
func (f *frameManager) size() int {
	return f.lower + f.offsets[len(f.offsets)-1] + f.upper
}

// roundedSize returns the frame size rounded up to 16 bytes
func (f *frameManager) roundedSize() int {
	const roundTo = 16
	return (f.size() + roundTo - 1) / roundTo * roundTo
}
