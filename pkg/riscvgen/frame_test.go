package riscvgen

import (
	"testing"

	"github.com/UnnamedOrange/Compiler-Term-Project/pkg/koopa"
)

func TestFrameOffsets(t *testing.T) {
	f := newFrameManager()
	f.allocUpper(4)

	a := &koopa.Value{Kind: koopa.KindAlloc}
	b := &koopa.Value{Kind: koopa.KindBinary}
	c := &koopa.Value{Kind: koopa.KindLoad}
	f.alloc(a, 24) // an array
	f.alloc(b, 4)
	f.alloc(c, 4)

	if got := f.offset(a); got != 0 {
		t.Errorf("expected offset 0, got %d", got)
	}
	if got := f.offset(b); got != 24 {
		t.Errorf("expected offset 24, got %d", got)
	}
	if got := f.offset(c); got != 28 {
		t.Errorf("expected offset 28, got %d", got)
	}
	if got := f.offsetUpper(); got != 32 {
		t.Errorf("expected upper offset 32, got %d", got)
	}
	if got := f.size(); got != 36 {
		t.Errorf("expected size 36, got %d", got)
	}
	if got := f.roundedSize(); got != 48 {
		t.Errorf("expected rounded size 48, got %d", got)
	}
}

func TestFrameAllocIsIdempotent(t *testing.T) {
	f := newFrameManager()
	v := &koopa.Value{Kind: koopa.KindBinary}
	f.alloc(v, 4)
	f.alloc(v, 4)
	if got := f.size(); got != 4 {
		t.Errorf("expected a single slot, got size %d", got)
	}
}

func TestFrameLowerRegion(t *testing.T) {
	f := newFrameManager()
	f.allocUpper(4)
	v := &koopa.Value{Kind: koopa.KindBinary}
	f.alloc(v, 4)
	// Two stack arguments beyond the eighth.
	f.allocLower(8)

	if got := f.offsetLower(); got != 0 {
		t.Errorf("expected lower offset 0, got %d", got)
	}
	// Instruction slots sit above the outgoing-argument region.
	if got := f.offset(v); got != 8 {
		t.Errorf("expected offset 8, got %d", got)
	}
	if got := f.offsetUpper(); got != 12 {
		t.Errorf("expected upper offset 12, got %d", got)
	}
	if got := f.roundedSize(); got != 16 {
		t.Errorf("expected rounded size 16, got %d", got)
	}
}

func TestFrameRoundingIsAlwaysSixteen(t *testing.T) {
	for slots := 0; slots < 10; slots++ {
		f := newFrameManager()
		f.allocUpper(4)
		for i := 0; i < slots; i++ {
			f.alloc(&koopa.Value{Kind: koopa.KindBinary}, 4)
		}
		if f.roundedSize()%16 != 0 {
			t.Errorf("slots=%d: rounded size %d is not a multiple of 16",
				slots, f.roundedSize())
		}
		if f.roundedSize() < f.size() {
			t.Errorf("slots=%d: rounded size %d below raw size %d",
				slots, f.roundedSize(), f.size())
		}
	}
}

func TestFrameReset(t *testing.T) {
	f := newFrameManager()
	f.allocUpper(4)
	f.allocLower(8)
	v := &koopa.Value{Kind: koopa.KindBinary}
	f.alloc(v, 4)

	f.reset()
	if f.size() != 0 {
		t.Errorf("expected empty frame after reset, got size %d", f.size())
	}
	if f.has(v) {
		t.Error("expected slots to be gone after reset")
	}
}
