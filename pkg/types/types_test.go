package types

import "testing"

func TestPrimaryKoopa(t *testing.T) {
	if got := Int().Koopa(); got != "i32" {
		t.Errorf("expected i32, got %q", got)
	}
	if got := Void().Koopa(); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPrimarySize(t *testing.T) {
	if got := Int().Size(); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
	if got := Void().Size(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestMakeArray(t *testing.T) {
	// int a[3][5] is an array of 3 arrays of 5 ints.
	typ := MakeArray(Int(), 3, 5)
	if got := typ.Koopa(); got != "[[i32, 5], 3]" {
		t.Errorf("expected [[i32, 5], 3], got %q", got)
	}
	if got := typ.Size(); got != 60 {
		t.Errorf("expected 60, got %d", got)
	}

	outer, ok := typ.(Array)
	if !ok {
		t.Fatalf("expected Array, got %T", typ)
	}
	if outer.Len != 3 {
		t.Errorf("expected outer length 3, got %d", outer.Len)
	}
	inner, ok := outer.Elem.(Array)
	if !ok {
		t.Fatalf("expected inner Array, got %T", outer.Elem)
	}
	if inner.Len != 5 {
		t.Errorf("expected inner length 5, got %d", inner.Len)
	}
}

func TestPointer(t *testing.T) {
	// A decayed "int a[][5]" parameter.
	typ := Pointer{Elem: MakeArray(Int(), 5)}
	if got := typ.Koopa(); got != "*[i32, 5]" {
		t.Errorf("expected *[i32, 5], got %q", got)
	}
	if got := typ.Size(); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
	if got := typ.Base().Koopa(); got != "[i32, 5]" {
		t.Errorf("expected [i32, 5], got %q", got)
	}
}

func TestFunctionKoopa(t *testing.T) {
	tests := []struct {
		name string
		typ  Function
		want string
	}{
		{"no params int", Function{Return: Int()}, "(): i32"},
		{"no params void", Function{Return: Void()}, "()"},
		{"one param", Function{Return: Void(), Params: []Type{Int()}}, "(i32)"},
		{
			"pointer param",
			Function{Return: Int(), Params: []Type{Pointer{Elem: Int()}}},
			"(*i32): i32",
		},
		{
			"two params",
			Function{Return: Void(), Params: []Type{Int(), Pointer{Elem: Int()}}},
			"(i32, *i32)",
		},
	}
	for _, tt := range tests {
		if got := tt.typ.Koopa(); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}

func TestIsVoid(t *testing.T) {
	if !IsVoid(Void()) {
		t.Error("expected IsVoid(void) to be true")
	}
	if IsVoid(Int()) {
		t.Error("expected IsVoid(int) to be false")
	}
	if IsVoid(Pointer{Elem: Int()}) {
		t.Error("expected IsVoid(*i32) to be false")
	}
}
