package riscvgen

import "github.com/UnnamedOrange/Compiler-Term-Project/pkg/koopa"

// globalTable maps global allocation values to their emitted symbol
// names. It persists for the whole backend run.
type globalTable struct {
	names map[*koopa.Value]string
}

func newGlobalTable() *globalTable {
	return &globalTable{names: make(map[*koopa.Value]string)}
}

func (t *globalTable) alloc(v *koopa.Value, name string) {
	t.names[v] = name
}

func (t *globalTable) has(v *koopa.Value) bool {
	_, ok := t.names[v]
	return ok
}

func (t *globalTable) name(v *koopa.Value) string {
	return t.names[v]
}
