// Package symtab implements the minimal global symbol table the
// scanner and flow-follower require: the narrow surface those two
// passes actually call into, not a general-purpose symbol database
// (see original_source/src/symtab.c).
package symtab

import "fmt"

// Kind is a symbol's inferred high-level type, narrowed to what the
// flow-follower and scanner assign directly: entering or augmenting a
// global or stack-frame symbol, or interning a DOS string.
type Kind int

const (
	KindUnknown Kind = iota
	KindWord
	KindByte
	KindString
	KindProc
)

// Symbol is one global-symbol-table entry.
type Symbol struct {
	Name  string
	Addr  uint32
	Kind  Kind
	Label string // interned text, populated for KindString entries
}

// Table is the global symbol table, keyed by image address.
type Table struct {
	byAddr map[uint32]int
	syms   []Symbol
	next   int
}

// New returns an empty table.
func New() *Table {
	return &Table{byAddr: make(map[uint32]int)}
}

// Find returns the symbol at addr, or -1 if none is interned yet.
func (t *Table) Find(addr uint32) int {
	if idx, ok := t.byAddr[addr]; ok {
		return idx
	}
	return -1
}

// Get returns the symbol at idx.
func (t *Table) Get(idx int) *Symbol { return &t.syms[idx] }

// Enter interns a new symbol at addr, or returns the existing one's
// index and narrows its Kind if it was previously KindUnknown: enters
// or augments a global or stack-frame symbol.
func (t *Table) Enter(addr uint32, kind Kind, name string) int {
	if idx, ok := t.byAddr[addr]; ok {
		if t.syms[idx].Kind == KindUnknown {
			t.syms[idx].Kind = kind
		}
		return idx
	}
	t.next++
	if name == "" {
		name = defaultName(kind, t.next)
	}
	idx := len(t.syms)
	t.syms = append(t.syms, Symbol{Name: name, Addr: addr, Kind: kind})
	t.byAddr[addr] = idx
	return idx
}

// InternString interns text, the string the caller read from addr in the
// loader's flat image, tagging the entry KindString: interns the
// DX-pointed string from INT 21h/09 and tags its symbol-table entry as
// TYPE_STR.
func (t *Table) InternString(addr uint32, text string) int {
	idx := t.Enter(addr, KindString, "")
	t.syms[idx].Label = text
	return idx
}

func defaultName(kind Kind, n int) string {
	switch kind {
	case KindProc:
		return fmt.Sprintf("sub%d", n)
	case KindString:
		return fmt.Sprintf("str%d", n)
	default:
		return fmt.Sprintf("glob%d", n)
	}
}
