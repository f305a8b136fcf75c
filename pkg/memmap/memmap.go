// Package memmap implements a parallel 3-bits-per-byte memory-type map
// (unknown, data, code, plus an impure overlay) covering the whole
// loaded image, using
// bitset.BitSet the way godoctor's cfg/df.go uses it for GEN/KILL/
// live-variable sets, here for two parallel code/data membership sets
// plus a third impure-write set.
package memmap

import "github.com/willf/bitset"

// Kind is one memory-type map state. Unknown is the zero value; Code
// and Data are mutually exclusive per byte (a byte scanned as an
// instruction is Code, a byte referenced as an operand's target is
// Data); Impure is an independent overlay set by a write observed at
// runtime-equivalent analysis. Self-modifying-code detection itself is
// out of scope: the bit exists so loader/back end can report it, never
// so the pipeline can react to it.
type Kind int

const (
	Unknown Kind = iota
	Data
	Code
)

// Map is the whole-image memory-type map.
type Map struct {
	size   uint
	code   *bitset.BitSet
	data   *bitset.BitSet
	impure *bitset.BitSet
}

// New returns a map sized for an image of the given byte length.
func New(size uint) *Map {
	return &Map{
		size:   size,
		code:   bitset.New(size),
		data:   bitset.New(size),
		impure: bitset.New(size),
	}
}

// MarkCode marks [off, off+n) as code, clearing any Data marking there.
func (m *Map) MarkCode(off uint32, n int) {
	for i := 0; i < n; i++ {
		idx := uint(off) + uint(i)
		m.code.Set(idx)
		m.data.Clear(idx)
	}
}

// MarkData marks [off, off+n) as data, unless already marked Code: a
// scanned instruction's own bytes are never demoted by a later data
// reference to the same address.
func (m *Map) MarkData(off uint32, n int) {
	for i := 0; i < n; i++ {
		idx := uint(off) + uint(i)
		if m.code.Test(idx) {
			continue
		}
		m.data.Set(idx)
	}
}

// MarkImpure flags [off, off+n) as written to outside of load time.
func (m *Map) MarkImpure(off uint32, n int) {
	for i := 0; i < n; i++ {
		m.impure.Set(uint(off) + uint(i))
	}
}

// At returns the Kind recorded at a single byte offset.
func (m *Map) At(off uint32) Kind {
	idx := uint(off)
	switch {
	case m.code.Test(idx):
		return Code
	case m.data.Test(idx):
		return Data
	default:
		return Unknown
	}
}

// IsImpure reports whether off was ever marked impure.
func (m *Map) IsImpure(off uint32) bool { return m.impure.Test(uint(off)) }

// Stats returns total code-byte and data-byte counts, for -s/--stat
// reporting.
func (m *Map) Stats() (codeBytes, dataBytes uint) {
	return m.code.Count(), m.data.Count()
}
