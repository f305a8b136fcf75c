// Package proc implements the per-procedure record: entry metadata,
// its IR stream, its computed CFG head and reverse-post-order block
// list once built, its calling-convention and HLL flags, its local
// identifier table, and its inter-procedural liveness bitvectors.
//
// Modeled as a plain struct-of-fields record (pkg/inst/instruction.go,
// pkg/cpu/state.go style), not an interface hierarchy.
package proc

import (
	"github.com/dcc-go/dcc/pkg/expr"
	"github.com/dcc-go/dcc/pkg/ident"
	"github.com/dcc-go/dcc/pkg/ir"
)

// Convention is the calling convention inferred for a procedure.
type Convention int

const (
	ConventionUnknown Convention = iota
	ConventionPascal
	ConventionC
)

// Flag is a bitmask of procedure-level properties.
type Flag uint32

const (
	FlagFar Flag = 1 << iota // far (vs near) procedure
	FlagIsHLL
	FlagHasCase
	FlagIsFunc
	FlagIsLibrary
	FlagTerminates
	FlagSIRegVar
	FlagDIRegVar
	FlagHasRegArgs
	FlagBadInst  // PROC_BADINST: scanner hit an unrecoverable instruction
	FlagAsm      // PROC_ASM: emit as assembly, skip data-flow
	FlagIJmp     // PROC_IJMP: unresolvable indirect jump, walk terminated early
	FlagGraphIrred
)

// ReturnKind is the inferred return-value shape.
type ReturnKind int

const (
	ReturnVoid ReturnKind = iota
	ReturnWord
	ReturnLong
)

// State is the symbolic machine state snapshotted across recursive
// flow-following calls. Segment/general registers and
// per-flag validity are modeled as fixed-size arrays indexed by the
// scanner's register-code space, matching the original's r[]/f[] shape.
type State struct {
	IP   uint32
	Regs [8]uint16 // indexed by word-register code: AX, CX, DX, BX, SP, BP, SI, DI
	Seg  [4]uint16 // ES, CS, SS, DS segment values
	Valid [8]bool  // whether Regs[i] holds a known value
	JCondReg   uint8 // register compared by the most recent CMP reg,imm
	JCondImmed int64 // immediate of that comparison, used to bound switch tables
	HasJCond   bool
}

// Clone returns a deep copy of s, the way the flow-follower snapshots
// state across a recursive call and restores it on return.
func (s State) Clone() State { return s }

// Procedure is one discovered routine.
type Procedure struct {
	Name       string
	Entry      uint32
	EntryState State

	IR *ir.Array

	CFGHead int   // basic-block index of the entry block, -1 until built
	DFSLast []int // basic-block indexes in reverse post-order
	NumBB   int

	Flags      Flag
	Convention Convention
	CBParam    int // bytes of argument popped by the callee/call site

	Locals    *ident.Table
	ReturnVar int // local-identifier index of the return-value register, -1 if void
	ReturnT   ReturnKind

	LiveIn  uint32
	LiveOut uint32

	// SwitchCases maps a SWITCH-flagged IR index to its dense array of
	// case-target IR indexes, interned by the flow-follower's indirect-
	// jump handling and consumed by CFG construction's multi-branch
	// out-edge linking.
	SwitchCases map[int][]int

	Next, Prev int // sibling links in the procedure list, -1 if none
}

// New returns a procedure record ready for flow-following.
func New(name string, entry uint32) *Procedure {
	return &Procedure{
		Name:       name,
		Entry:      entry,
		IR:         ir.New(),
		CFGHead:    -1,
		ReturnVar:   -1,
		Locals:      ident.New(),
		SwitchCases: make(map[int][]int),
		Next:        -1,
		Prev:        -1,
	}
}

// Has reports whether flag f is set.
func (p *Procedure) Has(f Flag) bool { return p.Flags&f != 0 }

// Set sets flag f.
func (p *Procedure) Set(f Flag) { p.Flags |= f }

// Clear clears flag f.
func (p *Procedure) Clear(f Flag) { p.Flags &^= f }

// ReturnExpr builds the RET(expr) high-level node's expression for a
// function procedure, using the return-value identifier.
func (p *Procedure) ReturnExpr() *expr.Expr {
	if p.ReturnVar < 0 {
		return nil
	}
	if p.ReturnT == ReturnLong {
		return expr.NewLongRegister(p.ReturnVar)
	}
	return expr.NewRegister(p.ReturnVar)
}

// List is the process-wide procedure list: a simple slice indexed by
// procedure id, with Next/Prev sibling indexes standing in for the
// doubly-linked list original_source uses, since Go has no stable node
// addresses to chain through.
type List struct {
	Procs []*Procedure
}

// NewList returns an empty procedure list.
func NewList() *List { return &List{} }

// Add appends p and returns its procedure id.
func (l *List) Add(p *Procedure) int {
	l.Procs = append(l.Procs, p)
	return len(l.Procs) - 1
}

// FindByEntry returns the procedure id whose entry address equals entry,
// or -1 if none has been created yet: the flow-follower's "search the
// procedure list for an existing procedure at that entry" step of CALL
// handling.
func (l *List) FindByEntry(entry uint32) int {
	for i, p := range l.Procs {
		if p.Entry == entry {
			return i
		}
	}
	return -1
}

// Get returns the procedure at id.
func (l *List) Get(id int) *Procedure { return l.Procs[id] }
