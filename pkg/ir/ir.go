// Package ir implements the per-procedure intermediate representation:
// the tagged low-level/high-level instruction record, its operand
// record, and the auxiliary bookkeeping (def-use chains, register
// masks, basic-block back-pointers) later passes attach to it.
//
// Modeled as a table-driven record type (pkg/inst/instruction.go style)
// rather than a tree of instruction subtypes.
package ir

import "github.com/dcc-go/dcc/pkg/expr"
import "github.com/dcc-go/dcc/pkg/opcode"

// IndexBase is the threshold above which an Operand.Reg value denotes an
// addressing-mode combination ([reg], [reg+reg], [reg+disp]) rather than
// a plain register code.
const IndexBase = 100

// SynthesizedMin is the label value at and above which an instruction's
// image-offset label denotes a synthetic IR slot introduced by the
// flow-follower (an `iJMP` to an already-parsed target), not a real
// image address.
const SynthesizedMin = 0x100000

// Kind discriminates an Instruction's active record.
type Kind int

const (
	LowLevel Kind = iota
	HighLevel
)

// HLKind discriminates a HighLevel record's variant.
type HLKind int

const (
	HLNone HLKind = iota
	HLAssign
	HLCall
	HLPop
	HLPush
	HLRet
	HLJCond
)

// Operand is one operand of a low-level instruction.
type Operand struct {
	SegOverride uint8 // segment-override register code, 0 if none was present
	Seg         uint8 // effective segment register used to address this operand
	Reg         uint8 // base/index register code; >= IndexBase denotes indirect addressing
	Disp        int16 // displacement
	SegValue    uint16 // concrete segment value, resolved during flow-following
}

// LowLevel is the low-level instruction record.
type LowLevel struct {
	Mnemonic opcode.Mnemonic
	Src, Dst Operand
	Immed    int64 // immediate value; for CALL targets the target address, with the callee's procedure index kept in Proc
	Proc     int   // valid iff Flags&opcode.SymbolUse != 0 and Immed denotes a call target: callee procedure index
	Flags    opcode.Flag
	FlagsDef opcode.FlagBit
	FlagsUse opcode.FlagBit
}

// HighLevel is the high-level instruction record, one of
// ASSIGN(lhs,rhs) / CALL(callee,args) / POP/PUSH/RET/JCOND(exp).
type HighLevel struct {
	Kind   HLKind
	LHS    *expr.Expr
	RHS    *expr.Expr
	Exp    *expr.Expr // POP/PUSH/RET/JCOND's single expression
	Callee string
	Proc   int // callee procedure index, -1 if unresolved/library-by-name only
	Args   []*expr.Expr
}

// DefUse is the def-use chain (`du1`) attached to an instruction that
// defines up to two registers, with up to MaxUses reaching uses.
const MaxUses = 5

type DefUse struct {
	NumDefs int
	// Uses holds absolute IR indexes of instructions using the defined
	// registers. BuildDUChains collects the uses of all defined registers
	// together in Uses[0]; Uses[1] is not filled.
	Uses [2][]int
}

// Instruction is one IR node: a tagged low-level/high-level union plus
// the auxiliary fields every pass after the scanner attaches.
type Instruction struct {
	Kind    Kind
	Invalid bool
	Label   uint32 // image offset, or >= SynthesizedMin for synthetic nodes

	Low  *LowLevel
	High *HighLevel

	RegDefMask uint32 // bit i set iff duReg[i] is defined here
	RegUseMask uint32 // bit i set iff duReg[i] is used here

	DU DefUse

	BB       int // owning basic block index, -1 if not yet assigned
	HLLabel  int // high-level-label number for back-patching
	Bundle   int // code-bundle index for back-patching
}

// IsCall reports whether the instruction (low- or high-level) is a call.
func (ins *Instruction) IsCall() bool {
	if ins.Invalid {
		return false
	}
	if ins.Kind == LowLevel {
		return ins.Low != nil && ins.Low.Mnemonic.IsCall()
	}
	return ins.High != nil && ins.High.Kind == HLCall
}

// Terminates reports whether the low-level instruction is flagged as
// never falling through (RET/RETF/IRET/unconditional JMP/HLT).
func (ins *Instruction) Terminates() bool {
	return ins.Low != nil && ins.Low.Flags&opcode.Terminates != 0
}

// Array is a procedure's growable IR stream, keyed by position, not by
// image offset; label binding maps offsets to positions separately.
type Array struct {
	Items []Instruction
}

// New returns an empty IR array.
func New() *Array { return &Array{} }

// Append adds ins and returns its IR index.
func (a *Array) Append(ins Instruction) int {
	ins.BB = -1
	a.Items = append(a.Items, ins)
	return len(a.Items) - 1
}

// Len returns the number of IR slots, including invalidated ones.
func (a *Array) Len() int { return len(a.Items) }

// At returns a pointer to the IR slot at idx.
func (a *Array) At(idx int) *Instruction { return &a.Items[idx] }

// FindByLabel returns the IR index whose Label equals label, or -1.
// Linear scan; callers that need this repeatedly (label binding) should
// build an index instead, the way cfg.Build's addrToSeq map does.
func (a *Array) FindByLabel(label uint32) int {
	for i := range a.Items {
		if !a.Items[i].Invalid && a.Items[i].Label == label {
			return i
		}
	}
	return -1
}
