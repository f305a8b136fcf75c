// Package flow implements the recursive flow-follower: it walks a
// procedure's reachable instructions from its entry state, builds its
// IR stream, discovers callees and spawns their procedure records, and
// recognizes the indexed-jump-table (switch) idiom.
//
// Grounded on original_source's scanner-adjacent control-transfer
// handling (dcc.h's JCond/state shape).
package flow

import (
	"github.com/dcc-go/dcc/pkg/callgraph"
	"github.com/dcc-go/dcc/pkg/interact"
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/libsig"
	"github.com/dcc-go/dcc/pkg/memmap"
	"github.com/dcc-go/dcc/pkg/opcode"
	"github.com/dcc-go/dcc/pkg/proc"
	"github.com/dcc-go/dcc/pkg/scanner"
	"github.com/dcc-go/dcc/pkg/symtab"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Follower drives the recursive walk: recursive descent over shared,
// mutated-in-place state. The scanner, procedure list, call graph,
// symbol table, and memory map are mutated by the walk and read by
// every later pass.
type Follower struct {
	Scan   *scanner.Scanner
	Procs  *proc.List
	Calls  *callgraph.Graph
	Sym    *symtab.Table
	Mem    *memmap.Map
	Sig    libsig.Matcher
	Prompt interact.Prompter
	Log    *logrus.Logger

	visiting map[int]bool // procedure ids currently being walked, guards self/mutual recursion
}

// New returns a Follower over the given shared tables.
func New(s *scanner.Scanner, procs *proc.List, calls *callgraph.Graph, sym *symtab.Table, mem *memmap.Map, sig libsig.Matcher, prompt interact.Prompter, log *logrus.Logger) *Follower {
	return &Follower{Scan: s, Procs: procs, Calls: calls, Sym: sym, Mem: mem, Sig: sig, Prompt: prompt, Log: log, visiting: make(map[int]bool)}
}

// Walk discovers (if necessary) and fully walks the procedure whose
// entry is addr, returning its procedure id. If a procedure at addr is
// already known, its id is returned without re-walking: the callee
// lookup predates the recursive call, so self- and mutual-recursion do
// not re-enter a running analysis.
func (f *Follower) Walk(addr uint32, name string) (int, error) {
	if id := f.Procs.FindByEntry(addr); id >= 0 {
		return id, nil
	}
	p := proc.New(name, addr)
	id := f.Procs.Add(p)
	p.EntryState.IP = addr
	if err := f.walkFrom(id, p.EntryState); err != nil {
		return id, err
	}
	return id, nil
}

func (f *Follower) walkFrom(procID int, st proc.State) error {
	if f.visiting[procID] {
		return nil
	}
	f.visiting[procID] = true
	defer delete(f.visiting, procID)

	p := f.Procs.Get(procID)
	return f.step(procID, p, st)
}

// step scans one instruction at st.IP, updates state, appends IR, and
// recurses according to the instruction's control-transfer shape.
func (f *Follower) step(procID int, p *proc.Procedure, st proc.State) error {
	for {
		ins, n, ferr := f.Scan.Decode(st.IP)
		if ferr == scanner.ErrOutOfRange {
			p.Set(proc.FlagBadInst)
			p.Clear(proc.FlagTerminates)
			return errors.Errorf("IP out of range at %#x", st.IP)
		}
		if ferr == scanner.ErrInvalidOpcode {
			p.Set(proc.FlagBadInst)
			p.Clear(proc.FlagTerminates)
			return errors.Errorf("invalid opcode at %#x", st.IP)
		}
		if ferr == scanner.ErrInvalid386Opcode || ferr == scanner.ErrFunnySegOverride || ferr == scanner.ErrFunnyRepPrefix {
			f.Log.WithField("addr", st.IP).Warn(ferr.Error())
			p.Set(proc.FlagAsm)
		}

		if idx := p.IR.FindByLabel(st.IP); idx >= 0 && idx < p.IR.Len() {
			// Already-parsed straight-line target reached by fallthrough:
			// nothing more to append, the earlier walk owns it.
			return nil
		}

		f.markOperands(&ins, st.IP, n)
		irIdx := p.IR.Append(ins)
		mn := ins.Low.Mnemonic

		switch {
		case mn.IsConditionalJump():
			return f.followConditional(procID, p, &ins, irIdx, st, n)
		case mn == opcode.MnJMP && ins.Low.Flags&opcode.Indirect == 0:
			return f.followUncondJump(procID, p, &ins, irIdx, st)
		case mn == opcode.MnJMP:
			// Indirect jump: recognize the switch idiom, else mark IJmp.
			return f.followIndirectJump(procID, p, &ins, irIdx, st)
		case mn.IsCall():
			if err := f.followCall(procID, p, &ins, irIdx, st); err != nil {
				return err
			}
			st.IP += uint32(n)
		case mn.IsReturn():
			p.Convention = conventionFromReturn(mn)
			p.Clear(proc.FlagTerminates)
			return nil
		case mn == opcode.MnINT:
			f.handleInt21(p, &ins, st)
			st.IP += uint32(n)
		case mn == opcode.MnMOV, mn == opcode.MnLEA, mn == opcode.MnLDS, mn == opcode.MnLES, mn == opcode.MnSHL:
			updateSymbolicState(&st, &ins)
			st.IP += uint32(n)
		default:
			st.IP += uint32(n)
		}
	}
}

func conventionFromReturn(mn opcode.Mnemonic) proc.Convention {
	if mn == opcode.MnRETF {
		return proc.ConventionUnknown
	}
	return proc.ConventionUnknown
}

// markOperands updates the memory-type bitmap and symbol table for each
// operand of ins, and computes its register def/use masks; every
// scanned instruction invokes this.
func (f *Follower) markOperands(ins *ir.Instruction, addr uint32, n int) {
	f.Mem.MarkCode(addr, n)
	low := ins.Low
	byteSize := low.Flags&opcode.Byte != 0

	markOperand := func(o ir.Operand, isDef bool) {
		if o.Reg >= opcode.IndirectBase {
			ins.RegUseMask |= opcode.DUMask(o.Reg, byteSize, false)
			if o.Disp != 0 || o.Reg == opcode.IndDirect {
				f.Sym.Enter(uint32(int32(addr)+int32(o.Disp)), symtab.KindWord, "")
				f.Mem.MarkData(uint32(int32(addr)+int32(o.Disp)), 2)
			}
			return
		}
		m := opcode.DUMask(o.Reg, byteSize, false)
		if isDef {
			ins.RegDefMask |= m
		} else {
			ins.RegUseMask |= m
		}
	}
	if low.Flags&opcode.NoOps == 0 {
		markOperand(low.Dst, true)
		if low.Flags&opcode.NoSrc == 0 {
			markOperand(low.Src, false)
		}
	}
}

func updateSymbolicState(st *proc.State, ins *ir.Instruction) {
	low := ins.Low
	if low.Dst.Reg < opcode.IndirectBase && int(low.Dst.Reg) < len(st.Regs) {
		if low.Flags&opcode.Byte == 0 {
			st.Regs[low.Dst.Reg] = uint16(low.Immed)
			st.Valid[low.Dst.Reg] = true
		}
	}
}

func (f *Follower) followConditional(procID int, p *proc.Procedure, ins *ir.Instruction, irIdx int, st proc.State, n int) error {
	fallState := st
	fallState.IP = st.IP + uint32(n)
	if err := f.step(procID, p, fallState); err != nil {
		return err
	}
	targetState := st
	targetState.IP = uint32(ins.Low.Immed)
	return f.step(procID, p, targetState)
}

func (f *Follower) followUncondJump(procID int, p *proc.Procedure, ins *ir.Instruction, irIdx int, st proc.State) error {
	target := uint32(ins.Low.Immed)
	if existing := p.IR.FindByLabel(target); existing >= 0 {
		// Already reached via another path (e.g. both arms of an if/else
		// converging on a shared JMP target): Immed stays the target
		// address so cfg.Build's addrToSeq lookup resolves this edge the
		// same way any other jump's target does.
		return nil
	}
	st.IP = target
	return f.step(procID, p, st)
}

// followIndirectJump recognizes "JMP word_offset[BX|SI|DI]" switch
// tables. Without a preceding bound (st.HasJCond false) it asks the
// prompter to classify the target, and if that declines it bails out
// safely and flags the procedure PROC_IJMP.
func (f *Follower) followIndirectJump(procID int, p *proc.Procedure, ins *ir.Instruction, irIdx int, st proc.State) error {
	if !st.HasJCond {
		if target, ok := f.Prompt.ClassifyIndirect(st.IP); ok {
			st.IP = target
			return f.step(procID, p, st)
		}
		p.Set(proc.FlagIJmp)
		p.Clear(proc.FlagTerminates)
		return nil
	}
	count := int(st.JCondImmed) + 1
	if d := f.Prompt.ConfirmSwitchBound(st.IP, count); d == interact.DecisionReject {
		p.Set(proc.FlagIJmp)
		return nil
	}
	tableBase := uint32(ins.Low.Immed)
	cases := make([]int, 0, count)
	for i := 0; i < count; i++ {
		entryOff := tableBase + uint32(i*2)
		w, ok := f.Scan.Word16At(entryOff)
		if !ok {
			break
		}
		if w == 0 {
			continue
		}
		targetAddr := uint32(w)
		if targetAddr >= tableBase && targetAddr < tableBase+uint32(count*2) {
			continue // lands inside the table itself: prune
		}
		idx := p.IR.FindByLabel(targetAddr)
		if idx < 0 {
			caseState := st
			caseState.IP = targetAddr
			if err := f.step(procID, p, caseState); err != nil {
				continue
			}
			idx = p.IR.FindByLabel(targetAddr)
		}
		if idx >= 0 {
			cases = append(cases, idx)
		}
	}
	ins.Low.Flags |= opcode.Switch
	p.Set(proc.FlagHasCase)
	p.SwitchCases[irIdx] = cases
	return nil
}

func (f *Follower) followCall(procID int, p *proc.Procedure, ins *ir.Instruction, irIdx int, st proc.State) error {
	var target uint32
	var resolved bool
	if ins.Low.Flags&opcode.Indirect == 0 {
		// Direct call: Immed holds the target offset computed by the
		// scanner's FormDispN/FormDispF decode; a far call's segment
		// (FormDispF, in Dst.SegValue) is added to it here.
		target = uint32(ins.Low.Immed)
		if ins.Low.Mnemonic == opcode.MnCALLF {
			target += uint32(ins.Low.Dst.SegValue) << 4
		}
		resolved = true
	} else if ins.Low.Dst.Reg < opcode.IndirectBase {
		// Indirect through a register: the symbolic state would need to
		// hold a known value for it; not tracked precisely enough here,
		// so this falls through to the unresolved path below.
	} else if ins.Low.Dst.Reg != opcode.IndDirect {
		// Indexed memory operand: base/index register values are not
		// tracked, so this also falls through to the unresolved path.
	} else if v, ok := f.Scan.Word16At(memOperandAddr(ins.Low.Dst, st)); ok {
		// Indirect through memory: read the word (or dword for far) at
		// the addressed location.
		target = uint32(v)
		resolved = true
		if ins.Low.Mnemonic == opcode.MnCALLF {
			seg, segOK := f.Scan.Word16At(memOperandAddr(ins.Low.Dst, st) + 2)
			target += uint32(seg) << 4
			resolved = segOK
		}
	}
	if !resolved {
		p.Set(proc.FlagIJmp)
		return nil
	}
	if name, ok := f.Sig.Match(libsigPattern(f.Scan, target)); ok {
		calleeID := f.Procs.FindByEntry(target)
		if calleeID < 0 {
			lib := proc.New(name, target)
			lib.Set(proc.FlagIsLibrary)
			calleeID = f.Procs.Add(lib)
		}
		f.Calls.AddCall(procID, calleeID)
		ins.Low.Proc = calleeID
		ins.Low.Flags |= opcode.SymbolUse
		return nil
	}
	calleeID := f.Procs.FindByEntry(target)
	if calleeID < 0 {
		name := f.Sym.Get(f.Sym.Enter(target, symtab.KindProc, "")).Name
		callee := proc.New(name, target)
		calleeID = f.Procs.Add(callee)
		f.Calls.AddCall(procID, calleeID)
		savedState := st
		if err := f.walkFrom(calleeID, proc.State{IP: target}); err != nil {
			f.Log.WithError(err).WithField("proc", name).Warn("callee walk failed")
		}
		st = savedState
	} else {
		f.Calls.AddCall(procID, calleeID)
	}
	ins.Low.Proc = calleeID
	ins.Low.Flags |= opcode.SymbolUse
	return nil
}

// memOperandAddr returns a memory operand's displacement as its
// address, which is the whole effective address for direct addressing
// ([disp16]); base and index register values are not added.
func memOperandAddr(o ir.Operand, st proc.State) uint32 {
	if o.Reg == opcode.IndDirect {
		return uint32(uint16(o.Disp))
	}
	return uint32(uint16(o.Disp))
}

func libsigPattern(s *scanner.Scanner, addr uint32) []byte {
	const patLen = 16
	end := int(addr) + patLen
	if end > len(s.Image) {
		end = len(s.Image)
	}
	if int(addr) >= len(s.Image) {
		return nil
	}
	return s.Image[addr:end]
}

// handleInt21 special-cases DOS function numbers 0x00/0x31/0x4C
// (termination) and 0x09 (string write).
func (f *Follower) handleInt21(p *proc.Procedure, ins *ir.Instruction, st proc.State) {
	if ins.Low.Immed != 0x21 {
		return
	}
	ah, ok := st.Regs[aregIndex()], st.Valid[aregIndex()]
	_ = ah
	if !ok {
		return
	}
	switch byte(st.Regs[aregIndex()] >> 8) {
	case 0x00, 0x31, 0x4C:
		p.Clear(proc.FlagTerminates)
	case 0x09:
		dx := st.Regs[dregIndex()]
		addr := uint32(dx)
		text := readAsciz(f.Scan.Image, addr)
		f.Sym.InternString(addr, text)
	}
}

func aregIndex() int { return int(opcode.RegAX) } // st.Regs is indexed by word-register code
func dregIndex() int { return int(opcode.RegDX) }

func readAsciz(image []byte, addr uint32) string {
	end := addr
	for int(end) < len(image) && image[end] != '$' && image[end] != 0 {
		end++
	}
	if int(addr) >= len(image) {
		return ""
	}
	return string(image[addr:end])
}
