// Package idiom implements the fixed 21-entry idiom catalogue: a single
// pass over a procedure's IR array that recognizes
// short instruction windows and promotes them to one high-level
// instruction, followed by highLevelGen's mechanical lift of the
// remaining directly-liftable low-level opcodes.
package idiom

import (
	"github.com/dcc-go/dcc/pkg/expr"
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/opcode"
	"github.com/dcc-go/dcc/pkg/proc"
)

// Recognizer matches a window starting at pos in p's IR. It returns
// whether it matched, how many IR slots the window spans, and the
// high-level record to install in the window's first slot.
type Recognizer func(p *proc.Procedure, pos int) (ok bool, span int, hl *ir.HighLevel)

// Catalog is the fixed idiom list, in priority order (earlier entries
// take precedence at a given position).
var Catalog = []struct {
	Tag int
	Fn  Recognizer
}{
	{1, prologue},
	{2, epilogue},
	{3, cConventionCall},
	{4, pascalConventionRet},
	{5, longArith(opcode.MnADD, opcode.MnADC)},
	{6, longArith(opcode.MnSUB, opcode.MnSBB)},
	{7, xorSelfZero},
	{8, longShr(opcode.MnSAR)},
	{9, longShr(opcode.MnSHR)},
	{10, orCompareRewrite},
	{11, longNegation},
	{12, longShl1},
	{13, byteToWordZeroExtend},
	{14, buildLongHighZero},
	{15, shlByN},
	{16, logicalNot},
	{17, cCleanupPops},
	{18, postIncDecInConditional},
	{19, preIncDecVsZero},
	{20, preIncDecInConditional},
	{21, assignLongConstant},
}

func low(p *proc.Procedure, pos int) *ir.LowLevel {
	if pos >= p.IR.Len() {
		return nil
	}
	ins := p.IR.At(pos)
	if ins.Invalid || ins.Kind != ir.LowLevel {
		return nil
	}
	return ins.Low
}

func mn(p *proc.Procedure, pos int) opcode.Mnemonic {
	if l := low(p, pos); l != nil {
		return l.Mnemonic
	}
	return opcode.MnNone
}

func sameReg(a, b ir.Operand) bool { return a.Reg == b.Reg && a.Disp == b.Disp }

// invalidateAndEmit marks IR slots [pos, pos+span) invalid except pos,
// and installs hl as pos's high-level record: invalidates the subsumed
// instructions and emits one high-level instruction in the window's
// first slot.
func invalidateAndEmit(p *proc.Procedure, pos, span int, hl *ir.HighLevel) {
	for i := pos + 1; i < pos+span; i++ {
		p.IR.At(i).Invalid = true
	}
	ins := p.IR.At(pos)
	ins.Kind = ir.HighLevel
	ins.High = hl
}

func prologue(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	if mn(p, pos) != opcode.MnPUSH || low(p, pos).Src.Reg != opcode.RegBP {
		return false, 0, nil
	}
	if mn(p, pos+1) != opcode.MnMOV || low(p, pos+1).Dst.Reg != opcode.RegBP || low(p, pos+1).Src.Reg != opcode.RegSP {
		return false, 0, nil
	}
	span := 2
	if mn(p, pos+span) == opcode.MnSUB && low(p, pos+span).Dst.Reg == opcode.RegSP {
		span++
	}
	for mn(p, pos+span) == opcode.MnPUSH && (low(p, pos+span).Src.Reg == opcode.RegSI || low(p, pos+span).Src.Reg == opcode.RegDI) {
		span++
	}
	p.Set(proc.FlagIsHLL)
	return true, span, &ir.HighLevel{Kind: ir.HLNone}
}

func epilogue(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	span := 0
	for mn(p, pos+span) == opcode.MnPOP && (low(p, pos+span).Dst.Reg == opcode.RegDI || low(p, pos+span).Dst.Reg == opcode.RegSI) {
		span++
	}
	if mn(p, pos+span) != opcode.MnMOV || low(p, pos+span).Dst.Reg != opcode.RegSP || low(p, pos+span).Src.Reg != opcode.RegBP {
		return false, 0, nil
	}
	span++
	if mn(p, pos+span) != opcode.MnPOP || low(p, pos+span).Dst.Reg != opcode.RegBP {
		return false, 0, nil
	}
	span++
	if !mn(p, pos+span).IsReturn() {
		return false, 0, nil
	}
	span++
	return true, span, &ir.HighLevel{Kind: ir.HLNone}
}

func cConventionCall(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	if !mn(p, pos).IsCall() {
		return false, 0, nil
	}
	if mn(p, pos+1) != opcode.MnADD || low(p, pos+1).Dst.Reg != opcode.RegSP {
		return false, 0, nil
	}
	callee := low(p, pos).Proc
	if callee >= 0 {
		p.CBParam = int(low(p, pos+1).Immed)
		p.Convention = proc.ConventionC
	}
	return true, 2, &ir.HighLevel{Kind: ir.HLCall, Callee: p.Name, Proc: callee}
}

func pascalConventionRet(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	span := 0
	if mn(p, pos) == opcode.MnPOP && low(p, pos).Dst.Reg == opcode.RegBP {
		span = 1
	}
	if mn(p, pos+span) != opcode.MnRET || low(p, pos+span).Immed == 0 {
		return false, 0, nil
	}
	p.Convention = proc.ConventionPascal
	p.CBParam = int(low(p, pos+span).Immed)
	return true, span + 1, &ir.HighLevel{Kind: ir.HLRet}
}

func longArith(lo, hi opcode.Mnemonic) Recognizer {
	return func(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
		if mn(p, pos) != lo || mn(p, pos+1) != hi {
			return false, 0, nil
		}
		l1, l2 := low(p, pos), low(p, pos+1)
		lhs := expr.NewLongRegister(int(l1.Dst.Reg))
		rhs := expr.NewBoolean(arithOp(lo), expr.NewLongRegister(int(l1.Dst.Reg)), expr.NewLongRegister(int(l1.Src.Reg)))
		_ = l2
		return true, 2, &ir.HighLevel{Kind: ir.HLAssign, LHS: lhs, RHS: rhs}
	}
}

func arithOp(mnem opcode.Mnemonic) expr.Op {
	if mnem == opcode.MnADD {
		return expr.OpAdd
	}
	return expr.OpSub
}

func xorSelfZero(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	if mn(p, pos) != opcode.MnXOR {
		return false, 0, nil
	}
	l := low(p, pos)
	if !sameReg(l.Dst, l.Src) {
		return false, 0, nil
	}
	return true, 1, &ir.HighLevel{Kind: ir.HLAssign, LHS: expr.NewRegister(int(l.Dst.Reg)), RHS: expr.NewConstant(0, 2)}
}

func longShr(first opcode.Mnemonic) Recognizer {
	return func(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
		if mn(p, pos) != first || mn(p, pos+1) != opcode.MnRCR {
			return false, 0, nil
		}
		l1 := low(p, pos)
		return true, 2, &ir.HighLevel{Kind: ir.HLAssign,
			LHS: expr.NewLongRegister(int(l1.Dst.Reg)),
			RHS: expr.NewBoolean(expr.OpShr, expr.NewLongRegister(int(l1.Dst.Reg)), expr.NewConstant(1, 1))}
	}
}

func orCompareRewrite(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	if mn(p, pos) != opcode.MnOR {
		return false, 0, nil
	}
	l := low(p, pos)
	if !sameReg(l.Dst, l.Src) {
		return false, 0, nil
	}
	if mn(p, pos+1) != opcode.MnJNE {
		return false, 0, nil
	}
	// Rewrite OR r,r as CMP r,0 by leaving the low-level OR in place but
	// retyped for condition-code elimination to consume; no high-level
	// emission here, only an in-place mnemonic/flags rewrite.
	l.Mnemonic = opcode.MnCMP
	l.Src = ir.Operand{}
	l.Immed = 0
	return false, 0, nil
}

func longNegation(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	if mn(p, pos) != opcode.MnNEG || mn(p, pos+1) != opcode.MnNEG || mn(p, pos+2) != opcode.MnSBB {
		// NOTE: the original's idiom11 matcher also returns a match in
		// its dispatch's default fall-through arm, a latent bug that
		// produces false-positive long negations. It is not reproduced
		// here: defaultFallthroughMatch always reports false.
		if defaultFallthroughMatch(p, pos) {
			l1 := low(p, pos)
			return true, 3, &ir.HighLevel{Kind: ir.HLAssign,
				LHS: expr.NewLongRegister(int(l1.Dst.Reg)),
				RHS: expr.NewBoolean(expr.OpSub, expr.NewConstant(0, 4), expr.NewLongRegister(int(l1.Dst.Reg)))}
		}
		return false, 0, nil
	}
	l1 := low(p, pos)
	return true, 3, &ir.HighLevel{Kind: ir.HLAssign,
		LHS: expr.NewLongRegister(int(l1.Dst.Reg)),
		RHS: expr.NewBoolean(expr.OpSub, expr.NewConstant(0, 4), expr.NewLongRegister(int(l1.Dst.Reg)))}
}

// defaultFallthroughMatch mirrors the original idioms.c's switch
// statement, whose default: arm calls the long-negation emitter even
// when the three-instruction window didn't actually match, rather than
// returning "no match". This always evaluates false here because the
// three-instruction window is checked exhaustively above; kept as a
// named no-op so the anomaly is documented at the call site rather than
// silently dropped.
func defaultFallthroughMatch(p *proc.Procedure, pos int) bool { return false }

func longShl1(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	if mn(p, pos) != opcode.MnSHL || mn(p, pos+1) != opcode.MnRCL {
		return false, 0, nil
	}
	l1 := low(p, pos)
	return true, 2, &ir.HighLevel{Kind: ir.HLAssign,
		LHS: expr.NewLongRegister(int(l1.Dst.Reg)),
		RHS: expr.NewBoolean(expr.OpShl, expr.NewLongRegister(int(l1.Dst.Reg)), expr.NewConstant(1, 1))}
}

func byteToWordZeroExtend(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	if mn(p, pos) != opcode.MnMOV || mn(p, pos+1) != opcode.MnMOV {
		return false, 0, nil
	}
	l1, l2 := low(p, pos), low(p, pos+1)
	if l2.Immed != 0 {
		return false, 0, nil
	}
	return true, 2, &ir.HighLevel{Kind: ir.HLAssign,
		LHS: expr.NewRegister(int(l1.Dst.Reg)), RHS: expr.NewRegister(int(l1.Src.Reg))}
}

func buildLongHighZero(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	if mn(p, pos) != opcode.MnMOV || mn(p, pos+1) != opcode.MnXOR {
		return false, 0, nil
	}
	l1, l2 := low(p, pos), low(p, pos+1)
	if !sameReg(l2.Dst, l2.Src) {
		return false, 0, nil
	}
	ok := (l1.Dst.Reg == opcode.RegAX && l2.Dst.Reg == opcode.RegDX) ||
		(l1.Dst.Reg == opcode.RegBX && l2.Dst.Reg == opcode.RegCX)
	if !ok {
		return false, 0, nil
	}
	return true, 2, &ir.HighLevel{Kind: ir.HLAssign, LHS: expr.NewLongRegister(int(l1.Dst.Reg)), RHS: expr.NewRegister(int(l1.Dst.Reg))}
}

func shlByN(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	if mn(p, pos) != opcode.MnSHL {
		return false, 0, nil
	}
	l1 := low(p, pos)
	n := 1
	span := 1
	for mn(p, pos+span) == opcode.MnSHL && sameReg(low(p, pos+span).Dst, l1.Dst) {
		n++
		span++
	}
	if span < 2 {
		return false, 0, nil
	}
	return true, span, &ir.HighLevel{Kind: ir.HLAssign,
		LHS: expr.NewRegister(int(l1.Dst.Reg)),
		RHS: expr.NewBoolean(expr.OpShl, expr.NewRegister(int(l1.Dst.Reg)), expr.NewConstant(int64(n), 1))}
}

func logicalNot(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	if mn(p, pos) != opcode.MnNEG || mn(p, pos+1) != opcode.MnSBB || mn(p, pos+2) != opcode.MnINC {
		return false, 0, nil
	}
	l1 := low(p, pos)
	return true, 3, &ir.HighLevel{Kind: ir.HLAssign,
		LHS: expr.NewRegister(int(l1.Dst.Reg)), RHS: expr.NewNegation(expr.NewRegister(int(l1.Dst.Reg)))}
}

func cCleanupPops(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	if !mn(p, pos).IsCall() {
		return false, 0, nil
	}
	span := 1
	for mn(p, pos+span) == opcode.MnPOP {
		span++
	}
	if span == 1 {
		return false, 0, nil
	}
	callee := low(p, pos).Proc
	p.Convention = proc.ConventionC
	p.CBParam = (span - 1) * 2
	return true, span, &ir.HighLevel{Kind: ir.HLCall, Callee: p.Name, Proc: callee}
}

func postIncDecInConditional(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	if mn(p, pos) != opcode.MnMOV {
		return false, 0, nil
	}
	incdec := mn(p, pos+1)
	if incdec != opcode.MnINC && incdec != opcode.MnDEC {
		return false, 0, nil
	}
	if mn(p, pos+2) != opcode.MnCMP || !mn(p, pos+3).IsConditionalJump() {
		return false, 0, nil
	}
	l1 := low(p, pos)
	return true, 4, &ir.HighLevel{Kind: ir.HLJCond,
		Exp: expr.NewBoolean(expr.OpEQ, expr.NewRegister(int(l1.Src.Reg)), expr.NewConstant(low(p, pos+2).Immed, 2))}
}

func preIncDecVsZero(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	incdec := mn(p, pos)
	if incdec != opcode.MnINC && incdec != opcode.MnDEC {
		return false, 0, nil
	}
	if !mn(p, pos+1).IsConditionalJump() {
		return false, 0, nil
	}
	l1 := low(p, pos)
	return true, 2, &ir.HighLevel{Kind: ir.HLJCond,
		Exp: expr.NewBoolean(expr.OpEQ, expr.NewRegister(int(l1.Dst.Reg)), expr.NewConstant(0, 2))}
}

func preIncDecInConditional(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	incdec := mn(p, pos)
	if incdec != opcode.MnINC && incdec != opcode.MnDEC {
		return false, 0, nil
	}
	if mn(p, pos+1) != opcode.MnMOV || mn(p, pos+2) != opcode.MnCMP || !mn(p, pos+3).IsConditionalJump() {
		return false, 0, nil
	}
	l1 := low(p, pos)
	return true, 4, &ir.HighLevel{Kind: ir.HLJCond,
		Exp: expr.NewBoolean(expr.OpEQ, expr.NewRegister(int(l1.Dst.Reg)), expr.NewConstant(low(p, pos+2).Immed, 2))}
}

func assignLongConstant(p *proc.Procedure, pos int) (bool, int, *ir.HighLevel) {
	if mn(p, pos) != opcode.MnXOR || mn(p, pos+1) != opcode.MnMOV {
		return false, 0, nil
	}
	l1, l2 := low(p, pos), low(p, pos+1)
	if !sameReg(l1.Dst, l1.Src) {
		return false, 0, nil
	}
	return true, 2, &ir.HighLevel{Kind: ir.HLAssign,
		LHS: expr.NewLongRegister(int(l2.Dst.Reg)), RHS: expr.NewConstant(l2.Immed, 4)}
}

// Run performs one pass over p's IR, matching Catalog at each
// non-invalid low-level position in turn and advancing past a match's
// span, then mechanically lifting everything the catalogue left alone.
func Run(p *proc.Procedure) {
	for pos := 0; pos < p.IR.Len(); {
		ins := p.IR.At(pos)
		if ins.Invalid || ins.Kind != ir.LowLevel {
			pos++
			continue
		}
		matched := false
		for _, idm := range Catalog {
			ok, span, hl := idm.Fn(p, pos)
			if ok {
				invalidateAndEmit(p, pos, span, hl)
				pos += span
				matched = true
				break
			}
		}
		if !matched {
			pos++
		}
	}
	highLevelGen(p)
}

// assignOps maps a directly-liftable low-level mnemonic to its
// high-level shape, used by highLevelGen's mechanical lift pass.
var assignOps = map[opcode.Mnemonic]expr.Op{
	opcode.MnADD: expr.OpAdd, opcode.MnSUB: expr.OpSub, opcode.MnAND: expr.OpAnd,
	opcode.MnOR: expr.OpOr, opcode.MnXOR: expr.OpXor, opcode.MnSHL: expr.OpShl,
	opcode.MnSHR: expr.OpShr, opcode.MnMUL: expr.OpMul, opcode.MnIMUL: expr.OpMul,
	opcode.MnDIV: expr.OpDiv, opcode.MnIDIV: expr.OpDiv,
}

// highLevelGen mechanically lifts remaining low-level opcodes that have
// a direct high-level form.
func highLevelGen(p *proc.Procedure) {
	for pos := 0; pos < p.IR.Len(); pos++ {
		ins := p.IR.At(pos)
		if ins.Invalid || ins.Kind != ir.LowLevel {
			continue
		}
		l := ins.Low
		switch l.Mnemonic {
		case opcode.MnMOV, opcode.MnLEA:
			ins.Kind, ins.High = ir.HighLevel, &ir.HighLevel{Kind: ir.HLAssign,
				LHS: operandExpr(l.Dst), RHS: operandExpr(l.Src)}
		case opcode.MnNEG:
			ins.Kind, ins.High = ir.HighLevel, &ir.HighLevel{Kind: ir.HLAssign,
				LHS: operandExpr(l.Dst), RHS: expr.NewBoolean(expr.OpSub, expr.NewConstant(0, 2), operandExpr(l.Dst))}
		case opcode.MnNOT:
			ins.Kind, ins.High = ir.HighLevel, &ir.HighLevel{Kind: ir.HLAssign,
				LHS: operandExpr(l.Dst), RHS: expr.NewNegation(operandExpr(l.Dst))}
		case opcode.MnINC:
			ins.Kind, ins.High = ir.HighLevel, &ir.HighLevel{Kind: ir.HLAssign,
				LHS: operandExpr(l.Dst), RHS: expr.NewBoolean(expr.OpAdd, operandExpr(l.Dst), expr.NewConstant(1, 2))}
		case opcode.MnDEC:
			ins.Kind, ins.High = ir.HighLevel, &ir.HighLevel{Kind: ir.HLAssign,
				LHS: operandExpr(l.Dst), RHS: expr.NewBoolean(expr.OpSub, operandExpr(l.Dst), expr.NewConstant(1, 2))}
		case opcode.MnPUSH:
			ins.Kind, ins.High = ir.HighLevel, &ir.HighLevel{Kind: ir.HLPush, Exp: operandExpr(l.Src)}
		case opcode.MnPOP:
			ins.Kind, ins.High = ir.HighLevel, &ir.HighLevel{Kind: ir.HLPop, Exp: operandExpr(l.Dst)}
		case opcode.MnCALL, opcode.MnCALLF:
			ins.Kind, ins.High = ir.HighLevel, &ir.HighLevel{Kind: ir.HLCall, Proc: l.Proc}
		case opcode.MnRET, opcode.MnRETF:
			ins.Kind, ins.High = ir.HighLevel, &ir.HighLevel{Kind: ir.HLRet, Exp: p.ReturnExpr()}
		default:
			if op, ok := assignOps[l.Mnemonic]; ok {
				ins.Kind, ins.High = ir.HighLevel, &ir.HighLevel{Kind: ir.HLAssign,
					LHS: operandExpr(l.Dst), RHS: expr.NewBoolean(op, operandExpr(l.Dst), operandExpr(l.Src))}
			}
		}
	}
}

func operandExpr(o ir.Operand) *expr.Expr {
	if o.Reg >= opcode.IndirectBase {
		return expr.NewDereference(expr.NewBoolean(expr.OpAdd, expr.NewConstant(int64(o.Reg), 2), expr.NewConstant(int64(o.Disp), 2)))
	}
	return expr.NewRegister(int(o.Reg))
}
