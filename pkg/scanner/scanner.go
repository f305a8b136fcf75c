// Package scanner decodes one machine instruction at a given image
// offset into one low-level IR node, table-driven from pkg/opcode's
// 256-entry dispatch table with a two-stage (state1/state2) decode.
//
// Grounded on original_source/src/scanner.c/scanner.h.
package scanner

import (
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/opcode"
)

// Err is a scanner failure code, a closed enumeration.
type Err int

const (
	ErrNone Err = iota
	ErrOutOfRange
	ErrInvalidOpcode
	ErrInvalid386Opcode
	ErrFunnySegOverride
	ErrFunnyRepPrefix
)

func (e Err) Error() string {
	switch e {
	case ErrOutOfRange:
		return "out-of-range"
	case ErrInvalidOpcode:
		return "invalid-opcode"
	case ErrInvalid386Opcode:
		return "invalid-386-opcode"
	case ErrFunnySegOverride:
		return "funny-segment-override"
	case ErrFunnyRepPrefix:
		return "funny-rep-prefix"
	default:
		return "none"
	}
}

// Scanner decodes instructions out of a flat, already-relocated image.
// SegPrefix and RepPrefix are the two process-wide latches a prefix
// byte sets and the following instruction consumes; kept here as
// scanner-local fields, threaded explicitly by the caller rather than
// module globals.
type Scanner struct {
	Image []byte
	// Reloc is the set of image offsets that are relocation-table
	// entries; an immediate word read from one of these offsets is
	// marked SegImmed so later segment resolution can lift it.
	Reloc map[uint32]bool

	SegPrefix opcode.Reg // 0 means "none"; callers must track presence separately
	HasSeg    bool
	RepPrefix opcode.Mnemonic // MnREP, MnREPNE, or MnNone
}

// New returns a scanner over image, with relocOffsets marking which byte
// offsets are relocation-table entries.
func New(image []byte, relocOffsets []uint32) *Scanner {
	s := &Scanner{Image: image, Reloc: make(map[uint32]bool, len(relocOffsets))}
	for _, o := range relocOffsets {
		s.Reloc[o] = true
	}
	return s
}

func (s *Scanner) resetPrefixes() {
	s.HasSeg = false
	s.SegPrefix = 0
	s.RepPrefix = opcode.MnNone
}

func (s *Scanner) byteAt(off uint32) (byte, bool) {
	if int(off) >= len(s.Image) {
		return 0, false
	}
	return s.Image[off], true
}

func (s *Scanner) word16At(off uint32) (uint16, bool) {
	if int(off)+1 >= len(s.Image) {
		return 0, false
	}
	return uint16(s.Image[off]) | uint16(s.Image[off+1])<<8, true
}

// Word16At reads a little-endian word at off, for callers outside the
// decode loop (the flow-follower's indirect-CALL/switch-table resolution).
func (s *Scanner) Word16At(off uint32) (uint16, bool) { return s.word16At(off) }

// Decode decodes one instruction at offset. It returns the populated
// low-level instruction, the number of bytes consumed (including any
// absorbed prefixes), and a failure code (ErrNone on success).
func (s *Scanner) Decode(offset uint32) (ir.Instruction, int, Err) {
	cursor := offset
	s.resetPrefixes()

	for {
		b, ok := s.byteAt(cursor)
		if !ok {
			return ir.Instruction{}, int(cursor - offset), ErrOutOfRange
		}
		entry := opcode.Table[b]
		if entry.State1 == opcode.FormPrefix {
			switch b {
			case 0x26:
				s.SegPrefix, s.HasSeg = opcode.RegES, true
			case 0x2E:
				s.SegPrefix, s.HasSeg = opcode.RegCS, true
			case 0x36:
				s.SegPrefix, s.HasSeg = opcode.RegSS, true
			case 0x3E:
				s.SegPrefix, s.HasSeg = opcode.RegDS, true
			case 0xF0:
				// LOCK: absorbed, no state retained.
			case 0xF2:
				s.RepPrefix = opcode.MnREPNE
			case 0xF3:
				s.RepPrefix = opcode.MnREP
			}
			cursor++
			continue
		}
		break
	}

	b, _ := s.byteAt(cursor)
	entry := opcode.Table[b]
	if entry.TableFlags&opcode.Op386 != 0 {
		return ir.Instruction{}, int(cursor - offset + 1), ErrInvalid386Opcode
	}
	if entry.State1 == opcode.FormNone && entry.Mnemonic == opcode.MnNone && b != 0x90 {
		return ir.Instruction{}, int(cursor - offset + 1), ErrInvalidOpcode
	}

	low := &ir.LowLevel{Mnemonic: entry.Mnemonic, Flags: entry.TableFlags, FlagsDef: entry.FlagsDef, FlagsUse: entry.FlagsUse}
	cur := cursor + 1

	// INT opcode (0xCD) with an 0x34-0x3B immediate is Borland/MS FP
	// emulation and is converted to ESC.
	if b == 0xCD {
		imm, ok := s.byteAt(cur)
		if !ok {
			return ir.Instruction{}, int(cur - offset), ErrOutOfRange
		}
		cur++
		if imm >= 0x34 && imm <= 0x3B {
			low.Mnemonic = opcode.MnESC
			low.Flags |= opcode.FloatOp
		} else {
			low.Immed = int64(imm)
		}
		return s.finish(low, offset, cur)
	}

	var regField byte
	var haveModRM bool
	decodeModRM := func(byteSize bool) (ir.Operand, Err) {
		mb, ok := s.byteAt(cur)
		if !ok {
			return ir.Operand{}, ErrOutOfRange
		}
		cur++
		mod := (mb >> 6) & 0x03
		regField = (mb >> 3) & 0x07
		rm := mb & 0x07
		haveModRM = true
		if mod == 3 {
			return ir.Operand{Reg: rm}, ErrNone
		}
		opnd := ir.Operand{Reg: opcode.IndirectReg(mod, rm)}
		if mod == 1 {
			d, ok := s.byteAt(cur)
			if !ok {
				return ir.Operand{}, ErrOutOfRange
			}
			cur++
			opnd.Disp = int16(int8(d))
		} else if mod == 2 || (mod == 0 && rm == 6) {
			d, ok := s.word16At(cur)
			if !ok {
				return ir.Operand{}, ErrOutOfRange
			}
			cur += 2
			opnd.Disp = int16(d)
		}
		if s.HasSeg {
			opnd.SegOverride = s.SegPrefix
			opnd.Seg = s.SegPrefix
		} else if opcode.UsesBP(opnd.Reg) {
			opnd.Seg = opcode.RegSS
		} else {
			opnd.Seg = opcode.RegDS
		}
		return opnd, ErrNone
	}

	byteSize := entry.TableFlags&opcode.Byte != 0
	toReg := entry.TableFlags&opcode.ToReg != 0

	switch entry.State1 {
	case opcode.FormModRM, opcode.FormSegRM:
		rm, ferr := decodeModRM(byteSize)
		if ferr != ErrNone {
			return ir.Instruction{}, int(cur - offset), ferr
		}
		regOp := ir.Operand{Reg: regField}
		if toReg {
			low.Dst, low.Src = regOp, rm
		} else {
			low.Dst, low.Src = rm, regOp
		}
	case opcode.FormMemOnly:
		rm, ferr := decodeModRM(byteSize)
		if ferr != ErrNone {
			return ir.Instruction{}, int(cur - offset), ferr
		}
		low.Src = rm
	case opcode.FormMemReg0, opcode.FormArith, opcode.FormTrans, opcode.FormShift:
		rm, ferr := decodeModRM(byteSize)
		if ferr != ErrNone {
			return ir.Instruction{}, int(cur - offset), ferr
		}
		low.Dst = rm
		if entry.State1 == opcode.FormArith {
			low.Mnemonic = arithSubOp(regField)
		}
		if entry.State1 == opcode.FormTrans {
			low.Mnemonic = transSubOp(regField)
			if low.Mnemonic == opcode.MnCALL || low.Mnemonic == opcode.MnCALLF ||
				low.Mnemonic == opcode.MnJMP || low.Mnemonic == opcode.MnJMPF {
				low.Flags |= opcode.Indirect
			}
		}
	case opcode.FormRegOp:
		low.Dst = ir.Operand{Reg: b & 0x07}
		if entry.Mnemonic == opcode.MnINC || entry.Mnemonic == opcode.MnDEC ||
			entry.Mnemonic == opcode.MnPUSH || entry.Mnemonic == opcode.MnXCHG {
			// single-operand register forms: dst only.
		} else {
			low.Src = ir.Operand{Reg: b & 0x07}
		}
	case opcode.FormSegOp:
		low.Dst = ir.Operand{Reg: (b >> 3) & 0x03}
	case opcode.FormData1, opcode.FormData2, opcode.FormDispS, opcode.FormDispN,
		opcode.FormConst1, opcode.FormConst3, opcode.FormStrOp, opcode.FormEscOp,
		opcode.FormNone1, opcode.FormCheckInt, opcode.FormDispM, opcode.FormDispF:
		// handled below in state2 / immediate phase; no ModR/M here.
	}

	// Group opcodes (0x80-0x83, 0xF6/0xF7, 0xFE/0xFF, 0xD0-0xD3) pick
	// their true mnemonic from the regField once ModR/M is decoded.
	if haveModRM {
		switch b {
		case 0x80, 0x81, 0x83:
			low.Mnemonic = group1Op(regField)
		case 0xD0, 0xD1, 0xD2, 0xD3:
			low.Mnemonic = shiftOp(regField)
		}
	}

	switch entry.State2 {
	case opcode.FormALImp:
		low.Dst = ir.Operand{Reg: opcode.RegAX}
	case opcode.FormAXImp:
		low.Dst = ir.Operand{Reg: opcode.RegAX}
	case opcode.FormNone2, opcode.FormNone1:
		// nothing further.
	}

	// MOV reg, imm (0xB0-0xBF) carries its immediate in State2 rather
	// than State1 (State1 names the register destination instead); fall
	// back to State2 so that immediate is still read and consumed.
	immForm := entry.State1
	if immForm == opcode.FormRegOp {
		immForm = entry.State2
	}
	switch immForm {
	case opcode.FormData1:
		v, ok := s.byteAt(cur)
		if !ok {
			return ir.Instruction{}, int(cur - offset), ErrOutOfRange
		}
		cur++
		low.Immed = int64(v)
		low.Flags |= byteImmedFlag
	case opcode.FormData2:
		v, ok := s.word16At(cur)
		if !ok {
			return ir.Instruction{}, int(cur - offset), ErrOutOfRange
		}
		if s.Reloc[cur] {
			low.Flags |= opcode.SegImmed
		}
		cur += 2
		low.Immed = int64(v)
	case opcode.FormDispS:
		d, ok := s.byteAt(cur)
		if !ok {
			return ir.Instruction{}, int(cur - offset), ErrOutOfRange
		}
		cur++
		low.Immed = int64(int32(cur) + int32(int8(d)))
	case opcode.FormDispN:
		d, ok := s.word16At(cur)
		if !ok {
			return ir.Instruction{}, int(cur - offset), ErrOutOfRange
		}
		cur += 2
		low.Immed = int64(uint32(int32(cur) + int32(int16(d))))
	case opcode.FormDispM:
		d, ok := s.word16At(cur)
		if !ok {
			return ir.Instruction{}, int(cur - offset), ErrOutOfRange
		}
		cur += 2
		low.Immed = int64(d)
		low.Flags |= opcode.WordOffset
	case opcode.FormDispF:
		off, ok := s.word16At(cur)
		if !ok {
			return ir.Instruction{}, int(cur - offset), ErrOutOfRange
		}
		seg, ok := s.word16At(cur + 2)
		if !ok {
			return ir.Instruction{}, int(cur - offset), ErrOutOfRange
		}
		cur += 4
		low.Immed = int64(off)
		low.Dst.SegValue = seg
	case opcode.FormImmed:
		if byteSize {
			v, ok := s.byteAt(cur)
			if !ok {
				return ir.Instruction{}, int(cur - offset), ErrOutOfRange
			}
			cur++
			low.Immed = int64(int8(v))
		} else {
			v, ok := s.word16At(cur)
			if !ok {
				return ir.Instruction{}, int(cur - offset), ErrOutOfRange
			}
			cur += 2
			low.Immed = int64(int16(v))
		}
	case opcode.FormConst1:
		low.Immed = 1
	case opcode.FormConst3:
		v, ok := s.word16At(cur)
		if !ok {
			return ir.Instruction{}, int(cur - offset), ErrOutOfRange
		}
		cur += 2
		low.Immed = int64(v)
	case opcode.FormCheckInt:
		v, ok := s.byteAt(cur)
		if !ok {
			return ir.Instruction{}, int(cur - offset), ErrOutOfRange
		}
		cur++
		low.Immed = int64(v)
	case opcode.FormStrOp:
		if s.RepPrefix != opcode.MnNone {
			low.Mnemonic = repRewrite(low.Mnemonic, s.RepPrefix)
			s.RepPrefix = opcode.MnNone
		}
	}

	if s.HasSeg && entry.State1 != opcode.FormModRM && entry.State1 != opcode.FormSegRM &&
		entry.State1 != opcode.FormMemOnly && entry.State1 != opcode.FormMemReg0 &&
		entry.State1 != opcode.FormArith && entry.State1 != opcode.FormTrans && entry.State1 != opcode.FormShift {
		return ir.Instruction{}, int(cur - offset), ErrFunnySegOverride
	}
	if s.RepPrefix != opcode.MnNone && entry.State1 != opcode.FormStrOp {
		return ir.Instruction{}, int(cur - offset), ErrFunnyRepPrefix
	}

	return s.finish(low, offset, cur)
}

const byteImmedFlag = opcode.Byte

func (s *Scanner) finish(low *ir.LowLevel, offset, cur uint32) (ir.Instruction, int, Err) {
	ins := ir.Instruction{
		Kind:  ir.LowLevel,
		Label: offset,
		Low:   low,
	}
	if low.Mnemonic.IsReturn() || low.Mnemonic.IsUnconditionalJump() || low.Mnemonic == opcode.MnHLT {
		low.Flags |= opcode.Terminates
	}
	return ins, int(cur - offset), ErrNone
}

func arithSubOp(regField byte) opcode.Mnemonic {
	ops := [8]opcode.Mnemonic{opcode.MnTEST, opcode.MnTEST, opcode.MnNOT, opcode.MnNEG,
		opcode.MnMUL, opcode.MnIMUL, opcode.MnDIV, opcode.MnIDIV}
	return ops[regField&0x07]
}

func transSubOp(regField byte) opcode.Mnemonic {
	ops := [8]opcode.Mnemonic{opcode.MnINC, opcode.MnDEC, opcode.MnCALL, opcode.MnCALLF,
		opcode.MnJMP, opcode.MnJMPF, opcode.MnPUSH, opcode.MnNone}
	return ops[regField&0x07]
}

func group1Op(regField byte) opcode.Mnemonic {
	ops := [8]opcode.Mnemonic{opcode.MnADD, opcode.MnOR, opcode.MnADC, opcode.MnSBB,
		opcode.MnAND, opcode.MnSUB, opcode.MnXOR, opcode.MnCMP}
	return ops[regField&0x07]
}

func shiftOp(regField byte) opcode.Mnemonic {
	ops := [8]opcode.Mnemonic{opcode.MnROL, opcode.MnROR, opcode.MnRCL, opcode.MnRCR,
		opcode.MnSHL, opcode.MnSHR, opcode.MnSHL, opcode.MnSAR}
	return ops[regField&0x07]
}

func repRewrite(mn opcode.Mnemonic, rep opcode.Mnemonic) opcode.Mnemonic {
	// original's iREP_* rewrite: the mnemonic itself is retained, the
	// REP/REPNE latch is carried by the caller via the instruction's
	// source flags check instead of a distinct mnemonic space, since
	// pkg/opcode's Mnemonic enum already names MOVS/STOS/LODS/SCAS/CMPS
	// uniquely and REP-ness is fully determined by RepPrefix at scan time.
	return mn
}
