package opcode

// Reg is a register code in the scanner's fixed addressing space: codes
// below IndirectBase name plain registers (byte or word, selected by the
// instruction's Byte flag), codes at or above it name an addressing-mode
// combination ([reg], [reg+reg], [reg+disp]).
type Reg = uint8

// Word-register codes, matching the x86 ModR/M reg-field encoding order.
const (
	RegAX Reg = iota
	RegCX
	RegDX
	RegBX
	RegSP
	RegBP
	RegSI
	RegDI
)

// Byte-register codes share the same 0-7 encoding space as word
// registers; the scanner disambiguates using the instruction's Byte
// flag, matching the original's single REG() extraction feeding either
// interpretation.
const (
	RegAL = RegAX
	RegCL = RegCX
	RegDL = RegDX
	RegBL = RegBX
	RegAH = RegSP
	RegCH = RegBP
	RegDH = RegSI
	RegBH = RegDI
)

// Segment-register codes (ModR/M "seg" field / prefix-derived overrides).
const (
	RegES Reg = iota
	RegCS
	RegSS
	RegDS
)

// IndirectBase is the Operand.Reg threshold above which a value denotes
// an addressing-mode combination rather than a plain register.
const IndirectBase = 100

// 16-bit ModR/M rm-field addressing combinations, valid when mod != 11.
const (
	IndBXSI Reg = IndirectBase + iota // [BX+SI]
	IndBXDI                           // [BX+DI]
	IndBPSI                           // [BP+SI]
	IndBPDI                           // [BP+DI]
	IndSI                             // [SI]
	IndDI                             // [DI]
	IndBPDisp                         // [BP+disp] (mod != 00)
	IndBX                             // [BX]
	IndDirect                         // [disp16] direct address (mod==00, rm==6)
)

// rmMod00 maps a raw ModR/M rm field (0-7) at mod==00 to its indirect
// addressing mode, with rm==6 special-cased to IndDirect.
var rmMod00 = [8]Reg{IndBXSI, IndBXDI, IndBPSI, IndBPDI, IndSI, IndDI, IndDirect, IndBX}

// rmModOther maps rm (0-7) at mod==01/10 (8-bit/16-bit displacement
// present) to its indirect addressing mode; rm==6 becomes [BP+disp].
var rmModOther = [8]Reg{IndBXSI, IndBXDI, IndBPSI, IndBPDI, IndSI, IndDI, IndBPDisp, IndBX}

// IndirectReg resolves a ModR/M (mod, rm) pair (mod in {0,1,2}, rm in
// 0-7) to its indirect addressing-mode Reg code.
func IndirectReg(mod, rm byte) Reg {
	if mod == 0 {
		return rmMod00[rm]
	}
	return rmModOther[rm]
}

// UsesBP reports whether the indirect addressing mode involves BP as a
// base register: the scanner's signal to select SS over DS as the
// effective segment.
func UsesBP(r Reg) bool {
	return r == IndBPSI || r == IndBPDI || r == IndBPDisp
}
