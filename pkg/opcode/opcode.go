// Package opcode holds the 256-entry x86 opcode dispatch table that
// drives the scanner's two-stage decode, grounded on
// original_source/src/scanner.c's stateTable[]. Each entry names a pair
// of operand-form handlers (State1/State2), the instruction's mnemonic,
// and its processor-flag def/use masks.
package opcode

// Form is an operand-form handler selector. The scanner (pkg/scanner)
// switches on Form to decide how to pull operands out of the following
// bytes.
type Form int

const (
	FormNone Form = iota
	FormModRM
	FormRegOp
	FormSegOp
	FormSegRM
	FormImmed
	FormShift
	FormArith
	FormTrans
	FormMemOnly
	FormMemReg0
	FormMemImp
	FormALImp
	FormAXImp
	FormAXSrcIm
	FormData1
	FormData2
	FormDispS
	FormDispN
	FormDispF
	FormDispM
	FormStrOp
	FormEscOp
	FormConst1
	FormConst3
	FormCheckInt
	FormPrefix
	FormNone1
	FormNone2
)

// Flag is a bitmask of static per-opcode properties plus dynamic
// per-instruction IR properties; the two share a namespace since the
// table's static bits seed the IR node's flags
// directly at decode time (Byte, ToReg/NoSrc/NotHLL/NoOps/Op386/NoLabel/
// FloatOp), the scanner adds Indirect, SegImmed, WordOffset, FloatOp and
// Terminates while decoding, and the rest (Switch, CaseLabel, SymbolUse,
// SymbolDef, Synthetic, Impure) are set later by the flow-follower,
// idiom pass, or switch-table resolution.
type Flag uint32

const (
	Byte      Flag = 1 << iota // operand is byte-sized, not word
	ToReg                      // ModR/M direction: memory/reg -> reg (vs reg -> memory/reg)
	NotSingle                  // second operand is a register pair size class (word, not AX-only)
	NoSrc                      // instruction has no source operand
	NotHLL                     // never appears in idiomatic HLL-compiled code
	NoOps                      // instruction has no operands at all
	Op386                      // 386+ opcode, rejected by the 16-bit-only scanner
	SegImmed                   // immediate word is relocation-table-relative (a segment value)

	Indirect    // memory operand uses indirect [reg(+reg|+disp)] addressing
	Switch      // instruction is a resolved indexed-jump switch
	CaseLabel   // instruction is the target of a switch case
	NoLabel     // immediate does not (yet, or ever) denote a resolvable IR index
	SymbolUse   // instruction references an entry in the symbol table
	SymbolDef   // instruction defines an entry in the symbol table
	Synthetic   // IR node was synthesized (not decoded from the image), label >= SynthesizedMin
	Terminates  // instruction never falls through (RET/RETF/IRET/unconditional JMP/HLT)
	WordOffset  // displacement/immediate is a word offset into the image
	FloatOp     // FPU escape opcode
	Impure      // instruction lies in a region written to at runtime (self-modifying)
)

// Mnemonic identifies the low-level opcode operation, independent of
// operand form or byte-size (original's llIcode enum, "iADD" etc).
type Mnemonic int

const (
	MnNone Mnemonic = iota
	MnADD
	MnOR
	MnADC
	MnSBB
	MnAND
	MnSUB
	MnXOR
	MnCMP
	MnINC
	MnDEC
	MnPUSH
	MnPOP
	MnPUSHA
	MnPOPA
	MnPUSHF
	MnPOPF
	MnMOV
	MnLEA
	MnLDS
	MnLES
	MnXCHG
	MnTEST
	MnNOT
	MnNEG
	MnMUL
	MnIMUL
	MnDIV
	MnIDIV
	MnSHL
	MnSHR
	MnSAR
	MnROL
	MnROR
	MnRCL
	MnRCR
	MnNOP
	MnCBW
	MnCWD
	MnCLC
	MnSTC
	MnCMC
	MnCLI
	MnSTI
	MnCLD
	MnSTD
	MnHLT
	MnWAIT
	MnLOCK
	MnREP
	MnREPNE
	MnMOVS
	MnSTOS
	MnLODS
	MnSCAS
	MnCMPS
	MnIN
	MnOUT
	MnSAHF
	MnLAHF
	MnAAA
	MnAAS
	MnAAM
	MnAAD
	MnDAA
	MnDAS
	MnXLAT
	MnLOOP
	MnLOOPE
	MnLOOPNE
	MnJCXZ
	MnJMP
	MnJMPF
	MnCALL
	MnCALLF
	MnRET
	MnRETF
	MnINT
	MnINTO
	MnIRET
	MnESC
	MnENTER
	MnLEAVE
	MnBOUND
	// Jcc: one mnemonic per condition code, matching the 0x70-0x7F / 0x0F 0x80-0x8F block.
	MnJO
	MnJNO
	MnJB
	MnJNB
	MnJE
	MnJNE
	MnJBE
	MnJA
	MnJS
	MnJNS
	MnJP
	MnJNP
	MnJL
	MnJGE
	MnJLE
	MnJG
)

var mnemonicNames = map[Mnemonic]string{
	MnNone: "?", MnADD: "ADD", MnOR: "OR", MnADC: "ADC", MnSBB: "SBB", MnAND: "AND",
	MnSUB: "SUB", MnXOR: "XOR", MnCMP: "CMP", MnINC: "INC", MnDEC: "DEC",
	MnPUSH: "PUSH", MnPOP: "POP", MnPUSHA: "PUSHA", MnPOPA: "POPA",
	MnPUSHF: "PUSHF", MnPOPF: "POPF", MnMOV: "MOV", MnLEA: "LEA", MnLDS: "LDS",
	MnLES: "LES", MnXCHG: "XCHG", MnTEST: "TEST", MnNOT: "NOT", MnNEG: "NEG",
	MnMUL: "MUL", MnIMUL: "IMUL", MnDIV: "DIV", MnIDIV: "IDIV", MnSHL: "SHL",
	MnSHR: "SHR", MnSAR: "SAR", MnROL: "ROL", MnROR: "ROR", MnRCL: "RCL",
	MnRCR: "RCR", MnNOP: "NOP", MnCBW: "CBW", MnCWD: "CWD", MnCLC: "CLC",
	MnSTC: "STC", MnCMC: "CMC", MnCLI: "CLI", MnSTI: "STI", MnCLD: "CLD",
	MnSTD: "STD", MnHLT: "HLT", MnWAIT: "WAIT", MnLOCK: "LOCK", MnREP: "REP",
	MnREPNE: "REPNE", MnMOVS: "MOVS", MnSTOS: "STOS", MnLODS: "LODS",
	MnSCAS: "SCAS", MnCMPS: "CMPS", MnIN: "IN", MnOUT: "OUT", MnSAHF: "SAHF",
	MnLAHF: "LAHF", MnAAA: "AAA", MnAAS: "AAS", MnAAM: "AAM", MnAAD: "AAD",
	MnDAA: "DAA", MnDAS: "DAS", MnXLAT: "XLAT", MnLOOP: "LOOP", MnLOOPE: "LOOPE",
	MnLOOPNE: "LOOPNE", MnJCXZ: "JCXZ", MnJMP: "JMP", MnJMPF: "JMPF",
	MnCALL: "CALL", MnCALLF: "CALLF", MnRET: "RET", MnRETF: "RETF", MnINT: "INT",
	MnINTO: "INTO", MnIRET: "IRET", MnESC: "ESC", MnENTER: "ENTER",
	MnLEAVE: "LEAVE", MnBOUND: "BOUND",
	MnJO: "JO", MnJNO: "JNO", MnJB: "JB", MnJNB: "JNB", MnJE: "JE", MnJNE: "JNE",
	MnJBE: "JBE", MnJA: "JA", MnJS: "JS", MnJNS: "JNS", MnJP: "JP", MnJNP: "JNP",
	MnJL: "JL", MnJGE: "JGE", MnJLE: "JLE", MnJG: "JG",
}

func (m Mnemonic) String() string {
	if s, ok := mnemonicNames[m]; ok {
		return s
	}
	return "?"
}

// IsConditionalJump reports whether m is one of the Jcc/JCXZ/LOOP* family.
func (m Mnemonic) IsConditionalJump() bool {
	switch m {
	case MnJO, MnJNO, MnJB, MnJNB, MnJE, MnJNE, MnJBE, MnJA, MnJS, MnJNS,
		MnJP, MnJNP, MnJL, MnJGE, MnJLE, MnJG, MnJCXZ, MnLOOP, MnLOOPE, MnLOOPNE:
		return true
	}
	return false
}

// IsUnconditionalJump reports whether m is JMP or JMPF.
func (m Mnemonic) IsUnconditionalJump() bool { return m == MnJMP || m == MnJMPF }

// IsCall reports whether m is CALL or CALLF.
func (m Mnemonic) IsCall() bool { return m == MnCALL || m == MnCALLF }

// IsReturn reports whether m terminates the current procedure's flow.
func (m Mnemonic) IsReturn() bool { return m == MnRET || m == MnRETF || m == MnIRET }

// FlagBit is one of the six x86 processor flags tracked for condition-code
// elimination.
type FlagBit uint8

const (
	FlagC FlagBit = 1 << iota // carry
	FlagP                     // parity
	FlagA                     // aux carry (half-carry)
	FlagZ                     // zero
	FlagS                     // sign
	FlagO                     // overflow
)

// Entry is one row of the 256-entry opcode dispatch table.
type Entry struct {
	State1, State2 Form
	TableFlags     Flag
	Mnemonic       Mnemonic
	FlagsDef       FlagBit // flags this opcode sets
	FlagsUse       FlagBit // flags this opcode reads (e.g. ADC reads carry)
}

// Table is indexed by the raw opcode byte (0x00-0xFF). Byte values not
// populated here decode as invalid-opcode; this mirrors scanner.c's
// stateTable[] in shape, populated with the subset of entries actually
// exercised by flow-following, idiom recognition and structuring: the
// arithmetic/logic group, MOV family, stack ops, control transfer, shift
// group, and string/flag-control instructions. Opcodes belonging purely
// to the 386+ extension set or having no bearing on control flow or the
// idiom catalogue decode via the Op386/unpopulated paths, matching the
// scanner's own invalid-386-opcode failure mode (see pkg/scanner).
var Table [256]Entry

func init() {
	group := func(base byte, op Mnemonic, df FlagBit) {
		Table[base+0] = Entry{State1: FormModRM, State2: FormNone2, TableFlags: Byte, Mnemonic: op, FlagsDef: df}
		Table[base+1] = Entry{State1: FormModRM, State2: FormNone2, TableFlags: 0, Mnemonic: op, FlagsDef: df}
		Table[base+2] = Entry{State1: FormModRM, State2: FormNone2, TableFlags: ToReg | Byte, Mnemonic: op, FlagsDef: df}
		Table[base+3] = Entry{State1: FormModRM, State2: FormNone2, TableFlags: ToReg, Mnemonic: op, FlagsDef: df}
		Table[base+4] = Entry{State1: FormData1, State2: FormALImp, TableFlags: Byte, Mnemonic: op, FlagsDef: df}
		Table[base+5] = Entry{State1: FormData2, State2: FormAXImp, TableFlags: 0, Mnemonic: op, FlagsDef: df}
	}
	group(0x00, MnADD, FlagS|FlagZ|FlagC|FlagA|FlagO|FlagP)
	group(0x08, MnOR, FlagS|FlagZ|FlagC|FlagP)
	group(0x10, MnADC, FlagS|FlagZ|FlagC|FlagA|FlagO|FlagP)
	Table[0x10].FlagsUse, Table[0x11].FlagsUse, Table[0x12].FlagsUse, Table[0x13].FlagsUse = FlagC, FlagC, FlagC, FlagC
	Table[0x14].FlagsUse, Table[0x15].FlagsUse = FlagC, FlagC
	group(0x18, MnSBB, FlagS|FlagZ|FlagC|FlagA|FlagO|FlagP)
	Table[0x18].FlagsUse, Table[0x19].FlagsUse, Table[0x1A].FlagsUse, Table[0x1B].FlagsUse = FlagC, FlagC, FlagC, FlagC
	Table[0x1C].FlagsUse, Table[0x1D].FlagsUse = FlagC, FlagC
	group(0x20, MnAND, FlagS|FlagZ|FlagP)
	group(0x28, MnSUB, FlagS|FlagZ|FlagC|FlagA|FlagO|FlagP)
	group(0x30, MnXOR, FlagS|FlagZ|FlagP)
	group(0x38, MnCMP, FlagS|FlagZ|FlagC|FlagA|FlagO|FlagP)

	Table[0x06] = Entry{State1: FormSegOp, State2: FormNone2, TableFlags: NoSrc, Mnemonic: MnPUSH}
	Table[0x07] = Entry{State1: FormSegOp, State2: FormNone2, TableFlags: NoSrc, Mnemonic: MnPOP}
	Table[0x0E] = Entry{State1: FormSegOp, State2: FormNone2, TableFlags: NoSrc, Mnemonic: MnPUSH}
	Table[0x16] = Entry{State1: FormSegOp, State2: FormNone2, TableFlags: NotHLL | NoSrc, Mnemonic: MnPUSH}
	Table[0x17] = Entry{State1: FormSegOp, State2: FormNone2, TableFlags: NotHLL | NoSrc, Mnemonic: MnPOP}
	Table[0x1E] = Entry{State1: FormSegOp, State2: FormNone2, TableFlags: NoSrc, Mnemonic: MnPUSH}
	Table[0x1F] = Entry{State1: FormSegOp, State2: FormNone2, TableFlags: NoSrc, Mnemonic: MnPOP}
	Table[0x27] = Entry{State1: FormNone1, State2: FormAXImp, TableFlags: NotHLL | Byte | NoSrc, Mnemonic: MnDAA, FlagsDef: FlagS | FlagZ | FlagC}
	Table[0x2F] = Entry{State1: FormNone1, State2: FormAXImp, TableFlags: NotHLL | NoSrc, Mnemonic: MnDAS, FlagsDef: FlagS | FlagZ | FlagC}
	Table[0x37] = Entry{State1: FormNone1, State2: FormAXImp, TableFlags: NotHLL | NoSrc, Mnemonic: MnAAA, FlagsDef: FlagC}
	Table[0x3F] = Entry{State1: FormNone1, State2: FormAXImp, TableFlags: NotHLL | NoSrc, Mnemonic: MnAAS, FlagsDef: FlagC}

	for r := byte(0); r < 8; r++ {
		Table[0x40+r] = Entry{State1: FormRegOp, State2: FormNone2, Mnemonic: MnINC, FlagsDef: FlagS | FlagZ | FlagA | FlagO | FlagP}
		Table[0x48+r] = Entry{State1: FormRegOp, State2: FormNone2, Mnemonic: MnDEC, FlagsDef: FlagS | FlagZ | FlagA | FlagO | FlagP}
		Table[0x50+r] = Entry{State1: FormRegOp, State2: FormNone2, TableFlags: NoSrc, Mnemonic: MnPUSH}
		Table[0x58+r] = Entry{State1: FormRegOp, State2: FormNone2, TableFlags: NoSrc, Mnemonic: MnPOP}
		Table[0xB0+r] = Entry{State1: FormRegOp, State2: FormData1, TableFlags: Byte, Mnemonic: MnMOV}
		Table[0xB8+r] = Entry{State1: FormRegOp, State2: FormData2, Mnemonic: MnMOV}
	}
	Table[0x44].TableFlags |= NotHLL
	Table[0x4C].TableFlags |= NotHLL
	Table[0x54].TableFlags |= NotHLL | NoSrc
	Table[0x5C].TableFlags |= NotHLL | NoSrc

	Table[0x60] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NotHLL | NoOps, Mnemonic: MnPUSHA}
	Table[0x61] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NotHLL | NoOps, Mnemonic: MnPOPA}
	Table[0x62] = Entry{State1: FormMemOnly, State2: FormModRM, TableFlags: ToReg | NotSingle, Mnemonic: MnBOUND}

	// Conditional short jumps, 0x70-0x7F.
	jcc := []Mnemonic{MnJO, MnJNO, MnJB, MnJNB, MnJE, MnJNE, MnJBE, MnJA, MnJS, MnJNS, MnJP, MnJNP, MnJL, MnJGE, MnJLE, MnJG}
	jccUse := []FlagBit{FlagO, FlagO, FlagC, FlagC, FlagZ, FlagZ, FlagC | FlagZ, FlagC | FlagZ,
		FlagS, FlagS, FlagP, FlagP, FlagS | FlagO, FlagS | FlagO, FlagZ | FlagS | FlagO, FlagZ | FlagS | FlagO}
	for i, mn := range jcc {
		Table[0x70+i] = Entry{State1: FormDispS, State2: FormNone2, TableFlags: NoLabel, Mnemonic: mn, FlagsUse: jccUse[i]}
	}

	// Group 1: ADD/OR/ADC/SBB/AND/SUB/XOR/CMP r/m, imm (0x80-0x83).
	Table[0x80] = Entry{State1: FormModRM, State2: FormImmed, TableFlags: Byte, Mnemonic: MnNone}
	Table[0x81] = Entry{State1: FormModRM, State2: FormImmed, TableFlags: 0, Mnemonic: MnNone}
	Table[0x83] = Entry{State1: FormModRM, State2: FormImmed, TableFlags: NotSingle, Mnemonic: MnNone}

	Table[0x84] = Entry{State1: FormModRM, State2: FormNone2, TableFlags: Byte, Mnemonic: MnTEST, FlagsDef: FlagS | FlagZ | FlagP}
	Table[0x85] = Entry{State1: FormModRM, State2: FormNone2, Mnemonic: MnTEST, FlagsDef: FlagS | FlagZ | FlagP}
	Table[0x86] = Entry{State1: FormModRM, State2: FormNone2, TableFlags: Byte, Mnemonic: MnXCHG}
	Table[0x87] = Entry{State1: FormModRM, State2: FormNone2, Mnemonic: MnXCHG}
	Table[0x88] = Entry{State1: FormModRM, State2: FormNone2, TableFlags: Byte, Mnemonic: MnMOV}
	Table[0x89] = Entry{State1: FormModRM, State2: FormNone2, Mnemonic: MnMOV}
	Table[0x8A] = Entry{State1: FormModRM, State2: FormNone2, TableFlags: ToReg | Byte, Mnemonic: MnMOV}
	Table[0x8B] = Entry{State1: FormModRM, State2: FormNone2, TableFlags: ToReg, Mnemonic: MnMOV}
	Table[0x8C] = Entry{State1: FormSegRM, State2: FormNone2, TableFlags: NotHLL, Mnemonic: MnMOV}
	Table[0x8D] = Entry{State1: FormMemOnly, State2: FormModRM, TableFlags: ToReg, Mnemonic: MnLEA}
	Table[0x8E] = Entry{State1: FormSegRM, State2: FormNone2, TableFlags: ToReg | NotHLL, Mnemonic: MnMOV}
	Table[0x8F] = Entry{State1: FormMemReg0, State2: FormNone2, TableFlags: NoSrc, Mnemonic: MnPOP}

	Table[0x90] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnNOP}
	for r := byte(1); r < 8; r++ {
		Table[0x90+r] = Entry{State1: FormRegOp, State2: FormAXImp, Mnemonic: MnXCHG}
	}
	Table[0x98] = Entry{State1: FormNone1, State2: FormAXImp, TableFlags: NoSrc, Mnemonic: MnCBW}
	Table[0x99] = Entry{State1: FormNone1, State2: FormAXImp, TableFlags: NoSrc, Mnemonic: MnCWD}
	Table[0x9A] = Entry{State1: FormDispF, State2: FormNone2, TableFlags: NoLabel, Mnemonic: MnCALLF}
	Table[0x9B] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NotHLL | NoOps, Mnemonic: MnWAIT}
	Table[0x9C] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NotHLL | NoOps, Mnemonic: MnPUSHF}
	Table[0x9D] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NotHLL | NoOps, Mnemonic: MnPOPF}
	Table[0x9E] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NotHLL | NoOps, Mnemonic: MnSAHF}
	Table[0x9F] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NotHLL | NoOps, Mnemonic: MnLAHF}

	Table[0xA0] = Entry{State1: FormDispM, State2: FormALImp, TableFlags: Byte | ToReg, Mnemonic: MnMOV}
	Table[0xA1] = Entry{State1: FormDispM, State2: FormAXImp, TableFlags: ToReg, Mnemonic: MnMOV}
	Table[0xA2] = Entry{State1: FormDispM, State2: FormALImp, TableFlags: Byte, Mnemonic: MnMOV}
	Table[0xA3] = Entry{State1: FormDispM, State2: FormAXImp, Mnemonic: MnMOV}
	Table[0xA4] = Entry{State1: FormStrOp, State2: FormNone2, TableFlags: Byte | NoOps, Mnemonic: MnMOVS}
	Table[0xA5] = Entry{State1: FormStrOp, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnMOVS}
	Table[0xA6] = Entry{State1: FormStrOp, State2: FormNone2, TableFlags: Byte | NoOps, Mnemonic: MnCMPS, FlagsDef: FlagS | FlagZ | FlagC}
	Table[0xA7] = Entry{State1: FormStrOp, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnCMPS, FlagsDef: FlagS | FlagZ | FlagC}
	Table[0xA8] = Entry{State1: FormData1, State2: FormALImp, TableFlags: Byte, Mnemonic: MnTEST, FlagsDef: FlagS | FlagZ | FlagP}
	Table[0xA9] = Entry{State1: FormData2, State2: FormAXImp, Mnemonic: MnTEST, FlagsDef: FlagS | FlagZ | FlagP}
	Table[0xAA] = Entry{State1: FormStrOp, State2: FormNone2, TableFlags: Byte | NoOps, Mnemonic: MnSTOS}
	Table[0xAB] = Entry{State1: FormStrOp, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnSTOS}
	Table[0xAC] = Entry{State1: FormStrOp, State2: FormNone2, TableFlags: Byte | NoOps, Mnemonic: MnLODS}
	Table[0xAD] = Entry{State1: FormStrOp, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnLODS}
	Table[0xAE] = Entry{State1: FormStrOp, State2: FormNone2, TableFlags: Byte | NoOps, Mnemonic: MnSCAS, FlagsDef: FlagS | FlagZ | FlagC}
	Table[0xAF] = Entry{State1: FormStrOp, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnSCAS, FlagsDef: FlagS | FlagZ | FlagC}

	Table[0xC2] = Entry{State1: FormConst1, State2: FormNone2, TableFlags: NoLabel, Mnemonic: MnRET}
	Table[0xC3] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnRET}
	Table[0xC6] = Entry{State1: FormModRM, State2: FormImmed, TableFlags: Byte, Mnemonic: MnMOV}
	Table[0xC7] = Entry{State1: FormModRM, State2: FormImmed, Mnemonic: MnMOV}
	Table[0xC8] = Entry{State1: FormConst3, State2: FormNone2, TableFlags: NotHLL, Mnemonic: MnENTER}
	Table[0xC9] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnLEAVE}
	Table[0xCA] = Entry{State1: FormConst1, State2: FormNone2, TableFlags: NoLabel, Mnemonic: MnRETF}
	Table[0xCB] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnRETF}
	Table[0xCC] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NotHLL | NoOps, Mnemonic: MnINT}
	Table[0xCD] = Entry{State1: FormCheckInt, State2: FormNone2, Mnemonic: MnINT}
	Table[0xCE] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NotHLL | NoOps, Mnemonic: MnINTO}
	Table[0xCF] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnIRET}

	// Mnemonic (ROL/ROR/RCL/RCR/SHL/SHR/SAR) is resolved from the ModR/M
	// reg field at decode time (pkg/scanner), not here.
	for _, base := range []byte{0xD0, 0xD1, 0xD2, 0xD3} {
		byteSize := Flag(0)
		if base == 0xD0 || base == 0xD2 {
			byteSize = Byte
		}
		Table[base] = Entry{State1: FormShift, State2: FormNone2, TableFlags: byteSize | Const1, Mnemonic: MnNone}
	}

	Table[0xD4] = Entry{State1: FormNone1, State2: FormAXImp, TableFlags: NotHLL | NoSrc, Mnemonic: MnAAM, FlagsDef: FlagS | FlagZ | FlagP}
	Table[0xD5] = Entry{State1: FormNone1, State2: FormAXImp, TableFlags: NotHLL | NoSrc, Mnemonic: MnAAD, FlagsDef: FlagS | FlagZ | FlagP}
	Table[0xD7] = Entry{State1: FormNone1, State2: FormALImp, TableFlags: NotHLL | NoSrc, Mnemonic: MnXLAT}
	for b := byte(0xD8); b <= 0xDF; b++ {
		Table[b] = Entry{State1: FormEscOp, State2: FormModRM, TableFlags: FloatOp, Mnemonic: MnESC}
	}

	Table[0xE0] = Entry{State1: FormDispS, State2: FormNone2, TableFlags: NoLabel, Mnemonic: MnLOOPNE}
	Table[0xE1] = Entry{State1: FormDispS, State2: FormNone2, TableFlags: NoLabel, Mnemonic: MnLOOPE}
	Table[0xE2] = Entry{State1: FormDispS, State2: FormNone2, TableFlags: NoLabel, Mnemonic: MnLOOP}
	Table[0xE3] = Entry{State1: FormDispS, State2: FormNone2, TableFlags: NoLabel, Mnemonic: MnJCXZ}
	Table[0xE4] = Entry{State1: FormData1, State2: FormALImp, TableFlags: Byte | NotHLL, Mnemonic: MnIN}
	Table[0xE5] = Entry{State1: FormData1, State2: FormAXImp, TableFlags: NotHLL, Mnemonic: MnIN}
	Table[0xE6] = Entry{State1: FormData1, State2: FormALImp, TableFlags: Byte | NotHLL | ToReg, Mnemonic: MnOUT}
	Table[0xE7] = Entry{State1: FormData1, State2: FormAXImp, TableFlags: NotHLL | ToReg, Mnemonic: MnOUT}
	Table[0xE8] = Entry{State1: FormDispN, State2: FormNone2, TableFlags: NoLabel, Mnemonic: MnCALL}
	Table[0xE9] = Entry{State1: FormDispN, State2: FormNone2, TableFlags: NoLabel, Mnemonic: MnJMP}
	Table[0xEA] = Entry{State1: FormDispF, State2: FormNone2, TableFlags: NoLabel, Mnemonic: MnJMPF}
	Table[0xEB] = Entry{State1: FormDispS, State2: FormNone2, TableFlags: NoLabel, Mnemonic: MnJMP}
	Table[0xEC] = Entry{State1: FormNone1, State2: FormALImp, TableFlags: NotHLL, Mnemonic: MnIN}
	Table[0xED] = Entry{State1: FormNone1, State2: FormAXImp, TableFlags: NotHLL, Mnemonic: MnIN}
	Table[0xEE] = Entry{State1: FormNone1, State2: FormALImp, TableFlags: NotHLL | ToReg, Mnemonic: MnOUT}
	Table[0xEF] = Entry{State1: FormNone1, State2: FormAXImp, TableFlags: NotHLL | ToReg, Mnemonic: MnOUT}

	Table[0xF4] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NotHLL | NoOps, Mnemonic: MnHLT}
	Table[0xF5] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NotHLL | NoOps, Mnemonic: MnCMC}
	Table[0xF6] = Entry{State1: FormArith, State2: FormNone2, TableFlags: Byte, Mnemonic: MnNone}
	Table[0xF7] = Entry{State1: FormArith, State2: FormNone2, TableFlags: 0, Mnemonic: MnNone}
	Table[0xF8] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnCLC}
	Table[0xF9] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnSTC}
	Table[0xFA] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NotHLL | NoOps, Mnemonic: MnCLI}
	Table[0xFB] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NotHLL | NoOps, Mnemonic: MnSTI}
	Table[0xFC] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnCLD}
	Table[0xFD] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: NoOps, Mnemonic: MnSTD}
	Table[0xFE] = Entry{State1: FormTrans, State2: FormNone2, TableFlags: Byte, Mnemonic: MnNone}
	Table[0xFF] = Entry{State1: FormTrans, State2: FormNone2, TableFlags: 0, Mnemonic: MnNone}

	Table[0x0F] = Entry{State1: FormNone1, State2: FormNone2, TableFlags: Op386, Mnemonic: MnNone}
	for _, b := range []byte{0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69, 0x6A, 0x6B, 0x6C, 0x6D, 0x6E, 0x6F, 0xC0, 0xC1, 0xF1} {
		Table[b] = Entry{TableFlags: Op386}
	}
	for _, b := range []byte{0x26, 0x2E, 0x36, 0x3E} {
		Table[b] = Entry{State1: FormPrefix, State2: FormNone2}
	}
	Table[0xF0] = Entry{State1: FormPrefix, State2: FormNone2, TableFlags: NotHLL}
	Table[0xF2] = Entry{State1: FormPrefix, State2: FormNone2}
	Table[0xF3] = Entry{State1: FormPrefix, State2: FormNone2}
}

// Const1 marks a shift/rotate instruction as shifting by the constant 1
// (vs by CL or by an immediate count), so state2 need not decode a count
// operand; encoded as an extra Flag bit local to the shift group.
const Const1 Flag = 1 << 30
