package opcode

// DURegMask is a bitmask over the fixed 30-entry duReg[] register-combination
// space: byte registers, word registers, segment registers, indexed-
// addressing register combinations, and one synthetic temporary each get
// a distinct bit, so overlapping registers (AL and AX) and addressing
// combinations (BX+SI) can be tested for conflict with a single AND.
type DURegMask = uint32

const (
	duAL DURegMask = 1 << iota
	duCL
	duDL
	duBL
	duAH
	duCH
	duDH
	duBH
	duAX
	duCX
	duDX
	duBX
	duSP
	duBP
	duSI
	duDI
	duES
	duCS
	duSS
	duDS
	duBXSI
	duBXDI
	duBPSI
	duBPDI
	duIndSI
	duIndDI
	duIndBP
	duIndBX
	duIndDirect
	duTemp
)

// wordMasks indexes RegAX..RegDI.
var wordMasks = [8]DURegMask{duAX, duCX, duDX, duBX, duSP, duBP, duSI, duDI}

// byteMasks indexes RegAL..RegBH (same 0-7 codes as word, disambiguated
// by the instruction's Byte flag).
var byteMasks = [8]DURegMask{duAL, duCL, duDL, duBL, duAH, duCH, duDH, duBH}

// segMasks indexes RegES..RegDS.
var segMasks = [4]DURegMask{duES, duCS, duSS, duDS}

var indirectMasks = map[Reg]DURegMask{
	IndBXSI:   duBXSI,
	IndBXDI:   duBXDI,
	IndBPSI:   duBPSI,
	IndBPDI:   duBPDI,
	IndSI:     duIndSI,
	IndDI:     duIndDI,
	IndBPDisp: duIndBP,
	IndBX:     duIndBX,
	IndDirect: duIndDirect,
}

// DUMask returns the duReg[] bitmask for a register/addressing-mode code,
// interpreting codes < IndirectBase as word or byte registers depending
// on byteSize, and codes >= IndirectBase via indirectMasks. isSeg forces
// segment-register interpretation for the fixed 0-3 segment-register
// code space used by segop/segrm forms.
func DUMask(reg Reg, byteSize, isSeg bool) DURegMask {
	switch {
	case reg >= IndirectBase:
		return indirectMasks[reg]
	case isSeg:
		return segMasks[reg&0x03]
	case byteSize:
		return byteMasks[reg&0x07]
	default:
		return wordMasks[reg&0x07]
	}
}

// DUTemp is the synthetic-temporary mask, used by idiom recognition when
// a window's combined effect needs a placeholder register identity
// (e.g. the long-pair idioms' intermediate carry state).
const DUTemp = duTemp
