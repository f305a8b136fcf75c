package scanner

import (
	"testing"

	"github.com/dcc-go/dcc/pkg/opcode"
)

func TestDecodeModRMRegToMemMOV(t *testing.T) {
	// MOV [BX], AX: 89 07
	image := []byte{0x89, 0x07}
	s := New(image, nil)

	ins, n, err := s.Decode(0)
	if err != ErrNone {
		t.Fatalf("Decode err = %v, want ErrNone", err)
	}
	if n != 2 {
		t.Fatalf("consumed %d bytes, want 2", n)
	}
	if ins.Low.Mnemonic != opcode.MnMOV {
		t.Errorf("Mnemonic = %s, want MOV", ins.Low.Mnemonic)
	}
	if ins.Low.Src.Reg != opcode.RegAX {
		t.Errorf("Src.Reg = %d, want RegAX", ins.Low.Src.Reg)
	}
	if ins.Low.Dst.Reg != opcode.IndBX {
		t.Errorf("Dst.Reg = %d, want IndBX", ins.Low.Dst.Reg)
	}
}

func TestDecodeImmediateMOV(t *testing.T) {
	// MOV AX, 0x1234: B8 34 12
	image := []byte{0xB8, 0x34, 0x12}
	s := New(image, nil)

	ins, n, err := s.Decode(0)
	if err != ErrNone {
		t.Fatalf("Decode err = %v, want ErrNone", err)
	}
	if n != 3 {
		t.Fatalf("consumed %d bytes, want 3", n)
	}
	if ins.Low.Immed != 0x1234 {
		t.Errorf("Immed = %#x, want 0x1234", ins.Low.Immed)
	}
	if ins.Low.Dst.Reg != opcode.RegAX {
		t.Errorf("Dst.Reg = %d, want RegAX", ins.Low.Dst.Reg)
	}
}

func TestDecodeSegImmedFlaggedByRelocTable(t *testing.T) {
	image := []byte{0xB8, 0x00, 0x00}
	relocOffs := []uint32{1} // the immediate word starts at offset 1
	s := New(image, relocOffs)

	ins, _, err := s.Decode(0)
	if err != ErrNone {
		t.Fatalf("Decode err = %v, want ErrNone", err)
	}
	if ins.Low.Flags&opcode.SegImmed == 0 {
		t.Error("SegImmed flag not set for an immediate sourced from the relocation table")
	}
}

func TestDecodeRET(t *testing.T) {
	image := []byte{0xC3}
	s := New(image, nil)

	ins, n, err := s.Decode(0)
	if err != ErrNone {
		t.Fatalf("Decode err = %v, want ErrNone", err)
	}
	if n != 1 {
		t.Errorf("consumed %d bytes, want 1", n)
	}
	if ins.Low.Mnemonic != opcode.MnRET {
		t.Errorf("Mnemonic = %s, want RET", ins.Low.Mnemonic)
	}
	if ins.Low.Flags&opcode.Terminates == 0 {
		t.Error("RET instruction missing Terminates flag")
	}
}

func TestDecodeConditionalJumpComputesTargetFromDisplacement(t *testing.T) {
	// JE +5: 74 05, decoded at offset 0x100
	image := make([]byte, 0x110)
	image[0x100] = 0x74
	image[0x101] = 0x05
	s := New(image, nil)

	ins, n, err := s.Decode(0x100)
	if err != ErrNone {
		t.Fatalf("Decode err = %v, want ErrNone", err)
	}
	if n != 2 {
		t.Fatalf("consumed %d bytes, want 2", n)
	}
	if ins.Low.Mnemonic != opcode.MnJE {
		t.Errorf("Mnemonic = %s, want JE", ins.Low.Mnemonic)
	}
	if want := int64(0x102 + 5); ins.Low.Immed != want {
		t.Errorf("target = %#x, want %#x", ins.Low.Immed, want)
	}
}

func TestDecodeGroup1ResolvesMnemonicFromModRM(t *testing.T) {
	// CMP byte ptr [BX], 0x01: 80 3F 01 (reg field 7 => CMP)
	image := []byte{0x80, 0x3F, 0x01}
	s := New(image, nil)

	ins, _, err := s.Decode(0)
	if err != ErrNone {
		t.Fatalf("Decode err = %v, want ErrNone", err)
	}
	if ins.Low.Mnemonic != opcode.MnCMP {
		t.Errorf("Mnemonic = %s, want CMP", ins.Low.Mnemonic)
	}
}

func TestDecodeInvalidOpcode(t *testing.T) {
	image := []byte{0x0F, 0x00} // 0x0F is flagged Op386
	s := New(image, nil)

	_, _, err := s.Decode(0)
	if err != ErrInvalid386Opcode {
		t.Errorf("err = %v, want ErrInvalid386Opcode", err)
	}
}

func TestDecodeOutOfRange(t *testing.T) {
	image := []byte{0xB8} // MOV AX, imm16 truncated mid-instruction
	s := New(image, nil)

	_, _, err := s.Decode(0)
	if err != ErrOutOfRange {
		t.Errorf("err = %v, want ErrOutOfRange", err)
	}
}

func TestDecodeSegmentOverridePrefix(t *testing.T) {
	// ES: MOV [BX], AX : 26 89 07
	image := []byte{0x26, 0x89, 0x07}
	s := New(image, nil)

	ins, n, err := s.Decode(0)
	if err != ErrNone {
		t.Fatalf("Decode err = %v, want ErrNone", err)
	}
	if n != 3 {
		t.Fatalf("consumed %d bytes, want 3", n)
	}
	if ins.Low.Dst.Seg != opcode.RegES {
		t.Errorf("Dst.Seg = %d, want RegES", ins.Low.Dst.Seg)
	}
}

func TestDecodeIndirectUsesSSWhenBPBased(t *testing.T) {
	// MOV [BP+SI], AX : 89 02 (mod=00, rm=010 -> [BP+SI])
	image := []byte{0x89, 0x02}
	s := New(image, nil)

	ins, _, err := s.Decode(0)
	if err != ErrNone {
		t.Fatalf("Decode err = %v, want ErrNone", err)
	}
	if ins.Low.Dst.Seg != opcode.RegSS {
		t.Errorf("Dst.Seg = %d, want RegSS for a BP-based indirect operand", ins.Low.Dst.Seg)
	}
}

func TestWord16At(t *testing.T) {
	s := New([]byte{0x34, 0x12}, nil)
	v, ok := s.Word16At(0)
	if !ok || v != 0x1234 {
		t.Errorf("Word16At(0) = (%#x, %v), want (0x1234, true)", v, ok)
	}
	if _, ok := s.Word16At(5); ok {
		t.Error("Word16At out of range reported ok=true")
	}
}
