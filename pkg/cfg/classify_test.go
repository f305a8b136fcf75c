package cfg

import (
	"testing"

	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/opcode"
	"github.com/dcc-go/dcc/pkg/proc"
)

func lowIns(mn opcode.Mnemonic, flags opcode.Flag) *ir.Instruction {
	return &ir.Instruction{Kind: ir.LowLevel, Low: &ir.LowLevel{Mnemonic: mn, Flags: flags}}
}

func TestIsCondJump(t *testing.T) {
	if !isCondJump(lowIns(opcode.MnJE, 0)) {
		t.Error("JE not classified as a conditional jump")
	}
	if isCondJump(lowIns(opcode.MnJMP, 0)) {
		t.Error("JMP incorrectly classified as a conditional jump")
	}
	if isCondJump(&ir.Instruction{Kind: ir.LowLevel}) {
		t.Error("nil Low instruction classified as a conditional jump")
	}
}

func TestIsUncondJump(t *testing.T) {
	if !isUncondJump(lowIns(opcode.MnJMP, 0)) {
		t.Error("JMP not classified as an unconditional jump")
	}
	if isUncondJump(lowIns(opcode.MnJMP, opcode.Switch)) {
		t.Error("a Switch-flagged JMP should not be classified as a plain unconditional jump")
	}
	if isUncondJump(lowIns(opcode.MnJE, 0)) {
		t.Error("JE incorrectly classified as an unconditional jump")
	}
}

func TestIsSwitch(t *testing.T) {
	if !isSwitch(lowIns(opcode.MnJMP, opcode.Switch)) {
		t.Error("Switch-flagged JMP not classified as a switch")
	}
	if isSwitch(lowIns(opcode.MnJMP, 0)) {
		t.Error("plain JMP incorrectly classified as a switch")
	}
}

func TestIsTerminatingInt(t *testing.T) {
	if !isTerminatingInt(lowIns(opcode.MnINT, 0)) {
		t.Error("INT not classified as a terminating interrupt")
	}
	if isTerminatingInt(lowIns(opcode.MnINTO, 0)) {
		t.Error("INTO incorrectly classified as a terminating interrupt")
	}
}

func TestEndsBlock(t *testing.T) {
	tests := []struct {
		name string
		ins  *ir.Instruction
		want bool
	}{
		{"conditional jump", lowIns(opcode.MnJE, 0), true},
		{"unconditional jump", lowIns(opcode.MnJMP, 0), true},
		{"call", lowIns(opcode.MnCALL, 0), true},
		{"return", lowIns(opcode.MnRET, 0), true},
		{"terminating int", lowIns(opcode.MnINT, 0), true},
		{"plain MOV", lowIns(opcode.MnMOV, 0), false},
		{"nil Low", &ir.Instruction{Kind: ir.LowLevel}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := endsBlock(tc.ins); got != tc.want {
				t.Errorf("endsBlock(%s) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestTargetsUnconditionalJump(t *testing.T) {
	p := proc.New("sub", 0)
	ins := lowIns(opcode.MnJMP, 0)
	ins.Low.Immed = 0x200
	addrToSeq := map[uint32]int{0x200: 3}

	got := targets(p, ins, addrToSeq)
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("targets = %v, want [3]", got)
	}
}

func TestTargetsUnresolvedAddressReturnsNil(t *testing.T) {
	p := proc.New("sub", 0)
	ins := lowIns(opcode.MnJMP, 0)
	ins.Low.Immed = 0xFFFF
	got := targets(p, ins, map[uint32]int{})
	if got != nil {
		t.Errorf("targets = %v, want nil for an unresolved target address", got)
	}
}

func TestTargetsSwitch(t *testing.T) {
	p := proc.New("sub", 0)
	ins := lowIns(opcode.MnJMP, opcode.Switch)
	idx := p.IR.Append(*ins)
	caseTarget := ir.Instruction{Label: 0x300}
	caseIdx := p.IR.Append(caseTarget)
	p.SwitchCases[idx] = []int{caseIdx}
	addrToSeq := map[uint32]int{0x300: 7}

	got := targets(p, p.IR.At(idx), addrToSeq)
	if len(got) != 1 || got[0] != 7 {
		t.Errorf("targets (switch) = %v, want [7]", got)
	}
}

func TestIndexOf(t *testing.T) {
	p := proc.New("sub", 0)
	p.IR.Append(ir.Instruction{Label: 1})
	p.IR.Append(ir.Instruction{Label: 2})
	p.IR.Append(ir.Instruction{Label: 3})

	if got := indexOf(p, p.IR.At(1)); got != 1 {
		t.Errorf("indexOf = %d, want 1", got)
	}
	if got := indexOf(p, &ir.Instruction{}); got != -1 {
		t.Errorf("indexOf(unrelated instruction) = %d, want -1", got)
	}
}
