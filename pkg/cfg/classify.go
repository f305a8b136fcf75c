package cfg

import (
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/opcode"
	"github.com/dcc-go/dcc/pkg/proc"
)

func isCondJump(ins *ir.Instruction) bool {
	return ins.Low != nil && ins.Low.Mnemonic.IsConditionalJump()
}

func isUncondJump(ins *ir.Instruction) bool {
	return ins.Low != nil && ins.Low.Mnemonic.IsUnconditionalJump() && ins.Low.Flags&opcode.Switch == 0
}

func isSwitch(ins *ir.Instruction) bool {
	return ins.Low != nil && ins.Low.Flags&opcode.Switch != 0
}

func isTerminatingInt(ins *ir.Instruction) bool {
	return ins.Low != nil && ins.Low.Mnemonic == opcode.MnINT
}

// endsBlock reports whether ins is the last instruction of a basic
// block: any conditional/unconditional jump, call, return, or
// terminating interrupt.
func endsBlock(ins *ir.Instruction) bool {
	if ins.Low == nil {
		return false
	}
	mn := ins.Low.Mnemonic
	return mn.IsConditionalJump() || mn.IsUnconditionalJump() || mn.IsCall() || mn.IsReturn() || isTerminatingInt(ins)
}

// targets returns the seq positions ins branches to (excluding the
// natural-fallthrough successor, handled separately by the leader-at-
// i+1 rule).
func targets(p *proc.Procedure, ins *ir.Instruction, addrToSeq map[uint32]int) []int {
	if ins.Low == nil {
		return nil
	}
	if isSwitch(ins) {
		var out []int
		for _, tgtIdx := range p.SwitchCases[indexOf(p, ins)] {
			if sp, ok := addrToSeq[p.IR.At(tgtIdx).Label]; ok {
				out = append(out, sp)
			}
		}
		return out
	}
	if ins.Low.Mnemonic.IsConditionalJump() || ins.Low.Mnemonic.IsUnconditionalJump() {
		if sp, ok := addrToSeq[uint32(ins.Low.Immed)]; ok {
			return []int{sp}
		}
	}
	return nil
}

// indexOf finds ins's IR index by identity scan; construction only
// calls this for switch instructions, a rare case, so a linear scan is
// acceptable here.
func indexOf(p *proc.Procedure, ins *ir.Instruction) int {
	for i := 0; i < p.IR.Len(); i++ {
		if p.IR.At(i) == ins {
			return i
		}
	}
	return -1
}
