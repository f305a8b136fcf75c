// Package interact implements user-driven mode (original_source/src/udm.c):
// an interactive prompt, gated by the -i/--interactive CLI flag, that
// lets the operator reclassify an unresolved indirect jump/call or
// accept/reject a proposed switch-table bound before the flow-follower
// continues.
package interact

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Decision is the operator's answer to a prompt.
type Decision int

const (
	DecisionDefault Decision = iota // accept the pipeline's proposal unchanged
	DecisionAccept
	DecisionReject
)

// Prompter asks the operator to resolve an ambiguity the flow-follower
// cannot settle on its own.
type Prompter interface {
	// ConfirmSwitchBound asks whether a proposed jump-table entry count
	// for a switch at the given address should be accepted.
	ConfirmSwitchBound(addr uint32, proposedCount int) Decision

	// ClassifyIndirect asks the operator to name the target of an
	// indirect jump/call the flow-follower could not resolve, returning
	// an explicit target address and whether one was given.
	ClassifyIndirect(addr uint32) (target uint32, ok bool)
}

// NoOp implements Prompter by always accepting the pipeline's proposal
// and declining to classify; used by non-interactive runs and tests.
type NoOp struct{}

func (NoOp) ConfirmSwitchBound(uint32, int) Decision        { return DecisionDefault }
func (NoOp) ClassifyIndirect(uint32) (uint32, bool)         { return 0, false }

// Terminal implements Prompter over a line-oriented reader/writer, the
// way udm.c drives its console prompts.
type Terminal struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewTerminal returns a Terminal prompter reading lines from r and
// writing prompts to w.
func NewTerminal(r io.Reader, w io.Writer) *Terminal {
	return &Terminal{in: bufio.NewScanner(r), out: w}
}

func (t *Terminal) ConfirmSwitchBound(addr uint32, proposedCount int) Decision {
	fmt.Fprintf(t.out, "switch at %#x: accept %d case entries? [y/n/enter=default] ", addr, proposedCount)
	if !t.in.Scan() {
		return DecisionDefault
	}
	switch strings.ToLower(strings.TrimSpace(t.in.Text())) {
	case "y", "yes":
		return DecisionAccept
	case "n", "no":
		return DecisionReject
	default:
		return DecisionDefault
	}
}

func (t *Terminal) ClassifyIndirect(addr uint32) (uint32, bool) {
	fmt.Fprintf(t.out, "unresolved indirect jump/call at %#x: target address (hex), or enter to skip: ", addr)
	if !t.in.Scan() {
		return 0, false
	}
	text := strings.TrimSpace(t.in.Text())
	if text == "" {
		return 0, false
	}
	var v uint32
	if _, err := fmt.Sscanf(text, "%x", &v); err != nil {
		return 0, false
	}
	return v, true
}
