// Package backend implements a minimal C-source emitter and its
// ASM-fallback companion: a textual renderer that walks a procedure's
// bundled high-level IR and prints C-like statements, falling back to a
// raw instruction listing for procedures the pipeline flagged
// PROC_ASM/PROC_BADINST.
//
// Grounded on original_source/src/backend.c's cChar/write-loop shape,
// generalized from its buffer-based C string builder into Go's
// io.Writer convention.
package backend

import (
	"fmt"
	"io"

	"github.com/mewkiz/pkg/term"

	"github.com/dcc-go/dcc/pkg/bundle"
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/proc"
)

// Emitter renders a procedure list to C-like source text, or a raw
// assembly listing for flagged procedures.
type Emitter struct {
	Out io.Writer
	Asm *AsmPrinter
}

// NewEmitter returns an Emitter writing to w, using asm for PROC_ASM/
// PROC_BADINST fallback rendering.
func NewEmitter(w io.Writer, asm *AsmPrinter) *Emitter {
	return &Emitter{Out: w, Asm: asm}
}

// EmitAll writes every procedure in procs in list order.
func (e *Emitter) EmitAll(procs *proc.List, bundles map[int]*bundle.Set) {
	for id, p := range procs.Procs {
		e.EmitProcedure(id, p, bundles[id])
	}
}

// EmitProcedure writes one procedure's C-like body, or its raw
// instruction listing if it is flagged PROC_ASM or PROC_BADINST.
func (e *Emitter) EmitProcedure(id int, p *proc.Procedure, bset *bundle.Set) {
	sig := signature(p)
	if p.Has(proc.FlagAsm) || p.Has(proc.FlagBadInst) {
		fmt.Fprintf(e.Out, "%s {\n", sig)
		fmt.Fprintln(e.Out, term.YellowBold("    /* could not be decompiled; assembly follows */"))
		if e.Asm != nil {
			e.Asm.Print(e.Out, p)
		}
		fmt.Fprintln(e.Out, "}")
		return
	}

	fmt.Fprintf(e.Out, "%s {\n", sig)
	if bset == nil {
		e.emitLinear(p)
	} else {
		for _, b := range bset.All() {
			for _, st := range b.Stmts {
				e.emitStmt(p, st.IRIndex)
			}
		}
	}
	fmt.Fprintln(e.Out, "}")
}

func signature(p *proc.Procedure) string {
	ret := "void"
	switch p.ReturnT {
	case proc.ReturnWord:
		ret = "int"
	case proc.ReturnLong:
		ret = "long"
	}
	return fmt.Sprintf("%s %s(void)", ret, p.Name)
}

// emitLinear is the fallback path when no bundling was run: walk the
// procedure's own IR stream in order.
func (e *Emitter) emitLinear(p *proc.Procedure) {
	for i := 0; i < p.IR.Len(); i++ {
		e.emitStmt(p, i)
	}
}

func (e *Emitter) emitStmt(p *proc.Procedure, idx int) {
	ins := p.IR.At(idx)
	if ins.Invalid || ins.Kind != ir.HighLevel || ins.High == nil {
		return
	}
	switch ins.High.Kind {
	case ir.HLAssign:
		fmt.Fprintf(e.Out, "    %s = %s;\n", ins.High.LHS, ins.High.RHS)
	case ir.HLCall:
		fmt.Fprintf(e.Out, "    %s;\n", callText(ins.High))
	case ir.HLPush, ir.HLPop:
		// Consumed by forward substitution; any survivor reflects an
		// unresolved stack slot and is rendered verbatim for visibility.
		fmt.Fprintf(e.Out, "    /* stack */ %s;\n", ins.High.Exp)
	case ir.HLRet:
		if ins.High.Exp != nil {
			fmt.Fprintf(e.Out, "    return %s;\n", ins.High.Exp)
		} else {
			fmt.Fprintln(e.Out, "    return;")
		}
	case ir.HLJCond:
		fmt.Fprintf(e.Out, "    if (%s) {\n", ins.High.Exp)
	}
}

func callText(h *ir.HighLevel) string {
	name := h.Callee
	if name == "" {
		name = "/* unresolved */"
	}
	args := ""
	for i, a := range h.Args {
		if i > 0 {
			args += ", "
		}
		args += a.String()
	}
	return fmt.Sprintf("%s(%s)", name, args)
}
