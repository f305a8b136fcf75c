package backend

import (
	"fmt"
	"io"

	"github.com/mewkiz/pkg/term"
	"golang.org/x/arch/x86/x86asm"

	"github.com/dcc-go/dcc/pkg/proc"
)

// AsmPrinter renders a raw 16-bit instruction listing over a
// procedure's byte range, used for the `-a/-A` pre-/post-reorder
// listings and for PROC_ASM/PROC_BADINST fallback output.
//
// Grounded on mewmew-x's disassembler x86asm.Decode loop and its
// term-colored dbg/warn logger convention; x86asm is a general decoder,
// deliberately not used by pkg/scanner itself (see DESIGN.md), but is
// the right tool here: printing what's at an address the core pipeline
// gave up on.
type AsmPrinter struct {
	Image []byte
}

// NewAsmPrinter returns a printer over the full flat image bytes.
func NewAsmPrinter(image []byte) *AsmPrinter {
	return &AsmPrinter{Image: image}
}

// Print writes a raw disassembly of p's byte range [Entry, end) to w,
// one instruction per line, stopping at the first decode failure or
// after the first RET/RETF.
func (a *AsmPrinter) Print(w io.Writer, p *proc.Procedure) {
	off := int(p.Entry)
	end := len(a.Image)
	for off < end {
		src := a.Image[off:]
		if len(src) > 15 {
			src = src[:15]
		}
		inst, err := x86asm.Decode(src, 16)
		if err != nil {
			fmt.Fprintf(w, "    %s %06X: %s\n", term.RedBold("; decode error"), off, err)
			return
		}
		fmt.Fprintf(w, "    %06X: %s\n", off, x86asm.GNUSyntax(inst, uint64(off), nil))
		off += inst.Len
		if inst.Op == x86asm.RET || inst.Op == x86asm.RETF {
			return
		}
	}
}

// PrintRange writes a raw disassembly of [start, end) to w, one
// instruction per line, stopping early on decode error. Used for the
// `-A` post-structuring listing, which walks basic blocks in their
// structured order rather than address order.
func (a *AsmPrinter) PrintRange(w io.Writer, start, end uint32) {
	off := int(start)
	limit := int(end)
	if limit > len(a.Image) {
		limit = len(a.Image)
	}
	for off < limit {
		src := a.Image[off:]
		if len(src) > 15 {
			src = src[:15]
		}
		inst, err := x86asm.Decode(src, 16)
		if err != nil {
			fmt.Fprintf(w, "    %s %06X: %s\n", term.RedBold("; decode error"), off, err)
			return
		}
		fmt.Fprintf(w, "    %06X: %s\n", off, x86asm.GNUSyntax(inst, uint64(off), nil))
		off += inst.Len
	}
}
