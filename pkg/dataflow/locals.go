package dataflow

import (
	"github.com/dcc-go/dcc/pkg/ident"
)

// regIdent builds a fresh register-frame local identifier for a raw
// register code, the same default-naming path the idiom/scanner layer
// uses when it first needs to name a register as a local.
func regIdent(reg uint8) ident.Ident {
	return ident.Ident{
		Type:    ident.TypeWordSigned,
		Frame:   ident.FrameRegister,
		Payload: ident.Register{Reg: reg},
	}
}

// longRegIdent builds a fresh long-register identifier spanning two
// consecutive word registers (e.g. DX:AX for a long return value).
func longRegIdent(high, low uint8) ident.Ident {
	return ident.Ident{
		Type:    ident.TypeLongSigned,
		Frame:   ident.FrameRegister,
		Payload: ident.LongRegister{High: high, Low: low},
	}
}
