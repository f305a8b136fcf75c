// Package expr implements the expression AST used by the high-level IR.
//
// Every expression node is exclusively owned by its parent IR slot (the
// HighLevel record that holds it, or another expr that holds it as a
// child); copying a tree for use in another context is always a deep
// clone, never a shared pointer. This mirrors the ownership discipline of
// the original dcc's ast.c: an expression tree has exactly one writer.
package expr

import "fmt"

// Kind discriminates an Expr's variant.
type Kind int

const (
	// Boolean is a binary operator node: lhs Op rhs.
	Boolean Kind = iota
	// Negation is unary logical negation: !x.
	Negation
	// AddressOf is unary address-of: &x.
	AddressOf
	// Dereference is unary pointer dereference: *x.
	Dereference
	// Identifier names a register, variable, parameter, literal, or call.
	Identifier
	// Constant is a literal value of a given byte size.
	Constant
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "BOOLEAN"
	case Negation:
		return "NEGATION"
	case AddressOf:
		return "ADDRESSOF"
	case Dereference:
		return "DEREFERENCE"
	case Identifier:
		return "IDENTIFIER"
	case Constant:
		return "CONSTANT"
	default:
		return "UNKNOWN"
	}
}

// Op is a binary or relational operator carried by a Boolean node.
type Op int

const (
	OpNone Op = iota
	OpEQ
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpLogAnd // DBL_AND: compound-condition &&
	OpLogOr  // DBL_OR: compound-condition ||
)

var opText = map[Op]string{
	OpNone: "", OpEQ: "==", OpNE: "!=", OpLT: "<", OpLE: "<=", OpGT: ">", OpGE: ">=",
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpAnd: "&", OpOr: "|", OpXor: "^", OpShl: "<<", OpShr: ">>",
	OpLogAnd: "&&", OpLogOr: "||",
}

func (o Op) String() string { return opText[o] }

// Negate returns the logical negation of a relational operator (used by
// condition-code elimination's predecessor-merge rule).
func (o Op) Negate() Op {
	switch o {
	case OpEQ:
		return OpNE
	case OpNE:
		return OpEQ
	case OpLT:
		return OpGE
	case OpLE:
		return OpGT
	case OpGT:
		return OpLE
	case OpGE:
		return OpLT
	default:
		return o
	}
}

// IdentKind distinguishes what an Identifier expr names.
type IdentKind int

const (
	IdentRegister IdentKind = iota
	IdentLongRegister
	IdentGlobal
	IdentLocal
	IdentParam
	IdentString
	IdentCall
	IdentOther
)

// Expr is a node in the expression tree. Exactly one of the per-kind
// fields is meaningful, selected by Kind: a tagged tree with variants
// rather than a Go interface hierarchy.
type Expr struct {
	Kind Kind

	// Boolean
	Op       Op
	LHS, RHS *Expr

	// Negation / AddressOf / Dereference
	X *Expr

	// Identifier
	IdentKind IdentKind
	Idx       int    // table index: register code, local-ident index, etc.
	Name      string // printable name, resolved lazily from the ident table

	// Call (IdentKind == IdentCall)
	Callee string
	Args   []*Expr

	// Constant
	Value int64
	Size  int // 1, 2, or 4 bytes
}

// NewBoolean builds a binary relational/arithmetic node.
func NewBoolean(op Op, lhs, rhs *Expr) *Expr {
	return &Expr{Kind: Boolean, Op: op, LHS: lhs, RHS: rhs}
}

// NewNegation builds a logical negation node.
func NewNegation(x *Expr) *Expr { return &Expr{Kind: Negation, X: x} }

// NewAddressOf builds an address-of node.
func NewAddressOf(x *Expr) *Expr { return &Expr{Kind: AddressOf, X: x} }

// NewDereference builds a dereference node.
func NewDereference(x *Expr) *Expr { return &Expr{Kind: Dereference, X: x} }

// NewRegister builds an identifier node naming a register-typed local.
func NewRegister(localIdx int) *Expr {
	return &Expr{Kind: Identifier, IdentKind: IdentRegister, Idx: localIdx}
}

// NewLongRegister builds an identifier node naming a long (32-bit) register pair.
func NewLongRegister(localIdx int) *Expr {
	return &Expr{Kind: Identifier, IdentKind: IdentLongRegister, Idx: localIdx}
}

// NewConstant builds a literal of the given byte size.
func NewConstant(value int64, size int) *Expr {
	return &Expr{Kind: Constant, Value: value, Size: size}
}

// NewCall builds a function-call expression node with an argument list.
func NewCall(callee string, args []*Expr) *Expr {
	return &Expr{Kind: Identifier, IdentKind: IdentCall, Callee: callee, Args: args}
}

// Clone performs a deep copy of the tree rooted at e, honoring the
// single-owner invariant: e itself is never aliased into two parents.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	c := *e
	c.LHS = e.LHS.Clone()
	c.RHS = e.RHS.Clone()
	c.X = e.X.Clone()
	if e.Args != nil {
		c.Args = make([]*Expr, len(e.Args))
		for i, a := range e.Args {
			c.Args[i] = a.Clone()
		}
	}
	return &c
}

// ReplaceRegister substitutes every Identifier leaf of the given register
// kind/index with a deep clone of repl, returning whether any replacement
// occurred. Used by forward substitution to splice a definition's
// right-hand side into a use site.
func (e *Expr) ReplaceRegister(kind IdentKind, idx int, repl *Expr) (*Expr, bool) {
	if e == nil {
		return nil, false
	}
	if e.Kind == Identifier && e.IdentKind == kind && e.Idx == idx {
		return repl.Clone(), true
	}
	changed := false
	if e.LHS != nil {
		var ok bool
		e.LHS, ok = e.LHS.ReplaceRegister(kind, idx, repl)
		changed = changed || ok
	}
	if e.RHS != nil {
		var ok bool
		e.RHS, ok = e.RHS.ReplaceRegister(kind, idx, repl)
		changed = changed || ok
	}
	if e.X != nil {
		var ok bool
		e.X, ok = e.X.ReplaceRegister(kind, idx, repl)
		changed = changed || ok
	}
	for i, a := range e.Args {
		var ok bool
		e.Args[i], ok = a.ReplaceRegister(kind, idx, repl)
		changed = changed || ok
	}
	return e, changed
}

// UsesRegister reports whether the tree references the given register
// identifier anywhere, used by forward substitution's x-cleanliness
// check: the right-hand side's registers must not be re-defined
// between def and use.
func (e *Expr) UsesRegister(kind IdentKind, idx int) bool {
	if e == nil {
		return false
	}
	if e.Kind == Identifier && e.IdentKind == kind && e.Idx == idx {
		return true
	}
	return e.LHS.UsesRegister(kind, idx) || e.RHS.UsesRegister(kind, idx) ||
		e.X.UsesRegister(kind, idx) || anyArgUses(e.Args, kind, idx)
}

func anyArgUses(args []*Expr, kind IdentKind, idx int) bool {
	for _, a := range args {
		if a.UsesRegister(kind, idx) {
			return true
		}
	}
	return false
}

// String renders a best-effort C-like textual form, used by -V dumps and
// tests; the real back end (out of scope) owns final pretty-printing.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case Boolean:
		return fmt.Sprintf("(%s %s %s)", e.LHS, e.Op, e.RHS)
	case Negation:
		return fmt.Sprintf("!%s", e.X)
	case AddressOf:
		return fmt.Sprintf("&%s", e.X)
	case Dereference:
		return fmt.Sprintf("*%s", e.X)
	case Constant:
		return fmt.Sprintf("%#x", e.Value)
	case Identifier:
		if e.IdentKind == IdentCall {
			return fmt.Sprintf("%s(%s)", e.Callee, argList(e.Args))
		}
		if e.Name != "" {
			return e.Name
		}
		return fmt.Sprintf("id%d", e.Idx)
	default:
		return "?"
	}
}

func argList(args []*Expr) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s
}
