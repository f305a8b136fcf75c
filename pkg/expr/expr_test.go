package expr

import "testing"

func TestOpNegate(t *testing.T) {
	tests := []struct {
		in, want Op
	}{
		{OpEQ, OpNE},
		{OpNE, OpEQ},
		{OpLT, OpGE},
		{OpLE, OpGT},
		{OpGT, OpLE},
		{OpGE, OpLT},
		{OpAdd, OpAdd}, // non-relational ops are unchanged
	}
	for _, tc := range tests {
		if got := tc.in.Negate(); got != tc.want {
			t.Errorf("Op(%s).Negate() = %s, want %s", tc.in, got, tc.want)
		}
	}
	// negation must be its own inverse for every relational operator
	for _, op := range []Op{OpEQ, OpNE, OpLT, OpLE, OpGT, OpGE} {
		if got := op.Negate().Negate(); got != op {
			t.Errorf("Op(%s).Negate().Negate() = %s, want %s", op, got, op)
		}
	}
}

func TestCloneDeepCopy(t *testing.T) {
	orig := NewBoolean(OpAdd, NewConstant(1, 2), NewConstant(2, 2))
	clone := orig.Clone()

	if clone == orig {
		t.Fatal("Clone returned the same pointer")
	}
	if clone.LHS == orig.LHS || clone.RHS == orig.RHS {
		t.Fatal("Clone shared child pointers with the original")
	}
	clone.LHS.Value = 99
	if orig.LHS.Value == 99 {
		t.Error("mutating the clone mutated the original")
	}
}

func TestCloneNil(t *testing.T) {
	var e *Expr
	if got := e.Clone(); got != nil {
		t.Errorf("Clone of nil = %v, want nil", got)
	}
}

func TestReplaceRegister(t *testing.T) {
	reg := NewRegister(3)
	tree := NewBoolean(OpAdd, reg, NewConstant(5, 2))

	repl := NewConstant(42, 2)
	got, changed := tree.ReplaceRegister(IdentRegister, 3, repl)
	if !changed {
		t.Fatal("ReplaceRegister reported no change")
	}
	if got.LHS.Kind != Constant || got.LHS.Value != 42 {
		t.Errorf("LHS after replace = %+v, want Constant 42", got.LHS)
	}
	// replacement must be a clone, not an alias, of repl
	got.LHS.Value = 7
	if repl.Value == 7 {
		t.Error("ReplaceRegister aliased the replacement expression")
	}
}

func TestReplaceRegisterNoMatch(t *testing.T) {
	tree := NewBoolean(OpAdd, NewRegister(1), NewConstant(5, 2))
	_, changed := tree.ReplaceRegister(IdentRegister, 99, NewConstant(0, 2))
	if changed {
		t.Error("ReplaceRegister reported a change when no register matched")
	}
}

func TestUsesRegister(t *testing.T) {
	tree := NewBoolean(OpAdd, NewRegister(1), NewDereference(NewRegister(2)))

	if !tree.UsesRegister(IdentRegister, 1) {
		t.Error("UsesRegister(1) = false, want true")
	}
	if !tree.UsesRegister(IdentRegister, 2) {
		t.Error("UsesRegister(2) = false, want true (nested under Dereference)")
	}
	if tree.UsesRegister(IdentRegister, 3) {
		t.Error("UsesRegister(3) = true, want false")
	}
}

func TestUsesRegisterCallArgs(t *testing.T) {
	call := NewCall("foo", []*Expr{NewRegister(5), NewConstant(1, 2)})
	if !call.UsesRegister(IdentRegister, 5) {
		t.Error("UsesRegister should see registers inside call arguments")
	}
}

func TestStringRendering(t *testing.T) {
	tests := []struct {
		e    *Expr
		want string
	}{
		{NewConstant(0xff, 1), "0xff"},
		{NewBoolean(OpEQ, NewConstant(1, 2), NewConstant(2, 2)), "(0x1 == 0x2)"},
		{NewNegation(NewConstant(1, 2)), "!0x1"},
		{NewAddressOf(NewConstant(1, 2)), "&0x1"},
		{NewDereference(NewConstant(1, 2)), "*0x1"},
		{NewCall("foo", []*Expr{NewConstant(1, 2), NewConstant(2, 2)}), "foo(0x1, 0x2)"},
	}
	for _, tc := range tests {
		if got := tc.e.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestStringNil(t *testing.T) {
	var e *Expr
	if got := e.String(); got != "" {
		t.Errorf("String() of nil = %q, want empty", got)
	}
}
