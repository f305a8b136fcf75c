package ident

import "testing"

func TestTableAddAndGet(t *testing.T) {
	tbl := New()
	idx := tbl.Add(Ident{Type: TypeWordSigned, Frame: FrameRegister, Payload: Register{Reg: 0}})

	if idx != 0 {
		t.Fatalf("Add returned index %d, want 0", idx)
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tbl.Len())
	}
	got := tbl.Get(idx)
	if got.Type != TypeWordSigned || got.Frame != FrameRegister {
		t.Errorf("Get(0) = %+v, want Type=TypeWordSigned Frame=FrameRegister", got)
	}
}

func TestAddOccurrence(t *testing.T) {
	tbl := New()
	idx := tbl.Add(Ident{Frame: FrameRegister, Payload: Register{Reg: 0}})

	tbl.AddOccurrence(idx, 10)
	tbl.AddOccurrence(idx, 12)

	got := tbl.Get(idx).Occurrences
	want := []int{10, 12}
	if len(got) != len(want) {
		t.Fatalf("Occurrences = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Occurrences[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFindRegister(t *testing.T) {
	tbl := New()
	tbl.Add(Ident{Frame: FrameGlobal, Payload: GlobalSlot{Off: 4}})
	idx := tbl.Add(Ident{Frame: FrameRegister, Payload: Register{Reg: 3}})

	if got := tbl.FindRegister(3); got != idx {
		t.Errorf("FindRegister(3) = %d, want %d", got, idx)
	}
	if got := tbl.FindRegister(99); got != -1 {
		t.Errorf("FindRegister(99) = %d, want -1", got)
	}
}

func TestFindRegisterSkipsLong(t *testing.T) {
	tbl := New()
	tbl.Add(Ident{Type: TypeLongUnsigned, Frame: FrameRegister, Payload: LongRegister{High: 0, Low: 3}})
	if got := tbl.FindRegister(0); got != -1 {
		t.Errorf("FindRegister(0) = %d, want -1 (should not match a long-register pair)", got)
	}
}

func TestFindLongRegister(t *testing.T) {
	tbl := New()
	idx := tbl.Add(Ident{Type: TypeLongUnsigned, Frame: FrameRegister, Payload: LongRegister{High: 0, Low: 3}})

	if got := tbl.FindLongRegister(0, 3); got != idx {
		t.Errorf("FindLongRegister(0,3) = %d, want %d", got, idx)
	}
	if got := tbl.FindLongRegister(1, 2); got != -1 {
		t.Errorf("FindLongRegister(1,2) = %d, want -1", got)
	}
}

func TestFindStack(t *testing.T) {
	tbl := New()
	idx := tbl.Add(Ident{Frame: FrameStack, Payload: StackSlot{Off: -4}})

	if got := tbl.FindStack(-4); got != idx {
		t.Errorf("FindStack(-4) = %d, want %d", got, idx)
	}
	if got := tbl.FindStack(-8); got != -1 {
		t.Errorf("FindStack(-8) = %d, want -1", got)
	}
}

func TestTypeIsLong(t *testing.T) {
	tests := []struct {
		typ  Type
		want bool
	}{
		{TypeLongSigned, true},
		{TypeLongUnsigned, true},
		{TypeWordSigned, false},
		{TypeByteUnsigned, false},
	}
	for _, tc := range tests {
		if got := tc.typ.IsLong(); got != tc.want {
			t.Errorf("Type(%s).IsLong() = %v, want %v", tc.typ, got, tc.want)
		}
	}
}

func TestTypeString(t *testing.T) {
	if got := TypeWordSigned.String(); got != "int" {
		t.Errorf("TypeWordSigned.String() = %q, want %q", got, "int")
	}
	if got := Type(999).String(); got != "?" {
		t.Errorf("out-of-range Type.String() = %q, want %q", got, "?")
	}
}

func TestNewRegisterName(t *testing.T) {
	if got := NewRegisterName(0); got != "loc1" {
		t.Errorf("NewRegisterName(0) = %q, want %q", got, "loc1")
	}
	if got := NewRegisterName(9); got != "loc10" {
		t.Errorf("NewRegisterName(9) = %q, want %q", got, "loc10")
	}
}
