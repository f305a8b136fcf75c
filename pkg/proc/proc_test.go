package proc

import "testing"

func TestNewDefaults(t *testing.T) {
	p := New("start", 0x100)
	if p.Name != "start" || p.Entry != 0x100 {
		t.Fatalf("New() = %+v, want Name=start Entry=0x100", p)
	}
	if p.CFGHead != -1 {
		t.Errorf("CFGHead = %d, want -1", p.CFGHead)
	}
	if p.ReturnVar != -1 {
		t.Errorf("ReturnVar = %d, want -1", p.ReturnVar)
	}
	if p.Next != -1 || p.Prev != -1 {
		t.Errorf("Next/Prev = %d/%d, want -1/-1", p.Next, p.Prev)
	}
	if p.IR == nil || p.Locals == nil || p.SwitchCases == nil {
		t.Error("New() left a required table nil")
	}
}

func TestFlags(t *testing.T) {
	p := New("p", 0)
	if p.Has(FlagIsLibrary) {
		t.Error("fresh procedure has FlagIsLibrary set")
	}
	p.Set(FlagIsLibrary)
	if !p.Has(FlagIsLibrary) {
		t.Error("Set(FlagIsLibrary) did not take effect")
	}
	p.Set(FlagAsm)
	if !p.Has(FlagIsLibrary) || !p.Has(FlagAsm) {
		t.Error("Set should not clear other flags")
	}
	p.Clear(FlagIsLibrary)
	if p.Has(FlagIsLibrary) {
		t.Error("Clear(FlagIsLibrary) did not take effect")
	}
	if !p.Has(FlagAsm) {
		t.Error("Clear should not clear other flags")
	}
}

func TestReturnExprVoid(t *testing.T) {
	p := New("p", 0)
	if got := p.ReturnExpr(); got != nil {
		t.Errorf("ReturnExpr() on void procedure = %v, want nil", got)
	}
}

func TestReturnExprWord(t *testing.T) {
	p := New("p", 0)
	p.ReturnVar = 2
	p.ReturnT = ReturnWord
	got := p.ReturnExpr()
	if got == nil || got.Idx != 2 {
		t.Fatalf("ReturnExpr() = %v, want register identifier idx=2", got)
	}
}

func TestReturnExprLong(t *testing.T) {
	p := New("p", 0)
	p.ReturnVar = 3
	p.ReturnT = ReturnLong
	got := p.ReturnExpr()
	if got == nil || got.IdentKind != 1 /* IdentLongRegister */ {
		t.Fatalf("ReturnExpr() = %v, want a long-register identifier", got)
	}
}

func TestListAddAndFindByEntry(t *testing.T) {
	l := NewList()
	id := l.Add(New("main", 0x200))
	if id != 0 {
		t.Fatalf("Add returned id %d, want 0", id)
	}
	if got := l.FindByEntry(0x200); got != id {
		t.Errorf("FindByEntry(0x200) = %d, want %d", got, id)
	}
	if got := l.FindByEntry(0x999); got != -1 {
		t.Errorf("FindByEntry(missing) = %d, want -1", got)
	}
	if got := l.Get(id).Name; got != "main" {
		t.Errorf("Get(id).Name = %q, want %q", got, "main")
	}
}

func TestStateClone(t *testing.T) {
	s := State{IP: 0x100}
	s.Regs[0] = 42
	c := s.Clone()
	c.Regs[0] = 99
	if s.Regs[0] == 99 {
		t.Error("Clone shared the Regs array with the original")
	}
}
