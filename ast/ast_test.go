// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package ast

import (
	"testing"
)

func TestSenTree_kinds(t *testing.T) {
	n := NewNetlist("top")
	clk := n.Top.NewVar("clk", 1)

	tests := []struct {
		name    string
		items   []SenItem
		clocked bool
		combo   bool
	}{
		{"combo", []SenItem{{Edge: EdgeCombo}}, false, true},
		{"posedge", []SenItem{{Edge: EdgePos, Sig: clk}}, true, false},
		{"negedge", []SenItem{{Edge: EdgeNeg, Sig: clk}}, true, false},
		{"changed", []SenItem{{Edge: EdgeChanged, Sig: clk}}, true, false},
		{"hybrid", []SenItem{{Edge: EdgeHybrid, Sig: clk}}, false, false},
		{"true", []SenItem{{Edge: EdgeTrue, Expr: Num(1)}}, true, false},
	}
	for _, tt := range tests {
		tr := n.Sens.Add(tt.items...)
		if got := tr.HasClocked(); got != tt.clocked {
			t.Fatalf("%s: HasClocked = %v, want %v", tt.name, got, tt.clocked)
		}
		if got := tr.HasCombo(); got != tt.combo {
			t.Fatalf("%s: HasCombo = %v, want %v", tt.name, got, tt.combo)
		}
	}
}

func TestSenTable_stable_ids(t *testing.T) {
	tb := NewSenTable()
	a := tb.Add(SenItem{Edge: EdgeCombo})
	b := tb.Add(SenItem{Edge: EdgeInitial})
	if a.ID == b.ID {
		t.Fatal("distinct trees share an identifier")
	}
	got, err := tb.Tree(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != a {
		t.Fatal("Tree did not return the added tree")
	}
	if _, err := tb.Tree(SenTreeID(99)); err == nil {
		t.Fatal("expected error for unknown tree")
	}
	if _, err := tb.Tree(NoSenTree); err == nil {
		t.Fatal("expected error for NoSenTree")
	}
}

func TestActive_clone_is_deep(t *testing.T) {
	n := NewNetlist("top")
	v := n.Top.NewVar("v", 1)
	a := &Active{
		Sens:  n.Sens.Add(SenItem{Edge: EdgeCombo}).ID,
		Logic: []Stmt{&Assign{LHS: v, RHS: Num(1)}},
	}
	c := a.Clone()
	c.Logic[0].(*Assign).RHS = Num(2)
	if a.Logic[0].(*Assign).RHS.(*Const).Value != 1 {
		t.Fatal("clone shares statement storage with the original")
	}
	if c.Sens != a.Sens {
		t.Fatal("clone must share the sensitivity reference")
	}
}

func TestTakeLogic_drains(t *testing.T) {
	n := NewNetlist("top")
	v := n.Top.NewVar("v", 1)
	a := &Active{Logic: []Stmt{&Assign{LHS: v, RHS: Num(1)}}}
	got := a.TakeLogic()
	if len(got) != 1 || !a.Empty() {
		t.Fatal("TakeLogic must transfer ownership and leave the fragment empty")
	}
}

func TestRewriteVars(t *testing.T) {
	n := NewNetlist("top")
	old := n.Top.NewVar("old", 1)
	rep := n.Top.NewVar("rep", 1)
	stmts := []Stmt{
		&Assign{LHS: old, RHS: Ref(old)},
		&If{Cond: Ref(old), Then: []Stmt{&MethodCall{Target: old, Method: "set"}}},
	}
	RewriteVars(stmts, func(v *VarScope) *VarScope {
		if v == old {
			return rep
		}
		return v
	})
	count := 0
	WalkReads(stmts, func(v *VarScope) {
		if v == old {
			t.Fatal("read of replaced variable survived")
		}
		count++
	})
	WalkWrites(stmts, func(v *VarScope) {
		if v == old {
			t.Fatal("write of replaced variable survived")
		}
	})
	if count == 0 {
		t.Fatal("walk visited no reads")
	}
}

func TestContainsAwait_ignores_fork_branches(t *testing.T) {
	n := NewNetlist("top")
	sc := n.Top.NewVar("sched", 1)
	sc.Kind = KindTrigSched
	aw := &Await{Sched: sc, Sens: NoSenTree}

	inner := &Fork{Branches: []*Begin{{Name: "b", Stmts: []Stmt{aw}}}}
	if ContainsAwait([]Stmt{inner}) {
		t.Fatal("await inside a fork branch belongs to the spawned process")
	}
	if !ContainsAwait([]Stmt{&If{Cond: Num(1), Then: []Stmt{aw.CloneStmt()}}}) {
		t.Fatal("await inside a conditional was not found")
	}
}

func TestCheckLinked(t *testing.T) {
	n := NewNetlist("top")
	f := &CFunc{Name: "f"}
	n.Top.AddFunc(f)
	if err := n.CheckLinked(); err != nil {
		t.Fatal(err)
	}
	child := n.Top.NewChild("child")
	child.Funcs = append(child.Funcs, f) // linked twice, not re-owned
	if err := n.CheckLinked(); err == nil {
		t.Fatal("expected error for a doubly linked function")
	}
}
