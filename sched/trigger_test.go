// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package sched

import (
	"testing"

	"github.com/Timmmm/verilator/ast"
)

func Test_trigger_indices_deterministic(t *testing.T) {
	n := ast.NewNetlist("top")
	clk := n.Top.NewVar("clk", 1)
	rst := n.Top.NewVar("rst", 1)
	s := newTestScheduler(n)

	trees := []*ast.SenTree{
		n.Sens.Add(ast.SenItem{Edge: ast.EdgePos, Sig: clk}),
		n.Sens.Add(ast.SenItem{Edge: ast.EdgeNeg, Sig: rst}),
		n.Sens.Add(ast.SenItem{Edge: ast.EdgeChanged, Sig: rst}),
	}
	extras := &ExtraTriggers{}
	first := extras.Allocate("first iteration")
	if first != 0 {
		t.Fatalf("first extra index = %d, want 0", first)
	}

	initp := s.makeTopFunction("_eval_initial", true)
	kit, err := s.createTriggers(initp, s.senb, trees, "act", extras, false)
	if err != nil {
		t.Fatal(err)
	}
	if kit.Vec.Width != 4 {
		t.Fatalf("trigger vector width = %d, want 4", kit.Vec.Width)
	}
	// Sensitivity-derived indices follow the extras, in input order.
	for i, tree := range trees {
		mapped, ok := kit.Map[tree.ID]
		if !ok {
			t.Fatalf("tree %d has no trigger mapping", tree.ID)
		}
		mt := n.Sens.MustTree(mapped)
		tt, ok := mt.Items[0].Expr.(*ast.TrigTest)
		if !ok {
			t.Fatal("mapped tree is not trigger-indexed")
		}
		if want := uint32(extras.Size() + i); tt.Index != want {
			t.Fatalf("tree %d mapped to index %d, want %d", tree.ID, tt.Index, want)
		}
		if tt.Vec != kit.Vec {
			t.Fatal("mapped tree tests the wrong vector")
		}
	}
}

func Test_changed_fires_at_init(t *testing.T) {
	n := ast.NewNetlist("top")
	v := n.Top.NewVar("v", 8)
	s := newTestScheduler(n)

	trees := []*ast.SenTree{n.Sens.Add(ast.SenItem{Edge: ast.EdgeChanged, Sig: v})}
	initp := s.makeTopFunction("_eval_initial", true)
	kit, err := s.createTriggers(initp, s.senb, trees, "act", &ExtraTriggers{}, false)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	ast.WalkStmts(kit.Func.Stmts, func(st ast.Stmt) {
		if iff, ok := st.(*ast.If); ok && iff.Unlikely && len(iff.Then) > 0 {
			found = true
		}
	})
	if !found {
		t.Fatal("change-sensitive trigger must fire on the first evaluation")
	}
}

func Test_trigger_sen_tree_rejects_unallocated_index(t *testing.T) {
	n := ast.NewNetlist("top")
	s := newTestScheduler(n)
	vec := n.Top.NewTriggerVec("__VactTriggered", 2)
	if _, err := s.createTriggerSenTree(vec, invalidIndex); err == nil {
		t.Fatal("expected error for the unallocated-index sentinel")
	}
	tree, err := s.createTriggerSenTree(vec, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !tree.HasClocked() {
		t.Fatal("trigger-indexed trees must classify as clocked")
	}
}

func Test_trigger_inits_go_to_init_function(t *testing.T) {
	n := ast.NewNetlist("top")
	clk := n.Top.NewVar("clk", 1)
	s := newTestScheduler(n)

	trees := []*ast.SenTree{n.Sens.Add(ast.SenItem{Edge: ast.EdgePos, Sig: clk})}
	initp := s.makeTopFunction("_eval_initial", true)
	kit, err := s.createTriggers(initp, s.senb, trees, "act", &ExtraTriggers{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(initp.Stmts) == 0 {
		t.Fatal("previous-value init must land in the init function")
	}
	// The compute function refreshes the shadow after evaluating triggers.
	var lastAssign *ast.Assign
	for _, st := range kit.Func.Stmts {
		if a, ok := st.(*ast.Assign); ok {
			lastAssign = a
		}
	}
	if lastAssign == nil {
		t.Fatal("compute function never refreshes the previous-value shadow")
	}
	if ref, ok := lastAssign.RHS.(*ast.VarRef); !ok || ref.Target != clk {
		t.Fatal("shadow refresh must copy the tracked signal")
	}
}

func Test_first_iteration_trigger(t *testing.T) {
	n := ast.NewNetlist("top")
	clk := n.Top.NewVar("clk", 1)
	s := newTestScheduler(n)

	extras := &ExtraTriggers{}
	first := extras.Allocate("first iteration")
	trees := []*ast.SenTree{n.Sens.Add(ast.SenItem{Edge: ast.EdgePos, Sig: clk})}
	initp := s.makeTopFunction("_eval_initial", true)
	kit, err := s.createTriggers(initp, s.senb, trees, "stl", extras, true)
	if err != nil {
		t.Fatal(err)
	}
	counter := n.Top.NewTemp("__VstlIterCount", 32)
	kit.addFirstIterationTriggerAssignment(counter, first)

	mc, ok := kit.Func.Stmts[0].(*ast.MethodCall)
	if !ok || mc.Method != "set" {
		t.Fatalf("first compute statement = %T, want first-iteration set", kit.Func.Stmts[0])
	}
	if idx, ok := mc.Args[0].(*ast.Const); !ok || idx.Value != uint64(first) {
		t.Fatal("first-iteration set targets the wrong index")
	}
	cmp, ok := mc.Args[1].(*ast.Binary)
	if !ok || cmp.Op != ast.OpEq {
		t.Fatal("first-iteration condition must compare the counter against zero")
	}
}
