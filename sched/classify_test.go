// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package sched

import (
	"testing"

	"github.com/Timmmm/verilator/ast"
	"github.com/voodooEntity/archivist"
)

func newTestScheduler(n *ast.Netlist) *Scheduler {
	cfg := Config{}
	cfg.ConvergeLimit = 100
	return &Scheduler{
		n:    n,
		cfg:  cfg,
		log:  archivist.New(&archivist.Config{LogLevel: archivist.LEVEL_FATAL}),
		senb: NewEdgeDetectBuilder(n.Top),
	}
}

func addFragment(n *ast.Netlist, sens ast.SenTreeID, stmts ...ast.Stmt) {
	n.Top.Actives = append(n.Top.Actives, &ast.Active{Sens: sens, Logic: stmts})
}

func Test_classification_totality(t *testing.T) {
	n := ast.NewNetlist("top")
	clk := n.Top.NewVar("clk", 1)
	v := n.Top.NewVar("v", 1)
	set := func() ast.Stmt { return &ast.Assign{LHS: v, RHS: ast.Num(1)} }

	static := n.Sens.Add(ast.SenItem{Edge: ast.EdgeStatic})
	initial := n.Sens.Add(ast.SenItem{Edge: ast.EdgeInitial})
	final := n.Sens.Add(ast.SenItem{Edge: ast.EdgeFinal})
	comb := n.Sens.Add(ast.SenItem{Edge: ast.EdgeCombo})
	pos := n.Sens.Add(ast.SenItem{Edge: ast.EdgePos, Sig: clk})
	hybrid := n.Sens.Add(ast.SenItem{Edge: ast.EdgeHybrid, Sig: clk})

	addFragment(n, static.ID, set())
	addFragment(n, initial.ID, set())
	addFragment(n, final.ID, set())
	addFragment(n, comb.ID, set())
	addFragment(n, pos.ID, set())
	addFragment(n, hybrid.ID, set())
	addFragment(n, comb.ID, &ast.Proc{Kind: ast.ProcPostponed, Stmts: []ast.Stmt{set()}})
	addFragment(n, pos.ID, &ast.Proc{Kind: ast.ProcObserved, Stmts: []ast.Stmt{set()}})
	addFragment(n, pos.ID, &ast.Proc{Kind: ast.ProcReactive, Stmts: []ast.Stmt{set()}})
	addFragment(n, comb.ID) // empty, must be discarded

	s := newTestScheduler(n)
	lc, err := s.gatherLogicClasses()
	if err != nil {
		t.Fatal(err)
	}
	checks := []struct {
		name string
		lbs  LogicByScope
		want int
	}{
		{"static", lc.Static, 1},
		{"initial", lc.Initial, 1},
		{"final", lc.Final, 1},
		{"comb", lc.Comb, 1},
		{"clocked", lc.Clocked, 2}, // plain posedge and hybrid
		{"postponed", lc.Postponed, 1},
		{"observed", lc.Observed, 1},
		{"reactive", lc.Reactive, 1},
	}
	total := 0
	for _, c := range checks {
		if len(c.lbs) != c.want {
			t.Fatalf("class %s has %d fragments, want %d", c.name, len(c.lbs), c.want)
		}
		total += len(c.lbs)
	}
	if total != 9 {
		t.Fatalf("classified %d fragments, want 9", total)
	}
	n.EachActive(func(sc *ast.Scope, a *ast.Active) {
		t.Fatal("classification must consume every fragment")
	})
}

func Test_static_with_extra_sensitivity_rejected(t *testing.T) {
	n := ast.NewNetlist("top")
	clk := n.Top.NewVar("clk", 1)
	v := n.Top.NewVar("v", 1)
	bad := n.Sens.Add(
		ast.SenItem{Edge: ast.EdgeStatic},
		ast.SenItem{Edge: ast.EdgePos, Sig: clk},
	)
	addFragment(n, bad.ID, &ast.Assign{LHS: v, RHS: ast.Num(1)})
	s := newTestScheduler(n)
	if _, err := s.gatherLogicClasses(); err == nil {
		t.Fatal("expected error for static logic with additional sensitivities")
	}
}

func Test_order_sequentially_suspendable(t *testing.T) {
	n := ast.NewNetlist("top")
	v := n.Top.NewVar("v", 1)
	sched := n.Top.NewVar("sched", 1)
	sched.Kind = ast.KindDelaySched

	var lbs LogicByScope
	lbs.Add(n.Top, &ast.Active{Logic: []ast.Stmt{
		&ast.Proc{Kind: ast.ProcOnce, Stmts: []ast.Stmt{&ast.Assign{LHS: v, RHS: ast.Num(1)}}},
		&ast.Proc{
			Kind:        ast.ProcAlways,
			Suspendable: true,
			Stmts:       []ast.Stmt{&ast.Await{Sched: sched, Sens: ast.NoSenTree}},
		},
	}})

	s := newTestScheduler(n)
	f := s.makeTopFunction("_eval_initial", true)
	s.orderSequentially(f, lbs)

	if f.Slow {
		t.Fatal("a function spawning suspendable bodies cannot stay on the slow path")
	}
	var coro *ast.CFunc
	for _, sub := range n.Top.Funcs {
		if sub.Coroutine {
			coro = sub
		}
	}
	if coro == nil {
		t.Fatal("suspendable body did not get its own resumable function")
	}
	loop, ok := coro.Stmts[0].(*ast.While)
	if !ok {
		t.Fatal("always-style suspendable body must re-arm in an endless loop")
	}
	if c, ok := loop.Cond.(*ast.Const); !ok || c.Value != 1 {
		t.Fatal("re-arm loop condition must be constant true")
	}
}
