// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package sched

import (
	"testing"

	"github.com/Timmmm/verilator/ast"
)

func Test_prepare_timing_dedupes_wait_conditions(t *testing.T) {
	n := ast.NewNetlist("top")
	n.UsesTiming = true
	clk := n.Top.NewVar("clk", 1)
	out := n.Top.NewVar("out", 1)
	trig := n.Top.NewVar("trig_sched", 1)
	trig.Kind = ast.KindTrigSched

	wait := n.Sens.Add(ast.SenItem{Edge: ast.EdgeChanged, Sig: clk})
	pos := n.Sens.Add(ast.SenItem{Edge: ast.EdgePos, Sig: clk})

	proc := &ast.Proc{
		Kind:        ast.ProcAlways,
		Suspendable: true,
		Stmts: []ast.Stmt{
			&ast.Await{Sched: trig, Sens: wait.ID},
			&ast.Assign{LHS: out, RHS: ast.Num(1)},
			&ast.Await{Sched: trig, Sens: wait.ID},
		},
	}
	addFragment(n, pos.ID, proc)

	s := newTestScheduler(n)
	tk, err := s.prepareTiming()
	if err != nil {
		t.Fatal(err)
	}
	if len(tk.records) != 1 {
		t.Fatalf("%d resume fragments for one wait condition, want 1", len(tk.records))
	}
	for _, st := range proc.Stmts {
		if aw, ok := st.(*ast.Await); ok && aw.Sens != ast.NoSenTree {
			t.Fatal("await must hand its wait condition to the resume fragment")
		}
	}
	if !out.WrittenBySuspendable {
		t.Fatal("signal written by a suspendable process was not marked")
	}
	if len(tk.externalDomains[out]) != 2 {
		t.Fatalf("out has %d wakeup domains, want 2 (one per await)", len(tk.externalDomains[out]))
	}
}

func Test_dynamic_scheduler_post_updates(t *testing.T) {
	n := ast.NewNetlist("top")
	n.UsesTiming = true
	clk := n.Top.NewVar("clk", 1)
	dyn := n.Top.NewVar("dyn_sched", 1)
	dyn.Kind = ast.KindDynSched

	wait := n.Sens.Add(ast.SenItem{Edge: ast.EdgeChanged, Sig: clk})
	pos := n.Sens.Add(ast.SenItem{Edge: ast.EdgePos, Sig: clk})
	addFragment(n, pos.ID, &ast.Proc{
		Kind:        ast.ProcAlways,
		Suspendable: true,
		Stmts:       []ast.Stmt{&ast.Await{Sched: dyn, Sens: wait.ID}},
	})

	s := newTestScheduler(n)
	tk, err := s.prepareTiming()
	if err != nil {
		t.Fatal(err)
	}
	if len(tk.postUpdates) != 1 {
		t.Fatalf("%d post updates, want 1", len(tk.postUpdates))
	}
	mc, ok := tk.postUpdates[0].(*ast.MethodCall)
	if !ok || mc.Target != dyn || mc.Method != "doPostUpdates" {
		t.Fatal("dynamic scheduler must get a doPostUpdates call after trigger evaluation")
	}
}

func Test_await_on_non_scheduler_rejected(t *testing.T) {
	n := ast.NewNetlist("top")
	n.UsesTiming = true
	clk := n.Top.NewVar("clk", 1)
	plain := n.Top.NewVar("plain", 1)
	wait := n.Sens.Add(ast.SenItem{Edge: ast.EdgeChanged, Sig: clk})
	pos := n.Sens.Add(ast.SenItem{Edge: ast.EdgePos, Sig: clk})
	addFragment(n, pos.ID, &ast.Proc{
		Kind:        ast.ProcAlways,
		Suspendable: true,
		Stmts:       []ast.Stmt{&ast.Await{Sched: plain, Sens: wait.ID}},
	})
	s := newTestScheduler(n)
	if _, err := s.prepareTiming(); err == nil {
		t.Fatal("expected error for an await on a non-scheduler variable")
	}
}

func Test_schedule_with_timing(t *testing.T) {
	n := testNetlist()
	n.UsesTiming = true
	clk := n.Top.Vars[0] // clk from testNetlist
	done := n.Top.NewVar("done", 1)
	trig := n.Top.NewVar("trig_sched", 1)
	trig.Kind = ast.KindTrigSched
	dyn := n.Top.NewVar("dyn_sched", 1)
	dyn.Kind = ast.KindDynSched

	wait := n.Sens.Add(ast.SenItem{Edge: ast.EdgeChanged, Sig: done})
	pos := n.Sens.Add(ast.SenItem{Edge: ast.EdgePos, Sig: clk})
	addFragment(n, pos.ID, &ast.Proc{
		Kind:        ast.ProcAlways,
		Suspendable: true,
		Stmts: []ast.Stmt{
			&ast.Await{Sched: trig, Sens: wait.ID, Args: []ast.Expr{ast.Num(7)}},
			&ast.Await{Sched: dyn, Sens: wait.ID},
			&ast.Assign{LHS: done, RHS: ast.Num(1)},
		},
	})

	if _, err := Schedule(n, Config{}); err != nil {
		t.Fatal(err)
	}

	resume := findFunc(t, n, "_timing_resume")
	if findMethodCall(resume, "trig_sched", "resume") == nil {
		t.Fatal("trigger scheduler is never resumed")
	}
	if findMethodCall(resume, "dyn_sched", "resume") == nil {
		t.Fatal("dynamic scheduler is never resumed")
	}
	// Resumes are guarded by the remapped trigger bit.
	for _, st := range resume.Stmts {
		iff, ok := st.(*ast.If)
		if !ok {
			t.Fatalf("resume body contains %T, want guarded conditionals", st)
		}
		if _, ok := iff.Cond.(*ast.TrigTest); !ok {
			t.Fatal("resume guard must test a trigger bit")
		}
	}

	// Unfired trigger waits are committed with the await's arguments.
	commit := findFunc(t, n, "_timing_commit")
	mc := findMethodCall(commit, "trig_sched", "commit")
	if mc == nil {
		t.Fatal("trigger scheduler is never committed")
	}
	if len(mc.Args) != 1 {
		t.Fatalf("commit has %d arguments, want the await's 1", len(mc.Args))
	}
	if findMethodCall(commit, "dyn_sched", "commit") != nil {
		t.Fatal("dynamic schedulers must not be committed")
	}

	// The dynamic scheduler's post updates run with act trigger evaluation.
	trigFunc := findFunc(t, n, "_eval_triggers__act")
	if findMethodCall(trigFunc, "dyn_sched", "doPostUpdates") == nil {
		t.Fatal("dynamic scheduler post updates are not wired into the act triggers")
	}
}
