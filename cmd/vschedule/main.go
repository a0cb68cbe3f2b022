// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

// Command vschedule runs the evaluation-loop scheduler on a small built-in
// design and prints what was generated. It exists to exercise the pipeline
// end to end and to show how a front end wires the scheduler up.
package main

import (
	"fmt"
	"os"

	"github.com/Timmmm/verilator/ast"
	"github.com/Timmmm/verilator/sched"
	"github.com/Timmmm/verilator/stats"
	"github.com/voodooEntity/archivist"
)

func main() {
	n := demoNetlist()

	log := archivist.New(&archivist.Config{
		LogLevel:   archivist.LEVEL_DEBUG,
		DebugLevel: archivist.DEBUG_LEVEL_TRACE,
	})
	rec := stats.New("vschedule")

	res, err := sched.Schedule(n, sched.Config{
		Log:   log,
		Stats: rec,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "vschedule:", err)
		os.Exit(1)
	}

	fmt.Println("regions:")
	for _, r := range res.Regions {
		fmt.Println("  ", r)
	}
	fmt.Println("functions:")
	n.Top.Walk(func(sc *ast.Scope) {
		for _, f := range sc.Funcs {
			entry := ""
			if f.Entry {
				entry = " (entry)"
			}
			fmt.Printf("  %s%s: %d nodes\n", f.Name, entry, f.NodeCount())
		}
	})
	rec.Dump(log)
}

// demoNetlist builds a two-stage synchronizer: a combinational stage feeding
// a clocked register pair, with a reactive monitor on the output.
//
func demoNetlist() *ast.Netlist {
	n := ast.NewNetlist("top")
	top := n.Top

	clk := top.NewVar("clk", 1)
	clk.PrimaryIn = true
	din := top.NewVar("din", 1)
	din.PrimaryIn = true
	d := top.NewVar("d", 1)
	q0 := top.NewVar("q0", 1)
	q1 := top.NewVar("q1", 1)

	comb := n.Sens.Add(ast.SenItem{Edge: ast.EdgeCombo})
	posClk := n.Sens.Add(ast.SenItem{Edge: ast.EdgePos, Sig: clk})

	// d = !din
	top.Actives = append(top.Actives, &ast.Active{
		Sens:  comb.ID,
		Logic: []ast.Stmt{&ast.Assign{LHS: d, RHS: ast.Not(ast.Ref(din))}},
	})
	// q0 <= d; q1 <= q0
	top.Actives = append(top.Actives, &ast.Active{
		Sens: posClk.ID,
		Logic: []ast.Stmt{
			&ast.Assign{LHS: q0, RHS: ast.Ref(d)},
			&ast.Assign{LHS: q1, RHS: ast.Ref(q0)},
		},
	})
	// monitor on q1
	top.Actives = append(top.Actives, &ast.Active{
		Sens: posClk.ID,
		Logic: []ast.Stmt{&ast.Proc{
			Kind:  ast.ProcReactive,
			Stmts: []ast.Stmt{&ast.DebugPrint{Text: "q1 updated"}},
		}},
	})
	// one-time init
	initial := n.Sens.Add(ast.SenItem{Edge: ast.EdgeInitial})
	top.Actives = append(top.Actives, &ast.Active{
		Sens:  initial.ID,
		Logic: []ast.Stmt{&ast.Assign{LHS: q1, RHS: ast.Num(0)}},
	})
	return n
}
