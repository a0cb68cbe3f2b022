// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package sched

import (
	"github.com/Timmmm/verilator/ast"
)

// createSettle builds the one-time settle pass: private copies of all
// combinational and hybrid logic iterated to a fixed point once at startup,
// so derived signals are consistent before the first real evaluation. When
// the design has no such logic nothing is generated.
//
func (s *Scheduler) createSettle(initp *ast.CFunc, lc *LogicClasses) (bool, error) {
	comb := lc.Comb.Clone()
	hybrid := lc.Hybrid.Clone()
	if comb.Empty() && hybrid.Empty() {
		return false, nil
	}
	funcp := s.makeTopFunction("_eval_settle", true)

	// One extra trigger re-runs everything on the first iteration so even
	// logic whose inputs never change is evaluated once.
	extras := &ExtraTriggers{}
	firstIt := extras.Allocate("first iteration")

	senTrees := s.senTreesUsedBy(&comb, &hybrid)
	trig, err := s.createTriggers(initp, s.senb, senTrees, "stl", extras, true)
	if err != nil {
		return false, err
	}
	if err := s.remapSensitivities(hybrid, trig.Map); err != nil {
		return false, err
	}
	trigToSen := invertTriggerMaps(trig.Map)

	inputChanged, err := s.createTriggerSenTree(trig.Vec, firstIt)
	if err != nil {
		return false, err
	}
	stlFunc, err := s.cfg.Order(s.n, []*LogicByScope{&comb, &hybrid}, trigToSen, "stl", false, true,
		func(v *ast.VarScope) []ast.SenTreeID {
			// During settle every write is treated as a change of input.
			return []ast.SenTreeID{inputChanged.ID}
		})
	if err != nil {
		return false, err
	}
	s.splitCheck(stlFunc)

	counter, loop, err := s.makeEvalLoop("stl", "Settle", trig.Vec, trig.Dump,
		func() []ast.Stmt { return []ast.Stmt{&ast.Call{Func: trig.Func}} },
		func() []ast.Stmt { return []ast.Stmt{&ast.Call{Func: stlFunc}} })
	if err != nil {
		return false, err
	}
	trig.addFirstIterationTriggerAssignment(counter, firstIt)
	funcp.AddStmts(loop...)
	return true, nil
}
