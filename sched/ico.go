// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package sched

import (
	"github.com/Timmmm/verilator/ast"
)

// createInputCombLoop builds the input-combinational pre-loop: replicas of
// combinational logic fed by top level inputs or the foreign-call interface,
// iterated to a fixed point at the start of every evaluation. Returns nil
// statements when there are no such replicas.
//
func (s *Scheduler) createInputCombLoop(initp *ast.CFunc, logic *LogicByScope) ([]ast.Stmt, error) {
	if logic.Empty() {
		return nil, nil
	}

	if s.cfg.SystemC {
		// The SystemC wrapper needs to know which inputs feed pre-loop
		// logic so it can register external sensitivity on them.
		logic.EachLogic(func(st ast.Stmt) {
			ast.WalkReads([]ast.Stmt{st}, func(v *ast.VarScope) {
				if v.PrimaryIn && v.Scope.IsTop() {
					v.ScSensitive = true
				}
			})
		})
	}

	flag := s.n.ForeignWriteFlag
	extras := &ExtraTriggers{}
	firstIt := extras.Allocate("first iteration")
	fwIdx := invalidIndex
	if flag != nil {
		fwIdx = extras.Allocate("foreign-call write")
	}

	senTrees := s.senTreesUsedBy(logic)
	trig, err := s.createTriggers(initp, s.senb, senTrees, "ico", extras, false)
	if err != nil {
		return nil, err
	}
	if flag != nil {
		trig.addForeignWriteTriggerAssignment(flag, fwIdx)
	}
	if err := s.remapSensitivities(*logic, trig.Map); err != nil {
		return nil, err
	}
	trigToSen := invertTriggerMaps(trig.Map)

	inputChanged, err := s.createTriggerSenTree(trig.Vec, firstIt)
	if err != nil {
		return nil, err
	}
	var foreignWrite *ast.SenTree
	if flag != nil {
		foreignWrite, err = s.createTriggerSenTree(trig.Vec, fwIdx)
		if err != nil {
			return nil, err
		}
	}

	icoFunc, err := s.cfg.Order(s.n, []*LogicByScope{logic}, trigToSen, "ico", false, false,
		func(v *ast.VarScope) []ast.SenTreeID {
			var out []ast.SenTreeID
			if v.PrimaryIn || v.PublicRW {
				out = append(out, inputChanged.ID)
			}
			if v.WrittenByForeign && foreignWrite != nil {
				out = append(out, foreignWrite.ID)
			}
			return out
		})
	if err != nil {
		return nil, err
	}
	s.splitCheck(icoFunc)

	counter, loop, err := s.makeEvalLoop("ico", "Input combinational", trig.Vec, trig.Dump,
		func() []ast.Stmt { return []ast.Stmt{&ast.Call{Func: trig.Func}} },
		func() []ast.Stmt { return []ast.Stmt{&ast.Call{Func: icoFunc}} })
	if err != nil {
		return nil, err
	}
	trig.addFirstIterationTriggerAssignment(counter, firstIt)
	return loop, nil
}
