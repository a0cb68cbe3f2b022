// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package sched

import (
	"github.com/Timmmm/verilator/ast"
	"github.com/pkg/errors"
)

// buildLoop emits the canonical repeat-until-no-progress shape: a continue
// flag set before the loop, cleared at the top of every iteration, and
// re-set by the body when another pass is needed.
//
func (s *Scheduler) buildLoop(tag string, build func(cont *ast.VarScope, body *[]ast.Stmt)) []ast.Stmt {
	cont := s.top().NewTemp("__V"+tag+"Continue", 1)
	loop := &ast.While{Cond: ast.Ref(cont)}
	loop.Body = append(loop.Body, &ast.Assign{LHS: cont, RHS: ast.Num(0)})
	build(cont, &loop.Body)
	return []ast.Stmt{
		&ast.Assign{LHS: cont, RHS: ast.Num(1)},
		loop,
	}
}

// makeEvalLoop builds a convergence loop around a trigger vector: compute
// the triggers, and while any fired, check the iteration bound, run the
// body, repeat. It returns the iteration counter (so first-iteration
// triggers can test it) and the loop statements.
//
// tag is the short region tag used in generated names; name is the human
// readable region name used in the non-convergence diagnostic.
//
func (s *Scheduler) makeEvalLoop(tag, name string, trigVec *ast.VarScope, trigDump *ast.CFunc,
	computeTriggers func() []ast.Stmt, makeBody func() []ast.Stmt) (*ast.VarScope, []ast.Stmt, error) {

	if trigVec.Kind != ast.KindTriggerVec {
		return nil, nil, errors.Errorf("%q loop: %s is not a trigger vector", tag, trigVec.Name)
	}
	counter := s.top().NewTemp("__V"+tag+"IterCount", 32)

	stmts := []ast.Stmt{&ast.Assign{LHS: counter, RHS: ast.Num(0)}}
	stmts = append(stmts, s.buildLoop(tag, func(cont *ast.VarScope, body *[]ast.Stmt) {
		*body = append(*body, computeTriggers()...)

		fail := &ast.If{
			Cond: &ast.Binary{
				Op: ast.OpGt,
				X:  ast.Ref(counter),
				Y:  ast.Num(uint64(s.cfg.ConvergeLimit)),
			},
			Unlikely: true,
		}
		if trigDump != nil {
			fail.Then = append(fail.Then, &ast.Call{Func: trigDump, DebugOnly: true})
		}
		fail.Then = append(fail.Then, &ast.Fatal{Msg: name + " region did not converge."})

		fired := &ast.If{Cond: &ast.TrigAny{Vec: trigVec}}
		fired.Then = append(fired.Then,
			&ast.Assign{LHS: cont, RHS: ast.Num(1)},
			fail,
			&ast.Assign{LHS: counter, RHS: &ast.Binary{
				Op: ast.OpAdd,
				X:  ast.Ref(counter),
				Y:  ast.Num(1),
			}},
		)
		fired.Then = append(fired.Then, makeBody()...)
		*body = append(*body, fired)
	})...)
	return counter, stmts, nil
}
