// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package sched

import (
	"strings"

	"github.com/Timmmm/verilator/ast"
	"github.com/pkg/errors"
)

// orderRegion builds one act-derived region: a trigger vector of the same
// shape as act (filled by the enclosing region via thisOr, never computed
// directly), the remapped logic ordered into a body function, and a dump
// function relabeled from act's.
//
func (s *Scheduler) orderRegion(name string, logic []*LogicByScope, actTrig *TriggerKit,
	tk *TimingKit, foreignWriteIdx uint32, parallel bool) (EvalKit, error) {

	vec := s.top().NewTriggerVecLike("__V"+name+"Triggered", actTrig.Vec)
	m, err := s.cloneMapWithNewTriggerReferences(actTrig.Map, vec)
	if err != nil {
		return EvalKit{}, err
	}
	for _, lbs := range logic {
		if err := s.remapSensitivities(*lbs, m); err != nil {
			return EvalKit{}, err
		}
	}
	trigToSen := invertTriggerMaps(m)

	var foreignWrite *ast.SenTree
	if s.n.ForeignWriteFlag != nil {
		foreignWrite, err = s.createTriggerSenTree(vec, foreignWriteIdx)
		if err != nil {
			return EvalKit{}, err
		}
	}
	domains, err := tk.remapDomains(m)
	if err != nil {
		return EvalKit{}, err
	}

	funcp, err := s.cfg.Order(s.n, logic, trigToSen, name, parallel, false,
		func(v *ast.VarScope) []ast.SenTreeID {
			out := append([]ast.SenTreeID(nil), domains[v]...)
			if v.WrittenByForeign && foreignWrite != nil {
				out = append(out, foreignWrite.ID)
			}
			return out
		})
	if err != nil {
		return EvalKit{}, err
	}

	dump := s.relabelDump(actTrig, name, vec)
	return EvalKit{Vec: vec, Dump: dump, Func: funcp}, nil
}

// relabelDump clones the act dump function for a derived region, retargeting
// the trigger vector and the region name in the diagnostic text.
//
func (s *Scheduler) relabelDump(actTrig *TriggerKit, name string, vec *ast.VarScope) *ast.CFunc {
	dump := &ast.CFunc{
		Name:      "_dump_triggers__" + name,
		Slow:      true,
		DebugOnly: true,
		Stmts:     ast.CloneStmts(actTrig.Dump.Stmts),
	}
	s.top().AddFunc(dump)
	ast.RewriteVars(dump.Stmts, func(v *ast.VarScope) *ast.VarScope {
		if v == actTrig.Vec {
			return vec
		}
		return v
	})
	ast.WalkStmts(dump.Stmts, func(st ast.Stmt) {
		if p, ok := st.(*ast.DebugPrint); ok {
			p.Text = strings.ReplaceAll(p.Text, "'act'", "'"+name+"'")
		}
	})
	return dump
}

// createEval assembles the top level evaluation entry point: the
// input-combinational pre-loop followed by the nested region loops. Each
// outer region clears its trigger vector, re-evaluates the inner region to
// convergence, and runs its own body on the triggers the inner pass
// accumulated into it.
//
func (s *Scheduler) createEval(icoLoop []ast.Stmt, act EvalKit, preVec *ast.VarScope,
	nba, obs, react EvalKit, postponed *ast.CFunc, tk *TimingKit) error {

	if act.Compute == nil {
		return errors.New("act region has no trigger compute function")
	}
	funcp := s.makeTopFunction("_eval", false)
	s.n.Eval = funcp
	funcp.AddStmts(icoLoop...)

	var firstErr error
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	// Innermost: compute act triggers (committing unfired waits), then run
	// pre logic masked to new-this-round triggers, resume woken processes
	// and evaluate the act body. Fired triggers accumulate into nba.
	_, actLoop, err := s.makeEvalLoop("act", "Active", act.Vec, act.Dump,
		func() []ast.Stmt {
			out := []ast.Stmt{&ast.Call{Func: act.Compute}}
			if c, err := tk.createCommit(s); err != nil {
				fail(err)
			} else if c != nil {
				out = append(out, c)
			}
			return out
		},
		func() []ast.Stmt {
			out := []ast.Stmt{
				&ast.MethodCall{
					Target: preVec,
					Method: "andNot",
					Args:   []ast.Expr{ast.Ref(act.Vec), ast.Ref(nba.Vec)},
				},
				&ast.MethodCall{
					Target: nba.Vec,
					Method: "thisOr",
					Args:   []ast.Expr{ast.Ref(act.Vec)},
				},
			}
			if r, err := tk.createResume(s); err != nil {
				fail(err)
			} else if r != nil {
				out = append(out, r)
			}
			out = append(out, &ast.Call{Func: act.Func})
			return out
		})
	if err != nil {
		return err
	}
	if firstErr != nil {
		return firstErr
	}

	// Each outer region wraps the next inner one the same way.
	wrap := func(tag, name string, kit EvalKit, inner []ast.Stmt, outer *EvalKit) ([]ast.Stmt, error) {
		_, loop, err := s.makeEvalLoop(tag, name, kit.Vec, kit.Dump,
			func() []ast.Stmt {
				out := []ast.Stmt{&ast.MethodCall{Target: kit.Vec, Method: "clear"}}
				out = append(out, inner...)
				return out
			},
			func() []ast.Stmt {
				var out []ast.Stmt
				if outer != nil {
					out = append(out, &ast.MethodCall{
						Target: outer.Vec,
						Method: "thisOr",
						Args:   []ast.Expr{ast.Ref(kit.Vec)},
					})
				}
				out = append(out, &ast.Call{Func: kit.Func})
				return out
			})
		return loop, err
	}

	var nbaOuter *EvalKit
	if obs.Func != nil {
		nbaOuter = &obs
	} else if react.Func != nil {
		nbaOuter = &react
	}
	top, err := wrap("nba", "NBA", nba, actLoop, nbaOuter)
	if err != nil {
		return err
	}
	if obs.Func != nil {
		var obsOuter *EvalKit
		if react.Func != nil {
			obsOuter = &react
		}
		top, err = wrap("obs", "Observed", obs, top, obsOuter)
		if err != nil {
			return err
		}
	}
	if react.Func != nil {
		top, err = wrap("react", "Reactive", react, top, nil)
		if err != nil {
			return err
		}
	}

	funcp.AddStmts(top...)
	if postponed != nil {
		funcp.AddStmts(&ast.Call{Func: postponed})
	}
	return nil
}
