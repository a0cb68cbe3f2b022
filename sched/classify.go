// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package sched

import (
	"strconv"

	"github.com/Timmmm/verilator/ast"
	"github.com/pkg/errors"
)

// LogicClasses is the result of classification: every logic fragment of the
// design, sorted into exactly one class by its sensitivity kind.
//
type LogicClasses struct {
	Static  LogicByScope
	Initial LogicByScope
	Final   LogicByScope

	Comb   LogicByScope
	Clocked LogicByScope
	Hybrid  LogicByScope

	Postponed LogicByScope
	Observed  LogicByScope
	Reactive  LogicByScope
}

// gatherLogicClasses consumes every logic fragment of the netlist and
// assigns each to exactly one class. Empty fragments are discarded.
//
func (s *Scheduler) gatherLogicClasses() (*LogicClasses, error) {
	lc := &LogicClasses{}
	var err error
	s.n.EachActive(func(sc *ast.Scope, a *ast.Active) {
		if err != nil {
			return
		}
		if a.Empty() {
			return
		}
		t, terr := s.n.Sens.Tree(a.Sens)
		if terr != nil {
			err = terr
			return
		}
		switch {
		case t.HasStatic():
			if t.Multi() {
				err = errors.Errorf("static initializer in %s with additional sensitivities: %q",
					sc.Name, t.String())
				return
			}
			lc.Static.Add(sc, a)
		case t.HasInitial():
			if t.Multi() {
				err = errors.Errorf("initial block in %s with additional sensitivities: %q",
					sc.Name, t.String())
				return
			}
			lc.Initial.Add(sc, a)
		case t.HasFinal():
			if t.Multi() {
				err = errors.Errorf("final block in %s with additional sensitivities: %q",
					sc.Name, t.String())
				return
			}
			lc.Final.Add(sc, a)
		case t.HasCombo():
			if t.Multi() {
				err = errors.Errorf("combinational logic in %s with additional sensitivities: %q",
					sc.Name, t.String())
				return
			}
			if kindOf(a) == ast.ProcPostponed {
				lc.Postponed.Add(sc, a)
			} else {
				lc.Comb.Add(sc, a)
			}
		case t.HasClocked() || t.HasHybrid():
			switch kindOf(a) {
			case ast.ProcObserved:
				lc.Observed.Add(sc, a)
			case ast.ProcReactive:
				lc.Reactive.Add(sc, a)
			default:
				lc.Clocked.Add(sc, a)
			}
		default:
			err = errors.Errorf("logic fragment in %s with unrecognized sensitivity: %q",
				sc.Name, t.String())
		}
	})
	s.n.DropActives()
	return lc, err
}

// kindOf returns the procedure kind of a single-procedure fragment, or
// ProcAlways when the fragment is not a procedure.
//
func kindOf(a *ast.Active) ast.ProcKind {
	if len(a.Logic) == 1 {
		if p, ok := a.Logic[0].(*ast.Proc); ok {
			return p.Kind
		}
	}
	return ast.ProcAlways
}

// orderSequentially emits the fragments into funcp in input order, creating
// one per-scope sub-function called from funcp. Suspendable procedures each
// get a dedicated resumable function; an always-style suspendable body is
// wrapped in an endless loop so it re-arms after every resume.
//
func (s *Scheduler) orderSequentially(funcp *ast.CFunc, lbs LogicByScope) {
	subFor := make(map[*ast.Scope]*ast.CFunc)
	counter := make(map[*ast.Scope]int)
	newSub := func(sc *ast.Scope) *ast.CFunc {
		sub := &ast.CFunc{Name: funcp.Name + "__" + sc.NameDotless(), Slow: funcp.Slow}
		sc.AddFunc(sub)
		funcp.AddStmts(&ast.Call{Func: sub})
		return sub
	}
	for _, p := range lbs {
		sc := p.Scope
		if subFor[sc] == nil {
			subFor[sc] = newSub(sc)
		}
		for _, st := range p.Active.TakeLogic() {
			proc, ok := st.(*ast.Proc)
			if !ok {
				subFor[sc].AddStmts(st)
				continue
			}
			body := proc.Stmts
			proc.Stmts = nil
			if len(body) == 0 {
				continue
			}
			if !proc.Suspendable {
				subFor[sc].AddStmts(body...)
				continue
			}
			// A suspendable body may outlive the call, so the enclosing
			// function loses its slow-path standing and the body moves to
			// its own resumable function.
			funcp.Slow = false
			sub := newSub(sc)
			sub.Name += "__" + strconv.Itoa(counter[sc])
			counter[sc]++
			sub.Coroutine = true
			if proc.Kind == ast.ProcAlways {
				sub.Slow = false
				body = []ast.Stmt{&ast.While{Cond: ast.Num(1), Body: body}}
			}
			sub.AddStmts(body...)
		}
	}
}

// createStatic emits the static initializers into a new entry point.
//
func (s *Scheduler) createStatic(lc *LogicClasses) *ast.CFunc {
	f := s.makeTopFunction("_eval_static", true)
	s.orderSequentially(f, lc.Static)
	lc.Static = nil
	return f
}

// createInitial emits the initial blocks into a new entry point and returns
// it; trigger initialization is appended to it later.
//
func (s *Scheduler) createInitial(lc *LogicClasses) *ast.CFunc {
	f := s.makeTopFunction("_eval_initial", true)
	s.orderSequentially(f, lc.Initial)
	lc.Initial = nil
	return f
}

// createFinal emits the final blocks into a new entry point.
//
func (s *Scheduler) createFinal(lc *LogicClasses) *ast.CFunc {
	f := s.makeTopFunction("_eval_final", true)
	s.orderSequentially(f, lc.Final)
	lc.Final = nil
	return f
}

// createPostponed emits postponed logic into its own function, or returns
// nil when the design has none.
//
func (s *Scheduler) createPostponed(lc *LogicClasses) *ast.CFunc {
	if lc.Postponed.Empty() {
		return nil
	}
	f := s.makeTopFunction("_eval_postponed", true)
	s.orderSequentially(f, lc.Postponed)
	lc.Postponed = nil
	return f
}
