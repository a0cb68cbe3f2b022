// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package sched

import (
	"github.com/Timmmm/verilator/ast"
	"github.com/pkg/errors"
	"github.com/voodooEntity/archivist"
)

// resumeEntry is one scheduler woken by a wait condition, with the await's
// arguments kept for the commit call.
//
type resumeEntry struct {
	sched *ast.VarScope
	args  []ast.Expr
}

// resumeRecord gathers every scheduler woken by one wait condition. The
// fragment carries the resume calls and is shared with TimingKit.lbs, so
// remapping the collection is seen here too.
//
type resumeRecord struct {
	active  *ast.Active
	entries []resumeEntry
}

// A TimingKit carries everything the scheduler needs to wake suspended
// processes: one logic fragment per distinct wait condition (ordered and
// remapped like any other act-region logic), post-update statements for
// dynamic trigger schedulers, and the sensitivity domains of every signal
// written by a suspendable process.
//
type TimingKit struct {
	lbs     LogicByScope
	records []*resumeRecord

	postUpdates []ast.Stmt

	// externalDomains lists, per signal written under suspension, the wait
	// conditions whose firing may be caused by that write.
	externalDomains map[*ast.VarScope][]ast.SenTreeID

	resumeFunc  *ast.CFunc
	resumeBuilt bool
	commitFunc  *ast.CFunc
	commitBuilt bool
}

// prepareTiming scans every procedure for suspension points before
// classification consumes the fragments. Each distinct wait condition gets
// one resume fragment; await statements lose their sensitivity reference,
// which now lives on the fragment. Signals written by suspendable processes
// are marked and their wakeup domains recorded.
//
func (s *Scheduler) prepareTiming() (*TimingKit, error) {
	tk := &TimingKit{externalDomains: make(map[*ast.VarScope][]ast.SenTreeID)}
	if !s.n.UsesTiming {
		return tk, nil
	}
	seen := make(map[ast.SenTreeID]*resumeRecord)
	type wake struct {
		sens  ast.SenTreeID
		sched *ast.VarScope
	}
	woken := make(map[wake]bool)
	var err error
	s.n.EachActive(func(sc *ast.Scope, a *ast.Active) {
		if err != nil {
			return
		}
		for _, st := range a.Logic {
			proc, ok := st.(*ast.Proc)
			if !ok {
				continue
			}
			var domains []ast.SenTreeID
			ast.WalkStmts(proc.Stmts, func(st2 ast.Stmt) {
				aw, ok := st2.(*ast.Await)
				if !ok || err != nil {
					return
				}
				if !aw.Sched.Kind.IsScheduler() {
					err = errors.Errorf("await in %s on non-scheduler variable %s", sc.Name, aw.Sched.Name)
					return
				}
				if aw.Sens == ast.NoSenTree {
					// Delay-based waits resume by time, not by trigger.
					return
				}
				rec := seen[aw.Sens]
				if rec == nil {
					rec = tk.newResume(s, aw.Sens)
					seen[aw.Sens] = rec
				}
				if w := (wake{aw.Sens, aw.Sched}); !woken[w] {
					woken[w] = true
					tk.addWake(rec, aw)
				}
				domains = append(domains, rec.active.Sens)
				aw.Sens = ast.NoSenTree
			})
			if err != nil {
				return
			}
			if proc.Suspendable && len(domains) > 0 {
				written := make(map[*ast.VarScope]bool)
				ast.WalkWrites(proc.Stmts, func(v *ast.VarScope) {
					if v.Kind != ast.KindSignal || written[v] {
						return
					}
					written[v] = true
					v.WrittenBySuspendable = true
					tk.externalDomains[v] = append(tk.externalDomains[v], domains...)
				})
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if len(tk.records) > 0 {
		s.log.Debug(archivist.DEBUG_LEVEL_INFO, "sched: timing wait conditions", len(tk.records))
	}
	return tk, err
}

// newResume creates the resume fragment for one wait condition.
//
func (tk *TimingKit) newResume(s *Scheduler, sens ast.SenTreeID) *resumeRecord {
	rec := &resumeRecord{active: &ast.Active{Sens: sens}}
	tk.lbs.Add(s.top(), rec.active)
	tk.records = append(tk.records, rec)
	return rec
}

// addWake appends one scheduler's resume call to the wait condition's
// fragment.
//
func (tk *TimingKit) addWake(rec *resumeRecord, aw *ast.Await) {
	resume := &ast.MethodCall{Target: aw.Sched, Method: "resume"}
	entry := resumeEntry{sched: aw.Sched}
	switch aw.Sched.Kind {
	case ast.KindTrigSched:
		// Trigger schedulers resume and commit with the same arguments.
		entry.args = ast.CloneExprs(aw.Args)
		resume.Args = ast.CloneExprs(aw.Args)
	case ast.KindDynSched:
		tk.postUpdates = append(tk.postUpdates,
			&ast.MethodCall{Target: aw.Sched, Method: "doPostUpdates"})
	}
	rec.active.Logic = append(rec.active.Logic, resume)
	rec.entries = append(rec.entries, entry)
}

// remapDomains translates the recorded wakeup domains through a trigger map.
//
func (tk *TimingKit) remapDomains(m map[ast.SenTreeID]ast.SenTreeID) (map[*ast.VarScope][]ast.SenTreeID, error) {
	out := make(map[*ast.VarScope][]ast.SenTreeID, len(tk.externalDomains))
	for v, ids := range tk.externalDomains {
		for _, id := range ids {
			mapped, ok := m[id]
			if !ok {
				return nil, errors.Errorf("no trigger mapping for wakeup domain of %s", v.Name)
			}
			out[v] = append(out[v], mapped)
		}
	}
	return out, nil
}

// createResume lazily builds the function resuming every suspended process
// whose wait condition fired, and returns a call to it. Returns nil when the
// design has no trigger-based waits.
//
func (tk *TimingKit) createResume(s *Scheduler) (ast.Stmt, error) {
	if !tk.resumeBuilt {
		tk.resumeBuilt = true
		if len(tk.records) == 0 {
			return nil, nil
		}
		f := s.makeSubFunction("_timing_resume", false)
		for _, rec := range tk.records {
			guard, err := s.senTreeGuard(rec.active.Sens)
			if err != nil {
				return nil, errors.Wrap(err, "building resume guard")
			}
			f.AddStmts(&ast.If{Cond: guard, Then: rec.active.TakeLogic()})
		}
		tk.resumeFunc = f
	}
	if tk.resumeFunc == nil {
		return nil, nil
	}
	return &ast.Call{Func: tk.resumeFunc}, nil
}

// createCommit lazily builds the function committing trigger schedulers
// whose wait condition did not fire this iteration, so their primed waits do
// not stay armed across iterations. Returns nil when nothing needs
// committing.
//
func (tk *TimingKit) createCommit(s *Scheduler) (ast.Stmt, error) {
	if !tk.commitBuilt {
		tk.commitBuilt = true
		var f *ast.CFunc
		for _, rec := range tk.records {
			var commits []ast.Stmt
			for _, e := range rec.entries {
				if e.sched.Kind != ast.KindTrigSched {
					continue
				}
				commits = append(commits, &ast.MethodCall{
					Target: e.sched,
					Method: "commit",
					Args:   ast.CloneExprs(e.args),
				})
			}
			if len(commits) == 0 {
				continue
			}
			guard, err := s.senTreeGuard(rec.active.Sens)
			if err != nil {
				return nil, errors.Wrap(err, "building commit guard")
			}
			if f == nil {
				f = s.makeSubFunction("_timing_commit", false)
			}
			f.AddStmts(&ast.If{Cond: ast.Not(guard), Then: commits})
		}
		tk.commitFunc = f
	}
	if tk.commitFunc == nil {
		return nil, nil
	}
	return &ast.Call{Func: tk.commitFunc}, nil
}

// senTreeGuard builds the boolean guard testing a trigger-indexed
// sensitivity tree. Only remapped (EdgeTrue) trees have a guard.
//
func (s *Scheduler) senTreeGuard(id ast.SenTreeID) (ast.Expr, error) {
	t, err := s.n.Sens.Tree(id)
	if err != nil {
		return nil, err
	}
	var terms []ast.Expr
	for _, it := range t.Items {
		if it.Edge != ast.EdgeTrue || it.Expr == nil {
			return nil, errors.Errorf("wait condition %q was never mapped to a trigger", t.String())
		}
		terms = append(terms, it.Expr.CloneExpr())
	}
	return ast.Or(terms...), nil
}
