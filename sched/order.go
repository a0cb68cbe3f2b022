// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package sched

import (
	"github.com/Timmmm/verilator/ast"
)

// A Pair is one logic fragment together with its originating scope.
//
type Pair struct {
	Scope  *ast.Scope
	Active *ast.Active
}

// LogicByScope is an ordered collection of logic fragments. Fragments are
// owned by exactly one collection at a time; collections are consumed
// (drained) by the stages that use them.
//
type LogicByScope []Pair

// Add appends a fragment.
//
func (lbs *LogicByScope) Add(s *ast.Scope, a *ast.Active) {
	*lbs = append(*lbs, Pair{Scope: s, Active: a})
}

// Empty reports whether the collection holds no fragments.
//
func (lbs LogicByScope) Empty() bool { return len(lbs) == 0 }

// Clone deep-copies every fragment. Used where a stage needs a private copy
// because a later stage will consume the original.
//
func (lbs LogicByScope) Clone() LogicByScope {
	c := make(LogicByScope, 0, len(lbs))
	for _, p := range lbs {
		c = append(c, Pair{Scope: p.Scope, Active: p.Active.Clone()})
	}
	return c
}

// EachLogic visits every statement of every fragment.
//
func (lbs LogicByScope) EachLogic(fn func(ast.Stmt)) {
	for _, p := range lbs {
		for _, st := range p.Active.Logic {
			fn(st)
		}
	}
}

// NodeCount returns the total node count across all fragments.
//
func (lbs LogicByScope) NodeCount() int {
	n := 0
	for _, p := range lbs {
		n += p.Active.NodeCount()
	}
	return n
}

// LogicRegions is the output of the partitioner: clocked and combinational
// logic split into the pre/act/nba regions.
//
type LogicRegions struct {
	Pre LogicByScope
	Act LogicByScope
	Nba LogicByScope
}

// LogicReplicas is the output of the replicator: combinational logic
// duplicated into the regions that need independently computed copies.
//
type LogicReplicas struct {
	Ico LogicByScope
	Act LogicByScope
	Nba LogicByScope
}

// ExtraSenFn supplies additional always-relevant sensitivities for a signal
// written by the logic being ordered. The ordering collaborator calls it
// once per written signal.
//
type ExtraSenFn func(v *ast.VarScope) []ast.SenTreeID

// OrderFn total-orders the given fragments per dependency and sensitivity
// and returns a ready-to-call function containing the ordered logic. The
// fragments are consumed. trigToSen maps trigger-indexed sensitivity trees
// back to the original trees, for dependency computation. parallel requests
// a parallel-schedulable form; settleLike marks the one-time settle
// ordering.
//
type OrderFn func(n *ast.Netlist, logic []*LogicByScope, trigToSen map[ast.SenTreeID]ast.SenTreeID,
	tag string, parallel, settleLike bool, extra ExtraSenFn) (*ast.CFunc, error)

// BreakCyclesFn removes feedback-causing fragments from the combinational
// collection and returns them reclassified as hybrid.
//
type BreakCyclesFn func(n *ast.Netlist, comb *LogicByScope) (LogicByScope, error)

// PartitionFn splits the clocked and combinational (including hybrid) logic
// into the pre/act/nba regions. The inputs are consumed.
//
type PartitionFn func(n *ast.Netlist, clocked, comb, hybrid *LogicByScope) (LogicRegions, error)

// ReplicateFn duplicates combinational logic into the regions that need
// independently computed copies.
//
type ReplicateFn func(n *ast.Netlist, regions *LogicRegions) (LogicReplicas, error)

// DefaultOrder is the fallback ordering collaborator: it emits fragments in
// input order. It honors the OrderFn contract (consuming the fragments and
// querying the extra-sensitivity callback) but performs no dependency
// analysis; the enclosing compiler is expected to plug in the real
// algorithm.
//
func DefaultOrder(n *ast.Netlist, logic []*LogicByScope, trigToSen map[ast.SenTreeID]ast.SenTreeID,
	tag string, parallel, settleLike bool, extra ExtraSenFn) (*ast.CFunc, error) {
	f := &ast.CFunc{Name: "_eval_" + tag, Slow: settleLike}
	n.Top.AddFunc(f)
	for _, lbs := range logic {
		for _, p := range *lbs {
			if extra != nil {
				ast.WalkWrites(p.Active.Logic, func(v *ast.VarScope) { _ = extra(v) })
			}
			for _, st := range p.Active.TakeLogic() {
				if proc, ok := st.(*ast.Proc); ok {
					body := proc.Stmts
					proc.Stmts = nil
					f.AddStmts(body...)
				} else {
					f.AddStmts(st)
				}
			}
		}
		*lbs = nil
	}
	return f, nil
}

// DefaultBreakCycles assumes no combinational feedback and returns no
// hybrid logic.
//
func DefaultBreakCycles(n *ast.Netlist, comb *LogicByScope) (LogicByScope, error) {
	return nil, nil
}

// DefaultPartition places combinational and hybrid logic in the act region
// and clocked logic in the nba region, leaving pre empty.
//
func DefaultPartition(n *ast.Netlist, clocked, comb, hybrid *LogicByScope) (LogicRegions, error) {
	var r LogicRegions
	r.Act = append(r.Act, *comb...)
	r.Act = append(r.Act, *hybrid...)
	r.Nba = append(r.Nba, *clocked...)
	*clocked, *comb, *hybrid = nil, nil, nil
	return r, nil
}

// DefaultReplicate copies combinational act-region fragments that read top
// level inputs or foreign-interface signals into the input-combinational
// region. Act and nba need no replicas under DefaultPartition.
//
func DefaultReplicate(n *ast.Netlist, regions *LogicRegions) (LogicReplicas, error) {
	var r LogicReplicas
	for _, p := range regions.Act {
		t, err := n.Sens.Tree(p.Active.Sens)
		if err != nil {
			return r, err
		}
		if !t.HasCombo() && !t.HasHybrid() {
			continue
		}
		inputFed := false
		ast.WalkReads(p.Active.Logic, func(v *ast.VarScope) {
			if v.PrimaryIn || v.PublicRW || v.WrittenByForeign {
				inputFed = true
			}
		})
		if inputFed {
			r.Ico.Add(p.Scope, p.Active.Clone())
		}
	}
	return r, nil
}
