// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package sched

import (
	"fmt"

	"github.com/Timmmm/verilator/ast"
	"github.com/pkg/errors"
)

// invalidIndex is the sentinel for an unallocated trigger index.
const invalidIndex = ^uint32(0)

// ExtraTriggers reserves trigger indices for conditions that are not derived
// from sensitivity trees, such as the first-iteration trigger. Extra indices
// always precede the sensitivity-derived ones.
//
type ExtraTriggers struct {
	descriptions []string
}

// Allocate reserves the next index and returns it.
//
func (e *ExtraTriggers) Allocate(description string) uint32 {
	e.descriptions = append(e.descriptions, description)
	return uint32(len(e.descriptions) - 1)
}

// Size returns the number of reserved indices.
func (e *ExtraTriggers) Size() int { return len(e.descriptions) }

// Description returns the description of a reserved index.
func (e *ExtraTriggers) Description(i int) string { return e.descriptions[i] }

// A TriggerKit is the output of trigger synthesis for one region: the
// trigger vector, the function computing it, the debug dump function, and
// the map from original sensitivity trees to their trigger-indexed
// equivalents.
//
type TriggerKit struct {
	Vec  *ast.VarScope
	Func *ast.CFunc
	Dump *ast.CFunc

	// Map takes an original sensitivity tree to the single-condition tree
	// testing the corresponding trigger vector bit.
	Map map[ast.SenTreeID]ast.SenTreeID
}

// addFirstIterationTriggerAssignment makes the given trigger fire on the
// first iteration of the loop counted by counter.
//
func (tk *TriggerKit) addFirstIterationTriggerAssignment(counter *ast.VarScope, index uint32) {
	tk.Func.PrependStmts(&ast.MethodCall{
		Target: tk.Vec,
		Method: "set",
		Args: []ast.Expr{
			ast.Num(uint64(index)),
			&ast.Binary{Op: ast.OpEq, X: ast.Ref(counter), Y: ast.Num(0)},
		},
	})
}

// addForeignWriteTriggerAssignment makes the given trigger fire when the
// foreign-call interface wrote a signal since the last evaluation, and
// clears the flag so the write is consumed exactly once.
//
func (tk *TriggerKit) addForeignWriteTriggerAssignment(flag *ast.VarScope, index uint32) {
	tk.Func.PrependStmts(
		&ast.MethodCall{
			Target: tk.Vec,
			Method: "set",
			Args:   []ast.Expr{ast.Num(uint64(index)), ast.Ref(flag)},
		},
		&ast.Assign{LHS: flag, RHS: ast.Num(0)},
	)
}

// createTriggers synthesizes the trigger vector for the given sensitivity
// trees. Extra indices come first, then one index per tree in input order.
// Init statements from the expression builder land in initFunc; conditions
// that must fire at startup are queued there as explicit trigger sets.
//
func (s *Scheduler) createTriggers(initFunc *ast.CFunc, senb SenExprBuilder,
	senTrees []*ast.SenTree, name string, extras *ExtraTriggers, slow bool) (*TriggerKit, error) {

	width := extras.Size() + len(senTrees)
	vec := s.top().NewTriggerVec("__V"+name+"Triggered", width)

	funcp := s.makeSubFunction("_eval_triggers__"+name, slow)
	dumpp := s.makeSubFunction("_dump_triggers__"+name, true)
	dumpp.DebugOnly = true

	addDump := func(index uint32, text string) {
		if s.cfg.ProtectIds {
			// Identifier protection strips human readable descriptions
			// from the model; the dump function stays empty.
			return
		}
		dumpp.AddStmts(&ast.If{
			Cond: &ast.TrigTest{Vec: vec, Index: index},
			Then: []ast.Stmt{&ast.DebugPrint{
				Text: fmt.Sprintf("'%s' region trigger index %d is active: %s", name, index, text),
			}},
		})
	}
	if !s.cfg.ProtectIds {
		dumpp.AddStmts(&ast.If{
			Cond: &ast.TrigAny{Vec: vec},
			Else: []ast.Stmt{&ast.DebugPrint{
				Text: fmt.Sprintf("No '%s' region triggers active", name),
			}},
		})
	}
	for i := 0; i < extras.Size(); i++ {
		addDump(uint32(i), "@([extra] "+extras.Description(i)+")")
	}

	kit := &TriggerKit{
		Vec:  vec,
		Func: funcp,
		Dump: dumpp,
		Map:  make(map[ast.SenTreeID]ast.SenTreeID, len(senTrees)),
	}

	var initialSets []ast.Stmt
	for i, t := range senTrees {
		index := uint32(extras.Size() + i)
		if _, dup := kit.Map[t.ID]; dup {
			return nil, errors.Errorf("sensitivity tree %d listed twice for %q triggers", t.ID, name)
		}
		trigTree := s.n.Sens.Add(ast.SenItem{
			Edge: ast.EdgeTrue,
			Expr: &ast.TrigTest{Vec: vec, Index: index},
		})
		kit.Map[t.ID] = trigTree.ID

		expr, firesAtInit, err := senb.Build(t)
		if err != nil {
			return nil, errors.Wrapf(err, "synthesizing %q trigger %d", name, index)
		}
		funcp.AddStmts(&ast.MethodCall{
			Target: vec,
			Method: "set",
			Args:   []ast.Expr{ast.Num(uint64(index)), expr},
		})
		if firesAtInit || s.cfg.XInitialEdge {
			initialSets = append(initialSets, &ast.MethodCall{
				Target: vec,
				Method: "set",
				Args:   []ast.Expr{ast.Num(uint64(index)), ast.Num(1)},
			})
		}
		addDump(index, "@("+t.String()+")")
	}

	// Splice in the builder state: previous-value refreshes run before the
	// trigger expressions read them next time, so they go after; locals and
	// pre-updates go in front of everything.
	initFunc.AddStmts(senb.TakeInits()...)
	funcp.AddStmts(senb.TakePostUpdates()...)
	funcp.PrependStmts(senb.TakePreUpdates()...)
	var localDecls []ast.Stmt
	for _, v := range senb.TakeLocals() {
		localDecls = append(localDecls, &ast.LocalDecl{Var: v})
	}
	funcp.PrependStmts(localDecls...)

	if len(initialSets) > 0 {
		didInit := s.top().NewTemp("__VdidInit__"+name, 1)
		initialSets = append(initialSets, &ast.Assign{LHS: didInit, RHS: ast.Num(1)})
		funcp.AddStmts(&ast.If{
			Cond:     ast.Not(ast.Ref(didInit)),
			Then:     initialSets,
			Unlikely: true,
		})
	}

	funcp.AddStmts(&ast.Call{Func: dumpp, DebugOnly: true})
	return kit, nil
}

// createTriggerSenTree allocates a single-condition sensitivity tree testing
// one bit of a trigger vector.
//
func (s *Scheduler) createTriggerSenTree(vec *ast.VarScope, index uint32) (*ast.SenTree, error) {
	if index == invalidIndex {
		return nil, errors.New("trigger index was never allocated")
	}
	if vec.Kind != ast.KindTriggerVec {
		return nil, errors.Errorf("%s is not a trigger vector", vec.Name)
	}
	return s.n.Sens.Add(ast.SenItem{
		Edge: ast.EdgeTrue,
		Expr: &ast.TrigTest{Vec: vec, Index: index},
	}), nil
}

// An EvalKit gathers everything the assembler needs about one region: the
// trigger vector, the optional trigger compute function (later regions
// derive their triggers from act), the debug dump and the region body.
//
type EvalKit struct {
	Vec     *ast.VarScope
	Compute *ast.CFunc
	Dump    *ast.CFunc
	Func    *ast.CFunc
}
