// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package sched synthesizes the evaluation loop of a compiled design. It
consumes the netlist's logic fragments and replaces them with generated
functions: one-time static/initial/settle entry points, the per-evaluation
entry point with its nested act/nba/observed/reactive convergence loops, and
the final-blocks entry point.

Change detection is compiled rather than interpreted: for every distinct
sensitivity a trigger expression is synthesized, the results are packed into
per-region trigger bit vectors, and all downstream logic is re-expressed in
terms of trigger bits. Suspendable processes are woken through the same
trigger machinery and forks are lowered to plain function spawns.
*/
package sched

import (
	"strconv"

	"github.com/Timmmm/verilator/ast"
	"github.com/Timmmm/verilator/stats"
	"github.com/pkg/errors"
	"github.com/voodooEntity/archivist"
)

// A Region identifies one materialized part of the evaluation loop.
//
type Region string

// Regions, in evaluation order.
const (
	RegionSettle    Region = "stl"
	RegionICO       Region = "ico"
	RegionAct       Region = "act"
	RegionNBA       Region = "nba"
	RegionObserved  Region = "obs"
	RegionReactive  Region = "react"
	RegionPostponed Region = "postponed"
)

// Config carries the scheduling options and collaborator hooks. The zero
// value selects the built-in defaults.
//
type Config struct {
	// ConvergeLimit bounds the iterations of every convergence loop before
	// the generated model aborts. Zero selects the default of 100.
	ConvergeLimit int
	// OutputSplitFuncs splits generated function bodies larger than this
	// node count into sub-functions. Zero disables splitting.
	OutputSplitFuncs int
	// XInitialEdge makes every edge trigger fire on the first evaluation,
	// modeling an unknown-to-known transition at startup.
	XInitialEdge bool
	// ProtectIds strips human readable descriptions from debug output.
	ProtectIds bool
	// SystemC marks inputs feeding the pre-loop for external sensitivity
	// registration.
	SystemC bool
	// Workers above one requests a parallel-schedulable nba region body.
	Workers int

	// Log receives progress and warnings. Nil selects a default logger at
	// warning level.
	Log *archivist.Archivist
	// Stats, when non-nil, receives size counters per logic class and
	// generated region.
	Stats *stats.Recorder

	// SenExpr builds trigger expressions. Nil selects EdgeDetectBuilder.
	SenExpr SenExprBuilder
	// Order, BreakCycles, Partition and Replicate are the analysis
	// collaborators. Nil fields select the built-in defaults.
	Order       OrderFn
	BreakCycles BreakCyclesFn
	Partition   PartitionFn
	Replicate   ReplicateFn
}

// A Result reports what scheduling produced.
//
type Result struct {
	// Eval is the per-evaluation entry point, also stored on the netlist.
	Eval *ast.CFunc
	// EvalNBA is the nba region body, kept for downstream passes.
	EvalNBA *ast.CFunc
	// Regions lists the regions that were materialized, in evaluation
	// order.
	Regions []Region
}

// Scheduler is the state of one scheduling run.
//
type Scheduler struct {
	n    *ast.Netlist
	cfg  Config
	log  *archivist.Archivist
	senb SenExprBuilder

	regions []Region
}

// Schedule synthesizes the evaluation loop of the design. On return the
// netlist holds no logic fragments; all behavior lives in generated
// functions.
//
func Schedule(n *ast.Netlist, cfg Config) (*Result, error) {
	if cfg.ConvergeLimit <= 0 {
		cfg.ConvergeLimit = 100
	}
	if cfg.Log == nil {
		cfg.Log = archivist.New(&archivist.Config{LogLevel: archivist.LEVEL_WARNING})
	}
	if cfg.SenExpr == nil {
		cfg.SenExpr = NewEdgeDetectBuilder(n.Top)
	}
	if cfg.Order == nil {
		cfg.Order = DefaultOrder
	}
	if cfg.BreakCycles == nil {
		cfg.BreakCycles = DefaultBreakCycles
	}
	if cfg.Partition == nil {
		cfg.Partition = DefaultPartition
	}
	if cfg.Replicate == nil {
		cfg.Replicate = DefaultReplicate
	}
	s := &Scheduler{n: n, cfg: cfg, log: cfg.Log, senb: cfg.SenExpr}
	return s.run()
}

func (s *Scheduler) run() (*Result, error) {
	s.stage("sched-timing")
	tk, err := s.prepareTiming()
	if err != nil {
		return nil, err
	}

	s.stage("sched-gather")
	lc, err := s.gatherLogicClasses()
	if err != nil {
		return nil, err
	}
	s.addSizeStat("static", lc.Static)
	s.addSizeStat("initial", lc.Initial)
	s.addSizeStat("final", lc.Final)
	s.addSizeStat("combinational", lc.Comb)
	s.addSizeStat("clocked", lc.Clocked)
	s.addSizeStat("postponed", lc.Postponed)
	s.addSizeStat("observed", lc.Observed)
	s.addSizeStat("reactive", lc.Reactive)
	s.log.Debug(archivist.DEBUG_LEVEL_DETAIL, "sched: classified logic",
		len(lc.Static), len(lc.Initial), len(lc.Final), len(lc.Comb),
		len(lc.Clocked), len(lc.Postponed), len(lc.Observed), len(lc.Reactive))

	s.stage("sched-entry-points")
	s.createStatic(lc)
	initp := s.createInitial(lc)
	s.createFinal(lc)
	postponed := s.createPostponed(lc)

	s.stage("sched-break-cycles")
	lc.Hybrid, err = s.cfg.BreakCycles(s.n, &lc.Comb)
	if err != nil {
		return nil, err
	}
	s.addSizeStat("hybrid", lc.Hybrid)

	s.stage("sched-settle")
	settled, err := s.createSettle(initp, lc)
	if err != nil {
		return nil, err
	}
	if settled {
		s.regions = append(s.regions, RegionSettle)
	}

	s.stage("sched-partition")
	regions, err := s.cfg.Partition(s.n, &lc.Clocked, &lc.Comb, &lc.Hybrid)
	if err != nil {
		return nil, err
	}
	s.addSizeStat("region pre", regions.Pre)
	s.addSizeStat("region act", regions.Act)
	s.addSizeStat("region nba", regions.Nba)

	replicas, err := s.cfg.Replicate(s.n, &regions)
	if err != nil {
		return nil, err
	}
	s.addSizeStat("replicas ico", replicas.Ico)

	s.stage("sched-ico")
	icoLoop, err := s.createInputCombLoop(initp, &replicas.Ico)
	if err != nil {
		return nil, err
	}
	if icoLoop != nil {
		s.regions = append(s.regions, RegionICO)
	}

	s.stage("sched-act")
	extras := &ExtraTriggers{}
	fwIdx := invalidIndex
	if s.n.ForeignWriteFlag != nil {
		fwIdx = extras.Allocate("foreign-call write")
	}
	senTrees := s.senTreesUsedBy(&regions.Pre, &regions.Act, &regions.Nba,
		&lc.Observed, &lc.Reactive, &tk.lbs)
	actTrig, err := s.createTriggers(initp, s.senb, senTrees, "act", extras, false)
	if err != nil {
		return nil, err
	}
	if len(tk.postUpdates) > 0 {
		actTrig.Func.AddStmts(tk.postUpdates...)
		tk.postUpdates = nil
	}
	if s.n.ForeignWriteFlag != nil {
		actTrig.addForeignWriteTriggerAssignment(s.n.ForeignWriteFlag, fwIdx)
	}

	// Pre logic must see only triggers that are new this round, so it gets
	// its own vector masked against the accumulated nba triggers.
	preVec := s.top().NewTriggerVecLike("__VpreTriggered", actTrig.Vec)
	preMap, err := s.cloneMapWithNewTriggerReferences(actTrig.Map, preVec)
	if err != nil {
		return nil, err
	}
	if err := s.remapSensitivities(regions.Pre, preMap); err != nil {
		return nil, err
	}
	if err := s.remapSensitivities(regions.Act, actTrig.Map); err != nil {
		return nil, err
	}
	if err := s.remapSensitivities(replicas.Act, actTrig.Map); err != nil {
		return nil, err
	}
	if err := s.remapSensitivities(tk.lbs, actTrig.Map); err != nil {
		return nil, err
	}
	actDomains, err := tk.remapDomains(actTrig.Map)
	if err != nil {
		return nil, err
	}
	var actForeign *ast.SenTree
	if s.n.ForeignWriteFlag != nil {
		actForeign, err = s.createTriggerSenTree(actTrig.Vec, fwIdx)
		if err != nil {
			return nil, err
		}
	}
	trigToSen := invertTriggerMaps(preMap, actTrig.Map)
	actFunc, err := s.cfg.Order(s.n,
		[]*LogicByScope{&regions.Pre, &regions.Act, &replicas.Act},
		trigToSen, "act", false, false,
		func(v *ast.VarScope) []ast.SenTreeID {
			out := append([]ast.SenTreeID(nil), actDomains[v]...)
			if v.WrittenByForeign && actForeign != nil {
				out = append(out, actForeign.ID)
			}
			return out
		})
	if err != nil {
		return nil, err
	}
	s.splitCheck(actFunc)
	actKit := EvalKit{Vec: actTrig.Vec, Compute: actTrig.Func, Dump: actTrig.Dump, Func: actFunc}
	s.regions = append(s.regions, RegionAct)

	s.stage("sched-nba")
	nbaKit, err := s.orderRegion("nba", []*LogicByScope{&regions.Nba, &replicas.Nba},
		actTrig, tk, fwIdx, s.cfg.Workers > 1)
	if err != nil {
		return nil, err
	}
	s.splitCheck(nbaKit.Func)
	s.n.EvalNBA = nbaKit.Func
	s.regions = append(s.regions, RegionNBA)

	var obsKit, reactKit EvalKit
	if !lc.Observed.Empty() {
		s.stage("sched-obs")
		obsKit, err = s.orderRegion("obs", []*LogicByScope{&lc.Observed}, actTrig, tk, fwIdx, false)
		if err != nil {
			return nil, err
		}
		s.splitCheck(obsKit.Func)
		s.regions = append(s.regions, RegionObserved)
	}
	if !lc.Reactive.Empty() {
		s.stage("sched-react")
		reactKit, err = s.orderRegion("react", []*LogicByScope{&lc.Reactive}, actTrig, tk, fwIdx, false)
		if err != nil {
			return nil, err
		}
		s.splitCheck(reactKit.Func)
		s.regions = append(s.regions, RegionReactive)
	}
	if postponed != nil {
		s.regions = append(s.regions, RegionPostponed)
	}

	s.stage("sched-assemble")
	if err := s.createEval(icoLoop, actKit, preVec, nbaKit, obsKit, reactKit, postponed, tk); err != nil {
		return nil, err
	}

	s.stage("sched-forks")
	s.transformForks()
	s.splitCheck(initp)

	// The flag has been compiled into triggers; nothing may test it
	// directly anymore.
	s.n.ForeignWriteFlag = nil

	s.log.Debug(archivist.DEBUG_LEVEL_TRACE, "sched: done, regions", len(s.regions))
	return &Result{Eval: s.n.Eval, EvalNBA: s.n.EvalNBA, Regions: s.regions}, nil
}

// top returns the top scope of the netlist.
func (s *Scheduler) top() *ast.Scope { return s.n.Top }

// makeSubFunction creates a function in the top scope.
//
func (s *Scheduler) makeSubFunction(name string, slow bool) *ast.CFunc {
	f := &ast.CFunc{Name: name, Slow: slow}
	s.top().AddFunc(f)
	return f
}

// makeTopFunction creates an externally callable entry point.
//
func (s *Scheduler) makeTopFunction(name string, slow bool) *ast.CFunc {
	f := s.makeSubFunction(name, slow)
	f.Entry = true
	return f
}

// splitCheck splits an oversized function body into numbered sub-functions
// called in order, preserving statement order. Statements are moved whole;
// a single statement larger than the limit gets its own sub-function.
//
func (s *Scheduler) splitCheck(f *ast.CFunc) {
	limit := s.cfg.OutputSplitFuncs
	if limit <= 0 || len(f.Stmts) == 0 || f.NodeCount() <= limit {
		return
	}
	stmts := f.TakeStmts()
	var sub *ast.CFunc
	num, count := 0, 0
	for _, st := range stmts {
		n := st.NodeCount()
		if sub == nil || count+n > limit {
			sub = &ast.CFunc{Name: f.Name + "__" + strconv.Itoa(num), Slow: f.Slow, DebugOnly: f.DebugOnly}
			num++
			f.Scope.AddFunc(sub)
			f.AddStmts(&ast.Call{Func: sub})
			count = 0
		}
		sub.AddStmts(st)
		count += n
	}
}

// senTreesUsedBy returns the distinct clocked and hybrid sensitivity trees
// referenced by the given collections, in first-use order.
//
func (s *Scheduler) senTreesUsedBy(lbsps ...*LogicByScope) []*ast.SenTree {
	seen := make(map[ast.SenTreeID]bool)
	var out []*ast.SenTree
	for _, lbs := range lbsps {
		for _, p := range *lbs {
			t := s.n.Sens.MustTree(p.Active.Sens)
			if !t.HasClocked() && !t.HasHybrid() {
				continue
			}
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
		}
	}
	return out
}

// remapSensitivities redirects every non-combinational fragment to the
// trigger-indexed equivalent of its sensitivity tree.
//
func (s *Scheduler) remapSensitivities(lbs LogicByScope, m map[ast.SenTreeID]ast.SenTreeID) error {
	for _, p := range lbs {
		t, err := s.n.Sens.Tree(p.Active.Sens)
		if err != nil {
			return err
		}
		if t.HasCombo() {
			continue
		}
		mapped, ok := m[p.Active.Sens]
		if !ok {
			return errors.Errorf("no trigger mapping for sensitivity %q", t.String())
		}
		p.Active.Sens = mapped
	}
	return nil
}

// cloneMapWithNewTriggerReferences rebuilds a trigger map against another
// vector of the same shape: same indices, different storage.
//
func (s *Scheduler) cloneMapWithNewTriggerReferences(m map[ast.SenTreeID]ast.SenTreeID,
	vec *ast.VarScope) (map[ast.SenTreeID]ast.SenTreeID, error) {

	out := make(map[ast.SenTreeID]ast.SenTreeID, len(m))
	for orig, trig := range m {
		t, err := s.n.Sens.Tree(trig)
		if err != nil {
			return nil, err
		}
		if len(t.Items) != 1 {
			return nil, errors.Errorf("tree %q is not trigger-indexed", t.String())
		}
		tt, ok := t.Items[0].Expr.(*ast.TrigTest)
		if !ok {
			return nil, errors.Errorf("tree %q is not trigger-indexed", t.String())
		}
		nt := s.n.Sens.Add(ast.SenItem{
			Edge: ast.EdgeTrue,
			Expr: &ast.TrigTest{Vec: vec, Index: tt.Index},
		})
		out[orig] = nt.ID
	}
	return out, nil
}

// invertTriggerMaps merges the given maps and inverts them, yielding the
// trigger-indexed tree to original tree direction the ordering collaborator
// wants.
//
func invertTriggerMaps(maps ...map[ast.SenTreeID]ast.SenTreeID) map[ast.SenTreeID]ast.SenTreeID {
	out := make(map[ast.SenTreeID]ast.SenTreeID)
	for _, m := range maps {
		for orig, trig := range m {
			out[trig] = orig
		}
	}
	return out
}

// warn logs a non-fatal diagnostic.
//
func (s *Scheduler) warn(format string, args ...interface{}) {
	s.log.WarningF(format, args...)
}

func (s *Scheduler) stage(name string) {
	if s.cfg.Stats != nil {
		s.cfg.Stats.Stage(name)
	}
	s.log.Debug(archivist.DEBUG_LEVEL_TRACE, "sched: "+name)
}

func (s *Scheduler) addSizeStat(class string, lbs LogicByScope) {
	if s.cfg.Stats == nil {
		return
	}
	s.cfg.Stats.Add("Scheduling, size of class: "+class, uint64(lbs.NodeCount()))
}
