// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package ast holds the in-memory program representation that the scheduling
stage transforms: a netlist of scopes, variables, logic fragments and
generated functions, plus an arena of sensitivity trees addressed by stable
identifiers.

Ownership is strict. A statement belongs to exactly one container (a function
body, a logic fragment, or an enclosing statement); moving logic between
containers is always a slice-to-slice transfer, never aliasing. Sensitivity
trees are shared by identifier and never mutated once published: remapping a
fragment to a new sensitivity allocates a new tree and redirects the
fragment's reference.
*/
package ast

import (
	"strings"

	"github.com/pkg/errors"
)

// VarKind describes what a variable is from the scheduler's perspective.
//
type VarKind uint8

// Variable kinds.
const (
	KindSignal     VarKind = iota // ordinary design signal or generated temporary
	KindTriggerVec                // fixed-width trigger bit vector
	KindForkSync                  // fork join synchronization handle
	KindDelaySched                // delay-based suspended-process scheduler handle
	KindTrigSched                 // trigger-based suspended-process scheduler handle
	KindDynSched                  // dynamic-trigger-based scheduler handle
)

// IsScheduler reports whether the kind is one of the suspended-process
// scheduler handles.
//
func (k VarKind) IsScheduler() bool {
	return k == KindDelaySched || k == KindTrigSched || k == KindDynSched
}

// A VarScope is a variable instantiated in a scope.
//
type VarScope struct {
	Name  string
	Scope *Scope
	Kind  VarKind
	Width int // bit width; for trigger vectors, the number of triggers

	// PrimaryIn marks top level inputs of the design.
	PrimaryIn bool
	// PublicRW marks signals the foreign-call interface may read or write
	// at any time.
	PublicRW bool
	// WrittenByForeign marks signals written through the foreign-call
	// interface.
	WrittenByForeign bool
	// WrittenBySuspendable is set by the timing coordinator on signals
	// written while a process is suspended.
	WrittenBySuspendable bool
	// ScSensitive marks top level inputs that need external sensitivity
	// registration when targeting the SystemC backend.
	ScSensitive bool
	// FuncLocal marks variables declared inside a function body.
	FuncLocal bool
	// NoReset excludes generated loop state from model reset.
	NoReset bool
}

// A Scope owns the variables, generated functions and logic fragments
// declared under one level of the design hierarchy.
//
type Scope struct {
	Name     string
	Parent   *Scope
	Vars     []*VarScope
	Funcs    []*CFunc
	Actives  []*Active
	Children []*Scope
}

// IsTop reports whether s is the top scope of the netlist.
//
func (s *Scope) IsTop() bool { return s.Parent == nil }

// NameDotless returns the scope name with hierarchy separators flattened,
// for use in generated function names.
//
func (s *Scope) NameDotless() string {
	return strings.NewReplacer(".", "__", ":", "_").Replace(s.Name)
}

// NewChild creates a child scope.
//
func (s *Scope) NewChild(name string) *Scope {
	c := &Scope{Name: name, Parent: s}
	s.Children = append(s.Children, c)
	return c
}

// NewVar creates a signal variable in s.
//
func (s *Scope) NewVar(name string, width int) *VarScope {
	v := &VarScope{Name: name, Scope: s, Kind: KindSignal, Width: width}
	s.Vars = append(s.Vars, v)
	return v
}

// NewTemp creates a generated temporary in s.
//
func (s *Scope) NewTemp(name string, width int) *VarScope {
	v := s.NewVar(name, width)
	v.NoReset = true
	return v
}

// NewTriggerVec creates a trigger vector of the given width in s.
//
func (s *Scope) NewTriggerVec(name string, width int) *VarScope {
	v := &VarScope{Name: name, Scope: s, Kind: KindTriggerVec, Width: width}
	s.Vars = append(s.Vars, v)
	return v
}

// NewTriggerVecLike creates a trigger vector with the same width as the
// given one.
//
func (s *Scope) NewTriggerVecLike(name string, like *VarScope) *VarScope {
	return s.NewTriggerVec(name, like.Width)
}

// AddFunc appends a generated function to the scope.
//
func (s *Scope) AddFunc(f *CFunc) {
	f.Scope = s
	s.Funcs = append(s.Funcs, f)
}

// Walk visits s and all scopes below it, depth first.
//
func (s *Scope) Walk(fn func(*Scope)) {
	fn(s)
	for _, c := range s.Children {
		c.Walk(fn)
	}
}

// An Active is one logic fragment: an owned statement sequence together with
// the sensitivity tree describing when it must re-run.
//
type Active struct {
	Sens  SenTreeID
	Logic []Stmt
}

// Empty reports whether the fragment has no statements.
//
func (a *Active) Empty() bool { return len(a.Logic) == 0 }

// NodeCount returns the total node count of the fragment's logic.
//
func (a *Active) NodeCount() int {
	n := 0
	for _, st := range a.Logic {
		n += st.NodeCount()
	}
	return n
}

// Clone returns a deep copy of the fragment. The sensitivity reference is
// shared (trees are immutable); the logic is copied, never aliased.
//
func (a *Active) Clone() *Active {
	c := &Active{Sens: a.Sens, Logic: make([]Stmt, 0, len(a.Logic))}
	for _, st := range a.Logic {
		c.Logic = append(c.Logic, st.CloneStmt())
	}
	return c
}

// TakeLogic drains and returns the fragment's statements, leaving it empty.
//
func (a *Active) TakeLogic() []Stmt {
	l := a.Logic
	a.Logic = nil
	return l
}

// A Netlist is the whole design under compilation.
//
type Netlist struct {
	Top  *Scope
	Sens *SenTable

	// ForeignWriteFlag, when non-nil, is the variable set by the foreign-call
	// interface whenever it writes a signal.
	ForeignWriteFlag *VarScope
	// UsesTiming is set when the design contains suspendable processes.
	UsesTiming bool

	// Eval is the synthesized top level evaluation entry point.
	Eval *CFunc
	// EvalNBA is the NBA region body function, kept for downstream passes.
	EvalNBA *CFunc
}

// NewNetlist creates an empty netlist with the given top scope name.
//
func NewNetlist(top string) *Netlist {
	return &Netlist{
		Top:  &Scope{Name: top},
		Sens: NewSenTable(),
	}
}

// EachActive visits every logic fragment in the design in scope order,
// fragments in declaration order within a scope.
//
func (n *Netlist) EachActive(fn func(*Scope, *Active)) {
	n.Top.Walk(func(s *Scope) {
		for _, a := range s.Actives {
			fn(s, a)
		}
	})
}

// DropActives removes all logic fragments from the design's scopes. Called
// once scheduling has consumed them.
//
func (n *Netlist) DropActives() {
	n.Top.Walk(func(s *Scope) { s.Actives = nil })
}

// CheckLinked verifies basic ownership invariants: every function is owned
// by the scope it names, and no statement slice is shared between two
// functions. It is used by tests and debug builds.
//
func (n *Netlist) CheckLinked() error {
	seen := make(map[*CFunc]bool)
	var err error
	n.Top.Walk(func(s *Scope) {
		for _, f := range s.Funcs {
			if f.Scope != s {
				err = errors.Errorf("function %s linked under scope %s but owned by %s",
					f.Name, s.Name, f.Scope.Name)
			}
			if seen[f] {
				err = errors.Errorf("function %s linked twice", f.Name)
			}
			seen[f] = true
		}
	})
	return err
}
