// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package ast

// A Stmt is one node of a generated statement sequence. Statements are
// values held in ordered slices owned by exactly one container at a time.
//
type Stmt interface {
	CloneStmt() Stmt
	NodeCount() int
	isStmt()
}

// Assign writes a variable.
type Assign struct {
	LHS *VarScope
	RHS Expr
}

// LocalDecl declares a function-local variable at this point of the body.
type LocalDecl struct {
	Var *VarScope
}

// If is a conditional with an optional else branch.
type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
	// Unlikely hints the branch predictor that Then is rarely taken.
	Unlikely bool
}

// While is a pre-tested loop.
type While struct {
	Cond Expr
	Body []Stmt
}

// Call invokes a generated function. DebugOnly calls are emitted only in
// debug builds of the model.
type Call struct {
	Func      *CFunc
	Args      []Expr
	DebugOnly bool
}

// MethodCall invokes an intrinsic operation on a variable: trigger vector
// set/clear/thisOr/andNot, or scheduler resume/commit/doPostUpdates.
type MethodCall struct {
	Target *VarScope
	Method string
	Args   []Expr
}

// DebugPrint emits a diagnostic line in debug builds of the model.
type DebugPrint struct {
	Text string
}

// Fatal aborts the simulation with a message. Used for non-convergence.
type Fatal struct {
	Msg string
}

// Await suspends the enclosing process until the wait condition fires.
// Args are forwarded to the backing scheduler.
type Await struct {
	Sched *VarScope
	Sens  SenTreeID
	Args  []Expr
}

// JoinKind describes how a fork joins its branches.
type JoinKind uint8

// Join kinds.
const (
	JoinAll  JoinKind = iota // parent waits for every branch
	JoinAny                  // parent resumes when any branch completes
	JoinNone                 // parent never waits
)

func (k JoinKind) String() string {
	switch k {
	case JoinAll:
		return "join"
	case JoinAny:
		return "join_any"
	case JoinNone:
		return "join_none"
	}
	return "?"
}

// A Begin is one named branch of a fork.
type Begin struct {
	Name  string
	Stmts []Stmt
}

// Clone returns a deep copy of the branch.
//
func (b *Begin) Clone() *Begin {
	return &Begin{Name: b.Name, Stmts: CloneStmts(b.Stmts)}
}

// Fork spawns its branches as concurrent processes.
type Fork struct {
	Join     JoinKind
	Branches []*Begin
}

// ProcKind describes the flavor of a procedural block.
type ProcKind uint8

// Procedure kinds.
const (
	ProcAlways    ProcKind = iota // re-armed process (always-style)
	ProcOnce                      // single-shot process (initial/static/final-style)
	ProcPostponed                 // postponed combinational block
	ProcObserved                  // observed clocked block
	ProcReactive                  // reactive clocked block
)

// A Proc is a procedural statement block as produced by the front end.
// Suspendable marks bodies containing suspension points.
type Proc struct {
	Kind        ProcKind
	Suspendable bool
	Stmts       []Stmt
}

func (*Assign) isStmt()     {}
func (*LocalDecl) isStmt()  {}
func (*If) isStmt()         {}
func (*While) isStmt()      {}
func (*Call) isStmt()       {}
func (*MethodCall) isStmt() {}
func (*DebugPrint) isStmt() {}
func (*Fatal) isStmt()      {}
func (*Await) isStmt()      {}
func (*Fork) isStmt()       {}
func (*Proc) isStmt()       {}

// CloneStmts deep-copies a statement sequence.
//
func CloneStmts(stmts []Stmt) []Stmt {
	if stmts == nil {
		return nil
	}
	c := make([]Stmt, 0, len(stmts))
	for _, st := range stmts {
		c = append(c, st.CloneStmt())
	}
	return c
}

// CloneExprs deep-copies an expression slice.
//
func CloneExprs(exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}
	c := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		c = append(c, e.CloneExpr())
	}
	return c
}

// CloneStmt implements Stmt.
func (s *Assign) CloneStmt() Stmt { return &Assign{LHS: s.LHS, RHS: s.RHS.CloneExpr()} }

// CloneStmt implements Stmt.
func (s *LocalDecl) CloneStmt() Stmt { c := *s; return &c }

// CloneStmt implements Stmt.
func (s *If) CloneStmt() Stmt {
	return &If{
		Cond:     s.Cond.CloneExpr(),
		Then:     CloneStmts(s.Then),
		Else:     CloneStmts(s.Else),
		Unlikely: s.Unlikely,
	}
}

// CloneStmt implements Stmt.
func (s *While) CloneStmt() Stmt {
	return &While{Cond: s.Cond.CloneExpr(), Body: CloneStmts(s.Body)}
}

// CloneStmt implements Stmt.
func (s *Call) CloneStmt() Stmt {
	return &Call{Func: s.Func, Args: CloneExprs(s.Args), DebugOnly: s.DebugOnly}
}

// CloneStmt implements Stmt.
func (s *MethodCall) CloneStmt() Stmt {
	return &MethodCall{Target: s.Target, Method: s.Method, Args: CloneExprs(s.Args)}
}

// CloneStmt implements Stmt.
func (s *DebugPrint) CloneStmt() Stmt { c := *s; return &c }

// CloneStmt implements Stmt.
func (s *Fatal) CloneStmt() Stmt { c := *s; return &c }

// CloneStmt implements Stmt.
func (s *Await) CloneStmt() Stmt {
	return &Await{Sched: s.Sched, Sens: s.Sens, Args: CloneExprs(s.Args)}
}

// CloneStmt implements Stmt.
func (s *Fork) CloneStmt() Stmt {
	c := &Fork{Join: s.Join}
	for _, b := range s.Branches {
		c.Branches = append(c.Branches, b.Clone())
	}
	return c
}

// CloneStmt implements Stmt.
func (s *Proc) CloneStmt() Stmt {
	return &Proc{Kind: s.Kind, Suspendable: s.Suspendable, Stmts: CloneStmts(s.Stmts)}
}

// NodeCount implements Stmt.
func (s *Assign) NodeCount() int { return 2 + s.RHS.NodeCount() }

// NodeCount implements Stmt.
func (s *LocalDecl) NodeCount() int { return 1 }

// NodeCount implements Stmt.
func (s *If) NodeCount() int {
	return 1 + s.Cond.NodeCount() + StmtsNodeCount(s.Then) + StmtsNodeCount(s.Else)
}

// NodeCount implements Stmt.
func (s *While) NodeCount() int { return 1 + s.Cond.NodeCount() + StmtsNodeCount(s.Body) }

// NodeCount implements Stmt.
func (s *Call) NodeCount() int { return 1 + exprsNodeCount(s.Args) }

// NodeCount implements Stmt.
func (s *MethodCall) NodeCount() int { return 2 + exprsNodeCount(s.Args) }

// NodeCount implements Stmt.
func (s *DebugPrint) NodeCount() int { return 1 }

// NodeCount implements Stmt.
func (s *Fatal) NodeCount() int { return 1 }

// NodeCount implements Stmt.
func (s *Await) NodeCount() int { return 2 + exprsNodeCount(s.Args) }

// NodeCount implements Stmt.
func (s *Fork) NodeCount() int {
	n := 1
	for _, b := range s.Branches {
		n += 1 + StmtsNodeCount(b.Stmts)
	}
	return n
}

// NodeCount implements Stmt.
func (s *Proc) NodeCount() int { return 1 + StmtsNodeCount(s.Stmts) }

// StmtsNodeCount returns the total node count of a statement sequence.
//
func StmtsNodeCount(stmts []Stmt) int {
	n := 0
	for _, st := range stmts {
		n += st.NodeCount()
	}
	return n
}

func exprsNodeCount(exprs []Expr) int {
	n := 0
	for _, e := range exprs {
		n += e.NodeCount()
	}
	return n
}

// ArgDir is the passing mode of a lowered process parameter.
type ArgDir uint8

// Argument passing modes.
const (
	ByValue ArgDir = iota
	ByRef
)

// An Arg is a formal parameter of a generated function.
type Arg struct {
	Var *VarScope
	Dir ArgDir
}

// A CFunc is a generated function: a name, an owning scope and an owned
// statement sequence.
//
type CFunc struct {
	Name  string
	Scope *Scope
	Args  []Arg
	Stmts []Stmt

	// Slow marks functions outside the simulation fast path.
	Slow bool
	// Entry marks externally callable entry points.
	Entry bool
	// Coroutine marks independently suspendable functions.
	Coroutine bool
	// DebugOnly functions are compiled only into debug builds.
	DebugOnly bool
}

// AddStmts appends statements to the function body.
//
func (f *CFunc) AddStmts(stmts ...Stmt) {
	f.Stmts = append(f.Stmts, stmts...)
}

// PrependStmts inserts statements at the start of the function body.
//
func (f *CFunc) PrependStmts(stmts ...Stmt) {
	f.Stmts = append(append([]Stmt{}, stmts...), f.Stmts...)
}

// TakeStmts drains and returns the function body.
//
func (f *CFunc) TakeStmts() []Stmt {
	s := f.Stmts
	f.Stmts = nil
	return s
}

// NodeCount returns the node count of the function body.
//
func (f *CFunc) NodeCount() int { return StmtsNodeCount(f.Stmts) }
