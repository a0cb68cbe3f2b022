// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package ast

// WalkStmts visits every statement in the sequence and its nested bodies,
// pre-order. The traversal uses only the given sequence and carries no
// state between calls.
//
func WalkStmts(stmts []Stmt, fn func(Stmt)) {
	for _, st := range stmts {
		fn(st)
		switch s := st.(type) {
		case *If:
			WalkStmts(s.Then, fn)
			WalkStmts(s.Else, fn)
		case *While:
			WalkStmts(s.Body, fn)
		case *Fork:
			for _, b := range s.Branches {
				WalkStmts(b.Stmts, fn)
			}
		case *Proc:
			WalkStmts(s.Stmts, fn)
		}
	}
}

// WalkExprs visits every expression reachable from the sequence, pre-order.
//
func WalkExprs(stmts []Stmt, fn func(Expr)) {
	WalkStmts(stmts, func(st Stmt) {
		switch s := st.(type) {
		case *Assign:
			walkExpr(s.RHS, fn)
		case *If:
			walkExpr(s.Cond, fn)
		case *While:
			walkExpr(s.Cond, fn)
		case *Call:
			for _, a := range s.Args {
				walkExpr(a, fn)
			}
		case *MethodCall:
			for _, a := range s.Args {
				walkExpr(a, fn)
			}
		case *Await:
			for _, a := range s.Args {
				walkExpr(a, fn)
			}
		}
	})
}

func walkExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch x := e.(type) {
	case *Unary:
		walkExpr(x.X, fn)
	case *Binary:
		walkExpr(x.X, fn)
		walkExpr(x.Y, fn)
	}
}

// WalkReads visits every variable read in the sequence.
//
func WalkReads(stmts []Stmt, fn func(*VarScope)) {
	WalkExprs(stmts, func(e Expr) {
		switch x := e.(type) {
		case *VarRef:
			fn(x.Target)
		case *TrigTest:
			fn(x.Vec)
		case *TrigAny:
			fn(x.Vec)
		}
	})
}

// WalkWrites visits every variable written in the sequence: assignment
// targets and method-call receivers.
//
func WalkWrites(stmts []Stmt, fn func(*VarScope)) {
	WalkStmts(stmts, func(st Stmt) {
		switch s := st.(type) {
		case *Assign:
			fn(s.LHS)
		case *MethodCall:
			fn(s.Target)
		case *Await:
			fn(s.Sched)
		}
	})
}

// RewriteVars replaces every variable reference in the sequence, reads and
// writes alike, with the variable returned by fn. fn returning its argument
// leaves the reference untouched.
//
func RewriteVars(stmts []Stmt, fn func(*VarScope) *VarScope) {
	WalkStmts(stmts, func(st Stmt) {
		switch s := st.(type) {
		case *Assign:
			s.LHS = fn(s.LHS)
			rewriteExprVars(s.RHS, fn)
		case *LocalDecl:
			s.Var = fn(s.Var)
		case *If:
			rewriteExprVars(s.Cond, fn)
		case *While:
			rewriteExprVars(s.Cond, fn)
		case *Call:
			for _, a := range s.Args {
				rewriteExprVars(a, fn)
			}
		case *MethodCall:
			s.Target = fn(s.Target)
			for _, a := range s.Args {
				rewriteExprVars(a, fn)
			}
		case *Await:
			s.Sched = fn(s.Sched)
			for _, a := range s.Args {
				rewriteExprVars(a, fn)
			}
		}
	})
}

func rewriteExprVars(e Expr, fn func(*VarScope) *VarScope) {
	walkExpr(e, func(x Expr) {
		switch r := x.(type) {
		case *VarRef:
			r.Target = fn(r.Target)
		case *TrigTest:
			r.Vec = fn(r.Vec)
		case *TrigAny:
			r.Vec = fn(r.Vec)
		}
	})
}

// RewriteExprVars applies the same replacement to a single expression tree.
//
func RewriteExprVars(e Expr, fn func(*VarScope) *VarScope) {
	rewriteExprVars(e, fn)
}

// ContainsAwait reports whether the sequence contains a suspension point,
// ignoring nested fork branches (their suspension belongs to the spawned
// process, not to this one).
//
func ContainsAwait(stmts []Stmt) bool {
	found := false
	var walk func([]Stmt)
	walk = func(ss []Stmt) {
		for _, st := range ss {
			if found {
				return
			}
			switch s := st.(type) {
			case *Await:
				found = true
			case *If:
				walk(s.Then)
				walk(s.Else)
			case *While:
				walk(s.Body)
			case *Proc:
				walk(s.Stmts)
			}
		}
	}
	walk(stmts)
	return found
}
