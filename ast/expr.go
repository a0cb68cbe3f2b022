// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package ast

// An Expr is one node of a generated expression tree.
//
type Expr interface {
	CloneExpr() Expr
	NodeCount() int
	isExpr()
}

// UnOp is a unary operator.
type UnOp uint8

// Unary operators.
const (
	OpNot    UnOp = iota // bitwise complement
	OpLogNot             // logical negation
)

// BinOp is a binary operator.
type BinOp uint8

// Binary operators.
const (
	OpAnd BinOp = iota
	OpOr
	OpXor
	OpEq
	OpGt
	OpAdd
	OpLogAnd
	OpLogOr
)

// VarRef reads a variable.
type VarRef struct {
	Target *VarScope
}

// Const is an unsigned constant.
type Const struct {
	Value uint64
}

// Unary applies a unary operator.
type Unary struct {
	Op UnOp
	X  Expr
}

// Binary applies a binary operator.
type Binary struct {
	Op   BinOp
	X, Y Expr
}

// TrigTest reads one bit of a trigger vector: vec.word(i/64) & 1<<(i%64).
//
type TrigTest struct {
	Vec   *VarScope
	Index uint32
}

// TrigAny tests whether any bit of a trigger vector is set.
//
type TrigAny struct {
	Vec *VarScope
}

func (*VarRef) isExpr()   {}
func (*Const) isExpr()    {}
func (*Unary) isExpr()    {}
func (*Binary) isExpr()   {}
func (*TrigTest) isExpr() {}
func (*TrigAny) isExpr()  {}

// CloneExpr implements Expr.
func (e *VarRef) CloneExpr() Expr { c := *e; return &c }

// CloneExpr implements Expr.
func (e *Const) CloneExpr() Expr { c := *e; return &c }

// CloneExpr implements Expr.
func (e *Unary) CloneExpr() Expr { return &Unary{Op: e.Op, X: e.X.CloneExpr()} }

// CloneExpr implements Expr.
func (e *Binary) CloneExpr() Expr {
	return &Binary{Op: e.Op, X: e.X.CloneExpr(), Y: e.Y.CloneExpr()}
}

// CloneExpr implements Expr.
func (e *TrigTest) CloneExpr() Expr { c := *e; return &c }

// CloneExpr implements Expr.
func (e *TrigAny) CloneExpr() Expr { c := *e; return &c }

// NodeCount implements Expr.
func (e *VarRef) NodeCount() int { return 1 }

// NodeCount implements Expr.
func (e *Const) NodeCount() int { return 1 }

// NodeCount implements Expr.
func (e *Unary) NodeCount() int { return 1 + e.X.NodeCount() }

// NodeCount implements Expr.
func (e *Binary) NodeCount() int { return 1 + e.X.NodeCount() + e.Y.NodeCount() }

// NodeCount implements Expr.
func (e *TrigTest) NodeCount() int { return 1 }

// NodeCount implements Expr.
func (e *TrigAny) NodeCount() int { return 1 }

// Ref is shorthand for a variable read.
//
func Ref(v *VarScope) *VarRef { return &VarRef{Target: v} }

// Num is shorthand for a constant.
//
func Num(v uint64) *Const { return &Const{Value: v} }

// Not is shorthand for logical negation.
//
func Not(x Expr) *Unary { return &Unary{Op: OpLogNot, X: x} }

// Or builds the disjunction of the given expressions. Returns nil when
// called with no operands.
//
func Or(xs ...Expr) Expr {
	var e Expr
	for _, x := range xs {
		if e == nil {
			e = x
		} else {
			e = &Binary{Op: OpLogOr, X: e, Y: x}
		}
	}
	return e
}
