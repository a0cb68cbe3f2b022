// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package sched

import (
	"github.com/Timmmm/verilator/ast"
	"github.com/pkg/errors"
)

// A SenExprBuilder turns sensitivity trees into boolean trigger expressions.
// A builder is stateful: edge detection needs previous-value storage, and the
// accumulated init/update statements are drained by the trigger synthesizer
// after each batch of Build calls.
//
type SenExprBuilder interface {
	// Build returns the firing expression for the tree and whether the
	// condition must also fire on the very first evaluation.
	Build(t *ast.SenTree) (ast.Expr, bool, error)

	// TakeInits drains the statements initializing previous-value storage.
	// They belong in the one-time init function.
	TakeInits() []ast.Stmt
	// TakePreUpdates drains statements that must run before the trigger
	// expressions are evaluated.
	TakePreUpdates() []ast.Stmt
	// TakePostUpdates drains statements that must run after the trigger
	// expressions are evaluated, typically previous-value refreshes.
	TakePostUpdates() []ast.Stmt
	// TakeLocals drains function-local variables declared by the builder.
	TakeLocals() []*ast.VarScope
}

// EdgeDetectBuilder is the default SenExprBuilder. It allocates one
// previous-value shadow per tracked signal and compares against it.
//
type EdgeDetectBuilder struct {
	scope *ast.Scope
	prev  map[*ast.VarScope]*ast.VarScope

	// batch is the set of signals whose shadows the current batch of Build
	// calls reads. Every one of them needs a refresh in the trigger
	// function being assembled, even if the shadow was created for an
	// earlier batch.
	batch     []*ast.VarScope
	batchSeen map[*ast.VarScope]bool

	inits  []ast.Stmt
	pres   []ast.Stmt
	locals []*ast.VarScope
}

// NewEdgeDetectBuilder creates a builder allocating its shadow variables in
// the given scope.
//
func NewEdgeDetectBuilder(scope *ast.Scope) *EdgeDetectBuilder {
	return &EdgeDetectBuilder{
		scope:     scope,
		prev:      make(map[*ast.VarScope]*ast.VarScope),
		batchSeen: make(map[*ast.VarScope]bool),
	}
}

// prevOf returns the previous-value shadow for a signal, creating it on
// first use. Creation queues the init assignment; the per-batch refresh is
// queued whether the shadow is new or not.
//
func (b *EdgeDetectBuilder) prevOf(sig *ast.VarScope) *ast.VarScope {
	if !b.batchSeen[sig] {
		b.batchSeen[sig] = true
		b.batch = append(b.batch, sig)
	}
	if p, ok := b.prev[sig]; ok {
		return p
	}
	p := b.scope.NewTemp("__Vtrigprev__"+sig.Name, sig.Width)
	b.prev[sig] = p
	b.inits = append(b.inits, &ast.Assign{LHS: p, RHS: ast.Ref(sig)})
	return p
}

// Build implements SenExprBuilder.
//
func (b *EdgeDetectBuilder) Build(t *ast.SenTree) (ast.Expr, bool, error) {
	var terms []ast.Expr
	firesAtInit := false
	for _, it := range t.Items {
		var term ast.Expr
		switch it.Edge {
		case ast.EdgePos:
			p := b.prevOf(it.Sig)
			term = &ast.Binary{Op: ast.OpLogAnd, X: ast.Ref(it.Sig), Y: ast.Not(ast.Ref(p))}
		case ast.EdgeNeg:
			p := b.prevOf(it.Sig)
			term = &ast.Binary{Op: ast.OpLogAnd, X: ast.Not(ast.Ref(it.Sig)), Y: ast.Ref(p)}
		case ast.EdgeBoth:
			p := b.prevOf(it.Sig)
			term = &ast.Binary{Op: ast.OpXor, X: ast.Ref(it.Sig), Y: ast.Ref(p)}
		case ast.EdgeChanged:
			p := b.prevOf(it.Sig)
			term = &ast.Binary{Op: ast.OpXor, X: ast.Ref(it.Sig), Y: ast.Ref(p)}
			firesAtInit = true
		case ast.EdgeHybrid:
			p := b.prevOf(it.Sig)
			term = &ast.Binary{Op: ast.OpXor, X: ast.Ref(it.Sig), Y: ast.Ref(p)}
			firesAtInit = true
		case ast.EdgeTrue:
			if it.Expr == nil {
				return nil, false, errors.Errorf("boolean sensitivity item without expression in %q", t.String())
			}
			term = it.Expr.CloneExpr()
		default:
			return nil, false, errors.Errorf("cannot build trigger expression for %q", it.String())
		}
		terms = append(terms, term)
	}
	e := ast.Or(terms...)
	if e == nil {
		return nil, false, errors.Errorf("empty sensitivity tree %d", t.ID)
	}
	return e, firesAtInit, nil
}

// TakeInits implements SenExprBuilder.
func (b *EdgeDetectBuilder) TakeInits() []ast.Stmt {
	s := b.inits
	b.inits = nil
	return s
}

// TakePreUpdates implements SenExprBuilder.
func (b *EdgeDetectBuilder) TakePreUpdates() []ast.Stmt {
	s := b.pres
	b.pres = nil
	return s
}

// TakePostUpdates implements SenExprBuilder.
func (b *EdgeDetectBuilder) TakePostUpdates() []ast.Stmt {
	var s []ast.Stmt
	for _, sig := range b.batch {
		s = append(s, &ast.Assign{LHS: b.prev[sig], RHS: ast.Ref(sig)})
		delete(b.batchSeen, sig)
	}
	b.batch = nil
	return s
}

// TakeLocals implements SenExprBuilder.
func (b *EdgeDetectBuilder) TakeLocals() []*ast.VarScope {
	l := b.locals
	b.locals = nil
	return l
}
