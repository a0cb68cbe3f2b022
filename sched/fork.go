// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package sched

import (
	"strings"

	"github.com/Timmmm/verilator/ast"
)

// transformForks lowers every fork remaining in generated functions.
// Branches without suspension points are inlined into the parent; the rest
// move to new resumable functions, with enclosing-function locals passed as
// parameters. Fork synchronization handles and intra-assignment temporaries
// go by value; other locals go by reference, which is only sound when the
// parent outlives the branch, so non-blocking joins referencing parent
// locals are rejected and the branch dropped with a warning.
//
func (s *Scheduler) transformForks() {
	if !s.n.UsesTiming {
		return
	}
	var work []*ast.CFunc
	s.n.Top.Walk(func(sc *ast.Scope) {
		work = append(work, sc.Funcs...)
	})
	for len(work) > 0 {
		f := work[0]
		work = work[1:]
		declared := make(map[*ast.VarScope]bool)
		for _, a := range f.Args {
			declared[a.Var] = true
		}
		f.Stmts = s.lowerForks(f, f.Stmts, declared, &work)
	}
}

// lowerForks rewrites one statement sequence, tracking which locals are in
// scope at each point.
//
func (s *Scheduler) lowerForks(f *ast.CFunc, stmts []ast.Stmt,
	declared map[*ast.VarScope]bool, work *[]*ast.CFunc) []ast.Stmt {

	out := make([]ast.Stmt, 0, len(stmts))
	for _, st := range stmts {
		switch x := st.(type) {
		case *ast.LocalDecl:
			declared[x.Var] = true
			out = append(out, st)
		case *ast.If:
			x.Then = s.lowerForks(f, x.Then, declared, work)
			x.Else = s.lowerForks(f, x.Else, declared, work)
			out = append(out, st)
		case *ast.While:
			x.Body = s.lowerForks(f, x.Body, declared, work)
			out = append(out, st)
		case *ast.Fork:
			out = append(out, s.lowerFork(f, x, declared, work)...)
		default:
			out = append(out, st)
		}
	}
	return out
}

// lowerFork replaces one fork with inlined branch bodies and calls to newly
// spawned functions.
//
func (s *Scheduler) lowerFork(f *ast.CFunc, fork *ast.Fork,
	declared map[*ast.VarScope]bool, work *[]*ast.CFunc) []ast.Stmt {

	var out []ast.Stmt
	for _, b := range fork.Branches {
		body := b.Stmts
		b.Stmts = nil
		if !ast.ContainsAwait(body) {
			// Runs to completion immediately, no process needed. The body
			// may still hold forks of its own, so it goes through lowering
			// before being spliced into the parent.
			out = append(out, s.lowerForks(f, body, declared, work)...)
			continue
		}
		nf := &ast.CFunc{Name: b.Name, Slow: f.Slow, Coroutine: true}
		nf.Stmts = body
		call := &ast.Call{Func: nf}
		if !s.remapForkLocals(f, fork, nf, call, declared) {
			s.warn("process reference to local in %s outlives its %s fork; dropping the branch",
				f.Name, fork.Join.String())
			continue
		}
		f.Scope.AddFunc(nf)
		*work = append(*work, nf)
		out = append(out, call)
	}
	return out
}

// remapForkLocals rewrites references to enclosing-function locals into
// parameters of the spawned function. Returns false when a reference cannot
// be passed safely.
//
func (s *Scheduler) remapForkLocals(f *ast.CFunc, fork *ast.Fork,
	nf *ast.CFunc, call *ast.Call, declared map[*ast.VarScope]bool) bool {

	mapping := make(map[*ast.VarScope]*ast.VarScope)
	supported := true
	ast.RewriteVars(nf.Stmts, func(v *ast.VarScope) *ast.VarScope {
		// Synchronization handles and intra-assignment temporaries always
		// travel by value, locals or not.
		byValue := v.Kind == ast.KindForkSync || strings.HasPrefix(v.Name, "__Vintra")
		if !byValue {
			if !v.FuncLocal || !declared[v] {
				// Not a local of the enclosing function; lives long enough.
				return v
			}
			if fork.Join != ast.JoinAll {
				// The parent may move on before the branch finishes, so
				// the reference would dangle.
				supported = false
				return v
			}
		}
		if m := mapping[v]; m != nil {
			return m
		}
		m := &ast.VarScope{
			Name:      v.Name,
			Scope:     f.Scope,
			Kind:      v.Kind,
			Width:     v.Width,
			FuncLocal: true,
		}
		mapping[v] = m
		dir := ast.ByRef
		if byValue {
			dir = ast.ByValue
		}
		nf.Args = append(nf.Args, ast.Arg{Var: m, Dir: dir})
		call.Args = append(call.Args, ast.Ref(v))
		return m
	})
	return supported
}
