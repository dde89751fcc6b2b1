// Copyright 2025 Ash Labs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@ashlabs.dev
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package compiler

import (
	"github.com/ashlabs/ashc/internal/ast"
	"github.com/ashlabs/ashc/internal/ashtype"
	"github.com/ashlabs/ashc/internal/ctx"
	"github.com/ashlabs/ashc/internal/diagnostic"
	"github.com/ashlabs/ashc/internal/emitter"
	"github.com/ashlabs/ashc/internal/overload"
	"github.com/ashlabs/ashc/internal/registry"
	"github.com/ashlabs/ashc/internal/scope"
)

// FunctionCompiler orchestrates per-function compilation (spec.md §4.12):
// given a registered FunctionEntry and the ast.FuncDecl it came from, it
// builds a fresh scope and statement checker, compiles the body, and
// stores the resulting chunk back onto the entry. It runs strictly after
// Registrar.RegisterFile has populated every hash it needs to look up.
type FunctionCompiler struct {
	reg *Registrar
	ov  *overload.Resolver
}

// NewFunctionCompiler creates a FunctionCompiler. reg supplies the same
// type resolver and FuncDecl-to-hash logic used during registration, so
// hashes recomputed here always match what RegisterFile already stored.
func NewFunctionCompiler(reg *Registrar, ov *overload.Resolver) *FunctionCompiler {
	return &FunctionCompiler{reg: reg, ov: ov}
}

// CompileFile walks f's declarations, mirroring Registrar.RegisterFile's
// traversal, and compiles every script-backed function body it finds.
func (fc *FunctionCompiler) CompileFile(c *ctx.Context, f *ast.File) {
	mixins := collectMixins(f.Decls)
	fc.compileDecls(c, f.Decls, mixins)
}

func (fc *FunctionCompiler) compileDecls(c *ctx.Context, decls []ast.Decl, mixins map[string]*ast.ClassDecl) {
	for _, d := range decls {
		switch v := d.(type) {
		case *ast.NamespaceDecl:
			c.EnterNamespace(v.Name)
			fc.compileDecls(c, v.Body, mixins)
			c.ExitNamespace()

		case *ast.ClassDecl:
			if v.IsMixin {
				continue
			}
			fc.compileClass(c, v, mixins)

		case *ast.FuncDecl:
			fc.compileFreeFunction(c, v)

		case *ast.VarMemberDecl:
			if v.Init != nil {
				fc.compileGlobalInit(c, v)
			}
		}
	}
}

// compileClass compiles every constructor, the destructor, and every
// ordinary method/operator declared (directly or via a mixin) on cd.
// Synthesized default constructors/destructors (no matching ast.FuncDecl)
// get an empty body: field defaults plus an implicit base call.
func (fc *FunctionCompiler) compileClass(c *ctx.Context, cd *ast.ClassDecl, mixins map[string]*ast.ClassDecl) {
	classHash := ashtype.FromQualifiedName(c.CurrentNamespace(), cd.Name)
	live, ok := c.Unit.Get(classHash)
	if !ok {
		return
	}

	byHash := map[ashtype.FunctionHash]*ast.FuncDecl{}
	for _, m := range effectiveMembers(cd, mixins) {
		fd, ok := m.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		fh, _, d := fc.reg.resolveFuncDef(c, fd, classHash)
		if d != nil {
			continue
		}
		byHash[fh] = fd
	}

	for _, ch := range live.Class.Behaviors.Constructors {
		fc.compileConstructor(c, classHash, live, ch, byHash[ch])
	}
	if dh := live.Class.Behaviors.Destructor; dh != 0 {
		fc.compileDestructor(c, classHash, live, dh, byHash[dh])
	}
	for _, mh := range live.Class.Methods {
		if fd, ok := byHash[mh]; ok {
			fc.compileMethod(c, classHash, mh, fd)
		}
	}
	for _, hashes := range live.Class.Behaviors.Operators {
		for _, oh := range hashes {
			if fd, ok := byHash[oh]; ok {
				fc.compileMethod(c, classHash, oh, fd)
			}
		}
	}
}

// newBodyChecker builds a fresh scope/checker pair with fd's parameters
// declared at consecutive slots (spec.md §4.12 step 2; `this` itself is
// loaded through the dedicated OpLoadThis opcode rather than a local slot,
// matching the convention already established by the expression checker's
// implicit-this member access).
func (fc *FunctionCompiler) newBodyChecker(c *ctx.Context, def registry.FunctionDef, thisType ashtype.TypeHash) (*Checker, *emitter.Emitter, *scope.Scope) {
	sc := scope.New()
	sc.PushFrame()
	for _, p := range def.Params {
		sc.DeclareLocal(p.Name, p.DataType, false, typeNeedsDestructor(c, p.DataType))
	}
	em := emitter.New()
	ck := NewChecker(fc.reg.resolver, fc.ov, em, sc, thisType, def.Traits.IsConst)
	ck.SetReturnType(def.ReturnType)
	return ck, em, sc
}

// finishBody appends a trailing implicit ReturnVoid to every void function
// (unreachable when the body already returned), or runs the return-path analyzer
// for a non-void function (spec.md §4.12 step 5), then pops the parameter
// frame to restore scope balance.
func (fc *FunctionCompiler) finishBody(c *ctx.Context, ck *Checker, em *emitter.Emitter, sc *scope.Scope, def registry.FunctionDef, bodyStmts []ast.Stmt, span diagnostic.Span) {
	if def.ReturnType.IsVoid() {
		ck.emitScopeCleanup(c)
		em.EmitOp(emitter.OpReturnVoid)
	} else if !allPathsReturn(bodyStmts) {
		c.ReportError(diagnostic.New(diagnostic.NotAllPathsReturn, span, "not all control-flow paths return a value"))
	}
	sc.PopFrame()
}

func (fc *FunctionCompiler) compileMethod(c *ctx.Context, classHash ashtype.TypeHash, fh ashtype.FunctionHash, fd *ast.FuncDecl) {
	entry, ok := c.GetFunction(fh)
	if !ok {
		return
	}
	ck, em, sc := fc.newBodyChecker(c, entry.Def, classHash)
	ck.compileBlock(c, fd.Body)
	fc.finishBody(c, ck, em, sc, entry.Def, fd.Body.Stmts, span(fd.Span))
	entry.Implementation.Bytecode = em.Chunk()
}

func (fc *FunctionCompiler) compileFreeFunction(c *ctx.Context, fd *ast.FuncDecl) {
	if fd.Body == nil {
		return
	}
	fh, _, d := fc.reg.resolveFuncDef(c, fd, 0)
	if d != nil {
		return
	}
	entry, ok := c.GetFunction(fh)
	if !ok {
		return
	}
	ck, em, sc := fc.newBodyChecker(c, entry.Def, 0)
	ck.compileBlock(c, fd.Body)
	fc.finishBody(c, ck, em, sc, entry.Def, fd.Body.Stmts, span(fd.Span))
	entry.Implementation.Bytecode = em.Chunk()
}

// compileConstructor compiles the initializer list (explicit base call or
// an auto-called default base constructor, then every field assigned in
// declaration order from its explicit init or a default value) ahead of
// the body (spec.md §4.12 step 3).
func (fc *FunctionCompiler) compileConstructor(c *ctx.Context, classHash ashtype.TypeHash, live *registry.TypeEntry, fh ashtype.FunctionHash, fd *ast.FuncDecl) {
	entry, ok := c.GetFunction(fh)
	if !ok {
		return
	}
	dspan := regSpanToDiag(entry.Source.Span)
	ck, em, sc := fc.newBodyChecker(c, entry.Def, classHash)

	fc.compileBaseInit(c, ck, live, fd, dspan)
	fc.compileMemberInits(c, ck, live, fd, dspan)

	if fd != nil && fd.Body != nil {
		ck.compileBlock(c, fd.Body)
		fc.finishBody(c, ck, em, sc, entry.Def, fd.Body.Stmts, dspan)
	} else {
		ck.emitScopeCleanup(c)
		em.EmitOp(emitter.OpReturnVoid)
		sc.PopFrame()
	}
	entry.Implementation.Bytecode = em.Chunk()
}

func (fc *FunctionCompiler) compileBaseInit(c *ctx.Context, ck *Checker, live *registry.TypeEntry, fd *ast.FuncDecl, dspan diagnostic.Span) {
	base := live.Class.Base
	if base == 0 {
		return
	}
	baseEntry, ok := c.GetType(base)
	if !ok || baseEntry.Kind != registry.KindClass {
		return
	}
	candidates := ck.methodCandidatesFrom(c, baseEntry.Class.Behaviors.Constructors)

	var args []ast.Expr
	if fd != nil {
		args = fd.BaseInit
	}
	argTypes := make([]ashtype.DataType, len(args))
	for i, a := range args {
		argTypes[i] = ck.peekType(c, a)
	}
	chosen, _, d := ck.ov.Resolve(c, candidates, argTypes, dspan)
	if d != nil {
		if len(args) > 0 {
			c.ReportError(d)
		}
		return
	}

	ck.em.EmitOp(emitter.OpLoadThis)
	for i, a := range args {
		ck.Check(c, a, chosen.Def.Params[i].DataType)
	}
	for i := len(args); i < len(chosen.Def.Params); i++ {
		ck.emitDefaultArg(c, chosen.Def.Params[i], dspan)
	}
	idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(chosen.Def.FuncHash)})
	ck.em.EmitOp(emitter.OpCallMethod)
	ck.em.EmitU16(idx)
}

func (fc *FunctionCompiler) compileMemberInits(c *ctx.Context, ck *Checker, live *registry.TypeEntry, fd *ast.FuncDecl, dspan diagnostic.Span) {
	var explicit map[string]ast.Expr
	if fd != nil && len(fd.MemberInits) > 0 {
		explicit = map[string]ast.Expr{}
		for _, mi := range fd.MemberInits {
			explicit[mi.Name] = mi.Init
		}
	}

	for _, prop := range live.Class.Properties {
		if !prop.IsField {
			continue
		}
		if init, ok := explicit[prop.Name]; ok {
			assign := &ast.AssignExpr{Op: "=", Target: &ast.IdentExpr{Name: prop.Name}, Value: init}
			ck.Infer(c, assign)
			ck.em.EmitOp(emitter.OpPop)
			continue
		}
		ck.em.EmitOp(emitter.OpLoadThis)
		ck.emitDefaultInitValue(c, prop.DataType, dspan)
		fidx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstInt, Int: int64(prop.FieldIndex)})
		ck.em.EmitOp(emitter.OpStoreField)
		ck.em.EmitU16(fidx)
	}
}

// compileDestructor emits member cleanup in reverse declaration order
// followed by the base-class destructor call (spec.md §4.12 step 6).
func (fc *FunctionCompiler) compileDestructor(c *ctx.Context, classHash ashtype.TypeHash, live *registry.TypeEntry, fh ashtype.FunctionHash, fd *ast.FuncDecl) {
	entry, ok := c.GetFunction(fh)
	if !ok {
		return
	}
	ck, em, sc := fc.newBodyChecker(c, entry.Def, classHash)

	if fd != nil && fd.Body != nil {
		ck.compileBlock(c, fd.Body)
	}

	props := live.Class.Properties
	for i := len(props) - 1; i >= 0; i-- {
		prop := props[i]
		if !prop.IsField || !typeNeedsDestructor(c, prop.DataType) {
			continue
		}
		fieldEntry, ok := c.GetType(prop.DataType.TypeHash)
		if !ok || fieldEntry.Class.Behaviors.Destructor == 0 {
			continue
		}
		em.EmitOp(emitter.OpLoadThis)
		fidx := em.EmitConstant(registry.Constant{Kind: registry.ConstInt, Int: int64(prop.FieldIndex)})
		em.EmitOp(emitter.OpLoadField)
		em.EmitU16(fidx)
		didx := em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(fieldEntry.Class.Behaviors.Destructor)})
		em.EmitOp(emitter.OpCallMethod)
		em.EmitU16(didx)
	}

	if base := live.Class.Base; base != 0 {
		if baseEntry, ok := c.GetType(base); ok && baseEntry.Class.Behaviors.Destructor != 0 {
			em.EmitOp(emitter.OpLoadThis)
			bidx := em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(baseEntry.Class.Behaviors.Destructor)})
			em.EmitOp(emitter.OpCallMethod)
			em.EmitU16(bidx)
		}
	}

	ck.emitScopeCleanup(c)
	em.EmitOp(emitter.OpReturnVoid)
	sc.PopFrame()
	entry.Implementation.Bytecode = em.Chunk()
}

// compileGlobalInit registers and compiles the synthetic `$init` function a
// script-side global variable's initializer is lowered into (spec.md §4.9:
// GlobalPropertyEntry.InitFunc). The registration pass recorded the hash
// but deliberately left the function entry itself for this pass to create,
// mirroring the split between signature registration and body compilation.
func (fc *FunctionCompiler) compileGlobalInit(c *ctx.Context, vd *ast.VarMemberDecl) {
	qualName := ashtype.JoinQualified(c.CurrentNamespace(), vd.Name)
	g, ok := c.Unit.GetGlobal(ashtype.FromQualifiedName(c.CurrentNamespace(), vd.Name))
	if !ok || g.InitFunc == 0 {
		return
	}

	def := registry.FunctionDef{FuncHash: g.InitFunc, Name: qualName + "$init", Namespace: c.CurrentNamespace(), ReturnType: ashtype.Void()}
	impl := registry.Implementation{Kind: registry.ImplScript, UnitID: c.Unit.UnitID}
	if err := c.Unit.RegisterFunction(registry.FunctionEntry{Def: def, Implementation: impl, Source: registry.Source{UnitID: c.Unit.UnitID, Span: regSpan(vd.Span)}}); err != nil {
		return
	}
	entry, _ := c.GetFunction(g.InitFunc)

	sc := scope.New()
	sc.PushFrame()
	em := emitter.New()
	ck := NewChecker(fc.reg.resolver, fc.ov, em, sc, 0, false)
	ck.SetReturnType(ashtype.Void())

	assign := &ast.AssignExpr{Op: "=", Target: &ast.IdentExpr{Name: vd.Name}, Value: vd.Init}
	ck.Infer(c, assign)
	em.EmitOp(emitter.OpPop)
	ck.emitScopeCleanup(c)
	em.EmitOp(emitter.OpReturnVoid)
	sc.PopFrame()
	entry.Implementation.Bytecode = em.Chunk()
}

func regSpanToDiag(s registry.Span) diagnostic.Span {
	return diagnostic.Span{File: s.File, ByteStart: s.ByteStart, ByteEnd: s.ByteEnd}
}

// allPathsReturn implements the return-path analyzer (spec.md §4.12.1): a
// shallow syntactic CFG walk, not a dataflow analysis. It under-approximates
// deliberately on patterns outside the cases spec.md names, reporting
// non-returning rather than risking a false positive.
func allPathsReturn(stmts []ast.Stmt) bool {
	for _, s := range stmts {
		if stmtReturns(s) {
			return true
		}
	}
	return false
}

func stmtReturns(s ast.Stmt) bool {
	switch v := s.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.BlockStmt:
		return allPathsReturn(v.Stmts)
	case *ast.IfStmt:
		if v.Else == nil {
			return false
		}
		return stmtReturns(v.Then) && stmtReturns(v.Else)
	case *ast.WhileStmt:
		return isTrueLiteral(v.Cond) && !bodyBreaks(v.Body)
	case *ast.ForStmt:
		return v.Cond == nil && !bodyBreaks(v.Body)
	case *ast.SwitchStmt:
		hasDefault := false
		for _, cs := range v.Cases {
			if cs.Value == nil {
				hasDefault = true
			}
			if bodyListBreaks(cs.Body) || !allPathsReturn(cs.Body) {
				return false
			}
		}
		return hasDefault
	case *ast.TryStmt:
		if !stmtReturns(v.Body) {
			return false
		}
		for _, cat := range v.Catches {
			if !allPathsReturn(cat.Body.Stmts) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isTrueLiteral(e ast.Expr) bool {
	b, ok := e.(*ast.BoolLit)
	return ok && b.Value
}

// bodyBreaks conservatively reports whether a break reachable from body
// could escape its enclosing loop; a nested loop or switch absorbs its own
// breaks (spec.md's "a break inside a nested switch only breaks the
// switch").
func bodyBreaks(s ast.Stmt) bool {
	switch v := s.(type) {
	case *ast.BreakStmt:
		return true
	case *ast.BlockStmt:
		return bodyListBreaks(v.Stmts)
	case *ast.IfStmt:
		if bodyBreaks(v.Then) {
			return true
		}
		return v.Else != nil && bodyBreaks(v.Else)
	case *ast.WhileStmt, *ast.ForStmt, *ast.ForeachStmt, *ast.SwitchStmt:
		return false
	case *ast.TryStmt:
		if bodyListBreaks(v.Body.Stmts) {
			return true
		}
		for _, cat := range v.Catches {
			if bodyListBreaks(cat.Body.Stmts) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func bodyListBreaks(stmts []ast.Stmt) bool {
	for _, s := range stmts {
		if bodyBreaks(s) {
			return true
		}
	}
	return false
}
