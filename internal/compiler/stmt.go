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
	"github.com/ashlabs/ashc/internal/registry"
	"github.com/ashlabs/ashc/internal/scope"
)

// stmtSpan extracts the Span field carried by every ast.Stmt variant, the
// statement-side counterpart of exprSpan.
func stmtSpan(s ast.Stmt) ast.Span {
	switch v := s.(type) {
	case *ast.BlockStmt:
		return v.Span
	case *ast.VarDeclStmt:
		return v.Span
	case *ast.ExprStmt:
		return v.Span
	case *ast.ReturnStmt:
		return v.Span
	case *ast.IfStmt:
		return v.Span
	case *ast.WhileStmt:
		return v.Span
	case *ast.ForStmt:
		return v.Span
	case *ast.ForeachStmt:
		return v.Span
	case *ast.SwitchStmt:
		return v.Span
	case *ast.BreakStmt:
		return v.Span
	case *ast.ContinueStmt:
		return v.Span
	case *ast.TryStmt:
		return v.Span
	default:
		return ast.Span{}
	}
}

// typeNeedsDestructor reports whether a local of type dt must be cleaned up
// when it goes out of scope: a by-value class instance carrying a
// registered destructor. Handles are left to the runtime's refcounting.
func typeNeedsDestructor(c *ctx.Context, dt ashtype.DataType) bool {
	if dt.IsHandle {
		return false
	}
	entry, ok := c.GetType(dt.TypeHash)
	if !ok || entry.Kind != registry.KindClass {
		return false
	}
	return entry.Class.Behaviors.Destructor != 0
}

// emitDestroy emits a destructor call for li, assuming no value from li is
// needed on the stack afterward (spec.md §4.11's block-exit cleanup).
func (ck *Checker) emitDestroy(c *ctx.Context, li scope.LocalInfo) {
	if !li.NeedsDestructor {
		return
	}
	entry, ok := c.GetType(li.DataType.TypeHash)
	if !ok || entry.Kind != registry.KindClass || entry.Class.Behaviors.Destructor == 0 {
		return
	}
	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(li.Slot))
	idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(entry.Class.Behaviors.Destructor)})
	ck.em.EmitOp(emitter.OpCallMethod)
	ck.em.EmitU16(idx)
}

// emitScopeCleanup destroys every local currently live across all active
// frames, in the order compileReturn must walk them (spec.md §4.11:
// "before emitting Return/ReturnVoid... walking all active frames").
func (ck *Checker) emitScopeCleanup(c *ctx.Context) {
	for _, li := range ck.sc.AllLocals() {
		ck.emitDestroy(c, li)
	}
}

// emitLoopCleanup destroys locals declared since a loop/switch's entry
// scope depth, for a break or continue escaping past them.
func (ck *Checker) emitLoopCleanup(c *ctx.Context, depth int) {
	for _, li := range ck.sc.LocalsSinceLoopStart(depth) {
		ck.emitDestroy(c, li)
	}
}

// emitDefaultInitValue pushes a value of type dt for an uninitialized var
// decl: null for handles, a typed zero for primitives, or a no-arg
// constructor call for a value-type class (spec.md §4.11).
func (ck *Checker) emitDefaultInitValue(c *ctx.Context, dt ashtype.DataType, span diagnostic.Span) {
	if dt.IsHandle {
		ck.em.EmitOp(emitter.OpPushNull)
		return
	}
	if _, ok := primitiveInfo(dt.TypeHash); ok {
		ck.pushZero(dt)
		return
	}
	entry, ok := c.GetType(dt.TypeHash)
	if !ok || entry.Kind != registry.KindClass {
		ck.pushZero(dt)
		return
	}
	for _, fn := range ck.methodCandidatesFrom(c, entry.Class.Behaviors.Constructors) {
		if len(fn.Def.Params) == 0 {
			idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(fn.Def.FuncHash)})
			ck.em.EmitOp(emitter.OpNew)
			ck.em.EmitU16(idx)
			return
		}
	}
	c.ReportError(diagnostic.New(diagnostic.NoDefaultConstructor, span, "%s has no default constructor", entry.QualifiedName))
	ck.em.EmitOp(emitter.OpPushNull)
}

// compileBlock compiles a `{ ... }` body: push scope, compile each
// statement, pop scope, destroy locals in reverse declaration order
// (spec.md §4.11). Also the forward-referenced target lambda bodies
// compile through (§4.10's inferLambda).
func (ck *Checker) compileBlock(c *ctx.Context, b *ast.BlockStmt) {
	ck.sc.PushFrame()
	for _, s := range b.Stmts {
		ck.compileStmt(c, s)
	}
	for _, li := range ck.sc.PopFrame() {
		ck.emitDestroy(c, li)
	}
}

// compileStmt dispatches one statement node to its compiler.
func (ck *Checker) compileStmt(c *ctx.Context, s ast.Stmt) {
	switch v := s.(type) {
	case *ast.BlockStmt:
		ck.compileBlock(c, v)
	case *ast.VarDeclStmt:
		ck.compileVarDecl(c, v)
	case *ast.ExprStmt:
		ck.compileExprStmt(c, v)
	case *ast.ReturnStmt:
		ck.compileReturn(c, v)
	case *ast.IfStmt:
		ck.compileIf(c, v)
	case *ast.WhileStmt:
		ck.compileWhile(c, v)
	case *ast.ForStmt:
		ck.compileFor(c, v)
	case *ast.ForeachStmt:
		ck.compileForeach(c, v)
	case *ast.SwitchStmt:
		ck.compileSwitch(c, v)
	case *ast.BreakStmt:
		ck.compileBreak(c, v)
	case *ast.ContinueStmt:
		ck.compileContinue(c, v)
	case *ast.TryStmt:
		ck.compileTry(c, v)
	default:
		c.ReportError(diagnostic.New(diagnostic.Internal, span2(stmtSpan(s)), "unhandled statement node %T", s))
	}
}

func (ck *Checker) compileVarDecl(c *ctx.Context, v *ast.VarDeclStmt) {
	dspan := span2(v.Span)
	isAuto := v.Type == nil || v.Type.Auto

	var dt ashtype.DataType
	if !isAuto {
		rdt, d := ck.res.Resolve(c, v.Type)
		if d != nil {
			c.ReportError(d)
		}
		dt = rdt
	} else if v.Init != nil {
		dt = ck.peekType(c, v.Init)
	} else {
		c.ReportError(diagnostic.New(diagnostic.TypeMismatch, dspan, "auto declaration requires an initializer"))
		dt = ashtype.Void()
	}

	slot, err := ck.sc.DeclareLocal(v.Name, dt, v.IsConst, typeNeedsDestructor(c, dt))
	if err != nil {
		c.ReportError(diagnostic.New(diagnostic.DuplicateDefinition, dspan, "%s", err.Error()))
		if v.Init != nil {
			ck.Infer(c, v.Init)
			ck.em.EmitOp(emitter.OpPop)
		}
		return
	}

	if v.Init != nil {
		ck.Check(c, v.Init, dt)
	} else {
		ck.emitDefaultInitValue(c, dt, dspan)
	}
	ck.em.EmitOp(emitter.OpStoreLocal)
	ck.em.EmitU8(uint8(slot))
}

func (ck *Checker) compileExprStmt(c *ctx.Context, v *ast.ExprStmt) {
	info := ck.Infer(c, v.Expr)
	if !info.DataType.IsVoid() {
		ck.em.EmitOp(emitter.OpPop)
	}
}

func (ck *Checker) compileReturn(c *ctx.Context, v *ast.ReturnStmt) {
	dspan := span2(v.Span)
	if v.Value == nil {
		if !ck.returnType.IsVoid() {
			c.ReportError(diagnostic.New(diagnostic.ReturnTypeMismatch, dspan, "missing return value for non-void function"))
		}
		ck.emitScopeCleanup(c)
		ck.em.EmitOp(emitter.OpReturnVoid)
		return
	}
	if ck.returnType.IsVoid() {
		c.ReportError(diagnostic.New(diagnostic.ReturnTypeMismatch, dspan, "void function cannot return a value"))
		ck.Infer(c, v.Value)
		ck.em.EmitOp(emitter.OpPop)
		ck.emitScopeCleanup(c)
		ck.em.EmitOp(emitter.OpReturnVoid)
		return
	}
	ck.Check(c, v.Value, ck.returnType)
	ck.emitScopeCleanup(c)
	ck.em.EmitOp(emitter.OpReturn)
}

// compileIf compiles the standard jump-over pattern (spec.md §4.11). Both
// the true and false paths discard the peeked condition value themselves,
// since OpJumpIfFalse doesn't consume its operand (matching the convention
// already established for ternary/logical-and in the expression checker).
func (ck *Checker) compileIf(c *ctx.Context, v *ast.IfStmt) {
	ck.Check(c, v.Cond, ashtype.DataType{TypeHash: hBool})
	elseJump := ck.em.EmitJump(emitter.OpJumpIfFalse)
	ck.em.EmitOp(emitter.OpPop)
	ck.compileStmt(c, v.Then)
	endJump := ck.em.EmitJump(emitter.OpJump)
	ck.em.PatchJump(elseJump)
	ck.em.EmitOp(emitter.OpPop)
	if v.Else != nil {
		ck.compileStmt(c, v.Else)
	}
	ck.em.PatchJump(endJump)
}

func (ck *Checker) compileWhile(c *ctx.Context, v *ast.WhileStmt) {
	loopStart := ck.em.Offset()
	ck.em.PushLoop(loopStart, ck.sc.Depth())
	ck.Check(c, v.Cond, ashtype.DataType{TypeHash: hBool})
	exitJump := ck.em.EmitJump(emitter.OpJumpIfFalse)
	ck.em.EmitOp(emitter.OpPop)
	ck.compileStmt(c, v.Body)
	ck.em.EmitLoop(loopStart)
	ck.em.PatchJump(exitJump)
	ck.em.EmitOp(emitter.OpPop)
	ck.em.PopLoop()
}

// compileFor compiles `for (init; cond; update) body` (spec.md §4.11). The
// update expression is physically emitted after the body, so `continue`
// jumps within the body are recorded as forward patches and resolved by
// MarkContinueTarget right before the update is compiled.
func (ck *Checker) compileFor(c *ctx.Context, v *ast.ForStmt) {
	ck.sc.PushFrame()
	if v.Init != nil {
		ck.compileStmt(c, v.Init)
	}

	condStart := ck.em.Offset()
	var exitJump emitter.PatchHandle
	hasExit := v.Cond != nil
	if hasExit {
		ck.Check(c, v.Cond, ashtype.DataType{TypeHash: hBool})
		exitJump = ck.em.EmitJump(emitter.OpJumpIfFalse)
		ck.em.EmitOp(emitter.OpPop)
	}

	ck.em.PushLoopDeferredContinue(ck.sc.Depth())
	ck.compileStmt(c, v.Body)

	ck.em.MarkContinueTarget()
	if v.Update != nil {
		info := ck.Infer(c, v.Update)
		if !info.DataType.IsVoid() {
			ck.em.EmitOp(emitter.OpPop)
		}
	}
	ck.em.EmitLoop(condStart)

	if hasExit {
		ck.em.PatchJump(exitJump)
		ck.em.EmitOp(emitter.OpPop)
	}
	ck.em.PopLoop()

	for _, li := range ck.sc.PopFrame() {
		ck.emitDestroy(c, li)
	}
}

// compileForeach drives the container's for_begin/for_condition-or-for_end
// /for_next/for_value protocol (spec.md §4.11).
func (ck *Checker) compileForeach(c *ctx.Context, v *ast.ForeachStmt) {
	dspan := span2(v.Span)
	container := ck.Infer(c, v.Container)
	entry, ok := c.GetType(container.DataType.TypeHash)
	if !ok || entry.Kind != registry.KindClass || !entry.Class.Behaviors.HasForeachProtocol() {
		c.ReportError(diagnostic.New(diagnostic.NotIterable, dspan, "type does not support foreach iteration"))
		ck.em.EmitOp(emitter.OpPop)
		ck.compileStmt(c, v.Body)
		return
	}
	beh := entry.Class.Behaviors

	beginIdx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(beh.ForBegin)})
	ck.em.EmitOp(emitter.OpCallMethod)
	ck.em.EmitU16(beginIdx)

	iterType := ashtype.Void()
	if beginFn, ok := c.GetFunction(beh.ForBegin); ok {
		iterType = beginFn.Def.ReturnType
	}
	iterTmp := ck.newTemp(iterType)
	ck.em.EmitOp(emitter.OpStoreLocal)
	ck.em.EmitU8(uint8(iterTmp))

	loopStart := ck.em.Offset()
	ck.em.PushLoop(loopStart, ck.sc.Depth())

	var exitJump emitter.PatchHandle
	if beh.ForCondition != 0 {
		ck.em.EmitOp(emitter.OpLoadLocal)
		ck.em.EmitU8(uint8(iterTmp))
		condIdx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(beh.ForCondition)})
		ck.em.EmitOp(emitter.OpCallMethod)
		ck.em.EmitU16(condIdx)
	} else {
		// No for_condition: compare the iterator against the container's
		// for_end sentinel and negate (continue looping while unequal).
		// Approximated as a single-candidate opEquals dispatch rather than
		// full overload resolution, since the compared operand isn't a
		// source expression.
		ck.em.EmitOp(emitter.OpLoadLocal)
		ck.em.EmitU8(uint8(iterTmp))
		ck.Infer(c, v.Container)
		endIdx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(beh.ForEnd)})
		ck.em.EmitOp(emitter.OpCallMethod)
		ck.em.EmitU16(endIdx)
		if eqCandidates := c.FindMethods(iterType.TypeHash, "opEquals"); len(eqCandidates) > 0 {
			eqIdx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(eqCandidates[0].Def.FuncHash)})
			ck.em.EmitOp(emitter.OpCallMethod)
			ck.em.EmitU16(eqIdx)
		}
		ck.em.EmitOp(emitter.OpNot)
	}
	exitJump = ck.em.EmitJump(emitter.OpJumpIfFalse)
	ck.em.EmitOp(emitter.OpPop)

	ck.sc.PushFrame()
	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(iterTmp))
	valIdx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(beh.ForValue)})
	ck.em.EmitOp(emitter.OpCallMethod)
	ck.em.EmitU16(valIdx)

	varDT := ashtype.Void()
	if valFn, ok := c.GetFunction(beh.ForValue); ok {
		varDT = valFn.Def.ReturnType
	}
	if v.VarType != nil && !v.VarType.Auto {
		if rdt, d := ck.res.Resolve(c, v.VarType); d == nil {
			varDT = rdt
		} else {
			c.ReportError(d)
		}
	}
	slot, err := ck.sc.DeclareLocal(v.VarName, varDT, false, typeNeedsDestructor(c, varDT))
	if err != nil {
		c.ReportError(diagnostic.New(diagnostic.DuplicateDefinition, dspan, "%s", err.Error()))
	}
	ck.em.EmitOp(emitter.OpStoreLocal)
	ck.em.EmitU8(uint8(slot))

	ck.compileStmt(c, v.Body)
	for _, li := range ck.sc.PopFrame() {
		ck.emitDestroy(c, li)
	}

	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(iterTmp))
	nextIdx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(beh.ForNext)})
	ck.em.EmitOp(emitter.OpCallMethod)
	ck.em.EmitU16(nextIdx)
	if nextFn, ok := c.GetFunction(beh.ForNext); ok && !nextFn.Def.ReturnType.IsVoid() {
		ck.em.EmitOp(emitter.OpStoreLocal)
		ck.em.EmitU8(uint8(iterTmp))
	}

	ck.em.EmitLoop(loopStart)
	ck.em.PatchJump(exitJump)
	ck.em.EmitOp(emitter.OpPop)
	ck.em.PopLoop()
}

// compileSwitch compiles the discriminant into a temp so each case test
// loads a fresh copy instead of juggling Dup'd stack balance (spec.md
// §4.11). Case bodies are emitted in source order so fallthrough between
// adjacent cases, including into a mid-list default, works without any
// extra bookkeeping.
func (ck *Checker) compileSwitch(c *ctx.Context, v *ast.SwitchStmt) {
	dspan := span2(v.Span)
	dt := ck.peekType(c, v.Discriminant)
	tmp := ck.newTemp(dt)
	ck.Infer(c, v.Discriminant)
	ck.em.EmitOp(emitter.OpStoreLocal)
	ck.em.EmitU8(uint8(tmp))

	ck.em.PushSwitch()

	type caseJump struct {
		idx  int
		jump emitter.PatchHandle
	}
	var jumps []caseJump
	defaultIdx := -1
	for i, cs := range v.Cases {
		if cs.Value == nil {
			defaultIdx = i
			continue
		}
		ck.em.EmitOp(emitter.OpLoadLocal)
		ck.em.EmitU8(uint8(tmp))
		if p, ok := primitiveInfo(dt.TypeHash); ok && !dt.IsHandle {
			ck.Check(c, cs.Value, dt)
			if p.IsFloat {
				ck.em.EmitOp(emitter.OpEqF)
			} else {
				ck.em.EmitOp(emitter.OpEqI)
			}
		} else if _, d := ck.dispatchMethod(c, dt, "opEquals", []ast.Expr{cs.Value}, dspan); d != nil {
			c.ReportError(d)
		}
		h := ck.em.EmitJump(emitter.OpJumpIfTrue)
		ck.em.EmitOp(emitter.OpPop)
		jumps = append(jumps, caseJump{idx: i, jump: h})
	}
	noMatchJump := ck.em.EmitJump(emitter.OpJump)

	for i, cs := range v.Cases {
		for _, cj := range jumps {
			if cj.idx == i {
				// Falling through from the previous body must skip the Pop
				// that discards this case's matched test bool.
				var skipPop emitter.PatchHandle
				if i > 0 {
					skipPop = ck.em.EmitJump(emitter.OpJump)
				}
				ck.em.PatchJump(cj.jump)
				ck.em.EmitOp(emitter.OpPop)
				if i > 0 {
					ck.em.PatchJump(skipPop)
				}
			}
		}
		if i == defaultIdx {
			ck.em.PatchJump(noMatchJump)
		}
		for _, s := range cs.Body {
			ck.compileStmt(c, s)
		}
	}
	if defaultIdx == -1 {
		ck.em.PatchJump(noMatchJump)
	}
	ck.em.PopSwitch()
}

func (ck *Checker) compileBreak(c *ctx.Context, v *ast.BreakStmt) {
	dspan := span2(v.Span)
	if lc, ok := ck.em.CurrentLoop(); ok {
		ck.emitLoopCleanup(c, lc.ScopeDepth)
	}
	if err := ck.em.EmitBreak(); err != nil {
		c.ReportError(diagnostic.New(diagnostic.BreakOutsideLoop, dspan, "%s", err.Error()))
	}
}

func (ck *Checker) compileContinue(c *ctx.Context, v *ast.ContinueStmt) {
	dspan := span2(v.Span)
	if lc, ok := ck.em.CurrentLoop(); ok {
		ck.emitLoopCleanup(c, lc.ScopeDepth)
	}
	if err := ck.em.EmitContinue(); err != nil {
		c.ReportError(diagnostic.New(diagnostic.ContinueOutsideLoop, dspan, "%s", err.Error()))
	}
}

// compileTry emits TryStart/TryEnd markers around the body plus each catch
// handler in sequence; the runtime matches the active exception against a
// handler's declared type and unwinds to it (spec.md §4.11 — no flow
// analysis beyond marker placement happens here).
func (ck *Checker) compileTry(c *ctx.Context, v *ast.TryStmt) {
	ck.em.EmitOp(emitter.OpTryStart)
	ck.compileBlock(c, v.Body)
	ck.em.EmitOp(emitter.OpTryEnd)
	endJump := ck.em.EmitJump(emitter.OpJump)

	var catchJumps []emitter.PatchHandle
	for _, cat := range v.Catches {
		ck.sc.PushFrame()
		if cat.VarName != "" {
			var dt ashtype.DataType
			if cat.ExceptionType != nil {
				if rdt, d := ck.res.Resolve(c, cat.ExceptionType); d == nil {
					dt = rdt
				} else {
					c.ReportError(d)
				}
			}
			ck.sc.DeclareLocal(cat.VarName, dt, false, false)
		}
		for _, s := range cat.Body.Stmts {
			ck.compileStmt(c, s)
		}
		for _, li := range ck.sc.PopFrame() {
			ck.emitDestroy(c, li)
		}
		catchJumps = append(catchJumps, ck.em.EmitJump(emitter.OpJump))
	}

	ck.em.PatchJump(endJump)
	for _, h := range catchJumps {
		ck.em.PatchJump(h)
	}
}
