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
	"fmt"
	"strings"

	"github.com/ashlabs/ashc/internal/ast"
	"github.com/ashlabs/ashc/internal/ashtype"
	"github.com/ashlabs/ashc/internal/conversion"
	"github.com/ashlabs/ashc/internal/ctx"
	"github.com/ashlabs/ashc/internal/diagnostic"
	"github.com/ashlabs/ashc/internal/emitter"
	"github.com/ashlabs/ashc/internal/overload"
	"github.com/ashlabs/ashc/internal/registry"
	"github.com/ashlabs/ashc/internal/resolver"
	"github.com/ashlabs/ashc/internal/scope"
)

var (
	hBool, _    = ashtype.PrimitiveHash("bool")
	hInt8, _    = ashtype.PrimitiveHash("int8")
	hInt16, _   = ashtype.PrimitiveHash("int16")
	hInt32, _   = ashtype.PrimitiveHash("int32")
	hInt64, _   = ashtype.PrimitiveHash("int64")
	hUint8, _   = ashtype.PrimitiveHash("uint8")
	hUint16, _  = ashtype.PrimitiveHash("uint16")
	hUint32, _  = ashtype.PrimitiveHash("uint32")
	hUint64, _  = ashtype.PrimitiveHash("uint64")
	hFloat, _   = ashtype.PrimitiveHash("float")
	hDouble, _  = ashtype.PrimitiveHash("double")
	hString, _  = ashtype.PrimitiveHash("string")
)

// ExprInfo is the result of checking or inferring one expression (spec.md
// §4.10): its resolved type, and whether it denotes an assignable storage
// location.
type ExprInfo struct {
	DataType  ashtype.DataType
	IsLValue  bool
	IsMutable bool
}

// Checker compiles expressions into bytecode against em, tracking locals in
// sc. thisType/thisConst describe the enclosing method's receiver, if any
// (thisType is zero outside a method body).
type Checker struct {
	res  *resolver.Resolver
	ov   *overload.Resolver
	em   *emitter.Emitter
	sc   *scope.Scope

	thisType  ashtype.TypeHash
	thisConst bool

	// returnType is the enclosing function's declared return type, set by
	// the function compiler (spec.md §4.12) before the body is compiled;
	// the statement compiler's `return` handling checks against it.
	returnType ashtype.DataType

	tempCounter int
}

// NewChecker creates a Checker. res resolves ast.TypeExpr nodes (used by
// cast/lambda/foreach-decl); ov resolves overloaded calls and operators.
func NewChecker(res *resolver.Resolver, ov *overload.Resolver, em *emitter.Emitter, sc *scope.Scope, thisType ashtype.TypeHash, thisConst bool) *Checker {
	return &Checker{res: res, ov: ov, em: em, sc: sc, thisType: thisType, thisConst: thisConst}
}

// SetReturnType records the enclosing function's return type for `return`
// statement checking.
func (ck *Checker) SetReturnType(dt ashtype.DataType) { ck.returnType = dt }

// exprSpan extracts the Span field carried by every ast.Expr variant. Expr
// has no common accessor (spec.md's AST keeps Span as a plain struct field
// per node), so this is a type switch.
func exprSpan(e ast.Expr) ast.Span {
	switch v := e.(type) {
	case *ast.IntLit:
		return v.Span
	case *ast.FloatLit:
		return v.Span
	case *ast.StringLit:
		return v.Span
	case *ast.BoolLit:
		return v.Span
	case *ast.NullLit:
		return v.Span
	case *ast.IdentExpr:
		return v.Span
	case *ast.QualifiedExpr:
		return v.Span
	case *ast.BinaryExpr:
		return v.Span
	case *ast.UnaryExpr:
		return v.Span
	case *ast.PostfixExpr:
		return v.Span
	case *ast.AssignExpr:
		return v.Span
	case *ast.CallExpr:
		return v.Span
	case *ast.MethodCallExpr:
		return v.Span
	case *ast.MemberExpr:
		return v.Span
	case *ast.IndexExpr:
		return v.Span
	case *ast.CastExpr:
		return v.Span
	case *ast.TernaryExpr:
		return v.Span
	case *ast.LambdaExpr:
		return v.Span
	case *ast.InitListExpr:
		return v.Span
	default:
		return ast.Span{}
	}
}

// newTemp allocates a uniquely-named synthetic local of type dt, used to
// hold an intermediate value across stack-reordering sequences (spec.md
// §4.10's "evaluate base once, keep intermediate on stack").
func (ck *Checker) newTemp(dt ashtype.DataType) int {
	ck.tempCounter++
	name := fmt.Sprintf("$t%d", ck.tempCounter)
	slot, _ := ck.sc.DeclareLocal(name, dt, false, false)
	return slot
}

// swapTopTwo reorders the top two stack values (left below right) to
// (right below left), via two synthetic locals. Used for reversed-operator
// dispatch (a.opAdd(b) failed, b.opAdd_r(a) needs operands swapped).
func (ck *Checker) swapTopTwo(leftType, rightType ashtype.DataType) {
	tr := ck.newTemp(rightType)
	tl := ck.newTemp(leftType)
	ck.em.EmitOp(emitter.OpStoreLocal)
	ck.em.EmitU8(uint8(tr))
	ck.em.EmitOp(emitter.OpStoreLocal)
	ck.em.EmitU8(uint8(tl))
	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(tr))
	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(tl))
}

// pushIntConst emits a literal int32 constant.
func (ck *Checker) pushIntConst(v int64) {
	idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstInt, Int: v, TypeHash: hInt32})
	ck.em.EmitOp(emitter.OpPushConst)
	ck.em.EmitU16(idx)
}

// primitiveInfo looks up h's PrimitiveInfo, ok=false if h isn't primitive
// (enums are resolved to their underlying primitive by the caller first).
func primitiveInfo(h ashtype.TypeHash) (ashtype.PrimitiveInfo, bool) {
	return ashtype.LookupPrimitive(h)
}

// primitiveInfoByKind looks up a PrimitiveInfo by its PrimitiveKind enum
// value, used where only a kind (not a hash) is on hand, e.g. from a
// conversion.Conversion's ToPrim/FromPrim.
func primitiveInfoByKind(k ashtype.PrimitiveKind) ashtype.PrimitiveInfo {
	for _, p := range ashtype.Primitives {
		if p.Kind == k {
			return p
		}
	}
	return ashtype.PrimitiveInfo{}
}

// primitiveHash returns p's TypeHash.
func primitiveHash(p ashtype.PrimitiveInfo) ashtype.TypeHash {
	h, _ := ashtype.PrimitiveHash(p.Name)
	return h
}

// commonPrimitive picks the widen-target of a and b, mirroring conversion's
// unexported widening rule (same kind -> either; one float -> the float,
// wider of the two if both float; both int -> the higher-rank integer,
// ties toward a).
func commonPrimitive(a, b ashtype.PrimitiveInfo) ashtype.PrimitiveInfo {
	if a.Kind == b.Kind {
		return a
	}
	switch {
	case a.IsFloat && !b.IsFloat:
		return a
	case b.IsFloat && !a.IsFloat:
		return b
	case a.IsFloat && b.IsFloat:
		if b.IntRank > a.IntRank {
			return b
		}
		return a
	default:
		if b.IntRank > a.IntRank {
			return b
		}
		return a
	}
}

// widensLocal reports whether converting fp -> tp is a widening conversion,
// mirroring conversion.widens (unexported there, so duplicated here to pick
// OpWiden vs OpNarrow).
func widensLocal(fp, tp ashtype.PrimitiveInfo) bool {
	switch {
	case fp.IsInt && tp.IsInt:
		return !fp.IsFloat && fp.Signed == tp.Signed && fp.IntRank <= tp.IntRank
	case fp.IsInt && tp.IsFloat:
		return fp.IntRank <= tp.IntRank
	case fp.IsFloat && tp.IsFloat:
		return fp.IntRank <= tp.IntRank
	default:
		return false
	}
}

// emitPrimConversion emits the opcode converting a value already on the
// stack from from's representation to to's.
func (ck *Checker) emitPrimConversion(from, to ashtype.PrimitiveInfo) {
	switch {
	case from.Kind == to.Kind:
		return
	case from.Kind == ashtype.PrimInt32 && to.Kind == ashtype.PrimDouble:
		ck.em.EmitOp(emitter.OpI32toF64)
	case from.Kind == ashtype.PrimInt64 && to.Kind == ashtype.PrimDouble:
		ck.em.EmitOp(emitter.OpI64toF64)
	case from.Kind == ashtype.PrimDouble && to.Kind == ashtype.PrimInt32:
		ck.em.EmitOp(emitter.OpF64toI32)
	case widensLocal(from, to):
		ck.em.EmitOp(emitter.OpWiden)
		ck.em.EmitU8(uint8(from.Kind))
		ck.em.EmitU8(uint8(to.Kind))
	default:
		ck.em.EmitOp(emitter.OpNarrow)
		ck.em.EmitU8(uint8(from.Kind))
		ck.em.EmitU8(uint8(to.Kind))
	}
}

// operatorNames maps a source binary/compound-assignment operator token to
// its forward/reverse class-operator method names, per spec.md §4.6's
// operator table.
func operatorNames(op string) (registry.Operator, registry.Operator, bool) {
	switch op {
	case "+", "+=":
		return registry.OpAdd, registry.OpAddR, true
	case "-", "-=":
		return registry.OpSub, registry.OpSubR, true
	case "*", "*=":
		return registry.OpMul, registry.OpMulR, true
	case "/", "/=":
		return registry.OpDiv, registry.OpDivR, true
	case "%", "%=":
		return registry.OpMod, registry.OpModR, true
	case "&", "&=":
		return registry.Operator("opAnd"), registry.Operator("opAnd_r"), true
	case "|", "|=":
		return registry.Operator("opOr"), registry.Operator("opOr_r"), true
	case "^", "^=":
		return registry.Operator("opXor"), registry.Operator("opXor_r"), true
	case "<<", "<<=":
		return registry.Operator("opShl"), registry.Operator("opShl_r"), true
	case ">>", ">>=":
		return registry.Operator("opShr"), registry.Operator("opShr_r"), true
	default:
		return "", "", false
	}
}

// emitArithOrBitwiseOp emits the primitive opcode for op over operands of
// common kind cp, both already on the stack. Reports NoOperator for a
// bitwise op over a float operand.
func (ck *Checker) emitArithOrBitwiseOp(c *ctx.Context, op string, cp ashtype.PrimitiveInfo, span diagnostic.Span) bool {
	switch op {
	case "+", "+=":
		if cp.IsFloat {
			ck.em.EmitOp(emitter.OpAddF)
		} else {
			ck.em.EmitOp(emitter.OpAddI)
		}
	case "-", "-=":
		if cp.IsFloat {
			ck.em.EmitOp(emitter.OpSubF)
		} else {
			ck.em.EmitOp(emitter.OpSubI)
		}
	case "*", "*=":
		if cp.IsFloat {
			ck.em.EmitOp(emitter.OpMulF)
		} else {
			ck.em.EmitOp(emitter.OpMulI)
		}
	case "/", "/=":
		if cp.IsFloat {
			ck.em.EmitOp(emitter.OpDivF)
		} else {
			ck.em.EmitOp(emitter.OpDivI)
		}
	case "%", "%=":
		if cp.IsFloat {
			ck.em.EmitOp(emitter.OpModF)
		} else {
			ck.em.EmitOp(emitter.OpModI)
		}
	case "&", "&=", "|", "|=", "^", "^=", "<<", "<<=", ">>", ">>=":
		if cp.IsFloat {
			c.ReportError(diagnostic.New(diagnostic.NoOperator, span, "bitwise operator %s is not defined on floating-point operands", op))
			return false
		}
		switch op {
		case "&", "&=":
			ck.em.EmitOp(emitter.OpBitAnd)
		case "|", "|=":
			ck.em.EmitOp(emitter.OpBitOr)
		case "^", "^=":
			ck.em.EmitOp(emitter.OpBitXor)
		case "<<", "<<=":
			ck.em.EmitOp(emitter.OpShl)
		case ">>", ">>=":
			ck.em.EmitOp(emitter.OpShr)
		}
	default:
		c.ReportError(diagnostic.New(diagnostic.NoOperator, span, "unknown operator %s", op))
		return false
	}
	return true
}

// combinePrimitiveOrOperator is the unifying engine for binary arithmetic
// and compound-assignment combination (spec.md §4.10's binary-operators and
// assignment sections): it assumes the left value is already pushed with
// known leftType, infers rightExpr, and either widens+combines two
// primitives or dispatches to a resolved class operator method.
func (ck *Checker) combinePrimitiveOrOperator(c *ctx.Context, op string, leftType ashtype.DataType, rightExpr ast.Expr, span ast.Span) ExprInfo {
	lp, leftPrim := primitiveInfo(leftType.TypeHash)
	dspan := span2(span)

	if leftPrim {
		// Peek the right type first without committing to emission order
		// decisions; then emit it for real.
		rt := ck.peekType(c, rightExpr)
		rp, rightPrim := primitiveInfo(rt.TypeHash)
		if !rightPrim || leftType.IsHandle || rt.IsHandle {
			d := diagnostic.New(diagnostic.TypeMismatch, dspan, "operator %s requires matching primitive operand types", op).
				WithTypes(leftType.TypeHash.String(), rt.TypeHash.String())
			c.ReportError(d)
			ck.Infer(c, rightExpr)
			return ExprInfo{DataType: leftType}
		}

		cp := commonPrimitive(lp, rp)

		// Convert left (now on top) to the common kind if needed.
		ck.emitPrimConversion(lp, cp)

		// Push right and convert it to the common kind if needed.
		ck.Infer(c, rightExpr)
		ck.emitPrimConversion(rp, cp)

		if !ck.emitArithOrBitwiseOp(c, op, cp, dspan) {
			return ExprInfo{DataType: leftType}
		}
		return ExprInfo{DataType: ashtype.DataType{TypeHash: primitiveHash(cp)}}
	}

	fwd, rev, ok := operatorNames(op)
	if !ok {
		c.ReportError(diagnostic.New(diagnostic.NoOperator, dspan, "unknown operator %s", op))
		ck.Infer(c, rightExpr)
		return ExprInfo{DataType: leftType}
	}
	rt := ck.peekType(c, rightExpr)
	entry, convs, reversed, d := ck.ov.ResolveOperator(c, fwd, rev, leftType, rt, dspan)
	if d != nil {
		c.ReportError(d)
		ck.Infer(c, rightExpr)
		return ExprInfo{DataType: leftType}
	}
	if reversed {
		ck.Infer(c, rightExpr)
		ck.applyConversion(convs[0], rt)
		ck.swapTopTwo(rt, leftType)
	} else {
		ck.Infer(c, rightExpr)
		ck.applyConversion(convs[0], rt)
	}
	idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(entry.Def.FuncHash)})
	ck.em.EmitOp(emitter.OpCallMethod)
	ck.em.EmitU16(idx)
	return ExprInfo{DataType: entry.Def.ReturnType}
}

// applyConversion emits whatever opcode conv requires to convert a
// just-pushed value of type from to conv's target, a no-op for Identity.
func (ck *Checker) applyConversion(conv conversion.Conversion, from ashtype.DataType) {
	switch conv.Kind {
	case conversion.Identity:
		return
	case conversion.Primitive, conversion.EnumToInt, conversion.IntToEnum:
		fp := primitiveInfoByKind(conv.FromPrim)
		tp := primitiveInfoByKind(conv.ToPrim)
		ck.emitPrimConversion(fp, tp)
	case conversion.NullToHandle:
		return
	case conversion.HandleToConst:
		ck.em.EmitOp(emitter.OpHandleToConst)
	case conversion.ValueToHandle:
		ck.em.EmitOp(emitter.OpValueToHandle)
	case conversion.DerivedToBase:
		idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: from.TypeHash})
		ck.em.EmitOp(emitter.OpDerivedToBase)
		ck.em.EmitU16(idx)
	case conversion.ClassToInterface:
		idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: from.TypeHash})
		ck.em.EmitOp(emitter.OpClassToInterface)
		ck.em.EmitU16(idx)
	case conversion.ImplicitConvMethod, conversion.ExplicitCastMethod:
		idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(conv.Method)})
		ck.em.EmitOp(emitter.OpCallMethod)
		ck.em.EmitU16(idx)
	case conversion.ConstructorConversion:
		idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(conv.Method)})
		ck.em.EmitOp(emitter.OpNew)
		ck.em.EmitU16(idx)
	}
}

func span2(s ast.Span) diagnostic.Span { return span(s) }

// Infer synthesizes an ExprInfo for e, emitting bytecode that leaves its
// value on the stack (spec.md §4.10's infer(expr)).
func (ck *Checker) Infer(c *ctx.Context, e ast.Expr) ExprInfo {
	switch v := e.(type) {
	case *ast.IntLit:
		idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstInt, Int: v.Value, TypeHash: hInt32})
		ck.em.EmitOp(emitter.OpPushConst)
		ck.em.EmitU16(idx)
		return ExprInfo{DataType: ashtype.DataType{TypeHash: hInt32}}
	case *ast.FloatLit:
		th := hDouble
		if v.IsSingle {
			th = hFloat
		}
		var idx uint16
		if v.IsSingle {
			idx = ck.em.EmitConstant(registry.Constant{Kind: registry.ConstF32, F32: float32(v.Value), TypeHash: th})
		} else {
			idx = ck.em.EmitConstant(registry.Constant{Kind: registry.ConstF64, F64: v.Value, TypeHash: th})
		}
		ck.em.EmitOp(emitter.OpPushConst)
		ck.em.EmitU16(idx)
		return ExprInfo{DataType: ashtype.DataType{TypeHash: th}}
	case *ast.StringLit:
		idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstString, Str: v.Value, TypeHash: hString})
		ck.em.EmitOp(emitter.OpPushConst)
		ck.em.EmitU16(idx)
		return ExprInfo{DataType: ashtype.DataType{TypeHash: hString}}
	case *ast.BoolLit:
		if v.Value {
			ck.em.EmitOp(emitter.OpPushTrue)
		} else {
			ck.em.EmitOp(emitter.OpPushFalse)
		}
		return ExprInfo{DataType: ashtype.DataType{TypeHash: hBool}}
	case *ast.NullLit:
		ck.em.EmitOp(emitter.OpPushNull)
		return ExprInfo{DataType: ashtype.Null()}
	case *ast.IdentExpr:
		return ck.inferIdent(c, v)
	case *ast.QualifiedExpr:
		return ck.inferQualified(c, v)
	case *ast.BinaryExpr:
		return ck.inferBinary(c, v)
	case *ast.UnaryExpr:
		return ck.inferUnary(c, v)
	case *ast.PostfixExpr:
		return ck.inferPostfix(c, v)
	case *ast.AssignExpr:
		return ck.inferAssign(c, v)
	case *ast.CallExpr:
		return ck.inferCall(c, v)
	case *ast.MethodCallExpr:
		return ck.inferMethodCall(c, v)
	case *ast.MemberExpr:
		return ck.inferMember(c, v)
	case *ast.IndexExpr:
		return ck.inferIndex(c, v, false)
	case *ast.CastExpr:
		return ck.inferCast(c, v)
	case *ast.TernaryExpr:
		return ck.inferTernary(c, v)
	case *ast.LambdaExpr:
		return ck.inferLambda(c, v)
	case *ast.InitListExpr:
		return ck.inferInitList(c, v)
	default:
		c.ReportError(diagnostic.New(diagnostic.Internal, diagnostic.Span{}, "unhandled expression node %T", e))
		return ExprInfo{DataType: ashtype.Void()}
	}
}

// Check enforces e against expected, converting via the conversion system
// when the inferred type differs (spec.md §4.10's check(expr, expected)).
func (ck *Checker) Check(c *ctx.Context, e ast.Expr, expected ashtype.DataType) ExprInfo {
	if il, ok := e.(*ast.InitListExpr); ok {
		return ck.checkInitList(c, il, expected)
	}
	info := ck.Infer(c, e)
	if info.DataType.Equal(expected) {
		return info
	}
	conv, ok := conversion.FindImplicit(c, info.DataType, expected)
	if !ok {
		c.ReportError(diagnostic.New(diagnostic.ConversionError, span2(exprSpan(e)), "cannot convert to expected type").
			WithTypes(expected.TypeHash.String(), info.DataType.TypeHash.String()))
		return info
	}
	ck.applyConversion(conv, info.DataType)
	return ExprInfo{DataType: expected}
}

// inferLogicalAnd/inferLogicalOr implement short-circuit && / ||.
func (ck *Checker) inferLogicalAnd(c *ctx.Context, v *ast.BinaryExpr) ExprInfo {
	ck.Check(c, v.Left, ashtype.DataType{TypeHash: hBool})
	end := ck.em.EmitJump(emitter.OpJumpIfFalse)
	ck.em.EmitOp(emitter.OpPop)
	ck.Check(c, v.Right, ashtype.DataType{TypeHash: hBool})
	ck.em.PatchJump(end)
	return ExprInfo{DataType: ashtype.DataType{TypeHash: hBool}}
}

func (ck *Checker) inferLogicalOr(c *ctx.Context, v *ast.BinaryExpr) ExprInfo {
	ck.Check(c, v.Left, ashtype.DataType{TypeHash: hBool})
	end := ck.em.EmitJump(emitter.OpJumpIfTrue)
	ck.em.EmitOp(emitter.OpPop)
	ck.Check(c, v.Right, ashtype.DataType{TypeHash: hBool})
	ck.em.PatchJump(end)
	return ExprInfo{DataType: ashtype.DataType{TypeHash: hBool}}
}

func isComparisonOp(op string) bool {
	switch op {
	case "<", ">", "<=", ">=", "==", "!=":
		return true
	default:
		return false
	}
}

// comparisonShape maps a comparison operator to (swap operands, negate
// result, use equality opcode instead of less-than).
func comparisonShape(op string) (swap, negate, useEq bool) {
	switch op {
	case "<":
		return false, false, false
	case ">":
		return true, false, false
	case "<=":
		return true, true, false
	case ">=":
		return false, true, false
	case "==":
		return false, false, true
	case "!=":
		return false, true, true
	}
	return false, false, false
}

func (ck *Checker) inferBinary(c *ctx.Context, v *ast.BinaryExpr) ExprInfo {
	switch v.Op {
	case "&&":
		return ck.inferLogicalAnd(c, v)
	case "||":
		return ck.inferLogicalOr(c, v)
	}
	if isComparisonOp(v.Op) {
		return ck.inferComparison(c, v)
	}
	li := ck.Infer(c, v.Left)
	return ck.combinePrimitiveOrOperator(c, v.Op, li.DataType, v.Right, v.Span)
}

func (ck *Checker) inferComparison(c *ctx.Context, v *ast.BinaryExpr) ExprInfo {
	li := ck.Infer(c, v.Left)
	lp, leftPrim := primitiveInfo(li.DataType.TypeHash)
	if !leftPrim || li.DataType.IsHandle {
		return ck.classComparison(c, v, li)
	}

	rt := ck.peekType(c, v.Right)
	rp, rightPrim := primitiveInfo(rt.TypeHash)
	if !rightPrim || rt.IsHandle {
		c.ReportError(diagnostic.New(diagnostic.TypeMismatch, span2(v.Span), "comparison requires matching primitive operand types").
			WithTypes(li.DataType.TypeHash.String(), rt.TypeHash.String()))
		ck.Infer(c, v.Right)
		return ExprInfo{DataType: ashtype.DataType{TypeHash: hBool}}
	}

	cp := commonPrimitive(lp, rp)
	ck.emitPrimConversion(lp, cp)
	ck.Infer(c, v.Right)
	ck.emitPrimConversion(rp, cp)

	swap, negate, useEq := comparisonShape(v.Op)
	if swap {
		cpDT := ashtype.DataType{TypeHash: primitiveHash(cp)}
		ck.swapTopTwo(cpDT, cpDT)
	}
	if useEq {
		if cp.IsFloat {
			ck.em.EmitOp(emitter.OpEqF)
		} else {
			ck.em.EmitOp(emitter.OpEqI)
		}
	} else {
		if cp.IsFloat {
			ck.em.EmitOp(emitter.OpLtF)
		} else {
			ck.em.EmitOp(emitter.OpLtI)
		}
	}
	if negate {
		ck.em.EmitOp(emitter.OpNot)
	}
	return ExprInfo{DataType: ashtype.DataType{TypeHash: hBool}}
}

// classComparison handles comparisons between class-typed operands via
// opEquals/opCmp (spec.md §4.10): == and != dispatch opEquals directly;
// the ordering operators dispatch opCmp and compare its int result to
// zero, choosing which side of the comparison to push the zero constant on
// so a single OpLtI/OpNot pair covers all four shapes.
func (ck *Checker) classComparison(c *ctx.Context, v *ast.BinaryExpr, li ExprInfo) ExprInfo {
	dspan := span2(v.Span)
	switch v.Op {
	case "==", "!=":
		_, d := ck.dispatchMethod(c, li.DataType, "opEquals", []ast.Expr{v.Right}, dspan)
		if d != nil {
			c.ReportError(d)
			return ExprInfo{DataType: ashtype.DataType{TypeHash: hBool}}
		}
		if v.Op == "!=" {
			ck.em.EmitOp(emitter.OpNot)
		}
		return ExprInfo{DataType: ashtype.DataType{TypeHash: hBool}}
	case "<", "<=", ">", ">=":
		switch v.Op {
		case ">", "<=":
			if _, d := ck.dispatchMethod(c, li.DataType, "opCmp", []ast.Expr{v.Right}, dspan); d != nil {
				c.ReportError(d)
				return ExprInfo{DataType: ashtype.DataType{TypeHash: hBool}}
			}
			ck.pushIntConst(0)
			intDT := ashtype.DataType{TypeHash: hInt32}
			ck.swapTopTwo(intDT, intDT)
			ck.em.EmitOp(emitter.OpLtI)
			if v.Op == "<=" {
				ck.em.EmitOp(emitter.OpNot)
			}
		default: // "<", ">="
			if _, d := ck.dispatchMethod(c, li.DataType, "opCmp", []ast.Expr{v.Right}, dspan); d != nil {
				c.ReportError(d)
				return ExprInfo{DataType: ashtype.DataType{TypeHash: hBool}}
			}
			ck.pushIntConst(0)
			ck.em.EmitOp(emitter.OpLtI)
			if v.Op == ">=" {
				ck.em.EmitOp(emitter.OpNot)
			}
		}
		return ExprInfo{DataType: ashtype.DataType{TypeHash: hBool}}
	}
	c.ReportError(diagnostic.New(diagnostic.NoOperator, dspan, "unsupported comparison %s on class operand", v.Op))
	return ExprInfo{DataType: ashtype.DataType{TypeHash: hBool}}
}

func (ck *Checker) inferUnary(c *ctx.Context, v *ast.UnaryExpr) ExprInfo {
	if v.Op == "++" || v.Op == "--" {
		return ck.inferPreIncDec(c, v)
	}
	info := ck.Infer(c, v.Operand)
	dspan := span2(v.Span)
	if p, ok := primitiveInfo(info.DataType.TypeHash); ok && !info.DataType.IsHandle {
		switch v.Op {
		case "-":
			if p.IsFloat {
				ck.em.EmitOp(emitter.OpNegF)
			} else {
				ck.em.EmitOp(emitter.OpNegI)
			}
			return info
		case "!":
			ck.em.EmitOp(emitter.OpNot)
			return ExprInfo{DataType: ashtype.DataType{TypeHash: hBool}}
		case "~":
			if p.IsFloat {
				c.ReportError(diagnostic.New(diagnostic.NoOperator, dspan, "operator ~ is not defined on floating-point operands"))
				return info
			}
			ck.em.EmitOp(emitter.OpBitCom)
			return info
		}
	}
	var name string
	switch v.Op {
	case "-":
		name = "opNeg"
	case "~":
		name = "opCom"
	default:
		c.ReportError(diagnostic.New(diagnostic.NoOperator, dspan, "operator %s is not defined on this operand type", v.Op))
		return info
	}
	if _, d := ck.dispatchMethod(c, info.DataType, name, nil, dspan); d != nil {
		c.ReportError(d)
		return info
	}
	return info
}

// inferPostfix handles ++ / -- (spec.md §4.10): requires an lvalue operand;
// post-form stashes the pre-mutation value in a temp and yields that.
func (ck *Checker) inferPostfix(c *ctx.Context, v *ast.PostfixExpr) ExprInfo {
	one := &ast.IntLit{Span: v.Span, Value: 1}
	op := "+="
	if v.Op == "--" {
		op = "-="
	}
	assign := &ast.AssignExpr{Span: v.Span, Op: op, Target: v.Operand, Value: one}

	// Evaluate the pre-mutation value first so the expression yields it.
	pre := ck.peekType(c, v.Operand)
	tmp := ck.newTemp(pre)
	ck.Infer(c, v.Operand)
	ck.em.EmitOp(emitter.OpStoreLocal)
	ck.em.EmitU8(uint8(tmp))

	ck.Infer(c, assign)
	ck.em.EmitOp(emitter.OpPop)

	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(tmp))
	return ExprInfo{DataType: pre}
}

// inferPreIncDec compiles prefix ++x/--x (represented as a UnaryExpr): the
// mutation is applied first and the expression yields the post-mutation
// value, unlike PostfixExpr's pre-mutation result.
func (ck *Checker) inferPreIncDec(c *ctx.Context, v *ast.UnaryExpr) ExprInfo {
	one := &ast.IntLit{Span: v.Span, Value: 1}
	op := "+="
	if v.Op == "--" {
		op = "-="
	}
	assign := &ast.AssignExpr{Span: v.Span, Op: op, Target: v.Operand, Value: one}
	return ck.Infer(c, assign)
}

// dispatchMethod resolves and emits a call to method name on a receiver
// already pushed on the stack, per spec.md §4.10's call-compilation rules:
// const-qualification is checked against the resolved method's traits, and
// missing trailing arguments are filled from the parameter's default
// expression.
func (ck *Checker) dispatchMethod(c *ctx.Context, receiverType ashtype.DataType, name string, args []ast.Expr, span diagnostic.Span) (*registry.FunctionEntry, *diagnostic.Diagnostic) {
	candidates := c.FindMethods(receiverType.TypeHash, name)
	if len(candidates) == 0 {
		return nil, diagnostic.New(diagnostic.MemberNotFound, span, "no method named %s on this type", name)
	}
	argTypes := make([]ashtype.DataType, len(args))
	for i, a := range args {
		argTypes[i] = ck.peekType(c, a)
	}
	entry, _, d := ck.ov.Resolve(c, candidates, argTypes, span)
	if d != nil {
		return nil, d
	}
	if receiverType.IsConst && !entry.Def.Traits.IsConst {
		return nil, diagnostic.New(diagnostic.ConstViolation, span, "cannot call non-const method %s on a const receiver", name)
	}
	for i, a := range args {
		ck.Check(c, a, entry.Def.Params[i].DataType)
	}
	for i := len(args); i < len(entry.Def.Params); i++ {
		ck.emitDefaultArg(c, entry.Def.Params[i], span)
	}
	idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(entry.Def.FuncHash)})
	ck.em.EmitOp(emitter.OpCallMethod)
	ck.em.EmitU16(idx)
	return entry, nil
}

// dispatchInterfaceMethod emits an interface call: the vtable slot is the
// method's position in entryType.Interface.Methods, looked up by name since
// the AST carries only the method name at the call site.
func (ck *Checker) dispatchInterfaceMethod(c *ctx.Context, entryType *registry.TypeEntry, recvType ashtype.DataType, v *ast.MethodCallExpr) ExprInfo {
	dspan := span2(v.Span)
	slot := -1
	var fn *registry.FunctionEntry
	for i, h := range entryType.Interface.Methods {
		if e, ok := c.GetFunction(h); ok && e.Def.Name == v.Name {
			slot = i
			fn = e
			break
		}
	}
	if slot < 0 {
		c.ReportError(diagnostic.New(diagnostic.MemberNotFound, dspan, "interface has no method named %s", v.Name))
		return ExprInfo{DataType: ashtype.Void()}
	}
	for i, a := range v.Args {
		if i < len(fn.Def.Params) {
			ck.Check(c, a, fn.Def.Params[i].DataType)
		} else {
			ck.Infer(c, a)
		}
	}
	for i := len(v.Args); i < len(fn.Def.Params); i++ {
		ck.emitDefaultArg(c, fn.Def.Params[i], dspan)
	}
	ifaceIdx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: recvType.TypeHash})
	ck.em.EmitOp(emitter.OpCallInterface)
	ck.em.EmitU16(ifaceIdx)
	ck.em.EmitU16(uint16(slot))
	return ExprInfo{DataType: fn.Def.ReturnType}
}

func (ck *Checker) inferMethodCall(c *ctx.Context, v *ast.MethodCallExpr) ExprInfo {
	recv := ck.Infer(c, v.Receiver)
	if entryType, ok := c.GetType(recv.DataType.TypeHash); ok && entryType.Kind == registry.KindInterface {
		return ck.dispatchInterfaceMethod(c, entryType, recv.DataType, v)
	}
	entry, d := ck.dispatchMethod(c, recv.DataType, v.Name, v.Args, span2(v.Span))
	if d != nil {
		c.ReportError(d)
		return ExprInfo{DataType: ashtype.Void()}
	}
	isRef := entry.Def.ReturnType.RefModifier != ashtype.RefNone
	return ExprInfo{
		DataType:  entry.Def.ReturnType,
		IsLValue:  isRef,
		IsMutable: isRef && entry.Def.ReturnType.RefModifier != ashtype.RefIn,
	}
}

// findPropertyChain walks classHash's base-class chain looking for a field
// or get_X/set_X property named name, loop-guarded against a cyclic base
// (which registration should already reject, but the checker doesn't trust
// that blindly).
func (ck *Checker) findPropertyChain(c *ctx.Context, classHash ashtype.TypeHash, name string) (registry.Property, bool) {
	seen := map[ashtype.TypeHash]bool{}
	h := classHash
	for h != 0 && !seen[h] {
		seen[h] = true
		entry, ok := c.GetType(h)
		if !ok || entry.Kind != registry.KindClass {
			return registry.Property{}, false
		}
		for _, p := range entry.Class.Properties {
			if p.Name == name {
				return p, true
			}
		}
		h = entry.Class.Base
	}
	return registry.Property{}, false
}

// loadPropertyValue emits the read of prop, assuming its receiver is
// already pushed on the stack.
func (ck *Checker) loadPropertyValue(c *ctx.Context, prop registry.Property, recvType ashtype.DataType, span diagnostic.Span) ExprInfo {
	if prop.IsField {
		idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstInt, Int: int64(prop.FieldIndex)})
		ck.em.EmitOp(emitter.OpLoadField)
		ck.em.EmitU16(idx)
		return ExprInfo{DataType: prop.DataType, IsLValue: true, IsMutable: !prop.DataType.IsConst && !recvType.IsConst}
	}
	if prop.Getter == 0 {
		c.ReportError(diagnostic.New(diagnostic.MemberNotFound, span, "property has no getter"))
		return ExprInfo{DataType: prop.DataType}
	}
	idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(prop.Getter)})
	ck.em.EmitOp(emitter.OpCallMethod)
	ck.em.EmitU16(idx)
	return ExprInfo{DataType: prop.DataType}
}

// loadMember resolves name as an implicit this.-prefixed class member read,
// ok=false if there is no enclosing receiver or no such member (spec.md
// §4.10's identifier-resolution order falls through to globals next).
func (ck *Checker) loadMember(c *ctx.Context, name string, span ast.Span) (ExprInfo, bool) {
	if ck.thisType == 0 {
		return ExprInfo{}, false
	}
	prop, ok := ck.findPropertyChain(c, ck.thisType, name)
	if !ok {
		return ExprInfo{}, false
	}
	ck.em.EmitOp(emitter.OpLoadThis)
	recvType := ashtype.DataType{TypeHash: ck.thisType, IsConst: ck.thisConst}
	return ck.loadPropertyValue(c, prop, recvType, span2(span)), true
}

func (ck *Checker) inferMember(c *ctx.Context, v *ast.MemberExpr) ExprInfo {
	recv := ck.Infer(c, v.Receiver)
	prop, ok := ck.findPropertyChain(c, recv.DataType.TypeHash, v.Name)
	if !ok {
		c.ReportError(diagnostic.New(diagnostic.MemberNotFound, span2(v.Span), "no member named %s", v.Name))
		return ExprInfo{DataType: ashtype.Void()}
	}
	return ck.loadPropertyValue(c, prop, recv.DataType, span2(v.Span))
}

// inferIdent resolves a bare identifier per spec.md §4.10's order: local,
// then implicit this. member, then global property, then a bare function
// name as a func-pointer rvalue.
func (ck *Checker) inferIdent(c *ctx.Context, v *ast.IdentExpr) ExprInfo {
	if li, ok := ck.sc.Lookup(v.Name); ok {
		ck.em.EmitOp(emitter.OpLoadLocal)
		ck.em.EmitU8(uint8(li.Slot))
		return ExprInfo{DataType: li.DataType, IsLValue: true, IsMutable: !li.IsConst}
	}
	if info, ok := ck.loadMember(c, v.Name, v.Span); ok {
		return info
	}
	if g, ok := c.ResolveGlobal(v.Name); ok {
		idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: g.Hash})
		ck.em.EmitOp(emitter.OpLoadGlobal)
		ck.em.EmitU16(idx)
		return ExprInfo{DataType: g.DataType, IsLValue: true, IsMutable: !g.IsConst}
	}
	if overloads := c.GetFunctionOverloads(v.Name); len(overloads) > 0 {
		idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(overloads[0].Def.FuncHash)})
		ck.em.EmitOp(emitter.OpFuncPtr)
		ck.em.EmitU16(idx)
		ck.em.EmitU8(0)
		return ExprInfo{DataType: ashtype.Void()}
	}
	c.ReportError(diagnostic.New(diagnostic.UndefinedVariable, span2(v.Span), "undefined identifier %s", v.Name))
	return ExprInfo{DataType: ashtype.Void()}
}

// inferQualified resolves a namespace-qualified reference: a global
// property first, then an enum value (second-to-last path segment names
// the enum type, the last its value).
func (ck *Checker) inferQualified(c *ctx.Context, v *ast.QualifiedExpr) ExprInfo {
	if len(v.Path) == 0 {
		return ExprInfo{DataType: ashtype.Void()}
	}
	name := v.Path[len(v.Path)-1]
	ns := ashtype.JoinQualified(v.Path[:len(v.Path)-1]...)
	if g, ok := c.GetGlobal(ashtype.FromQualifiedName(ns, name)); ok {
		idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: g.Hash})
		ck.em.EmitOp(emitter.OpLoadGlobal)
		ck.em.EmitU16(idx)
		return ExprInfo{DataType: g.DataType, IsLValue: true, IsMutable: !g.IsConst}
	}
	if len(v.Path) >= 2 {
		enumName := v.Path[len(v.Path)-2]
		enumNs := ashtype.JoinQualified(v.Path[:len(v.Path)-2]...)
		enumHash := ashtype.FromQualifiedName(enumNs, enumName)
		if entry, ok := c.GetType(enumHash); ok && entry.Kind == registry.KindEnum {
			for _, ev := range entry.Enum.Values {
				if ev.Name == name {
					idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstInt, Int: ev.Value, TypeHash: entry.Enum.UnderlyingHash})
					ck.em.EmitOp(emitter.OpPushConst)
					ck.em.EmitU16(idx)
					return ExprInfo{DataType: ashtype.DataType{TypeHash: enumHash}}
				}
			}
		}
	}
	c.ReportError(diagnostic.New(diagnostic.UndefinedVariable, span2(v.Span), "undefined qualified identifier %s", strings.Join(v.Path, "::")))
	return ExprInfo{DataType: ashtype.Void()}
}

func (ck *Checker) methodCandidatesFrom(c *ctx.Context, hashes []ashtype.FunctionHash) []*registry.FunctionEntry {
	var out []*registry.FunctionEntry
	for _, h := range hashes {
		if fn, ok := c.GetFunction(h); ok {
			out = append(out, fn)
		}
	}
	return out
}

// inferCall dispatches a call expression to one of three shapes (spec.md
// §4.10): a function-pointer indirect call (non-simple callee), an
// explicit `new T(...)`, or a simple name that resolves to either a free
// function or, failing that, a class type used as AngelScript's `T(args)`
// construction sugar.
func (ck *Checker) inferCall(c *ctx.Context, v *ast.CallExpr) ExprInfo {
	ident, isSimple := v.Callee.(*ast.IdentExpr)
	if !isSimple {
		return ck.inferFuncPtrCall(c, v)
	}
	if v.IsNew {
		return ck.inferConstructorCall(c, ident.Name, v)
	}
	if overloads := c.GetFunctionOverloads(ident.Name); len(overloads) > 0 {
		return ck.inferFreeFunctionCall(c, overloads, v)
	}
	if h, ok := c.ResolveType(ident.Name); ok {
		if entry, ok := c.GetType(h); ok && entry.Kind == registry.KindClass {
			return ck.inferConstructorCall(c, ident.Name, v)
		}
	}
	c.ReportError(diagnostic.New(diagnostic.FunctionNotFound, span2(v.Span), "undefined function %s", ident.Name))
	return ExprInfo{DataType: ashtype.Void()}
}

func (ck *Checker) inferFreeFunctionCall(c *ctx.Context, overloads []*registry.FunctionEntry, v *ast.CallExpr) ExprInfo {
	dspan := span2(v.Span)
	argTypes := make([]ashtype.DataType, len(v.Args))
	for i, a := range v.Args {
		argTypes[i] = ck.peekType(c, a)
	}
	entry, _, d := ck.ov.Resolve(c, overloads, argTypes, dspan)
	if d != nil {
		c.ReportError(d)
		for _, a := range v.Args {
			ck.Infer(c, a)
		}
		return ExprInfo{DataType: ashtype.Void()}
	}
	for i, a := range v.Args {
		ck.Check(c, a, entry.Def.Params[i].DataType)
	}
	for i := len(v.Args); i < len(entry.Def.Params); i++ {
		ck.emitDefaultArg(c, entry.Def.Params[i], dspan)
	}
	idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(entry.Def.FuncHash)})
	ck.em.EmitOp(emitter.OpCall)
	ck.em.EmitU16(idx)
	return ExprInfo{DataType: entry.Def.ReturnType}
}

// inferConstructorCall dispatches either OpNewFactory (reference types,
// spec.md's MemReference classes) or OpNew (value types) depending on the
// target class's memory kind.
func (ck *Checker) inferConstructorCall(c *ctx.Context, name string, v *ast.CallExpr) ExprInfo {
	dspan := span2(v.Span)
	h, ok := c.ResolveType(name)
	if !ok {
		c.ReportError(diagnostic.New(diagnostic.TypeNotFound, dspan, "unknown type %s", name))
		for _, a := range v.Args {
			ck.Infer(c, a)
		}
		return ExprInfo{DataType: ashtype.Void()}
	}
	entry, ok := c.GetType(h)
	if !ok || entry.Kind != registry.KindClass {
		c.ReportError(diagnostic.New(diagnostic.TypeNotFound, dspan, "%s is not a class type", name))
		for _, a := range v.Args {
			ck.Infer(c, a)
		}
		return ExprInfo{DataType: ashtype.DataType{TypeHash: h}}
	}
	isRef := entry.Class.Kind.Memory == registry.MemReference
	var hashes []ashtype.FunctionHash
	if isRef {
		hashes = entry.Class.Behaviors.Factories
	} else {
		hashes = entry.Class.Behaviors.Constructors
	}
	candidates := ck.methodCandidatesFrom(c, hashes)
	if len(candidates) == 0 {
		c.ReportError(diagnostic.New(diagnostic.NoDefaultConstructor, dspan, "%s has no matching constructor", name))
		for _, a := range v.Args {
			ck.Infer(c, a)
		}
		return ExprInfo{DataType: ashtype.DataType{TypeHash: h}}
	}
	argTypes := make([]ashtype.DataType, len(v.Args))
	for i, a := range v.Args {
		argTypes[i] = ck.peekType(c, a)
	}
	fn, _, d := ck.ov.Resolve(c, candidates, argTypes, dspan)
	if d != nil {
		c.ReportError(d)
		for _, a := range v.Args {
			ck.Infer(c, a)
		}
		return ExprInfo{DataType: ashtype.DataType{TypeHash: h}}
	}
	for i, a := range v.Args {
		ck.Check(c, a, fn.Def.Params[i].DataType)
	}
	for i := len(v.Args); i < len(fn.Def.Params); i++ {
		ck.emitDefaultArg(c, fn.Def.Params[i], dspan)
	}
	idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(fn.Def.FuncHash)})
	if isRef {
		ck.em.EmitOp(emitter.OpNewFactory)
	} else {
		ck.em.EmitOp(emitter.OpNew)
	}
	ck.em.EmitU16(idx)
	result := ashtype.DataType{TypeHash: h}
	if isRef {
		result = result.AsHandle()
	}
	return ExprInfo{DataType: result}
}

// inferFuncPtrCall emits an indirect call through a function-pointer-typed
// expression already on the stack (spec.md §4.10's calls section, the
// funcdef-typed-callee shape).
func (ck *Checker) inferFuncPtrCall(c *ctx.Context, v *ast.CallExpr) ExprInfo {
	fp := ck.Infer(c, v.Callee)
	for _, a := range v.Args {
		ck.Infer(c, a)
	}
	ck.em.EmitOp(emitter.OpCallIndirect)
	return ExprInfo{DataType: fp.DataType}
}

// inferIndex compiles receiver[index], preferring get_opIndex/set_opIndex
// over a plain opIndex (spec.md §4.10). forWrite selects the setter
// overload set when compiling the target of a plain `=` index assignment.
func (ck *Checker) inferIndex(c *ctx.Context, v *ast.IndexExpr, forWrite bool) ExprInfo {
	recv := ck.Infer(c, v.Receiver)
	dspan := span2(v.Span)
	name := "get_opIndex"
	if forWrite {
		name = "set_opIndex"
	}
	candidates := c.FindMethods(recv.DataType.TypeHash, name)
	if len(candidates) == 0 {
		candidates = c.FindMethods(recv.DataType.TypeHash, "opIndex")
	}
	if len(candidates) == 0 {
		c.ReportError(diagnostic.New(diagnostic.NoOperator, dspan, "type has no index operator"))
		ck.Infer(c, v.Index)
		return ExprInfo{DataType: ashtype.Void()}
	}
	idxType := ck.peekType(c, v.Index)
	entry, _, d := ck.ov.Resolve(c, candidates, []ashtype.DataType{idxType}, dspan)
	if d != nil {
		c.ReportError(d)
		ck.Infer(c, v.Index)
		return ExprInfo{DataType: ashtype.Void()}
	}
	ck.Check(c, v.Index, entry.Def.Params[0].DataType)
	idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(entry.Def.FuncHash)})
	ck.em.EmitOp(emitter.OpCallMethod)
	ck.em.EmitU16(idx)
	isRef := entry.Def.ReturnType.RefModifier != ashtype.RefNone
	return ExprInfo{
		DataType:  entry.Def.ReturnType,
		IsLValue:  isRef,
		IsMutable: isRef && entry.Def.ReturnType.RefModifier != ashtype.RefIn,
	}
}

// inferCast compiles cast<T>(e): any conversion-system rule applies, and
// failing that, a handle-to-handle cast is deferred to the runtime's
// checked OpCast (which may yield null on a failed downcast).
func (ck *Checker) inferCast(c *ctx.Context, v *ast.CastExpr) ExprInfo {
	dspan := span2(v.Span)
	target, d := ck.res.Resolve(c, v.Target)
	if d != nil {
		c.ReportError(d)
		ck.Infer(c, v.Operand)
		return ExprInfo{DataType: ashtype.Void()}
	}
	info := ck.Infer(c, v.Operand)
	if conv, ok := conversion.Find(c, info.DataType, target); ok {
		ck.applyConversion(conv, info.DataType)
		return ExprInfo{DataType: target}
	}
	if target.IsHandle && info.DataType.IsHandle {
		idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: target.TypeHash})
		ck.em.EmitOp(emitter.OpCast)
		ck.em.EmitU16(idx)
		return ExprInfo{DataType: target}
	}
	c.ReportError(diagnostic.New(diagnostic.ConversionError, dspan, "no conversion exists for cast").
		WithTypes(target.TypeHash.String(), info.DataType.TypeHash.String()))
	return ExprInfo{DataType: target}
}

// commonTernaryType finds a conversion-system common type for two ternary
// branches, per spec.md §4.10's ternary section.
func (ck *Checker) commonTernaryType(c *ctx.Context, a, b ashtype.DataType) (ashtype.DataType, bool) {
	if a.Equal(b) {
		return a, true
	}
	if _, ok := conversion.FindImplicit(c, b, a); ok {
		return a, true
	}
	if _, ok := conversion.FindImplicit(c, a, b); ok {
		return b, true
	}
	return ashtype.DataType{}, false
}

func (ck *Checker) inferTernary(c *ctx.Context, v *ast.TernaryExpr) ExprInfo {
	ck.Check(c, v.Cond, ashtype.DataType{TypeHash: hBool})
	elseJump := ck.em.EmitJump(emitter.OpJumpIfFalse)
	ck.em.EmitOp(emitter.OpPop)

	thenType := ck.peekType(c, v.Then)
	elseType := ck.peekType(c, v.Else)
	common, ok := ck.commonTernaryType(c, thenType, elseType)
	if !ok {
		c.ReportError(diagnostic.New(diagnostic.TypeMismatch, span2(v.Span), "ternary branches have no common type").
			WithTypes(thenType.TypeHash.String(), elseType.TypeHash.String()))
		common = thenType
	}

	ck.Check(c, v.Then, common)
	endJump := ck.em.EmitJump(emitter.OpJump)
	ck.em.PatchJump(elseJump)
	ck.em.EmitOp(emitter.OpPop)
	ck.Check(c, v.Else, common)
	ck.em.PatchJump(endJump)
	return ExprInfo{DataType: common}
}

// inferLambda compiles a lambda body in a fresh nested scope frame, per
// spec.md §4.10's lambda section: the body is a statement list (compiled
// via the statement compiler), captures are recorded automatically by
// Scope.Lookup walking out past the lambda's own frame, and the lambda
// itself becomes a func-pointer rvalue carrying its captures.
func (ck *Checker) inferLambda(c *ctx.Context, v *ast.LambdaExpr) ExprInfo {
	ck.sc.PushFrame()
	for _, p := range v.Params {
		var dt ashtype.DataType
		if p.Type != nil {
			if rdt, d := ck.res.Resolve(c, p.Type); d == nil {
				dt = rdt
			} else {
				c.ReportError(d)
			}
		}
		ck.sc.DeclareLocal(p.Name, dt, false, false)
	}

	ck.compileBlock(c, v.Body)

	captures := ck.sc.Captures()
	ck.sc.PopFrame()

	ck.tempCounter++
	fh := ashtype.FromName(fmt.Sprintf("$lambda%d", ck.tempCounter))
	idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: fh})
	ck.em.EmitOp(emitter.OpFuncPtr)
	ck.em.EmitU16(idx)
	ck.em.EmitU8(uint8(len(captures)))
	for _, cv := range captures {
		ck.em.EmitOp(emitter.OpLoadLocal)
		ck.em.EmitU8(uint8(cv.OuterSlot))
	}
	return ExprInfo{DataType: ashtype.Void()}
}

// inferInitList handles a bare `{...}` with no context type: AngelScript
// requires one (a var-decl type or a call's parameter type), so this path
// only runs when none was available and always reports TypeMismatch.
func (ck *Checker) inferInitList(c *ctx.Context, v *ast.InitListExpr) ExprInfo {
	c.ReportError(diagnostic.New(diagnostic.TypeMismatch, span2(v.Span), "initializer list has no usable context type"))
	for _, el := range v.Elements {
		ck.Infer(c, el)
	}
	return ExprInfo{DataType: ashtype.Void()}
}

// checkInitList compiles `{e1, e2, ...}` against expected's list_factory
// (reference types) or list_construct (value types) behavior, per spec.md
// §4.10's init-list section.
func (ck *Checker) checkInitList(c *ctx.Context, v *ast.InitListExpr, expected ashtype.DataType) ExprInfo {
	dspan := span2(v.Span)
	entry, ok := c.GetType(expected.TypeHash)
	if !ok || entry.Kind != registry.KindClass {
		c.ReportError(diagnostic.New(diagnostic.TypeMismatch, dspan, "type has no list constructor"))
		for _, el := range v.Elements {
			ck.Infer(c, el)
		}
		return ExprInfo{DataType: expected}
	}
	isRef := entry.Class.Kind.Memory == registry.MemReference
	var listFn ashtype.FunctionHash
	if isRef {
		listFn = entry.Class.Behaviors.ListFactory
	} else {
		listFn = entry.Class.Behaviors.ListConstruct
	}
	if listFn == 0 {
		c.ReportError(diagnostic.New(diagnostic.NoDefaultConstructor, dspan, "%s has no list constructor", entry.QualifiedName))
		for _, el := range v.Elements {
			ck.Infer(c, el)
		}
		return ExprInfo{DataType: expected}
	}
	ck.em.EmitOp(emitter.OpInitListBegin)
	ck.em.EmitU16(uint16(len(v.Elements)))
	for _, el := range v.Elements {
		ck.Infer(c, el)
	}
	ck.em.EmitOp(emitter.OpInitListEnd)
	idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(listFn)})
	if isRef {
		ck.em.EmitOp(emitter.OpNewFactory)
	} else {
		ck.em.EmitOp(emitter.OpNew)
	}
	ck.em.EmitU16(idx)
	result := expected
	if isRef {
		result = result.AsHandle()
	}
	return ExprInfo{DataType: result}
}

// inferAssign dispatches an assignment/compound-assignment by target shape.
func (ck *Checker) inferAssign(c *ctx.Context, v *ast.AssignExpr) ExprInfo {
	switch t := v.Target.(type) {
	case *ast.IdentExpr:
		return ck.assignIdent(c, v, t)
	case *ast.MemberExpr:
		return ck.assignMember(c, v, t)
	case *ast.IndexExpr:
		if v.Op == "=" {
			return ck.assignIndex(c, v, t)
		}
		return ck.assignIndexCompound(c, v, t)
	default:
		c.ReportError(diagnostic.New(diagnostic.NotAssignable, span2(v.Span), "left-hand side is not assignable"))
		ck.Infer(c, v.Value)
		return ExprInfo{DataType: ashtype.Void()}
	}
}

func (ck *Checker) assignIdent(c *ctx.Context, v *ast.AssignExpr, t *ast.IdentExpr) ExprInfo {
	dspan := span2(v.Span)
	if li, ok := ck.sc.Lookup(t.Name); ok {
		if li.IsConst {
			c.ReportError(diagnostic.New(diagnostic.ConstViolation, dspan, "cannot assign to const local %s", t.Name))
		}
		if v.Op == "=" {
			ck.Check(c, v.Value, li.DataType)
		} else {
			ck.em.EmitOp(emitter.OpLoadLocal)
			ck.em.EmitU8(uint8(li.Slot))
			ck.combinePrimitiveOrOperator(c, v.Op, li.DataType, v.Value, v.Span)
		}
		ck.em.EmitOp(emitter.OpDup)
		ck.em.EmitOp(emitter.OpStoreLocal)
		ck.em.EmitU8(uint8(li.Slot))
		return ExprInfo{DataType: li.DataType}
	}
	if ck.thisType != 0 {
		if _, ok := ck.findPropertyChain(c, ck.thisType, t.Name); ok {
			return ck.assignImplicitThisMember(c, v, t.Name, dspan)
		}
	}
	if g, ok := c.ResolveGlobal(t.Name); ok {
		return ck.assignGlobal(c, v, g, dspan)
	}
	c.ReportError(diagnostic.New(diagnostic.UndefinedVariable, dspan, "undefined identifier %s", t.Name))
	ck.Infer(c, v.Value)
	return ExprInfo{DataType: ashtype.Void()}
}

func (ck *Checker) assignGlobal(c *ctx.Context, v *ast.AssignExpr, g *registry.GlobalPropertyEntry, span diagnostic.Span) ExprInfo {
	if g.IsConst {
		c.ReportError(diagnostic.New(diagnostic.ConstViolation, span, "cannot assign to const global %s", g.Name))
	}
	idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: g.Hash})
	if v.Op == "=" {
		ck.Check(c, v.Value, g.DataType)
	} else {
		ck.em.EmitOp(emitter.OpLoadGlobal)
		ck.em.EmitU16(idx)
		ck.combinePrimitiveOrOperator(c, v.Op, g.DataType, v.Value, v.Span)
	}
	ck.em.EmitOp(emitter.OpDup)
	ck.em.EmitOp(emitter.OpStoreGlobal)
	ck.em.EmitU16(idx)
	return ExprInfo{DataType: g.DataType}
}

// assignProperty is the shared engine behind both explicit-receiver member
// assignment and implicit this.-member assignment, parameterized by a
// receiver-emission closure so the same field/property, simple/compound
// logic serves both (spec.md §4.10's assignment section: "evaluate base
// once, keep intermediate on stack").
func (ck *Checker) assignProperty(c *ctx.Context, emitReceiver func(), receiverType ashtype.DataType, name string, v *ast.AssignExpr, span diagnostic.Span) ExprInfo {
	prop, ok := ck.findPropertyChain(c, receiverType.TypeHash, name)
	if !ok {
		c.ReportError(diagnostic.New(diagnostic.MemberNotFound, span, "no member named %s", name))
		ck.Infer(c, v.Value)
		return ExprInfo{DataType: ashtype.Void()}
	}

	if prop.IsField {
		if receiverType.IsConst {
			c.ReportError(diagnostic.New(diagnostic.ConstViolation, span, "cannot assign to field %s through a const receiver", name))
		}
		emitReceiver()
		if v.Op == "=" {
			ck.Check(c, v.Value, prop.DataType)
		} else {
			ck.em.EmitOp(emitter.OpDup)
			fidx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstInt, Int: int64(prop.FieldIndex)})
			ck.em.EmitOp(emitter.OpLoadField)
			ck.em.EmitU16(fidx)
			ck.combinePrimitiveOrOperator(c, v.Op, prop.DataType, v.Value, v.Span)
		}
		tmp := ck.newTemp(prop.DataType)
		ck.em.EmitOp(emitter.OpStoreLocal)
		ck.em.EmitU8(uint8(tmp))
		sidx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstInt, Int: int64(prop.FieldIndex)})
		ck.em.EmitOp(emitter.OpLoadLocal)
		ck.em.EmitU8(uint8(tmp))
		ck.em.EmitOp(emitter.OpStoreField)
		ck.em.EmitU16(sidx)
		ck.em.EmitOp(emitter.OpLoadLocal)
		ck.em.EmitU8(uint8(tmp))
		return ExprInfo{DataType: prop.DataType}
	}

	if prop.Setter == 0 {
		c.ReportError(diagnostic.New(diagnostic.NotAssignable, span, "property %s has no setter", name))
		ck.Infer(c, v.Value)
		return ExprInfo{DataType: prop.DataType}
	}
	if v.Op == "=" {
		emitReceiver()
		ck.Check(c, v.Value, prop.DataType)
	} else {
		if prop.Getter == 0 {
			c.ReportError(diagnostic.New(diagnostic.MemberNotFound, span, "property %s has no getter", name))
			ck.Infer(c, v.Value)
			return ExprInfo{DataType: prop.DataType}
		}
		emitReceiver()
		ck.em.EmitOp(emitter.OpDup)
		gidx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(prop.Getter)})
		ck.em.EmitOp(emitter.OpCallMethod)
		ck.em.EmitU16(gidx)
		ck.combinePrimitiveOrOperator(c, v.Op, prop.DataType, v.Value, v.Span)
	}
	tmp := ck.newTemp(prop.DataType)
	ck.em.EmitOp(emitter.OpStoreLocal)
	ck.em.EmitU8(uint8(tmp))
	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(tmp))
	sidx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(prop.Setter)})
	ck.em.EmitOp(emitter.OpCallMethod)
	ck.em.EmitU16(sidx)
	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(tmp))
	return ExprInfo{DataType: prop.DataType}
}

func (ck *Checker) assignMember(c *ctx.Context, v *ast.AssignExpr, t *ast.MemberExpr) ExprInfo {
	recvType := ck.peekType(c, t.Receiver)
	emitReceiver := func() { ck.Infer(c, t.Receiver) }
	return ck.assignProperty(c, emitReceiver, recvType, t.Name, v, span2(t.Span))
}

func (ck *Checker) assignImplicitThisMember(c *ctx.Context, v *ast.AssignExpr, name string, span diagnostic.Span) ExprInfo {
	recvType := ashtype.DataType{TypeHash: ck.thisType, IsConst: ck.thisConst}
	emitReceiver := func() { ck.em.EmitOp(emitter.OpLoadThis) }
	return ck.assignProperty(c, emitReceiver, recvType, name, v, span)
}

func (ck *Checker) assignIndex(c *ctx.Context, v *ast.AssignExpr, t *ast.IndexExpr) ExprInfo {
	dspan := span2(v.Span)
	recv := ck.Infer(c, t.Receiver)
	candidates := c.FindMethods(recv.DataType.TypeHash, "set_opIndex")
	if len(candidates) == 0 {
		c.ReportError(diagnostic.New(diagnostic.NotAssignable, dspan, "type has no index setter"))
		ck.Infer(c, t.Index)
		ck.Infer(c, v.Value)
		return ExprInfo{DataType: ashtype.Void()}
	}
	idxType := ck.peekType(c, t.Index)
	valType := ck.peekType(c, v.Value)
	entry, _, d := ck.ov.Resolve(c, candidates, []ashtype.DataType{idxType, valType}, dspan)
	if d != nil {
		c.ReportError(d)
		ck.Infer(c, t.Index)
		ck.Infer(c, v.Value)
		return ExprInfo{DataType: ashtype.Void()}
	}
	ck.Check(c, t.Index, entry.Def.Params[0].DataType)
	ck.Check(c, v.Value, entry.Def.Params[1].DataType)
	idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(entry.Def.FuncHash)})
	ck.em.EmitOp(emitter.OpCallMethod)
	ck.em.EmitU16(idx)
	return ExprInfo{DataType: entry.Def.Params[1].DataType}
}

// assignIndexCompound materializes the receiver and index into temps so
// both the getter and setter calls can reuse them without re-evaluating
// either expression (spec.md §4.10's "evaluate base once" rule).
func (ck *Checker) assignIndexCompound(c *ctx.Context, v *ast.AssignExpr, t *ast.IndexExpr) ExprInfo {
	dspan := span2(v.Span)
	recvType := ck.peekType(c, t.Receiver)
	idxType := ck.peekType(c, t.Index)

	getCandidates := c.FindMethods(recvType.TypeHash, "get_opIndex")
	setCandidates := c.FindMethods(recvType.TypeHash, "set_opIndex")
	if len(getCandidates) == 0 || len(setCandidates) == 0 {
		c.ReportError(diagnostic.New(diagnostic.NotAssignable, dspan, "type has no indexed get/set pair for compound assignment"))
		ck.Infer(c, t.Receiver)
		ck.Infer(c, t.Index)
		ck.Infer(c, v.Value)
		return ExprInfo{DataType: ashtype.Void()}
	}

	getEntry, _, gd := ck.ov.Resolve(c, getCandidates, []ashtype.DataType{idxType}, dspan)
	if gd != nil {
		c.ReportError(gd)
		ck.Infer(c, t.Receiver)
		ck.Infer(c, t.Index)
		ck.Infer(c, v.Value)
		return ExprInfo{DataType: ashtype.Void()}
	}

	recvTmp := ck.newTemp(recvType)
	ck.Infer(c, t.Receiver)
	ck.em.EmitOp(emitter.OpStoreLocal)
	ck.em.EmitU8(uint8(recvTmp))

	idxTmp := ck.newTemp(idxType)
	ck.Infer(c, t.Index)
	ck.em.EmitOp(emitter.OpStoreLocal)
	ck.em.EmitU8(uint8(idxTmp))

	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(recvTmp))
	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(idxTmp))
	gidx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(getEntry.Def.FuncHash)})
	ck.em.EmitOp(emitter.OpCallMethod)
	ck.em.EmitU16(gidx)

	combined := ck.combinePrimitiveOrOperator(c, v.Op, getEntry.Def.ReturnType, v.Value, v.Span)

	setEntry, _, sd := ck.ov.Resolve(c, setCandidates, []ashtype.DataType{idxType, combined.DataType}, dspan)
	if sd != nil {
		c.ReportError(sd)
		return combined
	}

	valTmp := ck.newTemp(combined.DataType)
	ck.em.EmitOp(emitter.OpStoreLocal)
	ck.em.EmitU8(uint8(valTmp))

	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(recvTmp))
	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(idxTmp))
	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(valTmp))
	sidx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(setEntry.Def.FuncHash)})
	ck.em.EmitOp(emitter.OpCallMethod)
	ck.em.EmitU16(sidx)

	ck.em.EmitOp(emitter.OpLoadLocal)
	ck.em.EmitU8(uint8(valTmp))
	return ExprInfo{DataType: combined.DataType}
}

// peekType infers e's type without emitting bytecode, used only to choose
// which overload a call/index argument resolves to before the real,
// emitting Check() recompiles the actual conversion (spec.md §4.10 doesn't
// mandate a specific two-pass shape here; this bounds the approximation to
// overload selection, never to the bytecode finally emitted for the arg).
func (ck *Checker) peekType(c *ctx.Context, e ast.Expr) ashtype.DataType {
	switch v := e.(type) {
	case *ast.IntLit:
		return ashtype.DataType{TypeHash: hInt32}
	case *ast.FloatLit:
		if v.IsSingle {
			return ashtype.DataType{TypeHash: hFloat}
		}
		return ashtype.DataType{TypeHash: hDouble}
	case *ast.StringLit:
		return ashtype.DataType{TypeHash: hString}
	case *ast.BoolLit:
		return ashtype.DataType{TypeHash: hBool}
	case *ast.NullLit:
		return ashtype.Null()
	case *ast.IdentExpr:
		if li, ok := ck.sc.Lookup(v.Name); ok {
			return li.DataType
		}
		if ck.thisType != 0 {
			if t, ok := ck.memberType(c, ck.thisType, v.Name); ok {
				return t
			}
		}
		if g, ok := c.ResolveGlobal(v.Name); ok {
			return g.DataType
		}
		return ashtype.Void()
	case *ast.QualifiedExpr:
		return ashtype.Void()
	case *ast.BinaryExpr:
		if isComparisonOp(v.Op) || v.Op == "&&" || v.Op == "||" {
			return ashtype.DataType{TypeHash: hBool}
		}
		lt := ck.peekType(c, v.Left)
		rt := ck.peekType(c, v.Right)
		if lp, lok := primitiveInfo(lt.TypeHash); lok {
			if rp, rok := primitiveInfo(rt.TypeHash); rok {
				return ashtype.DataType{TypeHash: primitiveHash(commonPrimitive(lp, rp))}
			}
		}
		return lt
	case *ast.UnaryExpr:
		if v.Op == "!" {
			return ashtype.DataType{TypeHash: hBool}
		}
		return ck.peekType(c, v.Operand)
	case *ast.PostfixExpr:
		return ck.peekType(c, v.Operand)
	case *ast.AssignExpr:
		return ck.peekType(c, v.Target)
	case *ast.MemberExpr:
		recvType := ck.peekType(c, v.Receiver)
		if t, ok := ck.propertyType(c, recvType.TypeHash, v.Name); ok {
			return t
		}
		return ashtype.Void()
	case *ast.IndexExpr:
		recvType := ck.peekType(c, v.Receiver)
		return ck.indexElementType(c, recvType.TypeHash)
	case *ast.CallExpr:
		return ck.peekCallType(c, v)
	case *ast.MethodCallExpr:
		recvType := ck.peekType(c, v.Receiver)
		if candidates := c.FindMethods(recvType.TypeHash, v.Name); len(candidates) > 0 {
			return candidates[0].Def.ReturnType
		}
		return ashtype.Void()
	case *ast.CastExpr:
		if dt, d := ck.res.Resolve(c, v.Target); d == nil {
			return dt
		}
		return ashtype.Void()
	case *ast.TernaryExpr:
		return ck.peekType(c, v.Then)
	default:
		return ashtype.Void()
	}
}

func (ck *Checker) memberType(c *ctx.Context, classHash ashtype.TypeHash, name string) (ashtype.DataType, bool) {
	prop, ok := ck.findPropertyChain(c, classHash, name)
	if !ok {
		return ashtype.DataType{}, false
	}
	return prop.DataType, true
}

func (ck *Checker) propertyType(c *ctx.Context, classHash ashtype.TypeHash, name string) (ashtype.DataType, bool) {
	return ck.memberType(c, classHash, name)
}

func (ck *Checker) indexElementType(c *ctx.Context, classHash ashtype.TypeHash) ashtype.DataType {
	candidates := c.FindMethods(classHash, "get_opIndex")
	if len(candidates) == 0 {
		candidates = c.FindMethods(classHash, "opIndex")
	}
	if len(candidates) > 0 {
		return candidates[0].Def.ReturnType
	}
	return ashtype.Void()
}

func (ck *Checker) peekCallType(c *ctx.Context, v *ast.CallExpr) ashtype.DataType {
	ident, ok := v.Callee.(*ast.IdentExpr)
	if !ok {
		return ashtype.Void()
	}
	if overloads := c.GetFunctionOverloads(ident.Name); len(overloads) > 0 {
		return overloads[0].Def.ReturnType
	}
	if h, ok := c.ResolveType(ident.Name); ok {
		return ashtype.DataType{TypeHash: h}
	}
	return ashtype.Void()
}

// pushZero emits a zero-value literal for dt, used when a required
// argument is missing and has no default expression to fall back on.
func (ck *Checker) pushZero(dt ashtype.DataType) {
	if dt.IsHandle {
		ck.em.EmitOp(emitter.OpPushNull)
		return
	}
	if pf, ok := primitiveInfo(dt.TypeHash); ok {
		switch {
		case pf.Kind == ashtype.PrimBool:
			ck.em.EmitOp(emitter.OpPushFalse)
		case pf.IsFloat && pf.Kind == ashtype.PrimFloat:
			idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstF32, F32: 0, TypeHash: dt.TypeHash})
			ck.em.EmitOp(emitter.OpPushConst)
			ck.em.EmitU16(idx)
		case pf.IsFloat:
			idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstF64, F64: 0, TypeHash: dt.TypeHash})
			ck.em.EmitOp(emitter.OpPushConst)
			ck.em.EmitU16(idx)
		case pf.Kind == ashtype.PrimString:
			idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstString, Str: "", TypeHash: dt.TypeHash})
			ck.em.EmitOp(emitter.OpPushConst)
			ck.em.EmitU16(idx)
		default:
			idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstInt, Int: 0, TypeHash: dt.TypeHash})
			ck.em.EmitOp(emitter.OpPushConst)
			ck.em.EmitU16(idx)
		}
		return
	}
	ck.em.EmitOp(emitter.OpPushNull)
}

// emitDefaultArg fills a missing trailing call argument from p's default
// expression, reporting WrongArgCount and emitting a placeholder zero/null
// value if p has none (a required parameter the caller under-supplied).
func (ck *Checker) emitDefaultArg(c *ctx.Context, p registry.Param, span diagnostic.Span) {
	if p.DefaultExpr == nil {
		c.ReportError(diagnostic.New(diagnostic.WrongArgCount, span, "missing required argument"))
		ck.pushZero(p.DataType)
		return
	}
	ck.emitDefaultExprNode(c, p.DefaultExpr, p.DataType, span)
}

// emitDefaultExprNode compiles a registered default-argument expression
// tree (spec.md §4.9's DefaultExpr) against the parameter's declared type.
func (ck *Checker) emitDefaultExprNode(c *ctx.Context, de *registry.DefaultExpr, targetType ashtype.DataType, span diagnostic.Span) {
	isFloatTarget := targetType.TypeHash == hFloat || targetType.TypeHash == hDouble
	switch de.Kind {
	case registry.DefaultLiteralInt:
		idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstInt, Int: de.IntValue, TypeHash: targetType.TypeHash})
		ck.em.EmitOp(emitter.OpPushConst)
		ck.em.EmitU16(idx)
	case registry.DefaultLiteralFloat:
		if targetType.TypeHash == hFloat {
			idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstF32, F32: float32(de.FloatValue), TypeHash: targetType.TypeHash})
			ck.em.EmitOp(emitter.OpPushConst)
			ck.em.EmitU16(idx)
		} else {
			idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstF64, F64: de.FloatValue, TypeHash: targetType.TypeHash})
			ck.em.EmitOp(emitter.OpPushConst)
			ck.em.EmitU16(idx)
		}
	case registry.DefaultLiteralBool:
		if de.BoolValue {
			ck.em.EmitOp(emitter.OpPushTrue)
		} else {
			ck.em.EmitOp(emitter.OpPushFalse)
		}
	case registry.DefaultLiteralString:
		idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstString, Str: de.StringValue, TypeHash: hString})
		ck.em.EmitOp(emitter.OpPushConst)
		ck.em.EmitU16(idx)
	case registry.DefaultLiteralNull:
		ck.em.EmitOp(emitter.OpPushNull)
	case registry.DefaultNegate:
		ck.emitDefaultExprNode(c, de.Operand, targetType, span)
		if isFloatTarget {
			ck.em.EmitOp(emitter.OpNegF)
		} else {
			ck.em.EmitOp(emitter.OpNegI)
		}
	case registry.DefaultEnumRef:
		if entry, ok := c.GetType(de.EnumType); ok && entry.Kind == registry.KindEnum {
			for _, ev := range entry.Enum.Values {
				if ev.Name == de.EnumName {
					idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstInt, Int: ev.Value, TypeHash: entry.Enum.UnderlyingHash})
					ck.em.EmitOp(emitter.OpPushConst)
					ck.em.EmitU16(idx)
					return
				}
			}
		}
		ck.pushIntConst(0)
	case registry.DefaultConstructorCall:
		for i := range de.CtorArgs {
			argCopy := de.CtorArgs[i]
			ck.emitDefaultExprNode(c, &argCopy, targetType, span)
		}
		entry, ok := c.GetType(de.CtorType)
		if !ok || entry.Kind != registry.KindClass {
			return
		}
		isRef := entry.Class.Kind.Memory == registry.MemReference
		var hashes []ashtype.FunctionHash
		if isRef {
			hashes = entry.Class.Behaviors.Factories
		} else {
			hashes = entry.Class.Behaviors.Constructors
		}
		for _, h := range hashes {
			fn, ok := c.GetFunction(h)
			if !ok || len(fn.Def.Params) != len(de.CtorArgs) {
				continue
			}
			idx := ck.em.EmitConstant(registry.Constant{Kind: registry.ConstTypeHash, TypeHash: ashtype.TypeHash(h)})
			if isRef {
				ck.em.EmitOp(emitter.OpNewFactory)
			} else {
				ck.em.EmitOp(emitter.OpNew)
			}
			ck.em.EmitU16(idx)
			return
		}
	case registry.DefaultUnary:
		ck.emitDefaultExprNode(c, de.Operand, targetType, span)
		switch de.Op {
		case "-":
			if isFloatTarget {
				ck.em.EmitOp(emitter.OpNegF)
			} else {
				ck.em.EmitOp(emitter.OpNegI)
			}
		case "!":
			ck.em.EmitOp(emitter.OpNot)
		case "~":
			ck.em.EmitOp(emitter.OpBitCom)
		}
	case registry.DefaultBinary:
		ck.emitDefaultExprNode(c, de.Left, targetType, span)
		ck.emitDefaultExprNode(c, de.Right, targetType, span)
		if p, ok := primitiveInfo(targetType.TypeHash); ok {
			ck.emitArithOrBitwiseOp(c, de.Op, p, span)
		}
	}
}
