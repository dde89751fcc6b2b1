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

// Package conversion implements the fixed conversion-cost system (spec.md
// §4.5): given two DataTypes, find_conversion returns the cheapest rule that
// bridges them, or reports that none exists.
package conversion

import (
	"github.com/ashlabs/ashc/internal/ashtype"
	"github.com/ashlabs/ashc/internal/ctx"
	"github.com/ashlabs/ashc/internal/registry"
)

// Kind tags which rule a Conversion was found by.
type Kind uint8

const (
	None Kind = iota
	Identity
	Primitive
	NullToHandle
	HandleToConst
	ValueToHandle
	DerivedToBase
	ClassToInterface
	ConstructorConversion
	ImplicitConvMethod
	ExplicitCastMethod
	EnumToInt
	IntToEnum
)

// Fixed per-rule costs, pinned by spec.md §4.5's cost table.
const (
	CostIdentity     uint32 = 0
	CostConstAdd     uint32 = 1
	CostWidening     uint32 = 2
	CostNarrowing    uint32 = 4
	CostDerivedBase  uint32 = 5
	CostInterface    uint32 = 6
	CostHandleRule   uint32 = 1
	CostUserImplicit uint32 = 10
	CostExplicitOnly uint32 = 100
)

// Conversion is the result of find_conversion: which rule applied, its cost,
// and whether it is usable in an implicit context.
type Conversion struct {
	Kind       Kind
	Cost       uint32
	IsImplicit bool

	// FromPrim/ToPrim are populated for Kind == Primitive/EnumToInt/IntToEnum.
	FromPrim ashtype.PrimitiveKind
	ToPrim   ashtype.PrimitiveKind

	// Method is populated for ConstructorConversion/ImplicitConvMethod/
	// ExplicitCastMethod: the function hash to call.
	Method ashtype.FunctionHash
}

// Find implements find_conversion(from, to, ctx) (spec.md §4.5), trying
// every rule in the spec's fixed order and returning the first that
// matches. There is at most one applicable rule per (from, to) pair, so
// "first that matches" and "cheapest" coincide; the order mirrors the
// spec's numbered algorithm exactly.
func Find(c *ctx.Context, from, to ashtype.DataType) (Conversion, bool) {
	if conv, ok := identity(from, to); ok {
		return conv, true
	}
	if conv, ok := primitiveTable(c, from, to); ok {
		return conv, true
	}
	if conv, ok := handleRules(from, to); ok {
		return conv, true
	}
	if conv, ok := hierarchy(c, from, to); ok {
		return conv, true
	}
	if conv, ok := userDefined(c, from, to); ok {
		return conv, true
	}
	return Conversion{}, false
}

// FindImplicit is Find restricted to implicit rules, the form the overload
// resolver and checker's `check` use everywhere except an explicit cast.
func FindImplicit(c *ctx.Context, from, to ashtype.DataType) (Conversion, bool) {
	conv, ok := Find(c, from, to)
	if !ok || !conv.IsImplicit {
		return Conversion{}, false
	}
	return conv, true
}

func identity(from, to ashtype.DataType) (Conversion, bool) {
	if from.TypeHash != to.TypeHash {
		return Conversion{}, false
	}
	switch {
	case from.IsHandle == to.IsHandle && from.IsHandleToConst == to.IsHandleToConst && from.IsConst == to.IsConst:
		return Conversion{Kind: Identity, Cost: CostIdentity, IsImplicit: true}, true
	case !from.IsHandle && !to.IsHandle && !from.IsConst && to.IsConst:
		return Conversion{Kind: Identity, Cost: CostConstAdd, IsImplicit: true}, true
	case from.IsHandle && to.IsHandle && !from.IsHandleToConst && to.IsHandleToConst:
		return Conversion{Kind: HandleToConst, Cost: CostHandleRule, IsImplicit: true}, true
	case !from.IsHandle && to.IsHandle:
		// T -> T@: only permitted explicitly.
		return Conversion{Kind: ValueToHandle, Cost: CostExplicitOnly, IsImplicit: false}, true
	}
	return Conversion{}, false
}

// effectivePrimitive resolves h to its PrimitiveInfo, substituting an enum's
// underlying integer type per spec.md §4.5 ("enum is treated as its
// underlying int for this table").
func effectivePrimitive(c *ctx.Context, h ashtype.TypeHash) (ashtype.PrimitiveInfo, bool, bool) {
	if p, ok := ashtype.LookupPrimitive(h); ok {
		return p, true, false
	}
	entry, ok := c.GetType(h)
	if !ok || entry.Kind != registry.KindEnum {
		return ashtype.PrimitiveInfo{}, false, false
	}
	p, ok := ashtype.LookupPrimitive(entry.Enum.UnderlyingHash)
	return p, ok, true
}

func primitiveTable(c *ctx.Context, from, to ashtype.DataType) (Conversion, bool) {
	if from.IsHandle || to.IsHandle {
		return Conversion{}, false
	}
	fp, fOk, fEnum := effectivePrimitive(c, from.TypeHash)
	tp, tOk, tEnum := effectivePrimitive(c, to.TypeHash)
	if !fOk || !tOk {
		return Conversion{}, false
	}
	if fp.Kind == tp.Kind && !fEnum && !tEnum {
		return Conversion{}, false // handled by identity()
	}
	if fp.Kind == ashtype.PrimBool || tp.Kind == ashtype.PrimBool {
		return Conversion{}, false
	}
	if fp.Kind == ashtype.PrimString || tp.Kind == ashtype.PrimString {
		return Conversion{}, false
	}

	kind := Primitive
	switch {
	case fEnum && !tEnum:
		kind = EnumToInt
	case tEnum && !fEnum:
		kind = IntToEnum
	}

	widening := widens(fp, tp)
	cost := CostNarrowing
	if widening {
		cost = CostWidening
	}
	return Conversion{Kind: kind, Cost: cost, IsImplicit: true, FromPrim: fp.Kind, ToPrim: tp.Kind}, true
}

// widens reports whether converting fp -> tp is a widening conversion: an
// integer of lesser-or-equal rank going to one of greater-or-equal rank and
// matching signedness, an integer going to a float of adequate rank, or a
// float going to a wider float.
func widens(fp, tp ashtype.PrimitiveInfo) bool {
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

func handleRules(from, to ashtype.DataType) (Conversion, bool) {
	if from.IsNull() && to.IsHandle {
		return Conversion{Kind: NullToHandle, Cost: CostHandleRule, IsImplicit: true}, true
	}
	return Conversion{}, false
}

func hierarchy(c *ctx.Context, from, to ashtype.DataType) (Conversion, bool) {
	fromEntry, ok := c.GetType(from.TypeHash)
	if !ok || fromEntry.Kind != registry.KindClass {
		return Conversion{}, false
	}
	if c.IsDerivedFrom(from.TypeHash, to.TypeHash) && from.TypeHash != to.TypeHash {
		return Conversion{Kind: DerivedToBase, Cost: CostDerivedBase, IsImplicit: true}, true
	}
	if c.ImplementsInterface(from.TypeHash, to.TypeHash) {
		return Conversion{Kind: ClassToInterface, Cost: CostInterface, IsImplicit: true}, true
	}
	return Conversion{}, false
}

func userDefined(c *ctx.Context, from, to ashtype.DataType) (Conversion, bool) {
	if fromEntry, ok := c.GetType(from.TypeHash); ok && fromEntry.Kind == registry.KindClass {
		for _, mh := range fromEntry.Class.Behaviors.Operators[registry.OpImplConv] {
			if fn, ok := c.GetFunction(mh); ok && fn.Def.ReturnType.TypeHash == to.TypeHash {
				return Conversion{Kind: ImplicitConvMethod, Cost: CostUserImplicit, IsImplicit: true, Method: mh}, true
			}
		}
		for _, mh := range fromEntry.Class.Behaviors.Operators[registry.OpCast] {
			if fn, ok := c.GetFunction(mh); ok && fn.Def.ReturnType.TypeHash == to.TypeHash {
				return Conversion{Kind: ExplicitCastMethod, Cost: CostExplicitOnly, IsImplicit: false, Method: mh}, true
			}
		}
	}
	if toEntry, ok := c.GetType(to.TypeHash); ok && toEntry.Kind == registry.KindClass {
		for _, ctorHash := range toEntry.Class.Behaviors.Constructors {
			fn, ok := c.GetFunction(ctorHash)
			if !ok || len(fn.Def.Params) != 1 {
				continue
			}
			if fn.Def.Params[0].DataType.TypeHash == from.TypeHash {
				return Conversion{Kind: ConstructorConversion, Cost: CostUserImplicit, IsImplicit: true, Method: ctorHash}, true
			}
		}
	}
	return Conversion{}, false
}
