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

package conversion

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashlabs/ashc/internal/ashtype"
	"github.com/ashlabs/ashc/internal/ctx"
	"github.com/ashlabs/ashc/internal/registry"
)

func prim(name string) ashtype.DataType {
	h, _ := ashtype.PrimitiveHash(name)
	return ashtype.DataType{TypeHash: h}
}

func newTestContext(t *testing.T) *ctx.Context {
	t.Helper()
	g := registry.NewGlobal()
	return ctx.New(g, "test-unit", nil)
}

func TestFind_Identity(t *testing.T) {
	c := newTestContext(t)
	conv, ok := Find(c, prim("int32"), prim("int32"))
	require.True(t, ok)
	require.Equal(t, Identity, conv.Kind)
	require.Equal(t, CostIdentity, conv.Cost)
	require.True(t, conv.IsImplicit)
}

func TestFind_ConstAddition(t *testing.T) {
	c := newTestContext(t)
	from := prim("int32")
	to := from.WithConst(true)
	conv, ok := Find(c, from, to)
	require.True(t, ok)
	require.Equal(t, Identity, conv.Kind)
	require.Equal(t, CostConstAdd, conv.Cost)
}

func TestFind_HandleToConst(t *testing.T) {
	c := newTestContext(t)
	from := ashtype.DataType{TypeHash: ashtype.FromName("Widget"), IsHandle: true}
	to := from.AsHandleToConst()
	conv, ok := Find(c, from, to)
	require.True(t, ok)
	require.Equal(t, HandleToConst, conv.Kind)
	require.Equal(t, CostHandleRule, conv.Cost)
}

func TestFind_ValueToHandleIsExplicitOnly(t *testing.T) {
	c := newTestContext(t)
	h := ashtype.FromName("Widget")
	from := ashtype.DataType{TypeHash: h}
	to := ashtype.DataType{TypeHash: h, IsHandle: true}
	conv, ok := Find(c, from, to)
	require.True(t, ok)
	require.Equal(t, ValueToHandle, conv.Kind)
	require.Equal(t, CostExplicitOnly, conv.Cost)
	require.False(t, conv.IsImplicit)

	_, ok = FindImplicit(c, from, to)
	require.False(t, ok)
}

func TestFind_NullToHandle(t *testing.T) {
	c := newTestContext(t)
	conv, ok := Find(c, ashtype.Null(), ashtype.DataType{TypeHash: ashtype.FromName("Widget"), IsHandle: true})
	require.True(t, ok)
	require.Equal(t, NullToHandle, conv.Kind)
	require.Equal(t, CostHandleRule, conv.Cost)
}

func TestFind_PrimitiveWidening(t *testing.T) {
	c := newTestContext(t)
	conv, ok := Find(c, prim("int8"), prim("int32"))
	require.True(t, ok)
	require.Equal(t, Primitive, conv.Kind)
	require.Equal(t, CostWidening, conv.Cost)
	require.True(t, conv.IsImplicit)
}

func TestFind_PrimitiveNarrowing(t *testing.T) {
	c := newTestContext(t)
	conv, ok := Find(c, prim("int32"), prim("int8"))
	require.True(t, ok)
	require.Equal(t, Primitive, conv.Kind)
	require.Equal(t, CostNarrowing, conv.Cost)
}

func TestFind_PrimitiveSignFlipIsNarrowing(t *testing.T) {
	c := newTestContext(t)
	conv, ok := Find(c, prim("int32"), prim("uint32"))
	require.True(t, ok)
	require.Equal(t, CostNarrowing, conv.Cost)
}

func TestFind_BoolHasNoPrimitiveConversion(t *testing.T) {
	c := newTestContext(t)
	_, ok := Find(c, prim("bool"), prim("int32"))
	require.False(t, ok)
}

func TestFind_DerivedToBase(t *testing.T) {
	c := newTestContext(t)
	base := ashtype.FromName("Base")
	derived := ashtype.FromName("Derived")
	require.NoError(t, c.Global.RegisterType(registry.TypeEntry{TypeHash: base, QualifiedName: "Base", Kind: registry.KindClass}))
	require.NoError(t, c.Global.RegisterType(registry.TypeEntry{TypeHash: derived, QualifiedName: "Derived", Kind: registry.KindClass, Class: registry.ClassPayload{Base: base}}))

	conv, ok := Find(c, ashtype.DataType{TypeHash: derived}, ashtype.DataType{TypeHash: base})
	require.True(t, ok)
	require.Equal(t, DerivedToBase, conv.Kind)
	require.Equal(t, CostDerivedBase, conv.Cost)
}

func TestFind_ClassToInterface(t *testing.T) {
	c := newTestContext(t)
	iface := ashtype.FromName("Drawable")
	class := ashtype.FromName("Sprite")
	require.NoError(t, c.Global.RegisterType(registry.TypeEntry{TypeHash: iface, QualifiedName: "Drawable", Kind: registry.KindInterface}))
	require.NoError(t, c.Global.RegisterType(registry.TypeEntry{TypeHash: class, QualifiedName: "Sprite", Kind: registry.KindClass, Class: registry.ClassPayload{Interfaces: []ashtype.TypeHash{iface}}}))

	conv, ok := Find(c, ashtype.DataType{TypeHash: class}, ashtype.DataType{TypeHash: iface})
	require.True(t, ok)
	require.Equal(t, ClassToInterface, conv.Kind)
	require.Equal(t, CostInterface, conv.Cost)
}

func TestFind_ConstructorConversion(t *testing.T) {
	c := newTestContext(t)
	intHash, _ := ashtype.PrimitiveHash("int32")
	vecHash := ashtype.FromName("Vec2")
	ctorHash := ashtype.FromConstructor(vecHash, []ashtype.TypeHash{intHash})

	require.NoError(t, c.Global.RegisterType(registry.TypeEntry{
		TypeHash: vecHash, QualifiedName: "Vec2", Kind: registry.KindClass,
		Class: registry.ClassPayload{Behaviors: registry.TypeBehaviors{Constructors: []ashtype.FunctionHash{ctorHash}}},
	}))
	require.NoError(t, c.Global.RegisterFunction(registry.FunctionEntry{Def: registry.FunctionDef{
		FuncHash: ctorHash, Name: "Vec2", ObjectType: vecHash,
		Params: []registry.Param{{Name: "scalar", DataType: ashtype.DataType{TypeHash: intHash}}},
	}}))

	conv, ok := Find(c, ashtype.DataType{TypeHash: intHash}, ashtype.DataType{TypeHash: vecHash})
	require.True(t, ok)
	require.Equal(t, ConstructorConversion, conv.Kind)
	require.Equal(t, CostUserImplicit, conv.Cost)
	require.Equal(t, ctorHash, conv.Method)
}

func TestFind_ImplicitConvMethod(t *testing.T) {
	c := newTestContext(t)
	fromHash := ashtype.FromName("Meters")
	toHash := ashtype.FromName("Feet")
	methodHash := ashtype.FromMethod(fromHash, "opImplConv", nil, true)

	require.NoError(t, c.Global.RegisterType(registry.TypeEntry{
		TypeHash: fromHash, QualifiedName: "Meters", Kind: registry.KindClass,
		Class: registry.ClassPayload{Behaviors: registry.TypeBehaviors{
			Operators: map[registry.Operator][]ashtype.FunctionHash{registry.OpImplConv: {methodHash}},
		}},
	}))
	require.NoError(t, c.Global.RegisterFunction(registry.FunctionEntry{Def: registry.FunctionDef{
		FuncHash: methodHash, Name: "opImplConv", ObjectType: fromHash,
		ReturnType: ashtype.DataType{TypeHash: toHash},
	}}))

	conv, ok := Find(c, ashtype.DataType{TypeHash: fromHash}, ashtype.DataType{TypeHash: toHash})
	require.True(t, ok)
	require.Equal(t, ImplicitConvMethod, conv.Kind)
	require.True(t, conv.IsImplicit)
}

func TestFind_ExplicitCastMethodIsNotImplicit(t *testing.T) {
	c := newTestContext(t)
	fromHash := ashtype.FromName("Variant")
	toHash := ashtype.FromName("JSON")
	methodHash := ashtype.FromMethod(fromHash, "opCast", nil, true)

	require.NoError(t, c.Global.RegisterType(registry.TypeEntry{
		TypeHash: fromHash, QualifiedName: "Variant", Kind: registry.KindClass,
		Class: registry.ClassPayload{Behaviors: registry.TypeBehaviors{
			Operators: map[registry.Operator][]ashtype.FunctionHash{registry.OpCast: {methodHash}},
		}},
	}))
	require.NoError(t, c.Global.RegisterFunction(registry.FunctionEntry{Def: registry.FunctionDef{
		FuncHash: methodHash, Name: "opCast", ObjectType: fromHash,
		ReturnType: ashtype.DataType{TypeHash: toHash},
	}}))

	conv, ok := Find(c, ashtype.DataType{TypeHash: fromHash}, ashtype.DataType{TypeHash: toHash})
	require.True(t, ok)
	require.Equal(t, ExplicitCastMethod, conv.Kind)
	require.False(t, conv.IsImplicit)

	_, ok = FindImplicit(c, ashtype.DataType{TypeHash: fromHash}, ashtype.DataType{TypeHash: toHash})
	require.False(t, ok)
}

func TestFind_NoConversionExists(t *testing.T) {
	c := newTestContext(t)
	_, ok := Find(c, prim("string"), ashtype.DataType{TypeHash: ashtype.FromName("Unrelated")})
	require.False(t, ok)
}
