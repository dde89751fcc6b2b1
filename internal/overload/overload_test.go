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

package overload

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashlabs/ashc/internal/ashtype"
	"github.com/ashlabs/ashc/internal/ctx"
	"github.com/ashlabs/ashc/internal/diagnostic"
	"github.com/ashlabs/ashc/internal/registry"
)

func newTestContext(t *testing.T) *ctx.Context {
	t.Helper()
	return ctx.New(registry.NewGlobal(), "test-unit", nil)
}

func prim(name string) ashtype.DataType {
	h, _ := ashtype.PrimitiveHash(name)
	return ashtype.DataType{TypeHash: h}
}

func mustRegisterFunc(t *testing.T, c *ctx.Context, name string, params ...ashtype.DataType) *registry.FunctionEntry {
	t.Helper()
	paramHashes := make([]ashtype.TypeHash, len(params))
	defParams := make([]registry.Param, len(params))
	for i, p := range params {
		paramHashes[i] = p.TypeHash
		defParams[i] = registry.Param{Name: "p", DataType: p}
	}
	h := ashtype.FromFunction(name, paramHashes)
	entry := registry.FunctionEntry{Def: registry.FunctionDef{FuncHash: h, Name: name, Params: defParams}}
	require.NoError(t, c.Global.RegisterFunction(entry))
	got, ok := c.Global.GetFunction(h)
	require.True(t, ok)
	return got
}

func TestResolve_SingleViableCandidate(t *testing.T) {
	c := newTestContext(t)
	fn := mustRegisterFunc(t, c, "takeInt", prim("int32"))

	r := New(nil)
	picked, convs, d := r.Resolve(c, []*registry.FunctionEntry{fn}, []ashtype.DataType{prim("int32")}, diagnostic.Span{})
	require.Nil(t, d)
	require.Same(t, fn, picked)
	require.Len(t, convs, 1)
}

func TestResolve_PrefersExactMatchOverWidening(t *testing.T) {
	c := newTestContext(t)
	exact := mustRegisterFunc(t, c, "f::int32", prim("int32"))
	widening := mustRegisterFunc(t, c, "f::int64", prim("int64"))

	r := New(nil)
	picked, _, d := r.Resolve(c, []*registry.FunctionEntry{exact, widening}, []ashtype.DataType{prim("int32")}, diagnostic.Span{})
	require.Nil(t, d)
	require.Same(t, exact, picked)
}

func TestResolve_NoViableCandidateReportsNoMatchingOverload(t *testing.T) {
	c := newTestContext(t)
	fn := mustRegisterFunc(t, c, "takeString", prim("string"))

	r := New(nil)
	_, _, d := r.Resolve(c, []*registry.FunctionEntry{fn}, []ashtype.DataType{prim("bool")}, diagnostic.Span{})
	require.NotNil(t, d)
	require.Equal(t, diagnostic.NoMatchingOverload, d.Kind)
}

func TestResolve_WrongArgCountIsNotViable(t *testing.T) {
	c := newTestContext(t)
	fn := mustRegisterFunc(t, c, "takeTwo", prim("int32"), prim("int32"))

	r := New(nil)
	_, _, d := r.Resolve(c, []*registry.FunctionEntry{fn}, []ashtype.DataType{prim("int32")}, diagnostic.Span{})
	require.NotNil(t, d)
	require.Equal(t, diagnostic.NoMatchingOverload, d.Kind)
}

func TestResolve_DefaultsFillTheTail(t *testing.T) {
	c := newTestContext(t)
	h := ashtype.FromFunction("withDefault", []ashtype.TypeHash{prim("int32").TypeHash, prim("int32").TypeHash})
	entry := registry.FunctionEntry{Def: registry.FunctionDef{
		FuncHash: h, Name: "withDefault",
		Params: []registry.Param{
			{Name: "a", DataType: prim("int32")},
			{Name: "b", DataType: prim("int32"), HasDefault: true},
		},
	}}
	require.NoError(t, c.Global.RegisterFunction(entry))
	fn, _ := c.Global.GetFunction(h)

	r := New(nil)
	_, convs, d := r.Resolve(c, []*registry.FunctionEntry{fn}, []ashtype.DataType{prim("int32")}, diagnostic.Span{})
	require.Nil(t, d)
	require.Len(t, convs, 1)
}

func TestResolve_EqualCostTiesReportAmbiguous(t *testing.T) {
	c := newTestContext(t)
	a := mustRegisterFunc(t, c, "ambig::a", prim("int64"))
	b := mustRegisterFunc(t, c, "ambig::b", prim("int64"))

	r := New(nil)
	_, _, d := r.Resolve(c, []*registry.FunctionEntry{a, b}, []ashtype.DataType{prim("int32")}, diagnostic.Span{})
	require.NotNil(t, d)
	require.Equal(t, diagnostic.AmbiguousOverload, d.Kind)
	require.Len(t, d.Candidates, 2)
}

func TestResolveOperator_PrefersLeftSideOnTie(t *testing.T) {
	c := newTestContext(t)
	leftClass := ashtype.FromName("Meters")
	rightClass := ashtype.FromName("Feet")

	addMethod := ashtype.FromMethod(leftClass, "opAdd", []ashtype.TypeHash{rightClass}, false)
	addRMethod := ashtype.FromMethod(rightClass, "opAdd_r", []ashtype.TypeHash{leftClass}, false)

	require.NoError(t, c.Global.RegisterType(registry.TypeEntry{
		TypeHash: leftClass, QualifiedName: "Meters", Kind: registry.KindClass,
		Class: registry.ClassPayload{Behaviors: registry.TypeBehaviors{
			Operators: map[registry.Operator][]ashtype.FunctionHash{registry.OpAdd: {addMethod}},
		}},
	}))
	require.NoError(t, c.Global.RegisterType(registry.TypeEntry{
		TypeHash: rightClass, QualifiedName: "Feet", Kind: registry.KindClass,
		Class: registry.ClassPayload{Behaviors: registry.TypeBehaviors{
			Operators: map[registry.Operator][]ashtype.FunctionHash{registry.OpAddR: {addRMethod}},
		}},
	}))
	require.NoError(t, c.Global.RegisterFunction(registry.FunctionEntry{Def: registry.FunctionDef{
		FuncHash: addMethod, Name: "opAdd", ObjectType: leftClass,
		Params: []registry.Param{{Name: "rhs", DataType: ashtype.DataType{TypeHash: rightClass}}},
		ReturnType: ashtype.DataType{TypeHash: leftClass},
	}}))
	require.NoError(t, c.Global.RegisterFunction(registry.FunctionEntry{Def: registry.FunctionDef{
		FuncHash: addRMethod, Name: "opAdd_r", ObjectType: rightClass,
		Params: []registry.Param{{Name: "lhs", DataType: ashtype.DataType{TypeHash: leftClass}}},
		ReturnType: ashtype.DataType{TypeHash: rightClass},
	}}))

	r := New(nil)
	entry, _, reversed, d := r.ResolveOperator(c, registry.OpAdd, registry.OpAddR,
		ashtype.DataType{TypeHash: leftClass}, ashtype.DataType{TypeHash: rightClass}, diagnostic.Span{})
	require.Nil(t, d)
	require.False(t, reversed)
	require.Equal(t, addMethod, entry.Def.FuncHash)
}
