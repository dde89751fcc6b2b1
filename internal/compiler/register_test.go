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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashlabs/ashc/internal/ast"
	"github.com/ashlabs/ashc/internal/ashtype"
	"github.com/ashlabs/ashc/internal/ctx"
	"github.com/ashlabs/ashc/internal/registry"
	"github.com/ashlabs/ashc/internal/resolver"
)

func newTestContext(t *testing.T) *ctx.Context {
	t.Helper()
	return ctx.New(registry.NewGlobal(), "test-unit", nil)
}

func newRegistrar() *Registrar {
	return NewRegistrar(resolver.New(nil), nil)
}

func typeExpr(name string) *ast.TypeExpr { return &ast.TypeExpr{Name: name} }

func TestRegisterFile_ClassGetsAutoGeneratedConstructorAndDestructor(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	f := &ast.File{Decls: []ast.Decl{
		&ast.ClassDecl{Name: "Widget"},
	}}
	rg.RegisterFile(c, f)
	require.Zero(t, c.ErrorCount())

	h := ashtype.FromName("Widget")
	entry, ok := c.Unit.Get(h)
	require.True(t, ok)
	require.Equal(t, registry.KindClass, entry.Kind)
	require.Len(t, entry.Class.Behaviors.Constructors, 1)
	require.NotZero(t, entry.Class.Behaviors.Destructor)
}

func TestRegisterFile_ExplicitConstructorSuppressesAutoGeneration(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	f := &ast.File{Decls: []ast.Decl{
		&ast.ClassDecl{Name: "Widget", Members: []ast.Decl{
			&ast.FuncDecl{Name: "Widget", IsConstructor: true, Params: []ast.ParamDecl{
				{Name: "x", Type: typeExpr("int32")},
			}},
		}},
	}}
	rg.RegisterFile(c, f)
	require.Zero(t, c.ErrorCount())

	h := ashtype.FromName("Widget")
	entry, ok := c.Unit.Get(h)
	require.True(t, ok)
	require.Len(t, entry.Class.Behaviors.Constructors, 1)

	paramHash, _ := ashtype.PrimitiveHash("int32")
	expectedHash := ashtype.FromConstructor(h, []ashtype.TypeHash{paramHash})
	require.Equal(t, expectedHash, entry.Class.Behaviors.Constructors[0])
}

func TestRegisterFile_BaseClassForwardReferenceResolves(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	// Derived is declared before Base in source order; the shell-then-
	// hierarchy-resolution split must still resolve the reference.
	f := &ast.File{Decls: []ast.Decl{
		&ast.ClassDecl{Name: "Derived", Base: "Base"},
		&ast.ClassDecl{Name: "Base"},
	}}
	rg.RegisterFile(c, f)
	require.Zero(t, c.ErrorCount())

	derived, ok := c.Unit.Get(ashtype.FromName("Derived"))
	require.True(t, ok)
	require.Equal(t, ashtype.FromName("Base"), derived.Class.Base)
}

func TestRegisterFile_UnknownBaseClassReportsDiagnostic(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	f := &ast.File{Decls: []ast.Decl{
		&ast.ClassDecl{Name: "Derived", Base: "Nonexistent"},
	}}
	rg.RegisterFile(c, f)
	require.Equal(t, 1, c.ErrorCount())
}

func TestRegisterFile_MethodRegisteredWithCorrectHash(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	f := &ast.File{Decls: []ast.Decl{
		&ast.ClassDecl{Name: "Widget", Members: []ast.Decl{
			&ast.FuncDecl{Name: "update", ReturnType: typeExpr("void"), Body: &ast.BlockStmt{}, Params: []ast.ParamDecl{
				{Name: "dt", Type: typeExpr("float")},
			}},
		}},
	}}
	rg.RegisterFile(c, f)
	require.Zero(t, c.ErrorCount())

	classHash := ashtype.FromName("Widget")
	entry, ok := c.Unit.Get(classHash)
	require.True(t, ok)
	require.Len(t, entry.Class.Methods, 1)

	floatHash, _ := ashtype.PrimitiveHash("float")
	expected := ashtype.FromMethod(classHash, "update", []ashtype.TypeHash{floatHash}, false)
	require.Equal(t, expected, entry.Class.Methods[0])

	fn, ok := c.Unit.GetFunction(expected)
	require.True(t, ok)
	require.Equal(t, registry.ImplScript, fn.Implementation.Kind)
}

func TestRegisterFile_OperatorMethodRecordsOnBehaviors(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	f := &ast.File{Decls: []ast.Decl{
		&ast.ClassDecl{Name: "Vec2", Members: []ast.Decl{
			&ast.FuncDecl{Name: "opAdd", Operator: "opAdd", ReturnType: typeExpr("Vec2"), Params: []ast.ParamDecl{
				{Name: "rhs", Type: typeExpr("Vec2")},
			}},
		}},
	}}
	rg.RegisterFile(c, f)
	require.Zero(t, c.ErrorCount())

	entry, ok := c.Unit.Get(ashtype.FromName("Vec2"))
	require.True(t, ok)
	require.Len(t, entry.Class.Behaviors.Operators[registry.OpAdd], 1)
}

func TestRegisterFile_MixinMembersSpliceIntoHostClass(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	f := &ast.File{Decls: []ast.Decl{
		&ast.ClassDecl{Name: "Movable", IsMixin: true, Members: []ast.Decl{
			&ast.FuncDecl{Name: "move", ReturnType: typeExpr("void")},
		}},
		&ast.ClassDecl{Name: "Player", Members: []ast.Decl{
			&ast.MixinUseDecl{Name: "Movable"},
		}},
	}}
	rg.RegisterFile(c, f)
	require.Zero(t, c.ErrorCount())

	// The mixin itself must never be registered as a standalone type.
	_, mixinRegistered := c.Unit.Get(ashtype.FromName("Movable"))
	require.False(t, mixinRegistered)

	player, ok := c.Unit.Get(ashtype.FromName("Player"))
	require.True(t, ok)
	require.Len(t, player.Class.Methods, 1)
}

func TestRegisterFile_InterfaceMethodsAreAbstract(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	f := &ast.File{Decls: []ast.Decl{
		&ast.InterfaceDecl{Name: "Drawable", Methods: []*ast.FuncDecl{
			{Name: "draw", ReturnType: typeExpr("void")},
		}},
	}}
	rg.RegisterFile(c, f)
	require.Zero(t, c.ErrorCount())

	entry, ok := c.Unit.Get(ashtype.FromName("Drawable"))
	require.True(t, ok)
	require.Len(t, entry.Interface.Methods, 1)

	fn, ok := c.Unit.GetFunction(entry.Interface.Methods[0])
	require.True(t, ok)
	require.Equal(t, registry.ImplAbstract, fn.Implementation.Kind)
}

func TestRegisterFile_EnumValuesAutoIncrement(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	two := int64(10)
	f := &ast.File{Decls: []ast.Decl{
		&ast.EnumDecl{Name: "Color", Values: []ast.EnumValueDecl{
			{Name: "Red"},
			{Name: "Green"},
			{Name: "Blue", Value: &two},
		}},
	}}
	rg.RegisterFile(c, f)
	require.Zero(t, c.ErrorCount())

	entry, ok := c.Unit.Get(ashtype.FromName("Color"))
	require.True(t, ok)
	require.Equal(t, []registry.EnumValue{
		{Name: "Red", Value: 0},
		{Name: "Green", Value: 1},
		{Name: "Blue", Value: 10},
	}, entry.Enum.Values)
}

func TestRegisterFile_NamespacedTypeResolvesByQualifiedName(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	f := &ast.File{Decls: []ast.Decl{
		&ast.NamespaceDecl{Name: "game", Body: []ast.Decl{
			&ast.ClassDecl{Name: "Enemy"},
		}},
	}}
	rg.RegisterFile(c, f)
	require.Zero(t, c.ErrorCount())

	_, ok := c.Unit.Get(ashtype.FromQualifiedName("game", "Enemy"))
	require.True(t, ok)
}

func TestRegisterFile_FreeFunctionRegisteredAtUnitScope(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	f := &ast.File{Decls: []ast.Decl{
		&ast.FuncDecl{Name: "clamp", ReturnType: typeExpr("float"), Params: []ast.ParamDecl{
			{Name: "v", Type: typeExpr("float")},
		}},
	}}
	rg.RegisterFile(c, f)
	require.Zero(t, c.ErrorCount())

	floatHash, _ := ashtype.PrimitiveHash("float")
	h := ashtype.FromFunction("clamp", []ashtype.TypeHash{floatHash})
	_, ok := c.Unit.GetFunction(h)
	require.True(t, ok)
}

func TestRegisterFile_GlobalVarWithInitializerGetsInitFunc(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	f := &ast.File{Decls: []ast.Decl{
		&ast.VarMemberDecl{Name: "gravity", Type: typeExpr("float"), Init: &ast.FloatLit{Value: 9.8}},
	}}
	rg.RegisterFile(c, f)
	require.Zero(t, c.ErrorCount())

	g, ok := c.Unit.GetGlobal(ashtype.FromName("gravity"))
	require.True(t, ok)
	require.NotZero(t, g.InitFunc)
}

func TestRegisterFile_ImportDeclRecordsUsingNamespace(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	f := &ast.File{Decls: []ast.Decl{
		&ast.ImportDecl{Path: []string{"game", "ai"}},
	}}
	rg.RegisterFile(c, f)
	require.Zero(t, c.ErrorCount())
	require.Contains(t, c.Imports(), "game::ai")
}

func TestRegisterFile_DuplicateClassReportsDiagnostic(t *testing.T) {
	c := newTestContext(t)
	rg := newRegistrar()

	f := &ast.File{Decls: []ast.Decl{
		&ast.ClassDecl{Name: "Widget"},
		&ast.ClassDecl{Name: "Widget"},
	}}
	rg.RegisterFile(c, f)
	require.NotZero(t, c.ErrorCount())
}
