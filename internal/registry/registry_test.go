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

package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashlabs/ashc/internal/ashtype"
)

func TestGlobal_PrePopulatesPrimitives(t *testing.T) {
	g := NewGlobal()
	h, ok := ashtype.PrimitiveHash("int32")
	require.True(t, ok)
	entry, found := g.Get(h)
	require.True(t, found)
	require.Equal(t, KindPrimitive, entry.Kind)
}

func TestGlobal_DuplicateTypeRejected(t *testing.T) {
	g := NewGlobal()
	h := ashtype.FromName("Player")
	require.NoError(t, g.RegisterType(TypeEntry{TypeHash: h, QualifiedName: "Player", Kind: KindClass}))
	err := g.RegisterType(TypeEntry{TypeHash: h, QualifiedName: "Player", Kind: KindClass})
	require.Error(t, err)
	var dup *DuplicateDefinitionError
	require.ErrorAs(t, err, &dup)
}

func TestGlobal_SealRejectsNewRegistration(t *testing.T) {
	g := NewGlobal()
	g.Seal()
	err := g.RegisterType(TypeEntry{TypeHash: ashtype.FromName("Late"), QualifiedName: "Late", Kind: KindClass})
	require.Error(t, err)
	var sealed *AlreadySealedError
	require.ErrorAs(t, err, &sealed)
}

func TestGlobal_SealAllowsTemplateInstanceAfterward(t *testing.T) {
	g := NewGlobal()
	g.Seal()
	instHash := ashtype.FromTemplateInstance(ashtype.FromName("array"), []ashtype.TypeHash{ashtype.FromName("int32")})
	err := g.RegisterType(TypeEntry{
		TypeHash:      instHash,
		QualifiedName: "array<int32>",
		Kind:          KindClass,
		Class:         ClassPayload{Template: ashtype.FromName("array")},
	})
	require.NoError(t, err)
}

func TestGlobal_TemplateCacheInsertIfAbsent(t *testing.T) {
	g := NewGlobal()
	tmpl := ashtype.FromName("array")
	args := []ashtype.TypeHash{ashtype.FromName("int32")}
	inst := ashtype.FromTemplateInstance(tmpl, args)

	g.CacheTemplateInstance(tmpl, args, inst)
	g.CacheTemplateInstance(tmpl, args, ashtype.TypeHash(999999)) // should not overwrite

	got, ok := g.GetCachedTemplate(tmpl, args)
	require.True(t, ok)
	require.Equal(t, inst, got)
}

func TestUnit_RegisterAndOverloads(t *testing.T) {
	u := NewUnit("unit-1")
	def1 := FunctionDef{FuncHash: ashtype.FromFunction("f", nil), Name: "f"}
	def2 := FunctionDef{FuncHash: ashtype.FromFunction("f", []ashtype.TypeHash{ashtype.FromName("int32")}), Name: "f"}
	require.NoError(t, u.RegisterFunction(FunctionEntry{Def: def1}))
	require.NoError(t, u.RegisterFunction(FunctionEntry{Def: def2}))

	overloads := u.GetFunctionOverloads("f")
	require.Len(t, overloads, 2)
}

func TestUnit_DuplicateFunctionRejected(t *testing.T) {
	u := NewUnit("unit-1")
	def := FunctionDef{FuncHash: ashtype.FromFunction("f", nil), Name: "f"}
	require.NoError(t, u.RegisterFunction(FunctionEntry{Def: def}))
	err := u.RegisterFunction(FunctionEntry{Def: def})
	require.Error(t, err)
}
