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

// Package resolver converts an AST TypeExpr into a DataType (spec.md §4.3).
package resolver

import (
	"github.com/ashlabs/ashc/internal/ast"
	"github.com/ashlabs/ashc/internal/ashtype"
	"github.com/ashlabs/ashc/internal/ctx"
	"github.com/ashlabs/ashc/internal/diagnostic"
	"github.com/ashlabs/ashc/internal/template"
)

// AutoHash is the sentinel type-hash carried by an unresolved `auto` until
// downstream inference fills it in (spec.md §4.3).
var AutoHash = ashtype.FromName("$auto")

// Resolver holds the one collaborator the type resolver needs beyond the
// context itself: the template instantiator, consulted for `T<A, B>` type
// arguments.
type Resolver struct {
	Instantiator *template.Instantiator
}

// New creates a Resolver.
func New(instantiator *template.Instantiator) *Resolver {
	return &Resolver{Instantiator: instantiator}
}

func span(s ast.Span) diagnostic.Span {
	return diagnostic.Span{File: s.File, ByteStart: s.ByteStart, ByteEnd: s.ByteEnd}
}

// Resolve converts te into a DataType, resolving template arguments and
// array sugar recursively.
func (r *Resolver) Resolve(c *ctx.Context, te *ast.TypeExpr) (ashtype.DataType, *diagnostic.Diagnostic) {
	if te == nil {
		return ashtype.Void(), nil
	}
	if te.Auto {
		dt := ashtype.DataType{TypeHash: AutoHash}
		return r.applyModifiers(dt, te), nil
	}
	if te.Void {
		return ashtype.Void(), nil
	}

	base, d := r.resolveBase(c, te)
	if d != nil {
		return ashtype.DataType{}, d
	}
	return r.applyModifiers(base, te), nil
}

func (r *Resolver) resolveBase(c *ctx.Context, te *ast.TypeExpr) (ashtype.DataType, *diagnostic.Diagnostic) {
	if te.ArrayDims > 0 {
		return r.resolveArraySugar(c, te)
	}

	var baseHash ashtype.TypeHash
	var ok bool
	if len(te.Path) > 0 {
		baseHash, ok = c.ResolveQualifiedType(te.Path)
		if !ok {
			return ashtype.DataType{}, diagnostic.New(diagnostic.TypeNotFound, span(te.Span), "type not found: %s", ashtype.JoinQualified(te.Path...))
		}
	} else {
		baseHash, ok = c.ResolveType(te.Name)
		if !ok {
			return ashtype.DataType{}, diagnostic.New(diagnostic.TypeNotFound, span(te.Span), "type not found: %s", te.Name)
		}
	}

	if len(te.TypeArgs) == 0 {
		return ashtype.DataType{TypeHash: baseHash}, nil
	}

	args := make([]ashtype.DataType, len(te.TypeArgs))
	for i, argExpr := range te.TypeArgs {
		arg, d := r.Resolve(c, argExpr)
		if d != nil {
			return ashtype.DataType{}, d
		}
		args[i] = arg
	}
	instHash, d := r.Instantiator.Instantiate(baseHash, args)
	if d != nil {
		d.Span = span(te.Span)
		return ashtype.DataType{}, d
	}
	return ashtype.DataType{TypeHash: instHash}, nil
}

// resolveArraySugar lowers T[] / T[N] to array<T>, per spec.md §4.3.
func (r *Resolver) resolveArraySugar(c *ctx.Context, te *ast.TypeExpr) (ashtype.DataType, *diagnostic.Diagnostic) {
	elemExpr := *te
	elemExpr.ArrayDims = 0
	elem, d := r.Resolve(c, &elemExpr)
	if d != nil {
		return ashtype.DataType{}, d
	}
	arrayTemplate, ok := c.ResolveType("array")
	if !ok {
		return ashtype.DataType{}, diagnostic.New(diagnostic.TypeNotFound, span(te.Span), "array<T> is not registered")
	}
	result := elem
	for i := 0; i < te.ArrayDims; i++ {
		instHash, d := r.Instantiator.Instantiate(arrayTemplate, []ashtype.DataType{result})
		if d != nil {
			d.Span = span(te.Span)
			return ashtype.DataType{}, d
		}
		result = ashtype.DataType{TypeHash: instHash}
	}
	return result, nil
}

func (r *Resolver) applyModifiers(dt ashtype.DataType, te *ast.TypeExpr) ashtype.DataType {
	dt.IsConst = te.IsConst
	if te.IsHandle {
		dt.IsHandle = true
	}
	if te.HandleToConst {
		dt.IsHandle = true
		dt.IsHandleToConst = true
	}
	switch te.Ref {
	case "&in":
		dt.RefModifier = ashtype.RefIn
	case "&out":
		dt.RefModifier = ashtype.RefOut
	case "&inout":
		dt.RefModifier = ashtype.RefInOut
	}
	return dt
}

// IsAuto reports whether dt is the unresolved `auto` sentinel.
func IsAuto(dt ashtype.DataType) bool { return dt.TypeHash == AutoHash }
