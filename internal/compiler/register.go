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

// Package compiler implements the registration pass (spec.md §4.9) and the
// expression/statement/function compilers (§4.10-§4.12) that run on top of
// it.
package compiler

import (
	"github.com/ashlabs/ashc/internal/ast"
	"github.com/ashlabs/ashc/internal/ashtype"
	"github.com/ashlabs/ashc/internal/ctx"
	"github.com/ashlabs/ashc/internal/diagnostic"
	"github.com/ashlabs/ashc/internal/metrics"
	"github.com/ashlabs/ashc/internal/registry"
	"github.com/ashlabs/ashc/internal/resolver"
)

// Registrar runs the two-sub-phase registration walk over one unit's AST.
type Registrar struct {
	resolver *resolver.Resolver
	m        *metrics.Metrics
}

// NewRegistrar creates a Registrar bound to r, used to resolve every type
// reference (parameter, return, base class, property) encountered during
// the detail phase. m may be nil, matching overload.Resolver's convention
// of an optional instrumentation handle.
func NewRegistrar(r *resolver.Resolver, m *metrics.Metrics) *Registrar {
	return &Registrar{resolver: r, m: m}
}

// RegisterFile runs the full registration pass for f against c: shell phase,
// hierarchy resolution, then the function-detail phase (spec.md §4.9).
func (rg *Registrar) RegisterFile(c *ctx.Context, f *ast.File) {
	mixins := collectMixins(f.Decls)
	rg.collectShells(c, f.Decls)
	rg.resolveHierarchy(c, f.Decls)
	rg.registerDetails(c, f.Decls, mixins)
}

// collectMixins finds every mixin class declared anywhere in the unit,
// keyed by simple name. Mixins are never registered as types of their own
// (spec.md §4.9); their members are spliced into every including class.
func collectMixins(decls []ast.Decl) map[string]*ast.ClassDecl {
	out := map[string]*ast.ClassDecl{}
	var walk func([]ast.Decl)
	walk = func(ds []ast.Decl) {
		for _, d := range ds {
			switch v := d.(type) {
			case *ast.NamespaceDecl:
				walk(v.Body)
			case *ast.ClassDecl:
				if v.IsMixin {
					out[v.Name] = v
				}
			}
		}
	}
	walk(decls)
	return out
}

// effectiveMembers returns cd's own members with every MixinUseDecl expanded
// into the named mixin's member list.
func effectiveMembers(cd *ast.ClassDecl, mixins map[string]*ast.ClassDecl) []ast.Decl {
	var out []ast.Decl
	for _, m := range cd.Members {
		if use, ok := m.(*ast.MixinUseDecl); ok {
			if mixin, found := mixins[use.Name]; found {
				out = append(out, mixin.Members...)
			}
			continue
		}
		out = append(out, m)
	}
	return out
}

// --- Phase 1: type shells -------------------------------------------------

func (rg *Registrar) collectShells(c *ctx.Context, decls []ast.Decl) {
	for _, d := range decls {
		switch v := d.(type) {
		case *ast.NamespaceDecl:
			c.EnterNamespace(v.Name)
			rg.collectShells(c, v.Body)
			c.ExitNamespace()

		case *ast.ClassDecl:
			if v.IsMixin {
				continue
			}
			rg.declareClassShell(c, v)

		case *ast.InterfaceDecl:
			h := ashtype.FromQualifiedName(c.CurrentNamespace(), v.Name)
			rg.reportIfDuplicate(c, c.Unit.RegisterType(registry.TypeEntry{
				TypeHash:      h,
				QualifiedName: ashtype.JoinQualified(c.CurrentNamespace(), v.Name),
				Kind:          registry.KindInterface,
				Source:        registry.Source{UnitID: c.Unit.UnitID, Span: regSpan(v.Span)},
			}), v.Name)

		case *ast.EnumDecl:
			rg.declareEnum(c, v)

		case *ast.FuncdefDecl:
			h := ashtype.FromQualifiedName(c.CurrentNamespace(), v.Name)
			rg.reportIfDuplicate(c, c.Unit.RegisterType(registry.TypeEntry{
				TypeHash:      h,
				QualifiedName: ashtype.JoinQualified(c.CurrentNamespace(), v.Name),
				Kind:          registry.KindFuncdef,
				Source:        registry.Source{UnitID: c.Unit.UnitID, Span: regSpan(v.Span)},
			}), v.Name)
		}
	}
}

func (rg *Registrar) declareClassShell(c *ctx.Context, cd *ast.ClassDecl) {
	qualName := ashtype.JoinQualified(c.CurrentNamespace(), cd.Name)
	h := ashtype.FromQualifiedName(c.CurrentNamespace(), cd.Name)

	var templateParams []ashtype.TypeHash
	for i, p := range cd.TemplateParams {
		ph := ashtype.FromQualifiedName(qualName, p)
		templateParams = append(templateParams, ph)
		rg.reportIfDuplicate(c, c.Unit.RegisterType(registry.TypeEntry{
			TypeHash:      ph,
			QualifiedName: qualName + "::" + p,
			Kind:          registry.KindTemplateParam,
			TemplateParam: registry.TemplateParamPayload{Name: p, Index: i, Owner: h},
		}), p)
	}

	rg.reportIfDuplicate(c, c.Unit.RegisterType(registry.TypeEntry{
		TypeHash:      h,
		QualifiedName: qualName,
		Kind:          registry.KindClass,
		Source:        registry.Source{UnitID: c.Unit.UnitID, Span: regSpan(cd.Span)},
		Class: registry.ClassPayload{
			IsFinal:        cd.IsFinal,
			IsAbstract:     cd.IsAbstract,
			TemplateParams: templateParams,
		},
	}), cd.Name)
}

func (rg *Registrar) declareEnum(c *ctx.Context, ed *ast.EnumDecl) {
	h := ashtype.FromQualifiedName(c.CurrentNamespace(), ed.Name)
	underlying, _ := ashtype.PrimitiveHash("int32")

	var values []registry.EnumValue
	next := int64(0)
	for _, v := range ed.Values {
		val := next
		if v.Value != nil {
			val = *v.Value
		}
		values = append(values, registry.EnumValue{Name: v.Name, Value: val})
		next = val + 1
	}

	rg.reportIfDuplicate(c, c.Unit.RegisterType(registry.TypeEntry{
		TypeHash:      h,
		QualifiedName: ashtype.JoinQualified(c.CurrentNamespace(), ed.Name),
		Kind:          registry.KindEnum,
		Source:        registry.Source{UnitID: c.Unit.UnitID, Span: regSpan(ed.Span)},
		Enum:          registry.EnumPayload{UnderlyingHash: underlying, Values: values},
	}), ed.Name)
}

// --- Phase 1b: base/interface resolution ----------------------------------

func (rg *Registrar) resolveHierarchy(c *ctx.Context, decls []ast.Decl) {
	for _, d := range decls {
		switch v := d.(type) {
		case *ast.NamespaceDecl:
			c.EnterNamespace(v.Name)
			rg.resolveHierarchy(c, v.Body)
			c.ExitNamespace()

		case *ast.ClassDecl:
			if v.IsMixin {
				continue
			}
			h := ashtype.FromQualifiedName(c.CurrentNamespace(), v.Name)
			live, ok := c.Unit.Get(h)
			if !ok {
				continue
			}
			if v.Base != "" {
				if baseHash, ok := c.ResolveType(v.Base); ok {
					live.Class.Base = baseHash
				} else {
					c.ReportError(diagnostic.New(diagnostic.TypeNotFound, span(v.Span), "base class not found: %s", v.Base))
				}
			}
			for _, ifaceName := range v.Interfaces {
				if ih, ok := c.ResolveType(ifaceName); ok {
					live.Class.Interfaces = append(live.Class.Interfaces, ih)
				} else {
					c.ReportError(diagnostic.New(diagnostic.TypeNotFound, span(v.Span), "interface not found: %s", ifaceName))
				}
			}

		case *ast.InterfaceDecl:
			h := ashtype.FromQualifiedName(c.CurrentNamespace(), v.Name)
			live, ok := c.Unit.Get(h)
			if !ok {
				continue
			}
			for _, extName := range v.Extends {
				if eh, ok := c.ResolveType(extName); ok {
					live.Interface.Extends = append(live.Interface.Extends, eh)
				} else {
					c.ReportError(diagnostic.New(diagnostic.TypeNotFound, span(v.Span), "interface not found: %s", extName))
				}
			}
		}
	}
}

// --- Phase 2: function/member detail ---------------------------------------

func (rg *Registrar) registerDetails(c *ctx.Context, decls []ast.Decl, mixins map[string]*ast.ClassDecl) {
	for _, d := range decls {
		switch v := d.(type) {
		case *ast.NamespaceDecl:
			c.EnterNamespace(v.Name)
			rg.registerDetails(c, v.Body, mixins)
			c.ExitNamespace()

		case *ast.ImportDecl:
			c.AddImport(ashtype.JoinQualified(v.Path...))

		case *ast.ClassDecl:
			if v.IsMixin {
				continue
			}
			rg.registerClassDetails(c, v, mixins)

		case *ast.InterfaceDecl:
			h := ashtype.FromQualifiedName(c.CurrentNamespace(), v.Name)
			live, ok := c.Unit.Get(h)
			if !ok {
				continue
			}
			for _, m := range v.Methods {
				fh, def, d := rg.resolveFuncDef(c, m, h)
				if d != nil {
					c.ReportError(d)
					continue
				}
				live.Interface.Methods = append(live.Interface.Methods, fh)
				rg.registerFunction(c, fh, def, registry.Implementation{Kind: registry.ImplAbstract}, m.Span)
			}

		case *ast.FuncdefDecl:
			rg.registerFuncdef(c, v)

		case *ast.FuncDecl:
			rg.registerFreeFunction(c, v)

		case *ast.VarMemberDecl:
			rg.registerGlobalVar(c, v)
		}
	}
}

func (rg *Registrar) registerFuncdef(c *ctx.Context, fd *ast.FuncdefDecl) {
	h := ashtype.FromQualifiedName(c.CurrentNamespace(), fd.Name)
	live, ok := c.Unit.Get(h)
	if !ok {
		return
	}
	var params []ashtype.DataType
	for _, p := range fd.Params {
		dt, d := rg.resolver.Resolve(c, p.Type)
		if d != nil {
			c.ReportError(d)
			dt = ashtype.Void()
		}
		params = append(params, dt)
	}
	ret, d := rg.resolver.Resolve(c, fd.ReturnType)
	if d != nil {
		c.ReportError(d)
		ret = ashtype.Void()
	}
	live.Funcdef = registry.FuncdefPayload{Params: params, ReturnType: ret}
}

func (rg *Registrar) registerClassDetails(c *ctx.Context, cd *ast.ClassDecl, mixins map[string]*ast.ClassDecl) {
	classHash := ashtype.FromQualifiedName(c.CurrentNamespace(), cd.Name)
	live, ok := c.Unit.Get(classHash)
	if !ok {
		return
	}
	live.Class.Behaviors.Operators = map[registry.Operator][]ashtype.FunctionHash{}

	for _, m := range effectiveMembers(cd, mixins) {
		switch member := m.(type) {
		case *ast.FuncDecl:
			rg.registerMethod(c, live, classHash, member)
		case *ast.PropertyDecl:
			rg.registerProperty(c, live, member)
		case *ast.VarMemberDecl:
			rg.registerField(c, live, member)
		}
	}

	if live.Class.Behaviors.Destructor == 0 {
		dh := ashtype.FromDestructor(classHash)
		def := registry.FunctionDef{FuncHash: dh, Name: "~" + cd.Name, ObjectType: classHash}
		rg.registerFunction(c, dh, def, registry.Implementation{Kind: registry.ImplScript, UnitID: c.Unit.UnitID}, cd.Span)
		live.Class.Behaviors.Destructor = dh
	}
	if len(live.Class.Behaviors.Constructors) == 0 {
		ch := ashtype.FromConstructor(classHash, nil)
		def := registry.FunctionDef{FuncHash: ch, Name: cd.Name, ObjectType: classHash}
		rg.registerFunction(c, ch, def, registry.Implementation{Kind: registry.ImplScript, UnitID: c.Unit.UnitID}, cd.Span)
		live.Class.Behaviors.Constructors = append(live.Class.Behaviors.Constructors, ch)
	}
}

func (rg *Registrar) registerMethod(c *ctx.Context, live *registry.TypeEntry, classHash ashtype.TypeHash, fd *ast.FuncDecl) {
	fh, def, d := rg.resolveFuncDef(c, fd, classHash)
	if d != nil {
		c.ReportError(d)
		return
	}

	impl := registry.Implementation{Kind: registry.ImplScript, UnitID: c.Unit.UnitID}
	if fd.Body == nil {
		impl.Kind = registry.ImplAbstract
	}
	if err := rg.registerFunction(c, fh, def, impl, fd.Span); err != nil {
		return
	}

	switch {
	case fd.IsConstructor:
		live.Class.Behaviors.Constructors = append(live.Class.Behaviors.Constructors, fh)
	case fd.IsDestructor:
		live.Class.Behaviors.Destructor = fh
	case fd.Operator != "":
		op := registry.Operator(fd.Operator)
		live.Class.Behaviors.Operators[op] = append(live.Class.Behaviors.Operators[op], fh)
		assignForeachHook(live, op, fh)
	default:
		live.Class.Methods = append(live.Class.Methods, fh)
	}
}

// assignForeachHook records fh against the relevant TypeBehaviors field when
// op names one of the foreach protocol hooks (spec.md §4.11).
func assignForeachHook(live *registry.TypeEntry, op registry.Operator, fh ashtype.FunctionHash) {
	switch op {
	case "opForBegin":
		live.Class.Behaviors.ForBegin = fh
	case "opForEnd":
		live.Class.Behaviors.ForEnd = fh
	case "opForCondition":
		live.Class.Behaviors.ForCondition = fh
	case "opForNext":
		live.Class.Behaviors.ForNext = fh
	case "opForValue":
		live.Class.Behaviors.ForValue = fh
	}
}

func (rg *Registrar) registerProperty(c *ctx.Context, live *registry.TypeEntry, pd *ast.PropertyDecl) {
	dt, d := rg.resolver.Resolve(c, pd.Type)
	if d != nil {
		c.ReportError(d)
		return
	}
	live.Class.Properties = append(live.Class.Properties, registry.Property{
		Name: pd.Name, DataType: dt, IsField: pd.FieldName != "", FieldIndex: len(live.Class.Properties),
	})
}

func (rg *Registrar) registerField(c *ctx.Context, live *registry.TypeEntry, vd *ast.VarMemberDecl) {
	dt, d := rg.resolver.Resolve(c, vd.Type)
	if d != nil {
		c.ReportError(d)
		return
	}
	live.Class.Properties = append(live.Class.Properties, registry.Property{
		Name: vd.Name, DataType: dt, IsField: true, FieldIndex: len(live.Class.Properties),
	})
}

func (rg *Registrar) registerFreeFunction(c *ctx.Context, fd *ast.FuncDecl) {
	fh, def, d := rg.resolveFuncDef(c, fd, 0)
	if d != nil {
		c.ReportError(d)
		return
	}
	impl := registry.Implementation{Kind: registry.ImplScript, UnitID: c.Unit.UnitID}
	_ = rg.registerFunction(c, fh, def, impl, fd.Span)
}

func (rg *Registrar) registerGlobalVar(c *ctx.Context, vd *ast.VarMemberDecl) {
	dt, d := rg.resolver.Resolve(c, vd.Type)
	if d != nil {
		c.ReportError(d)
		dt = ashtype.Void()
	}
	qualName := ashtype.JoinQualified(c.CurrentNamespace(), vd.Name)
	h := ashtype.FromQualifiedName(c.CurrentNamespace(), vd.Name)

	entry := registry.GlobalPropertyEntry{Name: vd.Name, QualifiedName: qualName, Hash: h, DataType: dt}
	if vd.Init != nil {
		entry.InitFunc = ashtype.FromFunction(qualName+"$init", nil)
	}
	if err := c.Unit.RegisterGlobal(entry); err != nil {
		c.ReportError(diagnostic.New(diagnostic.DuplicateDefinition, span(vd.Span), "%v", err))
	}
}

// resolveFuncDef resolves a FuncDecl's signature into a registry.FunctionDef
// and computes its identity hash, choosing from_method/from_constructor/
// from_destructor/from_function per spec.md §4.9.
func (rg *Registrar) resolveFuncDef(c *ctx.Context, fd *ast.FuncDecl, objectType ashtype.TypeHash) (ashtype.FunctionHash, registry.FunctionDef, *diagnostic.Diagnostic) {
	params := make([]registry.Param, 0, len(fd.Params))
	paramHashes := make([]ashtype.TypeHash, 0, len(fd.Params))
	for _, p := range fd.Params {
		dt, d := rg.resolver.Resolve(c, p.Type)
		if d != nil {
			return 0, registry.FunctionDef{}, d
		}
		var defExpr *registry.DefaultExpr
		if p.DefaultExp != nil {
			defExpr, _ = convertDefaultExpr(c, p.DefaultExp)
		}
		params = append(params, registry.Param{Name: p.Name, DataType: dt, HasDefault: p.DefaultExp != nil, DefaultExpr: defExpr})
		paramHashes = append(paramHashes, dt.TypeHash)
	}
	retType := ashtype.Void()
	if fd.ReturnType != nil {
		var d *diagnostic.Diagnostic
		retType, d = rg.resolver.Resolve(c, fd.ReturnType)
		if d != nil {
			return 0, registry.FunctionDef{}, d
		}
	}

	var fh ashtype.FunctionHash
	switch {
	case fd.IsConstructor:
		fh = ashtype.FromConstructor(objectType, paramHashes)
	case fd.IsDestructor:
		fh = ashtype.FromDestructor(objectType)
	case objectType != 0:
		fh = ashtype.FromMethod(objectType, fd.Name, paramHashes, fd.IsConst)
	default:
		fh = ashtype.FromFunction(ashtype.JoinQualified(c.CurrentNamespace(), fd.Name), paramHashes)
	}

	vis := registry.VisPublic
	switch fd.Visibility {
	case "protected":
		vis = registry.VisProtected
	case "private":
		vis = registry.VisPrivate
	}

	var templateParams []ashtype.TypeHash
	if len(fd.TemplateParams) > 0 {
		fnQualName := ashtype.JoinQualified(c.CurrentNamespace(), fd.Name)
		for _, p := range fd.TemplateParams {
			templateParams = append(templateParams, ashtype.FromQualifiedName(fnQualName, p))
		}
	}

	def := registry.FunctionDef{
		FuncHash:   fh,
		Name:       fd.Name,
		Namespace:  c.CurrentNamespace(),
		Params:     params,
		ReturnType: retType,
		ObjectType: objectType,
		Traits: registry.FunctionTraits{
			IsConst:    fd.IsConst,
			IsOverride: fd.IsOverride,
			IsFinal:    fd.IsFinal,
			IsProperty: fd.IsProperty,
		},
		Visibility:     vis,
		TemplateParams: templateParams,
	}
	return fh, def, nil
}

func (rg *Registrar) registerFunction(c *ctx.Context, fh ashtype.FunctionHash, def registry.FunctionDef, impl registry.Implementation, sp ast.Span) error {
	entry := registry.FunctionEntry{Def: def, Implementation: impl, Source: registry.Source{UnitID: c.Unit.UnitID, Span: regSpan(sp)}}
	if err := c.Unit.RegisterFunction(entry); err != nil {
		c.ReportError(diagnostic.New(diagnostic.DuplicateDefinition, span(sp), "%v", err))
		return err
	}
	if rg.m != nil {
		rg.m.FunctionsRegistered.Inc()
	}
	return nil
}

func (rg *Registrar) reportIfDuplicate(c *ctx.Context, err error, name string) {
	if err != nil {
		c.ReportError(diagnostic.New(diagnostic.DuplicateDefinition, diagnostic.Span{}, "duplicate definition: %s (%v)", name, err))
		return
	}
	if rg.m != nil {
		rg.m.TypesRegistered.Inc()
	}
}

func span(s ast.Span) diagnostic.Span {
	return diagnostic.Span{File: s.File, ByteStart: s.ByteStart, ByteEnd: s.ByteEnd}
}

func regSpan(s ast.Span) registry.Span {
	return registry.Span{File: s.File, ByteStart: s.ByteStart, ByteEnd: s.ByteEnd}
}
