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

// Package template implements the template instantiator (spec.md §4.4):
// type instances, method instances, and child-funcdef instances, with
// exactly one instance per (template, argument-list) pair shared across
// units in the global registry.
package template

import (
	"fmt"
	"log/slog"

	"github.com/ashlabs/ashc/internal/ashtype"
	"github.com/ashlabs/ashc/internal/diagnostic"
	"github.com/ashlabs/ashc/internal/metrics"
	"github.com/ashlabs/ashc/internal/registry"
)

// Instantiator creates and caches template instances against the global
// registry. A single Instantiator is shared by every concurrently
// compiling unit; its mutation path (Instantiate) serializes on the
// global registry's template lock (spec.md §5).
type Instantiator struct {
	global *registry.Global
	logger *slog.Logger
	m      *metrics.Metrics
}

// New creates an Instantiator bound to global.
func New(global *registry.Global, logger *slog.Logger, m *metrics.Metrics) *Instantiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instantiator{global: global, logger: logger, m: m}
}

// substitution maps a template's TemplateParam hash to the replacement
// DataType supplied by the caller.
type substitution map[ashtype.TypeHash]ashtype.DataType

// Instantiate returns the instance hash for (templateHash, typeArgs),
// creating it if necessary. Matches spec.md §4.4's algorithm exactly: check
// global registry (including pre-registered FFI specializations) → fetch
// template def → run callback → substitute → register → cache.
func (in *Instantiator) Instantiate(templateHash ashtype.TypeHash, typeArgs []ashtype.DataType) (ashtype.TypeHash, *diagnostic.Diagnostic) {
	argHashes := make([]ashtype.TypeHash, len(typeArgs))
	for i, a := range typeArgs {
		argHashes[i] = a.TypeHash
	}
	instanceHash := ashtype.FromTemplateInstance(templateHash, argHashes)

	// Step 2: an FFI specialization (e.g. array<int> pre-registered before
	// seal) or a prior instantiation always wins; checked before the
	// global lock so the common "already instantiated" path stays cheap.
	if _, ok := in.global.Get(instanceHash); ok {
		if in.m != nil {
			in.m.TemplateCacheHits.Inc()
		}
		return instanceHash, nil
	}

	in.global.Lock()
	defer in.global.Unlock()

	// Re-check under the lock: another goroutine may have just finished
	// creating this instance (spec.md §5 "first writer wins").
	if _, ok := in.global.Get(instanceHash); ok {
		if in.m != nil {
			in.m.TemplateCacheHits.Inc()
		}
		return instanceHash, nil
	}
	if cached, ok := in.global.GetCachedTemplate(templateHash, argHashes); ok {
		if in.m != nil {
			in.m.TemplateCacheHits.Inc()
		}
		return cached, nil
	}

	tmplEntry, ok := in.global.Get(templateHash)
	if !ok || tmplEntry.Kind != registry.KindClass || len(tmplEntry.Class.TemplateParams) == 0 {
		return 0, diagnostic.New(diagnostic.NotATemplate, diagnostic.Span{}, "%s is not a template", templateHash)
	}
	if len(tmplEntry.Class.TemplateParams) != len(typeArgs) {
		return 0, diagnostic.New(diagnostic.WrongTemplateArgCount, diagnostic.Span{},
			"template %s expects %d argument(s), got %d", tmplEntry.QualifiedName, len(tmplEntry.Class.TemplateParams), len(typeArgs))
	}

	if cb, ok := in.global.TemplateCallbackFor(templateHash); ok {
		if err := cb(typeArgs); err != nil {
			return 0, diagnostic.New(diagnostic.TemplateValidationFailed, diagnostic.Span{}, "%v", err)
		}
	}

	sub := make(substitution, len(typeArgs))
	for i, paramHash := range tmplEntry.Class.TemplateParams {
		sub[paramHash] = typeArgs[i]
	}

	qualName := instanceName(tmplEntry.QualifiedName, typeArgs, in.global)
	instClass := registry.ClassPayload{
		Base:       substituteTypeHash(tmplEntry.Class.Base, sub),
		Interfaces: substituteHashList(tmplEntry.Class.Interfaces, sub),
		Kind:       tmplEntry.Class.Kind,
		IsFinal:    tmplEntry.Class.IsFinal,
		IsAbstract: tmplEntry.Class.IsAbstract,
		Template:   templateHash,
		TypeArgs:   typeArgs,
	}

	entry := registry.TypeEntry{
		TypeHash:      instanceHash,
		QualifiedName: qualName,
		Kind:          registry.KindClass,
		Class:         instClass,
	}
	// Insert the shell first so methods that reference the instance
	// recursively (e.g. a container whose opAssign takes the container
	// itself) can resolve ObjectType during substitution.
	if err := in.global.RegisterType(entry); err != nil {
		return 0, diagnostic.New(diagnostic.Internal, diagnostic.Span{}, "%v", err)
	}

	var methods []ashtype.FunctionHash
	for _, mh := range tmplEntry.Class.Methods {
		instMethod, dErr := in.instantiateMethod(mh, instanceHash, sub)
		if dErr != nil {
			return 0, dErr
		}
		methods = append(methods, instMethod)
	}
	var props []registry.Property
	for _, p := range tmplEntry.Class.Properties {
		np := p
		np.DataType = substituteDataType(p.DataType, sub)
		props = append(props, np)
	}
	behaviors, dErr := in.substituteBehaviors(tmplEntry.Class.Behaviors, instanceHash, sub)
	if dErr != nil {
		return 0, dErr
	}

	// Patch the shell with the fully-populated class payload by mutating the
	// stored entry through the pointer Get returns (shell-then-detail,
	// matching the registration pass's own two phases).
	if live, ok := in.global.Get(instanceHash); ok {
		live.Class.Methods = methods
		live.Class.Properties = props
		live.Class.Behaviors = behaviors
	}

	in.global.CacheTemplateInstance(templateHash, argHashes, instanceHash)
	if in.m != nil {
		in.m.TemplateInstancesCreated.Inc()
	}
	in.logger.Debug("template.instantiated", "template", tmplEntry.QualifiedName, "instance", qualName)
	return instanceHash, nil
}

func instanceName(templateName string, args []ashtype.DataType, g *registry.Global) string {
	s := templateName + "<"
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		if e, ok := g.Get(a.TypeHash); ok {
			s += e.QualifiedName
		} else {
			s += a.TypeHash.String()
		}
	}
	return s + ">"
}

// instantiateMethod implements the "Method instance" algorithm of spec.md
// §4.4: compute instance_method_hash, short-circuit if already present,
// else build a substituted FunctionDef and register it.
func (in *Instantiator) instantiateMethod(methodHash ashtype.FunctionHash, instanceClass ashtype.TypeHash, sub substitution) (ashtype.FunctionHash, *diagnostic.Diagnostic) {
	src, ok := in.global.GetFunction(methodHash)
	if !ok {
		return 0, diagnostic.New(diagnostic.Internal, diagnostic.Span{}, "template method %s missing from registry", methodHash)
	}

	params := make([]registry.Param, len(src.Def.Params))
	paramHashes := make([]ashtype.TypeHash, len(src.Def.Params))
	for i, p := range src.Def.Params {
		np := p
		np.DataType = substituteDataType(p.DataType, sub)
		params[i] = np
		paramHashes[i] = np.DataType.TypeHash
	}
	retType := substituteDataType(src.Def.ReturnType, sub)

	instHash := ashtype.FromMethod(instanceClass, src.Def.Name, paramHashes, src.Def.Traits.IsConst)
	if _, ok := in.global.GetFunction(instHash); ok {
		return instHash, nil
	}

	def := registry.FunctionDef{
		FuncHash:   instHash,
		Name:       src.Def.Name,
		Namespace:  src.Def.Namespace,
		Params:     params,
		ReturnType: retType,
		ObjectType: instanceClass,
		Traits:     src.Def.Traits,
		Visibility: src.Def.Visibility,
		IsNative:   src.Def.IsNative,
	}

	impl := src.Implementation
	switch impl.Kind {
	case registry.ImplNative:
		// The host implementation is generic over type args via runtime
		// introspection on the call context (spec.md §4.4); the same
		// callable handle is reused unchanged.
	case registry.ImplScript:
		impl.Bytecode = nil // filled in when this instance is first used
	}

	entry := registry.FunctionEntry{Def: def, Implementation: impl, Source: src.Source}
	if err := in.global.RegisterFunction(entry); err != nil {
		return 0, diagnostic.New(diagnostic.Internal, diagnostic.Span{}, "%v", err)
	}
	return instHash, nil
}

func (in *Instantiator) substituteBehaviors(b registry.TypeBehaviors, instanceClass ashtype.TypeHash, sub substitution) (registry.TypeBehaviors, *diagnostic.Diagnostic) {
	out := registry.TypeBehaviors{Operators: map[registry.Operator][]ashtype.FunctionHash{}}
	instantiateAll := func(hashes []ashtype.FunctionHash) ([]ashtype.FunctionHash, *diagnostic.Diagnostic) {
		var res []ashtype.FunctionHash
		for _, h := range hashes {
			if h == 0 {
				continue
			}
			ih, err := in.instantiateMethod(h, instanceClass, sub)
			if err != nil {
				return nil, err
			}
			res = append(res, ih)
		}
		return res, nil
	}
	instantiateOne := func(h ashtype.FunctionHash) (ashtype.FunctionHash, *diagnostic.Diagnostic) {
		if h == 0 {
			return 0, nil
		}
		return in.instantiateMethod(h, instanceClass, sub)
	}

	var dErr *diagnostic.Diagnostic
	if out.Constructors, dErr = instantiateAll(b.Constructors); dErr != nil {
		return out, dErr
	}
	if out.CopyConstructor, dErr = instantiateOne(b.CopyConstructor); dErr != nil {
		return out, dErr
	}
	if out.Destructor, dErr = instantiateOne(b.Destructor); dErr != nil {
		return out, dErr
	}
	if out.Factories, dErr = instantiateAll(b.Factories); dErr != nil {
		return out, dErr
	}
	if out.ListFactory, dErr = instantiateOne(b.ListFactory); dErr != nil {
		return out, dErr
	}
	if out.ListConstruct, dErr = instantiateOne(b.ListConstruct); dErr != nil {
		return out, dErr
	}
	if out.AddRef, dErr = instantiateOne(b.AddRef); dErr != nil {
		return out, dErr
	}
	if out.Release, dErr = instantiateOne(b.Release); dErr != nil {
		return out, dErr
	}
	if out.GetRefCount, dErr = instantiateOne(b.GetRefCount); dErr != nil {
		return out, dErr
	}
	if out.EnumRefs, dErr = instantiateOne(b.EnumRefs); dErr != nil {
		return out, dErr
	}
	if out.ReleaseRefs, dErr = instantiateOne(b.ReleaseRefs); dErr != nil {
		return out, dErr
	}
	if out.ForBegin, dErr = instantiateOne(b.ForBegin); dErr != nil {
		return out, dErr
	}
	if out.ForEnd, dErr = instantiateOne(b.ForEnd); dErr != nil {
		return out, dErr
	}
	if out.ForCondition, dErr = instantiateOne(b.ForCondition); dErr != nil {
		return out, dErr
	}
	if out.ForNext, dErr = instantiateOne(b.ForNext); dErr != nil {
		return out, dErr
	}
	if out.ForValue, dErr = instantiateOne(b.ForValue); dErr != nil {
		return out, dErr
	}
	for op, hashes := range b.Operators {
		inst, dErr := instantiateAll(hashes)
		if dErr != nil {
			return out, dErr
		}
		out.Operators[op] = inst
	}
	return out, nil
}

// InstantiateChildFuncdef substitutes a child funcdef's params/return type
// using the parent class's template parameter map; the qualified name
// becomes "ParentInstanceName::FuncdefName" (spec.md §4.4).
func (in *Instantiator) InstantiateChildFuncdef(funcdefHash ashtype.TypeHash, parentInstance ashtype.TypeHash, sub map[ashtype.TypeHash]ashtype.DataType) (ashtype.TypeHash, *diagnostic.Diagnostic) {
	src, ok := in.global.Get(funcdefHash)
	if !ok || src.Kind != registry.KindFuncdef {
		return 0, diagnostic.New(diagnostic.Internal, diagnostic.Span{}, "not a funcdef: %s", funcdefHash)
	}
	params := make([]ashtype.DataType, len(src.Funcdef.Params))
	for i, p := range src.Funcdef.Params {
		params[i] = substituteDataType(p, sub)
	}
	ret := substituteDataType(src.Funcdef.ReturnType, sub)

	parentEntry, _ := in.global.Get(parentInstance)
	qualName := fmt.Sprintf("%s::%s", parentEntry.QualifiedName, src.QualifiedName)
	instHash := ashtype.FromQualifiedName(parentEntry.QualifiedName, src.QualifiedName)

	if _, ok := in.global.Get(instHash); ok {
		return instHash, nil
	}

	entry := registry.TypeEntry{
		TypeHash:      instHash,
		QualifiedName: qualName,
		Kind:          registry.KindFuncdef,
		Funcdef: registry.FuncdefPayload{
			Params:     params,
			ReturnType: ret,
			ParentType: parentInstance,
		},
	}
	if err := in.global.RegisterType(entry); err != nil {
		return 0, diagnostic.New(diagnostic.Internal, diagnostic.Span{}, "%v", err)
	}
	return instHash, nil
}
