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
	"sync"
	"sync/atomic"

	"github.com/ashlabs/ashc/internal/ashtype"
)

// TemplateCallback is a host-provided predicate run at instantiation time
// that may reject invalid type-argument combinations (spec.md §9).
type TemplateCallback func(typeArgs []ashtype.DataType) error

// templateKey identifies one (template, args) instantiation in the cache.
type templateKey struct {
	template ashtype.TypeHash
	argsHash ashtype.TypeHash
}

// Global is the process-wide registry: primitives, FFI entries, and shared
// template instances. Reads take only the shared read lock; registration before
// Seal requires exclusive access, which the engine's builder phase
// guarantees by construction (a single goroutine installs FFI content
// before any unit starts compiling).
type Global struct {
	base

	sealed atomic.Bool

	tmplMu       sync.Mutex
	tmplCache    map[templateKey]ashtype.TypeHash
	tmplCallback map[ashtype.TypeHash]TemplateCallback
}

// NewGlobal creates a Global registry pre-populated with the primitive type
// catalog (spec.md §4.1 "The global registry pre-populates the
// primitives").
func NewGlobal() *Global {
	g := &Global{
		base:         newBase(),
		tmplCache:    make(map[templateKey]ashtype.TypeHash),
		tmplCallback: make(map[ashtype.TypeHash]TemplateCallback),
	}
	for _, p := range ashtype.Primitives {
		h := ashtype.FromName(p.Name)
		_ = g.RegisterType(TypeEntry{
			TypeHash:      h,
			QualifiedName: p.Name,
			Kind:          KindPrimitive,
			Primitive:     p,
		})
	}
	return g
}

// Seal forbids further registration. The FFI module-install step calls
// this once host types/functions have been added.
func (g *Global) Seal() { g.sealed.Store(true) }

// IsSealed reports whether Seal has been called.
func (g *Global) IsSealed() bool { return g.sealed.Load() }

func (g *Global) RegisterType(entry TypeEntry) error {
	if g.sealed.Load() && !isTemplateInstanceClass(entry) {
		return &AlreadySealedError{}
	}
	return g.registerType(entry)
}

// isTemplateInstanceClass allows template-instance registration to proceed
// even after seal: the instantiator's insert-if-absent writes are the one
// mutation permitted post-seal (spec.md §4.9, §5).
func isTemplateInstanceClass(entry TypeEntry) bool {
	return entry.Kind == KindClass && entry.Class.Template != 0
}

// RegisterFunction registers a function entry. Post-seal, only functions
// belonging to a template instance (methods created while instantiating a
// template) are permitted; everything else must have been registered
// before Seal.
func (g *Global) RegisterFunction(entry FunctionEntry) error {
	if g.sealed.Load() {
		cls, ok := g.Get(entry.Def.ObjectType)
		if !ok || cls.Class.Template == 0 {
			return &AlreadySealedError{}
		}
	}
	return g.registerFunction(entry)
}

func (g *Global) RegisterGlobal(entry GlobalPropertyEntry) error {
	if g.sealed.Load() {
		return &AlreadySealedError{}
	}
	return g.registerGlobal(entry)
}

func (g *Global) Get(h ashtype.TypeHash) (*TypeEntry, bool) { return g.get(h) }
func (g *Global) GetFunction(h ashtype.FunctionHash) (*FunctionEntry, bool) {
	return g.getFunction(h)
}
func (g *Global) GetGlobal(h ashtype.TypeHash) (*GlobalPropertyEntry, bool) {
	return g.getGlobal(h)
}
func (g *Global) IterTypes(f func(*TypeEntry) bool)         { g.iterTypes(f) }
func (g *Global) IterFunctions(f func(*FunctionEntry) bool) { g.iterFunctions(f) }
func (g *Global) IterGlobals(f func(*GlobalPropertyEntry) bool) { g.iterGlobals(f) }
func (g *Global) GetFunctionOverloads(name string) []*FunctionEntry {
	return g.getFunctionOverloads(name)
}

// CacheTemplateInstance records that (template, argHashes) resolved to
// instanceHash. Insert-if-absent: the first writer wins, matching spec.md
// §5's "order-independent" guarantee for parallel-unit instantiation.
func (g *Global) CacheTemplateInstance(template ashtype.TypeHash, argHashes []ashtype.TypeHash, instanceHash ashtype.TypeHash) {
	key := templateKey{template: template, argsHash: ashtype.FromTemplateInstance(template, argHashes)}
	g.tmplMu.Lock()
	defer g.tmplMu.Unlock()
	if _, exists := g.tmplCache[key]; !exists {
		g.tmplCache[key] = instanceHash
	}
}

// GetCachedTemplate returns the instance hash for (template, argHashes), if
// any instantiation has already occurred.
func (g *Global) GetCachedTemplate(template ashtype.TypeHash, argHashes []ashtype.TypeHash) (ashtype.TypeHash, bool) {
	key := templateKey{template: template, argsHash: ashtype.FromTemplateInstance(template, argHashes)}
	g.tmplMu.Lock()
	defer g.tmplMu.Unlock()
	h, ok := g.tmplCache[key]
	return h, ok
}

// RegisterTemplateCallback installs the validation predicate for a
// template. Called during FFI install, before Seal.
func (g *Global) RegisterTemplateCallback(template ashtype.TypeHash, cb TemplateCallback) {
	g.tmplMu.Lock()
	defer g.tmplMu.Unlock()
	g.tmplCallback[template] = cb
}

// TemplateCallbackFor looks up a registered callback, if any.
func (g *Global) TemplateCallbackFor(template ashtype.TypeHash) (TemplateCallback, bool) {
	g.tmplMu.Lock()
	defer g.tmplMu.Unlock()
	cb, ok := g.tmplCallback[template]
	return cb, ok
}

// Lock/Unlock expose the template-instantiation write discipline described
// in spec.md §5 to callers (the template instantiator) that need to hold
// the lock across "check cache, else build, else insert" without a TOCTOU
// race between two parallel units instantiating the same template.
func (g *Global) Lock()   { g.tmplMu.Lock() }
func (g *Global) Unlock() { g.tmplMu.Unlock() }

var _ Store = (*Global)(nil)
