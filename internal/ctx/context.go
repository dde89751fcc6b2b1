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

// Package ctx implements the compilation context (spec.md §4.2): a layered
// lookup over the global and per-unit registries, the namespace/import
// stack, and the per-unit diagnostic buffer.
package ctx

import (
	"log/slog"

	"github.com/ashlabs/ashc/internal/ashtype"
	"github.com/ashlabs/ashc/internal/diagnostic"
	"github.com/ashlabs/ashc/internal/metrics"
	"github.com/ashlabs/ashc/internal/registry"
)

// Context wraps a reference to the global registry and owns a per-unit
// registry. One Context exists per compiling goroutine; it is never shared
// across units (spec.md §5).
type Context struct {
	Global *registry.Global
	Unit   *registry.Unit

	namespaceStack []string
	namespaceCache string

	importStack [][]string // one slice of import paths per active block
	importCache []string   // flattened, "::"-joined, refreshed on change

	errors diagnostic.Sink
	logger *slog.Logger
	m      *metrics.Metrics
}

// New creates a Context for compiling the unit identified by unitID against
// global. Matches NewParser(logger)'s nil-check idiom from the teacher.
func New(global *registry.Global, unitID string, logger *slog.Logger) *Context {
	return NewWithMetrics(global, unitID, logger, nil)
}

// NewWithMetrics is New plus an optional *metrics.Metrics, used by the
// pipeline driver to observe diagnostics as they're reported. m may be nil.
func NewWithMetrics(global *registry.Global, unitID string, logger *slog.Logger, m *metrics.Metrics) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		Global: global,
		Unit:   registry.NewUnit(unitID),
		logger: logger,
		m:      m,
	}
}

// ReportError pushes a diagnostic into the per-unit buffer.
func (c *Context) ReportError(d *diagnostic.Diagnostic) {
	c.logger.Debug("ctx.diagnostic", "kind", d.Kind, "message", d.Message)
	c.errors.Push(d)
	if c.m != nil {
		c.m.ObserveDiagnostic(string(d.Kind))
	}
}

// TakeErrors drains and returns the diagnostic buffer.
func (c *Context) TakeErrors() []*diagnostic.Diagnostic { return c.errors.TakeErrors() }

// HasFatalError reports whether a fatal diagnostic has been recorded.
func (c *Context) HasFatalError() bool { return c.errors.HasFatal() }

// ErrorCount reports how many diagnostics are currently buffered.
func (c *Context) ErrorCount() int { return c.errors.Len() }

// --- Namespace stack (spec.md §4.2.1) ---------------------------------

// EnterNamespace pushes name onto the namespace stack and refreshes the
// cached joined string. Refreshing only here (never recomputed on lookup)
// is the point of the cache: resolve_type must not rejoin the stack on
// every call.
func (c *Context) EnterNamespace(name string) {
	c.namespaceStack = append(c.namespaceStack, name)
	c.refreshNamespaceCache()
}

// ExitNamespace pops the innermost namespace.
func (c *Context) ExitNamespace() {
	if len(c.namespaceStack) == 0 {
		return
	}
	c.namespaceStack = c.namespaceStack[:len(c.namespaceStack)-1]
	c.refreshNamespaceCache()
}

func (c *Context) refreshNamespaceCache() {
	c.namespaceCache = ashtype.JoinQualified(c.namespaceStack...)
}

// CurrentNamespace returns the cached, already-joined current namespace
// ("" at global scope).
func (c *Context) CurrentNamespace() string { return c.namespaceCache }

// AddImport pushes an import path onto the innermost active import scope
// and refreshes the cached list. `using namespace N;` imports scope into
// the remainder of the enclosing block (spec.md §4.9). PushImportScope and
// PopImportScope open and close such a block scope; the registration pass
// calls only AddImport, so its imports land in one unit-level scope.
func (c *Context) AddImport(path string) {
	if len(c.importStack) == 0 {
		c.importStack = append(c.importStack, nil)
	}
	top := len(c.importStack) - 1
	c.importStack[top] = append(c.importStack[top], path)
	c.refreshImportCache()
}

// ClearImports drops all active imports (used when entering a fresh block
// scope that does not inherit outer `using namespace` directives, e.g. a
// new compilation unit).
func (c *Context) ClearImports() {
	c.importStack = nil
	c.refreshImportCache()
}

// PushImportScope opens a new import scope for the block being entered.
func (c *Context) PushImportScope() {
	c.importStack = append(c.importStack, nil)
	c.refreshImportCache()
}

// PopImportScope closes the innermost import scope (block exit).
func (c *Context) PopImportScope() {
	if len(c.importStack) == 0 {
		return
	}
	c.importStack = c.importStack[:len(c.importStack)-1]
	c.refreshImportCache()
}

func (c *Context) refreshImportCache() {
	c.importCache = c.importCache[:0]
	for _, scope := range c.importStack {
		c.importCache = append(c.importCache, scope...)
	}
}

// Imports returns the currently active, flattened import list.
func (c *Context) Imports() []string { return append([]string(nil), c.importCache...) }

// --- Resolution ---------------------------------------------------------

// ResolveType searches current namespace, then imports, then global for a
// simple name, in that order (spec.md §4.2). It performs no allocation
// beyond what ashtype.FromQualifiedName itself needs.
func (c *Context) ResolveType(name string) (ashtype.TypeHash, bool) {
	if h := ashtype.FromQualifiedName(c.namespaceCache, name); c.typeExists(h) {
		return h, true
	}
	for _, imp := range c.importCache {
		if h := ashtype.FromQualifiedName(imp, name); c.typeExists(h) {
			return h, true
		}
	}
	if h := ashtype.FromName(name); c.typeExists(h) {
		return h, true
	}
	return 0, false
}

// ResolveQualifiedType resolves a fully-qualified path (e.g.
// "game::ai::Enemy") directly against both registries, without consulting
// the namespace/import search order (the path is already unambiguous).
func (c *Context) ResolveQualifiedType(path []string) (ashtype.TypeHash, bool) {
	h := ashtype.FromIdentParts(path)
	if c.typeExists(h) {
		return h, true
	}
	return 0, false
}

func (c *Context) typeExists(h ashtype.TypeHash) bool {
	if _, ok := c.Unit.Get(h); ok {
		return true
	}
	_, ok := c.Global.Get(h)
	return ok
}

// ResolveGlobal looks up a global property by simple name using the same
// search order as ResolveType.
func (c *Context) ResolveGlobal(name string) (*registry.GlobalPropertyEntry, bool) {
	if e, ok := c.Unit.GetGlobal(ashtype.FromQualifiedName(c.namespaceCache, name)); ok {
		return e, true
	}
	for _, imp := range c.importCache {
		if e, ok := c.Unit.GetGlobal(ashtype.FromQualifiedName(imp, name)); ok {
			return e, true
		}
	}
	if e, ok := c.Global.GetGlobal(ashtype.FromQualifiedName(c.namespaceCache, name)); ok {
		return e, true
	}
	for _, imp := range c.importCache {
		if e, ok := c.Global.GetGlobal(ashtype.FromQualifiedName(imp, name)); ok {
			return e, true
		}
	}
	if e, ok := c.Unit.GetGlobal(ashtype.FromName(name)); ok {
		return e, true
	}
	if e, ok := c.Global.GetGlobal(ashtype.FromName(name)); ok {
		return e, true
	}
	return nil, false
}

// GetType checks the unit registry first, then global.
func (c *Context) GetType(h ashtype.TypeHash) (*registry.TypeEntry, bool) {
	if e, ok := c.Unit.Get(h); ok {
		return e, true
	}
	return c.Global.Get(h)
}

// GetFunction checks the unit registry first, then global.
func (c *Context) GetFunction(h ashtype.FunctionHash) (*registry.FunctionEntry, bool) {
	if e, ok := c.Unit.GetFunction(h); ok {
		return e, true
	}
	return c.Global.GetFunction(h)
}

// GetGlobal checks the unit registry first, then global.
func (c *Context) GetGlobal(h ashtype.TypeHash) (*registry.GlobalPropertyEntry, bool) {
	if e, ok := c.Unit.GetGlobal(h); ok {
		return e, true
	}
	return c.Global.GetGlobal(h)
}

// GetFunctionOverloads concatenates overloads from both registries.
func (c *Context) GetFunctionOverloads(name string) []*registry.FunctionEntry {
	out := c.Unit.GetFunctionOverloads(name)
	out = append(out, c.Global.GetFunctionOverloads(name)...)
	return out
}

// FindMethods walks classHash's Methods list (and, on miss, its base chain,
// then the interfaces of every class visited) looking for methods named
// name, resolving each hash against both registries.
func (c *Context) FindMethods(classHash ashtype.TypeHash, name string) []*registry.FunctionEntry {
	var out []*registry.FunctionEntry
	var ifaces []ashtype.TypeHash
	seen := map[ashtype.TypeHash]bool{}
	cur := classHash
	for cur != 0 && !seen[cur] {
		seen[cur] = true
		entry, ok := c.GetType(cur)
		if !ok || entry.Kind != registry.KindClass {
			break
		}
		for _, mh := range entry.Class.Methods {
			fn, ok := c.GetFunction(mh)
			if ok && fn.Def.Name == name {
				out = append(out, fn)
			}
		}
		if len(out) > 0 {
			return out
		}
		ifaces = append(ifaces, entry.Class.Interfaces...)
		cur = entry.Class.Base
	}
	for _, ih := range ifaces {
		out = append(out, c.findInterfaceMethods(ih, name)...)
	}
	return out
}

func (c *Context) findInterfaceMethods(ifaceHash ashtype.TypeHash, name string) []*registry.FunctionEntry {
	entry, ok := c.GetType(ifaceHash)
	if !ok || entry.Kind != registry.KindInterface {
		return nil
	}
	var out []*registry.FunctionEntry
	for _, mh := range entry.Interface.Methods {
		fn, ok := c.GetFunction(mh)
		if ok && fn.Def.Name == name {
			out = append(out, fn)
		}
	}
	for _, eh := range entry.Interface.Extends {
		out = append(out, c.findInterfaceMethods(eh, name)...)
	}
	return out
}

// IsDerivedFrom walks the base-class chain of derived looking for base.
func (c *Context) IsDerivedFrom(derived, base ashtype.TypeHash) bool {
	cur := derived
	seen := map[ashtype.TypeHash]bool{}
	for cur != 0 && !seen[cur] {
		if cur == base {
			return true
		}
		seen[cur] = true
		entry, ok := c.GetType(cur)
		if !ok || entry.Kind != registry.KindClass {
			return false
		}
		cur = entry.Class.Base
	}
	return false
}

// ImplementsInterface reports whether classHash's interface list contains
// ifaceHash, directly or via a base class.
func (c *Context) ImplementsInterface(classHash, ifaceHash ashtype.TypeHash) bool {
	cur := classHash
	seen := map[ashtype.TypeHash]bool{}
	for cur != 0 && !seen[cur] {
		seen[cur] = true
		entry, ok := c.GetType(cur)
		if !ok || entry.Kind != registry.KindClass {
			return false
		}
		for _, ih := range entry.Class.Interfaces {
			if ih == ifaceHash {
				return true
			}
		}
		cur = entry.Class.Base
	}
	return false
}

// Logger exposes the context's injected logger to subcheckers.
func (c *Context) Logger() *slog.Logger { return c.logger }
