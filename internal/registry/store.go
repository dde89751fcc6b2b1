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

	"github.com/ashlabs/ashc/internal/ashtype"
)

// Store is the interface both the global and per-unit registries present
// (spec.md §4.1). Reads take only a shared read lock; registration mutates and
// requires exclusive access, which callers serialize by holding the builder
// phase (a single-threaded registration pass per unit, or the global
// registry's own internal lock for template-instance writes).
type Store interface {
	RegisterType(entry TypeEntry) error
	RegisterFunction(entry FunctionEntry) error
	RegisterGlobal(entry GlobalPropertyEntry) error

	Get(h ashtype.TypeHash) (*TypeEntry, bool)
	GetFunction(h ashtype.FunctionHash) (*FunctionEntry, bool)
	GetGlobal(h ashtype.TypeHash) (*GlobalPropertyEntry, bool)

	IterTypes(func(*TypeEntry) bool)
	IterFunctions(func(*FunctionEntry) bool)
	IterGlobals(func(*GlobalPropertyEntry) bool)
	GetFunctionOverloads(name string) []*FunctionEntry
}

// base implements the common bookkeeping shared by Global and Unit: plain
// maps guarded by a RWMutex. Global additionally seals and owns the
// template-instance cache; Unit is used exactly as-is.
type base struct {
	mu        sync.RWMutex
	types     map[ashtype.TypeHash]*TypeEntry
	functions map[ashtype.FunctionHash]*FunctionEntry
	globals   map[ashtype.TypeHash]*GlobalPropertyEntry
	overloads map[string][]*FunctionEntry
}

func newBase() base {
	return base{
		types:     make(map[ashtype.TypeHash]*TypeEntry),
		functions: make(map[ashtype.FunctionHash]*FunctionEntry),
		globals:   make(map[ashtype.TypeHash]*GlobalPropertyEntry),
		overloads: make(map[string][]*FunctionEntry),
	}
}

func (b *base) get(h ashtype.TypeHash) (*TypeEntry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.types[h]
	return e, ok
}

func (b *base) getFunction(h ashtype.FunctionHash) (*FunctionEntry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.functions[h]
	return e, ok
}

func (b *base) getGlobal(h ashtype.TypeHash) (*GlobalPropertyEntry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.globals[h]
	return e, ok
}

func (b *base) iterTypes(f func(*TypeEntry) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.types {
		if !f(e) {
			return
		}
	}
}

func (b *base) iterFunctions(f func(*FunctionEntry) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.functions {
		if !f(e) {
			return
		}
	}
}

func (b *base) iterGlobals(f func(*GlobalPropertyEntry) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.globals {
		if !f(e) {
			return
		}
	}
}

func (b *base) getFunctionOverloads(name string) []*FunctionEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*FunctionEntry(nil), b.overloads[name]...)
}

func (b *base) registerType(entry TypeEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.types[entry.TypeHash]; exists {
		return &DuplicateDefinitionError{Hash: entry.TypeHash, What: "type", Name: entry.QualifiedName}
	}
	e := entry
	b.types[entry.TypeHash] = &e
	return nil
}

func (b *base) registerFunction(entry FunctionEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.functions[entry.Def.FuncHash]; exists {
		return &DuplicateDefinitionError{Hash: entry.Def.FuncHash, What: "function", Name: entry.Def.Name}
	}
	e := entry
	b.functions[entry.Def.FuncHash] = &e
	b.overloads[entry.Def.Name] = append(b.overloads[entry.Def.Name], &e)
	return nil
}

func (b *base) registerGlobal(entry GlobalPropertyEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.globals[entry.Hash]; exists {
		return &DuplicateDefinitionError{Hash: entry.Hash, What: "global", Name: entry.QualifiedName}
	}
	e := entry
	b.globals[entry.Hash] = &e
	return nil
}
