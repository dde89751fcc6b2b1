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

import "github.com/ashlabs/ashc/internal/ashtype"

// Unit is the per-unit (script-local) registry. It owns entries that live
// only until the compiled unit is discarded (spec.md §3.7), and is owned
// exclusively by the compiling goroutine — no internal synchronization is
// required beyond what base already provides for uniformity with Global.
type Unit struct {
	base
	UnitID string
}

// NewUnit creates an empty per-unit registry.
func NewUnit(unitID string) *Unit {
	return &Unit{base: newBase(), UnitID: unitID}
}

func (u *Unit) RegisterType(entry TypeEntry) error         { return u.registerType(entry) }
func (u *Unit) RegisterFunction(entry FunctionEntry) error  { return u.registerFunction(entry) }
func (u *Unit) RegisterGlobal(entry GlobalPropertyEntry) error {
	return u.registerGlobal(entry)
}
func (u *Unit) Get(h ashtype.TypeHash) (*TypeEntry, bool) { return u.get(h) }
func (u *Unit) GetFunction(h ashtype.FunctionHash) (*FunctionEntry, bool) {
	return u.getFunction(h)
}
func (u *Unit) GetGlobal(h ashtype.TypeHash) (*GlobalPropertyEntry, bool) {
	return u.getGlobal(h)
}
func (u *Unit) IterTypes(f func(*TypeEntry) bool)         { u.iterTypes(f) }
func (u *Unit) IterFunctions(f func(*FunctionEntry) bool) { u.iterFunctions(f) }
func (u *Unit) IterGlobals(f func(*GlobalPropertyEntry) bool) { u.iterGlobals(f) }
func (u *Unit) GetFunctionOverloads(name string) []*FunctionEntry {
	return u.getFunctionOverloads(name)
}

var _ Store = (*Unit)(nil)
