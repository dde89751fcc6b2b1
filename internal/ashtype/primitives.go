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

package ashtype

// PrimitiveKind enumerates the built-in catalog (spec.md §3.3 Primitive).
type PrimitiveKind uint8

const (
	PrimVoid PrimitiveKind = iota
	PrimBool
	PrimInt8
	PrimInt16
	PrimInt32
	PrimInt64
	PrimUint8
	PrimUint16
	PrimUint32
	PrimUint64
	PrimFloat
	PrimDouble
	PrimString
)

// PrimitiveInfo describes one built-in primitive: its name (used to compute
// its hash the same way any other type is hashed) and its rank for the
// widening/narrowing cost table (§4.5).
type PrimitiveInfo struct {
	Kind PrimitiveKind
	Name string
	// IntRank orders the integer types by width for widening/narrowing
	// decisions; 0 for non-integer kinds.
	IntRank int
	IsFloat bool
	IsInt   bool
	Signed  bool
}

// Primitives is the built-in catalog in declaration order. The registration
// pass pre-populates a global registry with exactly these entries before
// any FFI or script registration occurs.
var Primitives = []PrimitiveInfo{
	{PrimVoid, "void", 0, false, false, false},
	{PrimBool, "bool", 0, false, false, false},
	{PrimInt8, "int8", 1, false, true, true},
	{PrimInt16, "int16", 2, false, true, true},
	{PrimInt32, "int32", 3, false, true, true},
	{PrimInt64, "int64", 4, false, true, true},
	{PrimUint8, "uint8", 1, false, true, false},
	{PrimUint16, "uint16", 2, false, true, false},
	{PrimUint32, "uint32", 3, false, true, false},
	{PrimUint64, "uint64", 4, false, true, false},
	{PrimFloat, "float", 5, true, false, false},
	{PrimDouble, "double", 6, true, false, false},
	{PrimString, "string", 0, false, false, false},
}

var (
	primByHash = map[TypeHash]PrimitiveInfo{}
	primByName = map[string]PrimitiveInfo{}
)

func init() {
	for _, p := range Primitives {
		h := FromName(p.Name)
		primByHash[h] = p
		primByName[p.Name] = p
	}
}

// PrimitiveHash returns the TypeHash for a primitive by name, or false if
// name does not name a primitive.
func PrimitiveHash(name string) (TypeHash, bool) {
	p, ok := primByName[name]
	if !ok {
		return 0, false
	}
	return FromName(p.Name), true
}

// LookupPrimitive returns the PrimitiveInfo for a hash, if it names a
// primitive.
func LookupPrimitive(h TypeHash) (PrimitiveInfo, bool) {
	p, ok := primByHash[h]
	return p, ok
}

// IsPrimitive reports whether h names one of the built-in primitives.
func IsPrimitive(h TypeHash) bool {
	_, ok := primByHash[h]
	return ok
}
