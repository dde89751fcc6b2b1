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

// RefModifier is orthogonal to const/handle. It only ever appears on
// parameter or return positions, never on a storage slot (spec.md §3.2).
type RefModifier uint8

const (
	RefNone RefModifier = iota
	RefIn
	RefOut
	RefInOut
)

func (m RefModifier) String() string {
	switch m {
	case RefIn:
		return "&in"
	case RefOut:
		return "&out"
	case RefInOut:
		return "&inout"
	default:
		return ""
	}
}

// DataType is a pure value: cheap to copy, carries no memory ownership, and
// never holds a pointer into a registry. It names a type only by hash.
type DataType struct {
	TypeHash        TypeHash
	IsConst         bool
	IsHandle        bool
	IsHandleToConst bool
	RefModifier     RefModifier
}

// Invariant (spec.md §3.2): IsHandleToConst implies IsHandle.
func (d DataType) valid() bool {
	return !d.IsHandleToConst || d.IsHandle
}

// Void is the canonical void DataType.
func Void() DataType { return DataType{TypeHash: VoidHash} }

// Null is the canonical null-literal DataType; legal only where a handle is
// expected.
func Null() DataType { return DataType{TypeHash: NullHash, IsHandle: true} }

// IsNull reports whether d is the null-literal sentinel.
func (d DataType) IsNull() bool { return d.TypeHash == NullHash }

// IsVoid reports whether d is void.
func (d DataType) IsVoid() bool { return d.TypeHash == VoidHash }

// WithConst returns a copy of d with IsConst set. Adding const never clears
// IsHandleToConst; it is not a symmetric operation.
func (d DataType) WithConst(c bool) DataType {
	d.IsConst = c
	return d
}

// AsHandle returns a copy of d marked as a handle (T@).
func (d DataType) AsHandle() DataType {
	d.IsHandle = true
	return d
}

// AsHandleToConst returns a copy of d marked as a handle-to-const (const T@
// / T@ const), which forces IsHandle true per the invariant above.
func (d DataType) AsHandleToConst() DataType {
	d.IsHandle = true
	d.IsHandleToConst = true
	return d
}

// WithRef returns a copy of d with the given reference modifier. Only
// meaningful in parameter/return position; callers are responsible for not
// attaching it to a storage slot's DataType.
func (d DataType) WithRef(m RefModifier) DataType {
	d.RefModifier = m
	return d
}

// StripModifiers drops const/handle/ref qualification, keeping only the
// underlying type identity. Used by `auto` inference (spec.md §9): `auto x
// = e` resolves x to e's rvalue type with modifiers stripped so that `auto`
// never accidentally picks up `&in`.
func (d DataType) StripModifiers() DataType {
	return DataType{TypeHash: d.TypeHash}
}

// Equal reports whether two DataTypes name the same type with the same
// qualification — used by the conversion system's Identity fast path.
func (d DataType) Equal(o DataType) bool {
	return d.TypeHash == o.TypeHash &&
		d.IsConst == o.IsConst &&
		d.IsHandle == o.IsHandle &&
		d.IsHandleToConst == o.IsHandleToConst &&
		d.RefModifier == o.RefModifier
}

// SameIdentity reports whether two DataTypes refer to the same underlying
// type, ignoring const/handle/ref qualification.
func (d DataType) SameIdentity(o DataType) bool {
	return d.TypeHash == o.TypeHash
}
