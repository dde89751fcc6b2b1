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

// ConstantKind tags Constant's variant.
type ConstantKind uint8

const (
	ConstInt ConstantKind = iota
	ConstUInt
	ConstF32
	ConstF64
	ConstString
	ConstTypeHash
)

// Constant is one entry of a chunk's constant pool.
type Constant struct {
	Kind     ConstantKind
	Int      int64
	UInt     uint64
	F32      float32
	F64      float64
	Str      string
	TypeHash ashtype.TypeHash
}

// Chunk is the bytecode output of compiling one function body. Every write
// to Code appends a matching entry to Lines (parallel arrays, spec.md §3.6).
// Constants is this chunk's own private pool: every OpPushConst operand is
// an index into it, resolved at this chunk's scope only.
type Chunk struct {
	Code      []byte
	Constants []Constant
	Lines     []uint32
}

// ConstantPool is the module-level view of every constant a unit's
// functions reference (spec.md §6.2), built by merging each function's
// Chunk.Constants. It exists for inspection/serialization of a
// CompiledModule; bytecode execution still resolves OpPushConst against
// the owning Chunk's own Constants, never against this merged view.
type ConstantPool []Constant
