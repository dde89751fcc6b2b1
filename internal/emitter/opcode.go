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

// Package emitter implements the bytecode emitter (spec.md §4.7): a stack
// machine instruction buffer with constant pool, jump patching, and
// loop/switch break-target bookkeeping.
package emitter

// Op is one stack-machine instruction, encoded as a single byte in Chunk.Code
// followed by whatever operand bytes that opcode declares (spec.md §3.6).
type Op byte

const (
	OpNop Op = iota

	// Literals.
	OpPushNull
	OpPushTrue
	OpPushFalse
	OpPushConst // u16 constant-pool index

	// Locals.
	OpLoadLocal  // u8 slot
	OpStoreLocal // u8 slot
	OpLoadThis
	OpPop
	OpDup

	// Fields/properties.
	OpLoadField // u16 field index
	OpStoreField

	// Globals. Identified by a constant-pool slot holding the property's
	// type hash rather than a small index, since globals are process-wide.
	OpLoadGlobal  // u16 constant-pool index holding the global's hash
	OpStoreGlobal // u16 constant-pool index holding the global's hash

	// Calls.
	OpCall          // u16 constant-pool index holding the function hash
	OpCallMethod    // u16 constant-pool index holding the function hash
	OpCallInterface // u16 iface const index, u16 slot index
	OpNew           // u16 constant-pool index holding the constructor hash
	OpNewFactory    // u16 constant-pool index holding the factory hash
	OpFuncPtr       // u16 function constant index, u8 capture count
	OpCallIndirect  // calls the function-pointer value already on top of the stack

	// Control flow. Jump operands are signed 16-bit, patched relative to the
	// instruction following the jump (spec.md §3.6).
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpLoop

	OpReturn
	OpReturnVoid

	// Primitive conversions.
	OpI32toF64
	OpI64toF64
	OpF64toI32
	OpWiden  // u8 from-kind, u8 to-kind
	OpNarrow // u8 from-kind, u8 to-kind

	// Handle/hierarchy conversions.
	OpHandleToConst
	OpDerivedToBase // u16 type constant index
	OpClassToInterface // u16 type constant index
	OpValueToHandle
	OpCast // u16 type constant index; may yield null

	// Comparisons (primitive fast paths; opEquals/opCmp otherwise go through
	// OpCallMethod). <=, >, >= are derived at compile time from Lt plus a
	// swapped operand order or OpNot, so no dedicated opcodes exist for them.
	OpEqI
	OpEqF
	OpLtI
	OpLtF
	OpNot

	// Primitive arithmetic (spec.md §4.6: "primitive operator table first").
	// Operands are already widened to a common kind by the checker before
	// either of these is emitted, so no kind byte is carried.
	OpAddI
	OpAddF
	OpSubI
	OpSubF
	OpMulI
	OpMulF
	OpDivI
	OpDivF
	OpModI
	OpModF
	OpNegI
	OpNegF

	// Bitwise (integer operands only).
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpBitCom

	// Init lists.
	OpInitListBegin // u16 element count
	OpInitListEnd

	// Exception markers.
	OpTryStart
	OpTryEnd

	// Foreach/iterator protocol reuses OpCallMethod against the behavior
	// hashes; no dedicated opcodes beyond the ones above are required.
)

// operandBytes records how many operand bytes (beyond the opcode itself)
// each Op declares, used by disassembly/debugging tools.
var operandBytes = map[Op]int{
	OpPushConst:        2,
	OpLoadLocal:        1,
	OpStoreLocal:       1,
	OpLoadField:        2,
	OpStoreField:       2,
	OpLoadGlobal:       2,
	OpStoreGlobal:      2,
	OpCall:             2,
	OpCallMethod:       2,
	OpCallInterface:    4,
	OpNew:              2,
	OpNewFactory:       2,
	OpFuncPtr:          3,
	OpJump:             2,
	OpJumpIfFalse:      2,
	OpJumpIfTrue:       2,
	OpLoop:             2,
	OpWiden:            2,
	OpNarrow:           2,
	OpDerivedToBase:    2,
	OpClassToInterface: 2,
	OpCast:             2,
	OpInitListBegin:    2,
}

// OperandBytes reports how many operand bytes follow op in the stream.
func OperandBytes(op Op) int { return operandBytes[op] }
