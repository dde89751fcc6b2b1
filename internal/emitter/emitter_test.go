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

package emitter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashlabs/ashc/internal/registry"
)

func TestEmitOp_AppendsParallelLinesEntry(t *testing.T) {
	e := New()
	e.SetLine(7)
	e.EmitOp(OpPushTrue)
	require.Equal(t, []byte{byte(OpPushTrue)}, e.Chunk().Code)
	require.Equal(t, []uint32{7}, e.Chunk().Lines)
}

func TestEmitConstant_ReturnsIncrementingIndex(t *testing.T) {
	e := New()
	i0 := e.EmitConstant(registry.Constant{Kind: registry.ConstInt, Int: 1})
	i1 := e.EmitConstant(registry.Constant{Kind: registry.ConstInt, Int: 2})
	require.Equal(t, uint16(0), i0)
	require.Equal(t, uint16(1), i1)
	require.Len(t, e.Chunk().Constants, 2)
}

func TestJump_ForwardPatchesCorrectDistance(t *testing.T) {
	e := New()
	h := e.EmitJump(OpJumpIfFalse)
	e.EmitOp(OpPushTrue)
	e.EmitOp(OpPop)
	e.PatchJump(h)

	dist := int16(e.Chunk().Code[int(h)])<<8 | int16(e.Chunk().Code[int(h)+1])
	require.Equal(t, int16(2), dist) // two single-byte ops after the operand
}

func TestLoop_BackwardJumpIsNegative(t *testing.T) {
	e := New()
	start := e.Offset()
	e.EmitOp(OpPushTrue)
	e.EmitLoop(start)

	loopOpcodeOffset := e.Offset() - 3 // op byte + 2 operand bytes
	require.Equal(t, byte(OpLoop), e.Chunk().Code[loopOpcodeOffset])
	hi := e.Chunk().Code[loopOpcodeOffset+1]
	lo := e.Chunk().Code[loopOpcodeOffset+2]
	dist := int16(uint16(hi)<<8 | uint16(lo))
	require.Negative(t, dist)
}

func TestPushPopLoop_PatchesOutstandingBreaks(t *testing.T) {
	e := New()
	e.PushLoop(0, 0)
	h := e.EmitJump(OpJump)
	require.NoError(t, e.EmitBreak())
	e.PopLoop()

	// The manual jump handle h was never registered with the loop, so it
	// stays unpatched (still 0xFFFF). The break jump's operand (bytes 4-5)
	// is patched to land right after itself, at offset 6: distance 0.
	require.False(t, e.InLoop())
	require.Equal(t, []byte{0xFF, 0xFF}, e.Chunk().Code[int(h):int(h)+2])
	require.Equal(t, []byte{0x00, 0x00}, e.Chunk().Code[4:6])
}

func TestEmitBreak_OutsideLoopOrSwitchFails(t *testing.T) {
	e := New()
	err := e.EmitBreak()
	require.Error(t, err)
}

func TestEmitContinue_OutsideLoopFails(t *testing.T) {
	e := New()
	err := e.EmitContinue()
	require.Error(t, err)
}

func TestEmitBreak_TargetsInnermostConstruct(t *testing.T) {
	e := New()
	e.PushLoop(0, 0)
	e.PushSwitch()
	require.NoError(t, e.EmitBreak())
	e.PopSwitch() // should patch the break just emitted
	require.True(t, e.InLoop())
	require.False(t, e.InSwitch())
	e.PopLoop()
}

func TestEmitContinue_TargetsInnermostLoopEvenInsideSwitch(t *testing.T) {
	e := New()
	e.PushLoop(5, 0)
	e.PushSwitch()
	require.NoError(t, e.EmitContinue())
	e.PopSwitch()
	e.PopLoop()
}
