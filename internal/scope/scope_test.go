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

package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashlabs/ashc/internal/ashtype"
)

func TestDeclareLocal_AssignsIncrementingSlots(t *testing.T) {
	s := New()
	s.PushFrame()
	a, err := s.DeclareLocal("a", ashtype.Void(), false, false)
	require.NoError(t, err)
	b, err := s.DeclareLocal("b", ashtype.Void(), false, false)
	require.NoError(t, err)
	require.Equal(t, 0, a)
	require.Equal(t, 1, b)
}

func TestDeclareLocal_RedefinitionInSameFrameFails(t *testing.T) {
	s := New()
	s.PushFrame()
	_, err := s.DeclareLocal("x", ashtype.Void(), false, false)
	require.NoError(t, err)
	_, err = s.DeclareLocal("x", ashtype.Void(), false, false)
	require.Error(t, err)
}

func TestDeclareLocal_ShadowingAcrossFramesIsAllowed(t *testing.T) {
	s := New()
	s.PushFrame()
	outer, err := s.DeclareLocal("x", ashtype.Void(), false, false)
	require.NoError(t, err)
	s.PushFrame()
	inner, err := s.DeclareLocal("x", ashtype.Void(), false, false)
	require.NoError(t, err)
	require.NotEqual(t, outer, inner)

	found, ok := s.Lookup("x")
	require.True(t, ok)
	require.Equal(t, inner, found.Slot)
}

func TestPopFrame_ReturnsLocalsInReverseDeclarationOrder(t *testing.T) {
	s := New()
	s.PushFrame()
	_, _ = s.DeclareLocal("a", ashtype.Void(), false, true)
	_, _ = s.DeclareLocal("b", ashtype.Void(), false, true)
	_, _ = s.DeclareLocal("c", ashtype.Void(), false, true)
	locals := s.PopFrame()
	require.Equal(t, []string{"c", "b", "a"}, names(locals))
}

func TestLookup_FindsOuterFrameVariable(t *testing.T) {
	s := New()
	s.PushFrame()
	slot, err := s.DeclareLocal("outer", ashtype.Void(), false, false)
	require.NoError(t, err)
	s.PushFrame()
	found, ok := s.Lookup("outer")
	require.True(t, ok)
	require.Equal(t, slot, found.Slot)
}

func TestLookup_RecordsCaptureInInterveningFrames(t *testing.T) {
	s := New()
	s.PushFrame()
	_, err := s.DeclareLocal("counter", ashtype.Void(), false, false)
	require.NoError(t, err)
	s.PushFrame() // simulates the lambda body's own frame

	require.Empty(t, s.Captures())
	_, ok := s.Lookup("counter")
	require.True(t, ok)

	caps := s.Captures()
	require.Len(t, caps, 1)
	require.Equal(t, "counter", caps[0].Name)

	// Looking it up again must not duplicate the capture entry.
	_, _ = s.Lookup("counter")
	require.Len(t, s.Captures(), 1)
}

func TestLocalsSinceLoopStart_OnlyIncludesFramesOpenedAfterDepth(t *testing.T) {
	s := New()
	s.PushFrame()
	_, _ = s.DeclareLocal("before", ashtype.Void(), false, false)
	loopDepth := s.Depth()
	s.PushFrame()
	_, _ = s.DeclareLocal("inside", ashtype.Void(), false, false)

	locals := s.LocalsSinceLoopStart(loopDepth)
	require.Equal(t, []string{"inside"}, names(locals))
}

func TestAllLocals_SpansEveryActiveFrame(t *testing.T) {
	s := New()
	s.PushFrame()
	_, _ = s.DeclareLocal("a", ashtype.Void(), false, false)
	s.PushFrame()
	_, _ = s.DeclareLocal("b", ashtype.Void(), false, false)

	all := s.AllLocals()
	require.ElementsMatch(t, []string{"a", "b"}, names(all))
}

func names(locals []LocalInfo) []string {
	out := make([]string, len(locals))
	for i, l := range locals {
		out[i] = l.Name
	}
	return out
}
