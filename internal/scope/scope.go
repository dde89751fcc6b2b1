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

// Package scope implements local lexical scope tracking (spec.md §4.8): a
// stack of frames with shadowing, declaration-order destruction, and lambda
// capture recording.
package scope

import (
	"fmt"

	"github.com/ashlabs/ashc/internal/ashtype"
)

// LocalInfo describes one declared local variable.
type LocalInfo struct {
	Name           string
	Slot           int
	DataType       ashtype.DataType
	IsConst        bool
	NeedsDestructor bool
}

// CapturedVar is a lambda's reference to a variable declared in an
// enclosing frame.
type CapturedVar struct {
	Name     string
	DataType ashtype.DataType
	// OuterSlot is the slot in the enclosing function where the captured
	// value lives; the lambda's own frame never reuses that slot number.
	OuterSlot int
}

type frame struct {
	locals   []LocalInfo
	byName   map[string]int // name -> index into locals
	captures []CapturedVar
	seenCapture map[string]bool
}

func newFrame() *frame {
	return &frame{byName: map[string]int{}, seenCapture: map[string]bool{}}
}

// Scope is a stack of frames, one per compiling function plus one per
// nested block (spec.md §4.8). nextSlot is shared across the whole function
// so that locals in sibling blocks never alias.
type Scope struct {
	frames   []*frame
	nextSlot int
}

// New creates an empty Scope.
func New() *Scope { return &Scope{} }

// PushFrame opens a new lexical block.
func (s *Scope) PushFrame() { s.frames = append(s.frames, newFrame()) }

// PopFrame closes the innermost frame and returns its locals in reverse
// declaration order — the order the statement compiler must emit
// destructor calls in (spec.md §4.8).
func (s *Scope) PopFrame() []LocalInfo {
	n := len(s.frames)
	if n == 0 {
		return nil
	}
	top := s.frames[n-1]
	s.frames = s.frames[:n-1]
	out := make([]LocalInfo, len(top.locals))
	for i, l := range top.locals {
		out[len(top.locals)-1-i] = l
	}
	return out
}

// DeclareLocal declares name in the innermost frame, returning its slot.
// Fails with an error if name already exists in that frame (shadowing
// across frames remains legal).
func (s *Scope) DeclareLocal(name string, dt ashtype.DataType, isConst, needsDestructor bool) (int, error) {
	if len(s.frames) == 0 {
		return 0, fmt.Errorf("declare_local called with no active frame")
	}
	top := s.frames[len(s.frames)-1]
	if _, exists := top.byName[name]; exists {
		return 0, fmt.Errorf("VariableRedefinition: %q already declared in this scope", name)
	}
	slot := s.nextSlot
	s.nextSlot++
	top.byName[name] = len(top.locals)
	top.locals = append(top.locals, LocalInfo{Name: name, Slot: slot, DataType: dt, IsConst: isConst, NeedsDestructor: needsDestructor})
	return slot, nil
}

// Lookup searches from the innermost frame outward for name. When the
// match is found in a frame other than the innermost, the variable is
// recorded as captured in every frame between here and there (spec.md
// §4.8's "automatic capture recording"), so lambda bodies know what to
// close over without a separate analysis pass.
func (s *Scope) Lookup(name string) (LocalInfo, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if idx, ok := f.byName[name]; ok {
			info := f.locals[idx]
			for j := i + 1; j < len(s.frames); j++ {
				s.recordCapture(j, info)
			}
			return info, true
		}
	}
	return LocalInfo{}, false
}

func (s *Scope) recordCapture(frameIdx int, info LocalInfo) {
	f := s.frames[frameIdx]
	if f.seenCapture[info.Name] {
		return
	}
	f.seenCapture[info.Name] = true
	f.captures = append(f.captures, CapturedVar{Name: info.Name, DataType: info.DataType, OuterSlot: info.Slot})
}

// Captures returns the innermost frame's recorded captures — the list a
// lambda compiles into its FuncPtr capture operand.
func (s *Scope) Captures() []CapturedVar {
	if len(s.frames) == 0 {
		return nil
	}
	return append([]CapturedVar(nil), s.frames[len(s.frames)-1].captures...)
}

// LocalsSinceLoopStart returns every local declared in frames opened after
// depth (inclusive), innermost first — the cleanup list break/continue must
// emit destructor calls for (spec.md §4.8).
func (s *Scope) LocalsSinceLoopStart(depth int) []LocalInfo {
	var out []LocalInfo
	for i := len(s.frames) - 1; i >= depth && i >= 0; i-- {
		out = append(out, s.frames[i].locals...)
	}
	return out
}

// AllLocals returns every local currently live across all active frames,
// innermost first — used for return-path cleanup (spec.md §4.8).
func (s *Scope) AllLocals() []LocalInfo {
	var out []LocalInfo
	for i := len(s.frames) - 1; i >= 0; i-- {
		out = append(out, s.frames[i].locals...)
	}
	return out
}

// Depth reports how many frames are currently open, used by the statement
// compiler to record a loop's scope depth at entry.
func (s *Scope) Depth() int { return len(s.frames) }
