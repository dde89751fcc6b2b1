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

package diagnostic

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender_PlainTextCaratsTheSpan(t *testing.T) {
	source := "int x = y + 1;\n"
	d := New(UndefinedVariable, Span{File: "main.as", ByteStart: 8, ByteEnd: 9}, "undefined variable: y")

	var buf bytes.Buffer
	r := NewRenderer(&buf, true)
	r.Render(d, source)

	out := buf.String()
	require.Contains(t, out, "main.as:1:9:")
	require.Contains(t, out, "UndefinedVariable")
	require.Contains(t, out, "int x = y + 1;")
	require.Contains(t, out, "        ^")
}

func TestRender_OutOfRangeSpanSkipsSourceLine(t *testing.T) {
	d := New(Internal, Span{File: "main.as", ByteStart: 999, ByteEnd: 1000}, "compiler bug")

	var buf bytes.Buffer
	r := NewRenderer(&buf, true)
	r.Render(d, "short")

	out := buf.String()
	require.Contains(t, out, "compiler bug")
}

func TestLocate_MultilineOffsets(t *testing.T) {
	source := "a\nbb\nccc"
	line, text, col := locate(source, 5)
	require.Equal(t, 3, line)
	require.Equal(t, "ccc", text)
	require.Equal(t, 1, col)
}
