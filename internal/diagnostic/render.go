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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Renderer turns a Diagnostic plus its source text into the carat-pointing
// message spec.md §6.6 requires. Color highlighting auto-disables on a
// non-TTY writer (e.g. output piped to a file) or when NoColor is forced.
type Renderer struct {
	w       io.Writer
	useColor bool
}

// NewRenderer creates a Renderer writing to w. noColor forces plain text
// regardless of TTY detection (wired to `ashc --no-color`).
func NewRenderer(w io.Writer, noColor bool) *Renderer {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Renderer{w: w, useColor: tty && !noColor}
}

// Render writes one diagnostic against source, the full text of the unit
// the diagnostic's Span refers to. Byte offsets outside source's bounds
// (a mismatched source/diagnostic pairing) fall back to the message alone.
func (r *Renderer) Render(d *Diagnostic, source string) {
	loc, lineText, col := locate(source, d.Span.ByteStart)

	kindColor := color.New(color.FgRed, color.Bold)
	locColor := color.New(color.FgHiBlack)
	caratColor := color.New(color.FgRed, color.Bold)

	if !r.useColor {
		kindColor.DisableColor()
		locColor.DisableColor()
		caratColor.DisableColor()
	}

	header := fmt.Sprintf("%s: %s", d.Kind, d.Message)
	if d.Span.File != "" {
		fmt.Fprintf(r.w, "%s %s\n", locColor.Sprintf("%s:%d:%d:", d.Span.File, loc, col), kindColor.Sprint(header))
	} else {
		fmt.Fprintln(r.w, kindColor.Sprint(header))
	}
	if lineText == "" {
		return
	}

	fmt.Fprintf(r.w, "  %s\n", lineText)
	width := d.Span.ByteEnd - d.Span.ByteStart
	if width < 1 {
		width = 1
	}
	if col-1+width > len(lineText) {
		width = len(lineText) - (col - 1)
	}
	if width < 1 {
		width = 1
	}
	carat := strings.Repeat(" ", col-1) + strings.Repeat("^", width)
	fmt.Fprintf(r.w, "  %s\n", caratColor.Sprint(carat))
}

// locate turns a byte offset into a 1-based line/column and the text of
// that line, scanning source once. Out-of-range offsets return line 1,
// column 1, and an empty line (nothing to carat-point).
func locate(source string, offset int) (line int, lineText string, col int) {
	if offset < 0 || offset > len(source) {
		return 1, "", 1
	}
	line = 1
	lineStart := 0
	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	lineEnd := strings.IndexByte(source[lineStart:], '\n')
	if lineEnd == -1 {
		lineText = source[lineStart:]
	} else {
		lineText = source[lineStart : lineStart+lineEnd]
	}
	col = offset - lineStart + 1
	return line, lineText, col
}
