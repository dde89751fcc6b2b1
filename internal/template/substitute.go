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

package template

import "github.com/ashlabs/ashc/internal/ashtype"

// substituteDataType implements spec.md §4.4's modifier-preservation rule:
// when a substituted type appears with modifiers at the use site
// ("const T&in"), OR-merge the use-site modifiers with the replacement
// argument's own modifiers; ref_modifier always comes from the use site,
// never the argument, since reference-ness is a call-site property.
func substituteDataType(orig ashtype.DataType, sub substitution) ashtype.DataType {
	repl, ok := sub[orig.TypeHash]
	if !ok {
		return orig
	}
	merged := ashtype.DataType{
		TypeHash:    repl.TypeHash,
		IsConst:     orig.IsConst || repl.IsConst,
		IsHandle:    orig.IsHandle || repl.IsHandle,
		RefModifier: orig.RefModifier,
	}
	// if_handle_then_const: "const T" meeting "T@" (i.e. the use site was
	// const but not itself a handle, and the replacement turns out to be a
	// handle) yields a handle-to-const rather than a mutable handle.
	if merged.IsHandle && (orig.IsConst || repl.IsHandleToConst) {
		merged.IsHandleToConst = true
	}
	return merged
}

func substituteTypeHash(h ashtype.TypeHash, sub substitution) ashtype.TypeHash {
	if h == 0 {
		return 0
	}
	if repl, ok := sub[h]; ok {
		return repl.TypeHash
	}
	return h
}

func substituteHashList(hashes []ashtype.TypeHash, sub substitution) []ashtype.TypeHash {
	if len(hashes) == 0 {
		return nil
	}
	out := make([]ashtype.TypeHash, len(hashes))
	for i, h := range hashes {
		out[i] = substituteTypeHash(h, sub)
	}
	return out
}
