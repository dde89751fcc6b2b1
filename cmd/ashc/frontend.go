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

package main

import (
	"fmt"

	"github.com/ashlabs/ashc/internal/ast"
)

// Frontend turns source text into the typed syntax tree the compiler
// consumes. spec.md §6.1 places lexing/parsing out of this spec's scope
// ("an upstream pass provides a typed syntax tree"); ashc's CLI is the
// backend driver and depends on a Frontend being supplied by whatever
// embeds it. parseSource is a package variable rather than a constant
// Frontend value so tests can stub it without a build tag.
var parseSource func(unitID string, source []byte) (*ast.File, error) = unregisteredFrontend

func unregisteredFrontend(unitID string, _ []byte) (*ast.File, error) {
	return nil, fmt.Errorf("ashc: no source frontend registered for unit %q (spec.md §6.1: parsing is an upstream concern)", unitID)
}
