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

import (
	"fmt"

	"github.com/ashlabs/ashc/internal/ashtype"
)

// DuplicateDefinitionError fires when register_type/register_function tries
// to insert a hash that already exists.
type DuplicateDefinitionError struct {
	Hash ashtype.TypeHash
	What string
	Name string
}

func (e *DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("duplicate %s definition: %s (%v)", e.What, e.Name, e.Hash)
}

// AlreadySealedError fires when a write is attempted on a sealed global
// registry.
type AlreadySealedError struct{}

func (e *AlreadySealedError) Error() string {
	return "registry is sealed: no further registration permitted"
}
