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

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault_HasSaneKnobs(t *testing.T) {
	cfg := Default()
	require.Equal(t, 32, cfg.MaxTemplateDepth)
	require.Equal(t, 64, cfg.MaxDiagnosticsPerFunction)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_MissingExplicitPathReturnsError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
	require.Nil(t, cfg)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)

	original := Default()
	original.MaxTemplateDepth = 8
	original.LogLevel = "debug"
	require.NoError(t, Save(original, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, loaded.MaxTemplateDepth)
	require.Equal(t, "debug", loaded.LogLevel)
	require.Equal(t, original.EmitterBufferPreallocBytes, loaded.EmitterBufferPreallocBytes)
}

func TestLoad_EnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)
	require.NoError(t, Save(Default(), path))

	t.Setenv("ASHC_LOG_LEVEL", "warn")
	t.Setenv("ASHC_MAX_TEMPLATE_DEPTH", "4")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "warn", loaded.LogLevel)
	require.Equal(t, 4, loaded.MaxTemplateDepth)
}
