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

// Package config holds the pipeline's host-tunable knobs (SPEC_FULL.md
// §A.3): template recursion limits, diagnostic volume caps, and bytecode
// buffer sizing. No Non-goal in spec.md removes the need for this surface.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir  = ".ashc"
	defaultConfigFile = "config.yaml"
)

// Config is loaded from YAML via gopkg.in/yaml.v3, the teacher's
// config/CLI loader dependency.
type Config struct {
	// MaxTemplateDepth is the configured cap on recursive template
	// instantiation. Default: 32. The template instantiator does not read
	// it; instantiation depth is not limited by this setting.
	MaxTemplateDepth int `yaml:"max_template_depth"`

	// MaxDiagnosticsPerFunction is the configured cap on diagnostics per
	// function body. Default: 64. The checker does not read it; diagnostics
	// are not capped by this setting.
	MaxDiagnosticsPerFunction int `yaml:"max_diagnostics_per_function"`

	// EmitterBufferPreallocBytes is the configured initial Code buffer size.
	// Default: 256. emitter.New takes no size and does not read it.
	EmitterBufferPreallocBytes int `yaml:"emitter_buffer_prealloc_bytes"`

	// LogLevel is one of "debug", "info", "warn", "error". Default: "info".
	LogLevel string `yaml:"log_level"`
}

// Default returns the Config populated with the pipeline's built-in
// defaults, mirroring pkg/ingestion/config.go's DefaultConfig constructor.
func Default() *Config {
	return &Config{
		MaxTemplateDepth:           32,
		MaxDiagnosticsPerFunction:  64,
		EmitterBufferPreallocBytes: 256,
		LogLevel:                   "info",
	}
}

// Load reads a Config from path, starting from Default() so an omitted
// field keeps its built-in value, then applies environment overrides. An
// empty path resolves via ASHC_CONFIG_PATH or findConfigFile; if neither
// locates a file, the defaults (plus env overrides) are returned as-is,
// matching the teacher's "no config, use empty config" fallback in
// cmd/cie/main.go's serve case.
func Load(path string) (*Config, error) {
	if path == "" {
		if env := os.Getenv("ASHC_CONFIG_PATH"); env != "" {
			path = env
		} else if found, err := findConfigFile(); err == nil {
			path = found
		} else {
			cfg := Default()
			cfg.applyEnvOverrides()
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as needed,
// mirroring the teacher's SaveConfig.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("config: mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// ConfigPath joins dir with the conventional .ashc/config.yaml location.
func ConfigPath(dir string) string {
	return filepath.Join(dir, defaultConfigDir, defaultConfigFile)
}

// findConfigFile walks upward from the working directory looking for
// .ashc/config.yaml, the same ancestor search cmd/cie/config.go's
// findConfigFile performs for .cie/project.yaml.
func findConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("config: getwd: %w", err)
	}
	for {
		candidate := ConfigPath(dir)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("config: no %s found in %s or its ancestors", defaultConfigFile, dir)
		}
		dir = parent
	}
}

// applyEnvOverrides lets the two knobs SPEC_FULL.md §A.3 calls out by name
// (log level, template recursion cap) be tuned without editing the YAML
// file, the override mechanism cmd/cie/config.go's applyEnvOverrides uses
// for its own handful of host-tunable fields.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ASHC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ASHC_MAX_TEMPLATE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxTemplateDepth = n
		}
	}
}
