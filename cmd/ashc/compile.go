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
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"

	"github.com/ashlabs/ashc/internal/compiler"
	"github.com/ashlabs/ashc/internal/config"
	"github.com/ashlabs/ashc/internal/diagnostic"
	"github.com/ashlabs/ashc/internal/metrics"
	"github.com/ashlabs/ashc/internal/registry"
)

// runCompile compiles every unit path in units, one CompiledModule per
// file, sharing a single Global registry and metrics set (spec.md §5:
// "parallelism across units is permitted" — units here run sequentially
// but each still owns its own Context, same isolation story). Returns a
// process exit code.
func runCompile(units []string, cfg *config.Config, globals GlobalFlags) int {
	if len(units) == 0 {
		fmt.Fprintln(os.Stderr, "ashc compile: at least one unit path is required")
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	m := metrics.New(prometheus.NewRegistry())
	global := registry.NewGlobal()
	global.Seal()

	renderer := diagnostic.NewRenderer(os.Stderr, globals.NoColor)

	var bar *progressbar.ProgressBar
	if !globals.Quiet && len(units) > 1 {
		bar = progressbar.Default(int64(len(units)), "compiling")
	}

	failed := 0
	for _, path := range units {
		source, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ashc: %v\n", err)
			failed++
			continue
		}

		f, err := parseSource(path, source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ashc: %v\n", err)
			failed++
			continue
		}

		mod, diags := compiler.Compile(global, f, path, logger, m)
		if len(diags) > 0 {
			for _, d := range diags {
				renderer.Render(d, string(source))
			}
			failed++
			if bar != nil {
				_ = bar.Add(1)
			}
			continue
		}

		if globals.Verbose > 0 {
			fmt.Fprintf(os.Stderr, "ashc: compiled %s: %d function(s), %d global init(s)\n",
				mod.Name, len(mod.Functions), len(mod.GlobalInits))
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
