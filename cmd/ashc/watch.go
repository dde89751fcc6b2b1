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
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ashlabs/ashc/internal/compiler"
	"github.com/ashlabs/ashc/internal/config"
	"github.com/ashlabs/ashc/internal/diagnostic"
	"github.com/ashlabs/ashc/internal/metrics"
	"github.com/ashlabs/ashc/internal/registry"
)

const watchDebounce = 300 * time.Millisecond

// runWatch recompiles units whenever any of their source files change,
// debouncing bursts of fsnotify events the way cmd/cie/watch.go's
// runWatchAndReindex debounces reindex triggers.
func runWatch(units []string, cfg *config.Config, globals GlobalFlags) int {
	if len(units) == 0 {
		fmt.Fprintln(os.Stderr, "ashc watch: at least one unit path is required")
		return 1
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ashc watch: %v\n", err)
		return 1
	}
	defer watcher.Close()

	watchedDirs := map[string]bool{}
	for _, path := range units {
		dir := filepath.Dir(path)
		if watchedDirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintf(os.Stderr, "ashc watch: add %s: %v\n", dir, err)
			return 1
		}
		watchedDirs[dir] = true
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	recompile := func() {
		m := metrics.New(prometheus.NewRegistry())
		global := registry.NewGlobal()
		global.Seal()
		renderer := diagnostic.NewRenderer(os.Stderr, globals.NoColor)

		for _, path := range units {
			source, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "ashc: %v\n", err)
				continue
			}
			f, err := parseSource(path, source)
			if err != nil {
				fmt.Fprintf(os.Stderr, "ashc: %v\n", err)
				continue
			}
			mod, diags := compiler.Compile(global, f, path, logger, m)
			if len(diags) > 0 {
				for _, d := range diags {
					renderer.Render(d, string(source))
				}
				continue
			}
			if !globals.Quiet {
				fmt.Fprintf(os.Stderr, "ashc watch: recompiled %s: %d function(s)\n", mod.Name, len(mod.Functions))
			}
		}
	}

	recompile()

	var debounceTimer *time.Timer
	var timerCh <-chan time.Time
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(watchDebounce)
			timerCh = debounceTimer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			fmt.Fprintf(os.Stderr, "ashc watch: fsnotify error: %v\n", err)
		case <-timerCh:
			timerCh = nil
			recompile()
		}
	}
}
