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

// Package main implements the ashc CLI.
//
// Usage:
//
//	ashc compile <unit> [unit...]   Compile one or more units
//	ashc watch <unit>                Recompile a unit whenever its file changes
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/ashlabs/ashc/internal/config"
)

// GlobalFlags holds the CLI flags shared by every subcommand.
type GlobalFlags struct {
	NoColor bool
	Verbose int
	Quiet   bool
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .ashc/config.yaml (default: search upward from cwd)")
		noColor     = flag.Bool("no-color", false, "Disable color diagnostic output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress progress output")
	)
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `ashc - the Ash scripting language compiler

Usage:
  ashc <command> [options] <args>

Commands:
  compile <unit> [unit...]   Compile one or more units, printing diagnostics
  watch <unit>               Recompile a unit whenever its source file changes

Global Options:
  -c, --config      Path to .ashc/config.yaml
      --no-color    Disable color diagnostic output
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress progress output
  -V, --version     Show version and exit
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Println("ashc version dev")
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}

	globals := GlobalFlags{NoColor: *noColor, Verbose: *verbose, Quiet: *quiet}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ashc: %v\n", err)
		os.Exit(1)
	}
	switch {
	case *verbose >= 2:
		cfg.LogLevel = "debug"
	case *verbose == 1:
		cfg.LogLevel = "info"
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "compile":
		os.Exit(runCompile(cmdArgs, cfg, globals))
	case "watch":
		os.Exit(runWatch(cmdArgs, cfg, globals))
	default:
		fmt.Fprintf(os.Stderr, "ashc: unknown command %q\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
