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

package compiler

import (
	"log/slog"
	"time"

	"github.com/ashlabs/ashc/internal/ashtype"
	"github.com/ashlabs/ashc/internal/ast"
	"github.com/ashlabs/ashc/internal/ctx"
	"github.com/ashlabs/ashc/internal/diagnostic"
	"github.com/ashlabs/ashc/internal/metrics"
	"github.com/ashlabs/ashc/internal/overload"
	"github.com/ashlabs/ashc/internal/registry"
	"github.com/ashlabs/ashc/internal/resolver"
	"github.com/ashlabs/ashc/internal/template"
)

// CompiledModule is the pipeline's declared deliverable (spec.md §2, §6.2):
// one compiled unit's bytecode, keyed by function hash, plus the global
// variable initializers that must run before any script code executes and
// a module-level view of every constant the unit's functions reference.
type CompiledModule struct {
	Name        string
	UnitID      string
	Functions   map[ashtype.FunctionHash]*registry.Chunk
	GlobalInits []ashtype.TypeHash
	Constants   registry.ConstantPool
}

// Compile runs the full two-pass pipeline (spec.md §4: registration then
// function-body compilation) against one unit's AST and assembles the
// resulting CompiledModule. name is a caller-supplied label (e.g. the
// source path); it has no bearing on identity, which is hash-keyed.
//
// A non-nil diagnostics slice means compilation failed: per spec.md §7's
// propagation policy, the module is only returned once the unit's
// diagnostic buffer is empty. logger and m may both be nil.
func Compile(global *registry.Global, f *ast.File, name string, logger *slog.Logger, m *metrics.Metrics) (*CompiledModule, []*diagnostic.Diagnostic) {
	if m != nil {
		start := time.Now()
		defer func() { m.CompileDuration.Observe(time.Since(start).Seconds()) }()
	}

	c := ctx.NewWithMetrics(global, f.UnitID, logger, m)
	inst := template.New(global, logger, m)
	res := resolver.New(inst)
	reg := NewRegistrar(res, m)

	reg.RegisterFile(c, f)
	if c.HasFatalError() {
		return nil, c.TakeErrors()
	}

	ov := overload.New(m)
	fc := NewFunctionCompiler(reg, ov)
	fc.CompileFile(c, f)

	if errs := c.TakeErrors(); len(errs) > 0 {
		return nil, errs
	}

	return assembleModule(c, name, f.UnitID), nil
}

// assembleModule walks the now-fully-populated unit registry and collects
// the per-function bytecode, global-initializer list, and merged constant
// pool into one CompiledModule.
func assembleModule(c *ctx.Context, name, unitID string) *CompiledModule {
	mod := &CompiledModule{
		Name:      name,
		UnitID:    unitID,
		Functions: make(map[ashtype.FunctionHash]*registry.Chunk),
	}
	c.Unit.IterFunctions(func(fe *registry.FunctionEntry) bool {
		if fe.Implementation.Kind == registry.ImplScript && fe.Implementation.Bytecode != nil {
			mod.Functions[fe.Def.FuncHash] = fe.Implementation.Bytecode
			mod.Constants = append(mod.Constants, fe.Implementation.Bytecode.Constants...)
		}
		return true
	})
	c.Unit.IterGlobals(func(ge *registry.GlobalPropertyEntry) bool {
		if ge.InitFunc != 0 {
			mod.GlobalInits = append(mod.GlobalInits, ge.InitFunc)
		}
		return true
	})
	return mod
}
