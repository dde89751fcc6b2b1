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

// Package overload implements the overload resolver (spec.md §4.6): picking
// the best-matching function among a candidate set for a given argument
// list, by summed conversion cost.
package overload

import (
	"fmt"

	"github.com/ashlabs/ashc/internal/ashtype"
	"github.com/ashlabs/ashc/internal/conversion"
	"github.com/ashlabs/ashc/internal/ctx"
	"github.com/ashlabs/ashc/internal/diagnostic"
	"github.com/ashlabs/ashc/internal/metrics"
	"github.com/ashlabs/ashc/internal/registry"
)

// Resolver picks the best-matching FunctionEntry for a candidate set and
// argument list.
type Resolver struct {
	m *metrics.Metrics
}

// New creates a Resolver. m may be nil.
func New(m *metrics.Metrics) *Resolver {
	return &Resolver{m: m}
}

// match is one viable candidate's resolved conversions and total cost.
type match struct {
	entry       *registry.FunctionEntry
	conversions []conversion.Conversion
	cost        uint32
	exactCount  int
}

// Resolve selects the best candidate in candidates for the given argument
// types, per spec.md §4.6's algorithm. Returns the matched entry and the
// per-argument conversions to emit, in argument order.
func (r *Resolver) Resolve(c *ctx.Context, candidates []*registry.FunctionEntry, args []ashtype.DataType, callSpan diagnostic.Span) (*registry.FunctionEntry, []conversion.Conversion, *diagnostic.Diagnostic) {
	if r.m != nil {
		r.m.OverloadResolutions.Inc()
	}

	var viable []match
	for _, cand := range candidates {
		m, ok := r.tryMatch(c, cand, args)
		if ok {
			viable = append(viable, m)
		}
	}

	if len(viable) == 0 {
		return nil, nil, diagnostic.New(diagnostic.NoMatchingOverload, callSpan, "no matching overload for %d argument(s)", len(args)).
			WithCandidates(candidateNames(candidates))
	}

	best := minCost(viable)
	if len(best) == 1 {
		return best[0].entry, best[0].conversions, nil
	}

	// Tiebreaker A: prefer more exact (Identity) argument matches.
	best = maxExact(best)
	if len(best) == 1 {
		return best[0].entry, best[0].conversions, nil
	}

	// Tiebreaker B: prefer a non-template (non-instantiated) candidate.
	best = preferNonTemplate(c, best)
	if len(best) == 1 {
		return best[0].entry, best[0].conversions, nil
	}

	if r.m != nil {
		r.m.AmbiguousOverloads.Inc()
	}
	names := make([]string, len(best))
	for i, m := range best {
		names[i] = m.entry.Def.Name
	}
	return nil, nil, diagnostic.New(diagnostic.AmbiguousOverload, callSpan, "ambiguous call: %d equally good candidates", len(best)).
		WithCandidates(names)
}

func (r *Resolver) tryMatch(c *ctx.Context, cand *registry.FunctionEntry, args []ashtype.DataType) (match, bool) {
	required := cand.Def.RequiredParamCount()
	total := len(cand.Def.Params)
	if len(args) < required || len(args) > total {
		return match{}, false
	}

	convs := make([]conversion.Conversion, len(args))
	var cost uint32
	var exact int
	for i, arg := range args {
		conv, ok := conversion.FindImplicit(c, arg, cand.Def.Params[i].DataType)
		if !ok {
			return match{}, false
		}
		convs[i] = conv
		cost += conv.Cost
		if conv.Kind == conversion.Identity && conv.Cost == 0 {
			exact++
		}
	}
	return match{entry: cand, conversions: convs, cost: cost, exactCount: exact}, true
}

func minCost(in []match) []match {
	best := in[0].cost
	for _, m := range in[1:] {
		if m.cost < best {
			best = m.cost
		}
	}
	var out []match
	for _, m := range in {
		if m.cost == best {
			out = append(out, m)
		}
	}
	return out
}

func maxExact(in []match) []match {
	best := in[0].exactCount
	for _, m := range in[1:] {
		if m.exactCount > best {
			best = m.exactCount
		}
	}
	var out []match
	for _, m := range in {
		if m.exactCount == best {
			out = append(out, m)
		}
	}
	return out
}

func preferNonTemplate(c *ctx.Context, in []match) []match {
	var nonTemplate []match
	for _, m := range in {
		if !isTemplateInstanceMethod(c, m.entry) {
			nonTemplate = append(nonTemplate, m)
		}
	}
	if len(nonTemplate) > 0 {
		return nonTemplate
	}
	return in
}

// isTemplateInstanceMethod reports whether e is a method belonging to an
// instantiated template class (ClassPayload.Template != 0), the "instance
// method" the tiebreaker deprioritizes in favor of an ordinary overload.
func isTemplateInstanceMethod(c *ctx.Context, e *registry.FunctionEntry) bool {
	if e.Def.ObjectType == 0 {
		return false
	}
	cls, ok := c.GetType(e.Def.ObjectType)
	return ok && cls.Kind == registry.KindClass && cls.Class.Template != 0
}

func candidateNames(candidates []*registry.FunctionEntry) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = fmt.Sprintf("%s(%d params)", c.Def.Name, len(c.Def.Params))
	}
	return names
}

// ResolveOperator implements the class-operand steps of spec.md §4.6's
// three-step operator resolution: left.opXxx(right), then right.opXxx_r
// (left). Step 1 (the primitive operator table) never reaches here — the
// expression checker short-circuits primitive-vs-primitive operands to a
// dedicated opcode before either operand can be a class type. The open
// question on left/right tiebreaking is resolved in favor of the left-side
// candidate: step 2 is tried in full (including ambiguity) before step 3 is
// attempted at all.
func (r *Resolver) ResolveOperator(c *ctx.Context, op registry.Operator, reverseOp registry.Operator, left, right ashtype.DataType, callSpan diagnostic.Span) (*registry.FunctionEntry, []conversion.Conversion, bool, *diagnostic.Diagnostic) {
	if leftEntry, ok := c.GetType(left.TypeHash); ok && leftEntry.Kind == registry.KindClass {
		candidates := methodCandidates(c, leftEntry.Class.Behaviors.Operators[op])
		if len(candidates) > 0 {
			entry, convs, d := r.Resolve(c, candidates, []ashtype.DataType{right}, callSpan)
			if d == nil {
				return entry, convs, false, nil
			}
			if d.Kind == diagnostic.AmbiguousOverload {
				return nil, nil, false, d
			}
		}
	}
	if rightEntry, ok := c.GetType(right.TypeHash); ok && rightEntry.Kind == registry.KindClass {
		candidates := methodCandidates(c, rightEntry.Class.Behaviors.Operators[reverseOp])
		if len(candidates) > 0 {
			entry, convs, d := r.Resolve(c, candidates, []ashtype.DataType{left}, callSpan)
			if d == nil {
				return entry, convs, true, nil
			}
			if d.Kind == diagnostic.AmbiguousOverload {
				return nil, nil, true, d
			}
		}
	}
	return nil, nil, false, diagnostic.New(diagnostic.NoOperator, callSpan, "no operator %s/%s defined between operand types", op, reverseOp)
}

func methodCandidates(c *ctx.Context, hashes []ashtype.FunctionHash) []*registry.FunctionEntry {
	var out []*registry.FunctionEntry
	for _, h := range hashes {
		if fn, ok := c.GetFunction(h); ok {
			out = append(out, fn)
		}
	}
	return out
}
