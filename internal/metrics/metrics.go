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

// Package metrics exposes the compiler pipeline's Prometheus
// instrumentation. Callers register a *Metrics against their own
// prometheus.Registerer — never the global DefaultRegisterer — so
// embedding an ashc pipeline never forces a host application onto
// /metrics it didn't ask for.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups every counter/histogram the compilation pipeline updates.
type Metrics struct {
	FunctionsRegistered      prometheus.Counter
	TypesRegistered          prometheus.Counter
	TemplateInstancesCreated prometheus.Counter
	TemplateCacheHits        prometheus.Counter
	DiagnosticsByKind        *prometheus.CounterVec
	CompileDuration          prometheus.Histogram
	OverloadResolutions      prometheus.Counter
	AmbiguousOverloads       prometheus.Counter
}

// New creates and registers a Metrics set against reg. Passing a nil
// Registerer yields a Metrics whose instruments are still usable (they
// simply aren't collected anywhere) — callers that don't care about
// metrics can pass nil without special-casing it at every call site.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FunctionsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ashc_functions_registered_total",
			Help: "Functions registered across both the global and per-unit registries.",
		}),
		TypesRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ashc_types_registered_total",
			Help: "Types registered across both the global and per-unit registries.",
		}),
		TemplateInstancesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ashc_template_instances_created_total",
			Help: "Template instances newly created (cache misses).",
		}),
		TemplateCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ashc_template_cache_hits_total",
			Help: "Template instantiation requests satisfied from the global cache.",
		}),
		DiagnosticsByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ashc_diagnostics_total",
			Help: "Diagnostics emitted, labeled by kind.",
		}, []string{"kind"}),
		CompileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ashc_unit_compile_duration_seconds",
			Help:    "Wall-clock time to compile one unit end to end.",
			Buckets: prometheus.DefBuckets,
		}),
		OverloadResolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ashc_overload_resolutions_total",
			Help: "Overload-resolution attempts.",
		}),
		AmbiguousOverloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ashc_ambiguous_overloads_total",
			Help: "Overload-resolution attempts that ended in AmbiguousOverload.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.FunctionsRegistered, m.TypesRegistered,
			m.TemplateInstancesCreated, m.TemplateCacheHits,
			m.DiagnosticsByKind, m.CompileDuration,
			m.OverloadResolutions, m.AmbiguousOverloads,
		)
	}
	return m
}

// ObserveDiagnostic increments the per-kind diagnostic counter.
func (m *Metrics) ObserveDiagnostic(kind string) {
	if m == nil {
		return
	}
	m.DiagnosticsByKind.WithLabelValues(kind).Inc()
}
