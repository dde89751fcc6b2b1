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

// Package diagnostic implements the public error taxonomy of spec.md §7: a
// single tagged Kind enum plus a Sink that accumulates recoverable errors
// the way pkg/ingestion/datalog.go's ValidationError/ValidateEntities pair
// does in the teacher repo — collect everything, report it all at once.
package diagnostic

import "fmt"

// Kind enumerates every diagnostic category from spec.md §7.
type Kind string

const (
	// Lookup.
	TypeNotFound     Kind = "TypeNotFound"
	FunctionNotFound Kind = "FunctionNotFound"
	MemberNotFound   Kind = "MemberNotFound"
	UndefinedVariable Kind = "UndefinedVariable"
	NoOperator       Kind = "NoOperator"
	NotIterable      Kind = "NotIterable"

	// Type.
	TypeMismatch   Kind = "TypeMismatch"
	ConversionError Kind = "ConversionError"
	NotAssignable  Kind = "NotAssignable"
	ConstViolation Kind = "ConstViolation"

	// Overload.
	NoMatchingOverload Kind = "NoMatchingOverload"
	AmbiguousOverload  Kind = "AmbiguousOverload"
	WrongArgCount      Kind = "WrongArgCount"

	// Template.
	WrongTemplateArgCount   Kind = "WrongTemplateArgCount"
	NotATemplate            Kind = "NotATemplate"
	TemplateValidationFailed Kind = "TemplateValidationFailed"

	// Class.
	NoDefaultConstructor Kind = "NoDefaultConstructor"
	NoBaseClass          Kind = "NoBaseClass"
	PrivateMemberAccess  Kind = "PrivateMemberAccess"
	DuplicateDefault     Kind = "DuplicateDefault"
	InvalidSwitchType    Kind = "InvalidSwitchType"

	// Flow.
	BreakOutsideLoop    Kind = "BreakOutsideLoop"
	ContinueOutsideLoop Kind = "ContinueOutsideLoop"
	NotAllPathsReturn   Kind = "NotAllPathsReturn"
	ReturnTypeMismatch  Kind = "ReturnTypeMismatch"

	// Registration.
	DuplicateDefinition Kind = "DuplicateDefinition"
	AlreadySealed       Kind = "AlreadySealed"

	// Internal — should never fire; represents a compiler bug.
	Internal Kind = "Internal"
)

// Fatal reports whether a diagnostic of this kind aborts compilation rather
// than accumulating and continuing (spec.md §7 "Propagation policy").
func (k Kind) Fatal() bool {
	return k == Internal || k == AlreadySealed
}

// Span is a byte-offset source range sufficient to render a carat-pointing
// message (spec.md §6.6). Renderer (render.go) turns it into one.
type Span struct {
	File      string
	ByteStart int
	ByteEnd   int
}

// Diagnostic is one compiler error. Message carries the short human
// summary; Candidates/Expected/Got are populated only by the kinds that use
// them, mirroring the teacher's ValidationError{EntityType, EntityID,
// Field, Message} shape but widened to this spec's richer taxonomy.
type Diagnostic struct {
	Kind    Kind
	Span    Span
	Message string

	// Populated for NoMatchingOverload / AmbiguousOverload.
	Candidates []string

	// Populated for TypeMismatch / ReturnTypeMismatch / ConversionError.
	Expected string
	Got      string
}

func (d *Diagnostic) Error() string {
	if d.Span.File != "" {
		return fmt.Sprintf("%s:%d: %s: %s", d.Span.File, d.Span.ByteStart, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// New builds a Diagnostic with just a message.
func New(kind Kind, span Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}

// WithCandidates attaches a candidate list (overload failures).
func (d *Diagnostic) WithCandidates(candidates []string) *Diagnostic {
	d.Candidates = candidates
	return d
}

// WithTypes attaches expected/got type names (type-mismatch failures).
func (d *Diagnostic) WithTypes(expected, got string) *Diagnostic {
	d.Expected = expected
	d.Got = got
	return d
}

// Sink accumulates diagnostics during a pass so compilation can continue
// past a recoverable error and maximize diagnostic value (spec.md §4.2
// "Error collection"). Fatal diagnostics still get pushed here for
// consistency, but callers must additionally stop walking once one occurs
// — Sink itself does not abort control flow.
type Sink struct {
	diagnostics []*Diagnostic
}

// Push records a diagnostic.
func (s *Sink) Push(d *Diagnostic) { s.diagnostics = append(s.diagnostics, d) }

// HasFatal reports whether any accumulated diagnostic is fatal.
func (s *Sink) HasFatal() bool {
	for _, d := range s.diagnostics {
		if d.Kind.Fatal() {
			return true
		}
	}
	return false
}

// Empty reports whether no diagnostics have been pushed.
func (s *Sink) Empty() bool { return len(s.diagnostics) == 0 }

// Len reports how many diagnostics have been pushed.
func (s *Sink) Len() int { return len(s.diagnostics) }

// TakeErrors drains and returns the accumulated buffer, matching
// CompilationContext.take_errors() in spec.md §4.2.
func (s *Sink) TakeErrors() []*Diagnostic {
	out := s.diagnostics
	s.diagnostics = nil
	return out
}
