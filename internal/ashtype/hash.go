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

// Package ashtype holds the identity primitives shared by every later
// compiler stage: TypeHash/FunctionHash, DataType, and the built-in
// primitive type catalog.
package ashtype

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// TypeHash is an opaque 64-bit identity shared by types and functions.
// Bit 63 is reserved to distinguish FFI-origin entries from script-origin
// entries without a string comparison or registry lookup; see originBit.
type TypeHash uint64

// FunctionHash is bit-for-bit the same representation as TypeHash: functions
// and types share one global identity space (spec.md §3.1).
type FunctionHash = TypeHash

// originBit is the reserved high bit. Hash functions below never set it;
// callers that own origin (the registries, at insertion time) apply it via
// WithOrigin.
const originBit = uint64(1) << 63

// domainSeed mixes a fixed domain constant into every canonical-string hash
// so that "TypeHash space" and any other xxhash user in the process can
// never collide by accident.
const domainSeed uint64 = 0x9E3779B97F4A7C15

// NullHash is the reserved hash carried by the `null` literal. Legal only
// where a handle is expected (spec.md §3.2). Masked with originBit like
// every From* result so it never accidentally compares equal to an
// FFI-origin hash.
const NullHash TypeHash = TypeHash(domainSeed &^ originBit)

// VoidHash is the reserved hash for `void`.
var VoidHash = FromName("void")

// streamHash runs the canonical xxhash streaming API over zero-allocation
// byte fragments, matching spec.md §4.2.1's "allocation-free streaming
// xxh64" requirement: no intermediate string concatenation is built.
func streamHash(parts ...[]byte) TypeHash {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.Write(p)
	}
	raw := d.Sum64() ^ domainSeed
	return TypeHash(raw &^ originBit)
}

var sep = []byte("::")

// FromName hashes a single canonical name string, e.g. "Player" or
// "game::ai::Enemy" (already "::"-joined).
func FromName(name string) TypeHash {
	return streamHash([]byte(name))
}

// FromQualifiedName hashes a namespace + name pair. By construction this is
// bit-identical to FromName(ns + "::" + name) — the invariant pinned in
// spec.md §8.1 and tested in hash_test.go.
func FromQualifiedName(namespace, name string) TypeHash {
	if namespace == "" {
		return FromName(name)
	}
	return streamHash([]byte(namespace), sep, []byte(name))
}

// FromIdentParts hashes a slice of namespace/name segments, equivalent to
// FromName(strings.Join(parts, "::")).
func FromIdentParts(parts []string) TypeHash {
	d := xxhash.New()
	for i, p := range parts {
		if i > 0 {
			_, _ = d.Write(sep)
		}
		_, _ = d.Write([]byte(p))
	}
	raw := d.Sum64() ^ domainSeed
	return TypeHash(raw &^ originBit)
}

// FromTemplateInstance hashes a (template, type-args) pair, used to identify
// a concrete instantiation such as array<int>.
func FromTemplateInstance(template TypeHash, args []TypeHash) TypeHash {
	d := xxhash.New()
	_, _ = d.Write([]byte("tmpl:"))
	writeHash(d, template)
	for _, a := range args {
		writeHash(d, a)
	}
	raw := d.Sum64() ^ domainSeed
	return TypeHash(raw &^ originBit)
}

// FromMethod hashes a class method signature: owning class, name, parameter
// type hashes (return type deliberately excluded — AngelScript does not
// overload on return type), and const-qualification.
func FromMethod(class TypeHash, name string, paramHashes []TypeHash, isConst bool) FunctionHash {
	d := xxhash.New()
	_, _ = d.Write([]byte("method:"))
	writeHash(d, class)
	_, _ = d.Write(sep)
	_, _ = d.Write([]byte(name))
	for _, p := range paramHashes {
		writeHash(d, p)
	}
	if isConst {
		_, _ = d.Write([]byte("#const"))
	}
	raw := d.Sum64() ^ domainSeed
	return TypeHash(raw &^ originBit)
}

// FromConstructor hashes a constructor overload of a class.
func FromConstructor(class TypeHash, paramHashes []TypeHash) FunctionHash {
	d := xxhash.New()
	_, _ = d.Write([]byte("ctor:"))
	writeHash(d, class)
	for _, p := range paramHashes {
		writeHash(d, p)
	}
	raw := d.Sum64() ^ domainSeed
	return TypeHash(raw &^ originBit)
}

// FromDestructor hashes a class's (singular, non-overloadable) destructor.
func FromDestructor(class TypeHash) FunctionHash {
	d := xxhash.New()
	_, _ = d.Write([]byte("dtor:"))
	writeHash(d, class)
	raw := d.Sum64() ^ domainSeed
	return TypeHash(raw &^ originBit)
}

// FromFunction hashes a free (non-method) function: fully qualified name
// plus parameter type hashes.
func FromFunction(qualifiedName string, paramHashes []TypeHash) FunctionHash {
	d := xxhash.New()
	_, _ = d.Write([]byte("func:"))
	_, _ = d.Write([]byte(qualifiedName))
	for _, p := range paramHashes {
		writeHash(d, p)
	}
	raw := d.Sum64() ^ domainSeed
	return TypeHash(raw &^ originBit)
}

// FromFunctionInstance hashes a template-function instantiation: the
// generic function plus the type arguments substituted into it.
func FromFunctionInstance(fn FunctionHash, typeArgs []TypeHash) FunctionHash {
	d := xxhash.New()
	_, _ = d.Write([]byte("funcinst:"))
	writeHash(d, fn)
	for _, a := range typeArgs {
		writeHash(d, a)
	}
	raw := d.Sum64() ^ domainSeed
	return TypeHash(raw &^ originBit)
}

func writeHash(d *xxhash.Digest, h TypeHash) {
	var buf [8]byte
	v := uint64(h)
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	_, _ = d.Write(buf[:])
}

// Origin distinguishes where a hashed entity came from. It is recorded on
// the hash itself (originBit) so routing between the global and unit
// registries never needs a string comparison — see spec.md §3.1.
type Origin uint8

const (
	OriginScript Origin = iota
	OriginFFI
)

// WithOrigin stamps the reserved high bit according to origin. Registries
// call this exactly once, at registration time, on the raw hash returned by
// the From* functions above.
func WithOrigin(h TypeHash, origin Origin) TypeHash {
	if origin == OriginFFI {
		return TypeHash(uint64(h) | originBit)
	}
	return TypeHash(uint64(h) &^ originBit)
}

// IsFFI reports whether h carries the FFI-origin bit.
func IsFFI(h TypeHash) bool { return uint64(h)&originBit != 0 }

// IsScript reports the converse of IsFFI.
func IsScript(h TypeHash) bool { return !IsFFI(h) }

// String renders a hash as a short hex token, handy in diagnostics and logs.
func (h TypeHash) String() string {
	return "#" + strconv.FormatUint(uint64(h), 16)
}

// JoinQualified is the shared helper the namespace cache (ctx package) and
// the hash functions above both rely on, kept here so there is exactly one
// definition of "how a qualified name is spelled".
func JoinQualified(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "::")
}
