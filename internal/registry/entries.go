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

// Package registry holds the global (FFI + templates + shared) and per-unit
// (script-local) entity stores. Both present the same Store interface;
// entries reference each other only by hash (ashtype.TypeHash), never by
// pointer, so storage can never contain a cycle (spec.md §3.3, §9).
package registry

import "github.com/ashlabs/ashc/internal/ashtype"

// TypeKindTag tags which variant of TypeEntry is populated.
type TypeKindTag uint8

const (
	KindPrimitive TypeKindTag = iota
	KindClass
	KindInterface
	KindEnum
	KindFuncdef
	KindTemplateParam
)

// Source distinguishes where an entry originated.
type Source struct {
	IsFFI bool
	// RustTypeID-equivalent opaque host identifier for FFI entries; unused
	// for script entries.
	HostTypeID string
	// UnitID and Span locate a script-origin declaration.
	UnitID string
	Span   Span
}

// Span is a byte-offset source range; the renderer (outside this package)
// turns it into a carat-pointing message.
type Span struct {
	File       string
	ByteStart  int
	ByteEnd    int
}

// MemoryKind distinguishes value, reference, and script-object semantics
// (spec.md §3.3 TypeKind).
type MemoryKind uint8

const (
	MemValue MemoryKind = iota
	MemReference
	MemScriptObject
)

// ReferenceKind further distinguishes reference-type flavors.
type ReferenceKind uint8

const (
	RefStandard ReferenceKind = iota
	RefScoped
	RefNoHandle
	RefGenericHandle
)

// TypeKind carries the memory-semantics payload for whichever MemoryKind a
// class entry declares.
type TypeKind struct {
	Memory MemoryKind

	// Value payload.
	Size  int
	Align int
	IsPOD bool

	// Reference payload.
	RefKind ReferenceKind
}

// Operator enumerates the overloadable operators used as keys into
// TypeBehaviors.Operators.
type Operator string

const (
	OpAdd       Operator = "opAdd"
	OpAddR      Operator = "opAdd_r"
	OpSub       Operator = "opSub"
	OpSubR      Operator = "opSub_r"
	OpMul       Operator = "opMul"
	OpMulR      Operator = "opMul_r"
	OpDiv       Operator = "opDiv"
	OpDivR      Operator = "opDiv_r"
	OpMod       Operator = "opMod"
	OpModR      Operator = "opMod_r"
	OpNeg       Operator = "opNeg"
	OpCom       Operator = "opCom"
	OpEquals    Operator = "opEquals"
	OpCmp       Operator = "opCmp"
	OpIndex     Operator = "opIndex"
	OpIndexGet  Operator = "get_opIndex"
	OpIndexSet  Operator = "set_opIndex"
	OpImplConv  Operator = "opImplConv"
	OpCast      Operator = "opCast"
	OpAssign    Operator = "opAssign"
)

// TypeBehaviors collects the function hashes implementing a class's
// lifecycle and protocol hooks (spec.md §3.3).
type TypeBehaviors struct {
	Constructors    []ashtype.FunctionHash
	CopyConstructor ashtype.FunctionHash
	Destructor      ashtype.FunctionHash
	Factories       []ashtype.FunctionHash
	ListFactory     ashtype.FunctionHash
	ListConstruct   ashtype.FunctionHash
	AddRef          ashtype.FunctionHash
	Release         ashtype.FunctionHash
	GetRefCount     ashtype.FunctionHash
	GetGCFlag       ashtype.FunctionHash
	SetGCFlag       ashtype.FunctionHash
	EnumRefs        ashtype.FunctionHash
	ReleaseRefs     ashtype.FunctionHash
	GetWeakrefFlag  ashtype.FunctionHash
	TemplateCallback ashtype.FunctionHash

	ForBegin     ashtype.FunctionHash
	ForEnd       ashtype.FunctionHash
	ForCondition ashtype.FunctionHash
	ForNext      ashtype.FunctionHash
	ForValue     ashtype.FunctionHash

	Operators map[Operator][]ashtype.FunctionHash
}

// HasForeachProtocol reports whether enough of the for_* hooks are present
// to drive a foreach loop (spec.md §4.11): a begin hook, a next hook, a
// value hook, and either an end or a condition hook.
func (b TypeBehaviors) HasForeachProtocol() bool {
	return b.ForBegin != 0 && b.ForNext != 0 && b.ForValue != 0 &&
		(b.ForEnd != 0 || b.ForCondition != 0)
}

// Property describes a field or computed accessor exposed on a class.
type Property struct {
	Name     string
	DataType ashtype.DataType
	// FieldIndex is set for a plain field (member-access lowers to
	// LoadField(FieldIndex)); Getter/Setter are set for an accessor pair.
	FieldIndex int
	IsField    bool
	Getter     ashtype.FunctionHash
	Setter     ashtype.FunctionHash
}

// ClassPayload is the Class variant of TypeEntry.
type ClassPayload struct {
	Base       ashtype.TypeHash // 0 if none
	Interfaces []ashtype.TypeHash
	Behaviors  TypeBehaviors
	Methods    []ashtype.FunctionHash
	Properties []Property
	Kind       TypeKind
	IsFinal    bool
	IsAbstract bool

	// Template-related fields. TemplateParams is non-empty exactly when
	// this entry is itself a template definition, not yet instantiated.
	TemplateParams []ashtype.TypeHash
	Template       ashtype.TypeHash // 0 if not an instance
	TypeArgs       []ashtype.DataType
}

// InterfacePayload is the Interface variant: an ordered method-signature
// list, used for vtable slot assignment (CallInterfaceMethod).
type InterfacePayload struct {
	Methods []ashtype.FunctionHash
	// Extends lists interfaces this interface itself extends.
	Extends []ashtype.TypeHash
}

// EnumPayload is the Enum variant.
type EnumPayload struct {
	UnderlyingHash ashtype.TypeHash
	Values         []EnumValue
}

// EnumValue is one `name = value` member of an enum.
type EnumValue struct {
	Name  string
	Value int64
}

// FuncdefPayload is the Funcdef variant. ParentType is set when this is a
// child funcdef bound to a template instance.
type FuncdefPayload struct {
	Params     []ashtype.DataType
	ReturnType ashtype.DataType
	ParentType ashtype.TypeHash // 0 if free-standing
}

// TemplateParamPayload is the TemplateParam variant: a placeholder
// referenced inside a template definition, substituted away during
// instantiation.
type TemplateParamPayload struct {
	Name  string
	Index int
	Owner ashtype.TypeHash
}

// TypeEntry is the tagged union over the six variants spec.md §3.3 defines.
// Exactly one of the payload fields is meaningful, selected by Kind.
type TypeEntry struct {
	TypeHash      ashtype.TypeHash
	QualifiedName string
	Source        Source
	Kind          TypeKindTag

	Primitive ashtype.PrimitiveInfo
	Class     ClassPayload
	Interface InterfacePayload
	Enum      EnumPayload
	Funcdef   FuncdefPayload
	TemplateParam TemplateParamPayload
}

// FunctionTraits are boolean qualifiers on a function signature.
type FunctionTraits struct {
	IsConst    bool // method does not mutate `this`
	IsOverride bool
	IsFinal    bool
	IsExplicit bool
	IsProperty bool // get_X / set_X accessor
}

// Visibility controls cross-class/cross-namespace access.
type Visibility uint8

const (
	VisPublic Visibility = iota
	VisProtected
	VisPrivate
)

// DefaultExprKind tags DefaultExpr's small closed expression grammar
// (spec.md §3.4): literal values, negation, enum references, single-level
// constructor calls, and unary/binary arithmetic on literals. Anything
// richer is rejected at registration time.
type DefaultExprKind uint8

const (
	DefaultLiteralInt DefaultExprKind = iota
	DefaultLiteralFloat
	DefaultLiteralBool
	DefaultLiteralString
	DefaultLiteralNull
	DefaultNegate
	DefaultEnumRef
	DefaultConstructorCall
	DefaultUnary
	DefaultBinary
)

// DefaultExpr is an owned, small expression tree for a parameter's default
// value.
type DefaultExpr struct {
	Kind DefaultExprKind

	IntValue    int64
	FloatValue  float64
	BoolValue   bool
	StringValue string

	// EnumRef.
	EnumType ashtype.TypeHash
	EnumName string

	// ConstructorCall.
	CtorType ashtype.TypeHash
	CtorArgs []DefaultExpr

	// Negate/Unary/Binary.
	Op       string
	Operand  *DefaultExpr
	Left     *DefaultExpr
	Right    *DefaultExpr
}

// Param is one function parameter.
type Param struct {
	Name        string
	DataType    ashtype.DataType
	HasDefault  bool
	DefaultExpr *DefaultExpr
}

// FunctionDef is the signature half of a FunctionEntry.
type FunctionDef struct {
	FuncHash       ashtype.FunctionHash
	Name           string
	Namespace      string
	Params         []Param
	ReturnType     ashtype.DataType
	ObjectType     ashtype.TypeHash // non-zero iff this is a method
	Traits         FunctionTraits
	Visibility     Visibility
	TemplateParams []ashtype.TypeHash
	IsVariadic     bool
	IsNative       bool
}

// IsMethod reports whether this def is bound to a class (ObjectType set).
func (d FunctionDef) IsMethod() bool { return d.ObjectType != 0 }

// IsTemplate reports whether this def is itself a template (not yet
// instantiated): spec.md §3.4 invariant.
func (d FunctionDef) IsTemplate() bool { return len(d.TemplateParams) > 0 }

// RequiredParamCount is the number of leading parameters without defaults.
func (d FunctionDef) RequiredParamCount() int {
	n := 0
	for _, p := range d.Params {
		if p.HasDefault {
			break
		}
		n++
	}
	return n
}

// ImplKind tags FunctionEntry.Implementation's variant.
type ImplKind uint8

const (
	ImplNative ImplKind = iota
	ImplScript
	ImplAbstract
	ImplExternal
)

// Implementation is the tagged union over a function body's four possible
// forms (spec.md §3.4).
type Implementation struct {
	Kind ImplKind

	// Native: an opaque callable handle recorded for the VM to dispatch;
	// the compiler never invokes it (spec.md §6.3).
	NativeHandle any

	// Script.
	UnitID   string
	Bytecode *Chunk // nil until the compilation pass fills it in

	// External.
	ExternalModule string
}

// FunctionEntry is a full function registration: signature + body + origin.
type FunctionEntry struct {
	Def            FunctionDef
	Implementation Implementation
	Source         Source
}

// GlobalPropertyEntry is a global (script or FFI) variable.
type GlobalPropertyEntry struct {
	Name          string
	QualifiedName string
	Hash          ashtype.TypeHash
	DataType      ashtype.DataType
	IsConst       bool
	// Origin distinguishes an FFI-supplied host pointer (HostPointer
	// opaque) from a script-declared global whose initializer compiles to
	// a synthetic function (InitFunc).
	IsFFI     bool
	HostPointer any
	InitFunc    ashtype.FunctionHash
}
