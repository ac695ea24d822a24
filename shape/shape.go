// Package shape describes the static form of a JSON-codable value: the
// target data shape that the plan builder (package plan) compiles into a
// parser state tree and a writer emission plan.
package shape

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind is the tag of a Shape.
type Kind uint8

const (
	KindScalar Kind = iota
	KindList
	KindMap
	KindObject
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindObject:
		return "object"
	case KindAny:
		return "any"
	default:
		return "unknown"
	}
}

// ScalarKind enumerates the leaf scalar types a Shape can describe.
type ScalarKind uint8

const (
	Bool ScalarKind = iota
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64
	Char
	String
	numScalarKinds
)

var scalarNames = [numScalarKinds]string{
	"bool", "i8", "i16", "i32", "i64",
	"u8", "u16", "u32", "u64", "f32", "f64", "char", "string",
}

func (k ScalarKind) String() string {
	if k >= numScalarKinds {
		return "unknown"
	}
	return scalarNames[k]
}

// IsInteger reports whether k is one of the fixed-width integer kinds (not Char).
func (k ScalarKind) IsInteger() bool {
	return k >= I8 && k <= U64
}

// IsFloat reports whether k is a floating-point kind.
func (k ScalarKind) IsFloat() bool {
	return k == F32 || k == F64
}

// IsSigned reports whether k is a signed integer kind.
func (k ScalarKind) IsSigned() bool {
	return k >= I8 && k <= I64
}

// Setter assigns value into a field of the addressable struct value target.
// Bound once at shape-build time; treated as opaque by decode/encode/plan.
type Setter func(target reflect.Value, value reflect.Value)

// Getter reads a field out of the struct value target.
// Bound once at shape-build time; treated as opaque by decode/encode/plan.
type Getter func(target reflect.Value) reflect.Value

// FieldSpec describes one field of an Object shape.
type FieldSpec struct {
	Name     string
	Shape    *Shape
	Set      Setter
	Get      Getter
	Optional bool
}

// Shape is a tagged-variant static description of a JSON-codable value.
// It is always handled by pointer so that self-referential (cyclic) shapes
// can be represented as a genuine cyclic graph: see Reflect in reflect.go
// for how the builder registers a node in a memo before recursing into its
// children so that back-edges resolve to the same *Shape.
type Shape struct {
	Kind Kind

	// valid when Kind == KindScalar
	Scalar ScalarKind

	// valid when Kind == KindList (element) or KindMap (value)
	Elem *Shape

	// valid when Kind == KindMap: the key shape, constrained to Scalar(string)
	// or a scalar coercible from a string key.
	MapKey *Shape

	// valid when Kind == KindObject, in declared field order.
	Fields []FieldSpec

	// Name is the shape's nominal identity. For Object shapes it alone
	// determines the canonical key, "object:" + Name (terminates key
	// computation on cycles); for
	// List/Map/Scalar/Any it is advisory (used in error messages) since
	// those keys are computed structurally.
	Name string

	// GoType is the concrete Go type this shape was derived from, when known
	// (populated by Reflect). Object/List/Map decoding uses it to allocate
	// the nascent value; it may be nil for hand-built shapes used only to
	// drive the Any path.
	GoType reflect.Type

	key string // memoized canonical key, computed lazily by Key()
}

// ScalarOf builds a Scalar shape.
func ScalarOf(kind ScalarKind, goType reflect.Type) *Shape {
	return &Shape{Kind: KindScalar, Scalar: kind, Name: kind.String(), GoType: goType}
}

// ListOf builds a List shape.
func ListOf(elem *Shape, goType reflect.Type) *Shape {
	return &Shape{Kind: KindList, Elem: elem, Name: "[]" + elem.Name, GoType: goType}
}

// MapOf builds a Map shape. The key shape must be Scalar(string) or a scalar
// coercible from a string key (see MapKey.Scalar and PlanBuildFailure in plan).
func MapOf(key, value *Shape, goType reflect.Type) *Shape {
	return &Shape{Kind: KindMap, MapKey: key, Elem: value, Name: "map[" + key.Name + "]" + value.Name, GoType: goType}
}

// ObjectOf builds an Object shape. name must be a stable, globally unique
// identifier (a package-qualified Go type name, including any generic
// argument shapes per the "generic erasure" design note) since the
// canonical type key is "object:" followed by name verbatim.
func ObjectOf(name string, fields []FieldSpec, goType reflect.Type) *Shape {
	return &Shape{Kind: KindObject, Name: name, Fields: fields, GoType: goType}
}

// AnyShape returns the shared Any shape (heterogeneous JSON materialized as
// *shape.Any).
func AnyShape() *Shape {
	return anySingleton
}

var anySingleton = &Shape{Kind: KindAny, Name: "any", key: "any"}

// Key returns the canonical type key: a stable string such that two shapes
// equal as trees produce equal keys. Object shapes terminate the recursion
// nominally (by Name) rather than structurally, which is what allows this
// to terminate on self-referential (cyclic) shapes without a visited set:
// any cycle in a Shape graph must pass back through an Object node.
func (s *Shape) Key() string {
	if s.key != "" {
		return s.key
	}
	var b strings.Builder
	s.writeKey(&b)
	s.key = b.String()
	return s.key
}

func (s *Shape) writeKey(b *strings.Builder) {
	switch s.Kind {
	case KindScalar:
		b.WriteString("scalar:")
		b.WriteString(s.Scalar.String())
	case KindAny:
		b.WriteString("any")
	case KindObject:
		b.WriteString("object:")
		b.WriteString(s.Name)
	case KindList:
		b.WriteString("list<")
		b.WriteString(s.Elem.Key())
		b.WriteByte('>')
	case KindMap:
		b.WriteString("map<")
		b.WriteString(s.MapKey.Key())
		b.WriteByte(',')
		b.WriteString(s.Elem.Key())
		b.WriteByte('>')
	default:
		fmt.Fprintf(b, "invalid:%d", s.Kind)
	}
}

// FieldByName returns the FieldSpec named name and true, or the zero value
// and false.
func (s *Shape) FieldByName(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
