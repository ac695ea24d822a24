package shape

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// reflectMemo caches struct shapes by reflect.Type. A node is registered in
// the memo before its fields are built so that a self-referential struct
// (e.g. a tree node holding a slice of itself) resolves its back-edge to the
// same *Shape instead of recursing forever. This is the same trick
// SnellerInc-sneller's ion.compileEncoder/compileStruct use with their own
// sync.Map of reflect.Type -> compiled function.
var reflectMemo sync.Map // reflect.Type -> *Shape

// Reflect derives a *Shape (and bound field accessors) from a Go type by
// reflection. It is the convenience on-ramp for the common case where a
// caller has ordinary Go structs rather than hand-authored Shape trees;
// the rest of this module (decode/encode/plan) never reflects on user data
// itself, only invokes the Setter/Getter closures this function binds.
func Reflect(t reflect.Type) (*Shape, error) {
	return reflectShape(t)
}

func reflectShape(t reflect.Type) (*Shape, error) {
	switch t.Kind() {
	case reflect.Pointer:
		return reflectShape(t.Elem())
	case reflect.Interface:
		return AnyShape(), nil
	case reflect.Struct:
		return reflectStruct(t)
	case reflect.Slice, reflect.Array:
		elem, err := reflectShape(t.Elem())
		if err != nil {
			return nil, err
		}
		return ListOf(elem, t), nil
	case reflect.Map:
		keyShape, err := reflectShape(t.Key())
		if err != nil {
			return nil, fmt.Errorf("%w: map key type %s: %v", ErrType, t.Key(), err)
		}
		if keyShape.Kind != KindScalar {
			return nil, fmt.Errorf("%w: map key type %s is not scalar-coercible", ErrType, t.Key())
		}
		valShape, err := reflectShape(t.Elem())
		if err != nil {
			return nil, err
		}
		return MapOf(keyShape, valShape, t), nil
	default:
		sk, ok := scalarKindOf(t)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported type %s", ErrType, t)
		}
		return ScalarOf(sk, t), nil
	}
}

func reflectStruct(t reflect.Type) (*Shape, error) {
	if v, ok := reflectMemo.Load(t); ok {
		return v.(*Shape), nil
	}
	s := &Shape{Kind: KindObject, Name: t.String(), GoType: t}
	actual, loaded := reflectMemo.LoadOrStore(t, s)
	s = actual.(*Shape)
	if loaded {
		// Someone else (an enclosing recursive call, or a concurrent
		// builder) has already registered this node; whether or not its
		// Fields are filled in yet, returning the shared pointer is correct
		// because cycles resolve through it once the original call finishes.
		return s, nil
	}
	fields, err := reflectFields(t)
	if err != nil {
		return nil, err
	}
	s.Fields = fields
	return s, nil
}

func reflectFields(t reflect.Type) ([]FieldSpec, error) {
	var out []FieldSpec
	for _, f := range reflect.VisibleFields(t) {
		if f.PkgPath != "" || len(f.Index) != 1 {
			continue // unexported or promoted embedded field
		}
		name := f.Name
		optional := false
		ft := f.Type
		if tag, ok := f.Tag.Lookup("json"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					optional = true
				}
			}
		}

		inner := ft
		ptrField := ft.Kind() == reflect.Pointer
		if ptrField {
			optional = true
			inner = ft.Elem()
		}

		childShape, err := reflectShape(inner)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name(), f.Name, err)
		}

		idx := f.Index[0]
		var set Setter
		var get Getter
		if ptrField {
			set = func(target, value reflect.Value) {
				p := reflect.New(inner)
				p.Elem().Set(value)
				target.Field(idx).Set(p)
			}
			get = func(target reflect.Value) reflect.Value {
				fv := target.Field(idx)
				if fv.IsNil() {
					return reflect.Value{}
				}
				return fv.Elem()
			}
		} else {
			set = func(target, value reflect.Value) {
				target.Field(idx).Set(value)
			}
			get = func(target reflect.Value) reflect.Value {
				return target.Field(idx)
			}
		}

		out = append(out, FieldSpec{
			Name:     name,
			Shape:    childShape,
			Set:      set,
			Get:      get,
			Optional: optional,
		})
	}
	return out, nil
}

// scalarKindOf maps a Go primitive type to a ScalarKind. Go's rune and byte
// are true aliases of int32/uint8 and are therefore indistinguishable from
// them by reflection; both reflect to I32/U8 respectively. Callers that
// need the distinct Char kind must build that Shape by hand with ScalarOf.
func scalarKindOf(t reflect.Type) (ScalarKind, bool) {
	switch t.Kind() {
	case reflect.Bool:
		return Bool, true
	case reflect.Int8:
		return I8, true
	case reflect.Int16:
		return I16, true
	case reflect.Int32:
		return I32, true
	case reflect.Int, reflect.Int64:
		return I64, true
	case reflect.Uint8:
		return U8, true
	case reflect.Uint16:
		return U16, true
	case reflect.Uint32:
		return U32, true
	case reflect.Uint, reflect.Uint64:
		return U64, true
	case reflect.Float32:
		return F32, true
	case reflect.Float64:
		return F64, true
	case reflect.String:
		return String, true
	default:
		return 0, false
	}
}
