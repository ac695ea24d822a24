package decode

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/kevin0x90/qson/shape"
)

// intBounds gives the inclusive [min, max] range for integer ScalarKinds,
// used to turn overflow into NumberOutOfRange rather than silent truncation.
func intBounds(kind shape.ScalarKind) (min, max int64) {
	switch kind {
	case shape.I8:
		return -1 << 7, 1<<7 - 1
	case shape.I16:
		return -1 << 15, 1<<15 - 1
	case shape.I32:
		return -1 << 31, 1<<31 - 1
	case shape.I64:
		return -1 << 63, 1<<63 - 1
	}
	return 0, 0
}

func uintMax(kind shape.ScalarKind) uint64 {
	switch kind {
	case shape.U8:
		return 1<<8 - 1
	case shape.U16:
		return 1<<16 - 1
	case shape.U32:
		return 1<<32 - 1
	case shape.U64:
		return 1<<64 - 1
	}
	return 0
}

// convertScalar interprets a raw primitive value (string content, number
// text, bool, or Null, as produced by the lexical primitives in scalar.go)
// as the target ScalarKind, reporting TypeMismatch or NumberOutOfRange as
// appropriate. goType is the concrete Go type to produce (for named types
// derived from reflection). offset is the start of the literal (captured
// by ScalarState before it scanned the token), not the cursor's current
// position -- by the time conversion runs the whole literal has already
// been consumed, so ctx.Offset() would point past it.
func convertScalar(raw reflect.Value, kind shape.ScalarKind, goType reflect.Type, offset int64) Outcome {
	switch raw.Interface().(type) {
	case string:
		text := raw.Interface().(string)
		return convertFromString(offset, text, kind, goType)
	case bool:
		if kind != shape.Bool {
			return Fail(newError(TypeMismatch, offset, "", "boolean value not compatible with "+kind.String()))
		}
		return Pop(reflect.ValueOf(raw.Bool()).Convert(goType))
	case Null:
		return Fail(newError(TypeMismatch, offset, "", "null not compatible with "+kind.String()))
	default:
		return Fail(newError(TypeMismatch, offset, "", "unrecognized primitive value"))
	}
}

// convertFromString handles both "the raw value really is a JSON string"
// (kind String/Char) and "the raw value is unparsed number digit text"
// (numeric kinds) — the two share a string carrier from scalar.go's
// primitives but are disambiguated by which primitive produced them;
// ScalarState pushes the number primitive only for numeric kinds and the
// string primitive only for String/Char, so kind alone determines how to
// read it.
func convertFromString(offset int64, text string, kind shape.ScalarKind, goType reflect.Type) Outcome {
	v, err := convertTextToKind(offset, text, kind, goType)
	if err != nil {
		return Fail(err)
	}
	return Pop(v)
}

// convertTextToKind is the pure text-to-scalar conversion shared by
// convertFromString (typed scalar terminals, fed from a lexical primitive)
// and MapState's key coercion (fed directly from a decoded object-key
// string, which carries no separate lexical token of its own).
func convertTextToKind(offset int64, text string, kind shape.ScalarKind, goType reflect.Type) (reflect.Value, *Error) {
	switch {
	case kind == shape.String:
		return reflect.ValueOf(text).Convert(goType), nil
	case kind == shape.Char:
		runes := []rune(text)
		if len(runes) != 1 {
			return reflect.Value{}, newError(TypeMismatch, offset, "", "char scalar requires a single-rune string")
		}
		return reflect.ValueOf(runes[0]).Convert(goType), nil
	case kind.IsInteger():
		hasFracOrExp := strings.ContainsAny(text, ".eE")
		if hasFracOrExp {
			return reflect.Value{}, newError(TypeMismatch, offset, "", "fractional or exponent number not valid for integer kind "+kind.String())
		}
		if kind.IsSigned() {
			v, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return reflect.Value{}, newError(NumberOutOfRange, offset, "", "integer literal out of int64 range")
			}
			min, max := intBounds(kind)
			if v < min || v > max {
				return reflect.Value{}, newError(NumberOutOfRange, offset, "", "integer literal out of range for "+kind.String())
			}
			return reflect.ValueOf(v).Convert(goType), nil
		}
		v, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return reflect.Value{}, newError(NumberOutOfRange, offset, "", "integer literal out of uint64 range")
		}
		if max := uintMax(kind); v > max {
			return reflect.Value{}, newError(NumberOutOfRange, offset, "", "integer literal out of range for "+kind.String())
		}
		return reflect.ValueOf(v).Convert(goType), nil
	case kind.IsFloat():
		bits := 64
		if kind == shape.F32 {
			bits = 32
		}
		v, err := strconv.ParseFloat(text, bits)
		if err != nil {
			return reflect.Value{}, newError(NumberOutOfRange, offset, "", "number literal out of range for "+kind.String())
		}
		if kind == shape.F32 {
			return reflect.ValueOf(float32(v)).Convert(goType), nil
		}
		return reflect.ValueOf(v).Convert(goType), nil
	default:
		return reflect.Value{}, newError(TypeMismatch, offset, "", "string/number value not compatible with "+kind.String())
	}
}

// wrapElemPointer re-wraps a decoded element value in a fresh pointer when
// the list/map's concrete Go element type is a pointer: shape.Reflect's
// Pointer case (shape/reflect.go) dereferences *T before deriving the
// nested element shape, so the element State always produces a T value
// even when GoType.Elem() is *T -- the canonical recursive-tree shape,
// e.g. `Children []*Node`. Left alone, reflect.Append/SetMapIndex would
// panic trying to assign a T where the slice/map holds *T.
func wrapElemPointer(elemType reflect.Type, v reflect.Value) reflect.Value {
	if elemType.Kind() != reflect.Pointer || v.Type() == elemType {
		return v
	}
	p := reflect.New(elemType.Elem())
	p.Elem().Set(v)
	return p
}
