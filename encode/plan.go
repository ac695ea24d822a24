package encode

import (
	"reflect"
	"strconv"

	"github.com/kevin0x90/qson/decode"
	"github.com/kevin0x90/qson/shape"
)

func formatInt(v int64) string  { return strconv.FormatInt(v, 10) }
func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

// Plan mirrors shape.Shape: a compiled writer emission routine for one
// static shape, built once by package plan and then executed repeatedly
// by Execute without consulting the shape: field values come from the
// opaque Getter closures bound at plan-build time, and lists, maps and
// scalars are read through their reflect.Value.
type Plan struct {
	Kind shape.Kind

	// valid when Kind == shape.KindScalar
	Scalar shape.ScalarKind

	// valid when Kind == shape.KindList (element) or KindMap (value)
	Elem *Plan

	// valid when Kind == shape.KindMap: how to render a map key as a
	// string (the reverse of decode's key coercion).
	KeyKind shape.ScalarKind

	// valid when Kind == shape.KindObject, in declared field order.
	Fields []PlanField

	// EmitNullForAbsent controls, for Kind == shape.KindObject fields with
	// Optional == true, whether an absent (Go zero/nil) field value emits
	// `null` or is omitted entirely — a plan-build option, not a runtime
	// switch (§4.4).
	EmitNullForAbsent bool
}

// PlanField is one compiled field of an object Plan: its precomputed
// JSON-escaped key literal, the child plan for its value shape, the
// opaque getter, and whether it may be legitimately absent.
type PlanField struct {
	KeyLiteral []byte
	Plan       *Plan
	Get        shape.Getter
	Optional   bool
}

// Execute writes v (of the Go type this plan was compiled for) to sink as
// JSON, per the emission rules of spec §4.4.
func (p *Plan) Execute(sink Sink, v reflect.Value) error {
	switch p.Kind {
	case shape.KindScalar:
		return p.executeScalar(sink, v)
	case shape.KindList:
		return p.executeList(sink, v)
	case shape.KindMap:
		return p.executeMap(sink, v)
	case shape.KindObject:
		return p.executeObject(sink, v)
	case shape.KindAny:
		return p.executeAny(sink, v)
	default:
		return decode.NewError(decode.PlanBuildFailure, 0, "", "execute: invalid plan kind")
	}
}

func (p *Plan) executeScalar(sink Sink, v reflect.Value) error {
	return writeScalar(sink, p.Scalar, v)
}

func writeScalar(sink Sink, kind shape.ScalarKind, v reflect.Value) error {
	switch {
	case kind == shape.Bool:
		return writeBool(sink, v.Bool())
	case kind == shape.String:
		return writeString(sink, v.String())
	case kind == shape.Char:
		return writeString(sink, string(rune(v.Int())))
	case kind.IsSigned():
		return writeInteger(sink, v.Int())
	case kind.IsInteger(): // unsigned
		return writeUinteger(sink, v.Uint())
	case kind == shape.F32:
		return writeFloat(sink, v.Float(), 32)
	case kind == shape.F64:
		return writeFloat(sink, v.Float(), 64)
	default:
		return decode.NewError(decode.PlanBuildFailure, 0, "", "writeScalar: unhandled kind "+kind.String())
	}
}

func (p *Plan) executeList(sink Sink, v reflect.Value) error {
	if v.Kind() == reflect.Slice && v.IsNil() {
		return writeNull(sink)
	}
	if err := sink.WriteByte('['); err != nil {
		return err
	}
	n := v.Len()
	for i := 0; i < n; i++ {
		if i > 0 {
			if err := sink.WriteByte(','); err != nil {
				return err
			}
		}
		if err := p.Elem.Execute(sink, v.Index(i)); err != nil {
			return err
		}
	}
	return sink.WriteByte(']')
}

func (p *Plan) executeMap(sink Sink, v reflect.Value) error {
	if v.IsNil() {
		return writeNull(sink)
	}
	if err := sink.WriteByte('{'); err != nil {
		return err
	}
	iter := v.MapRange()
	first := true
	for iter.Next() {
		if !first {
			if err := sink.WriteByte(','); err != nil {
				return err
			}
		}
		first = false
		keyStr, err := renderMapKey(p.KeyKind, iter.Key())
		if err != nil {
			return err
		}
		if err := writeString(sink, keyStr); err != nil {
			return err
		}
		if err := sink.WriteByte(':'); err != nil {
			return err
		}
		if err := p.Elem.Execute(sink, iter.Value()); err != nil {
			return err
		}
	}
	return sink.WriteByte('}')
}

func renderMapKey(kind shape.ScalarKind, key reflect.Value) (string, error) {
	switch {
	case kind == shape.String:
		return key.String(), nil
	case kind == shape.Char:
		return string(rune(key.Int())), nil
	case kind.IsSigned():
		return formatInt(key.Int()), nil
	case kind.IsInteger():
		return formatUint(key.Uint()), nil
	default:
		return "", decode.NewError(decode.PlanBuildFailure, 0, "", "map key kind not string-coercible: "+kind.String())
	}
}

func (p *Plan) executeObject(sink Sink, v reflect.Value) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return writeNull(sink)
		}
		v = v.Elem()
	}
	if err := sink.WriteByte('{'); err != nil {
		return err
	}
	wrote := false
	for _, f := range p.Fields {
		fv := f.Get(v)
		if f.Optional && isAbsent(fv) {
			if !p.EmitNullForAbsent {
				continue
			}
			if wrote {
				if err := sink.WriteByte(','); err != nil {
					return err
				}
			}
			wrote = true
			if _, err := sink.Write(f.KeyLiteral); err != nil {
				return err
			}
			if err := sink.WriteByte(':'); err != nil {
				return err
			}
			if err := writeNull(sink); err != nil {
				return err
			}
			continue
		}
		if wrote {
			if err := sink.WriteByte(','); err != nil {
				return err
			}
		}
		wrote = true
		if _, err := sink.Write(f.KeyLiteral); err != nil {
			return err
		}
		if err := sink.WriteByte(':'); err != nil {
			return err
		}
		if err := f.Plan.Execute(sink, fv); err != nil {
			return err
		}
	}
	return sink.WriteByte('}')
}

// isAbsent reports whether an Optional field's retrieved value should be
// treated as not present. A nil pointer field's Getter (shape.Reflect)
// returns the invalid zero reflect.Value; an omitempty-tagged non-pointer
// field instead returns its real (possibly zero) value.
func isAbsent(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Interface:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}

// executeAny writes a *shape.Any dynamic value, used both for fields whose
// static shape is shape.AnyShape() and (via package plan) anywhere a Shape
// graph bottoms out in KindAny.
func (p *Plan) executeAny(sink Sink, v reflect.Value) error {
	a, _ := v.Interface().(*shape.Any)
	return writeAny(sink, a)
}

func writeAny(sink Sink, a *shape.Any) error {
	if a == nil {
		return writeNull(sink)
	}
	switch a.Kind() {
	case shape.AnyNull:
		return writeNull(sink)
	case shape.AnyBool:
		b, _ := a.AsBoolean()
		return writeBool(sink, b)
	case shape.AnyInteger:
		i, _ := a.AsInteger()
		return writeInteger(sink, i)
	case shape.AnyNumber:
		f, _ := a.AsNumber()
		return writeFloat(sink, f, 64)
	case shape.AnyString:
		s, _ := a.AsString()
		return writeString(sink, s)
	case shape.AnyArray:
		elems, _ := a.AsArray()
		if err := sink.WriteByte('['); err != nil {
			return err
		}
		for i, e := range elems {
			if i > 0 {
				if err := sink.WriteByte(','); err != nil {
					return err
				}
			}
			if err := writeAny(sink, e); err != nil {
				return err
			}
		}
		return sink.WriteByte(']')
	case shape.AnyObject:
		fields, _ := a.AsObject()
		if err := sink.WriteByte('{'); err != nil {
			return err
		}
		first := true
		for k, val := range fields {
			if !first {
				if err := sink.WriteByte(','); err != nil {
					return err
				}
			}
			first = false
			if err := writeString(sink, k); err != nil {
				return err
			}
			if err := sink.WriteByte(':'); err != nil {
				return err
			}
			if err := writeAny(sink, val); err != nil {
				return err
			}
		}
		return sink.WriteByte('}')
	default:
		return decode.NewError(decode.PlanBuildFailure, 0, "", "writeAny: unhandled Any kind")
	}
}
