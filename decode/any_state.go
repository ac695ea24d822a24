package decode

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/kevin0x90/qson/shape"
)

// anyValueState is ValueDispatch from spec §4.2: it sniffs the next
// non-whitespace byte to decide which JSON production is present and
// parses a complete, arbitrarily-shaped value into a *shape.Any, recursing
// through itself for array elements and object field values. It is the
// root state used when a target shape is shape.AnyShape(), and is also
// pushed by ObjectState to parse (and discard) an unknown field's value.
type anyValueState struct{}

var anySingletonState = &anyValueState{}

// AnyState returns the shared ValueDispatch root state.
func AnyState() State { return anySingletonState }

const (
	anyDispatch = iota
	anyAwaitScalarChild
	anyArrayExpectElemOrClose
	anyArrayExpectElem
	anyArrayElemPopped
	anyArrayExpectCommaOrClose
	anyObjectExpectKeyOrClose
	anyObjectKeyPopped
	anyObjectExpectColon
	anyObjectExpectValuePush
	anyObjectValuePopped
	anyObjectExpectCommaOrClose
)

type anyArrayScratch struct {
	elems []*shape.Any
}

type anyObjectScratch struct {
	val        *shape.Any
	pendingKey string
}

func (s *anyValueState) Advance(ctx *Context) Outcome {
	switch ctx.Progress() {
	case anyDispatch:
		b, ok := skipWS(ctx)
		if !ok {
			if ctx.AtEOF() {
				return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "expected a JSON value"))
			}
			return Stay()
		}
		switch {
		case b == '"':
			ctx.advanceByte()
			ctx.ResetToken()
			ctx.SetProgress(anyAwaitScalarChild)
			ctx.SetScratch("string")
			return Push(stringPrimitive)
		case b == '-' || isDigit(b):
			ctx.ResetToken()
			ctx.SetProgress(anyAwaitScalarChild)
			ctx.SetScratch("number")
			return Push(numberPrimitive)
		case b == 't':
			ctx.SetProgress(anyAwaitScalarChild)
			ctx.SetScratch("bool")
			return Push(trueLiteral)
		case b == 'f':
			ctx.SetProgress(anyAwaitScalarChild)
			ctx.SetScratch("bool")
			return Push(falseLiteral)
		case b == 'n':
			ctx.SetProgress(anyAwaitScalarChild)
			ctx.SetScratch("null")
			return Push(nullLiteral)
		case b == '[':
			ctx.advanceByte()
			ctx.SetScratch(&anyArrayScratch{})
			ctx.SetProgress(anyArrayExpectElemOrClose)
			return s.advanceArray(ctx)
		case b == '{':
			ctx.advanceByte()
			ctx.SetScratch(&anyObjectScratch{val: shape.NewAnyObject(nil)})
			ctx.SetProgress(anyObjectExpectKeyOrClose)
			return s.advanceObject(ctx)
		default:
			return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected a JSON value"))
		}
	case anyAwaitScalarChild:
		raw := ctx.PopValue()
		kind, _ := ctx.Scratch().(string)
		return s.finishScalar(ctx, kind, raw)
	case anyArrayExpectElemOrClose, anyArrayExpectElem, anyArrayElemPopped, anyArrayExpectCommaOrClose:
		return s.advanceArray(ctx)
	default:
		return s.advanceObject(ctx)
	}
}

func (s *anyValueState) finishScalar(ctx *Context, kind string, raw reflect.Value) Outcome {
	switch kind {
	case "string":
		return Pop(reflect.ValueOf(shape.NewAnyString(raw.String())))
	case "bool":
		return Pop(reflect.ValueOf(shape.NewAnyBool(raw.Bool())))
	case "null":
		return Pop(reflect.ValueOf(shape.NewAnyNull()))
	case "number":
		text := raw.String()
		if !strings.ContainsAny(text, ".eE") {
			if iv, err := strconv.ParseInt(text, 10, 64); err == nil {
				return Pop(reflect.ValueOf(shape.NewAnyInteger(iv)))
			}
		}
		fv, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Fail(newError(NumberOutOfRange, ctx.Offset(), "", "number literal out of range"))
		}
		return Pop(reflect.ValueOf(shape.NewAnyNumber(fv)))
	default:
		return Fail(newError(PlanBuildFailure, ctx.Offset(), "", "unreachable scalar kind"))
	}
}

func (s *anyValueState) advanceArray(ctx *Context) Outcome {
	for {
		switch ctx.Progress() {
		case anyArrayExpectElemOrClose, anyArrayExpectElem:
			b, ok := skipWS(ctx)
			if !ok {
				if ctx.AtEOF() {
					return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "expected an element or ']'"))
				}
				return Stay()
			}
			if b == ']' && ctx.Progress() == anyArrayExpectElemOrClose {
				ctx.advanceByte()
				sc := ctx.Scratch().(*anyArrayScratch)
				return Pop(reflect.ValueOf(shape.NewAnyArray(sc.elems)))
			}
			ctx.SetProgress(anyArrayElemPopped)
			return Push(anySingletonState)
		case anyArrayElemPopped:
			v := ctx.PopValue().Interface().(*shape.Any)
			sc := ctx.Scratch().(*anyArrayScratch)
			sc.elems = append(sc.elems, v)
			ctx.SetProgress(anyArrayExpectCommaOrClose)
		case anyArrayExpectCommaOrClose:
			b, ok := skipWS(ctx)
			if !ok {
				if ctx.AtEOF() {
					return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "expected ',' or ']'"))
				}
				return Stay()
			}
			switch b {
			case ',':
				ctx.advanceByte()
				ctx.SetProgress(anyArrayExpectElem)
			case ']':
				ctx.advanceByte()
				sc := ctx.Scratch().(*anyArrayScratch)
				return Pop(reflect.ValueOf(shape.NewAnyArray(sc.elems)))
			default:
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected ',' or ']'"))
			}
		}
	}
}

func (s *anyValueState) advanceObject(ctx *Context) Outcome {
	for {
		switch ctx.Progress() {
		case anyObjectExpectKeyOrClose:
			b, ok := skipWS(ctx)
			if !ok {
				if ctx.AtEOF() {
					return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "expected a key or '}'"))
				}
				return Stay()
			}
			switch {
			case b == '}':
				ctx.advanceByte()
				return Pop(reflect.ValueOf(ctx.Scratch().(*anyObjectScratch).val))
			case b == '"':
				ctx.advanceByte()
				ctx.ResetToken()
				ctx.SetProgress(anyObjectKeyPopped)
				return Push(stringPrimitive)
			default:
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected a key or '}'"))
			}
		case anyObjectKeyPopped:
			key := ctx.PopValue().String()
			sc := ctx.Scratch().(*anyObjectScratch)
			if sc.val.HasField(key) && ctx.Options().StrictDuplicateFields {
				return Fail(newError(DuplicateField, ctx.Offset(), "", "duplicate field "+key))
			}
			sc.pendingKey = key
			ctx.SetProgress(anyObjectExpectColon)
		case anyObjectExpectColon:
			b, ok := skipWS(ctx)
			if !ok {
				if ctx.AtEOF() {
					return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "expected ':'"))
				}
				return Stay()
			}
			if b != ':' {
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected ':'"))
			}
			ctx.advanceByte()
			ctx.SetProgress(anyObjectExpectValuePush)
		case anyObjectExpectValuePush:
			ctx.SetProgress(anyObjectValuePopped)
			return Push(anySingletonState)
		case anyObjectValuePopped:
			v := ctx.PopValue().Interface().(*shape.Any)
			sc := ctx.Scratch().(*anyObjectScratch)
			sc.val.SetField(sc.pendingKey, v)
			ctx.SetProgress(anyObjectExpectCommaOrClose)
		case anyObjectExpectCommaOrClose:
			b, ok := skipWS(ctx)
			if !ok {
				if ctx.AtEOF() {
					return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "expected ',' or '}'"))
				}
				return Stay()
			}
			switch b {
			case ',':
				ctx.advanceByte()
				ctx.SetProgress(anyObjectExpectKeyOrClose)
			case '}':
				ctx.advanceByte()
				return Pop(reflect.ValueOf(ctx.Scratch().(*anyObjectScratch).val))
			default:
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected ',' or '}'"))
			}
		}
	}
}
