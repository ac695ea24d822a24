package decode

import (
	"reflect"

	"github.com/kevin0x90/qson/shape"
)

// MapState is the MapParse(key, value) parser state node from spec §4.2:
// structurally identical to ObjectParse's brace/comma skeleton, but the key
// string is coerced through the map's key shape instead of matched against
// a fixed field trie, and there is no unknown-field concept since every key
// is a value. Duplicate keys follow the same Config.StrictDuplicateFields
// policy as ObjectState; when not strict, last write wins.
type MapState struct {
	Elem    State
	KeyKind shape.ScalarKind
	KeyType reflect.Type
	GoType  reflect.Type // map type
}

// NewMapState builds a MapParse node. keyKind/keyType describe how a
// decoded JSON key string is coerced into the map's key type.
func NewMapState(elem State, keyKind shape.ScalarKind, keyType reflect.Type, goType reflect.Type) *MapState {
	return &MapState{Elem: elem, KeyKind: keyKind, KeyType: keyType, GoType: goType}
}

type mapScratch struct {
	m         reflect.Value
	seen      map[any]bool
	pendingKv reflect.Value
	keyStart  int64
}

const (
	mapExpectOpen = iota
	mapExpectKeyOrClose
	mapKeyPopped
	mapExpectColon
	mapExpectValuePush
	mapValuePopped
	mapExpectCommaOrClose
)

func (s *MapState) Advance(ctx *Context) Outcome {
	for {
		switch ctx.Progress() {
		case mapExpectOpen:
			b, ok := ctx.Peek()
			if !ok {
				if ctx.AtEOF() {
					return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "expected '{'"))
				}
				return Stay()
			}
			if b != '{' {
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected '{'"))
			}
			ctx.advanceByte()
			ctx.SetScratch(&mapScratch{m: reflect.MakeMap(s.GoType), seen: make(map[any]bool)})
			ctx.SetProgress(mapExpectKeyOrClose)
		case mapExpectKeyOrClose:
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
				return Pop(s.scratch(ctx).m)
			case b == '"':
				s.scratch(ctx).keyStart = ctx.Offset()
				ctx.advanceByte()
				ctx.ResetToken()
				ctx.SetProgress(mapKeyPopped)
				return Push(stringPrimitive)
			default:
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected a key or '}'"))
			}
		case mapKeyPopped:
			text := ctx.PopValue().String()
			sc := s.scratch(ctx)
			keyVal, err := convertTextToKind(sc.keyStart, text, s.KeyKind, s.KeyType)
			if err != nil {
				return Fail(err)
			}
			seenKey := keyVal.Interface()
			if sc.seen[seenKey] && ctx.Options().StrictDuplicateFields {
				return Fail(newError(DuplicateField, ctx.Offset(), "", "duplicate map key "+text))
			}
			sc.seen[seenKey] = true
			sc.pendingKv = keyVal
			ctx.SetProgress(mapExpectColon)
		case mapExpectColon:
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
			ctx.SetProgress(mapExpectValuePush)
		case mapExpectValuePush:
			b, ok := skipWS(ctx)
			if !ok {
				if ctx.AtEOF() {
					return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "expected a value"))
				}
				return Stay()
			}
			if b == 'n' {
				ctx.SetProgress(mapValuePopped)
				return Push(nullLiteral)
			}
			ctx.SetProgress(mapValuePopped)
			return Push(s.Elem)
		case mapValuePopped:
			v := ctx.PopValue()
			sc := s.scratch(ctx)
			if _, isNull := v.Interface().(Null); isNull {
				v = reflect.Zero(s.GoType.Elem())
			} else {
				v = wrapElemPointer(s.GoType.Elem(), v)
			}
			sc.m.SetMapIndex(sc.pendingKv, v)
			ctx.SetProgress(mapExpectCommaOrClose)
		case mapExpectCommaOrClose:
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
				ctx.SetProgress(mapExpectKeyOrClose)
			case '}':
				ctx.advanceByte()
				return Pop(s.scratch(ctx).m)
			default:
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected ',' or '}'"))
			}
		}
	}
}

func (s *MapState) scratch(ctx *Context) *mapScratch {
	return ctx.Scratch().(*mapScratch)
}
