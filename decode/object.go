package decode

import (
	"reflect"

	"github.com/kevin0x90/qson/shape"
)

// ObjectField is one compiled field of an ObjectState: the decoded key
// string it's reached by, the child parser state for its value shape, and
// the opaque setter bound at plan-build time.
type ObjectField struct {
	Name string
	State State
	Set   shape.Setter
}

// ObjectState is the ObjectParse(fields) parser state node from spec §4.2.
type ObjectState struct {
	Fields []ObjectField
	Trie   *KeyTrie
	GoType reflect.Type
}

// NewObjectState builds an ObjectParse node for an Object shape's compiled
// fields. The key trie is compiled once from the field names.
func NewObjectState(fields []ObjectField, goType reflect.Type) *ObjectState {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return &ObjectState{Fields: fields, Trie: NewKeyTrie(names), GoType: goType}
}

type objectScratch struct {
	target     reflect.Value
	seen       []bool
	pendingIdx int
}

const (
	objExpectOpen = iota
	objExpectKeyOrClose
	objKeyPopped
	objExpectColon
	objExpectValuePush
	objValuePopped
	objExpectCommaOrClose
)

func (s *ObjectState) Advance(ctx *Context) Outcome {
	for {
		switch ctx.Progress() {
		case objExpectOpen:
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
			target := reflect.New(s.GoType).Elem()
			ctx.SetScratch(&objectScratch{target: target, seen: make([]bool, len(s.Fields)), pendingIdx: -1})
			ctx.SetProgress(objExpectKeyOrClose)
		case objExpectKeyOrClose:
			b, ok := skipWS(ctx)
			if !ok {
				if ctx.AtEOF() {
					return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "expected object key or '}'"))
				}
				return Stay()
			}
			switch {
			case b == '}':
				ctx.advanceByte()
				return Pop(s.scratch(ctx).target)
			case b == '"':
				ctx.advanceByte()
				ctx.ResetToken()
				ctx.SetProgress(objKeyPopped)
				return Push(stringPrimitive)
			default:
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected object key or '}'"))
			}
		case objKeyPopped:
			key := ctx.PopValue().String()
			sc := s.scratch(ctx)
			if idx, ok := s.Trie.Match(key); ok {
				if sc.seen[idx] && ctx.Options().StrictDuplicateFields {
					return Fail(newError(DuplicateField, ctx.Offset(), "", "duplicate field "+key))
				}
				sc.seen[idx] = true
				sc.pendingIdx = idx
			} else {
				if ctx.Options().RejectUnknownFields {
					return Fail(newError(UnknownField, ctx.Offset(), "", "unknown field "+key))
				}
				sc.pendingIdx = -1
			}
			ctx.SetProgress(objExpectColon)
		case objExpectColon:
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
			ctx.SetProgress(objExpectValuePush)
		case objExpectValuePush:
			b, ok := skipWS(ctx)
			if !ok {
				if ctx.AtEOF() {
					return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "expected a value"))
				}
				return Stay()
			}
			sc := s.scratch(ctx)
			if b == 'n' {
				ctx.SetProgress(objValuePopped)
				return Push(nullLiteral)
			}
			var child State
			if sc.pendingIdx < 0 {
				child = AnyState()
			} else {
				child = s.Fields[sc.pendingIdx].State
			}
			ctx.SetProgress(objValuePopped)
			return Push(child)
		case objValuePopped:
			v := ctx.PopValue()
			sc := s.scratch(ctx)
			if sc.pendingIdx >= 0 {
				if _, isNull := v.Interface().(Null); !isNull {
					s.Fields[sc.pendingIdx].Set(sc.target, v)
				}
			}
			sc.pendingIdx = -1
			ctx.SetProgress(objExpectCommaOrClose)
		case objExpectCommaOrClose:
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
				ctx.SetProgress(objExpectKeyOrClose)
			case '}':
				ctx.advanceByte()
				return Pop(s.scratch(ctx).target)
			default:
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected ',' or '}'"))
			}
		}
	}
}

func (s *ObjectState) scratch(ctx *Context) *objectScratch {
	return ctx.Scratch().(*objectScratch)
}
