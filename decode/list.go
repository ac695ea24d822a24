package decode

import "reflect"

// ListState is the ListParse(elem) parser state node from spec §4.2.
type ListState struct {
	Elem   State
	GoType reflect.Type // slice type
}

// NewListState builds a ListParse node whose elements are parsed by elem.
func NewListState(elem State, goType reflect.Type) *ListState {
	return &ListState{Elem: elem, GoType: goType}
}

type listScratch struct {
	slice reflect.Value
}

const (
	listExpectOpen = iota
	listExpectElemOrClose
	listExpectElem // after a comma: an element must follow, no ']' allowed
	listElemPopped
	listExpectCommaOrClose
)

func (s *ListState) Advance(ctx *Context) Outcome {
	for {
		switch ctx.Progress() {
		case listExpectOpen:
			b, ok := ctx.Peek()
			if !ok {
				if ctx.AtEOF() {
					return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "expected '['"))
				}
				return Stay()
			}
			if b != '[' {
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected '['"))
			}
			ctx.advanceByte()
			ctx.SetScratch(&listScratch{slice: reflect.MakeSlice(s.GoType, 0, 0)})
			ctx.SetProgress(listExpectElemOrClose)
		case listExpectElemOrClose, listExpectElem:
			b, ok := skipWS(ctx)
			if !ok {
				if ctx.AtEOF() {
					return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "expected an element or ']'"))
				}
				return Stay()
			}
			if b == ']' && ctx.Progress() == listExpectElemOrClose {
				ctx.advanceByte()
				return Pop(s.scratch(ctx).slice)
			}
			if b == 'n' {
				ctx.SetProgress(listElemPopped)
				return Push(nullLiteral)
			}
			ctx.SetProgress(listElemPopped)
			return Push(s.Elem)
		case listElemPopped:
			v := ctx.PopValue()
			sc := s.scratch(ctx)
			if _, isNull := v.Interface().(Null); isNull {
				v = reflect.Zero(s.GoType.Elem())
			} else {
				v = wrapElemPointer(s.GoType.Elem(), v)
			}
			sc.slice = reflect.Append(sc.slice, v)
			ctx.SetProgress(listExpectCommaOrClose)
		case listExpectCommaOrClose:
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
				ctx.SetProgress(listExpectElem)
			case ']':
				ctx.advanceByte()
				return Pop(s.scratch(ctx).slice)
			default:
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected ',' or ']'"))
			}
		}
	}
}

func (s *ListState) scratch(ctx *Context) *listScratch {
	return ctx.Scratch().(*listScratch)
}
