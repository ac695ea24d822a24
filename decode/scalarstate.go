package decode

import (
	"reflect"

	"github.com/kevin0x90/qson/shape"
)

// ScalarState is the ScalarTerminal(kind) parser state node from spec §4.2:
// it figures out which raw JSON literal is present (string/number/bool/
// null), scans it via the shared lexical primitives, and converts the
// result into the target scalar kind, raising TypeMismatch for a
// well-formed JSON value of the wrong shape.
type ScalarState struct {
	Kind   shape.ScalarKind
	GoType reflect.Type
}

// NewScalarState builds a ScalarTerminal node for the given scalar kind.
func NewScalarState(kind shape.ScalarKind, goType reflect.Type) *ScalarState {
	return &ScalarState{Kind: kind, GoType: goType}
}

const (
	scalarDispatch = iota
	scalarAwaitChild
)

func (s *ScalarState) Advance(ctx *Context) Outcome {
	switch ctx.Progress() {
	case scalarDispatch:
		b, ok := skipWS(ctx)
		if !ok {
			return Stay()
		}
		// Record the literal's start offset before scanning it, so a
		// conversion failure (e.g. NumberOutOfRange) can report where the
		// literal began instead of the cursor's post-scan position.
		start := ctx.Offset()
		switch {
		case b == '"':
			if s.Kind != shape.String && s.Kind != shape.Char {
				return Fail(newError(TypeMismatch, start, "", "string value not compatible with "+s.Kind.String()))
			}
			ctx.advanceByte()
			ctx.ResetToken()
			ctx.SetScratch(start)
			ctx.SetProgress(scalarAwaitChild)
			return Push(stringPrimitive)
		case b == '-' || isDigit(b):
			if !s.Kind.IsInteger() && !s.Kind.IsFloat() {
				return Fail(newError(TypeMismatch, start, "", "number value not compatible with "+s.Kind.String()))
			}
			ctx.ResetToken()
			ctx.SetScratch(start)
			ctx.SetProgress(scalarAwaitChild)
			return Push(numberPrimitive)
		case b == 't':
			ctx.SetScratch(start)
			ctx.SetProgress(scalarAwaitChild)
			return Push(trueLiteral)
		case b == 'f':
			ctx.SetScratch(start)
			ctx.SetProgress(scalarAwaitChild)
			return Push(falseLiteral)
		case b == 'n':
			ctx.SetScratch(start)
			ctx.SetProgress(scalarAwaitChild)
			return Push(nullLiteral)
		default:
			return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected a JSON value"))
		}
	default:
		raw := ctx.PopValue()
		start, _ := ctx.Scratch().(int64)
		return convertScalar(raw, s.Kind, s.GoType, start)
	}
}
