package decode

import "reflect"

type outcomeKind uint8

const (
	outcomeStay outcomeKind = iota
	outcomePop
	outcomePush
	outcomeFail
)

// Outcome is the result of a single State.Advance call: the driver either
// keeps the state on top of the stack (Stay), replaces it with its
// completed value (Pop), descends into a child state (Push), or aborts the
// parse (Fail).
type Outcome struct {
	kind  outcomeKind
	value reflect.Value
	child State
	err   *Error
}

// Stay means the state consumed (or peeked) a byte and should be
// re-invoked; no stack transition happens.
func Stay() Outcome { return Outcome{kind: outcomeStay} }

// Pop completes the current state with value v, which the driver pushes
// onto the context's value stack for the parent state to integrate.
func Pop(v reflect.Value) Outcome { return Outcome{kind: outcomePop, value: v} }

// Push descends into child; child will be driven to completion before the
// current state is re-invoked.
func Push(child State) Outcome { return Outcome{kind: outcomePush, child: child} }

// Fail aborts the parse with the given error.
func Fail(err *Error) Outcome { return Outcome{kind: outcomeFail, err: err} }

// State is one node of a parser state tree: value-dispatch, object, list,
// map, key-match, or scalar-terminal. Nodes are built once per shape by the
// plan builder (package plan) and reused across every parse of that shape;
// all per-parse mutable bookkeeping lives in the Context's frame (progress,
// scratch), never in the State itself, so the same *ObjectState instance is
// safe to drive concurrently from independent Contexts.
type State interface {
	Advance(ctx *Context) Outcome
}

// StateFunc adapts a function to the State interface, for small stateless
// nodes that need no fields of their own.
type StateFunc func(ctx *Context) Outcome

func (f StateFunc) Advance(ctx *Context) Outcome { return f(ctx) }
