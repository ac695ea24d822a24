package decode

import (
	"fmt"

	"github.com/kevin0x90/qson/shape"
)

// Kind is the taxonomy of parse-time failures, each carrying the byte
// offset (and, where relevant, a textual description of the state path)
// at which the failure was detected.
type Kind int

const (
	UnexpectedToken Kind = iota
	UnexpectedEndOfInput
	MalformedEscape
	TypeMismatch
	NumberOutOfRange
	DuplicateField
	UnknownField
	PlanBuildFailure
	NonFiniteNumber
)

func (k Kind) String() string {
	switch k {
	case UnexpectedToken:
		return "unexpected token"
	case UnexpectedEndOfInput:
		return "unexpected end of input"
	case MalformedEscape:
		return "malformed escape"
	case TypeMismatch:
		return "type mismatch"
	case NumberOutOfRange:
		return "number out of range"
	case DuplicateField:
		return "duplicate field"
	case UnknownField:
		return "unknown field"
	case PlanBuildFailure:
		return "plan build failure"
	case NonFiniteNumber:
		return "non-finite number"
	default:
		return "unknown error"
	}
}

// root reports which of the two sentinel errors (shape.ErrParse / shape.ErrType)
// this Kind wraps, mirroring the teacher's two-sentinel error taxonomy.
func (k Kind) root() error {
	switch k {
	case TypeMismatch, NumberOutOfRange, DuplicateField, UnknownField, PlanBuildFailure, NonFiniteNumber:
		return shape.ErrType
	default:
		return shape.ErrParse
	}
}

// Error is a parse-time failure: a Kind, the byte offset it was detected at,
// and an optional human-readable state-path description.
type Error struct {
	Kind   Kind
	Offset int64
	Path   string
	Msg    string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s at offset %d (%s): %s", e.Kind, e.Offset, e.Path, e.Msg)
	}
	return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Kind.root()
}

func newError(kind Kind, offset int64, path, msg string) *Error {
	return &Error{Kind: kind, Offset: offset, Path: path, Msg: msg}
}

// NewError is the exported constructor, used by package encode to report
// failures (NonFiniteNumber, PlanBuildFailure) through the same Kind/Error
// taxonomy as the parser, since §7 describes one shared error taxonomy for
// both engines rather than a separate one per package.
func NewError(kind Kind, offset int64, path, msg string) *Error {
	return newError(kind, offset, path, msg)
}
