package shape

import "errors"

var (
	// ErrType roots every error caused by a well-formed value being the wrong
	// shape (type mismatches, range overflow, plan-build failures).
	ErrType = errors.New("qson: type error")
	// ErrParse roots every error caused by malformed JSON syntax.
	ErrParse = errors.New("qson: parse error")
)
