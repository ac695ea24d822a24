package decode

// Lexical primitives: whitespace skipping and the string/number/literal
// scanners used by the scalar terminal states in scalar.go. Adapted from
// the teacher's byte-class-table approach in parser.go, generalized so
// each primitive operates against a Context and can suspend at any byte
// (the teacher read one full io.Reader to completion; here a primitive
// must be resumable mid-token across independent Feed calls).

func isWhitespace(b byte) bool {
	switch b {
	case 0x20, 0x09, 0x0A, 0x0D:
		return true
	default:
		return false
	}
}

// skipWS consumes whitespace bytes and returns the first non-whitespace
// byte without consuming it. ok is false if input ran out mid-skip (the
// caller should return Stay so the driver suspends/re-invokes later, or
// fail if at true EOF with nothing left to skip).
func skipWS(ctx *Context) (b byte, ok bool) {
	for {
		b, ok = ctx.Peek()
		if !ok {
			return 0, false
		}
		if !isWhitespace(b) {
			return b, true
		}
		ctx.advanceByte()
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func hexVal(b byte) (int, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), true
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10, true
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10, true
	default:
		return 0, false
	}
}
