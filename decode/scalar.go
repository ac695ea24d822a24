package decode

import "reflect"

// Raw lexical primitives. Each scans exactly one JSON literal form byte by
// byte, suspending (Stay) whenever input runs out mid-token, and pops a Go
// value representing the literal's raw content: a string's decoded text, a
// number's unparsed digit text (left for the caller to interpret per
// target scalar kind, or per Any's int-vs-float heuristic), or a bool.
// These are the reusable leaves both the typed scalar path (scalar
// terminal, below) and the dynamic Any path (any_state.go) dispatch to.

// Null is the sentinel value popped by the null-literal primitive.
type Null struct{}

var nullValue = reflect.ValueOf(Null{})

const (
	litNone = iota
	litTrue
	litFalse
	litNull
)

// literalState matches "true", "false", or "null" one byte at a time.
type literalState struct{ which int }

var (
	trueLiteral  = &literalState{which: litTrue}
	falseLiteral = &literalState{which: litFalse}
	nullLiteral  = &literalState{which: litNull}
)

var literalText = map[int]string{
	litTrue:  "true",
	litFalse: "false",
	litNull:  "null",
}

func (s *literalState) Advance(ctx *Context) Outcome {
	text := literalText[s.which]
	for {
		pos := ctx.Progress()
		if pos >= len(text) {
			switch s.which {
			case litTrue:
				return Pop(reflect.ValueOf(true))
			case litFalse:
				return Pop(reflect.ValueOf(false))
			default:
				return Pop(nullValue)
			}
		}
		b, ok := ctx.Peek()
		if !ok {
			if ctx.AtEOF() {
				return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "truncated literal"))
			}
			return Stay()
		}
		if b != text[pos] {
			return Fail(newError(UnexpectedToken, ctx.Offset(), "", "invalid literal"))
		}
		ctx.advanceByte()
		ctx.SetProgress(pos + 1)
	}
}

// stringState scans a JSON string body (the opening quote has already been
// consumed by the caller) including all escape sequences, suspending at
// any byte, and pops the decoded string content.
type stringState struct{}

var stringPrimitive = &stringState{}

const (
	strNormal = iota
	strEscape
	strHex1
	strHex2
	strHex3
	strHex4
)

func (s *stringState) Advance(ctx *Context) Outcome {
	for {
		b, ok := ctx.Peek()
		if !ok {
			if ctx.AtEOF() {
				return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "unterminated string"))
			}
			return Stay()
		}
		switch ctx.Progress() {
		case strNormal:
			switch {
			case b == '"':
				if _, pending := ctx.PendingHighSurrogate(); pending {
					return Fail(newError(MalformedEscape, ctx.Offset(), "", "unpaired high surrogate"))
				}
				ctx.advanceByte()
				return Pop(reflect.ValueOf(string(ctx.Token())))
			case b == '\\':
				ctx.advanceByte()
				ctx.SetProgress(strEscape)
			case b < 0x20:
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "unescaped control character in string"))
			default:
				ctx.AppendToken(b)
				ctx.advanceByte()
			}
		case strEscape:
			if _, pending := ctx.PendingHighSurrogate(); pending && b != 'u' {
				return Fail(newError(MalformedEscape, ctx.Offset(), "", "high surrogate must be followed by \\u escape"))
			}
			switch b {
			case '"', '\\', '/':
				ctx.AppendToken(b)
				ctx.advanceByte()
				ctx.SetProgress(strNormal)
			case 'b':
				ctx.AppendToken(0x08)
				ctx.advanceByte()
				ctx.SetProgress(strNormal)
			case 'f':
				ctx.AppendToken(0x0C)
				ctx.advanceByte()
				ctx.SetProgress(strNormal)
			case 'n':
				ctx.AppendToken('\n')
				ctx.advanceByte()
				ctx.SetProgress(strNormal)
			case 'r':
				ctx.AppendToken('\r')
				ctx.advanceByte()
				ctx.SetProgress(strNormal)
			case 't':
				ctx.AppendToken('\t')
				ctx.advanceByte()
				ctx.SetProgress(strNormal)
			case 'u':
				ctx.advanceByte()
				ctx.SetScratch(0)
				ctx.SetProgress(strHex1)
			default:
				return Fail(newError(MalformedEscape, ctx.Offset(), "", "invalid escape character"))
			}
		case strHex1, strHex2, strHex3, strHex4:
			v, hexOK := hexVal(b)
			if !hexOK {
				return Fail(newError(MalformedEscape, ctx.Offset(), "", "invalid \\u hex digit"))
			}
			acc, _ := ctx.Scratch().(int)
			acc = acc<<4 | v
			ctx.advanceByte()
			if ctx.Progress() != strHex4 {
				ctx.SetScratch(acc)
				ctx.SetProgress(ctx.Progress() + 1)
				continue
			}
			if out := s.finishHexEscape(ctx, rune(acc)); out != nil {
				return *out
			}
		}
	}
}

// finishHexEscape integrates a completed \uXXXX escape, handling UTF-16
// surrogate pairs that may span two escapes (and, via Context's pending
// high-surrogate field, two buffer refills). Returns nil to keep scanning
// (progress reset to strNormal) or a non-nil Outcome to fail.
func (s *stringState) finishHexEscape(ctx *Context, r rune) *Outcome {
	if high, pending := ctx.PendingHighSurrogate(); pending {
		if r < 0xDC00 || r > 0xDFFF {
			out := Fail(newError(MalformedEscape, ctx.Offset(), "", "expected low surrogate after high surrogate"))
			return &out
		}
		combined := 0x10000 + (high-0xD800)*0x400 + (r - 0xDC00)
		ctx.ClearPendingHighSurrogate()
		ctx.AppendTokenRune(combined)
		ctx.SetScratch(nil)
		ctx.SetProgress(strNormal)
		return nil
	}
	switch {
	case r >= 0xD800 && r <= 0xDBFF:
		ctx.SetPendingHighSurrogate(r)
		ctx.SetScratch(nil)
		ctx.SetProgress(strNormal)
		return nil
	case r >= 0xDC00 && r <= 0xDFFF:
		out := Fail(newError(MalformedEscape, ctx.Offset(), "", "unpaired low surrogate"))
		return &out
	default:
		ctx.AppendTokenRune(r)
		ctx.SetScratch(nil)
		ctx.SetProgress(strNormal)
		return nil
	}
}

// numberState scans the JSON number grammar byte by byte and pops the raw,
// unparsed digit text; the caller (scalarState for typed targets, or
// any_state.go for Any) interprets it per target kind.
type numberState struct{}

var numberPrimitive = &numberState{}

const (
	numStart = iota
	numAfterMinus
	numAfterLeadingZero
	numInInt
	numAfterPoint
	numInFrac
	numAfterE
	numAfterESign
	numInExp
)

func (s *numberState) Advance(ctx *Context) Outcome {
	for {
		b, ok := ctx.Peek()
		if !ok {
			return s.terminalOrSuspend(ctx)
		}
		switch ctx.Progress() {
		case numStart:
			switch {
			case b == '-':
				ctx.AppendToken(b)
				ctx.advanceByte()
				ctx.SetProgress(numAfterMinus)
			case b == '0':
				ctx.AppendToken(b)
				ctx.advanceByte()
				ctx.SetProgress(numAfterLeadingZero)
			case isDigit(b):
				ctx.AppendToken(b)
				ctx.advanceByte()
				ctx.SetProgress(numInInt)
			default:
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected number"))
			}
		case numAfterMinus:
			switch {
			case b == '0':
				ctx.AppendToken(b)
				ctx.advanceByte()
				ctx.SetProgress(numAfterLeadingZero)
			case isDigit(b):
				ctx.AppendToken(b)
				ctx.advanceByte()
				ctx.SetProgress(numInInt)
			default:
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected digit after '-'"))
			}
		case numAfterLeadingZero:
			switch {
			case b == '.':
				ctx.AppendToken(b)
				ctx.advanceByte()
				ctx.SetProgress(numAfterPoint)
			case b == 'e' || b == 'E':
				ctx.AppendToken(b)
				ctx.advanceByte()
				ctx.SetProgress(numAfterE)
			default:
				return s.accept(ctx)
			}
		case numInInt:
			switch {
			case isDigit(b):
				ctx.AppendToken(b)
				ctx.advanceByte()
			case b == '.':
				ctx.AppendToken(b)
				ctx.advanceByte()
				ctx.SetProgress(numAfterPoint)
			case b == 'e' || b == 'E':
				ctx.AppendToken(b)
				ctx.advanceByte()
				ctx.SetProgress(numAfterE)
			default:
				return s.accept(ctx)
			}
		case numAfterPoint:
			if !isDigit(b) {
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected digit after decimal point"))
			}
			ctx.AppendToken(b)
			ctx.advanceByte()
			ctx.SetProgress(numInFrac)
		case numInFrac:
			switch {
			case isDigit(b):
				ctx.AppendToken(b)
				ctx.advanceByte()
			case b == 'e' || b == 'E':
				ctx.AppendToken(b)
				ctx.advanceByte()
				ctx.SetProgress(numAfterE)
			default:
				return s.accept(ctx)
			}
		case numAfterE:
			switch {
			case b == '+' || b == '-':
				ctx.AppendToken(b)
				ctx.advanceByte()
				ctx.SetProgress(numAfterESign)
			case isDigit(b):
				ctx.AppendToken(b)
				ctx.advanceByte()
				ctx.SetProgress(numInExp)
			default:
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected digit in exponent"))
			}
		case numAfterESign:
			if !isDigit(b) {
				return Fail(newError(UnexpectedToken, ctx.Offset(), "", "expected digit in exponent"))
			}
			ctx.AppendToken(b)
			ctx.advanceByte()
			ctx.SetProgress(numInExp)
		case numInExp:
			if isDigit(b) {
				ctx.AppendToken(b)
				ctx.advanceByte()
				continue
			}
			return s.accept(ctx)
		}
	}
}

func (s *numberState) terminalOrSuspend(ctx *Context) Outcome {
	if !ctx.AtEOF() {
		return Stay()
	}
	switch ctx.Progress() {
	case numAfterLeadingZero, numInInt, numInFrac, numInExp:
		return s.accept(ctx)
	default:
		return Fail(newError(UnexpectedEndOfInput, ctx.Offset(), "", "truncated number"))
	}
}

func (s *numberState) accept(ctx *Context) Outcome {
	return Pop(reflect.ValueOf(string(ctx.Token())))
}
